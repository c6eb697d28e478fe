package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/jobpulse/jobpulse-api/services/auth-service/config"
	"github.com/jobpulse/jobpulse-api/services/auth-service/model"
	"github.com/jobpulse/jobpulse-api/services/auth-service/repository"
	"github.com/jobpulse/jobpulse-api/shared/auth"
	"github.com/jobpulse/jobpulse-api/shared/event"
	"github.com/jobpulse/jobpulse-api/shared/security"
)

var (
	ErrLoginAlreadyExists = errors.New("login already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is not confirmed")
	ErrAccountNotFound    = errors.New("account not found")
	ErrStaleConfirmation  = errors.New("confirmation token is stale")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// AccountUsecase governs the account lifecycle: registration with
// out-of-band confirmation, authentication and login (email) change.
// Each operation is a single state transition; notification side effects
// are published as events and never block or fail the transition.
type AccountUsecase interface {
	// Register stores a new disabled account and returns the confirmation
	// token embedded in the emailed link. The account cannot authenticate
	// until the token is redeemed.
	Register(ctx context.Context, login, password string, roleID int64) (string, error)

	// ConfirmRegistration redeems a registration confirmation token and
	// enables the account. Confirming an already-enabled account is a no-op
	// success: email clients prefetch confirmation links.
	ConfirmRegistration(ctx context.Context, token string) error

	// Authenticate verifies credentials and returns a session token.
	Authenticate(ctx context.Context, login, password string) (string, error)

	// RequestLoginChange records newLogin as the account's pending login and
	// sends a confirmation link to the new address. The current login stays
	// in effect until confirmed.
	RequestLoginChange(ctx context.Context, currentLogin, newLogin string) error

	// ConfirmLoginChange promotes the pending login to the primary login.
	// The token subject must equal the account's current pending login;
	// a superseded or already-redeemed token fails with ErrStaleConfirmation.
	ConfirmLoginChange(ctx context.Context, token string) error
}

type accountUsecase struct {
	accountRepo    repository.AccountRepository
	codec          *auth.TokenCodec
	publisher      event.Publisher
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewAccountUsecase creates a new instance of AccountUsecase.
func NewAccountUsecase(
	accountRepo repository.AccountRepository,
	codec *auth.TokenCodec,
	publisher event.Publisher,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) AccountUsecase {
	return &accountUsecase{
		accountRepo:    accountRepo,
		codec:          codec,
		publisher:      publisher,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *accountUsecase) Register(ctx context.Context, login, password string, roleID int64) (string, error) {
	// Logins are compared exactly, without normalization. Lowercasing or
	// trimming here would silently merge addresses the rest of the platform
	// treats as distinct.
	exists, err := u.accountRepo.ExistsByLogin(ctx, login)
	if err != nil {
		return "", err
	}
	if exists {
		return "", ErrLoginAlreadyExists
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return "", err
	}

	if _, err := u.accountRepo.CreateAccount(ctx, &model.Account{
		Login:        login,
		PasswordHash: passwordHash,
		RoleID:       roleID,
		Enabled:      false,
	}); err != nil {
		// The unique index closes the gap between the existence check and
		// the insert under concurrent registrations.
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrLoginAlreadyExists
		}

		return "", err
	}

	token, err := u.codec.Issue(login, roleID, u.authServiceCfg.Token.ConfirmationTokenTTL)
	if err != nil {
		return "", err
	}

	u.publish(ctx, event.TopicUserRegistration, event.RegistrationEvent{
		Login: login,
		Token: token,
	})

	return token, nil
}

func (u *accountUsecase) ConfirmRegistration(ctx context.Context, token string) error {
	claims, err := u.codec.Verify(token)
	if err != nil {
		return err
	}

	account, err := u.accountRepo.GetAccountByLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrAccountNotFound
		}

		return err
	}

	if account.Enabled {
		return nil
	}

	enabled := true
	if _, err := u.accountRepo.UpdateAccount(ctx, account.ID.Hex(), repository.UpdateAccountParams{
		Enabled: &enabled,
	}); err != nil {
		return err
	}

	return nil
}

func (u *accountUsecase) Authenticate(ctx context.Context, login, password string) (string, error) {
	account, err := u.accountRepo.GetAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Unknown login and wrong password are indistinguishable to the
			// caller to prevent account enumeration.
			return "", ErrInvalidCredentials
		}

		return "", err
	}

	if !account.Enabled {
		return "", ErrAccountDisabled
	}

	if ok, err := security.VerifyPassword(password, account.PasswordHash); err != nil {
		return "", err
	} else if !ok {
		return "", ErrInvalidCredentials
	}

	return u.codec.Issue(account.Login, account.RoleID, u.authServiceCfg.Token.SessionTokenTTL)
}

func (u *accountUsecase) RequestLoginChange(ctx context.Context, currentLogin, newLogin string) error {
	exists, err := u.accountRepo.ExistsByLogin(ctx, newLogin)
	if err != nil {
		return err
	}
	if exists {
		return ErrLoginAlreadyExists
	}

	account, err := u.accountRepo.GetAccountByLogin(ctx, currentLogin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrAccountNotFound
		}

		return err
	}

	// Concurrent change requests race on pending_login; the last writer
	// wins and earlier tokens fail confirmation as stale.
	if _, err := u.accountRepo.UpdateAccount(ctx, account.ID.Hex(), repository.UpdateAccountParams{
		PendingLogin: &newLogin,
	}); err != nil {
		return err
	}

	token, err := u.codec.Issue(newLogin, account.RoleID, u.authServiceCfg.Token.ConfirmationTokenTTL)
	if err != nil {
		return err
	}

	u.publish(ctx, event.TopicUserChange, event.RegistrationEvent{
		Login: newLogin,
		Token: token,
	})

	return nil
}

func (u *accountUsecase) ConfirmLoginChange(ctx context.Context, token string) error {
	claims, err := u.codec.Verify(token)
	if err != nil {
		return err
	}

	// The subject is matched against pending_login specifically: a token
	// minted for any other purpose, a superseded change request, or a
	// second redemption after the field was cleared all land here.
	account, err := u.accountRepo.GetAccountByPendingLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrStaleConfirmation
		}

		return err
	}

	newLogin := claims.Subject
	if _, err := u.accountRepo.UpdateAccount(ctx, account.ID.Hex(), repository.UpdateAccountParams{
		Login:             &newLogin,
		ClearPendingLogin: true,
	}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrLoginAlreadyExists
		}

		return err
	}

	return nil
}

// publish hands an event to the message channel. Failures are logged and
// swallowed: the state transition the event describes has already committed,
// and notification delivery is best effort from this side.
func (u *accountUsecase) publish(ctx context.Context, topic string, payload any) {
	if err := u.publisher.Publish(ctx, topic, payload); err != nil {
		u.logger.Error().Err(err).Str("topic", topic).Msg("failed to publish lifecycle event")
	}
}
