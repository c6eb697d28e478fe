package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/jobpulse/jobpulse-api/services/auth-service/config"
	"github.com/jobpulse/jobpulse-api/services/auth-service/repository"
	"github.com/jobpulse/jobpulse-api/shared/auth"
	"github.com/jobpulse/jobpulse-api/shared/event"
	"github.com/jobpulse/jobpulse-api/shared/security"
)

// PasswordResetUsecase defines the business logic for password recovery.
//
// Reset tokens are stateless and signed; expiry is their only invalidation.
// A valid, unexpired token can therefore be redeemed more than once before
// it expires. That is a known, accepted tradeoff of the stateless model,
// not an oversight.
type PasswordResetUsecase interface {
	// RequestPasswordReset initiates the password reset process for a given
	// login. It reports success even when the login is unknown, so callers
	// can present an identical response either way; the reset event is only
	// published when the account exists.
	RequestPasswordReset(ctx context.Context, login string) error

	// ConfirmPasswordReset redeems a reset token and replaces the account's
	// password hash.
	ConfirmPasswordReset(ctx context.Context, token, newPassword, repeatPassword string) error
}

type passwordResetUsecase struct {
	accountRepo    repository.AccountRepository
	codec          *auth.TokenCodec
	publisher      event.Publisher
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	accountRepo repository.AccountRepository,
	codec *auth.TokenCodec,
	publisher event.Publisher,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		accountRepo:    accountRepo,
		codec:          codec,
		publisher:      publisher,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, login string) error {
	account, err := u.accountRepo.GetAccountByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// To prevent account enumeration, do not reveal that the login
			// does not exist.
			return nil
		}

		return err
	}

	token, err := u.codec.Issue(account.Login, account.RoleID, u.authServiceCfg.Token.ConfirmationTokenTTL)
	if err != nil {
		return err
	}

	if err := u.publisher.Publish(ctx, event.TopicUserForgot, event.RegistrationEvent{
		Login: account.Login,
		Token: token,
	}); err != nil {
		u.logger.Error().Err(err).Str("topic", event.TopicUserForgot).Msg("failed to publish lifecycle event")
	}

	return nil
}

func (u *passwordResetUsecase) ConfirmPasswordReset(ctx context.Context, token, newPassword, repeatPassword string) error {
	if newPassword != repeatPassword {
		return ErrPasswordMismatch
	}

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

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := u.accountRepo.UpdateAccount(ctx, account.ID.Hex(), repository.UpdateAccountParams{
		PasswordHash: &passwordHash,
	}); err != nil {
		return err
	}

	return nil
}
