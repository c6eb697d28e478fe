package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jobpulse/jobpulse-api/services/auth-service/model"
)

// AccountRepository defines the interface for account-related database
// operations. The store's row-level consistency is the only serialization
// between concurrent writers of the same account.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error)
	GetAccountByLogin(ctx context.Context, login string) (*model.Account, error)
	GetAccountByPendingLogin(ctx context.Context, pendingLogin string) (*model.Account, error)
	ExistsByLogin(ctx context.Context, login string) (bool, error)
	UpdateAccount(ctx context.Context, id string, params UpdateAccountParams) (*model.Account, error)
}

// UpdateAccountParams defines the optional parameters for updating an
// account. Only the fields that are not nil will be updated;
// ClearPendingLogin resets pending_login to null.
type UpdateAccountParams struct {
	Login             *string
	PasswordHash      *string
	Enabled           *bool
	PendingLogin      *string
	ClearPendingLogin bool
}

const accountCollection = "accounts"

type accountMongoRepository struct {
	db *mongo.Database
}

// NewAccountMongoRepository creates the Mongo-backed account store. The
// unique index on login enforces the namespace-wide uniqueness invariant;
// violations surface as duplicate key errors on insert and update.
func NewAccountMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) AccountRepository {
	collection := db.Collection(accountCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "login", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create account indexes")
	}

	return &accountMongoRepository{db: db}
}

func (r *accountMongoRepository) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	result, err := r.db.Collection(accountCollection).InsertOne(ctx, account)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		account.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return account, nil
}

func (r *accountMongoRepository) GetAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	result := r.db.Collection(accountCollection).FindOne(ctx, bson.M{"login": login})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var account model.Account
	if err := result.Decode(&account); err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountMongoRepository) GetAccountByPendingLogin(
	ctx context.Context,
	pendingLogin string,
) (*model.Account, error) {
	result := r.db.Collection(accountCollection).FindOne(ctx, bson.M{"pending_login": pendingLogin})
	if result.Err() != nil {
		return nil, result.Err()
	}

	var account model.Account
	if err := result.Decode(&account); err != nil {
		return nil, err
	}

	return &account, nil
}

func (r *accountMongoRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	count, err := r.db.Collection(accountCollection).CountDocuments(ctx, bson.M{"login": login})
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *accountMongoRepository) UpdateAccount(
	ctx context.Context,
	id string,
	params UpdateAccountParams,
) (*model.Account, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	// Build update query
	updateMap := bson.M{}
	if params.Login != nil {
		updateMap["login"] = *params.Login
	}
	if params.PasswordHash != nil {
		updateMap["password_hash"] = *params.PasswordHash
	}
	if params.Enabled != nil {
		updateMap["enabled"] = *params.Enabled
	}
	if params.PendingLogin != nil {
		updateMap["pending_login"] = *params.PendingLogin
	}
	if params.ClearPendingLogin {
		updateMap["pending_login"] = nil
	}

	if len(updateMap) == 0 {
		return nil, errors.New("no account fields to update")
	}

	updateMap["updated_at"] = time.Now()

	result := r.db.Collection(accountCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var account model.Account
	if err := result.Decode(&account); err != nil {
		return nil, err
	}

	return &account, nil
}
