package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Role ids form a small closed set shared with the rest of the platform.
const (
	RoleAdmin    int64 = 1
	RoleUser     int64 = 2
	RoleEmployee int64 = 3
)

// Account represents an account in the identity service. Login is unique
// across the whole account namespace and is treated as an email address.
// PendingLogin holds a new login awaiting out-of-band confirmation; it is
// promoted to Login, or discarded, by the email-change confirmation flow and
// does not have to be unique until promoted.
//
// Accounts are created disabled; Enabled flips to true exactly once, when a
// registration confirmation token is redeemed.
type Account struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Login        string        `bson:"login"`
	PasswordHash string        `bson:"password_hash"`
	RoleID       int64         `bson:"role_id"`
	Enabled      bool          `bson:"enabled"`
	PendingLogin *string       `bson:"pending_login"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}
