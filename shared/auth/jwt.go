package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and tokens
	// signed with an unexpected algorithm or key.
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrTokenExpired is returned when the token's expiry has passed.
	ErrTokenExpired = errors.New("token has expired")
)

// TokenClaims carries the application claims embedded in every token:
// the account login as subject and the account's role id.
type TokenClaims struct {
	RoleID int64 `json:"role_id"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies signed bearer tokens. The signing key is
// process-wide configuration loaded once at startup; the codec never logs it.
// Confirmation and session tokens share the same codec and differ only in
// the TTL the caller passes and in what the subject is later checked against.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec creates a TokenCodec signing with the given HMAC secret.
func NewTokenCodec(secret []byte, issuer string) *TokenCodec {
	return &TokenCodec{
		secret: secret,
		issuer: issuer,
	}
}

// Issue produces a signed HS256 token with the given subject, role id and
// time-to-live. The resulting compact JWT is URL-safe and may travel in
// confirmation-link query parameters.
func (c *TokenCodec) Issue(subject string, roleID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenStr, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return tokenStr, nil
}

// Verify parses and validates a token string and returns its claims.
// The accepted algorithm is fixed by the verifier; a token cannot negotiate
// its own. Expired tokens yield ErrTokenExpired, everything else that fails
// validation yields ErrTokenInvalid.
func (c *TokenCodec) Verify(tokenStr string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return c.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
