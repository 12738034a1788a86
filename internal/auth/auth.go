// Package auth implements the optional HTTP basic-auth gate in front of the
// dashboard API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"
)

const realm = "gamedash"

// Verifier checks a username and password pair.
type Verifier interface {
	Verify(ctx context.Context, user, password string) (bool, error)
}

// BcryptVerifier accepts a single user whose password is stored as a bcrypt
// hash.
type BcryptVerifier struct {
	user string
	hash []byte
}

func NewBcryptVerifier(user, hash string) (*BcryptVerifier, error) {
	if user == "" {
		return nil, errors.New("auth: empty user")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	return &BcryptVerifier{user: user, hash: []byte(hash)}, nil
}

func (v *BcryptVerifier) Verify(_ context.Context, user, password string) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(v.user)) == 1
	err := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	switch {
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case err != nil:
		return false, err
	}
	return userOK, nil
}

// Middleware gates requests on v. A nil verifier lets every request through.
func Middleware(v Verifier) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Skipper: func(echo.Context) bool { return v == nil },
		Realm:   realm,
		Validator: func(user, password string, c echo.Context) (bool, error) {
			return v.Verify(c.Request().Context(), user, password)
		},
	})
}
