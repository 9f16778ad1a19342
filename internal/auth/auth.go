// Package auth checks administrative credentials against the single
// configured account.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrAuthentication is returned for any credential failure. It never says
// which part was wrong.
var ErrAuthentication = errors.New("access denied")

// Credentials is a decoded username/password pair. Decoding any transport
// encoding (e.g. HTTP Basic) is the caller's job.
type Credentials struct {
	Username string
	Password string
}

// Checker verifies credentials against a fixed username and bcrypt hash.
type Checker struct {
	username []byte
	hash     []byte
}

// NewChecker creates a Checker. The hash must be a bcrypt hash.
func NewChecker(username string, hash []byte) (*Checker, error) {
	if username == "" {
		return nil, errors.New("auth: empty username")
	}
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, errors.New("auth: invalid password hash")
	}
	return &Checker{username: []byte(username), hash: hash}, nil
}

// HashPassword returns the bcrypt hash of a plain password.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// Check returns ErrAuthentication unless c matches the configured account.
// The password hash is compared even when the username is wrong, so both
// failures take the same time.
func (ck *Checker) Check(c Credentials) error {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), ck.username) == 1
	passErr := bcrypt.CompareHashAndPassword(ck.hash, []byte(c.Password))
	if !userOK || passErr != nil {
		return ErrAuthentication
	}
	return nil
}
