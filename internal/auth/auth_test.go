package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("think987"), bcrypt.MinCost)
	require.NoError(t, err)
	ck, err := NewChecker("admin", hash)
	require.NoError(t, err)
	return ck
}

func TestCheckAccepts(t *testing.T) {
	ck := newTestChecker(t)
	assert.NoError(t, ck.Check(Credentials{Username: "admin", Password: "think987"}))
}

func TestCheckRejects(t *testing.T) {
	ck := newTestChecker(t)
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"WrongPassword", Credentials{"admin", "think988"}},
		{"WrongUser", Credentials{"root", "think987"}},
		{"UserPrefix", Credentials{"adm", "think987"}},
		{"Empty", Credentials{}},
		{"LongInput", Credentials{strings.Repeat("a", 4096), strings.Repeat("b", 70)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ck.Check(tt.creds)
			assert.ErrorIs(t, err, ErrAuthentication)
			assert.Equal(t, "access denied", err.Error())
		})
	}
}

func TestNewCheckerValidates(t *testing.T) {
	_, err := NewChecker("", []byte("x"))
	assert.Error(t, err)

	_, err = NewChecker("admin", []byte("not-a-hash"))
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	ck, err := NewChecker("admin", hash)
	require.NoError(t, err)
	assert.NoError(t, ck.Check(Credentials{Username: "admin", Password: "secret"}))
}
