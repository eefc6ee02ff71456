package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hubcrm/backend/internal/infrastructure/config"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the user does not exist, so unknown
// and known usernames take the same time to reject.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// Authenticator checks passwords against the configured API accounts
type Authenticator struct {
	users map[string]config.AuthUser
}

// NewAuthenticator indexes users by lowercased username
func NewAuthenticator(users []config.AuthUser) *Authenticator {
	a := &Authenticator{users: make(map[string]config.AuthUser, len(users))}
	for _, u := range users {
		a.users[strings.ToLower(u.Username)] = u
	}
	return a
}

// Authenticate returns the account matching username and password
func (a *Authenticator) Authenticate(_ context.Context, username, password string) (*config.AuthUser, error) {
	user, ok := a.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// HashPassword returns the bcrypt hash stored in auth.users[].password_hash
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
