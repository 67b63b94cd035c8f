// Package domain contains entities without logic, just meta-data.
package domain

import (
	"errors"
	"time"
)

const MaxUsernameLen = 36

var (
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

// Account is a server-side user record created through the HTTP API.
// The relay never verifies ownership; the public key is stored verbatim
// for clients to look up before they ever open a signal connection.
type Account struct {
	Username     string    `json:"username"`
	PublicKey    string    `json:"publicKey,omitempty"`
	RegisteredAt time.Time `json:"-"`
}

// NewAccount is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewAccount(username, publicKey string) (*Account, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &Account{
		Username:     username,
		PublicKey:    publicKey,
		RegisteredAt: time.Now(),
	}, nil
}
