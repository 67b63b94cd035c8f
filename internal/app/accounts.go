package app

import (
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/domain"
)

var ErrAccountExists = errors.New("account already exists")

// Accounts is the in-memory username→public-key store behind the HTTP
// account API. It resets on restart; persistence is deliberately absent.
type Accounts struct {
	mu    sync.RWMutex
	users map[string]*domain.Account
}

func NewAccounts() *Accounts {
	return &Accounts{
		users: make(map[string]*domain.Account),
	}
}

// Register creates an account. Usernames are unique, first come first
// served.
func (a *Accounts) Register(username, publicKey string) (*domain.Account, error) {
	acc, err := domain.NewAccount(username, publicKey)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[username]; ok {
		return nil, ErrAccountExists
	}
	a.users[username] = acc
	log.Info().Str("module", "app.accounts").Str("username", username).Int("total", len(a.users)).Msg("account registered")
	return acc, nil
}

// Search does a case-insensitive exact-match lookup.
func (a *Accounts) Search(query string) (*domain.Account, bool) {
	q := strings.ToLower(query)
	a.mu.RLock()
	defer a.mu.RUnlock()
	for username, acc := range a.users {
		if strings.ToLower(username) == q {
			return acc, true
		}
	}
	return nil, false
}

// List returns all registered usernames.
func (a *Accounts) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.users))
	for username := range a.users {
		out = append(out, username)
	}
	return out
}
