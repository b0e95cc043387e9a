package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/copyforge/rsa-writer/internal/credit"
	"github.com/copyforge/rsa-writer/internal/storage"
)

// AccountStore keeps accounts in a mutex-guarded map.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]credit.Account
}

// NewAccountStore constructs an AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[string]credit.Account)}
}

// PutAccount inserts or replaces an account (seed helper for dev/tests).
func (s *AccountStore) PutAccount(_ context.Context, acct credit.Account) error {
	if acct.OwnerID == "" {
		return errors.New("owner id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.OwnerID] = acct
	return nil
}

// GetAccount fetches an account by owner.
func (s *AccountStore) GetAccount(_ context.Context, ownerID string) (credit.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[ownerID]
	if !ok {
		return credit.Account{}, storage.ErrNotFound
	}
	return acct, nil
}

// UpdateBalance writes the settled balance for an owner.
func (s *AccountStore) UpdateBalance(_ context.Context, ownerID string, balance credit.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[ownerID]
	if !ok {
		return storage.ErrNotFound
	}
	acct.Balance = balance
	acct.Updated = time.Now().UTC()
	s.accounts[ownerID] = acct
	return nil
}
