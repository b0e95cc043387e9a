package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/copyforge/rsa-writer/internal/credit"
	"github.com/copyforge/rsa-writer/internal/storage"
)

// AccountStore persists accounts in the accounts table. Expected schema:
//
//	CREATE TABLE accounts (
//	    owner_id   TEXT PRIMARY KEY,
//	    tier       TEXT NOT NULL DEFAULT 'free',
//	    balance    BIGINT NOT NULL DEFAULT 10, -- half-credit units
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type AccountStore struct {
	pool Pool
}

// NewAccountStore constructs an AccountStore over an existing pool.
func NewAccountStore(pool Pool) (*AccountStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &AccountStore{pool: pool}, nil
}

// GetAccount loads an account by owner.
func (s *AccountStore) GetAccount(ctx context.Context, ownerID string) (credit.Account, error) {
	row := s.pool.QueryRow(ctx, `
SELECT owner_id, tier, balance, created_at, updated_at FROM accounts WHERE owner_id = $1`, ownerID)

	var (
		acct    credit.Account
		tier    string
		balance int64
	)
	err := row.Scan(&acct.OwnerID, &tier, &balance, &acct.Created, &acct.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return credit.Account{}, storage.ErrNotFound
	}
	if err != nil {
		return credit.Account{}, fmt.Errorf("select account: %w", err)
	}
	acct.Tier = credit.Tier(tier)
	acct.Balance = credit.Amount(balance)
	return acct, nil
}

// UpdateBalance writes the settled balance for an owner. The balance column
// holds half-credit units; no fractional arithmetic happens in SQL.
func (s *AccountStore) UpdateBalance(ctx context.Context, ownerID string, balance credit.Amount) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE accounts SET balance = $2, updated_at = now() WHERE owner_id = $1`, ownerID, int64(balance))
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
