package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/copyforge/rsa-writer/internal/credit"
	"github.com/copyforge/rsa-writer/internal/storage"
)

func TestAccountStoreGetAccount(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAccountStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("owner").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id", "tier", "balance", "created_at", "updated_at"}).
			AddRow("owner", "starter", int64(7), now, now))

	acct, err := store.GetAccount(context.Background(), "owner")
	require.NoError(t, err)
	require.Equal(t, credit.TierStarter, acct.Tier)
	require.Equal(t, credit.Amount(7), acct.Balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStoreGetAccountNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAccountStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetAccount(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountStoreUpdateBalance(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAccountStore(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs("owner", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateBalance(context.Background(), "owner", 5))
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs("missing", int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, store.UpdateBalance(context.Background(), "missing", 5), storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
