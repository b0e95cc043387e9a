// Package credit implements the fixed-point credit ledger: account tiers,
// admission control, and success-contingent settlement.
package credit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Amount is a credit quantity in half-credit units. All balance arithmetic
// happens in this integer domain; floating point never touches a balance.
type Amount int64

// Common amounts.
const (
	HalfCredit Amount = 1
	Credit     Amount = 2
)

// String renders an Amount in whole credits, e.g. 5 half-units -> "2.5".
func (a Amount) String() string {
	whole := strconv.FormatInt(int64(a)/2, 10)
	if a%2 != 0 {
		return whole + ".5"
	}
	return whole
}

// Tier is an account's membership level.
type Tier string

// Membership tiers. Free and starter accounts are metered; pro and agency
// accounts run without per-URL charges.
const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
	TierAgency  Tier = "agency"
)

// Metered reports whether work on this tier debits credits.
func (t Tier) Metered() bool {
	return t == TierFree || t == TierStarter
}

// MaxBatchSize returns the tier's URL cap per batch; zero means uncapped.
func (t Tier) MaxBatchSize() int {
	switch t {
	case TierFree:
		return 5
	case TierStarter:
		return 50
	default:
		return 0
	}
}

// Account is the billable owner of jobs.
type Account struct {
	OwnerID string    `json:"owner_id"`
	Tier    Tier      `json:"tier"`
	Balance Amount    `json:"balance"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`
}

// Sentinel errors surfaced to callers as pre-batch rejections.
var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrBatchTooLarge       = errors.New("batch exceeds tier limit")
)

// AccountStore persists accounts keyed by owner.
type AccountStore interface {
	GetAccount(ctx context.Context, ownerID string) (Account, error)
	UpdateBalance(ctx context.Context, ownerID string, balance Amount) error
}

// CheckBatchSize rejects batches over the tier's cap before any work starts.
func CheckBatchSize(acct Account, unitCount int) error {
	limit := acct.Tier.MaxBatchSize()
	if limit > 0 && unitCount > limit {
		return fmt.Errorf("%w: %d urls, %s tier allows %d", ErrBatchTooLarge, unitCount, acct.Tier, limit)
	}
	return nil
}

// CheckAdmission gates a phase before work starts, using the requested unit
// count rather than the eventual success count. Unmetered tiers always pass;
// metered tiers pass iff the balance covers unitCount * unitCost.
func CheckAdmission(acct Account, unitCount int, unitCost Amount) error {
	if !acct.Tier.Metered() {
		return nil
	}
	required := Amount(int64(unitCount)) * unitCost
	if acct.Balance < required {
		return fmt.Errorf("%w: need %s credits for %d urls, have %s",
			ErrInsufficientCredits, required, unitCount, acct.Balance)
	}
	return nil
}

// Settle computes the post-phase balance: a single success-contingent debit
// of successCount * unitCost for metered tiers, applied after the phase's
// work is fully known. Attempted-but-failed units are never charged; zero
// successes debit nothing. Admission guarantees the result is never negative.
func Settle(acct Account, successCount int, unitCost Amount) Amount {
	if !acct.Tier.Metered() || successCount <= 0 {
		return acct.Balance
	}
	return acct.Balance - Amount(int64(successCount))*unitCost
}
