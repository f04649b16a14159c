package models

import (
	"context"
	"errors"
	"time"
)

// ErrLeaseLost is returned by a LedgerWriter whose lease is no longer held.
var ErrLeaseLost = errors.New("writer lease is not held")

// Lease names the lock row a writer must hold for its writes to land.
type Lease struct {
	Name       string
	InstanceID string
}

// LedgerWriter stores ledger and token changes on behalf of a lease holder.
// Each write checks the lease in the same database transaction.
type LedgerWriter interface {
	// CommitLedgerChange writes a ledger mutation atomically.
	CommitLedgerChange(ctx context.Context, change *LedgerChange) error
	SaveTokenState(ctx context.Context, accounts []*TokenAccount, allowances []*TokenAllowance) error
}

type Repository interface {
	// LoadLedger returns the persisted ledger state.
	LoadLedger(ctx context.Context) (*LedgerSnapshot, error)
	LoadTokenState(ctx context.Context) ([]*TokenAccount, []*TokenAllowance, error)

	// Writer returns the store writes go through while lease is held.
	Writer(lease Lease) LedgerWriter

	// AcquireLock takes or renews the named lock for instanceID until ttl elapses.
	AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error

	Close() error
}
