package walletx

import (
	"context"
	"errors"
	"time"

	"github.com/core-coin/walletx/internal/models"
)

// leaseLoop renews the writer lease a few times per TTL. An instance that is
// not the writer refreshes its read view from the repository on every tick.
func (w *WalletX) leaseLoop() {
	defer w.wg.Done()

	interval := w.config.LeaseTTL / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.renewLease(w.ctx)
			if !w.writer.Load() {
				if err := w.reload(w.ctx); err != nil {
					w.logger.Error("Failed to refresh ledger view", "error", err)
				}
			}
		case <-w.ctx.Done():
			return
		}
	}
}

// renewLease takes or renews the writer lease. An instance that just became
// the writer reloads the state first so it never mutates a stale view.
func (w *WalletX) renewLease(ctx context.Context) {
	acquired, err := w.repo.AcquireLock(ctx, writerLockName, w.instanceID, w.config.LeaseTTL)
	if err != nil {
		w.logger.Error("Failed to renew writer lease", "error", err)
		acquired = false
	}

	wasWriter := w.writer.Load()
	switch {
	case acquired && !wasWriter:
		if err := w.reload(ctx); err != nil {
			w.logger.Error("Failed to load ledger for writing", "error", err)
			return
		}
		w.writer.Store(true)
		w.logger.Info("Acquired writer lease", "instance", w.instanceID)
	case !acquired && wasWriter:
		w.writer.Store(false)
		w.logger.Warn("Lost writer lease", "instance", w.instanceID)
	}
	w.metrics.setWriter(w.writer.Load())
}

// fence is the journal and token store of an instance. The repository
// refuses writes once the lease is gone; the instance then stops serving
// mutations until it wins the lease back.
type fence struct {
	w      *WalletX
	writer models.LedgerWriter
}

func (f *fence) CommitLedgerChange(ctx context.Context, change *models.LedgerChange) error {
	return f.check(f.writer.CommitLedgerChange(ctx, change))
}

func (f *fence) SaveTokenState(ctx context.Context, accounts []*models.TokenAccount, allowances []*models.TokenAllowance) error {
	return f.check(f.writer.SaveTokenState(ctx, accounts, allowances))
}

func (f *fence) check(err error) error {
	if !errors.Is(err, models.ErrLeaseLost) {
		return err
	}
	if f.w.writer.CompareAndSwap(true, false) {
		f.w.metrics.setWriter(false)
		f.w.logger.Warn("Write refused, writer lease lost", "instance", f.w.instanceID)
	}
	return ErrNotWriter
}
