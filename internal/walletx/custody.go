package walletx

import (
	"math/big"
	"time"

	"github.com/core-coin/walletx/internal/models"
)

func (w *WalletX) reconcileLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Reconcile()
		case <-w.ctx.Done():
			return
		}
	}
}

// Reconcile compares the custody balance of the token the ledger moves funds
// with against what the ledger says it should hold: every wallet balance ever
// funded minus everything withdrawn. With a blockchain service the custody
// balance on chain is reported next to it.
func (w *WalletX) Reconcile() *models.CustodyReport {
	balances, withdrawn := w.ledger.Totals()
	custody := w.ledger.Custody()
	report := &models.CustodyReport{
		Custody:   custody,
		OnChain:   w.chain != nil,
		Expected:  new(big.Int).Sub(balances, withdrawn),
		CheckedAt: time.Now().Unix(),
	}

	balance, err := w.token.BalanceOf(custody)
	if err != nil {
		report.Error = err.Error()
		w.logger.Error("Failed to read custody balance", "custody", custody, "error", err)
	} else {
		report.Balance = balance
		report.Drift = new(big.Int).Sub(balance, report.Expected)
		w.metrics.setDrift(report.Drift)
		if report.Drift.Sign() != 0 {
			w.logger.Warn("Custody balance drift", "custody", custody, "balance", balance.String(), "expected", report.Expected.String(), "drift", report.Drift.String())
		} else {
			w.logger.Debug("Custody balance reconciled", "custody", custody, "balance", balance.String())
		}
	}

	if w.chain != nil {
		chainBalance, err := w.chain.GetAddressTokenBalance(custody)
		if err != nil {
			report.ChainError = err.Error()
			w.logger.Error("Failed to read custody balance on chain", "custody", custody, "error", err)
		} else {
			report.ChainBalance = chainBalance
		}
	}

	w.custodyMu.Lock()
	w.custody = report
	w.custodyMu.Unlock()
	return report
}

// Custody returns the last reconciliation report, or nil before the first one.
func (w *WalletX) Custody() *models.CustodyReport {
	w.custodyMu.RLock()
	defer w.custodyMu.RUnlock()
	if w.custody == nil {
		return nil
	}
	report := *w.custody
	return &report
}
