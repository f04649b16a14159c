package ledger

import (
	"context"
	"math/big"

	"github.com/core-coin/walletx/internal/models"
)

// RegisterWallet makes caller the admin of a new wallet funded with fund.
// The fund is pulled from caller, who must have approved the custody
// identity for at least fund beforehand.
func (l *Ledger) RegisterWallet(ctx context.Context, caller, name string, fund *big.Int) (wallet *models.Wallet, err error) {
	defer l.observe("register_wallet", &err)

	l.mu.Lock()
	wallet, event, err := l.registerWallet(ctx, caller, name, fund)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(event)
	return wallet, nil
}

func (l *Ledger) registerWallet(ctx context.Context, caller, name string, fund *big.Int) (*models.Wallet, *models.Event, error) {
	if err := checkAmount(fund); err != nil {
		return nil, nil, err
	}
	if _, exists := l.wallets[caller]; exists {
		return nil, nil, ErrMultipleWallets
	}
	if caller == "" {
		return nil, nil, ErrNotAdmin
	}

	wallet := &models.Wallet{
		AdminAddress:  caller,
		WalletID:      l.nextWalletID,
		WalletName:    name,
		WalletBalance: new(big.Int).Set(fund),
		Active:        true,
		Role:          models.RoleAdmin,
	}

	batch := l.token.Begin()
	defer batch.Discard()
	if err := l.pull(batch, caller, fund); err != nil {
		return nil, nil, err
	}
	change := &models.LedgerChange{Wallet: wallet, NextWalletID: l.nextWalletID + 1}
	if err := l.commit(ctx, change, batch); err != nil {
		return nil, nil, err
	}

	l.wallets[caller] = wallet
	l.nextWalletID++
	l.metrics.setCounts(len(l.wallets), len(l.memberIndex))
	l.logger.Info("Wallet registered", "admin", caller, "wallet_id", wallet.WalletID, "balance", fund.String())

	return wallet.Clone(), &models.Event{
		Type:      models.EventWalletRegistered,
		Admin:     caller,
		WalletID:  wallet.WalletID,
		Amount:    new(big.Int).Set(fund),
		Timestamp: l.now().Unix(),
	}, nil
}

// GetWalletAdmin returns the wallet registered by caller.
func (l *Ledger) GetWalletAdmin(caller string) (*models.Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	w, err := l.adminWallet(caller)
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

// GetAdminRole returns RoleAdmin if identity registered a wallet, otherwise
// the empty string. It never fails.
func (l *Ledger) GetAdminRole(identity string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.wallets[identity]; ok && identity != "" {
		return models.RoleAdmin
	}
	return ""
}

// ReimburseWallet pulls amount from the admin and adds it to the wallet balance.
func (l *Ledger) ReimburseWallet(ctx context.Context, caller string, amount *big.Int) (wallet *models.Wallet, err error) {
	defer l.observe("reimburse_wallet", &err)

	l.mu.Lock()
	wallet, event, err := l.reimburseWallet(ctx, caller, amount)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(event)
	return wallet, nil
}

func (l *Ledger) reimburseWallet(ctx context.Context, caller string, amount *big.Int) (*models.Wallet, *models.Event, error) {
	current, err := l.adminWallet(caller)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, nil, err
	}
	balance, err := checkedAdd(current.WalletBalance, amount)
	if err != nil {
		return nil, nil, err
	}

	wallet := current.Clone()
	wallet.WalletBalance = balance

	batch := l.token.Begin()
	defer batch.Discard()
	if err := l.pull(batch, caller, amount); err != nil {
		return nil, nil, err
	}
	change := &models.LedgerChange{Wallet: wallet}
	if err := l.commit(ctx, change, batch); err != nil {
		return nil, nil, err
	}

	l.wallets[caller] = wallet
	l.logger.Info("Wallet reimbursed", "admin", caller, "amount", amount.String(), "balance", balance.String())

	return wallet.Clone(), &models.Event{
		Type:      models.EventWalletReimbursed,
		Admin:     caller,
		WalletID:  wallet.WalletID,
		Amount:    new(big.Int).Set(amount),
		Timestamp: l.now().Unix(),
	}, nil
}
