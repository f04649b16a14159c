package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/core-coin/walletx/internal/models"
)

func (db *DB) LoadTokenState(ctx context.Context) ([]*models.TokenAccount, []*models.TokenAllowance, error) {
	conn := db.Conn.WithContext(ctx)

	var accountRows []*tokenAccountRow
	if err := conn.Order("address").Find(&accountRows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load token accounts: %s", err)
	}
	var allowanceRows []*tokenAllowanceRow
	if err := conn.Order("owner, spender").Find(&allowanceRows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load token allowances: %s", err)
	}

	accounts := make([]*models.TokenAccount, 0, len(accountRows))
	for _, row := range accountRows {
		balance, err := parseStoredAmount(row.Balance)
		if err != nil {
			return nil, nil, fmt.Errorf("token account %s: %w", row.Address, err)
		}
		accounts = append(accounts, &models.TokenAccount{Address: row.Address, Balance: balance})
	}
	allowances := make([]*models.TokenAllowance, 0, len(allowanceRows))
	for _, row := range allowanceRows {
		amount, err := parseStoredAmount(row.Amount)
		if err != nil {
			return nil, nil, fmt.Errorf("token allowance %s/%s: %w", row.Owner, row.Spender, err)
		}
		allowances = append(allowances, &models.TokenAllowance{Owner: row.Owner, Spender: row.Spender, Amount: amount})
	}
	return accounts, allowances, nil
}

// saveTokenState upserts the given balances and allowances in one
// transaction, provided lease is still held.
func (db *DB) saveTokenState(ctx context.Context, lease models.Lease, accounts []*models.TokenAccount, allowances []*models.TokenAllowance) error {
	return db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := holdsLease(tx, lease); err != nil {
			return err
		}
		return saveTokenRows(tx, accounts, allowances)
	})
}

func saveTokenRows(tx *gorm.DB, accounts []*models.TokenAccount, allowances []*models.TokenAllowance) error {
	for _, a := range accounts {
		row := &tokenAccountRow{Address: a.Address, Balance: amountString(a.Balance)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance"}),
		}).Create(row).Error; err != nil {
			return fmt.Errorf("failed to save token account: %s", err)
		}
	}
	for _, a := range allowances {
		row := &tokenAllowanceRow{Owner: a.Owner, Spender: a.Spender, Amount: amountString(a.Amount)}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "spender"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount"}),
		}).Create(row).Error; err != nil {
			return fmt.Errorf("failed to save token allowance: %s", err)
		}
	}
	return nil
}
