package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/core-coin/walletx/internal/models"
)

const ledgerMetaID = 1

func (db *DB) LoadLedger(ctx context.Context) (*models.LedgerSnapshot, error) {
	conn := db.Conn.WithContext(ctx)

	var wallets []*walletRow
	if err := conn.Order("wallet_id").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to load wallets: %s", err)
	}
	var members []*memberRow
	if err := conn.Order("seq").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %s", err)
	}
	var transactions []*transactionRow
	if err := conn.Order("position").Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to load member transactions: %s", err)
	}
	meta, err := loadMeta(conn)
	if err != nil {
		return nil, err
	}

	snapshot := &models.LedgerSnapshot{
		Wallets:       make([]*models.Wallet, 0, len(wallets)),
		Members:       make([]*models.Member, 0, len(members)),
		Transactions:  make([]*models.Transaction, 0, len(transactions)),
		NextWalletID:  meta.NextWalletID,
		NextMemberSeq: meta.NextMemberSeq,
	}
	for _, row := range wallets {
		w, err := row.toModel()
		if err != nil {
			return nil, err
		}
		snapshot.Wallets = append(snapshot.Wallets, w)
	}
	for _, row := range members {
		m, err := row.toModel()
		if err != nil {
			return nil, err
		}
		snapshot.Members = append(snapshot.Members, m)
	}
	for _, row := range transactions {
		t, err := row.toModel()
		if err != nil {
			return nil, err
		}
		snapshot.Transactions = append(snapshot.Transactions, t)
	}

	db.logger.Debug("Ledger loaded", "wallets", len(snapshot.Wallets), "members", len(snapshot.Members), "transactions", len(snapshot.Transactions))
	return snapshot, nil
}

// commitLedgerChange writes every record of change in a single database
// transaction, provided lease is still held. Either all of it is stored or
// none of it.
func (db *DB) commitLedgerChange(ctx context.Context, lease models.Lease, change *models.LedgerChange) error {
	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := holdsLease(tx, lease); err != nil {
			return err
		}
		meta, err := loadMeta(tx)
		if err != nil {
			return err
		}

		if err := saveTokenRows(tx, change.TokenAccounts, change.TokenAllowances); err != nil {
			return err
		}
		if change.Wallet != nil {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "admin_address"}},
				UpdateAll: true,
			}).Create(toWalletRow(change.Wallet)).Error; err != nil {
				return fmt.Errorf("failed to save wallet: %s", err)
			}
		}
		if change.NextWalletID > meta.NextWalletID {
			meta.NextWalletID = change.NextWalletID
		}

		for _, seq := range change.RemovedMembers {
			if err := tx.Where("seq = ?", seq).Delete(&memberRow{}).Error; err != nil {
				return fmt.Errorf("failed to remove member: %s", err)
			}
		}
		for _, m := range change.Members {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "seq"}},
				UpdateAll: true,
			}).Create(toMemberRow(m)).Error; err != nil {
				return fmt.Errorf("failed to save member: %s", err)
			}
			if m.Seq+1 > meta.NextMemberSeq {
				meta.NextMemberSeq = m.Seq + 1
			}
		}

		if change.Transaction != nil {
			if err := tx.Create(toTransactionRow(change.Transaction)).Error; err != nil {
				return fmt.Errorf("failed to save member transaction: %s", err)
			}
		}

		if err := tx.Save(meta).Error; err != nil {
			return fmt.Errorf("failed to save ledger counters: %s", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit ledger change: %w", err)
	}
	return nil
}

func loadMeta(conn *gorm.DB) (*ledgerMetaRow, error) {
	var meta ledgerMetaRow
	if err := conn.First(&meta, ledgerMetaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ledgerMetaRow{ID: ledgerMetaID, NextWalletID: 1}, nil
		}
		return nil, fmt.Errorf("failed to load ledger counters: %s", err)
	}
	return &meta, nil
}
