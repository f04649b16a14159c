package repository

import (
	"fmt"
	"math/big"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/validation"
)

// Amounts are stored as base-10 strings since uint256 does not fit any
// portable column type.

type walletRow struct {
	AdminAddress  string `gorm:"primaryKey;size:64"`
	WalletID      uint64 `gorm:"uniqueIndex;not null"`
	WalletName    string `gorm:"size:255"`
	WalletBalance string `gorm:"size:80;not null"`
	Active        bool
}

func (walletRow) TableName() string {
	return "wallets"
}

type memberRow struct {
	Seq              uint64 `gorm:"primaryKey;autoIncrement:false"`
	MemberAddress    string `gorm:"uniqueIndex;size:64;not null"`
	AdminAddress     string `gorm:"index;size:64;not null"`
	OrganizationName string `gorm:"size:255"`
	Name             string `gorm:"size:255"`
	Frozen           bool
	SpendLimit       string `gorm:"size:80;not null"`
	MemberIdentifier uint64 `gorm:"index"`
}

func (memberRow) TableName() string {
	return "members"
}

type transactionRow struct {
	// Position keeps insertion order across the whole log.
	Position      uint64 `gorm:"primaryKey;autoIncrement"`
	ID            uint64 `gorm:"uniqueIndex;not null"`
	MemberAddress string `gorm:"index;size:64;not null"`
	Amount        string `gorm:"size:80;not null"`
	Receiver      string `gorm:"size:64;not null"`
	Timestamp     int64  `gorm:"not null"`
}

func (transactionRow) TableName() string {
	return "member_transactions"
}

// ledgerMetaRow holds the ledger counters in a single row.
type ledgerMetaRow struct {
	ID            uint `gorm:"primaryKey"`
	NextWalletID  uint64
	NextMemberSeq uint64
}

func (ledgerMetaRow) TableName() string {
	return "ledger_meta"
}

type tokenAccountRow struct {
	Address string `gorm:"primaryKey;size:64"`
	Balance string `gorm:"size:80;not null"`
}

func (tokenAccountRow) TableName() string {
	return "token_accounts"
}

type tokenAllowanceRow struct {
	Owner   string `gorm:"primaryKey;size:64"`
	Spender string `gorm:"primaryKey;size:64"`
	Amount  string `gorm:"size:80;not null"`
}

func (tokenAllowanceRow) TableName() string {
	return "token_allowances"
}

func toWalletRow(w *models.Wallet) *walletRow {
	return &walletRow{
		AdminAddress:  w.AdminAddress,
		WalletID:      w.WalletID,
		WalletName:    w.WalletName,
		WalletBalance: amountString(w.WalletBalance),
		Active:        w.Active,
	}
}

func (r *walletRow) toModel() (*models.Wallet, error) {
	balance, err := parseStoredAmount(r.WalletBalance)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", r.AdminAddress, err)
	}
	return &models.Wallet{
		AdminAddress:  r.AdminAddress,
		WalletID:      r.WalletID,
		WalletName:    r.WalletName,
		WalletBalance: balance,
		Active:        r.Active,
		Role:          models.RoleAdmin,
	}, nil
}

func toMemberRow(m *models.Member) *memberRow {
	return &memberRow{
		Seq:              m.Seq,
		MemberAddress:    m.MemberAddress,
		AdminAddress:     m.AdminAddress,
		OrganizationName: m.OrganizationName,
		Name:             m.Name,
		Frozen:           m.Frozen,
		SpendLimit:       amountString(m.SpendLimit),
		MemberIdentifier: m.MemberIdentifier,
	}
}

func (r *memberRow) toModel() (*models.Member, error) {
	limit, err := parseStoredAmount(r.SpendLimit)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", r.MemberAddress, err)
	}
	return &models.Member{
		Seq:              r.Seq,
		MemberAddress:    r.MemberAddress,
		AdminAddress:     r.AdminAddress,
		OrganizationName: r.OrganizationName,
		Name:             r.Name,
		Active:           true,
		Frozen:           r.Frozen,
		SpendLimit:       limit,
		MemberIdentifier: r.MemberIdentifier,
		Role:             models.RoleMember,
	}, nil
}

func toTransactionRow(t *models.Transaction) *transactionRow {
	return &transactionRow{
		ID:            t.ID,
		MemberAddress: t.MemberAddress,
		Amount:        amountString(t.Amount),
		Receiver:      t.Receiver,
		Timestamp:     t.Timestamp,
	}
}

func (r *transactionRow) toModel() (*models.Transaction, error) {
	amount, err := parseStoredAmount(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", r.ID, err)
	}
	return &models.Transaction{
		ID:            r.ID,
		MemberAddress: r.MemberAddress,
		Amount:        amount,
		Receiver:      r.Receiver,
		Timestamp:     r.Timestamp,
	}, nil
}

func amountString(a *big.Int) string {
	if a == nil {
		return "0"
	}
	return a.String()
}

func parseStoredAmount(s string) (*big.Int, error) {
	amount, err := validation.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("corrupt stored amount %q: %w", s, err)
	}
	return amount, nil
}
