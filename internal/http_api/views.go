package http_api

import (
	"math/big"
	"strconv"

	"github.com/core-coin/walletx/internal/models"
)

// Amounts and transaction ids leave the API as base-10 strings so clients
// never round them.

type WalletView struct {
	AdminAddress  string `json:"admin_address"`
	WalletID      uint64 `json:"wallet_id"`
	WalletName    string `json:"wallet_name"`
	WalletBalance string `json:"wallet_balance"`
	Active        bool   `json:"active"`
	Role          string `json:"role"`
}

type MemberView struct {
	MemberAddress    string `json:"member_address"`
	AdminAddress     string `json:"admin_address"`
	OrganizationName string `json:"organization_name"`
	Name             string `json:"name"`
	Active           bool   `json:"active"`
	Frozen           bool   `json:"frozen"`
	SpendLimit       string `json:"spend_limit"`
	MemberIdentifier uint64 `json:"member_identifier"`
	Role             string `json:"role"`
}

type TransactionView struct {
	ID            string `json:"id"`
	MemberAddress string `json:"member_address"`
	Amount        string `json:"amount"`
	Receiver      string `json:"receiver"`
	Timestamp     int64  `json:"timestamp"`
}

type EventView struct {
	Type       models.EventType `json:"type"`
	Admin      string           `json:"admin,omitempty"`
	Member     string           `json:"member,omitempty"`
	WalletID   uint64           `json:"wallet_id,omitempty"`
	Identifier uint64           `json:"identifier,omitempty"`
	Amount     string           `json:"amount,omitempty"`
	Receiver   string           `json:"receiver,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

type CustodyView struct {
	Custody      string `json:"custody"`
	OnChain      bool   `json:"on_chain"`
	Balance      string `json:"balance,omitempty"`
	Expected     string `json:"expected"`
	Drift        string `json:"drift,omitempty"`
	ChainBalance string `json:"chain_balance,omitempty"`
	CheckedAt    int64  `json:"checked_at"`
	Error        string `json:"error,omitempty"`
	ChainError   string `json:"chain_error,omitempty"`
}

func decimal(a *big.Int) string {
	if a == nil {
		return "0"
	}
	return a.String()
}

func optionalAmount(a *big.Int) string {
	if a == nil {
		return ""
	}
	return a.String()
}

func walletView(w *models.Wallet) *WalletView {
	return &WalletView{
		AdminAddress:  w.AdminAddress,
		WalletID:      w.WalletID,
		WalletName:    w.WalletName,
		WalletBalance: decimal(w.WalletBalance),
		Active:        w.Active,
		Role:          w.Role,
	}
}

func memberView(m *models.Member) *MemberView {
	return &MemberView{
		MemberAddress:    m.MemberAddress,
		AdminAddress:     m.AdminAddress,
		OrganizationName: m.OrganizationName,
		Name:             m.Name,
		Active:           m.Active,
		Frozen:           m.Frozen,
		SpendLimit:       decimal(m.SpendLimit),
		MemberIdentifier: m.MemberIdentifier,
		Role:             m.Role,
	}
}

func memberViews(members []*models.Member) []*MemberView {
	views := make([]*MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView(m))
	}
	return views
}

func transactionView(t *models.Transaction) *TransactionView {
	return &TransactionView{
		ID:            strconv.FormatUint(t.ID, 10),
		MemberAddress: t.MemberAddress,
		Amount:        decimal(t.Amount),
		Receiver:      t.Receiver,
		Timestamp:     t.Timestamp,
	}
}

func transactionViews(txs []*models.Transaction) []*TransactionView {
	views := make([]*TransactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, transactionView(t))
	}
	return views
}

func eventView(e *models.Event) *EventView {
	return &EventView{
		Type:       e.Type,
		Admin:      e.Admin,
		Member:     e.Member,
		WalletID:   e.WalletID,
		Identifier: e.Identifier,
		Amount:     optionalAmount(e.Amount),
		Receiver:   e.Receiver,
		Timestamp:  e.Timestamp,
	}
}

func custodyView(r *models.CustodyReport) *CustodyView {
	return &CustodyView{
		Custody:      r.Custody,
		OnChain:      r.OnChain,
		Balance:      optionalAmount(r.Balance),
		Expected:     decimal(r.Expected),
		Drift:        optionalAmount(r.Drift),
		ChainBalance: optionalAmount(r.ChainBalance),
		CheckedAt:    r.CheckedAt,
		Error:        r.Error,
		ChainError:   r.ChainError,
	}
}
