package models

import (
	"fmt"
	"math/big"
)

// EventType names a committed ledger mutation.
type EventType string

const (
	EventWalletRegistered EventType = "wallet_registered"
	EventWalletReimbursed EventType = "wallet_reimbursed"
	EventMemberOnboarded  EventType = "member_onboarded"
	EventMemberReimbursed EventType = "member_reimbursed"
	EventMemberFrozen     EventType = "member_frozen"
	EventMemberUnfrozen   EventType = "member_unfrozen"
	EventMemberRemoved    EventType = "member_removed"
	EventMemberWithdrawal EventType = "member_withdrawal"
)

// Event is published after a ledger mutation commits.
type Event struct {
	Type       EventType `json:"type"`
	Admin      string    `json:"admin,omitempty"`
	Member     string    `json:"member,omitempty"`
	WalletID   uint64    `json:"wallet_id,omitempty"`
	Identifier uint64    `json:"identifier,omitempty"`
	Amount     *big.Int  `json:"amount,omitempty"`
	Receiver   string    `json:"receiver,omitempty"`
	Timestamp  int64     `json:"timestamp"`
}

func (e *Event) String() string {
	switch e.Type {
	case EventWalletRegistered:
		return fmt.Sprintf("Wallet #%d registered by %s with %s", e.WalletID, e.Admin, e.Amount)
	case EventWalletReimbursed:
		return fmt.Sprintf("Wallet #%d reimbursed with %s", e.WalletID, e.Amount)
	case EventMemberOnboarded:
		return fmt.Sprintf("Member %s onboarded by %s with spend limit %s", e.Member, e.Admin, e.Amount)
	case EventMemberReimbursed:
		return fmt.Sprintf("Members with identifier %d reimbursed with %s", e.Identifier, e.Amount)
	case EventMemberFrozen:
		return fmt.Sprintf("Member %s frozen", e.Member)
	case EventMemberUnfrozen:
		return fmt.Sprintf("Member %s unfrozen", e.Member)
	case EventMemberRemoved:
		return fmt.Sprintf("Member %s removed", e.Member)
	case EventMemberWithdrawal:
		return fmt.Sprintf("Member %s withdrew %s to %s", e.Member, e.Amount, e.Receiver)
	}
	return string(e.Type)
}
