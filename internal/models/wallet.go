package models

import "math/big"

const (
	// RoleAdmin is reported for the identity that registered a wallet.
	RoleAdmin = "admin"
	// RoleMember is reported for an onboarded member.
	RoleMember = "member"
)

// Wallet is an organization wallet owned by exactly one admin identity.
type Wallet struct {
	// AdminAddress is the identity that registered the wallet.
	AdminAddress string `json:"admin_address"`
	// WalletID is assigned at registration from a global counter starting at 1.
	WalletID uint64 `json:"wallet_id"`
	// WalletName is the display name of the organization.
	WalletName string `json:"wallet_name"`
	// WalletBalance is the funded amount in token base units.
	WalletBalance *big.Int `json:"wallet_balance"`
	// Active is set once the wallet is registered.
	Active bool `json:"active"`
	// Role is always RoleAdmin for a registered wallet.
	Role string `json:"role"`
}

// Clone returns a deep copy of the wallet.
func (w *Wallet) Clone() *Wallet {
	c := *w
	c.WalletBalance = cloneAmount(w.WalletBalance)
	return &c
}

// Member is an identity onboarded by an admin with its own spend limit.
type Member struct {
	// Seq is the position of the member in the ledger's member arena.
	// It orders the admin's member list.
	Seq uint64 `json:"-"`
	// MemberAddress is the identity allowed to withdraw.
	MemberAddress string `json:"member_address"`
	// AdminAddress is the admin that onboarded the member.
	AdminAddress string `json:"admin_address"`
	// OrganizationName is the admin's wallet name at onboarding time.
	OrganizationName string `json:"organization_name"`
	// Name is the member display name.
	Name string `json:"name"`
	// Active is true until the member is removed.
	Active bool `json:"active"`
	// Frozen blocks withdrawals without removing the member.
	Frozen bool `json:"frozen"`
	// SpendLimit is the remaining amount the member may withdraw.
	SpendLimit *big.Int `json:"spend_limit"`
	// MemberIdentifier is an admin-chosen tag. It is not unique.
	MemberIdentifier uint64 `json:"member_identifier"`
	// Role is RoleMember for an onboarded member and empty otherwise.
	Role string `json:"role"`
}

// Clone returns a deep copy of the member.
func (m *Member) Clone() *Member {
	c := *m
	c.SpendLimit = cloneAmount(m.SpendLimit)
	return &c
}

// EmptyMember is the record reported for an identity that is not a member.
func EmptyMember() *Member {
	return &Member{SpendLimit: new(big.Int)}
}

// Transaction is a withdrawal recorded in a member's transaction log.
type Transaction struct {
	// ID is a unique record id.
	ID uint64 `json:"id"`
	// MemberAddress is the member who withdrew.
	MemberAddress string `json:"member_address"`
	// Amount is the withdrawn amount in token base units.
	Amount *big.Int `json:"amount"`
	// Receiver is the identity the tokens were sent to.
	Receiver string `json:"receiver"`
	// Timestamp is the unix time of the withdrawal.
	Timestamp int64 `json:"timestamp"`
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Amount = cloneAmount(t.Amount)
	return &c
}

func cloneAmount(a *big.Int) *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a)
}
