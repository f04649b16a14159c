package models

import "math/big"

// LedgerChange is everything a single ledger mutation writes. It is committed
// to the journal as one unit.
type LedgerChange struct {
	// Wallet is upserted when set.
	Wallet *Wallet
	// NextWalletID is the wallet id counter after the change, zero if unchanged.
	NextWalletID uint64
	// Members are upserted by Seq.
	Members []*Member
	// RemovedMembers lists the Seq of members deleted by the change.
	RemovedMembers []uint64
	// Transaction is appended to the member's log when set.
	Transaction *Transaction
	// TokenAccounts and TokenAllowances are the token rows moved by the change.
	TokenAccounts   []*TokenAccount
	TokenAllowances []*TokenAllowance
}

// LedgerSnapshot is the persisted ledger state used to restore a ledger.
type LedgerSnapshot struct {
	Wallets []*Wallet
	// Members are the live members ordered by Seq.
	Members []*Member
	// Transactions are ordered by insertion.
	Transactions []*Transaction
	NextWalletID uint64
	// NextMemberSeq is one past the highest member Seq ever assigned.
	NextMemberSeq uint64
}

// CustodyReport is the outcome of comparing the custody balance with the ledger.
type CustodyReport struct {
	// Custody is the identity holding the pulled tokens.
	Custody string `json:"custody"`
	// OnChain is true when a blockchain service is configured.
	OnChain bool `json:"on_chain"`
	// Balance is the custody balance of the token the ledger moves funds with.
	Balance *big.Int `json:"balance"`
	// Expected is the sum of wallet balances minus everything withdrawn.
	Expected *big.Int `json:"expected"`
	// Drift is Balance minus Expected.
	Drift *big.Int `json:"drift"`
	// ChainBalance is the custody balance read from the blockchain. It is
	// reported as is and not part of Drift.
	ChainBalance *big.Int `json:"chain_balance"`
	CheckedAt    int64    `json:"checked_at"`
	Error        string   `json:"error,omitempty"`
	ChainError   string   `json:"chain_error,omitempty"`
}
