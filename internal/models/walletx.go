package models

import (
	"context"
	"math/big"
)

// WalletXI is the application surface served by the API.
type WalletXI interface {
	// Start restores the ledger and starts background work
	Start() error
	// Stop stops background work and releases the writer lease
	Stop()

	RegisterWallet(ctx context.Context, caller, name string, amount *big.Int) (*Wallet, error)
	GetWalletAdmin(caller string) (*Wallet, error)
	GetAdminRole(address string) string
	ReimburseWallet(ctx context.Context, caller string, amount *big.Int) (*Wallet, error)

	OnboardMember(ctx context.Context, caller, member, name string, amount *big.Int, identifier uint64) (*Member, error)
	ReimburseMember(ctx context.Context, caller string, identifier uint64, amount *big.Int) ([]*Member, error)
	GetMembers(caller string) ([]*Member, error)
	GetMember(caller string) *Member
	FreezeMember(ctx context.Context, caller, member string) (*Member, error)
	UnfreezeMember(ctx context.Context, caller, member string) (*Member, error)
	RemoveMember(ctx context.Context, caller, member string) error

	MemberWithdrawal(ctx context.Context, caller string, amount *big.Int, receiver string) (*Transaction, error)
	GetMemberTransactions(member string) []*Transaction

	// Approve lets the ledger pull amount from owner's token balance
	Approve(ctx context.Context, owner string, amount *big.Int) error
	TokenBalance(owner string) (*big.Int, error)
	TokenAllowance(owner string) (*big.Int, error)
	// ChainBalance and ChainAllowance read the funding token on the
	// blockchain; ok is false when there is no blockchain service
	ChainBalance(owner string) (balance *big.Int, ok bool, err error)
	ChainAllowance(owner string) (allowance *big.Int, ok bool, err error)
	// Mint credits tokens in development mode only
	Mint(ctx context.Context, to string, amount *big.Int) error
	TokenInfo() (*Token, bool)

	Custody() *CustodyReport
	// Subscribe streams committed ledger events until the returned func is called
	Subscribe() (<-chan *Event, func())
}

// APIServer serves the HTTP API.
type APIServer interface {
	Start()
	Shutdown() error
}
