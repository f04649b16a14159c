package models

import "math/big"

// Token describes the funding token as published by the well-known service
type Token struct {
	// Address is the contract address of the token
	Address string `json:"address"`
	// Name is the full name of the token
	Name string `json:"name"`
	// Symbol is the short symbol of the token (e.g., CTN, USDT)
	Symbol string `json:"symbol"`
	// Decimals is the number of decimals the token uses
	Decimals int `json:"decimals"`
	// Type is the token type (CBC20, CBC721, etc.)
	Type string `json:"type"`
	// Network is the network the token is on (mainnet, devin, etc.)
	Network string `json:"network"`
	// UpdatedAt is the timestamp when the token info was last updated
	UpdatedAt int64 `json:"updated_at"`
}

// TokenService is the fungible funding token the ledger moves value with.
type TokenService interface {
	BalanceOf(owner string) (*big.Int, error)
	Allowance(owner, spender string) (*big.Int, error)
	// Begin starts staging the token movements of one ledger mutation.
	Begin() TokenBatch
}

// TokenBatch stages token movements. Nothing is visible to readers until
// Commit; the staged rows are written with the ledger change that caused them.
type TokenBatch interface {
	Allowance(owner, spender string) *big.Int
	Transfer(from, to string, amount *big.Int) error
	TransferFrom(spender, from, to string, amount *big.Int) error
	// Changes returns every account and allowance the batch touched.
	Changes() ([]*TokenAccount, []*TokenAllowance)
	Commit()
	// Discard drops the staged movements. It is a no-op after Commit.
	Discard()
}

// TokenAccount is a persisted token balance.
type TokenAccount struct {
	Address string
	Balance *big.Int
}

// TokenAllowance is a persisted approval of owner to spender.
type TokenAllowance struct {
	Owner   string
	Spender string
	Amount  *big.Int
}
