package models

import (
	"math/big"
)

// BlockchainService reads funding token state from the blockchain.
type BlockchainService interface {
	GetAddressTokenBalance(address string) (*big.Int, error)
	GetTokenAllowance(owner, spender string) (*big.Int, error)
	Close() error
}
