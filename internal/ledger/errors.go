package ledger

import (
	"errors"
	"fmt"
	"math/big"
)

// String failures. The error text is the message surfaced to callers.
var (
	ErrNotAdmin        = errors.New("Not a wallet admin account")
	ErrNoAllowance     = errors.New("No allowance to spend funds at the moment")
	ErrMultipleWallets = errors.New("Cannot create multiple wallets with one wallet address")
	ErrMemberExists    = errors.New("Member already onboarded")
	ErrMemberNotFound  = errors.New("Member not found")
	ErrNotMember       = errors.New("Not a member account")
	ErrMemberFrozen    = errors.New("Member account is frozen")
	ErrZeroAmount      = errors.New("Amount must be greater than zero")
	ErrInvalidReceiver = errors.New("Invalid receiver address")
	ErrInvalidMember   = errors.New("Invalid member address")
	ErrInvalidAmount   = errors.New("Invalid amount")
	ErrOverflow        = errors.New("Arithmetic overflow")
)

// InsufficientFundsError is raised when a balance or spend limit cannot cover
// the requested amount. It carries no message; callers match on the type.
type InsufficientFundsError struct {
	Available *big.Int
	Required  *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return "InsufficientFunds"
}

// Detail describes the shortfall for logs.
func (e *InsufficientFundsError) Detail() string {
	return fmt.Sprintf("available %s, required %s", e.Available, e.Required)
}

// IsInsufficientFunds reports whether err is, or wraps, an InsufficientFundsError.
func IsInsufficientFunds(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}

func insufficientFunds(available, required *big.Int) error {
	return &InsufficientFundsError{
		Available: new(big.Int).Set(available),
		Required:  new(big.Int).Set(required),
	}
}
