package validation

import (
	"fmt"
	"math/big"
	"strings"
)

// MaxUint256 is the largest amount a token balance or spend limit can hold.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// CheckAmount reports whether amount fits the uint256 range.
func CheckAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("amount is required")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("amount cannot be negative")
	}
	if amount.Cmp(MaxUint256) > 0 {
		return fmt.Errorf("amount exceeds uint256")
	}
	return nil
}

// ParseAmount parses a base-10 token amount in base units.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount is required")
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if err := CheckAmount(amount); err != nil {
		return nil, err
	}
	return amount, nil
}
