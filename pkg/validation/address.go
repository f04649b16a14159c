package validation

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the hex length of a 22-byte Core address without 0x.
const AddressLength = 44

var ErrEmptyAddress = errors.New("address cannot be empty")

// ValidateAddress checks that addr is a 22-byte hex address. The 0x prefix is
// optional and the checksum is not verified.
func ValidateAddress(addr string) error {
	if addr == "" {
		return ErrEmptyAddress
	}

	digits := trimHexPrefix(addr)
	if len(digits) != AddressLength {
		return fmt.Errorf("invalid address length: expected %d characters (without 0x), got %d", AddressLength, len(digits))
	}
	if _, err := hex.DecodeString(digits); err != nil {
		return fmt.Errorf("invalid hex address: %w", err)
	}
	return nil
}

// NormalizeAddress returns addr in the form the ledger keys identities by:
// lowercase, no 0x.
func NormalizeAddress(addr string) string {
	return strings.ToLower(trimHexPrefix(addr))
}

func ValidateAndNormalizeAddress(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return NormalizeAddress(addr), nil
}

func trimHexPrefix(addr string) string {
	if len(addr) >= 2 && addr[0] == '0' && (addr[1] == 'x' || addr[1] == 'X') {
		return addr[2:]
	}
	return addr
}
