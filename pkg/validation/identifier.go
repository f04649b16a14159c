package validation

import (
	"fmt"
	"math"
)

// MaxIdentifier is the largest member identifier the repository can store in
// its signed 64-bit column.
const MaxIdentifier = math.MaxInt64

// CheckIdentifier reports whether identifier fits the stored range.
func CheckIdentifier(identifier uint64) error {
	if identifier > MaxIdentifier {
		return fmt.Errorf("identifier exceeds %d", uint64(MaxIdentifier))
	}
	return nil
}
