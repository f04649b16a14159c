package validation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validAddress = "cb270000000000000000000000000000000000000001"

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(validAddress))
	assert.NoError(t, ValidateAddress("0x"+validAddress))
	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("cb27"))
	assert.Error(t, ValidateAddress("zz270000000000000000000000000000000000000001"))
}

func TestValidateAndNormalizeAddress(t *testing.T) {
	addr, err := ValidateAndNormalizeAddress("0XCB270000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, validAddress, addr)
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount("1000")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amount.Int64())

	amount, err = ParseAmount(MaxUint256.String())
	require.NoError(t, err)
	assert.Equal(t, 0, amount.Cmp(MaxUint256))

	_, err = ParseAmount(new(big.Int).Add(MaxUint256, big.NewInt(1)).String())
	assert.Error(t, err)
	_, err = ParseAmount("-1")
	assert.Error(t, err)
	_, err = ParseAmount("1e18")
	assert.Error(t, err)
	_, err = ParseAmount("")
	assert.Error(t, err)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, validAddress, NormalizeAddress("0x"+validAddress))
	assert.Equal(t, validAddress, NormalizeAddress("CB270000000000000000000000000000000000000001"))
	assert.ErrorIs(t, ValidateAddress(""), ErrEmptyAddress)
}

func TestCheckIdentifier(t *testing.T) {
	assert.NoError(t, CheckIdentifier(0))
	assert.NoError(t, CheckIdentifier(MaxIdentifier))
	assert.Error(t, CheckIdentifier(MaxIdentifier+1))
	assert.Error(t, CheckIdentifier(^uint64(0)))
}
