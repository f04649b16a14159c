package token

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/validation"
)

type allowanceKey struct {
	owner   string
	spender string
}

// Batch is a set of token movements staged on top of a Memory. It holds the
// Memory lock from Begin until Commit or Discard.
type Batch struct {
	m          *Memory
	balances   map[string]*big.Int
	allowances map[allowanceKey]*big.Int
	closed     bool
}

func (m *Memory) begin() *Batch {
	m.mu.Lock()
	return &Batch{
		m:          m,
		balances:   make(map[string]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (b *Batch) balance(owner string) *big.Int {
	if v, ok := b.balances[owner]; ok {
		return v
	}
	return b.m.balance(owner)
}

// Allowance returns the staged allowance of owner to spender.
func (b *Batch) Allowance(owner, spender string) *big.Int {
	if v, ok := b.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Set(b.m.allowance(owner, spender))
}

// Transfer stages a move of amount from from to to.
func (b *Batch) Transfer(from, to string, amount *big.Int) error {
	if from == "" || to == "" {
		return ErrZeroAddress
	}
	if err := validation.CheckAmount(amount); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	}
	fromBalance := b.balance(from)
	if fromBalance.Cmp(amount) < 0 {
		return ErrTransferAmountExceedsBalance
	}
	if from == to {
		return nil
	}
	toBalance := new(big.Int).Add(b.balance(to), amount)
	if toBalance.Cmp(validation.MaxUint256) > 0 {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	b.balances[from] = new(big.Int).Sub(fromBalance, amount)
	b.balances[to] = toBalance
	return nil
}

// TransferFrom stages a move of amount from from to to, spending spender's
// allowance.
func (b *Batch) TransferFrom(spender, from, to string, amount *big.Int) error {
	if err := validation.CheckAmount(amount); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	}
	allowance := b.Allowance(from, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := b.Transfer(from, to, amount); err != nil {
		return err
	}
	b.allowances[allowanceKey{from, spender}] = allowance.Sub(allowance, amount)
	return nil
}

func (b *Batch) approve(owner, spender string, amount *big.Int) error {
	if owner == "" || spender == "" {
		return ErrZeroAddress
	}
	if err := validation.CheckAmount(amount); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	}
	b.allowances[allowanceKey{owner, spender}] = new(big.Int).Set(amount)
	return nil
}

func (b *Batch) mint(to string, amount *big.Int) error {
	if to == "" {
		return ErrZeroAddress
	}
	if err := validation.CheckAmount(amount); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	}
	balance := new(big.Int).Add(b.balance(to), amount)
	if balance.Cmp(validation.MaxUint256) > 0 {
		return fmt.Errorf("%w: balance overflow", ErrInvalidAmount)
	}
	b.balances[to] = balance
	return nil
}

// Changes returns the staged rows ordered by address.
func (b *Batch) Changes() ([]*models.TokenAccount, []*models.TokenAllowance) {
	accounts := make([]*models.TokenAccount, 0, len(b.balances))
	for addr, balance := range b.balances {
		accounts = append(accounts, &models.TokenAccount{Address: addr, Balance: new(big.Int).Set(balance)})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Address < accounts[j].Address })

	allowances := make([]*models.TokenAllowance, 0, len(b.allowances))
	for key, amount := range b.allowances {
		allowances = append(allowances, &models.TokenAllowance{Owner: key.owner, Spender: key.spender, Amount: new(big.Int).Set(amount)})
	}
	sort.Slice(allowances, func(i, j int) bool {
		if allowances[i].Owner != allowances[j].Owner {
			return allowances[i].Owner < allowances[j].Owner
		}
		return allowances[i].Spender < allowances[j].Spender
	})
	return accounts, allowances
}

// Commit applies the staged movements and releases the token.
func (b *Batch) Commit() {
	if b.closed {
		return
	}
	for addr, balance := range b.balances {
		b.m.balances[addr] = balance
	}
	for key, amount := range b.allowances {
		b.m.setAllowance(key.owner, key.spender, amount)
	}
	b.close()
}

func (b *Batch) Discard() {
	if b.closed {
		return
	}
	b.close()
}

func (b *Batch) close() {
	b.closed = true
	b.m.mu.Unlock()
}
