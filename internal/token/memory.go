package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/logger"
)

var (
	ErrTransferAmountExceedsBalance = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance        = errors.New("insufficient allowance")
	ErrZeroAddress                  = errors.New("zero address")
	ErrInvalidAmount                = errors.New("invalid amount")
)

// Store persists token accounts touched by an operation.
type Store interface {
	SaveTokenState(ctx context.Context, accounts []*models.TokenAccount, allowances []*models.TokenAllowance) error
}

// Memory is an in-process fungible token with balances and allowances.
// Approve and Mint are persisted through the Store before they take effect.
// Ledger transfers are staged with Begin and persisted by the ledger journal.
type Memory struct {
	logger *logger.Logger

	mu         sync.Mutex
	store      Store
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
}

// NewMemory creates an empty token. store may be nil.
func NewMemory(log *logger.Logger, store Store) *Memory {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Memory{
		logger:     log,
		store:      store,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
	}
}

// SetStore replaces the store Approve and Mint write through.
func (m *Memory) SetStore(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

// Load replaces the token state with persisted accounts and allowances.
func (m *Memory) Load(accounts []*models.TokenAccount, allowances []*models.TokenAllowance) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances = make(map[string]*big.Int, len(accounts))
	m.allowances = make(map[string]map[string]*big.Int)
	for _, a := range accounts {
		m.balances[a.Address] = new(big.Int).Set(a.Balance)
	}
	for _, a := range allowances {
		m.setAllowance(a.Owner, a.Spender, new(big.Int).Set(a.Amount))
	}
}

func (m *Memory) BalanceOf(owner string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance(owner)), nil
}

func (m *Memory) Allowance(owner, spender string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.allowance(owner, spender)), nil
}

// Begin locks the token until the returned batch is committed or discarded.
func (m *Memory) Begin() models.TokenBatch {
	return m.begin()
}

// Approve sets the amount spender may move out of owner's balance.
func (m *Memory) Approve(ctx context.Context, owner, spender string, amount *big.Int) error {
	b := m.begin()
	defer b.Discard()

	if err := b.approve(owner, spender, amount); err != nil {
		return err
	}
	if err := m.apply(ctx, b); err != nil {
		return err
	}
	m.logger.Debug("Token approval", "owner", owner, "spender", spender, "amount", amount.String())
	return nil
}

// Mint credits amount to to.
func (m *Memory) Mint(ctx context.Context, to string, amount *big.Int) error {
	b := m.begin()
	defer b.Discard()

	if err := b.mint(to, amount); err != nil {
		return err
	}
	if err := m.apply(ctx, b); err != nil {
		return err
	}
	m.logger.Info("Tokens minted", "to", to, "amount", amount.String())
	return nil
}

// apply saves what b staged and commits it. The caller holds b open.
func (m *Memory) apply(ctx context.Context, b *Batch) error {
	if m.store != nil {
		accounts, allowances := b.Changes()
		if err := m.store.SaveTokenState(ctx, accounts, allowances); err != nil {
			return fmt.Errorf("failed to save token state: %w", err)
		}
	}
	b.Commit()
	return nil
}

func (m *Memory) balance(owner string) *big.Int {
	if b, ok := m.balances[owner]; ok {
		return b
	}
	return new(big.Int)
}

func (m *Memory) allowance(owner, spender string) *big.Int {
	if a, ok := m.allowances[owner][spender]; ok {
		return a
	}
	return new(big.Int)
}

func (m *Memory) setAllowance(owner, spender string, amount *big.Int) {
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[string]*big.Int)
	}
	m.allowances[owner][spender] = amount
}
