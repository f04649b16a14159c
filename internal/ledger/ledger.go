package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/godruoyi/go-snowflake"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/logger"
	"github.com/core-coin/walletx/pkg/validation"
)

// Journal persists committed ledger changes.
type Journal interface {
	CommitLedgerChange(ctx context.Context, change *models.LedgerChange) error
}

// Ledger owns every wallet, member and transaction record and enforces the
// access rules and balance invariants on each call.
//
// All mutations are serialized by mu. Reads share it, so they never observe a
// half-applied mutation.
type Ledger struct {
	logger  *logger.Logger
	token   models.TokenService
	custody string
	journal Journal
	metrics *Metrics
	onEvent func(*models.Event)
	newID   func() uint64
	now     func() time.Time

	mu           sync.RWMutex
	wallets      map[string]*models.Wallet
	nextWalletID uint64
	// members is the arena of member records indexed by Seq. Removed members
	// leave a nil slot so Seq is never reused.
	members      []*models.Member
	memberIndex  map[string]uint64
	orgMembers   map[string][]uint64
	transactions map[string][]*models.Transaction
	withdrawn    *big.Int
}

type Option func(*Ledger)

func WithLogger(logger *logger.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithJournal makes every mutation commit to journal before it is applied.
// The token rows a mutation moves are part of the same change.
func WithJournal(journal Journal) Option {
	return func(l *Ledger) { l.journal = journal }
}

func WithMetrics(metrics *Metrics) Option {
	return func(l *Ledger) { l.metrics = metrics }
}

// WithEventHandler registers fn to receive events after each committed
// mutation. fn runs outside the ledger lock.
func WithEventHandler(fn func(*models.Event)) Option {
	return func(l *Ledger) { l.onEvent = fn }
}

func WithIDGenerator(fn func() uint64) Option {
	return func(l *Ledger) { l.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(l *Ledger) { l.now = fn }
}

// New creates an empty ledger that moves funds with token and keeps pulled
// funds under the custody identity.
func New(token models.TokenService, custody string, opts ...Option) *Ledger {
	l := &Ledger{
		token:   token,
		custody: custody,
		newID:   snowflake.ID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.NewNopLogger()
	}
	l.reset()
	return l
}

func (l *Ledger) reset() {
	l.wallets = make(map[string]*models.Wallet)
	l.nextWalletID = 1
	l.members = nil
	l.memberIndex = make(map[string]uint64)
	l.orgMembers = make(map[string][]uint64)
	l.transactions = make(map[string][]*models.Transaction)
	l.withdrawn = new(big.Int)
}

// Custody returns the identity holding the pulled funds.
func (l *Ledger) Custody() string {
	return l.custody
}

// Restore replaces the ledger state with snapshot.
func (l *Ledger) Restore(snapshot *models.LedgerSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()
	for _, w := range snapshot.Wallets {
		if _, exists := l.wallets[w.AdminAddress]; exists {
			return fmt.Errorf("duplicate wallet for admin %s", w.AdminAddress)
		}
		l.wallets[w.AdminAddress] = w.Clone()
		if w.WalletID >= l.nextWalletID {
			l.nextWalletID = w.WalletID + 1
		}
	}
	if snapshot.NextWalletID > l.nextWalletID {
		l.nextWalletID = snapshot.NextWalletID
	}

	arenaSize := snapshot.NextMemberSeq
	for _, m := range snapshot.Members {
		if m.Seq >= arenaSize {
			arenaSize = m.Seq + 1
		}
	}
	l.members = make([]*models.Member, arenaSize)
	for _, m := range snapshot.Members {
		if _, exists := l.memberIndex[m.MemberAddress]; exists {
			return fmt.Errorf("duplicate member %s", m.MemberAddress)
		}
		if _, ok := l.wallets[m.AdminAddress]; !ok {
			return fmt.Errorf("member %s references unknown admin %s", m.MemberAddress, m.AdminAddress)
		}
		l.insertMember(m.Clone())
	}

	for _, tx := range snapshot.Transactions {
		l.transactions[tx.MemberAddress] = append(l.transactions[tx.MemberAddress], tx.Clone())
		l.withdrawn.Add(l.withdrawn, tx.Amount)
	}

	l.metrics.setCounts(len(l.wallets), len(l.memberIndex))
	l.logger.Info("Ledger restored", "wallets", len(l.wallets), "members", len(l.memberIndex), "transactions", len(snapshot.Transactions))
	return nil
}

// Totals returns the sum of all wallet balances and the total amount
// withdrawn by members.
func (l *Ledger) Totals() (walletBalances *big.Int, withdrawn *big.Int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	walletBalances = new(big.Int)
	for _, w := range l.wallets {
		walletBalances.Add(walletBalances, w.WalletBalance)
	}
	return walletBalances, new(big.Int).Set(l.withdrawn)
}

// insertMember places m in the arena at m.Seq and indexes it. Callers hold mu.
func (l *Ledger) insertMember(m *models.Member) {
	for uint64(len(l.members)) <= m.Seq {
		l.members = append(l.members, nil)
	}
	l.members[m.Seq] = m
	l.memberIndex[m.MemberAddress] = m.Seq
	l.orgMembers[m.AdminAddress] = append(l.orgMembers[m.AdminAddress], m.Seq)
}

// deleteMember drops the member at seq from the index and its admin's list.
// Callers hold mu.
func (l *Ledger) deleteMember(seq uint64) {
	m := l.members[seq]
	if m == nil {
		return
	}
	l.members[seq] = nil
	delete(l.memberIndex, m.MemberAddress)
	list := l.orgMembers[m.AdminAddress]
	for i, s := range list {
		if s == seq {
			l.orgMembers[m.AdminAddress] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
}

// liveMember returns the member record for identity, or nil. Callers hold mu.
func (l *Ledger) liveMember(identity string) *models.Member {
	seq, ok := l.memberIndex[identity]
	if !ok {
		return nil
	}
	return l.members[seq]
}

// adminWallet returns the caller's wallet or ErrNotAdmin. Callers hold mu.
func (l *Ledger) adminWallet(caller string) (*models.Wallet, error) {
	w, ok := l.wallets[caller]
	if !ok || caller == "" {
		return nil, ErrNotAdmin
	}
	return w, nil
}

// pull stages a move of amount from payer into custody. It fails with
// ErrNoAllowance before any transfer is staged when the approval does not
// cover amount.
func (l *Ledger) pull(batch models.TokenBatch, payer string, amount *big.Int) error {
	if batch.Allowance(payer, l.custody).Cmp(amount) < 0 {
		return ErrNoAllowance
	}
	if err := batch.TransferFrom(l.custody, payer, l.custody, amount); err != nil {
		return fmt.Errorf("failed to pull funds: %w", err)
	}
	return nil
}

// commit writes change, together with the token rows staged in batch, to the
// journal and then applies batch. batch may be nil.
func (l *Ledger) commit(ctx context.Context, change *models.LedgerChange, batch models.TokenBatch) error {
	if batch != nil {
		change.TokenAccounts, change.TokenAllowances = batch.Changes()
	}
	if l.journal != nil {
		if err := l.journal.CommitLedgerChange(ctx, change); err != nil {
			return fmt.Errorf("failed to commit ledger change: %w", err)
		}
	}
	if batch != nil {
		batch.Commit()
	}
	return nil
}

func (l *Ledger) publish(event *models.Event) {
	if event == nil || l.onEvent == nil {
		return
	}
	l.onEvent(event)
}

func (l *Ledger) observe(operation string, err *error) {
	l.metrics.observe(operation, *err)
	if *err != nil {
		l.logger.Debug("Ledger operation rejected", "operation", operation, "error", *err)
	}
}

func checkAmount(amount *big.Int) error {
	if err := validation.CheckAmount(amount); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	}
	return nil
}

// checkedAdd returns a+b, failing when the sum leaves the uint256 range.
func checkedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(validation.MaxUint256) > 0 {
		return nil, ErrOverflow
	}
	return sum, nil
}
