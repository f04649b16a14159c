package walletx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/core-coin/walletx/internal/config"
	"github.com/core-coin/walletx/internal/ledger"
	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/internal/token"
	"github.com/core-coin/walletx/pkg/logger"
)

var (
	ErrNotWriter      = errors.New("Ledger is read-only on this instance")
	ErrMintDisabled   = errors.New("Minting is only available in development mode")
	ErrNotRunning     = errors.New("WalletX is not running")
	ErrAlreadyRunning = errors.New("WalletX is already running")
)

const (
	writerLockName = "ledger-writer"
	// notificationQueueSize bounds the events waiting for delivery.
	notificationQueueSize = 256
)

// TokenInfoProvider returns the funding token metadata, if known.
type TokenInfoProvider interface {
	Token() (*models.Token, bool)
}

// WalletX is the main struct for the WalletX application
// It owns the ledger, keeps it in sync with the repository
// and runs the background work around it
type WalletX struct {
	logger *logger.Logger
	config *config.Config

	repo        models.Repository
	token       *token.Memory
	chain       models.BlockchainService
	notificator models.NotificationService
	tokenInfo   TokenInfoProvider

	ledger  *ledger.Ledger
	hub     *Hub
	metrics *metrics

	instanceID string
	writer     atomic.Bool
	running    atomic.Bool

	custodyMu sync.RWMutex
	custody   *models.CustodyReport

	notifications chan *models.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWalletX creates a new WalletX instance. chain, notificator and
// tokenInfo are optional.
func NewWalletX(
	repo models.Repository,
	tok *token.Memory,
	chain models.BlockchainService,
	notificator models.NotificationService,
	tokenInfo TokenInfoProvider,
	registry prometheus.Registerer,
	logger *logger.Logger,
	config *config.Config,
) *WalletX {
	w := &WalletX{
		logger:        logger,
		config:        config,
		repo:          repo,
		token:         tok,
		chain:         chain,
		notificator:   notificator,
		tokenInfo:     tokenInfo,
		hub:           NewHub(logger.Named("hub")),
		metrics:       newMetrics(registry),
		instanceID:    uuid.NewString(),
		notifications: make(chan *models.Event, notificationQueueSize),
	}
	store := &fence{
		w:      w,
		writer: repo.Writer(models.Lease{Name: writerLockName, InstanceID: w.instanceID}),
	}
	tok.SetStore(store)
	w.ledger = ledger.New(tok, config.LedgerAddress,
		ledger.WithLogger(logger.Named("ledger")),
		ledger.WithJournal(store),
		ledger.WithMetrics(ledger.NewMetrics(registry)),
		ledger.WithEventHandler(w.dispatch),
	)
	return w
}

// Start restores the ledger from the repository, tries to become the writer
// and starts the background loops.
func (w *WalletX) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	if err := w.reload(w.ctx); err != nil {
		w.cancel()
		w.running.Store(false)
		return err
	}
	w.renewLease(w.ctx)
	w.Reconcile()

	w.wg.Add(3)
	go w.leaseLoop()
	go w.reconcileLoop()
	go w.notificationLoop()

	w.logger.Info("WalletX started", "instance", w.instanceID, "custody", w.config.LedgerAddress, "writer", w.writer.Load())
	return nil
}

// Stop stops background work and releases the writer lease
func (w *WalletX) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.cancel()
	w.wg.Wait()

	if w.writer.Swap(false) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.repo.ReleaseLock(ctx, writerLockName, w.instanceID); err != nil {
			w.logger.Error("Failed to release writer lease", "error", err)
		}
	}
	w.metrics.setWriter(false)
	w.hub.Close()
	w.logger.Info("WalletX stopped", "instance", w.instanceID)
}

// IsWriter reports whether this instance currently serves mutations.
func (w *WalletX) IsWriter() bool {
	return w.writer.Load()
}

// reload replaces the token and ledger state with what the repository holds.
func (w *WalletX) reload(ctx context.Context) error {
	accounts, allowances, err := w.repo.LoadTokenState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load token state: %w", err)
	}
	snapshot, err := w.repo.LoadLedger(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	w.token.Load(accounts, allowances)
	if err := w.ledger.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore ledger: %w", err)
	}
	return nil
}

func (w *WalletX) checkWriter() error {
	if !w.running.Load() {
		return ErrNotRunning
	}
	if !w.writer.Load() {
		return ErrNotWriter
	}
	return nil
}

// dispatch receives ledger events after commit. It never blocks the ledger.
func (w *WalletX) dispatch(event *models.Event) {
	w.hub.Publish(event)
	if w.notificator == nil {
		return
	}
	select {
	case w.notifications <- event:
	default:
		w.logger.Warn("Notification queue full, dropping event", "type", event.Type)
	}
}

func (w *WalletX) notificationLoop() {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.notifications:
			w.notificator.SendNotification(event)
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *WalletX) RegisterWallet(ctx context.Context, caller, name string, amount *big.Int) (*models.Wallet, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.RegisterWallet(ctx, caller, name, amount)
}

func (w *WalletX) GetWalletAdmin(caller string) (*models.Wallet, error) {
	return w.ledger.GetWalletAdmin(caller)
}

func (w *WalletX) GetAdminRole(address string) string {
	return w.ledger.GetAdminRole(address)
}

func (w *WalletX) ReimburseWallet(ctx context.Context, caller string, amount *big.Int) (*models.Wallet, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.ReimburseWallet(ctx, caller, amount)
}

func (w *WalletX) OnboardMember(ctx context.Context, caller, member, name string, amount *big.Int, identifier uint64) (*models.Member, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.OnboardMember(ctx, caller, member, name, amount, identifier)
}

func (w *WalletX) ReimburseMember(ctx context.Context, caller string, identifier uint64, amount *big.Int) ([]*models.Member, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.ReimburseMember(ctx, caller, identifier, amount)
}

func (w *WalletX) GetMembers(caller string) ([]*models.Member, error) {
	return w.ledger.GetMembers(caller)
}

func (w *WalletX) GetMember(caller string) *models.Member {
	return w.ledger.GetMember(caller)
}

func (w *WalletX) FreezeMember(ctx context.Context, caller, member string) (*models.Member, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.FreezeMember(ctx, caller, member)
}

func (w *WalletX) UnfreezeMember(ctx context.Context, caller, member string) (*models.Member, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.UnfreezeMember(ctx, caller, member)
}

func (w *WalletX) RemoveMember(ctx context.Context, caller, member string) error {
	if err := w.checkWriter(); err != nil {
		return err
	}
	return w.ledger.RemoveMember(ctx, caller, member)
}

func (w *WalletX) MemberWithdrawal(ctx context.Context, caller string, amount *big.Int, receiver string) (*models.Transaction, error) {
	if err := w.checkWriter(); err != nil {
		return nil, err
	}
	return w.ledger.MemberWithdrawal(ctx, caller, amount, receiver)
}

func (w *WalletX) GetMemberTransactions(member string) []*models.Transaction {
	return w.ledger.GetMemberTransactions(member)
}

// Approve lets the ledger pull up to amount from owner's token balance.
func (w *WalletX) Approve(ctx context.Context, owner string, amount *big.Int) error {
	if err := w.checkWriter(); err != nil {
		return err
	}
	return w.token.Approve(ctx, owner, w.config.LedgerAddress, amount)
}

func (w *WalletX) TokenBalance(owner string) (*big.Int, error) {
	return w.token.BalanceOf(owner)
}

// TokenAllowance returns what the ledger may still pull from owner.
func (w *WalletX) TokenAllowance(owner string) (*big.Int, error) {
	return w.token.Allowance(owner, w.config.LedgerAddress)
}

// ChainBalance returns owner's funding token balance on the blockchain. ok is
// false when no blockchain service is configured.
func (w *WalletX) ChainBalance(owner string) (balance *big.Int, ok bool, err error) {
	if w.chain == nil {
		return nil, false, nil
	}
	balance, err = w.chain.GetAddressTokenBalance(owner)
	return balance, true, err
}

// ChainAllowance returns what owner approved the ledger address for on the
// blockchain. ok is false when no blockchain service is configured.
func (w *WalletX) ChainAllowance(owner string) (allowance *big.Int, ok bool, err error) {
	if w.chain == nil {
		return nil, false, nil
	}
	allowance, err = w.chain.GetTokenAllowance(owner, w.config.LedgerAddress)
	return allowance, true, err
}

func (w *WalletX) Mint(ctx context.Context, to string, amount *big.Int) error {
	if !w.config.Development {
		return ErrMintDisabled
	}
	if err := w.checkWriter(); err != nil {
		return err
	}
	return w.token.Mint(ctx, to, amount)
}

func (w *WalletX) TokenInfo() (*models.Token, bool) {
	if w.tokenInfo == nil {
		return nil, false
	}
	return w.tokenInfo.Token()
}

func (w *WalletX) Subscribe() (<-chan *models.Event, func()) {
	return w.hub.Subscribe()
}
