package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/internal/token"
	"github.com/core-coin/walletx/pkg/validation"
)

const (
	custody = "cb00000000000000000000000000000000000000c0de"
	admin   = "cb11000000000000000000000000000000000000a001"
	admin2  = "cb11000000000000000000000000000000000000a002"
	member  = "cb22000000000000000000000000000000000000b001"
	other   = "cb33000000000000000000000000000000000000c001"
	shop    = "cb44000000000000000000000000000000000000d001"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func assertAmount(t *testing.T, expected, actual *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, actual, msgAndArgs...)
	assert.Equal(t, expected.String(), actual.String(), msgAndArgs...)
}

// assertSameMember checks that two member records report identical fields.
func assertSameMember(t *testing.T, expected, actual *models.Member) {
	t.Helper()
	assert.Equal(t, expected.MemberAddress, actual.MemberAddress)
	assert.Equal(t, expected.AdminAddress, actual.AdminAddress)
	assert.Equal(t, expected.OrganizationName, actual.OrganizationName)
	assert.Equal(t, expected.Name, actual.Name)
	assert.Equal(t, expected.Active, actual.Active)
	assert.Equal(t, expected.Frozen, actual.Frozen)
	assertAmount(t, expected.SpendLimit, actual.SpendLimit)
	assert.Equal(t, expected.MemberIdentifier, actual.MemberIdentifier)
	assert.Equal(t, expected.Role, actual.Role)
}

type fixture struct {
	ctx    context.Context
	token  *token.Memory
	ledger *Ledger
	events []*models.Event
	mu     sync.Mutex
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), token: token.NewMemory(nil, nil)}
	opts = append([]Option{WithEventHandler(func(e *models.Event) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	})}, opts...)
	f.ledger = New(f.token, custody, opts...)
	for _, who := range []string{admin, admin2, member, other} {
		require.NoError(t, f.token.Mint(f.ctx, who, ether(100000)))
	}
	return f
}

func (f *fixture) approve(t *testing.T, owner string, amount *big.Int) {
	t.Helper()
	require.NoError(t, f.token.Approve(f.ctx, owner, custody, amount))
}

func (f *fixture) register(t *testing.T, who, name string, amount *big.Int) *models.Wallet {
	t.Helper()
	f.approve(t, who, amount)
	w, err := f.ledger.RegisterWallet(f.ctx, who, name, amount)
	require.NoError(t, err)
	return w
}

func (f *fixture) balanceOf(t *testing.T, who string) *big.Int {
	t.Helper()
	b, err := f.token.BalanceOf(who)
	require.NoError(t, err)
	return b
}

func (f *fixture) eventTypes() []models.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]models.EventType, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

func TestRegisterWallet(t *testing.T) {
	f := newFixture(t)

	f.register(t, admin, "Test Organization", ether(1000))

	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assert.Equal(t, admin, wallet.AdminAddress)
	assert.Equal(t, "Test Organization", wallet.WalletName)
	assert.True(t, wallet.Active)
	assert.Equal(t, uint64(1), wallet.WalletID)
	assertAmount(t, ether(1000), wallet.WalletBalance)
	assert.Equal(t, models.RoleAdmin, wallet.Role)

	assertAmount(t, ether(1000), f.balanceOf(t, custody))
	assertAmount(t, ether(99000), f.balanceOf(t, admin))
	assert.Equal(t, []models.EventType{models.EventWalletRegistered}, f.eventTypes())
}

func TestRegisterWalletTwiceFails(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(1000))

	for _, amount := range []*big.Int{ether(1000), big.NewInt(0), ether(5)} {
		f.approve(t, admin, amount)
		_, err := f.ledger.RegisterWallet(f.ctx, admin, "Another Wallet", amount)
		assert.ErrorIs(t, err, ErrMultipleWallets)
		assert.Equal(t, "Cannot create multiple wallets with one wallet address", err.Error())
	}

	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assert.Equal(t, "Test Organization", wallet.WalletName)
	assertAmount(t, ether(1000), f.balanceOf(t, custody))
}

func TestRegisterWalletAllowanceGating(t *testing.T) {
	f := newFixture(t)

	f.approve(t, admin, ether(500))
	_, err := f.ledger.RegisterWallet(f.ctx, admin, "Test Organization", ether(1000))
	assert.ErrorIs(t, err, ErrNoAllowance)
	assert.Equal(t, "No allowance to spend funds at the moment", err.Error())
	assert.Equal(t, "", f.ledger.GetAdminRole(admin))
	assertAmount(t, big.NewInt(0), f.balanceOf(t, custody))

	f.approve(t, admin, ether(1000))
	_, err = f.ledger.RegisterWallet(f.ctx, admin, "Test Organization", ether(1000))
	require.NoError(t, err)
	assertAmount(t, ether(1000), f.balanceOf(t, custody))

	allowance, err := f.token.Allowance(admin, custody)
	require.NoError(t, err)
	assertAmount(t, big.NewInt(0), allowance)
}

func TestWalletIDsAreSequential(t *testing.T) {
	f := newFixture(t)
	admins := []string{admin, admin2, member, other}

	for i, who := range admins {
		if i == 1 {
			// A failed registration does not consume an id.
			_, err := f.ledger.RegisterWallet(f.ctx, who, "no allowance", ether(1))
			require.ErrorIs(t, err, ErrNoAllowance)
		}
		w := f.register(t, who, "org", ether(1))
		assert.Equal(t, uint64(i+1), w.WalletID)
	}
}

func TestGetAdminRole(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	assert.Equal(t, "admin", f.ledger.GetAdminRole(admin))
	assert.Equal(t, "", f.ledger.GetAdminRole(other))
	assert.Equal(t, "", f.ledger.GetAdminRole(member))
	assert.Equal(t, "", f.ledger.GetAdminRole(""))
}

func TestReimburseWallet(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))

	f.approve(t, admin, ether(2000))
	_, err := f.ledger.ReimburseWallet(f.ctx, admin, ether(5000))
	assert.ErrorIs(t, err, ErrNoAllowance)

	_, err = f.ledger.ReimburseWallet(f.ctx, admin, ether(2000))
	require.NoError(t, err)
	f.approve(t, admin, ether(3000))
	wallet, err := f.ledger.ReimburseWallet(f.ctx, admin, ether(3000))
	require.NoError(t, err)

	assertAmount(t, ether(15000), wallet.WalletBalance)
	assertAmount(t, ether(15000), f.balanceOf(t, custody))
}

func TestReimburseWalletIsOrderIndependent(t *testing.T) {
	amounts := []*big.Int{ether(7), ether(1), ether(300), big.NewInt(0), ether(42)}
	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}

	for _, order := range orders {
		f := newFixture(t)
		f.register(t, admin, "org", ether(10))
		for _, i := range order {
			f.approve(t, admin, amounts[i])
			_, err := f.ledger.ReimburseWallet(f.ctx, admin, amounts[i])
			require.NoError(t, err)
		}
		wallet, err := f.ledger.GetWalletAdmin(admin)
		require.NoError(t, err)
		assertAmount(t, ether(360), wallet.WalletBalance)
	}
}

func TestAdminOnlyOperations(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	f.approve(t, other, ether(5000))

	_, err := f.ledger.GetWalletAdmin(other)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.ledger.GetMembers(other)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.ledger.OnboardMember(f.ctx, other, member, "John Doe", ether(1000), 1)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.ledger.ReimburseWallet(f.ctx, other, ether(5000))
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.ledger.ReimburseMember(f.ctx, other, 1, ether(500))
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.ledger.FreezeMember(f.ctx, other, member)
	assert.ErrorIs(t, err, ErrNotAdmin)
	_, err = f.ledger.UnfreezeMember(f.ctx, other, member)
	assert.ErrorIs(t, err, ErrNotAdmin)
	err = f.ledger.RemoveMember(f.ctx, other, member)
	assert.ErrorIs(t, err, ErrNotAdmin)
	assert.Equal(t, "Not a wallet admin account", ErrNotAdmin.Error())

	// The other identity's approval was never spent.
	allowance, err := f.token.Allowance(other, custody)
	require.NoError(t, err)
	assertAmount(t, ether(5000), allowance)
}

func TestOnboardMember(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))

	onboarded, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	got := f.ledger.GetMember(member)
	assertSameMember(t, onboarded, got)
	assert.Equal(t, member, got.MemberAddress)
	assert.Equal(t, admin, got.AdminAddress)
	assert.Equal(t, "Test Organization", got.OrganizationName)
	assert.Equal(t, "John Doe", got.Name)
	assert.True(t, got.Active)
	assert.False(t, got.Frozen)
	assertAmount(t, ether(1000), got.SpendLimit)
	assert.Equal(t, uint64(1), got.MemberIdentifier)
	assert.Equal(t, models.RoleMember, got.Role)

	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assertSameMember(t, got, members[0])

	// Onboarding does not draw down the wallet balance.
	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(10000), wallet.WalletBalance)
}

func TestOnboardMemberInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))

	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(20000), 1)
	require.Error(t, err)
	assert.True(t, IsInsufficientFunds(err))

	var insufficient *InsufficientFundsError
	require.True(t, errors.As(err, &insufficient))
	assertAmount(t, ether(10000), insufficient.Available)
	assertAmount(t, ether(20000), insufficient.Required)

	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.False(t, f.ledger.GetMember(member).Active)

	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(10000), wallet.WalletBalance)
	assertAmount(t, ether(10000), f.balanceOf(t, custody))
	assertAmount(t, ether(90000), f.balanceOf(t, admin))
}

func TestOnboardMemberRejectsDuplicateIdentity(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Org A", ether(10000))
	f.register(t, admin2, "Org B", ether(10000))

	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)
	_, err = f.ledger.OnboardMember(f.ctx, admin2, member, "John Doe", ether(1000), 1)
	assert.ErrorIs(t, err, ErrMemberExists)
	_, err = f.ledger.OnboardMember(f.ctx, admin, "", "Nobody", ether(1), 1)
	assert.ErrorIs(t, err, ErrInvalidMember)

	members, err := f.ledger.GetMembers(admin2)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestGetMembersKeepsOnboardingOrder(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))

	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)

	_, err = f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)
	_, err = f.ledger.OnboardMember(f.ctx, admin, other, "Jane Smith", ether(2000), 2)
	require.NoError(t, err)

	members, err = f.ledger.GetMembers(admin)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "John Doe", members[0].Name)
	assert.Equal(t, member, members[0].MemberAddress)
	assert.Equal(t, "Jane Smith", members[1].Name)
	assert.Equal(t, other, members[1].MemberAddress)
}

func TestGetMemberDefaultsForNonMember(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))

	got := f.ledger.GetMember(other)
	assert.Equal(t, "", got.MemberAddress)
	assert.Equal(t, "", got.AdminAddress)
	assert.Equal(t, "", got.OrganizationName)
	assert.Equal(t, "", got.Name)
	assert.False(t, got.Active)
	assert.False(t, got.Frozen)
	assertAmount(t, big.NewInt(0), got.SpendLimit)
	assert.Equal(t, uint64(0), got.MemberIdentifier)
	assert.Equal(t, "", got.Role)
}

func TestReimburseMember(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	updated, err := f.ledger.ReimburseMember(f.ctx, admin, 1, ether(200))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	_, err = f.ledger.ReimburseMember(f.ctx, admin, 1, ether(300))
	require.NoError(t, err)

	got := f.ledger.GetMember(member)
	assertAmount(t, ether(1500), got.SpendLimit)

	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assertSameMember(t, got, members[0])

	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(10000), wallet.WalletBalance)
}

func TestReimburseMemberInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)
	before := f.ledger.GetMember(member)

	for _, amount := range []*big.Int{ether(20000), validation.MaxUint256} {
		_, err = f.ledger.ReimburseMember(f.ctx, admin, 1, amount)
		assert.True(t, IsInsufficientFunds(err), "amount %s", amount)
		assert.NotErrorIs(t, err, ErrOverflow)
	}

	assertSameMember(t, before, f.ledger.GetMember(member))
	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(10000), wallet.WalletBalance)
}

func TestReimburseMemberUnknownIdentifierIsNoop(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)
	eventsBefore := len(f.eventTypes())

	updated, err := f.ledger.ReimburseMember(f.ctx, admin, 999, ether(500))
	require.NoError(t, err)
	assert.Empty(t, updated)

	assertAmount(t, ether(1000), f.ledger.GetMember(member).SpendLimit)
	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(10000), wallet.WalletBalance)
	assert.Len(t, f.eventTypes(), eventsBefore)
}

func TestReimburseMemberZeroAmount(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	_, err = f.ledger.ReimburseMember(f.ctx, admin, 1, big.NewInt(0))
	require.NoError(t, err)
	assertAmount(t, ether(1000), f.ledger.GetMember(member).SpendLimit)
}

func TestReimburseMemberSharedIdentifier(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	f.register(t, admin2, "Other Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 7)
	require.NoError(t, err)
	_, err = f.ledger.OnboardMember(f.ctx, admin, other, "Jane Smith", ether(2000), 7)
	require.NoError(t, err)
	// Same identifier under a different admin is not touched.
	_, err = f.ledger.OnboardMember(f.ctx, admin2, shop, "Shop", ether(10), 7)
	require.NoError(t, err)

	updated, err := f.ledger.ReimburseMember(f.ctx, admin, 7, ether(100))
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	assertAmount(t, ether(1100), f.ledger.GetMember(member).SpendLimit)
	assertAmount(t, ether(2100), f.ledger.GetMember(other).SpendLimit)
	assertAmount(t, ether(10), f.ledger.GetMember(shop).SpendLimit)

	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assertSameMember(t, f.ledger.GetMember(member), members[0])
	assertSameMember(t, f.ledger.GetMember(other), members[1])
}

func TestReimburseMemberOverflow(t *testing.T) {
	f := newFixture(t)
	huge := new(big.Int).Sub(validation.MaxUint256, big.NewInt(10))
	require.NoError(t, f.token.Mint(f.ctx, shop, huge))
	f.register(t, shop, "Huge", huge)
	_, err := f.ledger.OnboardMember(f.ctx, shop, member, "John Doe", huge, 1)
	require.NoError(t, err)

	_, err = f.ledger.ReimburseMember(f.ctx, shop, 1, big.NewInt(11))
	assert.ErrorIs(t, err, ErrOverflow)
	assertAmount(t, huge, f.ledger.GetMember(member).SpendLimit)
}

func TestFreezeAndUnfreezeMember(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	frozen, err := f.ledger.FreezeMember(f.ctx, admin, member)
	require.NoError(t, err)
	assert.True(t, frozen.Frozen)
	assert.True(t, frozen.Active)

	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	assertSameMember(t, f.ledger.GetMember(member), members[0])
	assert.True(t, members[0].Frozen)

	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(1), shop)
	assert.ErrorIs(t, err, ErrMemberFrozen)

	// Reimbursing a frozen member still raises the limit.
	_, err = f.ledger.ReimburseMember(f.ctx, admin, 1, ether(5))
	require.NoError(t, err)

	again, err := f.ledger.FreezeMember(f.ctx, admin, member)
	require.NoError(t, err)
	assert.True(t, again.Frozen)

	unfrozen, err := f.ledger.UnfreezeMember(f.ctx, admin, member)
	require.NoError(t, err)
	assert.False(t, unfrozen.Frozen)
	assertAmount(t, ether(1005), unfrozen.SpendLimit)

	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(1), shop)
	require.NoError(t, err)

	assert.Equal(t, []models.EventType{
		models.EventWalletRegistered,
		models.EventMemberOnboarded,
		models.EventMemberFrozen,
		models.EventMemberReimbursed,
		models.EventMemberUnfrozen,
		models.EventMemberWithdrawal,
	}, f.eventTypes())
}

func TestMemberOperationsRequireOwnership(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Org A", ether(10000))
	f.register(t, admin2, "Org B", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	_, err = f.ledger.FreezeMember(f.ctx, admin2, member)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	err = f.ledger.RemoveMember(f.ctx, admin2, member)
	assert.ErrorIs(t, err, ErrMemberNotFound)
	_, err = f.ledger.UnfreezeMember(f.ctx, admin, other)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	assert.True(t, f.ledger.GetMember(member).Active)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)
	_, err = f.ledger.OnboardMember(f.ctx, admin, other, "Jane Smith", ether(1000), 1)
	require.NoError(t, err)
	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(10), shop)
	require.NoError(t, err)

	require.NoError(t, f.ledger.RemoveMember(f.ctx, admin, member))

	assert.False(t, f.ledger.GetMember(member).Active)
	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, other, members[0].MemberAddress)

	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(1), shop)
	assert.ErrorIs(t, err, ErrNotMember)
	err = f.ledger.RemoveMember(f.ctx, admin, member)
	assert.ErrorIs(t, err, ErrMemberNotFound)

	// Removed members are skipped by identifier fan-out.
	updated, err := f.ledger.ReimburseMember(f.ctx, admin, 1, ether(1))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, other, updated[0].MemberAddress)

	// The transaction log survives removal.
	assert.Len(t, f.ledger.GetMemberTransactions(member), 1)

	// The identity can be onboarded again and goes to the end of the list.
	_, err = f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(50), 3)
	require.NoError(t, err)
	members, err = f.ledger.GetMembers(admin)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, member, members[1].MemberAddress)
	assertAmount(t, ether(50), members[1].SpendLimit)
	assertSameMember(t, f.ledger.GetMember(member), members[1])
}

func TestMemberWithdrawal(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	tx, err := f.ledger.MemberWithdrawal(f.ctx, member, ether(300), shop)
	require.NoError(t, err)
	assertAmount(t, ether(300), tx.Amount)
	assert.Equal(t, shop, tx.Receiver)
	assert.NotZero(t, tx.ID)

	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(200), other)
	require.NoError(t, err)

	got := f.ledger.GetMember(member)
	assertAmount(t, ether(500), got.SpendLimit)
	members, err := f.ledger.GetMembers(admin)
	require.NoError(t, err)
	assertSameMember(t, got, members[0])

	assertAmount(t, ether(300), f.balanceOf(t, shop))
	assertAmount(t, ether(9500), f.balanceOf(t, custody))

	txs := f.ledger.GetMemberTransactions(member)
	require.Len(t, txs, 2)
	assertAmount(t, ether(300), txs[0].Amount)
	assert.Equal(t, shop, txs[0].Receiver)
	assertAmount(t, ether(200), txs[1].Amount)
	assert.Equal(t, other, txs[1].Receiver)
	assert.NotEqual(t, txs[0].ID, txs[1].ID)

	// The wallet balance is not drawn down by withdrawals.
	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(10000), wallet.WalletBalance)

	balances, withdrawn := f.ledger.Totals()
	assertAmount(t, ether(10000), balances)
	assertAmount(t, ether(500), withdrawn)
}

func TestMemberWithdrawalGuards(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	_, err = f.ledger.MemberWithdrawal(f.ctx, other, ether(1), shop)
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = f.ledger.MemberWithdrawal(f.ctx, admin, ether(1), shop)
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = f.ledger.MemberWithdrawal(f.ctx, member, big.NewInt(0), shop)
	assert.ErrorIs(t, err, ErrZeroAmount)
	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(1), "")
	assert.ErrorIs(t, err, ErrInvalidReceiver)
	_, err = f.ledger.MemberWithdrawal(f.ctx, member, big.NewInt(-5), shop)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(1001), shop)
	assert.True(t, IsInsufficientFunds(err))

	assertAmount(t, ether(1000), f.ledger.GetMember(member).SpendLimit)
	assert.Empty(t, f.ledger.GetMemberTransactions(member))
	assertAmount(t, big.NewInt(0), f.balanceOf(t, shop))
}

func TestMemberWithdrawalCustodyShortfall(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10))
	f.register(t, admin2, "Other", ether(10))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(10), 1)
	require.NoError(t, err)
	_, err = f.ledger.ReimburseMember(f.ctx, admin, 1, ether(10))
	require.NoError(t, err)
	_, err = f.ledger.MemberWithdrawal(f.ctx, member, ether(20), shop)
	require.NoError(t, err)

	// Custody is empty; the spend limit alone cannot move tokens.
	_, err = f.ledger.OnboardMember(f.ctx, admin2, other, "Jane", ether(10), 1)
	require.NoError(t, err)
	_, err = f.ledger.MemberWithdrawal(f.ctx, other, ether(1), shop)
	assert.ErrorIs(t, err, token.ErrTransferAmountExceedsBalance)
	assertAmount(t, ether(10), f.ledger.GetMember(other).SpendLimit)
	assert.Empty(t, f.ledger.GetMemberTransactions(other))
}

func TestGetMemberTransactionsUnknownIdentity(t *testing.T) {
	f := newFixture(t)
	txs := f.ledger.GetMemberTransactions(other)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestConcurrentReimbursements(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(1))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", big.NewInt(0), 1)
	require.NoError(t, err)
	f.approve(t, admin, ether(1000))

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.ledger.ReimburseWallet(f.ctx, admin, ether(2))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.ledger.ReimburseMember(f.ctx, admin, 1, big.NewInt(3))
			assert.NoError(t, err)
			got := f.ledger.GetMember(member)
			members, err := f.ledger.GetMembers(admin)
			assert.NoError(t, err)
			assert.True(t, got.SpendLimit.Cmp(members[0].SpendLimit) <= 0)
		}()
	}
	wg.Wait()

	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assertAmount(t, ether(101), wallet.WalletBalance)
	assertAmount(t, big.NewInt(150), f.ledger.GetMember(member).SpendLimit)
	assertAmount(t, ether(101), f.balanceOf(t, custody))
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.register(t, admin, "Test Organization", ether(10000))

	wallet, err := f.ledger.GetWalletAdmin(admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), wallet.WalletID)
	assert.Equal(t, "Test Organization", wallet.WalletName)
	assertAmount(t, ether(10000), wallet.WalletBalance)
	assert.True(t, wallet.Active)
	assert.Equal(t, "admin", wallet.Role)

	_, err = f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(1000), 1)
	require.NoError(t, err)

	got := f.ledger.GetMember(member)
	assert.Equal(t, "John Doe", got.Name)
	assertAmount(t, ether(1000), got.SpendLimit)
	assert.Equal(t, uint64(1), got.MemberIdentifier)
	assert.True(t, got.Active)
	assert.Equal(t, "member", got.Role)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	f := newFixture(t, WithMetrics(NewMetrics(registry)))
	f.register(t, admin, "Test Organization", ether(10000))
	_, err := f.ledger.OnboardMember(f.ctx, admin, member, "John Doe", ether(20000), 1)
	require.Error(t, err)
	_, err = f.ledger.ReimburseWallet(f.ctx, other, ether(1))
	require.Error(t, err)

	ops := f.ledger.metrics.operations
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("register_wallet", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("onboard_member", "insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("reimburse_wallet", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.ledger.metrics.wallets))
	assert.Nil(t, NewMetrics(nil))
}
