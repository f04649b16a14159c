package ledger

import (
	"context"
	"math/big"

	"github.com/core-coin/walletx/internal/models"
)

// OnboardMember adds member to the caller's organization with a spend limit
// of fund. The wallet balance must cover fund but is not decreased by it.
func (l *Ledger) OnboardMember(ctx context.Context, caller, member, name string, fund *big.Int, identifier uint64) (onboarded *models.Member, err error) {
	defer l.observe("onboard_member", &err)

	l.mu.Lock()
	onboarded, event, err := l.onboardMember(ctx, caller, member, name, fund, identifier)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(event)
	return onboarded, nil
}

func (l *Ledger) onboardMember(ctx context.Context, caller, member, name string, fund *big.Int, identifier uint64) (*models.Member, *models.Event, error) {
	wallet, err := l.adminWallet(caller)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAmount(fund); err != nil {
		return nil, nil, err
	}
	if member == "" {
		return nil, nil, ErrInvalidMember
	}
	if l.liveMember(member) != nil {
		return nil, nil, ErrMemberExists
	}
	if wallet.WalletBalance.Cmp(fund) < 0 {
		return nil, nil, insufficientFunds(wallet.WalletBalance, fund)
	}

	record := &models.Member{
		Seq:              uint64(len(l.members)),
		MemberAddress:    member,
		AdminAddress:     caller,
		OrganizationName: wallet.WalletName,
		Name:             name,
		Active:           true,
		Frozen:           false,
		SpendLimit:       new(big.Int).Set(fund),
		MemberIdentifier: identifier,
		Role:             models.RoleMember,
	}

	change := &models.LedgerChange{Members: []*models.Member{record}}
	if err := l.commit(ctx, change, nil); err != nil {
		return nil, nil, err
	}

	l.insertMember(record)
	l.metrics.setCounts(len(l.wallets), len(l.memberIndex))
	l.logger.Info("Member onboarded", "admin", caller, "member", member, "identifier", identifier, "spend_limit", fund.String())

	return record.Clone(), &models.Event{
		Type:       models.EventMemberOnboarded,
		Admin:      caller,
		Member:     member,
		WalletID:   wallet.WalletID,
		Identifier: identifier,
		Amount:     new(big.Int).Set(fund),
		Timestamp:  l.now().Unix(),
	}, nil
}

// ReimburseMember raises the spend limit of every member of the caller's
// organization tagged with identifier by amount. No matching member is not an
// error; nothing changes and an empty list is returned.
func (l *Ledger) ReimburseMember(ctx context.Context, caller string, identifier uint64, amount *big.Int) (updated []*models.Member, err error) {
	defer l.observe("reimburse_member", &err)

	l.mu.Lock()
	updated, event, err := l.reimburseMember(ctx, caller, identifier, amount)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(event)
	return updated, nil
}

func (l *Ledger) reimburseMember(ctx context.Context, caller string, identifier uint64, amount *big.Int) ([]*models.Member, *models.Event, error) {
	wallet, err := l.adminWallet(caller)
	if err != nil {
		return nil, nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, nil, err
	}
	// The balance guard runs before any addition so an oversized amount is
	// reported as insufficient funds rather than an overflow.
	if wallet.WalletBalance.Cmp(amount) < 0 {
		return nil, nil, insufficientFunds(wallet.WalletBalance, amount)
	}

	var updated []*models.Member
	for _, seq := range l.orgMembers[caller] {
		current := l.members[seq]
		if current.MemberIdentifier != identifier {
			continue
		}
		limit, err := checkedAdd(current.SpendLimit, amount)
		if err != nil {
			return nil, nil, err
		}
		next := current.Clone()
		next.SpendLimit = limit
		updated = append(updated, next)
	}
	if len(updated) == 0 {
		l.logger.Debug("No member matches identifier", "admin", caller, "identifier", identifier)
		return []*models.Member{}, nil, nil
	}

	change := &models.LedgerChange{Members: updated}
	if err := l.commit(ctx, change, nil); err != nil {
		return nil, nil, err
	}

	result := make([]*models.Member, 0, len(updated))
	for _, m := range updated {
		l.members[m.Seq] = m
		result = append(result, m.Clone())
	}
	l.logger.Info("Members reimbursed", "admin", caller, "identifier", identifier, "amount", amount.String(), "count", len(updated))

	return result, &models.Event{
		Type:       models.EventMemberReimbursed,
		Admin:      caller,
		WalletID:   wallet.WalletID,
		Identifier: identifier,
		Amount:     new(big.Int).Set(amount),
		Timestamp:  l.now().Unix(),
	}, nil
}

// GetMembers returns the caller's members in onboarding order.
func (l *Ledger) GetMembers(caller string) ([]*models.Member, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.adminWallet(caller); err != nil {
		return nil, err
	}
	seqs := l.orgMembers[caller]
	members := make([]*models.Member, 0, len(seqs))
	for _, seq := range seqs {
		members = append(members, l.members[seq].Clone())
	}
	return members, nil
}

// GetMember returns the member record of caller. An identity that is not a
// member gets a zero-valued record.
func (l *Ledger) GetMember(caller string) *models.Member {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if m := l.liveMember(caller); m != nil {
		return m.Clone()
	}
	return models.EmptyMember()
}

// FreezeMember blocks withdrawals by member. Freezing a frozen member is a no-op.
func (l *Ledger) FreezeMember(ctx context.Context, caller, member string) (*models.Member, error) {
	return l.setFrozen(ctx, "freeze_member", caller, member, true)
}

// UnfreezeMember lifts a freeze. Unfreezing a member that is not frozen is a no-op.
func (l *Ledger) UnfreezeMember(ctx context.Context, caller, member string) (*models.Member, error) {
	return l.setFrozen(ctx, "unfreeze_member", caller, member, false)
}

func (l *Ledger) setFrozen(ctx context.Context, operation, caller, member string, frozen bool) (updated *models.Member, err error) {
	defer l.observe(operation, &err)

	l.mu.Lock()
	updated, event, err := l.setFrozenLocked(ctx, caller, member, frozen)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(event)
	return updated, nil
}

func (l *Ledger) setFrozenLocked(ctx context.Context, caller, member string, frozen bool) (*models.Member, *models.Event, error) {
	current, err := l.ownedMember(caller, member)
	if err != nil {
		return nil, nil, err
	}
	if current.Frozen == frozen {
		return current.Clone(), nil, nil
	}

	next := current.Clone()
	next.Frozen = frozen
	change := &models.LedgerChange{Members: []*models.Member{next}}
	if err := l.commit(ctx, change, nil); err != nil {
		return nil, nil, err
	}
	l.members[next.Seq] = next

	eventType := models.EventMemberUnfrozen
	if frozen {
		eventType = models.EventMemberFrozen
	}
	l.logger.Info("Member freeze state changed", "admin", caller, "member", member, "frozen", frozen)

	return next.Clone(), &models.Event{
		Type:       eventType,
		Admin:      caller,
		Member:     member,
		Identifier: next.MemberIdentifier,
		Timestamp:  l.now().Unix(),
	}, nil
}

// RemoveMember deletes member from the caller's organization. The member's
// transaction log is kept.
func (l *Ledger) RemoveMember(ctx context.Context, caller, member string) (err error) {
	defer l.observe("remove_member", &err)

	l.mu.Lock()
	event, err := l.removeMember(ctx, caller, member)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.publish(event)
	return nil
}

func (l *Ledger) removeMember(ctx context.Context, caller, member string) (*models.Event, error) {
	current, err := l.ownedMember(caller, member)
	if err != nil {
		return nil, err
	}

	change := &models.LedgerChange{RemovedMembers: []uint64{current.Seq}}
	if err := l.commit(ctx, change, nil); err != nil {
		return nil, err
	}
	l.deleteMember(current.Seq)
	l.metrics.setCounts(len(l.wallets), len(l.memberIndex))
	l.logger.Info("Member removed", "admin", caller, "member", member)

	return &models.Event{
		Type:       models.EventMemberRemoved,
		Admin:      caller,
		Member:     member,
		Identifier: current.MemberIdentifier,
		Timestamp:  l.now().Unix(),
	}, nil
}

// ownedMember returns the live member record of member if it belongs to the
// caller's organization. Callers hold mu.
func (l *Ledger) ownedMember(caller, member string) (*models.Member, error) {
	if _, err := l.adminWallet(caller); err != nil {
		return nil, err
	}
	m := l.liveMember(member)
	if m == nil || m.AdminAddress != caller {
		return nil, ErrMemberNotFound
	}
	return m, nil
}
