package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/core-coin/walletx/internal/models"
)

// MemberWithdrawal sends amount from custody to receiver on behalf of the
// calling member, lowers the member's spend limit and records the transfer in
// the member's transaction log. The wallet balance is left as is.
func (l *Ledger) MemberWithdrawal(ctx context.Context, caller string, amount *big.Int, receiver string) (tx *models.Transaction, err error) {
	defer l.observe("member_withdrawal", &err)

	l.mu.Lock()
	tx, event, err := l.memberWithdrawal(ctx, caller, amount, receiver)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.publish(event)
	return tx, nil
}

func (l *Ledger) memberWithdrawal(ctx context.Context, caller string, amount *big.Int, receiver string) (*models.Transaction, *models.Event, error) {
	if err := checkAmount(amount); err != nil {
		return nil, nil, err
	}
	current := l.liveMember(caller)
	if current == nil || !current.Active {
		return nil, nil, ErrNotMember
	}
	if current.Frozen {
		return nil, nil, ErrMemberFrozen
	}
	if amount.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	if receiver == "" {
		return nil, nil, ErrInvalidReceiver
	}
	if current.SpendLimit.Cmp(amount) < 0 {
		return nil, nil, insufficientFunds(current.SpendLimit, amount)
	}

	next := current.Clone()
	next.SpendLimit = new(big.Int).Sub(current.SpendLimit, amount)
	tx := &models.Transaction{
		ID:            l.newID(),
		MemberAddress: caller,
		Amount:        new(big.Int).Set(amount),
		Receiver:      receiver,
		Timestamp:     l.now().Unix(),
	}

	batch := l.token.Begin()
	defer batch.Discard()
	if err := batch.Transfer(l.custody, receiver, amount); err != nil {
		return nil, nil, fmt.Errorf("failed to transfer funds: %w", err)
	}
	change := &models.LedgerChange{Members: []*models.Member{next}, Transaction: tx}
	if err := l.commit(ctx, change, batch); err != nil {
		return nil, nil, err
	}

	l.members[next.Seq] = next
	l.transactions[caller] = append(l.transactions[caller], tx)
	l.withdrawn.Add(l.withdrawn, amount)
	l.logger.Info("Member withdrawal", "member", caller, "receiver", receiver, "amount", amount.String(), "spend_limit", next.SpendLimit.String())

	return tx.Clone(), &models.Event{
		Type:       models.EventMemberWithdrawal,
		Admin:      next.AdminAddress,
		Member:     caller,
		Identifier: next.MemberIdentifier,
		Amount:     new(big.Int).Set(amount),
		Receiver:   receiver,
		Timestamp:  tx.Timestamp,
	}, nil
}

// GetMemberTransactions returns the withdrawals recorded for member, oldest
// first. Anyone may read a member's log.
func (l *Ledger) GetMemberTransactions(member string) []*models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	log := l.transactions[member]
	txs := make([]*models.Transaction, 0, len(log))
	for _, tx := range log {
		txs = append(txs, tx.Clone())
	}
	return txs
}
