package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/core-coin/walletx/internal/models"
)

// AcquireLock takes the named lock for instanceID, or renews it if
// instanceID already holds it. A lock held by another instance can only be
// taken once it has expired.
func (db *DB) AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	acquired := false

	err := db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lock models.AppLock
		err := tx.Where("lock_name = ?", name).First(&lock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lock = models.AppLock{
				LockName:   name,
				InstanceID: instanceID,
				AcquiredAt: now.Unix(),
				ExpiresAt:  now.Add(ttl).Unix(),
			}
			if err := tx.Create(&lock).Error; err != nil {
				return err
			}
			acquired = true
			return nil
		}
		if err != nil {
			return err
		}

		if lock.HeldByOther(instanceID, now.Unix()) {
			return nil
		}
		updates := map[string]interface{}{
			"instance_id": instanceID,
			"expires_at":  now.Add(ttl).Unix(),
		}
		if lock.InstanceID != instanceID {
			updates["acquired_at"] = now.Unix()
		}
		// Guard on the observed holder so a concurrent takeover wins only once.
		res := tx.Model(&models.AppLock{}).
			Where("lock_name = ? AND instance_id = ? AND expires_at = ?", name, lock.InstanceID, lock.ExpiresAt).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return acquired, nil
}

// ReleaseLock drops the named lock if instanceID holds it.
func (db *DB) ReleaseLock(ctx context.Context, name, instanceID string) error {
	if err := db.Conn.WithContext(ctx).
		Where("lock_name = ? AND instance_id = ?", name, instanceID).
		Delete(&models.AppLock{}).Error; err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}

// Writer returns the store the holder of lease writes through.
func (db *DB) Writer(lease models.Lease) models.LedgerWriter {
	return &leaseWriter{db: db, lease: lease}
}

type leaseWriter struct {
	db    *DB
	lease models.Lease
}

func (w *leaseWriter) CommitLedgerChange(ctx context.Context, change *models.LedgerChange) error {
	return w.db.commitLedgerChange(ctx, w.lease, change)
}

func (w *leaseWriter) SaveTokenState(ctx context.Context, accounts []*models.TokenAccount, allowances []*models.TokenAllowance) error {
	return w.db.saveTokenState(ctx, w.lease, accounts, allowances)
}

// holdsLease fails with models.ErrLeaseLost unless lease names a live lock
// row held by its instance. The row is read FOR UPDATE, so on PostgreSQL a
// takeover waits until tx ends. SQLite serializes writers on its own.
func holdsLease(tx *gorm.DB, lease models.Lease) error {
	var lock models.AppLock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("lock_name = ?", lease.Name).
		First(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrLeaseLost
	}
	if err != nil {
		return fmt.Errorf("failed to read lock %s: %w", lease.Name, err)
	}
	if lock.InstanceID != lease.InstanceID || lock.Expired(time.Now().Unix()) {
		return models.ErrLeaseLost
	}
	return nil
}
