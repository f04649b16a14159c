package models

// AppLock is a named lease row. The instance holding "ledger-writer" is the
// only one allowed to mutate the ledger; times are unix seconds.
type AppLock struct {
	LockName   string `gorm:"primaryKey;size:255"`
	InstanceID string `gorm:"size:255;not null"`
	AcquiredAt int64  `gorm:"not null"`
	ExpiresAt  int64  `gorm:"not null;index"`
}

func (AppLock) TableName() string {
	return "app_locks"
}

// Expired reports whether the lease has lapsed at now.
func (l *AppLock) Expired(now int64) bool {
	return l.ExpiresAt <= now
}

// HeldByOther reports whether another instance holds a live lease at now.
func (l *AppLock) HeldByOther(instanceID string, now int64) bool {
	return l.InstanceID != instanceID && !l.Expired(now)
}
