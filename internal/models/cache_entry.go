package models

import "time"

// CacheEntry backs the database cache store used when Redis is not
// configured. Rows past ExpiresAt are treated as absent and reaped by the
// maintenance cleaner.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the entry has lapsed at the given instant. A zero
// expiry means the entry never expires.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
