package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionCache memoizes a user's fully resolved permission strings so
// request-path checks avoid walking roles and overrides on every call.
// Rows are rebuilt on demand and invalidated whenever a mutation touches
// the user's grants.
type PermissionCache struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex"`

	// Permissions holds a JSON array of resource.action.scope strings.
	Permissions string `gorm:"type:text;not null"`

	ResolvedAt time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate ensures a UUID is present before persisting.
func (c *PermissionCache) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Stale reports whether the cached set should be treated as a miss.
func (c *PermissionCache) Stale(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
