package models

import "time"

// UserPermission is a direct grant or denial attached to a single user,
// overriding whatever their roles provide. At most one row exists per
// (user, permission) pair.
type UserPermission struct {
	BaseModel

	UserID       string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_permission_pair,priority:1" json:"user_id"`
	PermissionID string      `gorm:"type:uuid;not null;uniqueIndex:idx_user_permission_pair,priority:2" json:"permission_id"`
	Permission   *Permission `json:"permission,omitempty"`

	// Granted true adds the permission; false suppresses the exact triple
	// even when a role grants it. No column default: GORM drops zero-valued
	// fields carrying one from INSERTs, which would persist denials as grants.
	Granted bool `gorm:"not null" json:"granted"`

	GrantedByID *string    `gorm:"type:uuid;index" json:"granted_by_id"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Expired reports whether the override has lapsed at the supplied instant.
func (up *UserPermission) Expired(now time.Time) bool {
	return up.ExpiresAt != nil && up.ExpiresAt.Before(now)
}
