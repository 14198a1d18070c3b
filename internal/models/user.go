package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LegacyRole is the enum role carried over from before custom roles existed.
// It only participates in evaluation when a user has neither custom roles nor
// direct permission rows.
type LegacyRole string

const (
	LegacyRolePlatformAdmin   LegacyRole = "platform_admin"
	LegacyRoleOrgOwner        LegacyRole = "org_owner"
	LegacyRoleOrgAdmin        LegacyRole = "org_admin"
	LegacyRolePropertyManager LegacyRole = "property_manager"
	LegacyRoleDepartmentAdmin LegacyRole = "department_admin"
	LegacyRoleStaff           LegacyRole = "staff"
)

// User describes platform users with their tenancy placement and role links.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	LegacyRole LegacyRole `gorm:"type:varchar(32);not null;default:staff;index" json:"legacy_role"`
	// No default tag: inserting an inactive user must write false, not fall
	// back to the column default. Creation paths set IsActive explicitly.
	IsActive bool `gorm:"not null" json:"is_active"`

	OrganizationID *string       `gorm:"type:uuid;index" json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty"`
	PropertyID     *string       `gorm:"type:uuid;index" json:"property_id"`
	Property       *Property     `json:"property,omitempty"`
	DepartmentID   *string       `gorm:"type:uuid;index" json:"department_id"`
	Department     *Department   `json:"department,omitempty"`

	MFAEnabled bool       `gorm:"default:false" json:"mfa_enabled"`
	MFASecret  *MFASecret `gorm:"foreignKey:UserID" json:"-"`

	CustomRoles []CustomRole     `gorm:"many2many:user_custom_roles;" json:"custom_roles,omitempty"`
	Permissions []UserPermission `gorm:"foreignKey:UserID" json:"permissions,omitempty"`
	Sessions    []Session        `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"last_login_ip"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsPlatformAdmin reports whether the user bypasses permission evaluation.
func (u *User) IsPlatformAdmin() bool {
	return u.LegacyRole == LegacyRolePlatformAdmin
}
