package models

import "fmt"

// Permission is a single (resource, action, scope) triple. The unique index
// spans soft-deleted rows too, so a deleted triple blocks re-creation until
// the row is purged.
type Permission struct {
	BaseModel

	Resource string `gorm:"not null;uniqueIndex:idx_permission_triple,priority:1" json:"resource"`
	Action   string `gorm:"not null;uniqueIndex:idx_permission_triple,priority:2" json:"action"`
	Scope    string `gorm:"not null;uniqueIndex:idx_permission_triple,priority:3" json:"scope"`

	Category    string `gorm:"index" json:"category"`
	Description string `json:"description"`

	Roles []CustomRole `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}

// String returns the canonical resource.action.scope form.
func (p Permission) String() string {
	return fmt.Sprintf("%s.%s.%s", p.Resource, p.Action, p.Scope)
}
