package models

// CustomRole bundles permissions for assignment to users. System roles are
// seeded from the legacy enum and are immutable; tenant roles belong to an
// organization and role names are unique within it.
type CustomRole struct {
	BaseModel

	OrganizationID *string       `gorm:"type:uuid;index;uniqueIndex:idx_role_org_name,priority:1" json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty"`

	Name        string `gorm:"not null;uniqueIndex:idx_role_org_name,priority:2" json:"name"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_custom_roles;" json:"users,omitempty"`
}
