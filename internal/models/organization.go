package models

import "gorm.io/datatypes"

// Organization is the tenancy root: every property, department, and user
// belongs to exactly one organization.
type Organization struct {
	BaseModel

	Name     string         `gorm:"not null" json:"name"`
	Slug     string         `gorm:"uniqueIndex;not null" json:"slug"`
	Settings datatypes.JSON `json:"settings"`

	Properties []Property `gorm:"foreignKey:OrganizationID" json:"properties,omitempty"`
	Users      []User     `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
}
