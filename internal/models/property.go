package models

// Property represents a single hotel site operated by an organization.
type Property struct {
	BaseModel

	OrganizationID string        `gorm:"type:uuid;not null;index;uniqueIndex:idx_property_org_code,priority:1" json:"organization_id"`
	Organization   *Organization `json:"organization,omitempty"`

	Name     string `gorm:"not null" json:"name"`
	Code     string `gorm:"not null;uniqueIndex:idx_property_org_code,priority:2" json:"code"`
	Timezone string `gorm:"default:UTC" json:"timezone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`

	Departments []Department `gorm:"foreignKey:PropertyID" json:"departments,omitempty"`
}
