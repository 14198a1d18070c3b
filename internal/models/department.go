package models

// Department groups staff within a property (housekeeping, front office, HR).
type Department struct {
	BaseModel

	PropertyID string    `gorm:"type:uuid;not null;index;uniqueIndex:idx_department_property_code,priority:1" json:"property_id"`
	Property   *Property `json:"property,omitempty"`

	Name string `gorm:"not null" json:"name"`
	Code string `gorm:"not null;uniqueIndex:idx_department_property_code,priority:2" json:"code"`

	Users []User `gorm:"foreignKey:DepartmentID" json:"users,omitempty"`
}
