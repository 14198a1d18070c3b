package models

import (
	"time"

	"gorm.io/datatypes"
)

// MFASecret stores a user's TOTP enrolment. Secret holds the AES-GCM
// encrypted seed; BackupCodes is a JSON array of bcrypt hashes, each removed
// as it is consumed.
type MFASecret struct {
	BaseModel

	UserID      string         `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Secret      string         `gorm:"not null" json:"-"`
	BackupCodes datatypes.JSON `json:"-"`
	LastUsedAt  *time.Time     `json:"last_used_at"`
}
