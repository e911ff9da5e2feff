package models

import (
	"time"
)

// Verification purposes.
const (
	PurposeLogin         = "LOGIN"
	PurposePasswordReset = "PASSWORD_RESET"
)

// EmailVerification is the single live one-time code for a user. The unique
// index on UserID is what guarantees "at most one live code per account":
// issuing a new code upserts this row instead of inserting a second one.
// Expiry is measured from UpdatedAt, not CreatedAt, so a re-issued code gets
// a fresh window.
type EmailVerification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	Purpose   string    `gorm:"size:20;not null;default:'LOGIN'" json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}

func (EmailVerification) TableName() string {
	return "email_verifications"
}
