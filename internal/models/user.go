package models

import (
	"time"
)

// Account origin values for User.Provider.
const (
	ProviderLocal = "local"
	ProviderIntra = "intra"
)

// DefaultImage is used when an account has no profile image set.
const DefaultImage = "/images/default.png"

// Languages accepted for User.Language.
var Languages = []string{"EN", "FR", "KR"}

// User is a platform account. Username is nullable: accounts created through
// the upstream OAuth provider have no local username until they pick one.
// Password holds the bcrypt hash and stays empty for OAuth-only accounts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  *string   `gorm:"size:255;uniqueIndex" json:"username"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	Provider  string    `gorm:"size:50;default:'local'" json:"-"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	TwoFactor bool      `gorm:"default:false" json:"two_factor"`
	Language  string    `gorm:"size:4;default:'EN'" json:"language"`
	Image     string    `gorm:"type:text" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ImageOrDefault returns the stored profile image or the platform default.
func (u *User) ImageOrDefault() string {
	if u.Image == "" {
		return DefaultImage
	}
	return u.Image
}

// ValidLanguage reports whether lang is one of the supported language codes.
func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}
