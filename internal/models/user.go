package models

import (
	"time"
)

// User is the account record. OAuth accounts have no password hash, which is
// what makes password logins for them fail credential verification.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	GoogleID     *string   `gorm:"size:255;index" json:"-"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsOAuthUser reports whether the account was created through an identity
// provider and has no local credentials.
func (u *User) IsOAuthUser() bool {
	return u.PasswordHash == ""
}
