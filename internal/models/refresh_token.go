package models

import (
	"time"
)

// RefreshToken is the persisted half of a session. At most one non-revoked,
// non-expired token exists per user; issuing a new one revokes the rest.
type RefreshToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Token      string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	ExpiryDate time.Time `gorm:"not null" json:"expiry_date"`
	Revoked    bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt  time.Time `json:"created_at"`
	User       User      `gorm:"foreignKey:UserID" json:"-"`
}

func (r *RefreshToken) IsExpired() bool {
	return time.Now().After(r.ExpiryDate)
}

func (r *RefreshToken) IsValid() bool {
	return !r.Revoked && !r.IsExpired()
}
