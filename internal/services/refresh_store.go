package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fitstack/fitstack-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
)

// RefreshStore is the single rotation authority for refresh tokens. All
// writes for a user funnel through transactions here, so two concurrent
// refresh calls with the same token cannot both succeed.
type RefreshStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewRefreshStore(db *gorm.DB, ttl time.Duration) *RefreshStore {
	return &RefreshStore{db: db, ttl: ttl}
}

// Issue revokes every active token for the user and inserts a fresh one,
// returning the raw token value. The raw value is only ever returned here;
// the row keeps it for lookup on redeem.
func (s *RefreshStore) Issue(userID uint) (string, error) {
	var raw string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := revokeAll(tx, userID); err != nil {
			return err
		}
		var err error
		raw, err = insertToken(tx, userID, s.ttl)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return raw, nil
}

// Redeem looks up a non-revoked token by value. Expired rows are deleted on
// the way out since they can never become valid again.
func (s *RefreshStore) Redeem(tokenValue string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	if err := s.db.Where("token = ? AND revoked = ?", tokenValue, false).First(&stored).Error; err != nil {
		return nil, ErrTokenNotFound
	}
	if stored.IsExpired() {
		s.db.Delete(&stored)
		return nil, ErrTokenExpired
	}
	return &stored, nil
}

// Rotate atomically redeems a token, revokes it together with any other
// active tokens for the user, and issues a replacement. The row lock on the
// redeemed token serializes concurrent rotations: the loser finds the token
// already revoked and gets ErrTokenNotFound.
func (s *RefreshStore) Rotate(tokenValue string) (old *models.RefreshToken, newToken string, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		q := tx.Where("token = ? AND revoked = ?", tokenValue, false)
		// SQLite has no FOR UPDATE; its single-writer model already
		// serializes rotations.
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var stored models.RefreshToken
		if err := q.First(&stored).Error; err != nil {
			return ErrTokenNotFound
		}
		if stored.IsExpired() {
			tx.Delete(&stored)
			return ErrTokenExpired
		}

		if err := revokeAll(tx, stored.UserID); err != nil {
			return err
		}
		stored.Revoked = true
		old = &stored

		raw, err := insertToken(tx, stored.UserID, s.ttl)
		if err != nil {
			return err
		}
		newToken = raw
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return old, newToken, nil
}

// RevokeAll marks every token for the user revoked. Idempotent.
func (s *RefreshStore) RevokeAll(userID uint) error {
	return revokeAll(s.db, userID)
}

// DeleteAll hard-deletes the user's tokens. Only account deletion uses this.
func (s *RefreshStore) DeleteAll(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// DeleteExpired purges rows past their expiry date and returns the count.
func (s *RefreshStore) DeleteExpired() (int64, error) {
	result := s.db.Where("expiry_date < ?", time.Now()).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

func revokeAll(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func insertToken(tx *gorm.DB, userID uint, ttl time.Duration) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	raw := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		Token:      raw,
		UserID:     userID,
		ExpiryDate: time.Now().Add(ttl),
	}
	if err := tx.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return raw, nil
}
