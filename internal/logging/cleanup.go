package logging

import (
	"log/slog"
	"time"

	"github.com/fitstack/fitstack-backend/internal/models"
	"gorm.io/gorm"
)

type expiredTokenPurger interface {
	DeleteExpired() (int64, error)
}

// StartCleanup runs a daily goroutine that deletes system_logs older than
// 30 days and purges refresh tokens past their expiry date. Expired refresh
// tokens are already unusable; this just keeps the table from growing
// unbounded.
func StartCleanup(db *gorm.DB, tokens expiredTokenPurger, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -30)
				result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
				if result.Error != nil {
					slog.Error("log cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("log cleanup completed", "deleted", result.RowsAffected)
				}

				if deleted, err := tokens.DeleteExpired(); err != nil {
					slog.Error("refresh token cleanup failed", "error", err)
				} else if deleted > 0 {
					slog.Info("expired refresh tokens purged", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
}
