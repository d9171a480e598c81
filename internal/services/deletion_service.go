package services

import (
	"fmt"
	"log/slog"

	"github.com/fitstack/fitstack-backend/internal/models"
	"gorm.io/gorm"
)

// DeletionService removes every row a user owns, children before parents so
// foreign keys never dangle mid-transaction.
type DeletionService struct {
	db *gorm.DB
}

func NewDeletionService(db *gorm.DB) *DeletionService {
	return &DeletionService{db: db}
}

// DeleteAllUserData deletes the user's domain data and refresh tokens in one
// transaction. The user row itself is deleted by the caller.
func (s *DeletionService) DeleteAllUserData(userID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Workout data: sets hang off sessions, template exercises off
		// templates, plan days off plans.
		var sessionIDs []uint
		if err := tx.Model(&models.WorkoutSession{}).
			Where("user_id = ?", userID).Pluck("id", &sessionIDs).Error; err != nil {
			return fmt.Errorf("failed to collect session ids: %w", err)
		}
		if len(sessionIDs) > 0 {
			if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.WorkoutSet{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.WorkoutSession{}).Error; err != nil {
			return err
		}

		var templateIDs []uint
		if err := tx.Model(&models.WorkoutTemplate{}).
			Where("user_id = ?", userID).Pluck("id", &templateIDs).Error; err != nil {
			return err
		}
		if len(templateIDs) > 0 {
			if err := tx.Where("template_id IN ?", templateIDs).Delete(&models.WorkoutTemplateExercise{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.WorkoutTemplate{}).Error; err != nil {
			return err
		}

		var planIDs []uint
		if err := tx.Model(&models.WorkoutPlan{}).
			Where("user_id = ?", userID).Pluck("id", &planIDs).Error; err != nil {
			return err
		}
		if len(planIDs) > 0 {
			if err := tx.Where("workout_plan_id IN ?", planIDs).Delete(&models.WorkoutPlanDay{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.WorkoutPlan{}).Error; err != nil {
			return err
		}

		// Nutrition data.
		var mealIDs []uint
		if err := tx.Model(&models.Meal{}).
			Where("user_id = ?", userID).Pluck("id", &mealIDs).Error; err != nil {
			return err
		}
		if len(mealIDs) > 0 {
			if err := tx.Where("meal_id IN ?", mealIDs).Delete(&models.MealFood{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Meal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.MealPlan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.CustomFood{}).Error; err != nil {
			return err
		}

		// User data.
		if err := tx.Where("user_id = ?", userID).Delete(&models.BodyMetric{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Goal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserProfile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}

		slog.Info("deleted all user data", "user_id", userID)
		return nil
	})
}
