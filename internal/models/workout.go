package models

import (
	"time"

	"gorm.io/datatypes"
)

type WorkoutPlan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Goal      string    `gorm:"size:40" json:"goal"`
	Active    bool      `gorm:"default:false" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WorkoutPlanDay struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	WorkoutPlanID uint           `gorm:"not null;index" json:"workout_plan_id"`
	DayOfWeek     int            `gorm:"not null" json:"day_of_week"`
	Name          string         `gorm:"size:120" json:"name"`
	Exercises     datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"exercises"`
	CreatedAt     time.Time      `json:"created_at"`
}

type WorkoutSession struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	PlanID      *uint      `json:"plan_id"`
	Name        string     `gorm:"size:120" json:"name"`
	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type WorkoutSet struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;index" json:"session_id"`
	ExerciseID uint      `gorm:"not null" json:"exercise_id"`
	SetNumber  int       `gorm:"not null" json:"set_number"`
	Reps       int       `json:"reps"`
	WeightKg   *float64  `json:"weight_kg"`
	CreatedAt  time.Time `json:"created_at"`
}

type WorkoutTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type WorkoutTemplateExercise struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	TemplateID uint `gorm:"not null;index" json:"template_id"`
	ExerciseID uint `gorm:"not null" json:"exercise_id"`
	Position   int  `gorm:"not null" json:"position"`
	TargetSets int  `json:"target_sets"`
	TargetReps int  `json:"target_reps"`
}
