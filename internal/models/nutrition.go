package models

import (
	"time"

	"gorm.io/datatypes"
)

type Meal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"size:120" json:"name"`
	MealType  string    `gorm:"size:30" json:"meal_type"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

type MealFood struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	MealID   uint     `gorm:"not null;index" json:"meal_id"`
	FoodID   uint     `gorm:"not null" json:"food_id"`
	Servings float64  `gorm:"not null;default:1" json:"servings"`
	Grams    *float64 `json:"grams"`
}

type MealPlan struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"size:120" json:"name"`
	Days      datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"days"`
	CreatedAt time.Time      `json:"created_at"`
}

type CustomFood struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Calories  float64   `json:"calories"`
	ProteinG  float64   `json:"protein_g"`
	CarbsG    float64   `json:"carbs_g"`
	FatG      float64   `json:"fat_g"`
	CreatedAt time.Time `json:"created_at"`
}
