package services

import (
	"testing"
	"time"

	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/fitstack/fitstack-backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		JWTAccessExpiry:     15 * time.Minute,
		JWTRememberMeExpiry: 720 * time.Hour,
		JWTRefreshExpiry:    168 * time.Hour,
		RateLimits: map[config.EndpointClass]config.RateLimitPolicy{
			config.EndpointLogin:    {MaxAttempts: 5, Lockout: 15 * time.Minute},
			config.EndpointRegister: {MaxAttempts: 3, Lockout: 60 * time.Minute},
			config.EndpointRefresh:  {MaxAttempts: 10, Lockout: 5 * time.Minute},
			config.EndpointGeneral:  {MaxAttempts: 100, Lockout: time.Minute},
		},
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pool connection to :memory: opens its own database; one
	// connection keeps all queries on the same one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.UserProfile{},
		&models.BodyMetric{},
		&models.Goal{},
		&models.WorkoutPlan{},
		&models.WorkoutPlanDay{},
		&models.WorkoutSession{},
		&models.WorkoutSet{},
		&models.WorkoutTemplate{},
		&models.WorkoutTemplateExercise{},
		&models.Meal{},
		&models.MealFood{},
		&models.MealPlan{},
		&models.CustomFood{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
