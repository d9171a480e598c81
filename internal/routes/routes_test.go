package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/fitstack/fitstack-backend/internal/database"
	"github.com/fitstack/fitstack-backend/internal/dto"
	"github.com/fitstack/fitstack-backend/internal/handlers"
	"github.com/fitstack/fitstack-backend/internal/models"
	"github.com/fitstack/fitstack-backend/internal/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		JWTAccessExpiry:     15 * time.Minute,
		JWTRememberMeExpiry: 720 * time.Hour,
		JWTRefreshExpiry:    168 * time.Hour,
		CORSOrigins:         "*",
		RateLimits: map[config.EndpointClass]config.RateLimitPolicy{
			config.EndpointLogin:    {MaxAttempts: 5, Lockout: 15 * time.Minute},
			config.EndpointRegister: {MaxAttempts: 3, Lockout: 60 * time.Minute},
			config.EndpointRefresh:  {MaxAttempts: 10, Lockout: 5 * time.Minute},
			config.EndpointGeneral:  {MaxAttempts: 1000, Lockout: time.Minute},
		},
	}

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
		&models.User{}, &models.RefreshToken{},
		&models.UserProfile{}, &models.BodyMetric{}, &models.Goal{},
		&models.WorkoutPlan{}, &models.WorkoutPlanDay{},
		&models.WorkoutSession{}, &models.WorkoutSet{},
		&models.WorkoutTemplate{}, &models.WorkoutTemplateExercise{},
		&models.Meal{}, &models.MealFood{}, &models.MealPlan{}, &models.CustomFood{},
	))

	// The health endpoint reads the package-level handle.
	prevDB := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prevDB })

	tokens := services.NewTokenService(cfg)
	refresh := services.NewRefreshStore(db, cfg.JWTRefreshExpiry)
	blacklist := services.NewMemoryBlacklist()
	t.Cleanup(blacklist.Stop)
	limiter := services.NewMemoryRateLimiter(cfg)
	t.Cleanup(limiter.Stop)
	oauth := services.NewGoogleOAuthClient("test-client-id")

	authService := services.NewAuthService(db, cfg, tokens, refresh,
		blacklist, limiter, oauth, services.NewDeletionService(db))

	app := fiber.New()
	Setup(app, cfg, handlers.NewAuthHandler(authService), handlers.NewHealthHandler(), blacklist)

	return &testApp{app: app, db: db}
}

func (ta *testApp) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func registerBody(email string) map[string]string {
	return map[string]string{
		"email":      email,
		"password":   "password123",
		"first_name": "Alice",
		"last_name":  "Smith",
	}
}

func TestRoutes_Health(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health dto.HealthResponse
	decode(t, resp, &health)
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "ok", health.DB)
}

func TestRoutes_RegisterAndLogin(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodPost, "/api/users/register", registerBody("alice@example.com"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var auth dto.AuthResponse
	decode(t, resp, &auth)
	require.Equal(t, "Bearer", auth.TokenType)
	require.NotEmpty(t, auth.Token)
	require.NotEmpty(t, auth.RefreshToken)
	require.Equal(t, int64(900), auth.ExpiresIn)

	resp = ta.request(t, http.MethodPost, "/api/users/register", registerBody("alice@example.com"), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = ta.request(t, http.MethodPost, "/api/users/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = ta.request(t, http.MethodPost, "/api/users/login", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_RegisterErrorMapping(t *testing.T) {
	ta := setupTestApp(t)

	// Validation failures are the caller's fault.
	short := registerBody("alice@example.com")
	short["password"] = "short"
	resp := ta.request(t, http.MethodPost, "/api/users/register", short, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Storage failures are not, and their detail stays inside.
	require.NoError(t, ta.db.Exec("DROP TABLE users").Error)
	resp = ta.request(t, http.MethodPost, "/api/users/register", registerBody("bob@example.com"), nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body dto.ErrorResponse
	decode(t, resp, &body)
	require.Equal(t, "Internal server error", body.Message)
}

func TestRoutes_LoginLockoutAnswers429(t *testing.T) {
	ta := setupTestApp(t)

	ta.request(t, http.MethodPost, "/api/users/register", registerBody("alice@example.com"), nil).Body.Close()

	bad := map[string]string{"email": "alice@example.com", "password": "wrong"}
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}
	for i := 0; i < 5; i++ {
		resp := ta.request(t, http.MethodPost, "/api/users/login", bad, headers)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	resp := ta.request(t, http.MethodPost, "/api/users/login", bad, headers)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	resp.Body.Close()

	// A caller behind a different forwarded address is not locked out.
	resp = ta.request(t, http.MethodPost, "/api/users/login", map[string]string{
		"email": "alice@example.com", "password": "password123",
	}, map[string]string{"X-Forwarded-For": "203.0.113.8"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_RefreshRotationAndReplay(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodPost, "/api/users/register", registerBody("alice@example.com"), nil)
	var auth dto.AuthResponse
	decode(t, resp, &auth)

	resp = ta.request(t, http.MethodPost, "/api/users/refresh",
		map[string]string{"refresh_token": auth.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed dto.AuthResponse
	decode(t, resp, &refreshed)
	require.NotEqual(t, auth.RefreshToken, refreshed.RefreshToken)

	resp = ta.request(t, http.MethodPost, "/api/users/refresh",
		map[string]string{"refresh_token": auth.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_LogoutRevokesAccessToken(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodPost, "/api/users/register", registerBody("alice@example.com"), nil)
	var auth dto.AuthResponse
	decode(t, resp, &auth)

	bearer := map[string]string{"Authorization": "Bearer " + auth.Token}

	resp = ta.request(t, http.MethodPost, "/api/users/logout", nil, bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The blacklisted token no longer opens protected routes.
	resp = ta.request(t, http.MethodPost, "/api/users/logout", nil, bearer)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The refresh token died with the session.
	resp = ta.request(t, http.MethodPost, "/api/users/refresh",
		map[string]string{"refresh_token": auth.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_ProtectedRoutesRequireToken(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodPost, "/api/users/logout", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = ta.request(t, http.MethodDelete, "/api/users/account", nil, map[string]string{
		"Authorization": "Bearer not-a-real-token",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_DeleteAccount(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodPost, "/api/users/register", registerBody("alice@example.com"), nil)
	var auth dto.AuthResponse
	decode(t, resp, &auth)

	bearer := map[string]string{"Authorization": "Bearer " + auth.Token}

	resp = ta.request(t, http.MethodDelete, "/api/users/account", nil, bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var count int64
	require.NoError(t, ta.db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)

	// The deleted account's token was blacklisted on the way out.
	resp = ta.request(t, http.MethodDelete, "/api/users/account", nil, bearer)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRoutes_OAuthRequiresIDToken(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodPost, "/api/users/oauth/google", map[string]string{
		"google_id": "google-123", "email": "alice@example.com",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
