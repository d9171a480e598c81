package config

import (
	"os"
	"strconv"
	"time"
)

// EndpointClass selects the abuse-throttling rule applied to a request.
// Thresholds and lockout windows differ per class because brute-force risk
// and legitimate retry frequency differ: refresh happens automatically and
// often, registration abuse is cheap to throttle hard.
type EndpointClass string

const (
	EndpointLogin    EndpointClass = "LOGIN"
	EndpointRegister EndpointClass = "REGISTER"
	EndpointRefresh  EndpointClass = "REFRESH"
	EndpointGeneral  EndpointClass = "GENERAL"
)

// RateLimitPolicy is the lockout rule for one endpoint class.
type RateLimitPolicy struct {
	MaxAttempts int
	Lockout     time.Duration
}

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret           string
	JWTAccessExpiry     time.Duration
	JWTRememberMeExpiry time.Duration
	JWTRefreshExpiry    time.Duration

	// Google OAuth
	GoogleClientID string

	// Rate limiting
	RateLimitBackend string // "memory" or "redis"
	RateLimits       map[EndpointClass]RateLimitPolicy

	// Redis (rate limiter / blacklist backend)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "fitstack_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:     parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRememberMeExpiry: parseDuration(getEnv("JWT_REMEMBER_ME_EXPIRY", "720h"), 720*time.Hour),
		JWTRefreshExpiry:    parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		RateLimitBackend: getEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimits: map[EndpointClass]RateLimitPolicy{
			EndpointLogin:    loadPolicy("LOGIN", 5, 15*time.Minute),
			EndpointRegister: loadPolicy("REGISTER", 3, 60*time.Minute),
			EndpointRefresh:  loadPolicy("REFRESH", 10, 5*time.Minute),
			EndpointGeneral:  loadPolicy("GENERAL", 100, time.Minute),
		},

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", ""), 0),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

// Policy returns the lockout rule for a class. Unknown classes fall back to
// GENERAL so adding a class is a data change, not a code change.
func (c *Config) Policy(class EndpointClass) RateLimitPolicy {
	if p, ok := c.RateLimits[class]; ok {
		return p
	}
	return c.RateLimits[EndpointGeneral]
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// loadPolicy reads RATELIMIT_<class>_MAX_ATTEMPTS and RATELIMIT_<class>_LOCKOUT,
// falling back to the given defaults.
func loadPolicy(class string, maxAttempts int, lockout time.Duration) RateLimitPolicy {
	return RateLimitPolicy{
		MaxAttempts: parseInt(getEnv("RATELIMIT_"+class+"_MAX_ATTEMPTS", ""), maxAttempts),
		Lockout:     parseDuration(getEnv("RATELIMIT_"+class+"_LOCKOUT", ""), lockout),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
