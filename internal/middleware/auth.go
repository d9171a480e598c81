package middleware

import (
	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/fitstack/fitstack-backend/internal/dto"
	"github.com/fitstack/fitstack-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTProtected verifies signature and expiry of the bearer token. The parsed
// token lands in c.Locals("user") for BlacklistGuard to inspect.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// BlacklistGuard rejects tokens that verified cryptographically but have
// been revoked by logout or account deletion. Runs after JWTProtected;
// attaches user_id and email to the request context on success.
func BlacklistGuard(blacklist services.TokenBlacklist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return unauthorized(c)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return unauthorized(c)
		}

		jti, _ := claims["jti"].(string)
		if blacklist.IsBlacklisted(jti) {
			return unauthorized(c)
		}

		if userID, ok := claims["user_id"].(float64); ok {
			c.Locals("user_id", uint(userID))
		}
		if email, ok := claims["sub"].(string); ok {
			c.Locals("email", email)
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id set by BlacklistGuard.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Unauthorized",
	})
}
