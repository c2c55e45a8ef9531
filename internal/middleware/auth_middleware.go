package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/bonplan-api/internal/utils"
)

// LocalsUserID ключ, под которым в контексте запроса хранится идентификатор пользователя
const LocalsUserID = "userID"

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "Missing authorization header")
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			return unauthorized(c, "Invalid authorization header format")
		}

		userID, err := jwtService.ExtractUserID(strings.TrimSpace(tokenString))
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}

		// Старые токены содержали telegram id вместо UUID пользователя
		if _, err := uuid.Parse(userID); err != nil {
			return unauthorized(c, "Invalid user ID")
		}

		c.Locals(LocalsUserID, userID)

		return c.Next()
	}
}

func unauthorized(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}
