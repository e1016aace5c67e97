// Package middleware provides HTTP middleware for the fiber application.
package middleware

import (
	"strings"

	"boltcard/internal/services/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates operator JWTs on the card administration API and
// stores the claims in the request context. The LNURL and device endpoints
// are never behind it: card firmware cannot carry bearer tokens.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "invalid authorization format"})
	}

	claims, err := m.authService.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "invalid token"})
	}

	c.Locals("claims", claims)
	return c.Next()
}
