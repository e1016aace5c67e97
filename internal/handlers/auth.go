package handlers

import (
	"boltcard/internal/services/auth"
	"boltcard/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler serves operator login for the card administration API.
type AuthHandler struct {
	service auth.Service
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}

	token, err := h.service.Login(input.Username, input.Password)
	if err != nil {
		return utils.Unauthorized(c, "Invalid credentials.")
	}
	return utils.Success(c, fiber.Map{"access_token": token})
}
