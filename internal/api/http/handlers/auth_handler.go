package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/agrilink/crm-sync/internal/api/dto"
	"github.com/agrilink/crm-sync/internal/service"
	apperrors "github.com/agrilink/crm-sync/pkg/util"
)

// AuthHandler exposes the operator login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{AccessToken: token, TokenType: "Bearer"},
	})
}
