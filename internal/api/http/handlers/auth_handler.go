package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// AuthHandler exposes the login endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /api/auth/login. It never rejects a request: an unreadable
// body counts as empty credentials and resolves to the user role.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := decodeBody(c, &req); err != nil {
		req = dto.LoginRequest{}
	}
	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Role:      result.Role,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Session GET /api/auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	role, err := h.service.Session(bearerToken(c.Get(fiber.HeaderAuthorization)))
	if err != nil {
		return err
	}
	return c.JSON(dto.SessionResponse{Role: role})
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
