package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/console-access/internal/api/dto"
	"github.com/spec-kit/console-access/internal/auth"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/service"
)

// AuthService is the sign-in surface the handler needs.
type AuthService interface {
	SignIn(ctx context.Context, email, password string, role domain.RoleID) (*service.SignInResult, error)
	SignOut(ctx context.Context, sess *domain.Session) error
}

// AuthHandler exposes sign-in, sign-out and session introspection.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	res, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.SignInResponse{
			Token:     res.Credential.Token,
			ExpiresAt: res.Credential.ExpiresAt,
			SessionID: res.Credential.SessionID,
			Role:      res.Credential.Role,
			Roles:     res.Roles,
			User: dto.UserSummary{
				ID:    res.User.ID,
				Name:  res.User.Name,
				Email: res.User.Email,
			},
		},
	})
}

// SignOut handles POST /auth/signout.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	sess, _ := auth.SessionFromContext(c)
	if err := h.auth.SignOut(c.UserContext(), sess); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Session handles GET /auth/session.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	sess, table := auth.SessionFromContext(c)
	if sess == nil {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	return c.JSON(fiber.Map{
		"data": dto.SessionResponse{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Role:      sess.Role,
			IssuedAt:  sess.IssuedAt,
			ExpiresAt: sess.ExpiresAt,
			Patterns:  table.AllowedPatterns(sess.Role),
		},
	})
}
