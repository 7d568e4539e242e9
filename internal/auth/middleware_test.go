package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/session"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

type recorder struct{ decisions []access.Decision }

func (r *recorder) RecordDecision(d access.Decision) { r.decisions = append(r.decisions, d) }

type MiddlewareSuite struct {
	suite.Suite
	tokens   *TokenManager
	store    *session.InMemoryStore
	guard    access.Guard
	recorder *recorder
	app      *fiber.App
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.tokens = NewTokenManager("secret", "console", time.Hour)
	s.store = session.NewInMemory()
	s.guard = access.NewGuard("/signin", "/403")
	s.recorder = &recorder{}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"details": domainErr.Details,
			}})
		},
	})
	s.app.Use(NewMiddleware(s.tokens, s.store, zap.NewNop()).Handle)
	s.app.Get("/whoami", func(c *fiber.Ctx) error {
		sess, table := SessionFromContext(c)
		if sess == nil {
			return c.JSON(fiber.Map{"signed_in": false})
		}
		return c.JSON(fiber.Map{"signed_in": true, "role": sess.Role, "patterns": table.AllowedPatterns(sess.Role)})
	})
	s.app.Get("/signed-in", RequireSession(s.guard, WithRecorder(s.recorder)), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	s.app.Put("/roles/:id", RequireRoute(s.guard, "/permission/role/:id", WithRecorder(s.recorder)), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func (s *MiddlewareSuite) signIn(role domain.RoleID, patterns ...string) string {
	sid := uuid.NewString()
	token, issuedAt, expiresAt, err := s.tokens.GenerateToken(sid, "user-"+string(role), role)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(context.Background(), &domain.Credential{
		SessionID: sid, UserID: "user-" + string(role), Role: role, Token: token,
		IssuedAt: issuedAt, ExpiresAt: expiresAt, Patterns: patterns,
	}))
	return token
}

func (s *MiddlewareSuite) do(method, path, token string) (int, map[string]any) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var body map[string]any
	if resp.StatusCode != fiber.StatusNoContent {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func (s *MiddlewareSuite) TestResolvesSession() {
	token := s.signIn(domain.RoleAdmin, "/", "/permission/*")

	status, body := s.do("GET", "/whoami", token)
	s.Equal(fiber.StatusOK, status)
	s.Equal(true, body["signed_in"])
	s.Equal("admin", body["role"])
	s.Equal([]any{"/", "/permission/*"}, body["patterns"])
}

func (s *MiddlewareSuite) TestUnusableTokensLeaveNoSession() {
	valid := s.signIn(domain.RoleUser, "/")

	superseded := s.signIn(domain.RoleAdmin, "/")
	s.signIn(domain.RoleAdmin, "/")

	cases := map[string]string{
		"no header":  "",
		"garbage":    "abc.def.ghi",
		"superseded": superseded,
		"tampered":   swapSignature(valid, superseded),
	}
	for name, token := range cases {
		s.Run(name, func() {
			status, body := s.do("GET", "/whoami", token)
			s.Equal(fiber.StatusOK, status)
			s.Equal(false, body["signed_in"])
		})
	}

	s.Run("signed out", func() {
		claims, err := s.tokens.ParseToken(valid)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Delete(context.Background(), claims.SessionID()))
		_, body := s.do("GET", "/whoami", valid)
		s.Equal(false, body["signed_in"])
	})
}

func (s *MiddlewareSuite) TestStoreErrorsLeaveNoSession() {
	token := s.signIn(domain.RoleAdmin, "/")
	app := fiber.New()
	app.Use(NewMiddleware(s.tokens, brokenStore{}, zap.NewNop()).Handle)
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := PrincipalFromContext(c)
		return c.JSON(fiber.Map{"signed_in": ok})
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	s.Require().NoError(err)
	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(false, body["signed_in"])
}

func (s *MiddlewareSuite) TestRequireRoute() {
	admin := s.signIn(domain.RoleAdmin, "/permission/role/:id")
	user := s.signIn(domain.RoleUser, "/", "/report/*")

	s.Run("allowed", func() {
		status, _ := s.do("PUT", "/roles/user", admin)
		s.Equal(fiber.StatusNoContent, status)
	})

	s.Run("no session redirects to sign-in", func() {
		status, body := s.do("PUT", "/roles/user", "")
		s.Equal(fiber.StatusUnauthorized, status)
		details := body["error"].(map[string]any)["details"].(map[string]any)
		s.Equal("REDIRECT_SIGNIN", details["outcome"])
		s.Equal("/signin", details["redirect"])
		s.Equal("session_absent", details["reason"])
	})

	s.Run("policy miss is forbidden", func() {
		status, body := s.do("PUT", "/roles/user", user)
		s.Equal(fiber.StatusForbidden, status)
		details := body["error"].(map[string]any)["details"].(map[string]any)
		s.Equal("REDIRECT_FORBIDDEN", details["outcome"])
		s.Equal("/403", details["redirect"])
		s.Equal("policy_miss", details["reason"])
	})

	s.Require().Len(s.recorder.decisions, 3)
	s.Equal(access.Allow, s.recorder.decisions[0].Outcome)
}

func (s *MiddlewareSuite) TestRequireSession() {
	token := s.signIn(domain.RoleUser)

	status, _ := s.do("GET", "/signed-in", token)
	s.Equal(fiber.StatusNoContent, status)

	status, body := s.do("GET", "/signed-in", "")
	s.Equal(fiber.StatusUnauthorized, status)
	s.Equal("SIGNIN_REQUIRED", body["error"].(map[string]any)["code"])
}

func (s *MiddlewareSuite) TestRequireSessionHonoursExpiry() {
	token := s.signIn(domain.RoleUser, "/")
	app := fiber.New(fiber.Config{ErrorHandler: s.app.Config().ErrorHandler})
	app.Use(NewMiddleware(s.tokens, s.store, zap.NewNop()).Handle)
	later := func() time.Time { return time.Now().Add(2 * time.Hour) }
	app.Get("/", RequireSession(s.guard, WithGateClock(later)), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	s.Require().NoError(err)
	s.Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

type brokenStore struct{}

func (brokenStore) Save(context.Context, *domain.Credential) error { return errors.New("down") }
func (brokenStore) Load(context.Context, string) (*domain.Credential, error) {
	return nil, errors.New("down")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("down") }

// swapSignature returns token with the signature of other, which is valid
// for a different payload.
func swapSignature(token, other string) string {
	parts := strings.Split(token, ".")
	parts[2] = strings.Split(other, ".")[2]
	return strings.Join(parts, ".")
}
