package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/auth"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/session"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// sessions issues real tokens backed by an in-memory store so handlers see
// the same principal the production middleware would attach.
type sessions struct {
	tokens *auth.TokenManager
	store  *session.InMemoryStore
}

func newSessions() *sessions {
	return &sessions{
		tokens: auth.NewTokenManager("test-secret", "console-access", time.Hour),
		store:  session.NewInMemory(),
	}
}

func (s *sessions) middleware() fiber.Handler {
	return auth.NewMiddleware(s.tokens, s.store, zap.NewNop()).Handle
}

func (s *sessions) signIn(t *testing.T, userID string, role domain.RoleID, patterns ...string) string {
	t.Helper()
	sid := uuid.NewString()
	token, issuedAt, expiresAt, err := s.tokens.GenerateToken(sid, userID, role)
	require.NoError(t, err)
	require.NoError(t, s.store.Save(context.Background(), &domain.Credential{
		SessionID: sid,
		UserID:    userID,
		Role:      role,
		Token:     token,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Patterns:  patterns,
	}))
	return token
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
				"details": domainErr.Details,
			}})
		},
	})
}

func do(t *testing.T, app *fiber.App, method, target, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(payload) == 0 || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	var out map[string]any
	require.NoError(t, json.Unmarshal(payload, &out))
	return resp.StatusCode, out
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return data
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %v", body)
	code, _ := e["code"].(string)
	return code
}
