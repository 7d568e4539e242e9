package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/session"
)

const principalKey = "auth_principal"

// Principal is the session resolved for a request together with the policy
// snapshot it carries.
type Principal struct {
	Session *domain.Session
	Table   *access.PolicyTable
}

// Middleware resolves bearer tokens to sessions. It never rejects a request:
// a missing, malformed, expired or superseded token simply leaves the request
// without a principal, and the route gates decide what that means.
type Middleware struct {
	tokens *TokenManager
	store  session.Store
	logger *zap.Logger
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, store session.Store, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, store: store, logger: logger}
}

// Handle attaches the principal when the request carries a usable token.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		m.logger.Debug("rejected bearer token", zap.Error(err))
		return c.Next()
	}

	cred, err := m.store.Load(c.UserContext(), claims.SessionID())
	if err != nil {
		if !errors.Is(err, session.ErrAbsent) {
			m.logger.Warn("session lookup failed", zap.String("session_id", claims.SessionID()), zap.Error(err))
		}
		return c.Next()
	}
	if cred.Token != token || cred.UserID != claims.UserID() || cred.Role != claims.Role {
		m.logger.Debug("token does not match stored credential", zap.String("session_id", claims.SessionID()))
		return c.Next()
	}

	c.Locals(principalKey, &Principal{
		Session: cred.Session(),
		Table:   access.SnapshotTable(cred.Role, cred.Patterns),
	})
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// PrincipalFromContext retrieves the resolved session.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}

// SessionFromContext returns the session and table for the guard. Both are
// nil when the request has no principal.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, *access.PolicyTable) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, nil
	}
	return principal.Session, principal.Table
}
