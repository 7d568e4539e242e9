package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/api/dto"
	"github.com/spec-kit/console-access/internal/auth"
	"github.com/spec-kit/console-access/internal/domain"
	"github.com/spec-kit/console-access/internal/policy"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// ReasonPublicView marks a check answered without the guard because the
// path is one of the redirect targets.
const ReasonPublicView access.Reason = "public_view"

// AccessHandler answers the console router's per-navigation checks.
type AccessHandler struct {
	guard    access.Guard
	menu     policy.MenuSource
	recorder auth.DecisionRecorder
	logger   *zap.Logger
	now      func() time.Time
	public   map[string]struct{}
}

// NewAccessHandler constructs handler. recorder may be nil.
func NewAccessHandler(guard access.Guard, menu policy.MenuSource, recorder auth.DecisionRecorder, logger *zap.Logger) *AccessHandler {
	public := make(map[string]struct{}, 2)
	for _, p := range []string{guard.SignInPath(), guard.ForbiddenPath()} {
		if normalized, ok := access.NormalizePath(p); ok {
			public[normalized] = struct{}{}
		}
	}
	return &AccessHandler{
		guard:    guard,
		menu:     menu,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		public:   public,
	}
}

// WithClock overrides the time source. Used in tests.
func (h *AccessHandler) WithClock(now func() time.Time) *AccessHandler {
	h.now = now
	return h
}

// Check handles GET /access/check?path=.
func (h *AccessHandler) Check(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return fiber.NewError(http.StatusBadRequest, "path query parameter required")
	}

	if normalized, ok := access.NormalizePath(path); ok {
		if _, public := h.public[normalized]; public {
			return c.JSON(fiber.Map{"data": dto.CheckResponse{
				Path:    path,
				Outcome: access.Allow,
				Reason:  ReasonPublicView,
				Public:  true,
			}})
		}
	}

	sess, table := auth.SessionFromContext(c)
	decision := h.guard.Evaluate(sess, table, path, h.now())
	if h.recorder != nil {
		h.recorder.RecordDecision(decision)
	}
	if !decision.Allowed() {
		fields := []zap.Field{
			zap.String("path", path),
			zap.String("outcome", string(decision.Outcome)),
			zap.String("reason", string(decision.Reason)),
		}
		if sess != nil {
			fields = append(fields, zap.String("session_id", sess.ID), zap.String("role", string(sess.Role)))
		}
		h.logger.Debug("access denied", fields...)
	}

	return c.JSON(fiber.Map{"data": dto.CheckResponse{
		Path:     path,
		Outcome:  decision.Outcome,
		Redirect: decision.Redirect,
		Reason:   decision.Reason,
		Pattern:  decision.Pattern,
	}})
}

// Menu handles GET /access/menu. It returns the navigation entries the
// session's role may open; the route is gated by a valid session.
func (h *AccessHandler) Menu(c *fiber.Ctx) error {
	sess, table := auth.SessionFromContext(c)
	if sess == nil {
		return fiber.NewError(http.StatusUnauthorized, "no session")
	}
	entries, err := h.menu.Menu(c.UserContext())
	if err != nil {
		h.logger.Error("load console menu", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	visible := access.VisibleMenu(entries, table, sess.Role)
	if visible == nil {
		visible = []domain.RouteEntry{}
	}
	return c.JSON(fiber.Map{"data": visible})
}
