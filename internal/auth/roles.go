package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/console-access/internal/access"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// DecisionRecorder observes guard decisions made by the route gates.
type DecisionRecorder interface {
	RecordDecision(decision access.Decision)
}

type gateOptions struct {
	now      func() time.Time
	recorder DecisionRecorder
}

// GateOption configures RequireRoute and RequireSession.
type GateOption func(*gateOptions)

// WithGateClock overrides the time source used for session validity.
func WithGateClock(now func() time.Time) GateOption {
	return func(o *gateOptions) { o.now = now }
}

// WithRecorder reports every decision to r.
func WithRecorder(r DecisionRecorder) GateOption {
	return func(o *gateOptions) { o.recorder = r }
}

func buildGateOptions(opts []GateOption) gateOptions {
	o := gateOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RequireRoute admits the request only if the guard allows the caller to view
// route, the console screen the endpoint backs. Parameters in route are
// filled from the request's route params, so "/permission/role/:id" is
// checked as "/permission/role/<id>".
func RequireRoute(guard access.Guard, route string, opts ...GateOption) fiber.Handler {
	o := buildGateOptions(opts)
	return func(c *fiber.Ctx) error {
		sess, table := SessionFromContext(c)
		decision := guard.Evaluate(sess, table, expandRoute(c, route), o.now())
		if o.recorder != nil {
			o.recorder.RecordDecision(decision)
		}
		if err := decisionError(decision); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireSession admits any caller with a valid session regardless of role.
func RequireSession(guard access.Guard, opts ...GateOption) fiber.Handler {
	o := buildGateOptions(opts)
	return func(c *fiber.Ctx) error {
		sess, _ := SessionFromContext(c)
		if access.IsValid(sess, o.now()) {
			return c.Next()
		}
		decision := guard.Evaluate(sess, nil, "/", o.now())
		if o.recorder != nil {
			o.recorder.RecordDecision(decision)
		}
		return decisionError(decision)
	}
}

func decisionError(decision access.Decision) error {
	details := map[string]any{
		"outcome":  decision.Outcome,
		"redirect": decision.Redirect,
		"reason":   decision.Reason,
	}
	switch decision.Outcome {
	case access.Allow:
		return nil
	case access.RedirectSignIn:
		return apperrors.NewDomainError("SIGNIN_REQUIRED", "sign in to continue", http.StatusUnauthorized, details)
	default:
		return apperrors.NewDomainError("FORBIDDEN", "you do not have access to this screen", http.StatusForbidden, details)
	}
}

func expandRoute(c *fiber.Ctx, route string) string {
	segments := strings.Split(strings.Trim(route, "/"), "/")
	for i, segment := range segments {
		if len(segment) > 1 && segment[0] == ':' {
			segments[i] = c.Params(segment[1:])
		}
	}
	return "/" + strings.Join(segments, "/")
}
