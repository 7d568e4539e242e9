package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/spec-kit/console-access/internal/observability"
	apperrors "github.com/spec-kit/console-access/pkg/util"
)

// RegisterMiddlewares installs the request pipeline, outermost first: request
// id, trace span, error rendering, access log and deadline.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New(requestid.Config{ContextKey: observability.RequestIDKey}))
	app.Use(tracingMiddleware())
	app.Use(errorRenderingMiddleware(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(deadlineMiddleware(timeout))
	}
}

// deadlineMiddleware bounds the request context. A handler that fails
// because the deadline passed answers 504 instead of a generic 500.
func deadlineMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		err := c.Next()
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewDomainError("REQUEST_TIMEOUT", "request timed out", http.StatusGatewayTimeout, nil)
		}
		return err
	}
}

// tracingMiddleware wraps each request in a span named after the matched
// route. Errors are rendered further in, so the span reads the final status.
func tracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := observability.StartSpan(c.UserContext(), c.Method()+" "+c.Path(),
			attribute.String("http.request.method", c.Method()),
			attribute.String("url.path", c.Path()))
		defer span.End()
		c.SetUserContext(ctx)

		err := c.Next()
		observability.RecordError(span, err)

		status := c.Response().StatusCode()
		route := observability.RouteLabel(c)
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if rid, ok := c.Locals(observability.RequestIDKey).(string); ok {
			span.SetAttributes(attribute.String("request.id", rid))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}

// errorRenderingMiddleware turns handler errors and panics into the error
// envelope. Only 5xx responses are logged here; the access log covers the rest.
func errorRenderingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("route", observability.RouteLabel(c)),
					zap.Any("request_id", c.Locals(observability.RequestIDKey)),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			domainErr := apperrors.ToDomainError(err)
			metrics.RecordError(observability.RouteLabel(c), c.Method(), domainErr.Code)
			if domainErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.Error(domainErr),
					zap.String("code", domainErr.Code),
					zap.Any("request_id", c.Locals(observability.RequestIDKey)))
			}
			err = writeError(c, domainErr)
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}
