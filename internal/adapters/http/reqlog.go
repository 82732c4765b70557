package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// RequestContextMiddleware starts a server span for the request and stores a
// request-scoped logger, tagged with the request and trace IDs, in the user
// context handed to services.
func RequestContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, span := telemetry.Tracer().Start(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
			))
		defer span.End()

		logger := slog.Default()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			logger = logger.With("request_id", rid)
			span.SetAttributes(attribute.String("http.request_id", rid))
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			logger = logger.With("trace_id", sc.TraceID().String())
		}
		c.SetUserContext(context.WithValue(ctx, loggerKey, logger))

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
		}
		if err != nil || status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "request failed")
		}
		return err
	}
}

// LoggerFromCtx extracts the per-request slog.Logger from a context.
// Falls back to the default logger if none is set.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
