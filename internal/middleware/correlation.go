package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// correlationHeaders is checked in order; proxies commonly forward
// X-Request-ID instead of X-Correlation-ID.
var correlationHeaders = []string{"X-Correlation-ID", "X-Request-ID"}

type correlationCtxKey struct{}

// CorrelationID tags every request with a correlation identifier. The id is
// echoed back on the response and survives the websocket upgrade, so every
// event and history row of an evaluation session can be traced to the
// request that started it.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := resolveCorrelation(c)

		c.Locals("correlation_id", id)
		c.Set("X-Correlation-ID", id)
		c.SetUserContext(context.WithValue(c.Context(), correlationCtxKey{}, id))

		return c.Next()
	}
}

func resolveCorrelation(c *fiber.Ctx) string {
	for _, header := range correlationHeaders {
		if id := strings.TrimSpace(c.Get(header)); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// GetCorrelationID returns the identifier bound to the active request, or
// an empty string outside the middleware.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.Context())
}

// CorrelationIDFromContext extracts the identifier from a context carried
// past the request, e.g. into history writes.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// ContextWithCorrelation rebinds the identifier onto a fresh context, used
// when a websocket session outlives the upgrade request.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationCtxKey{}, correlationID)
}
