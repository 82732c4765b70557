package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that the handler
// left unset.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return err
		}
		if c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}

		if ttl := cacheControlFor(c.Path()); ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

func cacheControlFor(path string) string {
	switch {
	case path == "/v1/health" || path == "/v1/ready" || path == "/metrics":
		return "no-cache"
	case strings.HasPrefix(path, "/v1/stations"):
		// Stations refresh at most a few times per day.
		return "public, max-age=300"
	case strings.HasPrefix(path, "/v1/trips/") && strings.HasSuffix(path, "/legs"):
		return "public, max-age=60"
	default:
		return ""
	}
}
