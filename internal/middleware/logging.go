package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/pkg/logger"
)

// quietPaths are polled by health checks and scrapers and only logged on failure.
var quietPaths = map[string]bool{"/health": true, "/metrics": true}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func logHTTP(c *fiber.Ctx, level string, action string, err error, details map[string]interface{}) {
	userID := logger.GetUserIDFromContext(c)
	switch {
	case level == "error" && userID != nil:
		logger.ErrorWithUser(*userID, action, err, details)
	case level == "error":
		logger.Error(action, err, details)
	case level == "warn" && userID != nil:
		logger.WarnWithUser(*userID, action, details)
	case level == "warn":
		logger.Warn(action+"_unauthenticated", details)
	case userID != nil:
		logger.InfoWithUser(*userID, action, details)
	default:
		logger.Info(action, details)
	}
}

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Locals("requestID", requestID)
		c.Set("X-Request-ID", requestID)

		err := c.Next()

		statusCode := c.Response().StatusCode()
		if quietPaths[c.Path()] && statusCode < 400 {
			return err
		}

		details := map[string]interface{}{
			"method":        c.Method(),
			"path":          c.Path(),
			"route":         routeTemplate(c),
			"status_code":   statusCode,
			"latency_ms":    time.Since(start).Milliseconds(),
			"user_agent":    c.Get("User-Agent"),
			"ip":            c.IP(),
			"request_body":  logger.GetRequestBodySummary(c),
			"response_body": logger.GetResponseSizeSummary(c),
			"request_id":    requestID,
		}

		level := "info"
		if statusCode >= 500 {
			level = "error"
		} else if statusCode >= 400 {
			level = "warn"
		}
		logHTTP(c, level, "http_request", err, details)
		return err
	}
}

// SecurityLogger records refused requests: bad credentials, admin-only
// routes, the NSFW gate and lookups of unknown profiles or media.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		var reason string
		switch c.Response().StatusCode() {
		case fiber.StatusUnauthorized:
			reason = "unauthorized"
		case fiber.StatusForbidden:
			reason = "access_denied"
		case fiber.StatusUnavailableForLegalReasons:
			reason = "age_gate"
		case fiber.StatusNotFound:
			if !strings.HasPrefix(c.Path(), "/api/public/") && !strings.HasPrefix(c.Path(), "/api/media/") {
				return err
			}
			reason = "not_found"
		default:
			return err
		}

		logHTTP(c, "warn", reason, nil, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"route":  routeTemplate(c),
			"ip":     c.IP(),
			"reason": reason,
		})
		return err
	}
}
