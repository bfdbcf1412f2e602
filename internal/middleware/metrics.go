package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/metrics"
)

// Metrics records request counts and latency per route template, so
// /api/public/alice and /api/public/bob share one series.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" || route == "/" {
			route = c.Path()
		}
		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}

		metrics.HTTPRequestsTotal.WithLabelValues(strconv.Itoa(code), route).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if code >= 500 {
			metrics.HTTPErrorsTotal.WithLabelValues(route).Inc()
		}
		return err
	}
}
