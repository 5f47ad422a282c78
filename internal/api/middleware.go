package api

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/DIMO-Network/gas-price-strategy/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// MetricsAndLogMiddleware tracks request counts and latencies by route and
// status, and logs failed requests.
func MetricsAndLogMiddleware(logger *zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}

		method := c.Method() + " " + c.Route().Path
		labels := prometheus.Labels{"method": method, "status": strconv.Itoa(status)}
		metrics.APIResponseTime.With(labels).Observe(time.Since(startTime).Seconds())
		metrics.APIRequestCount.With(labels).Inc()

		if err != nil {
			logger.Err(err).Int("status", status).Str("method", method).Msg("API request error.")
		}

		return err
	}
}

// PanicRecoveryMiddleware turns a panic in a handler into a 500.
func PanicRecoveryMiddleware(logger *zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if p := recover(); p != nil {
				metrics.APIPanicsCount.Inc()
				logger.Err(fmt.Errorf("%v", p)).Str("stack", string(debug.Stack())).Msg("API recovered from panic.")
				err = fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("%v", p))
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders errors as {"message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}
