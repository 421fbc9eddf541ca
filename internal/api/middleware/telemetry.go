package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/observability/metrics"
)

// TelemetryMiddleware records request counts, latency and error types.
type TelemetryMiddleware struct {
	httpMetrics *metrics.HTTPMetrics
}

// NewTelemetryMiddleware creates a new telemetry middleware instance
func NewTelemetryMiddleware(httpMetrics *metrics.HTTPMetrics) *TelemetryMiddleware {
	return &TelemetryMiddleware{httpMetrics: httpMetrics}
}

// Middleware returns the Echo middleware function
func (tm *TelemetryMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// route template, never the raw URL
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			statusCode := c.Response().Status
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				statusCode = httpErr.Code
			}
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			tm.httpMetrics.RecordHTTPRequest(method, path, statusCode, time.Since(start).Seconds())
			if err != nil || statusCode >= http.StatusBadRequest {
				tm.httpMetrics.RecordHTTPRequestError(method, path, categorizeError(err, statusCode))
			}

			return err
		}
	}
}

// categorizeError maps an error or status code to a metric label.
func categorizeError(err error, statusCode int) string {
	var enhancedErr *errors.EnhancedError
	if errors.As(err, &enhancedErr) {
		switch enhancedErr.GetCategory() {
		case string(errors.CategoryValidation):
			return "validation"
		case string(errors.CategoryCancellation), string(errors.CategoryTimeout):
			return "cancelled"
		case string(errors.CategoryConfiguration):
			return "configuration"
		default:
			return "system"
		}
	}

	switch {
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnprocessableEntity:
		return "validation"
	case statusCode == http.StatusNotFound, statusCode == http.StatusMethodNotAllowed:
		return "not_found"
	case statusCode == http.StatusRequestEntityTooLarge:
		return "too_large"
	case statusCode >= http.StatusInternalServerError:
		return "system"
	default:
		return "http_error"
	}
}
