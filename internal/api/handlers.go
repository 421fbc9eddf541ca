package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/srthknk/biomuseum/internal/errors"
	"github.com/srthknk/biomuseum/internal/logger"
	"github.com/srthknk/biomuseum/internal/pipeline"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError logs err and writes it as an ErrorResponse.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method),
		logger.String("ip", c.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	log := s.log.WithContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Warn("API error", fields...)
	}

	return c.JSON(code, resp)
}

// VerifiedImages runs the image pipeline for the organism in the body.
func (s *Server) VerifiedImages(c echo.Context) error {
	var req pipeline.Request
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "Invalid request body", http.StatusBadRequest)
	}

	resp, err := s.searcher.Search(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidQuery) {
			return s.HandleError(c, err, "organism_name is required", http.StatusBadRequest)
		}
		return s.HandleError(c, err, "Image search failed", http.StatusInternalServerError)
	}

	if !resp.Success {
		s.log.WithContext(c.Request().Context()).Error("image search failed, served placeholders",
			logger.String("organism", req.OrganismName),
			logger.String("error", resp.Error))
	}
	return c.JSON(http.StatusOK, resp)
}

// HealthCheck reports liveness and build metadata.
func (s *Server) HealthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.build.GetVersion(),
		"build_date":     s.build.GetBuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
		"resources":      captureResourceUsage(),
	})
}
