package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Zachkp/folio/internal/draft"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	toastSuccess = "success"
	toastError   = "error"

	// projectsChanged tells the admin list to refresh itself.
	projectsChanged = "projectsChanged"
)

type toast struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// notify sets the response's single HX-Trigger header carrying one toast and
// any extra client events.
func notify(c *gin.Context, kind, message string, events ...string) {
	payload := map[string]any{"showToast": toast{Message: message, Type: kind}}
	for _, e := range events {
		payload[e] = true
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.Header("HX-Trigger", string(b))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrValidation), errors.Is(err, draft.ErrTitleRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, portfolio.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, portfolio.ErrPersistence),
		errors.Is(err, portfolio.ErrNotReady),
		errors.Is(err, draft.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, draft.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, draft.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the user-facing text for err.
func messageFor(err error) string {
	var verr *portfolio.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, portfolio.ErrNotFound):
		return "Project not found."
	case errors.Is(err, portfolio.ErrPersistence):
		return "Could not save projects. Storage may be full or unavailable."
	case errors.Is(err, portfolio.ErrNotReady):
		return "Projects are still loading. Please try again in a moment."
	case errors.Is(err, draft.ErrTitleRequired):
		return "Please enter a project title first."
	case errors.Is(err, draft.ErrInFlight):
		return "A description is already being generated."
	case errors.Is(err, draft.ErrUnavailable):
		return "Description drafting is not configured."
	case errors.Is(err, draft.ErrGenerationFailed):
		return "Failed to generate description."
	default:
		return "Something went wrong. Please try again."
	}
}

// reject records err, emits one error toast and tells htmx to keep the
// current DOM. It returns the status the caller should respond with.
func (s *server) reject(c *gin.Context, err error) int {
	status := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	notify(c, toastError, messageFor(err))
	c.Header("HX-Reswap", "none")
	return status
}

// rejectJSON is reject for the JSON API.
func (s *server) rejectJSON(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	body := gin.H{"error": messageFor(err)}
	var verr *portfolio.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
	}
	c.AbortWithStatusJSON(status, body)
}
