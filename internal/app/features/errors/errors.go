// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/stratablog/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// ErrorLogger records server-side failures with the request that hit them.
type ErrorLogger struct {
	logger *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log writes msg at error level tagged with the request's method and path
// plus any extra fields.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error, fields ...zap.Field) {
	e.logger.Error(msg, append([]zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}, fields...)...)
}

// Write answers with err and logs it when the error is not the caller's
// fault (upstream and unclassified failures).
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindUpstream, apperr.KindUnknown:
		e.Log(r, msg, err)
	}
	jsonutil.WriteError(w, err)
}

// Handler answers unmatched routes in JSON like the rest of the API.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers 404 for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.NotFound(w, "not found")
}

// MethodNotAllowed answers 405 for known routes hit with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
}
