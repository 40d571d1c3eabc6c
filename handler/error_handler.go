package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/vtn/pkg/logger"
)

// statusOf returns the HTTP status an error will be answered with.
func statusOf(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

// logLevelOf keeps client errors out of the error level.
func logLevelOf(status int) slog.Level {
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// NewErrorHandler returns an ErrorHandler that logs the error with request
// context and answers with a problem document.
func NewErrorHandler[C Context](log *slog.Logger) ErrorHandler[C] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx C, err error) {
		r := ctx.Request()
		status := statusOf(err)
		log.LogAttrs(r.Context(), logLevelOf(status), "request error",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)
		_ = ProblemFrom(err).Render(ctx.ResponseWriter(), r)
	}
}
