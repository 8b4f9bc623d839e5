package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
	"github.com/md-rashed-zaman/clinicagenda/libs/httpx"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/holidays"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/storage"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, booking.ErrValidation),
		errors.Is(err, booking.ErrInvalidRange),
		errors.Is(err, holidays.ErrValidation),
		errors.Is(err, wallclock.ErrInvalidTime):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized
	case storage.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrOverlap),
		errors.Is(err, booking.ErrIllegalTransition),
		storage.IsDuplicate(err):
		return http.StatusConflict
	case storage.IsTransient(err),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusConflict:
		if storage.IsDuplicate(err) {
			msg = "already exists"
		}
	case http.StatusServiceUnavailable:
		msg = "storage unavailable, retry later"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"err", err,
		)
	}
	httpx.WriteError(w, status, msg)
}
