package handlers

import (
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
)

// NewAPI mounts every /api/v1 route behind bearer authentication.
func NewAPI(verifier *auth.Verifier, logger *slog.Logger, appointments *AppointmentHandler, holidays *HolidayHandler) http.Handler {
	mux := http.NewServeMux()
	appointments.Register(mux)
	holidays.Register(mux)
	return auth.RequireSession(verifier, logger)(mux)
}
