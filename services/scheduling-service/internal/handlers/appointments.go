package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
	"github.com/md-rashed-zaman/clinicagenda/libs/httpx"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

const naiveLayout = "2006-01-02T15:04:05"

// SlotFinder computes free start times for a day.
type SlotFinder interface {
	FindFreeSlots(ctx context.Context, q availability.Query) ([]wallclock.TimeOfDay, error)
}

type AppointmentHandler struct {
	bookings *booking.Service
	slots    SlotFinder
	logger   *slog.Logger
}

func NewAppointmentHandler(bookings *booking.Service, slots SlotFinder, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{bookings: bookings, slots: slots, logger: logger}
}

func (h *AppointmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/appointments/free-slots", h.FreeSlots)
	mux.HandleFunc("POST /api/v1/appointments", h.Create)
	mux.HandleFunc("GET /api/v1/appointments", h.List)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/appointments/{id}", h.Update)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.Delete)
	mux.HandleFunc("POST /api/v1/appointments/{id}/start", h.Start)
	mux.HandleFunc("POST /api/v1/appointments/{id}/wait", h.Wait)
	mux.HandleFunc("POST /api/v1/appointments/{id}/begin-service", h.BeginService)
	mux.HandleFunc("POST /api/v1/appointments/{id}/complete", h.Complete)
	mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", h.Cancel)
	mux.HandleFunc("GET /api/v1/patients/{id}/appointments", h.ListByPatient)
}

type appointmentResponse struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenant_id"`
	PatientID      string  `json:"paciente_id"`
	ProfessionalID string  `json:"academico_id"`
	SupervisorID   *string `json:"orientador_id"`
	TreatmentID    *string `json:"tratamento_id"`
	ServiceID      *string `json:"servico_id"`
	CareType       *string `json:"tipo_atendimento"`
	Start          string  `json:"inicio"`
	End            string  `json:"fim"`
	Status         string  `json:"status"`
	Notes          *string `json:"observacoes"`
	ActualStart    *string `json:"hora_inicio_atendimento"`
	ActualEnd      *string `json:"hora_fim_atendimento"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(naiveLayout)
	return &s
}

func toResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID,
		TenantID:       a.TenantID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		SupervisorID:   optional(a.SupervisorID),
		TreatmentID:    optional(a.TreatmentID),
		ServiceID:      optional(a.ServiceID),
		CareType:       optional(a.CareType),
		Start:          a.StartTime.Format(naiveLayout),
		End:            a.EndTime.Format(naiveLayout),
		Status:         string(a.Status),
		Notes:          optional(a.Notes),
		ActualStart:    optionalTime(a.ActualStart),
		ActualEnd:      optionalTime(a.ActualEnd),
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toResponses(in []model.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, len(in))
	for i, a := range in {
		out[i] = toResponse(a)
	}
	return out
}

// statusAliases accepts the labels the front desk uses alongside the API values.
var statusAliases = map[string]model.Status{
	"agendado":       model.StatusScheduled,
	"iniciado":       model.StatusStarted,
	"aguardando":     model.StatusWaiting,
	"em_atendimento": model.StatusInProgress,
	"concluido":      model.StatusCompleted,
	"cancelado":      model.StatusCancelled,
}

func parseStatus(raw string) model.Status {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusAliases[raw]; ok {
		return s
	}
	return model.Status(raw)
}

type appointmentRequest struct {
	PatientID      *string `json:"paciente_id"`
	ProfessionalID *string `json:"academico_id"`
	SupervisorID   *string `json:"orientador_id"`
	TreatmentID    *string `json:"tratamento_id"`
	ServiceID      *string `json:"servico_id"`
	CareType       *string `json:"tipo_atendimento"`
	Start          *string `json:"inicio"`
	End            *string `json:"fim"`
	Status         *string `json:"status"`
	Notes          *string `json:"observacoes"`
	PatientEmail   string  `json:"paciente_email"`
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func parseTimeField(name string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := wallclock.ParseDateTime(*raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &t, nil
}

func (h *AppointmentHandler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	day, err := wallclock.ParseDate(q.Get("target_date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid target_date, expected YYYY-MM-DD")
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(q.Get("duration_minutes")))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid duration_minutes")
		return
	}

	slots, err := h.slots.FindFreeSlots(r.Context(), availability.Query{
		TenantID:        s.TenantID,
		ProfessionalID:  strings.TrimSpace(q.Get("academico_id")),
		Date:            day,
		DurationMinutes: duration,
	})
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req appointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Start == nil || req.End == nil {
		httpx.WriteError(w, http.StatusBadRequest, "inicio and fim are required")
		return
	}
	start, err := parseTimeField("inicio", req.Start)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseTimeField("fim", req.End)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := booking.CreateInput{
		TenantID:       s.TenantID,
		PatientID:      value(req.PatientID),
		ProfessionalID: value(req.ProfessionalID),
		SupervisorID:   value(req.SupervisorID),
		TreatmentID:    value(req.TreatmentID),
		ServiceID:      value(req.ServiceID),
		CareType:       value(req.CareType),
		Start:          *start,
		End:            *end,
		Notes:          value(req.Notes),
		PatientEmail:   strings.TrimSpace(req.PatientEmail),
	}
	if req.Status != nil {
		in.Status = parseStatus(*req.Status)
	}

	appt, err := h.bookings.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(appt))
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req appointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := parseTimeField("inicio", req.Start)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseTimeField("fim", req.End)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := booking.UpdateInput{
		TenantID:       s.TenantID,
		ID:             r.PathValue("id"),
		PatientID:      trimmed(req.PatientID),
		ProfessionalID: trimmed(req.ProfessionalID),
		SupervisorID:   trimmed(req.SupervisorID),
		TreatmentID:    trimmed(req.TreatmentID),
		ServiceID:      trimmed(req.ServiceID),
		CareType:       trimmed(req.CareType),
		Start:          start,
		End:            end,
		Notes:          req.Notes,
		PatientEmail:   strings.TrimSpace(req.PatientEmail),
	}
	if req.Status != nil {
		st := parseStatus(*req.Status)
		in.Status = &st
	}

	appt, err := h.bookings.Update(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(appt))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	appt, err := h.bookings.Get(r.Context(), s.TenantID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	appt, err := h.bookings.Delete(r.Context(), s.TenantID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(appt))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	offset, limit, err := paging(q.Get("skip"), q.Get("limit"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	f := model.AppointmentFilter{
		TenantID:       s.TenantID,
		ProfessionalID: strings.TrimSpace(q.Get("academico_id")),
		SupervisorID:   strings.TrimSpace(q.Get("orientador_id")),
		ServiceID:      strings.TrimSpace(q.Get("servico_id")),
		PatientID:      strings.TrimSpace(q.Get("paciente_id")),
		Offset:         offset,
		Limit:          limit,
	}
	if raw := q.Get("status"); raw != "" {
		f.Status = parseStatus(raw)
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		if f.Date, err = wallclock.ParseDate(raw); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	list, err := h.bookings.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponses(list))
}

func (h *AppointmentHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	offset, limit, err := paging(r.URL.Query().Get("skip"), r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.bookings.ListByPatient(r.Context(), s.TenantID, r.PathValue("id"), offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponses(list))
}

type transitionFunc func(ctx context.Context, tenantID, id string) (model.Appointment, error)

func (h *AppointmentHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := session(w, r)
		if !ok {
			return
		}
		appt, err := fn(r.Context(), s.TenantID, r.PathValue("id"))
		if err != nil {
			writeServiceError(w, h.logger, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toResponse(appt))
	}
}

func (h *AppointmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(h.bookings.Start)(w, r)
}

func (h *AppointmentHandler) Wait(w http.ResponseWriter, r *http.Request) {
	h.transition(h.bookings.Wait)(w, r)
}

func (h *AppointmentHandler) BeginService(w http.ResponseWriter, r *http.Request) {
	h.transition(h.bookings.BeginService)(w, r)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(h.bookings.Cancel)(w, r)
}

type completeRequest struct {
	Notes *string `json:"observacoes"`
}

// Complete takes the closing notes from the observacoes query parameter or
// from a JSON body.
func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var notes *string
	if r.URL.Query().Has("observacoes") {
		n := r.URL.Query().Get("observacoes")
		notes = &n
	} else {
		var req completeRequest
		if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		notes = req.Notes
	}

	appt, err := h.bookings.Complete(r.Context(), s.TenantID, r.PathValue("id"), notes)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(appt))
}

func session(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, err := auth.SessionFromContext(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return auth.Session{}, false
	}
	return s, true
}

func paging(rawSkip, rawLimit string) (int, int, error) {
	var offset, limit int
	var err error
	if rawSkip = strings.TrimSpace(rawSkip); rawSkip != "" {
		if offset, err = strconv.Atoi(rawSkip); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid skip")
		}
	}
	if rawLimit = strings.TrimSpace(rawLimit); rawLimit != "" {
		if limit, err = strconv.Atoi(rawLimit); err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	return offset, limit, nil
}
