package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
	"github.com/md-rashed-zaman/clinicagenda/libs/httpx"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/holidays"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/wallclock"
)

type HolidayHandler struct {
	holidays *holidays.Service
	logger   *slog.Logger
}

func NewHolidayHandler(svc *holidays.Service, logger *slog.Logger) *HolidayHandler {
	return &HolidayHandler{holidays: svc, logger: logger}
}

// Register mounts the routes. Changes to the calendar are admin only.
func (h *HolidayHandler) Register(mux *http.ServeMux) {
	admin := func(fn http.HandlerFunc) http.Handler {
		return auth.RequireRole(fn, auth.RoleAdmin)
	}
	mux.HandleFunc("GET /api/v1/holidays", h.List)
	mux.Handle("POST /api/v1/holidays", admin(h.Create))
	mux.HandleFunc("GET /api/v1/holidays/{id}", h.Get)
	mux.Handle("PUT /api/v1/holidays/{id}", admin(h.Update))
	mux.Handle("DELETE /api/v1/holidays/{id}", admin(h.Delete))
}

type holidayResponse struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Date      wallclock.Date `json:"data"`
	Name      string         `json:"nome"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

func toHolidayResponse(hd model.Holiday) holidayResponse {
	return holidayResponse{
		ID:        hd.ID,
		TenantID:  hd.TenantID,
		Date:      hd.Date,
		Name:      hd.Name,
		CreatedAt: hd.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: hd.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type holidayRequest struct {
	Date *wallclock.Date `json:"data"`
	Name *string         `json:"nome"`
}

func (h *HolidayHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	offset, limit, err := paging(r.URL.Query().Get("skip"), r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.holidays.List(r.Context(), s.TenantID, offset, limit)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	out := make([]holidayResponse, len(list))
	for i, hd := range list {
		out[i] = toHolidayResponse(hd)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *HolidayHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req holidayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Date == nil || req.Name == nil {
		httpx.WriteError(w, http.StatusBadRequest, "data and nome are required")
		return
	}
	hd, err := h.holidays.Create(r.Context(), s.TenantID, *req.Date, *req.Name)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toHolidayResponse(hd))
}

func (h *HolidayHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	hd, err := h.holidays.Get(r.Context(), s.TenantID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toHolidayResponse(hd))
}

func (h *HolidayHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	var req holidayRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	hd, err := h.holidays.Update(r.Context(), s.TenantID, r.PathValue("id"), req.Date, req.Name)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toHolidayResponse(hd))
}

func (h *HolidayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}
	hd, err := h.holidays.Delete(r.Context(), s.TenantID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toHolidayResponse(hd))
}
