package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/campuswatch/internal/application"
	"github.com/atvirokodosprendimai/campuswatch/internal/domain"
)

type Handler struct {
	service   *application.MonitorService
	scheduler *application.Scheduler
}

// NewRouter builds the daemon's local control surface. It binds to loopback
// by default and carries no credentials of its own; the remote authority
// enforces access on the commands it cares about.
func NewRouter(service *application.MonitorService, scheduler *application.Scheduler, wsHandler http.HandlerFunc) http.Handler {
	h := &Handler{service: service, scheduler: scheduler}
	r := chi.NewRouter()

	r.Route("/api", func(api chi.Router) {
		api.Get("/snapshot", h.handleSnapshot)
		api.Get("/alerts", h.handleAlerts)
		api.Get("/report", h.handleReport)
		api.Post("/locations/{id}/enter", h.handleEnter)
		api.Post("/locations/{id}/exit", h.handleExit)
		api.Post("/refresh", h.handleRefresh)
		api.Post("/simulate", h.handleSimulate)
		api.Post("/reset", h.handleReset)
		api.Post("/auto/enable", h.handleAutoEnable)
		api.Post("/auto/disable", h.handleAutoDisable)
		api.Get("/scheduler", h.handleSchedulerState)
		api.Get("/forecast/{id}", h.handleForecast)
		api.Get("/history", h.handleHistory)
		api.Post("/login", h.handleLogin)
		api.Post("/session", h.handleSessionSet)
		api.Delete("/session", h.handleSessionClear)
		api.Get("/archive", h.handleArchive)
		api.Get("/archive/{id}", h.handleArchiveDetail)
	})

	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	return r
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"alerts": h.service.Alerts()})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Report())
}

func (h *Handler) handleEnter(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, h.service.Enter)
}

func (h *Handler) handleExit(w http.ResponseWriter, r *http.Request) {
	h.handleCommand(w, r, h.service.Exit)
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request, command func(context.Context, int) (domain.CommandResult, error)) {
	locationID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid location id"})
		return
	}

	result, err := command(r.Context(), locationID)
	switch {
	case errors.Is(err, application.ErrUnknownLocation):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, application.ErrCommandInFlight):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrTransport):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.ForceRefresh(r.Context()); err != nil {
		// The last known snapshot still rides along so the caller sees
		// the stale-but-available state.
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "snapshot": h.service.Snapshot()})
		return
	}
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Simulate(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	if err := h.service.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

func (h *Handler) handleAutoEnable(w http.ResponseWriter, r *http.Request) {
	h.scheduler.EnableAuto()
	writeJSON(w, http.StatusOK, map[string]any{"auto": true})
}

func (h *Handler) handleAutoDisable(w http.ResponseWriter, r *http.Request) {
	h.scheduler.DisableAuto()
	writeJSON(w, http.StatusOK, map[string]any{"auto": false})
}

func (h *Handler) handleSchedulerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.scheduler.State(),
		"auto":  h.scheduler.AutoEnabled(),
	})
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	locationID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid location id"})
		return
	}
	forecast, err := h.service.Forecast(r.Context(), locationID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, forecast)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	var locationID *int
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid location_id"})
			return
		}
		locationID = &parsed
	}
	logs, err := h.service.History(r.Context(), locationID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": session.Token})
}

type sessionRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleSessionSet(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid session payload"})
		return
	}
	h.service.SetSession(domain.Session{Token: req.Token})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	h.service.ClearSession()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	entries, err := h.service.ArchivedSnapshots(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": entries})
}

func (h *Handler) handleArchiveDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid snapshot id"})
		return
	}
	locations, err := h.service.ArchivedSnapshotDetail(r.Context(), uint(id))
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
