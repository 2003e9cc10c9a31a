package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

// RequestsResponse is returned by the list and move endpoints.
type RequestsResponse struct {
	Requests []models.SongRequest  `json:"requests"`
	Counts   map[models.Status]int `json:"counts"`
	SyncedAt time.Time             `json:"synced_at"`
}

// MoveResponse reports whether a reorder changed the queue, with the resulting pending view.
type MoveResponse struct {
	Moved   bool                 `json:"moved"`
	Pending []models.SongRequest `json:"pending"`
}

type statusBody struct {
	Status string `json:"status"`
}

type moveBody struct {
	Direction string `json:"direction"`
}

// APIHandler serves the JSON API over a [lifecycle.Manager].
type APIHandler struct {
	manager *lifecycle.Manager
	limiter *ClientLimiter
	logger  *log.Logger
	mux     *http.ServeMux
}

// NewAPIHandler creates the JSON API. A nil limiter leaves submissions unlimited.
func NewAPIHandler(manager *lifecycle.Manager, limiter *ClientLimiter, logger *log.Logger) *APIHandler {
	if limiter == nil {
		limiter = NewClientLimiter(0, 1)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	h := &APIHandler{manager: manager, limiter: limiter, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/requests", h.List)
	h.mux.Handle("POST /api/requests", limiter.Limit(http.HandlerFunc(h.Submit)))
	h.mux.HandleFunc("POST /api/requests/{id}/status", h.SetStatus)
	h.mux.HandleFunc("POST /api/requests/{id}/move", h.Move)
	h.mux.HandleFunc("POST /api/refresh", h.Refresh)
	return h
}

// Routes returns the API route patterns.
func (h *APIHandler) Routes() []string {
	return []string{
		"GET /api/requests",
		"POST /api/requests",
		"POST /api/requests/{id}/status",
		"POST /api/requests/{id}/move",
		"POST /api/refresh",
	}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// List handles GET /api/requests
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	requests := h.manager.Snapshot()
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		requests = h.manager.ViewFor(status)
	}

	JSONResponse(w, http.StatusOK, RequestsResponse{
		Requests: requests,
		Counts:   h.manager.Counts(),
		SyncedAt: h.manager.SyncedAt(),
	})
}

// Submit handles POST /api/requests
func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body models.NewSongRequest
	if err := ParseJSONBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	created, err := h.manager.Submit(r.Context(), body)
	if err != nil {
		h.logger.Warn("submission failed", "client", GetClientIP(r), "error", err)
		WriteError(w, err)
		return
	}

	JSONResponse(w, http.StatusCreated, created)
}

// SetStatus handles POST /api/requests/{id}/status
func (h *APIHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := ParseJSONBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	status, err := models.ParseStatus(body.Status)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.manager.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		WriteError(w, err)
		return
	}

	JSONResponse(w, http.StatusOK, updated)
}

// Move handles POST /api/requests/{id}/move
func (h *APIHandler) Move(w http.ResponseWriter, r *http.Request) {
	var body moveBody
	if err := ParseJSONBody(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	direction, err := models.ParseDirection(body.Direction)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	moved, err := h.manager.Reorder(r.Context(), r.PathValue("id"), direction)
	if err != nil {
		WriteError(w, err)
		return
	}

	JSONResponse(w, http.StatusOK, MoveResponse{Moved: moved, Pending: h.manager.ViewFor(models.StatusPending)})
}

// Refresh handles POST /api/refresh
func (h *APIHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Refresh(r.Context()); err != nil {
		WriteError(w, err)
		return
	}

	JSONResponse(w, http.StatusOK, RequestsResponse{
		Requests: h.manager.Snapshot(),
		Counts:   h.manager.Counts(),
		SyncedAt: h.manager.SyncedAt(),
	})
}
