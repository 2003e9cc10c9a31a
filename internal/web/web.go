// Package web serves the attendee request form and the DJ dashboard as server-rendered HTML.
//
// Pages are plain forms posting back to the server; every dashboard action redirects to GET /dashboard
// (303 See Other) so a browser refresh never repeats a mutation. Failures are carried back to the dashboard
// as a flash message in the "error" query parameter.
//
// Routes
//
//	GET  /                                → request form
//	POST /requests                        → submit a request (rate limited per client)
//	GET  /dashboard                       → four status sections with counts
//	POST /dashboard/requests/{id}/status  → play, reject or complete a request
//	POST /dashboard/requests/{id}/move    → move a pending request up or down
//	POST /dashboard/refresh               → re-fetch from the store
//	GET  /static/style.css                → stylesheet
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/server"
	"github.com/desertthunder/djq/internal/shared"
)

//go:embed templates/*.html templates/style.css
var templateFS embed.FS

// Handler renders the form and dashboard pages over a [lifecycle.Manager].
type Handler struct {
	manager *lifecycle.Manager
	limiter *server.ClientLimiter
	logger  *log.Logger
	tmpl    *template.Template
	css     []byte
	mux     *http.ServeMux
}

// NewHandler parses the embedded templates. A nil limiter leaves submissions unlimited.
func NewHandler(manager *lifecycle.Manager, limiter *server.ClientLimiter, logger *log.Logger) (*Handler, error) {
	if limiter == nil {
		limiter = server.NewClientLimiter(0, 1)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	tmpl, err := template.New("web").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	css, err := templateFS.ReadFile("templates/style.css")
	if err != nil {
		return nil, err
	}

	h := &Handler{manager: manager, limiter: limiter, logger: logger, tmpl: tmpl, css: css, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /{$}", h.Form)
	h.mux.HandleFunc("POST /requests", h.Submit)
	h.mux.HandleFunc("GET /dashboard", h.Dashboard)
	h.mux.HandleFunc("POST /dashboard/requests/{id}/status", h.SetStatus)
	h.mux.HandleFunc("POST /dashboard/requests/{id}/move", h.Move)
	h.mux.HandleFunc("POST /dashboard/refresh", h.Refresh)
	h.mux.HandleFunc("GET /static/style.css", h.Stylesheet)
	return h, nil
}

// Routes returns the page route patterns.
func (h *Handler) Routes() []string {
	return []string{
		"GET /{$}",
		"POST /requests",
		"GET /dashboard",
		"POST /dashboard/requests/{id}/status",
		"POST /dashboard/requests/{id}/move",
		"POST /dashboard/refresh",
		"GET /static/style.css",
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	h.mux.ServeHTTP(w, r)
}

type formPage struct {
	Form  models.NewSongRequest
	Error string
}

type submittedPage struct {
	Request models.SongRequest
}

type section struct {
	Status   models.Status
	Title    string
	Requests []models.SongRequest
}

type dashboardPage struct {
	Sections []section
	Total    int
	SyncedAt time.Time
	Error    string
}

// sectionOrder is the order sections appear on the dashboard.
var sectionOrder = []struct {
	status models.Status
	title  string
}{
	{models.StatusPlaying, "Now Playing"},
	{models.StatusPending, "Up Next"},
	{models.StatusCompleted, "Played"},
	{models.StatusRejected, "Rejected"},
}

// Form handles GET /
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "form.html", formPage{})
}

// Submit handles POST /requests
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "form.html", formPage{Error: "Could not read the form."})
		return
	}

	req := models.NewSongRequest{
		SongTitle:      r.PostFormValue("song_title"),
		Artist:         r.PostFormValue("artist"),
		SongLink:       r.PostFormValue("song_link"),
		RequesterName:  r.PostFormValue("requester_name"),
		SpecialMessage: r.PostFormValue("special_message"),
	}

	if !h.limiter.Allow(h.limiter.ClientIP(r)) {
		w.Header().Set("Retry-After", "5")
		h.render(w, http.StatusTooManyRequests, "form.html", formPage{Form: req, Error: "Too many requests. Give it a moment and try again."})
		return
	}

	created, err := h.manager.Submit(r.Context(), req)
	if err != nil {
		h.logger.Warn("submission failed", "client", server.GetClientIP(r), "error", err)
		h.render(w, server.StatusCode(err), "form.html", formPage{Form: req, Error: formError(err)})
		return
	}

	h.render(w, http.StatusCreated, "submitted.html", submittedPage{Request: *created})
}

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	page := dashboardPage{
		SyncedAt: h.manager.SyncedAt(),
		Error:    r.URL.Query().Get("error"),
	}

	if page.SyncedAt.IsZero() {
		if err := h.manager.Refresh(r.Context()); err != nil {
			page.Error = err.Error()
		}
		page.SyncedAt = h.manager.SyncedAt()
	}

	for _, s := range sectionOrder {
		requests := h.manager.ViewFor(s.status)
		page.Sections = append(page.Sections, section{Status: s.status, Title: s.title, Requests: requests})
		page.Total += len(requests)
	}

	h.render(w, http.StatusOK, "dashboard.html", page)
}

// SetStatus handles POST /dashboard/requests/{id}/status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := models.ParseStatus(r.PostFormValue("status"))
	if err == nil {
		_, err = h.manager.SetStatus(r.Context(), r.PathValue("id"), status)
	}
	h.redirect(w, r, err)
}

// Move handles POST /dashboard/requests/{id}/move
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	direction, err := models.ParseDirection(r.PostFormValue("direction"))
	if err == nil {
		_, err = h.manager.Reorder(r.Context(), r.PathValue("id"), direction)
	}
	h.redirect(w, r, err)
}

// Refresh handles POST /dashboard/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, h.manager.Refresh(r.Context()))
}

// Stylesheet handles GET /static/style.css
func (h *Handler) Stylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(h.css)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, err error) {
	target := "/dashboard"
	if err != nil {
		h.logger.Warn("dashboard action failed", "path", r.URL.Path, "error", err)
		target += "?" + url.Values{"error": {err.Error()}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// render executes into a buffer first so a template error can still produce a clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func formError(err error) string {
	switch server.StatusCode(err) {
	case http.StatusBadRequest:
		return "Please tell us the song title."
	case http.StatusServiceUnavailable:
		return "We couldn't save your request right now. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

var funcs = template.FuncMap{
	"timeAgo": shared.TimeAgo,
	"upper":   strings.ToUpper,
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format("15:04:05")
	},
	"canMove":     func(s models.Status) bool { return s == models.StatusPending },
	"canPlay":     func(s models.Status) bool { return s.CanTransitionTo(models.StatusPlaying) },
	"canReject":   func(s models.Status) bool { return s.CanTransitionTo(models.StatusRejected) },
	"canComplete": func(s models.Status) bool { return s.CanTransitionTo(models.StatusCompleted) },
}
