package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/server"
	"github.com/desertthunder/djq/internal/shared"
	tu "github.com/desertthunder/djq/internal/testing"
)

var seededAt = time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)

func seedRequest(id, title string, status models.Status, priority int) models.SongRequest {
	return models.SongRequest{
		ID:        id,
		SongTitle: title,
		Artist:    "Artist " + id,
		Status:    status,
		Priority:  priority,
		CreatedAt: seededAt,
		UpdatedAt: seededAt,
	}
}

func setupWeb(t *testing.T, limiter *server.ClientLimiter) (*tu.FakeStore, *lifecycle.Manager, http.Handler) {
	t.Helper()

	store := tu.NewFakeStore()
	store.Seed(
		seedRequest("a", "Blinding Lights", models.StatusPending, 1),
		seedRequest("b", "Levitating", models.StatusPending, 2),
		seedRequest("c", "Good 4 U", models.StatusPlaying, 1),
		seedRequest("d", "Stay", models.StatusCompleted, 1),
	)

	logger := shared.NewLogger(io.Discard)
	manager := lifecycle.NewManager(store, lifecycle.ManagerOpts{Logger: logger})
	if err := manager.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	h, err := NewHandler(manager, limiter, logger)
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}

	router := server.NewBasicRouter()
	router.Handler(h)
	return store, manager, router
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func post(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestForm(t *testing.T) {
	t.Run("Renders Fields", func(t *testing.T) {
		_, _, h := setupWeb(t, nil)

		rec := get(h, "/")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		body := rec.Body.String()
		for _, field := range []string{"song_title", "artist", "song_link", "requester_name", "special_message"} {
			if !strings.Contains(body, `name="`+field+`"`) {
				t.Errorf("expected form field %s", field)
			}
		}
	})

	t.Run("Unknown Path", func(t *testing.T) {
		_, _, h := setupWeb(t, nil)
		if rec := get(h, "/nowhere"); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Submit", func(t *testing.T) {
		store, manager, h := setupWeb(t, nil)

		rec := post(h, "/requests", url.Values{
			"song_title":      {"Dancing Queen"},
			"artist":          {"ABBA"},
			"requester_name":  {"Sarah"},
			"special_message": {"For my birthday!"},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Dancing Queen") || !strings.Contains(rec.Body.String(), "by ABBA") {
			t.Errorf("expected confirmation to name the song, got %s", rec.Body.String())
		}
		if store.Calls(tu.CallCreate) != 1 {
			t.Errorf("expected 1 create, got %d", store.Calls(tu.CallCreate))
		}

		pending := manager.ViewFor(models.StatusPending)
		if last := pending[len(pending)-1]; last.SongTitle != "Dancing Queen" || last.RequesterName != "Sarah" {
			t.Errorf("expected new request at the end of the queue, got %+v", last)
		}
	})

	t.Run("Missing Title Re-renders With Values", func(t *testing.T) {
		store, _, h := setupWeb(t, nil)

		rec := post(h, "/requests", url.Values{"song_title": {"  "}, "artist": {"ABBA"}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}

		body := rec.Body.String()
		if !strings.Contains(body, "song title") {
			t.Errorf("expected error message, got %s", body)
		}
		if !strings.Contains(body, `value="ABBA"`) {
			t.Error("expected artist to be kept in the form")
		}
		if store.Calls(tu.CallCreate) != 0 {
			t.Error("expected no store write")
		}
	})

	t.Run("Store Failure", func(t *testing.T) {
		store, _, h := setupWeb(t, nil)
		store.SetCreateErr(errors.New("connection refused"))

		rec := post(h, "/requests", url.Values{"song_title": {"Dancing Queen"}})
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "try again") {
			t.Error("expected retry hint")
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		store, _, h := setupWeb(t, server.NewClientLimiter(0.001, 1))

		first := post(h, "/requests", url.Values{"song_title": {"One"}})
		second := post(h, "/requests", url.Values{"song_title": {"Two"}})

		if first.Code != http.StatusCreated || second.Code != http.StatusTooManyRequests {
			t.Errorf("expected 201 then 429, got %d then %d", first.Code, second.Code)
		}
		if store.Calls(tu.CallCreate) != 1 {
			t.Errorf("expected 1 create, got %d", store.Calls(tu.CallCreate))
		}
	})
}

func TestDashboard(t *testing.T) {
	t.Run("Sections", func(t *testing.T) {
		_, _, h := setupWeb(t, nil)

		rec := get(h, "/dashboard")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		body := rec.Body.String()
		for _, want := range []string{"Now Playing", "Up Next", "Played", "Rejected", "No rejected requests."} {
			if !strings.Contains(body, want) {
				t.Errorf("expected %q in dashboard", want)
			}
		}

		if strings.Index(body, "Blinding Lights") > strings.Index(body, "Levitating") {
			t.Error("expected pending requests in priority order")
		}
		if !strings.Contains(body, `class="badge status-playing"`) {
			t.Error("expected status colour class on playing badge")
		}
	})

	t.Run("Flash Error", func(t *testing.T) {
		_, _, h := setupWeb(t, nil)

		rec := get(h, "/dashboard?error="+url.QueryEscape("store unavailable"))
		if !strings.Contains(rec.Body.String(), "store unavailable") {
			t.Error("expected flash message")
		}
	})

	t.Run("Play", func(t *testing.T) {
		store, _, h := setupWeb(t, nil)

		rec := post(h, "/dashboard/requests/a/status", url.Values{"status": {"playing"}})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/dashboard" {
			t.Errorf("expected redirect to /dashboard, got %s", loc)
		}
		if got, _ := store.Get("a"); got.Status != models.StatusPlaying {
			t.Errorf("expected a to be playing, got %s", got.Status)
		}
	})

	t.Run("Invalid Transition Redirects With Error", func(t *testing.T) {
		store, _, h := setupWeb(t, nil)

		rec := post(h, "/dashboard/requests/d/status", url.Values{"status": {"playing"}})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}

		loc, err := url.Parse(rec.Header().Get("Location"))
		if err != nil {
			t.Fatalf("bad location: %v", err)
		}
		if loc.Path != "/dashboard" || loc.Query().Get("error") == "" {
			t.Errorf("expected error flash redirect, got %s", loc)
		}
		if store.Calls(tu.CallUpdateStatus) != 0 {
			t.Error("expected no store write")
		}
	})

	t.Run("Move", func(t *testing.T) {
		_, manager, h := setupWeb(t, nil)

		rec := post(h, "/dashboard/requests/b/move", url.Values{"direction": {"up"}})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}

		pending := manager.ViewFor(models.StatusPending)
		if pending[0].ID != "b" || pending[1].ID != "a" {
			t.Errorf("expected [b a], got [%s %s]", pending[0].ID, pending[1].ID)
		}
	})

	t.Run("Refresh Failure", func(t *testing.T) {
		store, _, h := setupWeb(t, nil)
		store.SetListErr(errors.New("timeout"))

		rec := post(h, "/dashboard/refresh", nil)
		if !strings.Contains(rec.Header().Get("Location"), "error=") {
			t.Errorf("expected error flash, got %s", rec.Header().Get("Location"))
		}

		page := get(h, "/dashboard").Body.String()
		if !strings.Contains(page, "Blinding Lights") {
			t.Error("expected last known snapshot to remain visible")
		}
	})
}

func TestStylesheet(t *testing.T) {
	_, _, h := setupWeb(t, nil)

	rec := get(h, "/static/style.css")
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Errorf("expected text/css, got %s", ct)
	}
	for _, class := range []string{".status-pending", ".status-playing", ".status-completed", ".status-rejected"} {
		if !strings.Contains(rec.Body.String(), class) {
			t.Errorf("expected %s rule", class)
		}
	}
}
