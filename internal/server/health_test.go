package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tu "github.com/desertthunder/djq/internal/testing"
)

type pingStore struct {
	*tu.FakeStore
	err error
}

func (p pingStore) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tt := []struct {
		name     string
		handler  *HealthHandler
		path     string
		wantCode int
	}{
		{name: "Live", handler: NewHealthHandler(tu.NewFakeStore(), time.Second), path: "/live", wantCode: http.StatusOK},
		{name: "Ready Via Ping", handler: NewHealthHandler(pingStore{FakeStore: tu.NewFakeStore()}, time.Second), path: "/ready", wantCode: http.StatusOK},
		{name: "Not Ready Via Ping", handler: NewHealthHandler(pingStore{FakeStore: tu.NewFakeStore(), err: errors.New("down")}, time.Second), path: "/ready", wantCode: http.StatusServiceUnavailable},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			router := NewBasicRouter()
			router.Handler(tc.handler)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, rec.Code)
			}
		})
	}

	t.Run("Ready Falls Back To List", func(t *testing.T) {
		store := tu.NewFakeStore()
		h := NewHealthHandler(store, time.Second)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if store.Calls(tu.CallList) != 1 {
			t.Errorf("expected 1 list call, got %d", store.Calls(tu.CallList))
		}

		store.SetListErr(errors.New("down"))
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})
}
