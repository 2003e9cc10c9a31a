package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
	tu "github.com/desertthunder/djq/internal/testing"
)

var seededAt = time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)

func seedRequest(id string, status models.Status, priority int) models.SongRequest {
	return models.SongRequest{
		ID:        id,
		SongTitle: "Song " + id,
		Artist:    "Artist " + id,
		Status:    status,
		Priority:  priority,
		CreatedAt: seededAt,
		UpdatedAt: seededAt,
	}
}

func setupModel(t *testing.T) (*tu.FakeStore, *Model) {
	t.Helper()

	store := tu.NewFakeStore()
	store.Seed(
		seedRequest("a", models.StatusPending, 1),
		seedRequest("b", models.StatusPending, 2),
		seedRequest("c", models.StatusPlaying, 1),
	)

	logger := shared.NewLogger(io.Discard)
	manager := lifecycle.NewManager(store, lifecycle.ManagerOpts{Logger: logger})
	m := NewModel(context.Background(), manager, logger)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	run(t, m, m.Init())
	return store, m
}

// run executes cmd and feeds the resulting message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m.Update(cmd())
}

func press(m *Model, keys string) tea.Cmd {
	var msg tea.KeyMsg
	switch keys {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func visibleIDs(m *Model) []string {
	items := m.lists[m.active].Items()
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.(requestItem).request.ID
	}
	return ids
}

func TestModel(t *testing.T) {
	t.Run("Init Loads Tabs", func(t *testing.T) {
		_, m := setupModel(t)

		if m.Active() != models.StatusPending {
			t.Errorf("expected pending tab first, got %s", m.Active())
		}
		if got := strings.Join(visibleIDs(m), ","); got != "a,b" {
			t.Errorf("expected a,b, got %s", got)
		}

		view := m.View()
		for _, want := range []string{"PENDING (2)", "PLAYING (1)", "COMPLETED (0)", "REJECTED (0)"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in view", want)
			}
		}
	})

	t.Run("Tab Navigation", func(t *testing.T) {
		_, m := setupModel(t)

		press(m, "tab")
		if m.Active() != models.StatusPlaying {
			t.Errorf("expected playing, got %s", m.Active())
		}
		press(m, "shift+tab")
		press(m, "shift+tab")
		if m.Active() != models.StatusRejected {
			t.Errorf("expected wrap to rejected, got %s", m.Active())
		}
	})

	t.Run("Play Selected", func(t *testing.T) {
		store, m := setupModel(t)

		run(t, m, press(m, "p"))

		if got, _ := store.Get("a"); got.Status != models.StatusPlaying {
			t.Errorf("expected a to be playing, got %s", got.Status)
		}
		if got := strings.Join(visibleIDs(m), ","); got != "b" {
			t.Errorf("expected only b pending, got %s", got)
		}
		if !strings.Contains(m.View(), "is now playing") {
			t.Error("expected notice in view")
		}
	})

	t.Run("Complete Playing", func(t *testing.T) {
		store, m := setupModel(t)

		press(m, "tab")
		run(t, m, press(m, "c"))

		if got, _ := store.Get("c"); got.Status != models.StatusCompleted {
			t.Errorf("expected c completed, got %s", got.Status)
		}
	})

	t.Run("Invalid Transition Shows Error", func(t *testing.T) {
		store, m := setupModel(t)

		press(m, "tab")
		run(t, m, press(m, "x"))

		if m.err == nil || !errors.Is(m.err, shared.ErrInvalidTransition) {
			t.Errorf("expected invalid transition, got %v", m.err)
		}
		if store.Calls(tu.CallUpdateStatus) != 0 {
			t.Error("expected no store write")
		}
		if !strings.Contains(m.View(), "Error:") {
			t.Error("expected error in view")
		}
	})

	t.Run("Move Keeps Selection", func(t *testing.T) {
		_, m := setupModel(t)

		press(m, "down")
		run(t, m, press(m, "K"))

		if got := strings.Join(visibleIDs(m), ","); got != "b,a" {
			t.Errorf("expected b,a, got %s", got)
		}
		if sel, _ := m.selected(); sel.ID != "b" {
			t.Errorf("expected cursor to follow b, got %s", sel.ID)
		}

		run(t, m, press(m, "K"))
		if !strings.Contains(m.notice, "already at the top") {
			t.Errorf("expected top notice, got %q", m.notice)
		}
	})

	t.Run("Refresh Failure Keeps Lists", func(t *testing.T) {
		store, m := setupModel(t)
		store.SetListErr(errors.New("connection refused"))

		run(t, m, press(m, "r"))

		if !errors.Is(m.err, shared.ErrStoreUnavailable) {
			t.Errorf("expected store unavailable, got %v", m.err)
		}
		if got := strings.Join(visibleIDs(m), ","); got != "a,b" {
			t.Errorf("expected last known a,b, got %s", got)
		}
	})

	t.Run("Empty Tab Ignores Actions", func(t *testing.T) {
		_, m := setupModel(t)

		press(m, "shift+tab")
		if cmd := press(m, "p"); cmd != nil {
			t.Error("expected no command without a selection")
		}
	})

	t.Run("Quit", func(t *testing.T) {
		_, m := setupModel(t)

		cmd := press(m, "q")
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestRequestItem(t *testing.T) {
	item := requestItem{request: models.SongRequest{
		SongTitle:      "Levitating",
		Artist:         "Dua Lipa",
		RequesterName:  "Jessica",
		SpecialMessage: "Anniversary dance!",
		CreatedAt:      time.Now().Add(-15 * time.Minute),
	}}

	if !strings.Contains(item.Title(), "Levitating") {
		t.Errorf("expected title in %q", item.Title())
	}

	desc := item.Description()
	for _, want := range []string{"from Jessica", "Anniversary dance!", "ago"} {
		if !strings.Contains(desc, want) {
			t.Errorf("expected %q in %q", want, desc)
		}
	}
	if !strings.Contains(item.FilterValue(), "Dua Lipa") {
		t.Error("expected artist to be filterable")
	}
}

func TestStatusColor(t *testing.T) {
	seen := map[string]models.Status{}
	for _, status := range models.Statuses {
		c := string(StatusColor(status))
		if other, ok := seen[c]; ok {
			t.Errorf("%s and %s share colour %s", status, other, c)
		}
		seen[c] = status
	}
}
