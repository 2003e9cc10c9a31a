package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, ":memory:", 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// newTestRepository returns a repository whose clock advances one second per call.
func newTestRepository(db *sql.DB) *SongRequestRepository {
	repo := NewSongRequestRepository(db)
	clock := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		got, err := NextSequence(ctx, db, "song_requests")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}
}

func TestSongRequestRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		req, err := repo.Create(ctx, models.NewSongRequest{
			SongTitle:     " Blinding Lights ",
			Artist:        "The Weeknd",
			RequesterName: "Sam",
		})
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}

		if req.ID == "" {
			t.Error("request ID should be set after creation")
		}
		if req.SongTitle != "Blinding Lights" {
			t.Errorf("expected trimmed title, got %q", req.SongTitle)
		}
		if req.Status != models.StatusPending {
			t.Errorf("expected status pending, got %s", req.Status)
		}
		if req.Priority != 1 {
			t.Errorf("expected priority 1 on empty queue, got %d", req.Priority)
		}
	})

	t.Run("Create appends to the pending queue", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		first, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "One"})
		explicit := 7
		if _, err := repo.Create(ctx, models.NewSongRequest{SongTitle: "Two", Priority: &explicit}); err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		third, err := repo.Create(ctx, models.NewSongRequest{SongTitle: "Three"})
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}

		if third.Priority != 8 {
			t.Errorf("expected priority 8 after explicit 7, got %d", third.Priority)
		}

		if _, err := repo.UpdateStatus(ctx, first.ID, models.StatusPlaying); err != nil {
			t.Fatalf("failed to update status: %v", err)
		}
		if _, err := repo.UpdateStatus(ctx, third.ID, models.StatusPlaying); err != nil {
			t.Fatalf("failed to update status: %v", err)
		}

		fourth, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "Four"})
		if fourth.Priority != 8 {
			t.Errorf("expected only pending priorities to count, got %d", fourth.Priority)
		}
	})

	t.Run("Create requires a title", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		if _, err := repo.Create(ctx, models.NewSongRequest{Artist: "Nobody"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		created, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "Levitating", SongLink: "not a url"})

		retrieved, err := repo.Get(ctx, created.ID)
		if err != nil {
			t.Fatalf("failed to get request: %v", err)
		}

		if retrieved.SongLink != "not a url" {
			t.Errorf("expected link stored verbatim, got %q", retrieved.SongLink)
		}
		if !retrieved.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", created.CreatedAt, retrieved.CreatedAt)
		}

		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		one := 1
		a, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "A", Priority: &one})
		b, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "B", Priority: &one})
		two := 2
		c, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "C", Priority: &two})

		requests, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("failed to list requests: %v", err)
		}

		want := []string{b.ID, a.ID, c.ID}
		if len(requests) != len(want) {
			t.Fatalf("expected %d requests, got %d", len(want), len(requests))
		}
		for i, id := range want {
			if requests[i].ID != id {
				t.Errorf("position %d: expected %s, got %s (%s)", i, id, requests[i].ID, requests[i].SongTitle)
			}
		}
	})

	t.Run("ListByStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		a, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "A"})
		repo.Create(ctx, models.NewSongRequest{SongTitle: "B"})
		repo.UpdateStatus(ctx, a.ID, models.StatusRejected)

		rejected, err := repo.ListByStatus(ctx, models.StatusRejected)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(rejected) != 1 || rejected[0].ID != a.ID {
			t.Errorf("expected only %s rejected, got %+v", a.ID, rejected)
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		created, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "A"})

		updated, err := repo.UpdateStatus(ctx, created.ID, models.StatusPlaying)
		if err != nil {
			t.Fatalf("failed to update status: %v", err)
		}
		if updated.Status != models.StatusPlaying {
			t.Errorf("expected playing, got %s", updated.Status)
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Errorf("expected updated_at to advance, got %v then %v", created.UpdatedAt, updated.UpdatedAt)
		}
		if !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Error("created_at should not change")
		}

		if _, err := repo.UpdateStatus(ctx, "missing", models.StatusPlaying); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.UpdateStatus(ctx, created.ID, models.Status("archived")); !errors.Is(err, shared.ErrInvalidTransition) {
			t.Errorf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("UpdatePriority", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		created, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "A"})

		updated, err := repo.UpdatePriority(ctx, created.ID, 42)
		if err != nil {
			t.Fatalf("failed to update priority: %v", err)
		}
		if updated.Priority != 42 {
			t.Errorf("expected priority 42, got %d", updated.Priority)
		}

		if _, err := repo.UpdatePriority(ctx, "missing", 1); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SwapPriorities", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		a, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "A"})
		b, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "B"})

		if err := repo.SwapPriorities(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("failed to swap: %v", err)
		}

		gotA, _ := repo.Get(ctx, a.ID)
		gotB, _ := repo.Get(ctx, b.ID)
		if gotA.Priority != b.Priority || gotB.Priority != a.Priority {
			t.Errorf("expected priorities swapped, got A=%d B=%d", gotA.Priority, gotB.Priority)
		}

		if err := repo.SwapPriorities(ctx, a.ID, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		unchanged, _ := repo.Get(ctx, a.ID)
		if unchanged.Priority != gotA.Priority {
			t.Errorf("failed swap should not change priorities, got %d", unchanged.Priority)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := newTestRepository(db)
		created, _ := repo.Create(ctx, models.NewSongRequest{SongTitle: "A"})

		if err := repo.Delete(ctx, created.ID); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if _, err := repo.Get(ctx, created.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, created.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		db := setupTestDB(t)
		repo := newTestRepository(db)

		if err := repo.Ping(ctx); err != nil {
			t.Errorf("expected ping to succeed, got %v", err)
		}

		db.Close()
		if err := repo.Ping(ctx); err == nil {
			t.Error("expected ping to fail on a closed database")
		}
	})

	t.Run("Closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := newTestRepository(db)
		db.Close()

		if _, err := repo.List(ctx); err == nil {
			t.Error("expected list to fail on a closed database")
		}
	})
}
