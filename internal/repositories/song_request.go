package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

const songRequestColumns = `id, song_title, artist, song_link, requester_name, special_message, status, priority, created_at, updated_at`

// SongRequestRepository implements [models.RequestStore] over the song_requests table.
type SongRequestRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSongRequestRepository creates a new [SongRequestRepository] with the given database connection
func NewSongRequestRepository(db *sql.DB) *SongRequestRepository {
	return &SongRequestRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a pending request with a generated ID and sequence.
//
// When req.Priority is nil the request goes to the end of the pending queue.
func (r *SongRequestRepository) Create(ctx context.Context, req models.NewSongRequest) (*models.SongRequest, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequenceTx(ctx, tx, "song_requests")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	var priority int
	if req.Priority != nil {
		priority = *req.Priority
	} else {
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(priority), 0) + 1 FROM song_requests WHERE status = ?", models.StatusPending,
		).Scan(&priority)
		if err != nil {
			return nil, fmt.Errorf("failed to compute priority: %w", err)
		}
	}

	now := r.now()
	record := models.SongRequest{
		ID:             shared.GenerateID(),
		SongTitle:      req.SongTitle,
		Artist:         req.Artist,
		SongLink:       req.SongLink,
		RequesterName:  req.RequesterName,
		SpecialMessage: req.SpecialMessage,
		Status:         models.StatusPending,
		Priority:       priority,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `
		INSERT INTO song_requests (id, sequence, song_title, artist, song_link, requester_name, special_message, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		record.ID,
		sequence,
		record.SongTitle,
		record.Artist,
		record.SongLink,
		record.RequesterName,
		record.SpecialMessage,
		record.Status,
		record.Priority,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert song request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit song request: %w", err)
	}

	return &record, nil
}

// Get retrieves a request by ID
func (r *SongRequestRepository) Get(ctx context.Context, id string) (*models.SongRequest, error) {
	query := `SELECT ` + songRequestColumns + ` FROM song_requests WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// List returns every request ordered by priority ascending, then newest first.
func (r *SongRequestRepository) List(ctx context.Context) ([]models.SongRequest, error) {
	query := `SELECT ` + songRequestColumns + ` FROM song_requests ORDER BY priority ASC, created_at DESC, sequence DESC`
	return r.query(ctx, query)
}

// ListByStatus returns the requests in status, in queue order.
func (r *SongRequestRepository) ListByStatus(ctx context.Context, status models.Status) ([]models.SongRequest, error) {
	query := `SELECT ` + songRequestColumns + ` FROM song_requests WHERE status = ? ORDER BY priority ASC, created_at DESC, sequence DESC`
	return r.query(ctx, query, status)
}

// UpdateStatus sets the status of a request and refreshes updated_at.
//
// The repository does not enforce the transition rules; that is the lifecycle manager's job.
func (r *SongRequestRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.SongRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidTransition, status)
	}

	if err := r.exec(ctx, "UPDATE song_requests SET status = ?, updated_at = ? WHERE id = ?", status, r.now(), id); err != nil {
		return nil, fmt.Errorf("failed to update status of %s: %w", id, err)
	}

	return r.Get(ctx, id)
}

// UpdatePriority sets the priority of a request and refreshes updated_at.
func (r *SongRequestRepository) UpdatePriority(ctx context.Context, id string, priority int) (*models.SongRequest, error) {
	if err := r.exec(ctx, "UPDATE song_requests SET priority = ?, updated_at = ? WHERE id = ?", priority, r.now(), id); err != nil {
		return nil, fmt.Errorf("failed to update priority of %s: %w", id, err)
	}

	return r.Get(ctx, id)
}

// SwapPriorities exchanges the priorities of a and b in a single transaction.
func (r *SongRequestRepository) SwapPriorities(ctx context.Context, a, b string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	priorities := make(map[string]int, 2)
	for _, id := range []string{a, b} {
		var p int
		err := tx.QueryRowContext(ctx, "SELECT priority FROM song_requests WHERE id = ?", id).Scan(&p)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", shared.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to read priority of %s: %w", id, err)
		}
		priorities[id] = p
	}

	now := r.now()
	update := "UPDATE song_requests SET priority = ?, updated_at = ? WHERE id = ?"
	if _, err := tx.ExecContext(ctx, update, priorities[b], now, a); err != nil {
		return fmt.Errorf("failed to update priority of %s: %w", a, err)
	}
	if _, err := tx.ExecContext(ctx, update, priorities[a], now, b); err != nil {
		return fmt.Errorf("failed to update priority of %s: %w", b, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit priority swap: %w", err)
	}

	return nil
}

// Delete permanently removes a request by ID
func (r *SongRequestRepository) Delete(ctx context.Context, id string) error {
	if err := r.exec(ctx, "DELETE FROM song_requests WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete song request %s: %w", id, err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (r *SongRequestRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// exec runs a single-row statement and reports [shared.ErrNotFound] when nothing matched.
func (r *SongRequestRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

func (r *SongRequestRepository) query(ctx context.Context, query string, args ...any) ([]models.SongRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query song requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.SongRequest, 0)
	for rows.Next() {
		req, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating song requests: %w", err)
	}

	return requests, nil
}

// scanOne scans a single row from QueryRow
func (r *SongRequestRepository) scanOne(row *sql.Row, id string) (*models.SongRequest, error) {
	req, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return req, err
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRow scans a row from either [sql.Row] or [sql.Rows]
func (r *SongRequestRepository) scanRow(s scanner) (*models.SongRequest, error) {
	var (
		req    models.SongRequest
		status string
	)

	err := s.Scan(
		&req.ID,
		&req.SongTitle,
		&req.Artist,
		&req.SongLink,
		&req.RequesterName,
		&req.SpecialMessage,
		&status,
		&req.Priority,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song request: %w", err)
	}

	req.Status = models.Status(status)
	return &req, nil
}
