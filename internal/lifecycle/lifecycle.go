package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

// Operation names used for logging, in-flight claims and [Recorder] events.
const (
	OpSubmit    = "submit"
	OpSetStatus = "set_status"
	OpReorder   = "reorder"
	OpRefresh   = "refresh"
)

// ManagerOpts configures a [Manager]. Nil fields fall back to defaults.
type ManagerOpts struct {
	Logger   *log.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Manager is the request lifecycle manager.
type Manager struct {
	store    models.RequestStore
	logger   *log.Logger
	recorder Recorder
	now      func() time.Time

	// inflight maps a request id to the operation currently mutating it.
	inflight cmap.ConcurrentMap[string, string]

	mu       sync.RWMutex
	current  []models.SongRequest
	synced   []models.SongRequest
	syncedAt time.Time

	// fetched numbers each store read as it starts; applied is the newest read already in the snapshot.
	fetched uint64
	applied uint64
}

// NewManager creates a manager over store with an empty snapshot. Call [Manager.Refresh] to load it.
func NewManager(store models.RequestStore, opts ManagerOpts) *Manager {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Manager{
		store:    store,
		logger:   shared.WithLogger(opts.Logger, "component", "lifecycle"),
		recorder: opts.Recorder,
		now:      opts.Now,
		inflight: cmap.New[string](),
		current:  make([]models.SongRequest, 0),
		synced:   make([]models.SongRequest, 0),
	}
}

// Store returns the underlying store client.
func (m *Manager) Store() models.RequestStore {
	return m.store
}

// Refresh re-fetches every request from the store and replaces the snapshot.
//
// On failure the last reconciled snapshot is kept and the error wraps [shared.ErrStoreUnavailable].
func (m *Manager) Refresh(ctx context.Context) error {
	return m.reconcile(ctx, OpRefresh)
}

// ViewFor returns a copy of the requests with status, ordered by priority then newest first.
func (m *Manager) ViewFor(status models.Status) []models.SongRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.FilterByStatus(m.current, status)
}

// Snapshot returns a copy of every request in queue order.
func (m *Manager) Snapshot() []models.SongRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.current)
}

// Counts returns the number of requests in each status. Every status has an entry.
func (m *Manager) Counts() map[models.Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countByStatus(m.current)
}

// SyncedAt returns when the snapshot was last reconciled with the store. Zero until the first successful refresh.
func (m *Manager) SyncedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncedAt
}

// Find returns a copy of the request with id from the snapshot.
func (m *Manager) Find(id string) (models.SongRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.current[i], true
	}
	return models.SongRequest{}, false
}

// Submit creates a new pending request and refreshes the snapshot.
//
// A failed refresh after a successful create is logged and does not fail the submission.
func (m *Manager) Submit(ctx context.Context, req models.NewSongRequest) (*models.SongRequest, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		m.recorder.Rejected(OpSubmit, err)
		return nil, err
	}

	created, err := m.store.Create(ctx, req)
	if err != nil {
		m.recorder.StoreFailure(OpSubmit)
		if errors.Is(err, shared.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: submit %q: %w", shared.ErrStoreUnavailable, req.SongTitle, err)
	}

	m.logger.Info("request submitted", "id", created.ID, "title", created.SongTitle, "priority", created.Priority)

	if err := m.reconcile(ctx, OpSubmit); err != nil {
		m.logger.Warn("snapshot not refreshed after submit", "id", created.ID, "error", err)
	}

	return created, nil
}

// SetStatus moves the request with id to status.
//
// Setting the status a request already has succeeds without a store write. Disallowed transitions fail with
// [shared.ErrInvalidTransition] and unknown ids with [shared.ErrNotFound], both before the store is called.
func (m *Manager) SetStatus(ctx context.Context, id string, status models.Status) (*models.SongRequest, error) {
	if !status.Valid() {
		err := fmt.Errorf("%w: unknown status %q", shared.ErrInvalidTransition, status)
		m.recorder.Rejected(OpSetStatus, err)
		return nil, err
	}

	if err := m.claim(id, OpSetStatus); err != nil {
		return nil, err
	}
	defer m.release(id)

	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		err := fmt.Errorf("%w: %s", shared.ErrNotFound, id)
		m.recorder.Rejected(OpSetStatus, err)
		return nil, err
	}

	before := m.current[i]
	if before.Status == status {
		m.mu.Unlock()
		return &before, nil
	}
	if !before.Status.CanTransitionTo(status) {
		m.mu.Unlock()
		err := fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, before.Status, status)
		m.recorder.Rejected(OpSetStatus, err)
		return nil, err
	}

	m.current[i].Status = status
	m.current[i].UpdatedAt = m.now()
	m.mu.Unlock()

	_, writeErr := m.store.UpdateStatus(ctx, id, status)
	if writeErr != nil {
		m.recorder.StoreFailure(OpSetStatus)
		m.logger.Error("status write failed", "id", id, "status", status, "error", writeErr)
	}

	syncErr := m.reconcile(ctx, OpSetStatus)
	if writeErr != nil {
		return nil, errors.Join(storeError(OpSetStatus, id, writeErr), syncErr)
	}
	if syncErr != nil {
		return nil, syncErr
	}

	m.recorder.Transition(before.Status, status)
	m.logger.Info("status changed", "id", id, "title", before.SongTitle, "from", before.Status, "to", status)

	updated, ok := m.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s disappeared from the store", shared.ErrNotFound, id)
	}
	return &updated, nil
}

// Reorder moves the pending request with id one slot up or down the queue by exchanging priorities with its
// neighbour. It reports whether anything moved: the first request moving up and the last moving down succeed
// without change.
//
// A target that is missing or not pending fails with [shared.ErrInvalidOperation]; a missing target also
// matches [shared.ErrNotFound].
func (m *Manager) Reorder(ctx context.Context, id string, direction models.Direction) (bool, error) {
	if direction != models.DirectionUp && direction != models.DirectionDown {
		err := fmt.Errorf("%w: unknown direction %q", shared.ErrInvalidOperation, direction)
		m.recorder.Rejected(OpReorder, err)
		return false, err
	}

	if err := m.claim(id, OpReorder); err != nil {
		return false, err
	}
	defer m.release(id)

	m.mu.Lock()
	target, partner, err := m.neighbours(id, direction)
	if err != nil {
		m.mu.Unlock()
		m.recorder.Rejected(OpReorder, err)
		return false, err
	}
	if partner == nil {
		m.mu.Unlock()
		m.recorder.Reorder(direction, false)
		return false, nil
	}
	if err := m.claim(partner.ID, OpReorder); err != nil {
		m.mu.Unlock()
		return false, err
	}
	defer m.release(partner.ID)

	now := m.now()
	for i := range m.current {
		switch m.current[i].ID {
		case target.ID:
			m.current[i].Priority = partner.Priority
			m.current[i].UpdatedAt = now
		case partner.ID:
			m.current[i].Priority = target.Priority
			m.current[i].UpdatedAt = now
		}
	}
	models.SortRequests(m.current)
	m.mu.Unlock()

	writeErr := m.swap(ctx, *target, *partner)
	if writeErr != nil {
		m.recorder.StoreFailure(OpReorder)
		m.logger.Error("priority swap failed", "id", target.ID, "partner", partner.ID, "error", writeErr)
	}

	syncErr := m.reconcile(ctx, OpReorder)
	if writeErr != nil {
		return false, errors.Join(storeError(OpReorder, id, writeErr), syncErr)
	}
	if syncErr != nil {
		return false, syncErr
	}

	m.recorder.Reorder(direction, true)
	m.logger.Info("request moved", "id", id, "direction", direction, "partner", partner.ID,
		"priority", partner.Priority)

	return true, nil
}

// neighbours locates the target and its swap partner in the pending queue. Must be called with mu held.
// A nil partner means the target is already at that end of the queue.
func (m *Manager) neighbours(id string, direction models.Direction) (*models.SongRequest, *models.SongRequest, error) {
	pending := models.FilterByStatus(m.current, models.StatusPending)
	models.SortRequests(pending)

	pos := slices.IndexFunc(pending, func(r models.SongRequest) bool { return r.ID == id })
	if pos < 0 {
		if m.indexOf(id) < 0 {
			return nil, nil, fmt.Errorf("%w: %w: %s", shared.ErrInvalidOperation, shared.ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("%w: %s is not pending", shared.ErrInvalidOperation, id)
	}

	target := pending[pos]
	switch {
	case direction == models.DirectionUp && pos > 0:
		return &target, &pending[pos-1], nil
	case direction == models.DirectionDown && pos < len(pending)-1:
		return &target, &pending[pos+1], nil
	default:
		return &target, nil, nil
	}
}

// swap writes the exchanged priorities, atomically when the store supports it.
func (m *Manager) swap(ctx context.Context, target, partner models.SongRequest) error {
	if swapper, ok := m.store.(models.PrioritySwapper); ok {
		return swapper.SwapPriorities(ctx, target.ID, partner.ID)
	}

	if _, err := m.store.UpdatePriority(ctx, target.ID, partner.Priority); err != nil {
		return fmt.Errorf("write priority of %s: %w", target.ID, err)
	}
	if _, err := m.store.UpdatePriority(ctx, partner.ID, target.Priority); err != nil {
		return fmt.Errorf("write priority of %s after %s was written: %w", partner.ID, target.ID, err)
	}
	return nil
}

// reconcile replaces the snapshot with the store's record set, or restores the last reconciled snapshot.
//
// A read that started before one already applied is discarded, so a slow fetch can never roll back a status
// that later validations depend on.
func (m *Manager) reconcile(ctx context.Context, op string) error {
	m.mu.Lock()
	m.fetched++
	gen := m.fetched
	m.mu.Unlock()

	rows, err := m.store.List(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.current = slices.Clone(m.synced)
		m.recorder.StoreFailure(OpRefresh)
		m.logger.Warn("refresh failed, keeping last synced snapshot", "after", op, "synced_at", m.syncedAt, "error", err)
		return fmt.Errorf("%w: refresh after %s: %w", shared.ErrStoreUnavailable, op, err)
	}

	if gen < m.applied {
		m.logger.Debug("discarding stale fetch", "after", op, "generation", gen, "applied", m.applied)
		return nil
	}

	models.SortRequests(rows)
	m.applied = gen
	m.synced = rows
	m.current = slices.Clone(rows)
	m.syncedAt = m.now()
	m.recorder.Synced(countByStatus(rows), m.syncedAt)
	m.logger.Debug("snapshot refreshed", "after", op, "requests", len(rows))

	return nil
}

func (m *Manager) claim(id, op string) error {
	if !m.inflight.SetIfAbsent(id, op) {
		holder, _ := m.inflight.Get(id)
		err := fmt.Errorf("%w: %s (%s in progress)", shared.ErrRecordBusy, id, holder)
		m.recorder.Rejected(op, err)
		return err
	}
	return nil
}

func (m *Manager) release(id string) {
	m.inflight.Remove(id)
}

// indexOf returns the position of id in the current snapshot, or -1. Must be called with mu held.
func (m *Manager) indexOf(id string) int {
	return slices.IndexFunc(m.current, func(r models.SongRequest) bool { return r.ID == id })
}

// storeError classifies a failed write. A record that vanished from the store is reported as not found.
func storeError(op, id string, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	return fmt.Errorf("%w: %s %s: %w", shared.ErrStoreUnavailable, op, id, err)
}

func countByStatus(requests []models.SongRequest) map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	for _, r := range requests {
		counts[r.Status]++
	}
	return counts
}
