package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

// Method names counted by [FakeStore.Calls].
const (
	CallCreate         = "create"
	CallList           = "list"
	CallUpdateStatus   = "update_status"
	CallUpdatePriority = "update_priority"
	CallDelete         = "delete"
)

// Gate blocks a store write for one id until released, so tests can hold an operation in flight.
type Gate struct {
	Entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// NewGate returns a closed-on-entry, open-on-release gate.
func NewGate() *Gate {
	return &Gate{Entered: make(chan struct{}), release: make(chan struct{})}
}

// Release lets the blocked write continue.
func (g *Gate) Release() {
	close(g.release)
}

func (g *Gate) wait(ctx context.Context) error {
	g.once.Do(func() { close(g.Entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeStore is an in-memory [models.RequestStore] with injectable failures.
type FakeStore struct {
	mu    sync.Mutex
	rows  []models.SongRequest
	seq   int
	clock time.Time
	calls map[string]int
	gates map[string]*Gate

	listGate *Gate

	listErr      error
	createErr    error
	statusErr    error
	deleteErr    error
	priorityErr  error
	priorityCall int
}

// NewFakeStore creates an empty store whose clock starts at a fixed instant and ticks one second per write.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		clock: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		calls: make(map[string]int),
		gates: make(map[string]*Gate),
	}
}

// Seed inserts records verbatim.
func (s *FakeStore) Seed(requests ...models.SongRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, requests...)
}

// Get returns the stored record for id.
func (s *FakeStore) Get(id string) (models.SongRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return r, true
		}
	}
	return models.SongRequest{}, false
}

// Calls returns how many times method was invoked.
func (s *FakeStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// SetListErr makes every List call fail with err until reset with nil.
func (s *FakeStore) SetListErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

// SetCreateErr makes every Create call fail with err until reset with nil.
func (s *FakeStore) SetCreateErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

// SetStatusErr makes every UpdateStatus call fail with err until reset with nil.
func (s *FakeStore) SetStatusErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusErr = err
}

// SetDeleteErr makes every Delete call fail with err until reset with nil.
func (s *FakeStore) SetDeleteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErr = err
}

// SetPriorityErr makes the nth UpdatePriority call from now fail with err. n of 0 fails every call.
func (s *FakeStore) SetPriorityErr(err error, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorityErr = err
	if n > 0 {
		s.priorityCall = s.calls[CallUpdatePriority] + n
	} else {
		s.priorityCall = 0
	}
}

// Block installs a gate that holds writes to id until released.
func (s *FakeStore) Block(id string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := NewGate()
	s.gates[id] = g
	return g
}

func (s *FakeStore) Create(ctx context.Context, req models.NewSongRequest) (*models.SongRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallCreate]++

	if s.createErr != nil {
		return nil, s.createErr
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	priority := 1
	if req.Priority != nil {
		priority = *req.Priority
	} else {
		for _, r := range s.rows {
			if r.Status == models.StatusPending && r.Priority >= priority {
				priority = r.Priority + 1
			}
		}
	}

	s.seq++
	now := s.tick()
	record := models.SongRequest{
		ID:             fmt.Sprintf("req-%d", s.seq),
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
	s.rows = append(s.rows, record)
	return &record, nil
}

// BlockList makes the next List call read the records and then hold them until the gate is released,
// returning what the store looked like when the call started.
func (s *FakeStore) BlockList() *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listGate = NewGate()
	return s.listGate
}

func (s *FakeStore) List(ctx context.Context) ([]models.SongRequest, error) {
	s.mu.Lock()
	s.calls[CallList]++

	if s.listErr != nil {
		s.mu.Unlock()
		return nil, s.listErr
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	rows := make([]models.SongRequest, len(s.rows))
	copy(rows, s.rows)
	gate := s.listGate
	s.listGate = nil
	s.mu.Unlock()

	if gate != nil {
		if err := gate.wait(ctx); err != nil {
			return nil, err
		}
	}

	models.SortRequests(rows)
	return rows, nil
}

func (s *FakeStore) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.SongRequest, error) {
	if err := s.waitGate(ctx, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallUpdateStatus]++

	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.update(id, func(r *models.SongRequest) { r.Status = status })
}

func (s *FakeStore) UpdatePriority(ctx context.Context, id string, priority int) (*models.SongRequest, error) {
	if err := s.waitGate(ctx, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallUpdatePriority]++

	if s.priorityErr != nil && (s.priorityCall == 0 || s.priorityCall == s.calls[CallUpdatePriority]) {
		return nil, s.priorityErr
	}
	return s.update(id, func(r *models.SongRequest) { r.Priority = priority })
}

func (s *FakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[CallDelete]++

	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i, r := range s.rows {
		if r.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrNotFound, id)
}

func (s *FakeStore) update(id string, apply func(r *models.SongRequest)) (*models.SongRequest, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			apply(&s.rows[i])
			s.rows[i].UpdatedAt = s.tick()
			updated := s.rows[i]
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
}

func (s *FakeStore) waitGate(ctx context.Context, id string) error {
	s.mu.Lock()
	g := s.gates[id]
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.wait(ctx)
}

func (s *FakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// SwappingStore wraps a [FakeStore] with an atomic [models.PrioritySwapper].
type SwappingStore struct {
	*FakeStore
	Swaps int
}

// SwapPriorities exchanges the priorities of a and b under one lock.
func (s *SwappingStore) SwapPriorities(ctx context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Swaps++

	ia, ib := -1, -1
	for i, r := range s.rows {
		switch r.ID {
		case a:
			ia = i
		case b:
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return fmt.Errorf("%w: swap %s/%s", shared.ErrNotFound, a, b)
	}

	now := s.tick()
	s.rows[ia].Priority, s.rows[ib].Priority = s.rows[ib].Priority, s.rows[ia].Priority
	s.rows[ia].UpdatedAt, s.rows[ib].UpdatedAt = now, now
	return nil
}
