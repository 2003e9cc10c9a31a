// package models defines the data model for the song request queue
package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/djq/internal/shared"
)

// Status is the lifecycle state of a [SongRequest].
type Status string

const (
	StatusPending   Status = "pending"
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Statuses lists every status in dashboard order.
var Statuses = []Status{StatusPending, StatusPlaying, StatusCompleted, StatusRejected}

// statusTransitions maps each status to the statuses it may move to.
// Completed and rejected are terminal.
var statusTransitions = map[Status][]Status{
	StatusPending: {StatusPlaying, StatusRejected},
	StatusPlaying: {StatusCompleted},
}

// ParseStatus converts s into a [Status], ignoring case and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", shared.ErrInvalidTransition, s)
	}
	return status, nil
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPlaying, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a request in status s may be moved to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

func (s Status) String() string {
	return string(s)
}

// Direction moves a pending request one slot earlier (up) or later (down) in the queue.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection converts s into a [Direction].
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionUp, DirectionDown:
		return d, nil
	default:
		return "", fmt.Errorf("%w: direction must be up or down, got %q", shared.ErrInvalidOperation, s)
	}
}

func (d Direction) String() string {
	return string(d)
}

// SongRequest is a single request in the queue.
//
// ID and CreatedAt are assigned by the store and never change.
// Priority is only meaningful among pending requests; lower plays earlier.
type SongRequest struct {
	ID             string    `json:"id"`
	SongTitle      string    `json:"song_title"`
	Artist         string    `json:"artist"`
	SongLink       string    `json:"song_link"`
	RequesterName  string    `json:"requester_name"`
	SpecialMessage string    `json:"special_message"`
	Status         Status    `json:"status"`
	Priority       int       `json:"priority"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Label returns "Title - Artist", or just the title when no artist was given.
func (r SongRequest) Label() string {
	if r.Artist == "" {
		return r.SongTitle
	}
	return r.SongTitle + " - " + r.Artist
}

// NewSongRequest holds the attendee-supplied fields of a submission.
//
// A nil Priority places the request at the end of the pending queue.
type NewSongRequest struct {
	SongTitle      string `json:"song_title"`
	Artist         string `json:"artist"`
	SongLink       string `json:"song_link"`
	RequesterName  string `json:"requester_name"`
	SpecialMessage string `json:"special_message"`
	Priority       *int   `json:"priority,omitempty"`
}

// Normalize trims whitespace from every text field.
func (n NewSongRequest) Normalize() NewSongRequest {
	n.SongTitle = strings.TrimSpace(n.SongTitle)
	n.Artist = strings.TrimSpace(n.Artist)
	n.SongLink = strings.TrimSpace(n.SongLink)
	n.RequesterName = strings.TrimSpace(n.RequesterName)
	n.SpecialMessage = strings.TrimSpace(n.SpecialMessage)
	return n
}

// Validate checks that the submission has a song title.
func (n NewSongRequest) Validate() error {
	if strings.TrimSpace(n.SongTitle) == "" {
		return fmt.Errorf("%w: song title is required", shared.ErrInvalidInput)
	}
	return nil
}

// RequestStore is the client for the persisted song request records.
//
// Every call is a synchronous request/response and may fail independently.
// List returns records ordered by priority ascending, then creation time descending.
// UpdateStatus and UpdatePriority refresh UpdatedAt and return the stored record.
type RequestStore interface {
	Create(ctx context.Context, req NewSongRequest) (*SongRequest, error)
	List(ctx context.Context) ([]SongRequest, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*SongRequest, error)
	UpdatePriority(ctx context.Context, id string, priority int) (*SongRequest, error)
	Delete(ctx context.Context, id string) error
}

// PrioritySwapper is implemented by stores that can exchange two priorities atomically.
type PrioritySwapper interface {
	SwapPriorities(ctx context.Context, a, b string) error
}

// Pinger is implemented by stores that can report whether they are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SortRequests orders requests in place by priority ascending, then creation time descending.
// ID breaks remaining ties so the order is stable across fetches.
func SortRequests(requests []SongRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return Less(requests[i], requests[j])
	})
}

// Less reports whether a sorts before b in queue order.
func Less(a, b SongRequest) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

// FilterByStatus returns the requests with the given status, preserving order.
func FilterByStatus(requests []SongRequest, status Status) []SongRequest {
	filtered := make([]SongRequest, 0)
	for _, r := range requests {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
