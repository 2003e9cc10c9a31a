// Hosted store client for a PostgREST-style song request table
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/djq/internal/models"
	"github.com/desertthunder/djq/internal/shared"
)

const (
	defaultHostedTable = "song_requests"
	defaultPageSize    = 1000
)

// HostedStoreOpts configures a [HostedStore]. Zero values fall back to defaults.
type HostedStoreOpts struct {
	URL        string
	APIKey     string
	Table      string
	Timeout    time.Duration
	MaxRetries int
	PageSize   int // Rows requested per List page
	Client     *http.Client
	Logger     *log.Logger
}

// HostedStore implements [models.RequestStore] and [models.Pinger] over HTTP.
//
// It has no atomic swap, so the lifecycle manager falls back to two priority writes.
// Creates are only retried when the table answered 429 or 503, so a lost response never inserts twice.
type HostedStore struct {
	baseURL    string
	table      string
	apiKey     string
	maxRetries int
	pageSize   int
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// NewHostedStore creates a hosted store client.
func NewHostedStore(opts HostedStoreOpts) (*HostedStore, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: hosted store url is required", shared.ErrMissingConfig)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: hosted store url: %w", shared.ErrInvalidConfig, err)
	}

	table := opts.Table
	if table == "" {
		table = defaultHostedTable
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.APIKey != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, src)
		client.Timeout = opts.Timeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &HostedStore{
		baseURL:    base,
		table:      table,
		apiKey:     opts.APIKey,
		maxRetries: max(opts.MaxRetries, 0),
		pageSize:   pageSize,
		httpClient: client,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}, nil
}

// hostedRecord is the row shape written to the table.
type hostedRecord struct {
	SongTitle      string        `json:"song_title"`
	Artist         string        `json:"artist"`
	SongLink       string        `json:"song_link"`
	RequesterName  string        `json:"requester_name"`
	SpecialMessage string        `json:"special_message"`
	Status         models.Status `json:"status"`
	Priority       int           `json:"priority"`
}

// Create inserts a pending request. A nil priority is resolved to the end of the pending queue first.
func (s *HostedStore) Create(ctx context.Context, req models.NewSongRequest) (*models.SongRequest, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	} else {
		last, err := s.lastPendingPriority(ctx)
		if err != nil {
			return nil, err
		}
		priority = last + 1
	}

	record := hostedRecord{
		SongTitle:      req.SongTitle,
		Artist:         req.Artist,
		SongLink:       req.SongLink,
		RequesterName:  req.RequesterName,
		SpecialMessage: req.SpecialMessage,
		Status:         models.StatusPending,
		Priority:       priority,
	}

	var rows []models.SongRequest
	if err := s.do(ctx, http.MethodPost, nil, []hostedRecord{record}, &rows); err != nil {
		return nil, fmt.Errorf("failed to create song request: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: create returned no rows", shared.ErrAPIRequest)
	}

	return &rows[0], nil
}

// List returns every request ordered by priority ascending, then newest first.
//
// Rows are fetched in pages with Range headers until the Content-Range total is reached, so a server-side
// row cap smaller than the page size does not truncate the result.
func (s *HostedStore) List(ctx context.Context) ([]models.SongRequest, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "priority.asc,created_at.desc")

	rows := make([]models.SongRequest, 0)
	seen := make(map[string]bool)
	for {
		header := http.Header{}
		header.Set("Range-Unit", "items")
		header.Set("Range", fmt.Sprintf("%d-%d", len(rows), len(rows)+s.pageSize-1))
		header.Set("Prefer", "count=exact")

		page := make([]models.SongRequest, 0)
		respHeader, err := s.doWithHeader(ctx, http.MethodGet, q, header, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list song requests: %w", err)
		}

		added := 0
		for _, row := range page {
			if seen[row.ID] {
				continue
			}
			seen[row.ID] = true
			rows = append(rows, row)
			added++
		}

		total, known := contentRangeTotal(respHeader.Get("Content-Range"))
		switch {
		case added == 0:
			return rows, nil
		case known && len(rows) >= total:
			return rows, nil
		case !known && len(page) < s.pageSize:
			return rows, nil
		}
		s.logger.Debug("listing next page", "fetched", len(rows), "total", total)
	}
}

// contentRangeTotal reads the total from a Content-Range value such as "0-999/1234".
func contentRangeTotal(value string) (int, bool) {
	_, total, ok := strings.Cut(value, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(total))
	if err != nil {
		return 0, false
	}
	return n, true
}

// UpdateStatus sets the status of a request and refreshes updated_at.
func (s *HostedStore) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.SongRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidTransition, status)
	}

	return s.patch(ctx, id, map[string]any{"status": status, "updated_at": s.now().Format(time.RFC3339Nano)})
}

// UpdatePriority sets the priority of a request and refreshes updated_at.
func (s *HostedStore) UpdatePriority(ctx context.Context, id string, priority int) (*models.SongRequest, error) {
	return s.patch(ctx, id, map[string]any{"priority": priority, "updated_at": s.now().Format(time.RFC3339Nano)})
}

// Delete permanently removes a request by ID
func (s *HostedStore) Delete(ctx context.Context, id string) error {
	var rows []models.SongRequest
	if err := s.do(ctx, http.MethodDelete, idFilter(id), nil, &rows); err != nil {
		return fmt.Errorf("failed to delete song request %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return nil
}

// Ping checks that the table is reachable with the configured key.
func (s *HostedStore) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")

	var rows []json.RawMessage
	return s.do(ctx, http.MethodGet, q, nil, &rows)
}

func (s *HostedStore) patch(ctx context.Context, id string, fields map[string]any) (*models.SongRequest, error) {
	var rows []models.SongRequest
	if err := s.do(ctx, http.MethodPatch, idFilter(id), fields, &rows); err != nil {
		return nil, fmt.Errorf("failed to update song request %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, id)
	}
	return &rows[0], nil
}

func (s *HostedStore) lastPendingPriority(ctx context.Context) (int, error) {
	q := url.Values{}
	q.Set("select", "priority")
	q.Set("status", "eq."+string(models.StatusPending))
	q.Set("order", "priority.desc")
	q.Set("limit", "1")

	var rows []struct {
		Priority int `json:"priority"`
	}
	if err := s.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return 0, fmt.Errorf("failed to read queue tail: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Priority, nil
}

func idFilter(id string) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return q
}

// do performs a request against the table endpoint, retrying transient failures, and decodes the JSON body into result.
func (s *HostedStore) do(ctx context.Context, method string, query url.Values, body any, result any) error {
	_, err := s.doWithHeader(ctx, method, query, nil, body, result)
	return err
}

// doWithHeader is [HostedStore.do] with extra request headers, returning the headers of the final response.
//
// POST is not idempotent: transport errors and most 5xx responses may follow a committed insert, so it is only
// retried on 429 and 503.
func (s *HostedStore) doWithHeader(
	ctx context.Context,
	method string,
	query url.Values,
	header http.Header,
	body any,
	result any,
) (http.Header, error) {
	idempotent := method != http.MethodPost
	endpoint := s.baseURL + "/rest/v1/" + url.PathEscape(s.table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	attempt := 0
	var respHeader http.Header
	operation := func() error {
		attempt++
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if method != http.MethodGet {
			req.Header.Set("Prefer", "return=representation")
		}
		if s.apiKey != "" {
			req.Header.Set("apikey", s.apiKey)
		}
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("%w: %w", shared.ErrAPIRequest, ctx.Err()))
			}
			s.logger.Warn("hosted store request failed", "method", method, "attempt", attempt, "error", err)
			reqErr := fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
			if !idempotent {
				return backoff.Permanent(reqErr)
			}
			return reqErr
		}
		defer resp.Body.Close()
		respHeader = resp.Header

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			readErr := fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
			if !idempotent {
				return backoff.Permanent(readErr)
			}
			return readErr
		}

		if resp.StatusCode >= 300 {
			statusErr := fmt.Errorf("%w: %s returned status %d: %s", shared.ErrAPIRequest, method, resp.StatusCode, truncate(data, 200))
			if retryableStatus(resp.StatusCode, idempotent) {
				s.logger.Warn("hosted store unavailable", "method", method, "status", resp.StatusCode, "attempt", attempt)
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if result == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, result); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return respHeader, nil
}

// retryableStatus reports whether a failed response may be retried. 429 and 503 mean the request was not processed.
func retryableStatus(code int, idempotent bool) bool {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusServiceUnavailable:
		return true
	case code >= 500:
		return idempotent
	default:
		return false
	}
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
