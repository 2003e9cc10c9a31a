package server

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/djq/internal/shared"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs each request with method, path, status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"client", GetClientIP(r),
			)
		})
	}
}

// Recover turns a panicking handler into a 500 response.
func Recover(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", fmt.Sprint(v))
					ErrorResponse(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// ClientLimiter hands out a token bucket per client address. Buckets idle for longer than ten minutes are
// dropped; by then they have refilled, so a new bucket behaves the same.
type ClientLimiter struct {
	limiters cmap.ConcurrentMap[string, *clientBucket]
	limit    rate.Limit
	burst    int
	trusted  []netip.Prefix
	now      func() time.Time

	lastSweep atomic.Int64
}

// NewClientLimiter allows perSecond events per client with the given burst. A non-positive rate disables limiting.
//
// Forwarding headers are only read from peers inside trusted; with none, the client is always the direct peer.
func NewClientLimiter(perSecond float64, burst int, trusted ...netip.Prefix) *ClientLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &ClientLimiter{
		limiters: cmap.New[*clientBucket](),
		limit:    limit,
		burst:    burst,
		trusted:  trusted,
		now:      time.Now,
	}
}

// ClientIP returns the address requests from r are limited under.
func (c *ClientLimiter) ClientIP(r *http.Request) string {
	return ClientIP(r, c.trusted)
}

// Allow reports whether client may proceed now.
func (c *ClientLimiter) Allow(client string) bool {
	now := c.now()
	c.sweep(now)

	bucket := c.limiters.Upsert(client, nil, func(exists bool, current, _ *clientBucket) *clientBucket {
		if exists {
			return current
		}
		return &clientBucket{limiter: rate.NewLimiter(c.limit, c.burst)}
	})
	bucket.lastSeen.Store(now.UnixNano())
	return bucket.limiter.AllowN(now, 1)
}

// Clients returns the number of client buckets currently held.
func (c *ClientLimiter) Clients() int {
	return c.limiters.Count()
}

// sweep drops idle buckets, at most once per minute.
func (c *ClientLimiter) sweep(now time.Time) {
	last := c.lastSweep.Load()
	if now.UnixNano()-last < int64(limiterSweepEvery) || !c.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-limiterIdleTTL).UnixNano()
	for _, client := range c.limiters.Keys() {
		c.limiters.RemoveCb(client, func(_ string, b *clientBucket, exists bool) bool {
			return exists && b.lastSeen.Load() < cutoff
		})
	}
}

// Limit rejects requests beyond the client's allowance with 429.
func (c *ClientLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Allow(c.ClientIP(r)) {
			w.Header().Set("Retry-After", "5")
			ErrorResponse(w, http.StatusTooManyRequests, "too many requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ParseTrustedProxies parses proxy addresses and CIDR ranges such as "10.0.0.1" or "10.0.0.0/8".
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: trusted proxy %q: %w", shared.ErrInvalidConfig, v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: trusted proxy %q: %w", shared.ErrInvalidConfig, v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// GetClientIP returns the direct peer address of r.
func GetClientIP(r *http.Request) string {
	return ClientIP(r, nil)
}

// ClientIP extracts the client address of r.
//
// When the direct peer is a trusted proxy, X-Forwarded-For is read right to left and the first hop outside
// trusted is the client; X-Real-IP is used when that header is absent. Otherwise headers are ignored.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !isTrusted(hop, trusted) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
