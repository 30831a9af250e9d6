package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestLogger writes one access log line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// SimulateLatency delays every request by d. Zero disables it.
// A cancelled request returns as soon as its context is done.
func SimulateLatency(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				next.ServeHTTP(w, r)
			case <-r.Context().Done():
			}
		})
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Authenticate puts the caller's identity in the request context when a
// valid bearer token is present. It never rejects.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		id, err := h.Auth.Authenticate(token)
		if err != nil {
			h.logger.Debug("rejected bearer token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole lets through callers holding one of roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Forbidden", nil)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// limiterIdle is the minimum time an address stays tracked after its last
// request.
const limiterIdle = 10 * time.Minute

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// IPRateLimiter hands out one token bucket per client address. Buckets idle
// for longer than the idle window are dropped on a later call.
type IPRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	r         rate.Limit
	b         int
	idle      time.Duration
	clock     generic.Clock
	lastSweep time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return NewIPRateLimiterWithClock(r, b, generic.SystemClock{})
}

// NewIPRateLimiterWithClock reads time from clock. The idle window is never
// shorter than the time a drained bucket needs to refill, so dropping a
// bucket cannot hand a client extra tokens.
func NewIPRateLimiterWithClock(r rate.Limit, b int, clock generic.Clock) *IPRateLimiter {
	idle := limiterIdle
	if r > 0 {
		if refill := time.Duration(float64(b) / float64(r) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &IPRateLimiter{buckets: make(map[string]*ipBucket), r: r, b: b, idle: idle, clock: clock}
}

func (l *IPRateLimiter) Limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Sub(l.lastSweep) >= l.idle {
		for k, bucket := range l.buckets {
			if now.Sub(bucket.seen) >= l.idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &ipBucket{lim: rate.NewLimiter(l.r, l.b)}
		l.buckets[key] = bucket
	}
	bucket.seen = now
	return bucket.lim
}

// Len reports how many addresses are tracked.
func (l *IPRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitByIP answers 429 once a client exceeds r requests per second
// (burst b). A non-positive r disables limiting.
func RateLimitByIP(r rate.Limit, b int) func(http.Handler) http.Handler {
	limiter := NewIPRateLimiter(r, b)
	return func(next http.Handler) http.Handler {
		if r <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Limiter(clientIP(req)).Allow() {
				writeError(w, http.StatusTooManyRequests, "Too many requests from this IP", nil)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
