package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/time/rate"
)

const (
	// defaultRateLimit is the sustained per-IP request rate (requests/second).
	defaultRateLimit = 10.0
	// defaultRateBurst is the per-IP burst allowance.
	defaultRateBurst = 20

	// evictInterval is how often stale limiter entries are scanned.
	evictInterval = time.Minute
	// evictAfter is how long an IP must be idle before its limiter is dropped.
	evictAfter = 5 * time.Minute
)

// ipLimiter tracks one client's token bucket and last activity.
type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter applies a per-IP token bucket to wrapped handlers.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*ipLimiter
	limit   rate.Limit
	burst   int
	log     *slog.Logger
	done    chan struct{}
}

// newRateLimiter builds a limiter and starts its background eviction loop.
// The returned stop function terminates the loop.
func newRateLimiter(rps float64, burst int, log *slog.Logger) (*rateLimiter, func()) {
	rl := &rateLimiter{
		clients: make(map[string]*ipLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		log:     log,
		done:    make(chan struct{}),
	}
	go rl.evictLoop()

	var once sync.Once
	return rl, func() { once.Do(func() { close(rl.done) }) }
}

func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.clients[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// evictLoop drops limiters for IPs that have gone idle.
func (rl *rateLimiter) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, entry := range rl.clients {
				if time.Since(entry.lastSeen) > evictAfter {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// middleware rejects requests that exceed the per-IP budget with 429.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.get(ip).Allow() {
			rl.log.Warn("rate limit exceeded", slog.String("client", ip))
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the remote host without the port. The server binds to
// loopback by default, so proxy headers are deliberately not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
