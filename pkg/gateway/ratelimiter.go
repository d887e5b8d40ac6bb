package gateway

import (
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	defaultConnectsPerMinute = 60
	defaultMaxSessionsPerIP  = 10
)

// Rejection reasons reported by ConnLimiter.Acquire.
const (
	ReasonTooManySessions = "too many concurrent sessions"
	ReasonRateLimited     = "rate limit exceeded"
)

type ipWindow struct {
	connects []time.Time
	active   int
}

// ConnLimiter implements sliding window connection limiting per client IP,
// together with a cap on concurrently open sessions per IP.
type ConnLimiter struct {
	mu                sync.Mutex
	connectsPerMinute int
	maxConcurrent     int
	clock             clock.Clock
	windows           map[string]*ipWindow
}

// NewConnLimiter creates a limiter. Non-positive limits fall back to defaults.
func NewConnLimiter(connectsPerMinute, maxConcurrent int, clk clock.Clock) *ConnLimiter {
	if connectsPerMinute <= 0 {
		connectsPerMinute = defaultConnectsPerMinute
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxSessionsPerIP
	}
	if clk == nil {
		clk = clock.New()
	}
	return &ConnLimiter{
		connectsPerMinute: connectsPerMinute,
		maxConcurrent:     maxConcurrent,
		clock:             clk,
		windows:           make(map[string]*ipWindow),
	}
}

// Acquire records a connection attempt from addr. When it returns true the
// caller must call Release once the session ends.
func (l *ConnLimiter) Acquire(addr string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ip := hostOf(addr)
	w := l.windows[ip]
	if w == nil {
		w = &ipWindow{}
		l.windows[ip] = w
	}
	w.connects = prune(w.connects, l.clock.Now().Add(-time.Minute))

	if w.active >= l.maxConcurrent {
		return false, ReasonTooManySessions
	}
	if len(w.connects) >= l.connectsPerMinute {
		return false, ReasonRateLimited
	}

	w.connects = append(w.connects, l.clock.Now())
	w.active++
	return true, ""
}

// Release ends a session acquired for addr.
func (l *ConnLimiter) Release(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ip := hostOf(addr)
	w, ok := l.windows[ip]
	if !ok {
		return
	}
	if w.active > 0 {
		w.active--
	}
	w.connects = prune(w.connects, l.clock.Now().Add(-time.Minute))
	if w.active == 0 && len(w.connects) == 0 {
		delete(l.windows, ip)
	}
}

// GetStats returns the connects within the last minute and the open sessions
// for addr.
func (l *ConnLimiter) GetStats(addr string) (connectCount, activeCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[hostOf(addr)]
	if !ok {
		return 0, 0
	}
	w.connects = prune(w.connects, l.clock.Now().Add(-time.Minute))
	return len(w.connects), w.active
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
