package wardblog

import (
	"sync"
	"time"
)

// loginLimiter throttles failed sign-in attempts per client IP. Only
// failures count against the quota; a successful sign-in is never
// throttled by earlier successes.
type loginLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Check reports whether the IP may attempt a sign-in. It prunes expired
// failures but records nothing; call Record when the attempt fails.
func (l *loginLimiter) Check(ip string) bool {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.failures[ip]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, ip)
		return l.max > 0
	}
	l.failures[ip] = kept
	return len(kept) < l.max
}

// Record registers a failed attempt for the IP.
func (l *loginLimiter) Record(ip string) {
	l.mu.Lock()
	l.failures[ip] = append(l.failures[ip], l.now())
	l.mu.Unlock()
}
