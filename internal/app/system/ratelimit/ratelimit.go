// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per key. It is safe for concurrent use.
// Idle buckets are evicted by Sweep, which Start runs periodically.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New allows burst requests per key, refilled evenly over per.
// New(5, time.Minute) admits 5 immediately, then one every 12s.
func New(burst int, per time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(per / time.Duration(burst)),
		burst:   burst,
		idle:    2 * per,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Reset forgets key, restoring its full burst.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Sweep drops buckets idle longer than twice the window.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// Start sweeps every interval until Stop.
func (l *Limiter) Start(interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.Sweep()
			case <-l.stop:
				return
			}
		}
	}()
}

func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the RemoteAddr host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// LoginLimiter combines a per-IP and a per-account limit so that neither
// one address nor one targeted account can burn through guesses.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows perMinute attempts per IP per minute and 5 per
// email per 5 minutes. perMinute <= 0 uses 10.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &LoginLimiter{
		ip:    New(perMinute, time.Minute),
		email: New(5, 5*time.Minute),
	}
}

// Check returns ok=false with a client-facing reason when blocked.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many attempts. Please wait a minute before trying again."
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !ll.email.Allow(key) {
			return false, "Too many attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the account limit after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.email.Reset(key)
	}
}

// Start runs background sweeps on both limiters.
func (ll *LoginLimiter) Start(interval time.Duration) {
	ll.ip.Start(interval)
	ll.email.Start(interval)
}

func (ll *LoginLimiter) Stop() {
	ll.ip.Stop()
	ll.email.Stop()
}
