// Package timeouts holds the deadlines applied to store, media and mail calls.
//
// Handlers derive a child context with context.WithTimeout(r.Context(), timeouts.Short())
// before touching MongoDB. Values can be overridden once at startup with Configure.
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list and search queries, populate lookups
//   - Upload: media uploads to the local disk or S3
//   - Mail: outbound OTP delivery
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultUpload = 2 * time.Minute
	DefaultMail   = 15 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	upload = DefaultUpload
	mail   = DefaultMail
)

func Ping() time.Duration   { return get(&ping) }
func Short() time.Duration  { return get(&short) }
func Medium() time.Duration { return get(&medium) }
func Upload() time.Duration { return get(&upload) }
func Mail() time.Duration   { return get(&mail) }

func get(d *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *d
}

// Config overrides timeouts. Zero values keep the current setting.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Upload time.Duration
	Mail   time.Duration
}

// Configure applies cfg. Call during startup, before handlers run.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&upload, cfg.Upload)
	set(&mail, cfg.Mail)
}

// Reset restores the defaults. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, upload, mail = DefaultPing, DefaultShort, DefaultMedium, DefaultUpload, DefaultMail
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Upload: upload, Mail: mail}
}

// WithTimeout is context.WithTimeout plus a warning log when the deadline
// is what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Upload(), h.Log, "course media upload")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out", zap.String("operation", operation), zap.Duration("timeout", d))
		}
		cancel()
	}
}
