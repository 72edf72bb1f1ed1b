// Package errreport forwards unexpected server failures to Rollbar.
package errreport

import (
	"net/http"

	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"
)

// Rollbar reports request failures through the rollbar-go global client.
type Rollbar struct {
	log *zap.Logger
}

// NewRollbar configures the global rollbar client. An empty token returns
// nil, which callers treat as reporting disabled.
func NewRollbar(token, env, host string, logger *zap.Logger) *Rollbar {
	if token == "" {
		return nil
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetServerHost(host)
	rollbar.SetEnabled(true)
	logger.Info("rollbar error reporting enabled", zap.String("env", env))
	return &Rollbar{log: logger}
}

// Report sends err with request context. Delivery is asynchronous.
func (r *Rollbar) Report(req *http.Request, err error) {
	if r == nil || err == nil {
		return
	}
	rollbar.RequestError(rollbar.ERR, req, err)
}

// Flush waits for queued reports; call during shutdown.
func (r *Rollbar) Flush() {
	if r == nil {
		return
	}
	rollbar.Wait()
}
