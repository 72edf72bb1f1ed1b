// Package jsonresp writes the JSON envelope used by every API response:
//
//	{"success": bool, "message": string, "data": any, "details": [...]}
package jsonresp

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Envelope is the wire shape of every response.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// Reporter receives server-side failures after they are logged.
type Reporter interface {
	Report(r *http.Request, err error)
}

var (
	repMu    sync.RWMutex
	reporter Reporter
)

// SetReporter installs the reporter used for UpstreamFailure responses.
// Passing nil disables reporting.
func SetReporter(r Reporter) {
	repMu.Lock()
	defer repMu.Unlock()
	reporter = r
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, msg string, data any) {
	JSON(w, status, Envelope{Success: true, Message: msg, Data: data})
}

// Error writes the failure envelope for err. UpstreamFailure always renders
// the generic message; the cause is logged and reported, never echoed.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e := apperr.As(err)
	status := e.Kind.Status()

	if e.Kind == apperr.KindUpstream {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("op", e.Message),
				zap.Error(e.Err))
		}
		repMu.RLock()
		rep := reporter
		repMu.RUnlock()
		if rep != nil {
			rep.Report(r, err)
		}
		JSON(w, status, Envelope{Success: false, Message: "internal server error"})
		return
	}

	JSON(w, status, Envelope{Success: false, Message: e.Message, Details: e.Details})
}

// Decode reads a JSON body into v. Malformed bodies are a ValidationFailed.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("malformed JSON body")
	}
	return nil
}
