package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/course/CourseDetail/{courseId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/course/CourseDetail/abc", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/course/CourseDetail/{courseId}", "404"))
	if got != 2 {
		t.Errorf("request count = %v, want 2", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.Enrollment(ResultOK)
	m.Enrollment(ResultDenied)
	m.Enrollment(ResultOK)
	m.Login("password", ResultOK)

	if got := testutil.ToFloat64(m.enrollments.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok enrollments = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.logins.WithLabelValues("password", ResultOK)); got != 1 {
		t.Errorf("logins = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Enrollment(ResultOK)
	m.Login("google", ResultError)
	m.Upload("course-media", ResultOK)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.Enrollment(ResultOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "learnhub_enrollments_total") {
		t.Error("exposition missing enrollments counter")
	}
}
