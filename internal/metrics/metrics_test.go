package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsCount(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionStarted()
	m.SessionStarted()
	m.ResultRecorded("timeout", 40)
	m.PersistFailed()
	m.Explanation("cache")
	m.GPAComputed("Distinction")
	m.ObserveRequest("GET", "/healthz", 200, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.sessionsStarted); got != 2 {
		t.Fatalf("sessions started = %v", got)
	}
	if got := testutil.ToFloat64(m.results.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeout results = %v", got)
	}
	if got := testutil.ToFloat64(m.persistFailures); got != 1 {
		t.Fatalf("persist failures = %v", got)
	}
	if got := testutil.ToFloat64(m.gpaComputations.WithLabelValues("Distinction")); got != 1 {
		t.Fatalf("gpa computations = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.ResultRecorded("submitted", 10)
	m.PersistFailed()
	m.Explanation("generated")
	m.GPAComputed("Fail")
	m.ObserveRequest("GET", "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SessionStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "quiz_sessions_started_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
