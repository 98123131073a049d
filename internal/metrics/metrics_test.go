package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_lookups(t *testing.T) {
	m := New()
	m.IncLookup(OutcomeOK)
	m.IncLookup(OutcomeOK)
	m.IncLookup(OutcomeNotLive)

	if got := testutil.ToFloat64(m.lookupsTotal.WithLabelValues(OutcomeOK)); got != 2 {
		t.Errorf("ok lookups = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.lookupsTotal.WithLabelValues(OutcomeNotLive)); got != 1 {
		t.Errorf("not_live lookups = %v, want 1", got)
	}
}

func TestMetrics_ObserveUpstream(t *testing.T) {
	m := New()
	m.ObserveUpstream("room_info", 20*time.Millisecond, nil)
	m.ObserveUpstream("room_info", 30*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.upstreamTotal.WithLabelValues("room_info", "ok")); got != 1 {
		t.Errorf("ok = %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamTotal.WithLabelValues("room_info", "error")); got != 1 {
		t.Errorf("error = %v", got)
	}
	if n := testutil.CollectAndCount(m.upstreamDuration); n != 1 {
		t.Errorf("histogram series = %d, want 1", n)
	}
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	for _, p := range []string{"/ok", "/bad", "/ok"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(m.requestsTotal); got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncLookup(OutcomeError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `bililive_lookups_total{outcome="error"} 1`) {
		t.Errorf("metrics output missing lookup counter:\n%s", body)
	}
}
