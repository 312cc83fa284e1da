package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func TestPrometheus_ObserveDecision(t *testing.T) {
	p := NewPrometheus()

	p.ObserveDecision(domain.Decision{Allowed: true, Reason: domain.ReasonPassedAllChecks}, time.Millisecond)
	p.ObserveDecision(domain.Decision{Allowed: false, Reason: domain.ReasonBlacklisted}, time.Millisecond)
	p.ObserveDecision(domain.Decision{
		Allowed:    true,
		Suspicious: true,
		Reason:     domain.ReasonPassedAllChecks,
		Anomalies:  []string{domain.FlagHighVelocity},
	}, time.Millisecond)

	if got := testutil.ToFloat64(p.decisions.WithLabelValues("blocked", domain.ReasonBlacklisted)); got != 1 {
		t.Fatalf("expected one blocked decision, got %v", got)
	}
	if got := testutil.ToFloat64(p.decisions.WithLabelValues("suspicious", domain.ReasonPassedAllChecks)); got != 1 {
		t.Fatalf("expected one suspicious decision, got %v", got)
	}
	if got := testutil.ToFloat64(p.anomalies.WithLabelValues(domain.FlagHighVelocity)); got != 1 {
		t.Fatalf("expected one high_velocity flag, got %v", got)
	}
}

func TestPrometheus_SnapshotGaugesAndHandler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveSnapshot(domain.TrafficSnapshot{RequestsPerSecond: 2, RequestsPerMinute: 120, BlockedCount: 3, SuspiciousCount: 2})

	if got := testutil.ToFloat64(p.requestsPerMinute); got != 120 {
		t.Fatalf("expected rpm gauge 120, got %v", got)
	}

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "ddos_shield_traffic_blocked_requests 3") {
		t.Fatalf("expected blocked gauge in exposition, got:\n%s", body)
	}
}
