package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStorage_UpdateIsAtomicPerKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "10.0.0.1", t0, func(rec *domain.IPActivityRecord) error {
				rec.Count(t0)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected update error: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := s.Get(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if rec.TotalRequests != 200 {
		t.Fatalf("expected 200 counted requests, got %d", rec.TotalRequests)
	}
}

func TestStorage_UpdateErrorSkipsWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Update(ctx, "10.0.0.2", t0, func(*domain.IPActivityRecord) error {
		return context.Canceled
	})
	if err == nil {
		t.Fatalf("expected callback error to propagate")
	}
	if _, err := s.Get(ctx, "10.0.0.2"); !domain.IsNotFound(err) {
		t.Fatalf("expected no record to be written, got %v", err)
	}
}

func TestStorage_WhitelistInsertIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, created, err := s.InsertWhitelist(ctx, domain.WhitelistEntry{IP: "1.1.1.1", AddedAt: t0})
	if err != nil || !created {
		t.Fatalf("expected first insert to create, created=%v err=%v", created, err)
	}
	second, created, err := s.InsertWhitelist(ctx, domain.WhitelistEntry{IP: "1.1.1.1", AddedAt: t0.Add(time.Hour)})
	if err != nil || created {
		t.Fatalf("expected second insert to be a no-op, created=%v err=%v", created, err)
	}
	if !second.AddedAt.Equal(first.AddedAt) {
		t.Fatalf("expected original entry to be kept, got %v", second.AddedAt)
	}
}

func TestStorage_AuditRangeAndQuery(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Appended out of order on purpose.
	offsets := []int{0, 3, 1, 12, 7}
	for i, off := range offsets {
		status := domain.AuditAllowed
		if i%2 == 1 {
			status = domain.AuditBlocked
		}
		err := s.AppendAudit(ctx, domain.AuditLogEntry{
			ID:        string(rune('a' + i)),
			Timestamp: t0.Add(time.Duration(off) * time.Second),
			IP:        "10.0.0.1",
			Status:    status,
		})
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	got, err := s.AuditRange(ctx, t0.Add(time.Second), t0.Add(7*time.Second))
	if err != nil {
		t.Fatalf("range failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries in range, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("expected chronological order, got %v", got)
		}
	}

	recent, _ := s.QueryAudit(ctx, domain.AuditFilter{Limit: 2})
	if len(recent) != 2 || !recent[0].Timestamp.Equal(t0.Add(12*time.Second)) {
		t.Fatalf("expected newest first, got %+v", recent)
	}

	blocked, _ := s.CountAudit(ctx, domain.AuditBlocked)
	if blocked != 2 {
		t.Fatalf("expected 2 blocked entries, got %d", blocked)
	}

	pruned, _ := s.PruneAudit(ctx, t0.Add(2*time.Second))
	if pruned != 2 {
		t.Fatalf("expected 2 entries pruned, got %d", pruned)
	}
}

func TestStorage_RulesAtReturnsVersionInEffect(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := domain.DefaultRuleSet(t0.Add(time.Duration(i) * time.Hour))
		r.MaxRequestsPerSecond = i + 1
		if _, err := s.AppendRules(ctx, r); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	at, err := s.RulesAt(ctx, t0.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if at.MaxRequestsPerSecond != 2 {
		t.Fatalf("expected second version, got %+v", at)
	}
	if _, err := s.RulesAt(ctx, t0.Add(-time.Minute)); !domain.IsNotFound(err) {
		t.Fatalf("expected not found before first version, got %v", err)
	}

	history, _ := s.RuleHistory(ctx, 2)
	if len(history) != 2 || history[0].MaxRequestsPerSecond != 3 {
		t.Fatalf("expected newest two versions, got %+v", history)
	}
}
