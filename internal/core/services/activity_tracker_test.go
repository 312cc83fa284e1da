package services

import (
	"context"
	"testing"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func TestActivityTracker_RecordRequestDecays(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.activity.RecordRequest(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	s.clock.Advance(1500 * time.Millisecond)
	rec, err := s.activity.Get(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.RequestsLastSecond != 0 {
		t.Fatalf("expected per-second counter to read as decayed, got %d", rec.RequestsLastSecond)
	}
	if rec.RequestsLastMinute != 4 || rec.TotalRequests != 4 {
		t.Fatalf("unexpected counters: %+v", rec)
	}

	s.clock.Advance(time.Minute)
	rec, _ = s.activity.RecordRequest(ctx, "10.0.0.1")
	if rec.RequestsLastMinute != 1 || rec.TotalRequests != 5 {
		t.Fatalf("expected minute window to restart, got %+v", rec)
	}
	if !rec.FirstDetected.Equal(testBase) {
		t.Fatalf("expected first_detected to be preserved, got %v", rec.FirstDetected)
	}
}

func TestActivityTracker_LazyExpiryRoundTrip(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.activity.Block(ctx, "10.0.0.9", time.Minute, domain.ReasonPerSecondExceeded); err != nil {
		t.Fatalf("unexpected block error: %v", err)
	}

	blocked, err := s.activity.IsBlocked(ctx, "10.0.0.9")
	if err != nil || !blocked {
		t.Fatalf("expected ip to be blocked, blocked=%v err=%v", blocked, err)
	}

	s.clock.Advance(61 * time.Second)
	blocked, err = s.activity.IsBlocked(ctx, "10.0.0.9")
	if err != nil || blocked {
		t.Fatalf("expected block to lapse, blocked=%v err=%v", blocked, err)
	}

	rec, err := s.store.Get(ctx, "10.0.0.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.IsBlocked || rec.BlockedUntil != nil {
		t.Fatalf("expected expired block to be cleared in storage, got %+v", rec)
	}
}

func TestActivityTracker_ListBlockedSkipsExpired(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.activity.Block(ctx, "10.0.0.1", 10*time.Second, "short"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.activity.Block(ctx, "10.0.0.2", time.Hour, "long"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.clock.Advance(30 * time.Second)
	blocked, err := s.activity.ListBlocked(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocked) != 1 || blocked[0].IP != "10.0.0.2" {
		t.Fatalf("expected only the long block to be listed, got %+v", blocked)
	}
}

func TestActivityTracker_UnblockUnknownIP(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	found, err := s.activity.Unblock(ctx, "198.51.100.200")
	if err != nil || found {
		t.Fatalf("expected unknown ip to report not found, found=%v err=%v", found, err)
	}
	if _, err := s.store.Get(ctx, "198.51.100.200"); !domain.IsNotFound(err) {
		t.Fatalf("expected unblock not to create a record, got %v", err)
	}

	if _, err := s.activity.Block(ctx, "198.51.100.200", time.Hour, "manual"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found, err = s.activity.Unblock(ctx, "198.51.100.200")
	if err != nil || !found {
		t.Fatalf("expected unblock to succeed, found=%v err=%v", found, err)
	}
	if blocked, _ := s.activity.IsBlocked(ctx, "198.51.100.200"); blocked {
		t.Fatalf("expected ip to be unblocked")
	}
}
