package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func TestReputationRegistry_WhitelistWinsOverBlacklist(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.reputation.AddToBlacklist(ctx, "1.2.3.4", "abuse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.reputation.AddToWhitelist(ctx, "1.2.3.4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := s.reputation.Check(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.ReputationWhitelisted {
		t.Fatalf("expected whitelisted, got %s", status)
	}
}

func TestReputationRegistry_Statuses(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.reputation.AddToBlacklist(ctx, "5.5.5.5", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.activity.Block(ctx, "6.6.6.6", time.Minute, domain.ReasonPerSecondExceeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]domain.ReputationStatus{
		"5.5.5.5": domain.ReputationBlacklisted,
		"6.6.6.6": domain.ReputationTemporarilyBlocked,
		"7.7.7.7": domain.ReputationNone,
	}
	for ip, want := range cases {
		got, err := s.reputation.Check(ctx, ip)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", ip, err)
		}
		if got != want {
			t.Fatalf("expected %s for %s, got %s", want, ip, got)
		}
	}

	entry, _ := s.store.FindBlacklist(ctx, "5.5.5.5")
	if entry.Reason != "manual" {
		t.Fatalf("expected default reason, got %q", entry.Reason)
	}
}

func TestReputationRegistry_BlacklistUpsertRefreshes(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.reputation.AddToBlacklist(ctx, "9.9.9.9", "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.clock.Advance(time.Hour)
	entry, err := s.reputation.AddToBlacklist(ctx, "9.9.9.9", "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Reason != "second" || !entry.AddedAt.Equal(testBase.Add(time.Hour)) {
		t.Fatalf("expected refreshed entry, got %+v", entry)
	}

	list, _ := s.reputation.ListBlacklist(ctx)
	if len(list) != 1 {
		t.Fatalf("expected a single entry after upsert, got %d", len(list))
	}
}

func TestReputationRegistry_WhitelistAddKeepsExisting(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	first, _ := s.reputation.AddToWhitelist(ctx, "8.8.8.8")
	s.clock.Advance(time.Hour)
	second, err := s.reputation.AddToWhitelist(ctx, "8.8.8.8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AddedAt.Equal(first.AddedAt) {
		t.Fatalf("expected existing entry unchanged, got %+v", second)
	}
}

func TestReputationRegistry_RemoveIsIdempotent(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.reputation.AddToBlacklist(ctx, "4.4.4.4", "abuse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, err := s.reputation.RemoveFromBlacklist(ctx, "4.4.4.4")
	if err != nil || !removed {
		t.Fatalf("expected first removal to succeed, removed=%v err=%v", removed, err)
	}
	removed, err = s.reputation.RemoveFromBlacklist(ctx, "4.4.4.4")
	if err != nil || removed {
		t.Fatalf("expected second removal to be a no-op, removed=%v err=%v", removed, err)
	}
	removed, err = s.reputation.RemoveFromWhitelist(ctx, "4.4.4.4")
	if err != nil || removed {
		t.Fatalf("expected whitelist removal of absent ip to be a no-op, removed=%v err=%v", removed, err)
	}
}

func TestReputationRegistry_ListNewestFirst(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	for _, ip := range []string{"1.0.0.1", "1.0.0.2", "1.0.0.3"} {
		if _, err := s.reputation.AddToWhitelist(ctx, ip); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s.clock.Advance(time.Second)
	}

	list, err := s.reputation.ListWhitelist(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 || list[0].IP != "1.0.0.3" || list[2].IP != "1.0.0.1" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestReputationRegistry_RejectsEmptyIP(t *testing.T) {
	s := newTestStack(t)
	if _, err := s.reputation.AddToBlacklist(context.Background(), "  ", "x"); !errors.Is(err, domain.ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
}
