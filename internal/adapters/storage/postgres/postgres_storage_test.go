package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	storage, err := New(db)
	if err != nil {
		t.Fatalf("create storage: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestStorage_ActivityUpdateAndBlock(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if _, err := storage.Get(ctx, "10.0.0.1"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err := storage.Update(ctx, "10.0.0.1", t0, func(rec *domain.IPActivityRecord) error {
			rec.Count(t0)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected update error: %v", err)
		}
	}

	rec, err := storage.Update(ctx, "10.0.0.1", t0, func(rec *domain.IPActivityRecord) error {
		rec.Block(t0.Add(5*time.Minute), domain.ReasonPerSecondExceeded)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.TotalRequests != 3 || !rec.IsBlocked {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := storage.Get(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BlockedUntil == nil || !got.BlockedUntil.Equal(t0.Add(5*time.Minute)) {
		t.Fatalf("expected blocked_until persisted, got %+v", got.BlockedUntil)
	}
	if !got.FirstDetected.Equal(t0) || got.BlockReason != domain.ReasonPerSecondExceeded {
		t.Fatalf("unexpected stored record: %+v", got)
	}

	blocked, err := storage.ListBlocked(ctx)
	if err != nil || len(blocked) != 1 {
		t.Fatalf("expected one blocked record, got %d err=%v", len(blocked), err)
	}

	_, err = storage.Update(ctx, "10.0.0.1", t0, func(rec *domain.IPActivityRecord) error {
		rec.Unblock()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = storage.Get(ctx, "10.0.0.1")
	if got.IsBlocked || got.BlockedUntil != nil {
		t.Fatalf("expected block cleared, got %+v", got)
	}
}

func TestStorage_UpdateCallbackErrorRollsBack(t *testing.T) {
	storage := setupTestStorage(t)
	boom := errors.New("boom")

	_, err := storage.Update(context.Background(), "10.0.0.2", t0, func(*domain.IPActivityRecord) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := storage.Get(context.Background(), "10.0.0.2"); !domain.IsNotFound(err) {
		t.Fatalf("expected seed insert rolled back, got %v", err)
	}
}

func TestStorage_Reputation(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if _, err := storage.UpsertBlacklist(ctx, domain.BlacklistEntry{IP: "1.1.1.1", Reason: "first", AddedAt: t0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := storage.UpsertBlacklist(ctx, domain.BlacklistEntry{IP: "1.1.1.1", Reason: "second", AddedAt: t0.Add(time.Hour)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, err := storage.FindBlacklist(ctx, "1.1.1.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Reason != "second" || !entry.AddedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("expected refreshed blacklist entry, got %+v", entry)
	}

	_, created, err := storage.InsertWhitelist(ctx, domain.WhitelistEntry{IP: "2.2.2.2", AddedAt: t0})
	if err != nil || !created {
		t.Fatalf("expected whitelist insert, created=%v err=%v", created, err)
	}
	existing, created, err := storage.InsertWhitelist(ctx, domain.WhitelistEntry{IP: "2.2.2.2", AddedAt: t0.Add(time.Hour)})
	if err != nil || created || !existing.AddedAt.Equal(t0) {
		t.Fatalf("expected existing whitelist entry, got %+v created=%v err=%v", existing, created, err)
	}

	removed, err := storage.DeleteBlacklist(ctx, "1.1.1.1")
	if err != nil || !removed {
		t.Fatalf("expected removal, removed=%v err=%v", removed, err)
	}
	removed, err = storage.DeleteBlacklist(ctx, "1.1.1.1")
	if err != nil || removed {
		t.Fatalf("expected idempotent removal, removed=%v err=%v", removed, err)
	}

	list, err := storage.ListWhitelist(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one whitelist entry, got %d err=%v", len(list), err)
	}
}

func TestStorage_RuleVersions(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if _, err := storage.LatestRules(ctx); !domain.IsNotFound(err) {
		t.Fatalf("expected not found before bootstrap, got %v", err)
	}

	for i := 0; i < 3; i++ {
		r := domain.DefaultRuleSet(t0.Add(time.Duration(i) * time.Hour))
		r.MaxRequestsPerSecond = 10 + i
		if _, err := storage.AppendRules(ctx, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	latest, err := storage.LatestRules(ctx)
	if err != nil || latest.MaxRequestsPerSecond != 12 {
		t.Fatalf("expected newest version, got %+v err=%v", latest, err)
	}
	at, err := storage.RulesAt(ctx, t0.Add(30*time.Minute))
	if err != nil || at.MaxRequestsPerSecond != 10 {
		t.Fatalf("expected first version in effect, got %+v err=%v", at, err)
	}
	history, err := storage.RuleHistory(ctx, 2)
	if err != nil || len(history) != 2 || history[0].ID != latest.ID {
		t.Fatalf("unexpected history: %+v err=%v", history, err)
	}
}

func TestStorage_AuditAndSnapshots(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	statuses := []domain.AuditStatus{domain.AuditAllowed, domain.AuditBlocked, domain.AuditSuspicious, domain.AuditBlocked}
	for i, status := range statuses {
		err := storage.AppendAudit(ctx, domain.AuditLogEntry{
			ID:        fmt.Sprintf("entry-%d", i),
			Timestamp: t0.Add(time.Duration(i) * 5 * time.Second),
			IP:        "10.0.0.1",
			Endpoint:  "/",
			Status:    status,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	window, err := storage.AuditRange(ctx, t0.Add(5*time.Second), t0.Add(10*time.Second))
	if err != nil || len(window) != 2 || window[0].ID != "entry-1" {
		t.Fatalf("unexpected range result: %+v err=%v", window, err)
	}

	blocked, err := storage.QueryAudit(ctx, domain.AuditFilter{Status: domain.AuditBlocked})
	if err != nil || len(blocked) != 2 || blocked[0].ID != "entry-3" {
		t.Fatalf("unexpected query result: %+v err=%v", blocked, err)
	}

	n, err := storage.CountAudit(ctx, domain.AuditBlocked)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 blocked entries, got %d err=%v", n, err)
	}

	pruned, err := storage.PruneAudit(ctx, t0.Add(6*time.Second))
	if err != nil || pruned != 2 {
		t.Fatalf("expected 2 pruned rows, got %d err=%v", pruned, err)
	}

	if _, err := storage.LatestSnapshot(ctx); !domain.IsNotFound(err) {
		t.Fatalf("expected no snapshots yet, got %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err := storage.AppendSnapshot(ctx, domain.TrafficSnapshot{
			Timestamp:         t0.Add(time.Duration(i) * time.Minute),
			RequestsPerSecond: int64(i),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	latest, err := storage.LatestSnapshot(ctx)
	if err != nil || latest.RequestsPerSecond != 2 {
		t.Fatalf("unexpected latest snapshot: %+v err=%v", latest, err)
	}
	since, err := storage.SnapshotsSince(ctx, t0.Add(time.Minute))
	if err != nil || len(since) != 2 || since[0].RequestsPerSecond != 2 {
		t.Fatalf("unexpected snapshots since: %+v err=%v", since, err)
	}
}
