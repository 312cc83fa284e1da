package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/adapters/storage/memory"
	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
	"github.com/Priyamannem/ddos-shield/internal/logging"
)

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("store unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testBase}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore wraps the memory store and fails selected operations on demand.
type flakyStore struct {
	*memory.Storage

	mu    sync.Mutex
	fails failures
}

type failures struct {
	activityReads  bool
	activityWrites bool
	reputation     bool
	audit          bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Storage: memory.New()}
}

func (f *flakyStore) set(fails failures) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = fails
}

func (f *flakyStore) flags() failures {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fails
}

func (f *flakyStore) Get(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	if f.flags().activityReads {
		return domain.IPActivityRecord{}, errStoreDown
	}
	return f.Storage.Get(ctx, ip)
}

func (f *flakyStore) Update(ctx context.Context, ip string, now time.Time, fn func(*domain.IPActivityRecord) error) (domain.IPActivityRecord, error) {
	flags := f.flags()
	if flags.activityReads {
		return domain.IPActivityRecord{}, errStoreDown
	}
	if flags.activityWrites {
		return f.Storage.Update(ctx, ip, now, func(rec *domain.IPActivityRecord) error {
			if err := fn(rec); err != nil {
				return err
			}
			return errStoreDown
		})
	}
	return f.Storage.Update(ctx, ip, now, fn)
}

func (f *flakyStore) FindWhitelist(ctx context.Context, ip string) (domain.WhitelistEntry, error) {
	if f.flags().reputation {
		return domain.WhitelistEntry{}, errStoreDown
	}
	return f.Storage.FindWhitelist(ctx, ip)
}

func (f *flakyStore) FindBlacklist(ctx context.Context, ip string) (domain.BlacklistEntry, error) {
	if f.flags().reputation {
		return domain.BlacklistEntry{}, errStoreDown
	}
	return f.Storage.FindBlacklist(ctx, ip)
}

func (f *flakyStore) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	if f.flags().audit {
		return errStoreDown
	}
	return f.Storage.AppendAudit(ctx, entry)
}

type testStack struct {
	clock       *fakeClock
	store       ports.Storage
	rules       *RuleRegistry
	activity    *ActivityTracker
	reputation  *ReputationRegistry
	audit       *AuditLog
	limiter     *RateLimiterService
	detector    *AnomalyDetectorService
	coordinator *MitigationCoordinator
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	return newTestStackWithStore(t, memory.New(), DefaultAnomalyConfig())
}

// newTestStackWithStore wires every service against store with a shared fake clock.
func newTestStackWithStore(t *testing.T, store ports.Storage, anomaly AnomalyConfig) *testStack {
	t.Helper()
	clock := newFakeClock()
	logger := logging.Discard()

	rules, err := NewRuleRegistry(store, RuleRegistryConfig{Now: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create rule registry: %v", err)
	}
	activity, err := NewActivityTracker(store, ActivityTrackerConfig{Now: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create activity tracker: %v", err)
	}
	reputation, err := NewReputationRegistry(store, activity, ReputationRegistryConfig{Now: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create reputation registry: %v", err)
	}
	audit, err := NewAuditLog(store, AuditLogConfig{Now: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create audit log: %v", err)
	}
	limiter, err := NewRateLimiterService(rules, activity, audit, logger)
	if err != nil {
		t.Fatalf("failed to create rate limiter service: %v", err)
	}
	anomaly.Now = clock.Now
	anomaly.Logger = logger
	detector, err := NewAnomalyDetectorService(rules, activity, anomaly)
	if err != nil {
		t.Fatalf("failed to create anomaly detector: %v", err)
	}
	coordinator, err := NewMitigationCoordinator(reputation, limiter, detector, audit, CoordinatorConfig{Now: clock.Now, Logger: logger})
	if err != nil {
		t.Fatalf("failed to create coordinator: %v", err)
	}

	return &testStack{
		clock:       clock,
		store:       store,
		rules:       rules,
		activity:    activity,
		reputation:  reputation,
		audit:       audit,
		limiter:     limiter,
		detector:    detector,
		coordinator: coordinator,
	}
}

func (s *testStack) auditEntries(t *testing.T) []domain.AuditLogEntry {
	t.Helper()
	entries, err := s.store.QueryAudit(context.Background(), domain.AuditFilter{})
	if err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	return entries
}

func request(ip, path string) domain.Request {
	return domain.Request{
		Path:       path,
		Header:     map[string][]string{"X-Forwarded-For": {ip}},
		RemoteAddr: "127.0.0.1:51000",
	}
}

func intPtr(v int) *int { return &v }
