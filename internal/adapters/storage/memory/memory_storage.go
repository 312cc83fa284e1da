// Package memory disponibiliza a implementação do storage mantida em memória.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

var _ ports.Storage = (*Storage)(nil)

// Storage guarda todo o estado em mapas protegidos por mutex. Atualizações de
// atividade usam um lock por IP para que requisições de endereços distintos
// não disputem o mesmo lock.
type Storage struct {
	mu        sync.RWMutex
	activity  map[string]domain.IPActivityRecord
	blacklist map[string]domain.BlacklistEntry
	whitelist map[string]domain.WhitelistEntry
	rules     []domain.RuleSet
	audit     []domain.AuditLogEntry
	snapshots []domain.TrafficSnapshot

	keyLocks sync.Map
	nextRule int64
	nextSnap int64
}

func New() *Storage {
	return &Storage{
		activity:  make(map[string]domain.IPActivityRecord),
		blacklist: make(map[string]domain.BlacklistEntry),
		whitelist: make(map[string]domain.WhitelistEntry),
	}
}

func (s *Storage) Close() error { return nil }

func (s *Storage) lockFor(ip string) *sync.Mutex {
	l, _ := s.keyLocks.LoadOrStore(ip, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (s *Storage) Update(ctx context.Context, ip string, now time.Time, fn func(*domain.IPActivityRecord) error) (domain.IPActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.IPActivityRecord{}, err
	}
	l := s.lockFor(ip)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	rec, ok := s.activity[ip]
	s.mu.RUnlock()
	if !ok {
		rec = domain.NewIPActivityRecord(ip, now)
	}
	if err := fn(&rec); err != nil {
		return domain.IPActivityRecord{}, err
	}

	s.mu.Lock()
	s.activity[ip] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *Storage) Get(_ context.Context, ip string) (domain.IPActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.activity[ip]
	if !ok {
		return domain.IPActivityRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *Storage) ListBlocked(_ context.Context) ([]domain.IPActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.IPActivityRecord, 0)
	for _, rec := range s.activity {
		if rec.IsBlocked {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out, nil
}

func (s *Storage) UpsertBlacklist(_ context.Context, entry domain.BlacklistEntry) (domain.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[entry.IP] = entry
	return entry, nil
}

func (s *Storage) FindBlacklist(_ context.Context, ip string) (domain.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.blacklist[ip]
	if !ok {
		return domain.BlacklistEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *Storage) DeleteBlacklist(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[ip]
	delete(s.blacklist, ip)
	return ok, nil
}

func (s *Storage) ListBlacklist(_ context.Context) ([]domain.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BlacklistEntry, 0, len(s.blacklist))
	for _, e := range s.blacklist {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (s *Storage) InsertWhitelist(_ context.Context, entry domain.WhitelistEntry) (domain.WhitelistEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.whitelist[entry.IP]; ok {
		return existing, false, nil
	}
	s.whitelist[entry.IP] = entry
	return entry, true, nil
}

func (s *Storage) FindWhitelist(_ context.Context, ip string) (domain.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.whitelist[ip]
	if !ok {
		return domain.WhitelistEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *Storage) DeleteWhitelist(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.whitelist[ip]
	delete(s.whitelist, ip)
	return ok, nil
}

func (s *Storage) ListWhitelist(_ context.Context) ([]domain.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WhitelistEntry, 0, len(s.whitelist))
	for _, e := range s.whitelist {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out, nil
}

func (s *Storage) LatestRules(_ context.Context) (domain.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.rules) == 0 {
		return domain.RuleSet{}, domain.ErrNotFound
	}
	return s.rules[len(s.rules)-1], nil
}

func (s *Storage) AppendRules(_ context.Context, rules domain.RuleSet) (domain.RuleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRule++
	rules.ID = s.nextRule
	s.rules = append(s.rules, rules)
	return rules, nil
}

func (s *Storage) RuleHistory(_ context.Context, limit int) ([]domain.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RuleSet, 0, len(s.rules))
	for i := len(s.rules) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.rules[i])
	}
	return out, nil
}

func (s *Storage) RulesAt(_ context.Context, at time.Time) (domain.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.rules) - 1; i >= 0; i-- {
		if !s.rules[i].UpdatedAt.After(at) {
			return s.rules[i], nil
		}
	}
	return domain.RuleSet{}, domain.ErrNotFound
}

// AppendAudit mantém o slice ordenado por timestamp; entradas concorrentes
// podem chegar levemente fora de ordem.
func (s *Storage) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.audit)
	for i > 0 && s.audit[i-1].Timestamp.After(entry.Timestamp) {
		i--
	}
	s.audit = append(s.audit, domain.AuditLogEntry{})
	copy(s.audit[i+1:], s.audit[i:])
	s.audit[i] = entry
	return nil
}

func (s *Storage) AuditRange(_ context.Context, from, to time.Time) ([]domain.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := sort.Search(len(s.audit), func(i int) bool { return !s.audit[i].Timestamp.Before(from) })
	out := make([]domain.AuditLogEntry, 0)
	for _, e := range s.audit[start:] {
		if e.Timestamp.After(to) {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Storage) QueryAudit(_ context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLogEntry, 0)
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			break
		}
		if !filter.Match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Storage) CountAudit(_ context.Context, status domain.AuditStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.audit {
		if status == "" || e.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Storage) PruneAudit(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cut := sort.Search(len(s.audit), func(i int) bool { return !s.audit[i].Timestamp.Before(before) })
	s.audit = append([]domain.AuditLogEntry(nil), s.audit[cut:]...)
	return int64(cut), nil
}

func (s *Storage) AppendSnapshot(_ context.Context, snap domain.TrafficSnapshot) (domain.TrafficSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSnap++
	snap.ID = s.nextSnap
	s.snapshots = append(s.snapshots, snap)
	return snap, nil
}

func (s *Storage) LatestSnapshot(_ context.Context) (domain.TrafficSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.snapshots) == 0 {
		return domain.TrafficSnapshot{}, domain.ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

func (s *Storage) SnapshotsSince(_ context.Context, since time.Time) ([]domain.TrafficSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TrafficSnapshot, 0)
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].Timestamp.Before(since) {
			break
		}
		out = append(out, s.snapshots[i])
	}
	return out, nil
}

func (s *Storage) PruneSnapshots(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cut := sort.Search(len(s.snapshots), func(i int) bool { return !s.snapshots[i].Timestamp.Before(before) })
	s.snapshots = append([]domain.TrafficSnapshot(nil), s.snapshots[cut:]...)
	return int64(cut), nil
}
