package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

const (
	DefaultRecentLogs    = 200
	subscriberBufferSize = 64
)

type AuditLogConfig struct {
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// AuditLog grava as decisões de forma síncrona e repassa cada entrada aos
// assinantes do stream ao vivo.
type AuditLog struct {
	store  ports.AuditStore
	now    func() time.Time
	logger logrus.FieldLogger

	subMu       sync.RWMutex
	subscribers map[int]chan domain.AuditLogEntry
	nextSub     int
}

var _ ports.AuditRecorder = (*AuditLog)(nil)

func NewAuditLog(store ports.AuditStore, cfg AuditLogConfig) (*AuditLog, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	return &AuditLog{
		store:       store,
		now:         clockOrDefault(cfg.Now),
		logger:      loggerOrDefault(cfg.Logger),
		subscribers: make(map[int]chan domain.AuditLogEntry),
	}, nil
}

func (a *AuditLog) Record(ctx context.Context, ip, endpoint string, status domain.AuditStatus, reason string) (domain.AuditLogEntry, error) {
	if !status.Valid() {
		return domain.AuditLogEntry{}, fmt.Errorf("invalid audit status %q", status)
	}
	entry := domain.AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: a.now(),
		IP:        ip,
		Endpoint:  endpoint,
		Status:    status,
		Reason:    reason,
	}
	if err := a.store.AppendAudit(ctx, entry); err != nil {
		return domain.AuditLogEntry{}, fmt.Errorf("%w: %v", domain.ErrAuditUnavailable, err)
	}
	a.notify(entry)
	return entry, nil
}

// Subscribe registra um assinante. Entradas são descartadas quando o buffer
// do assinante está cheio.
func (a *AuditLog) Subscribe() (<-chan domain.AuditLogEntry, func()) {
	ch := make(chan domain.AuditLogEntry, subscriberBufferSize)

	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = ch
	a.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subscribers, id)
			a.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (a *AuditLog) notify(entry domain.AuditLogEntry) {
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	for _, ch := range a.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

func (a *AuditLog) Recent(ctx context.Context, limit int) ([]domain.AuditLogEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLogs
	}
	return a.Query(ctx, domain.AuditFilter{Limit: limit})
}

func (a *AuditLog) ByIP(ctx context.Context, ip string, limit int) ([]domain.AuditLogEntry, error) {
	return a.Query(ctx, domain.AuditFilter{IP: ip, Limit: limit})
}

func (a *AuditLog) ByStatus(ctx context.Context, status domain.AuditStatus, limit int) ([]domain.AuditLogEntry, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid audit status %q", status)
	}
	return a.Query(ctx, domain.AuditFilter{Status: status, Limit: limit})
}

func (a *AuditLog) Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	entries, err := a.store.QueryAudit(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	return entries, nil
}

// Counts devolve o total de entradas por status.
func (a *AuditLog) Counts(ctx context.Context) (map[domain.AuditStatus]int64, error) {
	out := make(map[domain.AuditStatus]int64, 3)
	for _, status := range []domain.AuditStatus{domain.AuditAllowed, domain.AuditBlocked, domain.AuditSuspicious} {
		n, err := a.store.CountAudit(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count %s entries: %w", status, err)
		}
		out[status] = n
	}
	return out, nil
}
