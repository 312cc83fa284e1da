package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

type ActivityTrackerConfig struct {
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// ActivityTracker mantém os contadores por IP. Toda mutação passa pelo
// Update atômico do store e aplica o rollover das janelas antes de qualquer
// leitura ou escrita.
type ActivityTracker struct {
	store  ports.ActivityStore
	now    func() time.Time
	logger logrus.FieldLogger
}

func NewActivityTracker(store ports.ActivityStore, cfg ActivityTrackerConfig) (*ActivityTracker, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store is required")
	}
	return &ActivityTracker{
		store:  store,
		now:    clockOrDefault(cfg.Now),
		logger: loggerOrDefault(cfg.Logger),
	}, nil
}

// Update executa fn sobre o registro já com as janelas atualizadas.
func (t *ActivityTracker) Update(ctx context.Context, ip string, fn func(rec *domain.IPActivityRecord, now time.Time) error) (domain.IPActivityRecord, error) {
	now := t.now()
	return t.store.Update(ctx, ip, now, func(rec *domain.IPActivityRecord) error {
		rec.Roll(now)
		return fn(rec, now)
	})
}

func (t *ActivityTracker) GetOrCreate(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	return t.Update(ctx, ip, func(*domain.IPActivityRecord, time.Time) error { return nil })
}

func (t *ActivityTracker) RecordRequest(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	return t.Update(ctx, ip, func(rec *domain.IPActivityRecord, now time.Time) error {
		rec.Count(now)
		return nil
	})
}

func (t *ActivityTracker) Block(ctx context.Context, ip string, duration time.Duration, reason string) (domain.IPActivityRecord, error) {
	rec, err := t.Update(ctx, ip, func(rec *domain.IPActivityRecord, now time.Time) error {
		rec.Block(now.Add(duration), reason)
		return nil
	})
	if err != nil {
		return domain.IPActivityRecord{}, fmt.Errorf("block %s: %w", ip, err)
	}
	t.logger.WithFields(logrus.Fields{
		"ip":            ip,
		"reason":        reason,
		"blocked_until": rec.BlockedUntil,
	}).Warn("ip blocked")
	return rec, nil
}

// Unblock limpa o bloqueio. Retorna false quando não existe registro para ip.
func (t *ActivityTracker) Unblock(ctx context.Context, ip string) (bool, error) {
	if _, err := t.store.Get(ctx, ip); err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("load activity: %w", err)
	}
	_, err := t.Update(ctx, ip, func(rec *domain.IPActivityRecord, _ time.Time) error {
		rec.Unblock()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("unblock %s: %w", ip, err)
	}
	t.logger.WithField("ip", ip).Info("ip unblocked")
	return true, nil
}

// IsBlocked informa se há bloqueio vigente; bloqueios vencidos são limpos aqui.
func (t *ActivityTracker) IsBlocked(ctx context.Context, ip string) (bool, error) {
	rec, err := t.store.Get(ctx, ip)
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("load activity: %w", err)
	}

	now := t.now()
	if rec.BlockActive(now) {
		return true, nil
	}
	if rec.BlockExpired(now) {
		t.clearExpired(ctx, ip)
	}
	return false, nil
}

func (t *ActivityTracker) clearExpired(ctx context.Context, ip string) {
	_, err := t.Update(ctx, ip, func(rec *domain.IPActivityRecord, now time.Time) error {
		if rec.BlockExpired(now) {
			rec.Unblock()
		}
		return nil
	})
	if err != nil {
		t.logger.WithError(err).WithField("ip", ip).Error("failed to clear expired block")
	}
}

// Get devolve o registro com as janelas atualizadas para o instante atual.
func (t *ActivityTracker) Get(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	rec, err := t.store.Get(ctx, ip)
	if err != nil {
		return domain.IPActivityRecord{}, err
	}
	rec.Roll(t.now())
	return rec, nil
}

// ListBlocked devolve os registros com bloqueio vigente.
func (t *ActivityTracker) ListBlocked(ctx context.Context) ([]domain.IPActivityRecord, error) {
	records, err := t.store.ListBlocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocked: %w", err)
	}

	now := t.now()
	out := make([]domain.IPActivityRecord, 0, len(records))
	for _, rec := range records {
		if rec.BlockActive(now) {
			rec.Roll(now)
			out = append(out, rec)
			continue
		}
		t.clearExpired(ctx, rec.IP)
	}
	return out, nil
}
