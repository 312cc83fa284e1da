package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

type StatsConfig struct {
	Interval    time.Duration
	Window      time.Duration
	Retention   time.Duration
	TickTimeout time.Duration
	Observer    ports.SnapshotObserver
	Now         func() time.Time
	Logger      logrus.FieldLogger
}

func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		Interval:    5 * time.Second,
		Window:      10 * time.Second,
		TickTimeout: 5 * time.Second,
	}
}

// StatsAggregator gera snapshots periódicos de tráfego a partir do log de auditoria.
type StatsAggregator struct {
	audit     ports.AuditStore
	snapshots ports.SnapshotStore
	cfg       StatsConfig
	now       func() time.Time
	logger    logrus.FieldLogger
}

func NewStatsAggregator(audit ports.AuditStore, snapshots ports.SnapshotStore, cfg StatsConfig) (*StatsAggregator, error) {
	if audit == nil || snapshots == nil {
		return nil, fmt.Errorf("audit and snapshot stores are required")
	}
	d := DefaultStatsConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.Window < time.Second {
		cfg.Window = d.Window
	}
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = d.TickTimeout
	}
	return &StatsAggregator{
		audit:     audit,
		snapshots: snapshots,
		cfg:       cfg,
		now:       clockOrDefault(cfg.Now),
		logger:    loggerOrDefault(cfg.Logger),
	}, nil
}

// Run executa um tick a cada intervalo até ctx ser cancelado. Um tick em
// andamento termina mesmo após o cancelamento, limitado por TickTimeout.
func (a *StatsAggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.logger.WithFields(logrus.Fields{
		"interval": a.cfg.Interval,
		"window":   a.cfg.Window,
	}).Info("stats aggregator started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("stats aggregator stopped")
			return nil
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *StatsAggregator) tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.TickTimeout)
	defer cancel()

	start := time.Now()
	snap, err := a.RunOnce(tickCtx)
	if err != nil {
		a.logger.WithError(err).Error("failed to store traffic snapshot")
		return
	}
	a.logger.WithFields(logrus.Fields{
		"requests_per_second": snap.RequestsPerSecond,
		"blocked":             snap.BlockedCount,
		"suspicious":          snap.SuspiciousCount,
		"duration":            time.Since(start),
	}).Debug("traffic snapshot stored")

	if a.cfg.Retention > 0 {
		a.prune(tickCtx)
	}
}

// RunOnce conta as entradas da janela e grava um snapshot.
func (a *StatsAggregator) RunOnce(ctx context.Context) (domain.TrafficSnapshot, error) {
	now := a.now()
	entries, err := a.audit.AuditRange(ctx, now.Add(-a.cfg.Window), now)
	if err != nil {
		return domain.TrafficSnapshot{}, fmt.Errorf("read audit window: %w", err)
	}

	var blocked, suspicious int64
	for _, e := range entries {
		switch e.Status {
		case domain.AuditBlocked:
			blocked++
		case domain.AuditSuspicious:
			suspicious++
		}
	}

	total := int64(len(entries))
	windowSeconds := int64(a.cfg.Window / time.Second)
	snap, err := a.snapshots.AppendSnapshot(ctx, domain.TrafficSnapshot{
		Timestamp:         now,
		RequestsPerSecond: total / windowSeconds,
		RequestsPerMinute: total * 60 / windowSeconds,
		BlockedCount:      blocked,
		SuspiciousCount:   suspicious,
	})
	if err != nil {
		return domain.TrafficSnapshot{}, fmt.Errorf("append snapshot: %w", err)
	}
	if a.cfg.Observer != nil {
		a.cfg.Observer.ObserveSnapshot(snap)
	}
	return snap, nil
}

func (a *StatsAggregator) prune(ctx context.Context) {
	cutoff := a.now().Add(-a.cfg.Retention)
	logs, err := a.audit.PruneAudit(ctx, cutoff)
	if err != nil {
		a.logger.WithError(err).Error("failed to prune audit log")
		return
	}
	snaps, err := a.snapshots.PruneSnapshots(ctx, cutoff)
	if err != nil {
		a.logger.WithError(err).Error("failed to prune traffic snapshots")
		return
	}
	if logs > 0 || snaps > 0 {
		a.logger.WithFields(logrus.Fields{"audit": logs, "snapshots": snaps}).Info("retention pruning removed old rows")
	}
}

// Latest devolve o snapshot mais recente, ou um snapshot zerado quando não há nenhum.
func (a *StatsAggregator) Latest(ctx context.Context) (domain.TrafficSnapshot, error) {
	snap, err := a.snapshots.LatestSnapshot(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.TrafficSnapshot{Timestamp: a.now()}, nil
		}
		return domain.TrafficSnapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

// Recent devolve os snapshots dos últimos minutes minutos, do mais novo para o mais antigo.
func (a *StatsAggregator) Recent(ctx context.Context, minutes int) ([]domain.TrafficSnapshot, error) {
	if minutes <= 0 {
		minutes = 60
	}
	snaps, err := a.snapshots.SnapshotsSince(ctx, a.now().Add(-time.Duration(minutes)*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("recent snapshots: %w", err)
	}
	return snaps, nil
}
