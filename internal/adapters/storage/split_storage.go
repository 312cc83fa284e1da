// Package storage combina os adapters de persistência.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

// ActivityBackend é um store de atividade que precisa ser fechado.
type ActivityBackend interface {
	ports.ActivityStore
	Close() error
}

// Split delega a atividade por IP a um backend próprio (por exemplo Redis)
// e todo o resto ao storage base.
type Split struct {
	ports.Storage
	activity ActivityBackend
}

var _ ports.Storage = (*Split)(nil)

func NewSplit(base ports.Storage, activity ActivityBackend) *Split {
	return &Split{Storage: base, activity: activity}
}

func (s *Split) Update(ctx context.Context, ip string, now time.Time, fn func(*domain.IPActivityRecord) error) (domain.IPActivityRecord, error) {
	return s.activity.Update(ctx, ip, now, fn)
}

func (s *Split) Get(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	return s.activity.Get(ctx, ip)
}

func (s *Split) ListBlocked(ctx context.Context) ([]domain.IPActivityRecord, error) {
	return s.activity.ListBlocked(ctx)
}

func (s *Split) Close() error {
	return errors.Join(s.activity.Close(), s.Storage.Close())
}
