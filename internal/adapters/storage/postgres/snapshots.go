package postgres

import (
	"context"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func (s *Storage) AppendSnapshot(ctx context.Context, snap domain.TrafficSnapshot) (domain.TrafficSnapshot, error) {
	row := trafficSnapshotModel{
		TakenAt:           snap.Timestamp.UTC(),
		RequestsPerSecond: snap.RequestsPerSecond,
		RequestsPerMinute: snap.RequestsPerMinute,
		BlockedCount:      snap.BlockedCount,
		SuspiciousCount:   snap.SuspiciousCount,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.TrafficSnapshot{}, err
	}
	return row.toDomain(), nil
}

func (s *Storage) LatestSnapshot(ctx context.Context) (domain.TrafficSnapshot, error) {
	var row trafficSnapshotModel
	if err := s.db.WithContext(ctx).Order("taken_at DESC, id DESC").Take(&row).Error; err != nil {
		return domain.TrafficSnapshot{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Storage) SnapshotsSince(ctx context.Context, since time.Time) ([]domain.TrafficSnapshot, error) {
	var rows []trafficSnapshotModel
	err := s.db.WithContext(ctx).
		Where("taken_at >= ?", since.UTC()).
		Order("taken_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.TrafficSnapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Storage) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("taken_at < ?", before.UTC()).Delete(&trafficSnapshotModel{})
	return res.RowsAffected, res.Error
}
