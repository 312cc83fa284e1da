package postgres

import (
	"context"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func (s *Storage) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	row := auditLogModel{
		ID:       entry.ID,
		LoggedAt: entry.Timestamp.UTC(),
		IP:       entry.IP,
		Endpoint: entry.Endpoint,
		Status:   string(entry.Status),
		Reason:   entry.Reason,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Storage) AuditRange(ctx context.Context, from, to time.Time) ([]domain.AuditLogEntry, error) {
	var rows []auditLogModel
	err := s.db.WithContext(ctx).
		Where("logged_at >= ? AND logged_at <= ?", from.UTC(), to.UTC()).
		Order("logged_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return auditEntries(rows), nil
}

func (s *Storage) QueryAudit(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	query := s.db.WithContext(ctx).Order("logged_at DESC")
	if filter.IP != "" {
		query = query.Where("ip = ?", filter.IP)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if !filter.Since.IsZero() {
		query = query.Where("logged_at >= ?", filter.Since.UTC())
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []auditLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return auditEntries(rows), nil
}

func (s *Storage) CountAudit(ctx context.Context, status domain.AuditStatus) (int64, error) {
	query := s.db.WithContext(ctx).Model(&auditLogModel{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Storage) PruneAudit(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("logged_at < ?", before.UTC()).Delete(&auditLogModel{})
	return res.RowsAffected, res.Error
}

func auditEntries(rows []auditLogModel) []domain.AuditLogEntry {
	out := make([]domain.AuditLogEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
