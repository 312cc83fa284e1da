package postgres

import (
	"context"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

func (s *Storage) LatestRules(ctx context.Context) (domain.RuleSet, error) {
	var row ruleSetModel
	if err := s.db.WithContext(ctx).Order("updated_at DESC, id DESC").Take(&row).Error; err != nil {
		return domain.RuleSet{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (s *Storage) AppendRules(ctx context.Context, rules domain.RuleSet) (domain.RuleSet, error) {
	row := ruleSetModel{
		MaxRequestsPerSecond: rules.MaxRequestsPerSecond,
		MaxRequestsPerMinute: rules.MaxRequestsPerMinute,
		BlockDuration:        rules.BlockDuration,
		AnomalyThreshold:     rules.AnomalyThreshold,
		UpdatedAt:            rules.UpdatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.RuleSet{}, err
	}
	return row.toDomain(), nil
}

func (s *Storage) RuleHistory(ctx context.Context, limit int) ([]domain.RuleSet, error) {
	query := s.db.WithContext(ctx).Order("updated_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []ruleSetModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.RuleSet, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Storage) RulesAt(ctx context.Context, at time.Time) (domain.RuleSet, error) {
	var row ruleSetModel
	err := s.db.WithContext(ctx).
		Where("updated_at <= ?", at.UTC()).
		Order("updated_at DESC, id DESC").
		Take(&row).Error
	if err != nil {
		return domain.RuleSet{}, notFound(err)
	}
	return row.toDomain(), nil
}
