package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

// RateLimiterService aplica os limites por segundo e por minuto da versão vigente das regras.
type RateLimiterService struct {
	rules    *RuleRegistry
	activity *ActivityTracker
	audit    ports.AuditRecorder
	logger   logrus.FieldLogger
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(rules *RuleRegistry, activity *ActivityTracker, audit ports.AuditRecorder, logger logrus.FieldLogger) (*RateLimiterService, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule registry is required")
	}
	if activity == nil {
		return nil, fmt.Errorf("activity tracker is required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	return &RateLimiterService{
		rules:    rules,
		activity: activity,
		audit:    audit,
		logger:   loggerOrDefault(logger),
	}, nil
}

// Check avalia e contabiliza a requisição numa única atualização atômica do registro.
// Quando o limite é excedido o IP é bloqueado, a negação é auditada e
// domain.ErrBlocked é retornado junto com o resultado.
func (s *RateLimiterService) Check(ctx context.Context, ip, endpoint string) (domain.RateLimitResult, error) {
	rules, err := s.rules.Current(ctx)
	if err != nil {
		return domain.RateLimitResult{}, err
	}

	var result domain.RateLimitResult
	_, err = s.activity.Update(ctx, ip, func(rec *domain.IPActivityRecord, now time.Time) error {
		switch {
		case rec.RequestsLastSecond >= int64(rules.MaxRequestsPerSecond):
			result = denied(domain.ReasonPerSecondExceeded, rules.MaxRequestsPerSecond, rec.RequestsLastSecond, rules.BlockFor())
		case rec.RequestsLastMinute >= int64(rules.MaxRequestsPerMinute):
			result = denied(domain.ReasonPerMinuteExceeded, rules.MaxRequestsPerMinute, rec.RequestsLastMinute, rules.BlockFor())
		default:
			rec.Count(now)
			result = domain.RateLimitResult{
				Allowed: true,
				Limit:   rules.MaxRequestsPerSecond,
				Current: rec.RequestsLastSecond,
			}
			return nil
		}
		rec.Block(now.Add(rules.BlockFor()), result.Reason)
		return nil
	})

	if result.Reason == "" {
		if err != nil {
			return domain.RateLimitResult{}, fmt.Errorf("update activity: %w", err)
		}
		return result, nil
	}

	entry := s.logger.WithFields(logrus.Fields{
		"ip":       ip,
		"endpoint": endpoint,
		"reason":   result.Reason,
		"limit":    result.Limit,
		"current":  result.Current,
	})
	if err != nil {
		entry.WithError(err).Error("failed to persist rate limit block")
	}
	entry.Warn("rate limit exceeded")

	if _, auditErr := s.audit.Record(ctx, ip, endpoint, domain.AuditBlocked, result.Reason); auditErr != nil {
		entry.WithError(auditErr).Error("failed to audit rate limit denial")
	}
	return result, domain.ErrBlocked
}

func denied(reason string, limit int, current int64, retryAfter time.Duration) domain.RateLimitResult {
	return domain.RateLimitResult{
		Allowed:    false,
		Reason:     reason,
		Limit:      limit,
		Current:    current,
		RetryAfter: retryAfter,
	}
}
