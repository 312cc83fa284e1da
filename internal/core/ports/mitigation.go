package ports

import (
	"context"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

// Gate decide se uma requisição pode seguir para os handlers.
type Gate interface {
	Process(ctx context.Context, req domain.Request) (domain.Decision, error)
}

type ReputationChecker interface {
	Check(ctx context.Context, ip string) (domain.ReputationStatus, error)
}

type RateLimiter interface {
	Check(ctx context.Context, ip, endpoint string) (domain.RateLimitResult, error)
}

type AnomalyDetector interface {
	Evaluate(ctx context.Context, ip, endpoint string) (domain.AnomalyResult, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, ip, endpoint string, status domain.AuditStatus, reason string) (domain.AuditLogEntry, error)
}

// DecisionObserver recebe cada decisão tomada pelo coordenador.
type DecisionObserver interface {
	ObserveDecision(decision domain.Decision, elapsed time.Duration)
}

// SnapshotObserver recebe cada snapshot produzido pelo agregador.
type SnapshotObserver interface {
	ObserveSnapshot(snap domain.TrafficSnapshot)
}
