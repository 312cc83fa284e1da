// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

// ActivityStore persiste os registros de atividade por IP.
type ActivityStore interface {
	// Update executa fn sobre o registro de ip de forma exclusiva por chave,
	// criando um registro zerado em now quando não existir, e grava o resultado.
	// Se fn retornar erro nada é gravado.
	Update(ctx context.Context, ip string, now time.Time, fn func(*domain.IPActivityRecord) error) (domain.IPActivityRecord, error)
	Get(ctx context.Context, ip string) (domain.IPActivityRecord, error)
	ListBlocked(ctx context.Context) ([]domain.IPActivityRecord, error)
}

type ReputationStore interface {
	UpsertBlacklist(ctx context.Context, entry domain.BlacklistEntry) (domain.BlacklistEntry, error)
	FindBlacklist(ctx context.Context, ip string) (domain.BlacklistEntry, error)
	DeleteBlacklist(ctx context.Context, ip string) (bool, error)
	ListBlacklist(ctx context.Context) ([]domain.BlacklistEntry, error)

	// InsertWhitelist devolve a entrada existente quando ip já está na lista.
	InsertWhitelist(ctx context.Context, entry domain.WhitelistEntry) (domain.WhitelistEntry, bool, error)
	FindWhitelist(ctx context.Context, ip string) (domain.WhitelistEntry, error)
	DeleteWhitelist(ctx context.Context, ip string) (bool, error)
	ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error)
}

type RuleStore interface {
	LatestRules(ctx context.Context) (domain.RuleSet, error)
	AppendRules(ctx context.Context, rules domain.RuleSet) (domain.RuleSet, error)
	RuleHistory(ctx context.Context, limit int) ([]domain.RuleSet, error)
	RulesAt(ctx context.Context, at time.Time) (domain.RuleSet, error)
}

type AuditStore interface {
	AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error
	// AuditRange devolve as entradas com timestamp em [from, to], em ordem cronológica.
	AuditRange(ctx context.Context, from, to time.Time) ([]domain.AuditLogEntry, error)
	QueryAudit(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
	CountAudit(ctx context.Context, status domain.AuditStatus) (int64, error)
	PruneAudit(ctx context.Context, before time.Time) (int64, error)
}

type SnapshotStore interface {
	AppendSnapshot(ctx context.Context, snap domain.TrafficSnapshot) (domain.TrafficSnapshot, error)
	LatestSnapshot(ctx context.Context) (domain.TrafficSnapshot, error)
	SnapshotsSince(ctx context.Context, since time.Time) ([]domain.TrafficSnapshot, error)
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)
}

// Storage agrega todos os repositórios usados pela aplicação.
type Storage interface {
	ActivityStore
	ReputationStore
	RuleStore
	AuditStore
	SnapshotStore
	Close() error
}
