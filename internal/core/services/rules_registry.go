package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

// RuleRegistryConfig permite sobrescrever os limites padrão usados no bootstrap.
type RuleRegistryConfig struct {
	Defaults domain.RuleSet
	Now      func() time.Time
	Logger   logrus.FieldLogger
}

// RuleRegistry expõe a versão vigente das regras e o histórico de versões.
type RuleRegistry struct {
	store     ports.RuleStore
	defaults  domain.RuleSet
	bootstrap singleflight.Group
	updateMu  sync.Mutex
	now       func() time.Time
	logger    logrus.FieldLogger
}

func NewRuleRegistry(store ports.RuleStore, cfg RuleRegistryConfig) (*RuleRegistry, error) {
	if store == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	defaults := cfg.Defaults
	if defaults.MaxRequestsPerSecond == 0 && defaults.MaxRequestsPerMinute == 0 &&
		defaults.BlockDuration == 0 && defaults.AnomalyThreshold == 0 {
		defaults = domain.DefaultRuleSet(time.Time{})
	}
	if defaults.MaxRequestsPerSecond <= 0 || defaults.MaxRequestsPerMinute <= 0 ||
		defaults.BlockDuration <= 0 || defaults.AnomalyThreshold <= 0 {
		return nil, fmt.Errorf("%w: default rules must have positive values", domain.ErrInvalidRule)
	}

	return &RuleRegistry{
		store:    store,
		defaults: defaults,
		now:      clockOrDefault(cfg.Now),
		logger:   loggerOrDefault(cfg.Logger),
	}, nil
}

// Current devolve a versão mais recente, criando a versão padrão no primeiro acesso.
func (r *RuleRegistry) Current(ctx context.Context) (domain.RuleSet, error) {
	rules, err := r.store.LatestRules(ctx)
	if err == nil {
		return rules, nil
	}
	if !domain.IsNotFound(err) {
		return domain.RuleSet{}, fmt.Errorf("load rules: %w", err)
	}

	v, err, _ := r.bootstrap.Do("bootstrap", func() (interface{}, error) {
		rules, err := r.store.LatestRules(ctx)
		if err == nil {
			return rules, nil
		}
		if !domain.IsNotFound(err) {
			return nil, err
		}

		seed := r.defaults
		seed.ID = 0
		seed.UpdatedAt = r.now()
		created, err := r.store.AppendRules(ctx, seed)
		if err != nil {
			return nil, err
		}
		r.logger.WithFields(logrus.Fields{
			"max_requests_per_second": created.MaxRequestsPerSecond,
			"max_requests_per_minute": created.MaxRequestsPerMinute,
			"block_duration":          created.BlockDuration,
			"anomaly_threshold":       created.AnomalyThreshold,
		}).Info("bootstrapped default rule set")
		return created, nil
	})
	if err != nil {
		return domain.RuleSet{}, fmt.Errorf("bootstrap rules: %w", err)
	}
	return v.(domain.RuleSet), nil
}

// Update grava uma nova versão a partir da atual, trocando só os campos informados.
func (r *RuleRegistry) Update(ctx context.Context, update domain.RuleUpdate) (domain.RuleSet, error) {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	current, err := r.Current(ctx)
	if err != nil {
		return domain.RuleSet{}, err
	}
	next, err := update.Apply(current, r.now())
	if err != nil {
		return domain.RuleSet{}, err
	}
	created, err := r.store.AppendRules(ctx, next)
	if err != nil {
		return domain.RuleSet{}, fmt.Errorf("append rules: %w", err)
	}

	r.logger.WithField("rule_id", created.ID).Info("rule set updated")
	return created, nil
}

// History devolve as versões da mais nova para a mais antiga. limit <= 0 devolve todas.
func (r *RuleRegistry) History(ctx context.Context, limit int) ([]domain.RuleSet, error) {
	history, err := r.store.RuleHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("rule history: %w", err)
	}
	return history, nil
}

// At devolve a versão vigente no instante t.
func (r *RuleRegistry) At(ctx context.Context, t time.Time) (domain.RuleSet, error) {
	rules, err := r.store.RulesAt(ctx, t)
	if err != nil {
		return domain.RuleSet{}, fmt.Errorf("rules at %s: %w", t.Format(time.RFC3339), err)
	}
	return rules, nil
}
