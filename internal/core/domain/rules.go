package domain

import (
	"fmt"
	"time"
)

const (
	DefaultMaxRequestsPerSecond = 10
	DefaultMaxRequestsPerMinute = 100
	DefaultBlockDuration        = 300
	DefaultAnomalyThreshold     = 5000
)

// RuleSet é uma versão dos limites de tráfego. Versões nunca são alteradas;
// cada atualização gera uma nova linha.
type RuleSet struct {
	ID                   int64     `json:"id"`
	MaxRequestsPerSecond int       `json:"max_requests_per_second"`
	MaxRequestsPerMinute int       `json:"max_requests_per_minute"`
	BlockDuration        int       `json:"block_duration"`
	AnomalyThreshold     int       `json:"anomaly_threshold"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func DefaultRuleSet(now time.Time) RuleSet {
	return RuleSet{
		MaxRequestsPerSecond: DefaultMaxRequestsPerSecond,
		MaxRequestsPerMinute: DefaultMaxRequestsPerMinute,
		BlockDuration:        DefaultBlockDuration,
		AnomalyThreshold:     DefaultAnomalyThreshold,
		UpdatedAt:            now,
	}
}

// BlockFor devolve a duração de bloqueio como time.Duration.
func (r RuleSet) BlockFor() time.Duration {
	return time.Duration(r.BlockDuration) * time.Second
}

// RuleUpdate carrega uma atualização parcial; campos nil herdam a versão atual.
type RuleUpdate struct {
	MaxRequestsPerSecond *int `json:"max_requests_per_second,omitempty"`
	MaxRequestsPerMinute *int `json:"max_requests_per_minute,omitempty"`
	BlockDuration        *int `json:"block_duration,omitempty"`
	AnomalyThreshold     *int `json:"anomaly_threshold,omitempty"`
}

func (u RuleUpdate) Empty() bool {
	return u.MaxRequestsPerSecond == nil && u.MaxRequestsPerMinute == nil &&
		u.BlockDuration == nil && u.AnomalyThreshold == nil
}

// Apply mescla a atualização sobre base e valida o resultado.
func (u RuleUpdate) Apply(base RuleSet, now time.Time) (RuleSet, error) {
	next := RuleSet{
		MaxRequestsPerSecond: base.MaxRequestsPerSecond,
		MaxRequestsPerMinute: base.MaxRequestsPerMinute,
		BlockDuration:        base.BlockDuration,
		AnomalyThreshold:     base.AnomalyThreshold,
		UpdatedAt:            now,
	}
	fields := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"max_requests_per_second", u.MaxRequestsPerSecond, &next.MaxRequestsPerSecond},
		{"max_requests_per_minute", u.MaxRequestsPerMinute, &next.MaxRequestsPerMinute},
		{"block_duration", u.BlockDuration, &next.BlockDuration},
		{"anomaly_threshold", u.AnomalyThreshold, &next.AnomalyThreshold},
	}
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		if *f.src <= 0 {
			return RuleSet{}, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidRule, f.name, *f.src)
		}
		*f.dst = *f.src
	}
	return next, nil
}
