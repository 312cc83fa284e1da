package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
)

// Policy descreve os valores iniciais das regras, os limiares de anomalia,
// os caminhos de sistema e as listas semeadas no startup.
type Policy struct {
	Rules       RulesPolicy     `yaml:"rules"`
	Anomaly     AnomalyPolicy   `yaml:"anomaly"`
	SystemPaths []string        `yaml:"system_paths"`
	Whitelist   []string        `yaml:"whitelist"`
	Blacklist   []BlacklistSeed `yaml:"blacklist"`
}

type RulesPolicy struct {
	MaxRequestsPerSecond int `yaml:"max_requests_per_second"`
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	BlockDurationSeconds int `yaml:"block_duration_seconds"`
	AnomalyThreshold     int `yaml:"anomaly_threshold"`
}

type AnomalyPolicy struct {
	WindowSeconds       int     `yaml:"window_seconds"`
	EndpointRepeatLimit int     `yaml:"endpoint_repeat_limit"`
	VelocityLimit       int     `yaml:"velocity_limit"`
	ApproachRatio       float64 `yaml:"approach_ratio"`
	EscalationFlags     int     `yaml:"escalation_flags"`
	AutoBlockMultiplier int     `yaml:"auto_block_multiplier"`
}

type BlacklistSeed struct {
	IP     string `yaml:"ip"`
	Reason string `yaml:"reason"`
}

func DefaultPolicy() Policy {
	p := Policy{}
	_ = p.Validate()
	return p
}

// LoadPolicy lê o arquivo YAML. Sem arquivo, devolve a política padrão.
func LoadPolicy(filename string) (Policy, error) {
	if filename == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return policy, nil
}

// Validate preenche valores ausentes e rejeita valores negativos.
func (p *Policy) Validate() error {
	ints := []struct {
		name     string
		value    *int
		fallback int
	}{
		{"rules.max_requests_per_second", &p.Rules.MaxRequestsPerSecond, domain.DefaultMaxRequestsPerSecond},
		{"rules.max_requests_per_minute", &p.Rules.MaxRequestsPerMinute, domain.DefaultMaxRequestsPerMinute},
		{"rules.block_duration_seconds", &p.Rules.BlockDurationSeconds, domain.DefaultBlockDuration},
		{"rules.anomaly_threshold", &p.Rules.AnomalyThreshold, domain.DefaultAnomalyThreshold},
		{"anomaly.window_seconds", &p.Anomaly.WindowSeconds, 60},
		{"anomaly.endpoint_repeat_limit", &p.Anomaly.EndpointRepeatLimit, 50},
		{"anomaly.velocity_limit", &p.Anomaly.VelocityLimit, 5},
		{"anomaly.escalation_flags", &p.Anomaly.EscalationFlags, 3},
		{"anomaly.auto_block_multiplier", &p.Anomaly.AutoBlockMultiplier, 2},
	}
	for _, f := range ints {
		if *f.value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", f.name, *f.value)
		}
		if *f.value == 0 {
			*f.value = f.fallback
		}
	}

	if p.Anomaly.ApproachRatio < 0 || p.Anomaly.ApproachRatio > 1 {
		return fmt.Errorf("anomaly.approach_ratio must be within (0, 1], got %v", p.Anomaly.ApproachRatio)
	}
	if p.Anomaly.ApproachRatio == 0 {
		p.Anomaly.ApproachRatio = 0.8
	}

	if p.SystemPaths == nil {
		p.SystemPaths = []string{"/health", "/metrics", "/docs", "/openapi.json", "/redoc"}
	}

	for i, seed := range p.Blacklist {
		if seed.IP == "" {
			return fmt.Errorf("blacklist[%d]: ip is required", i)
		}
	}
	return nil
}

func (p Policy) RuleDefaults() domain.RuleSet {
	return domain.RuleSet{
		MaxRequestsPerSecond: p.Rules.MaxRequestsPerSecond,
		MaxRequestsPerMinute: p.Rules.MaxRequestsPerMinute,
		BlockDuration:        p.Rules.BlockDurationSeconds,
		AnomalyThreshold:     p.Rules.AnomalyThreshold,
	}
}
