package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

// AnomalyConfig reúne os limiares das heurísticas de anomalia.
type AnomalyConfig struct {
	Window              time.Duration
	EndpointRepeatLimit int
	VelocityLimit       int64
	ApproachRatio       float64
	EscalationFlags     int
	AutoBlockMultiplier int
	Now                 func() time.Time
	Logger              logrus.FieldLogger
}

func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		Window:              60 * time.Second,
		EndpointRepeatLimit: 50,
		VelocityLimit:       5,
		ApproachRatio:       0.8,
		EscalationFlags:     3,
		AutoBlockMultiplier: 2,
	}
}

func (c *AnomalyConfig) withDefaults() {
	d := DefaultAnomalyConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.EndpointRepeatLimit <= 0 {
		c.EndpointRepeatLimit = d.EndpointRepeatLimit
	}
	if c.VelocityLimit <= 0 {
		c.VelocityLimit = d.VelocityLimit
	}
	if c.ApproachRatio <= 0 {
		c.ApproachRatio = d.ApproachRatio
	}
	if c.EscalationFlags <= 0 {
		c.EscalationFlags = d.EscalationFlags
	}
	if c.AutoBlockMultiplier <= 0 {
		c.AutoBlockMultiplier = d.AutoBlockMultiplier
	}
}

// AnomalyDetectorService mantém o estado local do processo usado pelas heurísticas:
// a janela deslizante global de timestamps e o contador por (ip, endpoint).
type AnomalyDetectorService struct {
	rules    *RuleRegistry
	activity *ActivityTracker
	cfg      AnomalyConfig
	now      func() time.Time
	logger   logrus.FieldLogger

	windowMu sync.Mutex
	window   []time.Time

	hitsMu sync.Mutex
	hits   map[string]map[string]int
}

var _ ports.AnomalyDetector = (*AnomalyDetectorService)(nil)

func NewAnomalyDetectorService(rules *RuleRegistry, activity *ActivityTracker, cfg AnomalyConfig) (*AnomalyDetectorService, error) {
	if rules == nil {
		return nil, fmt.Errorf("rule registry is required")
	}
	if activity == nil {
		return nil, fmt.Errorf("activity tracker is required")
	}
	cfg.withDefaults()
	return &AnomalyDetectorService{
		rules:    rules,
		activity: activity,
		cfg:      cfg,
		now:      clockOrDefault(cfg.Now),
		logger:   loggerOrDefault(cfg.Logger),
		hits:     make(map[string]map[string]int),
	}, nil
}

// Evaluate registra a requisição no estado do detector e devolve os sinais
// disparados. Com sinais suficientes o IP é bloqueado automaticamente.
func (d *AnomalyDetectorService) Evaluate(ctx context.Context, ip, endpoint string) (domain.AnomalyResult, error) {
	rules, err := d.rules.Current(ctx)
	if err != nil {
		return domain.AnomalyResult{}, err
	}
	rec, err := d.activity.Get(ctx, ip)
	if err != nil && !domain.IsNotFound(err) {
		return domain.AnomalyResult{}, fmt.Errorf("load activity: %w", err)
	}

	now := d.now()
	windowSize := d.observe(now)
	hits := d.hit(ip, endpoint)

	var flags []string
	if windowSize > rules.AnomalyThreshold {
		flags = append(flags, domain.FlagGlobalTrafficSpike)
	}
	if hits > d.cfg.EndpointRepeatLimit {
		flags = append(flags, domain.FlagRepeatedEndpointAccess)
	}
	if rec.RequestsLastSecond > d.cfg.VelocityLimit {
		flags = append(flags, domain.FlagHighVelocity)
	}
	if float64(rec.RequestsLastMinute) > d.cfg.ApproachRatio*float64(rules.MaxRequestsPerMinute) {
		flags = append(flags, domain.FlagApproachingRateLimit)
	}

	if len(flags) < d.cfg.EscalationFlags {
		return domain.AnomalyResult{Suspicious: len(flags) > 0, Flags: flags}, nil
	}

	duration := time.Duration(d.cfg.AutoBlockMultiplier) * rules.BlockFor()
	if _, err := d.activity.Block(ctx, ip, duration, domain.ReasonMultipleAnomalies); err != nil {
		d.logger.WithError(err).WithField("ip", ip).Error("failed to persist anomaly block")
	}
	return domain.AnomalyResult{
		Suspicious:  true,
		AutoBlocked: true,
		Flags:       flags,
		RetryAfter:  duration,
	}, nil
}

// observe adiciona now à janela global e devolve o tamanho após descartar o que saiu dela.
func (d *AnomalyDetectorService) observe(now time.Time) int {
	d.windowMu.Lock()
	defer d.windowMu.Unlock()

	d.window = append(d.window, now)
	cutoff := now.Add(-d.cfg.Window)
	drop := 0
	for drop < len(d.window) && !d.window[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		d.window = append(d.window[:0], d.window[drop:]...)
	}
	return len(d.window)
}

func (d *AnomalyDetectorService) hit(ip, endpoint string) int {
	d.hitsMu.Lock()
	defer d.hitsMu.Unlock()

	byEndpoint, ok := d.hits[ip]
	if !ok {
		byEndpoint = make(map[string]int)
		d.hits[ip] = byEndpoint
	}
	byEndpoint[endpoint]++
	return byEndpoint[endpoint]
}

// Reset descarta todo o estado acumulado.
func (d *AnomalyDetectorService) Reset() {
	d.windowMu.Lock()
	d.window = nil
	d.windowMu.Unlock()

	d.hitsMu.Lock()
	d.hits = make(map[string]map[string]int)
	d.hitsMu.Unlock()
}
