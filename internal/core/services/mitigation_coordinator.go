package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

// TemporaryBlockRetryAfter é o Retry-After informado para IPs com bloqueio temporário.
const TemporaryBlockRetryAfter = 300 * time.Second

// DefaultSystemPaths não passam pelo pipeline nem são auditados.
var DefaultSystemPaths = []string{"/health", "/metrics", "/docs", "/openapi.json", "/redoc"}

const (
	stageReputation = "reputation"
	stageRateLimit  = "rate_limit"
	stageAnomaly    = "anomaly"
)

type CoordinatorConfig struct {
	SystemPaths []string
	Observer    ports.DecisionObserver
	Now         func() time.Time
	Logger      logrus.FieldLogger
}

// MitigationCoordinator executa reputação, rate limit e detecção de anomalias,
// nessa ordem, e grava exatamente uma entrada de auditoria por requisição.
// Não guarda estado mutável.
type MitigationCoordinator struct {
	reputation  ports.ReputationChecker
	limiter     ports.RateLimiter
	detector    ports.AnomalyDetector
	audit       ports.AuditRecorder
	systemPaths map[string]struct{}
	observer    ports.DecisionObserver
	now         func() time.Time
	logger      logrus.FieldLogger
}

var _ ports.Gate = (*MitigationCoordinator)(nil)

func NewMitigationCoordinator(
	reputation ports.ReputationChecker,
	limiter ports.RateLimiter,
	detector ports.AnomalyDetector,
	audit ports.AuditRecorder,
	cfg CoordinatorConfig,
) (*MitigationCoordinator, error) {
	if reputation == nil || limiter == nil || detector == nil || audit == nil {
		return nil, fmt.Errorf("reputation, limiter, detector and audit are required")
	}
	paths := cfg.SystemPaths
	if paths == nil {
		paths = DefaultSystemPaths
	}
	systemPaths := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		systemPaths[p] = struct{}{}
	}
	return &MitigationCoordinator{
		reputation:  reputation,
		limiter:     limiter,
		detector:    detector,
		audit:       audit,
		systemPaths: systemPaths,
		observer:    cfg.Observer,
		now:         clockOrDefault(cfg.Now),
		logger:      loggerOrDefault(cfg.Logger),
	}, nil
}

// Process devolve a decisão para req. Um erro só é retornado quando a
// requisição seria admitida sem conseguir gravar a auditoria.
func (c *MitigationCoordinator) Process(ctx context.Context, req domain.Request) (domain.Decision, error) {
	start := c.now()
	decision, err := c.process(ctx, ExtractIP(req), req.Path)
	if err == nil && c.observer != nil {
		c.observer.ObserveDecision(decision, c.now().Sub(start))
	}
	return decision, err
}

func (c *MitigationCoordinator) process(ctx context.Context, ip, endpoint string) (domain.Decision, error) {
	if _, ok := c.systemPaths[endpoint]; ok {
		return domain.Decision{
			Allowed:    true,
			Bypassed:   true,
			IP:         ip,
			Endpoint:   endpoint,
			Reason:     domain.ReasonSystemEndpoint,
			HTTPStatus: http.StatusOK,
		}, nil
	}

	log := c.logger.WithFields(logrus.Fields{"ip": ip, "endpoint": endpoint})
	var failedStages []string

	status, err := c.reputation.Check(ctx, ip)
	if err != nil {
		log.WithError(err).Error("reputation check failed, failing open")
		failedStages = append(failedStages, stageReputation)
	}
	switch status {
	case domain.ReputationBlacklisted:
		d := c.deny(ip, endpoint, http.StatusForbidden, domain.ReasonBlacklisted, 0)
		c.auditDeny(ctx, log, d)
		return d, nil
	case domain.ReputationTemporarilyBlocked:
		d := c.deny(ip, endpoint, http.StatusTooManyRequests, domain.ReasonTemporarilyBlocked, TemporaryBlockRetryAfter)
		c.auditDeny(ctx, log, d)
		return d, nil
	case domain.ReputationWhitelisted:
		d := c.allow(ip, endpoint, domain.ReasonWhitelisted)
		if _, err := c.audit.Record(ctx, ip, endpoint, domain.AuditAllowed, domain.ReasonWhitelisted); err != nil {
			return domain.Decision{}, auditFailure(err)
		}
		return d, nil
	}

	limit, err := c.limiter.Check(ctx, ip, endpoint)
	switch {
	case domain.IsBlockedError(err):
		d := c.deny(ip, endpoint, http.StatusTooManyRequests, limit.Reason, limit.RetryAfter)
		l, cur := limit.Limit, limit.Current
		d.Limit, d.Current = &l, &cur
		return d, nil
	case err != nil:
		log.WithError(err).Error("rate limit check failed, failing open")
		failedStages = append(failedStages, stageRateLimit)
	}

	anomaly, err := c.detector.Evaluate(ctx, ip, endpoint)
	if err != nil {
		log.WithError(err).Error("anomaly evaluation failed, failing open")
		failedStages = append(failedStages, stageAnomaly)
	}
	if anomaly.AutoBlocked {
		d := c.deny(ip, endpoint, http.StatusTooManyRequests, domain.ReasonAutoBlocked, anomaly.RetryAfter)
		d.Suspicious = true
		d.Anomalies = anomaly.Flags
		log.WithField("anomalies", anomaly.Flags).Warn("ip auto-blocked")
		c.auditDeny(ctx, log, d)
		return d, nil
	}

	d := c.allow(ip, endpoint, domain.ReasonPassedAllChecks)
	d.Anomalies = anomaly.Flags
	d.Suspicious = anomaly.Suspicious || len(failedStages) > 0

	auditStatus, auditReason := domain.AuditAllowed, domain.ReasonNormalTraffic
	if d.Suspicious {
		auditStatus = domain.AuditSuspicious
		auditReason = suspiciousReason(failedStages, anomaly.Flags)
		log.WithField("reason", auditReason).Debug("suspicious request admitted")
	}
	if _, err := c.audit.Record(ctx, ip, endpoint, auditStatus, auditReason); err != nil {
		return domain.Decision{}, auditFailure(err)
	}
	return d, nil
}

func (c *MitigationCoordinator) allow(ip, endpoint, reason string) domain.Decision {
	return domain.Decision{
		Allowed:    true,
		IP:         ip,
		Endpoint:   endpoint,
		Reason:     reason,
		HTTPStatus: http.StatusOK,
	}
}

func (c *MitigationCoordinator) deny(ip, endpoint string, status int, reason string, retryAfter time.Duration) domain.Decision {
	return domain.Decision{
		Allowed:    false,
		IP:         ip,
		Endpoint:   endpoint,
		Reason:     reason,
		HTTPStatus: status,
		RetryAfter: retryAfter,
	}
}

func (c *MitigationCoordinator) auditDeny(ctx context.Context, log logrus.FieldLogger, d domain.Decision) {
	log.WithField("reason", d.Reason).Warn("request denied")
	if _, err := c.audit.Record(ctx, d.IP, d.Endpoint, domain.AuditBlocked, d.Reason); err != nil {
		log.WithError(err).Error("failed to audit denial")
	}
}

func suspiciousReason(failedStages, flags []string) string {
	parts := make([]string, 0, len(failedStages)+len(flags))
	for _, stage := range failedStages {
		parts = append(parts, domain.ReasonFailOpenPrefix+stage)
	}
	parts = append(parts, flags...)
	return strings.Join(parts, ", ")
}

func auditFailure(err error) error {
	if errors.Is(err, domain.ErrAuditUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrAuditUnavailable, err)
}
