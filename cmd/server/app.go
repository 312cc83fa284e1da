package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	httpHandlers "github.com/Priyamannem/ddos-shield/internal/adapters/http/handlers"
	httpMiddleware "github.com/Priyamannem/ddos-shield/internal/adapters/http/middleware"
	"github.com/Priyamannem/ddos-shield/internal/adapters/metrics"
	"github.com/Priyamannem/ddos-shield/internal/config"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
	"github.com/Priyamannem/ddos-shield/internal/core/services"
)

type app struct {
	router http.Handler
	stats  *services.StatsAggregator
}

func newApp(ctx context.Context, cfg config.Config, policy config.Policy, storage ports.Storage, log *logrus.Logger) (*app, error) {
	prom := metrics.NewPrometheus()

	rules, err := services.NewRuleRegistry(storage, services.RuleRegistryConfig{
		Defaults: policy.RuleDefaults(),
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("rule registry: %w", err)
	}
	activity, err := services.NewActivityTracker(storage, services.ActivityTrackerConfig{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("activity tracker: %w", err)
	}
	reputation, err := services.NewReputationRegistry(storage, activity, services.ReputationRegistryConfig{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("reputation registry: %w", err)
	}
	audit, err := services.NewAuditLog(storage, services.AuditLogConfig{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	limiter, err := services.NewRateLimiterService(rules, activity, audit, log)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	detector, err := services.NewAnomalyDetectorService(rules, activity, services.AnomalyConfig{
		Window:              time.Duration(policy.Anomaly.WindowSeconds) * time.Second,
		EndpointRepeatLimit: policy.Anomaly.EndpointRepeatLimit,
		VelocityLimit:       int64(policy.Anomaly.VelocityLimit),
		ApproachRatio:       policy.Anomaly.ApproachRatio,
		EscalationFlags:     policy.Anomaly.EscalationFlags,
		AutoBlockMultiplier: policy.Anomaly.AutoBlockMultiplier,
		Logger:              log,
	})
	if err != nil {
		return nil, fmt.Errorf("anomaly detector: %w", err)
	}
	coordinator, err := services.NewMitigationCoordinator(reputation, limiter, detector, audit, services.CoordinatorConfig{
		SystemPaths: policy.SystemPaths,
		Observer:    prom,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("mitigation coordinator: %w", err)
	}
	stats, err := services.NewStatsAggregator(storage, storage, services.StatsConfig{
		Interval:  cfg.Stats.Interval,
		Window:    cfg.Stats.Window,
		Retention: cfg.Stats.Retention,
		Observer:  prom,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("stats aggregator: %w", err)
	}

	if _, err := rules.Current(ctx); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if err := seedLists(ctx, reputation, policy, log); err != nil {
		return nil, err
	}

	admin, err := httpHandlers.NewAdmin(httpHandlers.AdminDeps{
		Rules:      rules,
		Activity:   activity,
		Reputation: reputation,
		Audit:      audit,
		Stats:      stats,
		Logger:     log,
	}, cfg.Server.CORSOrigins)
	if err != nil {
		return nil, fmt.Errorf("admin handlers: %w", err)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(httpMiddleware.NewRecoverer(log, cfg.Debug))
	r.Use(httpMiddleware.NewCORS(cfg.Server.CORSOrigins))
	r.Use(httpMiddleware.NewMitigationMiddleware(coordinator, log))

	r.Get("/health", httpHandlers.Health)
	r.Get("/", httpHandlers.Root)
	r.Get("/protected-resource", httpHandlers.ProtectedResource)
	r.Post("/test-endpoint", httpHandlers.TestEndpoint)
	r.Method(http.MethodGet, "/metrics", prom.Handler())
	r.Route("/admin", func(r chi.Router) {
		r.Use(httpMiddleware.NewAdminAuth(cfg.Admin.JWTSecret))
		admin.Routes(r)
	})

	return &app{router: r, stats: stats}, nil
}

func seedLists(ctx context.Context, reputation *services.ReputationRegistry, policy config.Policy, log logrus.FieldLogger) error {
	for _, ip := range policy.Whitelist {
		if _, err := reputation.AddToWhitelist(ctx, ip); err != nil {
			return fmt.Errorf("seed whitelist: %w", err)
		}
	}
	for _, seed := range policy.Blacklist {
		if _, err := reputation.AddToBlacklist(ctx, seed.IP, seed.Reason); err != nil {
			return fmt.Errorf("seed blacklist: %w", err)
		}
	}
	if n := len(policy.Whitelist) + len(policy.Blacklist); n > 0 {
		log.WithField("entries", n).Info("seeded reputation lists")
	}
	return nil
}
