package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

const defaultBlacklistReason = "manual"

// BlockChecker informa se um IP está com bloqueio temporário vigente.
type BlockChecker interface {
	IsBlocked(ctx context.Context, ip string) (bool, error)
}

type ReputationRegistryConfig struct {
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// ReputationRegistry administra whitelist e blacklist e classifica endereços.
type ReputationRegistry struct {
	store  ports.ReputationStore
	blocks BlockChecker
	now    func() time.Time
	logger logrus.FieldLogger
}

func NewReputationRegistry(store ports.ReputationStore, blocks BlockChecker, cfg ReputationRegistryConfig) (*ReputationRegistry, error) {
	if store == nil {
		return nil, fmt.Errorf("reputation store is required")
	}
	if blocks == nil {
		return nil, fmt.Errorf("block checker is required")
	}
	return &ReputationRegistry{
		store:  store,
		blocks: blocks,
		now:    clockOrDefault(cfg.Now),
		logger: loggerOrDefault(cfg.Logger),
	}, nil
}

// Check aplica a precedência whitelist, blacklist, bloqueio temporário.
func (r *ReputationRegistry) Check(ctx context.Context, ip string) (domain.ReputationStatus, error) {
	whitelisted, err := r.IsWhitelisted(ctx, ip)
	if err != nil {
		return domain.ReputationNone, err
	}
	if whitelisted {
		return domain.ReputationWhitelisted, nil
	}

	blacklisted, err := r.IsBlacklisted(ctx, ip)
	if err != nil {
		return domain.ReputationNone, err
	}
	if blacklisted {
		return domain.ReputationBlacklisted, nil
	}

	blocked, err := r.blocks.IsBlocked(ctx, ip)
	if err != nil {
		return domain.ReputationNone, err
	}
	if blocked {
		return domain.ReputationTemporarilyBlocked, nil
	}
	return domain.ReputationNone, nil
}

func (r *ReputationRegistry) IsWhitelisted(ctx context.Context, ip string) (bool, error) {
	if _, err := r.store.FindWhitelist(ctx, ip); err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("whitelist lookup: %w", err)
	}
	return true, nil
}

func (r *ReputationRegistry) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	if _, err := r.store.FindBlacklist(ctx, ip); err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return true, nil
}

// AddToBlacklist insere ou atualiza a entrada, renovando motivo e data.
func (r *ReputationRegistry) AddToBlacklist(ctx context.Context, ip, reason string) (domain.BlacklistEntry, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return domain.BlacklistEntry{}, domain.ErrInvalidIP
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultBlacklistReason
	}

	entry, err := r.store.UpsertBlacklist(ctx, domain.BlacklistEntry{IP: ip, Reason: reason, AddedAt: r.now()})
	if err != nil {
		return domain.BlacklistEntry{}, fmt.Errorf("blacklist %s: %w", ip, err)
	}
	r.logger.WithFields(logrus.Fields{"ip": ip, "reason": reason}).Warn("ip added to blacklist")
	return entry, nil
}

// AddToWhitelist devolve a entrada existente sem alterá-la quando ip já está na lista.
func (r *ReputationRegistry) AddToWhitelist(ctx context.Context, ip string) (domain.WhitelistEntry, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return domain.WhitelistEntry{}, domain.ErrInvalidIP
	}

	entry, created, err := r.store.InsertWhitelist(ctx, domain.WhitelistEntry{IP: ip, AddedAt: r.now()})
	if err != nil {
		return domain.WhitelistEntry{}, fmt.Errorf("whitelist %s: %w", ip, err)
	}
	if created {
		r.logger.WithField("ip", ip).Info("ip added to whitelist")
	}
	return entry, nil
}

func (r *ReputationRegistry) RemoveFromBlacklist(ctx context.Context, ip string) (bool, error) {
	removed, err := r.store.DeleteBlacklist(ctx, strings.TrimSpace(ip))
	if err != nil {
		return false, fmt.Errorf("remove %s from blacklist: %w", ip, err)
	}
	return removed, nil
}

func (r *ReputationRegistry) RemoveFromWhitelist(ctx context.Context, ip string) (bool, error) {
	removed, err := r.store.DeleteWhitelist(ctx, strings.TrimSpace(ip))
	if err != nil {
		return false, fmt.Errorf("remove %s from whitelist: %w", ip, err)
	}
	return removed, nil
}

func (r *ReputationRegistry) ListBlacklist(ctx context.Context) ([]domain.BlacklistEntry, error) {
	return r.store.ListBlacklist(ctx)
}

func (r *ReputationRegistry) ListWhitelist(ctx context.Context) ([]domain.WhitelistEntry, error) {
	return r.store.ListWhitelist(ctx)
}
