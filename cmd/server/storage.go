package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	splitstorage "github.com/Priyamannem/ddos-shield/internal/adapters/storage"
	memorystorage "github.com/Priyamannem/ddos-shield/internal/adapters/storage/memory"
	postgresstorage "github.com/Priyamannem/ddos-shield/internal/adapters/storage/postgres"
	redisstorage "github.com/Priyamannem/ddos-shield/internal/adapters/storage/redis"
	"github.com/Priyamannem/ddos-shield/internal/config"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

func initStorage(cfg config.StorageConfig, log *logrus.Logger) (ports.Storage, func(), error) {
	var base ports.Storage
	switch cfg.Type {
	case config.StorageMemory:
		base = memorystorage.New()
	case config.StoragePostgres:
		pg, err := postgresstorage.Open(postgresstorage.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Name:     cfg.Postgres.Name,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		base = pg
	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	storage := base
	if cfg.ActivityStore == config.ActivityRedis {
		activity, err := redisstorage.New(redisstorage.Config{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = base.Close()
			return nil, nil, err
		}
		storage = splitstorage.NewSplit(base, activity)
	}

	log.WithFields(logrus.Fields{
		"storage":  cfg.Type,
		"activity": cfg.ActivityStore,
	}).Info("storage initialised")

	var closed bool
	return storage, func() {
		if closed {
			return
		}
		closed = true
		if err := storage.Close(); err != nil {
			log.WithError(err).Error("failed to close storage")
		}
	}, nil
}
