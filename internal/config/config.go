// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	ActivityDefault = "default"
	ActivityRedis   = "redis"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Stats      StatsConfig
	Admin      AdminConfig
	PolicyFile string
	Debug      bool
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Type          string
	ActivityStore string
	Postgres      PostgresConfig
	Redis         RedisConfig
}

type PostgresConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type StatsConfig struct {
	Interval  time.Duration
	Window    time.Duration
	Retention time.Duration
}

type AdminConfig struct {
	JWTSecret string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	debug, err := getBool("DEBUG", false)
	if err != nil {
		return Config{}, err
	}

	storage, err := buildStorageConfig()
	if err != nil {
		return Config{}, err
	}

	stats, err := buildStatsConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "INFO"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Storage:    storage,
		Stats:      stats,
		Admin:      AdminConfig{JWTSecret: os.Getenv("ADMIN_JWT_SECRET")},
		PolicyFile: getEnv("POLICY_FILE", ""),
		Debug:      debug,
	}, nil
}

func buildStorageConfig() (StorageConfig, error) {
	storageType := strings.ToLower(getEnv("STORAGE_TYPE", StorageMemory))
	if storageType != StorageMemory && storageType != StoragePostgres {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_TYPE %q: expected %s or %s", storageType, StorageMemory, StoragePostgres)
	}
	activity := strings.ToLower(getEnv("ACTIVITY_STORE", ActivityDefault))
	if activity != ActivityDefault && activity != ActivityRedis {
		return StorageConfig{}, fmt.Errorf("invalid ACTIVITY_STORE %q: expected %s or %s", activity, ActivityDefault, ActivityRedis)
	}

	postgres, err := buildPostgresConfig()
	if err != nil {
		return StorageConfig{}, err
	}
	redis, err := buildRedisConfig()
	if err != nil {
		return StorageConfig{}, err
	}

	return StorageConfig{
		Type:          storageType,
		ActivityStore: activity,
		Postgres:      postgres,
		Redis:         redis,
	}, nil
}

func buildPostgresConfig() (PostgresConfig, error) {
	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	return PostgresConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     port,
		Name:     getEnv("DB_NAME", "ddos_shield"),
		User:     getEnv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildStatsConfig() (StatsConfig, error) {
	interval, err := strconv.Atoi(getEnv("STATS_INTERVAL_SECONDS", "5"))
	if err != nil || interval <= 0 {
		return StatsConfig{}, fmt.Errorf("invalid STATS_INTERVAL_SECONDS: must be a positive integer")
	}
	window, err := strconv.Atoi(getEnv("STATS_WINDOW_SECONDS", "10"))
	if err != nil || window <= 0 {
		return StatsConfig{}, fmt.Errorf("invalid STATS_WINDOW_SECONDS: must be a positive integer")
	}
	retention, err := strconv.Atoi(getEnv("STATS_RETENTION_HOURS", "0"))
	if err != nil || retention < 0 {
		return StatsConfig{}, fmt.Errorf("invalid STATS_RETENTION_HOURS: must be zero or positive")
	}

	return StatsConfig{
		Interval:  time.Duration(interval) * time.Second,
		Window:    time.Duration(window) * time.Second,
		Retention: time.Duration(retention) * time.Hour,
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
