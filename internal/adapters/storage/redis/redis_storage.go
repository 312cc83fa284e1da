// Package redis disponibiliza o store de atividade por IP baseado em Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Priyamannem/ddos-shield/internal/core/domain"
	"github.com/Priyamannem/ddos-shield/internal/core/ports"
)

const maxTxRetries = 64

var ErrTxConflict = errors.New("redis transaction retries exhausted")

// Storage guarda cada registro de atividade num hash e mantém um set com os
// IPs marcados como bloqueados.
type Storage struct {
	client  *redis.Client
	prefix  string
	idleTTL time.Duration
}

var _ ports.ActivityStore = (*Storage)(nil)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// IdleTTL expira registros sem tráfego. Bloqueios vigentes estendem o TTL.
	IdleTTL time.Duration
}

func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ddos"
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Storage{client: client, prefix: cfg.KeyPrefix, idleTTL: cfg.IdleTTL}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) activityKey(ip string) string {
	return fmt.Sprintf("%s:activity:%s", s.prefix, ip)
}

func (s *Storage) blockedKey() string {
	return s.prefix + ":activity:blocked"
}

// Update usa WATCH/MULTI sobre a chave do IP e repete a transação quando
// outro cliente altera o registro no meio do caminho.
func (s *Storage) Update(ctx context.Context, ip string, now time.Time, fn func(*domain.IPActivityRecord) error) (domain.IPActivityRecord, error) {
	key := s.activityKey(ip)
	var out domain.IPActivityRecord

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		rec := domain.NewIPActivityRecord(ip, now)
		if len(fields) > 0 {
			if rec, err = decodeRecord(ip, fields); err != nil {
				return err
			}
		}
		if err := fn(&rec); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeRecord(rec))
			pipe.Expire(ctx, key, s.ttlFor(rec, now))
			if rec.IsBlocked {
				pipe.SAdd(ctx, s.blockedKey(), ip)
			} else {
				pipe.SRem(ctx, s.blockedKey(), ip)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = rec
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.IPActivityRecord{}, err
	}
	return domain.IPActivityRecord{}, ErrTxConflict
}

func (s *Storage) ttlFor(rec domain.IPActivityRecord, now time.Time) time.Duration {
	ttl := s.idleTTL
	if rec.BlockedUntil != nil {
		if remaining := rec.BlockedUntil.Sub(now) + time.Minute; remaining > ttl {
			ttl = remaining
		}
	}
	return ttl
}

func (s *Storage) Get(ctx context.Context, ip string) (domain.IPActivityRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.activityKey(ip)).Result()
	if err != nil {
		return domain.IPActivityRecord{}, err
	}
	if len(fields) == 0 {
		return domain.IPActivityRecord{}, domain.ErrNotFound
	}
	return decodeRecord(ip, fields)
}

func (s *Storage) ListBlocked(ctx context.Context) ([]domain.IPActivityRecord, error) {
	ips, err := s.client.SMembers(ctx, s.blockedKey()).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ips))
	for i, ip := range ips {
		cmds[i] = pipe.HGetAll(ctx, s.activityKey(ip))
	}
	if len(ips) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]domain.IPActivityRecord, 0, len(ips))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Registro expirou; o membro do set ficou órfão.
			s.client.SRem(ctx, s.blockedKey(), ips[i])
			continue
		}
		rec, err := decodeRecord(ips[i], fields)
		if err != nil {
			return nil, err
		}
		if rec.IsBlocked {
			out = append(out, rec)
		}
	}
	return out, nil
}

func encodeRecord(rec domain.IPActivityRecord) map[string]interface{} {
	blocked, until := "0", "0"
	if rec.IsBlocked {
		blocked = "1"
	}
	if rec.BlockedUntil != nil {
		until = strconv.FormatInt(rec.BlockedUntil.UnixNano(), 10)
	}
	return map[string]interface{}{
		"requests_last_second": rec.RequestsLastSecond,
		"requests_last_minute": rec.RequestsLastMinute,
		"total_requests":       rec.TotalRequests,
		"second_window_start":  rec.SecondWindowStart.UnixNano(),
		"minute_window_start":  rec.MinuteWindowStart.UnixNano(),
		"last_seen":            rec.LastSeen.UnixNano(),
		"first_detected":       rec.FirstDetected.UnixNano(),
		"is_blocked":           blocked,
		"blocked_until":        until,
		"block_reason":         rec.BlockReason,
	}
}

func decodeRecord(ip string, fields map[string]string) (domain.IPActivityRecord, error) {
	rec := domain.IPActivityRecord{
		IP:          ip,
		IsBlocked:   fields["is_blocked"] == "1",
		BlockReason: fields["block_reason"],
	}

	ints := []struct {
		name string
		dst  *int64
	}{
		{"requests_last_second", &rec.RequestsLastSecond},
		{"requests_last_minute", &rec.RequestsLastMinute},
		{"total_requests", &rec.TotalRequests},
	}
	for _, f := range ints {
		v, err := parseInt(fields, f.name)
		if err != nil {
			return domain.IPActivityRecord{}, err
		}
		*f.dst = v
	}

	times := []struct {
		name string
		dst  *time.Time
	}{
		{"second_window_start", &rec.SecondWindowStart},
		{"minute_window_start", &rec.MinuteWindowStart},
		{"last_seen", &rec.LastSeen},
		{"first_detected", &rec.FirstDetected},
	}
	for _, f := range times {
		v, err := parseInt(fields, f.name)
		if err != nil {
			return domain.IPActivityRecord{}, err
		}
		*f.dst = time.Unix(0, v).UTC()
	}

	until, err := parseInt(fields, "blocked_until")
	if err != nil {
		return domain.IPActivityRecord{}, err
	}
	if until > 0 {
		t := time.Unix(0, until).UTC()
		rec.BlockedUntil = &t
	}
	return rec, nil
}

func parseInt(fields map[string]string, name string) (int64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}
