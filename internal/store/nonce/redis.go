package nonce

import (
	"context"
	"fmt"
	"time"

	"chatrelay/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "chatrelay:nonce:"

// RedisStore shares consumed tokens between replicas. Keys carry no TTL.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// OpenRedis connects and waits for the server to answer PING, backing off
// exponentially for at most maxWait.
func OpenRedis(ctx context.Context, cfg config.RedisCfg, maxWait time.Duration) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = maxWait

	ping := func() error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis not ready")
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}
	return rdb, nil
}

func (s *RedisStore) Consume(ctx context.Context, token string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+token, time.Now().UTC().Format(time.RFC3339), 0).Result()
	if err != nil {
		return false, fmt.Errorf("record nonce: %w", err)
	}
	return ok, nil
}
