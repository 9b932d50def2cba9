// cache — кэш ротаций refresh-токена, общий для реплик шлюза.
//
// После успешной ротации новая пара кладётся под хэшем старого refresh-токена
// на короткое окно (grace TTL). Параллельный запрос с тем же старым токеном
// получает уже выданную пару и не сжигает сессию повторным вызовом бэкенда.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/sanad-gateway/internal/models"
)

//go:generate mockgen -destination=../../mocks/mock_rotation_cache.go -package=mocks github.com/pribylovaa/sanad-gateway/internal/cache RotationCache

// RotationCache — минимальный контракт кэша ротаций.
type RotationCache interface {
	// Get возвращает пару, выданную взамен refresh-токена с хэшем hash.
	Get(ctx context.Context, hash string) (*models.TokenPair, bool, error)
	// Set сохраняет пару с TTL.
	Set(ctx context.Context, hash string, p models.TokenPair, ttl time.Duration) error
	// Close закрывает клиент.
	Close() error
}

// Hash — ключ кэша для refresh-токена (sha256, hex).
func Hash(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "sanad:rt:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (RotationCache, error) {
	const op = "cache.NewRedisCache"

	if prefix == "" {
		prefix = "sanad:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(hash string) string { return c.prefix + hash }

// Храним как Redis Hash с полями: at, rt, exp (expires_in, секунды).
func (c *redisCache) Get(ctx context.Context, hash string) (*models.TokenPair, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	if m["at"] == "" || m["rt"] == "" {
		return nil, false, errors.New("cache: incomplete rotation entry")
	}

	exp, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &models.TokenPair{
		AccessToken:  m["at"],
		RefreshToken: m["rt"],
		ExpiresIn:    exp,
	}, true, nil
}

func (c *redisCache) Set(ctx context.Context, hash string, p models.TokenPair, ttl time.Duration) error {
	kv := map[string]string{
		"at":  p.AccessToken,
		"rt":  p.RefreshToken,
		"exp": strconv.FormatInt(p.ExpiresIn, 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(hash), kv)
	pipe.Expire(ctx, c.key(hash), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Close() error { return c.rdb.Close() }

// Noop — кэш без хранилища, когда Redis не настроен.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.TokenPair, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, models.TokenPair, time.Duration) error { return nil }

func (Noop) Close() error { return nil }
