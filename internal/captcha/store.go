package captcha

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore — хранилище одноразовых кодов с TTL. Реализовано поверх Redis;
// в тестах подменяется in-memory фейком.
type CodeStore interface {
	// Set пишет код с перезаписью: повторная выдача для той же пары
	// (назначение, адрес) затирает прошлый код и сбрасывает TTL.
	Set(ctx context.Context, key, code string, ttl time.Duration) error
	// Get возвращает "" без ошибки, если кода нет или он истек.
	Get(ctx context.Context, key string) (string, error)
}

// RedisStore — боевая реализация CodeStore.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Set(ctx context.Context, key, code string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, code, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Истекший ключ Redis удаляет сам — для нас это "кода нет"
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}
