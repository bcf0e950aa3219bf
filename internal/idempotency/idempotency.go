package idempotency

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const Header = "Idempotency-Key"

// Store помнит ключи запросов в течение ttl
type Store interface {
	// Seen атомарно запоминает ключ; true, если ключ уже был
	Seen(ctx context.Context, key string) (bool, error)
	// Release забывает ключ, чтобы неуспешный запрос можно было повторить
	Release(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// MemoryStore для запуска без Redis
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Seen(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return true, nil
	}
	s.keys[key] = now.Add(s.ttl)
	// чистим протухшие ключи
	for k, exp := range s.keys {
		if !now.Before(exp) {
			delete(s.keys, k)
		}
	}
	return false, nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// Middleware отклоняет повтор запроса с тем же Idempotency-Key (409).
// Запросы без заголовка пропускаются как есть.
func Middleware(store Store, scope func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(Header)
		if key == "" {
			c.Next()
			return
		}
		full := "idem:" + c.Request.Method + ":" + c.FullPath() + ":" + key
		if scope != nil {
			full = "idem:" + scope(c) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		}
		ctx := c.Request.Context()
		seen, err := store.Seen(ctx, full)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "idempotency store unavailable"})
			return
		}
		if seen {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "DUPLICATE_REQUEST", "message": "request with this Idempotency-Key was already processed"})
			return
		}
		c.Next()
		if c.Writer.Status() >= http.StatusBadRequest {
			_ = store.Release(context.WithoutCancel(ctx), full)
		}
	}
}
