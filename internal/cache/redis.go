package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rajivgeraev/bonplan-api/internal/config"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
	"github.com/rajivgeraev/bonplan-api/internal/payment/paypal"
	"github.com/redis/go-redis/v9"
)

// RedisCache журнал списаний PayPal поверх Redis
type RedisCache struct {
	client *redis.Client
}

var _ paypal.CaptureLedger = (*RedisCache)(nil)

// NewRedisCache создает подключение к Redis
func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

// Ping проверяет доступность Redis
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает соединение
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) LoadCapture(ctx context.Context, orderID string) (*payment.Confirmation, error) {
	data, err := c.client.Get(ctx, captureResultKey(orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var conf payment.Confirmation
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("ошибка разбора результата списания: %w", err)
	}
	return &conf, nil
}

func (c *RedisCache) SaveCapture(ctx context.Context, orderID string, conf payment.Confirmation, ttl time.Duration) error {
	payload, err := json.Marshal(conf)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, captureResultKey(orderID), payload, ttl).Err()
}

func (c *RedisCache) AcquireCaptureLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, captureLockKey(orderID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseCaptureLock(ctx context.Context, orderID string) error {
	return c.client.Del(ctx, captureLockKey(orderID)).Err()
}

func captureResultKey(orderID string) string {
	return fmt.Sprintf("paypal:capture:%s:result", orderID)
}

func captureLockKey(orderID string) string {
	return fmt.Sprintf("lock:paypal:capture:%s", orderID)
}
