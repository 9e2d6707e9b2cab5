package middleware

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"fifohub/config"
	"fifohub/utils"
)

// PINRateLimiter throttles kiosk PIN verification per workspace and
// client address. Verification leaks nothing about membership existence,
// but unthrottled it would still allow brute-forcing short codes.
func PINRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AppConfig.RateLimitPINAttempts,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			workspaceID := c.Params("id")
			return utils.GenerateRateLimitKey(workspaceID, c.IP(), c.Path())
		},
		LimitReached: func(c *fiber.Ctx) error {
			utils.LogEvent("pin_rate_limit_hit", map[string]interface{}{
				"workspace_id": c.Params("id"),
				"ip":           c.IP(),
				"user_agent":   c.Get("User-Agent"),
			})

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many PIN attempts. Please wait before trying again.",
				"retry_after": "1 minute",
			})
		},
		Storage: NewRedisStorage(),
	})
}

// RedisStorage implements fiber.Storage on the shared Redis client so
// limits hold across instances.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage() *RedisStorage {
	return &RedisStorage{client: config.Redis}
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	data, err := r.client.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	return r.client.Set(context.Background(), key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), key).Err()
}

func (r *RedisStorage) Reset() error {
	return r.client.FlushDB(context.Background()).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
