package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Request headers carrying a client-chosen idempotency key
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderCorrelationID  = "X-Correlation-ID"
	HeaderReplay         = "X-Idempotent-Replay"
)

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyKey returns the key sent by the client, preferring Idempotency-Key
func IdempotencyKey(c *fiber.Ctx) string {
	if key := c.Get(HeaderIdempotencyKey); key != "" {
		return key
	}
	return c.Get(HeaderCorrelationID)
}

// Idempotency replays the stored 2xx response of a mutating request sent again with
// the same key by the same user within ttl. Mount it after RequireAuth.
func Idempotency(redisClient *redis.Client, ttl time.Duration, log *zap.Logger) fiber.Handler {
	log = log.Named("idempotency")

	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		idemKey := IdempotencyKey(c)
		if idemKey == "" {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s", GetUserID(c), c.Path(), idemKey)

		cached, err := redisClient.Get(c.UserContext(), key).Bytes()
		switch {
		case err == nil:
			var resp cachedResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				c.Set(HeaderReplay, "true")
				c.Set(fiber.HeaderContentType, resp.ContentType)
				return c.Status(resp.Status).Send(resp.Body)
			}
		case !errors.Is(err, redis.Nil):
			log.Warn("replay lookup failed", zap.String("key", key), zap.Error(err))
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			return nil
		}
		payload, err := json.Marshal(cachedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		if err != nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Set(ctx, key, payload, ttl).Err(); err != nil {
			log.Warn("replay store failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
}
