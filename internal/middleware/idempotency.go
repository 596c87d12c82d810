package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const CorrelationIDHeader = "X-Correlation-ID"

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyMiddleware replays the stored response of a mutating request
// whose X-Correlation-ID was already seen for the same user within ttl.
// A retried "next set" therefore never advances the cursor twice.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut && c.Method() != fiber.MethodDelete {
			return c.Next()
		}

		correlationID := c.Get(CorrelationIDHeader)
		if correlationID == "" {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s", GetUserID(c), correlationID)
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if data, err := redisClient.Get(ctx, key).Bytes(); err == nil {
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				c.Set("X-Idempotent-Replay", "true")
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(cached.Status).Send(cached.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status > 299 {
			return nil
		}
		// the response buffer is reused by fasthttp once the handler returns
		body := append([]byte(nil), c.Response().Body()...)
		data, err := json.Marshal(cachedResponse{Status: status, Body: body})
		if err != nil {
			return nil
		}
		if err := redisClient.Set(ctx, key, data, ttl).Err(); err != nil {
			log.WithField("correlation_id", correlationID).WithError(err).Warn("failed to store idempotent response")
		}
		return nil
	}
}
