package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"durak_webapp/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var rateLimiterClient *redis.Client

// InitRedisRateLimiter подключает редис для лимитера.
// Пустой addr — localhost:6379
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		addr = "localhost:6379"
	}
	rateLimiterClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rateLimiterClient.Ping(ctx).Err(); err != nil {
		logger.Warn("редис для rate limiter недоступен, лимиты отключены", "error", err)
		rateLimiterClient = nil
	}
}

// SetRateLimiterClient переиспользует уже открытое подключение
func SetRateLimiterClient(rdb *redis.Client) {
	rateLimiterClient = rdb
}

// RateLimit ограничивает число запросов с одного IP за окно.
// Без редиса пропускает всё
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rateLimiterClient == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:%s:%s", c.FullPath(), c.ClientIP())
		ctx := c.Request.Context()

		count, err := rateLimiterClient.Incr(ctx, key).Result()
		if err != nil {
			// редис лёг - не валим API
			c.Next()
			return
		}
		if count == 1 {
			rateLimiterClient.Expire(ctx, key, window)
		}
		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
