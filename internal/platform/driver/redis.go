package driver

import (
	"context"
	"fmt"
	"time"

	"marketplace-messaging/internal/platform/config"
	"marketplace-messaging/internal/platform/logger"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// ConnectRedis 連接 Redis（未啟用時跳過）.
func ConnectRedis() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("配置未載入")
	}

	if !cfg.Redis.Enabled {
		logger.LogInfof("Redis 未啟用，在線狀態與通知抑制功能降級")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	redisClient = client
	logger.LogInfof("Redis connected successfully")
	return nil
}

// GetRedisClient 獲取 Redis 客戶端實例（未連接時為 nil）.
func GetRedisClient() *redis.Client {
	return redisClient
}

// CloseRedis 關閉 Redis 連接.
func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}
