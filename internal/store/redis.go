package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/config"

	"github.com/go-redis/redis/v8"
)

// DialRedis 创建 Redis 客户端并在 timeout 内确认可达
// 失败时客户端已关闭，调用方可直接退回 MemoryKV
func DialRedis(ctx context.Context, cfg *config.RedisConfig, timeout time.Duration) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}
	return c, nil
}
