package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
	connMaxLifetime = 30 * time.Minute
)

// Open 打开 PostgreSQL 连接池并等待数据库可用
// 容器编排时数据库可能晚于服务启动，因此按 connectBackoff 递增间隔重试 Ping
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := waitReady(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func waitReady(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if logger != nil {
			logger.Warn("database not ready",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
		}
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", connectAttempts, lastErr)
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
