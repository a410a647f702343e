package main

import (
	"context"
	"os"

	"github.com/Fadhlan-athha/manajemen-warga/internal/common/database"
	"github.com/Fadhlan-athha/manajemen-warga/internal/common/logger"
	"github.com/Fadhlan-athha/manajemen-warga/internal/config"

	"go.uber.org/zap"
)

// apply-migration 执行一个或多个 SQL 文件（默认 db/01_schema.sql）
func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, "console", "apply-migration")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	files := os.Args[1:]
	if len(files) == 0 {
		files = []string{"db/01_schema.sql"}
	}

	db, err := database.Open(context.Background(), &cfg.Database, log)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer database.Close(db)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			log.Fatal("Failed to read migration file", zap.String("file", f), zap.Error(err))
		}
		// 无参数的 Exec 走 simple query 协议，可一次执行多条语句
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			log.Fatal("Failed to apply migration", zap.String("file", f), zap.Error(err))
		}
		log.Info("Migration applied", zap.String("file", f), zap.String("database", cfg.Database.Database))
	}
}
