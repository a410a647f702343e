package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fadhlan-athha/manajemen-warga/internal/access"
	"github.com/Fadhlan-athha/manajemen-warga/internal/common/database"
	"github.com/Fadhlan-athha/manajemen-warga/internal/common/logger"
	"github.com/Fadhlan-athha/manajemen-warga/internal/common/mqtt"
	"github.com/Fadhlan-athha/manajemen-warga/internal/config"
	httpapi "github.com/Fadhlan-athha/manajemen-warga/internal/http"
	"github.com/Fadhlan-athha/manajemen-warga/internal/metrics"
	"github.com/Fadhlan-athha/manajemen-warga/internal/notify"
	"github.com/Fadhlan-athha/manajemen-warga/internal/repository"
	"github.com/Fadhlan-athha/manajemen-warga/internal/service"
	"github.com/Fadhlan-athha/manajemen-warga/internal/storage"
	"github.com/Fadhlan-athha/manajemen-warga/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "manajemen-warga")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 权限矩阵：policy 文件优先，否则使用内置默认
	matrix, err := access.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal("Failed to load policy file", zap.String("path", cfg.PolicyFile), zap.Error(err))
	}
	if cfg.PolicyFile != "" {
		log.Info("Permission matrix loaded", zap.String("path", cfg.PolicyFile))
	}

	// 存储：DB 不可用时退回内存 repo（本地联调）
	var (
		db         *sql.DB
		peopleRepo repository.PeopleRepository
		ledgerRepo repository.LedgerRepository
		adminRepo  repository.AdminRolesRepository
	)
	if cfg.DBEnabled {
		if d, err := database.Open(ctx, &cfg.Database, log); err == nil {
			db = d
			log.Info("DB enabled for manajemen-warga")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}
	if db != nil {
		peopleRepo = repository.NewPostgresPeopleRepository(db)
		ledgerRepo = repository.NewPostgresLedgerRepository(db)
		adminRepo = repository.NewPostgresAdminRolesRepository(db)
	} else {
		peopleRepo = repository.NewMemoryPeopleRepo()
		ledgerRepo = repository.NewMemoryLedgerRepo()
		adminRepo = repository.NewMemoryAdminRolesRepo()
	}

	// 会话：Redis 不可用时退回进程内 KV
	var kv store.KV = store.NewMemoryKV()
	redisClient, err := store.DialRedis(ctx, &cfg.Redis, 2*time.Second)
	if err != nil {
		log.Warn("Redis unavailable, sessions kept in memory", zap.Error(err))
	} else {
		kv = store.NewRedisKV(redisClient)
	}
	sessions := store.NewSessionStore(kv, cfg.Session.TTL)

	uploader, err := storage.NewS3Uploader(ctx, &cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	if !uploader.Enabled() {
		log.Warn("STORAGE_BUCKET not set, uploaded files will be dropped")
	}

	// 推送：WhatsApp 网关 + MQTT，均为可选
	var notifiers notify.Multi
	if cfg.Broadcast.Enabled && cfg.Broadcast.URL != "" {
		notifiers = append(notifiers, notify.NewWebhookBroadcaster(cfg.Broadcast.URL, cfg.Broadcast.Token, cfg.Broadcast.Target, log))
	}
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		if c, err := mqtt.NewClient(&cfg.MQTT, log); err == nil {
			mqttClient = c
			notifiers = append(notifiers, notify.NewMQTTBroadcaster(c, cfg.MQTT.Topic, cfg.MQTT.QoS))
		} else {
			log.Warn("MQTT enabled but connection failed, broadcasts skip MQTT", zap.Error(err))
		}
	}
	var notifier notify.Notifier = notify.Noop{}
	if len(notifiers) > 0 {
		notifier = notifiers
	}
	dispatcher := notify.NewDispatcher(notifier, log)

	accessSvc := service.NewAccessService(adminRepo, matrix, m, log)
	authSvc := service.NewAuthService(adminRepo, sessions, accessSvc, log)

	if cfg.SeedAdmin.Enabled {
		if err := authSvc.SeedAdmin(ctx, service.SeedAdminRequest{
			Email:       cfg.SeedAdmin.Email,
			Password:    cfg.SeedAdmin.Password,
			Role:        access.RoleTopLevelCoordinator,
			DisplayName: "Ketua RW",
		}); err != nil {
			log.Warn("Failed to seed admin", zap.Error(err))
		}
	}

	api := &httpapi.API{
		Auth:      authSvc,
		Access:    accessSvc,
		Census:    service.NewCensusService(peopleRepo, accessSvc, uploader, m, log),
		Finance:   service.NewFinanceService(ledgerRepo, accessSvc, log),
		Dues:      service.NewDuesService(ledgerRepo, peopleRepo, accessSvc, uploader, log),
		Letters:   service.NewLetterService(ledgerRepo, peopleRepo, accessSvc, uploader, log),
		Reports:   service.NewReportService(ledgerRepo, accessSvc, dispatcher, log),
		Bulletins: service.NewBulletinService(ledgerRepo, dispatcher, log),
		WasteBank: service.NewWasteBankService(ledgerRepo, peopleRepo, accessSvc, nil, log),
		Dashboard: service.NewDashboardService(peopleRepo, ledgerRepo, log),
		Logger:    log,
	}

	router := httpapi.NewRouter(m, log)
	router.RegisterPublicRoutes(api)
	router.RegisterAuthRoutes(api)
	router.RegisterAdminRoutes(api)
	router.RegisterOpsRoutes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	// 等待仍在发送中的推送
	dispatcher.Wait()
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
}
