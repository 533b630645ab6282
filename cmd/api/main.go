package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xxz807/betikbank/internal/ledger/adapter/repo"
	"github.com/xxz807/betikbank/internal/ledger/api"
	"github.com/xxz807/betikbank/internal/ledger/service"
	"github.com/xxz807/betikbank/internal/platform/auth"
	"github.com/xxz807/betikbank/internal/platform/config"
	"github.com/xxz807/betikbank/internal/platform/database"
	"github.com/xxz807/betikbank/internal/platform/idgen"
	"github.com/xxz807/betikbank/internal/platform/logger"
	"github.com/xxz807/betikbank/internal/platform/metrics"
	"github.com/xxz807/betikbank/internal/platform/server"
)

func main() {
	configPath := pflag.String("config", "configs/config.yaml", "path to config file")
	pflag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}

	// 2. 初始化基础设施 (Infra)
	// Logger
	appLogger, err := logger.NewLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Error creating logger: %s", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// Database
	db, err := database.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		appLogger.Fatal("Database migration failed", zap.Error(err))
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metric := metrics.NewPrometheus("betikbank", reg)

	// 3. 依赖注入 (Wiring)
	creditLimit, _ := cfg.Ledger.CreditLimit() // Validate 已校验
	opts := service.Options{
		Logger:                appLogger,
		Metrics:               metric,
		IDs:                   idgen.NewDefault(),
		MaxRetries:            cfg.Ledger.MaxRetries,
		MaxGenerationAttempts: cfg.Ledger.MaxGenerationAttempts,
		DefaultCreditLimit:    &creditLimit,
	}
	repos := service.Repositories{
		Identities:   repo.NewIdentityRepo(),
		Accounts:     repo.NewAccountRepo(),
		Transactions: repo.NewTransactionRepo(),
		Cards:        repo.NewCardRepo(),
		Investments:  repo.NewInvestmentRepo(),
	}
	ledgerSvc := service.NewLedgerService(db, repos, opts)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	handler := api.NewHandler(api.Services{
		Identities: service.NewIdentityService(db, repos, opts),
		Accounts:   service.NewAccountService(db, repos, ledgerSvc),
		Ledger:     ledgerSvc,
		Cards:      service.NewCardService(db, repos, opts),
	}, issuer, appLogger)

	// 4. 初始化 Server (Gateway)
	srv := server.NewServer(appLogger, cfg.Server, issuer, metric, reg, handler)

	// 5. 启动服务
	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	// 6. 优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}
