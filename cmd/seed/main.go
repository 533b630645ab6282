// seed 给所有已注册用户的活期账户充值测试资金
package main

import (
	"context"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xxz807/betikbank/internal/ledger/adapter/repo"
	"github.com/xxz807/betikbank/internal/ledger/service"
	"github.com/xxz807/betikbank/internal/platform/config"
	"github.com/xxz807/betikbank/internal/platform/database"
	"github.com/xxz807/betikbank/internal/platform/logger"
)

func main() {
	pflag.String("config", "configs/config.yaml", "path to config file")
	pflag.String("amount", "10000", "amount credited to every identity")
	pflag.Parse()

	// 命令行 > BETIKBANK_SEED_* 环境变量
	flags := viper.New()
	flags.SetEnvPrefix("BETIKBANK_SEED")
	flags.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	flags.AutomaticEnv()
	if err := flags.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatalf("Error binding flags: %s", err)
	}

	cfg, err := config.Load(flags.GetString("config"))
	if err != nil {
		log.Fatalf("Error loading config: %s", err)
	}
	amount, err := decimal.NewFromString(flags.GetString("amount"))
	if err != nil || !amount.IsPositive() {
		log.Fatalf("Invalid --amount %q", flags.GetString("amount"))
	}

	appLogger, err := logger.NewLogger(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Error creating logger: %s", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		appLogger.Fatal("Database migration failed", zap.Error(err))
	}

	ledgerSvc := service.NewLedgerService(db, service.Repositories{
		Identities:   repo.NewIdentityRepo(),
		Accounts:     repo.NewAccountRepo(),
		Transactions: repo.NewTransactionRepo(),
		Cards:        repo.NewCardRepo(),
		Investments:  repo.NewInvestmentRepo(),
	}, service.Options{
		Logger:                appLogger,
		MaxRetries:            cfg.Ledger.MaxRetries,
		MaxGenerationAttempts: cfg.Ledger.MaxGenerationAttempts,
	})

	n, err := ledgerSvc.SeedAll(context.Background(), amount)
	if err != nil {
		appLogger.Fatal("Seeding failed", zap.Int("credited", n), zap.Error(err))
	}
	appLogger.Info("Seeding finished", zap.Int("credited", n), zap.String("amount", amount.String()))
}
