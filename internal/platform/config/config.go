package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置
// 来源优先级：环境变量 (BETIKBANK_*) > config.yaml > 默认值
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug | release
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres | sqlite
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"` // silent | error | warn | info
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LedgerConfig struct {
	MaxRetries            int    `mapstructure:"max_retries"`
	MaxGenerationAttempts int    `mapstructure:"max_generation_attempts"`
	DefaultCreditLimit    string `mapstructure:"default_credit_limit"`
}

// CreditLimit 解析默认信用额度
func (l LedgerConfig) CreditLimit() (decimal.Decimal, error) {
	return decimal.NewFromString(l.DefaultCreditLimit)
}

// SetDefaults 注册默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=betikbank port=5432 sslmode=disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("auth.jwt_secret", "betikbank-secret-key-change-in-production")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.max_generation_attempts", 32)
	v.SetDefault("ledger.default_credit_limit", "10000")
}

// Load 读取配置文件 path (可为空)，并叠加 .env 与环境变量
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("BETIKBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Ledger.MaxRetries <= 0 || c.Ledger.MaxGenerationAttempts <= 0 {
		return errors.New("ledger retry limits must be positive")
	}
	limit, err := c.Ledger.CreditLimit()
	if err != nil {
		return fmt.Errorf("ledger.default_credit_limit: %w", err)
	}
	if limit.IsNegative() || !limit.Equal(limit.Truncate(4)) {
		return fmt.Errorf("ledger.default_credit_limit %s: must be >= 0 with at most 4 decimal places", limit)
	}
	return nil
}
