package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"agencyhub/pkg/config"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type StorageConfig struct {
	// postgres（默认）或 memory
	Driver string `yaml:"driver"`
}

type OutboxConfig struct {
	IntervalMS int `yaml:"interval_ms"`
	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`
}

func (c OutboxConfig) Interval() time.Duration {
	if c.IntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.IntervalMS) * time.Millisecond
}

type WorkerConfig struct {
	MaxRetries      int `yaml:"max_retries"`
	DedupTTLHours   int `yaml:"dedup_ttl_hours"`
	RetryTTLHours   int `yaml:"retry_ttl_hours"`
	ShutdownSeconds int `yaml:"shutdown_seconds"`
	// 健康检查与 /metrics 监听地址
	HealthAddr string `yaml:"health_addr"`
}

func hoursOr(h int, def time.Duration) time.Duration {
	if h <= 0 {
		return def
	}
	return time.Duration(h) * time.Hour
}

func (c WorkerConfig) DedupTTL() time.Duration { return hoursOr(c.DedupTTLHours, 24*time.Hour) }

func (c WorkerConfig) RetryTTL() time.Duration { return hoursOr(c.RetryTTLHours, 24*time.Hour) }

func (c WorkerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ShutdownSeconds) * time.Second
}

type Config struct {
	Storage StorageConfig       `yaml:"storage"`
	DB      config.DBConfig     `yaml:"db"`
	MQ      config.MQConfig     `yaml:"mq"`
	Redis   config.RedisConfig  `yaml:"redis"`
	JWT     config.JWTConfig    `yaml:"jwt"`
	Server  config.ServerConfig `yaml:"server"`
	SMTP    config.SMTPConfig   `yaml:"smtp"`
	OTel    config.OTelConfig   `yaml:"otel"`
	Outbox  OutboxConfig        `yaml:"outbox"`
	Worker  WorkerConfig        `yaml:"worker"`
}

// Load 使用统一配置中心（CONFIG_ENV / CONFIG_DIR），失败直接退出
func Load() *Config {
	cfg, err := LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func LoadFrom(env, dir string) (*Config, error) {
	var cfg Config
	if err := config.Decode(env, dir, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSMTPFromEnv(&cfg.SMTP)
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverPostgres
	}
	if cfg.Storage.Driver != DriverPostgres && cfg.Storage.Driver != DriverMemory {
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":5000"
	}
	if cfg.Worker.HealthAddr == "" {
		cfg.Worker.HealthAddr = ":5001"
	}
	return &cfg, nil
}
