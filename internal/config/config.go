package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Feed     Feed     `yaml:"feed"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"eventfeed"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port        string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	MetricsPort string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9091"`
}

// Feed holds the polling knobs shared by cursor consumers and the claim
// worker. BackoffTableLength caps the exponential idle window at
// tick_interval * 2^(length-1).
type Feed struct {
	BatchSize          int           `yaml:"batch_size" env:"FEED_BATCH_SIZE" env-default:"100"`
	TickInterval       time.Duration `yaml:"tick_interval" env:"FEED_TICK_INTERVAL" env-default:"1s"`
	BackoffTableLength int           `yaml:"backoff_table_length" env:"FEED_BACKOFF_TABLE_LENGTH" env-default:"10"`
	SweepLimit         int           `yaml:"sweep_limit" env:"FEED_SWEEP_LIMIT" env-default:"16"`
	NotifyChannel      string        `yaml:"notify_channel" env:"FEED_NOTIFY_CHANNEL" env-default:"eventfeed"`
	Consumers          []string      `yaml:"consumers" env:"FEED_CONSUMERS" env-default:"order-audit,kafka-mirror"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"eventfeed"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"eventfeed-mirror"`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
