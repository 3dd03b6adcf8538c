package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/joho/godotenv"
)

const (
	dispatcherWebhook = "webhook"
	dispatcherAMQP    = "amqp"

	driverPostgres = "postgres"
	driverSqlite   = "sqlite"
)

type Config struct {
	HttpPort     int    `json:"http_port"`
	DbDriver     string `json:"db_driver"`
	DbConnString string `json:"db_conn_string"`
	RedisAddr    string `json:"redis_addr"`

	Dispatcher        string `json:"dispatcher"`
	WebHookUrl        string `json:"webhook_url"`
	AmqpUrl           string `json:"amqp_url"`
	AmqpDispatchQueue string `json:"amqp_dispatch_queue"`
	AmqpReportQueue   string `json:"amqp_report_queue"`

	DispatchMaxRetry int `json:"dispatch_max_retry"`
	StorageMaxRetry  int `json:"storage_max_retry"`

	ReportTimeoutStr string        `json:"report_timeout"`
	ReportTimeout    time.Duration `json:"-"`
	SweepIntervalStr string        `json:"sweep_interval"`
	SweepInterval    time.Duration `json:"-"`
	RefundOnTimeout  bool          `json:"refund_on_timeout"`

	// BatchRetentionStr bounds how long settled batches stay in memory.
	BatchRetentionStr string        `json:"batch_retention"`
	BatchRetention    time.Duration `json:"-"`

	Costs domain.Costs `json:"costs"`
}

func defaultConfig() *Config {
	return &Config{
		HttpPort:          6060,
		DbDriver:          driverPostgres,
		Dispatcher:        dispatcherWebhook,
		AmqpDispatchQueue: "message_batches",
		AmqpReportQueue:   "delivery_reports",
		DispatchMaxRetry:  3,
		StorageMaxRetry:   3,
		BatchRetentionStr: "24h",
		Costs:             domain.DefaultCosts(),
	}
}

// ReadConfigJson reads json formatted configuration from the given file.
// Values from the environment, or from a .env file, override the file.
func ReadConfigJson(configFile string) (*Config, error) {
	content, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()

	if err = json.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	if err = applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.ReportTimeoutStr != "" {
		if cfg.ReportTimeout, err = time.ParseDuration(cfg.ReportTimeoutStr); err != nil {
			return nil, fmt.Errorf("report_timeout: %w", err)
		}
	}
	if cfg.SweepIntervalStr != "" {
		if cfg.SweepInterval, err = time.ParseDuration(cfg.SweepIntervalStr); err != nil {
			return nil, fmt.Errorf("sweep_interval: %w", err)
		}
	}
	if cfg.BatchRetention, err = time.ParseDuration(cfg.BatchRetentionStr); err != nil {
		return nil, fmt.Errorf("batch_retention: %w", err)
	}

	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	overrides := map[string]*string{
		"DB_DRIVER":      &cfg.DbDriver,
		"DB_CONN_STRING": &cfg.DbConnString,
		"REDIS_ADDR":     &cfg.RedisAddr,
		"WEBHOOK_URL":    &cfg.WebHookUrl,
		"AMQP_URL":       &cfg.AmqpUrl,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		cfg.HttpPort = port
	}
	return nil
}

func (c *Config) validate() error {
	switch c.DbDriver {
	case driverPostgres, driverSqlite:
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DbDriver)
	}
	if c.DbConnString == "" {
		return errors.New("db_conn_string is required")
	}

	switch c.Dispatcher {
	case dispatcherWebhook:
		if c.WebHookUrl == "" {
			return errors.New("webhook_url is required for the webhook dispatcher")
		}
	case dispatcherAMQP:
		if c.AmqpUrl == "" {
			return errors.New("amqp_url is required for the amqp dispatcher")
		}
	default:
		return fmt.Errorf("unsupported dispatcher %q", c.Dispatcher)
	}

	if c.Costs.PerMessage <= 0 {
		return errors.New("costs.per_message must be positive")
	}
	costs := c.Costs
	for _, v := range []int{costs.MinMessageBatch, costs.ContactInsert, costs.ContactUpdate,
		costs.CampaignInsert, costs.CampaignUpdate, costs.Reward} {
		if v < 0 {
			return errors.New("costs must not be negative")
		}
	}

	if c.BatchRetention <= 0 {
		return errors.New("batch_retention must be positive")
	}
	return nil
}

// defaultSweepInterval sweeps four times per report timeout or batch
// retention, whichever is shorter.
func defaultSweepInterval(reportTimeout, retention time.Duration) time.Duration {
	window := retention
	if reportTimeout > 0 && reportTimeout < window {
		window = reportTimeout
	}
	return max(window/4, time.Second)
}
