package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"FinScan/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. FINSCAN_KAFKA_BROKERS.
const EnvPrefix = "FINSCAN"

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Scanner     ScannerConfig    `yaml:"scanner"`
	Provider    ProviderConfig   `yaml:"provider"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	WebSocket   WebSocketConfig  `yaml:"websocket"`
	Schedules   []ScheduleConfig `yaml:"schedules" validate:"dive"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       struct {
		// Scan requests per client: burst capacity and tokens per second.
		Capacity     float64 `yaml:"capacity" default:"5"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.2"`
	} `yaml:"rate_limit"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

// UniverseEntry is one symbol of the reference universe.
type UniverseEntry struct {
	Symbol string `yaml:"symbol" validate:"required"`
	Sector string `yaml:"sector"`
}

type ScannerConfig struct {
	Scoring       string          `yaml:"scoring" default:"weighted" validate:"oneof=weighted equal"`
	NotifyTimeout time.Duration   `yaml:"notify_timeout" default:"2s"`
	Universe      []UniverseEntry `yaml:"universe" validate:"dive"`
}

type ProviderConfig struct {
	// Type selects quotes and fundamentals: "http" or "memory".
	Type    string        `yaml:"type" default:"http" validate:"oneof=http memory"`
	BaseURL string        `yaml:"base_url" validate:"required_if=Type http"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
	// Fixtures is a YAML file of per-symbol data served by the memory provider.
	Fixtures string `yaml:"fixtures" validate:"required_if=Type memory"`
	// History selects the candle source: "provider", "alpaca" or "clickhouse".
	History string `yaml:"history" default:"provider" validate:"oneof=provider alpaca clickhouse"`
	Alpaca  struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		DataURL   string `yaml:"data_url"`
		Feed      string `yaml:"feed" default:"iex"`
	} `yaml:"alpaca"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
	RequiredAcks int      `yaml:"required_acks" default:"1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Topics       struct {
		Results   string `yaml:"results" default:"finscan.results"`
		Completed string `yaml:"completed" default:"finscan.scans"`
		Alerts    string `yaml:"alerts" default:"finscan.alerts"`
		Requests  string `yaml:"requests" default:"finscan.scan-requests"`
	} `yaml:"topics"`
	Producer struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		GroupID    string        `yaml:"group_id" default:"finscan-scanner"`
		Workers    int           `yaml:"workers" default:"1"`
		BufferSize int           `yaml:"buffer_size" default:"16"`
		RetryMax   int           `yaml:"retry_max" default:"2"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"finscan.scan-requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"finscan"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Host      string        `yaml:"host" default:"localhost"`
	Port      int           `yaml:"port" default:"6379"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"pool_size" default:"10"`
	Prefix    string        `yaml:"prefix" default:"finscan"`
	LatestTTL time.Duration `yaml:"latest_ttl" default:"24h"`
}

type WebSocketConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path" default:"/ws/scans"`
	SendBuffer int    `yaml:"send_buffer" default:"256"`
}

// ScheduleConfig runs Request on a cron spec (standard five fields or a
// descriptor such as "@every 15m").
type ScheduleConfig struct {
	Name    string             `yaml:"name" validate:"required"`
	Cron    string             `yaml:"cron" validate:"required"`
	Request models.ScanRequest `yaml:"request"`
}

// envOverrides lists the settings that may come from the environment.
// No defaults here: an unset variable leaves the file value alone.
type envOverrides struct {
	Environment        string   `envconfig:"ENVIRONMENT"`
	LogLevel           string   `envconfig:"LOG_LEVEL"`
	ServerPort         int      `envconfig:"SERVER_PORT"`
	ProviderType       string   `envconfig:"PROVIDER_TYPE"`
	ProviderBaseURL    string   `envconfig:"PROVIDER_BASE_URL"`
	HistorySource      string   `envconfig:"HISTORY_SOURCE"`
	AlpacaAPIKey       string   `envconfig:"ALPACA_API_KEY"`
	AlpacaAPISecret    string   `envconfig:"ALPACA_API_SECRET"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	ClickHouseHost     string   `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePassword string   `envconfig:"CLICKHOUSE_PASSWORD"`
	RedisHost          string   `envconfig:"REDIS_HOST"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
}

var validate = validator.New()

// Load reads a YAML file, fills defaults and validates. An empty path yields
// the defaults alone.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads the file and applies FINSCAN_* overrides from the
// environment and from a .env file when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := read(path)
	if err != nil {
		return nil, err
	}

	var ov envOverrides
	if err := envconfig.Process(EnvPrefix, &ov); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	c.apply(ov)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	for i := range c.Schedules {
		if err := defaults.Set(&c.Schedules[i].Request); err != nil {
			return nil, fmt.Errorf("schedule %q defaults: %w", c.Schedules[i].Name, err)
		}
	}
	return &c, nil
}

func (c *Config) apply(ov envOverrides) {
	setString(&c.Environment, ov.Environment)
	setString(&c.Log.Level, ov.LogLevel)
	if ov.ServerPort > 0 {
		c.Server.Port = ov.ServerPort
	}
	setString(&c.Provider.Type, ov.ProviderType)
	setString(&c.Provider.BaseURL, ov.ProviderBaseURL)
	setString(&c.Provider.History, ov.HistorySource)
	setString(&c.Provider.Alpaca.APIKey, ov.AlpacaAPIKey)
	setString(&c.Provider.Alpaca.APISecret, ov.AlpacaAPISecret)
	if len(ov.KafkaBrokers) > 0 {
		c.Kafka.Brokers = ov.KafkaBrokers
	}
	setString(&c.ClickHouse.Host, ov.ClickHouseHost)
	setString(&c.ClickHouse.Password, ov.ClickHousePassword)
	setString(&c.Redis.Host, ov.RedisHost)
	setString(&c.Redis.Password, ov.RedisPassword)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// Validate checks field constraints and the cross-section rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Provider.History == "clickhouse" && !c.ClickHouse.Enabled {
		return errors.New("provider.history=clickhouse requires clickhouse.enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return errors.New("kafka.consumer.enabled requires kafka.enabled")
	}
	seen := make(map[string]struct{}, len(c.Schedules))
	for _, s := range c.Schedules {
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate schedule name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
