package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/messaging/rabbitmq"
	"github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/validator"
	"github.com/jwalitptl/booking-api/pkg/worker"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Broker       BrokerConfig       `mapstructure:"broker"`
	Outbox       OutboxConfig       `mapstructure:"outbox"`
	Slots        SlotsConfig        `mapstructure:"slots"`
	Cache        CacheConfig        `mapstructure:"cache"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Security     SecurityConfig     `mapstructure:"security"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Log          LogConfig          `mapstructure:"log"`
	Capabilities []CapabilityPolicy `mapstructure:"capabilities"`
	Providers    []model.Provider   `mapstructure:"providers"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// Enabled is false when no host is set; the API then keeps state in memory.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

const (
	BrokerMemory   = "memory"
	BrokerRedis    = "redis"
	BrokerRabbitMQ = "rabbitmq"
)

type BrokerConfig struct {
	Driver   string         `mapstructure:"driver"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Retention     time.Duration `mapstructure:"retention"`
}

type SlotsConfig struct {
	DefaultHorizonDays int `mapstructure:"default_horizon_days"`
	MaxHorizonDays     int `mapstructure:"max_horizon_days"`
	// Seed fixes the generator's random sequence; zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`
}

type CacheConfig struct {
	ProviderTTL     time.Duration `mapstructure:"provider_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type WorkerConfig struct {
	RegenerateCron string        `mapstructure:"regenerate_cron"`
	CleanupCron    string        `mapstructure:"cleanup_cron"`
	LeaderLockKey  string        `mapstructure:"leader_lock_key"`
	LeaderLockTTL  time.Duration `mapstructure:"leader_lock_ttl"`
	HealthPort     int           `mapstructure:"health_port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// CapabilityPolicy grants role the action on resource.
type CapabilityPolicy struct {
	Role     string `mapstructure:"role"`
	Resource string `mapstructure:"resource"`
	Action   string `mapstructure:"action"`
}

// DefaultCapabilities apply when the config file names none.
var DefaultCapabilities = []CapabilityPolicy{
	{Role: "patient", Resource: "providers", Action: "view"},
	{Role: "patient", Resource: "slots", Action: "view"},
	{Role: "patient", Resource: "slots", Action: "book"},
	{Role: "doctor", Resource: "providers", Action: "view"},
	{Role: "doctor", Resource: "slots", Action: "view"},
	{Role: "admin", Resource: "providers", Action: "view"},
	{Role: "admin", Resource: "slots", Action: "view"},
	{Role: "admin", Resource: "slots", Action: "book"},
	{Role: "admin", Resource: "slots", Action: "generate"},
}

// DefaultProviders apply when the config file names none.
var DefaultProviders = []model.Provider{
	{ID: "1", Name: "Dr. Sarah Johnson", Specialty: "Cardiology", StartHour: 8, EndHour: 17},
	{ID: "2", Name: "Dr. Michael Chen", Specialty: "Neurology", StartHour: 9, EndHour: 18},
	{ID: "3", Name: "Dr. Emily Rodriguez", Specialty: "Pediatrics", StartHour: 8, EndHour: 16, WeekendEligible: true},
	{ID: "4", Name: "Dr. James Wilson", Specialty: "Orthopedics", StartHour: 7, EndHour: 18},
	{ID: "5", Name: "Dr. Lisa Thompson", Specialty: "Psychiatry", StartHour: 10, EndHour: 19},
	{ID: "6", Name: "Dr. Robert Kim", Specialty: "Ophthalmology", StartHour: 8, EndHour: 17},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)

	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("database.host", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("broker.driver", BrokerMemory)
	v.SetDefault("broker.rabbitmq.url", "")
	v.SetDefault("broker.rabbitmq.exchange", "booking.events")

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 200*time.Millisecond)
	v.SetDefault("outbox.retention", 24*time.Hour)

	v.SetDefault("slots.default_horizon_days", 30)
	v.SetDefault("slots.max_horizon_days", 90)

	v.SetDefault("cache.provider_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", 10*time.Minute)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID", "X-User-Role"})

	v.SetDefault("worker.regenerate_cron", "@daily")
	v.SetDefault("worker.cleanup_cron", "@hourly")
	v.SetDefault("worker.leader_lock_key", "slotgen:leader")
	v.SetDefault("worker.leader_lock_ttl", 10*time.Minute)
	v.SetDefault("worker.health_port", 8081)

	v.SetDefault("slots.seed", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// LoadConfig reads config.yml from the usual locations, or the file named
// by CONFIG_FILE. Environment variables override file values with dots
// replaced by underscores (DATABASE_HOST, REDIS_URL). A missing file is
// not an error.
func LoadConfig() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")           // current directory
		v.AddConfigPath("./config")    // config subdirectory
		v.AddConfigPath("/app/config") // container config directory
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Providers) == 0 {
		config.Providers = append([]model.Provider(nil), DefaultProviders...)
	}
	if len(config.Capabilities) == 0 {
		config.Capabilities = append([]CapabilityPolicy(nil), DefaultCapabilities...)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	v := validator.New()
	seen := make(map[string]bool, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if err := v.Validate(p); err != nil {
			return fmt.Errorf("invalid provider #%d: %w", i, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
	}

	switch c.Broker.Driver {
	case BrokerMemory:
	case BrokerRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("broker driver redis requires redis.url")
		}
	case BrokerRabbitMQ:
		if c.Broker.RabbitMQ.URL == "" {
			return fmt.Errorf("broker driver rabbitmq requires broker.rabbitmq.url")
		}
	default:
		return fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}

	if c.Slots.DefaultHorizonDays > c.Slots.MaxHorizonDays {
		return fmt.Errorf("slots.default_horizon_days %d exceeds slots.max_horizon_days %d",
			c.Slots.DefaultHorizonDays, c.Slots.MaxHorizonDays)
	}
	return nil
}

// Add conversion methods to convert config types
func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *RabbitMQConfig) ToBrokerConfig() rabbitmq.Config {
	return rabbitmq.Config{
		URL:      c.URL,
		Exchange: c.Exchange,
	}
}
