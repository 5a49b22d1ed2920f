package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	xutil "SmartEnergy/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Meter struct {
		WindowSize int    `yaml:"window_size"`
		TimeLayout string `yaml:"time_layout"`
		SimMin     int    `yaml:"sim_min"`
		SimSpan    int    `yaml:"sim_span"`
	} `yaml:"meter"`
	Analytics struct {
		SubWindow           int     `yaml:"sub_window"`
		UnitPrice           float64 `yaml:"unit_price"`
		SpikeSigma          float64 `yaml:"spike_sigma"`
		SharpRise           float64 `yaml:"sharp_rise"`
		HighThreshold       float64 `yaml:"high_threshold"`
		MinAnomalySamples   int     `yaml:"min_anomaly_samples"`
		MinPredictSamples   int     `yaml:"min_predict_samples"`
		MinRecommendSamples int     `yaml:"min_recommend_samples"`
	} `yaml:"analytics"`
	Auth struct {
		JWTSecret  string        `yaml:"jwt_secret"`
		TokenTTL   time.Duration `yaml:"token_ttl"`
		BcryptCost int           `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Users struct {
		Backend     string `yaml:"backend"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"users"`
	Alerts struct {
		Backend   string        `yaml:"backend"`
		Workers   int           `yaml:"workers"`
		QueueSize int           `yaml:"queue_size"`
		Timeout   time.Duration `yaml:"timeout"`
		Email     struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
		} `yaml:"email"`
		SMS struct {
			Enabled    bool   `yaml:"enabled"`
			AccountSID string `yaml:"account_sid"`
			AuthToken  string `yaml:"auth_token"`
			From       string `yaml:"from"`
			BaseURL    string `yaml:"base_url"`
		} `yaml:"sms"`
		Kafka struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"kafka"`
		Redis struct {
			RetryLimit int           `yaml:"retry_limit"`
			RetryDelay time.Duration `yaml:"retry_delay"`
			KeyPrefix  string        `yaml:"key_prefix"`
		} `yaml:"redis"`
	} `yaml:"alerts"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		Type           string        `yaml:"type"`
		LeaderboardTTL time.Duration `yaml:"leaderboard_ttl"`
		MemoryMaxSize  int           `yaml:"memory_max_size"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		ReadingsTopic string   `yaml:"readings_topic"`
		AlertsTopic   string   `yaml:"alerts_topic"`
		LogsTopic     string   `yaml:"logs_topic"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"clickhouse"`
	Stream struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"stream"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec"`
	} `yaml:"ratelimit"`
}

// Default returns a configuration matching the reference deployment.
func Default() *Config {
	var c Config
	c.Environment = "development"
	c.Server.Port = 5000
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.SlowThreshold = 500 * time.Millisecond
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stdout"

	c.Meter.WindowSize = 200
	c.Meter.TimeLayout = "3:04:05 PM"
	c.Meter.SimMin = 200
	c.Meter.SimSpan = 400

	c.Analytics.SubWindow = 20
	c.Analytics.UnitPrice = 7
	c.Analytics.SpikeSigma = 2
	c.Analytics.SharpRise = 150
	c.Analytics.HighThreshold = 700
	c.Analytics.MinAnomalySamples = 5
	c.Analytics.MinPredictSamples = 5
	c.Analytics.MinRecommendSamples = 10

	c.Auth.TokenTTL = 24 * time.Hour
	c.Auth.BcryptCost = 10
	c.Users.Backend = "memory"

	c.Alerts.Backend = "inline"
	c.Alerts.Workers = 2
	c.Alerts.QueueSize = 64
	c.Alerts.Timeout = 15 * time.Second
	c.Alerts.Email.Host = "smtp.gmail.com"
	c.Alerts.Email.Port = 587
	c.Alerts.SMS.BaseURL = "https://api.twilio.com/2010-04-01"
	c.Alerts.Redis.RetryLimit = 3
	c.Alerts.Redis.RetryDelay = 10 * time.Second
	c.Alerts.Redis.KeyPrefix = "smartenergy:alerts"

	c.Redis.Host = "localhost"
	c.Redis.Port = 6379
	c.Cache.Type = "memory"
	c.Cache.LeaderboardTTL = 30 * time.Second
	c.Cache.MemoryMaxSize = 1000

	c.Kafka.ReadingsTopic = "energy.readings"
	c.Kafka.AlertsTopic = "energy.alerts"
	c.Kafka.LogsTopic = "energy.logs"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Consumer.GroupID = "smartenergy"
	c.Kafka.Consumer.Workers = 1

	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "smartenergy"
	c.ClickHouse.BatchSize = 100
	c.ClickHouse.BatchTimeout = 5 * time.Second

	c.Stream.ReconnectDelay = 5 * time.Second
	c.Stream.PingInterval = 30 * time.Second
	c.Stream.MaxRPS = 5
	c.Stream.BufferSize = 500

	c.RateLimit.Capacity = 10
	c.RateLimit.RefillPerSec = 2
	return &c
}

// Load reads and parses a YAML configuration file on top of Default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	var c *Config
	if _, err := os.Stat(path); err == nil {
		c, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		c = Default()
	}

	ApplyEnv(c, os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides config values using the given lookup (os.Getenv in production).
func ApplyEnv(c *Config, getenv func(string) string) {
	c.Server.Port = xutil.ParseIntDefault(getenv("PORT"), c.Server.Port)
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("EMAIL_USER"); v != "" {
		c.Alerts.Email.User = v
		c.Alerts.Email.Enabled = true
	}
	if v := getenv("EMAIL_PASS"); v != "" {
		c.Alerts.Email.Password = v
	}
	if v := getenv("TWILIO_SID"); v != "" {
		c.Alerts.SMS.AccountSID = v
		c.Alerts.SMS.Enabled = true
	}
	if v := getenv("TWILIO_AUTH"); v != "" {
		c.Alerts.SMS.AuthToken = v
	}
	if v := getenv("TWILIO_PHONE"); v != "" {
		c.Alerts.SMS.From = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Users.Backend = "postgres"
		c.Users.PostgresDSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			c.Redis.Port = xutil.ParseIntDefault(port, c.Redis.Port)
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Meter.WindowSize < 1 {
		return fmt.Errorf("meter.window_size must be positive")
	}
	if c.Analytics.SubWindow < 1 {
		return fmt.Errorf("analytics.sub_window must be positive")
	}
	if c.Analytics.UnitPrice <= 0 {
		return fmt.Errorf("analytics.unit_price must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	switch c.Users.Backend {
	case "memory":
	case "postgres":
		if c.Users.PostgresDSN == "" {
			return fmt.Errorf("users.postgres_dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("users.backend must be 'memory' or 'postgres', got '%s'", c.Users.Backend)
	}
	if c.Alerts.Backend != "inline" && c.Alerts.Backend != "redis" {
		return fmt.Errorf("alerts.backend must be 'inline' or 'redis', got '%s'", c.Alerts.Backend)
	}
	switch c.Cache.Type {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.type must be one of memory, redis, layered, got '%s'", c.Cache.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Stream.Enabled && c.Stream.WebSocketURL == "" {
		return fmt.Errorf("stream.websocket_url is required when stream is enabled")
	}
	return nil
}

// RedisAddr returns host:port of the shared Redis instance.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// RedisRequired reports whether any component needs a Redis client.
func (c *Config) RedisRequired() bool {
	return c.Alerts.Backend == "redis" || c.Cache.Type == "redis" || c.Cache.Type == "layered"
}
