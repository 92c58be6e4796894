package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	MNI        MNIConfig        `yaml:"mni" mapstructure:"mni"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// MNIConfig configures the upstream MNI SOAP service.
type MNIConfig struct {
	Endpoint           string  `yaml:"endpoint" mapstructure:"endpoint"`
	Consumer           string  `yaml:"consumer" mapstructure:"consumer"`
	Password           string  `yaml:"password" mapstructure:"password"`
	ConnectTimeoutSecs int     `yaml:"connect_timeout_secs" mapstructure:"connect_timeout_secs"`
	QueryTimeoutSecs   int     `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	BatchTimeoutSecs   int     `yaml:"batch_timeout_secs" mapstructure:"batch_timeout_secs"`
	RequestsPerSec     float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	ChunkSize          int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxParallel        int     `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// ConnectTimeout returns the configured connect timeout as a duration.
func (c MNIConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecs) * time.Second
}

// QueryTimeout returns the configured query timeout as a duration.
func (c MNIConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// BatchTimeout returns the configured batch timeout as a duration.
func (c MNIConfig) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSecs) * time.Second
}

// ResilienceConfig tunes retry and circuit breaking for upstream calls.
type ResilienceConfig struct {
	Query   RetrySettings   `yaml:"query" mapstructure:"query"`
	Batch   RetrySettings   `yaml:"batch" mapstructure:"batch"`
	Circuit CircuitSettings `yaml:"circuit" mapstructure:"circuit"`
}

// RetrySettings tunes one retry profile.
type RetrySettings struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitSettings tunes the per-service circuit breaker.
type CircuitSettings struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// RulesConfig points at an optional rule-set override file; when empty the
// embedded defaults are used.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ClassifierConfig configures the optional LLM disambiguation backend.
type ClassifierConfig struct {
	Backend   string `yaml:"backend" mapstructure:"backend"` // anthropic, gemini or empty
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig configures the audit/cache database backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres or empty
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MaxConns      int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns      int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CacheTTL returns the case cache TTL as a duration.
func (c StoreConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CASEINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("mni.connect_timeout_secs", 10)
	v.SetDefault("mni.query_timeout_secs", 30)
	v.SetDefault("mni.batch_timeout_secs", 120)
	v.SetDefault("mni.requests_per_sec", 5)
	v.SetDefault("mni.chunk_size", 4)
	v.SetDefault("mni.max_parallel", 4)
	v.SetDefault("resilience.query.max_attempts", 3)
	v.SetDefault("resilience.query.initial_backoff_ms", 500)
	v.SetDefault("resilience.query.max_backoff_ms", 30000)
	v.SetDefault("resilience.query.multiplier", 2.0)
	v.SetDefault("resilience.query.jitter_fraction", 0.25)
	v.SetDefault("resilience.batch.max_attempts", 4)
	v.SetDefault("resilience.batch.initial_backoff_ms", 2000)
	v.SetDefault("resilience.batch.max_backoff_ms", 60000)
	v.SetDefault("resilience.batch.multiplier", 2.0)
	v.SetDefault("resilience.batch.jitter_fraction", 0.25)
	v.SetDefault("resilience.circuit.failure_threshold", 5)
	v.SetDefault("resilience.circuit.cooldown_secs", 30)
	v.SetDefault("classifier.max_tokens", 256)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "caseintel.db")
	v.SetDefault("store.cache_ttl_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate reports configuration errors that would only surface deep inside
// a fetch otherwise.
func (c *Config) Validate() error {
	if c.MNI.Endpoint == "" {
		return eris.New("config: mni.endpoint is required")
	}
	if c.MNI.Consumer == "" || c.MNI.Password == "" {
		return eris.New("config: mni.consumer and mni.password are required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
