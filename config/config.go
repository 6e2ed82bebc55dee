package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/clientid-rotator/internal/httpserver"
	"github.com/angeloszaimis/clientid-rotator/internal/identity"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DefaultCooldownSeconds = 300
	DefaultRateLimit       = 60
	DefaultBaseURL         = "https://api-v2.soundcloud.com"
)

// legacyEnv lists the environment variable names the bot has always read,
// next to the names derived from the config keys.
var legacyEnv = map[string][]string{
	"identities.client_ids":     {"IDENTITIES_CLIENT_IDS", "SOUNDCLOUD_CLIENT_IDS"},
	"identities.client_id":      {"IDENTITIES_CLIENT_ID", "SOUNDCLOUD_CLIENT_ID"},
	"rotation.strategy":         {"ROTATION_STRATEGY", "CLIENT_ID_ROTATION_STRATEGY"},
	"rotation.cooldown_seconds": {"ROTATION_COOLDOWN_SECONDS", "CLIENT_ID_COOLDOWN_SECONDS"},
	"logging.level":             {"LOGGING_LEVEL", "LOG_LEVEL"},
	"upstream.rate_limit":       {"UPSTREAM_RATE_LIMIT", "RATE_LIMIT"},
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type IdentitiesConfig struct {
	ClientIDs []string `mapstructure:"client_ids"`
	ClientID  string   `mapstructure:"client_id"`
}

type RotationConfig struct {
	Strategy        string `mapstructure:"strategy"`
	CooldownSeconds int    `mapstructure:"cooldown_seconds"`
}

type UpstreamConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	RateLimit    int    `mapstructure:"rate_limit"`
	Timeout      string `mapstructure:"timeout"`
	MaxAttempts  int    `mapstructure:"max_attempts"`
	RetryBackoff string `mapstructure:"retry_backoff"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Identities  IdentitiesConfig  `mapstructure:"identities"`
	Rotation    RotationConfig    `mapstructure:"rotation"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// Load reads configuration from a .env file, a YAML file and the environment,
// in increasing order of precedence. configFile may be empty, in which case
// config.yaml is looked up in ./config and the working directory.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		return nil, err
	}

	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("health_check.interval", "1m")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("identities.client_ids", []string{})
	v.SetDefault("identities.client_id", "")
	v.SetDefault("rotation.strategy", string(identity.StrategyFailover))
	v.SetDefault("rotation.cooldown_seconds", DefaultCooldownSeconds)
	v.SetDefault("upstream.base_url", DefaultBaseURL)
	v.SetDefault("upstream.rate_limit", DefaultRateLimit)
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("upstream.max_attempts", 0)
	v.SetDefault("upstream.retry_backoff", "500ms")
	v.SetDefault("metrics.buffer_size", 1000)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding environment for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch level {
	case "warning":
		level = LogLevelWarn
	case "critical":
		level = LogLevelError
	}
	c.Logging.Level = level
}

// ClientIDs returns the configured client IDs in order. Entries may hold
// comma-separated lists; blanks are dropped. The single client_id setting is
// used only when the list is empty.
func (c *Config) ClientIDs() []string {
	ids := splitList(c.Identities.ClientIDs)
	if len(ids) == 0 && strings.TrimSpace(c.Identities.ClientID) != "" {
		ids = []string{strings.TrimSpace(c.Identities.ClientID)}
	}
	return ids
}

func splitList(entries []string) []string {
	var out []string
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Strategy returns the parsed rotation strategy. An invalid value is passed
// through unchanged so identity.New reports it.
func (c *Config) Strategy() identity.Strategy {
	s, err := identity.ParseStrategy(c.Rotation.Strategy)
	if err != nil {
		return identity.Strategy(c.Rotation.Strategy)
	}
	return s
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Rotation.CooldownSeconds) * time.Second
}

func (c *Config) HealthCheckInterval() time.Duration {
	return mustDuration(c.HealthCheck.Interval)
}

func (c *Config) UpstreamTimeout() time.Duration {
	return mustDuration(c.Upstream.Timeout)
}

func (c *Config) RetryBackoff() time.Duration {
	return mustDuration(c.Upstream.RetryBackoff)
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(httpserver.ValidateAddress),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Identities,
			validation.By(validateIdentities),
		),
		validation.Field(&c.Rotation,
			validation.Required,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RotationConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RotationConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Strategy,
						validation.Required,
						validation.By(validateStrategy),
					),
					validation.Field(&rc.CooldownSeconds,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Upstream,
			validation.Required,
			validation.By(func(value interface{}) error {
				uc, ok := value.(UpstreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.BaseURL,
						validation.Required,
						validation.By(validateServerURL),
					),
					validation.Field(&uc.RateLimit,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&uc.Timeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&uc.MaxAttempts,
						validation.Min(0),
					),
					validation.Field(&uc.RetryBackoff,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
	)
}

func validateIdentities(value interface{}) error {
	ic, ok := value.(IdentitiesConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an IdentitiesConfig")
	}

	ids := (&Config{Identities: ic}).ClientIDs()
	if len(ids) == 0 {
		return validation.NewError("validation_missing_client_ids",
			"no client IDs configured, set SOUNDCLOUD_CLIENT_IDS (comma-separated) or SOUNDCLOUD_CLIENT_ID")
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return validation.NewError("validation_duplicate_client_id",
				fmt.Sprintf("client ID %s is listed more than once", identity.Redact(id)))
		}
		seen[id] = true
	}

	return nil
}

func validateStrategy(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := identity.ParseStrategy(name); err != nil {
		return validation.NewError("validation_invalid_strategy", "must be one of failover, round-robin")
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}

	if d, _ := time.ParseDuration(value.(string)); d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be greater than zero")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
