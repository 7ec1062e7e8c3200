// Package config reads the oracle's settings from ORACLE_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
)

// Prefix is prepended to every variable name.
const Prefix = "ORACLE_"

// #region config
// Config holds settings shared by every oracle command.
type Config struct {
	DataDir     string `env:"DATA_DIR" envDefault:"data" validate:"required"`
	Canonical   string `env:"CANONICAL_SOURCE" envDefault:"canonical" validate:"required"`
	MappingPath string `env:"MAPPING_PATH"`
	Method      string `env:"METHOD" envDefault:"fire" validate:"required"`
	Source      string `env:"SOURCE"`
	DBPath      string `env:"DB"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=json console"`

	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080" validate:"omitempty,hostname_port"`
	GRPCAddr     string `env:"GRPC_ADDR" envDefault:":9090" validate:"omitempty,hostname_port"`
	WatchSources bool   `env:"WATCH_SOURCES" envDefault:"true"`

	DevicePath string `env:"URANDOM_PATH" envDefault:"/dev/urandom" validate:"required"`
	Remote     Remote `envPrefix:"REMOTE_"`
}

// Remote configures the air method.
type Remote struct {
	URL            string        `env:"URL" validate:"required,url"`
	QuotaURL       string        `env:"QUOTA_URL" validate:"omitempty,url"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"5s" validate:"gt=0"`
	BreakerTimeout time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	MaxFailures    uint32        `env:"MAX_FAILURES" envDefault:"3" validate:"min=1"`
}

// #endregion config

// #region load
// Default returns the settings used when no variable is set.
func Default() Config {
	cfg, _ := LoadFrom(map[string]string{})
	return cfg
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads settings from environ instead of the process environment.
// A nil map means the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	cfg := Config{
		Remote: Remote{URL: casting.DefaultRemoteURL, QuotaURL: casting.DefaultRemoteQuotaURL},
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", faults.ErrInvalidArgument, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region validate
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that Method names a known method.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: config: %v", faults.ErrInvalidArgument, err)
	}
	if _, err := casting.ParseMethod(c.Method); err != nil {
		return fmt.Errorf("config %sMETHOD: %w", Prefix, err)
	}
	return nil
}

// #endregion validate

// #region options
// DefaultMethod is the parsed Method setting.
func (c Config) DefaultMethod() casting.Method {
	m, err := casting.ParseMethod(c.Method)
	if err != nil {
		return casting.MethodFire
	}
	return m
}

// CastingOptions builds the strategy registry options.
func (c Config) CastingOptions(logger *zap.Logger) casting.Options {
	return casting.Options{
		DevicePath: c.DevicePath,
		Remote: casting.RemoteConfig{
			URL:            c.Remote.URL,
			QuotaURL:       c.Remote.QuotaURL,
			Timeout:        c.Remote.Timeout,
			BreakerTimeout: c.Remote.BreakerTimeout,
			MaxFailures:    c.Remote.MaxFailures,
		},
		Logger: logger,
	}
}

// LoaderOptions builds the interpretation loader options.
func (c Config) LoaderOptions(logger *zap.Logger) loader.Options {
	return loader.Options{
		Root:        c.DataDir,
		Canonical:   c.Canonical,
		MappingPath: c.MappingPath,
		Logger:      logger,
	}
}

// #endregion options
