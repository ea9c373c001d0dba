package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string `yaml:"log-level" env:"TTT_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log-format" env:"TTT_LOG_FORMAT" env-default:"text" validate:"oneof=text json"`
	HTTPAddr  string `yaml:"http-addr" env:"TTT_HTTP_ADDR" env-default:":8080" validate:"required"`

	Opponent Opponent `yaml:"opponent"`
	Sessions Sessions `yaml:"sessions"`

	// OTLPEndpoint is the host:port of an OTLP gRPC collector; empty disables export.
	OTLPEndpoint string `yaml:"otlp-endpoint" env:"TTT_OTLP_ENDPOINT"`
}

type Opponent struct {
	// Delay before the computer's move is applied.
	Delay time.Duration `yaml:"delay" env:"TTT_OPPONENT_DELAY" env-default:"500ms" validate:"gte=0"`
}

type Sessions struct {
	Heartbeat     time.Duration `yaml:"heartbeat" env:"TTT_HEARTBEAT" env-default:"15s" validate:"gt=0"`
	IdleTimeout   time.Duration `yaml:"idle-timeout" env:"TTT_IDLE_TIMEOUT" env-default:"30m" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"TTT_SWEEP_INTERVAL" env-default:"1m" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the YAML file at path, then the environment. A missing file is
// not an error: defaults and environment variables are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			err = cleanenv.ReadConfig(path, cfg)
		} else if errors.Is(statErr, fs.ErrNotExist) {
			err = cleanenv.ReadEnv(cfg)
		} else {
			return nil, fmt.Errorf("stat config file: %w", statErr)
		}
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
