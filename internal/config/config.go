package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode" validate:"oneof=release debug"`

	APIID       int    `mapstructure:"api_id" validate:"required"`
	APIHash     string `mapstructure:"api_hash" validate:"required"`
	SessionName string `mapstructure:"session_name" validate:"required"`
	ChatID      int64  `mapstructure:"chat_id" validate:"required"`
	AudioURL    string `mapstructure:"audio_url" validate:"required"`
	GatewayURL  string `mapstructure:"gateway_url" validate:"required,url"`

	Retries         int           `mapstructure:"retries" validate:"min=1"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout" validate:"min=0"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	HoldDuration    time.Duration `mapstructure:"hold_duration" validate:"min=0"`
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout" validate:"min=0"`

	ICEServers []string `mapstructure:"ice_servers"`
	StatusAddr string   `mapstructure:"status_addr"`
	LogLevel   string   `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat  string   `mapstructure:"log_format" validate:"oneof=console json"`
}

// Flags declares the command line surface; every flag maps onto a config key.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("groupcall", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.Int("api_id", 0, "API id")
	fs.String("api_hash", "", "API hash")
	fs.String("session_name", "default_session", "session name")
	fs.Int64("chat_id", 0, "target group chat id")
	fs.String("audio_url", "", "media source (path, file:// or http(s) URL of an Ogg/Opus stream)")
	fs.String("gateway_url", "ws://127.0.0.1:8765/rpc", "messaging gateway websocket URL")
	fs.Int("retries", 10, "join attempts")
	fs.Duration("attempt_timeout", 15*time.Second, "timeout of a single join attempt (0 disables)")
	fs.Duration("retry_delay", 5*time.Second, "delay between join attempts")
	fs.Duration("hold_duration", 10*time.Second, "how long to keep the stream running")
	fs.Duration("teardown_timeout", 10*time.Second, "bound on teardown network calls")
	fs.StringSlice("ice_servers", []string{"stun:stun.l.google.com:19302"}, "ICE server URLs")
	fs.String("status_addr", "", "listen address of the status server (empty disables)")
	fs.String("log_level", "info", "log level")
	fs.String("log_format", "console", "log format: console or json")
	fs.String("mode", "release", "status server mode: release or debug")
	return fs
}

// Load resolves flags over environment (TG_*) over config file over defaults.
func Load(args []string) (*Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	fileName, _ := fs.GetString("config")
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Debug().Str("module", "config").Str("file", fileName).Msg("config file not found, using env and flags")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
