package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	WSPath         string        `mapstructure:"ws_path" validate:"startswith=/"`
	ReadLimit      int64         `mapstructure:"read_limit" validate:"min=512"`
	PingPeriod     time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	PongWait       time.Duration `mapstructure:"pong_wait" validate:"gtfield=PingPeriod"`
	WriteWait      time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	SendBuffer     int           `mapstructure:"send_buffer" validate:"min=1"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`
	Backpressure   string        `mapstructure:"backpressure" validate:"oneof=drop disconnect"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Secret         string        `mapstructure:"secret"`
	LogLevel       string        `mapstructure:"log_level"`

	v     *viper.Viper
	watch bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func relayDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5005)
	v.SetDefault("ws_path", "/ws")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("pong_wait", "40s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("rate_limit", 200)
	v.SetDefault("rate_burst", 400)
	v.SetDefault("backpressure", "drop")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("secret", "remotedesk-dev-secret")
	v.SetDefault("log_level", "info")
}

// Load reads config/config.<CONFIG_ENV>.yaml, then environment variables
// (PORT, HOST, WS_PATH, ...), then any flags changed on the command line.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v, found, err := newViper("config", flags, relayDefaults)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRelay(v)
	if err != nil {
		return nil, err
	}
	cfg.watch = found
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("addr", cfg.Addr()).Str("ws_path", cfg.WSPath).Msg("config loaded")
	return cfg, nil
}

func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// OnChange watches the config file and calls fn with every valid reload.
func (c *Config) OnChange(fn func(*Config)) {
	if c.v == nil || !c.watch {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decodeRelay(c.v)
		if err != nil {
			log.Warn().Err(err).Str("module", "config").Str("file", e.Name).Msg("ignore invalid config reload")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Msg("config reloaded")
		fn(next)
	})
	c.v.WatchConfig()
}

// Level falls back to info for unknown names.
func (c *Config) Level() zerolog.Level {
	return parseLevel(c.LogLevel)
}

func decodeRelay(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func newViper(prefix string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, bool, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if flags != nil {
		if f := flags.Lookup("config-env"); f != nil && f.Changed {
			env = f.Value.String()
		}
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/%s.%s.yaml", prefix, env)
	v.SetConfigFile(fileName)

	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config-env" {
				return
			}
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, false, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
		return v, false, nil
	}
	log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config file")
	return v, true, nil
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
