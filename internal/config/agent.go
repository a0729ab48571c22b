package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AgentConfig configures the desktop host agent.
type AgentConfig struct {
	RelayURL          string        `mapstructure:"relay_url" validate:"required,url"`
	UserID            string        `mapstructure:"user_id" validate:"omitempty,max=64"`
	DownloadDir       string        `mapstructure:"download_dir" validate:"required"`
	ClipboardInterval time.Duration `mapstructure:"clipboard_interval" validate:"gt=0"`
	ScreenTTL         time.Duration `mapstructure:"screen_ttl" validate:"gt=0"`
	ChunkSize         int           `mapstructure:"chunk_size" validate:"min=1024,max=262144"`
	MaxFileSize       int64         `mapstructure:"max_file_size" validate:"gte=0"`
	ICEServers        []string      `mapstructure:"ice_servers"`
	ReconnectMin      time.Duration `mapstructure:"reconnect_min" validate:"gt=0"`
	ReconnectMax      time.Duration `mapstructure:"reconnect_max" validate:"gtefield=ReconnectMin"`
	Display           string        `mapstructure:"display"`
	LogLevel          string        `mapstructure:"log_level"`
}

func agentDefaults(v *viper.Viper) {
	v.SetDefault("relay_url", "ws://127.0.0.1:5005/ws")
	v.SetDefault("user_id", "")
	v.SetDefault("download_dir", "Downloads")
	v.SetDefault("clipboard_interval", "1s")
	v.SetDefault("screen_ttl", "5s")
	v.SetDefault("chunk_size", 16384)
	v.SetDefault("max_file_size", 512<<20)
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"})
	v.SetDefault("reconnect_min", "1s")
	v.SetDefault("reconnect_max", "5s")
	v.SetDefault("display", "")
	v.SetDefault("log_level", "info")
}

// LoadAgent reads config/agent.<CONFIG_ENV>.yaml with the same precedence as Load.
func LoadAgent(flags *pflag.FlagSet) (*AgentConfig, error) {
	v, _, err := newViper("agent", flags, agentDefaults)
	if err != nil {
		return nil, err
	}
	var cfg AgentConfig
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to parse agent config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	return &cfg, nil
}

func (c *AgentConfig) Level() zerolog.Level { return parseLevel(c.LogLevel) }
