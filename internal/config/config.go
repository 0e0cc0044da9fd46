package config

import (
	"fmt"
	"strings"

	"github.com/llm-shell/llmshell/internal/logger"
	"github.com/spf13/viper"
)

// Config is the supervisor's process-wide settings. Values come from
// environment variables with the LLM_SHELL_ prefix (LLM_SHELL_PORT, ...),
// optionally an .env-style config file, and finally CLI flags, which win.
type Config struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	LogDir                string        `mapstructure:"log_dir"`
	DefaultRestartTimeout int           `mapstructure:"default_restart_timeout"`
	Log                   logger.Config `mapstructure:"log"`
}

const envPrefix = "LLM_SHELL"

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Host:                  "0.0.0.0",
		Port:                  8776,
		LogDir:                "logs",
		DefaultRestartTimeout: 10,
	}
}

// Load builds the effective config from defaults, an optional config file
// and the environment.
func Load(configFile string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("host", def.Host)
	v.SetDefault("port", def.Port)
	v.SetDefault("log_dir", def.LogDir)
	v.SetDefault("default_restart_timeout", def.DefaultRestartTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = def.LogDir
	}
	if cfg.DefaultRestartTimeout < 0 {
		return Config{}, fmt.Errorf("invalid default_restart_timeout %d", cfg.DefaultRestartTimeout)
	}
	return cfg, nil
}

// Addr is the host:port the HTTP server binds.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
