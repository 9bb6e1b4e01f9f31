package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/antoniostano/railbot/internal/lfg"
)

// Config contains all runtime settings for the rail bot.
type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN"`
	CommandPrefix string `env:"BOT_COMMAND_PREFIX" envDefault:"!"`

	BindAddr         string        `env:"APP_BIND_ADDR"         envDefault:":8080"`
	LivenessMessage  string        `env:"APP_LIVENESS_MESSAGE"  envDefault:"🚂 Rizz Rail Bot is Online and Awake!"`
	OpsBindAddr      string        `env:"APP_OPS_BIND_ADDR"`
	OpsFeedInterval  time.Duration `env:"APP_OPS_FEED_INTERVAL" envDefault:"5s"`
	AllowAnyOrigin   bool          `env:"APP_ALLOW_ANY_ORIGIN"  envDefault:"false"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"railbot"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT"  envDefault:"15s"`
	RestartDelay     time.Duration `env:"APP_RESTART_DELAY"     envDefault:"5s"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	SessionTTL    time.Duration `env:"LFG_SESSION_TTL"    envDefault:"1h"`
	SweepInterval time.Duration `env:"LFG_SWEEP_INTERVAL" envDefault:"5m"`
	MaxCapacity   int           `env:"LFG_MAX_CAPACITY"   envDefault:"40"`
	AllowLeave    bool          `env:"LFG_ALLOW_LEAVE"    envDefault:"true"`

	RailsTeamCooldown   time.Duration `env:"COOLDOWN_RAILSTEAM"   envDefault:"30s"`
	LFGCooldown         time.Duration `env:"COOLDOWN_LFG"         envDefault:"5m"`
	RailsUpdateCooldown time.Duration `env:"COOLDOWN_RAILSUPDATE" envDefault:"60s"`

	DatabaseURL string `env:"DATABASE_URL"`
}

// Load reads environment variables, applies defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DiscordToken = strings.TrimSpace(cfg.DiscordToken)
	cfg.CommandPrefix = strings.TrimSpace(cfg.CommandPrefix)
	cfg.OpsBindAddr = strings.TrimSpace(cfg.OpsBindAddr)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("LFG_SESSION_TTL must be at least 1m")
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("LFG_SWEEP_INTERVAL must be at least 1s")
	}
	if c.MaxCapacity < 1 || c.MaxCapacity > lfg.DefaultMaxCapacity {
		return fmt.Errorf("LFG_MAX_CAPACITY must be between 1 and %d", lfg.DefaultMaxCapacity)
	}
	if c.RestartDelay <= 0 {
		return fmt.Errorf("APP_RESTART_DELAY must be positive")
	}
	if c.OpsFeedInterval <= 0 {
		return fmt.Errorf("APP_OPS_FEED_INTERVAL must be positive")
	}
	if c.RailsTeamCooldown < 0 || c.LFGCooldown < 0 || c.RailsUpdateCooldown < 0 {
		return fmt.Errorf("COOLDOWN_* values must be >= 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT %q is not one of text, json", c.LogFormat)
	}
	return nil
}
