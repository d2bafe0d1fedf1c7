package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
)

// Config holds all configuration for medreminder
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Form     FormConfig     `mapstructure:"form"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	SessionTTL   int    `mapstructure:"session_ttl"` // minutes an idle form session is kept
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// SecurityConfig holds token settings
type SecurityConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	TokenTTL     int      `mapstructure:"token_ttl"` // hours
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// FormConfig holds entry screen settings
type FormConfig struct {
	InteractionModel string `mapstructure:"interaction_model"`
	CatalogPath      string `mapstructure:"catalog_path"`
	WatchCatalog     bool   `mapstructure:"watch_catalog"`
	Timezone         string `mapstructure:"timezone"`
}

// NotifyConfig holds the notification capability settings
type NotifyConfig struct {
	PermissionGranted bool           `mapstructure:"permission_granted"`
	Tick              string         `mapstructure:"tick"`
	BatchSize         int            `mapstructure:"batch_size"`
	Deliverers        []string       `mapstructure:"deliverers"`
	Webhook           WebhookConfig  `mapstructure:"webhook"`
	Telegram          TelegramConfig `mapstructure:"telegram"`
	Discord           DiscordConfig  `mapstructure:"discord"`
}

// WebhookConfig holds the HTTP deliverer settings
type WebhookConfig struct {
	URL         string  `mapstructure:"url"`
	Timeout     int     `mapstructure:"timeout"` // seconds
	RatePerSec  float64 `mapstructure:"rate_per_sec"`
	Burst       int     `mapstructure:"burst"`
	MaxFailures uint32  `mapstructure:"max_failures"`
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// DiscordConfig holds Discord bot settings
type DiscordConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console or json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "medreminder.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(dataDir, "medreminder.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrConfigInvalid.Code, "failed to read config")
		}
	} else if explicit {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigNotFound.Code, "config file "+configPath)
	}

	// MEDREMINDER_SERVER_PORT, MEDREMINDER_NOTIFY_TICK, etc.
	v.SetEnvPrefix("MEDREMINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets and list values that AutomaticEnv does not reach through Unmarshal
	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.session_ttl", 30)

	v.SetDefault("security.token_ttl", 24*7)
	v.SetDefault("security.allow_origins", []string{"*"})

	v.SetDefault("form.interaction_model", "staged")
	v.SetDefault("form.watch_catalog", true)

	v.SetDefault("notify.permission_granted", true)
	v.SetDefault("notify.tick", "@every 1m")
	v.SetDefault("notify.batch_size", 100)
	v.SetDefault("notify.deliverers", []string{"log"})
	v.SetDefault("notify.webhook.timeout", 10)
	v.SetDefault("notify.webhook.rate_per_sec", 5.0)
	v.SetDefault("notify.webhook.burst", 5)
	v.SetDefault("notify.webhook.max_failures", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medreminder")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "medreminder")
}

func loadEnvOverrides(cfg *Config) {
	if secret := resolveEnv("MEDREMINDER_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}

	if tok := resolveEnv("MEDREMINDER_NOTIFY_TELEGRAM_BOT_TOKEN"); tok != "" {
		cfg.Notify.Telegram.BotToken = tok
	}
	if chat := os.Getenv("MEDREMINDER_NOTIFY_TELEGRAM_CHAT_ID"); chat != "" {
		if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = id
		}
	}
	if tok := resolveEnv("MEDREMINDER_NOTIFY_DISCORD_TOKEN"); tok != "" {
		cfg.Notify.Discord.Token = tok
	}
	if url := resolveEnv("MEDREMINDER_NOTIFY_WEBHOOK_URL"); url != "" {
		cfg.Notify.Webhook.URL = url
	}

	if list := os.Getenv("MEDREMINDER_NOTIFY_DELIVERERS"); list != "" {
		cfg.Notify.Deliverers = splitList(list)
	}
	if list := os.Getenv("MEDREMINDER_SECURITY_ALLOW_ORIGINS"); list != "" {
		cfg.Security.AllowOrigins = splitList(list)
	}
}

func validate(cfg *Config) error {
	invalid := func(msg string) error {
		return apperrors.New(apperrors.ErrConfigInvalid.Code, msg)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return invalid(fmt.Sprintf("server.port %d out of range", cfg.Server.Port))
	}
	if _, err := medform.ParseInteractionModel(cfg.Form.InteractionModel); err != nil {
		return invalid("form.interaction_model: " + err.Error())
	}
	if _, err := cfg.Location(); err != nil {
		return invalid("form.timezone: " + err.Error())
	}
	if strings.TrimSpace(cfg.Notify.Tick) == "" {
		return invalid("notify.tick is required")
	}

	for _, d := range cfg.Notify.Deliverers {
		switch d {
		case "log":
		case "webhook":
			if cfg.Notify.Webhook.URL == "" {
				return invalid("notify.webhook.url is required for the webhook deliverer")
			}
		case "telegram":
			if cfg.Notify.Telegram.BotToken == "" || cfg.Notify.Telegram.ChatID == 0 {
				return invalid("notify.telegram.bot_token and chat_id are required for the telegram deliverer")
			}
		case "discord":
			if cfg.Notify.Discord.Token == "" || cfg.Notify.Discord.ChannelID == "" {
				return invalid("notify.discord.token and channel_id are required for the discord deliverer")
			}
		default:
			return invalid("unknown deliverer " + d)
		}
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = generateSecret(32)
	}

	return nil
}

func generateSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// InteractionModel returns the parsed picker interaction model.
func (c *Config) InteractionModel() medform.InteractionModel {
	m, _ := medform.ParseInteractionModel(c.Form.InteractionModel)
	return m
}

// Location is the clock the form and the dispatcher use. Empty means local.
func (c *Config) Location() (*time.Location, error) {
	if c.Form.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Form.Timezone)
}

// TokenTTL returns the lifetime of issued tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.TokenTTL) * time.Hour
}

// ListenAddr is the address the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
