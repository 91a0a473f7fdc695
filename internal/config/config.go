package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultInterval = 24 * time.Hour

	configPathEnv     = "PAPERRADAR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	aiAPIKeyEnv       = "AI_API_KEY"
	aiModelEnv        = "AI_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	AI            AIConfig           `yaml:"ai"`
	Summary       SummaryConfig      `yaml:"summary"`
	Notifications NotificationConfig `yaml:"notifications"`
	Feeds         []FeedConfig       `yaml:"feeds"`
}

// LoggingConfig selects console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines how often the pipeline runs. An empty interval
// means run once and exit.
type SchedulerConfig struct {
	Interval string `yaml:"interval"`
	interval time.Duration
}

// Every resolves the interval string to a duration.
func (s SchedulerConfig) Every() time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	return defaultInterval
}

// Daemon reports whether recurring runs were requested.
func (s SchedulerConfig) Daemon() bool {
	return s.Interval != ""
}

// AIConfig defines how to contact the OpenAI-compatible summarization API.
type AIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// SummaryConfig bounds the generated blurbs.
type SummaryConfig struct {
	MaxChars int `yaml:"maxChars"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// FeedConfig describes one feed endpoint. Papers marks feeds whose entries
// should get summarization blurbs; the Hugging Face daily-papers listing is
// always treated as papers regardless of the flag.
type FeedConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Papers bool   `yaml:"papers"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindInterval()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(aiAPIKeyEnv); v != "" {
		c.AI.APIKey = v
	}

	if v := os.Getenv(aiModelEnv); v != "" {
		c.AI.Model = v
	}
}

func (c *Config) bindInterval() {
	if c.Scheduler.Interval == "" {
		return
	}
	d, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil || d <= 0 {
		log.Printf("config: invalid interval %q, reverting to %s", c.Scheduler.Interval, defaultInterval)
		d = defaultInterval
	}
	c.Scheduler.interval = d
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.AI.Endpoint != "" {
		base.AI.Endpoint = override.AI.Endpoint
	}
	if override.AI.Model != "" {
		base.AI.Model = override.AI.Model
	}
	if override.AI.APIKey != "" {
		base.AI.APIKey = override.AI.APIKey
	}

	if override.Summary.MaxChars > 0 {
		base.Summary = override.Summary
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{Interval: ""},
		AI: AIConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			APIKey:   "",
		},
		Summary: SummaryConfig{MaxChars: 100},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Feeds: []FeedConfig{
			{
				Name:   "hf-daily-papers",
				URL:    "https://huggingface.co/papers",
				Papers: true,
			},
		},
	}
}
