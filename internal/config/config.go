// Package config loads the bot configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"cryptoindex/internal/finance"
	"cryptoindex/internal/indexer"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken     string        `yaml:"bot_token"`
		WebhookURL   string        `yaml:"webhook_url"`
		AllowedChats []int64       `yaml:"allowed_chats"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`
	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
	Server struct {
		Port           string        `yaml:"port"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Provider struct {
		Name            string        `yaml:"name"`
		CoinGeckoURL    string        `yaml:"coingecko_url"`
		CoinGeckoAPIKey string        `yaml:"coingecko_api_key"`
		FetchTimeout    time.Duration `yaml:"fetch_timeout"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		OutlierK        float64       `yaml:"outlier_k"`
	} `yaml:"provider"`
	Index struct {
		Assets       []finance.Asset    `yaml:"assets"`
		Quote        string             `yaml:"quote"`
		Days         int                `yaml:"days"`
		Policy       string             `yaml:"policy"`
		AnnualRate   *float64           `yaml:"annual_rate"`
		NormalizeTo  *float64           `yaml:"normalize_to"`
		Weights      map[string]float64 `yaml:"weights"`
		AllowPartial bool               `yaml:"allow_partial"`
	} `yaml:"index"`
	Chart struct {
		Width    int           `yaml:"width"`
		Height   int           `yaml:"height"`
		Timezone string        `yaml:"timezone"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"chart"`
	Schedule struct {
		ReportCron   string `yaml:"report_cron"`
		ReportChatID int64  `yaml:"report_chat_id"`
		PurgeCron    string `yaml:"purge_cron"`
	} `yaml:"schedule"`
	Proxy    string `yaml:"proxy"`
	LogLevel string `yaml:"log_level"`
}

// environment lists the variables that override the file.
type environment struct {
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookPublicURL string  `envconfig:"WEBHOOK_PUBLIC_URL"`
	AllowedChats     []int64 `envconfig:"TELEGRAM_ALLOWED_CHATS"`
	OpenAIKey        string  `envconfig:"OPENAI_API_KEY"`
	Port             string  `envconfig:"PORT"`
	DBPath           string  `envconfig:"DB_PATH"`
	PriceProvider    string  `envconfig:"PRICE_PROVIDER"`
	CoinGeckoAPIKey  string  `envconfig:"COINGECKO_API_KEY"`
	Proxy            string  `envconfig:"HTTPS_PROXY"`
	LogLevel         string  `envconfig:"LOG_LEVEL"`
	ReportCron       string  `envconfig:"REPORT_CRON"`
	ReportChatID     int64   `envconfig:"REPORT_CHAT_ID"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults, and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns CONFIG_PATH or DefaultPath.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

func (c *Config) applyEnv(env environment) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Telegram.BotToken, env.TelegramBotToken)
	set(&c.Telegram.WebhookURL, env.WebhookPublicURL)
	set(&c.OpenAI.APIKey, env.OpenAIKey)
	set(&c.Server.Port, env.Port)
	set(&c.Database.SQLitePath, env.DBPath)
	set(&c.Provider.Name, env.PriceProvider)
	set(&c.Provider.CoinGeckoAPIKey, env.CoinGeckoAPIKey)
	set(&c.Proxy, env.Proxy)
	set(&c.LogLevel, env.LogLevel)
	set(&c.Schedule.ReportCron, env.ReportCron)
	if len(env.AllowedChats) > 0 {
		c.Telegram.AllowedChats = env.AllowedChats
	}
	if env.ReportChatID != 0 {
		c.Schedule.ReportChatID = env.ReportChatID
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "9095"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = 60 * time.Second
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/cryptoindex.db"
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "coingecko"
	}
	if c.Provider.FetchTimeout == 0 {
		c.Provider.FetchTimeout = 30 * time.Second
	}
	if len(c.Index.Assets) == 0 {
		c.Index.Assets = DefaultAssets()
	}
	if c.Index.Quote == "" {
		c.Index.Quote = "usd"
	}
	c.Index.Quote = strings.ToLower(c.Index.Quote)
	if c.Index.Days == 0 {
		c.Index.Days = 30
	}
	if c.Index.Policy == "" {
		c.Index.Policy = finance.PolicyCalendarDay.String()
	}
	if c.Index.AnnualRate == nil {
		rate := 0.15
		c.Index.AnnualRate = &rate
	}
	if c.Index.NormalizeTo == nil {
		target := 100.0
		c.Index.NormalizeTo = &target
	}
	if len(c.Index.Weights) == 0 {
		c.Index.Weights = map[string]float64{"Bitcoin": 65, "Ethereum": 30, "Litecoin": 5}
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = 1000
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 600
	}
	if c.Chart.Timezone == "" {
		c.Chart.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
}

// DefaultAssets is the asset universe used when none is configured.
func DefaultAssets() []finance.Asset {
	return []finance.Asset{
		{ID: "Bitcoin", CoinGeckoID: "bitcoin", YahooSymbol: "BTC", Aliases: []string{"BTC", "XBT"}},
		{ID: "Ethereum", CoinGeckoID: "ethereum", YahooSymbol: "ETH", Aliases: []string{"ETH"}},
		{ID: "Litecoin", CoinGeckoID: "litecoin", YahooSymbol: "LTC", Aliases: []string{"LTC"}},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "coingecko", "yahoo", "static":
	default:
		return fmt.Errorf("provider.name %q must be coingecko, yahoo or static", c.Provider.Name)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be debug, info, warn or error", c.LogLevel)
	}
	if c.Telegram.BotToken != "" && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("telegram.webhook_url is required when a bot token is set")
	}
	if c.Schedule.ReportCron != "" {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("schedule.report_cron needs a telegram bot token")
		}
		if c.Schedule.ReportChatID == 0 {
			return fmt.Errorf("schedule.report_chat_id is required with schedule.report_cron")
		}
	}
	if c.Chart.Width < 0 || c.Chart.Height < 0 {
		return fmt.Errorf("chart size %dx%d must not be negative", c.Chart.Width, c.Chart.Height)
	}

	seen := map[string]string{}
	for _, a := range c.Index.Assets {
		if a.ID == "" {
			return fmt.Errorf("index.assets: asset without id")
		}
		for _, name := range append([]string{a.ID}, a.Aliases...) {
			key := strings.ToLower(name)
			if other, ok := seen[key]; ok {
				return fmt.Errorf("index.assets: %q is used by both %s and %s", name, other, a.ID)
			}
			seen[key] = a.ID
		}
	}

	if _, err := finance.ParsePolicy(c.Index.Policy); err != nil {
		return fmt.Errorf("index.policy: %w", err)
	}
	if err := c.Defaults().Request().Validate(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	u := c.Universe()
	if _, err := finance.ValidateWeights(u.Canonicalize(c.Index.Weights), u.Known()); err != nil {
		return fmt.Errorf("index.weights: %w", err)
	}
	return nil
}

// Universe returns the configured assets.
func (c *Config) Universe() *finance.Universe {
	return finance.NewUniverse(c.Index.Assets)
}

// Defaults returns the request parameters used when a caller gives none.
// Call it on a validated config.
func (c *Config) Defaults() indexer.Defaults {
	policy, _ := finance.ParsePolicy(c.Index.Policy)
	d := indexer.Defaults{
		Weights:      c.Index.Weights,
		Days:         c.Index.Days,
		Policy:       policy,
		Quote:        c.Index.Quote,
		AllowPartial: c.Index.AllowPartial,
	}
	if c.Index.AnnualRate != nil {
		d.AnnualRate = *c.Index.AnnualRate
	}
	if c.Index.NormalizeTo != nil {
		d.NormalizeTo = *c.Index.NormalizeTo
	}
	return d
}
