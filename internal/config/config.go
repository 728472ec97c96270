package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"RendaBot/internal/filters"
	"RendaBot/internal/loader"
	"RendaBot/internal/page"
	"RendaBot/internal/purchase"
	"RendaBot/internal/rates"
	"RendaBot/internal/store"
)

const (
	DefaultTargetURL    = "https://experiencia.xpi.com.br/renda-fixa/#/emissao-bancaria?offertoken=true"
	DefaultStatementURL = "https://experiencia.xpi.com.br/conta-corrente/extrato/#/"
)

// Config holds all application configuration.
type Config struct {
	Browser struct {
		page.ChromeConfig `yaml:",inline"`
		TargetURL         string `yaml:"target_url"`
		StatementURL      string `yaml:"statement_url"`
	} `yaml:"browser"`
	Store       store.Config `yaml:"store"`
	Credentials struct {
		TokenFile string        `yaml:"token_file"`
		Attempts  int           `yaml:"attempts"`
		Interval  time.Duration `yaml:"interval"`
	} `yaml:"credentials"`
	Rates struct {
		Endpoint string        `yaml:"endpoint"`
		Scrape   bool          `yaml:"scrape"`
		Fallback float64       `yaml:"fallback"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"rates"`
	Billing struct {
		URL string `yaml:"url"`
	} `yaml:"billing"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RunCron string `yaml:"run_cron"`
	} `yaml:"schedule"`
	Purchase struct {
		Timeouts              purchase.Timeouts `yaml:"timeouts"`
		DeselectOtherClasses  bool              `yaml:"deselect_other_classes"`
		NormalizeFloating     bool              `yaml:"normalize_floating"`
		MaxCandidatesPerClass int               `yaml:"max_candidates_per_class"`
	} `yaml:"purchase"`
	Filters filters.Pacing `yaml:"filters"`
	Loader  loader.Options `yaml:"loader"`
	Balance struct {
		StateFile string        `yaml:"state_file"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"balance"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used for every field the file leaves out.
func Default() *Config {
	cfg := &Config{}
	cfg.Browser.TargetURL = DefaultTargetURL
	cfg.Browser.StatementURL = DefaultStatementURL
	cfg.Browser.Headless = true
	cfg.Browser.EvalTimeout = 10 * time.Second
	cfg.Store.Driver = "rest"
	cfg.Credentials.TokenFile = "data/session.json"
	cfg.Credentials.Attempts = 30
	cfg.Credentials.Interval = 2 * time.Second
	cfg.Rates.Scrape = true
	cfg.Rates.Fallback = rates.DefaultFallback
	cfg.Rates.CacheTTL = 6 * time.Hour
	cfg.Schedule.RunCron = "0 30 10 * * 1-5"
	cfg.Purchase.Timeouts = purchase.DefaultTimeouts()
	cfg.Purchase.MaxCandidatesPerClass = 1
	cfg.Filters = filters.DefaultPacing()
	cfg.Loader = loader.DefaultOptions()
	cfg.Balance.StateFile = "data/balance_state.json"
	cfg.Balance.Timeout = 8 * time.Second
	cfg.Database.SQLitePath = "data/rendabot.db"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads .env, then the YAML file over the defaults, then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	envFile := ".env"
	if v := os.Getenv("ENV_FILE"); v != "" {
		envFile = v
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &cfg.Telegram.ChatID,
		"CDP_URL":            &cfg.Browser.CDPURL,
		"STORE_DRIVER":       &cfg.Store.Driver,
		"SUPABASE_URL":       &cfg.Store.URL,
		"SUPABASE_ANON_KEY":  &cfg.Store.APIKey,
		"DATABASE_URL":       &cfg.Store.DSN,
		"TOKEN_FILE":         &cfg.Credentials.TokenFile,
		"RATES_ENDPOINT":     &cfg.Rates.Endpoint,
		"BILLING_URL":        &cfg.Billing.URL,
		"CRON_RUN":           &cfg.Schedule.RunCron,
		"SQLITE_PATH":        &cfg.Database.SQLitePath,
		"BALANCE_STATE_FILE": &cfg.Balance.StateFile,
		"LOG_LEVEL":          &cfg.Log.Level,
		"HTTPS_PROXY":        &cfg.Proxy,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("HEADLESS: %w", err)
		}
		cfg.Browser.Headless = b
	}
	if v := os.Getenv("RATES_FALLBACK"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATES_FALLBACK: %w", err)
		}
		cfg.Rates.Fallback = f
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "rest":
		if c.Store.URL == "" || c.Store.APIKey == "" {
			return fmt.Errorf("store.url and store.api_key are required for the rest driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be rest or postgres, got %q", c.Store.Driver)
	}
	if c.Browser.TargetURL == "" {
		return fmt.Errorf("browser.target_url is required")
	}
	if c.Credentials.Attempts < 1 {
		return fmt.Errorf("credentials.attempts must be positive")
	}
	if c.Purchase.MaxCandidatesPerClass < 1 {
		return fmt.Errorf("purchase.max_candidates_per_class must be at least 1")
	}
	if c.Rates.Fallback <= 0 {
		return fmt.Errorf("rates.fallback must be positive")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.RunCron); err != nil {
		return fmt.Errorf("schedule.run_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
