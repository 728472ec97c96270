package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"RendaBot/internal/balance"
	"RendaBot/internal/billing"
	"RendaBot/internal/config"
	"RendaBot/internal/credentials"
	"RendaBot/internal/engine"
	"RendaBot/internal/model"
	"RendaBot/internal/notifier"
	"RendaBot/internal/page"
	"RendaBot/internal/purchase"
	"RendaBot/internal/rates"
	"RendaBot/internal/recorder"
	"RendaBot/internal/scheduler"
	"RendaBot/internal/store"
)

var (
	cfgPath string
	cfg     *config.Config
	logger  = logrus.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "rendabot",
	Short:         "Buys the best fixed-income offers on the XP brokerage page",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			cfgPath = "configs/config.yaml"
			if v := os.Getenv("CONFIG_PATH"); v != "" {
				cfgPath = v
			}
		}
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.SetFormatter(&logrus.JSONFormatter{})
		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: configs/config.yaml or $CONFIG_PATH)")
	rootCmd.AddCommand(runCmd, serveCmd, rankCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one purchase run now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.engine.Run(ctx)
		if sum != nil && a.telegram.Enabled() {
			if serr := a.telegram.SendWithRetry(ctx, notifier.FormatSummary(sum), 3); serr != nil {
				logger.WithError(serr).Error("send notification")
			}
		}
		return err
	},
}

var runOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on the configured schedule and answer Telegram commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var sender scheduler.Sender
		if a.telegram.Enabled() {
			sender = a.telegram
		}
		sched := scheduler.NewScheduler(ctx, a.engine, a.balance, sender, a.recorder, logger)
		if err := sched.Register(cfg.Schedule.RunCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if a.telegram.Enabled() {
			go a.telegram.StartPolling(ctx, sched.HandleCommand)
			logger.Info("telegram polling started")
		}
		if runOnStart || os.Getenv("RUN_ON_START") == "true" {
			go sched.RunNow()
		}

		logger.WithField("cron", cfg.Schedule.RunCron).Info("RendaBot is running, press Ctrl+C to stop")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutdown signal received, stopping")
		cancel()
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "execute a run immediately")
}

// app is the wired live pipeline.
type app struct {
	chrome   *page.Chrome
	engine   *engine.Engine
	balance  *balance.Manager
	recorder recorder.Recorder
	telegram *notifier.TelegramNotifier
}

func newApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	client := httpClient(cfg.Proxy, 20*time.Second)

	bm, err := balance.NewManager(cfg.Balance.StateFile, logger)
	if err != nil {
		return nil, fmt.Errorf("init balance manager: %w", err)
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}

	chrome, err := page.NewChrome(ctx, cfg.Browser.ChromeConfig)
	if err != nil {
		rec.Close()
		return nil, err
	}

	var provider rates.Provider
	switch {
	case cfg.Rates.Endpoint != "":
		provider = &rates.Endpoint{URL: cfg.Rates.Endpoint, Client: client}
	case cfg.Rates.Scrape:
		provider = rates.NewScraper(client)
	}
	if provider != nil {
		provider = rates.NewCached(provider, cfg.Rates.CacheTTL)
	}

	storeCfg := cfg.Store
	eng := engine.New(engine.Deps{
		Page:      chrome,
		Navigator: chrome,
		Credentials: credentials.First{
			credentials.File{Path: cfg.Credentials.TokenFile},
			credentials.Env{},
		},
		OpenStore: func(ctx context.Context, creds model.Credentials) (store.Store, error) {
			return store.Open(ctx, storeCfg, creds, logger)
		},
		Rates:    &rates.Lookup{Provider: provider, Fallback: cfg.Rates.Fallback, Log: logger},
		Billing:  billing.New(cfg.Billing.URL, client),
		Balance:  bm,
		Recorder: rec,
		Log:      logger,
	}, engine.Options{
		StatementURL:          cfg.Browser.StatementURL,
		TargetURL:             cfg.Browser.TargetURL,
		CredentialAttempts:    cfg.Credentials.Attempts,
		CredentialInterval:    cfg.Credentials.Interval,
		BalanceTimeout:        cfg.Balance.Timeout,
		NormalizeFloating:     cfg.Purchase.NormalizeFloating,
		MaxCandidatesPerClass: cfg.Purchase.MaxCandidatesPerClass,
		Purchase: purchase.Options{
			Timeouts:             cfg.Purchase.Timeouts,
			DeselectOtherClasses: cfg.Purchase.DeselectOtherClasses,
		},
		Loader:  cfg.Loader,
		Filters: cfg.Filters,
	})

	return &app{
		chrome:   chrome,
		engine:   eng,
		balance:  bm,
		recorder: rec,
		telegram: notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.chrome.Close(); err != nil {
		logger.WithError(err).Warn("close browser")
	}
	if err := a.recorder.Close(); err != nil {
		logger.WithError(err).Warn("close recorder")
	}
}

func httpClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
