package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"

	"cryptoindex/internal/chart"
	"cryptoindex/internal/collector"
	"cryptoindex/internal/config"
	"cryptoindex/internal/indexer"
	"cryptoindex/internal/openai"
	"cryptoindex/internal/scheduler"
	"cryptoindex/internal/server"
	"cryptoindex/internal/storage"
	"cryptoindex/internal/telegram"
)

var serviceVersion = "dev"

const metricsNamespace = "cryptoindex"

func main() {
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(serviceVersion)
		os.Exit(0)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	cfg, err := config.Load(config.Path())
	if err != nil {
		_ = level.Error(logger).Log("msg", "failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger = level.NewFilter(logger, levelOption(cfg.LogLevel))
	_ = level.Info(logger).Log("msg", "initializing", "version", serviceVersion, "provider", cfg.Provider.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.Database.SQLitePath + "?_busy_timeout=5000")
	if err != nil {
		_ = level.Error(logger).Log("msg", "failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := storage.InitSchema(ctx, db); err != nil {
		_ = level.Error(logger).Log("msg", "failed to create schema", "err", err)
		os.Exit(1)
	}
	store := storage.NewStore(db)
	if cfg.Provider.CacheTTL > 0 {
		if n, err := store.Purge(ctx, cfg.Provider.CacheTTL); err != nil {
			_ = level.Warn(logger).Log("msg", "failed to purge price cache", "err", err)
		} else {
			_ = level.Debug(logger).Log("msg", "price cache purged", "removed", n)
		}
	}

	client := collector.NewHTTPClient(cfg.Proxy, cfg.Provider.FetchTimeout)
	fetcher := collector.NewCachedFetcher(newFetcher(cfg, client), store, cfg.Provider.CacheTTL, log.With(logger, "component", "cache"))
	coll := collector.NewCollector(fetcher, collector.Options{
		Timeout:  cfg.Provider.FetchTimeout,
		OutlierK: cfg.Provider.OutlierK,
	}, log.With(logger, "component", "collector"))

	labels := []string{"method", "outcome"}
	svc := indexer.NewService(cfg.Universe(), coll, log.With(logger, "component", "indexer"))
	svc = indexer.NewLoggingMiddleware(log.With(logger, "component", "indexer"), svc)
	svc = indexer.NewInstrumentingMiddleware(
		kitprometheus.NewCounterFrom(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "indexer",
			Name:      "request_count",
			Help:      "Number of index computations",
		}, labels),
		kitprometheus.NewSummaryFrom(prometheus.SummaryOpts{
			Namespace: metricsNamespace,
			Subsystem: "indexer",
			Name:      "request_duration",
			Help:      "Duration of index computations in seconds",
		}, labels),
		svc,
	)

	renderer := chart.NewRenderer(cfg.Chart.Width, cfg.Chart.Height, chart.LoadLocation(cfg.Chart.Timezone), chart.NewCache(cfg.Chart.CacheTTL))

	var commentator telegram.Describer
	if cfg.OpenAI.APIKey != "" {
		commentator = openai.NewCommentator(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	var (
		webhook http.HandlerFunc
		bot     *telegram.Bot
	)
	if cfg.Telegram.BotToken != "" {
		bot, err = telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.WebhookURL, telegram.Deps{
			Runner:       indexer.NewLatest(svc),
			Renderer:     renderer,
			Commentator:  commentator,
			Universe:     cfg.Universe(),
			Defaults:     cfg.Defaults(),
			AllowedChats: cfg.Telegram.AllowedChats,
			Timeout:      cfg.Telegram.Timeout,
			Commands: kitprometheus.NewCounterFrom(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "telegram",
				Name:      "command_count",
				Help:      "Number of bot commands received",
			}, []string{"command"}),
		}, log.With(logger, "component", "telegram"))
		if err != nil {
			_ = level.Error(logger).Log("msg", "failed to start telegram bot", "err", err)
			os.Exit(1)
		}
		webhook = bot.WebhookHandler
	} else {
		_ = level.Info(logger).Log("msg", "telegram disabled, no bot token")
	}

	sched := scheduler.NewScheduler(ctx, cfg.Telegram.Timeout, log.With(logger, "component", "scheduler"))
	if cfg.Schedule.ReportCron != "" && bot != nil {
		if err := sched.RegisterReport(cfg.Schedule.ReportCron, cfg.Schedule.ReportChatID, bot.Handlers()); err != nil {
			_ = level.Error(logger).Log("msg", "failed to schedule report", "err", err)
			os.Exit(1)
		}
	}
	if cfg.Schedule.PurgeCron != "" && cfg.Provider.CacheTTL > 0 {
		if err := sched.RegisterPurge(cfg.Schedule.PurgeCron, cfg.Provider.CacheTTL, store); err != nil {
			_ = level.Error(logger).Log("msg", "failed to schedule cache purge", "err", err)
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	mux := server.NewHTTPMux(server.Options{
		Service:  svc,
		Renderer: renderer,
		Defaults: cfg.Defaults(),
		Webhook:  webhook,
		Timeout:  cfg.Server.RequestTimeout,
		Logger:   log.With(logger, "component", "http"),
	})
	srv := server.NewServer(":"+cfg.Server.Port, mux)

	errs := make(chan error, 2)
	go func() {
		_ = level.Info(logger).Log("msg", "listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errs <- fmt.Errorf("%s", <-c)
	}()

	_ = level.Info(logger).Log("msg", "terminated", "reason", <-errs)
	cancel()
	server.Shutdown(srv, 10*time.Second, logger)
}

func newFetcher(cfg *config.Config, client *http.Client) collector.Fetcher {
	switch cfg.Provider.Name {
	case "yahoo":
		return collector.NewYahooFetcher(client)
	case "static":
		return &collector.StaticFetcher{}
	default:
		f := collector.NewCoinGeckoFetcher(client, cfg.Provider.CoinGeckoAPIKey)
		if cfg.Provider.CoinGeckoURL != "" {
			f.BaseURL = cfg.Provider.CoinGeckoURL
		}
		return f
	}
}

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
