// Command vigil runs the watch/poll engine: it schedules the configured
// monitors, detects transitions, and pushes notifications.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vigilbot/vigil/internal/config"
	"github.com/vigilbot/vigil/internal/fetch"
	"github.com/vigilbot/vigil/internal/fetch/browser"
	"github.com/vigilbot/vigil/internal/identity"
	"github.com/vigilbot/vigil/internal/logging"
	"github.com/vigilbot/vigil/internal/metrics"
	"github.com/vigilbot/vigil/internal/notify"
	"github.com/vigilbot/vigil/internal/notify/sinks"
	"github.com/vigilbot/vigil/internal/ops"
	"github.com/vigilbot/vigil/internal/schedule"
	"github.com/vigilbot/vigil/internal/source"
	"github.com/vigilbot/vigil/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var renderer fetch.Renderer
	if cfg.Browser.Enabled {
		session := browser.NewSession(browser.Config{
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			ChallengeAttempts: cfg.Browser.ChallengeAttempts,
			ChallengeWait:     time.Duration(cfg.Browser.ChallengeWaitSec) * time.Second,
			OnRelaunch:        m.BrowserRelaunches.Inc,
		}, logger.Named("browser"))
		defer session.Close()
		renderer = session
	}

	pipeline := fetch.New(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, renderer, logger.Named("fetch"))
	pipeline.OnTier(func(tier fetch.Tier) {
		m.FetchTierTotal.WithLabelValues(string(tier)).Inc()
	})

	hubSinks := []notify.Sink{
		sinks.NewLogSink(logger.Named("audit")),
		sinks.NewPrometheusSink(reg),
	}
	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("telegram bot init: %w", err)
		}
		logger.Info("telegram delivery enabled", zap.String("bot", bot.Self.UserName))
		hubSinks = append(hubSinks, sinks.NewTelegramSink(bot, cfg.Telegram.DefaultChatID))
	} else {
		logger.Warn("no telegram token configured, notifications are log-only")
	}
	hub := notify.NewHub(notify.Config{}, logger.Named("notify"), hubSinks...)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("notify hub close", zap.Error(err))
		}
	}()

	checks := schedule.NewChecks(
		st,
		pipeline,
		source.NewGitHub(pipeline),
		identity.NewStoreResolver(st),
		hub,
		nil,
		logger.Named("checks"),
	)
	registry := schedule.NewRegistry(logger.Named("schedule"), m)
	defer registry.Close()

	manager := schedule.NewManager(schedule.ManagerConfig{
		SyncInterval: time.Duration(cfg.Schedule.SyncIntervalSec) * time.Second,
		StartupGrace: time.Duration(cfg.Schedule.StartupGraceSec) * time.Second,
		ItemDelay:    time.Duration(cfg.Schedule.ItemDelayMs) * time.Millisecond,
	}, registry, checks, st, logger.Named("schedule"))
	go manager.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           ops.NewServer(st, reg, logger.Named("ops")).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("ops endpoint listening", zap.String("addr", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown", zap.Error(err))
		}
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	}
}
