package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/venuescout/internal/httpapi"
	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/metrics"
	"github.com/rewired-gh/venuescout/internal/session"
	"github.com/rewired-gh/venuescout/internal/telegram"
	"github.com/rewired-gh/venuescout/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the discovery session behind the HTTP API and optional Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.Warn("Tracing disabled: %v", err)
	}
	defer func() {
		flushCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	c := buildComponents(cfg)

	// Initialize Telegram client
	var (
		telegramClient *telegram.Client
		surfaces       []session.MapSurface
	)
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return err
		}
		surfaces = append(surfaces, telegramClient)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram presentation disabled")
	}

	sess := session.New(session.Options{
		Fetcher:          c.fetcher,
		Engine:           c.engine,
		Photos:           c.resolver,
		PhotoMaxHeightPx: cfg.Places.PhotoMaxHeightPx,
		Surfaces:         surfaces,
		Metrics:          m,
		RefreshInterval:  cfg.Airtable.RefreshInterval,
	})

	if telegramClient != nil {
		go telegramClient.Run(ctx)
		telegramClient.ListenForCommands(ctx, sess)
	}

	srv := httpapi.NewServer(cfg.Server, httpapi.NewRouter(sess, m.Handler()))
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sessionDone := make(chan error, 1)
	go func() { sessionDone <- sess.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.Error("HTTP API failed: %v", runErr)
		cancel()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP API shutdown: %v", err)
	}
	<-sessionDone

	logger.Info("Service stopped")
	return runErr
}
