package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/venuescout/internal/airtable"
	"github.com/rewired-gh/venuescout/internal/config"
	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/places"
	"github.com/rewired-gh/venuescout/internal/reconcile"
)

// loadConfig loads credentials from the env file, then the configuration, and
// initialises logging. A missing default config file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if path != "" {
		logger.Info("Configuration loaded from %s", path)
	} else {
		logger.Info("Configuration loaded from environment")
	}
	return cfg, nil
}

type components struct {
	fetcher  *airtable.Client
	resolver *places.Resolver
	engine   *reconcile.Engine
}

func buildComponents(cfg *config.Config) components {
	fetcher := airtable.NewClient(
		cfg.Airtable.APIBaseURL,
		cfg.Airtable.BaseID,
		cfg.Airtable.TableName,
		cfg.Airtable.Token,
		cfg.Airtable.Timeout,
	)

	lookup := places.NewGoogle(cfg.Places.APIBaseURL, cfg.Places.APIKey, cfg.Places.Timeout)
	resolver := places.NewResolver(
		lookup,
		cfg.Places.MaxConcurrency,
		cfg.Places.RequestsPerSecond,
		cfg.Places.Burst,
	)
	logger.Debug("Places resolver: max_concurrency=%d, requests_per_second=%.1f, burst=%d",
		cfg.Places.MaxConcurrency,
		cfg.Places.RequestsPerSecond,
		cfg.Places.Burst,
	)

	return components{
		fetcher:  fetcher,
		resolver: resolver,
		engine:   reconcile.New(resolver),
	}
}
