package main

import (
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yair/encore/pkg/collectors"
	"github.com/yair/encore/pkg/config"
	"github.com/yair/encore/pkg/graph"
	"github.com/yair/encore/pkg/integrations"
	"github.com/yair/encore/pkg/metrics"
	"github.com/yair/encore/pkg/resolvers"
)

// app is the wired set of components shared by serve and query.
type app struct {
	executor *graph.Executor
	metrics  *metrics.Metrics
	queryLog *collectors.QueryRepository
	db       *sql.DB
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		// Missing providers degrade to field errors rather than refusing to start.
		logger.Warn("incomplete configuration", zap.Error(err))
	}

	m := metrics.New()
	opts := integrations.ClientOptions{
		HTTPClient: &http.Client{Timeout: cfg.APIs.TimeoutDuration()},
		Metrics:    m,
		Logger:     logger,
	}

	rc := resolvers.Config{
		Catalog: integrations.NewITunesClient(integrations.ITunesConfig{
			BaseURL:       cfg.APIs.ITunes.BaseURL,
			Country:       cfg.APIs.ITunes.Country,
			ClientOptions: opts,
		}),
		Lyrics: integrations.NewLyricsClient(integrations.LyricsConfig{
			BaseURL:       cfg.APIs.Lyrics.BaseURL,
			ClientOptions: opts,
		}),
		Weather: integrations.NewWeatherClient(integrations.WeatherConfig{
			BaseURL:       cfg.APIs.Weather.BaseURL,
			ClientOptions: opts,
		}),
		Metrics: m,
		Logger:  logger,
	}

	events, err := integrations.NewBandsintownClient(integrations.BandsintownConfig{
		BaseURL:       cfg.APIs.Bandsintown.BaseURL,
		AppID:         cfg.APIs.Bandsintown.AppID,
		ClientOptions: opts,
	})
	if err != nil {
		logger.Warn("events disabled", zap.Error(err))
	} else {
		rc.Events = events
	}

	a := &app{
		metrics: m,
		executor: graph.New(graph.Config{
			Resolver:       resolvers.New(rc),
			Logger:         logger,
			Metrics:        m,
			MaxDepth:       cfg.Query.MaxDepth,
			MaxConcurrency: cfg.Query.MaxConcurrency,
			Timeout:        cfg.Server.QueryTimeoutDuration(),
		}),
	}

	if cfg.QueryLog.Enabled {
		a.db, a.queryLog, err = openQueryLog(cfg.QueryLog.Path)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func openQueryLog(path string) (*sql.DB, *collectors.QueryRepository, error) {
	db, err := collectors.NewSQLiteDB(path)
	if err != nil {
		return nil, nil, err
	}
	repo, err := collectors.NewQueryRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create query repository: %w", err)
	}
	return db, repo, nil
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
