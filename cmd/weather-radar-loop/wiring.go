package main

import (
	"net/http"

	"github.com/i474232898/weather-radar-loop/internal/config"
	"github.com/i474232898/weather-radar-loop/internal/radar"
	"github.com/i474232898/weather-radar-loop/internal/radar/providers"
	"github.com/i474232898/weather-radar-loop/internal/store"
)

// buildService wires the pipeline: provider, artifact store and radar service.
func buildService(cfg *config.AppConfig) (*radar.Service, *store.DiskStore) {
	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	artifacts := store.NewDiskStore(cfg.OutputDir)

	provider := providers.NewBourkyProvider(httpClient, cfg.RadarURLTemplate, providers.RetryConfig{
		Attempts: cfg.FetchRetries,
		Pause:    cfg.FetchRetryPause,
		StepBack: cfg.LayerInterval,
	}, cfg.MaxSnapshotBytes)

	service := radar.NewService(artifacts, provider, radar.Options{
		Layers:          cfg.LayerCount,
		Interval:        cfg.LayerInterval,
		Offset:          cfg.Offset(),
		FrameDelay:      cfg.FrameDelay,
		MaxArtifacts:    cfg.MaxGIFs,
		MapFile:         cfg.MapFile,
		PlaceholderFile: cfg.PlaceholderFile,
	})

	return service, artifacts
}
