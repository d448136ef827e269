package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-radar-loop/internal/api/http"
	"github.com/i474232898/weather-radar-loop/internal/config"
	"github.com/i474232898/weather-radar-loop/internal/radar"
	"github.com/i474232898/weather-radar-loop/internal/scheduler"
	"github.com/i474232898/weather-radar-loop/internal/shutdown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "weather-radar-loop",
		Short:        "Builds an animated radar loop every few minutes and serves it over HTTP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Build a single radar loop and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return buildOnce(ctx)
		},
	})

	return root
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The notify context stays registered until we return, so a second
	// signal during shutdown is swallowed instead of killing the process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, artifacts := buildService(cfg)
	sched := scheduler.New(service, cfg.ScheduleInterval, cfg.ScheduleCron)

	app := httpapi.NewApp(httpapi.Deps{
		Artifacts:       artifacts,
		Status:          sched,
		PlaceholderFile: cfg.PlaceholderFile,
		AccessLog:       cfg.AccessLog,
	})
	srv := httpapi.NewServer(app, cfg.Addr())
	srv.Start()

	coord := shutdown.New(cfg.ShutdownTimeout,
		shutdown.Step{Name: "scheduler", Stop: func(ctx context.Context) error {
			stopped := make(chan struct{})
			go func() {
				sched.Stop()
				close(stopped)
			}()
			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		shutdown.Step{Name: "http", Stop: srv.Shutdown},
	)

	if err := sched.Start(ctx); err != nil {
		log.Error("failed to start scheduler", "err", err)
		_ = coord.Shutdown()
		return err
	}

	return coord.Wait(ctx)
}

func buildOnce(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service, _ := buildService(cfg)
	artifact, err := service.BuildLoop(ctx)
	if err != nil {
		if errors.Is(err, radar.ErrNoFrames) {
			log.Info("nothing to build")
			return nil
		}
		return err
	}

	log.Info("radar loop built", "name", artifact.Name, "frames", artifact.Frames)
	return nil
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "err", err)
		return nil, err
	}
	log.SetLevel(cfg.Level())
	log.SetReportTimestamp(true)
	return cfg, nil
}
