package config

import (
	"fmt"
	"image"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type AppConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port string `env:"PORT" envDefault:"3005" validate:"required,numeric"`

	// Output directory holding artifacts and the latest pointer.
	OutputDir       string `env:"OUTPUT_DIR" envDefault:"output" validate:"required"`
	MapFile         string `env:"MAP_FILE" envDefault:"assets/mapa-cr.png" validate:"required"`
	PlaceholderFile string `env:"PLACEHOLDER_FILE" envDefault:"assets/placeholder.png" validate:"required"`

	// Retention: max number of loops kept on disk.
	MaxGIFs int `env:"MAX_GIFS" envDefault:"10" validate:"min=1"`

	// Radar sequence.
	LayerCount    int           `env:"LAYER_COUNT" envDefault:"6" validate:"min=1"`
	LayerInterval time.Duration `env:"LAYER_INTERVAL" envDefault:"10m" validate:"gt=0"`
	FrameDelay    time.Duration `env:"FRAME_DELAY" envDefault:"500ms" validate:"gt=0"`
	OffsetX       int           `env:"OFFSET_X" envDefault:"-50"`
	OffsetY       int           `env:"OFFSET_Y" envDefault:"0"`

	// Remote provider.
	RadarURLTemplate string        `env:"RADAR_URL_TEMPLATE" envDefault:"https://radar.bourky.cz/data/pacz2gmaps.z_max3d.{key}.0.png" validate:"required,contains={key}"`
	FetchRetries     int           `env:"FETCH_RETRIES" envDefault:"5" validate:"min=1"`
	FetchRetryPause  time.Duration `env:"FETCH_RETRY_PAUSE" envDefault:"500ms" validate:"gte=0"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	MaxSnapshotBytes int64         `env:"MAX_SNAPSHOT_BYTES" envDefault:"10485760" validate:"gt=0"`

	// ScheduleInterval controls how often a new loop is built.
	// ScheduleCron, when set, takes precedence.
	ScheduleInterval time.Duration `env:"SCHEDULE_INTERVAL" envDefault:"10m" validate:"gte=1s"`
	ScheduleCron     string        `env:"SCHEDULE_CRON"`

	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	AccessLog       bool          `env:"ACCESS_LOG" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file loaded", "err", err)
	}
	return Parse(nil)
}

// Parse builds an AppConfig from environ, or from the process environment
// when environ is nil.
func Parse(environ map[string]string) (*AppConfig, error) {
	cfg := &AppConfig{}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.ScheduleCron != "" {
		if _, err := cron.ParseStandard(cfg.ScheduleCron); err != nil {
			return nil, fmt.Errorf("invalid SCHEDULE_CRON: %w", err)
		}
	}

	return cfg, nil
}

// Offset is the paste position of radar frames on the base map.
func (c *AppConfig) Offset() image.Point {
	return image.Pt(c.OffsetX, c.OffsetY)
}

// Addr is the HTTP listen address.
func (c *AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Level maps LogLevel to a charmbracelet/log level.
func (c *AppConfig) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
