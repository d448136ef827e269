package httpapi

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-radar-loop/internal/scheduler"
	"github.com/i474232898/weather-radar-loop/internal/store"
)

var validate = validator.New()

// ArtifactSource is the read side of the output directory.
type ArtifactSource interface {
	Dir() string
	Path(name string) string
	Latest() (store.ArtifactInfo, error)
	List() ([]store.ArtifactInfo, error)
}

// StatusSource reports scheduler state. It may be nil.
type StatusSource interface {
	Status() scheduler.Status
}

// Deps bundles what the HTTP layer reads from.
type Deps struct {
	Artifacts       ArtifactSource
	Status          StatusSource
	PlaceholderFile string
	AccessLog       bool
}

// NewApp builds the Fiber app with middleware and all routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-radar-loop",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	if deps.AccessLog {
		app.Use(logger.New())
	}
	app.Use(recover.New())

	RegisterRoutes(app, deps)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. The static file
// handler and the placeholder fallback are registered last.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"status":  "ok",
			"service": "weather-radar-loop",
		}
		if deps.Status != nil {
			resp["scheduler"] = deps.Status.Status()
		}
		return c.JSON(resp)
	})

	app.Get("/latest.gif", func(c *fiber.Ctx) error {
		info, err := deps.Artifacts.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return sendPlaceholder(c, deps.PlaceholderFile)
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve latest radar loop")
		}

		data, err := os.ReadFile(deps.Artifacts.Path(info.Name))
		if err != nil {
			return sendPlaceholder(c, deps.PlaceholderFile)
		}
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set("X-Radar-Loop", info.Name)
		c.Type("gif")
		return c.Send(data)
	})

	v1 := app.Group("/api/v1/radar")

	v1.Get("/latest", func(c *fiber.Ctx) error {
		info, err := deps.Artifacts.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no radar loop published yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve latest radar loop")
		}
		return c.JSON(artifactView(info))
	})

	v1.Get("/artifacts", func(c *fiber.Ctx) error {
		var q listQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		items, err := deps.Artifacts.List()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to list radar loops")
		}

		// Newest first.
		views := make([]fiber.Map, 0, len(items))
		for i := len(items) - 1; i >= 0; i-- {
			if q.Limit > 0 && len(views) >= q.Limit {
				break
			}
			views = append(views, artifactView(items[i]))
		}

		return c.JSON(fiber.Map{
			"count":     len(views),
			"artifacts": views,
		})
	})

	// Opened per request: pruned loops and pointer rewrites must show up at once.
	app.Use(filesystem.New(filesystem.Config{
		Root:   newOutputFS(deps.Artifacts.Dir()),
		Browse: true,
	}))

	// Anything the static handler could not resolve gets the placeholder.
	app.Use(func(c *fiber.Ctx) error {
		return sendPlaceholder(c, deps.PlaceholderFile)
	})
}

func artifactView(info store.ArtifactInfo) fiber.Map {
	return fiber.Map{
		"name":    info.Name,
		"url":     "/" + info.Name,
		"size":    info.Size,
		"modTime": info.ModTime,
	}
}

// sendPlaceholder answers 200 with the placeholder image.
func sendPlaceholder(c *fiber.Ctx, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "not found")
	}
	c.Set(fiber.HeaderContentType, mimetype.Detect(data).String())
	return c.Status(fiber.StatusOK).Send(data)
}

// listQuery holds query parameters for the artifacts endpoint.
type listQuery struct {
	Limit int `validate:"omitempty,min=1,max=100"`
}

func (q *listQuery) bind(c *fiber.Ctx) error {
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		q.Limit = n
		if n == 0 {
			return errors.New("limit must be between 1 and 100")
		}
	}
	return validate.Struct(q)
}
