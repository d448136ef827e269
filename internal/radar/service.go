package radar

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Options tunes one pipeline run.
type Options struct {
	Layers          int
	Interval        time.Duration
	Offset          image.Point
	FrameDelay      time.Duration
	MaxArtifacts    int
	MapFile         string
	PlaceholderFile string
}

// Service builds radar loops: fetch, decode, composite, encode, publish, prune.
type Service struct {
	store   ArtifactStore
	fetcher SnapshotFetcher
	opts    Options

	now    func() time.Time
	logger *log.Logger
}

// NewService creates a new Service.
func NewService(store ArtifactStore, fetcher SnapshotFetcher, opts Options) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
		now:     time.Now,
		logger:  log.WithPrefix("radar"),
	}
}

// BuildLoop runs the whole pipeline once and returns the published artifact.
//
// A run either publishes a new artifact and prunes the retention set, or
// leaves the output directory as it was. ErrNoFrames signals a run that had
// nothing to encode; callers should treat it as a no-op.
func (s *Service) BuildLoop(ctx context.Context) (Artifact, error) {
	started := s.now().UTC()
	logger := s.logger.With("run", uuid.NewString()[:8])

	if err := s.store.EnsureDir(); err != nil {
		return Artifact{}, fmt.Errorf("prepare output directory: %w", err)
	}

	layers := LayerTimes(started, s.opts.Layers, s.opts.Interval)
	defer s.store.CleanupLayers(len(layers))

	frames, err := s.collectFrames(ctx, logger, layers)
	if err != nil {
		return Artifact{}, err
	}

	base, err := LoadBitmap(s.opts.MapFile)
	if err != nil {
		logger.Error("base map not available", "path", s.opts.MapFile, "err", err)
		return Artifact{}, fmt.Errorf("%w: %v", ErrBaseMapMissing, err)
	}

	composited := make([]*image.RGBA, 0, len(frames))
	placeholders := 0
	for _, f := range frames {
		if f.Placeholder {
			placeholders++
		}
		composited = append(composited, Composite(base, f.Image, s.opts.Offset))
	}

	if len(composited) == 0 {
		logger.Info("no frames collected; keeping previous loop")
		return Artifact{}, ErrNoFrames
	}

	name := ArtifactName(started)
	err = s.store.SaveArtifact(name, func(w io.Writer) error {
		return EncodeLoop(w, composited, s.opts.FrameDelay)
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("save artifact %s: %w", name, err)
	}

	deleted, err := s.store.Prune(s.opts.MaxArtifacts)
	if err != nil {
		logger.Warn("retention failed", "err", err)
	}
	for _, d := range deleted {
		logger.Info("removed old loop", "name", d)
	}

	logger.Info("loop published",
		"name", name,
		"frames", len(composited),
		"placeholders", placeholders,
		"took", time.Since(started).Round(time.Millisecond),
	)

	return Artifact{
		Name:         name,
		CreatedAt:    started,
		Frames:       len(composited),
		Placeholders: placeholders,
	}, nil
}

// collectFrames fetches and decodes every layer in order and returns the
// frames oldest first. Failed layers become placeholder frames.
func (s *Service) collectFrames(ctx context.Context, logger *log.Logger, layers []Layer) ([]Frame, error) {
	placeholder, err := LoadBitmap(s.opts.PlaceholderFile)
	if err != nil {
		// Composite draws nothing for a nil image, so the frame count still holds.
		logger.Warn("placeholder not available", "path", s.opts.PlaceholderFile, "err", err)
	}

	frames := make([]Frame, 0, len(layers))
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		frames = append(frames, s.fetchFrame(ctx, logger, layer, placeholder))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	slices.Reverse(frames)
	return frames, nil
}

func (s *Service) fetchFrame(ctx context.Context, logger *log.Logger, layer Layer, placeholder *image.RGBA) Frame {
	fallback := Frame{Layer: layer, Image: placeholder, Placeholder: true}

	snap, err := s.fetcher.Fetch(ctx, layer.Target)
	if err != nil {
		if errors.Is(err, ErrSnapshotUnavailable) {
			logger.Warn("skipping layer, using placeholder", "layer", layer.Index, "target", TimeKey(layer.Target, s.opts.Interval))
		} else {
			logger.Warn("layer fetch failed, using placeholder", "layer", layer.Index, "err", err)
		}
		return fallback
	}

	if err := s.store.SaveLayer(layer.Index, snap.Data); err != nil {
		logger.Warn("could not write layer scratch file", "layer", layer.Index, "err", err)
	}

	img, err := DecodeFrame(snap.Data)
	if err != nil {
		logger.Warn("cannot decode layer, using placeholder", "layer", layer.Index, "key", snap.Key, "err", err)
		return fallback
	}

	return Frame{Layer: layer, Image: img, Resolved: snap.Resolved}
}
