package radar

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrSnapshotUnavailable is returned by a fetcher once its retry budget is spent.
	ErrSnapshotUnavailable = errors.New("radar snapshot unavailable")
	// ErrNoFrames is returned when a loop would contain zero frames.
	ErrNoFrames = errors.New("no frames to encode")
	// ErrBaseMapMissing aborts a run when the base map cannot be loaded.
	ErrBaseMapMissing = errors.New("base map missing")
)

// SnapshotFetcher abstracts the remote radar image source.
type SnapshotFetcher interface {
	Name() string
	Fetch(ctx context.Context, target time.Time) (Snapshot, error)
}

// ArtifactStore is the contract the output directory must satisfy.
type ArtifactStore interface {
	EnsureDir() error
	// SaveArtifact streams an artifact to its final name and points latest at it.
	SaveArtifact(name string, write func(w io.Writer) error) error
	Prune(keep int) ([]string, error)
	SaveLayer(index int, data []byte) error
	CleanupLayers(count int)
}
