package radar

import (
	"image"
	"time"
)

// Layer is one radar snapshot target. Index 0 is the most recent layer.
type Layer struct {
	Index  int
	Target time.Time // always UTC
}

// Snapshot is the raw result of a successful provider fetch.
type Snapshot struct {
	Target   time.Time // timestamp originally requested
	Resolved time.Time // timestamp actually served after stepping back
	Key      string    // provider time key, e.g. 20240501.1230
	Data     []byte
}

// Frame is a decoded bitmap for one layer, or the placeholder when the layer
// could not be fetched or decoded. There is exactly one Frame per Layer.
type Frame struct {
	Layer       Layer
	Image       *image.RGBA
	Placeholder bool
	Resolved    time.Time // zero for placeholder frames
}

// Artifact describes one published radar loop.
type Artifact struct {
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	Frames       int       `json:"frames"`
	Placeholders int       `json:"placeholders"`
}

const (
	// ArtifactPrefix and ArtifactExt frame every artifact file name.
	ArtifactPrefix = "radar_with_map_"
	ArtifactExt    = ".gif"

	artifactStampLayout = "20060102150405"
)

// ArtifactName derives the artifact file name from its creation time.
// Names sort lexically in creation order.
func ArtifactName(createdAt time.Time) string {
	return ArtifactPrefix + createdAt.UTC().Format(artifactStampLayout) + ArtifactExt
}
