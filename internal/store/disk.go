package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/i474232898/weather-radar-loop/internal/common"
	"github.com/i474232898/weather-radar-loop/internal/radar"
)

var (
	// ErrNotFound is returned when no radar loop has been published yet.
	ErrNotFound = errors.New("no radar loop published")
)

var _ radar.ArtifactStore = (*DiskStore)(nil)

// LatestFile holds the name of the current artifact.
const LatestFile = "latest_gif.txt"

// ArtifactInfo is one entry of the retention set.
type ArtifactInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// DiskStore keeps radar loops in a single output directory.
type DiskStore struct {
	dir    string
	logger *log.Logger
}

// NewDiskStore creates a store rooted at dir. The directory is created lazily.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{
		dir:    dir,
		logger: log.WithPrefix("store"),
	}
}

// Dir returns the output directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Path returns the absolute location of name inside the output directory.
func (s *DiskStore) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *DiskStore) EnsureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// SaveArtifact writes the artifact under a temp name, renames it into place
// and then repoints latest at it. On failure the directory is left as it was.
func (s *DiskStore) SaveArtifact(name string, write func(w io.Writer) error) error {
	if err := common.WriteFileAtomic(s.dir, name, 0o644, write); err != nil {
		return err
	}

	err := common.WriteFileAtomic(s.dir, LatestFile, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, name)
		return err
	})
	if err != nil {
		if rmErr := os.Remove(s.Path(name)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.logger.Error("cannot roll back artifact", "name", name, "err", rmErr)
		}
		return fmt.Errorf("update latest pointer: %w", err)
	}
	return nil
}

// LatestName returns the artifact name recorded in the latest pointer.
func (s *DiskStore) LatestName() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, LatestFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// Latest resolves the latest pointer to an existing artifact.
func (s *DiskStore) Latest() (ArtifactInfo, error) {
	name, err := s.LatestName()
	if err != nil {
		return ArtifactInfo{}, err
	}

	fi, err := os.Stat(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ArtifactInfo{}, ErrNotFound
		}
		return ArtifactInfo{}, err
	}
	return ArtifactInfo{Name: name, Size: fi.Size(), ModTime: fi.ModTime().UTC()}, nil
}

// List returns all artifacts sorted by name, oldest first.
func (s *DiskStore) List() ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	// os.ReadDir already sorts by file name.
	var result []ArtifactInfo
	for _, e := range entries {
		if e.IsDir() || !isArtifact(e.Name()) {
			continue
		}
		info := ArtifactInfo{Name: e.Name()}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.ModTime = fi.ModTime().UTC()
		}
		result = append(result, info)
	}
	return result, nil
}

// Prune deletes the oldest artifacts until at most keep remain and returns the
// names it removed. Files that vanished in the meantime are skipped.
// If keep is <= 0, it is treated as unlimited.
func (s *DiskStore) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	artifacts, err := s.List()
	if err != nil {
		return nil, err
	}

	var deleted []string
	for len(artifacts) > keep {
		victim := artifacts[0]
		artifacts = artifacts[1:]

		err := os.Remove(s.Path(victim.Name))
		switch {
		case err == nil:
			deleted = append(deleted, victim.Name)
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Warn("artifact already gone", "name", victim.Name)
		default:
			s.logger.Error("cannot remove artifact", "name", victim.Name, "err", err)
		}
	}
	return deleted, nil
}

// LayerPath returns the scratch path for a raw layer download.
func (s *DiskStore) LayerPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("layer_%d.png", index))
}

func (s *DiskStore) SaveLayer(index int, data []byte) error {
	return os.WriteFile(s.LayerPath(index), data, 0o644)
}

// CleanupLayers removes scratch files for layers 0..count-1.
func (s *DiskStore) CleanupLayers(count int) {
	for i := 0; i < count; i++ {
		err := os.Remove(s.LayerPath(i))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cannot remove layer file", "layer", i, "err", err)
		}
	}
}

func isArtifact(name string) bool {
	return strings.HasPrefix(name, radar.ArtifactPrefix) && strings.HasSuffix(name, radar.ArtifactExt)
}
