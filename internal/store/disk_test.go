package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-radar-loop/internal/radar"
)

func writeString(s string) func(w io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func names(items []ArtifactInfo) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func seed(t *testing.T, s *DiskStore, count int) []string {
	t.Helper()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var created []string
	for i := 0; i < count; i++ {
		name := radar.ArtifactName(base.Add(time.Duration(i) * 10 * time.Minute))
		require.NoError(t, s.SaveArtifact(name, writeString(name)))
		created = append(created, name)
	}
	return created
}

func TestSaveArtifactUpdatesLatest(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	require.NoError(t, s.EnsureDir())

	name := "radar_with_map_20240501123700.gif"
	require.NoError(t, s.SaveArtifact(name, writeString("GIF89a...")))

	data, err := os.ReadFile(s.Path(name))
	require.NoError(t, err)
	assert.Equal(t, "GIF89a...", string(data))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, name, latest.Name)
	assert.EqualValues(t, 9, latest.Size)

	pointer, err := os.ReadFile(filepath.Join(s.Dir(), LatestFile))
	require.NoError(t, err)
	assert.Equal(t, name, string(pointer))
}

func TestSaveArtifactFailureLeavesLatestAlone(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	require.NoError(t, s.EnsureDir())
	seed(t, s, 1)

	err := s.SaveArtifact("radar_with_map_20240502000000.gif", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("encoder blew up")
	})
	require.Error(t, err)

	latest, err := s.LatestName()
	require.NoError(t, err)
	assert.Equal(t, "radar_with_map_20240501000000.gif", latest)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp or partial files may remain")
}

func TestSaveArtifactRollsBackWhenPointerFails(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	require.NoError(t, s.EnsureDir())

	// A non-empty directory in place of the pointer makes the rename fail.
	blocker := filepath.Join(s.Dir(), LatestFile)
	require.NoError(t, os.Mkdir(blocker, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), nil, 0o644))

	name := "radar_with_map_20240502000000.gif"
	err := s.SaveArtifact(name, writeString("GIF89a"))
	require.Error(t, err)

	_, statErr := os.Stat(s.Path(name))
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	items, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, items)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the blocking directory may remain")
}

func TestLatestWithoutPointer(t *testing.T) {
	s := NewDiskStore(t.TempDir())

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestPointingAtMissingFile(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), LatestFile), []byte("radar_with_map_20200101000000.gif"), 0o644))

	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSkipsForeignFiles(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	created := seed(t, s, 3)
	require.NoError(t, s.SaveLayer(0, []byte("raw")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.gif"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "radar_with_map_dir.gif"), 0o755))

	items, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, created, names(items))
}

func TestListMissingDirectory(t *testing.T) {
	s := NewDiskStore(filepath.Join(t.TempDir(), "nope"))

	items, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPruneDeletesOldest(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	created := seed(t, s, 11)

	deleted, err := s.Prune(10)
	require.NoError(t, err)
	assert.Equal(t, created[:1], deleted)

	items, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, created[1:], names(items))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, created[10], latest.Name)
}

func TestPruneUnderLimit(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	created := seed(t, s, 4)

	deleted, err := s.Prune(10)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	items, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, created, names(items))
}

func TestPruneUnlimited(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	seed(t, s, 3)

	deleted, err := s.Prune(0)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestCleanupLayers(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	for i := 0; i < 4; i++ {
		require.NoError(t, s.SaveLayer(i, []byte{byte(i)}))
	}
	// Layer 4 was never written; cleanup must not mind.
	s.CleanupLayers(5)

	for i := 0; i < 5; i++ {
		_, err := os.Stat(s.LayerPath(i))
		assert.True(t, os.IsNotExist(err), "layer %d should be gone", i)
	}
}

func TestPathStaysInsideDir(t *testing.T) {
	s := NewDiskStore("/srv/radar")

	assert.Equal(t, "/srv/radar/passwd", s.Path("../../etc/passwd"))
}
