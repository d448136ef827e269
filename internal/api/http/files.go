package httpapi

import (
	"io/fs"
	"net/http"
	"strings"
)

// outputFS serves the output directory. Dot-prefixed entries are staging
// files of an in-progress write and stay invisible.
type outputFS struct {
	root http.FileSystem
}

func newOutputFS(dir string) outputFS {
	return outputFS{root: http.Dir(dir)}
}

func (o outputFS) Open(name string) (http.File, error) {
	if hidden(name) {
		return nil, fs.ErrNotExist
	}
	f, err := o.root.Open(name)
	if err != nil {
		return nil, err
	}
	return visibleFile{f}, nil
}

// visibleFile drops hidden entries from directory listings.
type visibleFile struct {
	http.File
}

func (f visibleFile) Readdir(count int) ([]fs.FileInfo, error) {
	entries, err := f.File.Readdir(count)
	visible := entries[:0]
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible = append(visible, e)
		}
	}
	return visible, err
}

func hidden(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
