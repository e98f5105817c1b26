package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StaticPrefix is the URL path under which local artifacts are served.
const StaticPrefix = "/static/"

// LocalStore writes artifacts into a directory served by the HTTP server.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the artifact directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put writes data to <dir>/<id><ext> through a temp file and rename.
func (s *LocalStore) Put(_ context.Context, id, contentType string, data []byte) (Artifact, error) {
	name := id + extension(contentType)
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("rename artifact: %w", err)
	}

	return Artifact{
		ID:          id,
		Path:        path,
		URL:         s.baseURL + StaticPrefix + name,
		ContentType: contentType,
		Data:        data,
	}, nil
}

var _ ArtifactStore = (*LocalStore)(nil)

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
