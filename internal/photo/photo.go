// Package photo is the blob storage boundary for device photos. The core
// only depends on Put returning a stable retrieval URL; compression is
// the client's job and happens before the bytes arrive here.
package photo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Storage accepts a binary blob and returns a stable retrieval URL.
type Storage interface {
	Put(ctx context.Context, path string, data []byte) (string, error)
}

// Path builds the upload path for a device photo:
// devices/{ownerId}/{timestamp}_{front|back}.jpg
func Path(ownerID string, side Side, now time.Time) string {
	return fmt.Sprintf("devices/%s/%d_%s.jpg", ownerID, now.UnixMilli(), side)
}

// FSStorage stores blobs on the local filesystem and serves them from a
// base URL. Partially uploaded photos with no associated listing are
// simply orphaned; no cleanup runs here.
type FSStorage struct {
	root    string
	baseURL string
}

func NewFSStorage(root, baseURL string) *FSStorage {
	return &FSStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *FSStorage) Put(ctx context.Context, path string, data []byte) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("photo: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("photo: write blob: %w", err)
	}

	return s.baseURL + "/" + path, nil
}

// Root returns the directory the blobs live under, for the static file
// handler.
func (s *FSStorage) Root() string {
	return s.root
}

var _ Storage = (*FSStorage)(nil)
