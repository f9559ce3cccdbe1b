// Package storage persists uploaded images on disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PhotoStore writes uploaded photos under a base directory, split by kind
// ("users", "tours").
type PhotoStore struct {
	BaseDir string
}

func NewPhotoStore(baseDir string) *PhotoStore {
	return &PhotoStore{BaseDir: baseDir}
}

// Save writes the image bytes and returns the generated filename,
// e.g. user-<id>-<unix>.jpeg.
func (p *PhotoStore) Save(kind, prefix, ownerID string, data []byte) (string, error) {
	dir := filepath.Join(p.BaseDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s-%d.jpeg", prefix, ownerID, time.Now().Unix())
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}
