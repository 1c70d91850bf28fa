// internal/imagestore/store.go
package imagestore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

// Store resolves manifest-relative image paths to image bytes.
type Store interface {
	// Open returns the image at relPath. A path outside the store root is
	// rejected with *errs.InvalidImagePathError and a missing image is
	// reported as *errs.ImageNotFoundError.
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	Type() string
}

// CheckPath rejects paths that are empty, absolute, or contain ".." elements
// escaping the store root.
func CheckPath(relPath string) error {
	if !filepath.IsLocal(filepath.FromSlash(relPath)) {
		return &errs.InvalidImagePathError{Path: relPath}
	}
	return nil
}

// Config selects and configures a Store backend.
type Config struct {
	Type string   `mapstructure:"type"`
	Dir  string   `mapstructure:"dir"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config configures the s3 backend. Endpoint may be empty for AWS itself.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// New builds the Store named by cfg.Type. An empty type means local.
func New(ctx context.Context, cfg Config) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		key = "local"
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported image store type: %s", cfg.Type)
	}
	return factory(ctx, cfg)
}
