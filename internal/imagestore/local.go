// internal/imagestore/local.go
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(_ context.Context, cfg Config) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("image_store.dir is required for local store")
	}
	return NewLocal(cfg.Dir), nil
}

// NewLocal returns a Store reading images below dir.
func NewLocal(dir string) Store {
	return &localStore{dir: dir}
}

func (s *localStore) Type() string {
	return "local"
}

// Open reads relPath below dir. Errors name relPath, not the resolved path.
func (s *localStore) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckPath(relPath); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(relPath)))
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &errs.ImageNotFoundError{Path: relPath, Err: err}
		}
		return nil, fmt.Errorf("failed to open image %s: %w", relPath, err)
	}
	return f, nil
}
