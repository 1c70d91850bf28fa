// internal/dataset/manifest_test.go
package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

func TestManifestLoad(t *testing.T) {
	m := FromBytes("tags.tsv", []byte("broccoli.jpg\tfood\n\nteddy2.jpg\ttoy\r\npizza.jpg\tfood\n"))

	images, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []LabeledImage{
		{Path: "broccoli.jpg", Label: "food"},
		{Path: "teddy2.jpg", Label: "toy"},
		{Path: "pizza.jpg", Label: "food"},
	}, images)
}

func TestManifestMalformedLine(t *testing.T) {
	m := FromBytes("tags.tsv", []byte("a.jpg\tfood\nb.jpg food\n"))

	_, err := m.Load(context.Background())
	require.Error(t, err)

	var formatErr *errs.ManifestFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Equal(t, 2, formatErr.Line)
	assert.Equal(t, 1, formatErr.Columns)
}

func TestManifestTooManyColumns(t *testing.T) {
	m := FromBytes("tags.tsv", []byte("a.jpg\tfood\textra\n"))

	_, err := m.Load(context.Background())
	var formatErr *errs.ManifestFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 3, formatErr.Columns)
}

func TestManifestIsRestartable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a.jpg\tx\nb.jpg\ty\n"), 0o644))

	m := Open(path)
	first, err := m.Load(context.Background())
	require.NoError(t, err)
	second, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestManifestDoesNotTouchImages(t *testing.T) {
	// Paths point nowhere; parsing must still succeed.
	m := FromBytes("tags.tsv", []byte("missing/one.jpg\tx\nmissing/two.jpg\ty\n"))

	images, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestManifestEarlyBreak(t *testing.T) {
	m := FromBytes("tags.tsv", []byte("a.jpg\tx\nb.jpg\ty\nc.jpg\tz\n"))

	var seen []string
	for img, err := range m.All() {
		require.NoError(t, err)
		seen = append(seen, img.Path)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, seen)
}

func TestManifestMissingFile(t *testing.T) {
	m := Open(filepath.Join(t.TempDir(), "nope.tsv"))
	_, err := m.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManifestEmpty(t *testing.T) {
	images, err := FromBytes("empty.tsv", nil).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, images)
}
