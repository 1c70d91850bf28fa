// internal/imagestore/store_test.go
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

func TestLocalStore_Open(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "food"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "food", "pizza.jpg"), []byte("jpeg"), 0o644))

	store, err := New(context.Background(), Config{Type: "local", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "local", store.Type())

	rc, err := store.Open(context.Background(), "food/pizza.jpg")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
}

func TestLocalStore_NotFound(t *testing.T) {
	store := NewLocal(t.TempDir())

	_, err := store.Open(context.Background(), "missing.jpg")
	var notFound *errs.ImageNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, errs.IsNotFound(err))
}

func TestLocalStore_RejectsPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "images")
	require.NoError(t, os.MkdirAll(root, 0o755))
	outside := filepath.Join(parent, "secret.png")
	require.NoError(t, os.WriteFile(outside, []byte("png"), 0o644))

	store := NewLocal(root)
	for _, p := range []string{"../secret.png", outside, "a/../../secret.png", ""} {
		_, err := store.Open(context.Background(), p)
		var pathErr *errs.InvalidImagePathError
		require.ErrorAs(t, err, &pathErr, p)
		assert.True(t, errs.IsInvalidInput(err))
	}
}

func TestLocalStore_NotFoundHidesRoot(t *testing.T) {
	root := t.TempDir()
	_, err := NewLocal(root).Open(context.Background(), "food/missing.jpg")
	require.True(t, errs.IsNotFound(err))
	assert.NotContains(t, err.Error(), root)
}

func TestCheckPath(t *testing.T) {
	assert.NoError(t, CheckPath("food/pizza.jpg"))
	assert.NoError(t, CheckPath("food/./pizza.jpg"))
	assert.Error(t, CheckPath("/etc/hostname"))
	assert.Error(t, CheckPath("../x.png"))
	assert.Error(t, CheckPath(""))
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "ftp"})
	require.Error(t, err)
}

func TestNew_LocalRequiresDir(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "local"})
	require.Error(t, err)
}

type fakeS3 struct {
	objects map[string][]byte
	lastKey string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = aws.ToString(in.Key)
	data, ok := f.objects[f.lastKey]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store_OpenWithPrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"assets/images/toy.jpg": []byte("toy")}}
	store := newS3Store(fake, "bucket", "/assets/images/")

	rc, err := store.Open(context.Background(), "toy.jpg")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "toy", string(data))
	assert.Equal(t, "assets/images/toy.jpg", fake.lastKey)
}

func TestS3Store_RejectsPathsOutsidePrefix(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"private/key.jpg": []byte("key")}}
	store := newS3Store(fake, "bucket", "public")

	_, err := store.Open(context.Background(), "../private/key.jpg")
	var pathErr *errs.InvalidImagePathError
	require.ErrorAs(t, err, &pathErr)
	assert.Empty(t, fake.lastKey)
}

func TestS3Store_NotFound(t *testing.T) {
	store := newS3Store(&fakeS3{objects: map[string][]byte{}}, "bucket", "")

	_, err := store.Open(context.Background(), "missing.jpg")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	var noSuchKey *types.NoSuchKey
	assert.True(t, errors.As(err, &noSuchKey))
}
