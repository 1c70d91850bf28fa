// internal/cache/cache_test.go
package cache

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

func testOpts() preprocess.Options {
	return preprocess.Options{Width: 4, Height: 4, ChannelsLast: true, Mean: 117, Scale: 1}
}

func tensorOf(c color.RGBA) *preprocess.Tensor {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return preprocess.ExtractPixels(img, testOpts())
}

type memStore struct {
	data   map[string]inference.Embedding
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]inference.Embedding{}}
}

func (m *memStore) Get(_ context.Context, key string) (inference.Embedding, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	emb, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return emb, nil
}

func (m *memStore) Set(_ context.Context, key string, emb inference.Embedding, _ time.Duration) error {
	m.data[key] = emb
	return nil
}

func (m *memStore) Close() error { return nil }

func TestKey_StableAndModelScoped(t *testing.T) {
	red := tensorOf(color.RGBA{R: 255, A: 255})
	assert.Equal(t, Key("inception", red), Key("inception", tensorOf(color.RGBA{R: 255, A: 255})))
	assert.NotEqual(t, Key("inception", red), Key("resnet", red))
	assert.NotEqual(t, Key("inception", red), Key("inception", tensorOf(color.RGBA{G: 255, A: 255})))
}

func TestEmbeddingCodecRoundTrip(t *testing.T) {
	emb := inference.Embedding{1.5, -2.25, 0, 3e10}
	out, err := decodeEmbedding(encodeEmbedding(emb))
	require.NoError(t, err)
	assert.Equal(t, emb, out)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestWrap_NoCacheReturnsInner(t *testing.T) {
	mock := inference.NewMock(testOpts())
	assert.Same(t, inference.Extractor(mock), Wrap(mock, 0, time.Minute, nil))
}

func TestExtractor_LRUHit(t *testing.T) {
	mock := inference.NewMock(testOpts())
	ex := Wrap(mock, 16, time.Minute, nil)

	first, err := ex.Extract(context.Background(), tensorOf(color.RGBA{R: 200, A: 255}))
	require.NoError(t, err)
	second, err := ex.Extract(context.Background(), tensorOf(color.RGBA{R: 200, A: 255}))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mock.Calls())
}

func TestExtractor_StoreHitFillsLRU(t *testing.T) {
	mock := inference.NewMock(testOpts())
	store := newMemStore()
	tensor := tensorOf(color.RGBA{B: 90, A: 255})
	store.data[Key(mock.Name(), tensor)] = inference.Embedding{9, 9, 9, 9, 9, 9}

	ex := Wrap(mock, 16, time.Minute, store)
	emb, err := ex.Extract(context.Background(), tensor)
	require.NoError(t, err)
	assert.Equal(t, inference.Embedding{9, 9, 9, 9, 9, 9}, emb)
	assert.Equal(t, int64(0), mock.Calls())
}

func TestExtractor_StoreErrorFallsThrough(t *testing.T) {
	mock := inference.NewMock(testOpts())
	store := newMemStore()
	store.getErr = errors.New("connection refused")

	ex := Wrap(mock, 0, time.Minute, store)
	emb, err := ex.Extract(context.Background(), tensorOf(color.RGBA{G: 10, A: 255}))
	require.NoError(t, err)
	assert.Len(t, emb, inference.MockEmbeddingDim)
	assert.Equal(t, int64(1), mock.Calls())
}

func TestExtractor_ShapeMismatchNotCached(t *testing.T) {
	mock := inference.NewMock(preprocess.InceptionOptions())
	ex := Wrap(mock, 16, time.Minute, newMemStore())

	_, err := ex.Extract(context.Background(), tensorOf(color.RGBA{A: 255}))
	var dimErr *errs.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
}

func TestBoltStore(t *testing.T) {
	store, err := NewBolt(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", inference.Embedding{1, 2, 3}, 0))
	emb, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, inference.Embedding{1, 2, 3}, emb)
}

func TestBoltStore_Expiry(t *testing.T) {
	store, err := NewBolt(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	defer store.Close()

	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Set(context.Background(), "k", inference.Embedding{1}, time.Minute))

	now = now.Add(2 * time.Minute)
	_, err = store.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestRedisStore_WithServer(t *testing.T) {
	addr := os.Getenv("CLASSIFIER_TEST_REDIS")
	if addr == "" {
		t.Skip("Skipping Redis test: CLASSIFIER_TEST_REDIS not set")
	}

	store, err := NewRedis(context.Background(), addr)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := "emb:test:" + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, store.Set(ctx, key, inference.Embedding{4, 5}, time.Minute))
	emb, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, inference.Embedding{4, 5}, emb)

	_, err = store.Get(ctx, key+":missing")
	require.ErrorIs(t, err, ErrMiss)
}
