// internal/cache/store.go

// Package cache memoizes feature-extractor embeddings in process and, optionally,
// in a shared Redis or local bbolt store.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// ErrMiss is returned by Store.Get when no embedding is stored under the key.
var ErrMiss = errors.New("cache miss")

// Store is a persistent embedding backend.
type Store interface {
	Get(ctx context.Context, key string) (inference.Embedding, error)
	Set(ctx context.Context, key string, emb inference.Embedding, ttl time.Duration) error
	Close() error
}

// Config selects the backing store and sizes the in-process LRU.
type Config struct {
	Backend  string        `mapstructure:"backend"`
	LRUSize  int           `mapstructure:"lru_size"`
	TTL      time.Duration `mapstructure:"ttl"`
	Redis    string        `mapstructure:"redis"`
	BoltPath string        `mapstructure:"bolt_path"`
}

// Key namespaces a tensor digest by model so embeddings from different
// extractors never collide.
func Key(model string, t *preprocess.Tensor) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	var dims [16]byte
	binary.LittleEndian.PutUint32(dims[0:], uint32(t.Height))
	binary.LittleEndian.PutUint32(dims[4:], uint32(t.Width))
	binary.LittleEndian.PutUint32(dims[8:], uint32(t.Channels))
	if t.ChannelsLast {
		dims[12] = 1
	}
	_, _ = h.Write(dims[:])
	buf := make([]byte, 0, 4*len(t.Data))
	for _, v := range t.Data {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	_, _ = h.Write(buf)
	return "emb:" + model + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func encodeEmbedding(emb inference.Embedding) []byte {
	buf := make([]byte, 4*len(emb))
	for i, v := range emb {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) (inference.Embedding, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding: %d bytes", len(buf))
	}
	emb := make(inference.Embedding, len(buf)/4)
	for i := range emb {
		emb[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return emb, nil
}
