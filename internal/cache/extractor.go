// internal/cache/extractor.go
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/metrics"
	"github.com/SyedDaiam9101/transfer-classifier/internal/preprocess"
)

// Extractor decorates an inference.Extractor with an LRU in front of an
// optional Store. Cache errors are logged and never fail an extraction.
type Extractor struct {
	next  inference.Extractor
	lru   *expirable.LRU[string, inference.Embedding]
	store Store
	ttl   time.Duration
}

// Wrap returns next unchanged when size <= 0 and store is nil.
func Wrap(next inference.Extractor, size int, ttl time.Duration, store Store) inference.Extractor {
	if next == nil || (size <= 0 && store == nil) {
		return next
	}
	e := &Extractor{next: next, store: store, ttl: ttl}
	if size > 0 {
		e.lru = expirable.NewLRU[string, inference.Embedding](size, nil, ttl)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, t *preprocess.Tensor) (inference.Embedding, error) {
	// Shape problems must surface as errors, not as cache lookups.
	if err := e.next.Spec().CheckShape(t); err != nil {
		return nil, err
	}

	key := Key(e.next.Name(), t)
	logger := logging.FromContext(ctx)

	if e.lru != nil {
		if cached, ok := e.lru.Get(key); ok {
			metrics.RecordCacheLookup("lru", "hit")
			return clone(cached), nil
		}
		metrics.RecordCacheLookup("lru", "miss")
	}

	if e.store != nil {
		cached, err := e.store.Get(ctx, key)
		switch {
		case err == nil:
			metrics.RecordCacheLookup("store", "hit")
			e.remember(key, cached)
			return cached, nil
		case errors.Is(err, ErrMiss):
			metrics.RecordCacheLookup("store", "miss")
		default:
			metrics.RecordCacheLookup("store", "error")
			logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	emb, err := e.next.Extract(ctx, t)
	if err != nil {
		return nil, err
	}

	e.remember(key, emb)
	if e.store != nil {
		if err := e.store.Set(ctx, key, emb, e.ttl); err != nil {
			logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return emb, nil
}

func (e *Extractor) remember(key string, emb inference.Embedding) {
	if e.lru != nil {
		e.lru.Add(key, clone(emb))
	}
}

func (e *Extractor) Spec() inference.Spec {
	return e.next.Spec()
}

func (e *Extractor) Name() string {
	return e.next.Name()
}

// Close closes the store and the wrapped extractor.
func (e *Extractor) Close() error {
	var storeErr error
	if e.store != nil {
		storeErr = e.store.Close()
	}
	return errors.Join(storeErr, e.next.Close())
}

func clone(values inference.Embedding) inference.Embedding {
	if len(values) == 0 {
		return nil
	}
	out := make(inference.Embedding, len(values))
	copy(out, values)
	return out
}

var _ inference.Extractor = (*Extractor)(nil)
