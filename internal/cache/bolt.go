// internal/cache/bolt.go
package cache

import (
	"context"
	"encoding/binary"
	"time"

	"go.etcd.io/bbolt"

	"github.com/SyedDaiam9101/transfer-classifier/internal/inference"
)

var bucketEmbeddings = []byte("embeddings")

// BoltStore keeps embeddings in a local bbolt file. Each value is prefixed
// with its expiry as unix seconds (0 = never).
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (inference.Embedding, error) {
	var emb inference.Embedding
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbeddings).Get([]byte(key))
		if len(data) < 8 {
			return ErrMiss
		}
		expiry := int64(binary.LittleEndian.Uint64(data[:8]))
		if expiry != 0 && s.now().Unix() >= expiry {
			return ErrMiss
		}
		// data is only valid inside the transaction; decode copies it.
		var err error
		emb, err = decodeEmbedding(data[8:])
		return err
	})
	if err != nil {
		return nil, err
	}
	return emb, nil
}

func (s *BoltStore) Set(_ context.Context, key string, emb inference.Embedding, ttl time.Duration) error {
	var expiry int64
	if ttl > 0 {
		expiry = s.now().Add(ttl).Unix()
	}
	value := make([]byte, 8, 8+4*len(emb))
	binary.LittleEndian.PutUint64(value, uint64(expiry))
	value = append(value, encodeEmbedding(emb)...)

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put([]byte(key), value)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BoltStore)(nil)
