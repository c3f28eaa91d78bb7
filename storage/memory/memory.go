// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"sort"
	"sync"

	"github.com/jmcleod/daystore/internal/util"
	"github.com/jmcleod/daystore/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing and for sessions that must not touch disk.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string][]byte)}
}

func (r *Repository) Put(bucket, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.putLocked(bucket, key, value)
}

func (r *Repository) putLocked(bucket, key string, value []byte) error {
	if _, ok := r.data[bucket]; !ok {
		r.data[bucket] = make(map[string][]byte)
	}
	r.data[bucket][key] = util.CopyBytes(value)
	return nil
}

func (r *Repository) Get(bucket, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.data[bucket]
	if !ok {
		return nil, storage.ErrBucketNotFound
	}
	v, ok := b[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return util.CopyBytes(v), nil
}

func (r *Repository) List(bucket string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for k := range r.data[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Repository) Delete(bucket, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[bucket]
	if !ok {
		return storage.ErrBucketNotFound
	}
	if _, ok := b[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b, key)
	return nil
}

// Batch executes fn within a batch transaction. On error, all writes are rolled back.
func (r *Repository) Batch(bucket string, fn func(tx storage.BatchTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotBucket(bucket)

	tx := &memoryBatchTx{repo: r, bucket: bucket}
	if err := fn(tx); err != nil {
		r.restoreBucket(bucket, snapshot)
		return err
	}
	return nil
}

func (r *Repository) snapshotBucket(bucket string) map[string][]byte {
	original, ok := r.data[bucket]
	if !ok {
		return nil
	}
	cp := make(map[string][]byte, len(original))
	for k, v := range original {
		cp[k] = util.CopyBytes(v)
	}
	return cp
}

func (r *Repository) restoreBucket(bucket string, snapshot map[string][]byte) {
	if snapshot == nil {
		delete(r.data, bucket)
	} else {
		r.data[bucket] = snapshot
	}
}

type memoryBatchTx struct {
	repo   *Repository
	bucket string
}

func (tx *memoryBatchTx) Put(key string, value []byte) error {
	return tx.repo.putLocked(tx.bucket, key, value)
}

func (tx *memoryBatchTx) Delete(key string) error {
	if b, ok := tx.repo.data[tx.bucket]; ok {
		delete(b, key)
	}
	return nil
}
