// Package storage provides the persistence abstraction for client-held state.
//
// Values are opaque byte slices grouped into named buckets. The session and
// cart stores each own a fixed set of keys inside a shared bucket.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key does not exist in its bucket.
	ErrNotFound = errors.New("record not found")
	// ErrBucketNotFound is returned when a bucket has never been written.
	ErrBucketNotFound = errors.New("bucket not found")
)

// BatchTx provides Put and Delete within an atomic transaction.
// The bucket is scoped to the batch, so methods don't require it.
type BatchTx interface {
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key inside a batch is not an
	// error, so a batch can clear a partially written record set.
	Delete(key string) error
}

// Repository defines the interface for client state storage.
type Repository interface {
	Put(bucket, key string, value []byte) error
	Get(bucket, key string) ([]byte, error)
	Delete(bucket, key string) error
	List(bucket string) ([]string, error)
	Batch(bucket string, fn func(tx BatchTx) error) error
}

// ClientStateBucket is the bucket holding the session and cart keys.
const ClientStateBucket = "client_state"

// Purge deletes every key in bucket and returns how many were removed.
// Keys that disappear while purging are not an error.
func Purge(repo Repository, bucket string) (int, error) {
	keys, err := repo.List(bucket)
	if err != nil {
		if errors.Is(err, ErrBucketNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, key := range keys {
		err := repo.Delete(bucket, key)
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrBucketNotFound):
		default:
			return n, fmt.Errorf("deleting %s/%s: %w", bucket, key, err)
		}
	}
	return n, nil
}
