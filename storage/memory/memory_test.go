package memory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jmcleod/daystore/storage"
)

func TestMemoryRepository(t *testing.T) {
	repo := NewRepository()
	bucket := "client_state"

	t.Run("PutAndGet", func(t *testing.T) {
		if err := repo.Put(bucket, "AUTH", []byte("Basic abc")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := repo.Get(bucket, "AUTH")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "Basic abc" {
			t.Errorf("Get returned %q", got)
		}

		// Returned slices must not alias stored data.
		got[0] = 'X'
		got2, _ := repo.Get(bucket, "AUTH")
		if got2[0] == 'X' {
			t.Error("Memory repository should return copies of values")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := repo.Get("nonexistent", "AUTH")
		if !errors.Is(err, storage.ErrBucketNotFound) {
			t.Errorf("expected ErrBucketNotFound, got %v", err)
		}

		_, err = repo.Get(bucket, "nonexistent")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo.Put(bucket, "CART_V1", []byte("[]"))

		keys, err := repo.List(bucket)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(keys) != 2 || keys[0] != "AUTH" || keys[1] != "CART_V1" {
			t.Errorf("unexpected keys: %v", keys)
		}

		keys, _ = repo.List("nonexistent")
		if len(keys) != 0 {
			t.Errorf("Expected 0 keys for nonexistent bucket, got %d", len(keys))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(bucket, "CART_V1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := repo.Delete(bucket, "CART_V1"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		repo := NewRepository()

		err := repo.Batch(bucket, func(tx storage.BatchTx) error {
			if err := tx.Put("AUTH", []byte("tok")); err != nil {
				return err
			}
			return tx.Put("AUTH_AT", []byte("now"))
		})
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
		if _, err := repo.Get(bucket, "AUTH_AT"); err != nil {
			t.Error("AUTH_AT should exist after batch")
		}

		// Failing batch rolls back both the write and the delete.
		err = repo.Batch(bucket, func(tx storage.BatchTx) error {
			tx.Put("EXTRA", []byte("x"))
			tx.Delete("AUTH")
			return fmt.Errorf("simulated error")
		})
		if err == nil {
			t.Error("Expected error from Batch, got nil")
		}
		if _, err := repo.Get(bucket, "EXTRA"); err == nil {
			t.Error("EXTRA should NOT exist after failed batch")
		}
		if _, err := repo.Get(bucket, "AUTH"); err != nil {
			t.Error("AUTH should survive failed batch")
		}
	})

	t.Run("BatchDeleteMissing", func(t *testing.T) {
		repo := NewRepository()
		err := repo.Batch(bucket, func(tx storage.BatchTx) error {
			return tx.Delete("never-written")
		})
		if err != nil {
			t.Fatalf("expected delete of missing key in batch to succeed, got %v", err)
		}
	})

	t.Run("RollbackNewBucket", func(t *testing.T) {
		repo := NewRepository()
		repo.Batch("fresh", func(tx storage.BatchTx) error {
			tx.Put("k", []byte("v"))
			return fmt.Errorf("boom")
		})
		if _, err := repo.Get("fresh", "k"); !errors.Is(err, storage.ErrBucketNotFound) {
			t.Errorf("expected bucket to be removed on rollback, got %v", err)
		}
	})
}
