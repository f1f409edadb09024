package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/pawhaven/voicecore/domain/repositories"
)

func runStoreContract(t *testing.T, s repositories.KeyValueStore) {
	ctx := context.Background()

	t.Run("GetMissingKey", func(t *testing.T) {
		_, err := s.Get(ctx, "never-set")
		if !errors.Is(err, repositories.ErrKeyNotFound) {
			t.Errorf("Expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("SetAndGet", func(t *testing.T) {
		if err := s.Set(ctx, "alerts:pending", []byte(`[{"id":"a1"}]`)); err != nil {
			t.Fatalf("Failed to set key: %v", err)
		}

		value, err := s.Get(ctx, "alerts:pending")
		if err != nil {
			t.Fatalf("Failed to get key: %v", err)
		}
		if string(value) != `[{"id":"a1"}]` {
			t.Errorf("Expected stored value back, got %s", value)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "alerts:pending", []byte("second")); err != nil {
			t.Fatalf("Failed to overwrite key: %v", err)
		}

		value, err := s.Get(ctx, "alerts:pending")
		if err != nil {
			t.Fatalf("Failed to get key: %v", err)
		}
		if string(value) != "second" {
			t.Errorf("Expected overwritten value, got %s", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Set(ctx, "doomed", []byte("x")); err != nil {
			t.Fatalf("Failed to set key: %v", err)
		}
		if err := s.Delete(ctx, "doomed"); err != nil {
			t.Fatalf("Failed to delete key: %v", err)
		}

		_, err := s.Get(ctx, "doomed")
		if !errors.Is(err, repositories.ErrKeyNotFound) {
			t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
		}
	})

	t.Run("DeleteMissingKey", func(t *testing.T) {
		if err := s.Delete(ctx, "never-set"); err != nil {
			t.Errorf("Deleting a missing key should not error, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	runStoreContract(t, s)

	t.Run("ValueIsolation", func(t *testing.T) {
		ctx := context.Background()
		original := []byte("immutable")
		if err := s.Set(ctx, "iso", original); err != nil {
			t.Fatalf("Failed to set key: %v", err)
		}
		original[0] = 'X'

		value, err := s.Get(ctx, "iso")
		if err != nil {
			t.Fatalf("Failed to get key: %v", err)
		}
		if string(value) != "immutable" {
			t.Errorf("Expected stored value to be isolated from caller's slice, got %s", value)
		}

		value[0] = 'Y'
		again, err := s.Get(ctx, "iso")
		if err != nil {
			t.Fatalf("Failed to get key: %v", err)
		}
		if string(again) != "immutable" {
			t.Errorf("Expected returned value to be a copy, got %s", again)
		}
	})
}

func TestBadgerStore(t *testing.T) {
	logger := zaptest.NewLogger(t)

	s, err := NewBadgerStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("Failed to open badger store: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(dir, logger)
	if err != nil {
		t.Fatalf("Failed to open badger store: %v", err)
	}
	if err := s.Set(ctx, "alerts:pending", []byte("persisted")); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	reopened, err := NewBadgerStore(dir, logger)
	if err != nil {
		t.Fatalf("Failed to reopen badger store: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get(ctx, "alerts:pending")
	if err != nil {
		t.Fatalf("Failed to get key after reopen: %v", err)
	}
	if string(value) != "persisted" {
		t.Errorf("Expected value to survive reopen, got %s", value)
	}
}

// TestMongoStore_Integration requires a running MongoDB instance
// (skipped if MONGODB_URI is not set)
func TestMongoStore_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	logger := zaptest.NewLogger(t)
	s, err := NewMongoStore(mongoURI, "voicecore_test", logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}
