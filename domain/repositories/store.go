package repositories

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key has never been set or
// was deleted.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the durable persistence boundary. Values written by
// Set must survive process restarts and be returned verbatim by Get.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
