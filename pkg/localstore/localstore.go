// Package localstore is the client's durable key/value storage: the place the
// cart and the bearer credential survive between runs.
//
// Six drivers are available:
//   - "file"   one file per key under LOCAL_STORE_ROOT (default)
//   - "memory" process-local, for tests and ephemeral sessions
//   - "redis"  go-redis, keys prefixed with "kisan:"
//   - "sql"    a GORM table on sqlite, postgres, mysql or sqlserver
//   - "s3"     one object per key in S3-compatible storage
//   - "mongo"  one document per key in a MongoDB collection
//
// Quick start:
//
//	st, err := localstore.Open(ctx, config.LocalStoreDriver())
//	_ = st.Set(ctx, "cart", data)
//	data, err := st.Get(ctx, "cart") // localstore.ErrNotFound when absent
package localstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("localstore: not found")

// Store is the durable storage driver interface.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Open builds the named driver from configuration.
func Open(ctx context.Context, driver string) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(""), nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx)
	case "sql":
		return NewSQLStore()
	case "s3":
		return NewS3Store(ctx)
	case "mongo":
		return NewMongoStore(ctx)
	default:
		return nil, fmt.Errorf("localstore: unsupported driver %q (supported: file, memory, redis, sql, s3, mongo)", driver)
	}
}

func validKey(key string) error {
	if key == "" {
		return errors.New("localstore: empty key")
	}
	return nil
}
