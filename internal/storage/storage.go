// Package storage provides the string-keyed persistence the client state sits on.
// It plays the role browser local storage plays for a web client.
package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/hpungsan/coursedesk/internal/config"
	"github.com/hpungsan/coursedesk/internal/db"
)

// ErrQuotaExceeded is returned by a store that refuses a write for size reasons.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Storage is a synchronous string key/value store.
type Storage interface {
	// Get returns the value under key. The bool is false when the key is absent.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Backend is a Storage that owns resources.
type Backend interface {
	Storage
	io.Closer
}

// Open returns the backend selected by cfg.StorageBackend.
// baseDir is where the sqlite file lives.
func Open(cfg *config.Config, baseDir string) (Backend, error) {
	switch cfg.StorageBackend {
	case "", config.BackendSQLite:
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(database, cfg)
		return &SQLiteStore{db: database, owned: true}, nil
	case config.BackendRedis:
		return NewRedisStore(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.StorageTimeout(),
		})
	case config.BackendMemory:
		return NewMemoryStore(0), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.StorageBackend)
	}
}
