package storage

import (
	"database/sql"

	"github.com/hpungsan/coursedesk/internal/db"
)

// SQLiteStore keeps values in the local_storage table.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteStore wraps an already initialized database. Close does not close it.
func NewSQLiteStore(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	return db.GetValue(s.db, key)
}

func (s *SQLiteStore) Set(key, value string) error {
	return db.SetValue(s.db, key, value)
}

func (s *SQLiteStore) Remove(key string) error {
	return db.DeleteValue(s.db, key)
}

// Close closes the database only when Open created it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
