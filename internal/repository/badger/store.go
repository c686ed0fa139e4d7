// Package badger stores the catalog, accounts and sessions in an embedded
// Badger database through badgerhold.
package badger

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/timshannon/badgerhold/v4"
)

// Store manages the Badger database connection
type Store struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

// Open opens (creating if needed) the Badger database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug("badger database opened", "path", path)

	return &Store{store: store, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
