// Package storage opens the repositories for the configured driver.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/config"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository/badger"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository/postgres"
)

// Drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Stores bundles the repositories of one backend.
type Stores struct {
	Products  repository.ProductRepository
	Users     repository.UserRepository
	Sessions  repository.SessionRepository
	// Exclusive is true when no other process can write these stores.
	Exclusive bool

	ping  func(ctx context.Context) error
	close func() error
}

// Open connects to the backend named by cfg.Driver. The memory driver
// starts with the demo catalog; persistent drivers get it only when empty
// and seed is true.
func Open(ctx context.Context, cfg config.StorageConfig, seed bool, logger *slog.Logger) (*Stores, error) {
	var (
		s   *Stores
		err error
	)

	switch cfg.Driver {
	case DriverMemory, "":
		products := repository.NewInMemoryProductRepository()
		if seed {
			products = repository.NewSeededProductRepository()
		}
		s = &Stores{
			Products:  products,
			Users:     repository.NewInMemoryUserRepository(),
			Sessions:  repository.NewInMemorySessionRepository(),
			Exclusive: true,
		}
		logger.Info("using in-memory storage")
		return s, nil
	case DriverPostgres:
		s, err = openPostgres(ctx, cfg.DatabaseURL)
	case DriverBadger:
		s, err = openBadger(cfg.BadgerPath, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("storage opened", "driver", cfg.Driver)

	if seed {
		n, err := repository.SeedIfEmpty(ctx, s.Products, time.Now().UTC())
		if err != nil {
			return nil, errors.Join(fmt.Errorf("seed catalog: %w", err), s.Close())
		}
		if n > 0 {
			logger.Info("seeded empty catalog", "products", n)
		}
	}
	return s, nil
}

func openPostgres(ctx context.Context, url string) (*Stores, error) {
	db, err := postgres.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := postgres.AutoMigrate(db); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return &Stores{
		Products: postgres.NewProductRepository(db),
		Users:    postgres.NewUserRepository(db),
		Sessions: postgres.NewSessionRepository(db),
		ping:     pinger(db),
		close:    db.Close,
	}, nil
}

func pinger(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	}
}

func openBadger(path string, logger *slog.Logger) (*Stores, error) {
	db, err := badger.Open(path, logger)
	if err != nil {
		return nil, err
	}

	// Badger holds a directory lock, so this process is the only writer.
	return &Stores{
		Products:  badger.NewProductRepository(db),
		Users:     badger.NewUserRepository(db),
		Sessions:  badger.NewSessionRepository(db),
		Exclusive: true,
		close:     db.Close,
	}, nil
}

// Ping checks the backend connection. It is nil for backends that have
// nothing to check.
func (s *Stores) Ping() func(ctx context.Context) error {
	return s.ping
}

// Close releases the backend.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
