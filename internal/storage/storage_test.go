package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/config"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

var testTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func total(t *testing.T, s *Stores) int {
	t.Helper()
	_, n, err := s.Products.GetAll(context.Background(), models.ProductFilter{})
	require.NoError(t, err)
	return n
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{Driver: DriverMemory}, true, discardLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, len(repository.SeedProducts(testTime)), total(t, s))
	assert.Nil(t, s.Ping())
	assert.True(t, s.Exclusive)

	empty, err := Open(context.Background(), config.StorageConfig{Driver: DriverMemory}, false, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, total(t, empty))
}

func TestOpen_BadgerSeedsOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{Driver: DriverBadger, BadgerPath: dir}
	ctx := context.Background()
	want := len(repository.SeedProducts(testTime))

	s, err := Open(ctx, cfg, true, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, want, total(t, s))
	assert.True(t, s.Exclusive)
	require.NoError(t, s.Close())

	s, err = Open(ctx, cfg, true, discardLogger())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, want, total(t, s), "reopening must not duplicate the seed")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "sqlite"}, false, discardLogger())
	assert.ErrorContains(t, err, "unknown storage driver")
}
