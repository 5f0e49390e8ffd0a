package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database shared across the
	// pool and serializes concurrent access.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&internal.ApiKey{}, &internal.Link{}))
	return db
}

func seedKey(t *testing.T, keys *storage.KeyStore, name string) *internal.ApiKey {
	t.Helper()
	key := &internal.ApiKey{Key: "sk_" + name, Name: name, IsActive: true}
	require.NoError(t, keys.Create(context.Background(), key))
	return key
}

func TestLinkStore_CreateDuplicateCode(t *testing.T) {
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	links := storage.NewLinkStore(db)
	ctx := context.Background()

	owner := seedKey(t, keys, "svc1")
	require.NoError(t, links.Create(ctx, &internal.Link{
		ShortCode: "aZ3Q9", OriginalURL: "https://example.com", ApiKeyID: owner.ID,
	}))

	err := links.Create(ctx, &internal.Link{
		ShortCode: "aZ3Q9", OriginalURL: "https://example.org", ApiKeyID: owner.ID,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestLinkStore_IncrementClicks(t *testing.T) {
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	links := storage.NewLinkStore(db)
	ctx := context.Background()

	owner := seedKey(t, keys, "svc1")
	require.NoError(t, links.Create(ctx, &internal.Link{
		ShortCode: "go", OriginalURL: "https://go.dev", ApiKeyID: owner.ID,
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, links.IncrementClicks(ctx, "go"))
	}

	link, err := links.GetByCode(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(5), link.Clicks)

	assert.ErrorIs(t, links.IncrementClicks(ctx, "nope1"), apperr.ErrNotFound)
}

func TestLinkStore_ListByOwner(t *testing.T) {
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	links := storage.NewLinkStore(db)
	ctx := context.Background()

	owner := seedKey(t, keys, "svc1")
	other := seedKey(t, keys, "svc2")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, code := range []string{"l1", "l2", "l3"} {
		require.NoError(t, links.Create(ctx, &internal.Link{
			ShortCode:   code,
			OriginalURL: "https://example.com/" + code,
			ApiKeyID:    owner.ID,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, links.Create(ctx, &internal.Link{
		ShortCode: "x1", OriginalURL: "https://example.com/x", ApiKeyID: other.ID,
	}))

	page, total, err := links.ListByOwner(ctx, owner.ID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "l3", page[0].ShortCode)
	assert.Equal(t, "l2", page[1].ShortCode)

	page, total, err = links.ListByOwner(ctx, owner.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "l1", page[0].ShortCode)
}

func TestKeyStore_ListWithLinkCounts(t *testing.T) {
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	links := storage.NewLinkStore(db)
	ctx := context.Background()

	busy := seedKey(t, keys, "busy")
	idle := seedKey(t, keys, "idle")

	for _, code := range []string{"b1", "b2"} {
		require.NoError(t, links.Create(ctx, &internal.Link{
			ShortCode: code, OriginalURL: "https://example.com/" + code, ApiKeyID: busy.ID,
		}))
	}

	rows, err := keys.ListWithLinkCounts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.LinkCount
	}
	assert.Equal(t, int64(2), counts[busy.ID])
	assert.Equal(t, int64(0), counts[idle.ID])
}

func TestKeyStore_Deactivate(t *testing.T) {
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	ctx := context.Background()

	key := seedKey(t, keys, "svc1")
	require.NoError(t, keys.Deactivate(ctx, key.ID))

	got, err := keys.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t, keys.Deactivate(ctx, "missing"), apperr.ErrNotFound)
}

func TestKeyStore_GetByToken(t *testing.T) {
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	ctx := context.Background()

	key := seedKey(t, keys, "svc1")

	got, err := keys.GetByToken(ctx, key.Key)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)

	_, err = keys.GetByToken(ctx, "sk_unknown")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
