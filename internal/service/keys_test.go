package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

var tokenPattern = regexp.MustCompile(`^sk_[A-Za-z0-9_-]{32}$`)

func newTestKeyService(t *testing.T) (*KeyService, *storage.KeyStore, *storage.LinkStore) {
	t.Helper()
	db := newTestDB(t)
	keys := storage.NewKeyStore(db)
	return NewKeyService(keys), keys, storage.NewLinkStore(db)
}

func TestIssue(t *testing.T) {
	svc, _, _ := newTestKeyService(t)
	ctx := context.Background()

	key, err := svc.Issue(ctx, "svc1")
	require.NoError(t, err)
	assert.Regexp(t, tokenPattern, key.Key)
	assert.Equal(t, "svc1", key.Name)
	assert.True(t, key.IsActive)
	assert.NotEmpty(t, key.ID)

	other, err := svc.Issue(ctx, "svc2")
	require.NoError(t, err)
	assert.NotEqual(t, key.Key, other.Key)
}

func TestIssue_NameRequired(t *testing.T) {
	svc, _, _ := newTestKeyService(t)

	for _, name := range []string{"", "   "} {
		_, err := svc.Issue(context.Background(), name)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestDeactivate(t *testing.T) {
	svc, keys, _ := newTestKeyService(t)
	ctx := context.Background()

	key, err := svc.Issue(ctx, "svc1")
	require.NoError(t, err)

	updated, err := svc.Deactivate(ctx, key.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	// The record survives; the token itself is unchanged and the auth
	// guard is what rejects it from now on.
	got, err := keys.GetByToken(ctx, key.Key)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = svc.Deactivate(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_CascadesToLinks(t *testing.T) {
	svc, keys, links := newTestKeyService(t)
	ctx := context.Background()

	key, err := svc.Issue(ctx, "svc1")
	require.NoError(t, err)

	for _, code := range []string{"c1", "c2"} {
		require.NoError(t, links.Create(ctx, &internal.Link{
			ShortCode: code, OriginalURL: "https://example.com/" + code, ApiKeyID: key.ID,
		}))
	}

	require.NoError(t, svc.Delete(ctx, key.ID))

	_, err = keys.GetByID(ctx, key.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	for _, code := range []string{"c1", "c2"} {
		_, err := links.GetByCode(ctx, code)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}

	assert.ErrorIs(t, svc.Delete(ctx, key.ID), apperr.ErrNotFound)
}

func TestList_IncludesLinkCounts(t *testing.T) {
	svc, _, links := newTestKeyService(t)
	ctx := context.Background()

	busy, err := svc.Issue(ctx, "busy")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, "idle")
	require.NoError(t, err)

	require.NoError(t, links.Create(ctx, &internal.Link{
		ShortCode: "b1", OriginalURL: "https://example.com/b1", ApiKeyID: busy.ID,
	}))

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Name] = row.LinkCount
	}
	assert.Equal(t, int64(1), counts["busy"])
	assert.Equal(t, int64(0), counts["idle"])
}
