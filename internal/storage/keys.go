// Package storage holds the keyed accessors over the relational store.
// Store errors are classified into apperr kinds here; raw error text stays
// wrapped for logging and never reaches response bodies.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
)

type KeyStore struct {
	db *gorm.DB
}

func NewKeyStore(db *gorm.DB) *KeyStore {
	return &KeyStore{db: db}
}

func (s *KeyStore) Create(ctx context.Context, key *internal.ApiKey) error {
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: duplicate api key token", apperr.ErrConflict)
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// GetByToken resolves a credential by its secret token, verbatim.
func (s *KeyStore) GetByToken(ctx context.Context, token string) (*internal.ApiKey, error) {
	var key internal.ApiKey
	err := s.db.WithContext(ctx).Where("key = ?", token).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "API key not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key by token: %w", err)
	}
	return &key, nil
}

func (s *KeyStore) GetByID(ctx context.Context, id string) (*internal.ApiKey, error) {
	var key internal.ApiKey
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "API key not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup api key by id: %w", err)
	}
	return &key, nil
}

// KeyWithLinkCount is the admin listing row: key attributes plus how many
// links the key owns.
type KeyWithLinkCount struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	LinkCount int64     `json:"linkCount"`
}

func (s *KeyStore) ListWithLinkCounts(ctx context.Context) ([]KeyWithLinkCount, error) {
	var rows []KeyWithLinkCount
	err := s.db.WithContext(ctx).
		Model(&internal.ApiKey{}).
		Select("api_keys.id, api_keys.key, api_keys.name, api_keys.is_active, api_keys.created_at, count(links.id) AS link_count").
		Joins("LEFT JOIN links ON links.api_key_id = api_keys.id").
		Group("api_keys.id").
		Order("api_keys.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return rows, nil
}

// Deactivate flips the active flag; the record persists.
func (s *KeyStore) Deactivate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&internal.ApiKey{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate api key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E(apperr.ErrNotFound, "API key not found")
	}
	return nil
}

// Delete removes the key and every link it owns in one transaction.
func (s *KeyStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("api_key_id = ?", id).Delete(&internal.Link{}).Error; err != nil {
			return fmt.Errorf("delete owned links: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&internal.ApiKey{})
		if res.Error != nil {
			return fmt.Errorf("delete api key: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.E(apperr.ErrNotFound, "API key not found")
		}
		return nil
	})
}
