package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
)

type LinkStore struct {
	db *gorm.DB
}

func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

// Create inserts the link. A violation of the short-code unique index comes
// back as apperr.ErrConflict so callers can tell a lost allocation race from
// a store fault.
func (s *LinkStore) Create(ctx context.Context, link *internal.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: short code already taken", apperr.ErrConflict)
		}
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

func (s *LinkStore) GetByCode(ctx context.Context, code string) (*internal.Link, error) {
	var link internal.Link
	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.ErrNotFound, "Link not found")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup link by code: %w", err)
	}
	return &link, nil
}

func (s *LinkStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&internal.Link{}).
		Where("short_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check short code existence: %w", err)
	}
	return count > 0, nil
}

// ListByOwner returns one page of the owner's links, newest first, plus the
// owner's total link count.
func (s *LinkStore) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]internal.Link, int64, error) {
	var total int64
	base := s.db.WithContext(ctx).Model(&internal.Link{}).Where("api_key_id = ?", ownerID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}

	links := make([]internal.Link, 0, limit)
	err := s.db.WithContext(ctx).
		Where("api_key_id = ?", ownerID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	return links, total, nil
}

func (s *LinkStore) Delete(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Where("short_code = ?", code).Delete(&internal.Link{})
	if res.Error != nil {
		return fmt.Errorf("delete link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E(apperr.ErrNotFound, "Link not found")
	}
	return nil
}

// IncrementClicks bumps the counter in a single UPDATE expression. The
// store applies the increment atomically, so concurrent redirects never
// lose updates.
func (s *LinkStore) IncrementClicks(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).
		Model(&internal.Link{}).
		Where("short_code = ?", code).
		Update("clicks", gorm.Expr("clicks + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("increment clicks: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.E(apperr.ErrNotFound, "Link not found")
	}
	return nil
}
