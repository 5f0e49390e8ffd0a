// Package service orchestrates link and key operations on top of the store
// accessors. Ownership and validation rules live here; HTTP concerns do not.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
	"github.com/omidshabab/link-shortener-api/internal/shortcode"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

// allocationAttempts is the retry budget for generated-code allocation.
// A duplicate-key insert consumes an attempt just like a hit on the
// existence check.
const allocationAttempts = 10

type LinkService struct {
	links  *storage.LinkStore
	domain string

	// generate draws candidate codes; swappable in tests.
	generate func() (string, error)
}

func NewLinkService(links *storage.LinkStore, domain string) *LinkService {
	return &LinkService{
		links:    links,
		domain:   strings.TrimRight(domain, "/"),
		generate: shortcode.Generate,
	}
}

// ShortURL composes the public short URL for a code.
func (s *LinkService) ShortURL(code string) string {
	return s.domain + "/" + code
}

// Create persists a new link owned by the caller's key. A caller-supplied
// custom code is validated and checked once; otherwise a code is allocated
// under the retry budget.
func (s *LinkService) Create(ctx context.Context, owner *internal.ApiKey, rawURL, customCode string) (*internal.Link, error) {
	original, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if customCode != "" {
		return s.createWithCustomCode(ctx, owner, original, customCode)
	}
	return s.createWithGeneratedCode(ctx, owner, original)
}

func (s *LinkService) createWithCustomCode(ctx context.Context, owner *internal.ApiKey, original, code string) (*internal.Link, error) {
	if len(code) > shortcode.MaxLength {
		return nil, apperr.E(apperr.ErrValidation, "Custom code must be 5 characters or less")
	}
	if !shortcode.Valid(code) {
		return nil, apperr.E(apperr.ErrValidation, "Custom code must be alphanumeric")
	}

	exists, err := s.links.CodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.E(apperr.ErrConflict, "Custom code already in use")
	}

	link := &internal.Link{ShortCode: code, OriginalURL: original, ApiKeyID: owner.ID}
	if err := s.links.Create(ctx, link); err != nil {
		// Lost the check-then-insert race; the unique index caught it.
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.E(apperr.ErrConflict, "Custom code already in use")
		}
		return nil, err
	}
	return link, nil
}

func (s *LinkService) createWithGeneratedCode(ctx context.Context, owner *internal.ApiKey, original string) (*internal.Link, error) {
	for attempt := 0; attempt < allocationAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate short code: %w", err)
		}

		exists, err := s.links.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		link := &internal.Link{ShortCode: code, OriginalURL: original, ApiKeyID: owner.ID}
		err = s.links.Create(ctx, link)
		if errors.Is(err, apperr.ErrConflict) {
			// Another request claimed the code between check and insert.
			continue
		}
		if err != nil {
			return nil, err
		}
		return link, nil
	}
	return nil, apperr.ErrExhausted
}

// Stats returns a link by code. Deliberately not owner-scoped: any valid
// key may read any link's stats.
func (s *LinkService) Stats(ctx context.Context, code string) (*internal.Link, error) {
	return s.links.GetByCode(ctx, code)
}

// LinkPage is one page of an owner's links plus pagination totals.
type LinkPage struct {
	Links      []internal.Link
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

const (
	defaultPage  = 1
	defaultLimit = 50
)

// List returns the caller's own links, newest first.
func (s *LinkService) List(ctx context.Context, owner *internal.ApiKey, page, limit int) (*LinkPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	links, total, err := s.links.ListByOwner(ctx, owner.ID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &LinkPage{
		Links:      links,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Delete removes a link after checking the caller owns it.
func (s *LinkService) Delete(ctx context.Context, owner *internal.ApiKey, code string) error {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if link.ApiKeyID != owner.ID {
		return apperr.E(apperr.ErrForbidden, "Not authorized to delete this link")
	}
	return s.links.Delete(ctx, code)
}

// Resolve maps a short code to its destination and records the visit.
// Malformed codes report not-found, indistinguishable from true absence.
// The increment is attempted on every resolution but its failure never
// blocks the redirect.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	if !shortcode.Valid(code) {
		// Same outcome as an absent code so callers cannot probe validity.
		return "", apperr.E(apperr.ErrNotFound, "Link not found")
	}

	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}

	if err := s.links.IncrementClicks(ctx, code); err != nil {
		slog.Error("failed to record click", "short_code", code, "err", err)
	}
	return link.OriginalURL, nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.E(apperr.ErrValidation, "URL is required")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperr.E(apperr.ErrValidation, "Invalid URL format")
	}
	return raw, nil
}
