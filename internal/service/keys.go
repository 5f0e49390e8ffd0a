package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

// tokenBytes of randomness per issued token; 24 bytes encode to 32
// base64url characters after the sk_ prefix.
const tokenBytes = 24

type KeyService struct {
	keys *storage.KeyStore
}

func NewKeyService(keys *storage.KeyStore) *KeyService {
	return &KeyService{keys: keys}
}

// Issue creates a new API key. The secret token is returned exactly once,
// here; it is immutable afterwards.
func (s *KeyService) Issue(ctx context.Context, name string) (*internal.ApiKey, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.E(apperr.ErrValidation, "Name is required")
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	key := &internal.ApiKey{Key: token, Name: name, IsActive: true}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (s *KeyService) List(ctx context.Context) ([]storage.KeyWithLinkCount, error) {
	return s.keys.ListWithLinkCounts(ctx)
}

// Deactivate soft-disables a key; its record and links persist, but the
// auth guard rejects the token from then on.
func (s *KeyService) Deactivate(ctx context.Context, id string) (*internal.ApiKey, error) {
	if err := s.keys.Deactivate(ctx, id); err != nil {
		return nil, err
	}
	return s.keys.GetByID(ctx, id)
}

// Delete hard-deletes a key and cascades to every link it owns.
func (s *KeyService) Delete(ctx context.Context, id string) error {
	return s.keys.Delete(ctx, id)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read token randomness: %w", err)
	}
	return "sk_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
