// Package auth implements the two credential schemes guarding the API.
// Link management is gated by per-tenant API keys looked up in the store;
// key issuance is gated by a single configured master secret. A leaked
// tenant key must never reach the admin surface, hence two schemes.
package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

const (
	HeaderAPIKey    = "x-api-key"
	HeaderMasterKey = "x-master-key"

	localsAPIKey = "auth.apiKey"
)

// RequireAPIKey resolves the x-api-key header against the key store and
// attaches the key record to the request for downstream ownership checks.
// A store fault is a 500, not an auth rejection.
func RequireAPIKey(keys *storage.KeyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(HeaderAPIKey)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "API key is required"})
		}

		key, err := keys.GetByToken(c.Context(), token)
		if errors.Is(err, apperr.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or inactive API key"})
		}
		if err != nil {
			// Store fault, not a bad credential.
			slog.Error("api key lookup failed", "kind", apperr.ErrAuthInfra.Error(), "err", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Authentication failed"})
		}
		if !key.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or inactive API key"})
		}

		c.Locals(localsAPIKey, key)
		return c.Next()
	}
}

// RequireMasterKey compares the x-master-key header against the configured
// secret. No store involvement.
func RequireMasterKey(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get(HeaderMasterKey)
		if provided == "" || secret == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid master key"})
		}
		return c.Next()
	}
}

// APIKey returns the key record attached by RequireAPIKey, or nil on
// unguarded routes.
func APIKey(c *fiber.Ctx) *internal.ApiKey {
	key, _ := c.Locals(localsAPIKey).(*internal.ApiKey)
	return key
}
