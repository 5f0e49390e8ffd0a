// Package handler wires the HTTP surface: routing, request parsing,
// response shaping, and the single place where error kinds become status
// codes.
package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/apperr"
	"github.com/omidshabab/link-shortener-api/internal/auth"
	"github.com/omidshabab/link-shortener-api/internal/service"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

type Handler struct {
	links     *service.LinkService
	keys      *service.KeyService
	keyStore  *storage.KeyStore
	masterKey string
}

func New(links *service.LinkService, keys *service.KeyService, keyStore *storage.KeyStore, masterKey string) *Handler {
	return &Handler{
		links:     links,
		keys:      keys,
		keyStore:  keyStore,
		masterKey: masterKey,
	}
}

// Register mounts all routes. The bare /:shortCode redirect goes last so it
// cannot shadow the API paths; the trailing Use is the JSON 404 fallback.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.health)

	admin := app.Group("/api/admin", auth.RequireMasterKey(h.masterKey))
	admin.Post("/keys", h.createKey)
	admin.Get("/keys", h.listKeys)
	admin.Patch("/keys/:id/deactivate", h.deactivateKey)
	admin.Delete("/keys/:id", h.deleteKey)

	requireKey := auth.RequireAPIKey(h.keyStore)
	app.Post("/api/shorten", requireKey, h.shorten)
	app.Get("/api/stats/:shortCode", requireKey, h.stats)
	app.Get("/api/links", requireKey, h.listLinks)
	app.Delete("/api/:shortCode", requireKey, h.deleteLink)

	app.Get("/:shortCode", h.redirect)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Route not found"})
	})
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// linkResponse adds the computed short URL to a link representation.
type linkResponse struct {
	internal.Link
	ShortURL string `json:"shortUrl"`
}

func (h *Handler) shorten(c *fiber.Ctx) error {
	var req struct {
		URL        string `json:"url"`
		CustomCode string `json:"customCode,omitempty"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	link, err := h.links.Create(c.Context(), auth.APIKey(c), req.URL, req.CustomCode)
	if err != nil {
		return h.respondError(c, err, "Failed to create short link")
	}
	return c.Status(fiber.StatusCreated).JSON(linkResponse{Link: *link, ShortURL: h.links.ShortURL(link.ShortCode)})
}

func (h *Handler) stats(c *fiber.Ctx) error {
	link, err := h.links.Stats(c.Context(), c.Params("shortCode"))
	if err != nil {
		return h.respondError(c, err, "Failed to fetch link stats")
	}
	return c.JSON(linkResponse{Link: *link, ShortURL: h.links.ShortURL(link.ShortCode)})
}

func (h *Handler) listLinks(c *fiber.Ctx) error {
	page, err := h.links.List(c.Context(), auth.APIKey(c), c.QueryInt("page", 1), c.QueryInt("limit", 50))
	if err != nil {
		return h.respondError(c, err, "Failed to fetch links")
	}

	links := make([]linkResponse, 0, len(page.Links))
	for _, l := range page.Links {
		links = append(links, linkResponse{Link: l, ShortURL: h.links.ShortURL(l.ShortCode)})
	}
	return c.JSON(fiber.Map{
		"links": links,
		"pagination": fiber.Map{
			"page":       page.Page,
			"limit":      page.Limit,
			"total":      page.Total,
			"totalPages": page.TotalPages,
		},
	})
}

func (h *Handler) deleteLink(c *fiber.Ctx) error {
	if err := h.links.Delete(c.Context(), auth.APIKey(c), c.Params("shortCode")); err != nil {
		return h.respondError(c, err, "Failed to delete link")
	}
	return c.JSON(fiber.Map{"message": "Link deleted successfully"})
}

func (h *Handler) redirect(c *fiber.Ctx) error {
	target, err := h.links.Resolve(c.Context(), c.Params("shortCode"))
	if err != nil {
		return h.respondError(c, err, "Failed to redirect")
	}
	return c.Redirect(target, fiber.StatusMovedPermanently)
}

func (h *Handler) createKey(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	key, err := h.keys.Issue(c.Context(), req.Name)
	if err != nil {
		return h.respondError(c, err, "Failed to create API key")
	}
	return c.Status(fiber.StatusCreated).JSON(key)
}

func (h *Handler) listKeys(c *fiber.Ctx) error {
	keys, err := h.keys.List(c.Context())
	if err != nil {
		return h.respondError(c, err, "Failed to fetch API keys")
	}
	return c.JSON(fiber.Map{"keys": keys})
}

func (h *Handler) deactivateKey(c *fiber.Ctx) error {
	key, err := h.keys.Deactivate(c.Context(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err, "Failed to deactivate API key")
	}
	return c.JSON(fiber.Map{
		"id":       key.ID,
		"name":     key.Name,
		"isActive": key.IsActive,
	})
}

func (h *Handler) deleteKey(c *fiber.Ctx) error {
	if err := h.keys.Delete(c.Context(), c.Params("id")); err != nil {
		return h.respondError(c, err, "Failed to delete API key")
	}
	return c.JSON(fiber.Map{"message": "API key deleted successfully"})
}

// respondError maps an error kind to its status code. 4xx kinds may carry a
// caller-facing message; everything else is logged and returned as the
// generic fallback so no store detail leaks.
func (h *Handler) respondError(c *fiber.Ctx, err error, fallback string) error {
	var status int
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = fiber.StatusConflict
	default:
		slog.Error("request failed", "path", c.Path(), "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}

	return c.Status(status).JSON(fiber.Map{"error": apperr.Message(err, fallback)})
}
