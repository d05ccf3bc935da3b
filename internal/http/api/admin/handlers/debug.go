package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keyrelay/keyrelay/internal/store"
)

// ProductLister is the slice of the supplier client the debug endpoint needs.
type ProductLister interface {
	ListProducts(ctx context.Context, baseURL, apiKey string) (any, error)
}

// DebugHandler exposes the raw supplier product list for a configured key,
// so operators can inspect what the upstream actually returns.
type DebugHandler struct {
	store  *store.KeymapStore // Key store access.
	client ProductLister      // Supplier list call.
}

// NewDebugHandler constructs a DebugHandler.
func NewDebugHandler(keymaps *store.KeymapStore, client ProductLister) *DebugHandler {
	return &DebugHandler{store: keymaps, client: client}
}

// ListProducts handles GET /debuglist: look the key up and return the
// supplier's list document untouched. Unlike the public endpoints, failures
// surface as real HTTP errors.
func (h *DebugHandler) ListProducts(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.String(http.StatusBadRequest, "missing ?key=... parameter")
		return
	}

	mapping, errLookup := h.store.Lookup(c.Request.Context(), key)
	if errLookup != nil {
		if errors.Is(errLookup, store.ErrNotFound) {
			c.String(http.StatusNotFound, "unknown key: %s", key)
			return
		}
		c.String(http.StatusInternalServerError, "key store lookup failed")
		return
	}

	doc, errList := h.client.ListProducts(c.Request.Context(), mapping.BaseURL, mapping.APIKey)
	if errList != nil {
		c.String(http.StatusInternalServerError, "supplier call failed: %v", errList)
		return
	}
	c.JSON(http.StatusOK, doc)
}
