package httpx

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/urbandrip/storefront-api/internal/orders"
	"github.com/urbandrip/storefront-api/internal/redisx"
)

// CatalogHandler serves the public product listing (ProductCard grid).
type CatalogHandler struct {
	Products ProductStore
	Redis    redis.Cmdable
	CacheTTL time.Duration
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/api/productos", h.listProducts)
	r.Get("/api/productos/{id}", h.getProduct)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if s, err := h.Redis.Get(ctx, redisx.KeyCatalogActive).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	ps, err := h.Products.ListProducts(ctx, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := json.Marshal(ps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Redis.Set(ctx, redisx.KeyCatalogActive, b, h.CacheTTL).Err(); err != nil {
		log.Printf("catalog cache set: %v", err)
	}
	writeJSON(w, http.StatusOK, json.RawMessage(b))
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(w, id) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.Status != orders.ProductActive {
		writeMsg(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// invalidateCatalog drops the cached listing after stock or status changes.
func invalidateCatalog(ctx context.Context, rdb redis.Cmdable) {
	if err := rdb.Del(ctx, redisx.KeyCatalogActive).Err(); err != nil {
		log.Printf("catalog cache invalidate: %v", err)
	}
}
