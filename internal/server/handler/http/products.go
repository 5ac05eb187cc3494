package http

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/upstream"
)

// CatalogService defines the catalog queries required by the HTTP handlers.
type CatalogService interface {
	// Products returns the product list or, with a slug, one product.
	Products(ctx context.Context, query url.Values) (*upstream.Response, error)
	// VendorProducts returns the vendor product list.
	VendorProducts(ctx context.Context, query url.Values) (*upstream.Response, error)
}

// CatalogHandler serves the product and vendor product listings.
type CatalogHandler struct {
	Catalog CatalogService
	// AdminURL is reported in product failures to aid debugging.
	AdminURL string
	Log      *zap.Logger
}

// Products handles GET /api/products.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Catalog.Products(r.Context(), r.URL.Query())
	if err != nil {
		logError(h.Log, "product list failed", r, err)
		writeFailure(w, http.StatusInternalServerError, "Failed to fetch products", map[string]any{
			"error":    err.Error(),
			"adminUrl": h.AdminURL,
		})
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// VendorProducts handles GET /api/vendor-products.
func (h *CatalogHandler) VendorProducts(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Catalog.VendorProducts(r.Context(), r.URL.Query())
	if err != nil {
		logError(h.Log, "vendor product list failed", r, err)
		writeFailure(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// VendorProductsOptions answers a bare OPTIONS request for vendor products.
// CORS preflights carrying Access-Control-Request-Method are answered by
// the cors middleware before reaching this handler.
func (h *CatalogHandler) VendorProductsOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}
