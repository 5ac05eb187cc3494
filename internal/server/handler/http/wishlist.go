package http

import (
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/middleware"
	"github.com/atinyakov/storefront/internal/upstream"
)

// WishlistHandler forwards the wishlist endpoints. Requests reach it only
// through RequireSession, so a session token is always in the context.
type WishlistHandler struct {
	Upstream Forwarder
	Log      *zap.Logger
}

// WishlistAddRequest represents the JSON payload for adding a product.
// ProductID is kept raw so numeric ids are forwarded unchanged.
type WishlistAddRequest struct {
	ProductID json.RawMessage `json:"productId"`
}

// List handles GET /api/wishlist.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, upstream.Request{Method: http.MethodGet, Path: "/api/wishlist"}, "Failed to fetch wishlist")
}

// Add handles POST /api/wishlist with a {"productId": ...} body.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req WishlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(h.Log, "decode wishlist body", r, err)
		writeFailure(w, http.StatusInternalServerError, "Failed to add to wishlist", nil)
		return
	}
	if !present(req.ProductID) {
		writeFailure(w, http.StatusBadRequest, "Product ID is required", nil)
		return
	}
	h.forward(w, r, upstream.Request{
		Method: http.MethodPost,
		Path:   "/api/wishlist",
		Body:   map[string]json.RawMessage{"productId": req.ProductID},
	}, "Failed to add to wishlist")
}

// Remove handles DELETE /api/wishlist?productId=...
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		writeFailure(w, http.StatusBadRequest, "Product ID is required", nil)
		return
	}
	h.forward(w, r, upstream.Request{
		Method: http.MethodDelete,
		Path:   "/api/wishlist",
		Query:  url.Values{"productId": {productID}},
	}, "Failed to remove from wishlist")
}

func (h *WishlistHandler) forward(w http.ResponseWriter, r *http.Request, req upstream.Request, failure string) {
	req.Cookie = middleware.SessionCookie + "=" + middleware.GetSessionToken(r.Context())

	resp, err := h.Upstream.Do(r.Context(), req)
	if err != nil {
		logError(h.Log, "wishlist request failed", r, err)
		writeFailure(w, http.StatusInternalServerError, failure, nil)
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}

// present reports whether a raw JSON value is set and not empty, zero or false.
func present(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case bool:
		return x
	default:
		return true
	}
}
