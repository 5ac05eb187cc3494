package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/upstream"
)

// Forwarder sends one request to the commerce API.
type Forwarder interface {
	Do(ctx context.Context, r upstream.Request) (*upstream.Response, error)
}

// AddressHandler forwards the address book endpoints with the browser's
// Cookie header attached verbatim.
type AddressHandler struct {
	Upstream Forwarder
	Log      *zap.Logger
}

// List handles GET /api/address.
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, "/api/address", false, "Failed to fetch addresses")
}

// Create handles POST /api/address.
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodPost, "/api/address", true, "Failed to create address")
}

// Get handles GET /api/address/{id}.
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet, "/api/address/"+chi.URLParam(r, "id"), false, "Failed to fetch address")
}

// Update handles PUT /api/address/{id}.
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodPut, "/api/address/"+chi.URLParam(r, "id"), true, "Failed to update address")
}

// Delete handles DELETE /api/address/{id}.
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodDelete, "/api/address/"+chi.URLParam(r, "id"), false, "Failed to delete address")
}

func (h *AddressHandler) forward(w http.ResponseWriter, r *http.Request, method, path string, withBody bool, failure string) {
	req := upstream.Request{Method: method, Path: path, Cookie: r.Header.Get("Cookie")}
	if withBody {
		var body json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			logError(h.Log, "decode address body", r, err)
			writeFailure(w, http.StatusInternalServerError, failure, nil)
			return
		}
		req.Body = body
	}

	resp, err := h.Upstream.Do(r.Context(), req)
	if err != nil {
		logError(h.Log, "address request failed", r, err)
		writeFailure(w, http.StatusInternalServerError, failure, nil)
		return
	}
	writeRaw(w, resp.StatusCode, resp.Body)
}
