// Package models defines the core data structures shared by the proxy
// server and the client stores: identities, cart lines, wishlist entries
// and the JSON envelope exchanged with the commerce API.
package models

import (
	"encoding/json"
	"time"
)

// Identity is the cached copy of the authenticated user.
type Identity struct {
	// ID is the upstream identifier of the user.
	ID string `json:"id"`
	// Name is the display name.
	Name string `json:"name"`
	// Email is the login email.
	Email string `json:"email"`
	// Role is the upstream role name, "user" when absent.
	Role string `json:"role"`
}

// Result is returned by every client store operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Ok builds a successful Result.
func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail builds a failed Result.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}

// Pagination describes a page of a list response.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage"`
}

// Envelope is the response convention of the proxy and the commerce API.
type Envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Badge marks a product as new or on sale in list views.
type Badge struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Product is the lightweight list item produced by the products proxy.
type Product struct {
	ID                string   `json:"id"`
	Image             string   `json:"image"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Slug              string   `json:"slug"`
	Category          string   `json:"category"`
	Brand             *string  `json:"brand"`
	Status            string   `json:"status"`
	MasterProductCode string   `json:"masterProductCode"`
	Price             *float64 `json:"price,omitempty"`
	OriginalPrice     *float64 `json:"originalPrice,omitempty"`
	StockQuantity     *int     `json:"stockQuantity,omitempty"`
	Condition         string   `json:"condition,omitempty"`
	Badge             *Badge   `json:"badge"`
	ActionType        string   `json:"actionType"`
}

// ProductRef is the product snapshot a cart line is created from.
type ProductRef struct {
	ID        string
	Name      string
	SKU       string
	Image     string
	Price     float64
	SalePrice float64
	// Stock is the quantity available when the product was viewed.
	Stock int
}

// Variation selects a concrete option set of a product.
type Variation struct {
	ID      string            `json:"_id"`
	Options map[string]string `json:"options,omitempty"`
}

// CartLine is one distinct product+variation combination in the cart.
//
// Invariants: 1 <= Quantity <= Stock and Subtotal == SalePrice * Quantity.
type CartLine struct {
	// LineID is the product id, or "<product>-<variation>" for variations.
	LineID      string     `json:"id"`
	ProductID   string     `json:"product_id"`
	VariationID *string    `json:"variation_id"`
	Name        string     `json:"product_name"`
	SKU         string     `json:"product_sku,omitempty"`
	Image       string     `json:"product_image,omitempty"`
	UnitPrice   float64    `json:"price"`
	SalePrice   float64    `json:"sale_price"`
	Quantity    int        `json:"quantity"`
	Subtotal    float64    `json:"sub_total"`
	Stock       int        `json:"stock"`
	Variation   *Variation `json:"variation_options"`
}

// Address is a delivery address from the user's address book.
type Address struct {
	ID        string `json:"_id,omitempty"`
	Label     string `json:"label"`
	Phone     string `json:"phone,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	IsDefault bool   `json:"is_default"`
}

// WishlistEntry is one product on the user's wishlist.
type WishlistEntry struct {
	EntryID     string    `json:"entryId"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	AddedAt     time.Time `json:"addedAt"`
	// Pending marks an optimistic placeholder not yet confirmed by the server.
	Pending bool `json:"-"`
}
