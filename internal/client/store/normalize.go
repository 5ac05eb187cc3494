package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/atinyakov/storefront/internal/models"
)

// canonicalProductID picks the product identifier of a wishlist item from
// the shapes the commerce API has been seen to return, in priority order.
func canonicalProductID(item map[string]any) string {
	for _, k := range []string{"productId", "product_id"} {
		if id := idString(item[k]); id != "" {
			return id
		}
	}
	if p, ok := item["product"].(map[string]any); ok {
		for _, k := range []string{"_id", "id"} {
			if id := idString(p[k]); id != "" {
				return id
			}
		}
	}
	// A bare product id in "product".
	if id := idString(item["product"]); id != "" {
		return id
	}
	for _, k := range []string{"_id", "id"} {
		if id := idString(item[k]); id != "" {
			return id
		}
	}
	return ""
}

func idString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// normalizeEntries turns the data array of a wishlist response into entries
// keyed by canonical product id. Items without any identifier are dropped.
func normalizeEntries(data json.RawMessage) ([]models.WishlistEntry, error) {
	if len(data) == 0 || string(data) == "null" {
		return []models.WishlistEntry{}, nil
	}
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}

	entries := make([]models.WishlistEntry, 0, len(items))
	for _, item := range items {
		pid := canonicalProductID(item)
		if pid == "" {
			continue
		}
		e := models.WishlistEntry{
			EntryID:     idString(item["_id"]),
			ProductID:   pid,
			ProductName: firstString(item, "product_name", "productName", "name"),
		}
		if e.EntryID == "" {
			e.EntryID = idString(item["id"])
		}
		if e.EntryID == "" {
			e.EntryID = pid
		}
		if p, ok := item["product"].(map[string]any); ok && e.ProductName == "" {
			e.ProductName = firstString(p, "name", "product_name", "title")
		}
		if ts := firstString(item, "createdAt", "addedAt"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				e.AddedAt = t
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}
