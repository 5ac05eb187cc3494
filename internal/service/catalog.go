package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/storefront/internal/models"
	"github.com/atinyakov/storefront/internal/upstream"
)

var (
	// ErrProductsUnavailable is returned when the upstream product list answers non-2xx.
	ErrProductsUnavailable = errors.New("failed to fetch products from admin API")
	// ErrVendorProductsUnavailable is returned when the upstream vendor list answers non-2xx.
	ErrVendorProductsUnavailable = errors.New("failed to fetch vendor products from admin API")
)

// objectID matches a 24 hex character document id.
var objectID = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

const (
	placeholderImage = "/assets/images/placeholder.jpg"
	newProductWindow = 30 * 24 * time.Hour
	// fillTimeout bounds the upstream call shared by callers of one key.
	fillTimeout      = 30 * time.Second
)

// CacheRepository defines the storage operations of the catalog response cache.
type CacheRepository interface {
	// Get returns the unexpired body stored under key.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores body under key for ttl.
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// CatalogService serves product listings, reusing successful upstream
// responses for the configured TTL.
type CatalogService struct {
	up    Upstream
	cache CacheRepository
	ttl   time.Duration
	log   *zap.Logger
	group singleflight.Group
	now   func() time.Time
}

// NewCatalogService constructs a CatalogService. cache may be nil to disable
// caching; log may be nil.
func NewCatalogService(up Upstream, cache CacheRepository, ttl time.Duration, log *zap.Logger) *CatalogService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogService{up: up, cache: cache, ttl: ttl, log: log, now: time.Now}
}

// ProductQuery translates storefront query parameters into the upstream's:
// limit becomes paginate and a document id passed as slug becomes product_id.
// Other parameters are kept; for repeated keys the last value wins.
func ProductQuery(in url.Values) url.Values {
	out := url.Values{}
	for key, vals := range in {
		if len(vals) == 0 {
			continue
		}
		v := vals[len(vals)-1]
		switch {
		case key == "limit":
			out.Set("paginate", v)
		case key == "slug" && objectID.MatchString(v):
			out.Set("product_id", v)
		default:
			out.Set(key, v)
		}
	}
	return out
}

// Products returns the product list for query. With a slug the upstream body
// is relayed unchanged; otherwise items are reduced to models.Product with
// pagination.
func (s *CatalogService) Products(ctx context.Context, query url.Values) (*upstream.Response, error) {
	body, err := s.fetch(ctx, "/api/product", ProductQuery(query), ErrProductsUnavailable)
	if err != nil {
		return nil, err
	}
	if query.Has("slug") {
		return &upstream.Response{StatusCode: http.StatusOK, Body: body}, nil
	}

	var list adminProductList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode product list: %w", err)
	}

	now := s.now()
	products := make([]models.Product, 0, len(list.Data))
	for _, p := range list.Data {
		products = append(products, p.toProduct(now))
	}
	data, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("encode product list: %w", err)
	}

	return reshape(models.Envelope{
		Success: true,
		Data:    data,
		Pagination: &models.Pagination{
			CurrentPage: list.CurrentPage,
			LastPage:    list.LastPage,
			Total:       list.Total,
			PerPage:     list.PerPage,
		},
	})
}

// VendorProducts relays the vendor product list with every parameter forwarded as is.
func (s *CatalogService) VendorProducts(ctx context.Context, query url.Values) (*upstream.Response, error) {
	q := url.Values{}
	for key, vals := range query {
		if len(vals) > 0 {
			q.Set(key, vals[len(vals)-1])
		}
	}
	body, err := s.fetch(ctx, "/api/vendor-products", q, ErrVendorProductsUnavailable)
	if err != nil {
		return nil, err
	}
	return &upstream.Response{StatusCode: http.StatusOK, Body: body}, nil
}

// fetch returns the cached body for path and query, or performs one upstream
// call shared by all concurrent callers of the same key. Only 2xx bodies are
// cached. Cache failures are logged and treated as misses.
func (s *CatalogService) fetch(ctx context.Context, path string, query url.Values, unavailable error) ([]byte, error) {
	key := path + "?" + query.Encode()

	if s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return body, nil
		}
	}

	// The shared call outlives any single caller; each caller still stops
	// waiting when its own request ends.
	ch := s.group.DoChan(key, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()
		resp, err := s.up.Do(fillCtx, upstream.Request{Method: http.MethodGet, Path: path, Query: query})
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("%w: status %d", unavailable, resp.StatusCode)
		}
		if s.cache != nil {
			if err := s.cache.Set(fillCtx, key, resp.Body, s.ttl); err != nil {
				s.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return []byte(resp.Body), nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

type adminOffering struct {
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"original_price"`
	StockQuantity *int     `json:"stock_quantity"`
	Condition     string   `json:"condition"`
}

type adminProduct struct {
	ID      any `json:"id"`
	MongoID any `json:"_id"`
	Media   []struct {
		URL string `json:"url"`
	} `json:"media"`
	ProductName string `json:"product_name"`
	Policies    *struct {
		AboutThisItem string   `json:"about_this_item"`
		KeyFeatures   []string `json:"key_features"`
	} `json:"product_policies"`
	Slug              string          `json:"slug"`
	Category          json.RawMessage `json:"category_id"`
	Brand             json.RawMessage `json:"brand_id"`
	Status            string          `json:"status"`
	MasterProductCode string          `json:"master_product_code"`
	Offerings         []adminOffering `json:"linked_vendor_offerings"`
	CreatedAt         string          `json:"created_at"`
}

type adminProductList struct {
	Data        []adminProduct `json:"data"`
	CurrentPage int            `json:"current_page"`
	LastPage    int            `json:"last_page"`
	Total       int            `json:"total"`
	PerPage     int            `json:"per_page"`
}

func (p adminProduct) toProduct(now time.Time) models.Product {
	out := models.Product{
		ID:                idString(p.MongoID),
		Image:             placeholderImage,
		Title:             p.ProductName,
		Description:       "Quality product",
		Slug:              p.Slug,
		Category:          "Uncategorized",
		Status:            p.Status,
		MasterProductCode: p.MasterProductCode,
		Badge:             p.badge(now),
		ActionType:        "buy",
	}
	if out.ID == "" {
		out.ID = idString(p.ID)
	}
	if len(p.Media) > 0 && p.Media[0].URL != "" {
		out.Image = p.Media[0].URL
	}
	if pol := p.Policies; pol != nil {
		if pol.AboutThisItem != "" {
			out.Description = pol.AboutThisItem
		} else if len(pol.KeyFeatures) > 0 && pol.KeyFeatures[0] != "" {
			out.Description = pol.KeyFeatures[0]
		}
	}
	if name := refName(p.Category); name != "" {
		out.Category = name
	}
	if name := refName(p.Brand); name != "" {
		out.Brand = &name
	}
	if len(p.Offerings) > 0 {
		o := p.Offerings[0]
		out.Price = o.Price
		out.OriginalPrice = o.OriginalPrice
		out.StockQuantity = o.StockQuantity
		out.Condition = o.Condition
	}
	return out
}

// badge marks products created within the last 30 days as new, then
// products whose first offering is discounted as on sale.
func (p adminProduct) badge(now time.Time) *models.Badge {
	if created, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil && created.After(now.Add(-newProductWindow)) {
		return &models.Badge{Text: "New", Type: "new"}
	}
	if len(p.Offerings) > 0 {
		o := p.Offerings[0]
		if o.OriginalPrice != nil && o.Price != nil && *o.Price != 0 && *o.OriginalPrice > *o.Price {
			return &models.Badge{Text: "Sale", Type: "sale"}
		}
	}
	return nil
}

// refName returns the name of a populated reference such as {"name": "Shoes"},
// or "" when the reference is a bare id or absent.
func refName(raw json.RawMessage) string {
	var ref struct {
		Name string `json:"name"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &ref) != nil {
		return ""
	}
	return ref.Name
}
