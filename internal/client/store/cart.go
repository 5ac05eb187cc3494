package store

import (
	"encoding/json"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/models"
)

const (
	cartKey = "cart"

	msgAddedToCart = "Product added to cart"
	msgOverStock   = "Cannot add more items than available in stock"
	msgInvalidQty  = "Quantity must be at least 1"
)

// KeyValue is on-device string storage.
type KeyValue interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Cart holds the cart lines and persists them under the "cart" key after
// every change.
type Cart struct {
	kv  KeyValue
	log *zap.Logger

	mu    sync.Mutex
	lines []models.CartLine
	count int
	total float64
	open  bool
}

// NewCart loads the persisted cart from kv. A corrupt value is discarded.
func NewCart(kv KeyValue, log *zap.Logger) *Cart {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cart{kv: kv, log: log, lines: []models.CartLine{}}

	if raw, ok := kv.GetItem(cartKey); ok && raw != "" {
		var lines []models.CartLine
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			log.Warn("discarding unreadable cart", zap.Error(err))
		} else {
			c.lines = lines
		}
	}
	c.recount()
	return c
}

func lineID(productID string, variation *models.Variation) string {
	if variation == nil || variation.ID == "" {
		return productID
	}
	return productID + "-" + variation.ID
}

// Add puts quantity units of product into the cart, merging with an
// existing line for the same product and variation.
func (c *Cart) Add(product models.ProductRef, quantity int, variation *models.Variation) models.Result {
	if quantity < 1 {
		return models.Fail(msgInvalidQty)
	}
	price := product.Price
	if product.SalePrice > 0 {
		price = product.SalePrice
	}
	id := lineID(product.ID, variation)

	c.mu.Lock()
	defer c.mu.Unlock()

	lines := slices.Clone(c.lines)
	if i := slices.IndexFunc(lines, func(l models.CartLine) bool { return l.LineID == id }); i >= 0 {
		next := lines[i].Quantity + quantity
		if next > lines[i].Stock {
			return models.Fail(msgOverStock)
		}
		lines[i].Quantity = next
		lines[i].Subtotal = lines[i].SalePrice * float64(next)
	} else {
		if quantity > product.Stock {
			return models.Fail(msgOverStock)
		}
		line := models.CartLine{
			LineID:    id,
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			Image:     product.Image,
			UnitPrice: product.Price,
			SalePrice: price,
			Quantity:  quantity,
			Subtotal:  price * float64(quantity),
			Stock:     product.Stock,
			Variation: variation,
		}
		if variation != nil && variation.ID != "" {
			vid := variation.ID
			line.VariationID = &vid
		}
		lines = append(lines, line)
	}

	c.commit(lines)
	c.open = true
	return models.Ok(msgAddedToCart)
}

// UpdateQuantity sets the quantity of a line. Values below 1 or above the
// line's stock are ignored. It reports whether the line changed.
func (c *Cart) UpdateQuantity(lineID string, n int) bool {
	if n < 1 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.lines, func(l models.CartLine) bool { return l.LineID == lineID })
	if i < 0 || n > c.lines[i].Stock {
		return false
	}
	lines := slices.Clone(c.lines)
	lines[i].Quantity = n
	lines[i].Subtotal = lines[i].SalePrice * float64(n)
	c.commit(lines)
	return true
}

func (c *Cart) Remove(lineID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(slices.DeleteFunc(slices.Clone(c.lines), func(l models.CartLine) bool {
		return l.LineID == lineID
	}))
}

// Clear empties the cart and erases the persisted copy.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit([]models.CartLine{})
}

func (c *Cart) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Savings is the discount against list price over all lines.
func (c *Cart) Savings() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s float64
	for _, l := range c.lines {
		if d := (l.UnitPrice - l.SalePrice) * float64(l.Quantity); d > 0 {
			s += d
		}
	}
	return s
}

func (c *Cart) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Cart) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

func (c *Cart) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// commit installs lines, recomputes the totals and persists. Callers hold mu.
func (c *Cart) commit(lines []models.CartLine) {
	c.lines = lines
	c.recount()

	if len(lines) == 0 {
		if err := c.kv.RemoveItem(cartKey); err != nil {
			c.log.Error("erase cart", zap.Error(err))
		}
		return
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		c.log.Error("encode cart", zap.Error(err))
		return
	}
	if err := c.kv.SetItem(cartKey, string(raw)); err != nil {
		c.log.Error("persist cart", zap.Error(err))
	}
}

func (c *Cart) recount() {
	c.count, c.total = 0, 0
	for _, l := range c.lines {
		c.count += l.Quantity
		c.total += l.Subtotal
	}
}
