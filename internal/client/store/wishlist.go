// Package store holds the client-side state of the storefront: the
// wishlist kept in sync with the server, the persisted cart, the login
// session and the checkout flow built on top of them.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/storefront/internal/models"
)

const (
	msgAdded          = "Added to wishlist"
	msgRemoved        = "Removed from wishlist"
	msgAddFailed      = "Failed to add to wishlist. Please try again."
	msgRemoveFailed   = "Failed to remove from wishlist. Please try again."
	tempEntryIDPrefix = "temp-"
)

// WishlistAPI is the remote side of the wishlist.
type WishlistAPI interface {
	Wishlist(ctx context.Context) (*models.Envelope, error)
	AddToWishlist(ctx context.Context, productID string) (*models.Envelope, error)
	RemoveFromWishlist(ctx context.Context, productID string) (*models.Envelope, error)
}

type wishlistState struct {
	entries []models.WishlistEntry
	count   int
}

// Wishlist is the local mirror of the user's wishlist. Changes are applied
// optimistically and reconciled when the server answers.
type Wishlist struct {
	api WishlistAPI
	log *zap.Logger

	mu      sync.Mutex
	entries []models.WishlistEntry
	count   int
	loading bool

	// settled records how each placeholder's add ended (true if accepted)
	// while a remove is in flight, so its snapshot can be reconciled.
	settled  map[string]bool
	removing int

	seq sequencer
	now func() time.Time
}

func NewWishlist(api WishlistAPI, log *zap.Logger) *Wishlist {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wishlist{
		api:     api,
		log:     log,
		entries: []models.WishlistEntry{},
		settled: map[string]bool{},
		now:     time.Now,
	}
}

// FetchAll replaces the local collection with the server's. Failures leave
// the collection as it was.
func (w *Wishlist) FetchAll(ctx context.Context) {
	w.fetch(ctx)
}

func (w *Wishlist) fetch(ctx context.Context) bool {
	w.mu.Lock()
	w.loading = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.loading = false
		w.mu.Unlock()
	}()

	env, err := w.api.Wishlist(ctx)
	if err != nil {
		w.log.Warn("fetch wishlist", zap.Error(err))
		return false
	}
	if !env.Success {
		w.log.Warn("fetch wishlist rejected", zap.String("message", env.Message))
		return false
	}
	entries, err := normalizeEntries(env.Data)
	if err != nil {
		w.log.Warn("fetch wishlist", zap.Error(err))
		return false
	}

	w.mu.Lock()
	w.entries = entries
	w.count = len(entries)
	w.mu.Unlock()
	return true
}

// Add puts productID on the wishlist. A placeholder entry is shown until
// the server confirms.
func (w *Wishlist) Add(ctx context.Context, productID string) models.Result {
	seq := w.seq.issue(productID)
	tempID := tempEntryIDPrefix + uuid.NewString()

	w.mu.Lock()
	placeholder := models.WishlistEntry{
		EntryID:   tempID,
		ProductID: productID,
		AddedAt:   w.now(),
		Pending:   true,
	}
	w.entries = append([]models.WishlistEntry{placeholder}, w.entries...)
	w.count++
	w.mu.Unlock()

	env, err := w.api.AddToWishlist(ctx, productID)
	if err != nil || !env.Success {
		w.withdraw(tempID)
		w.seq.done(productID, seq)
		if err != nil {
			w.log.Warn("add to wishlist", zap.String("product_id", productID), zap.Error(err))
			return models.Fail(msgAddFailed)
		}
		return models.Fail(messageOr(env.Message, msgAddFailed))
	}

	if !w.seq.current(productID, seq) {
		w.log.Debug("stale wishlist add", zap.String("product_id", productID), zap.Uint64("seq", seq))
		w.confirm(tempID)
		return models.Ok(messageOr(env.Message, msgAdded))
	}
	w.seq.done(productID, seq)
	w.fetch(ctx)
	w.confirm(tempID)
	return models.Ok(messageOr(env.Message, msgAdded))
}

// Remove takes productID off the wishlist. On failure the collection is
// restored as it was before the call, less any placeholder whose add was
// rejected in the meantime.
func (w *Wishlist) Remove(ctx context.Context, productID string) models.Result {
	seq := w.seq.issue(productID)

	w.mu.Lock()
	var m Mutation[wishlistState]
	m.Begin(wishlistState{entries: slices.Clone(w.entries), count: w.count}, seq)
	w.entries = slices.DeleteFunc(slices.Clone(w.entries), func(e models.WishlistEntry) bool {
		return e.ProductID == productID
	})
	w.count = max(w.count-1, 0)
	w.removing++
	w.mu.Unlock()
	defer w.removeDone()

	env, err := w.api.RemoveFromWishlist(ctx, productID)
	if err != nil || !env.Success {
		if w.seq.current(productID, seq) {
			snap, _ := m.Rollback()
			w.restore(snap)
		} else {
			w.log.Debug("stale wishlist remove", zap.String("product_id", productID), zap.Uint64("seq", seq))
		}
		w.seq.done(productID, seq)
		if err != nil {
			w.log.Warn("remove from wishlist", zap.String("product_id", productID), zap.Error(err))
			return models.Fail(msgRemoveFailed)
		}
		return models.Fail(messageOr(env.Message, msgRemoveFailed))
	}
	m.Commit()
	w.seq.done(productID, seq)
	return models.Ok(messageOr(env.Message, msgRemoved))
}

// Toggle removes productID when it is a member and adds it otherwise.
func (w *Wishlist) Toggle(ctx context.Context, productID string) models.Result {
	if w.IsMember(productID) {
		return w.Remove(ctx, productID)
	}
	return w.Add(ctx, productID)
}

func (w *Wishlist) IsMember(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.ContainsFunc(w.entries, func(e models.WishlistEntry) bool {
		return e.ProductID == productID
	})
}

// Reset empties the collection, e.g. after logout.
func (w *Wishlist) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = []models.WishlistEntry{}
	w.count = 0
}

func (w *Wishlist) removeDone() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removing--
	if w.removing == 0 {
		clear(w.settled)
	}
}

func (w *Wishlist) settle(tempID string, accepted bool) {
	if w.removing > 0 {
		w.settled[tempID] = accepted
	}
}

func (w *Wishlist) Entries() []models.WishlistEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.entries)
}

func (w *Wishlist) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *Wishlist) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// restore puts back a snapshot. Placeholders whose add has ended since the
// snapshot was taken are dropped if rejected and kept as regular entries if
// accepted.
func (w *Wishlist) restore(snap wishlistState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries := make([]models.WishlistEntry, 0, len(snap.entries))
	count := snap.count
	for _, e := range snap.entries {
		if accepted, ok := w.settled[e.EntryID]; ok {
			if !accepted {
				count--
				continue
			}
			e.Pending = false
		}
		entries = append(entries, e)
	}
	w.entries = entries
	w.count = max(count, 0)
}

// withdraw drops the placeholder with the given temporary id.
func (w *Wishlist) withdraw(tempID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settle(tempID, false)
	i := slices.IndexFunc(w.entries, func(e models.WishlistEntry) bool { return e.EntryID == tempID })
	if i < 0 {
		return
	}
	w.entries = slices.Delete(slices.Clone(w.entries), i, i+1)
	w.count = max(w.count-1, 0)
}

// confirm keeps the placeholder as a regular entry.
func (w *Wishlist) confirm(tempID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settle(tempID, true)
	for i := range w.entries {
		if w.entries[i].EntryID == tempID {
			w.entries[i].Pending = false
			return
		}
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
