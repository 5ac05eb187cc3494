package store

import (
	"context"
	"errors"

	"github.com/atinyakov/storefront/internal/models"
)

// ErrLoginRequired is returned for actions that need a logged-in user.
var ErrLoginRequired = errors.New("login required")

const msgLoginRequired = "Please log in to manage your wishlist"

// Storefront ties the stores together: the wishlist follows the session and
// wishlist actions are refused while logged out.
type Storefront struct {
	Session  *Session
	Wishlist *Wishlist
	Cart     *Cart
}

func NewStorefront(session *Session, wishlist *Wishlist, cart *Cart) *Storefront {
	sf := &Storefront{Session: session, Wishlist: wishlist, Cart: cart}
	session.Subscribe(func(ctx context.Context, id *models.Identity) {
		if id != nil {
			wishlist.FetchAll(ctx)
			return
		}
		wishlist.Reset()
	})
	return sf
}

// Sync loads the wishlist when a session was restored at startup.
func (sf *Storefront) Sync(ctx context.Context) {
	if sf.Session.IsAuthenticated() {
		sf.Wishlist.FetchAll(ctx)
	}
}

func (sf *Storefront) ToggleWishlist(ctx context.Context, productID string) models.Result {
	if !sf.Session.IsAuthenticated() {
		return models.Fail(msgLoginRequired)
	}
	return sf.Wishlist.Toggle(ctx, productID)
}

func (sf *Storefront) AddToWishlist(ctx context.Context, productID string) models.Result {
	if !sf.Session.IsAuthenticated() {
		return models.Fail(msgLoginRequired)
	}
	return sf.Wishlist.Add(ctx, productID)
}

func (sf *Storefront) RemoveFromWishlist(ctx context.Context, productID string) models.Result {
	if !sf.Session.IsAuthenticated() {
		return models.Fail(msgLoginRequired)
	}
	return sf.Wishlist.Remove(ctx, productID)
}
