package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/storefront/internal/models"
)

func loadedWishlist(t *testing.T, api *fakeWishlistAPI, data string) *Wishlist {
	t.Helper()
	api.ListFn = func(context.Context) (*models.Envelope, error) { return ok(data), nil }
	w := NewWishlist(api, nil)
	w.FetchAll(context.Background())
	return w
}

func productIDs(entries []models.WishlistEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	return ids
}

func TestWishlist_FetchAll(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"_id":"w1","productId":"p1"},{"_id":"w2","product":{"_id":"p2"}}]`)

	assert.Equal(t, []string{"p1", "p2"}, productIDs(w.Entries()))
	assert.Equal(t, 2, w.Count())
	assert.False(t, w.Loading())
}

func TestWishlist_FetchAllFailureKeepsState(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"productId":"p1"}]`)

	api.ListFn = func(context.Context) (*models.Envelope, error) { return nil, errors.New("offline") }
	w.FetchAll(context.Background())
	assert.Equal(t, []string{"p1"}, productIDs(w.Entries()))

	api.ListFn = func(context.Context) (*models.Envelope, error) { return rejected("Unauthorized"), nil }
	w.FetchAll(context.Background())
	assert.Equal(t, 1, w.Count())
}

func TestWishlist_AddMakesMember(t *testing.T) {
	var server []string
	api := &fakeWishlistAPI{}
	api.AddFn = func(_ context.Context, id string) (*models.Envelope, error) {
		server = append(server, id)
		return ok(""), nil
	}
	api.ListFn = func(context.Context) (*models.Envelope, error) {
		var b strings.Builder
		b.WriteString("[")
		for i, id := range server {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`{"_id":"w-` + id + `","productId":"` + id + `"}`)
		}
		b.WriteString("]")
		return ok(b.String()), nil
	}
	w := NewWishlist(api, nil)

	assert.False(t, w.IsMember("p1"))
	res := w.Add(context.Background(), "p1")
	assert.Equal(t, models.Ok("Added to wishlist"), res)
	assert.True(t, w.IsMember("p1"))

	entries := w.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "w-p1", entries[0].EntryID, "placeholder replaced by server entry")
	assert.False(t, entries[0].Pending)
	assert.Equal(t, 1, w.Count())
}

func TestWishlist_AddShowsPlaceholderWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	api := &fakeWishlistAPI{}
	api.AddFn = func(context.Context, string) (*models.Envelope, error) {
		close(started)
		<-release
		return rejected("Product not found"), nil
	}
	w := NewWishlist(api, nil)

	done := make(chan models.Result)
	go func() { done <- w.Add(context.Background(), "p9") }()

	<-started
	entries := w.Entries()
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].EntryID, "temp-"))
	assert.True(t, entries[0].Pending)
	assert.True(t, w.IsMember("p9"))
	assert.Equal(t, 1, w.Count())

	close(release)
	res := <-done
	assert.Equal(t, models.Fail("Product not found"), res)
	assert.Empty(t, w.Entries())
	assert.Equal(t, 0, w.Count())
}

func TestWishlist_AddTransportFailure(t *testing.T) {
	api := &fakeWishlistAPI{}
	api.AddFn = func(context.Context, string) (*models.Envelope, error) { return nil, errors.New("dial tcp") }
	w := loadedWishlist(t, api, `[{"productId":"p1"}]`)

	res := w.Add(context.Background(), "p2")
	assert.Equal(t, models.Fail("Failed to add to wishlist. Please try again."), res)
	assert.Equal(t, []string{"p1"}, productIDs(w.Entries()))
	assert.Equal(t, 1, w.Count())
}

func TestWishlist_AddKeepsPlaceholderWhenRefreshFails(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"productId":"p1"}]`)
	api.AddFn = func(context.Context, string) (*models.Envelope, error) { return ok(""), nil }
	api.ListFn = func(context.Context) (*models.Envelope, error) { return nil, errors.New("offline") }

	res := w.Add(context.Background(), "p2")
	assert.True(t, res.Success)

	entries := w.Entries()
	assert.Equal(t, []string{"p2", "p1"}, productIDs(entries))
	assert.False(t, entries[0].Pending, "placeholder confirmed")
	assert.Equal(t, 2, w.Count())
}

func TestWishlist_RemoveRollsBackExactly(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[
		{"_id":"w1","productId":"p1"},
		{"_id":"w2","productId":"p2"},
		{"_id":"w3","productId":"p3"}
	]`)
	before := w.Entries()

	api.RemoveFn = func(context.Context, string) (*models.Envelope, error) { return rejected("Server error"), nil }
	res := w.Remove(context.Background(), "p2")
	assert.Equal(t, models.Fail("Server error"), res)
	assert.Equal(t, before, w.Entries())
	assert.Equal(t, 3, w.Count())

	api.RemoveFn = func(context.Context, string) (*models.Envelope, error) { return nil, errors.New("reset") }
	res = w.Remove(context.Background(), "p2")
	assert.Equal(t, models.Fail("Failed to remove from wishlist. Please try again."), res)
	assert.Equal(t, before, w.Entries())
	assert.Equal(t, 3, w.Count())
}

func TestWishlist_RemoveSuccess(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"productId":"p1"},{"product_id":"p2"}]`)
	api.RemoveFn = func(_ context.Context, id string) (*models.Envelope, error) {
		assert.Equal(t, "p2", id)
		return ok(""), nil
	}

	res := w.Remove(context.Background(), "p2")
	assert.Equal(t, models.Ok("Removed from wishlist"), res)
	assert.Equal(t, []string{"p1"}, productIDs(w.Entries()))
	assert.Equal(t, 1, w.Count())
	assert.False(t, w.IsMember("p2"))
}

func TestWishlist_RemoveCountFloorsAtZero(t *testing.T) {
	api := &fakeWishlistAPI{}
	api.RemoveFn = func(context.Context, string) (*models.Envelope, error) { return ok(""), nil }
	w := NewWishlist(api, nil)

	w.Remove(context.Background(), "p1")
	assert.Equal(t, 0, w.Count())
}

func TestWishlist_StaleRemoveDoesNotRestore(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"productId":"p1"}]`)

	started := make(chan struct{})
	release := make(chan struct{})
	api.RemoveFn = func(context.Context, string) (*models.Envelope, error) {
		close(started)
		<-release
		return rejected("timeout"), nil
	}
	api.AddFn = func(context.Context, string) (*models.Envelope, error) { return ok(""), nil }
	api.ListFn = func(context.Context) (*models.Envelope, error) { return nil, errors.New("offline") }

	done := make(chan models.Result)
	go func() { done <- w.Remove(context.Background(), "p1") }()
	<-started

	// A newer call for the same product supersedes the pending remove.
	require.True(t, w.Add(context.Background(), "p1").Success)
	close(release)
	res := <-done

	assert.False(t, res.Success)
	entries := w.Entries()
	require.Len(t, entries, 1, "stale failure must not restore the old snapshot")
	assert.True(t, strings.HasPrefix(entries[0].EntryID, "temp-"))
	assert.Equal(t, 1, w.Count())
}

// addDuringRemove starts an add of p2 and a remove of p1, lets the add end
// with addEnv, then fails the remove so its snapshot is restored.
func addDuringRemove(t *testing.T, addEnv *models.Envelope) *Wishlist {
	t.Helper()
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"_id":"w1","productId":"p1"}]`)

	addStarted, addRelease := make(chan struct{}), make(chan struct{})
	removeStarted, removeRelease := make(chan struct{}), make(chan struct{})
	api.AddFn = func(context.Context, string) (*models.Envelope, error) {
		close(addStarted)
		<-addRelease
		return addEnv, nil
	}
	api.RemoveFn = func(context.Context, string) (*models.Envelope, error) {
		close(removeStarted)
		<-removeRelease
		return rejected("Server error"), nil
	}
	api.ListFn = func(context.Context) (*models.Envelope, error) { return nil, errors.New("offline") }

	addDone := make(chan models.Result)
	go func() { addDone <- w.Add(context.Background(), "p2") }()
	<-addStarted

	removeDone := make(chan models.Result)
	go func() { removeDone <- w.Remove(context.Background(), "p1") }()
	<-removeStarted

	close(addRelease)
	require.Equal(t, addEnv.Success, (<-addDone).Success)
	close(removeRelease)
	require.False(t, (<-removeDone).Success)
	return w
}

func TestWishlist_RestoreConfirmsSettledPlaceholder(t *testing.T) {
	w := addDuringRemove(t, ok(""))

	entries := w.Entries()
	require.Equal(t, []string{"p2", "p1"}, productIDs(entries))
	assert.False(t, entries[0].Pending, "accepted add must not stay pending")
	assert.Equal(t, 2, w.Count())
}

func TestWishlist_RestoreDropsRejectedPlaceholder(t *testing.T) {
	w := addDuringRemove(t, rejected("Product not found"))

	assert.Equal(t, []string{"p1"}, productIDs(w.Entries()))
	assert.Equal(t, 1, w.Count())
	assert.False(t, w.IsMember("p2"))
}

func TestWishlist_StaleAddSkipsRefresh(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := NewWishlist(api, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	api.AddFn = func(context.Context, string) (*models.Envelope, error) {
		close(started)
		<-release
		return ok(""), nil
	}
	api.RemoveFn = func(context.Context, string) (*models.Envelope, error) { return ok(""), nil }

	done := make(chan models.Result)
	go func() { done <- w.Add(context.Background(), "p1") }()
	<-started

	require.True(t, w.Remove(context.Background(), "p1").Success)
	close(release)
	res := <-done

	assert.True(t, res.Success)
	assert.Equal(t, 0, api.ListCalls())
	assert.False(t, w.IsMember("p1"))
}

func TestWishlist_Toggle(t *testing.T) {
	api := &fakeWishlistAPI{}
	w := loadedWishlist(t, api, `[{"productId":"p1"}]`)
	var removed, added []string
	api.RemoveFn = func(_ context.Context, id string) (*models.Envelope, error) {
		removed = append(removed, id)
		return ok(""), nil
	}
	api.AddFn = func(_ context.Context, id string) (*models.Envelope, error) {
		added = append(added, id)
		return ok(""), nil
	}

	w.Toggle(context.Background(), "p1")
	w.Toggle(context.Background(), "p2")
	assert.Equal(t, []string{"p1"}, removed)
	assert.Equal(t, []string{"p2"}, added)
}

func TestWishlist_Reset(t *testing.T) {
	w := loadedWishlist(t, &fakeWishlistAPI{}, `[{"productId":"p1"}]`)
	w.Reset()
	assert.Empty(t, w.Entries())
	assert.Equal(t, 0, w.Count())
}
