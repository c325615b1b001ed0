package sessionsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Donatto293/agroconexion-client/internal/api"
	"github.com/Donatto293/agroconexion-client/internal/apitest"
	"github.com/Donatto293/agroconexion-client/internal/cart"
	"github.com/Donatto293/agroconexion-client/internal/domain/model"
	"github.com/Donatto293/agroconexion-client/internal/favorites"
	"github.com/Donatto293/agroconexion-client/internal/session"
	"github.com/Donatto293/agroconexion-client/internal/tokenstore"
)

// counting fakes; the syncer runs them from goroutines, so counters
// are mutex-guarded rather than testify mocks.

type fakeCart struct {
	mu     sync.Mutex
	loads  int
	resets int
}

func (f *fakeCart) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeCart) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeCart) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads, f.resets
}

type fakeFavorites struct {
	mu      sync.Mutex
	fetches int
	clears  int
}

func (f *fakeFavorites) Fetch(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return nil
}

func (f *fakeFavorites) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeFavorites) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.clears
}

func TestOnTokenChange_LoadsBothStoresOncePerDistinctToken(t *testing.T) {
	c := &fakeCart{}
	f := &fakeFavorites{}
	fn := New(c, f, nil).OnTokenChange(context.Background())

	fn("t1")
	fn("t1") // redundant re-render, same token
	fn("t1")

	loads, _ := c.counts()
	fetches, _ := f.counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, fetches)
}

func TestOnTokenChange_TokenRotationReloads(t *testing.T) {
	c := &fakeCart{}
	f := &fakeFavorites{}
	fn := New(c, f, nil).OnTokenChange(context.Background())

	fn("t1")
	fn("t2") // refresh rotated the token

	loads, _ := c.counts()
	assert.Equal(t, 2, loads)
}

func TestOnTokenChange_LogoutClearsBoth(t *testing.T) {
	c := &fakeCart{}
	f := &fakeFavorites{}
	fn := New(c, f, nil).OnTokenChange(context.Background())

	fn("t1")
	fn("")
	fn("") // already cleared

	_, resets := c.counts()
	_, clears := f.counts()
	assert.Equal(t, 1, resets)
	assert.Equal(t, 1, clears)
}

func TestOnTokenChange_InitialEmptyTokenIsNoop(t *testing.T) {
	c := &fakeCart{}
	f := &fakeFavorites{}
	fn := New(c, f, nil).OnTokenChange(context.Background())

	fn("")

	_, resets := c.counts()
	_, clears := f.counts()
	assert.Equal(t, 0, resets)
	assert.Equal(t, 0, clears)
}

// Full wiring: manager + syncer + real stores against the stub
// backend.
func TestSyncer_EndToEndLoginLogout(t *testing.T) {
	backend := apitest.New()
	t.Cleanup(backend.Close)

	backend.AccessToken = "a1"
	backend.RefreshToken = "r1"
	backend.Login = apitest.Response{Body: map[string]any{
		"access":   "a1",
		"refresh":  "r1",
		"userName": "alice",
	}}
	backend.Profile = model.UserProfile{ID: 7, Username: "alice"}
	backend.Cart = []model.CartItem{
		{ProductID: 1, Quantity: 2, Product: model.Product{ID: 1, Name: "Café", Price: 3500}},
	}
	backend.AddFavoriteRow(model.Product{ID: 9, Name: "Miel"})

	store := tokenstore.NewMemStore()
	m := session.NewManager(store, func(ts api.TokenSource, h api.UnauthorizedHandler) *api.Client {
		return api.NewClient(backend.URL(), 5*time.Second, ts, h)
	}, nil)

	cartStore := cart.NewStore(m.Client(), store, nil)
	favStore := favorites.NewStore(m.Client())
	m.OnTokenChange(New(cartStore, favStore, nil).OnTokenChange(context.Background()))

	_, err := m.Login(context.Background(), "alice", "secret")
	assert.NoError(t, err)

	// login pulled both caches
	assert.Equal(t, 1, cartStore.Len())
	assert.Equal(t, int64(7000), cartStore.Total())
	assert.True(t, favStore.Contains(9))

	// logout clears user, cart, favorites, and persisted auth keys
	assert.NoError(t, m.Logout(context.Background()))
	assert.Nil(t, m.User())
	assert.Equal(t, 0, cartStore.Len())
	assert.Empty(t, favStore.Entries())
	for _, k := range tokenstore.AuthKeys {
		_, err := store.Get(k)
		assert.ErrorIs(t, err, tokenstore.ErrNotFound, k)
	}
}
