package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Donatto293/agroconexion-client/internal/api"
	"github.com/Donatto293/agroconexion-client/internal/apitest"
	"github.com/Donatto293/agroconexion-client/internal/domain/model"
	"github.com/Donatto293/agroconexion-client/internal/tokenstore"
)

func newTestStore(t *testing.T) (*Store, *apitest.Backend, *tokenstore.MemStore) {
	t.Helper()

	backend := apitest.New()
	t.Cleanup(backend.Close)
	backend.AccessToken = "tok"

	client := api.NewClient(backend.URL(), 5*time.Second, func() string { return "tok" }, nil)
	cache := tokenstore.NewMemStore()
	return NewStore(client, cache, nil), backend, cache
}

var (
	coffee   = model.Product{ID: 1, Name: "Café orgánico", Price: 3500, Stock: 10}
	panela   = model.Product{ID: 2, Name: "Panela", Price: 1200, Stock: 50}
	plantain = model.Product{ID: 3, Name: "Plátano", Price: 800, Stock: 30}
)

func TestAdd_RepeatedAddsMergeIntoOneLine(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	// same product three times
	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, coffee))

	items := s.Items()
	assert.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Quantity)
	assert.Equal(t, coffee.ID, items[0].ProductID)
}

func TestTotal_AlwaysDerivedFromLines(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, panela))
	assert.Equal(t, int64(2*3500+1200), s.Total())

	assert.NoError(t, s.Remove(ctx, coffee.ID))
	assert.Equal(t, int64(1200), s.Total())

	assert.NoError(t, s.Remove(ctx, panela.ID))
	assert.Equal(t, int64(0), s.Total())
	assert.Equal(t, 0, s.Len())
}

func TestRemove_DropsWholeLine(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, panela))

	assert.NoError(t, s.Remove(ctx, coffee.ID))

	items := s.Items()
	assert.Len(t, items, 1)
	assert.Equal(t, panela.ID, items[0].ProductID)
}

func TestLoad_ReplacesLocalListWholesale(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, coffee))

	// backend cart diverged (another device)
	backend.Cart = []model.CartItem{
		{ProductID: panela.ID, Quantity: 5, Product: panela},
		{ProductID: plantain.ID, Quantity: 2, Product: plantain},
	}

	assert.NoError(t, s.Load(ctx))

	items := s.Items()
	assert.Len(t, items, 2)
	assert.Equal(t, int64(5*1200+2*800), s.Total())
}

func TestReset_EmptiesLocallyWithoutBackendCalls(t *testing.T) {
	s, backend, cache := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, coffee))
	before := backend.CallCount("DELETE /users/cart/cart/:id/")

	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.Total())
	assert.Equal(t, before, backend.CallCount("DELETE /users/cart/cart/:id/"))
	_, err := cache.Get(tokenstore.KeyCartCache)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)
}

func TestAdd_WritesBestEffortCache(t *testing.T) {
	s, _, cache := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, coffee))

	raw, err := cache.Get(tokenstore.KeyCartCache)
	assert.NoError(t, err)

	var cached []model.CartItem
	assert.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Len(t, cached, 1)
	assert.Equal(t, coffee.ID, cached[0].ProductID)
}

func TestAdd_BackendRejectionLeavesLocalUntouched(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	backend.AccessToken = "other" // every auth call now 401s

	err := s.Add(ctx, coffee)

	assert.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.Total())
}

func TestCheckout_EmptiesCart(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.Add(ctx, coffee))
	assert.NoError(t, s.Add(ctx, panela))

	inv, err := s.Checkout(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(3500+1200), inv.Total)
	assert.Equal(t, 0, s.Len())
}
