package cart

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/Donatto293/agroconexion-client/internal/api"
	"github.com/Donatto293/agroconexion-client/internal/domain/model"
	"github.com/Donatto293/agroconexion-client/internal/tokenstore"
)

// Store is the client-side cart cache. The backend cart is
// authoritative; this copy exists so the UI can render totals without
// a round trip, and it is replaced wholesale on every login.
type Store struct {
	client *api.Client
	cache  tokenstore.Store
	logger *log.Logger

	mu    sync.Mutex
	items []model.CartItem
	total int64
}

func NewStore(client *api.Client, cache tokenstore.Store, logger *log.Logger) *Store {
	return &Store{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Items returns a copy of the current cart lines.
func (s *Store) Items() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is Σ price × quantity over the current lines. It is derived
// from the list on every mutation and never set directly.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Add puts one unit of the product in the cart. A product already
// present gets its quantity bumped by 1 instead of a duplicate line
// (the wire call still carries an explicit quantity of 1). The remote
// mutation goes first; the local merge only happens once the backend
// accepted it.
func (s *Store) Add(ctx context.Context, product model.Product) error {
	if err := s.client.AddCartItem(ctx, product.ID, 1); err != nil {
		return err
	}

	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ProductID == product.ID {
			s.items[i].Quantity++
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, model.CartItem{
			ProductID: product.ID,
			Quantity:  1,
			Product:   product,
		})
	}
	s.recomputeLocked()
	s.mu.Unlock()

	s.persistCache()
	return nil
}

// Remove drops the whole line for a product.
func (s *Store) Remove(ctx context.Context, productID int64) error {
	if err := s.client.RemoveCartItem(ctx, productID); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, it := range s.items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.recomputeLocked()
	s.mu.Unlock()

	s.persistCache()
	return nil
}

// Load replaces the local list with the authoritative backend cart.
// Called on login by the session syncer.
func (s *Store) Load(ctx context.Context) error {
	items, err := s.client.GetCart(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.items = items
	s.recomputeLocked()
	s.mu.Unlock()

	s.persistCache()
	return nil
}

// Reset empties the cart locally. Used on logout and after checkout;
// it does not touch the backend.
func (s *Store) Reset() {
	s.mu.Lock()
	s.items = nil
	s.recomputeLocked()
	s.mu.Unlock()

	if err := s.cache.Delete(tokenstore.KeyCartCache); err != nil {
		s.logf("cart: drop cache: %v", err)
	}
}

// Checkout turns the remote cart into an invoice and empties the
// local copy.
func (s *Store) Checkout(ctx context.Context) (*api.Invoice, error) {
	inv, err := s.client.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	s.Reset()
	return inv, nil
}

// recomputeLocked rebuilds the derived total. Caller holds s.mu.
func (s *Store) recomputeLocked() {
	var total int64
	for _, it := range s.items {
		total += it.Subtotal()
	}
	s.total = total
}

// persistCache writes the list to the token store as a best-effort
// cache. Failures are logged, never surfaced: the backend copy is the
// source of truth.
func (s *Store) persistCache() {
	s.mu.Lock()
	raw, err := json.Marshal(s.items)
	s.mu.Unlock()
	if err != nil {
		s.logf("cart: encode cache: %v", err)
		return
	}
	if err := s.cache.Set(tokenstore.KeyCartCache, string(raw)); err != nil {
		s.logf("cart: write cache: %v", err)
	}
}

func (s *Store) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
