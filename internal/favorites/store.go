package favorites

import (
	"context"
	"sync"

	"github.com/Donatto293/agroconexion-client/internal/api"
	"github.com/Donatto293/agroconexion-client/internal/domain/model"
)

// Store mirrors the backend favorites list. Every mutation refetches
// the whole list instead of patching locally: favorites can also
// change server-side through other clients, and a full refetch cannot
// drift.
type Store struct {
	client *api.Client

	mu      sync.Mutex
	entries []model.FavoriteEntry
}

func NewStore(client *api.Client) *Store {
	return &Store{client: client}
}

// Entries returns a copy of the current favorites.
func (s *Store) Entries() []model.FavoriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FavoriteEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Contains reports whether a product is favorited.
func (s *Store) Contains(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Product.ID == productID {
			return true
		}
	}
	return false
}

// Fetch replaces the local list with the backend's.
func (s *Store) Fetch(ctx context.Context) error {
	entries, err := s.client.GetFavorites(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Add favorites a product, then resynchronizes.
func (s *Store) Add(ctx context.Context, productID int64) error {
	if err := s.client.AddFavorite(ctx, productID); err != nil {
		return err
	}
	return s.Fetch(ctx)
}

// Remove unfavorites a product, then resynchronizes. The delete
// endpoint wants the favorite row ID, so it is looked up locally
// first.
func (s *Store) Remove(ctx context.Context, productID int64) error {
	s.mu.Lock()
	favoriteID := int64(0)
	for _, e := range s.entries {
		if e.Product.ID == productID {
			favoriteID = e.FavoriteID
			break
		}
	}
	s.mu.Unlock()

	if favoriteID == 0 {
		// Not in the local mirror; refetch so the caller sees the
		// real state.
		return s.Fetch(ctx)
	}

	if err := s.client.RemoveFavorite(ctx, favoriteID); err != nil {
		return err
	}
	return s.Fetch(ctx)
}

// Clear empties the local mirror. Used on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}
