package sessionsync

import (
	"context"
	"log"
	"sync"
)

// CartStore is the slice of the cart the syncer drives.
type CartStore interface {
	Load(ctx context.Context) error
	Reset()
}

// FavoritesStore is the slice of favorites the syncer drives.
type FavoritesStore interface {
	Fetch(ctx context.Context) error
	Clear()
}

// Syncer keeps the cart and favorites caches consistent with the
// session. It reacts to exactly one thing: a change in access-token
// identity. Redundant notifications with the same token are no-ops,
// so profile-only session updates never cause spurious reloads.
type Syncer struct {
	cart      CartStore
	favorites FavoritesStore
	logger    *log.Logger

	mu        sync.Mutex
	lastToken string
}

func New(cart CartStore, favorites FavoritesStore, logger *log.Logger) *Syncer {
	return &Syncer{
		cart:      cart,
		favorites: favorites,
		logger:    logger,
	}
}

// OnTokenChange is the watcher to register with the session manager.
// A new non-empty token reloads cart and favorites concurrently (the
// two have no ordering dependency); an empty token clears both
// synchronously. It blocks until the triggered work finishes.
func (s *Syncer) OnTokenChange(ctx context.Context) func(token string) {
	return func(token string) {
		s.mu.Lock()
		if token == s.lastToken {
			s.mu.Unlock()
			return
		}
		s.lastToken = token
		s.mu.Unlock()

		if token == "" {
			s.cart.Reset()
			s.favorites.Clear()
			return
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := s.cart.Load(ctx); err != nil {
				s.logf("sync: cart reload: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := s.favorites.Fetch(ctx); err != nil {
				s.logf("sync: favorites reload: %v", err)
			}
		}()
		wg.Wait()
	}
}

func (s *Syncer) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
