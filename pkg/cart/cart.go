// Package cart holds the shopping cart: an ordered list of line items keyed by
// product id, mirrored to durable storage after every mutation.
//
// The Store is created once by the application root and handed to every
// consumer (badge, cart page, checkout). Reads always observe the latest
// mutation.
//
//	c := cart.New(ctx, st, cart.WithBus(bus))
//	c.Add(product)
//	c.Total()
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shashiranjanraj/kisanbazaar/app/models"
	"github.com/shashiranjanraj/kisanbazaar/pkg/event"
	"github.com/shashiranjanraj/kisanbazaar/pkg/localstore"
	"github.com/shashiranjanraj/kisanbazaar/pkg/logger"
	"github.com/shashiranjanraj/kisanbazaar/pkg/metrics"
)

const (
	// DefaultKey is the storage key holding the serialised cart.
	DefaultKey = "cart"

	// TopicChanged is published with a []models.CartItem snapshot after every
	// mutation.
	TopicChanged = "cart.changed"

	persistTimeout = 5 * time.Second
)

// Store is the process-wide cart.
type Store struct {
	// writeMu orders snapshot-and-write pairs so storage never lags memory.
	// It is taken before mu.
	writeMu sync.Mutex
	mu      sync.RWMutex
	items   []models.CartItem
	storage localstore.Store
	key     string
	bus     *event.Bus
	log     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option { return func(s *Store) { s.key = key } }

// WithBus publishes change notifications on bus instead of a private one.
func WithBus(bus *event.Bus) Option { return func(s *Store) { s.bus = bus } }

// WithLogger overrides the logger.
func WithLogger(log *slog.Logger) Option { return func(s *Store) { s.log = log } }

// New creates the cart and hydrates it from storage. A missing or malformed
// entry yields an empty cart.
func New(ctx context.Context, storage localstore.Store, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		log:     logger.L,
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = event.New()
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []models.CartItem {
	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		metrics.LocalStoreErrors.WithLabelValues("load").Inc()
		s.log.Error("cart: load failed, starting empty", "key", s.key, "error", err)
		return nil
	}

	var stored []models.CartItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		metrics.LocalStoreErrors.WithLabelValues("load").Inc()
		s.log.Error("cart: stored cart is malformed, starting empty", "key", s.key, "error", err)
		return nil
	}

	items := make([]models.CartItem, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, it := range stored {
		if it.ProductID == "" || seen[it.ProductID] {
			s.log.Warn("cart: dropping invalid stored line", "product_id", it.ProductID)
			continue
		}
		seen[it.ProductID] = true
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		items = append(items, it)
	}
	return items
}

// persist writes items to storage. Failures are logged, never returned.
func (s *Store) persist(items []models.CartItem) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if items == nil {
		items = []models.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err == nil {
		err = s.storage.Set(ctx, s.key, raw)
	}
	if err != nil {
		metrics.LocalStoreErrors.WithLabelValues("persist").Inc()
		s.log.Error("cart: persist failed", "key", s.key, "error", err)
	}
}

// mutate applies fn under the write lock, then persists and notifies with the
// resulting snapshot. fn reports whether it changed anything; unchanged
// carts are still persisted so storage always mirrors memory.
func (s *Store) mutate(op string, fn func() bool) bool {
	s.writeMu.Lock()
	s.mu.Lock()
	changed := fn()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	metrics.CartMutations.WithLabelValues(op).Inc()
	s.persist(snapshot)
	s.writeMu.Unlock()

	s.bus.Publish(TopicChanged, snapshot)
	return changed
}

func (s *Store) snapshotLocked() []models.CartItem {
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) indexLocked(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get returns the line item for productID.
func (s *Store) Get(productID string) (models.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(productID); i >= 0 {
		return s.items[i], true
	}
	return models.CartItem{}, false
}

// Len is the number of distinct products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Count is the total number of units, as shown on the cart badge.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price × quantity over all lines.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CartTotal(s.items)
}

// Subscribe calls fn with a snapshot after every mutation.
func (s *Store) Subscribe(fn func(items []models.CartItem)) (unsubscribe func()) {
	return s.bus.Subscribe(TopicChanged, func(p interface{}) {
		fn(p.([]models.CartItem))
	})
}

// ─── Mutations ────────────────────────────────────────────────────────────────

// Add increments the quantity of a product already in the cart, or appends it
// with quantity 1 and a stock snapshot taken from p.
func (s *Store) Add(p models.Product) {
	s.mutate("add", func() bool {
		if i := s.indexLocked(p.ID); i >= 0 {
			s.items[i].Quantity++
			return true
		}
		s.items = append(s.items, models.CartItem{
			ProductID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Quantity:    1,
			Stock:       p.Stock,
			ImageURL:    p.ImageURL,
		})
		return true
	})
}

// Remove deletes the line for productID. Absent ids are a no-op.
func (s *Store) Remove(productID string) {
	s.RemoveSelected(productID)
}

// RemoveSelected deletes every listed product.
func (s *Store) RemoveSelected(productIDs ...string) {
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	s.mutate("remove", func() bool {
		kept := make([]models.CartItem, 0, len(s.items))
		for _, it := range s.items {
			if !drop[it.ProductID] {
				kept = append(kept, it)
			}
		}
		changed := len(kept) != len(s.items)
		s.items = kept
		return changed
	})
}

// UpdateQuantity sets the quantity of productID, clamped to at least 1. The
// stock snapshot is not enforced here; see Increment.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mutate("update_quantity", func() bool {
		if i := s.indexLocked(productID); i >= 0 {
			s.items[i].Quantity = quantity
			return true
		}
		return false
	})
}

// Increment raises the quantity by one unless that would pass the stock
// snapshot. It reports whether the quantity changed; at the limit nothing is
// persisted or published.
func (s *Store) Increment(productID string) bool {
	s.mu.RLock()
	i := s.indexLocked(productID)
	allowed := i >= 0 && s.items[i].Quantity < s.items[i].Stock
	s.mu.RUnlock()
	if !allowed {
		return false
	}

	return s.mutate("update_quantity", func() bool {
		i := s.indexLocked(productID)
		if i < 0 || s.items[i].Quantity >= s.items[i].Stock {
			return false
		}
		s.items[i].Quantity++
		return true
	})
}

// Decrement lowers the quantity by one, removing the line when it would reach
// zero.
func (s *Store) Decrement(productID string) {
	op := "update_quantity"
	if it, ok := s.Get(productID); !ok {
		return
	} else if it.Quantity <= 1 {
		op = "remove"
	}

	s.mutate(op, func() bool {
		i := s.indexLocked(productID)
		if i < 0 {
			return false
		}
		if s.items[i].Quantity <= 1 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
		s.items[i].Quantity--
		return true
	})
}

// Clear empties the cart and deletes the storage entry.
func (s *Store) Clear() {
	s.writeMu.Lock()
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	metrics.CartMutations.WithLabelValues("clear").Inc()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	if err := s.storage.Delete(ctx, s.key); err != nil {
		metrics.LocalStoreErrors.WithLabelValues("delete").Inc()
		s.log.Error("cart: delete failed", "key", s.key, "error", err)
	}
	cancel()
	s.writeMu.Unlock()

	s.bus.Publish(TopicChanged, []models.CartItem{})
}
