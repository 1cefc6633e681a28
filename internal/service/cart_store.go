package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"storefront/internal/models"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartStore owns the cart state. Transitions go through state.ReduceCart and
// every applied transition is followed by a synchronous write of the item
// sequence to storage.
type CartStore struct {
	mu      sync.Mutex
	state   models.CartState
	storage store.Storage
	key     string
	logger  *zap.Logger
}

// NewCartStore creates the store and rehydrates it from storage. Absent,
// unreadable or malformed snapshots yield an empty cart.
func NewCartStore(ctx context.Context, storage store.Storage, key string) *CartStore {
	if key == "" {
		key = models.CartStorageKey
	}
	s := &CartStore{
		storage: storage,
		key:     key,
		logger:  util.ComponentLogger("cart"),
	}
	s.state = state.NewCartState(s.load(ctx))
	util.CartItemsGauge.Set(float64(s.state.TotalItems))
	return s
}

func (s *CartStore) load(ctx context.Context) []models.CartItem {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		util.CartRehydrationsTotal.WithLabelValues("empty").Inc()
		return nil
	}
	if err != nil {
		s.logger.Warn("Failed to read persisted cart, starting empty", zap.Error(err))
		util.CartRehydrationsTotal.WithLabelValues("read_error").Inc()
		return nil
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("Persisted cart is malformed, starting empty", zap.Error(err))
		util.CartRehydrationsTotal.WithLabelValues("malformed").Inc()
		return nil
	}
	if err := state.ValidateCartItems(items); err != nil {
		s.logger.Warn("Persisted cart is invalid, starting empty", zap.Error(err))
		util.CartRehydrationsTotal.WithLabelValues("invalid").Inc()
		return nil
	}

	util.CartRehydrationsTotal.WithLabelValues("restored").Inc()
	s.logger.Info("Cart restored", zap.Int("lines", len(items)))
	return items
}

// Snapshot returns a copy of the current state
func (s *CartStore) Snapshot() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCart(s.state)
}

// Dispatch applies op and persists the result
func (s *CartStore) Dispatch(ctx context.Context, op state.CartOp) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(ctx, op)
	return copyCart(s.state)
}

// AddItem adds one unit of product
func (s *CartStore) AddItem(ctx context.Context, product models.Product) models.CartState {
	return s.Dispatch(ctx, state.AddItem{Product: product})
}

// RemoveItem drops the line with id
func (s *CartStore) RemoveItem(ctx context.Context, id int64) models.CartState {
	return s.Dispatch(ctx, state.RemoveItem{ID: id})
}

// SetQuantity sets the quantity of line id; non-positive values are ignored
func (s *CartStore) SetQuantity(ctx context.Context, id int64, quantity int) models.CartState {
	return s.Dispatch(ctx, state.SetQuantity{ID: id, Quantity: quantity})
}

// ClearCart empties the cart and deletes the persisted snapshot
func (s *CartStore) ClearCart(ctx context.Context) models.CartState {
	return s.Dispatch(ctx, state.ClearCart{})
}

// TakeAll returns the current cart and empties it in the same transition, so
// no concurrent mutation can land between the read and the clear. An empty
// cart is returned untouched.
func (s *CartStore) TakeAll(ctx context.Context) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	taken := copyCart(s.state)
	if len(taken.Items) > 0 {
		s.apply(ctx, state.ClearCart{})
	}
	return taken
}

// Increment raises the quantity of line id by one
func (s *CartStore) Increment(ctx context.Context, id int64) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.find(id); ok {
		s.apply(ctx, state.SetQuantity{ID: id, Quantity: item.Quantity + 1})
	}
	return copyCart(s.state)
}

// Decrement lowers the quantity of line id by one, removing the line when
// its quantity would reach zero
func (s *CartStore) Decrement(ctx context.Context, id int64) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.find(id)
	switch {
	case !ok:
	case item.Quantity <= 1:
		s.apply(ctx, state.RemoveItem{ID: id})
	default:
		s.apply(ctx, state.SetQuantity{ID: id, Quantity: item.Quantity - 1})
	}
	return copyCart(s.state)
}

// apply must be called with mu held
func (s *CartStore) apply(ctx context.Context, op state.CartOp) {
	s.state = state.ReduceCart(s.state, op)

	name := opName(op)
	util.CartMutationsTotal.WithLabelValues(name).Inc()
	util.CartItemsGauge.Set(float64(s.state.TotalItems))

	if err := s.persist(ctx, op); err != nil {
		util.CartPersistFailuresTotal.WithLabelValues(name).Inc()
		s.logger.Error("Failed to persist cart", zap.String("op", name), zap.Error(err))
	}
}

func (s *CartStore) persist(ctx context.Context, op state.CartOp) error {
	if _, ok := op.(state.ClearCart); ok {
		return s.storage.Delete(ctx, s.key)
	}

	data, err := json.Marshal(s.state.Items)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, s.key, data)
}

func (s *CartStore) find(id int64) (models.CartItem, bool) {
	for _, item := range s.state.Items {
		if item.ID == id {
			return item, true
		}
	}
	return models.CartItem{}, false
}

func opName(op state.CartOp) string {
	switch op.(type) {
	case state.AddItem:
		return "add_item"
	case state.RemoveItem:
		return "remove_item"
	case state.SetQuantity:
		return "set_quantity"
	case state.ClearCart:
		return "clear_cart"
	default:
		return "unknown"
	}
}

func copyCart(s models.CartState) models.CartState {
	s.Items = append([]models.CartItem{}, s.Items...)
	return s
}
