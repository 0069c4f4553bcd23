package state

import (
	"context"
	"encoding/json"
	"sync"

	"alphaboutique/internal/domain"
	"alphaboutique/internal/metrics"
	"alphaboutique/internal/repository"

	"go.uber.org/zap"
)

// CartStore holds the ordered cart lines. Nothing is written to storage
// until Initialize has run, so an empty cart never clobbers a stored one.
type CartStore struct {
	persister

	mu      sync.RWMutex
	items   []domain.CartItem
	loaded  bool
	version uint64
	changes *Broker[domain.CartState]
}

func NewCartStore(key string, queue *repository.WriteQueue, logger *zap.Logger, m *metrics.Metrics) *CartStore {
	return &CartStore{
		persister: newPersister(StoreCart, key, queue, logger, m),
		items:     []domain.CartItem{},
		changes:   NewBroker[domain.CartState](),
	}
}

// Initialize loads the stored cart. Read or parse failures start an empty
// cart. Lines changed before Initialize are replaced by the stored cart if
// there is one, and written out otherwise.
func (c *CartStore) Initialize(ctx context.Context) {
	stored, found := c.load(ctx)

	c.mu.Lock()
	if found {
		c.items = stored
	}
	c.loaded = true
	if !found && len(c.items) > 0 {
		c.persistLocked()
	}
	snapshot := c.changedLocked()
	c.mu.Unlock()

	c.logger.Info("Cart loaded", zap.Int("lines", len(snapshot.Items)), zap.Int("items", snapshot.TotalItems))
	c.changes.PublishVersion(snapshot.Version, snapshot)
}

func (c *CartStore) load(ctx context.Context) ([]domain.CartItem, bool) {
	raw, found, err := c.queue.Read(ctx, c.key)
	if err != nil {
		c.logger.Warn("Failed to load cart, starting empty", zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("Discarding malformed cart", zap.Error(err))
		return nil, false
	}
	return normalizeItems(items), true
}

// normalizeItems drops lines that break the cart invariants: non-positive
// quantities and repeated ids (first one wins)
func normalizeItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// AddToCart adds one unit of product, appending a new line if needed
func (c *CartStore) AddToCart(product domain.CartProduct) {
	c.mu.Lock()
	if i := c.indexLocked(product.ID); i >= 0 {
		if c.items[i].Quantity < 1 {
			c.items[i].Quantity = 1
		} else {
			c.items[i].Quantity++
		}
	} else {
		c.items = append(c.items, domain.CartItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.Image,
			Quantity: 1,
		})
	}
	c.persistLocked()
	snapshot := c.changedLocked()
	c.mu.Unlock()

	c.changes.PublishVersion(snapshot.Version, snapshot)
}

// RemoveFromCart deletes the line for id, if any
func (c *CartStore) RemoveFromCart(id string) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	c.persistLocked()
	snapshot := c.changedLocked()
	c.mu.Unlock()

	c.changes.PublishVersion(snapshot.Version, snapshot)
}

// UpdateQuantity sets the quantity of the line for id. A quantity of zero
// or less removes the line.
func (c *CartStore) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		c.RemoveFromCart(id)
		return
	}

	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.items[i].Quantity = quantity
	c.persistLocked()
	snapshot := c.changedLocked()
	c.mu.Unlock()

	c.changes.PublishVersion(snapshot.Version, snapshot)
}

// ClearCart empties the cart
func (c *CartStore) ClearCart() {
	c.mu.Lock()
	c.items = []domain.CartItem{}
	c.persistLocked()
	snapshot := c.changedLocked()
	c.mu.Unlock()

	c.changes.PublishVersion(snapshot.Version, snapshot)
}

// Items returns a copy of the cart lines in order
func (c *CartStore) Items() []domain.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.CartItem{}, c.items...)
}

// TotalAmount is the sum of parsed price times quantity
func (c *CartStore) TotalAmount() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.TotalAmount(c.items)
}

// TotalItems is the sum of quantities
func (c *CartStore) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.TotalItems(c.items)
}

// Loaded reports whether Initialize has completed
func (c *CartStore) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// State returns the cart with its derived totals
func (c *CartStore) State() domain.CartState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

// Subscribe registers fn for every cart change
func (c *CartStore) Subscribe(fn func(domain.CartState)) func() {
	return c.changes.Subscribe(fn)
}

func (c *CartStore) indexLocked(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *CartStore) stateLocked() domain.CartState {
	items := append([]domain.CartItem{}, c.items...)
	return domain.CartState{
		Items:       items,
		TotalAmount: domain.TotalAmount(items),
		TotalItems:  domain.TotalItems(items),
		Loaded:      c.loaded,
		Version:     c.version,
	}
}

// changedLocked records a mutation and returns the state to publish
func (c *CartStore) changedLocked() domain.CartState {
	c.version++
	return c.stateLocked()
}

// persistLocked queues a write of the full cart. Must hold c.mu so queue
// order matches mutation order.
func (c *CartStore) persistLocked() {
	if !c.loaded {
		return
	}
	data, err := json.Marshal(c.items)
	if err != nil {
		go c.fault("persist", err)
		return
	}
	c.watch("persist", c.queue.Put(c.key, data))
}
