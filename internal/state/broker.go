// Package state holds the client-side state containers: session, cart and
// theme preference. Each store owns one durable key, applies mutations to
// its in-memory state synchronously, persists through a per-key write
// queue and notifies subscribers after every change.
package state

import (
	"errors"
	"sync"
	"time"

	"alphaboutique/internal/metrics"
	"alphaboutique/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StoreSession = "session"
	StoreCart    = "cart"
	StoreTheme   = "theme"
)

// Broker fans values out to subscribers. Listeners run on the publishing
// goroutine, outside any store lock.
type Broker[T any] struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]func(T)

	// order serializes PublishVersion; last is the newest version delivered
	order sync.Mutex
	last  uint64
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[uuid.UUID]func(T))}
}

// Subscribe registers fn and returns the function that removes it
func (b *Broker[T]) Subscribe(fn func(T)) func() {
	id := uuid.New()
	b.mu.Lock()
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers v to every current subscriber
func (b *Broker[T]) Publish(v T) {
	b.mu.RLock()
	listeners := make([]func(T), 0, len(b.subs))
	for _, fn := range b.subs {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// PublishVersion delivers v unless a newer version was already delivered.
// Stores bump the version under their state lock and publish after releasing
// it, so two mutations can reach this point in either order. Dropping the
// older one keeps the last value every listener saw equal to the store state.
// Listeners must not mutate the store that publishes to them.
func (b *Broker[T]) PublishVersion(version uint64, v T) {
	b.order.Lock()
	defer b.order.Unlock()
	if version <= b.last {
		return
	}
	b.last = version
	b.Publish(v)
}

// Len returns the number of subscribers
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Fault reports a persistence failure. Session and cart keep their
// in-memory change when this happens; theme does not.
type Fault struct {
	Store string    `json:"store"`
	Op    string    `json:"op"`
	Key   string    `json:"key"`
	Err   error     `json:"-"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// persister is the shared persistence plumbing of the three stores
type persister struct {
	store   string
	key     string
	queue   *repository.WriteQueue
	logger  *zap.Logger
	metrics *metrics.Metrics
	faults  *Broker[Fault]
}

func newPersister(store, key string, queue *repository.WriteQueue, logger *zap.Logger, m *metrics.Metrics) persister {
	return persister{
		store:   store,
		key:     key,
		queue:   queue,
		logger:  logger.With(zap.String("store", store), zap.String("key", key)),
		metrics: m,
		faults:  NewBroker[Fault](),
	}
}

// watch waits for a queued write in the background and reports failure. A
// write replaced by a newer snapshot of the same store is not a failure.
func (p *persister) watch(op string, result <-chan error) {
	go func() {
		err := <-result
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrSuperseded):
			p.logger.Debug("Write replaced by a newer one", zap.String("op", op))
		default:
			p.fault(op, err)
		}
	}()
}

func (p *persister) fault(op string, err error) {
	p.logger.Error("Failed to persist state", zap.String("op", op), zap.Error(err))
	p.metrics.StoreFault(p.store, op)
	p.faults.Publish(Fault{
		Store: p.store,
		Op:    op,
		Key:   p.key,
		Err:   err,
		Error: err.Error(),
		At:    time.Now(),
	})
}

// SubscribeFaults registers fn for persistence failures of this store
func (p *persister) SubscribeFaults(fn func(Fault)) func() {
	return p.faults.Subscribe(fn)
}

// Key returns the durable key this store owns
func (p *persister) Key() string {
	return p.key
}
