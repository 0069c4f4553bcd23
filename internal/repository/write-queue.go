package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alphaboutique/internal/metrics"

	"go.uber.org/zap"
)

var (
	ErrQueueClosed = errors.New("write queue closed")
	// ErrSuperseded is the result of a put or delete that was replaced by a
	// newer one for the same key before it ran. Its value was never written.
	ErrSuperseded = errors.New("write superseded by a newer write")
)

// UpdateFunc computes the new value of a key from its current value
type UpdateFunc func(current []byte, found bool) ([]byte, error)

type opKind int

const (
	opPut opKind = iota
	opDelete
	opUpdate
)

func (k opKind) String() string {
	switch k {
	case opPut:
		return "put"
	case opDelete:
		return "delete"
	default:
		return "update"
	}
}

type writeOp struct {
	kind   opKind
	value  []byte
	update UpdateFunc
	done   []chan error
}

func (op *writeOp) replaceable() bool {
	return op.kind == opPut || op.kind == opDelete
}

type keyQueue struct {
	ops []*writeOp
}

// WriteQueue serializes writes per key. Each busy key is drained by one
// goroutine in FIFO order, so a write always lands after every write
// enqueued before it. A put or delete waiting behind a running write is
// replaced by a newer put or delete for the same key; the replaced callers
// get ErrSuperseded and the newest caller gets the result of the write.
type WriteQueue struct {
	kv      KVStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	queues map[string]*keyQueue
	active int
	idle   chan struct{}
	closed bool
}

func NewWriteQueue(kv KVStore, logger *zap.Logger, m *metrics.Metrics) *WriteQueue {
	idle := make(chan struct{})
	close(idle)
	return &WriteQueue{
		kv:      kv,
		logger:  logger,
		metrics: m,
		queues:  make(map[string]*keyQueue),
		idle:    idle,
	}
}

// Put queues a full overwrite of key
func (q *WriteQueue) Put(key string, value []byte) <-chan error {
	return q.enqueue(key, &writeOp{kind: opPut, value: value})
}

// Delete queues removal of key
func (q *WriteQueue) Delete(key string) <-chan error {
	return q.enqueue(key, &writeOp{kind: opDelete})
}

// Update queues a read-modify-write of key. Updates are never coalesced.
func (q *WriteQueue) Update(key string, fn UpdateFunc) <-chan error {
	return q.enqueue(key, &writeOp{kind: opUpdate, update: fn})
}

func (q *WriteQueue) enqueue(key string, op *writeOp) <-chan error {
	done := make(chan error, 1)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		done <- ErrQueueClosed
		return done
	}

	kq, running := q.queues[key]
	if running && len(kq.ops) > 0 {
		last := kq.ops[len(kq.ops)-1]
		if last.replaceable() && op.replaceable() {
			for _, d := range last.done {
				d <- ErrSuperseded
			}
			last.kind = op.kind
			last.value = op.value
			last.done = []chan error{done}
			q.metrics.StorageCoalesced(key)
			q.logger.Debug("Coalesced pending write", zap.String("key", key), zap.Stringer("op", op.kind))
			return done
		}
	}

	op.done = []chan error{done}
	if !running {
		kq = &keyQueue{}
		q.queues[key] = kq
		if q.active == 0 {
			q.idle = make(chan struct{})
		}
		q.active++
		kq.ops = append(kq.ops, op)
		go q.drain(key, kq)
		return done
	}

	kq.ops = append(kq.ops, op)
	return done
}

func (q *WriteQueue) drain(key string, kq *keyQueue) {
	for {
		q.mu.Lock()
		if len(kq.ops) == 0 {
			delete(q.queues, key)
			q.active--
			if q.active == 0 {
				close(q.idle)
			}
			q.mu.Unlock()
			return
		}
		op := kq.ops[0]
		kq.ops = kq.ops[1:]
		q.mu.Unlock()

		err := q.execute(key, op)
		for _, d := range op.done {
			d <- err
		}
	}
}

func (q *WriteQueue) execute(key string, op *writeOp) error {
	// no deadline: a write runs until the backend answers
	ctx := context.Background()
	start := time.Now()

	var err error
	switch op.kind {
	case opPut:
		err = q.kv.Set(ctx, key, op.value)
	case opDelete:
		err = q.kv.Delete(ctx, key)
	case opUpdate:
		err = q.applyUpdate(ctx, key, op.update)
	}

	q.metrics.StorageWrite(key, op.kind.String(), err, time.Since(start))
	return err
}

func (q *WriteQueue) applyUpdate(ctx context.Context, key string, fn UpdateFunc) error {
	current, found, err := q.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return fmt.Errorf("update %q: %w", key, err)
	}
	return q.kv.Set(ctx, key, next)
}

// Flush blocks until every queued write has run or ctx is done
func (q *WriteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending writes and rejects new ones
func (q *WriteQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return q.Flush(ctx)
}

// Read passes through to the backing store. Callers that must observe their
// own queued writes call Flush first.
func (q *WriteQueue) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return q.kv.Get(ctx, key)
}
