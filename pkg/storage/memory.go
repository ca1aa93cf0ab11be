// Package storage keeps multisig transactions and their events in memory.
// Transactions are upserted, events are only appended. Events that arrive
// before their transaction are held back until the transaction is stored.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/puzpuzpuz/xsync/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/pkg/core"
)

var storageTimeHistogramVec = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "multisig_storage_functions_time",
		Help:    "Storage functions execution duration distribution in seconds",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 1, 5, 10},
	},
	[]string{"method"},
)

const defaultOrphanTTL = 10 * time.Minute

type orphan struct {
	event    core.MultisigEvent
	received time.Time
}

type Memory struct {
	logger       *zap.Logger
	transactions *xsync.MapOf[core.TxKey, core.MultisigTransaction]

	// mu protects events, fingerprints and orphans.
	mu           sync.Mutex
	events       map[core.TxKey][]core.MultisigEvent
	fingerprints map[core.TxKey]map[uint64]struct{}
	orphans      map[core.TxKey][]orphan

	orphanTTL time.Duration
	now       func() time.Time

	eventDispatcher *dispatcher[core.TxKey, core.MultisigEvent]
	txDispatcher    *dispatcher[core.TxKey, core.MultisigTransaction]
}

type Options struct {
	orphanTTL time.Duration
	now       func() time.Time
}

type Option func(o *Options)

// WithOrphanTTL sets how long an event of an unknown transaction is kept.
func WithOrphanTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.orphanTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.now = now
	}
}

func NewMemory(logger *zap.Logger, opts ...Option) *Memory {
	o := Options{orphanTTL: defaultOrphanTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory{
		logger:          logger,
		transactions:    xsync.NewTypedMapOf[core.TxKey, core.MultisigTransaction](hashTxKey),
		events:          map[core.TxKey][]core.MultisigEvent{},
		fingerprints:    map[core.TxKey]map[uint64]struct{}{},
		orphans:         map[core.TxKey][]orphan{},
		orphanTTL:       o.orphanTTL,
		now:             o.now,
		eventDispatcher: newDispatcher[core.TxKey, core.MultisigEvent](),
		txDispatcher:    newDispatcher[core.TxKey, core.MultisigTransaction](),
	}
}

func observe(method string) *prometheus.Timer {
	return prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		storageTimeHistogramVec.WithLabelValues(method).Observe(v)
	}))
}

func (m *Memory) GetTransaction(ctx context.Context, key core.TxKey) (core.MultisigTransaction, error) {
	timer := observe("get_transaction")
	defer timer.ObserveDuration()
	tx, ok := m.transactions.Load(key)
	if !ok {
		return core.MultisigTransaction{}, core.ErrEntityNotFound
	}
	return tx, nil
}

// GetTransactionsByKey returns the rounds matching key ordered by timepoint.
func (m *Memory) GetTransactionsByKey(ctx context.Context, key core.PartialKey) ([]core.MultisigTransaction, error) {
	timer := observe("get_transactions_by_key")
	defer timer.ObserveDuration()
	var result []core.MultisigTransaction
	m.transactions.Range(func(k core.TxKey, tx core.MultisigTransaction) bool {
		if key.Matches(k) {
			result = append(result, tx)
		}
		return true
	})
	slices.SortFunc(result, func(a, b core.MultisigTransaction) int {
		if a.BlockCreated != b.BlockCreated {
			return cmpUint32(a.BlockCreated, b.BlockCreated)
		}
		if a.IndexCreated != b.IndexCreated {
			return cmpUint32(a.IndexCreated, b.IndexCreated)
		}
		return slices.Compare(a.CallHash[:], b.CallHash[:])
	})
	return result, nil
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// GetEventsByKeys returns the stored events of keys in insertion order.
// Held back events are not included.
func (m *Memory) GetEventsByKeys(ctx context.Context, keys []core.TxKey) ([]core.MultisigEvent, error) {
	timer := observe("get_events_by_keys")
	defer timer.ObserveDuration()
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []core.MultisigEvent
	for _, key := range keys {
		result = append(result, m.events[key]...)
	}
	return result, nil
}

// Keys returns the keys of all stored transactions.
func (m *Memory) Keys(ctx context.Context) []core.TxKey {
	keys := make([]core.TxKey, 0, m.transactions.Size())
	m.transactions.Range(func(k core.TxKey, _ core.MultisigTransaction) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// PutTransaction inserts or replaces tx. Events held back for its key are
// appended to the event log and delivered to subscribers after tx.
func (m *Memory) PutTransaction(ctx context.Context, tx core.MultisigTransaction) error {
	timer := observe("put_transaction")
	defer timer.ObserveDuration()
	key := tx.Key()
	m.transactions.Store(key, tx)

	m.mu.Lock()
	var released []core.MultisigEvent
	for _, o := range m.orphans[key] {
		if m.appendLocked(o.event) {
			released = append(released, o.event)
		}
	}
	delete(m.orphans, key)
	m.mu.Unlock()

	if len(released) > 0 {
		m.logger.Debug("released orphan events", zap.Stringer("key", key), zap.Int("count", len(released)))
	}
	m.txDispatcher.dispatch(key, tx)
	for _, e := range released {
		m.eventDispatcher.dispatch(key, e)
	}
	return nil
}

// PutEvent appends e to the log of its transaction. An event equal in every
// field to a stored one is ignored. If the transaction is unknown, e is held
// back until the transaction is put or the orphan TTL passes.
func (m *Memory) PutEvent(ctx context.Context, e core.MultisigEvent) error {
	timer := observe("put_event")
	defer timer.ObserveDuration()
	key := e.Key()
	// PutTransaction stores before taking mu, so a miss seen under mu is
	// released by its pending release loop.
	m.mu.Lock()
	if _, ok := m.transactions.Load(key); !ok {
		m.orphans[key] = append(m.orphans[key], orphan{event: e, received: m.now()})
		m.mu.Unlock()
		m.logger.Debug("event for unknown transaction held back", zap.Stringer("key", key))
		return nil
	}
	added := m.appendLocked(e)
	m.mu.Unlock()
	if added {
		m.eventDispatcher.dispatch(key, e)
	}
	return nil
}

func (m *Memory) appendLocked(e core.MultisigEvent) bool {
	key := e.Key()
	fp := fingerprint(e)
	seen, ok := m.fingerprints[key]
	if !ok {
		seen = map[uint64]struct{}{}
		m.fingerprints[key] = seen
	}
	if _, ok := seen[fp]; ok {
		for _, stored := range m.events[key] {
			if sameEvent(stored, e) {
				return false
			}
		}
	}
	seen[fp] = struct{}{}
	m.events[key] = append(m.events[key], e)
	return true
}

// Sweep drops held back events received more than the orphan TTL before now
// and returns how many were dropped.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for key, orphans := range m.orphans {
		kept := orphans[:0]
		for _, o := range orphans {
			if now.Sub(o.received) > m.orphanTTL {
				dropped++
				continue
			}
			kept = append(kept, o)
		}
		if len(kept) == 0 {
			delete(m.orphans, key)
			continue
		}
		m.orphans[key] = kept
	}
	if dropped > 0 {
		m.logger.Info("dropped orphan events", zap.Int("count", dropped))
	}
	return dropped
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// SubscribeEvents calls fn for every event appended to one of keys, or to any
// transaction if keys is empty.
func (m *Memory) SubscribeEvents(keys []core.TxKey, fn func(core.MultisigEvent)) CancelFn {
	return m.eventDispatcher.register(keys, fn)
}

// SubscribeTransactions calls fn for every stored transaction.
func (m *Memory) SubscribeTransactions(fn func(core.MultisigTransaction)) CancelFn {
	return m.txDispatcher.register(nil, fn)
}
