package coordinator

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/multisig"
)

// Track stores a round observed on chain. A round that is already stored is
// returned unchanged. A new round without a status becomes SIGNING, or
// ESTABLISHED when its initiating event is not known locally.
func (c *Coordinator) Track(ctx context.Context, tx core.MultisigTransaction) (core.MultisigTransaction, error) {
	key := tx.Key()
	unlock := c.lock(key)
	defer unlock()

	existing, err := c.storage.GetTransaction(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, core.ErrEntityNotFound) {
		return tx, errors.Wrapf(err, "get transaction %s", key)
	}
	labelled := tx.Status != ""
	if !labelled {
		tx.Status = core.StatusSigning
	}
	if tx.DateCreated.IsZero() {
		tx.DateCreated = c.now()
	}
	// storing the round releases events that arrived before it
	if err := c.storage.PutTransaction(ctx, tx); err != nil {
		return tx, errors.Wrap(err, "put transaction")
	}
	events, err := c.storage.GetEventsByKeys(ctx, []core.TxKey{key})
	if err != nil {
		return tx, errors.Wrapf(err, "get events of %s", key)
	}
	settled := tx
	if !labelled && multisig.Reconcile(tx, events).InitiatingEvent == nil {
		settled.Status = core.StatusEstablished
	}
	settled, _, changed := c.settle(settled, events)
	if !changed && settled.Status == tx.Status {
		return settled, nil
	}
	if err := c.storage.PutTransaction(ctx, settled); err != nil {
		return settled, errors.Wrap(err, "put transaction")
	}
	c.transition(tx, settled)
	return settled, nil
}

// Record stores an event observed on chain and applies it to its round. An
// event of a round that is not stored yet is kept by the storage; Record
// then returns a zero transaction and no error.
func (c *Coordinator) Record(ctx context.Context, e core.MultisigEvent) (core.MultisigTransaction, error) {
	if err := c.storage.PutEvent(ctx, e); err != nil {
		return core.MultisigTransaction{}, errors.Wrap(err, "put event")
	}
	eventsApplied.WithLabelValues(string(e.Status)).Inc()
	tx, err := c.ApplyEvents(ctx, e.Key())
	if errors.Is(err, core.ErrEntityNotFound) {
		return core.MultisigTransaction{}, nil
	}
	return tx, err
}

// ApplyEvents recomputes the derived state of the round at key from all of
// its events and stores it if it changed.
func (c *Coordinator) ApplyEvents(ctx context.Context, key core.TxKey) (core.MultisigTransaction, error) {
	unlock := c.lock(key)
	defer unlock()

	s, err := c.load(ctx, key)
	if err != nil {
		return core.MultisigTransaction{}, err
	}
	tx, _, changed := c.settle(s.tx, s.events)
	if !changed {
		return tx, nil
	}
	if err := c.storage.PutTransaction(ctx, tx); err != nil {
		return tx, errors.Wrap(err, "put transaction")
	}
	c.transition(s.tx, tx)
	return tx, nil
}

// Resync applies events to many rounds concurrently. All rounds are
// processed; their errors are combined. Nil keys means every stored round.
func (c *Coordinator) Resync(ctx context.Context, keys []core.TxKey) error {
	if keys == nil {
		keys = c.storage.Keys(ctx)
	}
	var (
		mu   sync.Mutex
		errs error
	)
	iterator := iter.Iterator[core.TxKey]{MaxGoroutines: c.resyncConcurrency}
	iterator.ForEach(keys, func(key *core.TxKey) {
		if _, err := c.ApplyEvents(ctx, *key); err != nil {
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
		}
	})
	return errs
}

// Watch applies every event appended to the storage until ctx is done.
// Events are applied on Watch's goroutine, never on the writer's.
func (c *Coordinator) Watch(ctx context.Context) {
	var (
		mu      sync.Mutex
		pending = map[core.TxKey]struct{}{}
		wake    = make(chan struct{}, 1)
	)
	cancel := c.storage.SubscribeEvents(nil, func(e core.MultisigEvent) {
		mu.Lock()
		pending[e.Key()] = struct{}{}
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		}
		mu.Lock()
		keys := maps.Keys(pending)
		pending = map[core.TxKey]struct{}{}
		mu.Unlock()
		if err := c.Resync(ctx, keys); err != nil {
			c.logger.Warn("failed to apply events", zap.Int("keys", len(keys)), zap.Error(err))
		}
	}
}
