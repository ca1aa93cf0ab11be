// Package coordinator drives multisig rounds: it wraps and submits the
// signer's calls, records the results as events and keeps every stored
// transaction's derived state in line with its events.
//
// Work on one transaction key is serialised; different keys proceed in
// parallel.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/puzpuzpuz/xsync/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arnac-io/multisig/pkg/addressbook"
	"github.com/arnac-io/multisig/pkg/cache"
	"github.com/arnac-io/multisig/pkg/callcodec"
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/multisig"
	"github.com/arnac-io/multisig/pkg/sentry"
	"github.com/arnac-io/multisig/pkg/ss58"
	"github.com/arnac-io/multisig/pkg/storage"
)

var (
	eventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multisig_events_applied",
			Help: "Multisig events recorded by the coordinator",
		},
		[]string{"status"},
	)
	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multisig_status_transitions",
			Help: "Multisig transaction status changes",
		},
		[]string{"from", "to"},
	)
	staleRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "multisig_stale_timepoint_retries",
			Help: "Operations retried after a stale timepoint",
		},
	)
)

var (
	ErrNotExecuted     = errors.New("extrinsic was not executed")
	ErrAlreadyApproved = errors.New("signer has already approved")
	ErrUnknownChain    = errors.New("unknown chain")
)

// Storage keeps transactions and their append-only events.
type Storage interface {
	GetTransaction(ctx context.Context, key core.TxKey) (core.MultisigTransaction, error)
	GetTransactionsByKey(ctx context.Context, key core.PartialKey) ([]core.MultisigTransaction, error)
	GetEventsByKeys(ctx context.Context, keys []core.TxKey) ([]core.MultisigEvent, error)
	PutTransaction(ctx context.Context, tx core.MultisigTransaction) error
	PutEvent(ctx context.Context, e core.MultisigEvent) error
	Keys(ctx context.Context) []core.TxKey
	SubscribeEvents(keys []core.TxKey, fn func(core.MultisigEvent)) storage.CancelFn
}

// Signer signs a wrapped call on behalf of signer.
type Signer interface {
	Sign(ctx context.Context, call core.CallTree, signer core.AccountID) ([]byte, error)
}

// Submitter submits a signed call and waits for its inclusion.
type Submitter interface {
	SubmitExtrinsic(ctx context.Context, call core.CallTree, signature []byte) (core.ExtrinsicResult, error)
}

type Coordinator struct {
	logger    *zap.Logger
	storage   Storage
	signer    Signer
	submitter Submitter
	chains    *chains.Registry
	codec     *callcodec.Codec
	wrapper   *multisig.Wrapper
	book      *addressbook.Book
	calls     *cache.Cache[core.PartialKey, core.CallTree]
	locks     *xsync.MapOf[core.TxKey, *sync.Mutex]
	tracer    trace.Tracer
	report    func(title string, data sentry.SentryInfoData)
	now       func() time.Time

	staleAttempts     uint
	staleDelay        time.Duration
	resyncConcurrency int
}

type Options struct {
	book              *addressbook.Book
	report            func(title string, data sentry.SentryInfoData)
	now               func() time.Time
	staleAttempts     uint
	staleDelay        time.Duration
	callCacheSize     int
	resyncConcurrency int
}

type Option func(o *Options)

func WithAddressBook(book *addressbook.Book) Option {
	return func(o *Options) {
		o.book = book
	}
}

// WithErrorReporter replaces the Sentry reporter of chain dispatch errors.
func WithErrorReporter(report func(title string, data sentry.SentryInfoData)) Option {
	return func(o *Options) {
		o.report = report
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.now = now
	}
}

// WithStaleRetry sets how often an operation is attempted when the recorded
// timepoint turns out to be stale.
func WithStaleRetry(attempts uint, delay time.Duration) Option {
	return func(o *Options) {
		o.staleAttempts = attempts
		o.staleDelay = delay
	}
}

func WithCallCacheSize(size int) Option {
	return func(o *Options) {
		o.callCacheSize = size
	}
}

func WithResyncConcurrency(n int) Option {
	return func(o *Options) {
		o.resyncConcurrency = n
	}
}

func New(logger *zap.Logger, st Storage, signer Signer, submitter Submitter, registry *chains.Registry, opts ...Option) *Coordinator {
	o := Options{
		report: func(title string, data sentry.SentryInfoData) {
			sentry.Send(title, data, sentry.LevelError)
		},
		now:               time.Now,
		staleAttempts:     3,
		staleDelay:        50 * time.Millisecond,
		callCacheSize:     1024,
		resyncConcurrency: 5,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.staleAttempts == 0 {
		o.staleAttempts = 1
	}
	if o.resyncConcurrency < 1 {
		o.resyncConcurrency = 1
	}
	if o.callCacheSize < 1 {
		o.callCacheSize = 1
	}
	codec := callcodec.New(registry)
	book := o.book
	if book == nil {
		book = addressbook.NewAddressBook(nil, nil)
	}
	return &Coordinator{
		logger:            logger,
		storage:           st,
		signer:            signer,
		submitter:         submitter,
		chains:            registry,
		codec:             codec,
		wrapper:           multisig.NewWrapper(registry, codec),
		book:              book,
		calls:             cache.NewLRUCache[core.PartialKey, core.CallTree](o.callCacheSize, "decoded_calls"),
		locks:             xsync.NewTypedMapOf[core.TxKey, *sync.Mutex](hashTxKey),
		tracer:            otel.Tracer("github.com/arnac-io/multisig/pkg/coordinator"),
		report:            o.report,
		now:               o.now,
		staleAttempts:     o.staleAttempts,
		staleDelay:        o.staleDelay,
		resyncConcurrency: o.resyncConcurrency,
	}
}

// lock serialises work on key. The returned function releases it.
func (c *Coordinator) lock(key core.TxKey) func() {
	mu, _ := c.locks.LoadOrCompute(key, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}

type snapshot struct {
	tx     core.MultisigTransaction
	events []core.MultisigEvent
	state  multisig.ReconciledState
}

func (c *Coordinator) load(ctx context.Context, key core.TxKey) (snapshot, error) {
	tx, err := c.storage.GetTransaction(ctx, key)
	if err != nil {
		return snapshot{}, errors.Wrapf(err, "get transaction %s", key)
	}
	events, err := c.storage.GetEventsByKeys(ctx, []core.TxKey{key})
	if err != nil {
		return snapshot{}, errors.Wrapf(err, "get events of %s", key)
	}
	return snapshot{tx: tx, events: events, state: multisig.Reconcile(tx, events)}, nil
}

// settle recomputes the derived state of tx from events. It reports whether
// anything changed.
func (c *Coordinator) settle(tx core.MultisigTransaction, events []core.MultisigEvent) (core.MultisigTransaction, multisig.Evaluation, bool) {
	eval := multisig.Evaluate(tx, multisig.Reconcile(tx, events))
	changed := eval.Status != tx.Status
	tx.Status = eval.Status
	if tx.HasCallData() && tx.Transaction == nil {
		if call, ok := c.decode(tx, tx.CallData); ok {
			tx.Transaction = &call
			changed = true
		}
	}
	return tx, eval, changed
}

func (c *Coordinator) transition(before, after core.MultisigTransaction) {
	if before.Status == after.Status {
		return
	}
	statusTransitions.WithLabelValues(string(before.Status), string(after.Status)).Inc()
	c.logger.Info("multisig status changed",
		zap.Stringer("key", after.Key()),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)))
}

// decode returns the call of data as sent by the multisig account.
func (c *Coordinator) decode(tx core.MultisigTransaction, data core.Bytes) (core.CallTree, bool) {
	key := core.PartialKey{AccountID: tx.AccountID, ChainID: tx.ChainID, CallHash: tx.CallHash}
	call, err := c.calls.GetOrLoad(key, func() (core.CallTree, error) {
		prefix, ok := c.chains.AddressPrefix(tx.ChainID)
		if !ok {
			return core.CallTree{}, errors.Wrapf(ErrUnknownChain, "%s", tx.ChainID)
		}
		return c.codec.Decode(tx.ChainID, ss58.Encode(tx.AccountID, prefix), data)
	})
	if err != nil {
		c.logger.Warn("failed to decode call data", zap.Stringer("key", tx.Key()), zap.Error(err))
		return core.CallTree{}, false
	}
	return call, true
}
