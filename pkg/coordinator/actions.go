package coordinator

import (
	"context"

	"github.com/avast/retry-go"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/internal/g"
	"github.com/arnac-io/multisig/pkg/callcodec"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/multisig"
	"github.com/arnac-io/multisig/pkg/sentry"
)

// InitiateParams describes a new multisig round. The call is taken from
// CallData if set, else from Call; with neither, only CallHash is submitted.
type InitiateParams struct {
	ChainID     core.ChainID
	Signer      core.AccountID
	Signatories []core.Signatory
	Threshold   uint16
	Call        *core.CallTree
	CallData    core.Bytes
	CallHash    core.Hash
	Description string
}

// Initiate submits the first approval of a round and stores the round with
// the signer as depositor.
func (c *Coordinator) Initiate(ctx context.Context, p InitiateParams) (core.MultisigTransaction, error) {
	ctx, span := c.tracer.Start(ctx, "Initiate", trace.WithAttributes(attribute.String("chain", string(p.ChainID))))
	defer span.End()

	ids := make([]core.AccountID, 0, len(p.Signatories))
	for _, s := range p.Signatories {
		ids = append(ids, s.AccountID)
	}
	call, err := c.wrapper.Wrap(multisig.WrapParams{
		ChainID:     p.ChainID,
		Inner:       p.Call,
		CallData:    p.CallData,
		CallHash:    p.CallHash,
		Signer:      p.Signer,
		Signatories: ids,
		Threshold:   p.Threshold,
		Action:      multisig.ActionApprove,
	})
	if err != nil {
		return core.MultisigTransaction{}, fail(span, err)
	}
	fields, callData := multisigFields(call)
	res, err := c.submit(ctx, call, p.Signer)
	if err != nil {
		return core.MultisigTransaction{}, fail(span, err)
	}
	if !res.Executed {
		return core.MultisigTransaction{}, fail(span, errors.Wrapf(ErrNotExecuted, "initiate %s", fields.CallHash))
	}
	tx := core.MultisigTransaction{
		AccountID:    multisig.DeriveAccountID(ids, p.Threshold),
		ChainID:      p.ChainID,
		CallHash:     fields.CallHash,
		CallData:     callData,
		BlockCreated: res.Timepoint.Height,
		IndexCreated: res.Timepoint.Index,
		Depositor:    p.Signer,
		Threshold:    p.Threshold,
		Signatories:  slices.Clone(p.Signatories),
		Status:       core.StatusSigning,
		Description:  p.Description,
		DateCreated:  c.now(),
	}
	unlock := c.lock(tx.Key())
	defer unlock()
	if err := c.storage.PutTransaction(ctx, tx); err != nil {
		return tx, fail(span, errors.Wrap(err, "put transaction"))
	}
	c.logger.Info("multisig round initiated",
		zap.Stringer("key", tx.Key()),
		zap.String("call_hash", tx.CallHash.Hex()))
	tx, err = c.record(ctx, snapshot{tx: tx, state: multisig.Reconcile(tx, nil)}, p.Signer, multisig.ActionApprove, res, "")
	if err != nil {
		return tx, fail(span, err)
	}
	return tx, nil
}

// Approve submits signer's approval of the round at key. The approval that
// reaches the threshold carries the call data and executes the call; without
// known call data it fails with ErrMissingCallData.
func (c *Coordinator) Approve(ctx context.Context, key core.TxKey, signer core.AccountID) (core.MultisigTransaction, error) {
	ctx, span := c.tracer.Start(ctx, "Approve", trace.WithAttributes(attribute.String("key", key.String())))
	defer span.End()

	tx, err := c.withTransaction(ctx, key, func(s snapshot) (core.MultisigTransaction, error) {
		if s.tx.Status.IsTerminal() {
			return s.tx, errors.Wrapf(core.ErrTerminalStatus, "%s is %s", s.tx.Key(), s.tx.Status)
		}
		eval := multisig.Evaluate(s.tx, s.state)
		if eval.Status.IsTerminal() {
			return s.tx, errors.Wrapf(core.ErrTerminalStatus, "%s is %s by its events", s.tx.Key(), eval.Status)
		}
		if slices.Contains(eval.Approvers, signer) {
			return s.tx, ErrAlreadyApproved
		}
		final := eval.Approved() == int(s.tx.Threshold)-1
		params := multisig.WrapParams{
			ChainID:      s.tx.ChainID,
			CallHash:     s.tx.CallHash,
			Signer:       signer,
			Signatories:  s.tx.SignatoryIDs(),
			Threshold:    s.tx.Threshold,
			Timepoint:    g.Pointer(s.tx.Timepoint()),
			Action:       multisig.ActionApprove,
			RequireFinal: final,
		}
		if final {
			params.CallData = s.tx.CallData
		}
		call, err := c.wrapper.Wrap(params)
		if err != nil {
			return s.tx, err
		}
		res, err := c.submit(ctx, call, signer)
		if err != nil {
			return s.tx, err
		}
		return c.record(ctx, s, signer, multisig.ActionApprove, res, "")
	})
	if err != nil {
		return tx, fail(span, err)
	}
	return tx, nil
}

// Reject cancels the round at key. Only the depositor may reject a round that
// is still SIGNING.
func (c *Coordinator) Reject(ctx context.Context, key core.TxKey, actor core.AccountID, description string) (core.MultisigTransaction, error) {
	ctx, span := c.tracer.Start(ctx, "Reject", trace.WithAttributes(attribute.String("key", key.String())))
	defer span.End()

	tx, err := c.withTransaction(ctx, key, func(s snapshot) (core.MultisigTransaction, error) {
		if s.tx.Status.IsTerminal() {
			return s.tx, errors.Wrapf(core.ErrTerminalStatus, "%s is %s", s.tx.Key(), s.tx.Status)
		}
		if !multisig.CanReject(s.tx, actor) {
			return s.tx, errors.Wrapf(core.ErrUnauthorizedCancel, "%s by %s in %s", s.tx.Key(), actor, s.tx.Status)
		}
		call, err := c.wrapper.Wrap(multisig.WrapParams{
			ChainID:     s.tx.ChainID,
			CallHash:    s.tx.CallHash,
			Signer:      actor,
			Signatories: s.tx.SignatoryIDs(),
			Threshold:   s.tx.Threshold,
			Timepoint:   g.Pointer(s.tx.Timepoint()),
			Action:      multisig.ActionReject,
		})
		if err != nil {
			return s.tx, err
		}
		res, err := c.submit(ctx, call, actor)
		if err != nil {
			return s.tx, err
		}
		return c.record(ctx, s, actor, multisig.ActionReject, res, description)
	})
	if err != nil {
		return tx, fail(span, err)
	}
	return tx, nil
}

// SupplyCallData attaches the call body to the round at key. Data that does
// not hash to the round's call hash is refused.
func (c *Coordinator) SupplyCallData(ctx context.Context, key core.TxKey, data core.Bytes) (core.MultisigTransaction, error) {
	ctx, span := c.tracer.Start(ctx, "SupplyCallData", trace.WithAttributes(attribute.String("key", key.String())))
	defer span.End()

	if hash := callcodec.HashBytes(data); hash != key.CallHash {
		return core.MultisigTransaction{}, fail(span, errors.Wrapf(core.ErrCallHashMismatch, "expected %s, got %s", key.CallHash, hash))
	}
	unlock := c.lock(key)
	defer unlock()
	tx, err := c.storage.GetTransaction(ctx, key)
	if err != nil {
		return tx, fail(span, errors.Wrapf(err, "get transaction %s", key))
	}
	if tx.HasCallData() {
		return tx, nil
	}
	tx.CallData = slices.Clone(data)
	if call, ok := c.decode(tx, tx.CallData); ok {
		tx.Transaction = &call
	}
	if err := c.storage.PutTransaction(ctx, tx); err != nil {
		return tx, fail(span, errors.Wrap(err, "put transaction"))
	}
	c.logger.Info("call data supplied", zap.Stringer("key", key), zap.Bool("decoded", tx.Transaction != nil))
	return tx, nil
}

// withTransaction runs fn on a fresh snapshot of the round at key while
// holding its lock. A round whose initiating event points at another
// timepoint is stale: the round at that timepoint is looked up and fn is
// attempted again.
func (c *Coordinator) withTransaction(ctx context.Context, key core.TxKey, fn func(snapshot) (core.MultisigTransaction, error)) (core.MultisigTransaction, error) {
	var (
		result core.MultisigTransaction
		stale  *core.Timepoint
	)
	err := retry.Do(func() error {
		if stale != nil {
			staleRetries.Inc()
			key = c.refetch(ctx, key, *stale)
			stale = nil
		}
		unlock := c.lock(key)
		defer unlock()
		s, err := c.load(ctx, key)
		if err != nil {
			return err
		}
		if tp, ok := initiatedAt(s.state); ok && tp != s.tx.Timepoint() {
			stale = &tp
			return errors.Wrapf(core.ErrStaleTimepoint, "%s was initiated at %s", key, tp)
		}
		result, err = fn(s)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.staleAttempts),
		retry.Delay(c.staleDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, core.ErrStaleTimepoint)
		}),
	)
	return result, err
}

// refetch returns the key of the round initiated at tp, or key if no such
// round is stored.
func (c *Coordinator) refetch(ctx context.Context, key core.TxKey, tp core.Timepoint) core.TxKey {
	rounds, err := c.storage.GetTransactionsByKey(ctx, core.PartialKey{
		AccountID: key.AccountID,
		ChainID:   key.ChainID,
		CallHash:  key.CallHash,
	})
	if err != nil {
		c.logger.Warn("failed to refetch multisig rounds", zap.Stringer("key", key), zap.Error(err))
		return key
	}
	for _, tx := range rounds {
		if tx.Timepoint() == tp {
			c.logger.Info("stale timepoint resolved", zap.Stringer("key", key), zap.Stringer("timepoint", tp))
			return tx.Key()
		}
	}
	return key
}

func initiatedAt(state multisig.ReconciledState) (core.Timepoint, bool) {
	e := state.InitiatingEvent
	if e == nil || e.EventBlock == nil || e.EventIndex == nil {
		return core.Timepoint{}, false
	}
	return core.Timepoint{Height: *e.EventBlock, Index: *e.EventIndex}, true
}

func (c *Coordinator) submit(ctx context.Context, call core.CallTree, signer core.AccountID) (core.ExtrinsicResult, error) {
	signature, err := c.signer.Sign(ctx, call, signer)
	if err != nil {
		return core.ExtrinsicResult{}, errors.Wrap(err, "sign")
	}
	res, err := c.submitter.SubmitExtrinsic(ctx, call, signature)
	if err != nil {
		return core.ExtrinsicResult{}, errors.Wrap(err, "submit extrinsic")
	}
	return res, nil
}

// record stores the outcome of signer's extrinsic and the resulting state of
// the round. A chain dispatch error is reported and returned with the
// updated transaction.
func (c *Coordinator) record(ctx context.Context, s snapshot, signer core.AccountID, action multisig.Action, res core.ExtrinsicResult, description string) (core.MultisigTransaction, error) {
	tx, event := multisig.ApplyResult(s.tx, signer, action, res, c.now())
	if action == multisig.ActionReject && res.Executed && description != "" {
		tx.CancelDescription = description
	}
	if err := c.storage.PutEvent(ctx, event); err != nil {
		return s.tx, errors.Wrap(err, "put event")
	}
	eventsApplied.WithLabelValues(string(event.Status)).Inc()

	tx, _, _ = c.settle(tx, append(slices.Clone(s.events), event))
	if err := c.storage.PutTransaction(ctx, tx); err != nil {
		return tx, errors.Wrap(err, "put transaction")
	}
	c.transition(s.tx, tx)

	if err := multisig.DispatchError(res); err != nil {
		c.logger.Warn("multisig call failed on chain",
			zap.Stringer("key", tx.Key()),
			zap.String("extrinsic_hash", res.ExtrinsicHash.Hex()),
			zap.Error(err))
		c.report("multisig dispatch error", sentry.SentryInfoData{
			"key":            tx.Key().String(),
			"extrinsic_hash": res.ExtrinsicHash.Hex(),
			"error":          res.MultisigError,
		})
		return tx, err
	}
	if !res.Executed {
		return tx, errors.Wrapf(ErrNotExecuted, "%s by %s", action, signer)
	}
	return tx, nil
}

func multisigFields(call core.CallTree) (core.MultisigFields, core.Bytes) {
	switch args := call.Args.(type) {
	case core.AsMultiArgs:
		return args.MultisigFields, args.CallData
	case core.ApproveAsMultiArgs:
		return args.MultisigFields, nil
	case core.CancelAsMultiArgs:
		return args.MultisigFields, nil
	}
	return core.MultisigFields{}, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
