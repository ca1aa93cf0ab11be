package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/multisig/internal/g"
	"github.com/arnac-io/multisig/pkg/addressbook"
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/config"
	"github.com/arnac-io/multisig/pkg/coordinator"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
	"github.com/arnac-io/multisig/pkg/storage"
)

var errReadOnly = errors.New("replay does not sign or submit extrinsics")

// readOnly stands in for the signer and the submitter: a replay only
// observes rounds.
type readOnly struct{}

func (readOnly) Sign(ctx context.Context, call core.CallTree, signer core.AccountID) ([]byte, error) {
	return nil, errReadOnly
}

func (readOnly) SubmitExtrinsic(ctx context.Context, call core.CallTree, sig []byte) (core.ExtrinsicResult, error) {
	return core.ExtrinsicResult{}, errReadOnly
}

type replayer struct {
	logger      *zap.Logger
	storage     *storage.Memory
	coordinator *coordinator.Coordinator
	// accounts filters the replayed rounds, empty means all
	accounts mapset.Set[core.AccountID]
}

func newReplayer(logger *zap.Logger, cfg config.Config, registry *chains.Registry, book *addressbook.Book) *replayer {
	st := storage.NewMemory(logger, storage.WithOrphanTTL(cfg.Storage.OrphanEventTTL))
	c := coordinator.New(logger, st, readOnly{}, readOnly{}, registry,
		coordinator.WithAddressBook(book),
		coordinator.WithStaleRetry(cfg.Coordinator.StaleRetryAttempts, cfg.Coordinator.StaleRetryDelay),
		coordinator.WithCallCacheSize(cfg.Coordinator.CallCacheSize),
		coordinator.WithResyncConcurrency(cfg.Coordinator.ResyncConcurrency),
	)
	return &replayer{
		logger:      logger,
		storage:     st,
		coordinator: c,
		accounts:    mapset.NewSet(cfg.App.Accounts...),
	}
}

// Run feeds the fixture's events and rounds to the coordinator, events first
// so that they wait for their round, and prints every resulting round to w.
func (r *replayer) Run(ctx context.Context, f Fixture, w io.Writer, asJSON bool) error {
	loc, err := f.Location()
	if err != nil {
		return err
	}
	var keys []core.TxKey
	for i, ft := range f.Transactions {
		tx, err := ft.transaction()
		if err != nil {
			return errors.Wrapf(err, "transaction %d", i)
		}
		if r.accounts.Cardinality() > 0 && !r.accounts.Contains(tx.AccountID) {
			r.logger.Debug("skipping round of unselected account", zap.Stringer("key", tx.Key()))
			continue
		}
		for _, e := range ft.events(tx.Key()) {
			if _, err := r.coordinator.Record(ctx, e); err != nil {
				return errors.Wrapf(err, "record event of %s", tx.Key())
			}
		}
		if _, err := r.coordinator.Track(ctx, tx); err != nil {
			return errors.Wrapf(err, "track %s", tx.Key())
		}
		keys = append(keys, tx.Key())
	}
	if err := r.coordinator.Resync(ctx, keys); err != nil {
		return err
	}
	for _, key := range keys {
		d, err := r.coordinator.Details(ctx, key, f.Lang, loc)
		if err != nil {
			return errors.Wrapf(err, "details of %s", key)
		}
		if asJSON {
			err = printJSON(w, d)
		} else {
			err = printText(w, d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, d coordinator.Details) error {
	b, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "marshal details")
	}
	b = g.ChangeJsonKeys(b, g.CamelToSnake)
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printText(w io.Writer, d coordinator.Details) error {
	tx := d.Transaction
	names := make(map[core.AccountID]string, len(d.Signatories))
	p := &printer{w: w}
	p.printf("%s %s @%s\n", tx.ChainID, tx.CallHash.Hex(), tx.Timepoint())
	p.printf("  status %s, approvals %d/%d\n", d.Evaluation.Status, d.Evaluation.Approved(), tx.Threshold)
	switch {
	case d.Summary == nil:
		p.printf("  call data unknown\n")
	case d.Summary.Destination != nil:
		p.printf("  %s %s to %s\n", d.Summary.Label, d.Summary.Amount, ss58.Short(*d.Summary.Destination, addressbook.ShortAddressSymbols))
	default:
		p.printf("  %s %s\n", d.Summary.Label, d.Summary.Amount)
	}
	if tx.Description != "" {
		p.printf("  %q\n", tx.Description)
	}
	for _, s := range d.Signatories {
		names[s.AccountID] = s.Name
		mark := " "
		if s.Approved {
			mark = "x"
		}
		suffix := ""
		if s.Depositor {
			suffix = " (depositor)"
		}
		p.printf("  [%s] %s%s\n", mark, s.Name, suffix)
	}
	for _, day := range d.Timeline {
		p.printf("  %s\n", day.Date.Format("2006-01-02"))
		for _, entry := range day.Entries {
			name, ok := names[entry.Event.AccountID]
			if !ok {
				name = entry.Event.AccountID.Hex()
			}
			note := ""
			switch {
			case entry.Initiating:
				note = " initiating"
			case entry.Duplicate:
				note = " duplicate"
			}
			p.printf("    %s %s %s%s\n", entry.Event.DateCreated.In(day.Date.Location()).Format("15:04:05"), name, entry.Event.Status, note)
		}
	}
	return p.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
