package multisig

import (
	"bytes"
	"time"

	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/pkg/core"
)

// ReconciledState is the authoritative view of a transaction's events. Each
// bucket holds at most one event per signatory: the earliest one.
type ReconciledState struct {
	Approvals     []core.MultisigEvent
	Cancellations []core.MultisigEvent
	Pending       []core.MultisigEvent
	Failures      []core.MultisigEvent
	// Duplicates are later repeats of an (account, status) pair. They are
	// kept for display and never counted.
	Duplicates      []core.MultisigEvent
	InitiatingEvent *core.MultisigEvent
}

type dedupKey struct {
	account core.AccountID
	status  core.SigningStatus
}

// Reconcile folds events into a ReconciledState for tx. Events of other
// transactions are dropped. The result does not depend on the order of
// events.
func Reconcile(tx core.MultisigTransaction, events []core.MultisigEvent) ReconciledState {
	key := tx.Key()
	matching := make([]core.MultisigEvent, 0, len(events))
	for _, e := range events {
		if e.Key() == key {
			matching = append(matching, e)
		}
	}
	slices.SortFunc(matching, CompareEvents)

	var state ReconciledState
	seen := make(map[dedupKey]struct{}, len(matching))
	for _, e := range matching {
		k := dedupKey{account: e.AccountID, status: e.Status}
		if _, ok := seen[k]; ok {
			state.Duplicates = append(state.Duplicates, e)
			continue
		}
		seen[k] = struct{}{}
		switch e.Status {
		case core.SigningSigned:
			state.Approvals = append(state.Approvals, e)
		case core.SigningCancelled:
			state.Cancellations = append(state.Cancellations, e)
		case core.SigningPendingSigned:
			state.Pending = append(state.Pending, e)
		default:
			state.Failures = append(state.Failures, e)
		}
		if state.InitiatingEvent == nil && isInitiating(tx, e) {
			initiating := e
			state.InitiatingEvent = &initiating
		}
	}
	return state
}

func isInitiating(tx core.MultisigTransaction, e core.MultisigEvent) bool {
	if tx.Depositor.IsZero() || e.AccountID != tx.Depositor {
		return false
	}
	return e.Status == core.SigningSigned || e.Status == core.SigningPendingSigned
}

// CompareEvents is a total order over events of one transaction: by
// dateCreated, then eventBlock and eventIndex with missing values last,
// then extrinsic hash, signatory and status.
func CompareEvents(a, b core.MultisigEvent) int {
	if c := a.DateCreated.Compare(b.DateCreated); c != 0 {
		return c
	}
	if c := compareOptional(a.EventBlock, b.EventBlock); c != 0 {
		return c
	}
	if c := compareOptional(a.EventIndex, b.EventIndex); c != 0 {
		return c
	}
	switch {
	case a.ExtrinsicHash == nil && b.ExtrinsicHash != nil:
		return 1
	case a.ExtrinsicHash != nil && b.ExtrinsicHash == nil:
		return -1
	case a.ExtrinsicHash != nil:
		if c := bytes.Compare(a.ExtrinsicHash[:], b.ExtrinsicHash[:]); c != 0 {
			return c
		}
	}
	if c := a.AccountID.Compare(b.AccountID); c != 0 {
		return c
	}
	switch {
	case a.Status < b.Status:
		return -1
	case a.Status > b.Status:
		return 1
	}
	return 0
}

func compareOptional(a, b *uint32) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

type TimelineEntry struct {
	Event      core.MultisigEvent
	Initiating bool
	Duplicate  bool
}

// TimelineDay groups the events of one calendar day.
type TimelineDay struct {
	Date    time.Time
	Entries []TimelineEntry
}

// Timeline groups the events of tx by the calendar day of dateCreated in loc
// (UTC when loc is nil), days and entries ascending.
func Timeline(tx core.MultisigTransaction, events []core.MultisigEvent, loc *time.Location) []TimelineDay {
	if loc == nil {
		loc = time.UTC
	}
	state := Reconcile(tx, events)
	entries := make([]TimelineEntry, 0, len(events))
	for _, bucket := range [][]core.MultisigEvent{state.Approvals, state.Cancellations, state.Pending, state.Failures} {
		for _, e := range bucket {
			entry := TimelineEntry{Event: e}
			if state.InitiatingEvent != nil && CompareEvents(e, *state.InitiatingEvent) == 0 {
				entry.Initiating = true
			}
			entries = append(entries, entry)
		}
	}
	for _, e := range state.Duplicates {
		entries = append(entries, TimelineEntry{Event: e, Duplicate: true})
	}
	slices.SortFunc(entries, func(a, b TimelineEntry) int {
		return CompareEvents(a.Event, b.Event)
	})

	var days []TimelineDay
	for _, entry := range entries {
		t := entry.Event.DateCreated.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if n := len(days); n == 0 || !days[n-1].Date.Equal(day) {
			days = append(days, TimelineDay{Date: day})
		}
		days[len(days)-1].Entries = append(days[len(days)-1].Entries, entry)
	}
	return days
}
