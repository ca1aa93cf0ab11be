package coordinator

import (
	"context"
	"time"

	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/introspect"
	"github.com/arnac-io/multisig/pkg/multisig"
	"github.com/arnac-io/multisig/pkg/ss58"
)

type SignatoryView struct {
	AccountID core.AccountID `json:"account_id"`
	Address   core.Address   `json:"address"`
	Name      string         `json:"name"`
	Approved  bool           `json:"approved"`
	Depositor bool           `json:"depositor"`
}

// Details is the display form of a round.
type Details struct {
	Transaction core.MultisigTransaction
	Evaluation  multisig.Evaluation
	// Summary is nil while the call data is unknown.
	Summary     *introspect.Summary
	Signatories []SignatoryView
	Timeline    []multisig.TimelineDay
}

// Details collects everything shown for the round at key. Labels are
// rendered for lang, timeline days are calendar days in loc.
func (c *Coordinator) Details(ctx context.Context, key core.TxKey, lang string, loc *time.Location) (Details, error) {
	s, err := c.load(ctx, key)
	if err != nil {
		return Details{}, err
	}
	eval := multisig.Evaluate(s.tx, s.state)
	d := Details{
		Transaction: s.tx,
		Evaluation:  eval,
		Timeline:    multisig.Timeline(s.tx, s.events, loc),
	}
	if s.tx.Transaction != nil {
		summary := introspect.Describe(*s.tx.Transaction, c.chains, lang)
		d.Summary = &summary
	}
	prefix, _ := c.chains.AddressPrefix(s.tx.ChainID)
	for _, sig := range s.tx.Signatories {
		d.Signatories = append(d.Signatories, SignatoryView{
			AccountID: sig.AccountID,
			Address:   ss58.Encode(sig.AccountID, prefix),
			Name:      c.book.ResolveName(sig.AccountID, s.tx.Signatories, prefix),
			Approved:  slices.Contains(eval.Approvers, sig.AccountID),
			Depositor: sig.AccountID == s.tx.Depositor,
		})
	}
	return d, nil
}
