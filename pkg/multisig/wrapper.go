// Package multisig builds multisig wrapper calls and derives the lifecycle of
// a multisig transaction from its events. Everything here is a pure function
// of its arguments.
package multisig

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-faster/errors"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/pkg/callcodec"
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

type Action int

const (
	ActionApprove Action = iota
	ActionReject
)

func (a Action) String() string {
	if a == ActionReject {
		return "reject"
	}
	return "approve"
}

// WrapParams describes one signer's multisig call. The inner call is taken
// from CallData if set, else from Inner; with neither, only CallHash is known.
type WrapParams struct {
	ChainID     core.ChainID
	Inner       *core.CallTree
	CallData    core.Bytes
	CallHash    core.Hash
	Signer      core.AccountID
	Signatories []core.AccountID
	Threshold   uint16
	// Timepoint is nil only for the call that initiates the round.
	Timepoint *core.Timepoint
	Action    Action
	// RequireFinal fails the wrap with ErrMissingCallData instead of
	// falling back to approve_as_multi.
	RequireFinal bool
}

type Wrapper struct {
	chains *chains.Registry
	codec  *callcodec.Codec
}

func NewWrapper(registry *chains.Registry, codec *callcodec.Codec) *Wrapper {
	return &Wrapper{chains: registry, codec: codec}
}

// Wrap returns the outer multisig call for p.Signer.
func (w *Wrapper) Wrap(p WrapParams) (core.CallTree, error) {
	prefix, ok := w.chains.AddressPrefix(p.ChainID)
	if !ok {
		return core.CallTree{}, errors.Errorf("unknown chain %s", p.ChainID)
	}
	members := mapset.NewThreadUnsafeSet[core.AccountID](p.Signatories...)
	if !members.Contains(p.Signer) {
		return core.CallTree{}, core.ErrUnauthorizedSigner
	}
	if p.Threshold < 2 || int(p.Threshold) > members.Cardinality() {
		return core.CallTree{}, errors.Wrapf(core.ErrInvalidThreshold, "%d of %d", p.Threshold, members.Cardinality())
	}
	if p.Action == ActionReject && p.Timepoint == nil {
		return core.CallTree{}, core.ErrMissingTimepoint
	}
	hash, callData, err := w.resolveCall(p)
	if err != nil {
		return core.CallTree{}, err
	}
	fields := core.MultisigFields{
		Threshold:        p.Threshold,
		OtherSignatories: OtherSignatories(p.Signer, p.Signatories, prefix),
		MaybeTimepoint:   p.Timepoint,
		CallHash:         hash,
	}
	tree := core.CallTree{ChainID: p.ChainID, SenderAddress: ss58.Encode(p.Signer, prefix)}
	switch {
	case p.Action == ActionReject:
		tree.Args = core.CancelAsMultiArgs{MultisigFields: fields}
	case len(callData) > 0:
		tree.Args = core.AsMultiArgs{MultisigFields: fields, CallData: callData}
	case p.RequireFinal:
		return core.CallTree{}, core.ErrMissingCallData
	default:
		tree.Args = core.ApproveAsMultiArgs{MultisigFields: fields}
	}
	return tree, nil
}

func (w *Wrapper) resolveCall(p WrapParams) (core.Hash, core.Bytes, error) {
	var (
		hash     core.Hash
		callData core.Bytes
	)
	switch {
	case len(p.CallData) > 0:
		callData = p.CallData
		hash = callcodec.HashBytes(callData)
	case p.Inner != nil:
		data, err := w.codec.Encode(*p.Inner)
		if err != nil {
			return core.Hash{}, nil, errors.Wrap(err, "encode inner call")
		}
		callData = data
		hash = callcodec.HashBytes(data)
	case p.CallHash.IsZero():
		return core.Hash{}, nil, core.ErrMissingCallHash
	default:
		return p.CallHash, nil, nil
	}
	if !p.CallHash.IsZero() && p.CallHash != hash {
		return core.Hash{}, nil, errors.Wrapf(core.ErrCallHashMismatch, "expected %s, got %s", p.CallHash, hash)
	}
	return hash, callData, nil
}

// OtherSignatories returns the signatories except signer, encoded with prefix
// and sorted ascending. Duplicates are dropped.
func OtherSignatories(signer core.AccountID, signatories []core.AccountID, prefix uint16) []core.Address {
	seen := mapset.NewThreadUnsafeSet[core.AccountID](signer)
	others := make([]core.Address, 0, len(signatories))
	for _, id := range signatories {
		if !seen.Add(id) {
			continue
		}
		others = append(others, ss58.Encode(id, prefix))
	}
	slices.Sort(others)
	return others
}
