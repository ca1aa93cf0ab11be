// Package callcodec produces the canonical SCALE encoding of a call tree and
// decodes call data back into a tree. The call hash of a multisig round is
// the blake2b-256 digest of this encoding, so every signatory must arrive at
// the same bytes for the same call.
package callcodec

import (
	"bytes"
	"math/big"
	"strconv"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"

	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

const multiAddressID = 0

var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

type Codec struct {
	chains *chains.Registry
}

func New(registry *chains.Registry) *Codec {
	return &Codec{chains: registry}
}

// HashBytes returns the call hash of already encoded call data.
func HashBytes(data []byte) core.Hash {
	return blake2b.Sum256(data)
}

// Hash encodes call and returns its call hash.
func (c *Codec) Hash(call core.CallTree) (core.Hash, error) {
	data, err := c.Encode(call)
	if err != nil {
		return core.Hash{}, err
	}
	return HashBytes(data), nil
}

// Encode returns the canonical encoding of call.
func (c *Codec) Encode(call core.CallTree) ([]byte, error) {
	var buf bytes.Buffer
	e := &encoder{codec: c, chainID: call.ChainID, enc: scale.NewEncoder(&buf)}
	if err := e.call(call); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	codec   *Codec
	chainID core.ChainID
	enc     *scale.Encoder
	depth   int
}

var _ core.ArgsVisitor = (*encoder)(nil)

func (e *encoder) call(call core.CallTree) error {
	if call.Args == nil {
		return errors.Wrap(core.ErrUnknownCallKind, "call has no arguments")
	}
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > core.MaxCallDepth {
		return core.ErrCallTooDeep
	}
	if kind := call.Kind(); kind != core.Unknown {
		idx, ok := e.codec.chains.CallIndex(e.chainID, kind)
		if !ok {
			return errors.Wrapf(core.ErrUnknownCallKind, "%s on chain %s", kind, e.chainID)
		}
		if err := e.enc.PushByte(idx.Pallet); err != nil {
			return err
		}
		if err := e.enc.PushByte(idx.Call); err != nil {
			return err
		}
	}
	if err := call.Args.Accept(e); err != nil {
		return errors.Wrapf(err, "encode %s", call.Kind())
	}
	return nil
}

func (e *encoder) accountID(address core.Address) error {
	id, err := ss58.AccountID(address)
	if err != nil {
		return errors.Wrapf(err, "address %q", address)
	}
	return e.enc.Write(id[:])
}

func (e *encoder) multiAddress(address core.Address) error {
	if err := e.enc.PushByte(multiAddressID); err != nil {
		return err
	}
	return e.accountID(address)
}

func (e *encoder) compact(v uint64) error {
	return e.enc.EncodeUintCompact(*new(big.Int).SetUint64(v))
}

func (e *encoder) balance(d decimal.Decimal) error {
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return errors.Errorf("balance %s is not a non-negative integer", d)
	}
	v := d.BigInt()
	if v.Cmp(maxBalance) > 0 {
		return errors.Errorf("balance %s overflows u128", d)
	}
	return e.enc.EncodeUintCompact(*v)
}

func (e *encoder) text(s string) error {
	if err := e.compact(uint64(len(s))); err != nil {
		return err
	}
	return e.enc.Write([]byte(s))
}

func (e *encoder) u16(v uint16) error {
	return e.enc.Encode(v)
}

func (e *encoder) u32(v uint32) error {
	return e.enc.Encode(v)
}

func (e *encoder) proxyType(t core.ProxyType) error {
	i := slices.Index(core.ProxyTypes, t)
	if i < 0 {
		return errors.Errorf("unknown proxy type %q", t)
	}
	return e.enc.PushByte(byte(i))
}

func (e *encoder) payee(p core.Payee) error {
	switch p.Type {
	case core.PayeeStaked:
		return e.enc.PushByte(0)
	case core.PayeeStash:
		return e.enc.PushByte(1)
	case core.PayeeController:
		return e.enc.PushByte(2)
	case core.PayeeAccount:
		if p.Account == nil {
			return errors.New("payee account is missing")
		}
		if err := e.enc.PushByte(3); err != nil {
			return err
		}
		return e.accountID(*p.Account)
	case core.PayeeNone:
		return e.enc.PushByte(4)
	}
	return errors.Errorf("unknown payee type %q", p.Type)
}

func (e *encoder) timepoint(t core.Timepoint) error {
	if err := e.u32(t.Height); err != nil {
		return err
	}
	return e.u32(t.Index)
}

func (e *encoder) multisigHead(f core.MultisigFields, optionalTimepoint bool) error {
	if err := e.u16(f.Threshold); err != nil {
		return err
	}
	if err := e.compact(uint64(len(f.OtherSignatories))); err != nil {
		return err
	}
	for _, s := range f.OtherSignatories {
		if err := e.accountID(s); err != nil {
			return err
		}
	}
	if !optionalTimepoint {
		if f.MaybeTimepoint == nil {
			return core.ErrMissingTimepoint
		}
		return e.timepoint(*f.MaybeTimepoint)
	}
	if f.MaybeTimepoint == nil {
		return e.enc.PushByte(0)
	}
	if err := e.enc.PushByte(1); err != nil {
		return err
	}
	return e.timepoint(*f.MaybeTimepoint)
}

// maxWeight is always encoded as zero; the chain collaborator fills it in.
func (e *encoder) maxWeight() error {
	if err := e.compact(0); err != nil {
		return err
	}
	return e.compact(0)
}

func (e *encoder) VisitTransfer(a core.TransferArgs) error {
	if err := e.multiAddress(a.Dest); err != nil {
		return err
	}
	return e.balance(a.Value)
}

func (e *encoder) VisitOrmlTransfer(a core.OrmlTransferArgs) error {
	if err := e.multiAddress(a.Dest); err != nil {
		return err
	}
	if err := e.text(a.AssetID); err != nil {
		return err
	}
	return e.balance(a.Value)
}

func (e *encoder) VisitAssetTransfer(a core.AssetTransferArgs) error {
	id, err := strconv.ParseUint(a.AssetID, 10, 32)
	if err != nil {
		return errors.Wrapf(err, "asset id %q", a.AssetID)
	}
	if err := e.compact(id); err != nil {
		return err
	}
	if err := e.multiAddress(a.Dest); err != nil {
		return err
	}
	return e.balance(a.Value)
}

func (e *encoder) VisitXcmTransfer(a core.XcmTransferArgs) error {
	if err := e.text(string(a.DestinationChain)); err != nil {
		return err
	}
	if err := e.multiAddress(a.Dest); err != nil {
		return err
	}
	if a.AssetID == nil {
		if err := e.enc.PushByte(0); err != nil {
			return err
		}
	} else {
		if err := e.enc.PushByte(1); err != nil {
			return err
		}
		if err := e.text(*a.AssetID); err != nil {
			return err
		}
	}
	return e.balance(a.Value)
}

func (e *encoder) VisitBatch(a core.BatchArgs) error {
	if err := e.compact(uint64(len(a.Transactions))); err != nil {
		return err
	}
	for _, child := range a.Transactions {
		if err := e.call(child); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) VisitProxy(a core.ProxyArgs) error {
	if err := e.multiAddress(a.Real); err != nil {
		return err
	}
	if a.ForceProxyType == nil {
		if err := e.enc.PushByte(0); err != nil {
			return err
		}
	} else {
		if err := e.enc.PushByte(1); err != nil {
			return err
		}
		if err := e.proxyType(*a.ForceProxyType); err != nil {
			return err
		}
	}
	return e.call(a.Transaction)
}

func (e *encoder) VisitAsMulti(a core.AsMultiArgs) error {
	if len(a.CallData) == 0 {
		return core.ErrMissingCallData
	}
	if err := e.multisigHead(a.MultisigFields, true); err != nil {
		return err
	}
	if err := e.enc.Write(a.CallData); err != nil {
		return err
	}
	return e.maxWeight()
}

func (e *encoder) VisitApproveAsMulti(a core.ApproveAsMultiArgs) error {
	if err := e.multisigHead(a.MultisigFields, true); err != nil {
		return err
	}
	if err := e.enc.Write(a.CallHash[:]); err != nil {
		return err
	}
	return e.maxWeight()
}

func (e *encoder) VisitCancelAsMulti(a core.CancelAsMultiArgs) error {
	if err := e.multisigHead(a.MultisigFields, false); err != nil {
		return err
	}
	return e.enc.Write(a.CallHash[:])
}

func (e *encoder) VisitBond(a core.BondArgs) error {
	if err := e.balance(a.Value); err != nil {
		return err
	}
	return e.payee(a.Payee)
}

func (e *encoder) VisitNominate(a core.NominateArgs) error {
	if err := e.compact(uint64(len(a.Targets))); err != nil {
		return err
	}
	for _, target := range a.Targets {
		if err := e.multiAddress(target); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) VisitUnstake(a core.UnstakeArgs) error {
	return e.balance(a.Value)
}

func (e *encoder) VisitRestake(a core.RestakeArgs) error {
	return e.balance(a.Value)
}

func (e *encoder) VisitStakeMore(a core.StakeMoreArgs) error {
	return e.balance(a.MaxAdditional)
}

func (e *encoder) VisitRedeem(a core.RedeemArgs) error {
	return e.u32(a.NumSlashingSpans)
}

func (e *encoder) VisitChill(core.ChillArgs) error {
	return nil
}

func (e *encoder) VisitDestination(a core.DestinationArgs) error {
	return e.payee(a.Payee)
}

func (e *encoder) VisitAddProxy(a core.AddProxyArgs) error {
	return e.proxyDefinition(a.Delegate, a.ProxyType, a.Delay)
}

func (e *encoder) VisitRemoveProxy(a core.RemoveProxyArgs) error {
	return e.proxyDefinition(a.Delegate, a.ProxyType, a.Delay)
}

func (e *encoder) proxyDefinition(delegate core.Address, t core.ProxyType, delay uint32) error {
	if err := e.multiAddress(delegate); err != nil {
		return err
	}
	if err := e.proxyType(t); err != nil {
		return err
	}
	return e.u32(delay)
}

func (e *encoder) VisitCreatePureProxy(a core.CreatePureProxyArgs) error {
	if err := e.proxyType(a.ProxyType); err != nil {
		return err
	}
	if err := e.u32(a.Delay); err != nil {
		return err
	}
	return e.u16(a.Index)
}

func (e *encoder) VisitRemovePureProxy(a core.RemovePureProxyArgs) error {
	if err := e.multiAddress(a.Spawner); err != nil {
		return err
	}
	if err := e.proxyType(a.ProxyType); err != nil {
		return err
	}
	if err := e.u16(a.Index); err != nil {
		return err
	}
	if err := e.compact(uint64(a.Height)); err != nil {
		return err
	}
	return e.compact(uint64(a.ExtIndex))
}

func (e *encoder) VisitUnknown(a core.UnknownArgs) error {
	if err := e.enc.PushByte(a.Pallet); err != nil {
		return err
	}
	if err := e.enc.PushByte(a.Call); err != nil {
		return err
	}
	return e.enc.Write(a.Raw)
}
