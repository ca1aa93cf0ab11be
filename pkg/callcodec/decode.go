package callcodec

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

// maxVectorLen guards allocations driven by untrusted length prefixes.
const maxVectorLen = 1 << 16

// Decode turns call data into a call tree sent by sender on chainID.
// A top-level call the registry does not know is returned as UnknownArgs;
// an unknown call nested in a batch or proxy cannot be delimited and fails.
func (c *Codec) Decode(chainID core.ChainID, sender core.Address, data []byte) (core.CallTree, error) {
	prefix, ok := c.chains.AddressPrefix(chainID)
	if !ok {
		return core.CallTree{}, errors.Errorf("unknown chain %s", chainID)
	}
	r := bytes.NewReader(data)
	d := &decoder{
		codec:   c,
		chainID: chainID,
		prefix:  prefix,
		data:    data,
		r:       r,
		dec:     scale.NewDecoder(r),
	}
	call, err := d.call(sender)
	if err != nil {
		return core.CallTree{}, errors.Wrap(err, "decode call")
	}
	if r.Len() != 0 {
		return core.CallTree{}, errors.Errorf("decode call: %d trailing bytes", r.Len())
	}
	return call, nil
}

type decoder struct {
	codec   *Codec
	chainID core.ChainID
	prefix  uint16
	data    []byte
	r       *bytes.Reader
	dec     *scale.Decoder
	depth   int
}

func (d *decoder) offset() int {
	return len(d.data) - d.r.Len()
}

func (d *decoder) call(sender core.Address) (core.CallTree, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > core.MaxCallDepth {
		return core.CallTree{}, core.ErrCallTooDeep
	}
	pallet, err := d.dec.ReadOneByte()
	if err != nil {
		return core.CallTree{}, err
	}
	method, err := d.dec.ReadOneByte()
	if err != nil {
		return core.CallTree{}, err
	}
	tree := core.CallTree{ChainID: d.chainID, SenderAddress: sender}
	kind, ok := d.codec.chains.Lookup(d.chainID, pallet, method)
	if !ok {
		if d.depth > 1 {
			return core.CallTree{}, errors.Wrapf(core.ErrUnknownCallKind, "nested call %d/%d", pallet, method)
		}
		raw, err := io.ReadAll(d.r)
		if err != nil {
			return core.CallTree{}, err
		}
		section, ok := d.codec.chains.PalletName(d.chainID, pallet)
		if !ok {
			section = fmt.Sprintf("pallet%d", pallet)
		}
		tree.Args = core.UnknownArgs{
			Section: section,
			Method:  fmt.Sprintf("call%d", method),
			Pallet:  pallet,
			Call:    method,
			Raw:     raw,
		}
		return tree, nil
	}
	args, err := d.args(kind, sender)
	if err != nil {
		return core.CallTree{}, errors.Wrapf(err, "decode %s", kind)
	}
	tree.Args = args
	return tree, nil
}

func (d *decoder) args(kind core.CallKind, sender core.Address) (core.CallArgs, error) {
	switch kind {
	case core.Transfer:
		f, err := d.transferFields()
		return core.TransferArgs{TransferFields: f}, err
	case core.OrmlTransfer:
		dest, err := d.multiAddress()
		if err != nil {
			return nil, err
		}
		asset, err := d.text()
		if err != nil {
			return nil, err
		}
		value, err := d.balance()
		return core.OrmlTransferArgs{TransferFields: core.TransferFields{Dest: dest, Value: value}, AssetID: asset}, err
	case core.AssetTransfer:
		id, err := d.compact()
		if err != nil {
			return nil, err
		}
		f, err := d.transferFields()
		return core.AssetTransferArgs{TransferFields: f, AssetID: id.String()}, err
	case core.XcmTransfer:
		chain, err := d.text()
		if err != nil {
			return nil, err
		}
		dest, err := d.multiAddress()
		if err != nil {
			return nil, err
		}
		var asset *string
		if has, err := d.option(); err != nil {
			return nil, err
		} else if has {
			s, err := d.text()
			if err != nil {
				return nil, err
			}
			asset = &s
		}
		value, err := d.balance()
		return core.XcmTransferArgs{
			TransferFields:   core.TransferFields{Dest: dest, Value: value},
			AssetID:          asset,
			DestinationChain: core.ChainID(chain),
		}, err
	case core.Batch:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		children := make([]core.CallTree, 0, n)
		for i := 0; i < n; i++ {
			child, err := d.call(sender)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return core.BatchArgs{Transactions: children}, nil
	case core.Proxy:
		realAddress, err := d.multiAddress()
		if err != nil {
			return nil, err
		}
		var force *core.ProxyType
		if has, err := d.option(); err != nil {
			return nil, err
		} else if has {
			t, err := d.proxyType()
			if err != nil {
				return nil, err
			}
			force = &t
		}
		inner, err := d.call(realAddress)
		if err != nil {
			return nil, err
		}
		return core.ProxyArgs{Real: realAddress, ForceProxyType: force, Transaction: inner}, nil
	case core.MultisigAsMulti:
		head, err := d.multisigHead(true)
		if err != nil {
			return nil, err
		}
		start := d.offset()
		if _, err := d.call(sender); err != nil {
			return nil, err
		}
		callData := core.Bytes(append([]byte{}, d.data[start:d.offset()]...))
		if err := d.skipWeight(); err != nil {
			return nil, err
		}
		head.CallHash = HashBytes(callData)
		return core.AsMultiArgs{MultisigFields: head, CallData: callData}, nil
	case core.MultisigApproveAsMulti:
		head, err := d.multisigHead(true)
		if err != nil {
			return nil, err
		}
		if err := d.dec.Read(head.CallHash[:]); err != nil {
			return nil, err
		}
		if err := d.skipWeight(); err != nil {
			return nil, err
		}
		return core.ApproveAsMultiArgs{MultisigFields: head}, nil
	case core.MultisigCancelAsMulti:
		head, err := d.multisigHead(false)
		if err != nil {
			return nil, err
		}
		if err := d.dec.Read(head.CallHash[:]); err != nil {
			return nil, err
		}
		return core.CancelAsMultiArgs{MultisigFields: head}, nil
	case core.Bond:
		value, err := d.balance()
		if err != nil {
			return nil, err
		}
		payee, err := d.payee()
		return core.BondArgs{Value: value, Payee: payee}, err
	case core.Nominate:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		targets := make([]core.Address, 0, n)
		for i := 0; i < n; i++ {
			target, err := d.multiAddress()
			if err != nil {
				return nil, err
			}
			targets = append(targets, target)
		}
		return core.NominateArgs{Targets: targets}, nil
	case core.Unstake:
		value, err := d.balance()
		return core.UnstakeArgs{Value: value}, err
	case core.Restake:
		value, err := d.balance()
		return core.RestakeArgs{Value: value}, err
	case core.StakeMore:
		value, err := d.balance()
		return core.StakeMoreArgs{MaxAdditional: value}, err
	case core.Redeem:
		var spans uint32
		err := d.dec.Decode(&spans)
		return core.RedeemArgs{NumSlashingSpans: spans}, err
	case core.Chill:
		return core.ChillArgs{}, nil
	case core.Destination:
		payee, err := d.payee()
		return core.DestinationArgs{Payee: payee}, err
	case core.AddProxy, core.RemoveProxy:
		delegate, err := d.multiAddress()
		if err != nil {
			return nil, err
		}
		t, err := d.proxyType()
		if err != nil {
			return nil, err
		}
		var delay uint32
		if err := d.dec.Decode(&delay); err != nil {
			return nil, err
		}
		if kind == core.AddProxy {
			return core.AddProxyArgs{Delegate: delegate, ProxyType: t, Delay: delay}, nil
		}
		return core.RemoveProxyArgs{Delegate: delegate, ProxyType: t, Delay: delay}, nil
	case core.CreatePureProxy:
		t, err := d.proxyType()
		if err != nil {
			return nil, err
		}
		var delay uint32
		if err := d.dec.Decode(&delay); err != nil {
			return nil, err
		}
		var index uint16
		err = d.dec.Decode(&index)
		return core.CreatePureProxyArgs{ProxyType: t, Delay: delay, Index: index}, err
	case core.RemovePureProxy:
		spawner, err := d.multiAddress()
		if err != nil {
			return nil, err
		}
		t, err := d.proxyType()
		if err != nil {
			return nil, err
		}
		var index uint16
		if err := d.dec.Decode(&index); err != nil {
			return nil, err
		}
		height, err := d.compact()
		if err != nil {
			return nil, err
		}
		extIndex, err := d.compact()
		if err != nil {
			return nil, err
		}
		return core.RemovePureProxyArgs{
			Spawner:   spawner,
			ProxyType: t,
			Index:     index,
			Height:    uint32(height.Uint64()),
			ExtIndex:  uint32(extIndex.Uint64()),
		}, nil
	}
	return nil, errors.Wrapf(core.ErrUnknownCallKind, "%s", kind)
}

func (d *decoder) transferFields() (core.TransferFields, error) {
	dest, err := d.multiAddress()
	if err != nil {
		return core.TransferFields{}, err
	}
	value, err := d.balance()
	return core.TransferFields{Dest: dest, Value: value}, err
}

func (d *decoder) accountID() (core.Address, error) {
	var id core.AccountID
	if err := d.dec.Read(id[:]); err != nil {
		return "", err
	}
	return ss58.Encode(id, d.prefix), nil
}

func (d *decoder) multiAddress() (core.Address, error) {
	variant, err := d.dec.ReadOneByte()
	if err != nil {
		return "", err
	}
	if variant != multiAddressID {
		return "", errors.Errorf("unsupported multi address variant %d", variant)
	}
	return d.accountID()
}

func (d *decoder) compact() (*big.Int, error) {
	return d.dec.DecodeUintCompact()
}

func (d *decoder) length() (int, error) {
	n, err := d.compact()
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() || n.Uint64() > maxVectorLen {
		return 0, errors.Errorf("vector length %s is too large", n)
	}
	return int(n.Uint64()), nil
}

func (d *decoder) balance() (decimal.Decimal, error) {
	v, err := d.compact()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(v, 0), nil
}

func (d *decoder) text() (string, error) {
	n, err := d.length()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if err := d.dec.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) option() (bool, error) {
	b, err := d.dec.ReadOneByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.Errorf("invalid option byte %d", b)
}

func (d *decoder) proxyType() (core.ProxyType, error) {
	b, err := d.dec.ReadOneByte()
	if err != nil {
		return "", err
	}
	if int(b) >= len(core.ProxyTypes) {
		return "", errors.Errorf("unknown proxy type %d", b)
	}
	return core.ProxyTypes[b], nil
}

func (d *decoder) payee() (core.Payee, error) {
	b, err := d.dec.ReadOneByte()
	if err != nil {
		return core.Payee{}, err
	}
	switch b {
	case 0:
		return core.Payee{Type: core.PayeeStaked}, nil
	case 1:
		return core.Payee{Type: core.PayeeStash}, nil
	case 2:
		return core.Payee{Type: core.PayeeController}, nil
	case 3:
		account, err := d.accountID()
		if err != nil {
			return core.Payee{}, err
		}
		return core.Payee{Type: core.PayeeAccount, Account: &account}, nil
	case 4:
		return core.Payee{Type: core.PayeeNone}, nil
	}
	return core.Payee{}, errors.Errorf("unknown payee variant %d", b)
}

func (d *decoder) timepoint() (core.Timepoint, error) {
	var t core.Timepoint
	if err := d.dec.Decode(&t.Height); err != nil {
		return t, err
	}
	err := d.dec.Decode(&t.Index)
	return t, err
}

func (d *decoder) multisigHead(optionalTimepoint bool) (core.MultisigFields, error) {
	var f core.MultisigFields
	if err := d.dec.Decode(&f.Threshold); err != nil {
		return f, err
	}
	n, err := d.length()
	if err != nil {
		return f, err
	}
	f.OtherSignatories = make([]core.Address, 0, n)
	for i := 0; i < n; i++ {
		s, err := d.accountID()
		if err != nil {
			return f, err
		}
		f.OtherSignatories = append(f.OtherSignatories, s)
	}
	if optionalTimepoint {
		has, err := d.option()
		if err != nil || !has {
			return f, err
		}
	}
	t, err := d.timepoint()
	if err != nil {
		return f, err
	}
	f.MaybeTimepoint = &t
	return f, nil
}

func (d *decoder) skipWeight() error {
	if _, err := d.compact(); err != nil {
		return err
	}
	_, err := d.compact()
	return err
}
