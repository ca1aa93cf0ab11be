package callcodec

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

const polkadot = core.ChainID("0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3")

var (
	alice = core.MustParseAccountID("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	bob   = core.MustParseAccountID("0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48")
	dave  = core.MustParseAccountID("0x306721211d5404bd9da88e0204360a1a9ab8b87c66c1bc2fcdd37f3c2222cc20")
)

func addr(id core.AccountID) core.Address {
	return ss58.Encode(id, 0)
}

func leaf(args core.CallArgs) core.CallTree {
	return core.CallTree{ChainID: polkadot, SenderAddress: addr(alice), Args: args}
}

func transfer(value int64) core.CallTree {
	return leaf(core.TransferArgs{TransferFields: core.TransferFields{Dest: addr(bob), Value: decimal.NewFromInt(value)}})
}

func TestEncode_transferKeepAlive(t *testing.T) {
	c := New(chains.Default())
	data, err := c.Encode(transfer(1))
	require.Nil(t, err)

	want := []byte{5, 3, 0}
	want = append(want, bob[:]...)
	want = append(want, 0x04)
	require.Equal(t, want, data)

	hash, err := c.Hash(transfer(1))
	require.Nil(t, err)
	require.Equal(t, HashBytes(want), hash)
}

func TestEncode_roundTrip(t *testing.T) {
	c := New(chains.Default())
	payeeAccount := addr(dave)
	staking := core.ProxyStaking
	asset := "DOT"
	inner, err := c.Encode(transfer(10))
	require.Nil(t, err)

	tests := []struct {
		name string
		call core.CallTree
	}{
		{name: "transfer", call: transfer(1_000_000_000_000)},
		{name: "asset transfer", call: leaf(core.AssetTransferArgs{
			TransferFields: core.TransferFields{Dest: addr(bob), Value: decimal.NewFromInt(7)},
			AssetID:        "1984",
		})},
		{name: "orml transfer", call: leaf(core.OrmlTransferArgs{
			TransferFields: core.TransferFields{Dest: addr(bob), Value: decimal.NewFromInt(7)},
			AssetID:        "KSM",
		})},
		{name: "xcm transfer", call: leaf(core.XcmTransferArgs{
			TransferFields:   core.TransferFields{Dest: addr(bob), Value: decimal.NewFromInt(3)},
			AssetID:          &asset,
			DestinationChain: "0xb0a8d493285c2df73290dfb7e61f870f17b41801197a149ca93654499ea3dafe",
		})},
		{name: "bond with account payee", call: leaf(core.BondArgs{
			Value: decimal.NewFromInt(50),
			Payee: core.Payee{Type: core.PayeeAccount, Account: &payeeAccount},
		})},
		{name: "batch of bond and nominate", call: leaf(core.BatchArgs{Transactions: []core.CallTree{
			leaf(core.BondArgs{Value: decimal.NewFromInt(50), Payee: core.Payee{Type: core.PayeeStaked}}),
			leaf(core.NominateArgs{Targets: []core.Address{addr(bob), addr(dave)}}),
		}})},
		{name: "proxy with forced type", call: leaf(core.ProxyArgs{
			Real:           addr(dave),
			ForceProxyType: &staking,
			Transaction:    leaf(core.UnstakeArgs{Value: decimal.NewFromInt(5)}),
		})},
		{name: "staking leaves", call: leaf(core.BatchArgs{Transactions: []core.CallTree{
			leaf(core.RestakeArgs{Value: decimal.NewFromInt(1)}),
			leaf(core.StakeMoreArgs{MaxAdditional: decimal.NewFromInt(2)}),
			leaf(core.RedeemArgs{NumSlashingSpans: 4}),
			leaf(core.ChillArgs{}),
			leaf(core.DestinationArgs{Payee: core.Payee{Type: core.PayeeNone}}),
		}})},
		{name: "proxy management", call: leaf(core.BatchArgs{Transactions: []core.CallTree{
			leaf(core.AddProxyArgs{Delegate: addr(bob), ProxyType: core.ProxyAny, Delay: 10}),
			leaf(core.RemoveProxyArgs{Delegate: addr(bob), ProxyType: core.ProxyGovernance}),
			leaf(core.CreatePureProxyArgs{ProxyType: core.ProxyNonTransfer, Delay: 1, Index: 2}),
			leaf(core.RemovePureProxyArgs{Spawner: addr(dave), ProxyType: core.ProxyAny, Index: 1, Height: 18_000_000, ExtIndex: 3}),
		}})},
		{name: "as multi", call: leaf(core.AsMultiArgs{
			MultisigFields: core.MultisigFields{Threshold: 2, OtherSignatories: []core.Address{addr(bob)}},
			CallData:       inner,
		})},
		{name: "approve as multi", call: leaf(core.ApproveAsMultiArgs{MultisigFields: core.MultisigFields{
			Threshold:        2,
			OtherSignatories: []core.Address{addr(bob), addr(dave)},
			MaybeTimepoint:   &core.Timepoint{Height: 100, Index: 2},
			CallHash:         HashBytes(inner),
		}})},
		{name: "cancel as multi", call: leaf(core.CancelAsMultiArgs{MultisigFields: core.MultisigFields{
			Threshold:        2,
			OtherSignatories: []core.Address{addr(bob)},
			MaybeTimepoint:   &core.Timepoint{Height: 100, Index: 2},
			CallHash:         HashBytes(inner),
		}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := c.Encode(tt.call)
			require.Nil(t, err)

			decoded, err := c.Decode(polkadot, tt.call.SenderAddress, data)
			require.Nil(t, err)
			require.Equal(t, tt.call.Kind(), decoded.Kind())

			again, err := c.Encode(decoded)
			require.Nil(t, err)
			require.Equal(t, data, again)
		})
	}
}

func TestDecode_proxyAndMultisigFields(t *testing.T) {
	c := New(chains.Default())
	inner := transfer(10)
	innerData, err := c.Encode(inner)
	require.Nil(t, err)

	call := leaf(core.ProxyArgs{Real: addr(dave), Transaction: leaf(core.AsMultiArgs{
		MultisigFields: core.MultisigFields{
			Threshold:        3,
			OtherSignatories: []core.Address{addr(bob)},
			MaybeTimepoint:   &core.Timepoint{Height: 7, Index: 1},
		},
		CallData: innerData,
	})})
	data, err := c.Encode(call)
	require.Nil(t, err)

	decoded, err := c.Decode(polkadot, addr(alice), data)
	require.Nil(t, err)
	proxy, ok := decoded.Args.(core.ProxyArgs)
	require.True(t, ok)
	require.Nil(t, proxy.ForceProxyType)
	require.Equal(t, addr(dave), proxy.Real)
	require.Equal(t, addr(dave), proxy.Transaction.SenderAddress)

	multi, ok := proxy.Transaction.Args.(core.AsMultiArgs)
	require.True(t, ok)
	require.Equal(t, uint16(3), multi.Threshold)
	require.Equal(t, core.Timepoint{Height: 7, Index: 1}, *multi.MaybeTimepoint)
	require.Equal(t, core.Bytes(innerData), multi.CallData)
	expected, err := c.Hash(inner)
	require.Nil(t, err)
	require.Equal(t, expected, multi.CallHash)
}

func TestDecode_reencodesAddressesWithChainPrefix(t *testing.T) {
	c := New(chains.Default())
	kusama := core.ChainID("0xb0a8d493285c2df73290dfb7e61f870f17b41801197a149ca93654499ea3dafe")
	call := core.CallTree{ChainID: kusama, Args: core.TransferArgs{TransferFields: core.TransferFields{
		Dest:  ss58.Encode(bob, 42),
		Value: decimal.NewFromInt(1),
	}}}
	data, err := c.Encode(call)
	require.Nil(t, err)

	decoded, err := c.Decode(kusama, "", data)
	require.Nil(t, err)
	require.Equal(t, ss58.Encode(bob, 2), decoded.Args.(core.TransferArgs).Dest)
}

func TestDecode_unknownCall(t *testing.T) {
	c := New(chains.Default())
	data := []byte{5, 0, 0xaa, 0xbb}

	decoded, err := c.Decode(polkadot, addr(alice), data)
	require.Nil(t, err)
	require.Equal(t, core.Unknown, decoded.Kind())
	unknown := decoded.Args.(core.UnknownArgs)
	require.Equal(t, "balances", unknown.Section)
	require.Equal(t, "call0", unknown.Method)
	require.Equal(t, core.Bytes{0xaa, 0xbb}, unknown.Raw)

	again, err := c.Encode(decoded)
	require.Nil(t, err)
	require.Equal(t, data, again)

	decoded, err = c.Decode(polkadot, addr(alice), []byte{200, 1})
	require.Nil(t, err)
	require.Equal(t, "pallet200", decoded.Args.(core.UnknownArgs).Section)
}

func TestDecode_errors(t *testing.T) {
	c := New(chains.Default())
	valid, err := c.Encode(transfer(1))
	require.Nil(t, err)

	tests := []struct {
		name    string
		chainID core.ChainID
		data    []byte
		wantErr error
	}{
		{name: "unknown chain", chainID: "0x00", data: valid},
		{name: "trailing bytes", chainID: polkadot, data: append(bytes.Clone(valid), 0)},
		{name: "truncated", chainID: polkadot, data: valid[:10]},
		{name: "empty", chainID: polkadot, data: nil},
		{name: "nested unknown call", chainID: polkadot, data: []byte{26, 2, 0x04, 200, 1}, wantErr: core.ErrUnknownCallKind},
		{name: "invalid option byte", chainID: polkadot, data: append([]byte{29, 0, 0}, append(bob[:], 7)...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.chainID, addr(alice), tt.data)
			require.NotNil(t, err)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestEncode_errors(t *testing.T) {
	c := New(chains.Default())
	deep := transfer(1)
	for i := 0; i < core.MaxCallDepth; i++ {
		deep = leaf(core.ProxyArgs{Real: addr(dave), Transaction: deep})
	}
	tooBig := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

	tests := []struct {
		name    string
		call    core.CallTree
		wantErr error
	}{
		{name: "too deep", call: deep, wantErr: core.ErrCallTooDeep},
		{name: "no args", call: core.CallTree{ChainID: polkadot}, wantErr: core.ErrUnknownCallKind},
		{name: "unknown chain", call: core.CallTree{ChainID: "0x00", Args: core.ChillArgs{}}, wantErr: core.ErrUnknownCallKind},
		{name: "as multi without call data", call: leaf(core.AsMultiArgs{}), wantErr: core.ErrMissingCallData},
		{name: "cancel without timepoint", call: leaf(core.CancelAsMultiArgs{}), wantErr: core.ErrMissingTimepoint},
		{name: "negative balance", call: transfer(-1)},
		{name: "fractional balance", call: leaf(core.UnstakeArgs{Value: decimal.RequireFromString("1.5")})},
		{name: "balance overflow", call: leaf(core.UnstakeArgs{Value: tooBig})},
		{name: "bad address", call: leaf(core.TransferArgs{TransferFields: core.TransferFields{Dest: "nope", Value: decimal.NewFromInt(1)}})},
		{name: "non numeric asset id", call: leaf(core.AssetTransferArgs{
			TransferFields: core.TransferFields{Dest: addr(bob), Value: decimal.NewFromInt(1)},
			AssetID:        "USDT",
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Encode(tt.call)
			require.NotNil(t, err)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestHash_isStableAcrossSenders(t *testing.T) {
	c := New(chains.Default())
	a := transfer(42)
	b := transfer(42)
	b.SenderAddress = addr(dave)

	ha, err := c.Hash(a)
	require.Nil(t, err)
	hb, err := c.Hash(b)
	require.Nil(t, err)
	require.Equal(t, ha, hb)

	hc, err := c.Hash(transfer(43))
	require.Nil(t, err)
	require.NotEqual(t, ha, hc)
}
