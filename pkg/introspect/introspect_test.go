package introspect

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/arnac-io/multisig/internal/g"
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

const (
	polkadot = core.ChainID("0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3")
	kusama   = core.ChainID("0xb0a8d493285c2df73290dfb7e61f870f17b41801197a149ca93654499ea3dafe")
)

var (
	alice = core.MustParseAccountID("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	bob   = core.MustParseAccountID("0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48")
	dave  = core.MustParseAccountID("0x306721211d5404bd9da88e0204360a1a9ab8b87c66c1bc2fcdd37f3c2222cc20")
)

func addr(id core.AccountID) core.Address {
	return ss58.Encode(id, 0)
}

func call(args core.CallArgs) core.CallTree {
	return core.CallTree{ChainID: polkadot, SenderAddress: addr(alice), Args: args}
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func samples() map[core.CallKind]core.CallTree {
	fields := core.TransferFields{Dest: addr(bob), Value: amount(10)}
	multisig := core.MultisigFields{Threshold: 2, OtherSignatories: []core.Address{addr(bob)}}
	return map[core.CallKind]core.CallTree{
		core.Transfer:      call(core.TransferArgs{TransferFields: fields}),
		core.OrmlTransfer:  call(core.OrmlTransferArgs{TransferFields: fields, AssetID: "KSM"}),
		core.AssetTransfer: call(core.AssetTransferArgs{TransferFields: fields, AssetID: "1984"}),
		core.XcmTransfer:   call(core.XcmTransferArgs{TransferFields: fields, DestinationChain: kusama}),
		core.Batch: call(core.BatchArgs{Transactions: []core.CallTree{
			call(core.BondArgs{Value: amount(5), Payee: core.Payee{Type: core.PayeeStaked}}),
		}}),
		core.Proxy:                  call(core.ProxyArgs{Real: addr(dave), Transaction: call(core.ChillArgs{})}),
		core.MultisigAsMulti:        call(core.AsMultiArgs{MultisigFields: multisig, CallData: core.Bytes{1}}),
		core.MultisigApproveAsMulti: call(core.ApproveAsMultiArgs{MultisigFields: multisig}),
		core.MultisigCancelAsMulti:  call(core.CancelAsMultiArgs{MultisigFields: multisig}),
		core.Bond:                   call(core.BondArgs{Value: amount(5), Payee: core.Payee{Type: core.PayeeStash}}),
		core.Nominate:               call(core.NominateArgs{Targets: []core.Address{addr(bob)}}),
		core.Unstake:                call(core.UnstakeArgs{Value: amount(3)}),
		core.Restake:                call(core.RestakeArgs{Value: amount(2)}),
		core.StakeMore:              call(core.StakeMoreArgs{MaxAdditional: amount(1)}),
		core.Redeem:                 call(core.RedeemArgs{NumSlashingSpans: 1}),
		core.Chill:                  call(core.ChillArgs{}),
		core.Destination:            call(core.DestinationArgs{Payee: core.Payee{Type: core.PayeeNone}}),
		core.AddProxy:               call(core.AddProxyArgs{Delegate: addr(bob), ProxyType: core.ProxyStaking}),
		core.RemoveProxy:            call(core.RemoveProxyArgs{Delegate: addr(bob), ProxyType: core.ProxyAny}),
		core.CreatePureProxy:        call(core.CreatePureProxyArgs{ProxyType: core.ProxyAny}),
		core.RemovePureProxy:        call(core.RemovePureProxyArgs{Spawner: addr(dave), ProxyType: core.ProxyAny}),
		core.Unknown:                call(core.UnknownArgs{Section: "democracy", Method: "vote"}),
	}
}

func TestExtractionsAreTotal(t *testing.T) {
	registry := chains.Default()
	all := samples()
	for _, kind := range core.CallKinds {
		c, ok := all[kind]
		require.True(t, ok, "no sample for %s", kind)
		require.Equal(t, kind, c.Kind())

		title := Title(c)
		require.NotEmpty(t, title.Key)
		require.NotEmpty(t, title.Label("en"))
		require.NotEqual(t, string(title.Key), title.Label("en"))
		require.NotEmpty(t, Sender(c))
		Amount(c)
		Destination(c, registry)
		DestinationChain(c)
		AssetID(c)
		Payee(c)
		Delegate(c)
		Spawner(c)
		ProxyType(c)
		Describe(c, registry, "en")
	}

	empty := core.CallTree{ChainID: polkadot}
	require.Equal(t, TitleUnknown, Title(empty).Key)
	_, ok := Amount(empty)
	require.False(t, ok)
}

func TestAttributesByKind(t *testing.T) {
	all := samples()
	tests := []struct {
		kind      core.CallKind
		amount    *decimal.Decimal
		payee     *core.Payee
		delegate  *core.Address
		proxyType *core.ProxyType
	}{
		{kind: core.Transfer, amount: g.Pointer(amount(10))},
		{kind: core.Bond, amount: g.Pointer(amount(5)), payee: &core.Payee{Type: core.PayeeStash}},
		{kind: core.Nominate},
		{kind: core.Unstake, amount: g.Pointer(amount(3))},
		{kind: core.Restake, amount: g.Pointer(amount(2))},
		{kind: core.StakeMore, amount: g.Pointer(amount(1))},
		{kind: core.Redeem},
		{kind: core.Destination, payee: &core.Payee{Type: core.PayeeNone}},
		{kind: core.AddProxy, delegate: g.Pointer(addr(bob)), proxyType: g.Pointer(core.ProxyStaking)},
		{kind: core.CreatePureProxy, proxyType: g.Pointer(core.ProxyAny)},
		{kind: core.MultisigAsMulti},
		{kind: core.Unknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c := all[tt.kind]
			v, ok := Amount(c)
			require.Equal(t, tt.amount != nil, ok)
			if tt.amount != nil {
				require.True(t, tt.amount.Equal(v))
			}
			payee, ok := Payee(c)
			require.Equal(t, tt.payee != nil, ok)
			if tt.payee != nil {
				require.Equal(t, *tt.payee, payee)
			}
			delegate, ok := Delegate(c)
			require.Equal(t, tt.delegate != nil, ok)
			if tt.delegate != nil {
				require.Equal(t, *tt.delegate, delegate)
			}
			proxyType, ok := ProxyType(c)
			require.Equal(t, tt.proxyType != nil, ok)
			if tt.proxyType != nil {
				require.Equal(t, *tt.proxyType, proxyType)
			}
		})
	}
}

func TestBatchPassThrough(t *testing.T) {
	bond := call(core.BondArgs{Value: amount(50), Payee: core.Payee{Type: core.PayeeStaked}})
	nominate := call(core.NominateArgs{Targets: []core.Address{addr(bob)}})

	batch := call(core.BatchArgs{Transactions: []core.CallTree{bond, nominate}})
	require.Equal(t, Title(bond), Title(batch))
	v, ok := Amount(batch)
	require.True(t, ok)
	require.True(t, amount(50).Equal(v))

	// the title comes from the first child, the amount from the first child that has one
	reversed := call(core.BatchArgs{Transactions: []core.CallTree{nominate, bond}})
	require.Equal(t, TitleNominate, Title(reversed).Key)
	v, ok = Amount(reversed)
	require.True(t, ok)
	require.True(t, amount(50).Equal(v))

	unknown := call(core.UnknownArgs{Section: "democracy", Method: "vote"})
	require.Equal(t, TitleBond, Title(call(core.BatchArgs{Transactions: []core.CallTree{unknown, bond}})).Key)
	require.Equal(t, TitleBatch, Title(call(core.BatchArgs{Transactions: []core.CallTree{unknown}})).Key)
	require.Equal(t, TitleBatch, Title(call(core.BatchArgs{})).Key)
}

func TestProxyTransparency(t *testing.T) {
	registry := chains.Default()
	for kind, inner := range samples() {
		t.Run(string(kind), func(t *testing.T) {
			proxied := call(core.ProxyArgs{Real: addr(dave), Transaction: inner})
			require.Equal(t, Title(inner), Title(proxied))
			require.Equal(t, addr(dave), Sender(proxied))
			require.NotEqual(t, proxied.SenderAddress, Sender(proxied))

			innerDest, innerOK := Destination(inner, registry)
			dest, ok := Destination(proxied, registry)
			require.Equal(t, innerOK, ok)
			require.Equal(t, innerDest, dest)
		})
	}

	nested := call(core.ProxyArgs{Real: addr(bob), Transaction: call(core.ProxyArgs{
		Real:        addr(dave),
		Transaction: samples()[core.Transfer],
	})})
	require.Equal(t, addr(dave), Sender(nested))
	require.Equal(t, TitleTransfer, Title(nested).Key)

	forced := call(core.ProxyArgs{Real: addr(dave), ForceProxyType: g.Pointer(core.ProxyStaking), Transaction: call(core.ChillArgs{})})
	proxyType, ok := ProxyType(forced)
	require.True(t, ok)
	require.Equal(t, core.ProxyStaking, proxyType)
}

func TestDestination(t *testing.T) {
	registry := chains.Default()
	xcm := samples()[core.XcmTransfer]

	dest, ok := Destination(xcm, registry)
	require.True(t, ok)
	require.Equal(t, ss58.Encode(bob, 2), dest)
	chain, ok := DestinationChain(xcm)
	require.True(t, ok)
	require.Equal(t, kusama, chain)

	chain, ok = DestinationChain(samples()[core.Transfer])
	require.True(t, ok)
	require.Equal(t, polkadot, chain)

	_, ok = DestinationChain(samples()[core.Bond])
	require.False(t, ok)

	unknownChain := call(core.XcmTransferArgs{
		TransferFields:   core.TransferFields{Dest: addr(bob), Value: amount(1)},
		DestinationChain: "0xfeed",
	})
	dest, ok = Destination(unknownChain, registry)
	require.True(t, ok)
	require.Equal(t, addr(bob), dest)
}

func TestDepthLimit(t *testing.T) {
	c := samples()[core.Transfer]
	for i := 0; i < core.MaxCallDepth; i++ {
		c = call(core.BatchArgs{Transactions: []core.CallTree{c}})
	}
	_, ok := Amount(c)
	require.False(t, ok)
	require.Equal(t, TitleBatch, Title(c).Key)
}

func TestUnknownLabel(t *testing.T) {
	title := Title(samples()[core.Unknown])
	require.Equal(t, "Unknown democracy: vote", title.Label("en"))
}

func TestDescribe(t *testing.T) {
	registry := chains.Default()
	transfer := call(core.TransferArgs{TransferFields: core.TransferFields{Dest: addr(bob), Value: amount(15_000_000_000)}})
	proxied := call(core.ProxyArgs{Real: addr(dave), Transaction: transfer})

	s := Describe(proxied, registry, "en")
	require.Equal(t, "Transfer", s.Label)
	require.Equal(t, "1.5 DOT", s.Amount)
	require.Equal(t, addr(dave), s.Sender)
	require.Equal(t, addr(bob), *s.Destination)
	require.Equal(t, polkadot, *s.DestinationChain)
	require.Nil(t, s.AssetID)

	s = Describe(samples()[core.AssetTransfer], registry, "en")
	require.Equal(t, "10", s.Amount)
	require.Equal(t, "1984", *s.AssetID)
}
