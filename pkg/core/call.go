package core

import (
	"github.com/shopspring/decimal"
)

// CallKind names a dispatchable call known to the wallet.
type CallKind string

const (
	Transfer      CallKind = "Transfer"
	OrmlTransfer  CallKind = "OrmlTransfer"
	AssetTransfer CallKind = "AssetTransfer"
	XcmTransfer   CallKind = "XcmTransfer"

	Batch CallKind = "Batch"
	Proxy CallKind = "Proxy"

	MultisigAsMulti        CallKind = "MultisigAsMulti"
	MultisigApproveAsMulti CallKind = "MultisigApproveAsMulti"
	MultisigCancelAsMulti  CallKind = "MultisigCancelAsMulti"

	Bond        CallKind = "Bond"
	Nominate    CallKind = "Nominate"
	Unstake     CallKind = "Unstake"
	Restake     CallKind = "Restake"
	StakeMore   CallKind = "StakeMore"
	Redeem      CallKind = "Redeem"
	Chill       CallKind = "Chill"
	Destination CallKind = "Destination"

	AddProxy        CallKind = "AddProxy"
	RemoveProxy     CallKind = "RemoveProxy"
	CreatePureProxy CallKind = "CreatePureProxy"
	RemovePureProxy CallKind = "RemovePureProxy"

	// Unknown is a call the wallet cannot interpret. It is carried through
	// untouched and rendered with its section and method names.
	Unknown CallKind = "Unknown"
)

// CallKinds lists every kind in a stable order.
var CallKinds = []CallKind{
	Transfer, OrmlTransfer, AssetTransfer, XcmTransfer,
	Batch, Proxy,
	MultisigAsMulti, MultisigApproveAsMulti, MultisigCancelAsMulti,
	Bond, Nominate, Unstake, Restake, StakeMore, Redeem, Chill, Destination,
	AddProxy, RemoveProxy, CreatePureProxy, RemovePureProxy,
	Unknown,
}

// MaxCallDepth bounds Batch and Proxy nesting.
const MaxCallDepth = 8

// CallTree is a decoded on-chain call. Args is a closed set of variants,
// some of which embed further CallTree nodes.
type CallTree struct {
	ChainID       ChainID
	SenderAddress Address
	Args          CallArgs
}

// Kind reports the kind of the call, Unknown if Args is missing.
func (c CallTree) Kind() CallKind {
	if c.Args == nil {
		return Unknown
	}
	return c.Args.Kind()
}

// CallArgs is implemented only by the argument types of this package.
// Adding a variant requires a new ArgsVisitor method, which breaks every
// visitor until the variant is handled.
type CallArgs interface {
	Kind() CallKind
	Accept(v ArgsVisitor) error
	sealed()
}

// ArgsVisitor is an exhaustive match over CallArgs variants.
type ArgsVisitor interface {
	VisitTransfer(TransferArgs) error
	VisitOrmlTransfer(OrmlTransferArgs) error
	VisitAssetTransfer(AssetTransferArgs) error
	VisitXcmTransfer(XcmTransferArgs) error
	VisitBatch(BatchArgs) error
	VisitProxy(ProxyArgs) error
	VisitAsMulti(AsMultiArgs) error
	VisitApproveAsMulti(ApproveAsMultiArgs) error
	VisitCancelAsMulti(CancelAsMultiArgs) error
	VisitBond(BondArgs) error
	VisitNominate(NominateArgs) error
	VisitUnstake(UnstakeArgs) error
	VisitRestake(RestakeArgs) error
	VisitStakeMore(StakeMoreArgs) error
	VisitRedeem(RedeemArgs) error
	VisitChill(ChillArgs) error
	VisitDestination(DestinationArgs) error
	VisitAddProxy(AddProxyArgs) error
	VisitRemoveProxy(RemoveProxyArgs) error
	VisitCreatePureProxy(CreatePureProxyArgs) error
	VisitRemovePureProxy(RemovePureProxyArgs) error
	VisitUnknown(UnknownArgs) error
}

// TransferFields are shared by the transfer family.
type TransferFields struct {
	Dest  Address
	Value decimal.Decimal
}

type (
	TransferArgs struct {
		TransferFields
	}
	OrmlTransferArgs struct {
		TransferFields
		AssetID string
	}
	AssetTransferArgs struct {
		TransferFields
		AssetID string
	}
	XcmTransferArgs struct {
		TransferFields
		AssetID          *string
		DestinationChain ChainID
	}

	BatchArgs struct {
		Transactions []CallTree
	}
	ProxyArgs struct {
		Real           Address
		ForceProxyType *ProxyType
		Transaction    CallTree
	}
)

// MultisigFields are shared by the three multisig wrappers. The wrapped call
// is represented only by its hash and, for as_multi, its encoded body.
type MultisigFields struct {
	Threshold        uint16
	OtherSignatories []Address
	MaybeTimepoint   *Timepoint
	CallHash         Hash
}

type (
	AsMultiArgs struct {
		MultisigFields
		CallData Bytes
	}
	ApproveAsMultiArgs struct {
		MultisigFields
	}
	CancelAsMultiArgs struct {
		MultisigFields
	}
)

type PayeeType string

const (
	PayeeStaked     PayeeType = "Staked"
	PayeeStash      PayeeType = "Stash"
	PayeeController PayeeType = "Controller"
	PayeeAccount    PayeeType = "Account"
	PayeeNone       PayeeType = "None"
)

// Payee is a staking reward destination. Account is set only for PayeeAccount.
type Payee struct {
	Type    PayeeType
	Account *Address
}

type (
	BondArgs struct {
		Value decimal.Decimal
		Payee Payee
	}
	NominateArgs struct {
		Targets []Address
	}
	UnstakeArgs struct {
		Value decimal.Decimal
	}
	RestakeArgs struct {
		Value decimal.Decimal
	}
	StakeMoreArgs struct {
		MaxAdditional decimal.Decimal
	}
	RedeemArgs struct {
		NumSlashingSpans uint32
	}
	ChillArgs       struct{}
	DestinationArgs struct {
		Payee Payee
	}
)

type ProxyType string

const (
	ProxyAny               ProxyType = "Any"
	ProxyNonTransfer       ProxyType = "NonTransfer"
	ProxyGovernance        ProxyType = "Governance"
	ProxyStaking           ProxyType = "Staking"
	ProxyIdentityJudgement ProxyType = "IdentityJudgement"
	ProxyCancelProxy       ProxyType = "CancelProxy"
	ProxyAuction           ProxyType = "Auction"
	ProxyNominationPools   ProxyType = "NominationPools"
)

// ProxyTypes is ordered by on-chain enum index.
var ProxyTypes = []ProxyType{
	ProxyAny, ProxyNonTransfer, ProxyGovernance, ProxyStaking,
	ProxyIdentityJudgement, ProxyCancelProxy, ProxyAuction, ProxyNominationPools,
}

type (
	AddProxyArgs struct {
		Delegate  Address
		ProxyType ProxyType
		Delay     uint32
	}
	RemoveProxyArgs struct {
		Delegate  Address
		ProxyType ProxyType
		Delay     uint32
	}
	CreatePureProxyArgs struct {
		ProxyType ProxyType
		Delay     uint32
		Index     uint16
	}
	RemovePureProxyArgs struct {
		Spawner   Address
		ProxyType ProxyType
		Index     uint16
		Height    uint32
		ExtIndex  uint32
	}

	// UnknownArgs keeps the raw argument bytes of a call the wallet does not model.
	UnknownArgs struct {
		Section string
		Method  string
		Pallet  uint8
		Call    uint8
		Raw     Bytes
	}
)

func (TransferArgs) Kind() CallKind        { return Transfer }
func (OrmlTransferArgs) Kind() CallKind    { return OrmlTransfer }
func (AssetTransferArgs) Kind() CallKind   { return AssetTransfer }
func (XcmTransferArgs) Kind() CallKind     { return XcmTransfer }
func (BatchArgs) Kind() CallKind           { return Batch }
func (ProxyArgs) Kind() CallKind           { return Proxy }
func (AsMultiArgs) Kind() CallKind         { return MultisigAsMulti }
func (ApproveAsMultiArgs) Kind() CallKind  { return MultisigApproveAsMulti }
func (CancelAsMultiArgs) Kind() CallKind   { return MultisigCancelAsMulti }
func (BondArgs) Kind() CallKind            { return Bond }
func (NominateArgs) Kind() CallKind        { return Nominate }
func (UnstakeArgs) Kind() CallKind         { return Unstake }
func (RestakeArgs) Kind() CallKind         { return Restake }
func (StakeMoreArgs) Kind() CallKind       { return StakeMore }
func (RedeemArgs) Kind() CallKind          { return Redeem }
func (ChillArgs) Kind() CallKind           { return Chill }
func (DestinationArgs) Kind() CallKind     { return Destination }
func (AddProxyArgs) Kind() CallKind        { return AddProxy }
func (RemoveProxyArgs) Kind() CallKind     { return RemoveProxy }
func (CreatePureProxyArgs) Kind() CallKind { return CreatePureProxy }
func (RemovePureProxyArgs) Kind() CallKind { return RemovePureProxy }
func (UnknownArgs) Kind() CallKind         { return Unknown }

func (a TransferArgs) Accept(v ArgsVisitor) error        { return v.VisitTransfer(a) }
func (a OrmlTransferArgs) Accept(v ArgsVisitor) error    { return v.VisitOrmlTransfer(a) }
func (a AssetTransferArgs) Accept(v ArgsVisitor) error   { return v.VisitAssetTransfer(a) }
func (a XcmTransferArgs) Accept(v ArgsVisitor) error     { return v.VisitXcmTransfer(a) }
func (a BatchArgs) Accept(v ArgsVisitor) error           { return v.VisitBatch(a) }
func (a ProxyArgs) Accept(v ArgsVisitor) error           { return v.VisitProxy(a) }
func (a AsMultiArgs) Accept(v ArgsVisitor) error         { return v.VisitAsMulti(a) }
func (a ApproveAsMultiArgs) Accept(v ArgsVisitor) error  { return v.VisitApproveAsMulti(a) }
func (a CancelAsMultiArgs) Accept(v ArgsVisitor) error   { return v.VisitCancelAsMulti(a) }
func (a BondArgs) Accept(v ArgsVisitor) error            { return v.VisitBond(a) }
func (a NominateArgs) Accept(v ArgsVisitor) error        { return v.VisitNominate(a) }
func (a UnstakeArgs) Accept(v ArgsVisitor) error         { return v.VisitUnstake(a) }
func (a RestakeArgs) Accept(v ArgsVisitor) error         { return v.VisitRestake(a) }
func (a StakeMoreArgs) Accept(v ArgsVisitor) error       { return v.VisitStakeMore(a) }
func (a RedeemArgs) Accept(v ArgsVisitor) error          { return v.VisitRedeem(a) }
func (a ChillArgs) Accept(v ArgsVisitor) error           { return v.VisitChill(a) }
func (a DestinationArgs) Accept(v ArgsVisitor) error     { return v.VisitDestination(a) }
func (a AddProxyArgs) Accept(v ArgsVisitor) error        { return v.VisitAddProxy(a) }
func (a RemoveProxyArgs) Accept(v ArgsVisitor) error     { return v.VisitRemoveProxy(a) }
func (a CreatePureProxyArgs) Accept(v ArgsVisitor) error { return v.VisitCreatePureProxy(a) }
func (a RemovePureProxyArgs) Accept(v ArgsVisitor) error { return v.VisitRemovePureProxy(a) }
func (a UnknownArgs) Accept(v ArgsVisitor) error         { return v.VisitUnknown(a) }

func (TransferArgs) sealed()        {}
func (OrmlTransferArgs) sealed()    {}
func (AssetTransferArgs) sealed()   {}
func (XcmTransferArgs) sealed()     {}
func (BatchArgs) sealed()           {}
func (ProxyArgs) sealed()           {}
func (AsMultiArgs) sealed()         {}
func (ApproveAsMultiArgs) sealed()  {}
func (CancelAsMultiArgs) sealed()   {}
func (BondArgs) sealed()            {}
func (NominateArgs) sealed()        {}
func (UnstakeArgs) sealed()         {}
func (RestakeArgs) sealed()         {}
func (StakeMoreArgs) sealed()       {}
func (RedeemArgs) sealed()          {}
func (ChillArgs) sealed()           {}
func (DestinationArgs) sealed()     {}
func (AddProxyArgs) sealed()        {}
func (RemoveProxyArgs) sealed()     {}
func (CreatePureProxyArgs) sealed() {}
func (RemovePureProxyArgs) sealed() {}
func (UnknownArgs) sealed()         {}

// Depth returns the nesting depth of the call, 1 for a leaf.
func (c CallTree) Depth() int {
	switch args := c.Args.(type) {
	case BatchArgs:
		max := 0
		for _, child := range args.Transactions {
			if d := child.Depth(); d > max {
				max = d
			}
		}
		return max + 1
	case ProxyArgs:
		return args.Transaction.Depth() + 1
	default:
		return 1
	}
}
