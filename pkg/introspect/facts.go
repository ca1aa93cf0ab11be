package introspect

import (
	"github.com/shopspring/decimal"

	"github.com/arnac-io/multisig/pkg/core"
)

// facts are the attributes a single call node carries by itself, without
// looking into nested calls.
type facts struct {
	title            TitleKey
	section, method  string
	amount           *decimal.Decimal
	dest             *core.Address
	destinationChain *core.ChainID
	assetID          *string
	payee            *core.Payee
	delegate         *core.Address
	spawner          *core.Address
	proxyType        *core.ProxyType
}

// collector fills facts for one node. Being an ArgsVisitor, it must handle
// every call variant.
type collector struct {
	chainID core.ChainID
	f       facts
}

var _ core.ArgsVisitor = (*collector)(nil)

func nodeFacts(call core.CallTree) facts {
	c := &collector{chainID: call.ChainID}
	if call.Args == nil {
		c.f.title = TitleUnknown
		return c.f
	}
	_ = call.Args.Accept(c)
	return c.f
}

func (c *collector) transfer(title TitleKey, f core.TransferFields, chain core.ChainID) {
	value, dest := f.Value, f.Dest
	c.f.title = title
	c.f.amount = &value
	c.f.dest = &dest
	c.f.destinationChain = &chain
}

func (c *collector) VisitTransfer(a core.TransferArgs) error {
	c.transfer(TitleTransfer, a.TransferFields, c.chainID)
	return nil
}

func (c *collector) VisitOrmlTransfer(a core.OrmlTransferArgs) error {
	c.transfer(TitleOrmlTransfer, a.TransferFields, c.chainID)
	asset := a.AssetID
	c.f.assetID = &asset
	return nil
}

func (c *collector) VisitAssetTransfer(a core.AssetTransferArgs) error {
	c.transfer(TitleAssetTransfer, a.TransferFields, c.chainID)
	asset := a.AssetID
	c.f.assetID = &asset
	return nil
}

func (c *collector) VisitXcmTransfer(a core.XcmTransferArgs) error {
	c.transfer(TitleXcmTransfer, a.TransferFields, a.DestinationChain)
	c.f.assetID = a.AssetID
	return nil
}

func (c *collector) VisitBatch(core.BatchArgs) error {
	c.f.title = TitleBatch
	return nil
}

func (c *collector) VisitProxy(a core.ProxyArgs) error {
	c.f.title = TitleProxy
	c.f.proxyType = a.ForceProxyType
	return nil
}

func (c *collector) VisitAsMulti(core.AsMultiArgs) error {
	c.f.title = TitleAsMulti
	return nil
}

func (c *collector) VisitApproveAsMulti(core.ApproveAsMultiArgs) error {
	c.f.title = TitleApproveAsMulti
	return nil
}

func (c *collector) VisitCancelAsMulti(core.CancelAsMultiArgs) error {
	c.f.title = TitleCancelAsMulti
	return nil
}

func (c *collector) VisitBond(a core.BondArgs) error {
	value, payee := a.Value, a.Payee
	c.f.title = TitleBond
	c.f.amount = &value
	c.f.payee = &payee
	return nil
}

func (c *collector) VisitNominate(core.NominateArgs) error {
	c.f.title = TitleNominate
	return nil
}

func (c *collector) VisitUnstake(a core.UnstakeArgs) error {
	value := a.Value
	c.f.title = TitleUnstake
	c.f.amount = &value
	return nil
}

func (c *collector) VisitRestake(a core.RestakeArgs) error {
	value := a.Value
	c.f.title = TitleRestake
	c.f.amount = &value
	return nil
}

func (c *collector) VisitStakeMore(a core.StakeMoreArgs) error {
	value := a.MaxAdditional
	c.f.title = TitleStakeMore
	c.f.amount = &value
	return nil
}

func (c *collector) VisitRedeem(core.RedeemArgs) error {
	c.f.title = TitleRedeem
	return nil
}

func (c *collector) VisitChill(core.ChillArgs) error {
	c.f.title = TitleChill
	return nil
}

func (c *collector) VisitDestination(a core.DestinationArgs) error {
	payee := a.Payee
	c.f.title = TitleDestination
	c.f.payee = &payee
	return nil
}

func (c *collector) VisitAddProxy(a core.AddProxyArgs) error {
	delegate, t := a.Delegate, a.ProxyType
	c.f.title = TitleAddProxy
	c.f.delegate = &delegate
	c.f.proxyType = &t
	return nil
}

func (c *collector) VisitRemoveProxy(a core.RemoveProxyArgs) error {
	delegate, t := a.Delegate, a.ProxyType
	c.f.title = TitleRemoveProxy
	c.f.delegate = &delegate
	c.f.proxyType = &t
	return nil
}

func (c *collector) VisitCreatePureProxy(a core.CreatePureProxyArgs) error {
	t := a.ProxyType
	c.f.title = TitleCreatePureProxy
	c.f.proxyType = &t
	return nil
}

func (c *collector) VisitRemovePureProxy(a core.RemovePureProxyArgs) error {
	spawner, t := a.Spawner, a.ProxyType
	c.f.title = TitleRemovePureProxy
	c.f.spawner = &spawner
	c.f.proxyType = &t
	return nil
}

func (c *collector) VisitUnknown(a core.UnknownArgs) error {
	c.f.title = TitleUnknown
	c.f.section, c.f.method = a.Section, a.Method
	return nil
}
