package introspect

import (
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/i18n"
)

// Summary is the display form of a call.
type Summary struct {
	Title            CallTitle     `json:"title"`
	Label            string        `json:"label"`
	Amount           string        `json:"amount,omitempty"`
	Sender           core.Address  `json:"sender"`
	Destination      *core.Address `json:"destination,omitempty"`
	DestinationChain *core.ChainID `json:"destination_chain,omitempty"`
	AssetID          *string       `json:"asset_id,omitempty"`
}

// Describe collects the displayed attributes of call. Native amounts are
// formatted with the chain's symbol and decimals; asset amounts are shown in
// indivisible units.
func Describe(call core.CallTree, registry *chains.Registry, lang string) Summary {
	t := Title(call)
	s := Summary{
		Title:  t,
		Label:  t.Label(lang),
		Sender: Sender(call),
	}
	if dest, ok := Destination(call, registry); ok {
		s.Destination = &dest
	}
	if chain, ok := DestinationChain(call); ok {
		s.DestinationChain = &chain
	}
	asset, hasAsset := AssetID(call)
	if hasAsset {
		s.AssetID = &asset
	}
	if amount, ok := Amount(call); ok {
		chain, known := registry.Get(call.ChainID)
		switch {
		case hasAsset || !known:
			s.Amount = amount.String()
		default:
			s.Amount = i18n.FormatBalance(amount, chain.Decimals, chain.Symbol)
		}
	}
	return s
}
