// Package introspect answers what a call does, looking through batch and
// proxy wrappers. Every function is total over call kinds: calls it cannot
// interpret yield no value or the unknown title.
//
// Proxy wrappers are transparent: attributes come from the forwarded call and
// the proxied account is the effective sender. A batch reports the attribute
// of its first child that has it; which kinds have an attribute is listed on
// each accessor.
package introspect

import (
	"github.com/shopspring/decimal"

	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/ss58"
)

// find walks call depth-first, entering proxies and batch children in order,
// and returns the first node value accepted by pick. Wrapper nodes are
// offered to pick after their children.
func find[T any](call core.CallTree, depth int, pick func(facts) (T, bool)) (T, bool) {
	var zero T
	if depth > core.MaxCallDepth {
		return zero, false
	}
	switch args := call.Args.(type) {
	case core.ProxyArgs:
		if v, ok := find(args.Transaction, depth+1, pick); ok {
			return v, true
		}
	case core.BatchArgs:
		for _, child := range args.Transactions {
			if v, ok := find(child, depth+1, pick); ok {
				return v, true
			}
		}
	}
	return pick(nodeFacts(call))
}

func ptr[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Amount is the value moved or staked: transfers, Bond, Unstake, Restake and
// StakeMore. Values are in the chain's indivisible units.
func Amount(call core.CallTree) (decimal.Decimal, bool) {
	return find(call, 1, func(f facts) (decimal.Decimal, bool) {
		return ptr(f.amount)
	})
}

// Sender is the account the call executes as: the innermost proxied account
// for proxy calls, the signer otherwise.
func Sender(call core.CallTree) core.Address {
	sender := call.SenderAddress
	for depth := 1; depth <= core.MaxCallDepth; depth++ {
		proxy, ok := call.Args.(core.ProxyArgs)
		if !ok {
			break
		}
		sender = proxy.Real
		call = proxy.Transaction
	}
	return sender
}

// Destination is the recipient of a transfer, encoded for the chain that
// receives it. Cross-chain destinations keep their encoding when the
// destination chain is not in registry.
func Destination(call core.CallTree, registry *chains.Registry) (core.Address, bool) {
	return find(call, 1, func(f facts) (core.Address, bool) {
		if f.dest == nil {
			return "", false
		}
		dest := *f.dest
		if f.destinationChain == nil {
			return dest, true
		}
		prefix, ok := registry.AddressPrefix(*f.destinationChain)
		if !ok {
			return dest, true
		}
		reencoded, err := ss58.Reencode(dest, prefix)
		if err != nil {
			return dest, true
		}
		return reencoded, true
	})
}

// DestinationChain is the receiving chain of a transfer: the target chain for
// XCM transfers, the call's own chain for the others.
func DestinationChain(call core.CallTree) (core.ChainID, bool) {
	return find(call, 1, func(f facts) (core.ChainID, bool) {
		return ptr(f.destinationChain)
	})
}

// AssetID is the transferred asset of Orml, asset and XCM transfers.
func AssetID(call core.CallTree) (string, bool) {
	return find(call, 1, func(f facts) (string, bool) {
		return ptr(f.assetID)
	})
}

// Payee is the reward destination of Bond and Destination.
func Payee(call core.CallTree) (core.Payee, bool) {
	return find(call, 1, func(f facts) (core.Payee, bool) {
		return ptr(f.payee)
	})
}

// Delegate is the proxy account of AddProxy and RemoveProxy.
func Delegate(call core.CallTree) (core.Address, bool) {
	return find(call, 1, func(f facts) (core.Address, bool) {
		return ptr(f.delegate)
	})
}

// Spawner is the creator of the pure proxy removed by RemovePureProxy.
func Spawner(call core.CallTree) (core.Address, bool) {
	return find(call, 1, func(f facts) (core.Address, bool) {
		return ptr(f.spawner)
	})
}

// ProxyType is the proxy type of the proxy-management calls. A proxy call
// that forces a type reports it when the forwarded call has none.
func ProxyType(call core.CallTree) (core.ProxyType, bool) {
	return find(call, 1, func(f facts) (core.ProxyType, bool) {
		return ptr(f.proxyType)
	})
}
