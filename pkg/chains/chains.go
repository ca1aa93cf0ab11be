// Package chains holds per-chain parameters: address prefix, native asset
// and the pallet/call indices used to encode calls.
package chains

import (
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/arnac-io/multisig/pkg/core"
)

//go:embed chains.yaml
var defaultChains []byte

// CallIndex locates a call in a runtime.
type CallIndex struct {
	Pallet  uint8  `yaml:"pallet"`
	Call    uint8  `yaml:"call"`
	Section string `yaml:"section"`
	Method  string `yaml:"method"`
}

type Chain struct {
	ID            core.ChainID                `yaml:"id"`
	Name          string                      `yaml:"name"`
	AddressPrefix uint16                      `yaml:"address_prefix"`
	Symbol        string                      `yaml:"symbol"`
	Decimals      int32                       `yaml:"decimals"`
	Calls         map[core.CallKind]CallIndex `yaml:"calls"`
}

type file struct {
	DefaultCalls map[core.CallKind]CallIndex `yaml:"default_calls"`
	Chains       []Chain                     `yaml:"chains"`
}

type callRef struct {
	pallet uint8
	call   uint8
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	order   []core.ChainID
	chains  map[core.ChainID]Chain
	calls   map[core.ChainID]map[core.CallKind]CallIndex
	kinds   map[core.ChainID]map[callRef]core.CallKind
	pallets map[core.ChainID]map[uint8]string
}

// Default returns the registry built from the embedded chain list.
func Default() *Registry {
	r, err := Parse(defaultChains)
	if err != nil {
		panic(fmt.Sprintf("embedded chain registry: %v", err))
	}
	return r
}

// Load reads a registry from a YAML file. An empty path yields Default.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(content)
}

func Parse(content []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse chain registry: %w", err)
	}
	r := &Registry{
		chains:  make(map[core.ChainID]Chain, len(f.Chains)),
		calls:   make(map[core.ChainID]map[core.CallKind]CallIndex, len(f.Chains)),
		kinds:   make(map[core.ChainID]map[callRef]core.CallKind, len(f.Chains)),
		pallets: make(map[core.ChainID]map[uint8]string, len(f.Chains)),
	}
	var errs error
	for _, c := range f.Chains {
		if c.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("chain %q has no id", c.Name))
			continue
		}
		if _, ok := r.chains[c.ID]; ok {
			errs = multierr.Append(errs, fmt.Errorf("chain %s is declared twice", c.ID))
			continue
		}
		if c.AddressPrefix > 16383 {
			errs = multierr.Append(errs, fmt.Errorf("chain %s: address prefix %d out of range", c.ID, c.AddressPrefix))
		}
		calls := maps.Clone(f.DefaultCalls)
		if calls == nil {
			calls = map[core.CallKind]CallIndex{}
		}
		for kind, idx := range c.Calls {
			calls[kind] = idx
		}
		kinds := make(map[callRef]core.CallKind, len(calls))
		pallets := make(map[uint8]string)
		for _, kind := range core.CallKinds {
			if kind == core.Unknown {
				continue
			}
			idx, ok := calls[kind]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("chain %s: no call index for %s", c.ID, kind))
				continue
			}
			ref := callRef{pallet: idx.Pallet, call: idx.Call}
			if other, ok := kinds[ref]; ok {
				errs = multierr.Append(errs, fmt.Errorf("chain %s: %s and %s share call index %d/%d", c.ID, other, kind, idx.Pallet, idx.Call))
				continue
			}
			kinds[ref] = kind
			if idx.Section != "" {
				pallets[idx.Pallet] = idx.Section
			}
		}
		r.order = append(r.order, c.ID)
		r.chains[c.ID] = c
		r.calls[c.ID] = calls
		r.kinds[c.ID] = kinds
		r.pallets[c.ID] = pallets
	}
	if errs != nil {
		return nil, errs
	}
	return r, nil
}

func (r *Registry) Get(id core.ChainID) (Chain, bool) {
	c, ok := r.chains[id]
	return c, ok
}

// Chains returns the chains in declaration order.
func (r *Registry) Chains() []Chain {
	result := make([]Chain, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.chains[id])
	}
	return result
}

func (r *Registry) AddressPrefix(id core.ChainID) (uint16, bool) {
	c, ok := r.chains[id]
	return c.AddressPrefix, ok
}

func (r *Registry) CallIndex(id core.ChainID, kind core.CallKind) (CallIndex, bool) {
	idx, ok := r.calls[id][kind]
	return idx, ok
}

// Lookup maps a pallet/call index pair back to a known kind.
func (r *Registry) Lookup(id core.ChainID, pallet, call uint8) (core.CallKind, bool) {
	kind, ok := r.kinds[id][callRef{pallet: pallet, call: call}]
	return kind, ok
}

// PalletName returns the section name of a pallet if any known call lives in it.
func (r *Registry) PalletName(id core.ChainID, pallet uint8) (string, bool) {
	name, ok := r.pallets[id][pallet]
	return name, ok
}

// IDs returns the sorted chain ids.
func (r *Registry) IDs() []core.ChainID {
	ids := maps.Keys(r.chains)
	slices.Sort(ids)
	return ids
}
