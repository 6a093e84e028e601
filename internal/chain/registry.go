package chain

import "fmt"

// Registry is an ordered table of networks keyed by chain id.
type Registry struct {
	order []uint64
	byID  map[uint64]Network
}

// NewRegistry builds a registry. A later entry with a known chain id is
// patched onto the earlier one: its non-zero fields win and the network
// keeps its original position.
func NewRegistry(nets ...Network) (*Registry, error) {
	r := &Registry{byID: make(map[uint64]Network, len(nets))}
	for _, n := range nets {
		prev, exists := r.byID[n.ChainID]
		if exists {
			n = prev.patch(n)
		}
		norm, err := n.normalize()
		if err != nil {
			return nil, err
		}
		if !exists {
			r.order = append(r.order, norm.ChainID)
		}
		r.byID[norm.ChainID] = norm
	}
	return r, nil
}

// NewDefaultRegistry returns a registry over DefaultNetworks plus overrides.
func NewDefaultRegistry(overrides ...Network) (*Registry, error) {
	nets := append(DefaultNetworks(), overrides...)
	r, err := NewRegistry(nets...)
	if err != nil {
		return nil, fmt.Errorf("invalid network configuration: %w", err)
	}
	return r, nil
}

// Find returns the network for a numeric chain id.
func (r *Registry) Find(chainID uint64) (Network, bool) {
	n, ok := r.byID[chainID]
	return n, ok
}

// List returns all networks in registry order.
func (r *Registry) List() []Network {
	out := make([]Network, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
