package wallet

import (
	"errors"
	"fmt"
	"strings"
)

// ChainFamily groups wallets by the provider protocol they speak.
type ChainFamily string

const (
	FamilyEVM    ChainFamily = "EVM"
	FamilySolana ChainFamily = "Solana"
)

// ParseFamily accepts the family names case-insensitively ("evm", "solana").
func ParseFamily(s string) (ChainFamily, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm":
		return FamilyEVM, nil
	case "solana", "sol":
		return FamilySolana, nil
	default:
		return "", fmt.Errorf("unknown chain family: %q", s)
	}
}

var ErrDuplicateWallet = errors.New("duplicate wallet key")

// Descriptor describes one supported wallet. Descriptors are built once at
// startup and never mutated.
type Descriptor struct {
	Key         string
	DisplayName string
	Family      ChainFamily
	Icon        string

	detect  func() bool
	acquire func() any
}

// NewDescriptor builds a descriptor from a detection predicate and a provider
// accessor. Both are expected to be cheap reads of the environment.
func NewDescriptor(key, displayName string, family ChainFamily, icon string, detect func() bool, acquire func() any) Descriptor {
	return Descriptor{
		Key:         key,
		DisplayName: displayName,
		Family:      family,
		Icon:        icon,
		detect:      detect,
		acquire:     acquire,
	}
}

// Detect runs the detection predicate. A panicking predicate is reported as
// an error instead of propagating.
func (d Descriptor) Detect() (installed bool, err error) {
	if d.detect == nil {
		return false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			installed = false
			err = fmt.Errorf("%s detection failed: %v", d.Key, r)
		}
	}()
	return d.detect(), nil
}

// IsInstalled reports whether the wallet is present. It never panics.
func (d Descriptor) IsInstalled() bool {
	ok, err := d.Detect()
	return ok && err == nil
}

// AcquireProvider returns the raw injected provider, or nil when absent.
func (d Descriptor) AcquireProvider() (p any) {
	if d.acquire == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			p = nil
		}
	}()
	return d.acquire()
}

// Registry is an ordered, read-only table of wallet descriptors.
type Registry struct {
	order []string
	byKey map[string]Descriptor
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(descs)),
		byKey: make(map[string]Descriptor, len(descs)),
	}
	for _, d := range descs {
		if d.Key == "" {
			return nil, fmt.Errorf("wallet descriptor has empty key")
		}
		if _, exists := r.byKey[d.Key]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWallet, d.Key)
		}
		r.order = append(r.order, d.Key)
		r.byKey[d.Key] = d
	}
	return r, nil
}

// List returns descriptors in insertion order, optionally filtered by family.
func (r *Registry) List(families ...ChainFamily) []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, key := range r.order {
		d := r.byKey[key]
		if matchesFamily(d.Family, families) {
			out = append(out, d)
		}
	}
	return out
}

// Installed returns the detected wallets in insertion order.
func (r *Registry) Installed(families ...ChainFamily) []Descriptor {
	var out []Descriptor
	for _, d := range r.List(families...) {
		if d.IsInstalled() {
			out = append(out, d)
		}
	}
	return out
}

// Find looks up a descriptor by key.
func (r *Registry) Find(key string) (Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

func matchesFamily(f ChainFamily, families []ChainFamily) bool {
	if len(families) == 0 {
		return true
	}
	for _, want := range families {
		if f == want {
			return true
		}
	}
	return false
}
