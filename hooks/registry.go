// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// Registry is the hook registry of a single consumer core: the per-flag
// implementation table, the set of installed hooks, and the flag range the
// consumer supports. A Registry is loaded from the consumer's storage,
// mutated in memory, and committed back; a rejected mutation leaves both
// the memory and the stored form untouched.
//
// Invariant: a flag is active exactly when its implementation entry is
// nonzero.
type Registry struct {
	max    Flag
	active FlagSet
	impls  [NumFlags]common.Address

	// The installed set. order carries the enumeration layout persisted
	// alongside the membership index; removal swaps the last entry into
	// the vacated position.
	installed map[common.Address]struct{}
	order     []common.Address

	// loaded is the set enumeration as read from storage, kept for
	// computing removals on commit.
	loaded []common.Address
}

// NewRegistry returns an empty registry supporting flags up to [max].
func NewRegistry(max Flag) *Registry {
	return &Registry{
		max:       max,
		installed: make(map[common.Address]struct{}),
	}
}

// MaxFlag returns the highest flag the consumer supports.
func (r *Registry) MaxFlag() Flag {
	return r.max
}

// ActiveFlags returns the currently bound flags.
func (r *Registry) ActiveFlags() FlagSet {
	return r.active
}

// ImplementationOf returns the hook bound to [f], the zero address if the
// flag is unbound or out of range.
func (r *Registry) ImplementationOf(f Flag) common.Address {
	if f > r.max {
		return common.Address{}
	}
	return r.impls[f]
}

// IsInstalled reports membership in the installed set.
func (r *Registry) IsInstalled(hook common.Address) bool {
	_, ok := r.installed[hook]
	return ok
}

// InstalledHooks returns the installed set in its enumeration order.
func (r *Registry) InstalledHooks() []common.Address {
	out := make([]common.Address, len(r.order))
	copy(out, r.order)
	return out
}

// Install binds every declared flag (bounded by the consumer's maximum)
// to [hook] and records set membership. The sweep walks from the highest
// supported flag down and validates completely before writing: one
// conflicting flag rejects the install with the registry unchanged.
func (r *Registry) Install(hook common.Address, declared FlagSet) error {
	declared = declared.Mask(r.max)

	for f := r.max; ; f-- {
		if declared.Has(f) && r.impls[f] != (common.Address{}) {
			return fmt.Errorf("%w: flag %s is bound to %s", ErrAlreadyInstalled, f, r.impls[f])
		}
		if f == 0 {
			break
		}
	}

	for f := r.max; ; f-- {
		if declared.Has(f) {
			r.impls[f] = hook
			r.active = r.active.Add(f)
		}
		if f == 0 {
			break
		}
	}

	// Membership is recorded last.
	if _, ok := r.installed[hook]; !ok {
		r.installed[hook] = struct{}{}
		r.order = append(r.order, hook)
	}
	return nil
}

// Uninstall clears every flag [hook] declares now (bounded by the
// consumer's maximum) and removes set membership. Clearing an unbound
// flag is a no-op; the declared set is re-queried by the caller, so a
// hook whose declaration changed since install leaves its stale flags
// behind.
func (r *Registry) Uninstall(hook common.Address, declared FlagSet) error {
	if _, ok := r.installed[hook]; !ok {
		return fmt.Errorf("%w: %s", ErrNotInstalled, hook)
	}
	declared = declared.Mask(r.max)

	for f := r.max; ; f-- {
		if declared.Has(f) {
			r.impls[f] = common.Address{}
			r.active = r.active.Clear(f)
		}
		if f == 0 {
			break
		}
	}

	delete(r.installed, hook)
	for i, member := range r.order {
		if member == hook {
			last := len(r.order) - 1
			r.order[i] = r.order[last]
			r.order = r.order[:last]
			break
		}
	}
	return nil
}
