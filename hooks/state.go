// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"encoding/binary"

	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/token/contract"
)

// Storage layout, slots derived with domain-separated keccak hashes in
// the consumer core's own storage space:
//
//	activeFlagsKey          -> bitmask word of currently bound flags
//	implementationKey(flag) -> implementation address bound to the flag
//	installedCountKey       -> size of the installed set enumeration
//	installedAtKey(i)       -> i-th member of the enumeration
//	installedIndexKey(hook) -> enumeration index + 1, zero when absent
var (
	activeFlagsKey    = common.BytesToHash(crypto.Keccak256([]byte("token.hooks.activeFlags")))
	installedCountKey = common.BytesToHash(crypto.Keccak256([]byte("token.hooks.installedCount")))
)

func implementationKey(f Flag) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hooks.implementation"), []byte{byte(f)}))
}

func installedIndexKey(hook common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hooks.installedIndex"), hook.Bytes()))
}

func installedAtKey(i uint64) common.Hash {
	var index [8]byte
	binary.BigEndian.PutUint64(index[:], i)
	return common.BytesToHash(crypto.Keccak256([]byte("token.hooks.installedAt"), index[:]))
}

// ReadImplementation returns the hook bound to [f] in [consumer]'s
// registry, the zero address if unbound.
func ReadImplementation(state contract.StateReader, consumer common.Address, f Flag) common.Address {
	return common.BytesToAddress(state.GetState(consumer, implementationKey(f)).Bytes())
}

// ReadActiveFlags returns the bound-flag bitmask of [consumer]'s registry.
func ReadActiveFlags(state contract.StateReader, consumer common.Address) FlagSet {
	return FlagSetFromWord(state.GetState(consumer, activeFlagsKey))
}

// HasInstalled reports membership of [hook] in [consumer]'s installed set.
func HasInstalled(state contract.StateReader, consumer common.Address, hook common.Address) bool {
	return state.GetState(consumer, installedIndexKey(hook)) != (common.Hash{})
}

// LoadRegistry reads [consumer]'s full registry from state.
func LoadRegistry(state contract.StateReader, consumer common.Address, max Flag) *Registry {
	r := NewRegistry(max)
	r.active = ReadActiveFlags(state, consumer)
	for f := BeforeMint; f <= max; f++ {
		r.impls[f] = ReadImplementation(state, consumer, f)
	}

	count := readUint64(state, consumer, installedCountKey)
	r.order = make([]common.Address, 0, count)
	for i := uint64(0); i < count; i++ {
		hook := common.BytesToAddress(state.GetState(consumer, installedAtKey(i)).Bytes())
		r.order = append(r.order, hook)
		r.installed[hook] = struct{}{}
	}
	r.loaded = append([]common.Address(nil), r.order...)
	return r
}

// StoreRegistry commits [r] into [consumer]'s storage. Flag bindings are
// written before the active-flags word; the installed set is written
// last.
func StoreRegistry(state contract.StateDB, consumer common.Address, r *Registry) {
	for f := r.max; ; f-- {
		state.SetState(consumer, implementationKey(f), common.BytesToHash(r.impls[f].Bytes()))
		if f == 0 {
			break
		}
	}
	state.SetState(consumer, activeFlagsKey, r.active.Word())

	for i, hook := range r.order {
		state.SetState(consumer, installedAtKey(uint64(i)), common.BytesToHash(hook.Bytes()))
		state.SetState(consumer, installedIndexKey(hook), uint64Word(uint64(i)+1))
	}
	// Clear enumeration slots and membership indexes of removed members.
	for i := uint64(len(r.order)); i < uint64(len(r.loaded)); i++ {
		state.SetState(consumer, installedAtKey(i), common.Hash{})
	}
	for _, hook := range r.loaded {
		if _, ok := r.installed[hook]; !ok {
			state.SetState(consumer, installedIndexKey(hook), common.Hash{})
		}
	}
	state.SetState(consumer, installedCountKey, uint64Word(uint64(len(r.order))))
	r.loaded = append([]common.Address(nil), r.order...)
}

func uint64Word(v uint64) common.Hash {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], v)
	return word
}

func readUint64(state contract.StateReader, addr common.Address, key common.Hash) uint64 {
	word := state.GetState(addr, key)
	return binary.BigEndian.Uint64(word[24:])
}
