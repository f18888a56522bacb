// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the chain-config plumbing shared by all
// stateful precompile modules: the Config interface each module's upgrade
// entry implements and the Upgrade struct carrying activation metadata.
package precompileconfig

import "math/big"

// Config is implemented by every precompile module's chain-config entry.
type Config interface {
	// Key returns the unique key the config is registered under in the
	// chain's upgrade JSON.
	Key() string
	// Timestamp returns the activation timestamp, nil if never.
	Timestamp() *uint64
	// IsDisabled reports whether this entry deactivates the precompile.
	IsDisabled() bool
	// Equal reports whether the two configs are semantically identical.
	Equal(Config) bool
	// Verify checks the config's parameters at chain startup.
	Verify(ChainConfig) error
}

// ChainConfig exposes the chain parameters precompile verification may
// consult.
type ChainConfig interface {
	ChainID() *big.Int
}

// Upgrade carries the activation metadata embedded in every precompile
// config.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the upgrade's activation timestamp.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// IsDisabled reports whether the upgrade deactivates the precompile.
func (u *Upgrade) IsDisabled() bool {
	return u.Disable
}

// Equal reports whether both upgrades carry the same activation metadata.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	return u.Disable == other.Disable && uint64PtrEqual(u.BlockTimestamp, other.BlockTimestamp)
}

func uint64PtrEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
