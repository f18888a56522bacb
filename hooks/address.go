// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// DeriveHookAddress returns the deterministic deployment address of a hook
// contract, computed CREATE2-style from the deployer and a salt. Tooling
// and tests use it to place hooks at reproducible addresses; the registry
// itself never derives capabilities from an address.
func DeriveHookAddress(deployer common.Address, salt [32]byte) common.Address {
	h := blake3.New()
	h.Write([]byte{0xff})
	h.Write(deployer.Bytes())
	h.Write(salt[:])

	var digest [32]byte
	_, _ = h.Digest().Read(digest[:])

	var addr common.Address
	copy(addr[:], digest[12:32])
	return addr
}

// DeriveFlaggedHookAddress derives a hook address with the declared flag
// byte stamped into the leading byte, so a deployment's declared set is
// readable off the address alone. The stamp is a deployment convention:
// installation still trusts only the getHooksImplemented answer.
func DeriveFlaggedHookAddress(deployer common.Address, salt [32]byte, declared FlagSet) common.Address {
	addr := DeriveHookAddress(deployer, salt)
	addr[0] = byte(declared)
	return addr
}

// ValidateHookAddress checks a flag-stamped hook address against the
// flags the contract actually declares.
func ValidateHookAddress(addr common.Address, declared FlagSet) error {
	if FlagSet(addr[0]) != declared {
		return ErrAddressFlagMismatch
	}
	return nil
}
