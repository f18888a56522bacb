// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestDeriveHookAddress(t *testing.T) {
	deployer := common.HexToAddress("0x1000000000000000000000000000000000000001")

	a := DeriveHookAddress(deployer, [32]byte{0x01})
	b := DeriveHookAddress(deployer, [32]byte{0x01})
	require.Equal(t, a, b)
	require.NotEqual(t, common.Address{}, a)

	// Distinct salts and deployers land on distinct addresses.
	require.NotEqual(t, a, DeriveHookAddress(deployer, [32]byte{0x02}))
	other := common.HexToAddress("0x1000000000000000000000000000000000000002")
	require.NotEqual(t, a, DeriveHookAddress(other, [32]byte{0x01}))
}

func TestDeriveFlaggedHookAddress(t *testing.T) {
	deployer := common.HexToAddress("0x1000000000000000000000000000000000000001")
	declared := BeforeMint.Bit() | TokenURI.Bit()

	addr := DeriveFlaggedHookAddress(deployer, [32]byte{0x07}, declared)
	require.Equal(t, byte(declared), addr[0])

	// Only the stamp differs from the plain derivation.
	plain := DeriveHookAddress(deployer, [32]byte{0x07})
	require.Equal(t, plain[1:], addr[1:])

	require.NoError(t, ValidateHookAddress(addr, declared))
	require.ErrorIs(t, ValidateHookAddress(addr, BeforeMint.Bit()), ErrAddressFlagMismatch)

	bad := addr
	bad[0] ^= 0x01
	require.ErrorIs(t, ValidateHookAddress(bad, declared), ErrAddressFlagMismatch)
}

func BenchmarkDeriveHookAddress(b *testing.B) {
	deployer := common.HexToAddress("0x1000000000000000000000000000000000000001")
	salt := [32]byte{0x2a}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = DeriveHookAddress(deployer, salt)
	}
}
