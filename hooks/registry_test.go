// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/token/contract"
)

var (
	hookA = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	hookB = common.HexToAddress("0xbb00000000000000000000000000000000000002")
	hookC = common.HexToAddress("0xcc00000000000000000000000000000000000003")
)

func TestRegistryInstallBindsDeclaredFlags(t *testing.T) {
	r := NewRegistry(Royalty)
	declared := BeforeMint.Bit() | TokenURI.Bit()

	require.NoError(t, r.Install(hookA, declared))

	require.Equal(t, declared, r.ActiveFlags())
	require.Equal(t, hookA, r.ImplementationOf(BeforeMint))
	require.Equal(t, hookA, r.ImplementationOf(TokenURI))
	require.Equal(t, common.Address{}, r.ImplementationOf(BeforeBurn))
	require.True(t, r.IsInstalled(hookA))
	require.Equal(t, []common.Address{hookA}, r.InstalledHooks())
}

func TestRegistryInstallConflictLeavesRegistryUntouched(t *testing.T) {
	r := NewRegistry(Royalty)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()|BeforeBurn.Bit()))

	// hookB collides on BeforeBurn; its free Royalty flag must not be
	// bound either.
	err := r.Install(hookB, BeforeBurn.Bit()|Royalty.Bit())
	require.ErrorIs(t, err, ErrAlreadyInstalled)

	require.Equal(t, BeforeMint.Bit()|BeforeBurn.Bit(), r.ActiveFlags())
	require.Equal(t, hookA, r.ImplementationOf(BeforeMint))
	require.Equal(t, hookA, r.ImplementationOf(BeforeBurn))
	require.Equal(t, common.Address{}, r.ImplementationOf(Royalty))
	require.False(t, r.IsInstalled(hookB))
	require.Equal(t, []common.Address{hookA}, r.InstalledHooks())
}

func TestRegistryInstallSameHookTwice(t *testing.T) {
	r := NewRegistry(Royalty)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()))
	require.ErrorIs(t, r.Install(hookA, BeforeMint.Bit()), ErrAlreadyInstalled)
}

func TestRegistryInstallEmptyDeclaration(t *testing.T) {
	r := NewRegistry(Royalty)
	require.NoError(t, r.Install(hookA, 0))

	require.True(t, r.ActiveFlags().Empty())
	require.True(t, r.IsInstalled(hookA))

	require.NoError(t, r.Uninstall(hookA, 0))
	require.False(t, r.IsInstalled(hookA))
}

func TestRegistryInstallMasksFlagsAboveMax(t *testing.T) {
	r := NewRegistry(BeforeApprove)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()|TokenURI.Bit()|Royalty.Bit()))

	require.Equal(t, BeforeMint.Bit(), r.ActiveFlags())
	require.Equal(t, common.Address{}, r.ImplementationOf(TokenURI))
	require.Equal(t, common.Address{}, r.ImplementationOf(Royalty))
}

func TestRegistryUninstall(t *testing.T) {
	r := NewRegistry(Royalty)
	declared := BeforeMint.Bit() | BeforeApprove.Bit()
	require.NoError(t, r.Install(hookA, declared))

	require.NoError(t, r.Uninstall(hookA, declared))

	require.True(t, r.ActiveFlags().Empty())
	require.Equal(t, common.Address{}, r.ImplementationOf(BeforeMint))
	require.Equal(t, common.Address{}, r.ImplementationOf(BeforeApprove))
	require.False(t, r.IsInstalled(hookA))
	require.Empty(t, r.InstalledHooks())
}

func TestRegistryUninstallNotInstalled(t *testing.T) {
	r := NewRegistry(Royalty)
	require.ErrorIs(t, r.Uninstall(hookA, BeforeMint.Bit()), ErrNotInstalled)
}

func TestRegistryUninstallStaleDeclaration(t *testing.T) {
	r := NewRegistry(Royalty)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()))

	// The hook now declares a different set: the sweep clears what it
	// declares today and leaves the stale BeforeMint binding behind.
	require.NoError(t, r.Uninstall(hookA, BeforeBurn.Bit()))

	require.Equal(t, hookA, r.ImplementationOf(BeforeMint))
	require.True(t, r.ActiveFlags().Has(BeforeMint))
	require.False(t, r.IsInstalled(hookA))
}

func TestRegistryEnumerationSwapRemove(t *testing.T) {
	r := NewRegistry(Royalty)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()))
	require.NoError(t, r.Install(hookB, BeforeBurn.Bit()))
	require.NoError(t, r.Install(hookC, Royalty.Bit()))

	require.NoError(t, r.Uninstall(hookA, BeforeMint.Bit()))

	// The last member swaps into the vacated position.
	require.Equal(t, []common.Address{hookC, hookB}, r.InstalledHooks())
}

func TestRegistryStateRoundTrip(t *testing.T) {
	consumer := common.HexToAddress("0x0000000000000000000000000000000000001020")
	state := contract.NewMockStateDB()

	r := LoadRegistry(state, consumer, Royalty)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()|TokenURI.Bit()))
	require.NoError(t, r.Install(hookB, BeforeBurn.Bit()))
	StoreRegistry(state, consumer, r)

	require.Equal(t, BeforeMint.Bit()|BeforeBurn.Bit()|TokenURI.Bit(), ReadActiveFlags(state, consumer))
	require.Equal(t, hookA, ReadImplementation(state, consumer, BeforeMint))
	require.Equal(t, hookB, ReadImplementation(state, consumer, BeforeBurn))
	require.True(t, HasInstalled(state, consumer, hookA))
	require.True(t, HasInstalled(state, consumer, hookB))
	require.False(t, HasInstalled(state, consumer, hookC))

	loaded := LoadRegistry(state, consumer, Royalty)
	require.Equal(t, r.ActiveFlags(), loaded.ActiveFlags())
	require.Equal(t, r.InstalledHooks(), loaded.InstalledHooks())
	require.Equal(t, hookA, loaded.ImplementationOf(TokenURI))

	// Removal clears the membership index and shrinks the enumeration.
	require.NoError(t, loaded.Uninstall(hookA, BeforeMint.Bit()|TokenURI.Bit()))
	StoreRegistry(state, consumer, loaded)

	require.False(t, HasInstalled(state, consumer, hookA))
	require.True(t, HasInstalled(state, consumer, hookB))
	require.Equal(t, []common.Address{hookB}, LoadRegistry(state, consumer, Royalty).InstalledHooks())
	require.Equal(t, BeforeBurn.Bit(), ReadActiveFlags(state, consumer))
}

func TestRegistryImplementationOfOutOfRange(t *testing.T) {
	r := NewRegistry(BeforeApprove)
	require.NoError(t, r.Install(hookA, BeforeMint.Bit()))
	require.Equal(t, common.Address{}, r.ImplementationOf(Royalty))
	require.Equal(t, common.Address{}, r.ImplementationOf(Flag(250)))
}
