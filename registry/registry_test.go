// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"bytes"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/token/erc20"
	"github.com/luxfi/token/erc721"
	"github.com/luxfi/token/hooks"
	"github.com/luxfi/token/modules"
)

func TestCatalogMatchesRegisteredModules(t *testing.T) {
	require.Len(t, modules.RegisteredModules(), len(AllPrecompiles))

	for _, p := range AllPrecompiles {
		module, ok := modules.GetPrecompileModuleByAddress(p.Address)
		require.True(t, ok, "no module registered at %s (%s)", p.Address, p.Name)
		require.Equal(t, p.ConfigKey, module.ConfigKey)
		require.NotNil(t, module.Contract)
		require.NotNil(t, module.Configurator)
	}
}

func TestAddressesReserved(t *testing.T) {
	for _, p := range AllPrecompiles {
		require.True(t, modules.ReservedAddress(p.Address), "%s outside reserved range", p.Name)
	}
}

func TestLookupRoundtrip(t *testing.T) {
	for _, p := range AllPrecompiles {
		byName, ok := Lookup(p.Name)
		require.True(t, ok)
		require.Equal(t, p.Address, byName.Address)

		byAddr, ok := ByAddress(p.Address)
		require.True(t, ok)
		require.Equal(t, p.Name, byAddr.Name)
	}

	_, ok := Lookup("ERC4626")
	require.False(t, ok)
	_, ok = ByAddress(common.HexToAddress("0x0000000000000000000000000000000000001999"))
	require.False(t, ok)
}

func TestKindPartition(t *testing.T) {
	cores := Cores()
	extensions := Hooks()
	require.Len(t, cores, 3)
	require.Len(t, extensions, 3)
	require.Len(t, AllPrecompiles, len(cores)+len(extensions))

	require.Equal(t, "ERC20", cores[0].Name)
	require.Equal(t, "ERC1155", cores[1].Name)
	require.Equal(t, "ERC721", cores[2].Name)
	require.Equal(t, "CLAIM", extensions[0].Name)
	require.Equal(t, "METADATA", extensions[1].Name)
	require.Equal(t, "ROYALTY", extensions[2].Name)
}

func TestHooksDeclaring(t *testing.T) {
	minters := HooksDeclaring(hooks.BeforeMint)
	require.Len(t, minters, 1)
	require.Equal(t, "CLAIM", minters[0].Name)

	uris := HooksDeclaring(hooks.TokenURI)
	require.Len(t, uris, 1)
	require.Equal(t, "METADATA", uris[0].Name)

	royalties := HooksDeclaring(hooks.Royalty)
	require.Len(t, royalties, 1)
	require.Equal(t, "ROYALTY", royalties[0].Name)

	require.Empty(t, HooksDeclaring(hooks.BeforeBurn))
}

// TestEveryHookHasAHome asserts each platform hook fits at least one
// core's dispatch range unmasked.
func TestEveryHookHasAHome(t *testing.T) {
	for _, h := range Hooks() {
		home := false
		for _, c := range Cores() {
			if h.Declared.Mask(c.MaxFlag) == h.Declared {
				home = true
				break
			}
		}
		require.True(t, home, "%s declares flags no core dispatches", h.Name)
	}
}

func TestCatalogInLPOrder(t *testing.T) {
	addrs := Addresses()
	require.Len(t, addrs, len(AllPrecompiles))
	for i := 1; i < len(addrs); i++ {
		require.True(t, bytes.Compare(addrs[i-1].Bytes(), addrs[i].Bytes()) < 0)
	}
}

func TestChainEnablement(t *testing.T) {
	require.Equal(t, Addresses(), GetChainPrecompiles("C"))

	zoo := GetChainPrecompiles("Zoo")
	require.Len(t, zoo, len(AllPrecompiles)-1)
	require.True(t, IsPrecompileEnabled("Zoo", erc721.ContractAddress))
	require.False(t, IsPrecompileEnabled("Zoo", erc20.ContractAddress))
	require.True(t, IsPrecompileEnabled("C", erc20.ContractAddress))

	require.Nil(t, GetChainPrecompiles("Q"))
	require.False(t, IsPrecompileEnabled("Q", erc20.ContractAddress))
}
