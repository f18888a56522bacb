// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry catalogs the token platform's stateful precompiles.
// Importing it pulls in every token package, so their init registrations
// run and the whole LP-1xxx page is live.
package registry

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/token/claim"
	"github.com/luxfi/token/erc1155"
	"github.com/luxfi/token/erc20"
	"github.com/luxfi/token/erc721"
	"github.com/luxfi/token/hooks"
	"github.com/luxfi/token/metadata"
	"github.com/luxfi/token/royalty"
)

// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Token Standards Page (LP-1xxx)
// ============================================================================
//
// All token-page precompiles use trailing-significant 20-byte addresses:
//   Format: 0x000000000000000000000000000000000000 1NNN
//
// The address ends with the 16-bit LP number. Core numbers echo the
// Ethereum standard each core implements, so the address doubles as
// documentation:
//   LP-1020 = fungible core     (ERC-20 shaped)    0x...1020
//   LP-1155 = multi-token core  (ERC-1155 shaped)  0x...1155
//   LP-1721 = NFT core          (ERC-721 shaped)   0x...1721
//
// Extension hooks occupy the LP-13xx block, one item per hook:
//   LP-1310 = claim conditions (paid mint gating)
//   LP-1320 = shared metadata (lazy mint batches)
//   LP-1330 = royalty configuration (ERC-2981 shaped payouts)
//
// modules reserves the whole 0x...1000 - 0x...1fff range; LP numbers not
// listed here are free for future token standards. Other pages (PQ
// identity at LP-2xxx, privacy at LP-4xxx, DEX at LP-9xxx) belong to
// their own modules and never collide with this one.

// Kind partitions the page into token cores and the extension hooks that
// install onto them.
type Kind uint8

const (
	KindCore Kind = iota
	KindHook
)

func (k Kind) String() string {
	switch k {
	case KindCore:
		return "core"
	case KindHook:
		return "hook"
	default:
		return "unknown"
	}
}

// PrecompileInfo is the catalog record for one token-page precompile.
type PrecompileInfo struct {
	Address     common.Address
	Name        string
	Description string
	ConfigKey   string
	LP          string
	Kind        Kind
	GasBase     uint64

	// MaxFlag is the top of a core's hook dispatch range. Meaningful
	// only when Kind is KindCore.
	MaxFlag hooks.Flag
	// Declared is the flag set a hook answers getHooksImplemented with.
	// Meaningful only when Kind is KindHook.
	Declared hooks.FlagSet
}

// AllPrecompiles lists the token page in LP order.
var AllPrecompiles = []PrecompileInfo{
	{
		Address:     erc20.ContractAddress,
		Name:        "ERC20",
		Description: "Fungible token core with native balance accounting",
		ConfigKey:   erc20.ConfigKey,
		LP:          "LP-1020",
		Kind:        KindCore,
		GasBase:     erc20.MintGasCost,
		MaxFlag:     hooks.BeforeApprove,
	},
	{
		Address:     erc1155.ContractAddress,
		Name:        "ERC1155",
		Description: "Multi-token core with per-id balances and operators",
		ConfigKey:   erc1155.ConfigKey,
		LP:          "LP-1155",
		Kind:        KindCore,
		GasBase:     erc1155.MintGasCost,
		MaxFlag:     hooks.Royalty,
	},
	{
		Address:     claim.ContractAddress,
		Name:        "CLAIM",
		Description: "Paid mint hook with per-token claim conditions",
		ConfigKey:   claim.ConfigKey,
		LP:          "LP-1310",
		Kind:        KindHook,
		GasBase:     claim.ClaimGasCost,
		Declared:    claim.DeclaredFlags,
	},
	{
		Address:     metadata.ContractAddress,
		Name:        "METADATA",
		Description: "Shared metadata hook serving lazy minted batch URIs",
		ConfigKey:   metadata.ConfigKey,
		LP:          "LP-1320",
		Kind:        KindHook,
		GasBase:     metadata.URIGasCost,
		Declared:    metadata.DeclaredFlags,
	},
	{
		Address:     royalty.ContractAddress,
		Name:        "ROYALTY",
		Description: "Royalty hook with default and per-token basis points",
		ConfigKey:   royalty.ConfigKey,
		LP:          "LP-1330",
		Kind:        KindHook,
		GasBase:     royalty.RoyaltyInfoGasCost,
		Declared:    royalty.DeclaredFlags,
	},
	{
		Address:     erc721.ContractAddress,
		Name:        "ERC721",
		Description: "NFT core with sequential ids and per-token approvals",
		ConfigKey:   erc721.ConfigKey,
		LP:          "LP-1721",
		Kind:        KindCore,
		GasBase:     erc721.MintGasCost,
		MaxFlag:     hooks.Royalty,
	},
}

// Lookup returns the catalog record for a precompile by name.
func Lookup(name string) (PrecompileInfo, bool) {
	for _, p := range AllPrecompiles {
		if p.Name == name {
			return p, true
		}
	}
	return PrecompileInfo{}, false
}

// ByAddress returns the catalog record for a precompile address.
func ByAddress(addr common.Address) (PrecompileInfo, bool) {
	for _, p := range AllPrecompiles {
		if p.Address == addr {
			return p, true
		}
	}
	return PrecompileInfo{}, false
}

// Cores returns the token cores in LP order.
func Cores() []PrecompileInfo {
	return byKind(KindCore)
}

// Hooks returns the extension hooks in LP order.
func Hooks() []PrecompileInfo {
	return byKind(KindHook)
}

func byKind(kind Kind) []PrecompileInfo {
	var result []PrecompileInfo
	for _, p := range AllPrecompiles {
		if p.Kind == kind {
			result = append(result, p)
		}
	}
	return result
}

// HooksDeclaring returns the extension hooks that declare [f], in LP
// order. A core at or above the flag can install any of them.
func HooksDeclaring(f hooks.Flag) []PrecompileInfo {
	var result []PrecompileInfo
	for _, p := range AllPrecompiles {
		if p.Kind == KindHook && p.Declared.Has(f) {
			result = append(result, p)
		}
	}
	return result
}

// Addresses returns every token-page precompile address in LP order.
func Addresses() []common.Address {
	result := make([]common.Address, len(AllPrecompiles))
	for i, p := range AllPrecompiles {
		result[i] = p.Address
	}
	return result
}

// ChainPrecompiles lists which token-page precompiles each chain enables.
// C-Chain carries the full page; Zoo enables the collection-facing subset
// it trades (the NFT and multi-token cores plus their hooks).
var ChainPrecompiles = map[string][]common.Address{
	"C": {
		erc20.ContractAddress,
		erc1155.ContractAddress,
		claim.ContractAddress,
		metadata.ContractAddress,
		royalty.ContractAddress,
		erc721.ContractAddress,
	},
	"Zoo": {
		erc1155.ContractAddress,
		claim.ContractAddress,
		metadata.ContractAddress,
		royalty.ContractAddress,
		erc721.ContractAddress,
	},
}

// GetChainPrecompiles returns the token-page addresses enabled on a chain.
func GetChainPrecompiles(chainLetter string) []common.Address {
	addrs, ok := ChainPrecompiles[chainLetter]
	if !ok {
		return nil
	}

	result := make([]common.Address, len(addrs))
	copy(result, addrs)
	return result
}

// IsPrecompileEnabled checks if a token-page precompile is enabled for a
// chain.
func IsPrecompileEnabled(chainLetter string, precompileAddr common.Address) bool {
	for _, addr := range ChainPrecompiles[chainLetter] {
		if addr == precompileAddr {
			return true
		}
	}
	return false
}
