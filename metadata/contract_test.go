// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metadata

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/erc721"
	"github.com/luxfi/token/hooks"
)

const testGas = uint64(10_000_000)

var (
	adminAddr      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	randoAddr      = common.HexToAddress("0x1000000000000000000000000000000000000002")
	holderAddr     = common.HexToAddress("0x1000000000000000000000000000000000000003")
	tokenAddr      = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	otherTokenAddr = common.HexToAddress("0xaa00000000000000000000000000000000000002")
)

type metadataFixture struct {
	state *contract.MockStateDB
	env   *contract.MockAccessibleState
}

func newMetadataFixture(t *testing.T) *metadataFixture {
	t.Helper()
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.SetSelf(ContractAddress)
	allowlist.SetAllowListRole(state, tokenAddr, adminAddr, allowlist.AdminRole)
	return &metadataFixture{state: state, env: env}
}

func (f *metadataFixture) lazyMint(t *testing.T, caller, token common.Address, amount int64, baseURI string) error {
	t.Helper()
	input, err := MetadataABI.Pack("lazyMint", token, big.NewInt(amount), baseURI)
	require.NoError(t, err)
	_, _, err = MetadataHookPrecompile.Run(f.env, caller, ContractAddress, input, testGas, false)
	return err
}

func (f *metadataFixture) uriOf(t *testing.T, token common.Address, id int64) (string, error) {
	t.Helper()
	input, err := hooks.PackTokenURI(big.NewInt(id))
	require.NoError(t, err)
	ret, _, err := MetadataHookPrecompile.Run(f.env, token, ContractAddress, input, testGas, true)
	if err != nil {
		return "", err
	}
	return hooks.UnpackTokenURIReturn(ret)
}

func TestDeclaredFlags(t *testing.T) {
	f := newMetadataFixture(t)

	ret, _, err := MetadataHookPrecompile.Run(f.env, tokenAddr, ContractAddress, hooks.PackGetHooksImplemented(), testGas, true)
	require.NoError(t, err)
	declared, err := hooks.UnpackHooksImplemented(ret)
	require.NoError(t, err)
	require.Equal(t, DeclaredFlags, declared)
	require.True(t, declared.Has(hooks.TokenURI))
	require.False(t, declared.Has(hooks.BeforeMint))
}

func TestLazyMintRequiresTokenAdmin(t *testing.T) {
	f := newMetadataFixture(t)

	err := f.lazyMint(t, randoAddr, tokenAddr, 3, "ipfs://alpha/")
	require.ErrorIs(t, err, ErrNotTokenAdmin)
	require.NoError(t, f.lazyMint(t, adminAddr, tokenAddr, 3, "ipfs://alpha/"))
}

func TestLazyMintAndTokenURI(t *testing.T) {
	f := newMetadataFixture(t)
	longBase := "https://metadata.lux.example/collections/" + strings.Repeat("x", 40) + "/"

	require.NoError(t, f.lazyMint(t, adminAddr, tokenAddr, 3, "ipfs://alpha/"))
	require.NoError(t, f.lazyMint(t, adminAddr, tokenAddr, 2, longBase))

	uri, err := f.uriOf(t, tokenAddr, 0)
	require.NoError(t, err)
	require.Equal(t, "ipfs://alpha/0", uri)

	uri, err = f.uriOf(t, tokenAddr, 2)
	require.NoError(t, err)
	require.Equal(t, "ipfs://alpha/2", uri)

	// The second batch starts where the first ended and keeps its long base
	// URI intact across storage chunks.
	uri, err = f.uriOf(t, tokenAddr, 3)
	require.NoError(t, err)
	require.Equal(t, longBase+"3", uri)

	_, err = f.uriOf(t, tokenAddr, 5)
	require.ErrorIs(t, err, ErrNoMetadata)

	logs := f.state.Logs()
	require.Len(t, logs, 2)
	require.Equal(t, MetadataABI.Events["BatchLazyMinted"].ID, logs[0].Topics[0])
	require.Equal(t, common.BytesToHash(tokenAddr.Bytes()), logs[0].Topics[1])
}

func TestLazyMintEmptyBatch(t *testing.T) {
	f := newMetadataFixture(t)

	err := f.lazyMint(t, adminAddr, tokenAddr, 0, "ipfs://alpha/")
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBatchViews(t *testing.T) {
	f := newMetadataFixture(t)
	require.NoError(t, f.lazyMint(t, adminAddr, tokenAddr, 3, "ipfs://alpha/"))
	require.NoError(t, f.lazyMint(t, adminAddr, tokenAddr, 2, "ipfs://beta/"))

	input, err := MetadataABI.Pack("getBaseURICount", tokenAddr)
	require.NoError(t, err)
	ret, _, err := MetadataHookPrecompile.Run(f.env, randoAddr, ContractAddress, input, testGas, true)
	require.NoError(t, err)
	vals, err := MetadataABI.UnpackOutput("getBaseURICount", ret)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), vals[0].(*big.Int))

	input, err = MetadataABI.Pack("getMetadataBatch", tokenAddr, big.NewInt(1))
	require.NoError(t, err)
	ret, _, err = MetadataHookPrecompile.Run(f.env, randoAddr, ContractAddress, input, testGas, true)
	require.NoError(t, err)
	vals, err = MetadataABI.UnpackOutput("getMetadataBatch", ret)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3), vals[0].(*big.Int))
	require.Equal(t, big.NewInt(5), vals[1].(*big.Int))
	require.Equal(t, "ipfs://beta/", vals[2].(string))

	input, err = MetadataABI.Pack("getMetadataBatch", tokenAddr, big.NewInt(2))
	require.NoError(t, err)
	_, _, err = MetadataHookPrecompile.Run(f.env, randoAddr, ContractAddress, input, testGas, true)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestBatchesAreIsolatedPerToken(t *testing.T) {
	f := newMetadataFixture(t)
	allowlist.SetAllowListRole(f.state, otherTokenAddr, adminAddr, allowlist.AdminRole)

	require.NoError(t, f.lazyMint(t, adminAddr, tokenAddr, 3, "ipfs://alpha/"))
	require.NoError(t, f.lazyMint(t, adminAddr, otherTokenAddr, 3, "ipfs://beta/"))

	uri, err := f.uriOf(t, tokenAddr, 1)
	require.NoError(t, err)
	require.Equal(t, "ipfs://alpha/1", uri)

	uri, err = f.uriOf(t, otherTokenAddr, 1)
	require.NoError(t, err)
	require.Equal(t, "ipfs://beta/1", uri)
}

func TestLazyMintReadOnly(t *testing.T) {
	f := newMetadataFixture(t)

	input, err := MetadataABI.Pack("lazyMint", tokenAddr, big.NewInt(1), "ipfs://alpha/")
	require.NoError(t, err)
	_, _, err = MetadataHookPrecompile.Run(f.env, adminAddr, ContractAddress, input, testGas, true)
	require.ErrorIs(t, err, contract.ErrWriteProtection)
}

// mintOnlyHook authorizes every mint so the integration test can put tokens
// into circulation.
type mintOnlyHook struct{}

func (mintOnlyHook) Run(env contract.AccessibleState, caller common.Address, addr common.Address, input []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if len(input) < 4 {
		return nil, suppliedGas, errors.New("input too short")
	}
	var selector [4]byte
	copy(selector[:], input[:4])
	switch selector {
	case hooks.SigGetHooksImplemented:
		return hooks.BeforeMint.Bit().Word().Bytes(), suppliedGas, nil
	case hooks.SigBeforeMint:
		vals, err := hooks.HookABI.UnpackInput("beforeMint", input[4:], false)
		if err != nil {
			return nil, suppliedGas, err
		}
		out, err := hooks.HookABI.PackOutput("beforeMint", vals[2].(*big.Int))
		return out, suppliedGas, err
	default:
		return nil, suppliedGas, nil
	}
}

// TestURIThroughTokenCore installs the metadata hook next to a mint hook on
// the non-fungible core and resolves tokenURI end to end. The two hooks
// declare disjoint flags, so both fit on one core.
func TestURIThroughTokenCore(t *testing.T) {
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.RegisterContract(erc721.ContractAddress, erc721.ERC721Precompile)
	env.RegisterContract(ContractAddress, MetadataHookPrecompile)
	minterAddr := common.HexToAddress("0xcc00000000000000000000000000000000000001")
	env.RegisterContract(minterAddr, mintOnlyHook{})

	cfg := &erc721.Config{AllowListConfig: allowlist.AllowListConfig{AdminAddresses: []common.Address{adminAddr}}}
	require.NoError(t, erc721.Module.Configurator.Configure(nil, cfg, state, contract.NewMockBlockContext(big.NewInt(1), 0)))

	for _, hookAddr := range []common.Address{minterAddr, ContractAddress} {
		input, err := erc721.ERC721ABI.Pack("installHook", hookAddr)
		require.NoError(t, err)
		_, _, err = env.CallAs(adminAddr, erc721.ContractAddress, input, testGas, nil)
		require.NoError(t, err)
	}

	input, err := erc721.ERC721ABI.Pack("mint", holderAddr, big.NewInt(2))
	require.NoError(t, err)
	_, _, err = env.CallAs(randoAddr, erc721.ContractAddress, input, testGas, nil)
	require.NoError(t, err)

	input, err = MetadataABI.Pack("lazyMint", erc721.ContractAddress, big.NewInt(2), "ipfs://punks/")
	require.NoError(t, err)
	_, _, err = env.CallAs(adminAddr, ContractAddress, input, testGas, nil)
	require.NoError(t, err)

	input, err = erc721.ERC721ABI.Pack("tokenURI", big.NewInt(1))
	require.NoError(t, err)
	ret, _, err := env.CallAs(randoAddr, erc721.ContractAddress, input, testGas, nil)
	require.NoError(t, err)
	vals, err := erc721.ERC721ABI.UnpackOutput("tokenURI", ret)
	require.NoError(t, err)
	require.Equal(t, "ipfs://punks/1", vals[0].(string))

	// An id past the lazy minted range has no batch, and the miss surfaces
	// through the core verbatim.
	input, err = erc721.ERC721ABI.Pack("mint", holderAddr, big.NewInt(1))
	require.NoError(t, err)
	_, _, err = env.CallAs(randoAddr, erc721.ContractAddress, input, testGas, nil)
	require.NoError(t, err)
	input, err = erc721.ERC721ABI.Pack("tokenURI", big.NewInt(2))
	require.NoError(t, err)
	_, _, err = env.CallAs(randoAddr, erc721.ContractAddress, input, testGas, nil)
	require.ErrorIs(t, err, ErrNoMetadata)
}
