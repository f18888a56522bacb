// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erc721

import (
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/hooks"
)

const testGas = uint64(10_000_000)

var (
	adminAddr   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	holderAddr  = common.HexToAddress("0x1000000000000000000000000000000000000002")
	spenderAddr = common.HexToAddress("0x1000000000000000000000000000000000000003")
	randoAddr   = common.HexToAddress("0x1000000000000000000000000000000000000004")
	royaltyAddr = common.HexToAddress("0x1000000000000000000000000000000000000005")
)

type testHook struct {
	declared   hooks.FlagSet
	mintReturn *big.Int
	failWith   error
}

func (h *testHook) Run(env contract.AccessibleState, caller common.Address, addr common.Address, input []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if len(input) < 4 {
		return nil, suppliedGas, errors.New("input too short")
	}
	var selector [4]byte
	copy(selector[:], input[:4])

	switch selector {
	case hooks.SigGetHooksImplemented:
		return h.declared.Word().Bytes(), suppliedGas, nil
	case hooks.SigBeforeMint:
		if h.failWith != nil {
			return nil, suppliedGas, h.failWith
		}
		vals, err := hooks.HookABI.UnpackInput("beforeMint", input[4:], false)
		if err != nil {
			return nil, suppliedGas, err
		}
		quantity := vals[2].(*big.Int)
		if h.mintReturn != nil {
			quantity = h.mintReturn
		}
		out, err := hooks.HookABI.PackOutput("beforeMint", quantity)
		return out, suppliedGas, err
	case hooks.SigBeforeTransfer, hooks.SigBeforeBurn, hooks.SigBeforeApprove:
		if h.failWith != nil {
			return nil, suppliedGas, h.failWith
		}
		return nil, suppliedGas, nil
	case hooks.SigTokenURI:
		vals, err := hooks.HookABI.UnpackInput("tokenURI", input[4:], false)
		if err != nil {
			return nil, suppliedGas, err
		}
		out, err := hooks.HookABI.PackOutput("tokenURI", "ipfs://collection/"+vals[0].(*big.Int).String())
		return out, suppliedGas, err
	case hooks.SigRoyaltyInfo:
		out, err := hooks.HookABI.PackOutput("royaltyInfo", royaltyAddr, big.NewInt(500))
		return out, suppliedGas, err
	default:
		return nil, suppliedGas, errors.New("unknown selector")
	}
}

type nftFixture struct {
	state    *contract.MockStateDB
	env      *contract.MockAccessibleState
	hook     *testHook
	hookAddr common.Address
}

func newNFTFixture(t *testing.T) *nftFixture {
	t.Helper()
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.SetSelf(ContractAddress)

	cfg := &Config{
		AllowListConfig: allowlist.AllowListConfig{
			AdminAddresses: []common.Address{adminAddr},
		},
		Name:   "Lux Punks",
		Symbol: "LPNK",
	}
	require.NoError(t, cfg.Verify(nil))
	require.NoError(t, Module.Configurator.Configure(nil, cfg, state, contract.NewMockBlockContext(big.NewInt(1), 0)))

	hook := &testHook{
		declared: hooks.BeforeMint.Bit() | hooks.BeforeTransfer.Bit() | hooks.BeforeBurn.Bit() |
			hooks.BeforeApprove.Bit() | hooks.TokenURI.Bit() | hooks.Royalty.Bit(),
	}
	hookAddr := common.HexToAddress("0xcc00000000000000000000000000000000000002")
	env.RegisterContract(hookAddr, hook)
	return &nftFixture{state: state, env: env, hook: hook, hookAddr: hookAddr}
}

func (f *nftFixture) call(t *testing.T, caller common.Address, method string, args ...interface{}) ([]byte, error) {
	t.Helper()
	input, err := ERC721ABI.Pack(method, args...)
	require.NoError(t, err)
	ret, _, err := ERC721Precompile.Run(f.env, caller, ContractAddress, input, testGas, false)
	return ret, err
}

func (f *nftFixture) installHooks(t *testing.T) {
	t.Helper()
	_, err := f.call(t, adminAddr, "installHook", f.hookAddr)
	require.NoError(t, err)
}

func (f *nftFixture) mint(t *testing.T, to common.Address, quantity int64) {
	t.Helper()
	_, err := f.call(t, randoAddr, "mint", to, big.NewInt(quantity))
	require.NoError(t, err)
}

func unpackOne(t *testing.T, method string, ret []byte) interface{} {
	t.Helper()
	vals, err := ERC721ABI.UnpackOutput(method, ret)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	return vals[0]
}

func (f *nftFixture) ownerOf(t *testing.T, id int64) (common.Address, error) {
	t.Helper()
	ret, err := f.call(t, randoAddr, "ownerOf", big.NewInt(id))
	if err != nil {
		return common.Address{}, err
	}
	return unpackOne(t, "ownerOf", ret).(common.Address), nil
}

func TestMintSequentialIDs(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)

	ret, err := f.call(t, randoAddr, "mint", holderAddr, big.NewInt(3))
	require.NoError(t, err)
	vals, err := ERC721ABI.UnpackOutput("mint", ret)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3), vals[0].(*big.Int))
	require.Zero(t, vals[1].(*big.Int).Sign())

	for id := int64(0); id < 3; id++ {
		owner, err := f.ownerOf(t, id)
		require.NoError(t, err)
		require.Equal(t, holderAddr, owner)
	}

	ret, err = f.call(t, randoAddr, "balanceOf", holderAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3), unpackOne(t, "balanceOf", ret).(*big.Int))

	ret, err = f.call(t, randoAddr, "totalSupply")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3), unpackOne(t, "totalSupply", ret).(*big.Int))

	// The next batch continues where the first stopped.
	ret, err = f.call(t, randoAddr, "mint", spenderAddr, big.NewInt(2))
	require.NoError(t, err)
	vals, err = ERC721ABI.UnpackOutput("mint", ret)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(3), vals[1].(*big.Int))

	ret, err = f.call(t, randoAddr, "nextTokenId")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), unpackOne(t, "nextTokenId", ret).(*big.Int))
}

func TestMintHookDecidesQuantity(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.hook.mintReturn = big.NewInt(1)

	ret, err := f.call(t, randoAddr, "mint", holderAddr, big.NewInt(5))
	require.NoError(t, err)
	vals, err := ERC721ABI.UnpackOutput("mint", ret)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), vals[0].(*big.Int))

	_, err = f.ownerOf(t, 1)
	require.ErrorIs(t, err, ErrNonexistentToken)

	ret, err = f.call(t, randoAddr, "nextTokenId")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), unpackOne(t, "nextTokenId", ret).(*big.Int))
}

func TestMintRequiresHook(t *testing.T) {
	f := newNFTFixture(t)
	_, err := f.call(t, randoAddr, "mint", holderAddr, big.NewInt(1))
	require.ErrorIs(t, err, hooks.ErrMintDisabled)
}

func TestTransferFrom(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.mint(t, holderAddr, 2)

	_, err := f.call(t, holderAddr, "transferFrom", holderAddr, spenderAddr, big.NewInt(0))
	require.NoError(t, err)
	owner, err := f.ownerOf(t, 0)
	require.NoError(t, err)
	require.Equal(t, spenderAddr, owner)

	ret, err := f.call(t, randoAddr, "balanceOf", holderAddr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), unpackOne(t, "balanceOf", ret).(*big.Int))

	t.Run("wrong from", func(t *testing.T) {
		_, err := f.call(t, holderAddr, "transferFrom", holderAddr, spenderAddr, big.NewInt(0))
		require.ErrorIs(t, err, ErrNotOwner)
	})
	t.Run("caller not authorized", func(t *testing.T) {
		_, err := f.call(t, randoAddr, "transferFrom", spenderAddr, randoAddr, big.NewInt(0))
		require.ErrorIs(t, err, ErrNotOwner)
	})
	t.Run("nonexistent token", func(t *testing.T) {
		_, err := f.call(t, holderAddr, "transferFrom", holderAddr, spenderAddr, big.NewInt(99))
		require.ErrorIs(t, err, ErrNonexistentToken)
	})
	t.Run("zero receiver", func(t *testing.T) {
		_, err := f.call(t, holderAddr, "transferFrom", holderAddr, common.Address{}, big.NewInt(1))
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestTransferBlockedByHook(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.mint(t, holderAddr, 1)

	hookErr := errors.New("soulbound")
	f.hook.failWith = hookErr
	_, err := f.call(t, holderAddr, "transferFrom", holderAddr, spenderAddr, big.NewInt(0))
	require.ErrorIs(t, err, hookErr)

	owner, err := f.ownerOf(t, 0)
	require.NoError(t, err)
	require.Equal(t, holderAddr, owner)
}

func TestApproveAndTransferByApproved(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.mint(t, holderAddr, 1)

	_, err := f.call(t, holderAddr, "approve", spenderAddr, big.NewInt(0))
	require.NoError(t, err)

	ret, err := f.call(t, randoAddr, "getApproved", big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, spenderAddr, unpackOne(t, "getApproved", ret).(common.Address))

	_, err = f.call(t, spenderAddr, "transferFrom", holderAddr, randoAddr, big.NewInt(0))
	require.NoError(t, err)
	owner, err := f.ownerOf(t, 0)
	require.NoError(t, err)
	require.Equal(t, randoAddr, owner)

	// The approval does not survive the transfer.
	ret, err = f.call(t, randoAddr, "getApproved", big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, common.Address{}, unpackOne(t, "getApproved", ret).(common.Address))
}

func TestApproveRequiresOwner(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.mint(t, holderAddr, 1)

	_, err := f.call(t, randoAddr, "approve", spenderAddr, big.NewInt(0))
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = f.call(t, holderAddr, "approve", spenderAddr, big.NewInt(7))
	require.ErrorIs(t, err, ErrNonexistentToken)
}

func TestBurn(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.mint(t, holderAddr, 2)

	_, err := f.call(t, holderAddr, "burn", big.NewInt(0))
	require.NoError(t, err)
	_, err = f.ownerOf(t, 0)
	require.ErrorIs(t, err, ErrNonexistentToken)

	ret, err := f.call(t, randoAddr, "totalSupply")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1), unpackOne(t, "totalSupply", ret).(*big.Int))

	// An approved account may burn on the owner's behalf.
	_, err = f.call(t, holderAddr, "approve", spenderAddr, big.NewInt(1))
	require.NoError(t, err)
	_, err = f.call(t, spenderAddr, "burn", big.NewInt(1))
	require.NoError(t, err)

	_, err = f.call(t, randoAddr, "burn", big.NewInt(1))
	require.ErrorIs(t, err, ErrNonexistentToken)
}

func TestTokenURIDispatch(t *testing.T) {
	f := newNFTFixture(t)
	f.installHooks(t)
	f.mint(t, holderAddr, 1)

	ret, err := f.call(t, randoAddr, "tokenURI", big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, "ipfs://collection/0", unpackOne(t, "tokenURI", ret).(string))

	_, err = f.call(t, randoAddr, "tokenURI", big.NewInt(9))
	require.ErrorIs(t, err, ErrNonexistentToken)
}

func TestTokenURIWithoutHook(t *testing.T) {
	f := newNFTFixture(t)

	// Mint needs a hook; installing a mint-only hook leaves tokenURI unbound.
	f.hook.declared = hooks.BeforeMint.Bit()
	f.installHooks(t)
	f.mint(t, holderAddr, 1)

	_, err := f.call(t, randoAddr, "tokenURI", big.NewInt(0))
	require.ErrorIs(t, err, hooks.ErrNotInstalled)
}

func TestRoyaltyDispatch(t *testing.T) {
	f := newNFTFixture(t)

	ret, err := f.call(t, randoAddr, "royaltyInfo", big.NewInt(0), big.NewInt(10_000))
	require.NoError(t, err)
	vals, err := ERC721ABI.UnpackOutput("royaltyInfo", ret)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, vals[0].(common.Address))
	require.Zero(t, vals[1].(*big.Int).Sign())

	f.installHooks(t)
	ret, err = f.call(t, randoAddr, "royaltyInfo", big.NewInt(0), big.NewInt(10_000))
	require.NoError(t, err)
	vals, err = ERC721ABI.UnpackOutput("royaltyInfo", ret)
	require.NoError(t, err)
	require.Equal(t, royaltyAddr, vals[0].(common.Address))
	require.Equal(t, big.NewInt(500), vals[1].(*big.Int))
}

func TestCollectionMetadata(t *testing.T) {
	f := newNFTFixture(t)

	ret, err := f.call(t, randoAddr, "name")
	require.NoError(t, err)
	require.Equal(t, "Lux Punks", unpackOne(t, "name", ret).(string))

	ret, err = f.call(t, randoAddr, "symbol")
	require.NoError(t, err)
	require.Equal(t, "LPNK", unpackOne(t, "symbol", ret).(string))

	ret, err = f.call(t, randoAddr, "getMaxFlag")
	require.NoError(t, err)
	require.Equal(t, uint8(hooks.Royalty), unpackOne(t, "getMaxFlag", ret).(uint8))
}

func TestReadOnlyProtection(t *testing.T) {
	f := newNFTFixture(t)

	calls := []struct {
		method string
		args   []interface{}
	}{
		{"installHook", []interface{}{f.hookAddr}},
		{"mint", []interface{}{holderAddr, big.NewInt(1)}},
		{"transferFrom", []interface{}{holderAddr, spenderAddr, big.NewInt(0)}},
		{"burn", []interface{}{big.NewInt(0)}},
		{"approve", []interface{}{spenderAddr, big.NewInt(0)}},
	}
	for _, call := range calls {
		t.Run(call.method, func(t *testing.T) {
			input, err := ERC721ABI.Pack(call.method, call.args...)
			require.NoError(t, err)
			_, _, err = ERC721Precompile.Run(f.env, adminAddr, ContractAddress, input, testGas, true)
			require.ErrorIs(t, err, contract.ErrWriteProtection)
		})
	}
}

func TestConfigVerifyAndEqual(t *testing.T) {
	long := "this collection name runs well past thirty one bytes"
	require.Error(t, (&Config{Name: long}).Verify(nil))
	require.Error(t, (&Config{Symbol: long}).Verify(nil))
	require.NoError(t, (&Config{Name: "Lux Punks", Symbol: "LPNK"}).Verify(nil))

	a := &Config{Name: "Lux Punks", Symbol: "LPNK"}
	b := &Config{Name: "Lux Punks", Symbol: "LPNK"}
	require.True(t, a.Equal(b))

	b.Symbol = "PUNK"
	require.False(t, a.Equal(b))
	require.False(t, a.Equal(nil))

	require.Equal(t, ConfigKey, a.Key())
}
