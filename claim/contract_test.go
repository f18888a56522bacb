// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package claim

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/erc20"
	"github.com/luxfi/token/hooks"
)

const testGas = uint64(10_000_000)

var (
	adminAddr    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	buyerAddr    = common.HexToAddress("0x1000000000000000000000000000000000000002")
	treasuryAddr = common.HexToAddress("0x1000000000000000000000000000000000000003")
	randoAddr    = common.HexToAddress("0x1000000000000000000000000000000000000004")
	tokenAddr    = common.HexToAddress("0xaa00000000000000000000000000000000000001")
)

type claimFixture struct {
	state *contract.MockStateDB
	env   *contract.MockAccessibleState
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.SetSelf(ContractAddress)
	allowlist.SetAllowListRole(state, tokenAddr, adminAddr, allowlist.AdminRole)
	return &claimFixture{state: state, env: env}
}

func (f *claimFixture) setCondition(t *testing.T, caller common.Address, price, supply int64, recipient common.Address, gated bool) error {
	t.Helper()
	input, err := ClaimABI.Pack("setClaimCondition", tokenAddr, big.NewInt(price), big.NewInt(supply), recipient, gated)
	require.NoError(t, err)
	_, _, err = ClaimHookPrecompile.Run(f.env, caller, ContractAddress, input, testGas, false)
	return err
}

func (f *claimFixture) condition(t *testing.T) (price, supply *big.Int, recipient common.Address, gated, configured bool) {
	t.Helper()
	input, err := ClaimABI.Pack("getClaimCondition", tokenAddr)
	require.NoError(t, err)
	ret, _, err := ClaimHookPrecompile.Run(f.env, randoAddr, ContractAddress, input, testGas, false)
	require.NoError(t, err)
	vals, err := ClaimABI.UnpackOutput("getClaimCondition", ret)
	require.NoError(t, err)
	return vals[0].(*big.Int), vals[1].(*big.Int), vals[2].(common.Address), vals[3].(bool), vals[4].(bool)
}

func (f *claimFixture) setAllowlisted(t *testing.T, caller, claimer common.Address, allowed bool) error {
	t.Helper()
	input, err := ClaimABI.Pack("setAllowlisted", tokenAddr, claimer, allowed)
	require.NoError(t, err)
	_, _, err = ClaimHookPrecompile.Run(f.env, caller, ContractAddress, input, testGas, false)
	return err
}

func (f *claimFixture) allowlisted(t *testing.T, claimer common.Address) bool {
	t.Helper()
	input, err := ClaimABI.Pack("isAllowlisted", tokenAddr, claimer)
	require.NoError(t, err)
	ret, _, err := ClaimHookPrecompile.Run(f.env, randoAddr, ContractAddress, input, testGas, false)
	require.NoError(t, err)
	vals, err := ClaimABI.UnpackOutput("isAllowlisted", ret)
	require.NoError(t, err)
	return vals[0].(bool)
}

// claim runs a beforeMint dispatch the way a token core would deliver it:
// value already credited to the hook, message value set on the frame.
func (f *claimFixture) claim(t *testing.T, to common.Address, quantity int64, paid uint64) ([]byte, error) {
	t.Helper()
	input, err := hooks.PackBeforeMint(to, common.Big0, big.NewInt(quantity), nil)
	require.NoError(t, err)
	value := uint256.NewInt(paid)
	if !value.IsZero() {
		f.state.AddBalance(ContractAddress, value, tracing.BalanceChangeTransfer)
	}
	f.env.SetMsgValue(value)
	ret, _, err := ClaimHookPrecompile.Run(f.env, tokenAddr, ContractAddress, input, testGas, false)
	f.env.SetMsgValue(new(uint256.Int))
	return ret, err
}

func TestDeclaredFlags(t *testing.T) {
	f := newClaimFixture(t)

	ret, _, err := ClaimHookPrecompile.Run(f.env, tokenAddr, ContractAddress, hooks.SigGetHooksImplemented[:], testGas, true)
	require.NoError(t, err)
	declared, err := hooks.UnpackHooksImplemented(ret)
	require.NoError(t, err)
	require.Equal(t, DeclaredFlags, declared)
	require.True(t, declared.Has(hooks.BeforeMint))
	require.False(t, declared.Has(hooks.BeforeTransfer))
}

func TestSetClaimCondition(t *testing.T) {
	f := newClaimFixture(t)

	require.ErrorIs(t, f.setCondition(t, randoAddr, 5, 100, treasuryAddr, false), ErrNotTokenAdmin)

	_, _, _, _, configured := f.condition(t)
	require.False(t, configured)

	require.NoError(t, f.setCondition(t, adminAddr, 5, 100, treasuryAddr, true))
	price, supply, recipient, gated, configured := f.condition(t)
	require.Equal(t, big.NewInt(5), price)
	require.Equal(t, big.NewInt(100), supply)
	require.Equal(t, treasuryAddr, recipient)
	require.True(t, gated)
	require.True(t, configured)

	logs := f.state.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, ClaimABI.Events["ClaimConditionSet"].ID, logs[0].Topics[0])
	require.Equal(t, common.BytesToHash(tokenAddr.Bytes()), logs[0].Topics[1])
	require.Equal(t, common.BytesToHash(treasuryAddr.Bytes()), logs[0].Topics[2])
}

func TestClaimWithoutCondition(t *testing.T) {
	f := newClaimFixture(t)

	_, err := f.claim(t, buyerAddr, 1, 0)
	require.ErrorIs(t, err, ErrNoClaimCondition)
}

func TestClaimPayment(t *testing.T) {
	f := newClaimFixture(t)
	require.NoError(t, f.setCondition(t, adminAddr, 5, 100, treasuryAddr, false))

	ret, err := f.claim(t, buyerAddr, 8, 40)
	require.NoError(t, err)
	authorized, err := hooks.UnpackBeforeMintReturn(ret)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(8), authorized)

	require.True(t, f.state.GetBalance(ContractAddress).IsZero())
	require.Equal(t, uint256.NewInt(40), f.state.GetBalance(treasuryAddr))

	_, supply, _, _, _ := f.condition(t)
	require.Equal(t, big.NewInt(92), supply)

	t.Run("underpayment", func(t *testing.T) {
		_, err := f.claim(t, buyerAddr, 8, 30)
		require.ErrorIs(t, err, ErrPaymentMismatch)
	})

	t.Run("overpayment", func(t *testing.T) {
		_, err := f.claim(t, buyerAddr, 8, 45)
		require.ErrorIs(t, err, ErrPaymentMismatch)
	})
}

func TestFreeClaim(t *testing.T) {
	f := newClaimFixture(t)
	require.NoError(t, f.setCondition(t, adminAddr, 0, 10, treasuryAddr, false))

	_, err := f.claim(t, buyerAddr, 10, 0)
	require.NoError(t, err)
	require.True(t, f.state.GetBalance(treasuryAddr).IsZero())

	_, supply, _, _, _ := f.condition(t)
	require.Zero(t, supply.Sign())
}

func TestClaimSupplyExhausted(t *testing.T) {
	f := newClaimFixture(t)
	require.NoError(t, f.setCondition(t, adminAddr, 0, 5, treasuryAddr, false))

	_, err := f.claim(t, buyerAddr, 6, 0)
	require.ErrorIs(t, err, ErrSupplyExhausted)

	_, supply, _, _, _ := f.condition(t)
	require.Equal(t, big.NewInt(5), supply)
}

func TestSetAllowlisted(t *testing.T) {
	f := newClaimFixture(t)

	require.ErrorIs(t, f.setAllowlisted(t, randoAddr, buyerAddr, true), ErrNotTokenAdmin)
	require.False(t, f.allowlisted(t, buyerAddr))

	require.NoError(t, f.setAllowlisted(t, adminAddr, buyerAddr, true))
	require.True(t, f.allowlisted(t, buyerAddr))

	logs := f.state.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, ClaimABI.Events["AllowlistUpdated"].ID, logs[0].Topics[0])
	require.Equal(t, common.BytesToHash(tokenAddr.Bytes()), logs[0].Topics[1])
	require.Equal(t, common.BytesToHash(buyerAddr.Bytes()), logs[0].Topics[2])

	require.NoError(t, f.setAllowlisted(t, adminAddr, buyerAddr, false))
	require.False(t, f.allowlisted(t, buyerAddr))
}

func TestClaimAllowlistGate(t *testing.T) {
	f := newClaimFixture(t)
	require.NoError(t, f.setCondition(t, adminAddr, 0, 10, treasuryAddr, true))

	_, err := f.claim(t, buyerAddr, 1, 0)
	require.ErrorIs(t, err, ErrNotAllowlisted)

	// Operator roles on the token do not satisfy the claim gate.
	allowlist.SetAllowListRole(f.state, tokenAddr, buyerAddr, allowlist.EnabledRole)
	_, err = f.claim(t, buyerAddr, 1, 0)
	require.ErrorIs(t, err, ErrNotAllowlisted)

	require.NoError(t, f.setAllowlisted(t, adminAddr, buyerAddr, true))
	_, err = f.claim(t, buyerAddr, 1, 0)
	require.NoError(t, err)

	require.NoError(t, f.setAllowlisted(t, adminAddr, buyerAddr, false))
	_, err = f.claim(t, buyerAddr, 1, 0)
	require.ErrorIs(t, err, ErrNotAllowlisted)
}

func TestClaimReadOnlyAndSelector(t *testing.T) {
	f := newClaimFixture(t)
	require.NoError(t, f.setCondition(t, adminAddr, 0, 10, treasuryAddr, false))

	input, err := hooks.PackBeforeMint(buyerAddr, common.Big0, big.NewInt(1), nil)
	require.NoError(t, err)
	_, _, err = ClaimHookPrecompile.Run(f.env, tokenAddr, ContractAddress, input, testGas, true)
	require.ErrorIs(t, err, contract.ErrWriteProtection)

	_, _, err = ClaimHookPrecompile.Run(f.env, tokenAddr, ContractAddress, []byte{0xde, 0xad, 0xbe, 0xef}, testGas, false)
	require.ErrorIs(t, err, ErrInvalidSelector)

	_, _, err = ClaimHookPrecompile.Run(f.env, tokenAddr, ContractAddress, []byte{0x01}, testGas, false)
	require.ErrorIs(t, err, ErrInvalidInput)
}

// TestClaimThroughTokenCore drives the full path: the fungible core has the
// claim hook installed, a buyer calls mint with payment attached, and the
// hook prices the claim and routes proceeds to the treasury.
func TestClaimThroughTokenCore(t *testing.T) {
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.RegisterContract(erc20.ContractAddress, erc20.ERC20Precompile)
	env.RegisterContract(ContractAddress, ClaimHookPrecompile)

	cfg := &erc20.Config{AllowListConfig: allowlist.AllowListConfig{AdminAddresses: []common.Address{adminAddr}}}
	require.NoError(t, erc20.Module.Configurator.Configure(nil, cfg, state, contract.NewMockBlockContext(big.NewInt(1), 0)))

	input, err := erc20.ERC20ABI.Pack("installHook", ContractAddress)
	require.NoError(t, err)
	_, _, err = env.CallAs(adminAddr, erc20.ContractAddress, input, testGas, nil)
	require.NoError(t, err)

	// Only the mint flag is declared, so transfers stay ungated.
	input, err = erc20.ERC20ABI.Pack("getActiveFlags")
	require.NoError(t, err)
	ret, _, err := env.CallAs(randoAddr, erc20.ContractAddress, input, testGas, nil)
	require.NoError(t, err)
	vals, err := erc20.ERC20ABI.UnpackOutput("getActiveFlags", ret)
	require.NoError(t, err)
	require.Equal(t, uint8(DeclaredFlags), vals[0].(uint8))

	input, err = ClaimABI.Pack("setClaimCondition", erc20.ContractAddress, big.NewInt(5), big.NewInt(100), treasuryAddr, false)
	require.NoError(t, err)
	_, _, err = env.CallAs(adminAddr, ContractAddress, input, testGas, nil)
	require.NoError(t, err)

	// The buyer pays 40 for 8 units.
	state.AddBalance(buyerAddr, uint256.NewInt(40), tracing.BalanceChangeTransfer)
	input, err = erc20.ERC20ABI.Pack("mint", buyerAddr, big.NewInt(8))
	require.NoError(t, err)
	_, _, err = env.CallAs(buyerAddr, erc20.ContractAddress, input, testGas, uint256.NewInt(40))
	require.NoError(t, err)

	require.Equal(t, uint256.NewInt(8), state.GetBalance(buyerAddr))
	require.Equal(t, uint256.NewInt(40), state.GetBalance(treasuryAddr))
	require.True(t, state.GetBalance(ContractAddress).IsZero())
	require.True(t, state.GetBalance(erc20.ContractAddress).IsZero())

	// Install, condition, claim, and transfer all left a log.
	logs := state.Logs()
	require.Len(t, logs, 4)
	require.Equal(t, ClaimABI.Events["TokensClaimed"].ID, logs[2].Topics[0])
	require.Equal(t, erc20.ERC20ABI.Events["Transfer"].ID, logs[3].Topics[0])
}

// TestClaimMismatchRevertsThroughCore asserts that a failed claim unwinds
// the entire mint, including the value transfers into the core and hook.
func TestClaimMismatchRevertsThroughCore(t *testing.T) {
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.RegisterContract(erc20.ContractAddress, erc20.ERC20Precompile)
	env.RegisterContract(ContractAddress, ClaimHookPrecompile)

	cfg := &erc20.Config{AllowListConfig: allowlist.AllowListConfig{AdminAddresses: []common.Address{adminAddr}}}
	require.NoError(t, erc20.Module.Configurator.Configure(nil, cfg, state, contract.NewMockBlockContext(big.NewInt(1), 0)))

	input, err := erc20.ERC20ABI.Pack("installHook", ContractAddress)
	require.NoError(t, err)
	_, _, err = env.CallAs(adminAddr, erc20.ContractAddress, input, testGas, nil)
	require.NoError(t, err)

	input, err = ClaimABI.Pack("setClaimCondition", erc20.ContractAddress, big.NewInt(5), big.NewInt(100), treasuryAddr, false)
	require.NoError(t, err)
	_, _, err = env.CallAs(adminAddr, ContractAddress, input, testGas, nil)
	require.NoError(t, err)

	state.AddBalance(buyerAddr, uint256.NewInt(30), tracing.BalanceChangeTransfer)
	input, err = erc20.ERC20ABI.Pack("mint", buyerAddr, big.NewInt(8))
	require.NoError(t, err)
	_, _, err = env.CallAs(buyerAddr, erc20.ContractAddress, input, testGas, uint256.NewInt(30))
	require.ErrorIs(t, err, ErrPaymentMismatch)

	require.Equal(t, uint256.NewInt(30), state.GetBalance(buyerAddr))
	require.True(t, state.GetBalance(treasuryAddr).IsZero())
	require.True(t, state.GetBalance(erc20.ContractAddress).IsZero())
	require.True(t, state.GetBalance(ContractAddress).IsZero())
}
