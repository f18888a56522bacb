// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erc20 implements the fungible token core precompile (LP-1020).
// Balances live in the native account trie; mint authorization, transfer
// policy, and approval policy are delegated to installed hooks.
package erc20

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/hooks"
)

const erc20RawABI = `[
{"type":"function","name":"installHook","stateMutability":"nonpayable","inputs":[{"name":"hook","type":"address"}],"outputs":[]},
{"type":"function","name":"uninstallHook","stateMutability":"nonpayable","inputs":[{"name":"hook","type":"address"}],"outputs":[]},
{"type":"function","name":"getHookImplementation","stateMutability":"view","inputs":[{"name":"flag","type":"uint8"}],"outputs":[{"name":"implementation","type":"address"}]},
{"type":"function","name":"getAllHooks","stateMutability":"view","inputs":[],"outputs":[{"name":"beforeMint","type":"address"},{"name":"beforeTransfer","type":"address"},{"name":"beforeBurn","type":"address"},{"name":"beforeApprove","type":"address"}]},
{"type":"function","name":"getActiveFlags","stateMutability":"view","inputs":[],"outputs":[{"name":"flags","type":"uint8"}]},
{"type":"function","name":"getMaxFlag","stateMutability":"view","inputs":[],"outputs":[{"name":"flag","type":"uint8"}]},
{"type":"function","name":"isHookInstalled","stateMutability":"view","inputs":[{"name":"hook","type":"address"}],"outputs":[{"name":"installed","type":"bool"}]},
{"type":"function","name":"hookFunctionRead","stateMutability":"view","inputs":[{"name":"flag","type":"uint8"},{"name":"payload","type":"bytes"}],"outputs":[{"name":"ret","type":"bytes"}]},
{"type":"function","name":"hookFunctionWrite","stateMutability":"payable","inputs":[{"name":"flag","type":"uint8"},{"name":"value","type":"uint256"},{"name":"payload","type":"bytes"}],"outputs":[{"name":"ret","type":"bytes"}]},
{"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"minted","type":"uint256"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"remaining","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"supply","type":"uint256"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"name","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"symbol","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"decimals","type":"uint8"}]},
{"type":"function","name":"setAdmin","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setManager","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setEnabled","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setNone","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"readAllowList","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"role","type":"uint256"}]},
{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
{"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

// ERC20ABI is the parsed interface of the fungible token core.
var ERC20ABI = contract.ParseABI(erc20RawABI)

// Selectors of the hook installer surface.
var (
	selectorInstallHook           = ERC20ABI.MethodID("installHook")
	selectorUninstallHook         = ERC20ABI.MethodID("uninstallHook")
	selectorGetHookImplementation = ERC20ABI.MethodID("getHookImplementation")
	selectorGetAllHooks           = ERC20ABI.MethodID("getAllHooks")
	selectorGetActiveFlags        = ERC20ABI.MethodID("getActiveFlags")
	selectorGetMaxFlag            = ERC20ABI.MethodID("getMaxFlag")
	selectorIsHookInstalled       = ERC20ABI.MethodID("isHookInstalled")
	selectorHookFunctionRead      = ERC20ABI.MethodID("hookFunctionRead")
	selectorHookFunctionWrite     = ERC20ABI.MethodID("hookFunctionWrite")

	selectorMint        = ERC20ABI.MethodID("mint")
	selectorTransfer    = ERC20ABI.MethodID("transfer")
	selectorBurn        = ERC20ABI.MethodID("burn")
	selectorApprove     = ERC20ABI.MethodID("approve")
	selectorAllowance   = ERC20ABI.MethodID("allowance")
	selectorBalanceOf   = ERC20ABI.MethodID("balanceOf")
	selectorTotalSupply = ERC20ABI.MethodID("totalSupply")
	selectorName        = ERC20ABI.MethodID("name")
	selectorSymbol      = ERC20ABI.MethodID("symbol")
	selectorDecimals    = ERC20ABI.MethodID("decimals")

	selectorSetAdmin      = ERC20ABI.MethodID("setAdmin")
	selectorSetManager    = ERC20ABI.MethodID("setManager")
	selectorSetEnabled    = ERC20ABI.MethodID("setEnabled")
	selectorSetNone       = ERC20ABI.MethodID("setNone")
	selectorReadAllowList = ERC20ABI.MethodID("readAllowList")
)

// Gas costs. Hook dispatch costs are the base charge of the gateway; the
// remaining gas is forwarded to the hook.
const (
	InstallHookGasCost   uint64 = 75_000
	UninstallHookGasCost uint64 = 50_000
	HookViewGasCost      uint64 = 5_000
	HookDispatchGasCost  uint64 = 30_000

	MintGasCost      uint64 = 45_000
	TransferGasCost  uint64 = 35_000
	BurnGasCost      uint64 = 35_000
	ApproveGasCost   uint64 = 30_000
	TokenViewGasCost uint64 = 3_000
)

// DefaultDecimals applies when the activation config leaves decimals unset.
const DefaultDecimals uint8 = 18

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidSelector = errors.New("invalid function selector")
)

// Storage slots under the core's account.
var (
	totalSupplySlot = common.BytesToHash(crypto.Keccak256([]byte("token.erc20.totalSupply")))
	nameSlot        = common.BytesToHash(crypto.Keccak256([]byte("token.erc20.name")))
	symbolSlot      = common.BytesToHash(crypto.Keccak256([]byte("token.erc20.symbol")))
	decimalsSlot    = common.BytesToHash(crypto.Keccak256([]byte("token.erc20.decimals")))
)

func allowanceKey(owner, spender common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc20.allowance"), owner.Bytes(), spender.Bytes()))
}

// ERC20Precompile is the singleton contract instance.
var ERC20Precompile = &erc20Precompile{
	installer: hooks.Installer{
		Self: ContractAddress,
		Max:  hooks.BeforeApprove,
		Auth: allowlist.Authorizer{ContractAddress: ContractAddress},
	},
}

type erc20Precompile struct {
	installer hooks.Installer
}

// Run dispatches a call to the core by function selector.
func (p *erc20Precompile) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if len(input) < 4 {
		return nil, suppliedGas, ErrInvalidInput
	}
	var selector [4]byte
	copy(selector[:], input[:4])
	args := input[4:]
	stateDB := accessibleState.GetStateDB()

	switch selector {
	case selectorInstallHook:
		return p.installHook(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorUninstallHook:
		return p.uninstallHook(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorGetHookImplementation:
		return p.getHookImplementation(stateDB, args, suppliedGas)
	case selectorGetAllHooks:
		return p.getAllHooks(stateDB, suppliedGas)
	case selectorGetActiveFlags:
		return p.getActiveFlags(stateDB, suppliedGas)
	case selectorGetMaxFlag:
		return p.getMaxFlag(suppliedGas)
	case selectorIsHookInstalled:
		return p.isHookInstalled(stateDB, args, suppliedGas)
	case selectorHookFunctionRead:
		return p.hookFunctionRead(accessibleState, args, suppliedGas)
	case selectorHookFunctionWrite:
		return p.hookFunctionWrite(accessibleState, caller, args, suppliedGas, readOnly)

	case selectorMint:
		return p.mint(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorTransfer:
		return p.transfer(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorBurn:
		return p.burn(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorApprove:
		return p.approve(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorAllowance:
		return p.allowance(stateDB, args, suppliedGas)
	case selectorBalanceOf:
		return p.balanceOf(stateDB, args, suppliedGas)
	case selectorTotalSupply:
		return p.totalSupply(stateDB, suppliedGas)
	case selectorName:
		return p.name(stateDB, suppliedGas)
	case selectorSymbol:
		return p.symbol(stateDB, suppliedGas)
	case selectorDecimals:
		return p.decimals(stateDB, suppliedGas)

	case selectorSetAdmin:
		return allowlist.RunSetRole(stateDB, ContractAddress, caller, args, suppliedGas, readOnly, allowlist.AdminRole)
	case selectorSetManager:
		return allowlist.RunSetRole(stateDB, ContractAddress, caller, args, suppliedGas, readOnly, allowlist.ManagerRole)
	case selectorSetEnabled:
		return allowlist.RunSetRole(stateDB, ContractAddress, caller, args, suppliedGas, readOnly, allowlist.EnabledRole)
	case selectorSetNone:
		return allowlist.RunSetRole(stateDB, ContractAddress, caller, args, suppliedGas, readOnly, allowlist.NoRole)
	case selectorReadAllowList:
		return allowlist.RunReadAllowList(stateDB, ContractAddress, args, suppliedGas)

	default:
		return nil, suppliedGas, ErrInvalidSelector
	}
}

// Hook installer surface.

func (p *erc20Precompile) installHook(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < InstallHookGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - InstallHookGasCost

	vals, err := ERC20ABI.UnpackInput("installHook", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	hook := vals[0].(common.Address)

	remainingGas, err = p.installer.Install(env, caller, hook, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc20Precompile) uninstallHook(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < UninstallHookGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - UninstallHookGasCost

	vals, err := ERC20ABI.UnpackInput("uninstallHook", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	hook := vals[0].(common.Address)

	remainingGas, err = p.installer.Uninstall(env, caller, hook, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc20Precompile) getHookImplementation(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	vals, err := ERC20ABI.UnpackInput("getHookImplementation", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	impl, err := p.installer.ImplementationOf(stateDB, hooks.Flag(vals[0].(uint8)))
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC20ABI.PackOutput("getHookImplementation", impl)
	return ret, remainingGas, err
}

func (p *erc20Precompile) getAllHooks(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	all := p.installer.AllHooks(stateDB)
	ret, err := ERC20ABI.PackOutput("getAllHooks",
		all[hooks.BeforeMint],
		all[hooks.BeforeTransfer],
		all[hooks.BeforeBurn],
		all[hooks.BeforeApprove],
	)
	return ret, remainingGas, err
}

func (p *erc20Precompile) getActiveFlags(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	ret, err := ERC20ABI.PackOutput("getActiveFlags", uint8(p.installer.ActiveFlags(stateDB)))
	return ret, remainingGas, err
}

func (p *erc20Precompile) getMaxFlag(suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	ret, err := ERC20ABI.PackOutput("getMaxFlag", uint8(p.installer.Max))
	return ret, remainingGas, err
}

func (p *erc20Precompile) isHookInstalled(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	vals, err := ERC20ABI.UnpackInput("isHookInstalled", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := ERC20ABI.PackOutput("isHookInstalled", p.installer.IsInstalled(stateDB, vals[0].(common.Address)))
	return ret, remainingGas, err
}

func (p *erc20Precompile) hookFunctionRead(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC20ABI.UnpackInput("hookFunctionRead", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	out, remainingGas, err := p.installer.Read(env, hooks.Flag(vals[0].(uint8)), vals[1].([]byte), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC20ABI.PackOutput("hookFunctionRead", out)
	return ret, remainingGas, err
}

func (p *erc20Precompile) hookFunctionWrite(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC20ABI.UnpackInput("hookFunctionWrite", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	declaredValue, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	out, remainingGas, err := p.installer.Write(env, caller, hooks.Flag(vals[0].(uint8)), declaredValue, vals[2].([]byte), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC20ABI.PackOutput("hookFunctionWrite", out)
	return ret, remainingGas, err
}

// Token operations.

func (p *erc20Precompile) mint(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < MintGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - MintGasCost

	vals, err := ERC20ABI.UnpackInput("mint", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	to := vals[0].(common.Address)
	amount := vals[1].(*big.Int)

	quantity, remainingGas, err := p.installer.BeforeMint(env, to, common.Big0, amount, nil, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB := env.GetStateDB()
	stateDB.AddBalance(to, quantity, tracing.BalanceChangeTransfer)
	supply := readTotalSupply(stateDB)
	supply.Add(supply, quantity)
	writeTotalSupply(stateDB, supply)

	if err := p.emitTransfer(env, common.Address{}, to, quantity.ToBig()); err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC20ABI.PackOutput("mint", quantity.ToBig())
	return ret, remainingGas, err
}

func (p *erc20Precompile) transfer(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < TransferGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TransferGasCost

	vals, err := ERC20ABI.UnpackInput("transfer", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	to := vals[0].(common.Address)
	amount := vals[1].(*big.Int)
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	remainingGas, err = p.installer.BeforeTransfer(env, caller, to, common.Big0, amount, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB := env.GetStateDB()
	if stateDB.GetBalance(caller).Lt(value) {
		return nil, remainingGas, contract.ErrInsufficientBalance
	}
	stateDB.SubBalance(caller, value, tracing.BalanceChangeTransfer)
	stateDB.AddBalance(to, value, tracing.BalanceChangeTransfer)

	if err := p.emitTransfer(env, caller, to, amount); err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC20ABI.PackOutput("transfer", true)
	return ret, remainingGas, err
}

func (p *erc20Precompile) burn(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < BurnGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - BurnGasCost

	vals, err := ERC20ABI.UnpackInput("burn", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	amount := vals[0].(*big.Int)
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	remainingGas, err = p.installer.BeforeBurn(env, caller, common.Big0, amount, nil, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB := env.GetStateDB()
	if stateDB.GetBalance(caller).Lt(value) {
		return nil, remainingGas, contract.ErrInsufficientBalance
	}
	stateDB.SubBalance(caller, value, tracing.BalanceChangeTransfer)

	// Supply tracks net mints through this core; burning funds that were
	// never minted here clamps at zero.
	supply := readTotalSupply(stateDB)
	if supply.Lt(value) {
		supply.Clear()
	} else {
		supply.Sub(supply, value)
	}
	writeTotalSupply(stateDB, supply)

	if err := p.emitTransfer(env, caller, common.Address{}, amount); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc20Precompile) approve(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < ApproveGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ApproveGasCost

	vals, err := ERC20ABI.UnpackInput("approve", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	spender := vals[0].(common.Address)
	amount := vals[1].(*big.Int)

	remainingGas, err = p.installer.BeforeApprove(env, caller, spender, common.Big0, amount, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	env.GetStateDB().SetState(ContractAddress, allowanceKey(caller, spender), common.BigToHash(amount))

	if err := p.emitApproval(env, caller, spender, amount); err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC20ABI.PackOutput("approve", true)
	return ret, remainingGas, err
}

func (p *erc20Precompile) allowance(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC20ABI.UnpackInput("allowance", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	word := stateDB.GetState(ContractAddress, allowanceKey(vals[0].(common.Address), vals[1].(common.Address)))
	ret, err := ERC20ABI.PackOutput("allowance", new(big.Int).SetBytes(word[:]))
	return ret, remainingGas, err
}

func (p *erc20Precompile) balanceOf(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC20ABI.UnpackInput("balanceOf", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := ERC20ABI.PackOutput("balanceOf", stateDB.GetBalance(vals[0].(common.Address)).ToBig())
	return ret, remainingGas, err
}

func (p *erc20Precompile) totalSupply(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC20ABI.PackOutput("totalSupply", readTotalSupply(stateDB).ToBig())
	return ret, remainingGas, err
}

func (p *erc20Precompile) name(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC20ABI.PackOutput("name", loadShortString(stateDB, nameSlot))
	return ret, remainingGas, err
}

func (p *erc20Precompile) symbol(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC20ABI.PackOutput("symbol", loadShortString(stateDB, symbolSlot))
	return ret, remainingGas, err
}

func (p *erc20Precompile) decimals(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC20ABI.PackOutput("decimals", loadDecimals(stateDB))
	return ret, remainingGas, err
}

// Events.

func (p *erc20Precompile) emitTransfer(env contract.AccessibleState, from, to common.Address, value *big.Int) error {
	topics, data, err := ERC20ABI.PackEvent("Transfer", from, to, value)
	if err != nil {
		return err
	}
	env.GetStateDB().AddLog(&ethtypes.Log{
		Address:     ContractAddress,
		Topics:      topics,
		Data:        data,
		BlockNumber: env.GetBlockContext().Number().Uint64(),
	})
	return nil
}

func (p *erc20Precompile) emitApproval(env contract.AccessibleState, owner, spender common.Address, value *big.Int) error {
	topics, data, err := ERC20ABI.PackEvent("Approval", owner, spender, value)
	if err != nil {
		return err
	}
	env.GetStateDB().AddLog(&ethtypes.Log{
		Address:     ContractAddress,
		Topics:      topics,
		Data:        data,
		BlockNumber: env.GetBlockContext().Number().Uint64(),
	})
	return nil
}

// State helpers.

func readTotalSupply(state contract.StateReader) *uint256.Int {
	word := state.GetState(ContractAddress, totalSupplySlot)
	return new(uint256.Int).SetBytes(word[:])
}

func writeTotalSupply(state contract.StateDB, supply *uint256.Int) {
	state.SetState(ContractAddress, totalSupplySlot, common.Hash(supply.Bytes32()))
}

func storeShortString(state contract.StateDB, slot common.Hash, s string) {
	var word common.Hash
	if len(s) > 31 {
		s = s[:31]
	}
	word[0] = byte(len(s))
	copy(word[1:], s)
	state.SetState(ContractAddress, slot, word)
}

func loadShortString(state contract.StateReader, slot common.Hash) string {
	word := state.GetState(ContractAddress, slot)
	n := int(word[0])
	if n > 31 {
		n = 31
	}
	return string(word[1 : 1+n])
}

func storeDecimals(state contract.StateDB, d uint8) {
	var word common.Hash
	word[0] = 1
	word[31] = d
	state.SetState(ContractAddress, decimalsSlot, word)
}

func loadDecimals(state contract.StateReader) uint8 {
	word := state.GetState(ContractAddress, decimalsSlot)
	if word[0] == 0 {
		return DefaultDecimals
	}
	return word[31]
}
