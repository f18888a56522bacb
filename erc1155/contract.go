// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erc1155 implements the multi-token core precompile (LP-1155).
// Balances are tracked per account and token id in contract storage.
// Mint authorization, transfer policy, approval policy, metadata, and
// royalties are delegated to installed hooks.
package erc1155

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/hooks"
)

const erc1155RawABI = `[
{"type":"function","name":"installHook","stateMutability":"nonpayable","inputs":[{"name":"hook","type":"address"}],"outputs":[]},
{"type":"function","name":"uninstallHook","stateMutability":"nonpayable","inputs":[{"name":"hook","type":"address"}],"outputs":[]},
{"type":"function","name":"getHookImplementation","stateMutability":"view","inputs":[{"name":"flag","type":"uint8"}],"outputs":[{"name":"implementation","type":"address"}]},
{"type":"function","name":"getAllHooks","stateMutability":"view","inputs":[],"outputs":[{"name":"beforeMint","type":"address"},{"name":"beforeTransfer","type":"address"},{"name":"beforeBurn","type":"address"},{"name":"beforeApprove","type":"address"},{"name":"tokenURI","type":"address"},{"name":"royaltyInfo","type":"address"}]},
{"type":"function","name":"getActiveFlags","stateMutability":"view","inputs":[],"outputs":[{"name":"flags","type":"uint8"}]},
{"type":"function","name":"getMaxFlag","stateMutability":"view","inputs":[],"outputs":[{"name":"flag","type":"uint8"}]},
{"type":"function","name":"isHookInstalled","stateMutability":"view","inputs":[{"name":"hook","type":"address"}],"outputs":[{"name":"installed","type":"bool"}]},
{"type":"function","name":"hookFunctionRead","stateMutability":"view","inputs":[{"name":"flag","type":"uint8"},{"name":"payload","type":"bytes"}],"outputs":[{"name":"ret","type":"bytes"}]},
{"type":"function","name":"hookFunctionWrite","stateMutability":"payable","inputs":[{"name":"flag","type":"uint8"},{"name":"value","type":"uint256"},{"name":"payload","type":"bytes"}],"outputs":[{"name":"ret","type":"bytes"}]},
{"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"minted","type":"uint256"}]},
{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]},
{"type":"function","name":"isApprovedForAll","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"approved","type":"bool"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"balance","type":"uint256"}]},
{"type":"function","name":"balanceOfBatch","stateMutability":"view","inputs":[{"name":"accounts","type":"address[]"},{"name":"ids","type":"uint256[]"}],"outputs":[{"name":"balances","type":"uint256[]"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"supply","type":"uint256"}]},
{"type":"function","name":"uri","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"uri","type":"string"}]},
{"type":"function","name":"royaltyInfo","stateMutability":"view","inputs":[{"name":"id","type":"uint256"},{"name":"salePrice","type":"uint256"}],"outputs":[{"name":"receiver","type":"address"},{"name":"royaltyAmount","type":"uint256"}]},
{"type":"function","name":"setAdmin","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setManager","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setEnabled","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setNone","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"readAllowList","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"role","type":"uint256"}]},
{"type":"event","name":"TransferSingle","inputs":[{"name":"operator","type":"address","indexed":true},{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"id","type":"uint256","indexed":false},{"name":"value","type":"uint256","indexed":false}]},
{"type":"event","name":"ApprovalForAll","inputs":[{"name":"account","type":"address","indexed":true},{"name":"operator","type":"address","indexed":true},{"name":"approved","type":"bool","indexed":false}]}
]`

// ERC1155ABI is the parsed interface of the multi-token core.
var ERC1155ABI = contract.ParseABI(erc1155RawABI)

var (
	selectorInstallHook           = ERC1155ABI.MethodID("installHook")
	selectorUninstallHook         = ERC1155ABI.MethodID("uninstallHook")
	selectorGetHookImplementation = ERC1155ABI.MethodID("getHookImplementation")
	selectorGetAllHooks           = ERC1155ABI.MethodID("getAllHooks")
	selectorGetActiveFlags        = ERC1155ABI.MethodID("getActiveFlags")
	selectorGetMaxFlag            = ERC1155ABI.MethodID("getMaxFlag")
	selectorIsHookInstalled       = ERC1155ABI.MethodID("isHookInstalled")
	selectorHookFunctionRead      = ERC1155ABI.MethodID("hookFunctionRead")
	selectorHookFunctionWrite     = ERC1155ABI.MethodID("hookFunctionWrite")

	selectorMint              = ERC1155ABI.MethodID("mint")
	selectorSafeTransferFrom  = ERC1155ABI.MethodID("safeTransferFrom")
	selectorBurn              = ERC1155ABI.MethodID("burn")
	selectorSetApprovalForAll = ERC1155ABI.MethodID("setApprovalForAll")
	selectorIsApprovedForAll  = ERC1155ABI.MethodID("isApprovedForAll")
	selectorBalanceOf         = ERC1155ABI.MethodID("balanceOf")
	selectorBalanceOfBatch    = ERC1155ABI.MethodID("balanceOfBatch")
	selectorTotalSupply       = ERC1155ABI.MethodID("totalSupply")
	selectorURI               = ERC1155ABI.MethodID("uri")
	selectorRoyaltyInfo       = ERC1155ABI.MethodID("royaltyInfo")

	selectorSetAdmin      = ERC1155ABI.MethodID("setAdmin")
	selectorSetManager    = ERC1155ABI.MethodID("setManager")
	selectorSetEnabled    = ERC1155ABI.MethodID("setEnabled")
	selectorSetNone       = ERC1155ABI.MethodID("setNone")
	selectorReadAllowList = ERC1155ABI.MethodID("readAllowList")
)

const (
	InstallHookGasCost   uint64 = 75_000
	UninstallHookGasCost uint64 = 50_000
	HookViewGasCost      uint64 = 5_000
	HookDispatchGasCost  uint64 = 30_000

	MintGasCost      uint64 = 45_000
	TransferGasCost  uint64 = 40_000
	BurnGasCost      uint64 = 40_000
	ApprovalGasCost  uint64 = 30_000
	TokenViewGasCost uint64 = 3_000
	BatchItemGasCost uint64 = 500
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidSelector = errors.New("invalid function selector")
	ErrNotAuthorized   = errors.New("caller is neither holder nor approved operator")
)

func balanceKey(account common.Address, id *uint256.Int) common.Hash {
	word := id.Bytes32()
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc1155.balance"), account.Bytes(), word[:]))
}

func operatorKey(account, operator common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc1155.operator"), account.Bytes(), operator.Bytes()))
}

func supplyKey(id *uint256.Int) common.Hash {
	word := id.Bytes32()
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc1155.supply"), word[:]))
}

// ERC1155Precompile is the singleton contract instance.
var ERC1155Precompile = &erc1155Precompile{
	installer: hooks.Installer{
		Self: ContractAddress,
		Max:  hooks.Royalty,
		Auth: allowlist.Authorizer{ContractAddress: ContractAddress},
	},
}

type erc1155Precompile struct {
	installer hooks.Installer
}

// Run dispatches a call to the core by function selector.
func (p *erc1155Precompile) Run(
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
	case selectorSafeTransferFrom:
		return p.safeTransferFrom(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorBurn:
		return p.burn(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorSetApprovalForAll:
		return p.setApprovalForAll(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorIsApprovedForAll:
		return p.isApprovedForAll(stateDB, args, suppliedGas)
	case selectorBalanceOf:
		return p.balanceOf(stateDB, args, suppliedGas)
	case selectorBalanceOfBatch:
		return p.balanceOfBatch(stateDB, args, suppliedGas)
	case selectorTotalSupply:
		return p.totalSupply(stateDB, args, suppliedGas)
	case selectorURI:
		return p.uri(accessibleState, args, suppliedGas)
	case selectorRoyaltyInfo:
		return p.royaltyInfo(accessibleState, args, suppliedGas)

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

func (p *erc1155Precompile) installHook(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < InstallHookGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - InstallHookGasCost

	vals, err := ERC1155ABI.UnpackInput("installHook", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	remainingGas, err = p.installer.Install(env, caller, vals[0].(common.Address), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc1155Precompile) uninstallHook(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < UninstallHookGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - UninstallHookGasCost

	vals, err := ERC1155ABI.UnpackInput("uninstallHook", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	remainingGas, err = p.installer.Uninstall(env, caller, vals[0].(common.Address), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc1155Precompile) getHookImplementation(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	vals, err := ERC1155ABI.UnpackInput("getHookImplementation", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	impl, err := p.installer.ImplementationOf(stateDB, hooks.Flag(vals[0].(uint8)))
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC1155ABI.PackOutput("getHookImplementation", impl)
	return ret, remainingGas, err
}

func (p *erc1155Precompile) getAllHooks(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	all := p.installer.AllHooks(stateDB)
	ret, err := ERC1155ABI.PackOutput("getAllHooks",
		all[hooks.BeforeMint],
		all[hooks.BeforeTransfer],
		all[hooks.BeforeBurn],
		all[hooks.BeforeApprove],
		all[hooks.TokenURI],
		all[hooks.Royalty],
	)
	return ret, remainingGas, err
}

func (p *erc1155Precompile) getActiveFlags(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	ret, err := ERC1155ABI.PackOutput("getActiveFlags", uint8(p.installer.ActiveFlags(stateDB)))
	return ret, remainingGas, err
}

func (p *erc1155Precompile) getMaxFlag(suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	ret, err := ERC1155ABI.PackOutput("getMaxFlag", uint8(p.installer.Max))
	return ret, remainingGas, err
}

func (p *erc1155Precompile) isHookInstalled(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	vals, err := ERC1155ABI.UnpackInput("isHookInstalled", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := ERC1155ABI.PackOutput("isHookInstalled", p.installer.IsInstalled(stateDB, vals[0].(common.Address)))
	return ret, remainingGas, err
}

func (p *erc1155Precompile) hookFunctionRead(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC1155ABI.UnpackInput("hookFunctionRead", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	out, remainingGas, err := p.installer.Read(env, hooks.Flag(vals[0].(uint8)), vals[1].([]byte), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC1155ABI.PackOutput("hookFunctionRead", out)
	return ret, remainingGas, err
}

func (p *erc1155Precompile) hookFunctionWrite(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC1155ABI.UnpackInput("hookFunctionWrite", args, false)
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
	ret, err := ERC1155ABI.PackOutput("hookFunctionWrite", out)
	return ret, remainingGas, err
}

// Token operations.

func (p *erc1155Precompile) mint(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < MintGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - MintGasCost

	vals, err := ERC1155ABI.UnpackInput("mint", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	to := vals[0].(common.Address)
	idBig := vals[1].(*big.Int)
	amount := vals[2].(*big.Int)
	data := vals[3].([]byte)
	id, _ := uint256.FromBig(idBig)

	minted, remainingGas, err := p.installer.BeforeMint(env, to, idBig, amount, data, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB := env.GetStateDB()
	balance := readWord(stateDB, balanceKey(to, id))
	writeWord(stateDB, balanceKey(to, id), balance.Add(balance, minted))
	supply := readWord(stateDB, supplyKey(id))
	writeWord(stateDB, supplyKey(id), supply.Add(supply, minted))

	if err := p.emitTransferSingle(env, caller, common.Address{}, to, idBig, minted.ToBig()); err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC1155ABI.PackOutput("mint", minted.ToBig())
	return ret, remainingGas, err
}

func (p *erc1155Precompile) safeTransferFrom(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < TransferGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TransferGasCost

	vals, err := ERC1155ABI.UnpackInput("safeTransferFrom", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	from := vals[0].(common.Address)
	to := vals[1].(common.Address)
	idBig := vals[2].(*big.Int)
	amount := vals[3].(*big.Int)
	id, _ := uint256.FromBig(idBig)
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	if to == (common.Address{}) {
		return nil, remainingGas, ErrInvalidInput
	}

	stateDB := env.GetStateDB()
	if caller != from && !readBool(stateDB, operatorKey(from, caller)) {
		return nil, remainingGas, ErrNotAuthorized
	}

	remainingGas, err = p.installer.BeforeTransfer(env, from, to, idBig, amount, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	balance := readWord(stateDB, balanceKey(from, id))
	if balance.Lt(value) {
		return nil, remainingGas, contract.ErrInsufficientBalance
	}
	writeWord(stateDB, balanceKey(from, id), balance.Sub(balance, value))
	balance = readWord(stateDB, balanceKey(to, id))
	writeWord(stateDB, balanceKey(to, id), balance.Add(balance, value))

	if err := p.emitTransferSingle(env, caller, from, to, idBig, amount); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc1155Precompile) burn(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < BurnGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - BurnGasCost

	vals, err := ERC1155ABI.UnpackInput("burn", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	from := vals[0].(common.Address)
	idBig := vals[1].(*big.Int)
	amount := vals[2].(*big.Int)
	id, _ := uint256.FromBig(idBig)
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	stateDB := env.GetStateDB()
	if caller != from && !readBool(stateDB, operatorKey(from, caller)) {
		return nil, remainingGas, ErrNotAuthorized
	}

	remainingGas, err = p.installer.BeforeBurn(env, from, idBig, amount, nil, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	balance := readWord(stateDB, balanceKey(from, id))
	if balance.Lt(value) {
		return nil, remainingGas, contract.ErrInsufficientBalance
	}
	writeWord(stateDB, balanceKey(from, id), balance.Sub(balance, value))
	supply := readWord(stateDB, supplyKey(id))
	writeWord(stateDB, supplyKey(id), supply.Sub(supply, value))

	if err := p.emitTransferSingle(env, caller, from, common.Address{}, idBig, amount); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc1155Precompile) setApprovalForAll(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < ApprovalGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ApprovalGasCost

	vals, err := ERC1155ABI.UnpackInput("setApprovalForAll", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	operator := vals[0].(common.Address)
	approved := vals[1].(bool)

	grant := common.Big0
	if approved {
		grant = common.Big1
	}
	remainingGas, err = p.installer.BeforeApprove(env, caller, operator, common.Big0, grant, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB := env.GetStateDB()
	if approved {
		stateDB.SetState(ContractAddress, operatorKey(caller, operator), common.BigToHash(common.Big1))
	} else {
		stateDB.SetState(ContractAddress, operatorKey(caller, operator), common.Hash{})
	}

	if err := p.emitApprovalForAll(env, caller, operator, approved); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

// Views.

func (p *erc1155Precompile) isApprovedForAll(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC1155ABI.UnpackInput("isApprovedForAll", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	approved := readBool(stateDB, operatorKey(vals[0].(common.Address), vals[1].(common.Address)))
	ret, err := ERC1155ABI.PackOutput("isApprovedForAll", approved)
	return ret, remainingGas, err
}

func (p *erc1155Precompile) balanceOf(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC1155ABI.UnpackInput("balanceOf", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	id, _ := uint256.FromBig(vals[1].(*big.Int))
	ret, err := ERC1155ABI.PackOutput("balanceOf", readWord(stateDB, balanceKey(vals[0].(common.Address), id)).ToBig())
	return ret, remainingGas, err
}

func (p *erc1155Precompile) balanceOfBatch(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	vals, err := ERC1155ABI.UnpackInput("balanceOfBatch", args, false)
	if err != nil {
		if suppliedGas < TokenViewGasCost {
			return nil, 0, contract.ErrOutOfGas
		}
		return nil, suppliedGas - TokenViewGasCost, ErrInvalidInput
	}
	accounts := vals[0].([]common.Address)
	ids := vals[1].([]*big.Int)
	if len(accounts) != len(ids) {
		if suppliedGas < TokenViewGasCost {
			return nil, 0, contract.ErrOutOfGas
		}
		return nil, suppliedGas - TokenViewGasCost, ErrInvalidInput
	}

	cost := TokenViewGasCost + uint64(len(accounts))*BatchItemGasCost
	if suppliedGas < cost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - cost

	balances := make([]*big.Int, len(accounts))
	for i, account := range accounts {
		id, _ := uint256.FromBig(ids[i])
		balances[i] = readWord(stateDB, balanceKey(account, id)).ToBig()
	}
	ret, err := ERC1155ABI.PackOutput("balanceOfBatch", balances)
	return ret, remainingGas, err
}

func (p *erc1155Precompile) totalSupply(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC1155ABI.UnpackInput("totalSupply", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	id, _ := uint256.FromBig(vals[0].(*big.Int))
	ret, err := ERC1155ABI.PackOutput("totalSupply", readWord(stateDB, supplyKey(id)).ToBig())
	return ret, remainingGas, err
}

func (p *erc1155Precompile) uri(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC1155ABI.UnpackInput("uri", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	uri, remainingGas, err := p.installer.TokenURI(env, vals[0].(*big.Int), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC1155ABI.PackOutput("uri", uri)
	return ret, remainingGas, err
}

func (p *erc1155Precompile) royaltyInfo(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC1155ABI.UnpackInput("royaltyInfo", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	receiver, amount, remainingGas, err := p.installer.RoyaltyInfo(env, vals[0].(*big.Int), vals[1].(*big.Int), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC1155ABI.PackOutput("royaltyInfo", receiver, amount.ToBig())
	return ret, remainingGas, err
}

// Events.

func (p *erc1155Precompile) emitTransferSingle(env contract.AccessibleState, operator, from, to common.Address, id, value *big.Int) error {
	topics, data, err := ERC1155ABI.PackEvent("TransferSingle", operator, from, to, id, value)
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

func (p *erc1155Precompile) emitApprovalForAll(env contract.AccessibleState, account, operator common.Address, approved bool) error {
	topics, data, err := ERC1155ABI.PackEvent("ApprovalForAll", account, operator, approved)
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

func readWord(state contract.StateReader, slot common.Hash) *uint256.Int {
	word := state.GetState(ContractAddress, slot)
	return new(uint256.Int).SetBytes(word[:])
}

func writeWord(state contract.StateDB, slot common.Hash, v *uint256.Int) {
	state.SetState(ContractAddress, slot, common.Hash(v.Bytes32()))
}

func readBool(state contract.StateReader, slot common.Hash) bool {
	word := state.GetState(ContractAddress, slot)
	return word != (common.Hash{})
}
