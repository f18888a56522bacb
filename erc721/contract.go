// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erc721 implements the non-fungible token core precompile
// (LP-1721). Token ids are sequential. Ownership and per-token approvals
// live in contract storage; mint authorization, transfer policy, metadata,
// and royalties are delegated to installed hooks.
package erc721

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

const erc721RawABI = `[
{"type":"function","name":"installHook","stateMutability":"nonpayable","inputs":[{"name":"hook","type":"address"}],"outputs":[]},
{"type":"function","name":"uninstallHook","stateMutability":"nonpayable","inputs":[{"name":"hook","type":"address"}],"outputs":[]},
{"type":"function","name":"getHookImplementation","stateMutability":"view","inputs":[{"name":"flag","type":"uint8"}],"outputs":[{"name":"implementation","type":"address"}]},
{"type":"function","name":"getAllHooks","stateMutability":"view","inputs":[],"outputs":[{"name":"beforeMint","type":"address"},{"name":"beforeTransfer","type":"address"},{"name":"beforeBurn","type":"address"},{"name":"beforeApprove","type":"address"},{"name":"tokenURI","type":"address"},{"name":"royaltyInfo","type":"address"}]},
{"type":"function","name":"getActiveFlags","stateMutability":"view","inputs":[],"outputs":[{"name":"flags","type":"uint8"}]},
{"type":"function","name":"getMaxFlag","stateMutability":"view","inputs":[],"outputs":[{"name":"flag","type":"uint8"}]},
{"type":"function","name":"isHookInstalled","stateMutability":"view","inputs":[{"name":"hook","type":"address"}],"outputs":[{"name":"installed","type":"bool"}]},
{"type":"function","name":"hookFunctionRead","stateMutability":"view","inputs":[{"name":"flag","type":"uint8"},{"name":"payload","type":"bytes"}],"outputs":[{"name":"ret","type":"bytes"}]},
{"type":"function","name":"hookFunctionWrite","stateMutability":"payable","inputs":[{"name":"flag","type":"uint8"},{"name":"value","type":"uint256"},{"name":"payload","type":"bytes"}],"outputs":[{"name":"ret","type":"bytes"}]},
{"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"quantity","type":"uint256"}],"outputs":[{"name":"minted","type":"uint256"},{"name":"firstTokenId","type":"uint256"}]},
{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
{"type":"function","name":"getApproved","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"approved","type":"address"}]},
{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"owner","type":"address"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"supply","type":"uint256"}]},
{"type":"function","name":"nextTokenId","stateMutability":"view","inputs":[],"outputs":[{"name":"tokenId","type":"uint256"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"name","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"symbol","type":"string"}]},
{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"uri","type":"string"}]},
{"type":"function","name":"royaltyInfo","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"},{"name":"salePrice","type":"uint256"}],"outputs":[{"name":"receiver","type":"address"},{"name":"royaltyAmount","type":"uint256"}]},
{"type":"function","name":"setAdmin","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setManager","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setEnabled","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"setNone","stateMutability":"nonpayable","inputs":[{"name":"addr","type":"address"}],"outputs":[]},
{"type":"function","name":"readAllowList","stateMutability":"view","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"role","type":"uint256"}]},
{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":false}]},
{"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"approved","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":false}]}
]`

// ERC721ABI is the parsed interface of the non-fungible token core.
var ERC721ABI = contract.ParseABI(erc721RawABI)

var (
	selectorInstallHook           = ERC721ABI.MethodID("installHook")
	selectorUninstallHook         = ERC721ABI.MethodID("uninstallHook")
	selectorGetHookImplementation = ERC721ABI.MethodID("getHookImplementation")
	selectorGetAllHooks           = ERC721ABI.MethodID("getAllHooks")
	selectorGetActiveFlags        = ERC721ABI.MethodID("getActiveFlags")
	selectorGetMaxFlag            = ERC721ABI.MethodID("getMaxFlag")
	selectorIsHookInstalled       = ERC721ABI.MethodID("isHookInstalled")
	selectorHookFunctionRead      = ERC721ABI.MethodID("hookFunctionRead")
	selectorHookFunctionWrite     = ERC721ABI.MethodID("hookFunctionWrite")

	selectorMint         = ERC721ABI.MethodID("mint")
	selectorTransferFrom = ERC721ABI.MethodID("transferFrom")
	selectorBurn         = ERC721ABI.MethodID("burn")
	selectorApprove      = ERC721ABI.MethodID("approve")
	selectorGetApproved  = ERC721ABI.MethodID("getApproved")
	selectorOwnerOf      = ERC721ABI.MethodID("ownerOf")
	selectorBalanceOf    = ERC721ABI.MethodID("balanceOf")
	selectorTotalSupply  = ERC721ABI.MethodID("totalSupply")
	selectorNextTokenID  = ERC721ABI.MethodID("nextTokenId")
	selectorName         = ERC721ABI.MethodID("name")
	selectorSymbol       = ERC721ABI.MethodID("symbol")
	selectorTokenURI     = ERC721ABI.MethodID("tokenURI")
	selectorRoyaltyInfo  = ERC721ABI.MethodID("royaltyInfo")

	selectorSetAdmin      = ERC721ABI.MethodID("setAdmin")
	selectorSetManager    = ERC721ABI.MethodID("setManager")
	selectorSetEnabled    = ERC721ABI.MethodID("setEnabled")
	selectorSetNone       = ERC721ABI.MethodID("setNone")
	selectorReadAllowList = ERC721ABI.MethodID("readAllowList")
)

const (
	InstallHookGasCost   uint64 = 75_000
	UninstallHookGasCost uint64 = 50_000
	HookViewGasCost      uint64 = 5_000
	HookDispatchGasCost  uint64 = 30_000

	MintGasCost         uint64 = 45_000
	MintPerTokenGasCost uint64 = 20_000
	TransferGasCost     uint64 = 40_000
	BurnGasCost         uint64 = 40_000
	ApproveGasCost      uint64 = 30_000
	TokenViewGasCost    uint64 = 3_000
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidSelector  = errors.New("invalid function selector")
	ErrNonexistentToken = errors.New("token does not exist")
	ErrNotOwner         = errors.New("caller is neither owner nor approved")
)

var (
	nextTokenIDSlot = common.BytesToHash(crypto.Keccak256([]byte("token.erc721.nextTokenId")))
	totalSupplySlot = common.BytesToHash(crypto.Keccak256([]byte("token.erc721.totalSupply")))
	nameSlot        = common.BytesToHash(crypto.Keccak256([]byte("token.erc721.name")))
	symbolSlot      = common.BytesToHash(crypto.Keccak256([]byte("token.erc721.symbol")))
)

func ownerKey(id *uint256.Int) common.Hash {
	word := id.Bytes32()
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc721.owner"), word[:]))
}

func approvalKey(id *uint256.Int) common.Hash {
	word := id.Bytes32()
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc721.approval"), word[:]))
}

func balanceKey(owner common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.erc721.balance"), owner.Bytes()))
}

// ERC721Precompile is the singleton contract instance.
var ERC721Precompile = &erc721Precompile{
	installer: hooks.Installer{
		Self: ContractAddress,
		Max:  hooks.Royalty,
		Auth: allowlist.Authorizer{ContractAddress: ContractAddress},
	},
}

type erc721Precompile struct {
	installer hooks.Installer
}

// Run dispatches a call to the core by function selector.
func (p *erc721Precompile) Run(
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
	case selectorTransferFrom:
		return p.transferFrom(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorBurn:
		return p.burn(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorApprove:
		return p.approve(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorGetApproved:
		return p.getApproved(stateDB, args, suppliedGas)
	case selectorOwnerOf:
		return p.ownerOf(stateDB, args, suppliedGas)
	case selectorBalanceOf:
		return p.balanceOf(stateDB, args, suppliedGas)
	case selectorTotalSupply:
		return p.totalSupply(stateDB, suppliedGas)
	case selectorNextTokenID:
		return p.nextTokenID(stateDB, suppliedGas)
	case selectorName:
		return p.name(stateDB, suppliedGas)
	case selectorSymbol:
		return p.symbol(stateDB, suppliedGas)
	case selectorTokenURI:
		return p.tokenURI(accessibleState, args, suppliedGas)
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

func (p *erc721Precompile) installHook(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < InstallHookGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - InstallHookGasCost

	vals, err := ERC721ABI.UnpackInput("installHook", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	remainingGas, err = p.installer.Install(env, caller, vals[0].(common.Address), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc721Precompile) uninstallHook(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < UninstallHookGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - UninstallHookGasCost

	vals, err := ERC721ABI.UnpackInput("uninstallHook", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	remainingGas, err = p.installer.Uninstall(env, caller, vals[0].(common.Address), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc721Precompile) getHookImplementation(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	vals, err := ERC721ABI.UnpackInput("getHookImplementation", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	impl, err := p.installer.ImplementationOf(stateDB, hooks.Flag(vals[0].(uint8)))
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC721ABI.PackOutput("getHookImplementation", impl)
	return ret, remainingGas, err
}

func (p *erc721Precompile) getAllHooks(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	all := p.installer.AllHooks(stateDB)
	ret, err := ERC721ABI.PackOutput("getAllHooks",
		all[hooks.BeforeMint],
		all[hooks.BeforeTransfer],
		all[hooks.BeforeBurn],
		all[hooks.BeforeApprove],
		all[hooks.TokenURI],
		all[hooks.Royalty],
	)
	return ret, remainingGas, err
}

func (p *erc721Precompile) getActiveFlags(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	ret, err := ERC721ABI.PackOutput("getActiveFlags", uint8(p.installer.ActiveFlags(stateDB)))
	return ret, remainingGas, err
}

func (p *erc721Precompile) getMaxFlag(suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	ret, err := ERC721ABI.PackOutput("getMaxFlag", uint8(p.installer.Max))
	return ret, remainingGas, err
}

func (p *erc721Precompile) isHookInstalled(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookViewGasCost

	vals, err := ERC721ABI.UnpackInput("isHookInstalled", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := ERC721ABI.PackOutput("isHookInstalled", p.installer.IsInstalled(stateDB, vals[0].(common.Address)))
	return ret, remainingGas, err
}

func (p *erc721Precompile) hookFunctionRead(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC721ABI.UnpackInput("hookFunctionRead", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	out, remainingGas, err := p.installer.Read(env, hooks.Flag(vals[0].(uint8)), vals[1].([]byte), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC721ABI.PackOutput("hookFunctionRead", out)
	return ret, remainingGas, err
}

func (p *erc721Precompile) hookFunctionWrite(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC721ABI.UnpackInput("hookFunctionWrite", args, false)
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
	ret, err := ERC721ABI.PackOutput("hookFunctionWrite", out)
	return ret, remainingGas, err
}

// Token operations.

func (p *erc721Precompile) mint(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < MintGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - MintGasCost

	vals, err := ERC721ABI.UnpackInput("mint", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	to := vals[0].(common.Address)
	quantity := vals[1].(*big.Int)

	stateDB := env.GetStateDB()
	startID := readWord(stateDB, nextTokenIDSlot)

	minted, remainingGas, err := p.installer.BeforeMint(env, to, startID.ToBig(), quantity, nil, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	if !minted.IsUint64() {
		return nil, remainingGas, ErrInvalidInput
	}
	count := minted.Uint64()
	if count > remainingGas/MintPerTokenGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas -= count * MintPerTokenGasCost

	id := new(uint256.Int).Set(startID)
	one := uint256.NewInt(1)
	for i := uint64(0); i < count; i++ {
		stateDB.SetState(ContractAddress, ownerKey(id), addressWord(to))
		if err := p.emitTransfer(env, common.Address{}, to, id.ToBig()); err != nil {
			return nil, remainingGas, err
		}
		id.Add(id, one)
	}
	writeWord(stateDB, nextTokenIDSlot, id)

	balance := readWord(stateDB, balanceKey(to))
	writeWord(stateDB, balanceKey(to), balance.Add(balance, minted))
	supply := readWord(stateDB, totalSupplySlot)
	writeWord(stateDB, totalSupplySlot, supply.Add(supply, minted))

	ret, err := ERC721ABI.PackOutput("mint", minted.ToBig(), startID.ToBig())
	return ret, remainingGas, err
}

func (p *erc721Precompile) transferFrom(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < TransferGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TransferGasCost

	vals, err := ERC721ABI.UnpackInput("transferFrom", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	from := vals[0].(common.Address)
	to := vals[1].(common.Address)
	tokenID := vals[2].(*big.Int)
	id, _ := uint256.FromBig(tokenID)

	stateDB := env.GetStateDB()
	owner := readAddress(stateDB, ownerKey(id))
	switch {
	case owner == (common.Address{}):
		return nil, remainingGas, ErrNonexistentToken
	case owner != from:
		return nil, remainingGas, ErrNotOwner
	case caller != owner && caller != readAddress(stateDB, approvalKey(id)):
		return nil, remainingGas, ErrNotOwner
	case to == (common.Address{}):
		return nil, remainingGas, ErrInvalidInput
	}

	remainingGas, err = p.installer.BeforeTransfer(env, from, to, tokenID, common.Big1, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB.SetState(ContractAddress, approvalKey(id), common.Hash{})
	stateDB.SetState(ContractAddress, ownerKey(id), addressWord(to))
	moveUnit(stateDB, from, to)

	if err := p.emitTransfer(env, from, to, tokenID); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc721Precompile) burn(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < BurnGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - BurnGasCost

	vals, err := ERC721ABI.UnpackInput("burn", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	tokenID := vals[0].(*big.Int)
	id, _ := uint256.FromBig(tokenID)

	stateDB := env.GetStateDB()
	owner := readAddress(stateDB, ownerKey(id))
	if owner == (common.Address{}) {
		return nil, remainingGas, ErrNonexistentToken
	}
	if caller != owner && caller != readAddress(stateDB, approvalKey(id)) {
		return nil, remainingGas, ErrNotOwner
	}

	remainingGas, err = p.installer.BeforeBurn(env, owner, tokenID, common.Big1, nil, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB.SetState(ContractAddress, ownerKey(id), common.Hash{})
	stateDB.SetState(ContractAddress, approvalKey(id), common.Hash{})
	one := uint256.NewInt(1)
	balance := readWord(stateDB, balanceKey(owner))
	writeWord(stateDB, balanceKey(owner), balance.Sub(balance, one))
	supply := readWord(stateDB, totalSupplySlot)
	writeWord(stateDB, totalSupplySlot, supply.Sub(supply, one))

	if err := p.emitTransfer(env, owner, common.Address{}, tokenID); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *erc721Precompile) approve(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < ApproveGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ApproveGasCost

	vals, err := ERC721ABI.UnpackInput("approve", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	to := vals[0].(common.Address)
	tokenID := vals[1].(*big.Int)
	id, _ := uint256.FromBig(tokenID)

	stateDB := env.GetStateDB()
	owner := readAddress(stateDB, ownerKey(id))
	if owner == (common.Address{}) {
		return nil, remainingGas, ErrNonexistentToken
	}
	if caller != owner {
		return nil, remainingGas, ErrNotOwner
	}

	remainingGas, err = p.installer.BeforeApprove(env, owner, to, tokenID, common.Big1, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}

	stateDB.SetState(ContractAddress, approvalKey(id), addressWord(to))

	if err := p.emitApproval(env, owner, to, tokenID); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

// Views.

func (p *erc721Precompile) getApproved(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC721ABI.UnpackInput("getApproved", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	id, _ := uint256.FromBig(vals[0].(*big.Int))
	if readAddress(stateDB, ownerKey(id)) == (common.Address{}) {
		return nil, remainingGas, ErrNonexistentToken
	}
	ret, err := ERC721ABI.PackOutput("getApproved", readAddress(stateDB, approvalKey(id)))
	return ret, remainingGas, err
}

func (p *erc721Precompile) ownerOf(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC721ABI.UnpackInput("ownerOf", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	id, _ := uint256.FromBig(vals[0].(*big.Int))
	owner := readAddress(stateDB, ownerKey(id))
	if owner == (common.Address{}) {
		return nil, remainingGas, ErrNonexistentToken
	}
	ret, err := ERC721ABI.PackOutput("ownerOf", owner)
	return ret, remainingGas, err
}

func (p *erc721Precompile) balanceOf(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	vals, err := ERC721ABI.UnpackInput("balanceOf", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := ERC721ABI.PackOutput("balanceOf", readWord(stateDB, balanceKey(vals[0].(common.Address))).ToBig())
	return ret, remainingGas, err
}

func (p *erc721Precompile) totalSupply(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC721ABI.PackOutput("totalSupply", readWord(stateDB, totalSupplySlot).ToBig())
	return ret, remainingGas, err
}

func (p *erc721Precompile) nextTokenID(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC721ABI.PackOutput("nextTokenId", readWord(stateDB, nextTokenIDSlot).ToBig())
	return ret, remainingGas, err
}

func (p *erc721Precompile) name(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC721ABI.PackOutput("name", loadShortString(stateDB, nameSlot))
	return ret, remainingGas, err
}

func (p *erc721Precompile) symbol(stateDB contract.StateDB, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < TokenViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - TokenViewGasCost

	ret, err := ERC721ABI.PackOutput("symbol", loadShortString(stateDB, symbolSlot))
	return ret, remainingGas, err
}

func (p *erc721Precompile) tokenURI(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC721ABI.UnpackInput("tokenURI", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	tokenID := vals[0].(*big.Int)
	id, _ := uint256.FromBig(tokenID)
	if readAddress(env.GetStateDB(), ownerKey(id)) == (common.Address{}) {
		return nil, remainingGas, ErrNonexistentToken
	}

	uri, remainingGas, err := p.installer.TokenURI(env, tokenID, remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC721ABI.PackOutput("tokenURI", uri)
	return ret, remainingGas, err
}

func (p *erc721Precompile) royaltyInfo(env contract.AccessibleState, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < HookDispatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - HookDispatchGasCost

	vals, err := ERC721ABI.UnpackInput("royaltyInfo", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	receiver, amount, remainingGas, err := p.installer.RoyaltyInfo(env, vals[0].(*big.Int), vals[1].(*big.Int), remainingGas)
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err := ERC721ABI.PackOutput("royaltyInfo", receiver, amount.ToBig())
	return ret, remainingGas, err
}

// Events.

func (p *erc721Precompile) emitTransfer(env contract.AccessibleState, from, to common.Address, tokenID *big.Int) error {
	topics, data, err := ERC721ABI.PackEvent("Transfer", from, to, tokenID)
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

func (p *erc721Precompile) emitApproval(env contract.AccessibleState, owner, approved common.Address, tokenID *big.Int) error {
	topics, data, err := ERC721ABI.PackEvent("Approval", owner, approved, tokenID)
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

func readAddress(state contract.StateReader, slot common.Hash) common.Address {
	word := state.GetState(ContractAddress, slot)
	return common.BytesToAddress(word[12:])
}

func addressWord(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func moveUnit(state contract.StateDB, from, to common.Address) {
	one := uint256.NewInt(1)
	balance := readWord(state, balanceKey(from))
	writeWord(state, balanceKey(from), balance.Sub(balance, one))
	balance = readWord(state, balanceKey(to))
	writeWord(state, balanceKey(to), balance.Add(balance, one))
}

func loadShortString(state contract.StateReader, slot common.Hash) string {
	word := state.GetState(ContractAddress, slot)
	n := int(word[0])
	if n > 31 {
		n = 31
	}
	return string(word[1 : 1+n])
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
