// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package royalty implements the royalty hook precompile (LP-1330). Each
// consumer token carries a default royalty and optional per-token overrides,
// expressed in basis points of the sale price. The hook answers the
// royaltyInfo lifecycle call for every token core it is installed on.
package royalty

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/hooks"
)

const royaltyRawABI = `[
{"type":"function","name":"setDefaultRoyalty","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"recipient","type":"address"},{"name":"bps","type":"uint16"}],"outputs":[]},
{"type":"function","name":"setTokenRoyalty","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"id","type":"uint256"},{"name":"recipient","type":"address"},{"name":"bps","type":"uint16"}],"outputs":[]},
{"type":"function","name":"resetTokenRoyalty","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"id","type":"uint256"}],"outputs":[]},
{"type":"function","name":"getDefaultRoyalty","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"recipient","type":"address"},{"name":"bps","type":"uint16"}]},
{"type":"function","name":"getTokenRoyalty","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"recipient","type":"address"},{"name":"bps","type":"uint16"},{"name":"overridden","type":"bool"}]},
{"type":"event","name":"DefaultRoyaltySet","inputs":[{"name":"token","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"bps","type":"uint256","indexed":false}]},
{"type":"event","name":"TokenRoyaltySet","inputs":[{"name":"token","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"id","type":"uint256","indexed":false},{"name":"bps","type":"uint256","indexed":false}]},
{"type":"event","name":"TokenRoyaltyReset","inputs":[{"name":"token","type":"address","indexed":true},{"name":"id","type":"uint256","indexed":false}]}
]`

// RoyaltyABI is the parsed management interface of the royalty hook.
var RoyaltyABI = contract.ParseABI(royaltyRawABI)

var (
	selectorSetDefaultRoyalty = RoyaltyABI.MethodID("setDefaultRoyalty")
	selectorSetTokenRoyalty   = RoyaltyABI.MethodID("setTokenRoyalty")
	selectorResetTokenRoyalty = RoyaltyABI.MethodID("resetTokenRoyalty")
	selectorGetDefaultRoyalty = RoyaltyABI.MethodID("getDefaultRoyalty")
	selectorGetTokenRoyalty   = RoyaltyABI.MethodID("getTokenRoyalty")
)

const (
	DeclareGasCost     uint64 = 2_000
	RoyaltyInfoGasCost uint64 = 5_000
	SetRoyaltyGasCost  uint64 = 30_000
	RoyaltyViewGasCost uint64 = 3_000

	// MaxBasisPoints caps a royalty at 100 percent of the sale price.
	MaxBasisPoints uint16 = 10_000
)

// DeclaredFlags is the lifecycle surface this hook installs under.
var DeclaredFlags = hooks.Royalty.Bit()

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidSelector = errors.New("invalid function selector")
	ErrNotTokenAdmin   = errors.New("caller is not an admin of the token")
	ErrExcessiveBps    = errors.New("royalty basis points exceed 10000")
)

func defaultKey(token common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.royalty.default"), token.Bytes()))
}

func tokenKey(token common.Address, id *uint256.Int) common.Hash {
	word := id.Bytes32()
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.royalty.token"), token.Bytes(), word[:]))
}

// packRoyalty lays a royalty entry into one word: bytes 0..19 hold the
// recipient, byte 29 the presence marker, bytes 30..31 the basis points.
func packRoyalty(recipient common.Address, bps uint16) common.Hash {
	var word common.Hash
	copy(word[:20], recipient.Bytes())
	word[29] = 1
	binary.BigEndian.PutUint16(word[30:], bps)
	return word
}

func unpackRoyalty(word common.Hash) (common.Address, uint16, bool) {
	if word[29] == 0 {
		return common.Address{}, 0, false
	}
	return common.BytesToAddress(word[:20]), binary.BigEndian.Uint16(word[30:]), true
}

// RoyaltyHookPrecompile is the singleton contract instance.
var RoyaltyHookPrecompile = &royaltyPrecompile{}

type royaltyPrecompile struct{}

// Run dispatches both the hook wire surface, called by token cores, and the
// management surface, called by token admins.
func (p *royaltyPrecompile) Run(
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
	case hooks.SigGetHooksImplemented:
		return p.getHooksImplemented(suppliedGas)
	case hooks.SigRoyaltyInfo:
		return p.royaltyInfo(stateDB, caller, args, suppliedGas)
	case selectorSetDefaultRoyalty:
		return p.setDefaultRoyalty(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorSetTokenRoyalty:
		return p.setTokenRoyalty(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorResetTokenRoyalty:
		return p.resetTokenRoyalty(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorGetDefaultRoyalty:
		return p.getDefaultRoyalty(stateDB, args, suppliedGas)
	case selectorGetTokenRoyalty:
		return p.getTokenRoyalty(stateDB, args, suppliedGas)
	default:
		return nil, suppliedGas, ErrInvalidSelector
	}
}

func (p *royaltyPrecompile) getHooksImplemented(suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < DeclareGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	return DeclaredFlags.Word().Bytes(), suppliedGas - DeclareGasCost, nil
}

// royaltyInfo resolves the royalty for a sale of the calling token. A token
// with no entry at all pays no royalty.
func (p *royaltyPrecompile) royaltyInfo(stateDB contract.StateDB, caller common.Address, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < RoyaltyInfoGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - RoyaltyInfoGasCost

	vals, err := hooks.HookABI.UnpackInput("royaltyInfo", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	id, overflow := uint256.FromBig(vals[0].(*big.Int))
	salePrice, overflowPrice := uint256.FromBig(vals[1].(*big.Int))
	if overflow || overflowPrice {
		return nil, remainingGas, ErrInvalidInput
	}

	recipient, bps, ok := unpackRoyalty(stateDB.GetState(ContractAddress, tokenKey(caller, id)))
	if !ok {
		recipient, bps, _ = unpackRoyalty(stateDB.GetState(ContractAddress, defaultKey(caller)))
	}

	amount := new(uint256.Int)
	if bps > 0 {
		amount.MulDivOverflow(salePrice, uint256.NewInt(uint64(bps)), uint256.NewInt(uint64(MaxBasisPoints)))
	}
	ret, err := hooks.HookABI.PackOutput("royaltyInfo", recipient, amount.ToBig())
	return ret, remainingGas, err
}

func (p *royaltyPrecompile) setDefaultRoyalty(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < SetRoyaltyGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - SetRoyaltyGasCost

	vals, err := RoyaltyABI.UnpackInput("setDefaultRoyalty", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	recipient := vals[1].(common.Address)
	bps := vals[2].(uint16)
	if bps > MaxBasisPoints {
		return nil, remainingGas, fmt.Errorf("%w: %d", ErrExcessiveBps, bps)
	}

	stateDB := env.GetStateDB()
	if !allowlist.GetAllowListStatus(stateDB, token, caller).IsAdmin() {
		return nil, remainingGas, ErrNotTokenAdmin
	}
	stateDB.SetState(ContractAddress, defaultKey(token), packRoyalty(recipient, bps))

	if err := p.emit(env, "DefaultRoyaltySet", token, recipient, new(big.Int).SetUint64(uint64(bps))); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *royaltyPrecompile) setTokenRoyalty(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < SetRoyaltyGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - SetRoyaltyGasCost

	vals, err := RoyaltyABI.UnpackInput("setTokenRoyalty", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	id, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	recipient := vals[2].(common.Address)
	bps := vals[3].(uint16)
	if bps > MaxBasisPoints {
		return nil, remainingGas, fmt.Errorf("%w: %d", ErrExcessiveBps, bps)
	}

	stateDB := env.GetStateDB()
	if !allowlist.GetAllowListStatus(stateDB, token, caller).IsAdmin() {
		return nil, remainingGas, ErrNotTokenAdmin
	}
	stateDB.SetState(ContractAddress, tokenKey(token, id), packRoyalty(recipient, bps))

	if err := p.emit(env, "TokenRoyaltySet", token, recipient, id.ToBig(), new(big.Int).SetUint64(uint64(bps))); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *royaltyPrecompile) resetTokenRoyalty(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < SetRoyaltyGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - SetRoyaltyGasCost

	vals, err := RoyaltyABI.UnpackInput("resetTokenRoyalty", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	id, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	stateDB := env.GetStateDB()
	if !allowlist.GetAllowListStatus(stateDB, token, caller).IsAdmin() {
		return nil, remainingGas, ErrNotTokenAdmin
	}
	stateDB.SetState(ContractAddress, tokenKey(token, id), common.Hash{})

	if err := p.emit(env, "TokenRoyaltyReset", token, id.ToBig()); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *royaltyPrecompile) getDefaultRoyalty(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < RoyaltyViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - RoyaltyViewGasCost

	vals, err := RoyaltyABI.UnpackInput("getDefaultRoyalty", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	recipient, bps, _ := unpackRoyalty(stateDB.GetState(ContractAddress, defaultKey(vals[0].(common.Address))))
	ret, err := RoyaltyABI.PackOutput("getDefaultRoyalty", recipient, bps)
	return ret, remainingGas, err
}

func (p *royaltyPrecompile) getTokenRoyalty(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < RoyaltyViewGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - RoyaltyViewGasCost

	vals, err := RoyaltyABI.UnpackInput("getTokenRoyalty", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	id, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	recipient, bps, ok := unpackRoyalty(stateDB.GetState(ContractAddress, tokenKey(vals[0].(common.Address), id)))
	ret, err := RoyaltyABI.PackOutput("getTokenRoyalty", recipient, bps, ok)
	return ret, remainingGas, err
}

func (p *royaltyPrecompile) emit(env contract.AccessibleState, name string, args ...interface{}) error {
	topics, data, err := RoyaltyABI.PackEvent(name, args...)
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
