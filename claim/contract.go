// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package claim implements the paid mint hook precompile (LP-1310). A token
// core with this hook installed sells its supply under a per-token claim
// condition: a unit price, a remaining supply, a sale recipient, and an
// optional allow list gate. The hook keeps one condition per consumer token
// and answers the beforeMint lifecycle call, so the same precompile serves
// every token core on the chain.
//
// Condition management is gated by the consumer token's own allow list:
// only an admin of the token may set or replace its claim condition or
// curate its claim allow list. The claim allow list itself lives in the
// hook's storage, keyed by (token, claimer); it is separate from the
// token's operator roles.
package claim

import (
	"errors"
	"fmt"
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

const claimRawABI = `[
{"type":"function","name":"setClaimCondition","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"pricePerUnit","type":"uint256"},{"name":"availableSupply","type":"uint256"},{"name":"saleRecipient","type":"address"},{"name":"allowlistGated","type":"bool"}],"outputs":[]},
{"type":"function","name":"getClaimCondition","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"pricePerUnit","type":"uint256"},{"name":"availableSupply","type":"uint256"},{"name":"saleRecipient","type":"address"},{"name":"allowlistGated","type":"bool"},{"name":"configured","type":"bool"}]},
{"type":"function","name":"setAllowlisted","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"claimer","type":"address"},{"name":"allowed","type":"bool"}],"outputs":[]},
{"type":"function","name":"isAllowlisted","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"claimer","type":"address"}],"outputs":[{"name":"allowed","type":"bool"}]},
{"type":"event","name":"ClaimConditionSet","inputs":[{"name":"token","type":"address","indexed":true},{"name":"saleRecipient","type":"address","indexed":true},{"name":"pricePerUnit","type":"uint256","indexed":false},{"name":"availableSupply","type":"uint256","indexed":false},{"name":"allowlistGated","type":"bool","indexed":false}]},
{"type":"event","name":"TokensClaimed","inputs":[{"name":"token","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"quantity","type":"uint256","indexed":false},{"name":"paid","type":"uint256","indexed":false}]},
{"type":"event","name":"AllowlistUpdated","inputs":[{"name":"token","type":"address","indexed":true},{"name":"claimer","type":"address","indexed":true},{"name":"allowed","type":"bool","indexed":false}]}
]`

// ClaimABI is the parsed management interface of the claim hook.
var ClaimABI = contract.ParseABI(claimRawABI)

var (
	selectorSetClaimCondition = ClaimABI.MethodID("setClaimCondition")
	selectorGetClaimCondition = ClaimABI.MethodID("getClaimCondition")
	selectorSetAllowlisted    = ClaimABI.MethodID("setAllowlisted")
	selectorIsAllowlisted     = ClaimABI.MethodID("isAllowlisted")
)

const (
	DeclareGasCost        uint64 = 2_000
	ClaimGasCost          uint64 = 30_000
	SetConditionGasCost   uint64 = 40_000
	ConditionGasCost      uint64 = 3_000
	SetAllowlistedGasCost uint64 = 20_000
	AllowlistedGasCost    uint64 = 3_000
)

// DeclaredFlags is the lifecycle surface this hook installs under.
var DeclaredFlags = hooks.BeforeMint.Bit()

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidSelector  = errors.New("invalid function selector")
	ErrNotTokenAdmin    = errors.New("caller is not an admin of the token")
	ErrNoClaimCondition = errors.New("no claim condition set for token")
	ErrSupplyExhausted  = errors.New("claim exceeds available supply")
	ErrPaymentMismatch  = errors.New("claim payment mismatch")
	ErrNotAllowlisted   = errors.New("recipient is not allowlisted on token")
)

// Condition is the sale policy kept for one consumer token.
type Condition struct {
	PricePerUnit    *uint256.Int
	AvailableSupply *uint256.Int
	SaleRecipient   common.Address
	AllowlistGated  bool
}

func priceKey(token common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.claim.price"), token.Bytes()))
}

func supplyKey(token common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.claim.supply"), token.Bytes()))
}

func recipientKey(token common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.claim.recipient"), token.Bytes()))
}

// markerKey holds presence and gating for a token's condition in one word:
// byte 31 is the presence marker, byte 30 the allow list gate.
func markerKey(token common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.claim.marker"), token.Bytes()))
}

func allowKey(token, claimer common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.claim.allow"), token.Bytes(), claimer.Bytes()))
}

func loadAllowed(state contract.StateReader, token, claimer common.Address) bool {
	word := state.GetState(ContractAddress, allowKey(token, claimer))
	return word[31] != 0
}

func loadCondition(state contract.StateReader, token common.Address) (Condition, bool) {
	marker := state.GetState(ContractAddress, markerKey(token))
	if marker[31] == 0 {
		return Condition{}, false
	}
	price := state.GetState(ContractAddress, priceKey(token))
	supply := state.GetState(ContractAddress, supplyKey(token))
	recipient := state.GetState(ContractAddress, recipientKey(token))
	return Condition{
		PricePerUnit:    new(uint256.Int).SetBytes(price[:]),
		AvailableSupply: new(uint256.Int).SetBytes(supply[:]),
		SaleRecipient:   common.BytesToAddress(recipient[:]),
		AllowlistGated:  marker[30] != 0,
	}, true
}

func storeCondition(state contract.StateDB, token common.Address, cond Condition) {
	var marker common.Hash
	marker[31] = 1
	if cond.AllowlistGated {
		marker[30] = 1
	}
	state.SetState(ContractAddress, markerKey(token), marker)
	state.SetState(ContractAddress, priceKey(token), common.Hash(cond.PricePerUnit.Bytes32()))
	state.SetState(ContractAddress, supplyKey(token), common.Hash(cond.AvailableSupply.Bytes32()))
	state.SetState(ContractAddress, recipientKey(token), common.BytesToHash(cond.SaleRecipient.Bytes()))
}

// ClaimHookPrecompile is the singleton contract instance.
var ClaimHookPrecompile = &claimPrecompile{}

type claimPrecompile struct{}

// Run dispatches both the hook wire surface, called by token cores, and the
// management surface, called by token admins.
func (p *claimPrecompile) Run(
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

	switch selector {
	case hooks.SigGetHooksImplemented:
		return p.getHooksImplemented(suppliedGas)
	case hooks.SigBeforeMint:
		return p.beforeMint(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorSetClaimCondition:
		return p.setClaimCondition(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorGetClaimCondition:
		return p.getClaimCondition(accessibleState.GetStateDB(), args, suppliedGas)
	case selectorSetAllowlisted:
		return p.setAllowlisted(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorIsAllowlisted:
		return p.isAllowlisted(accessibleState.GetStateDB(), args, suppliedGas)
	default:
		return nil, suppliedGas, ErrInvalidSelector
	}
}

func (p *claimPrecompile) getHooksImplemented(suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < DeclareGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	return DeclaredFlags.Word().Bytes(), suppliedGas - DeclareGasCost, nil
}

// beforeMint enforces the claim condition of the calling token core. The
// caller address namespaces the condition, so an uninvited caller simply
// finds no condition and fails.
func (p *claimPrecompile) beforeMint(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < ClaimGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ClaimGasCost

	vals, err := hooks.HookABI.UnpackInput("beforeMint", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	to := vals[0].(common.Address)
	quantity, overflow := uint256.FromBig(vals[2].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	stateDB := env.GetStateDB()
	cond, ok := loadCondition(stateDB, caller)
	if !ok {
		return nil, remainingGas, ErrNoClaimCondition
	}
	if cond.AvailableSupply.Lt(quantity) {
		return nil, remainingGas, fmt.Errorf("%w: requested %s, available %s", ErrSupplyExhausted, quantity, cond.AvailableSupply)
	}
	if cond.AllowlistGated && !loadAllowed(stateDB, caller, to) {
		return nil, remainingGas, ErrNotAllowlisted
	}

	required := new(uint256.Int)
	if _, overflow := required.MulOverflow(cond.PricePerUnit, quantity); overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	if !env.GetMsgValue().Eq(required) {
		return nil, remainingGas, fmt.Errorf("%w: required %s, attached %s", ErrPaymentMismatch, required, env.GetMsgValue())
	}
	if !required.IsZero() {
		stateDB.SubBalance(ContractAddress, required, tracing.BalanceChangeTransfer)
		stateDB.AddBalance(cond.SaleRecipient, required, tracing.BalanceChangeTransfer)
	}

	cond.AvailableSupply = new(uint256.Int).Sub(cond.AvailableSupply, quantity)
	storeCondition(stateDB, caller, cond)

	if err := p.emitTokensClaimed(env, caller, to, quantity.ToBig(), required.ToBig()); err != nil {
		return nil, remainingGas, err
	}
	ret, err := hooks.HookABI.PackOutput("beforeMint", quantity.ToBig())
	return ret, remainingGas, err
}

func (p *claimPrecompile) setClaimCondition(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < SetConditionGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - SetConditionGasCost

	vals, err := ClaimABI.UnpackInput("setClaimCondition", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	price, overflowPrice := uint256.FromBig(vals[1].(*big.Int))
	supply, overflowSupply := uint256.FromBig(vals[2].(*big.Int))
	if overflowPrice || overflowSupply {
		return nil, remainingGas, ErrInvalidInput
	}
	recipient := vals[3].(common.Address)
	gated := vals[4].(bool)

	stateDB := env.GetStateDB()
	if !allowlist.GetAllowListStatus(stateDB, token, caller).IsAdmin() {
		return nil, remainingGas, ErrNotTokenAdmin
	}

	storeCondition(stateDB, token, Condition{
		PricePerUnit:    price,
		AvailableSupply: supply,
		SaleRecipient:   recipient,
		AllowlistGated:  gated,
	})

	if err := p.emitClaimConditionSet(env, token, recipient, price.ToBig(), supply.ToBig(), gated); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *claimPrecompile) getClaimCondition(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < ConditionGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ConditionGasCost

	vals, err := ClaimABI.UnpackInput("getClaimCondition", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	cond, ok := loadCondition(stateDB, vals[0].(common.Address))
	if !ok {
		cond = Condition{PricePerUnit: new(uint256.Int), AvailableSupply: new(uint256.Int)}
	}
	ret, err := ClaimABI.PackOutput("getClaimCondition",
		cond.PricePerUnit.ToBig(),
		cond.AvailableSupply.ToBig(),
		cond.SaleRecipient,
		cond.AllowlistGated,
		ok,
	)
	return ret, remainingGas, err
}

// setAllowlisted curates the claim allow list of a token. Membership lives
// in the hook's own storage, keyed by (token, claimer), so being an
// operator of the token does not imply claim eligibility.
func (p *claimPrecompile) setAllowlisted(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < SetAllowlistedGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - SetAllowlistedGasCost

	vals, err := ClaimABI.UnpackInput("setAllowlisted", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	claimer := vals[1].(common.Address)
	allowed := vals[2].(bool)

	stateDB := env.GetStateDB()
	if !allowlist.GetAllowListStatus(stateDB, token, caller).IsAdmin() {
		return nil, remainingGas, ErrNotTokenAdmin
	}

	var word common.Hash
	if allowed {
		word[31] = 1
	}
	stateDB.SetState(ContractAddress, allowKey(token, claimer), word)

	if err := p.emitAllowlistUpdated(env, token, claimer, allowed); err != nil {
		return nil, remainingGas, err
	}
	return []byte{}, remainingGas, nil
}

func (p *claimPrecompile) isAllowlisted(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < AllowlistedGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - AllowlistedGasCost

	vals, err := ClaimABI.UnpackInput("isAllowlisted", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := ClaimABI.PackOutput("isAllowlisted", loadAllowed(stateDB, vals[0].(common.Address), vals[1].(common.Address)))
	return ret, remainingGas, err
}

func (p *claimPrecompile) emitClaimConditionSet(env contract.AccessibleState, token, recipient common.Address, price, supply *big.Int, gated bool) error {
	topics, data, err := ClaimABI.PackEvent("ClaimConditionSet", token, recipient, price, supply, gated)
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

func (p *claimPrecompile) emitTokensClaimed(env contract.AccessibleState, token, recipient common.Address, quantity, paid *big.Int) error {
	topics, data, err := ClaimABI.PackEvent("TokensClaimed", token, recipient, quantity, paid)
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

func (p *claimPrecompile) emitAllowlistUpdated(env contract.AccessibleState, token, claimer common.Address, allowed bool) error {
	topics, data, err := ClaimABI.PackEvent("AllowlistUpdated", token, claimer, allowed)
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
