// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the execution surface stateful precompiled
// contracts are written against: the state they read and write, the
// accessible state handed to them on every invocation (including the
// nested call boundary used to reach other contracts), and the
// configuration plumbing the chain uses to activate them at upgrade
// boundaries.
package contract

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/token/precompileconfig"
)

var (
	// ErrOutOfGas is returned when the supplied gas does not cover the
	// operation's cost.
	ErrOutOfGas = errors.New("out of gas")

	// ErrWriteProtection is returned when a state-modifying operation is
	// attempted inside a read-only call frame.
	ErrWriteProtection = errors.New("write protection")

	// ErrInsufficientBalance is returned when a nested call carries more
	// value than the calling contract holds.
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")

	// ErrExecutionReverted is returned for a nested call that failed
	// without a machine-readable reason.
	ErrExecutionReverted = errors.New("execution reverted")
)

// StateReader reads contract storage slots.
type StateReader interface {
	GetState(common.Address, common.Hash) common.Hash
}

// StateDB is the mutable account and storage surface precompiles run
// against. It mirrors the EVM state database the chain hands to the
// precompile runtime.
type StateDB interface {
	StateReader

	// SetState stores value under (addr, key) and returns the previous
	// value held in the slot.
	SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash

	GetBalance(common.Address) *uint256.Int
	AddBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int
	SubBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64, tracing.NonceChangeReason)

	GetBalanceMultiCoin(common.Address, common.Hash) *big.Int
	AddBalanceMultiCoin(common.Address, common.Hash, *big.Int)
	SubBalanceMultiCoin(common.Address, common.Hash, *big.Int)

	CreateAccount(common.Address)
	Exist(common.Address) bool

	AddLog(*ethtypes.Log)
	Logs() []*ethtypes.Log

	GetPredicateStorageSlots(address common.Address, index int) ([]byte, bool)
	TxHash() common.Hash

	Snapshot() int
	RevertToSnapshot(int)
}

// ConfigurationBlockContext is the block view available while a precompile
// is being configured at its activation boundary.
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// BlockContext is the block view available during execution.
type BlockContext interface {
	ConfigurationBlockContext

	// GetPredicateResults returns the serialized predicate results for the
	// given transaction and precompile address.
	GetPredicateResults(txHash common.Hash, precompileAddress common.Address) []byte
}

// AccessibleState is the execution state handed to a precompile on every
// invocation. Nested calls issued through it follow EVM semantics: value
// moves from the executing contract to the callee, failures surface as the
// callee's error verbatim, and unconsumed gas is returned.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext

	// GetMsgValue returns the native value attached to the current call.
	// Never nil.
	GetMsgValue() *uint256.Int

	// Call executes a nested value-carrying call to addr.
	Call(addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, remainingGas uint64, err error)

	// StaticCall executes a nested read-only call to addr.
	StaticCall(addr common.Address, input []byte, gas uint64) (ret []byte, remainingGas uint64, err error)
}

// StatefulPrecompiledContract is the interface every registered precompile
// implements.
type StatefulPrecompiledContract interface {
	// Run executes the precompile with the given input. addr is the
	// precompile's own address, caller the immediate caller's.
	Run(accessibleState AccessibleState, caller common.Address, addr common.Address, input []byte, suppliedGas uint64, readOnly bool) (ret []byte, remainingGas uint64, err error)
}

// Configurator configures a precompile from its chain config entry when
// the activating upgrade hits.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(chainConfig precompileconfig.ChainConfig, precompileConfig precompileconfig.Config, state StateDB, blockContext ConfigurationBlockContext) error
}
