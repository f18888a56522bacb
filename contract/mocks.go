// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
)

// MockStateDB is an in-memory StateDB for package tests. Snapshot and
// RevertToSnapshot are fully functional so tests can assert that failed
// operations leave no partial writes behind.
type MockStateDB struct {
	state      map[common.Address]map[common.Hash]common.Hash
	balances   map[common.Address]*uint256.Int
	nonces     map[common.Address]uint64
	multiCoin  map[common.Address]map[common.Hash]*big.Int
	accounts   map[common.Address]bool
	logs       []*ethtypes.Log
	txHash     common.Hash
	predicates map[common.Address][][]byte

	snapshots []mockSnapshot
}

type mockSnapshot struct {
	state     map[common.Address]map[common.Hash]common.Hash
	balances  map[common.Address]*uint256.Int
	nonces    map[common.Address]uint64
	multiCoin map[common.Address]map[common.Hash]*big.Int
	accounts  map[common.Address]bool
	logLen    int
}

// NewMockStateDB returns an empty mock state.
func NewMockStateDB() *MockStateDB {
	return &MockStateDB{
		state:      make(map[common.Address]map[common.Hash]common.Hash),
		balances:   make(map[common.Address]*uint256.Int),
		nonces:     make(map[common.Address]uint64),
		multiCoin:  make(map[common.Address]map[common.Hash]*big.Int),
		accounts:   make(map[common.Address]bool),
		predicates: make(map[common.Address][][]byte),
	}
}

func (m *MockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if slots, ok := m.state[addr]; ok {
		return slots[key]
	}
	return common.Hash{}
}

func (m *MockStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) common.Hash {
	slots, ok := m.state[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		m.state[addr] = slots
	}
	prev := slots[key]
	slots[key] = value
	m.accounts[addr] = true
	return prev
}

func (m *MockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

func (m *MockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	prev := m.GetBalance(addr)
	m.balances[addr] = new(uint256.Int).Add(prev, amount)
	m.accounts[addr] = true
	return *prev
}

func (m *MockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	prev := m.GetBalance(addr)
	m.balances[addr] = new(uint256.Int).Sub(prev, amount)
	return *prev
}

func (m *MockStateDB) GetNonce(addr common.Address) uint64 {
	return m.nonces[addr]
}

func (m *MockStateDB) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	m.nonces[addr] = nonce
	m.accounts[addr] = true
}

func (m *MockStateDB) GetBalanceMultiCoin(addr common.Address, coinID common.Hash) *big.Int {
	if coins, ok := m.multiCoin[addr]; ok {
		if bal, ok := coins[coinID]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

func (m *MockStateDB) AddBalanceMultiCoin(addr common.Address, coinID common.Hash, amount *big.Int) {
	coins, ok := m.multiCoin[addr]
	if !ok {
		coins = make(map[common.Hash]*big.Int)
		m.multiCoin[addr] = coins
	}
	coins[coinID] = new(big.Int).Add(m.GetBalanceMultiCoin(addr, coinID), amount)
}

func (m *MockStateDB) SubBalanceMultiCoin(addr common.Address, coinID common.Hash, amount *big.Int) {
	coins, ok := m.multiCoin[addr]
	if !ok {
		coins = make(map[common.Hash]*big.Int)
		m.multiCoin[addr] = coins
	}
	coins[coinID] = new(big.Int).Sub(m.GetBalanceMultiCoin(addr, coinID), amount)
}

func (m *MockStateDB) CreateAccount(addr common.Address) {
	m.accounts[addr] = true
}

func (m *MockStateDB) Exist(addr common.Address) bool {
	return m.accounts[addr]
}

func (m *MockStateDB) AddLog(log *ethtypes.Log) {
	m.logs = append(m.logs, log)
}

func (m *MockStateDB) Logs() []*ethtypes.Log {
	return m.logs
}

// SetPredicateStorageSlots primes predicate bytes for an address.
func (m *MockStateDB) SetPredicateStorageSlots(addr common.Address, slots [][]byte) {
	m.predicates[addr] = slots
}

func (m *MockStateDB) GetPredicateStorageSlots(addr common.Address, index int) ([]byte, bool) {
	slots, ok := m.predicates[addr]
	if !ok || index >= len(slots) {
		return nil, false
	}
	return slots[index], true
}

// SetTxHash sets the hash reported for the current transaction.
func (m *MockStateDB) SetTxHash(hash common.Hash) {
	m.txHash = hash
}

func (m *MockStateDB) TxHash() common.Hash {
	return m.txHash
}

func (m *MockStateDB) Snapshot() int {
	m.snapshots = append(m.snapshots, m.copyState())
	return len(m.snapshots) - 1
}

func (m *MockStateDB) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	snap := m.snapshots[id]
	m.state = snap.state
	m.balances = snap.balances
	m.nonces = snap.nonces
	m.multiCoin = snap.multiCoin
	m.accounts = snap.accounts
	m.logs = m.logs[:snap.logLen]
	m.snapshots = m.snapshots[:id]
}

func (m *MockStateDB) copyState() mockSnapshot {
	snap := mockSnapshot{
		state:     make(map[common.Address]map[common.Hash]common.Hash, len(m.state)),
		balances:  make(map[common.Address]*uint256.Int, len(m.balances)),
		nonces:    make(map[common.Address]uint64, len(m.nonces)),
		multiCoin: make(map[common.Address]map[common.Hash]*big.Int, len(m.multiCoin)),
		accounts:  make(map[common.Address]bool, len(m.accounts)),
		logLen:    len(m.logs),
	}
	for addr, slots := range m.state {
		copied := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			copied[k] = v
		}
		snap.state[addr] = copied
	}
	for addr, bal := range m.balances {
		snap.balances[addr] = new(uint256.Int).Set(bal)
	}
	for addr, nonce := range m.nonces {
		snap.nonces[addr] = nonce
	}
	for addr, coins := range m.multiCoin {
		copied := make(map[common.Hash]*big.Int, len(coins))
		for k, v := range coins {
			copied[k] = new(big.Int).Set(v)
		}
		snap.multiCoin[addr] = copied
	}
	for addr, exists := range m.accounts {
		snap.accounts[addr] = exists
	}
	return snap
}

// MockBlockContext is a fixed block view for tests.
type MockBlockContext struct {
	number    *big.Int
	timestamp uint64
}

func NewMockBlockContext(number *big.Int, timestamp uint64) *MockBlockContext {
	return &MockBlockContext{number: number, timestamp: timestamp}
}

func (m *MockBlockContext) Number() *big.Int  { return m.number }
func (m *MockBlockContext) Timestamp() uint64 { return m.timestamp }

func (m *MockBlockContext) GetPredicateResults(common.Hash, common.Address) []byte { return nil }

// MockAccessibleState is an AccessibleState for tests. Contracts registered
// on it are reachable through Call/StaticCall with EVM-like semantics:
// value moves from the executing frame's address to the callee, the callee
// runs in a child frame, and a failed call reverts every state change it
// made, including logs.
type MockAccessibleState struct {
	stateDB   *MockStateDB
	block     *MockBlockContext
	value     *uint256.Int
	self      common.Address
	contracts map[common.Address]StatefulPrecompiledContract
}

// NewMockAccessibleState returns an accessible state over the given mock
// StateDB with a zero message value and block (1, timestamp 1).
func NewMockAccessibleState(stateDB *MockStateDB) *MockAccessibleState {
	return &MockAccessibleState{
		stateDB:   stateDB,
		block:     NewMockBlockContext(big.NewInt(1), 1),
		value:     new(uint256.Int),
		contracts: make(map[common.Address]StatefulPrecompiledContract),
	}
}

// RegisterContract makes a contract reachable at addr through Call and
// StaticCall.
func (m *MockAccessibleState) RegisterContract(addr common.Address, c StatefulPrecompiledContract) {
	m.contracts[addr] = c
}

// SetSelf sets the address of the currently executing frame. Nested calls
// transfer value from this address.
func (m *MockAccessibleState) SetSelf(addr common.Address) {
	m.self = addr
}

// SetMsgValue sets the value reported for the current frame.
func (m *MockAccessibleState) SetMsgValue(value *uint256.Int) {
	m.value = value
}

// SetBlockContext replaces the block view.
func (m *MockAccessibleState) SetBlockContext(block *MockBlockContext) {
	m.block = block
}

func (m *MockAccessibleState) GetStateDB() StateDB           { return m.stateDB }
func (m *MockAccessibleState) GetBlockContext() BlockContext { return m.block }

func (m *MockAccessibleState) GetMsgValue() *uint256.Int {
	if m.value == nil {
		return new(uint256.Int)
	}
	return m.value
}

func (m *MockAccessibleState) Call(addr common.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	snapshot := m.stateDB.Snapshot()
	if value != nil && !value.IsZero() {
		if m.stateDB.GetBalance(m.self).Lt(value) {
			return nil, gas, ErrInsufficientBalance
		}
		m.stateDB.SubBalance(m.self, value, tracing.BalanceChangeTransfer)
		m.stateDB.AddBalance(addr, value, tracing.BalanceChangeTransfer)
	}
	target, ok := m.contracts[addr]
	if !ok {
		// Calling an address without code succeeds with empty return data.
		return nil, gas, nil
	}
	child := m.childFrame(addr, value)
	ret, remainingGas, err := target.Run(child, m.self, addr, input, gas, false)
	if err != nil {
		m.stateDB.RevertToSnapshot(snapshot)
	}
	return ret, remainingGas, err
}

func (m *MockAccessibleState) StaticCall(addr common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	target, ok := m.contracts[addr]
	if !ok {
		return nil, gas, nil
	}
	child := m.childFrame(addr, nil)
	return target.Run(child, m.self, addr, input, gas, true)
}

// CallAs runs a top-level call from caller to addr, the way a transaction
// would enter the contract.
func (m *MockAccessibleState) CallAs(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	prevSelf := m.self
	m.self = caller
	ret, remainingGas, err := m.Call(addr, input, gas, value)
	m.self = prevSelf
	return ret, remainingGas, err
}

func (m *MockAccessibleState) childFrame(addr common.Address, value *uint256.Int) *MockAccessibleState {
	frameValue := new(uint256.Int)
	if value != nil {
		frameValue.Set(value)
	}
	return &MockAccessibleState{
		stateDB:   m.stateDB,
		block:     m.block,
		value:     frameValue,
		self:      addr,
		contracts: m.contracts,
	}
}
