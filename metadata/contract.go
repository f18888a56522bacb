// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metadata implements the shared metadata hook precompile (LP-1320).
// Token admins lazy mint metadata in batches: each batch covers a contiguous
// id range and carries a base URI, and the uri of a token is its batch base
// URI with the decimal id appended. Batches are kept per consumer token, so
// one precompile serves every collection on the chain.
package metadata

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

const metadataRawABI = `[
{"type":"function","name":"lazyMint","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"baseURI","type":"string"}],"outputs":[{"name":"endId","type":"uint256"}]},
{"type":"function","name":"getBaseURICount","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"count","type":"uint256"}]},
{"type":"function","name":"getMetadataBatch","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"startId","type":"uint256"},{"name":"endId","type":"uint256"},{"name":"baseURI","type":"string"}]},
{"type":"event","name":"BatchLazyMinted","inputs":[{"name":"token","type":"address","indexed":true},{"name":"startId","type":"uint256","indexed":false},{"name":"endId","type":"uint256","indexed":false},{"name":"baseURI","type":"string","indexed":false}]}
]`

// MetadataABI is the parsed management interface of the metadata hook.
var MetadataABI = contract.ParseABI(metadataRawABI)

var (
	selectorLazyMint         = MetadataABI.MethodID("lazyMint")
	selectorGetBaseURICount  = MetadataABI.MethodID("getBaseURICount")
	selectorGetMetadataBatch = MetadataABI.MethodID("getMetadataBatch")
)

const (
	DeclareGasCost  uint64 = 2_000
	URIGasCost      uint64 = 10_000
	LazyMintGasCost uint64 = 50_000
	ChunkGasCost    uint64 = 5_000
	BatchGasCost    uint64 = 5_000
	CountGasCost    uint64 = 3_000
)

// DeclaredFlags is the lifecycle surface this hook installs under.
var DeclaredFlags = hooks.TokenURI.Bit()

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidSelector = errors.New("invalid function selector")
	ErrNotTokenAdmin   = errors.New("caller is not an admin of the token")
	ErrNoMetadata      = errors.New("no metadata batch covers token id")
	ErrEmptyBatch      = errors.New("batch amount must be positive")
)

func countKey(token common.Address) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.metadata.count"), token.Bytes()))
}

func endKey(token common.Address, index uint64) common.Hash {
	word := common.BigToHash(new(big.Int).SetUint64(index))
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.metadata.end"), token.Bytes(), word.Bytes()))
}

func uriKey(token common.Address, index uint64) common.Hash {
	word := common.BigToHash(new(big.Int).SetUint64(index))
	return common.BytesToHash(crypto.Keccak256([]byte("token.hook.metadata.uri"), token.Bytes(), word.Bytes()))
}

// MetadataHookPrecompile is the singleton contract instance.
var MetadataHookPrecompile = &metadataPrecompile{}

type metadataPrecompile struct{}

// Run dispatches both the hook wire surface, called by token cores, and the
// management surface, called by token admins.
func (p *metadataPrecompile) Run(
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
	case hooks.SigTokenURI:
		return p.tokenURI(stateDB, caller, args, suppliedGas)
	case selectorLazyMint:
		return p.lazyMint(accessibleState, caller, args, suppliedGas, readOnly)
	case selectorGetBaseURICount:
		return p.getBaseURICount(stateDB, args, suppliedGas)
	case selectorGetMetadataBatch:
		return p.getMetadataBatch(stateDB, args, suppliedGas)
	default:
		return nil, suppliedGas, ErrInvalidSelector
	}
}

func (p *metadataPrecompile) getHooksImplemented(suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < DeclareGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	return DeclaredFlags.Word().Bytes(), suppliedGas - DeclareGasCost, nil
}

// tokenURI resolves an id against the calling token's batches. Batches are
// recorded with ascending exclusive end ids, so the first batch whose end
// exceeds the id owns it.
func (p *metadataPrecompile) tokenURI(stateDB contract.StateDB, caller common.Address, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < URIGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - URIGasCost

	vals, err := hooks.HookABI.UnpackInput("tokenURI", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	idBig := vals[0].(*big.Int)
	id, overflow := uint256.FromBig(idBig)
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	count := readWord(stateDB, countKey(caller)).Uint64()
	for i := uint64(0); i < count; i++ {
		end := readWord(stateDB, endKey(caller, i))
		if id.Lt(end) {
			base := loadLongString(stateDB, uriKey(caller, i))
			ret, err := hooks.HookABI.PackOutput("tokenURI", base+idBig.String())
			return ret, remainingGas, err
		}
	}
	return nil, remainingGas, ErrNoMetadata
}

// lazyMint appends a batch of metadata for the given token. The new batch
// starts where the previous one ended.
func (p *metadataPrecompile) lazyMint(env contract.AccessibleState, caller common.Address, args []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < LazyMintGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - LazyMintGasCost

	vals, err := MetadataABI.UnpackInput("lazyMint", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	amount, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	baseURI := vals[2].(string)

	chunkCost := uint64((len(baseURI)+31)/32) * ChunkGasCost
	if remainingGas < chunkCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas -= chunkCost

	if amount.IsZero() {
		return nil, remainingGas, ErrEmptyBatch
	}
	stateDB := env.GetStateDB()
	if !allowlist.GetAllowListStatus(stateDB, token, caller).IsAdmin() {
		return nil, remainingGas, ErrNotTokenAdmin
	}

	count := readWord(stateDB, countKey(token)).Uint64()
	startID := new(uint256.Int)
	if count > 0 {
		startID = readWord(stateDB, endKey(token, count-1))
	}
	endID, overflow := new(uint256.Int).AddOverflow(startID, amount)
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}

	writeWord(stateDB, endKey(token, count), endID)
	storeLongString(stateDB, uriKey(token, count), baseURI)
	writeWord(stateDB, countKey(token), new(uint256.Int).SetUint64(count+1))

	if err := p.emitBatchLazyMinted(env, token, startID.ToBig(), endID.ToBig(), baseURI); err != nil {
		return nil, remainingGas, err
	}
	ret, err := MetadataABI.PackOutput("lazyMint", endID.ToBig())
	return ret, remainingGas, err
}

func (p *metadataPrecompile) getBaseURICount(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < CountGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - CountGasCost

	vals, err := MetadataABI.UnpackInput("getBaseURICount", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	ret, err := MetadataABI.PackOutput("getBaseURICount", readWord(stateDB, countKey(vals[0].(common.Address))).ToBig())
	return ret, remainingGas, err
}

func (p *metadataPrecompile) getMetadataBatch(stateDB contract.StateDB, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < BatchGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - BatchGasCost

	vals, err := MetadataABI.UnpackInput("getMetadataBatch", args, false)
	if err != nil {
		return nil, remainingGas, ErrInvalidInput
	}
	token := vals[0].(common.Address)
	index, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return nil, remainingGas, ErrInvalidInput
	}
	count := readWord(stateDB, countKey(token))
	if !index.Lt(count) {
		return nil, remainingGas, ErrInvalidInput
	}
	i := index.Uint64()
	startID := new(uint256.Int)
	if i > 0 {
		startID = readWord(stateDB, endKey(token, i-1))
	}
	endID := readWord(stateDB, endKey(token, i))
	ret, err := MetadataABI.PackOutput("getMetadataBatch", startID.ToBig(), endID.ToBig(), loadLongString(stateDB, uriKey(token, i)))
	return ret, remainingGas, err
}

func (p *metadataPrecompile) emitBatchLazyMinted(env contract.AccessibleState, token common.Address, startID, endID *big.Int, baseURI string) error {
	topics, data, err := MetadataABI.PackEvent("BatchLazyMinted", token, startID, endID, baseURI)
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

// Long strings span slots: the base slot holds the byte length and chunk i
// lives at keccak(base, i).
func chunkKey(base common.Hash, index int) common.Hash {
	word := common.BigToHash(big.NewInt(int64(index)))
	return common.BytesToHash(crypto.Keccak256(base.Bytes(), word.Bytes()))
}

func storeLongString(state contract.StateDB, base common.Hash, s string) {
	state.SetState(ContractAddress, base, common.BigToHash(big.NewInt(int64(len(s)))))
	data := []byte(s)
	for i := 0; len(data) > 0; i++ {
		var word common.Hash
		n := copy(word[:], data)
		data = data[n:]
		state.SetState(ContractAddress, chunkKey(base, i), word)
	}
}

func loadLongString(state contract.StateReader, base common.Hash) string {
	length := state.GetState(ContractAddress, base)
	n := int(new(uint256.Int).SetBytes(length[:]).Uint64())
	if n == 0 {
		return ""
	}
	buf := make([]byte, 0, n)
	for i := 0; len(buf) < n; i++ {
		word := state.GetState(ContractAddress, chunkKey(base, i))
		take := n - len(buf)
		if take > 32 {
			take = 32
		}
		buf = append(buf, word[:take]...)
	}
	return string(buf)
}
