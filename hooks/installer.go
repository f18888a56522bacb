// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"

	"github.com/luxfi/token/contract"
)

// Authorizer gates the two hook capabilities of a consumer core. Updating
// the hook set and writing through the gateway are distinct permissions.
type Authorizer interface {
	CanUpdateHooks(state contract.StateReader, caller common.Address) bool
	CanWriteHooks(state contract.StateReader, caller common.Address) bool
}

// Installer binds a consumer core to its hook registry. It owns
// installation and uninstallation, the generic call gateway, and the
// typed lifecycle dispatch the core runs against its installed hooks.
//
// The consumer is single-threaded per call frame; all registry mutation
// completes before any lifecycle call is issued, so a reentering hook
// observes a consistent registry.
type Installer struct {
	// Self is the consumer core's address. The registry lives in its
	// storage and events are emitted from it.
	Self common.Address
	// Max is the highest lifecycle flag the consumer supports.
	Max Flag
	// Auth gates the update and write capabilities.
	Auth Authorizer
}

// Install authorizes the caller, queries the hook's declared flags, and
// binds them. The declared-flags query is the only external call and
// happens before any state is touched; a failed install leaves the
// registry byte-identical.
func (ins *Installer) Install(env contract.AccessibleState, caller common.Address, hook common.Address, suppliedGas uint64) (uint64, error) {
	state := env.GetStateDB()
	if !ins.Auth.CanUpdateHooks(state, caller) {
		return suppliedGas, ErrUnauthorized
	}
	if hook == (common.Address{}) {
		return suppliedGas, ErrInvalidHook
	}

	declared, remainingGas, err := ins.queryDeclaredFlags(env, hook, suppliedGas)
	if err != nil {
		return remainingGas, err
	}

	reg := LoadRegistry(state, ins.Self, ins.Max)
	if err := reg.Install(hook, declared); err != nil {
		return remainingGas, err
	}
	StoreRegistry(state, ins.Self, reg)

	return remainingGas, ins.emit(env, "HooksInstalled", hook, declared)
}

// Uninstall authorizes the caller, checks membership, re-queries the
// hook's declared flags, and clears them. The re-query means a hook whose
// declaration changed since install leaves stale bindings behind; the
// sweep clears exactly what the hook declares now.
func (ins *Installer) Uninstall(env contract.AccessibleState, caller common.Address, hook common.Address, suppliedGas uint64) (uint64, error) {
	state := env.GetStateDB()
	if !ins.Auth.CanUpdateHooks(state, caller) {
		return suppliedGas, ErrUnauthorized
	}
	if !HasInstalled(state, ins.Self, hook) {
		return suppliedGas, fmt.Errorf("%w: %s", ErrNotInstalled, hook)
	}

	declared, remainingGas, err := ins.queryDeclaredFlags(env, hook, suppliedGas)
	if err != nil {
		return remainingGas, err
	}

	reg := LoadRegistry(state, ins.Self, ins.Max)
	if err := reg.Uninstall(hook, declared); err != nil {
		return remainingGas, err
	}
	StoreRegistry(state, ins.Self, reg)

	return remainingGas, ins.emit(env, "HooksUninstalled", hook, declared)
}

// queryDeclaredFlags asks the hook for its capability bitmask through a
// read-only call. The hook's own failure surfaces unchanged.
func (ins *Installer) queryDeclaredFlags(env contract.AccessibleState, hook common.Address, suppliedGas uint64) (FlagSet, uint64, error) {
	ret, remainingGas, err := env.StaticCall(hook, PackGetHooksImplemented(), suppliedGas)
	if err != nil {
		return 0, remainingGas, err
	}
	declared, err := UnpackHooksImplemented(ret)
	if err != nil {
		return 0, remainingGas, err
	}
	return declared, remainingGas, nil
}

// Read forwards a read-only payload to the hook bound to [f]. Ungated;
// return data and errors pass through unchanged.
func (ins *Installer) Read(env contract.AccessibleState, f Flag, payload []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if f > ins.Max {
		return nil, suppliedGas, ErrInvalidFlag
	}
	impl := ReadImplementation(env.GetStateDB(), ins.Self, f)
	if impl == (common.Address{}) {
		return nil, suppliedGas, fmt.Errorf("%w: flag %s", ErrNotInstalled, f)
	}
	return env.StaticCall(impl, payload, suppliedGas)
}

// Write forwards a state-mutating payload with value to the hook bound to
// [f]. The declared value must equal the value attached to the call;
// nothing is forwarded otherwise. Return data and errors pass through
// unchanged.
func (ins *Installer) Write(env contract.AccessibleState, caller common.Address, f Flag, declaredValue *uint256.Int, payload []byte, suppliedGas uint64) ([]byte, uint64, error) {
	state := env.GetStateDB()
	if !ins.Auth.CanWriteHooks(state, caller) {
		return nil, suppliedGas, ErrUnauthorized
	}
	if f > ins.Max {
		return nil, suppliedGas, ErrInvalidFlag
	}
	if declaredValue == nil {
		declaredValue = new(uint256.Int)
	}
	if !declaredValue.Eq(env.GetMsgValue()) {
		return nil, suppliedGas, fmt.Errorf("%w: declared %s, attached %s", ErrValueMismatch, declaredValue, env.GetMsgValue())
	}
	impl := ReadImplementation(state, ins.Self, f)
	if impl == (common.Address{}) {
		return nil, suppliedGas, fmt.Errorf("%w: flag %s", ErrNotInstalled, f)
	}
	return env.Call(impl, payload, suppliedGas, declaredValue)
}

// BeforeMint dispatches the mint lifecycle call, forwarding the full
// attached value to the hook, and returns the quantity the hook
// authorized. A consumer with no BeforeMint hook cannot mint.
func (ins *Installer) BeforeMint(env contract.AccessibleState, to common.Address, id, quantity *big.Int, data []byte, suppliedGas uint64) (*uint256.Int, uint64, error) {
	impl := ReadImplementation(env.GetStateDB(), ins.Self, BeforeMint)
	if impl == (common.Address{}) {
		return nil, suppliedGas, ErrMintDisabled
	}
	input, err := PackBeforeMint(to, id, quantity, data)
	if err != nil {
		return nil, suppliedGas, err
	}
	ret, remainingGas, err := env.Call(impl, input, suppliedGas, env.GetMsgValue())
	if err != nil {
		return nil, remainingGas, err
	}
	authorized, err := UnpackBeforeMintReturn(ret)
	if err != nil {
		return nil, remainingGas, err
	}
	return authorized, remainingGas, nil
}

// BeforeTransfer dispatches the transfer lifecycle call. Absence of the
// hook is a silent no-op; a failing hook blocks the transfer.
func (ins *Installer) BeforeTransfer(env contract.AccessibleState, from, to common.Address, id, amount *big.Int, suppliedGas uint64) (uint64, error) {
	impl := ReadImplementation(env.GetStateDB(), ins.Self, BeforeTransfer)
	if impl == (common.Address{}) {
		return suppliedGas, nil
	}
	input, err := PackBeforeTransfer(from, to, id, amount)
	if err != nil {
		return suppliedGas, err
	}
	_, remainingGas, err := env.Call(impl, input, suppliedGas, nil)
	return remainingGas, err
}

// BeforeBurn dispatches the burn lifecycle call. Absence of the hook is a
// silent no-op.
func (ins *Installer) BeforeBurn(env contract.AccessibleState, from common.Address, id, amount *big.Int, data []byte, suppliedGas uint64) (uint64, error) {
	impl := ReadImplementation(env.GetStateDB(), ins.Self, BeforeBurn)
	if impl == (common.Address{}) {
		return suppliedGas, nil
	}
	input, err := PackBeforeBurn(from, id, amount, data)
	if err != nil {
		return suppliedGas, err
	}
	_, remainingGas, err := env.Call(impl, input, suppliedGas, nil)
	return remainingGas, err
}

// BeforeApprove dispatches the approval lifecycle call. Absence of the
// hook is a silent no-op.
func (ins *Installer) BeforeApprove(env contract.AccessibleState, from, to common.Address, id, amount *big.Int, suppliedGas uint64) (uint64, error) {
	impl := ReadImplementation(env.GetStateDB(), ins.Self, BeforeApprove)
	if impl == (common.Address{}) {
		return suppliedGas, nil
	}
	input, err := PackBeforeApprove(from, to, id, amount)
	if err != nil {
		return suppliedGas, err
	}
	_, remainingGas, err := env.Call(impl, input, suppliedGas, nil)
	return remainingGas, err
}

// TokenURI resolves token metadata through the TokenURI hook. A consumer
// with no metadata hook has no metadata source, which is an error.
func (ins *Installer) TokenURI(env contract.AccessibleState, id *big.Int, suppliedGas uint64) (string, uint64, error) {
	impl := ReadImplementation(env.GetStateDB(), ins.Self, TokenURI)
	if impl == (common.Address{}) {
		return "", suppliedGas, fmt.Errorf("%w: flag %s", ErrNotInstalled, TokenURI)
	}
	input, err := PackTokenURI(id)
	if err != nil {
		return "", suppliedGas, err
	}
	ret, remainingGas, err := env.StaticCall(impl, input, suppliedGas)
	if err != nil {
		return "", remainingGas, err
	}
	uri, err := UnpackTokenURIReturn(ret)
	if err != nil {
		return "", remainingGas, err
	}
	return uri, remainingGas, nil
}

// RoyaltyInfo resolves the royalty payment for a sale through the Royalty
// hook. A consumer with no royalty hook pays no royalties: zero receiver,
// zero amount, no error.
func (ins *Installer) RoyaltyInfo(env contract.AccessibleState, id, salePrice *big.Int, suppliedGas uint64) (common.Address, *uint256.Int, uint64, error) {
	impl := ReadImplementation(env.GetStateDB(), ins.Self, Royalty)
	if impl == (common.Address{}) {
		return common.Address{}, new(uint256.Int), suppliedGas, nil
	}
	input, err := PackRoyaltyInfo(id, salePrice)
	if err != nil {
		return common.Address{}, nil, suppliedGas, err
	}
	ret, remainingGas, err := env.StaticCall(impl, input, suppliedGas)
	if err != nil {
		return common.Address{}, nil, remainingGas, err
	}
	receiver, amount, err := UnpackRoyaltyInfoReturn(ret)
	if err != nil {
		return common.Address{}, nil, remainingGas, err
	}
	return receiver, amount, remainingGas, nil
}

// ImplementationOf returns the hook bound to [f].
func (ins *Installer) ImplementationOf(state contract.StateReader, f Flag) (common.Address, error) {
	if f > ins.Max {
		return common.Address{}, ErrInvalidFlag
	}
	return ReadImplementation(state, ins.Self, f), nil
}

// ActiveFlags returns the currently bound flags.
func (ins *Installer) ActiveFlags(state contract.StateReader) FlagSet {
	return ReadActiveFlags(state, ins.Self)
}

// AllHooks returns the implementation snapshot for every flag up to the
// consumer's maximum; entries above it stay zero.
func (ins *Installer) AllHooks(state contract.StateReader) [NumFlags]common.Address {
	var all [NumFlags]common.Address
	for f := BeforeMint; f <= ins.Max; f++ {
		all[f] = ReadImplementation(state, ins.Self, f)
	}
	return all
}

// IsInstalled reports membership of [hook] in the installed set.
func (ins *Installer) IsInstalled(state contract.StateReader, hook common.Address) bool {
	return HasInstalled(state, ins.Self, hook)
}

// InstalledHooks returns the installed set in enumeration order.
func (ins *Installer) InstalledHooks(state contract.StateReader) []common.Address {
	return LoadRegistry(state, ins.Self, ins.Max).InstalledHooks()
}

func (ins *Installer) emit(env contract.AccessibleState, name string, hook common.Address, declared FlagSet) error {
	topics, data, err := InstallerEventsABI.PackEvent(name, hook, new(big.Int).SetUint64(uint64(declared)))
	if err != nil {
		return err
	}
	env.GetStateDB().AddLog(&ethtypes.Log{
		Address:     ins.Self,
		Topics:      topics,
		Data:        data,
		BlockNumber: env.GetBlockContext().Number().Uint64(),
	})
	return nil
}
