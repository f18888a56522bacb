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

// hookRawABI describes the entrypoints every installable hook answers.
// One signature set serves all token cores: ERC-20 callers pass a zero id.
const hookRawABI = `[
{"type":"function","name":"getHooksImplemented","stateMutability":"view","inputs":[],"outputs":[{"name":"hooks","type":"uint256"}]},
{"type":"function","name":"beforeMint","stateMutability":"payable","inputs":[{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"quantity","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"quantityToMint","type":"uint256"}]},
{"type":"function","name":"beforeTransfer","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"beforeBurn","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
{"type":"function","name":"beforeApprove","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"uri","type":"string"}]},
{"type":"function","name":"royaltyInfo","stateMutability":"view","inputs":[{"name":"id","type":"uint256"},{"name":"salePrice","type":"uint256"}],"outputs":[{"name":"receiver","type":"address"},{"name":"amount","type":"uint256"}]}
]`

// installerEventsRawABI describes the registry events every consumer core
// emits.
const installerEventsRawABI = `[
{"type":"event","name":"HooksInstalled","anonymous":false,"inputs":[{"name":"hook","type":"address","indexed":true},{"name":"flags","type":"uint256","indexed":false}]},
{"type":"event","name":"HooksUninstalled","anonymous":false,"inputs":[{"name":"hook","type":"address","indexed":true},{"name":"flags","type":"uint256","indexed":false}]}
]`

var (
	// HookABI is the parsed hook-side interface.
	HookABI = contract.ParseABI(hookRawABI)

	// InstallerEventsABI is the parsed registry event interface, shared
	// by every consumer core and by event consumers.
	InstallerEventsABI = contract.ParseABI(installerEventsRawABI)
)

// Selectors of the hook-side entrypoints. Hook precompiles dispatch on
// these.
var (
	SigGetHooksImplemented = HookABI.MethodID("getHooksImplemented")
	SigBeforeMint          = HookABI.MethodID("beforeMint")
	SigBeforeTransfer      = HookABI.MethodID("beforeTransfer")
	SigBeforeBurn          = HookABI.MethodID("beforeBurn")
	SigBeforeApprove       = HookABI.MethodID("beforeApprove")
	SigTokenURI            = HookABI.MethodID("tokenURI")
	SigRoyaltyInfo         = HookABI.MethodID("royaltyInfo")
)

// PackGetHooksImplemented returns calldata for the capability query.
func PackGetHooksImplemented() []byte {
	return SigGetHooksImplemented[:]
}

// UnpackHooksImplemented decodes a capability reply. Anything but a full
// word marks the contract as not installable.
func UnpackHooksImplemented(ret []byte) (FlagSet, error) {
	if len(ret) != common.HashLength {
		return 0, fmt.Errorf("%w: capability reply is %d bytes, want %d", ErrInvalidHook, len(ret), common.HashLength)
	}
	return FlagSetFromWord(common.BytesToHash(ret)), nil
}

func PackBeforeMint(to common.Address, id, quantity *big.Int, data []byte) ([]byte, error) {
	return HookABI.Pack("beforeMint", to, id, quantity, data)
}

// UnpackBeforeMintReturn decodes the quantity the hook authorized.
func UnpackBeforeMintReturn(ret []byte) (*uint256.Int, error) {
	vals, err := HookABI.Unpack("beforeMint", ret)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed beforeMint return: %v", ErrInvalidHook, err)
	}
	quantity, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: malformed beforeMint return", ErrInvalidHook)
	}
	q, _ := uint256.FromBig(quantity)
	return q, nil
}

func PackBeforeTransfer(from, to common.Address, id, amount *big.Int) ([]byte, error) {
	return HookABI.Pack("beforeTransfer", from, to, id, amount)
}

func PackBeforeBurn(from common.Address, id, amount *big.Int, data []byte) ([]byte, error) {
	return HookABI.Pack("beforeBurn", from, id, amount, data)
}

func PackBeforeApprove(from, to common.Address, id, amount *big.Int) ([]byte, error) {
	return HookABI.Pack("beforeApprove", from, to, id, amount)
}

func PackTokenURI(id *big.Int) ([]byte, error) {
	return HookABI.Pack("tokenURI", id)
}

func UnpackTokenURIReturn(ret []byte) (string, error) {
	vals, err := HookABI.Unpack("tokenURI", ret)
	if err != nil {
		return "", fmt.Errorf("%w: malformed tokenURI return: %v", ErrInvalidHook, err)
	}
	uri, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: malformed tokenURI return", ErrInvalidHook)
	}
	return uri, nil
}

func PackRoyaltyInfo(id, salePrice *big.Int) ([]byte, error) {
	return HookABI.Pack("royaltyInfo", id, salePrice)
}

func UnpackRoyaltyInfoReturn(ret []byte) (common.Address, *uint256.Int, error) {
	vals, err := HookABI.Unpack("royaltyInfo", ret)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: malformed royaltyInfo return: %v", ErrInvalidHook, err)
	}
	receiver, okAddr := vals[0].(common.Address)
	amount, okAmount := vals[1].(*big.Int)
	if !okAddr || !okAmount {
		return common.Address{}, nil, fmt.Errorf("%w: malformed royaltyInfo return", ErrInvalidHook)
	}
	royalty, _ := uint256.FromBig(amount)
	return receiver, royalty, nil
}

// InstallerEvent is one decoded registry event.
type InstallerEvent struct {
	// Consumer is the core that emitted the event.
	Consumer common.Address
	Hook     common.Address
	Flags    FlagSet
	// Installed is false for an uninstall event.
	Installed bool
	Block     uint64
}

// PackHooksInstalledEvent returns the topics and data of a HooksInstalled
// event carrying the raw declared bitmask.
func PackHooksInstalledEvent(hook common.Address, flags FlagSet) ([]common.Hash, []byte, error) {
	return InstallerEventsABI.PackEvent("HooksInstalled", hook, new(big.Int).SetUint64(uint64(flags)))
}

// PackHooksUninstalledEvent returns the topics and data of a
// HooksUninstalled event.
func PackHooksUninstalledEvent(hook common.Address, flags FlagSet) ([]common.Hash, []byte, error) {
	return InstallerEventsABI.PackEvent("HooksUninstalled", hook, new(big.Int).SetUint64(uint64(flags)))
}

// ParseInstallerEvent decodes a log entry. ok is false for logs that are
// not registry events; err is set only for a registry event with a
// malformed payload.
func ParseInstallerEvent(lg *ethtypes.Log) (ev InstallerEvent, ok bool, err error) {
	if len(lg.Topics) != 2 {
		return InstallerEvent{}, false, nil
	}
	var installed bool
	switch lg.Topics[0] {
	case InstallerEventsABI.Events["HooksInstalled"].ID:
		installed = true
	case InstallerEventsABI.Events["HooksUninstalled"].ID:
		installed = false
	default:
		return InstallerEvent{}, false, nil
	}

	name := "HooksUninstalled"
	if installed {
		name = "HooksInstalled"
	}
	vals, err := InstallerEventsABI.Unpack(name, lg.Data)
	if err != nil {
		return InstallerEvent{}, false, fmt.Errorf("malformed %s data: %w", name, err)
	}
	flags, okFlags := vals[0].(*big.Int)
	if !okFlags {
		return InstallerEvent{}, false, fmt.Errorf("malformed %s flags", name)
	}

	return InstallerEvent{
		Consumer:  lg.Address,
		Hook:      common.BytesToAddress(lg.Topics[1].Bytes()),
		Flags:     FlagSet(flags.Uint64()),
		Installed: installed,
		Block:     lg.BlockNumber,
	}, true, nil
}
