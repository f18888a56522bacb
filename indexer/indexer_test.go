// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/erc20"
	"github.com/luxfi/token/hooks"
)

var (
	consumerAddr = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	hookAAddr    = common.HexToAddress("0xcc00000000000000000000000000000000000001")
	hookBAddr    = common.HexToAddress("0xcc00000000000000000000000000000000000002")
	adminAddr    = common.HexToAddress("0x1000000000000000000000000000000000000001")
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	db := memdb.New()
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return New(db, log.NewTestLogger(log.InfoLevel))
}

func installLog(t *testing.T, consumer, hook common.Address, flags hooks.FlagSet, block uint64) *ethtypes.Log {
	t.Helper()
	topics, data, err := hooks.PackHooksInstalledEvent(hook, flags)
	require.NoError(t, err)
	return &ethtypes.Log{Address: consumer, Topics: topics, Data: data, BlockNumber: block}
}

func uninstallLog(t *testing.T, consumer, hook common.Address, flags hooks.FlagSet, block uint64) *ethtypes.Log {
	t.Helper()
	topics, data, err := hooks.PackHooksUninstalledEvent(hook, flags)
	require.NoError(t, err)
	return &ethtypes.Log{Address: consumer, Topics: topics, Data: data, BlockNumber: block}
}

func TestApplyInstall(t *testing.T) {
	ix := newTestIndexer(t)
	flags := hooks.BeforeMint.Bit() | hooks.BeforeTransfer.Bit()

	require.NoError(t, ix.Apply(installLog(t, consumerAddr, hookAAddr, flags, 7)))

	impl, err := ix.Implementation(consumerAddr, hooks.BeforeMint)
	require.NoError(t, err)
	require.Equal(t, hookAAddr, impl)

	impl, err = ix.Implementation(consumerAddr, hooks.BeforeBurn)
	require.NoError(t, err)
	require.Equal(t, common.Address{}, impl)

	active, err := ix.ActiveFlags(consumerAddr)
	require.NoError(t, err)
	require.Equal(t, flags, active)

	installed, err := ix.InstalledHooks(consumerAddr)
	require.NoError(t, err)
	require.Equal(t, []common.Address{hookAAddr}, installed)

	declared, found, err := ix.DeclaredFlags(consumerAddr, hookAAddr)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, flags, declared)

	last, err := ix.LastIndexedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(7), last)
}

// TestUninstallClearsSweep mirrors the on-chain uninstall: the sweep clears
// every flag the departing hook declares, including a flag a later install
// took over.
func TestUninstallClearsSweep(t *testing.T) {
	ix := newTestIndexer(t)

	require.NoError(t, ix.Apply(installLog(t, consumerAddr, hookAAddr, hooks.BeforeMint.Bit()|hooks.BeforeTransfer.Bit(), 1)))
	require.NoError(t, ix.Apply(installLog(t, consumerAddr, hookBAddr, hooks.BeforeTransfer.Bit(), 2)))

	impl, err := ix.Implementation(consumerAddr, hooks.BeforeTransfer)
	require.NoError(t, err)
	require.Equal(t, hookBAddr, impl)

	require.NoError(t, ix.Apply(uninstallLog(t, consumerAddr, hookAAddr, hooks.BeforeMint.Bit()|hooks.BeforeTransfer.Bit(), 3)))

	active, err := ix.ActiveFlags(consumerAddr)
	require.NoError(t, err)
	require.True(t, active.Empty())

	installed, err := ix.InstalledHooks(consumerAddr)
	require.NoError(t, err)
	require.Equal(t, []common.Address{hookBAddr}, installed)
}

func TestTrackCapsIndexedFlags(t *testing.T) {
	ix := newTestIndexer(t)
	ix.Track(consumerAddr, hooks.BeforeApprove)
	raw := hooks.BeforeMint.Bit() | hooks.TokenURI.Bit() | hooks.Royalty.Bit()

	require.NoError(t, ix.Apply(installLog(t, consumerAddr, hookAAddr, raw, 1)))

	active, err := ix.ActiveFlags(consumerAddr)
	require.NoError(t, err)
	require.Equal(t, hooks.BeforeMint.Bit(), active)

	// The declared set keeps the raw bitmask from the event.
	declared, found, err := ix.DeclaredFlags(consumerAddr, hookAAddr)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, raw, declared)
}

func TestIgnoresUnrelatedLogs(t *testing.T) {
	ix := newTestIndexer(t)

	require.NoError(t, ix.Apply(&ethtypes.Log{
		Address:     consumerAddr,
		Topics:      []common.Hash{common.BigToHash(big.NewInt(1))},
		BlockNumber: 9,
	}))

	active, err := ix.ActiveFlags(consumerAddr)
	require.NoError(t, err)
	require.True(t, active.Empty())

	last, err := ix.LastIndexedBlock()
	require.NoError(t, err)
	require.Zero(t, last)
}

func TestMalformedEventRejected(t *testing.T) {
	ix := newTestIndexer(t)

	err := ix.Apply(&ethtypes.Log{
		Address: consumerAddr,
		Topics: []common.Hash{
			hooks.InstallerEventsABI.Events["HooksInstalled"].ID,
			common.BytesToHash(hookAAddr.Bytes()),
		},
		Data:        []byte{0x01},
		BlockNumber: 9,
	})
	require.Error(t, err)
}

func TestLastBlockMonotonic(t *testing.T) {
	ix := newTestIndexer(t)

	require.NoError(t, ix.Apply(installLog(t, consumerAddr, hookAAddr, hooks.BeforeMint.Bit(), 9)))
	require.NoError(t, ix.Apply(installLog(t, consumerAddr, hookBAddr, hooks.BeforeBurn.Bit(), 5)))

	last, err := ix.LastIndexedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(9), last)
}

// capHook declares a raw bitmask that reaches past the fungible core's
// flag range.
type capHook struct{}

func (capHook) Run(env contract.AccessibleState, caller common.Address, addr common.Address, input []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	declared := hooks.BeforeMint.Bit() | hooks.BeforeTransfer.Bit() | hooks.TokenURI.Bit()
	return declared.Word().Bytes(), suppliedGas, nil
}

// TestIndexFromCoreLogs drives the fungible core and replays its logs,
// asserting the index converges to the core's own registry view.
func TestIndexFromCoreLogs(t *testing.T) {
	state := contract.NewMockStateDB()
	env := contract.NewMockAccessibleState(state)
	env.SetSelf(erc20.ContractAddress)
	env.RegisterContract(hookAAddr, capHook{})

	cfg := &erc20.Config{AllowListConfig: allowlist.AllowListConfig{AdminAddresses: []common.Address{adminAddr}}}
	require.NoError(t, erc20.Module.Configurator.Configure(nil, cfg, state, contract.NewMockBlockContext(big.NewInt(1), 0)))

	input, err := erc20.ERC20ABI.Pack("installHook", hookAAddr)
	require.NoError(t, err)
	_, _, err = erc20.ERC20Precompile.Run(env, adminAddr, erc20.ContractAddress, input, uint64(10_000_000), false)
	require.NoError(t, err)

	ix := newTestIndexer(t)
	ix.Track(erc20.ContractAddress, hooks.BeforeApprove)
	for _, lg := range state.Logs() {
		require.NoError(t, ix.Apply(lg))
	}

	// The core masked the sweep at its own range; so does the index.
	active, err := ix.ActiveFlags(erc20.ContractAddress)
	require.NoError(t, err)
	require.Equal(t, hooks.BeforeMint.Bit()|hooks.BeforeTransfer.Bit(), active)

	impl, err := ix.Implementation(erc20.ContractAddress, hooks.BeforeMint)
	require.NoError(t, err)
	require.Equal(t, hookAAddr, impl)

	input, err = erc20.ERC20ABI.Pack("uninstallHook", hookAAddr)
	require.NoError(t, err)
	_, _, err = erc20.ERC20Precompile.Run(env, adminAddr, erc20.ContractAddress, input, uint64(10_000_000), false)
	require.NoError(t, err)

	logs := state.Logs()
	require.NoError(t, ix.Apply(logs[len(logs)-1]))

	active, err = ix.ActiveFlags(erc20.ContractAddress)
	require.NoError(t, err)
	require.True(t, active.Empty())

	installed, err := ix.InstalledHooks(erc20.ContractAddress)
	require.NoError(t, err)
	require.Empty(t, installed)
}
