// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package indexer maintains an off-chain view of the hook registries from
// the installer events the token cores emit. Feeding every log of a block
// stream through Apply keeps a queryable copy of each consumer's bindings
// without touching chain state.
package indexer

import (
	"encoding/binary"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"

	"github.com/luxfi/token/hooks"
)

var (
	bindingPrefix = []byte("binding/")
	hookPrefix    = []byte("hook/")
	lastBlockKey  = []byte("lastBlock")
)

func bindingKey(consumer common.Address, f hooks.Flag) []byte {
	key := make([]byte, 0, len(bindingPrefix)+common.AddressLength+1)
	key = append(key, bindingPrefix...)
	key = append(key, consumer.Bytes()...)
	return append(key, byte(f))
}

func hooksetPrefix(consumer common.Address) []byte {
	key := make([]byte, 0, len(hookPrefix)+common.AddressLength)
	key = append(key, hookPrefix...)
	return append(key, consumer.Bytes()...)
}

func hooksetKey(consumer, hook common.Address) []byte {
	return append(hooksetPrefix(consumer), hook.Bytes()...)
}

// Indexer replays installer events into a database. Install and uninstall
// are applied with the same sweep semantics the cores use on chain, so the
// indexed bindings match chain state as long as every event is fed in
// order.
type Indexer struct {
	db  database.Database
	log log.Logger

	mu   sync.RWMutex
	caps map[common.Address]hooks.Flag
}

// New returns an indexer over the given database.
func New(db database.Database, logger log.Logger) *Indexer {
	return &Indexer{
		db:   db,
		log:  logger,
		caps: make(map[common.Address]hooks.Flag),
	}
}

// Track caps the flags indexed for a consumer at [max], matching the
// consumer core's own maximum flag. Events carry the raw declared bitmask,
// so without the cap a binding above the core's range would be indexed
// even though the core never wrote it. Untracked consumers are indexed
// across the full flag enum.
func (ix *Indexer) Track(consumer common.Address, max hooks.Flag) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.caps[consumer] = max
}

func (ix *Indexer) capOf(consumer common.Address) hooks.Flag {
	if max, ok := ix.caps[consumer]; ok {
		return max
	}
	return hooks.Royalty
}

// Apply indexes one log entry. Logs that are not installer events are
// ignored; a malformed installer event is an error.
func (ix *Indexer) Apply(lg *ethtypes.Log) error {
	ev, ok, err := hooks.ParseInstallerEvent(lg)
	if err != nil {
		ix.log.Warn("malformed installer event", "block", lg.BlockNumber, "err", err)
		return err
	}
	if !ok {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	swept := ev.Flags.Mask(ix.capOf(ev.Consumer))
	batch := ix.db.NewBatch()
	if ev.Installed {
		for _, f := range swept.Flags() {
			if err := batch.Put(bindingKey(ev.Consumer, f), ev.Hook.Bytes()); err != nil {
				return err
			}
		}
		if err := batch.Put(hooksetKey(ev.Consumer, ev.Hook), []byte{byte(ev.Flags)}); err != nil {
			return err
		}
	} else {
		for _, f := range swept.Flags() {
			if err := batch.Delete(bindingKey(ev.Consumer, f)); err != nil {
				return err
			}
		}
		if err := batch.Delete(hooksetKey(ev.Consumer, ev.Hook)); err != nil {
			return err
		}
	}

	last, err := ix.lastBlockLocked()
	if err != nil {
		return err
	}
	if ev.Block > last {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], ev.Block)
		if err := batch.Put(lastBlockKey, buf[:]); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}

	ix.log.Debug("indexed installer event",
		"consumer", ev.Consumer,
		"hook", ev.Hook,
		"flags", swept.String(),
		"installed", ev.Installed,
		"block", ev.Block,
	)
	return nil
}

// Implementation returns the hook indexed for a consumer's flag, or the
// zero address when the flag has no binding.
func (ix *Indexer) Implementation(consumer common.Address, f hooks.Flag) (common.Address, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	raw, err := ix.db.Get(bindingKey(consumer, f))
	if err == database.ErrNotFound {
		return common.Address{}, nil
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

// ActiveFlags returns the set of flags with a binding for the consumer.
func (ix *Indexer) ActiveFlags(consumer common.Address) (hooks.FlagSet, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var active hooks.FlagSet
	for f := hooks.BeforeMint; int(f) < hooks.NumFlags; f++ {
		has, err := ix.db.Has(bindingKey(consumer, f))
		if err != nil {
			return 0, err
		}
		if has {
			active = active.Add(f)
		}
	}
	return active, nil
}

// InstalledHooks returns the hooks indexed as installed on the consumer.
func (ix *Indexer) InstalledHooks(consumer common.Address) ([]common.Address, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	prefix := hooksetPrefix(consumer)
	it := ix.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	var installed []common.Address
	for it.Next() {
		key := it.Key()
		installed = append(installed, common.BytesToAddress(key[len(prefix):]))
	}
	return installed, it.Error()
}

// DeclaredFlags returns the raw bitmask the hook declared when it was
// installed on the consumer.
func (ix *Indexer) DeclaredFlags(consumer, hook common.Address) (hooks.FlagSet, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	raw, err := ix.db.Get(hooksetKey(consumer, hook))
	if err == database.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(raw) != 1 {
		return 0, false, nil
	}
	return hooks.FlagSet(raw[0]), true, nil
}

// LastIndexedBlock returns the highest block number an applied event came
// from.
func (ix *Indexer) LastIndexedBlock() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.lastBlockLocked()
}

func (ix *Indexer) lastBlockLocked() (uint64, error) {
	raw, err := ix.db.Get(lastBlockKey)
	if err == database.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}
