// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erc721

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/modules"
	"github.com/luxfi/token/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*erc721Precompile)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "erc721TokenConfig"

// ContractAddress is the fixed address of the non-fungible token core (LP-1721).
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000001721")

// Module is the precompile module registered for the non-fungible token core.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     ERC721Precompile,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

// Configure seeds the allow list roles and the collection metadata at
// activation.
func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	if config.Name != "" {
		storeShortString(state, nameSlot, config.Name)
	}
	if config.Symbol != "" {
		storeShortString(state, symbolSlot, config.Symbol)
	}
	return config.AllowListConfig.Configure(state, ContractAddress)
}

// Config implements the precompileconfig.Config interface.
type Config struct {
	allowlist.AllowListConfig
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Name    string                   `json:"name,omitempty"`
	Symbol  string                   `json:"symbol,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.AllowListConfig.Equal(&other.AllowListConfig) &&
		c.Name == other.Name &&
		c.Symbol == other.Symbol
}

// Verify rejects metadata that does not fit the single-slot string layout.
func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	if len(c.Name) > 31 {
		return fmt.Errorf("collection name %q exceeds 31 bytes", c.Name)
	}
	if len(c.Symbol) > 31 {
		return fmt.Errorf("collection symbol %q exceeds 31 bytes", c.Symbol)
	}
	return c.AllowListConfig.Verify()
}
