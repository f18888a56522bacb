// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erc1155

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/token/allowlist"
	"github.com/luxfi/token/contract"
	"github.com/luxfi/token/modules"
	"github.com/luxfi/token/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*erc1155Precompile)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "erc1155TokenConfig"

// ContractAddress is the fixed address of the multi-token core (LP-1155).
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000001155")

// Module is the precompile module registered for the multi-token core.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     ERC1155Precompile,
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

// Configure seeds the allow list roles at activation. The multi-token core
// carries no collection metadata of its own; uri strings come from hooks.
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
	return config.AllowListConfig.Configure(state, ContractAddress)
}

// Config implements the precompileconfig.Config interface.
type Config struct {
	allowlist.AllowListConfig
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
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
		c.AllowListConfig.Equal(&other.AllowListConfig)
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return c.AllowListConfig.Verify()
}
