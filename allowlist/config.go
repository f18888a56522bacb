// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package allowlist

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/token/contract"
)

// AllowListConfig is embedded in the chain config of every precompile
// carrying an allow list. The listed accounts are seeded with their roles
// when the precompile activates.
type AllowListConfig struct {
	AdminAddresses   []common.Address `json:"adminAddresses,omitempty"`
	ManagerAddresses []common.Address `json:"managerAddresses,omitempty"`
	EnabledAddresses []common.Address `json:"enabledAddresses,omitempty"`
}

// Configure seeds the configured roles into [contractAddress]'s allow
// list.
func (c *AllowListConfig) Configure(state contract.StateDB, contractAddress common.Address) error {
	for _, enabledAddr := range c.EnabledAddresses {
		SetAllowListRole(state, contractAddress, enabledAddr, EnabledRole)
	}
	for _, managerAddr := range c.ManagerAddresses {
		SetAllowListRole(state, contractAddress, managerAddr, ManagerRole)
	}
	for _, adminAddr := range c.AdminAddresses {
		SetAllowListRole(state, contractAddress, adminAddr, AdminRole)
	}
	return nil
}

// Verify returns an error if an address appears more than once across the
// configured role lists.
func (c *AllowListConfig) Verify() error {
	addressCount := len(c.AdminAddresses) + len(c.ManagerAddresses) + len(c.EnabledAddresses)
	seen := make(map[common.Address]struct{}, addressCount)
	for _, list := range [][]common.Address{c.AdminAddresses, c.ManagerAddresses, c.EnabledAddresses} {
		for _, addr := range list {
			if _, ok := seen[addr]; ok {
				return fmt.Errorf("duplicate address in allow list config: %s", addr)
			}
			seen[addr] = struct{}{}
		}
	}
	return nil
}

// Equal returns true if [other] carries the same role lists.
func (c *AllowListConfig) Equal(other *AllowListConfig) bool {
	if other == nil {
		return false
	}
	return equalAddressLists(c.AdminAddresses, other.AdminAddresses) &&
		equalAddressLists(c.ManagerAddresses, other.ManagerAddresses) &&
		equalAddressLists(c.EnabledAddresses, other.EnabledAddresses)
}

func equalAddressLists(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i, addr := range a {
		if addr != b[i] {
			return false
		}
	}
	return true
}
