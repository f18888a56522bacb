// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package allowlist implements the role storage shared by the token core
// precompiles. Each core keeps an allow list in its own storage space:
// admins administer roles and hook installations, managers administer
// enabled accounts and hook installations, enabled accounts may write
// through the hook gateway.
package allowlist

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/token/contract"
)

// Gas costs for allow list operations.
const (
	ModifyAllowListGasCost = 20_000
	ReadAllowListGasCost   = 5_000
)

var (
	ErrCannotModifyAllowList = errors.New("cannot modify allow list")
	ErrInvalidAllowListInput = errors.New("invalid allow list input")
)

// Role is the permission level of an account, stored as a full storage
// word.
type Role common.Hash

var (
	NoRole      = Role(common.BigToHash(common.Big0))
	EnabledRole = Role(common.BigToHash(common.Big1))
	AdminRole   = Role(common.BigToHash(common.Big2))
	ManagerRole = Role(common.BigToHash(common.Big3))
)

// IsNoRole returns true if [r] indicates no permissions.
func (r Role) IsNoRole() bool {
	return r == NoRole
}

// IsEnabled returns true if [r] indicates the account may use the gated
// functionality (enabled, manager, and admin accounts all qualify).
func (r Role) IsEnabled() bool {
	switch r {
	case EnabledRole, ManagerRole, AdminRole:
		return true
	default:
		return false
	}
}

// IsAdmin returns true if [r] is the admin role.
func (r Role) IsAdmin() bool {
	return r == AdminRole
}

// CanModify returns true if an account with role [r] may change the role
// of an account currently holding [from] to [target]. Admins may set any
// role; managers may only move accounts between NoRole and EnabledRole.
func (r Role) CanModify(from, target Role) bool {
	switch r {
	case AdminRole:
		return true
	case ManagerRole:
		return (from == NoRole || from == EnabledRole) && (target == NoRole || target == EnabledRole)
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case NoRole:
		return "NoRole"
	case EnabledRole:
		return "EnabledRole"
	case ManagerRole:
		return "ManagerRole"
	case AdminRole:
		return "AdminRole"
	default:
		return "UnknownRole"
	}
}

// allowListStorageKey returns the storage key holding the role of
// [address]. The address is left-padded to a full word, keeping role slots
// disjoint from the keccak-derived slots the cores use for everything
// else.
func allowListStorageKey(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

// GetAllowListStatus returns the role of [address] on the allow list kept
// in [contractAddress]'s storage.
func GetAllowListStatus(state contract.StateReader, contractAddress common.Address, address common.Address) Role {
	return Role(state.GetState(contractAddress, allowListStorageKey(address)))
}

// SetAllowListRole sets the role of [address] on the allow list kept in
// [contractAddress]'s storage. Assumes [role] has already been verified as
// valid.
func SetAllowListRole(state contract.StateDB, contractAddress common.Address, address common.Address, role Role) {
	state.SetState(contractAddress, allowListStorageKey(address), common.Hash(role))
}

// RunSetRole handles one of the setAdmin/setManager/setEnabled/setNone
// selectors for the allow list kept at [contractAddress]. [args] is the
// packed 32-byte target address word.
func RunSetRole(state contract.StateDB, contractAddress common.Address, caller common.Address, args []byte, suppliedGas uint64, readOnly bool, role Role) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < ModifyAllowListGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ModifyAllowListGasCost

	if len(args) != common.HashLength {
		return nil, remainingGas, ErrInvalidAllowListInput
	}
	target := common.BytesToAddress(args[12:32])

	callerRole := GetAllowListStatus(state, contractAddress, caller)
	targetRole := GetAllowListStatus(state, contractAddress, target)
	if !callerRole.CanModify(targetRole, role) {
		return nil, remainingGas, fmt.Errorf("%w: caller %s with role %s cannot set role %s for %s", ErrCannotModifyAllowList, caller, callerRole, role, target)
	}

	SetAllowListRole(state, contractAddress, target, role)
	return []byte{}, remainingGas, nil
}

// RunReadAllowList handles the readAllowList selector for the allow list
// kept at [contractAddress]. Returns the role word of the target address.
func RunReadAllowList(state contract.StateReader, contractAddress common.Address, args []byte, suppliedGas uint64) ([]byte, uint64, error) {
	if suppliedGas < ReadAllowListGasCost {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas := suppliedGas - ReadAllowListGasCost

	if len(args) != common.HashLength {
		return nil, remainingGas, ErrInvalidAllowListInput
	}
	target := common.BytesToAddress(args[12:32])
	role := GetAllowListStatus(state, contractAddress, target)
	return common.Hash(role).Bytes(), remainingGas, nil
}

// Authorizer exposes the hook capability checks backed by an allow list.
// Admins and managers may change the hook set; any enabled account may
// write through the hook gateway.
type Authorizer struct {
	ContractAddress common.Address
}

func (a Authorizer) CanUpdateHooks(state contract.StateReader, caller common.Address) bool {
	role := GetAllowListStatus(state, a.ContractAddress, caller)
	return role == AdminRole || role == ManagerRole
}

func (a Authorizer) CanWriteHooks(state contract.StateReader, caller common.Address) bool {
	return GetAllowListStatus(state, a.ContractAddress, caller).IsEnabled()
}
