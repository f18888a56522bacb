// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import "errors"

// Registry and gateway failures. Errors raised by a hook itself are never
// wrapped in these; they pass through the dispatch boundary unchanged.
var (
	// ErrUnauthorized is returned when the caller lacks the capability an
	// operation requires (hook updates and gateway writes are gated
	// separately).
	ErrUnauthorized = errors.New("unauthorized: caller lacks hook permission")

	// ErrInvalidFlag is returned for a flag argument above the consumer's
	// supported range.
	ErrInvalidFlag = errors.New("invalid flag: exceeds consumer's flag range")

	// ErrInvalidHook is returned for a hook handle that cannot be
	// installed: the zero address, or a contract answering the capability
	// query with a malformed reply.
	ErrInvalidHook = errors.New("invalid hook contract")

	// ErrAlreadyInstalled is returned when any declared flag is already
	// bound to a hook.
	ErrAlreadyInstalled = errors.New("hook already installed for flag")

	// ErrNotInstalled is returned when an operation targets a hook or
	// flag with no installed implementation.
	ErrNotInstalled = errors.New("hook not installed")

	// ErrValueMismatch is returned when the declared value of a gateway
	// write differs from the value attached to the call.
	ErrValueMismatch = errors.New("declared value does not match attached value")

	// ErrCallFailed is returned for a forwarded call that failed without
	// an error of its own.
	ErrCallFailed = errors.New("hook call failed")

	// ErrMintDisabled is returned when minting is attempted with no
	// BeforeMint hook installed.
	ErrMintDisabled = errors.New("minting disabled: no beforeMint hook installed")

	// ErrAddressFlagMismatch is returned when a flag-stamped hook address
	// does not encode the flags the contract declares.
	ErrAddressFlagMismatch = errors.New("hook address does not encode declared flags")
)
