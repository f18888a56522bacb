// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hooks implements the runtime-pluggable hook registry the token
// core precompiles are extended through. A hook contract declares the
// lifecycle points it serves as a bitmask of flags. Installing the hook
// binds every declared flag to it, and the owning core dispatches the
// matching lifecycle call through a single call boundary, forwarding
// payload, value, return data, and errors unchanged.
package hooks

import (
	"strings"

	"github.com/luxfi/geth/common"
)

// Flag identifies one pluggable lifecycle point of a token core. The enum
// is closed and ordered; each consumer supports a contiguous prefix of it
// up to its own maximum flag.
type Flag uint8

const (
	// BeforeMint authorizes mints and decides the minted quantity. A core
	// with no BeforeMint hook cannot mint.
	BeforeMint Flag = iota
	// BeforeTransfer observes transfers. Optional.
	BeforeTransfer
	// BeforeBurn observes burns. Optional.
	BeforeBurn
	// BeforeApprove observes approvals. Optional.
	BeforeApprove
	// TokenURI resolves token metadata. Without it the metadata queries
	// fail.
	TokenURI
	// Royalty resolves royalty payments. Without it royalty queries
	// return zero values.
	Royalty
)

// NumFlags is the size of the closed flag enum.
const NumFlags = int(Royalty) + 1

func (f Flag) String() string {
	switch f {
	case BeforeMint:
		return "beforeMint"
	case BeforeTransfer:
		return "beforeTransfer"
	case BeforeBurn:
		return "beforeBurn"
	case BeforeApprove:
		return "beforeApprove"
	case TokenURI:
		return "tokenURI"
	case Royalty:
		return "royalty"
	default:
		return "unknownFlag"
	}
}

// Bit returns the bitmask bit of the flag.
func (f Flag) Bit() FlagSet {
	return 1 << f
}

// FlagSet is a bitmask of flags: a hook's declared capabilities, or the
// currently active flags of a consumer's registry.
type FlagSet uint8

func (s FlagSet) Has(f Flag) bool {
	return s&f.Bit() != 0
}

func (s FlagSet) Add(f Flag) FlagSet {
	return s | f.Bit()
}

func (s FlagSet) Clear(f Flag) FlagSet {
	return s &^ f.Bit()
}

func (s FlagSet) Empty() bool {
	return s == 0
}

// Mask clears every bit above [max].
func (s FlagSet) Mask(max Flag) FlagSet {
	return s & FlagSet(1<<(max+1)-1)
}

// Flags returns the flags present in the set, ascending.
func (s FlagSet) Flags() []Flag {
	flags := make([]Flag, 0, NumFlags)
	for f := BeforeMint; int(f) < NumFlags; f++ {
		if s.Has(f) {
			flags = append(flags, f)
		}
	}
	return flags
}

func (s FlagSet) String() string {
	if s.Empty() {
		return "none"
	}
	names := make([]string, 0, NumFlags)
	for _, f := range s.Flags() {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}

// Word returns the 32-byte word encoding of the set, the representation
// used by capability declarations and the active-flags query.
func (s FlagSet) Word() common.Hash {
	var word common.Hash
	word[31] = byte(s)
	return word
}

// FlagSetFromWord decodes the low byte of a storage or wire word. Higher
// bytes carry no flags and are ignored.
func FlagSetFromWord(word common.Hash) FlagSet {
	return FlagSet(word[31])
}
