// Copyright 2024 The Nickel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pkg holds the package-map entities of spec §3/§4.7: package
// names, the git-object-id type locked dependencies are pinned to, the
// locked-source variants, and the flat lookup map import resolution
// consults. The lockfile resolver that builds these lives in the
// sibling package/lock package.
package pkg

import (
	"encoding/hex"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// ObjectId is a git-style 20-byte tree/commit hash. It wraps
// plumbing.Hash (go-git's own representation, grounded via kptdev-kpt's
// porch/repository/pkg/git helpers) rather than reinventing hex
// encoding, since every concrete id this core produces already comes
// from a go-git clone.
type ObjectId struct {
	hash plumbing.Hash
}

// ObjectIdParseError discriminates the two ways a candidate 40-char hex
// string can fail to be an ObjectId (spec §3, §7).
type ObjectIdParseError struct {
	Input string
	// WantLen is set (and Alphabet is false) when Input's length isn't
	// exactly 40; otherwise Alphabet is true and WantLen is unused.
	WantLen  int
	Alphabet bool
}

func (e *ObjectIdParseError) Error() string {
	if e.Alphabet {
		return fmt.Sprintf("object id %q: contains non-hex characters", e.Input)
	}
	return fmt.Sprintf("object id %q: want %d hex characters, got %d", e.Input, e.WantLen, len(e.Input))
}

// ParseObjectId parses a 40-lowercase-hex-character tree/commit id.
func ParseObjectId(s string) (ObjectId, error) {
	const wantLen = 40
	if len(s) != wantLen {
		return ObjectId{}, &ObjectIdParseError{Input: s, WantLen: wantLen}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ObjectId{}, &ObjectIdParseError{Input: s, Alphabet: true}
	}
	var h plumbing.Hash
	copy(h[:], raw)
	return ObjectId{hash: h}, nil
}

// FromPlumbingHash wraps a go-git plumbing.Hash as obtained directly
// from a clone (e.g. Repository.ResolveRevision), with no text
// round-trip.
func FromPlumbingHash(h plumbing.Hash) ObjectId { return ObjectId{hash: h} }

// Hash returns the underlying go-git hash, for callers that need to
// pass it back into go-git APIs (checkout, tree lookup, ...).
func (o ObjectId) Hash() plumbing.Hash { return o.hash }

// String displays o as exactly 40 lowercase hex characters.
func (o ObjectId) String() string { return o.hash.String() }

// Short returns the first 8 characters of o's hex form, for compact
// diagnostics (cache directory listings, log lines) where the full 40
// characters would be noise.
func (o ObjectId) Short() string {
	s := o.String()
	if len(s) < 8 {
		return s
	}
	return s[:8]
}

// IsZero reports whether o is the zero ObjectId (no tree recorded).
func (o ObjectId) IsZero() bool { return o.hash.IsZero() }
