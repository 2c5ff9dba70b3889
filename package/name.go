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

package pkg

import (
	"fmt"
	"strings"
)

// Name is a package name, displayed as "org/package"; exactly one '/'
// is allowed, and each half must parse as a surface-language
// identifier (spec §3). Identifier validation itself is the parser's
// concern (out of scope here); Name only enforces the shape.
type Name struct {
	Org     string
	Package string
}

// NameParseError reports why a candidate "org/package" string is not a
// valid Name.
type NameParseError struct {
	Input  string
	Reason string
}

func (e *NameParseError) Error() string {
	return fmt.Sprintf("package name %q: %s", e.Input, e.Reason)
}

// ParseName parses "org/package", requiring exactly one slash and both
// halves non-empty.
func ParseName(s string) (Name, error) {
	parts := strings.Split(s, "/")
	switch {
	case len(parts) != 2:
		return Name{}, &NameParseError{Input: s, Reason: "must contain exactly one '/'"}
	case parts[0] == "":
		return Name{}, &NameParseError{Input: s, Reason: "org half is empty"}
	case parts[1] == "":
		return Name{}, &NameParseError{Input: s, Reason: "package half is empty"}
	}
	return Name{Org: parts[0], Package: parts[1]}, nil
}

func (n Name) String() string { return n.Org + "/" + n.Package }

// MarshalText implements encoding.TextMarshaler, so Name can be used
// directly as a JSON object key (the lockfile's on-disk "dependencies"
// map is keyed by Name).
func (n Name) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(b []byte) error {
	parsed, err := ParseName(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
