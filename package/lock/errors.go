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

package lock

import "fmt"

// InvalidPathImport reports a path dependency that cannot be resolved
// at all -- e.g. a path dependency nested in a manifest with no
// ParentDir to anchor it (spec §7).
type InvalidPathImport struct {
	Name Source
}

func (e *InvalidPathImport) Error() string {
	return fmt.Sprintf("invalid path import: %q", e.Name.Path)
}

// RestrictedPath reports a path dependency, nested inside a git
// dependency, whose resolved absolute path escapes that git repo's
// root -- path dependencies of a git package may only reach within the
// same clone (spec §4.6).
type RestrictedPath struct {
	Attempted   string
	Restriction string
}

func (e *RestrictedPath) Error() string {
	return fmt.Sprintf("path %q escapes the package root %q it must stay within", e.Attempted, e.Restriction)
}
