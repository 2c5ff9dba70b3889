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

	"github.com/cloudyluna/nickel/errors"
	"github.com/cloudyluna/nickel/token"
)

// depKey indexes PackageMap.packages: "the package fetched at
// ParentPath imports Dep". Keying by the parent's own local path
// (rather than by LockedPackageSource directly) matches how import
// resolution actually has the parent in hand -- it knows what
// directory its own source file lives under, not which lock-file
// entry produced that directory (spec §4.7).
type depKey struct {
	ParentPath string
	Dep        Name
}

// PackageMap is the flat "import resolution consults this, not the
// lockfile" lookup spec §4.7 describes: given the directory the
// requesting file's package was fetched into (or nothing, for the
// root package) and a dependency Name it imports, the directory that
// dependency was fetched into.
type PackageMap struct {
	// TopLevel is the root manifest's own Name -> local-path map.
	TopLevel map[Name]string
	// packages is every non-root package's Name -> local-path map,
	// keyed by (that package's own local path, dependency name).
	packages map[depKey]string
	// knownParents is the set of local paths that are themselves a
	// resolved package root, whether or not that package happens to
	// have any dependencies of its own. Resolve consults this (rather
	// than packages) to tell "no such dependency" apart from "no such
	// parent" (spec §4.7, §7).
	knownParents map[string]bool
}

// NewPackageMap builds a PackageMap from a resolved lock file (spec
// §4.6): each top-level dependency maps to its LocalPath (a path
// dependency's path is used as recorded, so it must already be
// absolute), and every non-path-keyed package's
// own dependencies are copied in as (parent-path, dep-name) ->
// dep-path. Expanding the root's own path dependencies' transitive
// closures (step 3, which requires fetching) is the resolver's job,
// not this constructor's; callers that already have a fully expanded
// LockFile (all path-dep subtrees flattened in) can use this directly.
func NewPackageMap(lf *LockFile, cacheRoot string) *PackageMap {
	pm := &PackageMap{
		TopLevel:     make(map[Name]string),
		packages:     make(map[depKey]string),
		knownParents: make(map[string]bool),
	}
	for name, src := range lf.Dependencies {
		pm.TopLevel[name] = src.LocalPath(cacheRoot)
	}
	for src, entry := range lf.Packages {
		if src.IsPath() {
			continue
		}
		parentPath := src.LocalPath(cacheRoot)
		pm.knownParents[parentPath] = true
		for depName, depSrc := range entry.Dependencies {
			pm.packages[depKey{ParentPath: parentPath, Dep: depName}] = depSrc.LocalPath(cacheRoot)
		}
	}
	return pm
}

// Merge folds other's entries into pm, overwriting on key collision.
func (pm *PackageMap) Merge(other *PackageMap) {
	for name, path := range other.TopLevel {
		pm.TopLevel[name] = path
	}
	for k, path := range other.packages {
		pm.packages[k] = path
	}
	for p := range other.knownParents {
		pm.knownParents[p] = true
	}
}

// Put records that the package at parentPath depends on dep at
// depPath; used directly by the resolver while expanding path
// dependencies, where the LockedPackageSource values themselves are
// transient and only the resolved local paths matter (spec §4.6,
// mirroring LockedSpec.flatten_into_map).
func (pm *PackageMap) Put(parentPath string, dep Name, depPath string) {
	pm.knownParents[parentPath] = true
	pm.packages[depKey{ParentPath: parentPath, Dep: dep}] = depPath
}

// MissingDependency reports that a package imported a Name its own
// manifest never declared a dependency on -- a resolvable user error,
// caught at import-resolution time rather than earlier, since package
// imports aren't distinguished from file imports syntactically (spec
// §4.7).
type MissingDependency struct {
	// ParentPath is the local path of the package doing the importing,
	// or "" (IsRoot true) if it's the root manifest.
	ParentPath string
	IsRoot     bool
	Missing    Name
	Pos        token.Pos
}

func (e *MissingDependency) Error() string {
	who := e.ParentPath
	if e.IsRoot {
		who = "the root package"
	}
	return fmt.Sprintf("%s: %s does not depend on package %q", e.Pos, who, e.Missing)
}

// Position, InputPositions, Path, and Msg let MissingDependency satisfy
// errors.Error, so it can be accumulated into an errors.List and
// rendered by errors.Print alongside the pattern-type elaborator's
// unification failures.
func (e *MissingDependency) Position() token.Pos         { return e.Pos }
func (e *MissingDependency) InputPositions() []token.Pos { return nil }
func (e *MissingDependency) Path() []string              { return nil }
func (e *MissingDependency) Msg() (string, []interface{}) {
	who := e.ParentPath
	if e.IsRoot {
		who = "the root package"
	}
	return "%s does not depend on package %q", []interface{}{who, e.Missing}
}

// InternalError is an internal-error condition: a parent path not
// present in the PackageMap at all means the caller is asking on
// behalf of a package the resolver never fetched, which should be
// impossible if import resolution only ever looks up packages it
// itself resolved into the lock file first (spec §7).
type InternalError struct {
	Reason string
	Pos    token.Pos
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: internal error: %s", e.Pos, e.Reason)
}

func (e *InternalError) Position() token.Pos         { return e.Pos }
func (e *InternalError) InputPositions() []token.Pos { return nil }
func (e *InternalError) Path() []string              { return nil }
func (e *InternalError) Msg() (string, []interface{}) {
	return "internal error: %s", []interface{}{e.Reason}
}

var (
	_ errors.Error = &MissingDependency{}
	_ errors.Error = &InternalError{}
)

// ResolveFromRoot looks up dep as imported by the root manifest itself.
func (pm *PackageMap) ResolveFromRoot(dep Name, pos token.Pos) (string, error) {
	if dir, ok := pm.TopLevel[dep]; ok {
		return dir, nil
	}
	return "", &MissingDependency{IsRoot: true, Missing: dep, Pos: pos}
}

// Resolve looks up dep as imported by the package fetched at
// parentPath. It returns MissingDependency if that package's own
// manifest never declared dep, and InternalError if parentPath itself
// names no package this PackageMap knows about at all (a resolver
// bug, not a user error).
func (pm *PackageMap) Resolve(parentPath string, dep Name, pos token.Pos) (string, error) {
	if dir, ok := pm.packages[depKey{ParentPath: parentPath, Dep: dep}]; ok {
		return dir, nil
	}
	if !pm.knownParents[parentPath] {
		return "", &InternalError{Reason: fmt.Sprintf("unknown parent package %q", parentPath), Pos: pos}
	}
	return "", &MissingDependency{ParentPath: parentPath, Missing: dep, Pos: pos}
}
