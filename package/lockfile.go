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
	"path/filepath"
)

// LockedPackageSource is one resolved, content-addressed dependency
// source: either a git tree pinned by ObjectId plus a path within that
// tree, or a path dependency rooted directly on the filesystem (spec
// §3, §4.6). It is comparable (struct equality), since LockFile's
// Packages map is keyed by it: two manifests that resolve to the same
// concrete source must collapse to one fetch.
type LockedPackageSource struct {
	kind lockedSourceKind

	// Git fields. Path is relative to the cloned repo's root -- empty
	// for a dependency that *is* the repo root, non-empty when the
	// dependency is a subdirectory of a larger git repo (spec §4.6,
	// "resolve within the same git repo and tree").
	GitRepoURL string
	GitTree    ObjectId
	GitPath    string

	// Path field: the filesystem path as the manifest declared it;
	// ResolvePackageMap makes it absolute against the root.
	PathAbs string
}

type lockedSourceKind int

const (
	lockedSourceGit lockedSourceKind = iota
	lockedSourcePath
)

// GitSource builds a LockedPackageSource pinned to a git tree, rooted
// at path within that tree ("" for the repo root itself).
func GitSource(repoURL string, tree ObjectId, path string) LockedPackageSource {
	return LockedPackageSource{kind: lockedSourceGit, GitRepoURL: repoURL, GitTree: tree, GitPath: path}
}

// PathSourceOf builds a LockedPackageSource rooted at a filesystem
// path, stored as given: it is neither made absolute nor checked here.
func PathSourceOf(absPath string) LockedPackageSource {
	return LockedPackageSource{kind: lockedSourcePath, PathAbs: absPath}
}

// IsGit and IsPath discriminate the two variants.
func (s LockedPackageSource) IsGit() bool  { return s.kind == lockedSourceGit }
func (s LockedPackageSource) IsPath() bool { return s.kind == lockedSourcePath }

// LocalPath returns where on the local filesystem s can be found,
// given the content-addressed cache root (spec §4.6,
// "<user-cache>/<app>/<tree-id>/"). It might not exist yet if s is a
// git source that hasn't been fetched.
func (s LockedPackageSource) LocalPath(cacheRoot string) string {
	switch s.kind {
	case lockedSourceGit:
		return filepath.Join(cacheRoot, s.GitTree.String(), s.GitPath)
	case lockedSourcePath:
		return s.PathAbs
	default:
		return ""
	}
}

// RepoRoot returns the root of the git clone s was fetched into, and
// true, if s is a git source; otherwise it returns false. Nested path
// dependencies inside a git dependency use this to restrict where
// their own path deps may point (spec §4.6, RestrictedPath).
func (s LockedPackageSource) RepoRoot(cacheRoot string) (string, bool) {
	if s.kind != lockedSourceGit {
		return "", false
	}
	return filepath.Join(cacheRoot, s.GitTree.String()), true
}

func (s LockedPackageSource) String() string {
	switch s.kind {
	case lockedSourceGit:
		if s.GitPath == "" {
			return fmt.Sprintf("git:%s@%s", s.GitRepoURL, s.GitTree.Short())
		}
		return fmt.Sprintf("git:%s@%s/%s", s.GitRepoURL, s.GitTree.Short(), s.GitPath)
	case lockedSourcePath:
		return fmt.Sprintf("path:%s", s.PathAbs)
	default:
		return "<invalid LockedPackageSource>"
	}
}

// LockFileEntry is one locked source's human-readable name (for
// diagnostics only -- not part of its identity) and its own direct
// dependencies, each keyed by the Name its declaring manifest used
// (spec §4.6, "Flattening").
type LockFileEntry struct {
	Name         Name
	Dependencies map[Name]LockedPackageSource
}

// LockFile is the fully flattened, on-disk dependency graph a manifest
// resolves to: the root manifest's own Name -> source map, and for
// every distinct LockedPackageSource reachable from there, its entry
// (spec §3, "the flattened transitive closure of every package the
// root manifest depends on"). The package list is not guaranteed
// closed: path dependencies are not locked, since they may change at
// any time, so their own dependencies aren't necessarily present here.
type LockFile struct {
	Dependencies map[Name]LockedPackageSource
	Packages     map[LockedPackageSource]LockFileEntry
}

// NewLockFile returns an empty LockFile ready to be populated by a
// resolver.
func NewLockFile() *LockFile {
	return &LockFile{
		Dependencies: make(map[Name]LockedPackageSource),
		Packages:     make(map[LockedPackageSource]LockFileEntry),
	}
}

// ResolvedLockFile pairs a LockFile with the root directory its paths
// were resolved relative to, so a consumer can turn a path
// dependency's recorded LockedPackageSource back into the same
// absolute path it was resolved against.
type ResolvedLockFile struct {
	RootDir string
	Inner   LockFile
}
