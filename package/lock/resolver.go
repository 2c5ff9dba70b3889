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

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	pkg "github.com/cloudyluna/nickel/package"
	"github.com/cloudyluna/nickel/term"
)

// ManifestEvaluator is the resolver's only collaborator with the
// evaluator, which is out of scope for this core (spec §1, "treated as
// an external collaborator with only its contract specified"):
// evaluating a manifest file on disk down to the record term
// ParseManifest expects.
type ManifestEvaluator interface {
	EvalManifestFile(path string) (*term.RichTerm, error)
}

// Resolver realises manifest dependency specs into locked sources and
// flattens the resulting tree into a LockFile (spec §4.6).
type Resolver struct {
	CacheRoot string
	Fetcher   Fetcher
	Eval      ManifestEvaluator
}

// NewResolver builds a Resolver using the real git Fetcher.
func NewResolver(cacheRoot string, eval ManifestEvaluator) *Resolver {
	return &Resolver{CacheRoot: cacheRoot, Fetcher: GitFetcher{}, Eval: eval}
}

// realize makes src locally available and returns its locked form,
// with no recursion into its own dependencies yet. Git sources are
// fetched via a temp-dir-then-rename protocol so that another session
// racing to realise the same tree id only ever observes either no
// directory or a complete one (spec §5, "fetch-then-rename protocol").
func (r *Resolver) realize(src Source) (pkg.LockedPackageSource, error) {
	switch {
	case src.IsPath():
		return pkg.PathSourceOf(src.Path), nil
	case src.IsGit():
		if err := os.MkdirAll(r.CacheRoot, 0o755); err != nil {
			return pkg.LockedPackageSource{}, err
		}
		staging := filepath.Join(r.CacheRoot, ".staging-"+uuid.NewString())
		defer os.RemoveAll(staging)

		head, err := r.Fetcher.Clone(src.URL, staging)
		if err != nil {
			return pkg.LockedPackageSource{}, err
		}

		dest := filepath.Join(r.CacheRoot, head.String())
		if _, err := os.Stat(dest); err == nil {
			log.Debug().Str("dest", dest).Msg("package cache entry already present")
		} else {
			if err := os.Rename(staging, dest); err != nil {
				return pkg.LockedPackageSource{}, err
			}
		}
		return pkg.GitSource(src.URL, head, ""), nil
	default:
		panic("lock: Source with unknown kind")
	}
}

// LockedSpec is one realised dependency, with its own transitively
// realised dependencies still attached as a tree -- Flatten/FlattenInto
// collapse it into the LockFile's map shape (spec §4.6, "Flattening").
type LockedSpec struct {
	Name         pkg.Name
	Source       pkg.LockedPackageSource
	Dependencies []*LockedSpec
}

// RealizeRec resolves spec and every dependency reachable from it.
// relativeTo, when non-nil, must be a git source or an absolute path;
// path dependencies nested under it are resolved relative to it, with
// an escape from a git relativeTo's own repo root rejected as
// RestrictedPath. A nil relativeTo leaves nested path dependencies
// unresolved relative to anything but their own declaring manifest's
// ParentDir.
func (r *Resolver) RealizeRec(spec Spec, relativeTo *pkg.LockedPackageSource) (*LockedSpec, error) {
	source, err := r.realize(spec.Source)
	if err != nil {
		return nil, err
	}

	var manifestDir string
	hasManifestDir := false

	switch {
	case source.IsGit():
		manifestDir = source.LocalPath(r.CacheRoot)
		hasManifestDir = true
	case relativeTo == nil:
		manifestDir = source.PathAbs
		hasManifestDir = manifestDir != ""
	default:
		joined := filepath.Join(relativeTo.LocalPath(r.CacheRoot), source.PathAbs)
		abs := normalizeAbsPath(joined)
		if root, isGit := relativeTo.RepoRoot(r.CacheRoot); isGit {
			rel, err := filepath.Rel(root, abs)
			if err != nil || strings.HasPrefix(rel, "..") {
				return nil, &RestrictedPath{Attempted: abs, Restriction: root}
			}
			source = pkg.GitSource(relativeTo.GitRepoURL, relativeTo.GitTree, rel)
		} else {
			source = pkg.PathSourceOf(abs)
		}
		manifestDir = abs
		hasManifestDir = true
	}

	var deps []*LockedSpec
	if hasManifestDir && r.Eval != nil {
		manifestPath := filepath.Join(manifestDir, "package.ncl")
		manifestTerm, err := r.Eval.EvalManifestFile(manifestPath)
		if err == nil {
			dir := manifestDir
			manifest, err := ParseManifest(manifestTerm, &dir)
			if err == nil {
				for _, childSpec := range manifest.DependencySpecs() {
					child, err := r.RealizeRec(childSpec, &source)
					if err != nil {
						return nil, err
					}
					deps = append(deps, child)
				}
			}
		}
		// A package with no package.ncl simply has no further
		// dependencies to realise -- this is not an error (spec §4.6
		// only calls a manifest's own manifest "if present").
	}

	return &LockedSpec{Name: spec.Name, Source: source, Dependencies: deps}, nil
}

// Flatten builds a fresh LockFile from ls.
func (ls *LockedSpec) Flatten() *pkg.LockFile {
	lf := pkg.NewLockFile()
	ls.FlattenInto(lf)
	return lf
}

// FlattenInto inserts ls and every descendant into lf, keyed by each
// node's own Source; a source reached two different ways collapses
// into a single entry (spec §4.6, "duplicate sources collapse").
func (ls *LockedSpec) FlattenInto(lf *pkg.LockFile) {
	deps := make(map[pkg.Name]pkg.LockedPackageSource, len(ls.Dependencies))
	for _, dep := range ls.Dependencies {
		deps[dep.Name] = dep.Source
	}
	lf.Packages[ls.Source] = pkg.LockFileEntry{Name: ls.Name, Dependencies: deps}
	for _, dep := range ls.Dependencies {
		dep.FlattenInto(lf)
	}
}

// Lock realises every dependency m declares and returns the flattened
// LockFile (spec §4.6). It does not itself consult or write a
// package.lock file on disk -- Manifest.LockFilePath plus the
// freshness check in manifest.go are the caller's tools for deciding
// whether to call Lock at all.
func (r *Resolver) Lock(m *Manifest) (*pkg.LockFile, error) {
	lf := pkg.NewLockFile()
	for _, spec := range m.DependencySpecs() {
		if spec.Source.IsPath() && m.ParentDir == nil {
			return nil, &InvalidPathImport{Name: spec.Source}
		}
		locked, err := r.RealizeRec(spec, nil)
		if err != nil {
			return nil, err
		}
		locked.FlattenInto(lf)
		lf.Dependencies[locked.Name] = locked.Source
	}
	return lf, nil
}

// normalizeAbsPath lexically cleans an already-absolute path (no
// symlink resolution, matching nickel-lang-core's own
// normalize_abs_path: "." and ".." components are eliminated without
// touching the filesystem).
func normalizeAbsPath(p string) string {
	return filepath.Clean(p)
}
