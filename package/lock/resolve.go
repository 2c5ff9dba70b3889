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
	"path/filepath"

	pkg "github.com/cloudyluna/nickel/package"
)

// ResolvePackageMap turns a LockFile into the flat PackageMap import
// resolution actually consults, following spec §4.6's three steps:
// absolutise the root's own path dependencies against rootDir, copy
// every git-keyed package's dependencies through unchanged, then
// realise (fetching as needed) the transitive closure of each
// root-level path dependency, since path dependencies are never locked
// on disk. It also returns the pkg.ResolvedLockFile the PackageMap was
// built from, so a caller can serialise the root-absolute view back to
// disk or hand it to a diagnostic that needs to know which root a
// LockedPackageSource's path was resolved against.
func (r *Resolver) ResolvePackageMap(lf *pkg.LockFile, rootDir string) (*pkg.PackageMap, *pkg.ResolvedLockFile, error) {
	rootAbs := normalizeAbsPath(rootDir)

	absolutized := pkg.NewLockFile()
	for name, src := range lf.Dependencies {
		absolutized.Dependencies[name] = absolutizePathSource(src, rootAbs)
	}
	for src, entry := range lf.Packages {
		absolutized.Packages[src] = entry
	}

	pm := pkg.NewPackageMap(absolutized, r.CacheRoot)

	for name, src := range lf.Dependencies {
		abs := absolutizePathSource(src, rootAbs)
		if !abs.IsPath() {
			continue
		}
		spec := Spec{Name: name, Source: PathRef(abs.PathAbs)}
		locked, err := r.RealizeRec(spec, nil)
		if err != nil {
			return nil, nil, err
		}
		mergePackageMap(pm, locked, r.CacheRoot)
	}

	resolved := &pkg.ResolvedLockFile{RootDir: rootAbs, Inner: *absolutized}
	return pm, resolved, nil
}

// absolutizePathSource leaves git sources untouched and makes a path
// source's path absolute (and lexically normalized) against root.
func absolutizePathSource(src pkg.LockedPackageSource, root string) pkg.LockedPackageSource {
	if src.IsGit() {
		return src
	}
	if filepath.IsAbs(src.PathAbs) {
		return pkg.PathSourceOf(normalizeAbsPath(src.PathAbs))
	}
	return pkg.PathSourceOf(normalizeAbsPath(filepath.Join(root, src.PathAbs)))
}

// mergePackageMap folds a realised LockedSpec tree's own dependency
// edges into pm (mirrors LockedSpec::flatten_into_map).
func mergePackageMap(pm *pkg.PackageMap, ls *LockedSpec, cacheRoot string) {
	parentPath := ls.Source.LocalPath(cacheRoot)
	for _, dep := range ls.Dependencies {
		pm.Put(parentPath, dep.Name, dep.Source.LocalPath(cacheRoot))
	}
	for _, dep := range ls.Dependencies {
		mergePackageMap(pm, dep, cacheRoot)
	}
}
