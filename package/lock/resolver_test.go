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

package lock_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	pkg "github.com/cloudyluna/nickel/package"
	"github.com/cloudyluna/nickel/package/lock"
	"github.com/cloudyluna/nickel/term"
)

// fakeFetcher stands in for a real git clone: it creates destDir (as a
// real clone would) and reports a fixed commit, so resolver tests never
// touch the network.
type fakeFetcher struct {
	head pkg.ObjectId
	err  error
}

func (f fakeFetcher) Clone(url, destDir string) (pkg.ObjectId, error) {
	if f.err != nil {
		return pkg.ObjectId{}, f.err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return pkg.ObjectId{}, err
	}
	return f.head, nil
}

// noManifestEvaluator reports every manifest file as absent, so
// RealizeRec's recursion bottoms out immediately -- exercising the "a
// package with no package.ncl has no further dependencies" path.
type noManifestEvaluator struct{}

func (noManifestEvaluator) EvalManifestFile(path string) (*term.RichTerm, error) {
	return nil, errors.New("no such file")
}

func newTestResolver(t *testing.T, head pkg.ObjectId) *lock.Resolver {
	t.Helper()
	return &lock.Resolver{
		CacheRoot: t.TempDir(),
		Fetcher:   fakeFetcher{head: head},
		Eval:      noManifestEvaluator{},
	}
}

func TestRealizeRecGitDependencyNoManifest(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	r := newTestResolver(t, id)

	spec := lock.Spec{Name: pkg.Name{Org: "acme", Package: "widgets"}, Source: lock.GitRef("https://example/repo")}
	locked, err := r.RealizeRec(spec, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(locked.Source.IsGit()))
	qt.Assert(t, qt.Equals(locked.Source.GitTree, id))
	qt.Assert(t, qt.HasLen(locked.Dependencies, 0))

	_, statErr := os.Stat(locked.Source.LocalPath(r.CacheRoot))
	qt.Assert(t, qt.IsNil(statErr))
}

func TestRealizeRecPathDependencyIsReflectedUnchanged(t *testing.T) {
	r := newTestResolver(t, pkg.ObjectId{})
	abs := filepath.Join(t.TempDir(), "somewhere")

	spec := lock.Spec{Name: pkg.Name{Org: "acme", Package: "local"}, Source: lock.PathRef(abs)}
	locked, err := r.RealizeRec(spec, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(locked.Source.IsPath()))
	qt.Assert(t, qt.Equals(locked.Source.PathAbs, abs))
}

func TestRealizeRecSameTreeIsIdempotent(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	r := newTestResolver(t, id)

	spec := lock.Spec{Name: pkg.Name{Org: "acme", Package: "widgets"}, Source: lock.GitRef("https://example/repo")}
	first, err := r.RealizeRec(spec, nil)
	qt.Assert(t, qt.IsNil(err))
	second, err := r.RealizeRec(spec, nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(first.Source, second.Source))
}

func TestLockedSpecFlattenCollapsesDuplicateSources(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	src := pkg.GitSource("https://example/repo", id, "")

	leaf := &lock.LockedSpec{Name: pkg.Name{Org: "acme", Package: "leaf"}, Source: src}
	root := &lock.LockedSpec{
		Name:         pkg.Name{Org: "acme", Package: "root"},
		Source:       pkg.GitSource("https://example/root", id, ""),
		Dependencies: []*lock.LockedSpec{leaf, leaf},
	}

	lf := root.Flatten()
	qt.Assert(t, qt.HasLen(lf.Packages, 2))
	entry, ok := lf.Packages[src]
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(entry.Name, leaf.Name))
}

func TestLockRealizesEveryManifestDependency(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	r := newTestResolver(t, id)

	m := &lock.Manifest{
		Dependencies: map[pkg.Name]lock.Source{
			{Org: "acme", Package: "widgets"}: lock.GitRef("https://example/repo"),
		},
	}
	lf, err := r.Lock(m)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(lf.Dependencies, 1))
	qt.Assert(t, qt.HasLen(lf.Packages, 1))
}

func TestRealizeRecGitPathDependencyEscapingRepoIsRestricted(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	r := newTestResolver(t, id)

	relativeTo := pkg.GitSource("https://example/repo", id, "")
	spec := lock.Spec{Name: pkg.Name{Org: "acme", Package: "escapee"}, Source: lock.PathRef("../../outside")}
	_, err = r.RealizeRec(spec, &relativeTo)
	qt.Assert(t, qt.IsNotNil(err))
	var restricted *lock.RestrictedPath
	qt.Assert(t, qt.IsTrue(errors.As(err, &restricted)))
}
