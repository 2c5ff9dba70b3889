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

package pkg_test

import (
	"path/filepath"
	"testing"

	"github.com/go-quicktest/qt"

	pkg "github.com/cloudyluna/nickel/package"
)

func TestGitSourceLocalPathJoinsCacheRootTreeAndPath(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))

	root := pkg.GitSource("https://example/repo", id, "")
	qt.Assert(t, qt.Equals(root.LocalPath("/cache"), filepath.Join("/cache", sampleHex)))

	sub := pkg.GitSource("https://example/repo", id, "sub/dir")
	qt.Assert(t, qt.Equals(sub.LocalPath("/cache"), filepath.Join("/cache", sampleHex, "sub/dir")))
}

func TestPathSourceLocalPathIgnoresCacheRoot(t *testing.T) {
	src := pkg.PathSourceOf("/abs/path")
	qt.Assert(t, qt.Equals(src.LocalPath("/cache"), "/abs/path"))
}

func TestGitSourceRepoRootOmitsSubPath(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	src := pkg.GitSource("https://example/repo", id, "sub/dir")

	root, isGit := src.RepoRoot("/cache")
	qt.Assert(t, qt.IsTrue(isGit))
	qt.Assert(t, qt.Equals(root, filepath.Join("/cache", sampleHex)))
}

func TestPathSourceHasNoRepoRoot(t *testing.T) {
	src := pkg.PathSourceOf("/abs/path")
	_, isGit := src.RepoRoot("/cache")
	qt.Assert(t, qt.IsFalse(isGit))
}

func TestLockedPackageSourceIsComparable(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))

	a := pkg.GitSource("https://example/repo", id, "")
	b := pkg.GitSource("https://example/repo", id, "")
	qt.Assert(t, qt.Equals(a, b))

	lf := pkg.NewLockFile()
	lf.Packages[a] = pkg.LockFileEntry{Name: pkg.Name{Org: "acme", Package: "widgets"}}
	_, ok := lf.Packages[b]
	qt.Assert(t, qt.IsTrue(ok))
}

func TestIsGitIsPathAreMutuallyExclusive(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))

	g := pkg.GitSource("url", id, "")
	qt.Assert(t, qt.IsTrue(g.IsGit()))
	qt.Assert(t, qt.IsFalse(g.IsPath()))

	p := pkg.PathSourceOf("/abs")
	qt.Assert(t, qt.IsFalse(p.IsGit()))
	qt.Assert(t, qt.IsTrue(p.IsPath()))
}
