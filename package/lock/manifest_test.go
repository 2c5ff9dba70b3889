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
	"testing"

	"github.com/go-quicktest/qt"

	pkg "github.com/cloudyluna/nickel/package"
	"github.com/cloudyluna/nickel/package/lock"
	"github.com/cloudyluna/nickel/term"
)

func gitDep(url string) *term.RichTerm {
	payload := term.NewRecordData()
	payload.Insert("url", &term.Field{Value: term.MkStr(url)})
	return term.MkApp(term.MkEnum("Git"), term.MkRecord(payload))
}

func pathDep(path string) *term.RichTerm {
	return term.MkApp(term.MkEnum("Path"), term.MkStr(path))
}

func manifestTerm(deps map[string]*term.RichTerm) *term.RichTerm {
	depsData := term.NewRecordData()
	for name, dep := range deps {
		depsData.Insert(name, &term.Field{Value: dep})
	}
	root := term.NewRecordData()
	root.Insert("dependencies", &term.Field{Value: term.MkRecord(depsData)})
	return term.MkRecord(root)
}

func TestParseManifestGitDependency(t *testing.T) {
	rt := manifestTerm(map[string]*term.RichTerm{
		"acme/widgets": gitDep("https://example/repo"),
	})
	dir := "/some/dir"
	m, err := lock.ParseManifest(rt, &dir)
	qt.Assert(t, qt.IsNil(err))

	name := pkg.Name{Org: "acme", Package: "widgets"}
	src, ok := m.Dependencies[name]
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(src.IsGit()))
	qt.Assert(t, qt.Equals(src.URL, "https://example/repo"))
}

func TestParseManifestPathDependency(t *testing.T) {
	rt := manifestTerm(map[string]*term.RichTerm{
		"acme/local": pathDep("../sibling"),
	})
	m, err := lock.ParseManifest(rt, nil)
	qt.Assert(t, qt.IsNil(err))

	name := pkg.Name{Org: "acme", Package: "local"}
	src, ok := m.Dependencies[name]
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsTrue(src.IsPath()))
	qt.Assert(t, qt.Equals(src.Path, "../sibling"))
}

func TestParseManifestGitDependencyDefaultFlag(t *testing.T) {
	payload := term.NewRecordData()
	payload.Insert("url", &term.Field{Value: term.MkStr("https://example/repo")})
	payload.Insert("default", &term.Field{Value: term.MkBool(true)})
	dep := term.MkApp(term.MkEnum("Git"), term.MkRecord(payload))

	rt := manifestTerm(map[string]*term.RichTerm{"acme/widgets": dep})
	m, err := lock.ParseManifest(rt, nil)
	qt.Assert(t, qt.IsNil(err))

	src := m.Dependencies[pkg.Name{Org: "acme", Package: "widgets"}]
	qt.Assert(t, qt.IsTrue(src.IsDefault()))
}

func TestParseManifestRejectsNonRecord(t *testing.T) {
	_, err := lock.ParseManifest(term.MkStr("not a record"), nil)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestParseManifestRejectsMissingDependenciesField(t *testing.T) {
	root := term.NewRecordData()
	_, err := lock.ParseManifest(term.MkRecord(root), nil)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestParseManifestRejectsUnknownTag(t *testing.T) {
	rt := manifestTerm(map[string]*term.RichTerm{
		"acme/widgets": term.MkApp(term.MkEnum("Registry"), term.MkStr("x")),
	})
	_, err := lock.ParseManifest(rt, nil)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestSourceMatchesLocked(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))

	gitSrc := lock.GitRef("https://example/repo")
	locked := pkg.GitSource("https://example/repo", id, "")
	qt.Assert(t, qt.IsTrue(gitSrc.MatchesLocked(locked)))

	otherLocked := pkg.GitSource("https://example/other", id, "")
	qt.Assert(t, qt.IsFalse(gitSrc.MatchesLocked(otherLocked)))
}

func TestIsLockFileUpToDate(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))

	name := pkg.Name{Org: "acme", Package: "widgets"}
	rt := manifestTerm(map[string]*term.RichTerm{
		"acme/widgets": gitDep("https://example/repo"),
	})
	m, err := lock.ParseManifest(rt, nil)
	qt.Assert(t, qt.IsNil(err))

	lf := pkg.NewLockFile()
	lf.Dependencies[name] = pkg.GitSource("https://example/repo", id, "")
	qt.Assert(t, qt.IsTrue(m.IsLockFileUpToDate(lf)))

	lf.Dependencies[name] = pkg.GitSource("https://example/other", id, "")
	qt.Assert(t, qt.IsFalse(m.IsLockFileUpToDate(lf)))
}

const sampleHex = "0123456789abcdef0123456789abcdef01234567"[:40]
