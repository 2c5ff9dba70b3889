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
	"encoding/json"
	"testing"

	"github.com/go-quicktest/qt"

	pkg "github.com/cloudyluna/nickel/package"
)

func sampleLockFile(t *testing.T) *pkg.LockFile {
	t.Helper()
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))

	gitSrc := pkg.GitSource("https://example/repo", id, "")
	pathSrc := pkg.PathSourceOf("/abs/local")

	gitName := pkg.Name{Org: "acme", Package: "git-dep"}
	pathName := pkg.Name{Org: "acme", Package: "path-dep"}

	lf := pkg.NewLockFile()
	lf.Dependencies[gitName] = gitSrc
	lf.Dependencies[pathName] = pathSrc
	lf.Packages[gitSrc] = pkg.LockFileEntry{Name: gitName}
	lf.Packages[pathSrc] = pkg.LockFileEntry{Name: pathName}
	return lf
}

func TestLockFileJSONRoundTrips(t *testing.T) {
	lf := sampleLockFile(t)
	data, err := json.Marshal(lf)
	qt.Assert(t, qt.IsNil(err))

	var back pkg.LockFile
	qt.Assert(t, qt.IsNil(json.Unmarshal(data, &back)))
	qt.Assert(t, qt.DeepEquals(back.Dependencies, lf.Dependencies))
	qt.Assert(t, qt.DeepEquals(back.Packages, lf.Packages))
}

func TestLockFileJSONMarshalIsIdempotent(t *testing.T) {
	lf := sampleLockFile(t)
	first, err := json.Marshal(lf)
	qt.Assert(t, qt.IsNil(err))

	var back pkg.LockFile
	qt.Assert(t, qt.IsNil(json.Unmarshal(first, &back)))

	second, err := json.Marshal(back)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(first), string(second)))
}
