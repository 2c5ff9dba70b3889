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

func TestParseNameSplitsOrgAndPackage(t *testing.T) {
	n, err := pkg.ParseName("acme/widgets")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(n.Org, "acme"))
	qt.Assert(t, qt.Equals(n.Package, "widgets"))
	qt.Assert(t, qt.Equals(n.String(), "acme/widgets"))
}

func TestParseNameRejectsMissingSlash(t *testing.T) {
	_, err := pkg.ParseName("acmewidgets")
	qt.Assert(t, qt.IsNotNil(err))
}

func TestParseNameRejectsMultipleSlashes(t *testing.T) {
	_, err := pkg.ParseName("acme/widgets/extra")
	qt.Assert(t, qt.IsNotNil(err))
}

func TestParseNameRejectsEmptyHalf(t *testing.T) {
	for _, s := range []string{"/widgets", "acme/"} {
		_, err := pkg.ParseName(s)
		qt.Assert(t, qt.IsNotNil(err), qt.Commentf("input %q", s))
	}
}

func TestNameJSONRoundTripsAsMapKey(t *testing.T) {
	m := map[pkg.Name]int{{Org: "acme", Package: "widgets"}: 1}
	data, err := json.Marshal(m)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(data), `{"acme/widgets":1}`))

	var back map[pkg.Name]int
	qt.Assert(t, qt.IsNil(json.Unmarshal(data, &back)))
	qt.Assert(t, qt.DeepEquals(back, m))
}
