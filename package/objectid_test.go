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
	"errors"
	"testing"

	"github.com/go-quicktest/qt"

	pkg "github.com/cloudyluna/nickel/package"
)

const sampleHex = "0123456789abcdef0123456789abcdef01234567"[:40]

func TestParseObjectIdRoundTripsString(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(id.String(), sampleHex))
}

func TestParseObjectIdWrongLength(t *testing.T) {
	_, err := pkg.ParseObjectId("abc")
	qt.Assert(t, qt.IsNotNil(err))
	var perr *pkg.ObjectIdParseError
	qt.Assert(t, qt.IsTrue(errors.As(err, &perr)))
	qt.Assert(t, qt.IsFalse(perr.Alphabet))
}

func TestParseObjectIdBadAlphabet(t *testing.T) {
	bad := "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	_, err := pkg.ParseObjectId(bad)
	qt.Assert(t, qt.IsNotNil(err))
	var perr *pkg.ObjectIdParseError
	qt.Assert(t, qt.IsTrue(errors.As(err, &perr)))
	qt.Assert(t, qt.IsTrue(perr.Alphabet))
}

func TestObjectIdShortIsFirstEightChars(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(id.Short(), sampleHex[:8]))
}

func TestObjectIdZeroValueIsZero(t *testing.T) {
	var id pkg.ObjectId
	qt.Assert(t, qt.IsTrue(id.IsZero()))
}

func TestObjectIdNonZeroIsNotZero(t *testing.T) {
	id, err := pkg.ParseObjectId(sampleHex)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(id.IsZero()))
}
