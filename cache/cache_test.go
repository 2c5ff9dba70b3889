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

package cache_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/cloudyluna/nickel/cache"
)

func TestFindMissingPathReportsAbsent(t *testing.T) {
	c := cache.NewCache()
	_, ok := c.Find("nope.ncl")
	qt.Assert(t, qt.IsFalse(ok))
}

func TestInsertTwiceSamePathReturnsSameKeyAtAdded(t *testing.T) {
	c := cache.NewCache()
	k1 := c.Insert("a.ncl", "1 + 1")
	k2 := c.Insert("a.ncl", "2 + 2")

	qt.Assert(t, qt.Equals(k1, k2))
	entry := c.Get(k2)
	qt.Assert(t, qt.Equals(entry.State, cache.Added))
	qt.Assert(t, qt.Equals(entry.Source, "2 + 2"))
}

func TestInsertDistinctPathsGetDistinctKeys(t *testing.T) {
	c := cache.NewCache()
	k1 := c.Insert("a.ncl", "1")
	k2 := c.Insert("b.ncl", "2")
	qt.Assert(t, qt.Not(qt.Equals(k1, k2)))
}

func TestInsertGeneratedNeverFindable(t *testing.T) {
	c := cache.NewCache()
	key := c.InsertGenerated("let x = 1 in x")
	entry := c.Get(key)
	_, isGenerated := entry.Path.(cache.GeneratedByEvaluation)
	qt.Assert(t, qt.IsTrue(isGenerated))

	_, ok := c.Find(entry.Path.String())
	qt.Assert(t, qt.IsFalse(ok))
}

func TestInsertGeneratedCounterIsMonotonic(t *testing.T) {
	c := cache.NewCache()
	k1 := c.InsertGenerated("1")
	k2 := c.InsertGenerated("2")
	g1 := c.Get(k1).Path.(cache.GeneratedByEvaluation)
	g2 := c.Get(k2).Path.(cache.GeneratedByEvaluation)
	qt.Assert(t, qt.Equals(g2.N, g1.N+1))
}

func TestZeroKeyIsNeverIssued(t *testing.T) {
	c := cache.NewCache()
	k := c.Insert("a.ncl", "1")
	qt.Assert(t, qt.Not(qt.Equals(k, cache.CacheKey(0))))
}

func TestGetUnknownKeyPanics(t *testing.T) {
	c := cache.NewCache()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for an unknown key")
		}
	}()
	c.Get(cache.CacheKey(999))
}

func TestPromoteFollowsLinearOrder(t *testing.T) {
	c := cache.NewCache()
	key := c.Insert("a.ncl", "1")

	qt.Assert(t, qt.IsNil(c.Promote(key, cache.Parsed)))
	qt.Assert(t, qt.IsNil(c.Promote(key, cache.ImportsResolving)))
	qt.Assert(t, qt.IsNil(c.Promote(key, cache.ImportsResolved)))
	qt.Assert(t, qt.Equals(c.Get(key).State, cache.ImportsResolved))
}

func TestPromoteBackwardsIsRejected(t *testing.T) {
	c := cache.NewCache()
	key := c.Insert("a.ncl", "1")
	qt.Assert(t, qt.IsNil(c.Promote(key, cache.Typechecked)))
	qt.Assert(t, qt.IsNotNil(c.Promote(key, cache.Parsed)))
}

func TestIngStatesAreTheOnesCyclesShortCircuitOn(t *testing.T) {
	cases := []struct {
		state cache.SourceState
		ing   bool
	}{
		{cache.Added, false},
		{cache.Parsed, false},
		{cache.ImportsResolving, true},
		{cache.ImportsResolved, false},
		{cache.Typechecking, true},
		{cache.Typechecked, false},
		{cache.Transforming, true},
		{cache.Transformed, false},
	}
	for _, tc := range cases {
		qt.Assert(t, qt.Equals(tc.state.IsIngState(), tc.ing), qt.Commentf("state %v", tc.state))
	}
}

func TestFileIDRoundTripsThroughCacheKey(t *testing.T) {
	c := cache.NewCache()
	key := c.Insert("a.ncl", "1")
	id := c.FileID(key)
	qt.Assert(t, qt.Equals(uint32(id), uint32(key)))
}

func TestGetMutIsVisibleToLaterGet(t *testing.T) {
	c := cache.NewCache()
	key := c.Insert("a.ncl", "1")
	mut := c.GetMut(key)
	mut.State = cache.Parsed
	qt.Assert(t, qt.Equals(c.Get(key).State, cache.Parsed))
}
