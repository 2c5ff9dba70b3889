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

package cache

import (
	"fmt"
	"sync"

	"github.com/cloudyluna/nickel/term"
)

// SourceState is one stage of the linear parse/resolve/typecheck/
// transform pipeline a cached source moves through. Each "ing" state
// means imports are being processed in that phase; promotion to the
// matching "ed" state requires the entry and every transitive resolved
// import to have reached at least that "ing" or "ed" state. Cycles are
// broken by the "ing" states themselves: an import resolver that
// encounters an entry already in ImportsResolving/Typechecking must
// short-circuit rather than re-enter it (spec §4.5).
type SourceState int

const (
	Added SourceState = iota
	Parsed
	ImportsResolving
	ImportsResolved
	Typechecking
	Typechecked
	Transforming
	Transformed
)

func (s SourceState) String() string {
	switch s {
	case Added:
		return "Added"
	case Parsed:
		return "Parsed"
	case ImportsResolving:
		return "ImportsResolving"
	case ImportsResolved:
		return "ImportsResolved"
	case Typechecking:
		return "Typechecking"
	case Typechecked:
		return "Typechecked"
	case Transforming:
		return "Transforming"
	case Transformed:
		return "Transformed"
	default:
		return fmt.Sprintf("SourceState(%d)", int(s))
	}
}

// IsIngState reports whether s is one of the transient "processing"
// states an import-cycle detector should short-circuit on.
func (s SourceState) IsIngState() bool {
	return s == ImportsResolving || s == Typechecking || s == Transforming
}

// CacheKey identifies one cache entry. The zero value is never issued
// by Insert/InsertGenerated (design notes, §9): it is reserved so a
// zero CacheKey reliably means "no key" to callers that store one in a
// struct field alongside other state.
type CacheKey uint32

// CacheEntry is everything the cache tracks for one source: its
// origin, raw text, current pipeline state, and (once parsed) its AST.
// ParseErr holds the entry's parse failure, if one was recorded; the
// cache itself never sets it and adds no ParseError node to AST.
type CacheEntry struct {
	Path     SourcePath
	Source   string
	State    SourceState
	AST      *term.RichTerm
	ParseErr error
}

func (e *CacheEntry) clone() *CacheEntry {
	c := *e
	return &c
}

// Cache is the source/term cache: single-writer per session (spec §5),
// so it takes a plain mutex rather than anything more elaborate.
type Cache struct {
	mu            sync.Mutex
	byPath        map[string]CacheKey
	entries       map[CacheKey]*CacheEntry
	nextKey       uint32
	nextGenerated uint64
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		byPath:  make(map[string]CacheKey),
		entries: make(map[CacheKey]*CacheEntry),
	}
}

func (c *Cache) allocKey() CacheKey {
	c.nextKey++
	return CacheKey(c.nextKey)
}

// Find returns the key already assigned to path, if any. O(1).
func (c *Cache) Find(path string) (CacheKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byPath[path]
	return key, ok
}

// Insert records source as the content of path. If path already has a
// key, its entry is updated in place (state reset to Added) and the
// same key is returned; otherwise a new entry and key are allocated.
// Updating "in place" still replaces the *CacheEntry value (via clone)
// rather than mutating the existing one's fields, so a caller that
// called GetMut earlier and is still holding that pointer never
// observes this insert's effect out from under it -- only a fresh Get
// does (testable property 6).
func (c *Cache) Insert(path, source string) CacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.byPath[path]; ok {
		c.entries[key] = &CacheEntry{
			Path:   RealPath{Path: path},
			Source: source,
			State:  Added,
		}
		return key
	}

	key := c.allocKey()
	c.byPath[path] = key
	c.entries[key] = &CacheEntry{
		Path:   RealPath{Path: path},
		Source: source,
		State:  Added,
	}
	return key
}

// InsertGenerated wraps source in a GeneratedByEvaluation origin with a
// fresh, monotonically increasing index and inserts it as a new entry.
// Generated sources never participate in the by-path index: they have
// no path for Find to look up.
func (c *Cache) InsertGenerated(source string) CacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.nextGenerated
	c.nextGenerated++

	key := c.allocKey()
	c.entries[key] = &CacheEntry{
		Path:   GeneratedByEvaluation{N: n},
		Source: source,
		State:  Added,
	}
	return key
}

// mustEntry looks up key, panicking if it is not one this Cache issued
// -- callers are contracted to only ever pass keys this Cache
// returned (spec §4.5).
func (c *Cache) mustEntry(key CacheKey) *CacheEntry {
	e, ok := c.entries[key]
	if !ok {
		panic(fmt.Sprintf("cache: key %d was not constructed by this cache", key))
	}
	return e
}

// Get returns a read-only snapshot of key's entry.
func (c *Cache) Get(key CacheKey) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mustEntry(key).clone()
}

// GetMut returns key's entry by the pointer the cache itself holds, so
// mutations through it (e.g. advancing State, attaching AST) are
// visible to every later Get/GetMut of the same key. There is no
// separate borrow-checked "mutable" view to construct in Go; this
// method exists to keep the API shape spec §4.5 describes, with the
// mutable/read-only distinction documented rather than enforced.
func (c *Cache) GetMut(key CacheKey) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mustEntry(key)
}

// FileID returns the term.FileId a resolved import should carry for
// key: the cache key itself, reinterpreted, so a ResolvedImport node
// can be traced straight back to its cache entry.
func (c *Cache) FileID(key CacheKey) term.FileId {
	return term.FileId(key)
}

// Source returns key's raw text.
func (c *Cache) Source(key CacheKey) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mustEntry(key).Source
}

// SourceRecord is one entry's identity and text, as Sources reports it
// for error rendering.
type SourceRecord struct {
	Key    CacheKey
	Path   SourcePath
	Source string
}

// Sources returns every entry's origin and text, for diagnostics that
// need to render a snippet around a position (spec §4.5, "for error
// rendering"). Order is unspecified.
func (c *Cache) Sources() []SourceRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SourceRecord, 0, len(c.entries))
	for key, e := range c.entries {
		out = append(out, SourceRecord{Key: key, Path: e.Path, Source: e.Source})
	}
	return out
}

// Promote advances key's entry to to, if doing so is a forward step in
// the linear state machine; it reports an error instead of silently
// ignoring an attempt to move backward or skip validation, since a
// caller asking to promote to a state it already exceeds is a bug in
// the pipeline driving the cache, not a condition to tolerate.
func (c *Cache) Promote(key CacheKey, to SourceState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.mustEntry(key)
	if to <= e.State {
		return fmt.Errorf("cache: cannot promote key %d from %s to %s (not forward)", key, e.State, to)
	}
	e.State = to
	return nil
}
