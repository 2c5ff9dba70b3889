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

// Package cache implements the source/term cache (spec §4.5): the
// single-writer-per-session store mapping a source's origin to a key,
// its raw text, and its progress through the linear parse/resolve/
// typecheck/transform state machine. Its file-store half follows the
// per-entry, mutex-guarded design of cue/internal/fscache's
// CueCacheFS -- one handle per distinct origin, cloned rather than
// mutated in place on re-insertion so a stale *CacheEntry a caller is
// still holding never observes a concurrent insert's effects.
package cache

import "fmt"

// SourcePath identifies where a cached source came from.
type SourcePath interface {
	isSourcePath()
	String() string
}

// RealPath is a source read from the filesystem.
type RealPath struct{ Path string }

// Snippet is a source with no persistent origin (e.g. a string passed
// directly to an evaluation API).
type Snippet struct{}

// Stdin is a source read from standard input.
type Stdin struct{}

// GeneratedByEvaluation is a source synthesized during evaluation
// itself (e.g. the body of a generated contract); N is a monotonically
// increasing counter distinguishing one generated source from another
// within a session.
type GeneratedByEvaluation struct{ N uint64 }

func (RealPath) isSourcePath()              {}
func (Snippet) isSourcePath()                {}
func (Stdin) isSourcePath()                  {}
func (GeneratedByEvaluation) isSourcePath()  {}

func (p RealPath) String() string { return p.Path }
func (Snippet) String() string    { return "<snippet>" }
func (Stdin) String() string      { return "<stdin>" }
func (p GeneratedByEvaluation) String() string {
	return fmt.Sprintf("<generated %d>", p.N)
}
