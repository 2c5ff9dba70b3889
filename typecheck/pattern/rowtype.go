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

// Package pattern elaborates a term.Pattern into a pattern type: a row
// type for record/enum shapes, a concrete unification type otherwise,
// plus the bindings it introduces and the bookkeeping the typechecker
// needs to close enum row tails once every branch of a match has been
// seen. It does not itself unify a pattern's type against the rest of a
// program -- that belongs to the (out of scope) main typechecker -- but
// it does unify the two sides an annotated field pattern produces, since
// that unification is local to elaboration.
//
// Row tails are tracked the way the closedness algorithm in cue/internal
// /core/adt/closed.go tracks a struct's allowed-label set: a tail starts
// open (anyone may still add to it) and is closed explicitly once, not
// implicitly by running out of listed fields.
package pattern

import "github.com/cloudyluna/nickel/term"

// Mode selects whether elaboration is purely descriptive (Walk, used
// when there is no expectation for the pattern to be precise) or
// produces real unification variables to be solved by the typechecker
// (Enforce).
type Mode int

const (
	Walk Mode = iota
	Enforce
)

// PathStepKind distinguishes descending into a record field from
// descending into an enum variant's payload.
type PathStepKind int

const (
	FieldStep PathStepKind = iota
	VariantStep
)

type PathStep struct {
	Kind PathStepKind
	Name string
}

// Path identifies a nested position within a pattern tree. Two
// elaborations of "the same" pattern position (e.g. across match
// branches sharing a scrutinee) produce equal Paths, which is what lets
// CloseOpenTails correlate an enum tail opened at that position across
// every branch that visited it.
type Path []PathStep

func (p Path) Field(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, PathStep{Kind: FieldStep, Name: name})
}

func (p Path) Variant() Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, PathStep{Kind: VariantStep})
}

// key returns a stable string identity for p, suitable as a map key.
func (p Path) key() string {
	b := make([]byte, 0, len(p)*8)
	for _, s := range p {
		if s.Kind == VariantStep {
			b = append(b, "/*"...)
			continue
		}
		b = append(b, '/')
		b = append(b, s.Name...)
	}
	return string(b)
}

// RowTail is what a record or enum row ends in: more fields/tags may
// still appear (open), or not (closed).
type RowTail interface{ isRowTail() }

// DynTail is Walk mode's sentinel: the row is open, but only
// descriptively so -- there is no unification variable backing it.
type DynTail struct{}

// ClosedTail ends a row: no more fields or tags.
type ClosedTail struct{}

// RowVar is an Enforce-mode row unification variable. Its resolution
// lives in the Elaborator's table, not on the value itself, mirroring
// how CUE's closedness tree keeps per-vertex state out of the AST node.
type RowVar struct{ id int }

func (DynTail) isRowTail()    {}
func (ClosedTail) isRowTail() {}
func (RowVar) isRowTail()     {}

// PatternType is the synthesized type of a pattern or pattern position.
type PatternType interface{ isPatternType() }

// DynType is Walk mode's leaf sentinel: the dynamic type.
type DynType struct{}

// UnificationVar is an Enforce-mode fresh type variable.
type UnificationVar struct{ id int }

// Concrete wraps an already-known term.Type, used verbatim for the
// "leaf pattern with an annotation in Walk mode" backwards-compat
// carve-out (spec §4.4), where unifying would be pure overhead.
type Concrete struct{ Typ *term.Type }

// RecordRow is a record pattern's synthesized row type: the fields it
// lists, in declaration order, plus what happens to everything else.
type RecordRow struct {
	Fields     map[string]PatternType
	FieldOrder []string
	Tail       RowTail
}

// EnumRow is an enum pattern's synthesized row type: the tag (and, if
// present, payload type) it matches, plus the open tail every other
// possible tag falls into until CloseOpenTails closes it.
type EnumRow struct {
	Variants     map[term.Label]PatternType
	VariantOrder []term.Label
	Tail         RowTail
}

func (DynType) isPatternType()        {}
func (UnificationVar) isPatternType() {}
func (Concrete) isPatternType()       {}
func (RecordRow) isPatternType()      {}
func (EnumRow) isPatternType()        {}

// Binding is one name a pattern introduces, with its synthesized type.
type Binding struct {
	Name string
	Typ  PatternType
}
