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

package term

import "github.com/cloudyluna/nickel/token"

// RichTerm pairs a term node with a source span, exactly as cue/ast pairs
// every node with position accessors, except here the position lives in
// the wrapper rather than being embedded in each case -- the shared node
// underneath can be pointed to by several RichTerms (see SharedNode)
// while each occurrence keeps its own span.
type RichTerm struct {
	Node Node
	Pos  token.Pos
	End  token.Pos
}

// NewRichTerm wraps a node with the span [start, end).
func NewRichTerm(n Node, start, end token.Pos) *RichTerm {
	return &RichTerm{Node: n, Pos: start, End: end}
}

// WithPos returns a shallow copy of rt at the given span, leaving the
// wrapped node untouched. This is the "set position" half of the
// positioned-term contract; StripPos is its inverse.
func (rt *RichTerm) WithPos(start, end token.Pos) *RichTerm {
	cp := *rt
	cp.Pos, cp.End = start, end
	return &cp
}

// StripPos returns a shallow copy of rt with both ends of its span reset
// to token.NoPos, used by transformations that synthesize new terms out
// of existing ones (pattern compilation, in particular) and don't want
// to misattribute errors to a stale source location.
func (rt *RichTerm) StripPos() *RichTerm {
	return rt.WithPos(token.NoPos, token.NoPos)
}

// shared is implemented by every node kind that can be the target of
// copy-on-write mutation: Array, Record, RecRecord today (the composite
// kinds whose contents mutate in place during pattern compilation and
// transformation passes).
type shared interface {
	refs() *int32
}

// MakeMutable returns a node equivalent to n that the caller may safely
// mutate in place: if n is the sole owner of its underlying storage it
// is returned unchanged, otherwise a clone is made and the original's
// reference count is decremented. This is the "single make-mutable
// operation" the data model calls for, used so that a parent holding a
// shared subtree never observes a sibling's in-place edit.
func MakeMutable(n Node) Node {
	s, ok := n.(shared)
	if !ok {
		return n
	}
	refs := s.refs()
	if *refs <= 0 {
		return n
	}
	*refs--
	return cloneShared(n)
}

func cloneShared(n Node) Node {
	switch x := n.(type) {
	case *Array:
		cp := *x
		cp.Elts = append([]*RichTerm(nil), x.Elts...)
		cp.refCount = refCount{}
		return &cp
	case *Record:
		cp := *x
		cp.Data = x.Data.Clone()
		cp.refCount = refCount{}
		return &cp
	case *RecRecord:
		cp := *x
		cp.Data = x.Data.Clone()
		cp.DynFields = append([]DynField(nil), x.DynFields...)
		cp.refCount = refCount{}
		return &cp
	default:
		return n
	}
}

// refCount backs the shared interface for composite nodes; embedded
// alongside base so each shareable kind opts in without duplicating the
// bookkeeping. A freshly constructed node starts at zero, meaning
// "uniquely owned" for MakeMutable's purposes; Retain bumps it the first
// time a second parent starts observing the node.
type refCount struct {
	n int32
}

func (r *refCount) refs() *int32 { return &r.n }

// Retain records that another parent now also observes this node,
// enabling structural sharing; it must be called whenever a RichTerm
// pointing at an existing Array/Record/RecRecord is duplicated into a
// second parent rather than deep-copied.
func Retain(n Node) {
	if s, ok := n.(shared); ok {
		*s.refs()++
	}
}

// Equal reports structural equality between two terms. Closure handles
// always compare unequal, even to themselves, so that two terms neither
// of which originated from the same evaluator store can never be
// mistaken for equal by pointer happenstance (design notes, §9).
func (rt *RichTerm) Equal(other *RichTerm) bool {
	if rt == other {
		if _, closure := rt.Node.(*Closure); closure {
			return false
		}
		return true
	}
	if rt == nil || other == nil {
		return false
	}
	return equalNode(rt.Node, other.Node)
}

func equalNode(a, b Node) bool {
	if _, ok := a.(*Closure); ok {
		return false
	}
	if _, ok := b.(*Closure); ok {
		return false
	}
	switch x := a.(type) {
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *Bool:
		y, ok := b.(*Bool)
		return ok && x.Value == y.Value
	case *Num:
		y, ok := b.(*Num)
		return ok && x.Value.Cmp(y.Value) == 0
	case *Str:
		y, ok := b.(*Str)
		return ok && x.Value == y.Value
	case *Enum:
		y, ok := b.(*Enum)
		return ok && x.Tag == y.Tag
	case *Var:
		y, ok := b.(*Var)
		return ok && x.Id.Name == y.Id.Name
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Elts) != len(y.Elts) {
			return false
		}
		for i := range x.Elts {
			if !x.Elts[i].Equal(y.Elts[i]) {
				return false
			}
		}
		return true
	case *Record:
		y, ok := b.(*Record)
		return ok && equalRecordData(x.Data, y.Data)
	default:
		// Every other case is compared by identity only; the evaluator
		// out of scope here is the authority on deeper semantic equality
		// for binders and elimination forms.
		return a == b
	}
}

func equalRecordData(a, b *RecordData) bool {
	if len(a.FieldOrder) != len(b.FieldOrder) {
		return false
	}
	for i, name := range a.FieldOrder {
		if b.FieldOrder[i] != name {
			return false
		}
		fa, fb := a.Fields[name], b.Fields[name]
		if fa.Metadata.Priority.Compare(fb.Metadata.Priority) != 0 {
			return false
		}
		if !fa.Value.Equal(fb.Value) {
			return false
		}
	}
	return true
}
