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

package pattern

import (
	"fmt"

	"github.com/cloudyluna/nickel/errors"
	"github.com/cloudyluna/nickel/term"
)

// Elaborator holds the mutable state one elaboration run shares: the
// unification tables for fresh type/row variables it minted, the set of
// enum tails still open, and the set of paths a wildcard was observed
// at. It is not safe for concurrent use, matching the rest of this core
// being single-threaded cooperative (design notes, §5).
type Elaborator struct {
	mode Mode

	nextVar int
	nextRow int

	// varSubst/rowSubst back UnificationVar/RowVar resolution: absent
	// means still unresolved (free).
	varSubst map[int]PatternType
	rowSubst map[int]RowTail

	// openEnumTails maps a path's key to the row variable id opened
	// there, so every branch of a match that visits the same position
	// contributes to (and can close) the same tail.
	openEnumTails map[string]int
	// wildcardPaths marks positions a Wildcard or Any pattern (the two
	// leaf shapes that accept anything) was observed at; a tail opened
	// at such a path is never closed (testable property 9).
	wildcardPaths map[string]bool

	// errs accumulates unification failures as an errors.List (rather
	// than a plain []error) so they carry positions end to end and can
	// be sorted/deduplicated and rendered by errors.Print the same way
	// the package map's MissingDependency/InternalError are (spec §7's
	// accumulate-and-report policy).
	errs errors.List
}

// NewElaborator returns an Elaborator ready to process one match
// expression's branches (or one destructuring let) in the given mode.
func NewElaborator(mode Mode) *Elaborator {
	return &Elaborator{
		mode:          mode,
		varSubst:      map[int]PatternType{},
		rowSubst:      map[int]RowTail{},
		openEnumTails: map[string]int{},
		wildcardPaths: map[string]bool{},
	}
}

// Errors returns every unification failure accumulated so far; the
// typechecker is expected to report them at end-of-run rather than
// abort elaboration early (spec §7). The returned errors.List can be
// sorted, deduplicated (RemoveMultiples), and rendered with
// errors.Print/errors.Details directly.
func (e *Elaborator) Errors() errors.List { return e.errs }

func (e *Elaborator) freshVar() UnificationVar {
	e.nextVar++
	return UnificationVar{id: e.nextVar}
}

func (e *Elaborator) freshRowVar() RowVar {
	e.nextRow++
	return RowVar{id: e.nextRow}
}

func (e *Elaborator) leaf() PatternType {
	if e.mode == Walk {
		return DynType{}
	}
	return e.freshVar()
}

// resolveVar follows a possibly-already-substituted unification
// variable to its current binding, or returns it unresolved.
func (e *Elaborator) resolveVar(v UnificationVar) PatternType {
	if t, ok := e.varSubst[v.id]; ok {
		if next, ok := t.(UnificationVar); ok {
			return e.resolveVar(next)
		}
		return t
	}
	return v
}

func (e *Elaborator) resolveTail(rv RowVar) RowTail {
	if t, ok := e.rowSubst[rv.id]; ok {
		if next, ok := t.(RowVar); ok {
			return e.resolveTail(next)
		}
		return t
	}
	return rv
}

// CloseOpenTails closes every row variable recorded in openEnumTails,
// assigning ClosedTail to it (or to whatever row variable it has since
// been unified with, following the chain), except those whose path was
// wildcarded.
// Called once after every branch of a match has been elaborated (spec
// §4.4 "closing enums after match typechecking").
func (e *Elaborator) CloseOpenTails() {
	for key, rowID := range e.openEnumTails {
		if e.wildcardPaths[key] {
			continue
		}
		tail := e.resolveTail(RowVar{id: rowID})
		if rv, ok := tail.(RowVar); ok {
			e.rowSubst[rv.id] = ClosedTail{}
		}
	}
}

// isLeaf reports whether p is one of the two patterns that match
// anything: a Wildcard or an Any binding.
func isLeaf(p *term.Pattern) bool {
	switch p.Data.(type) {
	case term.Wildcard, term.Any:
		return true
	default:
		return false
	}
}

// Elaborate synthesizes p's pattern type and the bindings it
// introduces, recording path at which p sits for enum-tail correlation
// and wildcard tracking.
func (e *Elaborator) Elaborate(p *term.Pattern, path Path) (PatternType, []Binding) {
	var typ PatternType
	var bindings []Binding

	switch data := p.Data.(type) {
	case term.Wildcard:
		e.wildcardPaths[path.key()] = true
		typ = e.leaf()

	case term.Any:
		e.wildcardPaths[path.key()] = true
		typ = e.leaf()
		bindings = append(bindings, Binding{Name: data.Id.Name, Typ: typ})

	case term.Constant:
		typ = e.leaf()

	case term.EnumPattern:
		typ, bindings = e.elaborateEnum(data, path)

	case term.RecordPattern:
		typ, bindings = e.elaborateRecord(data, path)

	default:
		typ = e.leaf()
	}

	if p.Alias != nil {
		bindings = append(bindings, Binding{Name: p.Alias.Name, Typ: typ})
	}
	return typ, bindings
}

func (e *Elaborator) elaborateEnum(data term.EnumPattern, path Path) (PatternType, []Binding) {
	key := path.key()
	var rv RowVar
	if id, ok := e.openEnumTails[key]; ok {
		rv = RowVar{id: id}
	} else {
		rv = e.freshRowVar()
		e.openEnumTails[key] = rv.id
	}

	var payload PatternType = e.leaf()
	var bindings []Binding
	if data.Nested != nil {
		payload, bindings = e.Elaborate(data.Nested, path.Variant())
	}

	row := EnumRow{
		Variants:     map[term.Label]PatternType{data.Tag: payload},
		VariantOrder: []term.Label{data.Tag},
		Tail:         rv,
	}
	return row, bindings
}

func (e *Elaborator) elaborateRecord(data term.RecordPattern, path Path) (PatternType, []Binding) {
	fields := map[string]PatternType{}
	var order []string
	var bindings []Binding

	for _, fp := range data.Fields {
		fieldPath := path.Field(fp.MatchedId.Name)
		nested := fp.Nested
		if nested == nil {
			nested = &term.Pattern{Data: term.Any{Id: fp.MatchedId}}
		}

		var fieldType PatternType
		if isLeaf(nested) && e.mode == Walk && fp.Annotation.Typ != nil {
			// Backwards-compat carve-out (spec §4.4): a Walk-mode leaf
			// with an annotation uses that type verbatim.
			fieldType = Concrete{Typ: fp.Annotation.Typ.Typ}
			if anyPat, ok := nested.Data.(term.Any); ok {
				bindings = append(bindings, Binding{Name: anyPat.Id.Name, Typ: fieldType})
			}
		} else {
			var nestedBindings []Binding
			fieldType, nestedBindings = e.Elaborate(nested, fieldPath)
			bindings = append(bindings, nestedBindings...)
			if fp.Annotation.Typ != nil {
				if err := e.unify(fieldType, Concrete{Typ: fp.Annotation.Typ.Typ}); err != nil {
					e.errs.Add(errors.Newf(fp.Annotation.Typ.Typ.Pos(), "%v", err))
				}
			}
		}

		fields[fp.MatchedId.Name] = fieldType
		order = append(order, fp.MatchedId.Name)
	}

	var tail RowTail
	switch data.Tail.Kind {
	case term.TailEmpty:
		tail = ClosedTail{}
	default: // Open or Capture
		if e.mode == Walk {
			tail = DynTail{}
		} else {
			tail = e.freshRowVar()
		}
	}

	if data.Tail.Kind == term.TailCapture {
		bindings = append(bindings, Binding{
			Name: data.Tail.Capture.Name,
			Typ:  RecordRow{Tail: tail},
		})
	}

	return RecordRow{Fields: fields, FieldOrder: order, Tail: tail}, bindings
}

// unify attempts to make a and b describe the same type, recording a
// substitution for any unification variable it resolves along the way.
// DynType unifies with anything (Walk mode never actually calls this
// with variables that need solving, but the case is harmless either
// way).
func (e *Elaborator) unify(a, b PatternType) error {
	if uv, ok := a.(UnificationVar); ok {
		a = e.resolveVar(uv)
	}
	if uv, ok := b.(UnificationVar); ok {
		b = e.resolveVar(uv)
	}

	if isDyn(a) || isDyn(b) {
		return nil
	}

	if uv, ok := a.(UnificationVar); ok {
		e.varSubst[uv.id] = b
		return nil
	}
	if uv, ok := b.(UnificationVar); ok {
		e.varSubst[uv.id] = a
		return nil
	}

	ac, aok := a.(Concrete)
	bc, bok := b.(Concrete)
	if aok && bok {
		if !sameAnnotationShape(ac.Typ, bc.Typ) {
			return fmt.Errorf("incompatible annotation types")
		}
		return nil
	}

	aRow, aIsRow := a.(RecordRow)
	bRow, bIsRow := b.(RecordRow)
	if aIsRow && bIsRow {
		return e.unifyRecordRows(aRow, bRow)
	}

	aEnum, aIsEnum := a.(EnumRow)
	bEnum, bIsEnum := b.(EnumRow)
	if aIsEnum && bIsEnum {
		return e.unifyEnumRows(aEnum, bEnum)
	}

	return nil
}

func isDyn(t PatternType) bool {
	_, ok := t.(DynType)
	return ok
}

func (e *Elaborator) unifyRecordRows(a, b RecordRow) error {
	for name, at := range a.Fields {
		if bt, ok := b.Fields[name]; ok {
			if err := e.unify(at, bt); err != nil {
				return err
			}
		}
	}
	return e.unifyTails(a.Tail, b.Tail)
}

func (e *Elaborator) unifyEnumRows(a, b EnumRow) error {
	for tag, at := range a.Variants {
		if bt, ok := b.Variants[tag]; ok {
			if err := e.unify(at, bt); err != nil {
				return err
			}
		}
	}
	return e.unifyTails(a.Tail, b.Tail)
}

func (e *Elaborator) unifyTails(a, b RowTail) error {
	if rv, ok := a.(RowVar); ok {
		a = e.resolveTail(rv)
	}
	if rv, ok := b.(RowVar); ok {
		b = e.resolveTail(rv)
	}
	if rv, ok := a.(RowVar); ok {
		e.rowSubst[rv.id] = b
		return nil
	}
	if rv, ok := b.(RowVar); ok {
		e.rowSubst[rv.id] = a
		return nil
	}
	return nil
}

// sameAnnotationShape compares two annotation types by their syntactic
// Kind only, mirroring term.Type's own (unexported) shape comparison;
// duplicated here since TypeKind's Kind field is exported but the
// comparison helper on *term.Type is not.
func sameAnnotationShape(t, o *term.Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Kind == o.Kind
}
