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

// Package term declares the abstract syntax representation for Nickel
// expressions: a richly tagged node variant with positional metadata,
// structural sharing of subtrees, and the generic traversal engine that
// every downstream transformation (import resolution, the typechecker,
// pattern compilation) is built on.
//
// The layout follows cuelang.org/go's cue/ast package -- a Node interface
// with position and comment accessors, one concrete struct per syntax
// case -- generalized from CUE's surface grammar to Nickel's evaluator-level
// term representation.
package term

import (
	"math/big"

	"github.com/cloudyluna/nickel/operator"
	"github.com/cloudyluna/nickel/token"
)

// A Node is any node in a Nickel term tree: every concrete case below
// implements it by embedding base.
type Node interface {
	Pos() token.Pos
	End() token.Pos
	SetPos(start, end token.Pos)
}

// base carries the span shared by all node kinds, mirroring how cue/ast
// embeds position bookkeeping in every node rather than threading it
// through constructors.
type base struct {
	start, end token.Pos
}

func (b *base) Pos() token.Pos { return b.start }
func (b *base) End() token.Pos { return b.end }
func (b *base) SetPos(start, end token.Pos) {
	b.start = start
	b.end = end
}

// MergePriority is the total order Bottom < Numeral(n) < Top described in
// the data model: Neutral sorts and compares equal to Numeral(0) but is a
// distinct runtime tag (merges created it implicitly, rather than from an
// explicit priority annotation).
type MergePriority struct {
	kind mergeKind
	n    int64
}

type mergeKind uint8

const (
	mergeNeutral mergeKind = iota
	mergeNumeral
	mergeBottom
	mergeTop
)

var (
	// Bottom is the lowest merge priority: a field carrying it is always
	// overridden by anything else defining the same field.
	Bottom = MergePriority{kind: mergeBottom}
	// Neutral is the default: a distinct runtime tag, but equal in
	// ordering to Numeral(0).
	Neutral = MergePriority{kind: mergeNeutral}
	// Top is the highest merge priority: it wins over every explicit
	// numeral and can never be overridden.
	Top = MergePriority{kind: mergeTop}
)

// Numeral builds an explicit numeric merge priority.
func Numeral(n int64) MergePriority { return MergePriority{kind: mergeNumeral, n: n} }

func (p MergePriority) rank() int64 {
	switch p.kind {
	case mergeBottom:
		return -1 << 62
	case mergeTop:
		return 1 << 62
	default:
		return p.n // mergeNeutral and mergeNumeral(0) both rank 0
	}
}

// Compare orders two priorities: -1, 0, or 1.
func (p MergePriority) Compare(q MergePriority) int {
	switch pr, qr := p.rank(), q.rank(); {
	case pr < qr:
		return -1
	case pr > qr:
		return 1
	default:
		return 0
	}
}

// IsNeutralTag reports whether p is specifically the Neutral runtime tag,
// as opposed to an explicit Numeral(0) -- the two compare equal but are
// distinguishable for diagnostics.
func (p MergePriority) IsNeutralTag() bool { return p.kind == mergeNeutral }

// Label is a variant tag, e.g. the 'Foo in 'Foo 5 or a bare enum value.
type Label string

// SealingKey is a unique integer tag minted by a polymorphic contract to
// witness that a value flowed through a specific quantified type variable.
type SealingKey int32

// --- atomic literals ---

type Null struct{ base }

type Bool struct {
	base
	Value bool
}

// Num carries an arbitrary-precision rational numeral. big.Rat is used
// rather than an arbitrary-precision decimal library, which cannot
// represent exact fractions -- see DESIGN.md.
type Num struct {
	base
	Value *big.Rat
}

type Str struct {
	base
	Value string
}

// Enum is a bare enum tag with no payload, e.g. 'Foo.
type Enum struct {
	base
	Tag Label
}

// Lbl wraps a blame label as a first-class term (used by the diagnostic
// manipulation operators in the operator catalogue).
type Lbl struct {
	base
	Label *BlameLabel
}

// BlameLabel carries source positions and polarity used to attribute
// contract violations.
type BlameLabel struct {
	Polarity  bool
	BlamedAt  token.Pos
	IssuedAt  token.Pos
	FieldPath []string
	TypeEnv   map[string]SealingKey
}

type SealingKeyTerm struct {
	base
	Value SealingKey
}

// --- composites ---

// ArrayAttrs carries per-array metadata distinct from per-element
// metadata; kept as a struct (rather than inlined booleans) so additional
// attributes can be added without breaking Array's shape.
type ArrayAttrs struct {
	Closed bool
}

type Array struct {
	base
	refCount
	Elts  []*RichTerm
	Attrs ArrayAttrs
}

// RecordData is an insertion-ordered map of field name to Field, plus an
// optional sealed polymorphic tail (from row-polymorphic record
// contracts). Insertion order is load-bearing: it must survive every
// transformation, since field order is user-observable.
type RecordData struct {
	FieldOrder []string
	Fields     map[string]*Field
	SealedTail *SealedTail
}

// NewRecordData builds an empty RecordData ready for ordered insertion.
func NewRecordData() *RecordData {
	return &RecordData{Fields: make(map[string]*Field)}
}

// Insert appends a new field, or replaces an existing one's value while
// preserving its original position in FieldOrder.
func (r *RecordData) Insert(name string, f *Field) {
	if _, exists := r.Fields[name]; !exists {
		r.FieldOrder = append(r.FieldOrder, name)
	}
	r.Fields[name] = f
}

// Remove deletes a field, preserving the relative order of the rest.
func (r *RecordData) Remove(name string) {
	if _, ok := r.Fields[name]; !ok {
		return
	}
	delete(r.Fields, name)
	for i, n := range r.FieldOrder {
		if n == name {
			r.FieldOrder = append(r.FieldOrder[:i], r.FieldOrder[i+1:]...)
			break
		}
	}
}

// Clone returns a shallow copy of r suitable as the sole pointee for
// in-place mutation (see MakeMutable); FieldOrder is copied so appends
// to the clone never alias the original's backing array.
func (r *RecordData) Clone() *RecordData {
	n := &RecordData{
		FieldOrder: append([]string(nil), r.FieldOrder...),
		Fields:     make(map[string]*Field, len(r.Fields)),
		SealedTail: r.SealedTail,
	}
	for k, v := range r.Fields {
		n.Fields[k] = v
	}
	return n
}

// SealedTail records that a record carries a polymorphic contract tail
// sealed under a sealing key, for parametricity of row-polymorphic
// record contracts (see the record-tail seal/unseal n-ary operators).
type SealedTail struct {
	Key    SealingKey
	Label  *BlameLabel
	Domain *RecordData // fields the contract still constrains
}

// FieldMetadata is the metadata half of a Field: whether it is optional,
// excluded from `force`-export, and its merge priority. Kept separate
// from the value so pending contracts can be attached independent of
// whether the value itself is present yet.
type FieldMetadata struct {
	Optional     bool
	NotExported  bool
	Priority     MergePriority
	Doc          string
	Annotation   TypeAnnotation
	PendingConts []*RichTerm // contracts deferred until the field is observed
}

// Field is one entry of a RecordData: an optional value plus metadata.
// A Field with a nil Value but a non-nil Annotation.Typ compiles to a
// RuntimeError term when forced -- "declared type but no value".
type Field struct {
	Value    *RichTerm
	Metadata FieldMetadata
}

type Record struct {
	base
	refCount
	Data *RecordData
}

// RecRecord is a recursive record: in addition to the static fields of
// Record, it carries dynamic (computed) field names and an optional
// dependency graph used by the evaluator to order field forcing.
type RecRecord struct {
	base
	refCount
	Data      *RecordData
	DynFields []DynField
	Deps      *FieldDeps
}

// DynField is a record field whose name is itself an expression,
// e.g. { "\(x)" = 1 }.
type DynField struct {
	NameExpr *RichTerm
	Field    *Field
}

// FieldDeps records, for each static field, the set of other fields its
// value's free variables depend on; present only once computed by a
// transformation pass (it is optional in the data model).
type FieldDeps struct {
	DependsOn map[string][]string
}

// --- binders ---

type Ident struct {
	Name string
	Pos  token.Pos
}

type Fun struct {
	base
	Param Ident
	Body  *RichTerm
}

// FunPattern is a function whose parameter is destructured by a pattern
// rather than bound to a single identifier; OptionalAlias additionally
// binds the whole argument under a name. term/pattern compiles the
// Pattern itself but has no pass that rewrites FunPattern nodes.
type FunPattern struct {
	base
	OptionalAlias *Ident
	Pattern       *Pattern
	Body          *RichTerm
}

// LetAttrs distinguishes a recursive let (whose bound term can refer to
// itself) from a plain one, and records the let's binding type (Walk vs
// Enforce, mirroring the pattern elaborator's two modes) for the
// typechecker.
type LetAttrs struct {
	Rec         bool
	BindingType BindingType
}

type BindingType int

const (
	BindingWalk BindingType = iota
	BindingEnforce
)

type Let struct {
	base
	Id    Ident
	Bound *RichTerm
	Body  *RichTerm
	Attrs LetAttrs
}

// LetPattern is Let's destructuring counterpart. term/pattern compiles
// the Pattern itself but has no pass that rewrites LetPattern nodes.
type LetPattern struct {
	base
	OptionalAlias *Ident
	Pattern       *Pattern
	Bound         *RichTerm
	Body          *RichTerm
}

// --- elimination ---

type App struct {
	base
	Fun *RichTerm
	Arg *RichTerm
}

type Var struct {
	base
	Id Ident
}

// MatchBranch is one arm of a Match: the ordered-map value for a given
// enum tag.
type MatchBranch struct {
	Body *RichTerm
}

// Match is a match expression whose cases key on enum tags. term/pattern's
// CompileMatch does not build Match nodes; it lowers structural match
// arms to Let and OpN terms instead.
type Match struct {
	base
	CaseOrder []Label
	Cases     map[Label]*MatchBranch
	Default   *RichTerm // nil means a NonExhaustiveMatch RuntimeError on miss
}

type Op1 struct {
	base
	Op  operator.Op
	Arg *RichTerm
}

type Op2 struct {
	base
	Op   operator.Op
	Arg1 *RichTerm
	Arg2 *RichTerm
}

type OpN struct {
	base
	Op   operator.Op
	Args []*RichTerm
}

// --- string interpolation ---

// StrChunk is one piece of an interpolated string literal.
type StrChunk interface{ strChunk() }

type StrChunkLiteral struct{ Value string }
type StrChunkExpr struct {
	Term   *RichTerm
	Indent int
}

func (StrChunkLiteral) strChunk() {}
func (StrChunkExpr) strChunk()    {}

// StrChunks stores its chunks in REVERSE order (invariant 4): the
// evaluator builds the rendered string by repeatedly popping the last
// element, which is O(1) on a Go slice's tail but would be O(n) from the
// front.
type StrChunks struct {
	base
	ChunksRev []StrChunk
}

// --- contract / type machinery ---

type Sealed struct {
	base
	Key   SealingKey
	Inner *RichTerm
	Label *BlameLabel
}

type Annotated struct {
	base
	Annotation TypeAnnotation
	Inner      *RichTerm
}

// LabeledType pairs a type with the blame label to attribute violations
// of it to.
type LabeledType struct {
	Typ   *Type
	Label *BlameLabel
}

// TypeAnnotation is {typ: optional labeled_type, contracts: [...]}.
type TypeAnnotation struct {
	Typ       *LabeledType
	Contracts []LabeledType
}

// Combine folds two annotations, keeping a's primary type (if any,
// otherwise b's) and appending b's contracts that are not already
// present in a's, deduplicating by the contract type's identity.
func (a TypeAnnotation) Combine(b TypeAnnotation) TypeAnnotation {
	out := TypeAnnotation{Typ: a.Typ}
	if out.Typ == nil {
		out.Typ = b.Typ
	}
	out.Contracts = append(out.Contracts, a.Contracts...)
	for _, c := range b.Contracts {
		dup := false
		for _, existing := range out.Contracts {
			if existing.Typ.sameShape(c.Typ) {
				dup = true
				break
			}
		}
		if !dup {
			out.Contracts = append(out.Contracts, c)
		}
	}
	return out
}

// Type wraps a term-level type expression (out of scope in detail here;
// only the shell the typechecker and pattern elaborator manipulate is
// specified).
type Type struct {
	base
	Kind TypeKind
}

type TypeKind interface{ typeKind() }

func (t *Type) sameShape(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.Kind == o.Kind
}

type TypeTerm struct {
	base
	Value *Type
}

// --- import lifecycle ---

type Import struct {
	base
	RawPath string
	Package bool // true if this is a package import (name-keyed, not a file path)
}

// FileId is the cache key of the resolved import target; a small opaque
// handle, mirroring cache.CacheKey.
type FileId uint32

type ResolvedImport struct {
	base
	File FileId
}

// --- degenerate ---

type ParseError struct {
	base
	Info string
}

// RuntimeError is embedded rather than raised: it evaluates to a
// specific error only when forced, so that unrelated fields of the same
// record can still evaluate successfully (used for fields with a
// declared type but no value).
type RuntimeError struct {
	base
	Info string
}

// Closure is an inlined thunk handle: a concession to evaluator
// performance flagged in the design notes as a temporary abstraction
// leak. Traversals never descend into it; equality on it is always
// false (see RichTerm.Equal).
type Closure struct {
	base
	CacheIndex uint64
}
