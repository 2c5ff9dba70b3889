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

// Package operator declares the closed enumeration of Nickel's strict
// unary, binary, and n-ary primitives: the catalogue that the pattern
// compiler emits terms in and that the (out-of-scope) evaluator reduces.
//
// The shape -- one Go type per arity class, a struct of display metadata
// per operator, and a package-level registry -- follows the style of
// cue/token's operator/keyword tables, generalized from a handful of
// lexical tokens to Nickel's much larger strict-primitive set.
package operator

// Arity classifies how many arguments an operator's term case carries.
type Arity int

const (
	Unary Arity = iota + 1
	Binary
	Nary
)

// Fixity describes how an operator is notated in source/diagnostics.
type Fixity int

const (
	Prefix Fixity = iota
	Infix
	Postfix
	// Special covers notations that aren't simple prefix/infix/postfix
	// application: if-then-else, the short-circuiting boolean operators
	// (modelled unary, see Op1 below, to encode laziness of the second
	// argument), and static field access.
	Special
)

// Op identifies one primitive operator. It is comparable and usable as a
// map key, letting term.Op1/Op2/OpN store it directly without a pointer.
type Op struct {
	name string
}

// Info is the catalogue entry for an Op: everything diagnostics or the
// pretty-printer (out of scope) need to display it.
type Info struct {
	Op     Op
	Name   string
	Arity  Arity
	Fixity Fixity
}

// String returns the operator's diagnostic name.
func (o Op) String() string { return o.name }

var registry = map[Op]Info{}

func define(name string, arity Arity, fixity Fixity) Op {
	op := Op{name: name}
	registry[op] = Info{Op: op, Name: name, Arity: arity, Fixity: fixity}
	return op
}

// Lookup returns the catalogue entry for op.
func Lookup(op Op) (Info, bool) {
	info, ok := registry[op]
	return info, ok
}

// All returns every registered operator's info, for tooling that wants
// to enumerate the whole catalogue (diagnostics, documentation).
func All() []Info {
	out := make([]Info, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	return out
}

// --- Unary operators ---

// IfThenElse is the Special-fixity ternary the operator catalogue
// reserves a slot for, per §4.2 ("Special for e.g. if-then-else").
// Modelled here as a plain n-ary op (condition, then-branch,
// else-branch) rather than a dedicated AST node, since nothing else in
// this core needs to distinguish it structurally from any other
// strict n-ary primitive.
var IfThenElse = define("if_then_else", Nary, Special)

var (
	// BoolAnd/BoolOr are modelled unary (despite being logically binary)
	// to encode laziness in the second argument: Op1(BoolAnd, x) is a
	// partial application awaiting the second, unevaluated operand via
	// the Special `&&`/`||` surface forms (out of scope here).
	BoolAnd = define("bool_and", Unary, Special)
	BoolOr  = define("bool_or", Unary, Special)

	Typeof        = define("typeof", Unary, Prefix)
	Blame         = define("blame", Unary, Prefix)
	LabelGoDown   = define("label_go_down", Unary, Prefix) // label-path navigation
	LabelPushDiag = define("label_push_diag", Unary, Prefix)
	LabelPopDiag  = define("label_pop_diag", Unary, Prefix)

	ArrayLength  = define("array_length", Unary, Prefix)
	ArrayGen     = define("array_gen", Unary, Prefix)
	RecordFields = define("record_fields", Unary, Prefix)
	RecordValues = define("record_values", Unary, Prefix)
	RecordMap    = define("record_map", Unary, Prefix)

	StrTrim      = define("str_trim", Unary, Prefix)
	StrChars     = define("str_chars", Unary, Prefix)
	CharCode     = define("char_code", Unary, Prefix)
	CharFromCode = define("char_from_code", Unary, Prefix)
	StrUppercase = define("str_uppercase", Unary, Prefix)
	StrLowercase = define("str_lowercase", Unary, Prefix)
	StrLength    = define("str_length", Unary, Prefix)

	// StrIsMatch wraps a compiled regex whose identity is the source
	// pattern string; see CompiledRegex.
	StrIsMatch = define("str_is_match", Unary, Prefix)
	StrMatch   = define("str_match", Unary, Prefix)

	// Force deep-evaluates a value for export; IgnoreNotExported controls
	// whether fields marked not-exported are skipped or forced anyway.
	Force = define("force", Unary, Prefix)

	RecDefault = define("rec_default", Unary, Prefix)
	RecForce   = define("rec_force", Unary, Prefix)
)

// ForceParams carries Force{ignore_not_exported}'s one attribute; Op1
// itself only stores the Op identity, so a term using Force alongside
// this flag threads it through term.Op1's surrounding Annotated/Sealed
// wrapper or a dedicated field on the call site (out of scope: the
// evaluator owns the exact threading).
type ForceParams struct {
	IgnoreNotExported bool
}

// CompiledRegex wraps a compiled regex engine object (out of scope: the
// regex engine itself) with an identity based on its source pattern:
// two CompiledRegex values are equal iff their Source fields are equal,
// regardless of whether they wrap the same underlying compiled object.
type CompiledRegex struct {
	Source  string
	Compile func(string) (any, error)
	cached  any
	err     error
	done    bool
}

// Get returns (and memoizes) the compiled form, calling Compile at most
// once per CompiledRegex value.
func (c *CompiledRegex) Get() (any, error) {
	if !c.done {
		c.cached, c.err = c.Compile(c.Source)
		c.done = true
	}
	return c.cached, c.err
}

// Equal implements the source-pattern-only identity rule.
func (c *CompiledRegex) Equal(o *CompiledRegex) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Source == o.Source
}

// --- Binary operators ---

var (
	Plus  = define("plus", Binary, Infix)
	Minus = define("minus", Binary, Infix)
	Times = define("times", Binary, Infix)
	Div   = define("div", Binary, Infix)

	LessThan    = define("lt", Binary, Infix)
	LessOrEq    = define("leq", Binary, Infix)
	GreaterThan = define("gt", Binary, Infix)
	GreaterOrEq = define("geq", Binary, Infix)
	Eq          = define("eq", Binary, Infix)

	RecordRemove = define("record_remove", Binary, Prefix)
	RecordAccess = define("record_access", Binary, Infix)
	RecordHasField = define("record_has_field", Binary, Prefix)

	// EnumIsVariant reports whether its second argument is either a bare
	// enum tag equal to its first argument, or an applied enum variant
	// (tag with payload, represented as App(Enum(tag), payload)) whose
	// tag equals it. EnumUnwrapVariant extracts that payload. Both back
	// the pattern compiler's enum-pattern lowering (package
	// term/pattern); see DESIGN.md for why variants-as-application was
	// chosen over a dedicated payload-carrying Enum case.
	EnumIsVariant     = define("enum_is_variant", Binary, Prefix)
	EnumUnwrapVariant = define("enum_unwrap_variant", Unary, Prefix)

	ContractApply = define("contract_apply", Binary, Special)
	Seal          = define("seal", Binary, Prefix)
	Unseal        = define("unseal", Binary, Prefix)

	Merge = define("merge", Binary, Infix)

	ArrayLazyAppContract  = define("array_lazy_app_contract", Binary, Prefix)
	RecordLazyAppContract = define("record_lazy_app_contract", Binary, Prefix)
)

// --- N-ary operators ---

var (
	StrSubstr      = define("str_substr", Nary, Prefix)
	StrReplace     = define("str_replace", Nary, Prefix)
	StrReplaceRegex = define("str_replace_regex", Nary, Prefix)
	StrSlice       = define("str_slice", Nary, Prefix)

	// RecordSealTail/RecordUnsealTail implement parametricity for
	// row-polymorphic record contracts: a contract seals the fields it
	// does not know about under a fresh key so a function cannot forge
	// access to them; unsealing reverses that at the matching site.
	RecordSealTail   = define("record_seal_tail", Nary, Prefix)
	RecordUnsealTail = define("record_unseal_tail", Nary, Prefix)

	LabelInsertTypeVar = define("label_insert_type_var", Nary, Prefix)
	ArraySlice         = define("array_slice", Nary, Prefix)

	// RecordInsert takes (record, field name, value); it is n-ary rather
	// than binary because a field insertion needs all three to produce
	// a new record.
	RecordInsert = define("record_insert", Nary, Prefix)
)
