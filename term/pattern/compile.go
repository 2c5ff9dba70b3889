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

// Package pattern lowers term.Pattern trees and match expressions into
// pattern-less core expressions built only from the term package's
// binder/elimination nodes and the operator catalogue -- a naive
// decision tree, in the terminology of spec §4.3: each branch compiles
// to a predicate/extractor pair tried in order, trading optimal
// decision-tree construction for a compiler that stays self-contained.
package pattern

import (
	"fmt"
	"math/big"

	"github.com/cloudyluna/nickel/operator"
	"github.com/cloudyluna/nickel/term"
)

// restField is the private extra field threaded through a record
// pattern's bindings record to carry the residual of the scrutinee --
// the fields not yet consumed by a listed FieldPattern. Its exact
// spelling only needs to be something the surface parser can never
// produce; the concrete sigil is implementation-defined and is stable
// within one compilation unit (design notes, §9).
const restField = "%rest-field"

// Compiler lowers patterns, minting fresh identifiers from a
// monotonically increasing counter so that two calls to Compile within
// the same Compiler never collide, even across unrelated match arms.
type Compiler struct {
	counter int
}

// NewCompiler returns a Compiler whose fresh-name counter starts at zero.
func NewCompiler() *Compiler { return &Compiler{} }

// fresh mints an identifier guaranteed not to collide with user syntax
// or with any other name this Compiler has minted so far. The leading
// '%' is not a character the parser can produce in an identifier.
func (c *Compiler) fresh(tag string) term.Ident {
	c.counter++
	return term.Ident{Name: fmt.Sprintf("%%%s%d", tag, c.counter)}
}

// Branch is one arm of a match expression, in the surface form the
// compiler consumes: a structural pattern plus the body to run when it
// matches the scrutinee value (with all of the pattern's bindings in
// scope).
type Branch struct {
	Pattern *term.Pattern
	Body    *term.RichTerm
}

// CompileMatch lowers a match expression with the given scrutinee,
// ordered branches, and optional default into pure App/Let/Match-free
// core expressions: branches fold right to left over the default (or a
// synthetic NonExhaustiveMatch RuntimeError if there is none), each
// layer compiling its pattern and checking the Null sentinel to decide
// whether to fall through.
func (c *Compiler) CompileMatch(scrutinee *term.RichTerm, branches []Branch, def *term.RichTerm) *term.RichTerm {
	valueId := c.fresh("value")
	fallback := def
	if fallback == nil {
		fallback = term.MkRuntimeError("non-exhaustive match")
	}
	body := fallback
	for i := len(branches) - 1; i >= 0; i-- {
		body = c.compileBranch(valueId, branches[i], body)
	}
	return term.MkLet(valueId, scrutinee, body, false)
}

// compileBranch wires one Branch.Pattern's compiled predicate/extractor
// into: if the match fails (the compiled pattern evaluates to Null),
// fall through to next; otherwise evaluate Branch.Body with the
// bindings record extending the environment. The "apply body with
// bindings extending the environment" half is represented here as a
// chain of plain Lets, one per bound name, each projecting that name
// out of the bindings record (see bindAndRun), rather than a dedicated
// PatternBranch primitive.
func (c *Compiler) compileBranch(valueId term.Ident, br Branch, next *term.RichTerm) *term.RichTerm {
	bindingsId := c.fresh("bindings")
	compiled := c.CompilePattern(br.Pattern, valueId, bindingsId)

	resultId := c.fresh("result")
	// bindingsId starts out as the empty bindings accumulator that
	// CompilePattern threads through; its final value (Null on mismatch,
	// or the completed bindings record) is what resultId names.
	seeded := term.MkLet(bindingsId, term.MkRecord(term.NewRecordData()), compiled, false)
	matched := c.bindAndRun(resultId, br.Pattern, br.Body)
	branch := matchNullCheck(resultId, matched, next)
	return term.MkLet(resultId, seeded, branch, false)
}

// matchNullCheck builds `if resultId is Null then next else matched`.
func matchNullCheck(resultId term.Ident, matched, next *term.RichTerm) *term.RichTerm {
	isNull := term.MkOp2(operator.Eq, term.MkOp1(operator.Typeof, term.MkVar(resultId)), term.MkEnum("Null"))
	return ifThenElse(isNull, next, matched)
}

// bindAndRun re-destructures the bindings record produced by
// CompilePattern back into the pattern's own binding names before
// running body, so Branch.Body sees exactly the identifiers the
// pattern introduces (and nothing under bindingsId's internal REST_FIELD
// bookkeeping, which CompilePattern always resolves away by the time it
// returns).
func (c *Compiler) bindAndRun(bindingsId term.Ident, p *term.Pattern, body *term.RichTerm) *term.RichTerm {
	out := body
	for _, name := range Bindings(p) {
		out = term.MkLet(
			term.Ident{Name: name},
			term.MkOp2(operator.RecordAccess, term.MkStr(name), term.MkVar(bindingsId)),
			out,
			false,
		)
	}
	return out
}

// CompilePattern compiles p into an expression parameterised on valueId
// (holding the scrutinee) and bindingsId (holding the bindings
// accumulator so far): the result evaluates to Null on mismatch, or an
// updated bindings record on match.
func (c *Compiler) CompilePattern(p *term.Pattern, valueId, bindingsId term.Ident) *term.RichTerm {
	var compiled *term.RichTerm
	switch data := p.Data.(type) {
	case term.Wildcard:
		compiled = term.MkVar(bindingsId)
	case term.Any:
		compiled = term.MkOpN(operator.RecordInsert, term.MkVar(bindingsId), term.MkStr(data.Id.Name), term.MkVar(valueId))
	case term.Constant:
		compiled = c.compileConstant(data, valueId, bindingsId)
	case term.EnumPattern:
		compiled = c.compileEnum(data, valueId, bindingsId)
	case term.RecordPattern:
		compiled = c.compileRecord(data, valueId, bindingsId)
	default:
		compiled = term.MkRuntimeError("unreachable pattern case")
	}

	if p.Alias == nil {
		return compiled
	}
	// An alias binds the whole matched value in addition to whatever the
	// pattern itself bound; it must not fire on a failed match, so the
	// insert is guarded behind the same Null check every other
	// compilation step uses.
	innerId := c.fresh("aliased")
	withAlias := term.MkOpN(operator.RecordInsert, term.MkVar(innerId), term.MkStr(p.Alias.Name), term.MkVar(valueId))
	guarded := matchNullCheck(innerId, withAlias, term.MkNull())
	return term.MkLet(innerId, compiled, guarded, false)
}

func (c *Compiler) compileConstant(data term.Constant, valueId, bindingsId term.Ident) *term.RichTerm {
	// Null compares against the typeof of the scrutinee (constant
	// patterns written as `null` match exactly the values whose dynamic
	// type the parser would spell as "Null").
	if _, isNull := data.Value.Node.(*term.Null); isNull {
		eq := term.MkOp2(operator.Eq, term.MkOp1(operator.Typeof, term.MkVar(valueId)), term.MkEnum("Null"))
		return ifThenElse(eq, term.MkVar(bindingsId), term.MkNull())
	}
	eq := term.MkOp2(operator.Eq, term.MkVar(valueId), data.Value)
	return ifThenElse(eq, term.MkVar(bindingsId), term.MkNull())
}

func (c *Compiler) compileEnum(data term.EnumPattern, valueId, bindingsId term.Ident) *term.RichTerm {
	tagTerm := term.MkEnum(data.Tag)
	isVariant := term.MkOp2(operator.EnumIsVariant, tagTerm, term.MkVar(valueId))
	if data.Nested == nil {
		return ifThenElse(isVariant, term.MkVar(bindingsId), term.MkNull())
	}
	payloadId := c.fresh("payload")
	nested := c.CompilePattern(data.Nested, payloadId, bindingsId)
	withPayload := term.MkLet(payloadId, term.MkOp1(operator.EnumUnwrapVariant, term.MkVar(valueId)), nested, false)
	return ifThenElse(isVariant, withPayload, term.MkNull())
}

// compileRecord threads the residual of the scrutinee through
// bindingsId's private restField entry (design notes, §9) rather than
// through a separate identifier: every listed field reads restField out
// of the CURRENT bindingsId, narrows it, and writes the narrowed
// residual back into bindingsId before recursing into its own nested
// pattern, so a field's extractor always sees the residual left behind
// by the fields already matched before it. The fold therefore has to
// run right to left: compileFieldPattern's hasField/fetch read
// bindingsId as it stood just before this field was processed, and that
// "just before" state is only correct if the fields to its left in
// data.Fields are still outside it (evaluated first, at an outer
// scope), which a right-to-left fold over "rest" achieves.
func (c *Compiler) compileRecord(data term.RecordPattern, valueId, bindingsId term.Ident) *term.RichTerm {
	seeded := term.MkOpN(operator.RecordInsert, term.MkVar(bindingsId), term.MkStr(restField), term.MkVar(valueId))

	acc := c.compileTail(data.Tail, bindingsId)
	for i := len(data.Fields) - 1; i >= 0; i-- {
		acc = c.compileFieldPattern(data.Fields[i], bindingsId, acc)
	}
	return term.MkLet(bindingsId, seeded, acc, false)
}

func (c *Compiler) compileFieldPattern(fp term.FieldPattern, bindingsId term.Ident, rest *term.RichTerm) *term.RichTerm {
	residual := term.MkOp2(operator.RecordAccess, term.MkStr(restField), term.MkVar(bindingsId))
	hasField := term.MkOp2(operator.RecordHasField, term.MkStr(fp.MatchedId.Name), residual)

	localValueId := c.fresh("fval")
	fetch := term.MkOp2(operator.RecordAccess, term.MkStr(fp.MatchedId.Name), residual)
	newResidual := term.MkOp2(operator.RecordRemove, term.MkStr(fp.MatchedId.Name), residual)
	updatedBindings := term.MkOpN(operator.RecordInsert, term.MkVar(bindingsId), term.MkStr(restField), newResidual)

	nestedPattern := fp.Nested
	if nestedPattern == nil {
		nestedPattern = &term.Pattern{Data: term.Any{Id: fp.MatchedId}}
	}

	// The nested pattern can itself fail to match (e.g. an enum-tag
	// mismatch under this field) -- its Null result must short-circuit
	// the rest of the field chain rather than flow into rest, which
	// would re-apply RecordAccess/RecordRemove/RecordInsert to Null.
	nestedResultId := c.fresh("fresult")
	nestedCompiled := c.CompilePattern(nestedPattern, localValueId, bindingsId)
	continued := term.MkLet(bindingsId, term.MkVar(nestedResultId), rest, false)
	guarded := matchNullCheck(nestedResultId, continued, term.MkNull())

	matchBody := term.MkLet(localValueId, fetch,
		term.MkLet(bindingsId, updatedBindings,
			term.MkLet(nestedResultId, nestedCompiled, guarded, false),
			false),
		false)
	return ifThenElse(hasField, matchBody, term.MkNull())
}

// compileTail resolves what happens to the residual left in
// bindingsId's restField entry once every listed field has been
// carved out, and -- for every tail kind, not just Capture -- strips
// restField back out of bindingsId so it never leaks into a matched
// branch's visible bindings.
func (c *Compiler) compileTail(tail term.RecordTail, bindingsId term.Ident) *term.RichTerm {
	residual := term.MkOp2(operator.RecordAccess, term.MkStr(restField), term.MkVar(bindingsId))
	stripped := term.MkOp2(operator.RecordRemove, term.MkStr(restField), term.MkVar(bindingsId))

	switch tail.Kind {
	case term.TailEmpty:
		isEmpty := term.MkOp2(operator.Eq,
			term.MkOp1(operator.ArrayLength, term.MkOp1(operator.RecordFields, residual)),
			term.MkNum(big.NewRat(0, 1)))
		return ifThenElse(isEmpty, stripped, term.MkNull())
	case term.TailOpen:
		return stripped
	case term.TailCapture:
		return term.MkOpN(operator.RecordInsert, stripped, term.MkStr(tail.Capture.Name), residual)
	default:
		return stripped
	}
}

// ifThenElse encodes the Special-fixity if-then-else primitive the
// operator catalogue reserves (operator.IfThenElse): condition,
// then-branch, else-branch, with no reduction semantics attached here --
// those belong to the (out of scope) evaluator.
func ifThenElse(cond, then, els *term.RichTerm) *term.RichTerm {
	return term.MkOpN(operator.IfThenElse, cond, then, els)
}

// Bindings returns the list of names p introduces, in a stable
// left-to-right order matching the order fields/nested patterns are
// declared. Used to re-project CompilePattern's bindings record back
// onto user-visible names (see bindAndRun).
func Bindings(p *term.Pattern) []string {
	var out []string
	if p.Alias != nil {
		out = append(out, p.Alias.Name)
	}
	switch data := p.Data.(type) {
	case term.Any:
		out = append(out, data.Id.Name)
	case term.EnumPattern:
		if data.Nested != nil {
			out = append(out, Bindings(data.Nested)...)
		}
	case term.RecordPattern:
		for _, fp := range data.Fields {
			if fp.Nested != nil {
				out = append(out, Bindings(fp.Nested)...)
			} else {
				out = append(out, fp.MatchedId.Name)
			}
		}
		if data.Tail.Kind == term.TailCapture {
			out = append(out, data.Tail.Capture.Name)
		}
	}
	return out
}
