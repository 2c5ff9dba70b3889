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

import (
	"math/big"

	"github.com/cloudyluna/nickel/operator"
	"github.com/cloudyluna/nickel/token"
)

// Every constructor below wraps its node in a RichTerm with NoPos/NoPos;
// callers that have real source positions should follow up with
// WithPos. This mirrors cue/ast's pattern of cheap, position-less
// constructors used heavily by transformations that synthesize new
// terms (as opposed to the parser, which always has a span on hand).

func wrap(n Node) *RichTerm { return NewRichTerm(n, token.NoPos, token.NoPos) }

func MkNull() *RichTerm        { return wrap(&Null{}) }
func MkBool(b bool) *RichTerm  { return wrap(&Bool{Value: b}) }
func MkNum(r *big.Rat) *RichTerm { return wrap(&Num{Value: r}) }
func MkStr(s string) *RichTerm { return wrap(&Str{Value: s}) }
func MkEnum(tag Label) *RichTerm { return wrap(&Enum{Tag: tag}) }
func MkSealingKey(k SealingKey) *RichTerm { return wrap(&SealingKeyTerm{Value: k}) }

func MkArray(elts ...*RichTerm) *RichTerm {
	return wrap(&Array{Elts: elts})
}

func MkRecord(data *RecordData) *RichTerm {
	return wrap(&Record{Data: data})
}

func MkRecRecord(data *RecordData, dyn []DynField) *RichTerm {
	return wrap(&RecRecord{Data: data, DynFields: dyn})
}

func MkFun(param Ident, body *RichTerm) *RichTerm {
	return wrap(&Fun{Param: param, Body: body})
}

func MkFunPattern(alias *Ident, pat *Pattern, body *RichTerm) *RichTerm {
	return wrap(&FunPattern{OptionalAlias: alias, Pattern: pat, Body: body})
}

func MkLet(id Ident, bound, body *RichTerm, rec bool) *RichTerm {
	return wrap(&Let{Id: id, Bound: bound, Body: body, Attrs: LetAttrs{Rec: rec}})
}

func MkLetPattern(alias *Ident, pat *Pattern, bound, body *RichTerm) *RichTerm {
	return wrap(&LetPattern{OptionalAlias: alias, Pattern: pat, Bound: bound, Body: body})
}

func MkApp(fn, arg *RichTerm) *RichTerm {
	return wrap(&App{Fun: fn, Arg: arg})
}

func MkVar(id Ident) *RichTerm {
	return wrap(&Var{Id: id})
}

// MkMatch builds a Match whose cases are given in display/compile order;
// CaseOrder preserves that order so downstream passes (and tests) can
// observe a deterministic iteration order over the otherwise-unordered
// Cases map.
func MkMatch(order []Label, cases map[Label]*MatchBranch, def *RichTerm) *RichTerm {
	return wrap(&Match{CaseOrder: order, Cases: cases, Default: def})
}

func MkOp1(op operator.Op, arg *RichTerm) *RichTerm {
	return wrap(&Op1{Op: op, Arg: arg})
}

func MkOp2(op operator.Op, a1, a2 *RichTerm) *RichTerm {
	return wrap(&Op2{Op: op, Arg1: a1, Arg2: a2})
}

func MkOpN(op operator.Op, args ...*RichTerm) *RichTerm {
	return wrap(&OpN{Op: op, Args: args})
}

// MkStrChunks reverses chunks into storage order (invariant 4): callers
// pass chunks in natural reading order; the reversal is this
// constructor's job so no call site has to remember to do it itself.
func MkStrChunks(chunks ...StrChunk) *RichTerm {
	rev := make([]StrChunk, len(chunks))
	for i, c := range chunks {
		rev[len(chunks)-1-i] = c
	}
	return wrap(&StrChunks{ChunksRev: rev})
}

func MkSealed(key SealingKey, inner *RichTerm, label *BlameLabel) *RichTerm {
	return wrap(&Sealed{Key: key, Inner: inner, Label: label})
}

func MkAnnotated(ann TypeAnnotation, inner *RichTerm) *RichTerm {
	return wrap(&Annotated{Annotation: ann, Inner: inner})
}

func MkType(k TypeKind) *RichTerm {
	return wrap(&TypeTerm{Value: &Type{Kind: k}})
}

func MkImport(path string, pkg bool) *RichTerm {
	return wrap(&Import{RawPath: path, Package: pkg})
}

func MkResolvedImport(id FileId) *RichTerm {
	return wrap(&ResolvedImport{File: id})
}

func MkParseError(info string) *RichTerm {
	return wrap(&ParseError{Info: info})
}

func MkRuntimeError(info string) *RichTerm {
	return wrap(&RuntimeError{Info: info})
}

func MkClosure(idx uint64) *RichTerm {
	return wrap(&Closure{CacheIndex: idx})
}
