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
	"math/big"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/cloudyluna/nickel/operator"
	"github.com/cloudyluna/nickel/term"
)

// countOp walks a compiled term and counts how many OpN/Op1/Op2 nodes
// use op, the cheapest way to assert the compiler reached for a given
// primitive without building a reducer (out of scope: the evaluator).
func countOp(t *testing.T, root *term.RichTerm, op operator.Op) int {
	t.Helper()
	n := 0
	_, _ = term.TraverseRef(root, func(rt *term.RichTerm, _ *term.Scope) term.Control {
		switch node := rt.Node.(type) {
		case *term.Op1:
			if node.Op == op {
				n++
			}
		case *term.Op2:
			if node.Op == op {
				n++
			}
		case *term.OpN:
			if node.Op == op {
				n++
			}
		}
		return term.Control{Kind: term.Continue}
	}, &term.Scope{})
	return n
}

func TestFreshNamesNeverCollide(t *testing.T) {
	c := NewCompiler()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := c.fresh("tag")
		qt.Assert(t, qt.IsFalse(seen[id.Name]))
		seen[id.Name] = true
	}
}

func TestBindingsWildcardBindsNothing(t *testing.T) {
	p := &term.Pattern{Data: term.Wildcard{}}
	qt.Assert(t, qt.HasLen(Bindings(p), 0))
}

func TestBindingsAnyBindsItsId(t *testing.T) {
	p := &term.Pattern{Data: term.Any{Id: term.Ident{Name: "x"}}}
	qt.Assert(t, qt.DeepEquals(Bindings(p), []string{"x"}))
}

func TestBindingsAliasPrefixesOthers(t *testing.T) {
	p := &term.Pattern{
		Data:  term.Any{Id: term.Ident{Name: "x"}},
		Alias: &term.Ident{Name: "whole"},
	}
	qt.Assert(t, qt.DeepEquals(Bindings(p), []string{"whole", "x"}))
}

func TestBindingsEnumNestedPayload(t *testing.T) {
	p := &term.Pattern{
		Data: term.EnumPattern{
			Tag:    "Foo",
			Nested: &term.Pattern{Data: term.Any{Id: term.Ident{Name: "payload"}}},
		},
	}
	qt.Assert(t, qt.DeepEquals(Bindings(p), []string{"payload"}))
}

func TestBindingsEnumBareBindsNothing(t *testing.T) {
	p := &term.Pattern{Data: term.EnumPattern{Tag: "Foo"}}
	qt.Assert(t, qt.HasLen(Bindings(p), 0))
}

func TestBindingsRecordFieldsAndCapture(t *testing.T) {
	p := &term.Pattern{
		Data: term.RecordPattern{
			Fields: []term.FieldPattern{
				{MatchedId: term.Ident{Name: "a"}},
				{MatchedId: term.Ident{Name: "b"},
					Nested: &term.Pattern{Data: term.Any{Id: term.Ident{Name: "renamed"}}}},
			},
			Tail: term.RecordTail{Kind: term.TailCapture, Capture: term.Ident{Name: "rest"}},
		},
	}
	qt.Assert(t, qt.DeepEquals(Bindings(p), []string{"a", "renamed", "rest"}))
}

func TestCompilePatternWildcardIsPassthrough(t *testing.T) {
	c := NewCompiler()
	compiled := c.CompilePattern(&term.Pattern{Data: term.Wildcard{}}, term.Ident{Name: "v"}, term.Ident{Name: "b"})
	v, ok := compiled.Node.(*term.Var)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(v.Id.Name, "b"))
}

func TestCompilePatternConstantUsesIfThenElse(t *testing.T) {
	c := NewCompiler()
	lit := term.MkNum(big.NewRat(5, 1))
	compiled := c.CompilePattern(&term.Pattern{Data: term.Constant{Value: lit}},
		term.Ident{Name: "v"}, term.Ident{Name: "b"})
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.IfThenElse), 1))
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.Eq), 1))
}

func TestCompilePatternEnumWithPayloadUnwraps(t *testing.T) {
	c := NewCompiler()
	p := &term.Pattern{Data: term.EnumPattern{
		Tag:    "Foo",
		Nested: &term.Pattern{Data: term.Any{Id: term.Ident{Name: "payload"}}},
	}}
	compiled := c.CompilePattern(p, term.Ident{Name: "v"}, term.Ident{Name: "b"})
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.EnumIsVariant), 1))
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.EnumUnwrapVariant), 1))
}

func TestCompilePatternRecordNarrowsResidualPerField(t *testing.T) {
	c := NewCompiler()
	p := &term.Pattern{Data: term.RecordPattern{
		Fields: []term.FieldPattern{
			{MatchedId: term.Ident{Name: "a"}},
			{MatchedId: term.Ident{Name: "b"}},
		},
		Tail: term.RecordTail{Kind: term.TailEmpty},
	}}
	compiled := c.CompilePattern(p, term.Ident{Name: "v"}, term.Ident{Name: "b"})
	// One RecordHasField per listed field; one RecordRemove per listed
	// field plus one for the tail stripping the rest field.
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.RecordHasField), 2))
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.RecordRemove), 3))
}

func TestCompilePatternRecordCaptureInsertsRestBinding(t *testing.T) {
	c := NewCompiler()
	p := &term.Pattern{Data: term.RecordPattern{
		Tail: term.RecordTail{Kind: term.TailCapture, Capture: term.Ident{Name: "rest"}},
	}}
	compiled := c.CompilePattern(p, term.Ident{Name: "v"}, term.Ident{Name: "b"})
	qt.Assert(t, qt.Equals(countOp(t, compiled, operator.RecordInsert), 2)) // seed + capture
}

// TestCompilePatternRecordFieldNestedMismatchPropagatesNull guards
// against a nested field pattern's Null result leaking into the rest of
// the field chain instead of short-circuiting it, per spec scenario S2
// ({foo = 'Bar x} against {foo = 'Qux 7} must yield null).
func TestCompilePatternRecordFieldNestedMismatchPropagatesNull(t *testing.T) {
	c := NewCompiler()
	p := &term.Pattern{Data: term.RecordPattern{
		Fields: []term.FieldPattern{
			{MatchedId: term.Ident{Name: "foo"}, Nested: &term.Pattern{Data: term.EnumPattern{Tag: "Bar"}}},
		},
		Tail: term.RecordTail{Kind: term.TailOpen},
	}}
	bindingsId := term.Ident{Name: "b"}
	compiled := c.CompilePattern(p, term.Ident{Name: "v"}, bindingsId)

	outerLet, ok := compiled.Node.(*term.Let)
	qt.Assert(t, qt.IsTrue(ok))
	hasFieldIf, ok := outerLet.Body.Node.(*term.OpN)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(hasFieldIf.Op, operator.IfThenElse))

	// Descend through Let(localValueId) -> Let(bindingsId, updatedBindings)
	// -> Let(nestedResultId, nestedCompiled, guarded).
	let1, ok := hasFieldIf.Args[1].Node.(*term.Let)
	qt.Assert(t, qt.IsTrue(ok))
	let2, ok := let1.Body.Node.(*term.Let)
	qt.Assert(t, qt.IsTrue(ok))
	let3, ok := let2.Body.Node.(*term.Let)
	qt.Assert(t, qt.IsTrue(ok))

	guarded, ok := let3.Body.Node.(*term.OpN)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(guarded.Op, operator.IfThenElse))

	cond, ok := guarded.Args[0].Node.(*term.Op2)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(cond.Op, operator.Eq))
	enumNode, ok := cond.Arg2.Node.(*term.Enum)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(enumNode.Tag, term.Label("Null")))

	// then-branch (nested result is Null) must be Null itself -- it must
	// not continue into rest.
	_, thenIsNull := guarded.Args[1].Node.(*term.Null)
	qt.Assert(t, qt.IsTrue(thenIsNull))

	// else-branch (nested result matched) is what continues into rest,
	// rebinding bindingsId to the nested pattern's bindings.
	elseLet, ok := guarded.Args[2].Node.(*term.Let)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(elseLet.Id.Name, bindingsId.Name))
}

func TestCompileMatchChainsBranchesWithDefault(t *testing.T) {
	c := NewCompiler()
	scrutinee := term.MkNum(big.NewRat(1, 1))
	branches := []Branch{
		{Pattern: &term.Pattern{Data: term.Wildcard{}}, Body: term.MkStr("matched")},
	}
	compiled := c.CompileMatch(scrutinee, branches, term.MkStr("default"))
	letNode, ok := compiled.Node.(*term.Let)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.IsNotNil(letNode.Bound))
}
