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

// Order selects whether Traverse applies f before or after recursing
// into a node's children.
type Order int

const (
	// TopDown applies f to a node, then recurses into the (possibly
	// rewritten) node's children.
	TopDown Order = iota
	// BottomUp recurses into a node's children first, then applies f to
	// the node with its children already rewritten.
	BottomUp
)

// instrKind names the two instructions Traverse's work stack is built
// from (design notes, §9): "recurse into my children" and "apply f to
// me". Representing both traversal orders as different orderings of
// the same two instructions, rather than as two separate recursive
// functions, is what keeps the whole engine iterative.
type instrKind int

const (
	instrRecurse instrKind = iota
	instrApplyF
)

// slot is an indirection onto wherever a *RichTerm value actually lives
// (a struct field, a slice element, a map entry): get/set let Traverse
// read and rewrite a child without the child kind needing to know it is
// being traversed.
type slot struct {
	get func() *RichTerm
	set func(*RichTerm)
}

type frame struct {
	kind instrKind
	s    slot
}

// Traverse rewrites every *RichTerm reachable from root by f, in either
// top-down or bottom-up order, using an explicit work stack instead of
// Go call-stack recursion so realistically deep configuration programs
// cannot blow the stack. It does not descend into a Closure's
// referenced value: closures are opaque at this layer. Errors returned
// by f short-circuit the walk immediately.
func Traverse(root *RichTerm, f func(*RichTerm) (*RichTerm, error), order Order) (*RichTerm, error) {
	result := root
	rootSlot := slot{
		get: func() *RichTerm { return result },
		set: func(t *RichTerm) { result = t },
	}

	var stack []frame
	switch order {
	case TopDown:
		// Popped in push order reversed: applyF runs first, then recurse.
		stack = []frame{{instrRecurse, rootSlot}, {instrApplyF, rootSlot}}
	default: // BottomUp
		stack = []frame{{instrApplyF, rootSlot}, {instrRecurse, rootSlot}}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch top.kind {
		case instrApplyF:
			rewritten, err := f(top.s.get())
			if err != nil {
				return nil, err
			}
			top.s.set(rewritten)

		case instrRecurse:
			children := childSlots(top.s.get())
			// Children must be visited left-to-right; since this is a
			// LIFO stack, push them in reverse so the first child ends
			// up on top.
			for i := len(children) - 1; i >= 0; i-- {
				c := children[i]
				if order == BottomUp {
					stack = append(stack, frame{instrApplyF, c}, frame{instrRecurse, c})
				} else {
					stack = append(stack, frame{instrRecurse, c}, frame{instrApplyF, c})
				}
			}
		}
	}
	return result, nil
}

// childSlots returns a slot per direct *RichTerm child of t's node. A
// Closure's referenced value is deliberately omitted: traversal must
// not descend into it (§4.1 edge cases).
func childSlots(t *RichTerm) []slot {
	var out []slot
	field := func(get func() *RichTerm, set func(*RichTerm)) {
		out = append(out, slot{get, set})
	}

	switch n := t.Node.(type) {
	case *Array:
		for i := range n.Elts {
			i := i
			field(func() *RichTerm { return n.Elts[i] }, func(v *RichTerm) { n.Elts[i] = v })
		}
	case *Record:
		fieldsOf(n.Data, field)
	case *RecRecord:
		fieldsOf(n.Data, field)
		for i := range n.DynFields {
			i := i
			if n.DynFields[i].NameExpr != nil {
				field(func() *RichTerm { return n.DynFields[i].NameExpr },
					func(v *RichTerm) { n.DynFields[i].NameExpr = v })
			}
			if n.DynFields[i].Field.Value != nil {
				field(func() *RichTerm { return n.DynFields[i].Field.Value },
					func(v *RichTerm) { n.DynFields[i].Field.Value = v })
			}
		}
	case *Fun:
		field(func() *RichTerm { return n.Body }, func(v *RichTerm) { n.Body = v })
	case *FunPattern:
		field(func() *RichTerm { return n.Body }, func(v *RichTerm) { n.Body = v })
	case *Let:
		field(func() *RichTerm { return n.Bound }, func(v *RichTerm) { n.Bound = v })
		field(func() *RichTerm { return n.Body }, func(v *RichTerm) { n.Body = v })
	case *LetPattern:
		field(func() *RichTerm { return n.Bound }, func(v *RichTerm) { n.Bound = v })
		field(func() *RichTerm { return n.Body }, func(v *RichTerm) { n.Body = v })
	case *App:
		field(func() *RichTerm { return n.Fun }, func(v *RichTerm) { n.Fun = v })
		field(func() *RichTerm { return n.Arg }, func(v *RichTerm) { n.Arg = v })
	case *Match:
		for _, tag := range n.CaseOrder {
			tag := tag
			field(func() *RichTerm { return n.Cases[tag].Body }, func(v *RichTerm) { n.Cases[tag].Body = v })
		}
		if n.Default != nil {
			field(func() *RichTerm { return n.Default }, func(v *RichTerm) { n.Default = v })
		}
	case *Op1:
		field(func() *RichTerm { return n.Arg }, func(v *RichTerm) { n.Arg = v })
	case *Op2:
		field(func() *RichTerm { return n.Arg1 }, func(v *RichTerm) { n.Arg1 = v })
		field(func() *RichTerm { return n.Arg2 }, func(v *RichTerm) { n.Arg2 = v })
	case *OpN:
		for i := range n.Args {
			i := i
			field(func() *RichTerm { return n.Args[i] }, func(v *RichTerm) { n.Args[i] = v })
		}
	case *StrChunks:
		for i := range n.ChunksRev {
			i := i
			if _, ok := n.ChunksRev[i].(StrChunkExpr); ok {
				field(func() *RichTerm { return n.ChunksRev[i].(StrChunkExpr).Term },
					func(v *RichTerm) {
						e := n.ChunksRev[i].(StrChunkExpr)
						e.Term = v
						n.ChunksRev[i] = e
					})
			}
		}
	case *Sealed:
		field(func() *RichTerm { return n.Inner }, func(v *RichTerm) { n.Inner = v })
	case *Annotated:
		// Contract/type terms in Annotation are Type values, not
		// *RichTerm, so there is nothing further to recurse into here.
		field(func() *RichTerm { return n.Inner }, func(v *RichTerm) { n.Inner = v })
	case *Closure:
		// Opaque: never descend into a closure's referenced value.
	}
	return out
}

func fieldsOf(data *RecordData, add func(get func() *RichTerm, set func(*RichTerm))) {
	for _, name := range data.FieldOrder {
		name := name
		f := data.Fields[name]
		if f.Value == nil {
			continue
		}
		add(func() *RichTerm { return data.Fields[name].Value },
			func(v *RichTerm) { data.Fields[name].Value = v })
	}
}
