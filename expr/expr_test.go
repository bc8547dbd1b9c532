// Copyright 2023 Kite Data, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package expr

import (
	"math/big"
	"testing"

	"github.com/kitedata/kite/wire"
)

func intlit(i int64) *Literal {
	return &Literal{Value: i, T: Int64T}
}

func strlit(s string) *Literal {
	return &Literal{Value: s, T: StringT}
}

func testTrees() []Node {
	x := &Column{ID: 1, Name: "x", T: Int64T, Nul: true}
	s := &Column{ID: 2, Name: "s", T: StringT}
	return []Node{
		intlit(42),
		&Literal{Value: nil, T: ListOf(Int32T)},
		&Literal{Value: big.NewInt(123456), T: DecimalOf(10, 2)},
		&Literal{Value: []any{int64(1), nil, int64(3)}, T: ListOf(Int64T)},
		x,
		&Param{Index: 3, T: Float64T, Nul: true},
		&Arith{Op: OpAdd, Left: x, Right: intlit(1), T: Int64T},
		&Compare{Op: LessEquals, Left: x, Right: intlit(9)},
		And(&Compare{Op: Equals, Left: x, Right: intlit(0)},
			&Compare{Op: NotEquals, Left: x, Right: intlit(1)}),
		&Not{Inner: &Compare{Op: Greater, Left: x, Right: intlit(2)}},
		&IsNull{Inner: x, Negate: true},
		&Cast{Inner: x, To: StringT},
		&Case{
			Whens: []When{{Cond: &IsNull{Inner: x}, Then: intlit(0)}},
			Else:  x,
			T:     Int64T,
		},
		&In{Probe: x, List: []Node{intlit(1), intlit(2), intlit(3)}},
		&Like{Inner: s, Pattern: strlit("%abc%")},
		&StringPred{Op: EndsWith, Inner: s, Pattern: strlit(".gz")},
		&Call{Func: "length", Args: []Node{s}, T: Int32T},
		&Call{Func: "my_udf", Args: []Node{x}, T: Int64T, Nul: true, UDF: true},
		&Aggregate{Op: AggFirst, Args: []Node{x}, IgnoreNulls: true, T: Int64T},
		&GetField{Inner: &Column{ID: 3, Name: "st", T: StructOf([]Field{{Name: "f", Type: Int64T}})}, Ordinal: 0, Name: "f", T: Int64T},
		&GetItem{Inner: &Column{ID: 4, Name: "arr", T: ListOf(Int64T)}, Sub: intlit(0), T: Int64T, Nul: true},
		&GetMapValue{Inner: &Column{ID: 5, Name: "m", T: MapOf(StringT, Int64T, true)}, Key: strlit("k"), T: Int64T, Nul: true},
		&MakeStruct{Args: []Node{x, s}, T: StructOf([]Field{
			{Name: "a", Type: Int64T, Nullable: true},
			{Name: "b", Type: StringT},
		})},
		&MightContain{Filter: &Column{ID: 6, Name: "bf", T: BinaryT}, Arg: x},
		RowNumber{},
	}
}

func TestNodeRoundtrip(t *testing.T) {
	for _, want := range testTrees() {
		var buf wire.Buffer
		var st wire.Symtab
		want.Encode(&buf, &st)
		got, rest, err := Decode(&st, buf.Bytes())
		if err != nil {
			t.Fatalf("%T: %s", want, err)
		}
		if !got.Equals(want) {
			t.Errorf("%T: decoded node differs", want)
		}
		if len(rest) != 0 {
			t.Errorf("%T: %d trailing bytes", want, len(rest))
		}
	}
}

func TestWithChildrenCopies(t *testing.T) {
	x := &Column{ID: 1, Name: "x", T: Int64T}
	orig := &Arith{Op: OpMul, Left: x, Right: intlit(2), T: Int64T}
	kids := Children(orig)
	if len(kids) != 2 || kids[0] != Node(x) {
		t.Fatalf("Children = %v", kids)
	}
	repl := WithChildren(orig, []Node{intlit(7), kids[1]})
	if orig.Left != Node(x) {
		t.Error("WithChildren mutated the original")
	}
	ra := repl.(*Arith)
	if !ra.Left.Equals(intlit(7)) || ra.Op != OpMul || !ra.T.Equals(Int64T) {
		t.Error("replacement lost node attributes")
	}
}

func TestWithChildrenCase(t *testing.T) {
	x := &Column{ID: 1, Name: "x", T: Int64T, Nul: true}
	c := &Case{
		Whens: []When{
			{Cond: &IsNull{Inner: x}, Then: intlit(0)},
			{Cond: &Compare{Op: Less, Left: x, Right: intlit(0)}, Then: intlit(-1)},
		},
		Else: x,
		T:    Int64T,
	}
	kids := Children(c)
	if len(kids) != 5 {
		t.Fatalf("Children = %d nodes", len(kids))
	}
	kids[4] = intlit(99)
	repl := WithChildren(c, kids).(*Case)
	if !repl.Else.Equals(intlit(99)) {
		t.Error("else branch not replaced")
	}
	if !c.Else.Equals(x) {
		t.Error("original mutated")
	}
}

func TestContainsUDF(t *testing.T) {
	x := &Column{ID: 1, Name: "x", T: Int64T}
	plain := &Arith{Op: OpAdd, Left: x, Right: intlit(1), T: Int64T}
	if ContainsUDF(plain) {
		t.Error("plain arithmetic reported as UDF")
	}
	udf := &Call{Func: "f", Args: []Node{x}, T: Int64T, UDF: true}
	buried := And(&Compare{Op: Equals, Left: x, Right: intlit(1)},
		&Compare{Op: Equals, Left: udf, Right: intlit(2)})
	if !ContainsUDF(buried) {
		t.Error("buried UDF call not found")
	}
	bloom := &MightContain{Filter: &Column{ID: 2, Name: "bf", T: BinaryT}, Arg: x}
	if !ContainsUDF(bloom) {
		t.Error("bloom probe not treated as host-side")
	}
	builtin := &Call{Func: "length", Args: []Node{x}, T: Int32T}
	if ContainsUDF(builtin) {
		t.Error("builtin call reported as UDF")
	}
}

func TestSchemaIndexOf(t *testing.T) {
	s := &Schema{Fields: []SchemaField{
		{ID: 10, Name: "a", Type: Int64T},
		{ID: 11, Name: "b", Type: StringT, Nullable: true},
	}}
	if i := s.IndexOf(11); i != 1 {
		t.Errorf("IndexOf(11) = %d", i)
	}
	if i := s.IndexOf(99); i != -1 {
		t.Errorf("IndexOf(99) = %d", i)
	}
}

func TestTypeRoundtrip(t *testing.T) {
	types := []*Type{
		BoolT, Int16T, Float32T, StringT, DateT, TimestampT,
		DecimalOf(38, 18),
		ListOf(ListOf(Int8T)),
		MapOf(StringT, Float64T, true),
		StructOf([]Field{
			{Name: "id", Type: Int64T},
			{Name: "name", Type: StringT, Nullable: true},
		}),
		UnresolvedT,
	}
	for _, want := range types {
		var buf wire.Buffer
		var st wire.Symtab
		want.Encode(&buf, &st)
		got, _, err := DecodeType(&st, buf.Bytes())
		if err != nil {
			t.Fatalf("%s: %s", want, err)
		}
		if !got.Equals(want) {
			t.Errorf("got %s, want %s", got, want)
		}
	}
}
