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

package lower

import (
	"errors"
	"math/big"
	"testing"

	"github.com/kitedata/kite/expr"
	"github.com/kitedata/kite/fallback"
	"github.com/kitedata/kite/ir"
)

func intlit(i int64) *expr.Literal {
	return &expr.Literal{Value: i, T: expr.Int64T}
}

func strlit(s string) *expr.Literal {
	return &expr.Literal{Value: s, T: expr.StringT}
}

func intcol(id uint64, name string) *expr.Column {
	return &expr.Column{ID: id, Name: name, T: expr.Int64T, Nul: true}
}

func udf(args ...expr.Node) *expr.Call {
	return &expr.Call{Func: "host_only", Args: args, T: expr.Int64T, Nul: true, UDF: true}
}

func TestLowerTypeRoundtrip(t *testing.T) {
	types := []*expr.Type{
		expr.BoolT, expr.Int8T, expr.Int64T, expr.Float32T,
		expr.StringT, expr.BinaryT, expr.DateT, expr.TimestampT,
		expr.DecimalOf(10, 2),
		expr.ListOf(expr.ListOf(expr.Int32T)),
		expr.MapOf(expr.StringT, expr.Float64T, true),
		expr.StructOf([]expr.Field{
			{Name: "id", Type: expr.Int64T},
			{Name: "name", Type: expr.StringT, Nullable: true},
		}),
	}
	for _, ht := range types {
		it, err := LowerType(ht)
		if err != nil {
			t.Fatalf("%s: %s", ht, err)
		}
		if it.String() != ht.String() {
			t.Errorf("shape changed: %s -> %s", ht, it)
		}
	}
	if _, err := LowerType(expr.UnresolvedT); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("unresolved type: got %v", err)
	}
}

func TestLowerValueNull(t *testing.T) {
	types := []*expr.Type{
		expr.BoolT, expr.Int32T, expr.StringT,
		expr.DecimalOf(10, 2), expr.ListOf(expr.Int64T),
	}
	for _, ht := range types {
		v, err := LowerValue(nil, ht)
		if err != nil {
			t.Fatalf("%s: %s", ht, err)
		}
		if !v.IsNull {
			t.Errorf("%s: null state lost", ht)
		}
		it, _ := LowerType(ht)
		if !v.T.Equals(it) {
			t.Errorf("%s: null carries type %s", ht, v.T)
		}
	}
}

func TestLowerValueDecimalOverflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	_, err := LowerValue(huge, expr.DecimalOf(38, 10))
	if !errors.Is(err, ErrNumericOverflow) {
		t.Errorf("got %v", err)
	}
	small, err := LowerValue(new(big.Int).SetInt64(123456), expr.DecimalOf(10, 2))
	if err != nil {
		t.Fatal(err)
	}
	if small.Int != 123456 {
		t.Errorf("magnitude %d", small.Int)
	}
}

func TestColumnResolution(t *testing.T) {
	col := intcol(7, "amount")
	out, err := Lower(col, &Env{Mode: ModeEval})
	if err != nil {
		t.Fatal(err)
	}
	if c := out.(*ir.Column); c.Name != "#7" {
		t.Errorf("eval name %q", c.Name)
	}
	out, err = Lower(col, &Env{Mode: ModePrune})
	if err != nil {
		t.Fatal(err)
	}
	if c := out.(*ir.Column); c.Name != "amount" {
		t.Errorf("prune name %q", c.Name)
	}
}

func TestDecimalPromotion(t *testing.T) {
	dec := &expr.Literal{Value: big.NewInt(123456), T: expr.DecimalOf(10, 2)}
	resT := expr.DecimalOf(12, 2)
	trees := []*expr.Arith{
		{Op: expr.OpAdd, Left: dec, Right: intlit(5), T: resT},
		{Op: expr.OpAdd, Left: intlit(5), Right: dec, T: resT},
	}
	for _, tree := range trees {
		out, err := Lower(tree, &Env{})
		if err != nil {
			t.Fatal(err)
		}
		// exactly one cast wraps the result,
		// regardless of operand order
		cast, ok := out.(*ir.Cast)
		if !ok {
			t.Fatalf("root is %T, want cast", out)
		}
		want, _ := LowerType(resT)
		if !cast.To.Equals(want) {
			t.Errorf("cast to %s, want %s", cast.To, want)
		}
		bin, ok := cast.Inner.(*ir.Binary)
		if !ok {
			t.Fatalf("cast wraps %T, want binary op", cast.Inner)
		}
		if bin.Op != ir.OpAdd {
			t.Errorf("op %s", bin.Op)
		}
		if _, ok := cast.Inner.(*ir.Cast); ok {
			t.Error("double-wrapped result")
		}
	}
}

func TestDivisionByZeroGuard(t *testing.T) {
	div := &expr.Arith{Op: expr.OpDiv, Left: intcol(1, "x"), Right: intlit(0), T: expr.Int64T}
	out, err := Lower(div, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	bin := out.(*ir.Binary)
	if bin.Op != ir.OpDiv {
		t.Fatalf("op %s", bin.Op)
	}
	guard, ok := bin.Right.(*ir.Call)
	if !ok || guard.Func != "null_if_zero" {
		t.Errorf("divisor not guarded: %T", bin.Right)
	}
	if !guard.Nul {
		t.Error("guard must be nullable")
	}
}

func TestModuloLiteralZero(t *testing.T) {
	mod := &expr.Arith{Op: expr.OpMod, Left: intcol(1, "x"), Right: intlit(0), T: expr.Int64T}
	out, err := Lower(mod, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	lit, ok := out.(*ir.Literal)
	if !ok || !lit.Value.IsNull {
		t.Fatalf("got %T, want compile-time null", out)
	}
	if !lit.Value.T.Equals(ir.Int64T) {
		t.Errorf("null typed %s", lit.Value.T)
	}

	// a non-literal zero divisor still gets the
	// runtime guard, never a compile-time null
	mod2 := &expr.Arith{Op: expr.OpMod, Left: intcol(1, "x"), Right: intcol(2, "y"), T: expr.Int64T}
	out2, err := Lower(mod2, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	bin := out2.(*ir.Binary)
	if g, ok := bin.Right.(*ir.Call); !ok || g.Func != "null_if_zero" {
		t.Errorf("modulus not guarded: %T", bin.Right)
	}
}

func TestNotEqualsRewrite(t *testing.T) {
	ne := &expr.Not{Inner: &expr.Compare{Op: expr.Equals, Left: intcol(1, "x"), Right: intlit(3)}}
	out, err := Lower(ne, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	bin, ok := out.(*ir.Binary)
	if !ok || bin.Op != ir.OpNe {
		t.Fatalf("got %T, want direct not-equals", out)
	}

	// not over anything else stays a Not
	nl := &expr.Not{Inner: &expr.Compare{Op: expr.Less, Left: intcol(1, "x"), Right: intlit(3)}}
	out, err = Lower(nl, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*ir.Not); !ok {
		t.Fatalf("got %T, want not", out)
	}
}

func TestShortCircuitRewrite(t *testing.T) {
	x := intcol(1, "x")
	left := &expr.Compare{Op: expr.Greater, Left: x, Right: intlit(0)}
	env := &Env{Flags: Flags{BloomFilter: true}}

	// plain right side: ordinary logical op
	plain := expr.And(left, &expr.Compare{Op: expr.Less, Left: x, Right: intlit(10)})
	out, err := Lower(plain, env)
	if err != nil {
		t.Fatal(err)
	}
	if bin, ok := out.(*ir.Binary); !ok || bin.Op != ir.OpAnd {
		t.Fatalf("got %T", out)
	}

	// bloom probe on the right: must not be
	// evaluated eagerly
	probe := &expr.MightContain{Filter: &expr.Column{ID: 9, Name: "bf", T: expr.BinaryT}, Arg: x}
	sc := expr.And(left, probe)
	out, err = Lower(sc, env)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := out.(*ir.ShortCircuit)
	if !ok || s.Op != ir.OpAnd {
		t.Fatalf("got %T, want short-circuit and", out)
	}
	if call, ok := s.Right.(*ir.Call); !ok || call.Func != "bloom_might_contain" {
		t.Errorf("right side is %T", s.Right)
	}

	// udf on the right: the right side lowers
	// through the fallback path, but the
	// short-circuit variant must survive the
	// child substitution
	u := expr.And(left, &expr.Compare{Op: expr.Equals, Left: udf(x), Right: intlit(1)})
	out, err = Lower(u, env)
	if err != nil {
		t.Fatal(err)
	}
	s, ok = out.(*ir.ShortCircuit)
	if !ok || s.Op != ir.OpAnd {
		t.Fatalf("got %T, want short-circuit and", out)
	}
	bin, ok := s.Right.(*ir.Binary)
	if !ok || bin.Op != ir.OpEq {
		t.Fatalf("right side is %T", s.Right)
	}
	if _, ok := bin.Left.(*ir.OpaqueCall); !ok {
		t.Errorf("udf lowered to %T, want opaque call", bin.Left)
	}

	// bloom probe with the extension disabled:
	// the probe itself falls back, and the
	// short-circuit variant still applies
	out, err = Lower(sc, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	s, ok = out.(*ir.ShortCircuit)
	if !ok || s.Op != ir.OpAnd {
		t.Fatalf("got %T, want short-circuit and", out)
	}
	if _, ok := s.Right.(*ir.OpaqueCall); !ok {
		t.Errorf("disabled probe lowered to %T, want opaque call", s.Right)
	}
}

func TestInListLiteralOnly(t *testing.T) {
	x := intcol(1, "x")
	lit := &expr.In{Probe: x, List: []expr.Node{intlit(1), intlit(2)}}
	out, err := Lower(lit, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	il, ok := out.(*ir.InList)
	if !ok || len(il.Values) != 2 {
		t.Fatalf("got %T", out)
	}

	// computed candidates route through fallback
	dyn := &expr.In{Probe: x, List: []expr.Node{intlit(1), intcol(2, "y")}}
	out, err = Lower(dyn, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*ir.OpaqueCall); !ok {
		t.Fatalf("got %T, want opaque call", out)
	}
}

func TestStringPredicates(t *testing.T) {
	s := &expr.Column{ID: 1, Name: "s", T: expr.StringT}
	sw := &expr.StringPred{Op: expr.StartsWith, Inner: s, Pattern: strlit("pre")}

	out, err := Lower(sw, &Env{Mode: ModeEval})
	if err != nil {
		t.Fatal(err)
	}
	if sp, ok := out.(*ir.StringPred); !ok || sp.Op != ir.StartsWith || sp.Pattern != "pre" {
		t.Fatalf("eval: got %T", out)
	}

	// pruning evaluators lack the dedicated node
	out, err = Lower(sw, &Env{Mode: ModePrune})
	if err != nil {
		t.Fatal(err)
	}
	if call, ok := out.(*ir.Call); !ok || call.Func != "starts_with" {
		t.Fatalf("prune: got %T", out)
	}

	ew := &expr.StringPred{Op: expr.EndsWith, Inner: s, Pattern: strlit(".gz")}
	out, err = Lower(ew, &Env{Mode: ModePrune})
	if err != nil {
		t.Fatal(err)
	}
	if sp, ok := out.(*ir.StringPred); !ok || sp.Op != ir.EndsWith {
		t.Fatalf("prune ends-with: got %T", out)
	}
}

func TestArrayIndexShift(t *testing.T) {
	arr := &expr.Column{ID: 1, Name: "arr", T: expr.ListOf(expr.Int64T), Nul: true}
	get := &expr.GetItem{Inner: arr, Sub: intlit(4), T: expr.Int64T, Nul: true}
	out, err := Lower(get, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	f := out.(*ir.IndexedField)
	if f.Key.Int != 5 {
		t.Errorf("key %d, want 1-based 5", f.Key.Int)
	}

	st := expr.StructOf([]expr.Field{{Name: "a", Type: expr.Int64T}, {Name: "b", Type: expr.Int64T}})
	gf := &expr.GetField{Inner: &expr.Column{ID: 2, Name: "st", T: st}, Ordinal: 1, Name: "b", T: expr.Int64T}
	out, err = Lower(gf, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	// struct access keys by ordinal, unshifted
	if f := out.(*ir.IndexedField); f.Key.Int != 1 {
		t.Errorf("struct key %d", f.Key.Int)
	}
}

func TestTimestampCastFallsBack(t *testing.T) {
	c := &expr.Cast{Inner: intcol(1, "x"), To: expr.TimestampT}
	out, err := Lower(c, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*ir.OpaqueCall); !ok {
		t.Fatalf("got %T, want opaque call", out)
	}

	// every other cast lowers as a try-cast
	c2 := &expr.Cast{Inner: intcol(1, "x"), To: expr.StringT}
	out, err = Lower(c2, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if cast, ok := out.(*ir.Cast); !ok || !cast.Try {
		t.Fatalf("got %T (try=%v)", out, ok && out.(*ir.Cast).Try)
	}
}

func TestNullArrayLiteral(t *testing.T) {
	lit := &expr.Literal{Value: nil, T: expr.ListOf(expr.Int32T)}
	out, err := Lower(lit, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	cast, ok := out.(*ir.Cast)
	if !ok || !cast.Try {
		t.Fatalf("got %T", out)
	}
	inner, ok := cast.Inner.(*ir.Literal)
	if !ok || !inner.Value.IsNull || !inner.Value.T.Equals(ir.Int32T) {
		t.Errorf("inner is %T", cast.Inner)
	}
	if !cast.To.Equals(ir.ListOf(ir.Int32T)) {
		t.Errorf("cast to %s", cast.To)
	}
}

func TestExtractionMinimality(t *testing.T) {
	// the only unsupported node is buried two
	// levels deep; every ancestor must still
	// lower natively
	x := intcol(1, "x")
	bad := udf(x)
	tree := &expr.Arith{
		Op:    expr.OpAdd,
		Left:  &expr.Arith{Op: expr.OpMul, Left: bad, Right: intlit(2), T: expr.Int64T},
		Right: intlit(3),
		T:     expr.Int64T,
	}
	out, err := Lower(tree, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	add, ok := out.(*ir.Binary)
	if !ok || add.Op != ir.OpAdd {
		t.Fatalf("root is %T, want native add", out)
	}
	mul, ok := add.Left.(*ir.Binary)
	if !ok || mul.Op != ir.OpMul {
		t.Fatalf("level 1 is %T, want native mul", add.Left)
	}
	oc, ok := mul.Left.(*ir.OpaqueCall)
	if !ok {
		t.Fatalf("leaf is %T, want the opaque call", mul.Left)
	}
	if len(oc.Params) != 1 {
		t.Errorf("opaque call has %d params", len(oc.Params))
	}
	if !oc.T.Equals(ir.Int64T) {
		t.Errorf("opaque call typed %s", oc.T)
	}
}

func TestFallbackDeduplication(t *testing.T) {
	// f(g(x), g(x)): g lowers natively, f does
	// not; both slots must share one parameter
	x := intcol(1, "x")
	g := func() expr.Node {
		return &expr.Arith{Op: expr.OpAdd, Left: x, Right: intlit(1), T: expr.Int64T}
	}
	f := udf(g(), g())
	out, err := Lower(f, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	oc, ok := out.(*ir.OpaqueCall)
	if !ok {
		t.Fatalf("got %T", out)
	}
	if len(oc.Params) != 1 {
		t.Fatalf("%d parameter slots, want 1", len(oc.Params))
	}
	pay, err := fallback.Open(oc.Blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(pay.Params) != 1 {
		t.Errorf("parameter schema has %d entries", len(pay.Params))
	}
	call, ok := pay.Fragment.(*expr.Call)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("fragment is %T", pay.Fragment)
	}
	for i, arg := range call.Args {
		p, ok := arg.(*expr.Param)
		if !ok || p.Index != 0 {
			t.Errorf("arg %d is %T, want param slot 0", i, arg)
		}
	}
}

func TestFallbackLiteralOnly(t *testing.T) {
	// the degenerate case: nothing natively
	// lowerable still yields a closed zero-param
	// opaque call
	f := udf(intlit(1), strlit("a"))
	out, err := Lower(f, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	oc := out.(*ir.OpaqueCall)
	if len(oc.Params) != 0 {
		t.Errorf("%d params, want 0", len(oc.Params))
	}
	pay, err := fallback.Open(oc.Blob)
	if err != nil {
		t.Fatal(err)
	}
	call := pay.Fragment.(*expr.Call)
	if _, ok := call.Args[0].(*expr.Literal); !ok {
		t.Errorf("literal captured as parameter")
	}
}

func TestPruningSentinel(t *testing.T) {
	x := intcol(1, "x")
	dyn := &expr.In{Probe: x, List: []expr.Node{intcol(2, "y")}}
	out, err := LowerPredicate(dyn, Flags{})
	if err != nil {
		t.Fatal(err)
	}
	b, ok := out.(*ir.BoundRef)
	if !ok || b.Index != ir.UnresolvedColumn {
		t.Fatalf("got %T, want unresolved sentinel", out)
	}
}

func TestOnUnsupportedOverride(t *testing.T) {
	wantErr := errors.New("no native rule")
	env := &Env{OnUnsupported: func(n expr.Node) (ir.Node, error) {
		return nil, wantErr
	}}
	_, err := Lower(udf(intlit(1)), env)
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v", err)
	}
}

func TestFlagGatedCalls(t *testing.T) {
	s := &expr.Column{ID: 1, Name: "s", T: expr.StringT}
	up := &expr.Call{Func: "upper", Args: []expr.Node{s}, T: expr.StringT}

	out, err := Lower(up, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.(*ir.OpaqueCall); !ok {
		t.Fatalf("disabled extension lowered to %T", out)
	}

	out, err = Lower(up, &Env{Flags: Flags{CaseConvert: true}})
	if err != nil {
		t.Fatal(err)
	}
	if call, ok := out.(*ir.Call); !ok || call.Func != "upper" {
		t.Fatalf("enabled extension lowered to %T", out)
	}

	h := &expr.Call{Func: "murmur3_hash", Args: []expr.Node{s}, T: expr.Int32T}
	out, err = Lower(h, &Env{Flags: Flags{SparkHash: true}})
	if err != nil {
		t.Fatal(err)
	}
	if call, ok := out.(*ir.Call); !ok || call.Func != "murmur3_hash" {
		t.Fatalf("hash extension lowered to %T", out)
	}
}

func TestAggregateCount(t *testing.T) {
	// all operands non-nullable: count rows via
	// a constant 1
	nn := &expr.Column{ID: 1, Name: "x", T: expr.Int64T}
	agg := &expr.Aggregate{Op: expr.AggCount, Args: []expr.Node{nn}, T: expr.Int64T}
	out, err := LowerAggregate(agg, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != ir.AggCount || len(out.Args) != 1 {
		t.Fatalf("op %s, %d args", out.Op, len(out.Args))
	}
	lit, ok := out.Args[0].(*ir.Literal)
	if !ok || lit.Value.Int != 1 {
		t.Errorf("arg is %T", out.Args[0])
	}

	// nullable operands: conditional that is null
	// when any operand is null, else 1
	a, b := intcol(1, "a"), intcol(2, "b")
	agg = &expr.Aggregate{Op: expr.AggCount, Args: []expr.Node{a, b}, T: expr.Int64T}
	out, err = LowerAggregate(agg, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	cs, ok := out.Args[0].(*ir.Case)
	if !ok {
		t.Fatalf("arg is %T, want conditional", out.Args[0])
	}
	if len(cs.Whens) != 1 {
		t.Fatalf("%d arms", len(cs.Whens))
	}
	if or, ok := cs.Whens[0].Cond.(*ir.Binary); !ok || or.Op != ir.OpOr {
		t.Errorf("condition is %T", cs.Whens[0].Cond)
	}
	if th, ok := cs.Whens[0].Then.(*ir.Literal); !ok || !th.Value.IsNull {
		t.Errorf("then branch is %T", cs.Whens[0].Then)
	}
	if el, ok := cs.Else.(*ir.Literal); !ok || el.Value.Int != 1 {
		t.Errorf("else branch is %T", cs.Else)
	}
}

func TestAggregateFirst(t *testing.T) {
	x := intcol(1, "x")
	plain := &expr.Aggregate{Op: expr.AggFirst, Args: []expr.Node{x}, T: expr.Int64T}
	out, err := LowerAggregate(plain, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != ir.AggFirst {
		t.Errorf("op %s", out.Op)
	}
	ign := &expr.Aggregate{Op: expr.AggFirst, Args: []expr.Node{x}, IgnoreNulls: true, T: expr.Int64T}
	out, err = LowerAggregate(ign, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Op != ir.AggFirstIgnoreNulls {
		t.Errorf("op %s", out.Op)
	}
}

func TestAggregateUnsupportedIsFatal(t *testing.T) {
	s := &expr.Column{ID: 1, Name: "s", T: expr.StringT, Nul: true}
	sum := &expr.Aggregate{Op: expr.AggSum, Args: []expr.Node{s}, T: expr.StringT}
	if _, err := LowerAggregate(sum, &Env{}); !errors.Is(err, ErrUnsupportedAggregate) {
		t.Errorf("got %v", err)
	}

	// fatal even when the aggregate is buried in
	// a larger expression: no fallback exists
	tree := &expr.Arith{Op: expr.OpAdd, Left: sum, Right: intlit(1), T: expr.Int64T}
	if _, err := Lower(tree, &Env{}); !errors.Is(err, ErrUnsupportedAggregate) {
		t.Errorf("nested: got %v", err)
	}

	list := &expr.Aggregate{
		Op:   expr.AggCollectList,
		Args: []expr.Node{&expr.Column{ID: 2, Name: "m", T: expr.MapOf(expr.StringT, expr.Int64T, true)}},
		T:    expr.ListOf(expr.MapOf(expr.StringT, expr.Int64T, true)),
	}
	if _, err := LowerAggregate(list, &Env{}); !errors.Is(err, ErrUnsupportedAggregate) {
		t.Errorf("collect over map: got %v", err)
	}
}

func TestNumericOverflowIsFatal(t *testing.T) {
	huge := &expr.Literal{Value: new(big.Int).Lsh(big.NewInt(1), 100), T: expr.DecimalOf(38, 0)}
	tree := &expr.Arith{Op: expr.OpAdd, Left: huge, Right: intlit(1), T: expr.DecimalOf(38, 0)}
	if _, err := Lower(tree, &Env{}); !errors.Is(err, ErrNumericOverflow) {
		t.Errorf("got %v", err)
	}
}

func TestJoinFilterIndices(t *testing.T) {
	left := &expr.Schema{Fields: []expr.SchemaField{
		{ID: 1, Name: "a", Type: expr.Int64T},
		{ID: 2, Name: "b", Type: expr.Int64T},
	}}
	right := &expr.Schema{Fields: []expr.SchemaField{
		{ID: 3, Name: "c", Type: expr.Int64T},
		{ID: 4, Name: "d", Type: expr.Int64T},
	}}
	pred := &expr.Compare{
		Op:    expr.Equals,
		Left:  &expr.Column{ID: 1, Name: "a", T: expr.Int64T},
		Right: &expr.Column{ID: 3, Name: "c", T: expr.Int64T},
	}
	out, schema, refs, err := LowerJoinFilter(pred, left, right, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0] != (JoinRef{Left, 0}) || refs[1] != (JoinRef{Right, 0}) {
		t.Errorf("refs = %v", refs)
	}
	if len(schema.Fields) != 2 || schema.Fields[0].Name != "a" || schema.Fields[1].Name != "c" {
		t.Errorf("schema = %v", schema.Fields)
	}
	bin := out.(*ir.Binary)
	if l := bin.Left.(*ir.BoundRef); l.Index != 0 {
		t.Errorf("left bound to %d", l.Index)
	}
	if r := bin.Right.(*ir.BoundRef); r.Index != 1 {
		t.Errorf("right bound to %d", r.Index)
	}
}

func TestJoinFilterUnresolved(t *testing.T) {
	left := &expr.Schema{Fields: []expr.SchemaField{{ID: 1, Name: "a", Type: expr.Int64T}}}
	right := &expr.Schema{Fields: []expr.SchemaField{{ID: 2, Name: "b", Type: expr.Int64T}}}
	pred := &expr.Compare{
		Op:    expr.Equals,
		Left:  &expr.Column{ID: 1, Name: "a", T: expr.Int64T},
		Right: &expr.Column{ID: 99, Name: "ghost", T: expr.Int64T, Nul: true},
	}
	out, schema, refs, err := LowerJoinFilter(pred, left, right, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0] != (JoinRef{Left, 0}) {
		t.Errorf("refs = %v", refs)
	}
	if len(schema.Fields) != 1 {
		t.Errorf("schema = %v", schema.Fields)
	}
	bin := out.(*ir.Binary)
	if r := bin.Right.(*ir.BoundRef); r.Index != ir.UnresolvedColumn {
		t.Errorf("unresolved column bound to %d", r.Index)
	}
}

func TestJoinFilterSharedColumn(t *testing.T) {
	// the same column referenced twice occupies
	// one minimized slot
	left := &expr.Schema{Fields: []expr.SchemaField{{ID: 1, Name: "a", Type: expr.Int64T}}}
	right := &expr.Schema{Fields: []expr.SchemaField{{ID: 2, Name: "b", Type: expr.Int64T}}}
	a := func() *expr.Column { return &expr.Column{ID: 1, Name: "a", T: expr.Int64T} }
	pred := expr.And(
		&expr.Compare{Op: expr.Greater, Left: a(), Right: intlit(0)},
		&expr.Compare{Op: expr.Less, Left: a(), Right: intlit(10)},
	)
	_, schema, refs, err := LowerJoinFilter(pred, left, right, &Env{})
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || len(schema.Fields) != 1 {
		t.Errorf("refs = %v, schema = %v", refs, schema.Fields)
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]byte("case_convert: true\nspark_hash: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !f.CaseConvert || !f.SparkHash || f.BloomFilter {
		t.Errorf("flags = %+v", f)
	}
	if _, err := ParseFlags([]byte("no_such_flag: true\n")); err == nil {
		t.Error("unknown key accepted")
	}
}
