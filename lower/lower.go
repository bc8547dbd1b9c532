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

// Package lower translates host expression trees into
// wire IR consumed by the native execution engine.
//
// Lowering is a pure tree transform: it never
// evaluates an expression. Subtrees with no native
// rule are carved out as opaque host-side closures
// (see package fallback) so that the rest of the tree
// still runs natively.
package lower

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/kitedata/kite/expr"
	"github.com/kitedata/kite/ir"
)

var (
	// ErrUnsupported indicates an expression node
	// with no native lowering rule. It is recovered
	// internally by subtree extraction and only
	// surfaces when even fallback packaging cannot
	// proceed.
	ErrUnsupported = errors.New("unsupported expression")
	// ErrUnsupportedType indicates a host type with
	// no IR mapping.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnsupportedAggregate indicates an aggregate
	// that the native engine cannot run. Aggregates
	// have no fallback representation, so this is
	// always fatal.
	ErrUnsupportedAggregate = errors.New("unsupported aggregate")
	// ErrNumericOverflow indicates a literal outside
	// the native engine's numeric width.
	ErrNumericOverflow = errors.New("numeric overflow")
)

func reject(n expr.Node) error {
	return fmt.Errorf("%w: %T", ErrUnsupported, n)
}

// fatal returns whether err cannot be recovered by
// fallback packaging.
func fatal(err error) bool {
	return errors.Is(err, ErrNumericOverflow) ||
		errors.Is(err, ErrUnsupportedAggregate)
}

// Mode selects how bare column references resolve.
type Mode uint8

const (
	// ModeEval resolves columns positionally for
	// normal evaluation.
	ModeEval Mode = iota
	// ModePrune resolves columns by declared name
	// for static predicate evaluation against
	// file and partition metadata.
	ModePrune
)

// Env is the read-only environment threaded through a
// lowering call. The zero Env lowers for evaluation
// with all optional extensions disabled.
type Env struct {
	Flags Flags
	Mode  Mode

	// OnUnsupported, when set, replaces the default
	// handling of nodes with no native rule: it
	// may return a substitute IR node or an error
	// to force a hard failure.
	OnUnsupported func(expr.Node) (ir.Node, error)
}

// LowerType maps a host type to its IR descriptor.
// It is total for every resolved host type and fails
// with ErrUnsupportedType otherwise.
func LowerType(t *expr.Type) (*ir.Type, error) {
	switch t.Kind {
	case expr.Null:
		return ir.NullT, nil
	case expr.Bool:
		return ir.BoolT, nil
	case expr.Int8:
		return ir.Int8T, nil
	case expr.Int16:
		return ir.Int16T, nil
	case expr.Int32:
		return ir.Int32T, nil
	case expr.Int64:
		return ir.Int64T, nil
	case expr.Float32:
		return ir.Float32T, nil
	case expr.Float64:
		return ir.Float64T, nil
	case expr.String:
		return ir.StringT, nil
	case expr.Binary:
		return ir.BinaryT, nil
	case expr.Date:
		return ir.DateT, nil
	case expr.Timestamp:
		return ir.TimestampT, nil
	case expr.Decimal:
		return ir.DecimalOf(t.Precision, t.Scale), nil
	case expr.List:
		elem, err := LowerType(t.Elem)
		if err != nil {
			return nil, err
		}
		return ir.ListOf(elem), nil
	case expr.Map:
		key, err := LowerType(t.Key)
		if err != nil {
			return nil, err
		}
		value, err := LowerType(t.Value)
		if err != nil {
			return nil, err
		}
		return ir.MapOf(key, value, t.ValueNullable), nil
	case expr.Struct:
		fields := make([]ir.Field, len(t.Fields))
		for i := range t.Fields {
			ft, err := LowerType(t.Fields[i].Type)
			if err != nil {
				return nil, err
			}
			fields[i] = ir.Field{
				Name:     t.Fields[i].Name,
				Type:     ft,
				Nullable: t.Fields[i].Nullable,
			}
		}
		return ir.StructOf(fields), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
}

// LowerValue encodes a host literal value typed by t
// into an IR scalar value. A nil v produces the typed
// null state of the lowered type regardless of the
// type's variant. Decimal magnitudes that do not fit
// a 64-bit signed integer fail with ErrNumericOverflow.
func LowerValue(v any, t *expr.Type) (ir.Value, error) {
	it, err := LowerType(t)
	if err != nil {
		return ir.Value{}, err
	}
	if v == nil {
		return ir.NullValue(it), nil
	}
	switch t.Kind {
	case expr.Bool:
		b, ok := v.(bool)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		return ir.BoolValue(b), nil
	case expr.Int8, expr.Int16, expr.Int32, expr.Int64,
		expr.Date, expr.Timestamp:
		i, ok := v.(int64)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		return ir.IntValue(it, i), nil
	case expr.Float32, expr.Float64:
		f, ok := v.(float64)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		return ir.FloatValue(it, f), nil
	case expr.String:
		s, ok := v.(string)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		return ir.StringValue(s), nil
	case expr.Binary:
		p, ok := v.([]byte)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		return ir.BytesValue(p), nil
	case expr.Decimal:
		m, ok := v.(*big.Int)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		if !m.IsInt64() {
			return ir.Value{}, fmt.Errorf("%w: decimal magnitude %s", ErrNumericOverflow, m)
		}
		return ir.IntValue(it, m.Int64()), nil
	case expr.List:
		items, ok := v.([]any)
		if !ok {
			return ir.Value{}, badValue(v, t)
		}
		// empty lists are valid and carry
		// only the element type
		out := make([]ir.Value, len(items))
		for i := range items {
			out[i], err = LowerValue(items[i], t.Elem)
			if err != nil {
				return ir.Value{}, err
			}
		}
		return ir.ListValue(it.Elem, out), nil
	default:
		return ir.Value{}, badValue(v, t)
	}
}

func badValue(v any, t *expr.Type) error {
	return fmt.Errorf("%w: literal %T of type %s", ErrUnsupportedType, v, t)
}

// lowerTotal lowers n and its whole subtree via the
// per-node rule table. Any node without a matching
// rule fails the entire call; the driver in Lower is
// responsible for recovering via subtree extraction.
func lowerTotal(n expr.Node, env *Env) (ir.Node, error) {
	switch n := n.(type) {
	case *expr.Native:
		return n.IR, nil
	case *expr.Literal:
		return lowerLiteral(n)
	case *expr.Column:
		return lowerColumn(n, env)
	case *expr.Param:
		t, err := LowerType(n.T)
		if err != nil {
			return nil, err
		}
		return &ir.BoundRef{Index: uint32(n.Index), T: t, Nul: n.Nul}, nil
	case *expr.Arith:
		return lowerArith(n, env)
	case *expr.Compare:
		return lowerCompare(n, env)
	case *expr.Logical:
		return lowerLogical(n, env)
	case *expr.Not:
		return lowerNot(n, env)
	case *expr.IsNull:
		inner, err := lowerTotal(n.Inner, env)
		if err != nil {
			return nil, err
		}
		return &ir.IsNull{Inner: inner, Negate: n.Negate}, nil
	case *expr.Cast:
		return lowerCast(n, env)
	case *expr.Case:
		return lowerCase(n, env)
	case *expr.In:
		return lowerIn(n, env)
	case *expr.Like:
		return lowerLike(n, env)
	case *expr.StringPred:
		return lowerStringPred(n, env)
	case *expr.Call:
		return lowerCall(n, env)
	case *expr.Aggregate:
		return LowerAggregate(n, env)
	case *expr.GetField:
		return lowerGetField(n, env)
	case *expr.GetItem:
		return lowerGetItem(n, env)
	case *expr.GetMapValue:
		return lowerGetMapValue(n, env)
	case *expr.MakeStruct:
		return lowerMakeStruct(n, env)
	case *expr.MightContain:
		return lowerMightContain(n, env)
	case expr.RowNumber:
		return ir.RowNumber{}, nil
	default:
		return nil, reject(n)
	}
}

func lowerLiteral(n *expr.Literal) (ir.Node, error) {
	if n.Value == nil && n.T.Kind == expr.List {
		// the native engine cannot type a bare
		// null array literal; emit a try-cast of
		// a null of the element's base type
		et, err := LowerType(n.T.Elem)
		if err != nil {
			return nil, err
		}
		lt, err := LowerType(n.T)
		if err != nil {
			return nil, err
		}
		return &ir.Cast{Inner: ir.NullLiteral(et), To: lt, Try: true}, nil
	}
	v, err := LowerValue(n.Value, n.T)
	if err != nil {
		return nil, err
	}
	return &ir.Literal{Value: v}, nil
}

func lowerColumn(n *expr.Column, env *Env) (ir.Node, error) {
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	name := n.Name
	if env.Mode != ModePrune {
		// evaluation resolves by the positional
		// name derived from the attribute id, not
		// the display name, which need not be
		// unique across the plan
		name = resolvedName(n.ID)
	}
	return &ir.Column{Name: name, T: t, Nul: n.Nul}, nil
}

func resolvedName(id uint64) string {
	return fmt.Sprintf("#%d", id)
}

func lowerArith(n *expr.Arith, env *Env) (ir.Node, error) {
	op, ok := arithOp(n.Op)
	if !ok {
		return nil, reject(n)
	}
	rt, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	if n.Op == expr.OpMod {
		if z, ok := literalInt(n.Right); ok && z == 0 {
			// a literal zero modulus is a
			// compile-time null result
			return ir.NullLiteral(rt), nil
		}
	}
	left, err := lowerTotal(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := lowerTotal(n.Right, env)
	if err != nil {
		return nil, err
	}
	if n.Op == expr.OpDiv || n.Op == expr.OpMod {
		// divide-by-zero must yield null, not a
		// native fault; guard the divisor
		dt, err := LowerType(n.Right.Type())
		if err != nil {
			return nil, err
		}
		right = &ir.Call{Func: "null_if_zero", Args: []ir.Node{right}, T: dt, Nul: true}
	}
	decimal := n.Left.Type().Kind == expr.Decimal || n.Right.Type().Kind == expr.Decimal
	promote := decimal && (n.Op == expr.OpAdd || n.Op == expr.OpSub || n.Op == expr.OpMul)
	if promote {
		// decimal arithmetic must not rely on the
		// native engine's implicit promotion:
		// align both operands to the declared
		// result type up front
		if !n.Left.Type().Equals(n.T) {
			left = &ir.Cast{Inner: left, To: rt, Try: true}
		}
		if !n.Right.Type().Equals(n.T) {
			right = &ir.Cast{Inner: right, To: rt, Try: true}
		}
		bin := &ir.Binary{Op: op, Left: left, Right: right, T: rt}
		return &ir.Cast{Inner: bin, To: rt, Try: true}, nil
	}
	return &ir.Binary{Op: op, Left: left, Right: right, T: rt}, nil
}

func arithOp(op expr.ArithOp) (ir.BinaryOp, bool) {
	switch op {
	case expr.OpAdd:
		return ir.OpAdd, true
	case expr.OpSub:
		return ir.OpSub, true
	case expr.OpMul:
		return ir.OpMul, true
	case expr.OpDiv:
		return ir.OpDiv, true
	case expr.OpMod:
		return ir.OpMod, true
	case expr.OpBitAnd:
		return ir.OpBitAnd, true
	case expr.OpBitOr:
		return ir.OpBitOr, true
	case expr.OpBitXor:
		return ir.OpBitXor, true
	default:
		return 0, false
	}
}

func cmpOp(op expr.CmpOp) (ir.BinaryOp, bool) {
	switch op {
	case expr.Equals:
		return ir.OpEq, true
	case expr.NotEquals:
		return ir.OpNe, true
	case expr.Less:
		return ir.OpLt, true
	case expr.LessEquals:
		return ir.OpLe, true
	case expr.Greater:
		return ir.OpGt, true
	case expr.GreaterEquals:
		return ir.OpGe, true
	default:
		return 0, false
	}
}

func lowerCompare(n *expr.Compare, env *Env) (ir.Node, error) {
	op, ok := cmpOp(n.Op)
	if !ok {
		return nil, reject(n)
	}
	left, err := lowerTotal(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := lowerTotal(n.Right, env)
	if err != nil {
		return nil, err
	}
	return &ir.Binary{Op: op, Left: left, Right: right}, nil
}

func lowerLogical(n *expr.Logical, env *Env) (ir.Node, error) {
	left, err := lowerTotal(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := lowerTotal(n.Right, env)
	if err != nil {
		return nil, err
	}
	op := ir.OpAnd
	if n.Op == expr.OpOr {
		op = ir.OpOr
	}
	if expr.ContainsUDF(n.Right) {
		// the right side reaches back into the
		// host (udf or bloom probe); the native
		// engine must not evaluate it eagerly
		return &ir.ShortCircuit{Op: op, Left: left, Right: right}, nil
	}
	return &ir.Binary{Op: op, Left: left, Right: right}, nil
}

func lowerNot(n *expr.Not, env *Env) (ir.Node, error) {
	// not(a = b) has a dedicated operator
	if cmp, ok := n.Inner.(*expr.Compare); ok && cmp.Op == expr.Equals {
		left, err := lowerTotal(cmp.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := lowerTotal(cmp.Right, env)
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: ir.OpNe, Left: left, Right: right}, nil
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	return &ir.Not{Inner: inner}, nil
}

func lowerCast(n *expr.Cast, env *Env) (ir.Node, error) {
	if n.Inner.Type().Kind == expr.Timestamp || n.To.Kind == expr.Timestamp {
		// timestamp semantics differ between the
		// two engines; leave these to the host
		return nil, reject(n)
	}
	to, err := LowerType(n.To)
	if err != nil {
		return nil, err
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	// conversion failures must produce null, never
	// a native error
	return &ir.Cast{Inner: inner, To: to, Try: true}, nil
}

func lowerCase(n *expr.Case, env *Env) (ir.Node, error) {
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	out := &ir.Case{Whens: make([]ir.When, len(n.Whens)), T: t}
	for i := range n.Whens {
		cond, err := lowerTotal(n.Whens[i].Cond, env)
		if err != nil {
			return nil, err
		}
		then, err := lowerTotal(n.Whens[i].Then, env)
		if err != nil {
			return nil, err
		}
		out.Whens[i] = ir.When{Cond: cond, Then: then}
	}
	if n.Else != nil {
		out.Else, err = lowerTotal(n.Else, env)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func lowerIn(n *expr.In, env *Env) (ir.Node, error) {
	probe, err := lowerTotal(n.Probe, env)
	if err != nil {
		return nil, err
	}
	values := make([]ir.Value, len(n.List))
	for i := range n.List {
		lit, ok := n.List[i].(*expr.Literal)
		if !ok {
			// membership against computed
			// candidates is not attempted
			// natively
			return nil, reject(n)
		}
		values[i], err = LowerValue(lit.Value, lit.T)
		if err != nil {
			return nil, err
		}
	}
	return &ir.InList{Probe: probe, Values: values}, nil
}

func lowerLike(n *expr.Like, env *Env) (ir.Node, error) {
	pat, ok := literalString(n.Pattern)
	if !ok {
		return nil, reject(n)
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	return &ir.Like{Inner: inner, Pattern: pat}, nil
}

func lowerStringPred(n *expr.StringPred, env *Env) (ir.Node, error) {
	pat, ok := literalString(n.Pattern)
	if !ok {
		return nil, reject(n)
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	if env.Mode == ModePrune && n.Op == expr.StartsWith {
		// pruning evaluators lack the dedicated
		// node kind; use the generic call form
		lit := &ir.Literal{Value: ir.StringValue(pat)}
		return &ir.Call{
			Func: "starts_with",
			Args: []ir.Node{inner, lit},
			T:    ir.BoolT,
			Nul:  n.Nullable(),
		}, nil
	}
	var op ir.StringPredOp
	switch n.Op {
	case expr.StartsWith:
		op = ir.StartsWith
	case expr.EndsWith:
		op = ir.EndsWith
	case expr.StrContains:
		op = ir.StrContains
	default:
		return nil, reject(n)
	}
	return &ir.StringPred{Op: op, Inner: inner, Pattern: pat}, nil
}

// builtins are the scalar functions the native engine
// implements unconditionally.
var builtins = map[string]bool{
	"abs":          true,
	"ceil":         true,
	"coalesce":     true,
	"concat":       true,
	"day":          true,
	"floor":        true,
	"length":       true,
	"ltrim":        true,
	"month":        true,
	"null_if_zero": true,
	"replace":      true,
	"round":        true,
	"rtrim":        true,
	"sqrt":         true,
	"substring":    true,
	"trim":         true,
	"year":         true,
}

func callSupported(name string, env *Env) bool {
	if builtins[name] {
		return true
	}
	switch name {
	case "upper", "lower":
		return env.Flags.CaseConvert
	case "murmur3_hash", "xxhash64":
		return env.Flags.SparkHash
	}
	return false
}

func lowerCall(n *expr.Call, env *Env) (ir.Node, error) {
	if n.UDF {
		return nil, reject(n)
	}
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	// unary operators arrive as named calls
	if len(n.Args) == 1 {
		var op ir.UnaryOp
		switch n.Func {
		case "negative":
			op = ir.OpNeg
		case "bitwise_not":
			op = ir.OpBitNot
		default:
			goto named
		}
		inner, err := lowerTotal(n.Args[0], env)
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: op, Inner: inner, T: t}, nil
	}
named:
	if !callSupported(n.Func, env) {
		return nil, fmt.Errorf("%w: call to %q", ErrUnsupported, n.Func)
	}
	args := make([]ir.Node, len(n.Args))
	for i := range n.Args {
		args[i], err = lowerTotal(n.Args[i], env)
		if err != nil {
			return nil, err
		}
	}
	return &ir.Call{Func: n.Func, Args: args, T: t, Nul: n.Nul}, nil
}

func lowerGetField(n *expr.GetField, env *Env) (ir.Node, error) {
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	key := ir.IntValue(ir.Int64T, int64(n.Ordinal))
	return &ir.IndexedField{Inner: inner, Key: key, T: t, Nul: n.Nul}, nil
}

func lowerGetItem(n *expr.GetItem, env *Env) (ir.Node, error) {
	sub, ok := literalInt(n.Sub)
	if !ok {
		return nil, reject(n)
	}
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	// host subscripts are 0-based; the native
	// engine's are 1-based
	key := ir.IntValue(ir.Int64T, sub+1)
	return &ir.IndexedField{Inner: inner, Key: key, T: t, Nul: n.Nul}, nil
}

func lowerGetMapValue(n *expr.GetMapValue, env *Env) (ir.Node, error) {
	lit, ok := n.Key.(*expr.Literal)
	if !ok {
		return nil, reject(n)
	}
	key, err := LowerValue(lit.Value, lit.T)
	if err != nil {
		return nil, err
	}
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	inner, err := lowerTotal(n.Inner, env)
	if err != nil {
		return nil, err
	}
	return &ir.MapLookup{Inner: inner, Key: key, T: t, Nul: n.Nul}, nil
}

func lowerMakeStruct(n *expr.MakeStruct, env *Env) (ir.Node, error) {
	t, err := LowerType(n.T)
	if err != nil {
		return nil, err
	}
	args := make([]ir.Node, len(n.Args))
	for i := range n.Args {
		args[i], err = lowerTotal(n.Args[i], env)
		if err != nil {
			return nil, err
		}
	}
	return &ir.NamedStruct{Args: args, T: t}, nil
}

func lowerMightContain(n *expr.MightContain, env *Env) (ir.Node, error) {
	if !env.Flags.BloomFilter {
		return nil, reject(n)
	}
	filter, err := lowerTotal(n.Filter, env)
	if err != nil {
		return nil, err
	}
	arg, err := lowerTotal(n.Arg, env)
	if err != nil {
		return nil, err
	}
	return &ir.Call{
		Func: "bloom_might_contain",
		Args: []ir.Node{filter, arg},
		T:    ir.BoolT,
		Nul:  n.Nullable(),
	}, nil
}

func literalInt(n expr.Node) (int64, bool) {
	lit, ok := n.(*expr.Literal)
	if !ok {
		return 0, false
	}
	i, ok := lit.Value.(int64)
	return i, ok
}

func literalString(n expr.Node) (string, bool) {
	lit, ok := n.(*expr.Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}
