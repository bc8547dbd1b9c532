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
	"fmt"

	"github.com/kitedata/kite/expr"
	"github.com/kitedata/kite/ir"
)

// LowerAggregate maps an aggregate call to its IR
// operator descriptor. Unlike scalar expressions,
// aggregates have no fallback representation (the
// native aggregation framework cannot host opaque
// operators), so an unsupported kind or operand type
// is a hard ErrUnsupportedAggregate.
//
// Arguments are scalar expressions and still go
// through full lowering, fallback included.
func LowerAggregate(a *expr.Aggregate, env *Env) (*ir.AggregateCall, error) {
	if a.Op == expr.AggCount {
		return lowerCount(a, env)
	}
	op, err := aggOp(a)
	if err != nil {
		return nil, err
	}
	if err := checkAggOperand(a); err != nil {
		return nil, err
	}
	t, err := LowerType(a.T)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedAggregate, a.Op, err)
	}
	args := make([]ir.Node, len(a.Args))
	for i := range a.Args {
		args[i], err = Lower(a.Args[i], env)
		if err != nil {
			return nil, err
		}
	}
	return &ir.AggregateCall{
		Op:       op,
		Args:     args,
		Distinct: a.Distinct,
		T:        t,
		Nul:      a.Nullable(),
	}, nil
}

func aggOp(a *expr.Aggregate) (ir.AggOp, error) {
	switch a.Op {
	case expr.AggSum:
		return ir.AggSum, nil
	case expr.AggAvg:
		return ir.AggAvg, nil
	case expr.AggMin:
		return ir.AggMin, nil
	case expr.AggMax:
		return ir.AggMax, nil
	case expr.AggFirst:
		if a.IgnoreNulls {
			return ir.AggFirstIgnoreNulls, nil
		}
		return ir.AggFirst, nil
	case expr.AggCollectList:
		return ir.AggCollectList, nil
	case expr.AggCollectSet:
		return ir.AggCollectSet, nil
	case expr.AggBitAnd:
		return ir.AggBitAnd, nil
	case expr.AggBitOr:
		return ir.AggBitOr, nil
	case expr.AggBitXor:
		return ir.AggBitXor, nil
	case expr.AggBoolAnd:
		return ir.AggBoolAnd, nil
	case expr.AggBoolOr:
		return ir.AggBoolOr, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedAggregate, a.Op)
	}
}

func checkAggOperand(a *expr.Aggregate) error {
	bad := func(t *expr.Type) error {
		return fmt.Errorf("%w: %s over %s", ErrUnsupportedAggregate, a.Op, t)
	}
	switch a.Op {
	case expr.AggSum, expr.AggAvg:
		// only primitive numeric outputs
		if !a.T.Kind.Numeric() {
			return bad(a.T)
		}
	case expr.AggCollectList, expr.AggCollectSet:
		// only primitive element types
		for i := range a.Args {
			et := a.Args[i].Type()
			if et.Kind == expr.List || et.Kind == expr.Map ||
				et.Kind == expr.Struct || et.Kind == expr.Unresolved {
				return bad(et)
			}
		}
	case expr.AggBitAnd, expr.AggBitOr, expr.AggBitXor:
		for i := range a.Args {
			k := a.Args[i].Type().Kind
			if k < expr.Int8 || k > expr.Int64 {
				return bad(a.Args[i].Type())
			}
		}
	case expr.AggBoolAnd, expr.AggBoolOr:
		for i := range a.Args {
			if a.Args[i].Type().Kind != expr.Bool {
				return bad(a.Args[i].Type())
			}
		}
	}
	return nil
}

// lowerCount builds the native count descriptor.
// The native aggregate counts non-null occurrences of
// its single argument, so counting rows (all operands
// non-nullable) counts a constant 1, and counting
// nullable operands counts a conditional that is null
// exactly when any operand is null.
func lowerCount(a *expr.Aggregate, env *Env) (*ir.AggregateCall, error) {
	if a.Distinct {
		// distinct counts dedup the operand
		// values themselves; no rewrite applies
		args := make([]ir.Node, len(a.Args))
		for i := range a.Args {
			var err error
			args[i], err = Lower(a.Args[i], env)
			if err != nil {
				return nil, err
			}
		}
		return &ir.AggregateCall{
			Op:       ir.AggCount,
			Args:     args,
			Distinct: true,
			T:        ir.Int64T,
		}, nil
	}
	nullable := false
	for i := range a.Args {
		if a.Args[i].Nullable() {
			nullable = true
			break
		}
	}
	one := &ir.Literal{Value: ir.IntValue(ir.Int64T, 1)}
	var arg ir.Node
	if !nullable {
		arg = one
	} else {
		var cond ir.Node
		for i := range a.Args {
			if !a.Args[i].Nullable() {
				continue
			}
			in, err := Lower(a.Args[i], env)
			if err != nil {
				return nil, err
			}
			test := &ir.IsNull{Inner: in}
			if cond == nil {
				cond = test
			} else {
				cond = &ir.Binary{Op: ir.OpOr, Left: cond, Right: test}
			}
		}
		arg = &ir.Case{
			Whens: []ir.When{{Cond: cond, Then: ir.NullLiteral(ir.Int64T)}},
			Else:  one,
			T:     ir.Int64T,
		}
	}
	return &ir.AggregateCall{
		Op:       ir.AggCount,
		Args:     []ir.Node{arg},
		Distinct: a.Distinct,
		T:        ir.Int64T,
		Nul:      false,
	}, nil
}
