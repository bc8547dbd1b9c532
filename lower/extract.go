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
	"github.com/kitedata/kite/expr"
	"github.com/kitedata/kite/fallback"
	"github.com/kitedata/kite/ir"
)

// Lower translates the host expression n into wire IR.
//
// Subtrees with no native rule do not fail the call:
// the smallest unconvertible fragment is packaged as
// an opaque host-side closure and spliced back into an
// otherwise-native tree. Only aggregate-kind failures
// and literal overflow surface as hard errors, since
// neither has a fallback representation.
func Lower(n expr.Node, env *Env) (ir.Node, error) {
	kids := expr.Children(n)
	failed := -1
	nfailed := 0
	for i := range kids {
		if _, err := lowerTotal(kids[i], env); err != nil {
			if fatal(err) {
				return nil, err
			}
			failed = i
			nfailed++
		}
	}
	if nfailed == 0 {
		out, err := lowerTotal(n, env)
		if err == nil {
			return out, nil
		}
		if fatal(err) {
			return nil, err
		}
		return unsupported(n, env)
	}
	if nfailed == 1 {
		// exactly one child fails: isolate the
		// failure inside that child recursively,
		// pin every child to its resolved IR, and
		// retry this node's own rule
		sub := make([]expr.Node, len(kids))
		for i := range kids {
			var irn ir.Node
			var err error
			if i == failed {
				irn, err = Lower(kids[i], env)
			} else {
				irn, err = lowerTotal(kids[i], env)
			}
			if err != nil {
				return nil, err
			}
			sub[i] = &expr.Native{
				IR:       irn,
				T:        kids[i].Type(),
				Nul:      kids[i].Nullable(),
				HostCall: expr.ContainsUDF(kids[i]),
			}
		}
		out, err := lowerTotal(expr.WithChildren(n, sub), env)
		if err == nil {
			return out, nil
		}
		if fatal(err) {
			return nil, err
		}
	}
	return unsupported(n, env)
}

// LowerPredicate lowers a pruning predicate: column
// references resolve by display name and unsupported
// nodes degrade to the non-selective sentinel instead
// of the fallback path.
func LowerPredicate(n expr.Node, flags Flags) (ir.Node, error) {
	return Lower(n, &Env{Flags: flags, Mode: ModePrune})
}

// unsupported handles a node with no native rule:
// by the caller-provided handler if any, by the
// pruning sentinel in pruning mode, and otherwise by
// fallback packaging of n as one interpreted unit.
func unsupported(n expr.Node, env *Env) (ir.Node, error) {
	if env.OnUnsupported != nil {
		return env.OnUnsupported(n)
	}
	if env.Mode == ModePrune {
		return Sentinel(n), nil
	}
	return packageFallback(n, env)
}

// Sentinel builds the reserved "always unsupported"
// bound reference for n. Pruning evaluation treats
// any predicate containing it as non-selective.
func Sentinel(n expr.Node) *ir.BoundRef {
	t, err := LowerType(n.Type())
	if err != nil {
		t = ir.BoolT
	}
	return &ir.BoundRef{Index: ir.UnresolvedColumn, T: t, Nul: true}
}

// packageFallback treats n as one interpreted unit:
// every sub-node that independently lowers is replaced
// by a positional parameter (deduplicated by the
// structural equality of its lowered form), and the
// residual fragment is serialized as a closure the
// host runtime evaluates given the parameter row.
func packageFallback(n expr.Node, env *Env) (ir.Node, error) {
	rt, err := LowerType(n.Type())
	if err != nil {
		// not even the return type maps; nothing
		// can splice this node back in
		return nil, err
	}
	var set ir.NodeSet
	var params []fallback.Param
	frag := capture(n, env, &set, &params)
	pay := &fallback.Payload{
		Fragment:    frag,
		Params:      params,
		Ret:         n.Type(),
		RetNullable: n.Nullable(),
	}
	blob, err := pay.Package()
	if err != nil {
		return nil, err
	}
	return &ir.OpaqueCall{
		Blob:   blob,
		Params: set.Ordered(),
		T:      rt,
		Nul:    n.Nullable(),
	}, nil
}

// capture walks n top-down. Literals stay in the
// fragment; any other sub-node that independently
// lowers is replaced by a parameter placeholder, with
// structurally-equal captures sharing one slot.
func capture(n expr.Node, env *Env, set *ir.NodeSet, params *[]fallback.Param) expr.Node {
	if _, ok := n.(*expr.Literal); ok {
		return n
	}
	if irn, err := lowerTotal(n, env); err == nil {
		i := set.Add(irn)
		if i == len(*params) {
			*params = append(*params, fallback.Param{
				T:        n.Type(),
				Nullable: n.Nullable(),
			})
		}
		return &expr.Param{Index: i, T: n.Type(), Nul: n.Nullable()}
	}
	kids := expr.Children(n)
	if len(kids) == 0 {
		return n
	}
	sub := make([]expr.Node, len(kids))
	for i := range kids {
		sub[i] = capture(kids[i], env, set, params)
	}
	return expr.WithChildren(n, sub)
}
