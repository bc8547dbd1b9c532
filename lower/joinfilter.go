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
	"github.com/kitedata/kite/ir"
)

// Side tags which join input a resolved column
// belongs to.
type Side uint8

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// JoinRef locates one referenced column of a join
// filter: the side it resolved against and its
// position within that side's full output schema.
type JoinRef struct {
	Side  Side
	Index int
}

// LowerJoinFilter lowers a join filter predicate whose
// free column references resolve against the left and
// right input schemas.
//
// Each distinct referenced column becomes a positional
// bound reference into a minimized schema holding just
// the referenced columns in encounter order; the
// returned JoinRef list locates those columns in their
// side's full schema, in the same order. A reference
// found in neither schema lowers to the reserved
// unresolved index rather than failing, since such
// references are type-checked elsewhere.
func LowerJoinFilter(pred expr.Node, left, right *expr.Schema, env *Env) (ir.Node, *expr.Schema, []JoinRef, error) {
	r := &joinResolver{
		left:  left,
		right: right,
		pos:   make(map[uint64]int),
	}
	rewritten, err := r.rewrite(pred, env)
	if err != nil {
		return nil, nil, nil, err
	}
	out, err := Lower(rewritten, env)
	if err != nil {
		return nil, nil, nil, err
	}
	return out, &r.schema, r.refs, nil
}

type joinResolver struct {
	left, right *expr.Schema
	schema      expr.Schema
	refs        []JoinRef
	pos         map[uint64]int // attribute id -> minimized position
}

func (r *joinResolver) rewrite(n expr.Node, env *Env) (expr.Node, error) {
	if col, ok := n.(*expr.Column); ok {
		irn, err := r.resolve(col, env)
		if err != nil {
			return nil, err
		}
		return &expr.Native{IR: irn, T: col.T, Nul: col.Nul}, nil
	}
	kids := expr.Children(n)
	if len(kids) == 0 {
		return n, nil
	}
	sub := make([]expr.Node, len(kids))
	for i := range kids {
		var err error
		sub[i], err = r.rewrite(kids[i], env)
		if err != nil {
			return nil, err
		}
	}
	return expr.WithChildren(n, sub), nil
}

func (r *joinResolver) resolve(col *expr.Column, env *Env) (ir.Node, error) {
	t, err := LowerType(col.T)
	if err != nil {
		return nil, err
	}
	if i, ok := r.pos[col.ID]; ok {
		return &ir.BoundRef{Index: uint32(i), T: t, Nul: col.Nul}, nil
	}
	side, idx := Left, r.left.IndexOf(col.ID)
	if idx < 0 {
		side, idx = Right, r.right.IndexOf(col.ID)
	}
	if idx < 0 {
		return &ir.BoundRef{Index: ir.UnresolvedColumn, T: t, Nul: true}, nil
	}
	i := len(r.schema.Fields)
	r.pos[col.ID] = i
	r.schema.Fields = append(r.schema.Fields, expr.SchemaField{
		ID:       col.ID,
		Name:     col.Name,
		Type:     col.T,
		Nullable: col.Nul,
	})
	r.refs = append(r.refs, JoinRef{Side: side, Index: idx})
	return &ir.BoundRef{Index: uint32(i), T: t, Nul: col.Nul}, nil
}
