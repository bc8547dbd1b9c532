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

package ir

import (
	"bytes"

	"github.com/kitedata/kite/wire"
)

// UnresolvedColumn is the reserved out-of-range
// bound-reference index used for column references
// that could not be resolved. Pruning evaluators
// treat predicates containing it as non-selective.
const UnresolvedColumn = ^uint32(0)

// Node is an IR expression node.
//
// Nodes are immutable once built; ownership is
// strictly tree-shaped. The declared return type of
// every node agrees with the type expected by any
// enclosing node that consumes it.
type Node interface {
	// Type returns the declared return type.
	Type() *Type
	// Nullable returns whether evaluation
	// may produce null.
	Nullable() bool
	// Equals returns whether this node is
	// structurally identical to another node.
	Equals(Node) bool

	Encode(dst *wire.Buffer, st *wire.Symtab)
}

// Equal returns whether a and b are structurally
// identical; a or b may be nil.
func Equal(a, b Node) bool {
	if a == nil {
		return b == nil
	}
	return b != nil && a.Equals(b)
}

func equalNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

func settype(dst *wire.Buffer, st *wire.Symtab, str string) {
	dst.BeginField(st.Intern("type"))
	dst.WriteSymbol(st.Intern(str))
}

// Literal is a constant scalar value.
type Literal struct {
	Value Value
}

func (l *Literal) Type() *Type { return l.Value.T }
func (l *Literal) Nullable() bool { return l.Value.IsNull }

func (l *Literal) Equals(o Node) bool {
	ol, ok := o.(*Literal)
	return ok && l.Value.Equals(&ol.Value)
}

func (l *Literal) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "literal")
	dst.BeginField(st.Intern("value"))
	l.Value.Encode(dst, st)
	dst.EndStruct()
}

// Null produces the typed null literal of t.
func NullLiteral(t *Type) *Literal {
	return &Literal{Value: NullValue(t)}
}

// Column references an input column by its
// resolved display name.
type Column struct {
	Name string
	T    *Type
	Nul  bool
}

func (c *Column) Type() *Type { return c.T }
func (c *Column) Nullable() bool { return c.Nul }

func (c *Column) Equals(o Node) bool {
	oc, ok := o.(*Column)
	return ok && c.Name == oc.Name && c.T.Equals(oc.T) && c.Nul == oc.Nul
}

func (c *Column) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "column")
	dst.BeginField(st.Intern("name"))
	dst.WriteString(c.Name)
	dst.BeginField(st.Intern("item"))
	c.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(c.Nul)
	dst.EndStruct()
}

// BoundRef references an input column (or a fallback
// parameter) by position.
type BoundRef struct {
	Index uint32
	T     *Type
	Nul   bool
}

func (b *BoundRef) Type() *Type { return b.T }
func (b *BoundRef) Nullable() bool { return b.Nul }

func (b *BoundRef) Equals(o Node) bool {
	ob, ok := o.(*BoundRef)
	return ok && b.Index == ob.Index && b.T.Equals(ob.T) && b.Nul == ob.Nul
}

func (b *BoundRef) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "bound")
	dst.BeginField(st.Intern("index"))
	dst.WriteUint(uint64(b.Index))
	dst.BeginField(st.Intern("item"))
	b.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(b.Nul)
	dst.EndStruct()
}

// UnaryOp is a unary operation kind.
type UnaryOp int

const (
	OpNeg UnaryOp = iota // arithmetic negation
	OpBitNot
)

func (u UnaryOp) String() string {
	switch u {
	case OpNeg:
		return "-"
	case OpBitNot:
		return "~"
	default:
		return "<unknown unary op>"
	}
}

// Unary is a unary operation.
type Unary struct {
	Op    UnaryOp
	Inner Node
	T     *Type
}

func (u *Unary) Type() *Type { return u.T }
func (u *Unary) Nullable() bool { return u.Inner.Nullable() }

func (u *Unary) Equals(o Node) bool {
	ou, ok := o.(*Unary)
	return ok && u.Op == ou.Op && u.Inner.Equals(ou.Inner) && u.T.Equals(ou.T)
}

func (u *Unary) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "unary")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(u.Op))
	dst.BeginField(st.Intern("inner"))
	u.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	u.T.Encode(dst, st)
	dst.EndStruct()
}

// BinaryOp is a binary operation kind.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor

	OpAnd
	OpOr

	// note: keep the comparisons contiguous
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (b BinaryOp) String() string {
	switch b {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "<unknown binary op>"
	}
}

// Comparison returns whether the operation
// yields a boolean comparison result.
func (b BinaryOp) Comparison() bool { return b >= OpEq && b <= OpGe }

// Logical returns whether the operation is
// a boolean connective.
func (b BinaryOp) Logical() bool { return b == OpAnd || b == OpOr }

// Binary is a binary operation. For comparisons
// and logical connectives T is BoolT; for arithmetic
// and bitwise operations T is the declared result type.
type Binary struct {
	Op          BinaryOp
	Left, Right Node
	T           *Type
}

func (b *Binary) Type() *Type {
	if b.Op.Comparison() || b.Op.Logical() {
		return BoolT
	}
	return b.T
}

func (b *Binary) Nullable() bool {
	return b.Left.Nullable() || b.Right.Nullable()
}

func (b *Binary) Equals(o Node) bool {
	ob, ok := o.(*Binary)
	return ok && b.Op == ob.Op && b.Left.Equals(ob.Left) &&
		b.Right.Equals(ob.Right) && b.Type().Equals(ob.Type())
}

func (b *Binary) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "binary")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(b.Op))
	dst.BeginField(st.Intern("left"))
	b.Left.Encode(dst, st)
	dst.BeginField(st.Intern("right"))
	b.Right.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	b.Type().Encode(dst, st)
	dst.EndStruct()
}

// ShortCircuit is a boolean connective whose right
// operand must not be evaluated eagerly by the
// native engine. Op is OpAnd or OpOr.
type ShortCircuit struct {
	Op          BinaryOp
	Left, Right Node
}

func (s *ShortCircuit) Type() *Type { return BoolT }

func (s *ShortCircuit) Nullable() bool {
	return s.Left.Nullable() || s.Right.Nullable()
}

func (s *ShortCircuit) Equals(o Node) bool {
	os, ok := o.(*ShortCircuit)
	return ok && s.Op == os.Op && s.Left.Equals(os.Left) && s.Right.Equals(os.Right)
}

func (s *ShortCircuit) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "short_circuit")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(s.Op))
	dst.BeginField(st.Intern("left"))
	s.Left.Encode(dst, st)
	dst.BeginField(st.Intern("right"))
	s.Right.Encode(dst, st)
	dst.EndStruct()
}

// Not is boolean negation.
type Not struct {
	Inner Node
}

func (n *Not) Type() *Type { return BoolT }
func (n *Not) Nullable() bool { return n.Inner.Nullable() }

func (n *Not) Equals(o Node) bool {
	on, ok := o.(*Not)
	return ok && n.Inner.Equals(on.Inner)
}

func (n *Not) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "not")
	dst.BeginField(st.Intern("inner"))
	n.Inner.Encode(dst, st)
	dst.EndStruct()
}

// IsNull tests for null (or, with Negate set,
// for non-null). It never yields null itself.
type IsNull struct {
	Inner  Node
	Negate bool
}

func (i *IsNull) Type() *Type { return BoolT }
func (i *IsNull) Nullable() bool { return false }

func (i *IsNull) Equals(o Node) bool {
	oi, ok := o.(*IsNull)
	return ok && i.Negate == oi.Negate && i.Inner.Equals(oi.Inner)
}

func (i *IsNull) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "is_null")
	dst.BeginField(st.Intern("inner"))
	i.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("negate"))
	dst.WriteBool(i.Negate)
	dst.EndStruct()
}

// Cast converts Inner to the target type To.
// With Try set, conversion failure produces null
// instead of a runtime error.
type Cast struct {
	Inner Node
	To    *Type
	Try   bool
}

func (c *Cast) Type() *Type { return c.To }

func (c *Cast) Nullable() bool {
	return c.Try || c.Inner.Nullable()
}

func (c *Cast) Equals(o Node) bool {
	oc, ok := o.(*Cast)
	return ok && c.Try == oc.Try && c.To.Equals(oc.To) && c.Inner.Equals(oc.Inner)
}

func (c *Cast) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "cast")
	dst.BeginField(st.Intern("inner"))
	c.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("to"))
	c.To.Encode(dst, st)
	dst.BeginField(st.Intern("try"))
	dst.WriteBool(c.Try)
	dst.EndStruct()
}

// InList is set membership of Probe against
// a list of literal values.
type InList struct {
	Probe  Node
	Values []Value
}

func (i *InList) Type() *Type { return BoolT }

func (i *InList) Nullable() bool {
	if i.Probe.Nullable() {
		return true
	}
	for j := range i.Values {
		if i.Values[j].IsNull {
			return true
		}
	}
	return false
}

func (i *InList) Equals(o Node) bool {
	oi, ok := o.(*InList)
	if !ok || len(i.Values) != len(oi.Values) || !i.Probe.Equals(oi.Probe) {
		return false
	}
	for j := range i.Values {
		if !i.Values[j].Equals(&oi.Values[j]) {
			return false
		}
	}
	return true
}

func (i *InList) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "in_list")
	dst.BeginField(st.Intern("probe"))
	i.Probe.Encode(dst, st)
	dst.BeginField(st.Intern("values"))
	dst.BeginList()
	for j := range i.Values {
		i.Values[j].Encode(dst, st)
	}
	dst.EndList()
	dst.EndStruct()
}

// Like matches Inner against a literal
// SQL LIKE pattern.
type Like struct {
	Inner   Node
	Pattern string
}

func (l *Like) Type() *Type { return BoolT }
func (l *Like) Nullable() bool { return l.Inner.Nullable() }

func (l *Like) Equals(o Node) bool {
	ol, ok := o.(*Like)
	return ok && l.Pattern == ol.Pattern && l.Inner.Equals(ol.Inner)
}

func (l *Like) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "like")
	dst.BeginField(st.Intern("inner"))
	l.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("pattern"))
	dst.WriteString(l.Pattern)
	dst.EndStruct()
}

// StringPredOp is a dedicated string-predicate kind.
type StringPredOp int

const (
	StartsWith StringPredOp = iota
	EndsWith
	StrContains
)

func (s StringPredOp) String() string {
	switch s {
	case StartsWith:
		return "starts_with"
	case EndsWith:
		return "ends_with"
	case StrContains:
		return "contains"
	default:
		return "<unknown string predicate>"
	}
}

// StringPred matches Inner against a literal
// comparand with a dedicated predicate node kind.
type StringPred struct {
	Op      StringPredOp
	Inner   Node
	Pattern string
}

func (s *StringPred) Type() *Type { return BoolT }
func (s *StringPred) Nullable() bool { return s.Inner.Nullable() }

func (s *StringPred) Equals(o Node) bool {
	os, ok := o.(*StringPred)
	return ok && s.Op == os.Op && s.Pattern == os.Pattern && s.Inner.Equals(os.Inner)
}

func (s *StringPred) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "string_pred")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(s.Op))
	dst.BeginField(st.Intern("inner"))
	s.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("pattern"))
	dst.WriteString(s.Pattern)
	dst.EndStruct()
}

// Call invokes a scalar function by name; the name
// is either a builtin id or a registered extension
// function name.
type Call struct {
	Func string
	Args []Node
	T    *Type
	Nul  bool
}

func (c *Call) Type() *Type { return c.T }
func (c *Call) Nullable() bool { return c.Nul }

func (c *Call) Equals(o Node) bool {
	oc, ok := o.(*Call)
	return ok && c.Func == oc.Func && c.T.Equals(oc.T) &&
		c.Nul == oc.Nul && equalNodes(c.Args, oc.Args)
}

func (c *Call) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "call")
	dst.BeginField(st.Intern("func"))
	dst.WriteSymbol(st.Intern(c.Func))
	dst.BeginField(st.Intern("args"))
	dst.BeginList()
	for i := range c.Args {
		c.Args[i].Encode(dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("item"))
	c.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(c.Nul)
	dst.EndStruct()
}

// AggOp is an aggregate operator id.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggFirst
	AggFirstIgnoreNulls
	AggCollectList
	AggCollectSet
	AggBitAnd
	AggBitOr
	AggBitXor
	AggBoolAnd
	AggBoolOr
)

func (a AggOp) String() string {
	switch a {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggAvg:
		return "avg"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggFirst:
		return "first"
	case AggFirstIgnoreNulls:
		return "first_ignore_nulls"
	case AggCollectList:
		return "collect_list"
	case AggCollectSet:
		return "collect_set"
	case AggBitAnd:
		return "bit_and"
	case AggBitOr:
		return "bit_or"
	case AggBitXor:
		return "bit_xor"
	case AggBoolAnd:
		return "bool_and"
	case AggBoolOr:
		return "bool_or"
	default:
		return "<unknown aggregate>"
	}
}

// AggregateCall is an aggregate operator descriptor.
type AggregateCall struct {
	Op       AggOp
	Args     []Node
	Distinct bool
	T        *Type
	Nul      bool
}

func (a *AggregateCall) Type() *Type { return a.T }
func (a *AggregateCall) Nullable() bool { return a.Nul }

func (a *AggregateCall) Equals(o Node) bool {
	oa, ok := o.(*AggregateCall)
	return ok && a.Op == oa.Op && a.Distinct == oa.Distinct &&
		a.T.Equals(oa.T) && a.Nul == oa.Nul && equalNodes(a.Args, oa.Args)
}

func (a *AggregateCall) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "aggregate")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(a.Op))
	dst.BeginField(st.Intern("args"))
	dst.BeginList()
	for i := range a.Args {
		a.Args[i].Encode(dst, st)
	}
	dst.EndList()
	if a.Distinct {
		dst.BeginField(st.Intern("distinct"))
		dst.WriteBool(true)
	}
	dst.BeginField(st.Intern("item"))
	a.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(a.Nul)
	dst.EndStruct()
}

// When is one (condition, result) arm of a Case.
type When struct {
	Cond, Then Node
}

// Case is a conditional expression with ordered
// (when, then) arms and an optional else.
type Case struct {
	Whens []When
	Else  Node
	T     *Type
}

func (c *Case) Type() *Type { return c.T }

func (c *Case) Nullable() bool {
	if c.Else == nil || c.Else.Nullable() {
		return true
	}
	for i := range c.Whens {
		if c.Whens[i].Then.Nullable() {
			return true
		}
	}
	return false
}

func (c *Case) Equals(o Node) bool {
	oc, ok := o.(*Case)
	if !ok || len(c.Whens) != len(oc.Whens) || !c.T.Equals(oc.T) {
		return false
	}
	for i := range c.Whens {
		if !c.Whens[i].Cond.Equals(oc.Whens[i].Cond) ||
			!c.Whens[i].Then.Equals(oc.Whens[i].Then) {
			return false
		}
	}
	return Equal(c.Else, oc.Else)
}

func (c *Case) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "case")
	dst.BeginField(st.Intern("whens"))
	dst.BeginList()
	for i := range c.Whens {
		dst.BeginList()
		c.Whens[i].Cond.Encode(dst, st)
		c.Whens[i].Then.Encode(dst, st)
		dst.EndList()
	}
	dst.EndList()
	if c.Else != nil {
		dst.BeginField(st.Intern("else"))
		c.Else.Encode(dst, st)
	}
	dst.BeginField(st.Intern("item"))
	c.T.Encode(dst, st)
	dst.EndStruct()
}

// NamedStruct constructs a struct value from ordered
// field expressions; T carries the field names.
type NamedStruct struct {
	Args []Node
	T    *Type
}

func (n *NamedStruct) Type() *Type { return n.T }
func (n *NamedStruct) Nullable() bool { return false }

func (n *NamedStruct) Equals(o Node) bool {
	on, ok := o.(*NamedStruct)
	return ok && n.T.Equals(on.T) && equalNodes(n.Args, on.Args)
}

func (n *NamedStruct) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "named_struct")
	dst.BeginField(st.Intern("args"))
	dst.BeginList()
	for i := range n.Args {
		n.Args[i].Encode(dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("item"))
	n.T.Encode(dst, st)
	dst.EndStruct()
}

// IndexedField accesses a member of a container by a
// literal scalar key: a 1-based subscript for lists,
// or a field ordinal for structs.
type IndexedField struct {
	Inner Node
	Key   Value
	T     *Type
	Nul   bool
}

func (f *IndexedField) Type() *Type { return f.T }
func (f *IndexedField) Nullable() bool { return f.Nul }

func (f *IndexedField) Equals(o Node) bool {
	of, ok := o.(*IndexedField)
	return ok && f.Key.Equals(&of.Key) && f.T.Equals(of.T) &&
		f.Nul == of.Nul && f.Inner.Equals(of.Inner)
}

func (f *IndexedField) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "indexed_field")
	dst.BeginField(st.Intern("inner"))
	f.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("key"))
	f.Key.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	f.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(f.Nul)
	dst.EndStruct()
}

// MapLookup accesses a map value by a literal key.
type MapLookup struct {
	Inner Node
	Key   Value
	T     *Type
	Nul   bool
}

func (m *MapLookup) Type() *Type { return m.T }
func (m *MapLookup) Nullable() bool { return m.Nul }

func (m *MapLookup) Equals(o Node) bool {
	om, ok := o.(*MapLookup)
	return ok && m.Key.Equals(&om.Key) && m.T.Equals(om.T) &&
		m.Nul == om.Nul && m.Inner.Equals(om.Inner)
}

func (m *MapLookup) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "map_lookup")
	dst.BeginField(st.Intern("inner"))
	m.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("key"))
	m.Key.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	m.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(m.Nul)
	dst.EndStruct()
}

// RowNumber is the row-number window operator.
type RowNumber struct{}

func (r RowNumber) Type() *Type { return Int64T }
func (r RowNumber) Nullable() bool { return false }

func (r RowNumber) Equals(o Node) bool {
	_, ok := o.(RowNumber)
	return ok
}

func (r RowNumber) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "row_number")
	dst.EndStruct()
}

// OpaqueCall delegates evaluation of an unconvertible
// expression fragment to a host-side closure. Blob is
// the serialized closure; Params are the pre-lowered
// argument expressions, in the exact positional order
// of the closure's parameter schema.
type OpaqueCall struct {
	Blob   []byte
	Params []Node
	T      *Type
	Nul    bool
}

func (c *OpaqueCall) Type() *Type { return c.T }
func (c *OpaqueCall) Nullable() bool { return c.Nul }

func (c *OpaqueCall) Equals(o Node) bool {
	oc, ok := o.(*OpaqueCall)
	return ok && bytes.Equal(c.Blob, oc.Blob) && c.T.Equals(oc.T) &&
		c.Nul == oc.Nul && equalNodes(c.Params, oc.Params)
}

func (c *OpaqueCall) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "opaque_call")
	dst.BeginField(st.Intern("blob"))
	dst.WriteBlob(c.Blob)
	dst.BeginField(st.Intern("params"))
	dst.BeginList()
	for i := range c.Params {
		c.Params[i].Encode(dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("item"))
	c.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(c.Nul)
	dst.EndStruct()
}
