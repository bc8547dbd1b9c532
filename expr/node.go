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

	"github.com/kitedata/kite/ir"
	"github.com/kitedata/kite/wire"
)

// Node is a host expression AST node. Every node
// carries its declared type and nullability as
// produced by the host analyzer.
type Node interface {
	// Type returns the declared type of the node.
	Type() *Type
	// Nullable returns whether evaluation may
	// produce null.
	Nullable() bool
	// Equals returns whether this node is
	// structurally identical to another node.
	Equals(Node) bool

	Encode(dst *wire.Buffer, st *wire.Symtab)

	walk(v Visitor)
	children() []Node
	withChildren(kids []Node) Node
}

// Visitor is the interface accepted by Walk.
// Visit is invoked for each node encountered; if the
// returned visitor w is not nil, Walk visits each of
// the children of the node with w, followed by a call
// of w.Visit(nil).
//
// (see also: ast.Visitor)
type Visitor interface {
	Visit(Node) Visitor
}

// Walk traverses an AST in depth-first order.
func Walk(v Visitor, n Node) {
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

// Children returns the ordered direct children of n.
// The returned slice is freshly allocated.
func Children(n Node) []Node {
	return n.children()
}

// WithChildren returns a copy of n with its direct
// children replaced by kids, which must have the same
// length as Children(n). n itself is not modified.
func WithChildren(n Node, kids []Node) Node {
	if len(kids) != len(n.children()) {
		panic("expr.WithChildren: child count mismatch")
	}
	return n.withChildren(kids)
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

// Literal is a constant of a host type. Value is one
// of nil, bool, int64, float64, string, []byte,
// *big.Int (a decimal unscaled magnitude), or []any
// for list literals. Date and Timestamp literals are
// carried as int64 day/microsecond counts.
type Literal struct {
	Value any
	T     *Type
}

func (l *Literal) Type() *Type { return l.T }
func (l *Literal) Nullable() bool { return l.Value == nil }
func (l *Literal) walk(v Visitor) {}
func (l *Literal) children() []Node { return nil }
func (l *Literal) withChildren(k []Node) Node { return l }

func (l *Literal) Equals(o Node) bool {
	ol, ok := o.(*Literal)
	if !ok || !l.T.Equals(ol.T) {
		return false
	}
	return literalEqual(l.Value, ol.Value)
}

func literalEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case *big.Int:
		ob, ok := b.(*big.Int)
		return ok && a.Cmp(ob) == 0
	case []byte:
		ob, ok := b.([]byte)
		return ok && string(a) == string(ob)
	case []any:
		ob, ok := b.([]any)
		if !ok || len(a) != len(ob) {
			return false
		}
		for i := range a {
			if !literalEqual(a[i], ob[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func (l *Literal) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "literal")
	dst.BeginField(st.Intern("item"))
	l.T.Encode(dst, st)
	dst.BeginField(st.Intern("value"))
	encodeValue(dst, st, l.Value, l.T)
	dst.EndStruct()
}

// Column references an input attribute. ID is the
// host's unique attribute identifier; Name is the
// display name visible in schemas.
type Column struct {
	ID   uint64
	Name string
	T    *Type
	Nul  bool
}

func (c *Column) Type() *Type { return c.T }
func (c *Column) Nullable() bool { return c.Nul }
func (c *Column) walk(v Visitor) {}
func (c *Column) children() []Node { return nil }
func (c *Column) withChildren(k []Node) Node { return c }

func (c *Column) Equals(o Node) bool {
	oc, ok := o.(*Column)
	return ok && c.ID == oc.ID && c.Name == oc.Name &&
		c.T.Equals(oc.T) && c.Nul == oc.Nul
}

func (c *Column) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "column")
	dst.BeginField(st.Intern("id"))
	dst.WriteUint(c.ID)
	dst.BeginField(st.Intern("name"))
	dst.WriteString(c.Name)
	dst.BeginField(st.Intern("item"))
	c.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(c.Nul)
	dst.EndStruct()
}

// Param is a positional placeholder inside a fallback
// fragment; at evaluation time it is bound to the
// value of the captured sub-expression at the same
// index in the parameter schema.
type Param struct {
	Index int
	T     *Type
	Nul   bool
}

func (p *Param) Type() *Type { return p.T }
func (p *Param) Nullable() bool { return p.Nul }
func (p *Param) walk(v Visitor) {}
func (p *Param) children() []Node { return nil }
func (p *Param) withChildren(k []Node) Node { return p }

func (p *Param) Equals(o Node) bool {
	op, ok := o.(*Param)
	return ok && p.Index == op.Index && p.T.Equals(op.T) && p.Nul == op.Nul
}

func (p *Param) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "param")
	dst.BeginField(st.Intern("index"))
	dst.WriteInt(int64(p.Index))
	dst.BeginField(st.Intern("item"))
	p.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(p.Nul)
	dst.EndStruct()
}

// Native is a pre-lowered leaf: a child that already
// resolved to IR during subtree extraction. It exists
// only transiently inside the lowering engine and is
// never serialized into a fallback fragment.
type Native struct {
	IR  ir.Node
	T   *Type
	Nul bool

	// HostCall marks that the subtree this leaf
	// replaced contained a host-only call (a UDF
	// or a membership probe), so rewrites keyed on
	// that property survive the substitution.
	HostCall bool
}

func (n *Native) Type() *Type { return n.T }
func (n *Native) Nullable() bool { return n.Nul }
func (n *Native) walk(v Visitor) {}
func (n *Native) children() []Node { return nil }
func (n *Native) withChildren(k []Node) Node { return n }

func (n *Native) Equals(o Node) bool {
	on, ok := o.(*Native)
	return ok && n.IR.Equals(on.IR)
}

func (n *Native) Encode(dst *wire.Buffer, st *wire.Symtab) {
	panic("expr: native leaf is not serializable")
}

// ArithOp is a host arithmetic or bitwise operation.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
)

func (a ArithOp) String() string {
	switch a {
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
	default:
		return "<unknown arith op>"
	}
}

// Arith is a binary arithmetic or bitwise operation
// with a declared result type.
type Arith struct {
	Op          ArithOp
	Left, Right Node
	T           *Type
}

func (a *Arith) Type() *Type { return a.T }
func (a *Arith) Nullable() bool { return a.Left.Nullable() || a.Right.Nullable() }

func (a *Arith) walk(v Visitor) {
	Walk(v, a.Left)
	Walk(v, a.Right)
}

func (a *Arith) children() []Node { return []Node{a.Left, a.Right} }

func (a *Arith) withChildren(k []Node) Node {
	return &Arith{Op: a.Op, Left: k[0], Right: k[1], T: a.T}
}

func (a *Arith) Equals(o Node) bool {
	oa, ok := o.(*Arith)
	return ok && a.Op == oa.Op && a.T.Equals(oa.T) &&
		a.Left.Equals(oa.Left) && a.Right.Equals(oa.Right)
}

func (a *Arith) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "arith")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(a.Op))
	dst.BeginField(st.Intern("left"))
	a.Left.Encode(dst, st)
	dst.BeginField(st.Intern("right"))
	a.Right.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	a.T.Encode(dst, st)
	dst.EndStruct()
}

// CmpOp is a host comparison operation.
type CmpOp int

const (
	Equals CmpOp = iota
	NotEquals
	Less
	LessEquals
	Greater
	GreaterEquals
)

func (c CmpOp) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case Less:
		return "<"
	case LessEquals:
		return "<="
	case Greater:
		return ">"
	case GreaterEquals:
		return ">="
	default:
		return "<unknown cmp op>"
	}
}

// Compare is a binary comparison.
type Compare struct {
	Op          CmpOp
	Left, Right Node
}

func (c *Compare) Type() *Type { return BoolT }
func (c *Compare) Nullable() bool { return c.Left.Nullable() || c.Right.Nullable() }

func (c *Compare) walk(v Visitor) {
	Walk(v, c.Left)
	Walk(v, c.Right)
}

func (c *Compare) children() []Node { return []Node{c.Left, c.Right} }

func (c *Compare) withChildren(k []Node) Node {
	return &Compare{Op: c.Op, Left: k[0], Right: k[1]}
}

func (c *Compare) Equals(o Node) bool {
	oc, ok := o.(*Compare)
	return ok && c.Op == oc.Op && c.Left.Equals(oc.Left) && c.Right.Equals(oc.Right)
}

func (c *Compare) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "cmp")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(c.Op))
	dst.BeginField(st.Intern("left"))
	c.Left.Encode(dst, st)
	dst.BeginField(st.Intern("right"))
	c.Right.Encode(dst, st)
	dst.EndStruct()
}

// LogicalOp is a boolean connective.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (l LogicalOp) String() string {
	if l == OpAnd {
		return "and"
	}
	return "or"
}

// Logical is a binary boolean connective.
type Logical struct {
	Op          LogicalOp
	Left, Right Node
}

func (l *Logical) Type() *Type { return BoolT }
func (l *Logical) Nullable() bool { return l.Left.Nullable() || l.Right.Nullable() }

func (l *Logical) walk(v Visitor) {
	Walk(v, l.Left)
	Walk(v, l.Right)
}

func (l *Logical) children() []Node { return []Node{l.Left, l.Right} }

func (l *Logical) withChildren(k []Node) Node {
	return &Logical{Op: l.Op, Left: k[0], Right: k[1]}
}

func (l *Logical) Equals(o Node) bool {
	ol, ok := o.(*Logical)
	return ok && l.Op == ol.Op && l.Left.Equals(ol.Left) && l.Right.Equals(ol.Right)
}

func (l *Logical) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "logical")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(l.Op))
	dst.BeginField(st.Intern("left"))
	l.Left.Encode(dst, st)
	dst.BeginField(st.Intern("right"))
	l.Right.Encode(dst, st)
	dst.EndStruct()
}

// And yields '<left> AND <right>'.
func And(left, right Node) *Logical {
	return &Logical{Op: OpAnd, Left: left, Right: right}
}

// Or yields '<left> OR <right>'.
func Or(left, right Node) *Logical {
	return &Logical{Op: OpOr, Left: left, Right: right}
}

// Not is boolean negation.
type Not struct {
	Inner Node
}

func (n *Not) Type() *Type { return BoolT }
func (n *Not) Nullable() bool { return n.Inner.Nullable() }
func (n *Not) walk(v Visitor) { Walk(v, n.Inner) }
func (n *Not) children() []Node { return []Node{n.Inner} }

func (n *Not) withChildren(k []Node) Node { return &Not{Inner: k[0]} }

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

// IsNull tests for null, or for non-null
// when Negate is set.
type IsNull struct {
	Inner  Node
	Negate bool
}

func (i *IsNull) Type() *Type { return BoolT }
func (i *IsNull) Nullable() bool { return false }
func (i *IsNull) walk(v Visitor) { Walk(v, i.Inner) }
func (i *IsNull) children() []Node { return []Node{i.Inner} }

func (i *IsNull) withChildren(k []Node) Node {
	return &IsNull{Inner: k[0], Negate: i.Negate}
}

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

// Cast converts Inner to the host type To.
type Cast struct {
	Inner Node
	To    *Type
}

func (c *Cast) Type() *Type { return c.To }
func (c *Cast) Nullable() bool { return c.Inner.Nullable() }
func (c *Cast) walk(v Visitor) { Walk(v, c.Inner) }
func (c *Cast) children() []Node { return []Node{c.Inner} }

func (c *Cast) withChildren(k []Node) Node {
	return &Cast{Inner: k[0], To: c.To}
}

func (c *Cast) Equals(o Node) bool {
	oc, ok := o.(*Cast)
	return ok && c.To.Equals(oc.To) && c.Inner.Equals(oc.Inner)
}

func (c *Cast) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "cast")
	dst.BeginField(st.Intern("inner"))
	c.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("to"))
	c.To.Encode(dst, st)
	dst.EndStruct()
}

// When is one (condition, result) arm of a Case.
type When struct {
	Cond, Then Node
}

// Case is a conditional with ordered (when, then)
// arms and an optional else branch.
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

func (c *Case) walk(v Visitor) {
	for i := range c.Whens {
		Walk(v, c.Whens[i].Cond)
		Walk(v, c.Whens[i].Then)
	}
	if c.Else != nil {
		Walk(v, c.Else)
	}
}

func (c *Case) children() []Node {
	out := make([]Node, 0, 2*len(c.Whens)+1)
	for i := range c.Whens {
		out = append(out, c.Whens[i].Cond, c.Whens[i].Then)
	}
	if c.Else != nil {
		out = append(out, c.Else)
	}
	return out
}

func (c *Case) withChildren(k []Node) Node {
	out := &Case{Whens: make([]When, len(c.Whens)), T: c.T}
	for i := range c.Whens {
		out.Whens[i] = When{Cond: k[2*i], Then: k[2*i+1]}
	}
	if c.Else != nil {
		out.Else = k[len(k)-1]
	}
	return out
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

// In is set membership of Probe against an
// arbitrary candidate list.
type In struct {
	Probe Node
	List  []Node
}

func (i *In) Type() *Type { return BoolT }

func (i *In) Nullable() bool {
	if i.Probe.Nullable() {
		return true
	}
	for j := range i.List {
		if i.List[j].Nullable() {
			return true
		}
	}
	return false
}

func (i *In) walk(v Visitor) {
	Walk(v, i.Probe)
	for j := range i.List {
		Walk(v, i.List[j])
	}
}

func (i *In) children() []Node {
	return append([]Node{i.Probe}, i.List...)
}

func (i *In) withChildren(k []Node) Node {
	return &In{Probe: k[0], List: k[1:]}
}

func (i *In) Equals(o Node) bool {
	oi, ok := o.(*In)
	return ok && i.Probe.Equals(oi.Probe) && equalNodes(i.List, oi.List)
}

func (i *In) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "in")
	dst.BeginField(st.Intern("probe"))
	i.Probe.Encode(dst, st)
	dst.BeginField(st.Intern("list"))
	dst.BeginList()
	for j := range i.List {
		i.List[j].Encode(dst, st)
	}
	dst.EndList()
	dst.EndStruct()
}

// Like matches Inner against a SQL LIKE pattern.
type Like struct {
	Inner   Node
	Pattern Node
}

func (l *Like) Type() *Type { return BoolT }
func (l *Like) Nullable() bool { return l.Inner.Nullable() || l.Pattern.Nullable() }
func (l *Like) walk(v Visitor) { Walk(v, l.Inner); Walk(v, l.Pattern) }
func (l *Like) children() []Node { return []Node{l.Inner, l.Pattern} }

func (l *Like) withChildren(k []Node) Node {
	return &Like{Inner: k[0], Pattern: k[1]}
}

func (l *Like) Equals(o Node) bool {
	ol, ok := o.(*Like)
	return ok && l.Inner.Equals(ol.Inner) && l.Pattern.Equals(ol.Pattern)
}

func (l *Like) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "like")
	dst.BeginField(st.Intern("inner"))
	l.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("pattern"))
	l.Pattern.Encode(dst, st)
	dst.EndStruct()
}

// StringPredOp is a host string predicate kind.
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

// StringPred matches Inner against a comparand with
// one of the dedicated string predicates.
type StringPred struct {
	Op      StringPredOp
	Inner   Node
	Pattern Node
}

func (s *StringPred) Type() *Type { return BoolT }
func (s *StringPred) Nullable() bool { return s.Inner.Nullable() || s.Pattern.Nullable() }
func (s *StringPred) walk(v Visitor) { Walk(v, s.Inner); Walk(v, s.Pattern) }
func (s *StringPred) children() []Node { return []Node{s.Inner, s.Pattern} }

func (s *StringPred) withChildren(k []Node) Node {
	return &StringPred{Op: s.Op, Inner: k[0], Pattern: k[1]}
}

func (s *StringPred) Equals(o Node) bool {
	os, ok := o.(*StringPred)
	return ok && s.Op == os.Op && s.Inner.Equals(os.Inner) && s.Pattern.Equals(os.Pattern)
}

func (s *StringPred) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "string_pred")
	dst.BeginField(st.Intern("op"))
	dst.WriteUint(uint64(s.Op))
	dst.BeginField(st.Intern("inner"))
	s.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("pattern"))
	s.Pattern.Encode(dst, st)
	dst.EndStruct()
}

// Call is a scalar function call. UDF marks functions
// that exist only host-side: they are never lowered
// natively and always route through the fallback path.
type Call struct {
	Func string
	Args []Node
	T    *Type
	Nul  bool
	UDF  bool
}

func (c *Call) Type() *Type { return c.T }
func (c *Call) Nullable() bool { return c.Nul }

func (c *Call) walk(v Visitor) {
	for i := range c.Args {
		Walk(v, c.Args[i])
	}
}

func (c *Call) children() []Node {
	return append([]Node(nil), c.Args...)
}

func (c *Call) withChildren(k []Node) Node {
	return &Call{Func: c.Func, Args: k, T: c.T, Nul: c.Nul, UDF: c.UDF}
}

func (c *Call) Equals(o Node) bool {
	oc, ok := o.(*Call)
	return ok && c.Func == oc.Func && c.UDF == oc.UDF &&
		c.T.Equals(oc.T) && c.Nul == oc.Nul && equalNodes(c.Args, oc.Args)
}

func (c *Call) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "call")
	dst.BeginField(st.Intern("func"))
	dst.WriteString(c.Func)
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
	if c.UDF {
		dst.BeginField(st.Intern("udf"))
		dst.WriteBool(true)
	}
	dst.EndStruct()
}

// AggOp is a host aggregate function kind.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggFirst
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

// Aggregate is a host aggregate function call.
// IgnoreNulls distinguishes FIRST(x IGNORE NULLS)
// from plain FIRST(x).
type Aggregate struct {
	Op          AggOp
	Args        []Node
	Distinct    bool
	IgnoreNulls bool
	T           *Type
}

func (a *Aggregate) Type() *Type { return a.T }

func (a *Aggregate) Nullable() bool {
	return a.Op != AggCount
}

func (a *Aggregate) walk(v Visitor) {
	for i := range a.Args {
		Walk(v, a.Args[i])
	}
}

func (a *Aggregate) children() []Node {
	return append([]Node(nil), a.Args...)
}

func (a *Aggregate) withChildren(k []Node) Node {
	return &Aggregate{Op: a.Op, Args: k, Distinct: a.Distinct, IgnoreNulls: a.IgnoreNulls, T: a.T}
}

func (a *Aggregate) Equals(o Node) bool {
	oa, ok := o.(*Aggregate)
	return ok && a.Op == oa.Op && a.Distinct == oa.Distinct &&
		a.IgnoreNulls == oa.IgnoreNulls && a.T.Equals(oa.T) &&
		equalNodes(a.Args, oa.Args)
}

func (a *Aggregate) Encode(dst *wire.Buffer, st *wire.Symtab) {
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
	if a.IgnoreNulls {
		dst.BeginField(st.Intern("ignore_nulls"))
		dst.WriteBool(true)
	}
	dst.BeginField(st.Intern("item"))
	a.T.Encode(dst, st)
	dst.EndStruct()
}

// GetField accesses a struct member by ordinal.
type GetField struct {
	Inner   Node
	Ordinal int
	Name    string
	T       *Type
	Nul     bool
}

func (g *GetField) Type() *Type { return g.T }
func (g *GetField) Nullable() bool { return g.Nul }
func (g *GetField) walk(v Visitor) { Walk(v, g.Inner) }
func (g *GetField) children() []Node { return []Node{g.Inner} }

func (g *GetField) withChildren(k []Node) Node {
	return &GetField{Inner: k[0], Ordinal: g.Ordinal, Name: g.Name, T: g.T, Nul: g.Nul}
}

func (g *GetField) Equals(o Node) bool {
	og, ok := o.(*GetField)
	return ok && g.Ordinal == og.Ordinal && g.Name == og.Name &&
		g.T.Equals(og.T) && g.Nul == og.Nul && g.Inner.Equals(og.Inner)
}

func (g *GetField) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "get_field")
	dst.BeginField(st.Intern("inner"))
	g.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("ordinal"))
	dst.WriteInt(int64(g.Ordinal))
	dst.BeginField(st.Intern("name"))
	dst.WriteString(g.Name)
	dst.BeginField(st.Intern("item"))
	g.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(g.Nul)
	dst.EndStruct()
}

// GetItem accesses a list element by subscript.
// Host subscripts are 0-based.
type GetItem struct {
	Inner Node
	Sub   Node
	T     *Type
	Nul   bool
}

func (g *GetItem) Type() *Type { return g.T }
func (g *GetItem) Nullable() bool { return g.Nul }
func (g *GetItem) walk(v Visitor) { Walk(v, g.Inner); Walk(v, g.Sub) }
func (g *GetItem) children() []Node { return []Node{g.Inner, g.Sub} }

func (g *GetItem) withChildren(k []Node) Node {
	return &GetItem{Inner: k[0], Sub: k[1], T: g.T, Nul: g.Nul}
}

func (g *GetItem) Equals(o Node) bool {
	og, ok := o.(*GetItem)
	return ok && g.T.Equals(og.T) && g.Nul == og.Nul &&
		g.Inner.Equals(og.Inner) && g.Sub.Equals(og.Sub)
}

func (g *GetItem) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "get_item")
	dst.BeginField(st.Intern("inner"))
	g.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("sub"))
	g.Sub.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	g.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(g.Nul)
	dst.EndStruct()
}

// GetMapValue accesses a map value by key.
type GetMapValue struct {
	Inner Node
	Key   Node
	T     *Type
	Nul   bool
}

func (g *GetMapValue) Type() *Type { return g.T }
func (g *GetMapValue) Nullable() bool { return g.Nul }
func (g *GetMapValue) walk(v Visitor) { Walk(v, g.Inner); Walk(v, g.Key) }
func (g *GetMapValue) children() []Node { return []Node{g.Inner, g.Key} }

func (g *GetMapValue) withChildren(k []Node) Node {
	return &GetMapValue{Inner: k[0], Key: k[1], T: g.T, Nul: g.Nul}
}

func (g *GetMapValue) Equals(o Node) bool {
	og, ok := o.(*GetMapValue)
	return ok && g.T.Equals(og.T) && g.Nul == og.Nul &&
		g.Inner.Equals(og.Inner) && g.Key.Equals(og.Key)
}

func (g *GetMapValue) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "get_map_value")
	dst.BeginField(st.Intern("inner"))
	g.Inner.Encode(dst, st)
	dst.BeginField(st.Intern("key"))
	g.Key.Encode(dst, st)
	dst.BeginField(st.Intern("item"))
	g.T.Encode(dst, st)
	dst.BeginField(st.Intern("nullable"))
	dst.WriteBool(g.Nul)
	dst.EndStruct()
}

// MakeStruct constructs a struct value from ordered
// field expressions; T carries the field names.
type MakeStruct struct {
	Args []Node
	T    *Type
}

func (m *MakeStruct) Type() *Type { return m.T }
func (m *MakeStruct) Nullable() bool { return false }

func (m *MakeStruct) walk(v Visitor) {
	for i := range m.Args {
		Walk(v, m.Args[i])
	}
}

func (m *MakeStruct) children() []Node {
	return append([]Node(nil), m.Args...)
}

func (m *MakeStruct) withChildren(k []Node) Node {
	return &MakeStruct{Args: k, T: m.T}
}

func (m *MakeStruct) Equals(o Node) bool {
	om, ok := o.(*MakeStruct)
	return ok && m.T.Equals(om.T) && equalNodes(m.Args, om.Args)
}

func (m *MakeStruct) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "make_struct")
	dst.BeginField(st.Intern("args"))
	dst.BeginList()
	for i := range m.Args {
		m.Args[i].Encode(dst, st)
	}
	dst.EndList()
	dst.BeginField(st.Intern("item"))
	m.T.Encode(dst, st)
	dst.EndStruct()
}

// MightContain is a probabilistic membership test of
// Arg against a pre-built bloom filter expression.
type MightContain struct {
	Filter Node
	Arg    Node
}

func (m *MightContain) Type() *Type { return BoolT }
func (m *MightContain) Nullable() bool { return m.Filter.Nullable() || m.Arg.Nullable() }
func (m *MightContain) walk(v Visitor) { Walk(v, m.Filter); Walk(v, m.Arg) }
func (m *MightContain) children() []Node { return []Node{m.Filter, m.Arg} }

func (m *MightContain) withChildren(k []Node) Node {
	return &MightContain{Filter: k[0], Arg: k[1]}
}

func (m *MightContain) Equals(o Node) bool {
	om, ok := o.(*MightContain)
	return ok && m.Filter.Equals(om.Filter) && m.Arg.Equals(om.Arg)
}

func (m *MightContain) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "might_contain")
	dst.BeginField(st.Intern("filter"))
	m.Filter.Encode(dst, st)
	dst.BeginField(st.Intern("arg"))
	m.Arg.Encode(dst, st)
	dst.EndStruct()
}

// RowNumber is the host row-number window expression.
type RowNumber struct{}

func (r RowNumber) Type() *Type { return Int64T }
func (r RowNumber) Nullable() bool { return false }
func (r RowNumber) walk(v Visitor) {}
func (r RowNumber) children() []Node { return nil }
func (r RowNumber) withChildren(k []Node) Node { return r }

func (r RowNumber) Equals(o Node) bool {
	_, ok := o.(RowNumber)
	return ok
}

func (r RowNumber) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	settype(dst, st, "row_number")
	dst.EndStruct()
}

// ContainsUDF returns whether any node in the subtree
// rooted at n is a user-defined function call or a
// probabilistic membership test; such subtrees must
// not be evaluated eagerly by the native engine.
func ContainsUDF(n Node) bool {
	found := false
	Walk(visitFn(func(x Node) bool {
		if found {
			return false
		}
		switch x := x.(type) {
		case *Call:
			if x.UDF {
				found = true
				return false
			}
		case *MightContain:
			found = true
			return false
		case *Native:
			if x.HostCall {
				found = true
				return false
			}
		}
		return true
	}), n)
	return found
}

type visitFn func(Node) bool

func (f visitFn) Visit(n Node) Visitor {
	if n == nil || !f(n) {
		return nil
	}
	return f
}
