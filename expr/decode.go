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
	"errors"
	"fmt"

	"github.com/kitedata/kite/wire"
)

var errUnexpectedField = errors.New("unexpected field")

// composite is a Node that can be reconstructed
// field-by-field from its wire form.
type composite interface {
	Node
	setfield(name string, st *wire.Symtab, body []byte) error
}

func getEmpty(name string) (composite, bool) {
	switch name {
	case "literal":
		return &Literal{}, true
	case "column":
		return &Column{}, true
	case "param":
		return &Param{}, true
	case "arith":
		return &Arith{}, true
	case "cmp":
		return &Compare{}, true
	case "logical":
		return &Logical{}, true
	case "not":
		return &Not{}, true
	case "is_null":
		return &IsNull{}, true
	case "cast":
		return &Cast{}, true
	case "case":
		return &Case{}, true
	case "in":
		return &In{}, true
	case "like":
		return &Like{}, true
	case "string_pred":
		return &StringPred{}, true
	case "call":
		return &Call{}, true
	case "aggregate":
		return &Aggregate{}, true
	case "get_field":
		return &GetField{}, true
	case "get_item":
		return &GetItem{}, true
	case "get_map_value":
		return &GetMapValue{}, true
	case "make_struct":
		return &MakeStruct{}, true
	case "might_contain":
		return &MightContain{}, true
	case "row_number":
		return RowNumber{}, true
	default:
		return nil, false
	}
}

// Decode decodes a single host expression node from
// the start of buf and returns the remaining bytes.
func Decode(st *wire.Symtab, buf []byte) (Node, []byte, error) {
	var node composite
	err := wire.UnpackTyped(st, buf, func(typ string) error {
		n, ok := getEmpty(typ)
		if !ok {
			return fmt.Errorf("expr: unknown node type %q", typ)
		}
		node = n
		return nil
	}, func(name string, body []byte) error {
		return node.setfield(name, st, body)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("expr.Decode: %w", err)
	}
	size := wire.SizeOf(buf)
	return node, buf[size:], nil
}

func decodeNodeList(st *wire.Symtab, body []byte, out *[]Node) error {
	return wire.UnpackList(body, func(item []byte) error {
		n, _, err := Decode(st, item)
		if err != nil {
			return err
		}
		*out = append(*out, n)
		return nil
	})
}

func (l *Literal) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "item":
		l.T, _, err = DecodeType(st, body)
	case "value":
		// "item" always precedes "value" on the
		// wire, so l.T is already populated here.
		l.Value, err = decodeValue(st, body, l.T)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Column) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "id":
		c.ID, _, err = wire.ReadUint(body)
	case "name":
		c.Name, _, err = wire.ReadString(body)
	case "item":
		c.T, _, err = DecodeType(st, body)
	case "nullable":
		c.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (p *Param) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "index":
		var i int64
		i, _, err = wire.ReadInt(body)
		p.Index = int(i)
	case "item":
		p.T, _, err = DecodeType(st, body)
	case "nullable":
		p.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (a *Arith) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		a.Op = ArithOp(v)
	case "left":
		a.Left, _, err = Decode(st, body)
	case "right":
		a.Right, _, err = Decode(st, body)
	case "item":
		a.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Compare) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		c.Op = CmpOp(v)
	case "left":
		c.Left, _, err = Decode(st, body)
	case "right":
		c.Right, _, err = Decode(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (l *Logical) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		l.Op = LogicalOp(v)
	case "left":
		l.Left, _, err = Decode(st, body)
	case "right":
		l.Right, _, err = Decode(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (n *Not) setfield(name string, st *wire.Symtab, body []byte) error {
	if name != "inner" {
		return errUnexpectedField
	}
	var err error
	n.Inner, _, err = Decode(st, body)
	return err
}

func (i *IsNull) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		i.Inner, _, err = Decode(st, body)
	case "negate":
		i.Negate, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Cast) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		c.Inner, _, err = Decode(st, body)
	case "to":
		c.To, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Case) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "whens":
		return wire.UnpackList(body, func(item []byte) error {
			var pair []Node
			if err := decodeNodeList(st, item, &pair); err != nil {
				return err
			}
			if len(pair) != 2 {
				return fmt.Errorf("case arm has %d nodes", len(pair))
			}
			c.Whens = append(c.Whens, When{Cond: pair[0], Then: pair[1]})
			return nil
		})
	case "else":
		c.Else, _, err = Decode(st, body)
	case "item":
		c.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (i *In) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "probe":
		i.Probe, _, err = Decode(st, body)
	case "list":
		return decodeNodeList(st, body, &i.List)
	default:
		return errUnexpectedField
	}
	return err
}

func (l *Like) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		l.Inner, _, err = Decode(st, body)
	case "pattern":
		l.Pattern, _, err = Decode(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (s *StringPred) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		s.Op = StringPredOp(v)
	case "inner":
		s.Inner, _, err = Decode(st, body)
	case "pattern":
		s.Pattern, _, err = Decode(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Call) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "func":
		c.Func, _, err = wire.ReadString(body)
	case "args":
		return decodeNodeList(st, body, &c.Args)
	case "item":
		c.T, _, err = DecodeType(st, body)
	case "nullable":
		c.Nul, _, err = wire.ReadBool(body)
	case "udf":
		c.UDF, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (a *Aggregate) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		a.Op = AggOp(v)
	case "args":
		return decodeNodeList(st, body, &a.Args)
	case "distinct":
		a.Distinct, _, err = wire.ReadBool(body)
	case "ignore_nulls":
		a.IgnoreNulls, _, err = wire.ReadBool(body)
	case "item":
		a.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (g *GetField) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		g.Inner, _, err = Decode(st, body)
	case "ordinal":
		var i int64
		i, _, err = wire.ReadInt(body)
		g.Ordinal = int(i)
	case "name":
		g.Name, _, err = wire.ReadString(body)
	case "item":
		g.T, _, err = DecodeType(st, body)
	case "nullable":
		g.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (g *GetItem) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		g.Inner, _, err = Decode(st, body)
	case "sub":
		g.Sub, _, err = Decode(st, body)
	case "item":
		g.T, _, err = DecodeType(st, body)
	case "nullable":
		g.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (g *GetMapValue) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		g.Inner, _, err = Decode(st, body)
	case "key":
		g.Key, _, err = Decode(st, body)
	case "item":
		g.T, _, err = DecodeType(st, body)
	case "nullable":
		g.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (m *MakeStruct) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "args":
		return decodeNodeList(st, body, &m.Args)
	case "item":
		m.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (m *MightContain) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "filter":
		m.Filter, _, err = Decode(st, body)
	case "arg":
		m.Arg, _, err = Decode(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (r RowNumber) setfield(name string, st *wire.Symtab, body []byte) error {
	return errUnexpectedField
}
