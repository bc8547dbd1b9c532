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
	case "bound":
		return &BoundRef{}, true
	case "unary":
		return &Unary{}, true
	case "binary":
		return &Binary{}, true
	case "short_circuit":
		return &ShortCircuit{}, true
	case "not":
		return &Not{}, true
	case "is_null":
		return &IsNull{}, true
	case "cast":
		return &Cast{}, true
	case "in_list":
		return &InList{}, true
	case "like":
		return &Like{}, true
	case "string_pred":
		return &StringPred{}, true
	case "call":
		return &Call{}, true
	case "aggregate":
		return &AggregateCall{}, true
	case "case":
		return &Case{}, true
	case "named_struct":
		return &NamedStruct{}, true
	case "indexed_field":
		return &IndexedField{}, true
	case "map_lookup":
		return &MapLookup{}, true
	case "row_number":
		return RowNumber{}, true
	case "opaque_call":
		return &OpaqueCall{}, true
	default:
		return nil, false
	}
}

// Decode decodes a single IR expression node from the
// start of buf and returns the remaining bytes.
func Decode(st *wire.Symtab, buf []byte) (Node, []byte, error) {
	var node composite
	err := wire.UnpackTyped(st, buf, func(typ string) error {
		n, ok := getEmpty(typ)
		if !ok {
			return fmt.Errorf("ir: unknown node type %q", typ)
		}
		node = n
		return nil
	}, func(name string, body []byte) error {
		return node.setfield(name, st, body)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ir.Decode: %w", err)
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

func readSymbolString(st *wire.Symtab, body []byte) (string, error) {
	sym, _, err := wire.ReadSymbol(body)
	if err != nil {
		return "", err
	}
	s, ok := st.Lookup(sym)
	if !ok {
		return "", fmt.Errorf("symbol %d not in symbol table", sym)
	}
	return s, nil
}

func (l *Literal) setfield(name string, st *wire.Symtab, body []byte) error {
	if name != "value" {
		return errUnexpectedField
	}
	var err error
	l.Value, _, err = DecodeValue(st, body)
	return err
}

func (c *Column) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
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

func (b *BoundRef) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "index":
		var u uint64
		u, _, err = wire.ReadUint(body)
		b.Index = uint32(u)
	case "item":
		b.T, _, err = DecodeType(st, body)
	case "nullable":
		b.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (u *Unary) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		u.Op = UnaryOp(v)
	case "inner":
		u.Inner, _, err = Decode(st, body)
	case "item":
		u.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (b *Binary) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		b.Op = BinaryOp(v)
	case "left":
		b.Left, _, err = Decode(st, body)
	case "right":
		b.Right, _, err = Decode(st, body)
	case "item":
		b.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (s *ShortCircuit) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "op":
		var v uint64
		v, _, err = wire.ReadUint(body)
		s.Op = BinaryOp(v)
	case "left":
		s.Left, _, err = Decode(st, body)
	case "right":
		s.Right, _, err = Decode(st, body)
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
	case "try":
		c.Try, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (i *InList) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "probe":
		i.Probe, _, err = Decode(st, body)
	case "values":
		return wire.UnpackList(body, func(item []byte) error {
			v, _, err := DecodeValue(st, item)
			if err != nil {
				return err
			}
			i.Values = append(i.Values, v)
			return nil
		})
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
		l.Pattern, _, err = wire.ReadString(body)
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
		s.Pattern, _, err = wire.ReadString(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (c *Call) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "func":
		c.Func, err = readSymbolString(st, body)
	case "args":
		return decodeNodeList(st, body, &c.Args)
	case "item":
		c.T, _, err = DecodeType(st, body)
	case "nullable":
		c.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (a *AggregateCall) setfield(name string, st *wire.Symtab, body []byte) error {
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
	case "item":
		a.T, _, err = DecodeType(st, body)
	case "nullable":
		a.Nul, _, err = wire.ReadBool(body)
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

func (n *NamedStruct) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "args":
		return decodeNodeList(st, body, &n.Args)
	case "item":
		n.T, _, err = DecodeType(st, body)
	default:
		return errUnexpectedField
	}
	return err
}

func (f *IndexedField) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		f.Inner, _, err = Decode(st, body)
	case "key":
		f.Key, _, err = DecodeValue(st, body)
	case "item":
		f.T, _, err = DecodeType(st, body)
	case "nullable":
		f.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (m *MapLookup) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "inner":
		m.Inner, _, err = Decode(st, body)
	case "key":
		m.Key, _, err = DecodeValue(st, body)
	case "item":
		m.T, _, err = DecodeType(st, body)
	case "nullable":
		m.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}

func (r RowNumber) setfield(name string, st *wire.Symtab, body []byte) error {
	return errUnexpectedField
}

func (c *OpaqueCall) setfield(name string, st *wire.Symtab, body []byte) error {
	var err error
	switch name {
	case "blob":
		var p []byte
		p, _, err = wire.ReadBlob(body)
		c.Blob = append([]byte(nil), p...)
	case "params":
		return decodeNodeList(st, body, &c.Params)
	case "item":
		c.T, _, err = DecodeType(st, body)
	case "nullable":
		c.Nul, _, err = wire.ReadBool(body)
	default:
		return errUnexpectedField
	}
	return err
}
