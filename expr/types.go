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

// Package expr defines the host query engine's typed
// expression tree: the input to lowering. The node
// union is closed; host node kinds with no dedicated
// representation are modeled as UDF calls and handled
// by the generic fallback path.
//
// Nodes also carry a wire serialization, used to ship
// unconvertible fragments back to the host runtime as
// opaque closures.
package expr

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/kitedata/kite/wire"

	"golang.org/x/exp/slices"
)

// Kind enumerates the host type kinds.
type Kind uint8

const (
	Invalid Kind = iota
	Null
	Bool
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	String
	Binary
	Date
	Timestamp
	Decimal
	List
	Map
	Struct

	// Unresolved is a placeholder type that has
	// not been resolved by the host analyzer.
	// It has no IR mapping.
	Unresolved
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Binary:
		return "binary"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	case Decimal:
		return "decimal"
	case List:
		return "list"
	case Map:
		return "map"
	case Struct:
		return "struct"
	case Unresolved:
		return "unresolved"
	default:
		return "invalid"
	}
}

// Numeric returns whether k is an integer,
// floating-point, or decimal kind.
func (k Kind) Numeric() bool {
	return k >= Int8 && k <= Float64 || k == Decimal
}

// Field is one named member of a host struct type.
type Field struct {
	Name     string
	Type     *Type
	Nullable bool
}

// Type is a host type. The shape mirrors the host
// engine's data types one-to-one; mapping to IR
// descriptors is the lowering engine's job.
type Type struct {
	Kind Kind

	Precision, Scale int32

	Elem *Type

	Key, Value    *Type
	ValueNullable bool

	Fields []Field
}

var (
	NullT      = &Type{Kind: Null}
	BoolT      = &Type{Kind: Bool}
	Int8T      = &Type{Kind: Int8}
	Int16T     = &Type{Kind: Int16}
	Int32T     = &Type{Kind: Int32}
	Int64T     = &Type{Kind: Int64}
	Float32T   = &Type{Kind: Float32}
	Float64T   = &Type{Kind: Float64}
	StringT    = &Type{Kind: String}
	BinaryT    = &Type{Kind: Binary}
	DateT      = &Type{Kind: Date}
	TimestampT = &Type{Kind: Timestamp}

	// UnresolvedT is the shared placeholder type.
	UnresolvedT = &Type{Kind: Unresolved}
)

// DecimalOf constructs a host decimal type.
func DecimalOf(precision, scale int32) *Type {
	return &Type{Kind: Decimal, Precision: precision, Scale: scale}
}

// ListOf constructs a host list type.
func ListOf(elem *Type) *Type {
	return &Type{Kind: List, Elem: elem}
}

// MapOf constructs a host map type.
func MapOf(key, value *Type, valueNullable bool) *Type {
	return &Type{Kind: Map, Key: key, Value: value, ValueNullable: valueNullable}
}

// StructOf constructs a host struct type.
func StructOf(fields []Field) *Type {
	return &Type{Kind: Struct, Fields: fields}
}

// Equals returns whether t and o are structurally
// identical host types.
func (t *Type) Equals(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Decimal:
		return t.Precision == o.Precision && t.Scale == o.Scale
	case List:
		return t.Elem.Equals(o.Elem)
	case Map:
		return t.Key.Equals(o.Key) && t.Value.Equals(o.Value) &&
			t.ValueNullable == o.ValueNullable
	case Struct:
		return slices.EqualFunc(t.Fields, o.Fields, func(a, b Field) bool {
			return a.Name == b.Name && a.Nullable == b.Nullable && a.Type.Equals(b.Type)
		})
	default:
		return true
	}
}

func (t *Type) String() string {
	switch t.Kind {
	case Decimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case List:
		return fmt.Sprintf("list<%s>", t.Elem)
	case Map:
		return fmt.Sprintf("map<%s, %s>", t.Key, t.Value)
	case Struct:
		var dst strings.Builder
		dst.WriteString("struct<")
		for i := range t.Fields {
			if i > 0 {
				dst.WriteString(", ")
			}
			dst.WriteString(t.Fields[i].Name)
			dst.WriteString(": ")
			dst.WriteString(t.Fields[i].Type.String())
		}
		dst.WriteByte('>')
		return dst.String()
	default:
		return t.Kind.String()
	}
}

// Encode writes the wire form of t to dst.
func (t *Type) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	dst.BeginField(st.Intern("kind"))
	dst.WriteUint(uint64(t.Kind))
	switch t.Kind {
	case Decimal:
		dst.BeginField(st.Intern("precision"))
		dst.WriteInt(int64(t.Precision))
		dst.BeginField(st.Intern("scale"))
		dst.WriteInt(int64(t.Scale))
	case List:
		dst.BeginField(st.Intern("elem"))
		t.Elem.Encode(dst, st)
	case Map:
		dst.BeginField(st.Intern("key"))
		t.Key.Encode(dst, st)
		dst.BeginField(st.Intern("value"))
		t.Value.Encode(dst, st)
		dst.BeginField(st.Intern("value_nullable"))
		dst.WriteBool(t.ValueNullable)
	case Struct:
		dst.BeginField(st.Intern("fields"))
		dst.BeginList()
		for i := range t.Fields {
			f := &t.Fields[i]
			dst.BeginStruct()
			dst.BeginField(st.Intern("name"))
			dst.WriteString(f.Name)
			dst.BeginField(st.Intern("item"))
			f.Type.Encode(dst, st)
			dst.BeginField(st.Intern("nullable"))
			dst.WriteBool(f.Nullable)
			dst.EndStruct()
		}
		dst.EndList()
	}
	dst.EndStruct()
}

// DecodeType decodes a host type from the start of
// buf and returns the remaining bytes.
func DecodeType(st *wire.Symtab, buf []byte) (*Type, []byte, error) {
	t := &Type{}
	err := wire.UnpackStruct(st, buf, func(name string, field []byte) error {
		var err error
		switch name {
		case "kind":
			var u uint64
			u, _, err = wire.ReadUint(field)
			t.Kind = Kind(u)
		case "precision":
			var i int64
			i, _, err = wire.ReadInt(field)
			t.Precision = int32(i)
		case "scale":
			var i int64
			i, _, err = wire.ReadInt(field)
			t.Scale = int32(i)
		case "elem":
			t.Elem, _, err = DecodeType(st, field)
		case "key":
			t.Key, _, err = DecodeType(st, field)
		case "value":
			t.Value, _, err = DecodeType(st, field)
		case "value_nullable":
			t.ValueNullable, _, err = wire.ReadBool(field)
		case "fields":
			return wire.UnpackList(field, func(item []byte) error {
				var f Field
				err := wire.UnpackStruct(st, item, func(name string, body []byte) error {
					var err error
					switch name {
					case "name":
						f.Name, _, err = wire.ReadString(body)
					case "item":
						f.Type, _, err = DecodeType(st, body)
					case "nullable":
						f.Nullable, _, err = wire.ReadBool(body)
					default:
						err = fmt.Errorf("expr: unexpected field member %q", name)
					}
					return err
				})
				if err != nil {
					return err
				}
				t.Fields = append(t.Fields, f)
				return nil
			})
		default:
			err = fmt.Errorf("expr: unexpected type field %q", name)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if t.Kind == Invalid || t.Kind > Unresolved {
		return nil, nil, fmt.Errorf("expr: bad type kind %d", t.Kind)
	}
	size := wire.SizeOf(buf)
	return t, buf[size:], nil
}

// SchemaField is one column of an output schema.
// ID is the host's unique per-attribute identifier;
// Name is the display name.
type SchemaField struct {
	ID       uint64
	Name     string
	Type     *Type
	Nullable bool
}

// Schema is an ordered sequence of output columns.
type Schema struct {
	Fields []SchemaField
}

// IndexOf returns the position of the column with the
// given attribute ID, or -1 if the schema does not
// contain it.
func (s *Schema) IndexOf(id uint64) int {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// encodeValue writes a host literal value typed by t.
// The representable values are nil, bool, int64,
// float64, string, []byte, *big.Int (decimal unscaled
// magnitudes), and []any for lists.
func encodeValue(dst *wire.Buffer, st *wire.Symtab, v any, t *Type) {
	if v == nil {
		dst.WriteNull()
		return
	}
	switch v := v.(type) {
	case bool:
		dst.WriteBool(v)
	case int64:
		dst.WriteInt(v)
	case float64:
		dst.WriteFloat64(v)
	case string:
		dst.WriteString(v)
	case []byte:
		dst.WriteBlob(v)
	case *big.Int:
		dst.WriteString(v.String())
	case []any:
		dst.BeginList()
		for i := range v {
			encodeValue(dst, st, v[i], t.Elem)
		}
		dst.EndList()
	default:
		panic(fmt.Sprintf("expr: cannot encode literal %T", v))
	}
}

// decodeValue is the inverse of encodeValue.
func decodeValue(st *wire.Symtab, body []byte, t *Type) (any, error) {
	if wire.IsNull(body) {
		return nil, nil
	}
	switch wire.TypeOf(body) {
	case wire.BoolType:
		v, _, err := wire.ReadBool(body)
		return v, err
	case wire.UintType, wire.IntType:
		v, _, err := wire.ReadInt(body)
		return v, err
	case wire.FloatType:
		v, _, err := wire.ReadFloat64(body)
		return v, err
	case wire.StringType:
		s, _, err := wire.ReadString(body)
		if err != nil {
			return nil, err
		}
		if t != nil && t.Kind == Decimal {
			m, ok := new(big.Int).SetString(s, 10)
			if !ok {
				return nil, fmt.Errorf("expr: bad decimal magnitude %q", s)
			}
			return m, nil
		}
		return s, nil
	case wire.BlobType:
		p, _, err := wire.ReadBlob(body)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), p...), nil
	case wire.ListType:
		var elem *Type
		if t != nil {
			elem = t.Elem
		}
		var out []any
		err := wire.UnpackList(body, func(item []byte) error {
			v, err := decodeValue(st, item, elem)
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		})
		if out == nil {
			out = []any{}
		}
		return out, err
	default:
		return nil, fmt.Errorf("expr: cannot decode literal of wire type %s", wire.TypeOf(body))
	}
}
