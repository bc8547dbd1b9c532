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

// Package ir defines the wire-level intermediate
// representation consumed by the native execution
// engine: type descriptors, scalar values, and the
// expression node union, together with their
// serialized forms.
package ir

import (
	"fmt"
	"strings"

	"github.com/kitedata/kite/wire"

	"golang.org/x/exp/slices"
)

// Kind enumerates the primitive and composite
// type kinds representable in the IR.
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
	Bytes
	// Date is a 32-bit day count since the epoch.
	Date
	// Timestamp is a 64-bit microsecond count
	// since the epoch, timezone-agnostic.
	Timestamp
	Decimal
	List
	Map
	Struct
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
	case Bytes:
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
	default:
		return "invalid"
	}
}

// Numeric returns whether k is an integer,
// floating-point, or decimal kind.
func (k Kind) Numeric() bool {
	return k >= Int8 && k <= Float64 || k == Decimal
}

// Primitive returns whether k is a
// non-composite kind.
func (k Kind) Primitive() bool {
	return k >= Null && k <= Decimal
}

// Field is one named member of a struct type.
// Field order is significant and must match
// the host schema's column order.
type Field struct {
	Name     string
	Type     *Type
	Nullable bool
}

// Type is an IR type descriptor.
//
// Types are immutable once constructed; the
// predeclared primitive descriptors (BoolT,
// Int64T, ...) may be shared freely.
type Type struct {
	Kind Kind

	// Precision and Scale are set for Decimal.
	Precision, Scale int32

	// Elem is the element type of a List.
	Elem *Type

	// Key and Value describe a Map;
	// ValueNullable indicates whether map
	// values may be null.
	Key, Value    *Type
	ValueNullable bool

	// Fields are the ordered members of a Struct.
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
	BinaryT    = &Type{Kind: Bytes}
	DateT      = &Type{Kind: Date}
	TimestampT = &Type{Kind: Timestamp}
)

// DecimalOf constructs a decimal type descriptor.
// Precision is clamped to at least 1.
func DecimalOf(precision, scale int32) *Type {
	if precision < 1 {
		precision = 1
	}
	return &Type{Kind: Decimal, Precision: precision, Scale: scale}
}

// ListOf constructs a list type descriptor.
func ListOf(elem *Type) *Type {
	return &Type{Kind: List, Elem: elem}
}

// MapOf constructs a map type descriptor.
func MapOf(key, value *Type, valueNullable bool) *Type {
	return &Type{Kind: Map, Key: key, Value: value, ValueNullable: valueNullable}
}

// StructOf constructs a struct type descriptor.
func StructOf(fields []Field) *Type {
	return &Type{Kind: Struct, Fields: fields}
}

// Equals returns whether t and o describe
// structurally identical types.
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

func (t *Type) text(dst *strings.Builder) {
	switch t.Kind {
	case Decimal:
		fmt.Fprintf(dst, "decimal(%d,%d)", t.Precision, t.Scale)
	case List:
		dst.WriteString("list<")
		t.Elem.text(dst)
		dst.WriteByte('>')
	case Map:
		dst.WriteString("map<")
		t.Key.text(dst)
		dst.WriteString(", ")
		t.Value.text(dst)
		dst.WriteByte('>')
	case Struct:
		dst.WriteString("struct<")
		for i := range t.Fields {
			if i > 0 {
				dst.WriteString(", ")
			}
			dst.WriteString(t.Fields[i].Name)
			dst.WriteString(": ")
			t.Fields[i].Type.text(dst)
		}
		dst.WriteByte('>')
	default:
		dst.WriteString(t.Kind.String())
	}
}

func (t *Type) String() string {
	var dst strings.Builder
	t.text(&dst)
	return dst.String()
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

// DecodeType decodes a type descriptor from the
// start of buf and returns the remaining bytes.
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
						err = fmt.Errorf("ir: unexpected struct field member %q", name)
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
			err = fmt.Errorf("ir: unexpected type field %q", name)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if t.Kind == Invalid || t.Kind > Struct {
		return nil, nil, fmt.Errorf("ir: bad type kind %d", t.Kind)
	}
	size := wire.SizeOf(buf)
	return t, buf[size:], nil
}
