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
	"fmt"
	"strconv"
	"strings"

	"github.com/kitedata/kite/wire"

	"golang.org/x/exp/slices"
)

// Value is an IR scalar value. The active variant
// is determined by T.Kind; the distinguished null
// state is representable for every variant and
// always carries the value's type descriptor so
// the native engine can allocate a correctly-typed
// null.
type Value struct {
	// T is the type descriptor of the value;
	// it is always non-nil.
	T *Type

	// IsNull marks the typed null state.
	IsNull bool

	// Int holds Int8..Int64, Date (days),
	// Timestamp (microseconds), and the
	// scaled Decimal magnitude.
	Int int64
	// Float holds Float32 and Float64.
	Float float64
	// Str holds String.
	Str string
	// Bytes holds binary data.
	Bytes []byte
	// Bool holds Bool.
	Bool bool
	// List holds the ordered elements of a
	// List value; the element type is T.Elem.
	List []Value
}

// NullValue constructs the typed null of t.
func NullValue(t *Type) Value {
	return Value{T: t, IsNull: true}
}

// BoolValue constructs a boolean value.
func BoolValue(b bool) Value {
	return Value{T: BoolT, Bool: b}
}

// IntValue constructs an integer-backed value of t;
// t must have an integer-backed kind.
func IntValue(t *Type, v int64) Value {
	return Value{T: t, Int: v}
}

// FloatValue constructs a floating-point value of t.
func FloatValue(t *Type, v float64) Value {
	return Value{T: t, Float: v}
}

// StringValue constructs a string value.
func StringValue(s string) Value {
	return Value{T: StringT, Str: s}
}

// BytesValue constructs a binary value.
func BytesValue(p []byte) Value {
	return Value{T: BinaryT, Bytes: p}
}

// ListValue constructs a list value with the given
// element type. An empty list is valid and carries
// only the element type.
func ListValue(elem *Type, items []Value) Value {
	return Value{T: ListOf(elem), List: items}
}

// Equals returns whether v and o are structurally
// identical values of identical type.
func (v *Value) Equals(o *Value) bool {
	if !v.T.Equals(o.T) || v.IsNull != o.IsNull {
		return false
	}
	if v.IsNull {
		return true
	}
	switch v.T.Kind {
	case Bool:
		return v.Bool == o.Bool
	case Int8, Int16, Int32, Int64, Date, Timestamp, Decimal:
		return v.Int == o.Int
	case Float32, Float64:
		return v.Float == o.Float
	case String:
		return v.Str == o.Str
	case Bytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case List:
		return slices.EqualFunc(v.List, o.List, func(a, b Value) bool {
			return a.Equals(&b)
		})
	default:
		return v.T.Kind == Null
	}
}

func (v *Value) text(dst *strings.Builder) {
	if v.IsNull {
		dst.WriteString("null::")
		v.T.text(dst)
		return
	}
	switch v.T.Kind {
	case Bool:
		fmt.Fprintf(dst, "%v", v.Bool)
	case Int8, Int16, Int32, Int64, Date, Timestamp:
		dst.WriteString(strconv.FormatInt(v.Int, 10))
	case Decimal:
		fmt.Fprintf(dst, "%d::%s", v.Int, v.T)
	case Float32, Float64:
		dst.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case String:
		dst.WriteString(strconv.Quote(v.Str))
	case Bytes:
		fmt.Fprintf(dst, "%#x", v.Bytes)
	case List:
		dst.WriteByte('[')
		for i := range v.List {
			if i > 0 {
				dst.WriteString(", ")
			}
			v.List[i].text(dst)
		}
		dst.WriteByte(']')
	default:
		dst.WriteString("null")
	}
}

func (v *Value) String() string {
	var dst strings.Builder
	v.text(&dst)
	return dst.String()
}

// Encode writes the wire form of v to dst.
func (v *Value) Encode(dst *wire.Buffer, st *wire.Symtab) {
	dst.BeginStruct()
	dst.BeginField(st.Intern("item"))
	v.T.Encode(dst, st)
	if v.IsNull {
		dst.BeginField(st.Intern("null"))
		dst.WriteBool(true)
		dst.EndStruct()
		return
	}
	dst.BeginField(st.Intern("value"))
	switch v.T.Kind {
	case Null:
		dst.WriteNull()
	case Bool:
		dst.WriteBool(v.Bool)
	case Int8, Int16, Int32, Int64, Date, Timestamp, Decimal:
		dst.WriteInt(v.Int)
	case Float32:
		dst.WriteFloat32(float32(v.Float))
	case Float64:
		dst.WriteFloat64(v.Float)
	case String:
		dst.WriteString(v.Str)
	case Bytes:
		dst.WriteBlob(v.Bytes)
	case List:
		dst.BeginList()
		for i := range v.List {
			v.List[i].Encode(dst, st)
		}
		dst.EndList()
	default:
		// map and struct values do not occur as
		// literal scalars; encode their null state
		dst.WriteNull()
	}
	dst.EndStruct()
}

// DecodeValue decodes a scalar value from the start
// of buf and returns the remaining bytes.
func DecodeValue(st *wire.Symtab, buf []byte) (Value, []byte, error) {
	var v Value
	var raw []byte
	err := wire.UnpackStruct(st, buf, func(name string, field []byte) error {
		var err error
		switch name {
		case "item":
			v.T, _, err = DecodeType(st, field)
		case "null":
			v.IsNull, _, err = wire.ReadBool(field)
		case "value":
			raw = field
		default:
			err = fmt.Errorf("ir: unexpected value field %q", name)
		}
		return err
	})
	if err != nil {
		return Value{}, nil, err
	}
	if v.T == nil {
		return Value{}, nil, fmt.Errorf("ir: value missing type descriptor")
	}
	if !v.IsNull {
		if raw == nil {
			return Value{}, nil, fmt.Errorf("ir: non-null value of type %s missing contents", v.T)
		}
		if err := v.setraw(st, raw); err != nil {
			return Value{}, nil, err
		}
	}
	size := wire.SizeOf(buf)
	return v, buf[size:], nil
}

func (v *Value) setraw(st *wire.Symtab, raw []byte) error {
	var err error
	switch v.T.Kind {
	case Null:
		v.IsNull = true
	case Bool:
		v.Bool, _, err = wire.ReadBool(raw)
	case Int8, Int16, Int32, Int64, Date, Timestamp, Decimal:
		v.Int, _, err = wire.ReadInt(raw)
	case Float32, Float64:
		v.Float, _, err = wire.ReadFloat64(raw)
	case String:
		v.Str, _, err = wire.ReadString(raw)
	case Bytes:
		var p []byte
		p, _, err = wire.ReadBlob(raw)
		v.Bytes = append([]byte(nil), p...)
	case List:
		return wire.UnpackList(raw, func(item []byte) error {
			elem, _, err := DecodeValue(st, item)
			if err != nil {
				return err
			}
			v.List = append(v.List, elem)
			return nil
		})
	default:
		err = fmt.Errorf("ir: cannot decode scalar of type %s", v.T)
	}
	return err
}
