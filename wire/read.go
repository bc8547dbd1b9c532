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

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// TypeError is the error returned from read operations
// when the encoded object does not have the requested type.
type TypeError struct {
	Wanted, Found Type
	Func          string
}

func (t *TypeError) Error() string {
	return fmt.Sprintf("wire.%s: found type %s, wanted type %s", t.Func, t.Found, t.Wanted)
}

func bad(got, want Type, fn string) error {
	return &TypeError{Wanted: want, Found: got, Func: fn}
}

var errTruncated = errors.New("wire: truncated object")

// TypeOf returns the type of the next object in the buffer.
func TypeOf(msg []byte) Type {
	if len(msg) == 0 {
		return InvalidType
	}
	return Type(msg[0] >> 4)
}

// IsNull returns whether the next object
// in the buffer is an encoded null.
func IsNull(msg []byte) bool {
	return len(msg) > 0 && msg[0] == byte(NullType<<4)|0x0f
}

// SizeOf returns the size of the next wire object,
// including its descriptor bytes, or -1 if msg does
// not begin with a complete object.
func SizeOf(msg []byte) int {
	if len(msg) == 0 {
		return -1
	}
	if Type(msg[0]>>4) == BoolType {
		// bools carry their value in the length nibble
		return 1
	}
	lo := msg[0] & 0x0f
	switch lo {
	case 0x0f:
		return 1
	case 0x0e:
		out := 0
		rest := msg[1:]
		if len(rest) > 8 {
			// guard against overflow
			rest = rest[:8]
		}
		for i := range rest {
			out <<= 7
			out += int(rest[i] & 0x7f)
			if rest[i]&0x80 != 0 {
				return out + i + 2
			}
		}
		return -1 // unterminated size
	default:
		return int(lo) + 1
	}
}

// Contents parses the descriptor at the beginning of
// msg and returns the non-descriptor bytes of the object,
// plus the remaining bytes in the buffer. The returned
// contents are nil if the encoded object does not fit
// into msg.
func Contents(msg []byte) ([]byte, []byte) {
	if len(msg) == 0 {
		return nil, msg
	}
	lo := msg[0] & 0x0f
	if lo == 0x0f || Type(msg[0]>>4) == BoolType {
		return msg[:0], msg[1:]
	}
	if lo < 0x0e {
		if len(msg) < int(lo)+1 {
			return nil, msg
		}
		return msg[1 : 1+lo], msg[1+lo:]
	}
	rest := msg[1:]
	out := 0
	for i := range rest {
		out <<= 7
		out += int(rest[i] & 0x7f)
		if rest[i]&0x80 != 0 {
			if out < 0 || len(rest) < i+out+1 {
				return nil, msg
			}
			return rest[i+1 : i+out+1], rest[i+out+1:]
		}
	}
	return nil, msg
}

func readmag(body []byte) uint64 {
	mag := uint64(0)
	for _, b := range body {
		mag = mag<<8 | uint64(b)
	}
	return mag
}

// ReadUint reads an unsigned integer from msg
// and returns the value plus the subsequent bytes.
func ReadUint(msg []byte) (uint64, []byte, error) {
	if t := TypeOf(msg); t != UintType {
		return 0, nil, bad(t, UintType, "ReadUint")
	}
	body, rest := Contents(msg)
	if body == nil {
		return 0, nil, errTruncated
	}
	return readmag(body), rest, nil
}

// ReadInt reads a signed integer from msg
// and returns the value plus the subsequent bytes.
func ReadInt(msg []byte) (int64, []byte, error) {
	t := TypeOf(msg)
	if t != IntType && t != UintType {
		return 0, nil, bad(t, IntType, "ReadInt")
	}
	body, rest := Contents(msg)
	if body == nil {
		return 0, nil, errTruncated
	}
	mag := readmag(body)
	if t == IntType {
		return -int64(mag), rest, nil
	}
	return int64(mag), rest, nil
}

// ReadSymbol reads an interned symbol from msg.
func ReadSymbol(msg []byte) (Symbol, []byte, error) {
	if t := TypeOf(msg); t != SymbolType {
		return 0, nil, bad(t, SymbolType, "ReadSymbol")
	}
	body, rest := Contents(msg)
	if body == nil {
		return 0, nil, errTruncated
	}
	return Symbol(readmag(body)), rest, nil
}

// ReadBool reads a boolean value from msg.
func ReadBool(msg []byte) (bool, []byte, error) {
	if t := TypeOf(msg); t != BoolType {
		return false, nil, bad(t, BoolType, "ReadBool")
	}
	switch msg[0] & 0x0f {
	case 0:
		return false, msg[1:], nil
	case 1:
		return true, msg[1:], nil
	default:
		return false, nil, fmt.Errorf("wire.ReadBool: bad descriptor %#x", msg[0])
	}
}

// ReadFloat64 reads a floating-point value from msg.
// Values written with WriteFloat32 are widened.
func ReadFloat64(msg []byte) (float64, []byte, error) {
	if t := TypeOf(msg); t != FloatType {
		return 0, nil, bad(t, FloatType, "ReadFloat64")
	}
	body, rest := Contents(msg)
	if body == nil {
		return 0, nil, errTruncated
	}
	switch len(body) {
	case 0:
		return 0, rest, nil
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(body))), rest, nil
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(body)), rest, nil
	default:
		return 0, nil, fmt.Errorf("wire.ReadFloat64: bad float width %d", len(body))
	}
}

// ReadString reads a string from msg
// and returns the string plus the subsequent bytes.
func ReadString(msg []byte) (string, []byte, error) {
	if t := TypeOf(msg); t != StringType {
		return "", nil, bad(t, StringType, "ReadString")
	}
	body, rest := Contents(msg)
	if body == nil {
		return "", nil, errTruncated
	}
	return string(body), rest, nil
}

// ReadBlob reads a blob from msg; the returned
// slice aliases msg.
func ReadBlob(msg []byte) ([]byte, []byte, error) {
	if t := TypeOf(msg); t != BlobType {
		return nil, nil, bad(t, BlobType, "ReadBlob")
	}
	body, rest := Contents(msg)
	if body == nil {
		return nil, nil, errTruncated
	}
	return body, rest, nil
}

// readuv reads a raw uvarint (a struct field label).
func readuv(msg []byte) (uint, []byte, error) {
	out := uint(0)
	for i := range msg {
		out = out<<7 | uint(msg[i]&0x7f)
		if msg[i]&0x80 != 0 {
			return out, msg[i+1:], nil
		}
		if i == 8 {
			return 0, nil, fmt.Errorf("wire: uvarint too wide")
		}
	}
	return 0, nil, errTruncated
}

// UnpackList iterates the elements of the list
// at the start of msg, invoking fn for each
// element body.
func UnpackList(msg []byte, fn func(item []byte) error) error {
	if t := TypeOf(msg); t != ListType {
		return bad(t, ListType, "UnpackList")
	}
	body, _ := Contents(msg)
	if body == nil {
		return errTruncated
	}
	for len(body) > 0 {
		size := SizeOf(body)
		if size <= 0 || size > len(body) {
			return errTruncated
		}
		if err := fn(body[:size]); err != nil {
			return err
		}
		body = body[size:]
	}
	return nil
}

// UnpackStruct iterates the fields of the structure
// at the start of msg, resolving each field label
// against st and invoking fn with the label and the
// encoded field body.
func UnpackStruct(st *Symtab, msg []byte, fn func(name string, field []byte) error) error {
	if t := TypeOf(msg); t != StructType {
		return bad(t, StructType, "UnpackStruct")
	}
	body, _ := Contents(msg)
	if body == nil {
		return errTruncated
	}
	for len(body) > 0 {
		sym, rest, err := readuv(body)
		if err != nil {
			return err
		}
		name, ok := st.Lookup(Symbol(sym))
		if !ok {
			return fmt.Errorf("wire: symbol %d not in symbol table", sym)
		}
		size := SizeOf(rest)
		if size <= 0 || size > len(rest) {
			return errTruncated
		}
		if err := fn(name, rest[:size]); err != nil {
			return err
		}
		body = rest[size:]
	}
	return nil
}

// UnpackTyped unpacks a structure whose first field
// is the distinguished "type" field. The value of the
// type field is passed to settype; the remaining fields
// are passed to setfield in encounter order.
func UnpackTyped(st *Symtab, msg []byte, settype func(typ string) error, setfield func(name string, field []byte) error) error {
	seen := false
	err := UnpackStruct(st, msg, func(name string, field []byte) error {
		if !seen {
			if name != "type" {
				return fmt.Errorf("wire: expected leading \"type\" field, found %q", name)
			}
			sym, _, err := ReadSymbol(field)
			if err != nil {
				return err
			}
			typ, ok := st.Lookup(sym)
			if !ok {
				return fmt.Errorf("wire: type symbol %d not in symbol table", sym)
			}
			seen = true
			return settype(typ)
		}
		return setfield(name, field)
	})
	if err != nil {
		return err
	}
	if !seen {
		return fmt.Errorf("wire: field \"type\" not found")
	}
	return nil
}
