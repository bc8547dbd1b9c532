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

// Package wire implements the TLV serialization format
// shared by the IR expression schema and fallback payloads.
//
// Objects are encoded as a one-byte descriptor holding a
// type nibble and a length nibble, followed by the object
// contents; lengths of 14 bytes or more spill into a
// trailing uvarint. Structure field labels are interned
// symbols (see Symtab).
package wire

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"
)

// Type is the wire-level tag of an encoded object.
type Type uint8

const (
	NullType   Type = 0x0
	BoolType   Type = 0x1
	UintType   Type = 0x2
	IntType    Type = 0x3
	FloatType  Type = 0x4
	SymbolType Type = 0x7
	StringType Type = 0x8
	BlobType   Type = 0xa
	ListType   Type = 0xb
	StructType Type = 0xd

	// InvalidType is returned by TypeOf
	// for empty or malformed input.
	InvalidType Type = 0xf
)

func (t Type) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case UintType:
		return "uint"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case SymbolType:
		return "symbol"
	case StringType:
		return "string"
	case BlobType:
		return "blob"
	case ListType:
		return "list"
	case StructType:
		return "struct"
	default:
		return "invalid"
	}
}

// Composite returns whether objects of this
// type contain other objects.
func (t Type) Composite() bool {
	return t == ListType || t == StructType
}

type segkind int

const (
	segstruct segkind = iota
	seglist
)

type segment struct {
	off, width int
	kind       segkind
}

// Buffer buffers encoded wire objects.
//
// The zero Buffer is ready to use. The contents
// can be inspected directly with Buffer.Bytes or
// written to an io.Writer with Buffer.WriteTo.
type Buffer struct {
	buf  []byte
	segs []segment
}

// Set sets the buffer used by 'b' and resets
// its segment state. Subsequent Write* calls
// append to the given buffer.
func (b *Buffer) Set(p []byte) {
	b.Reset()
	b.buf = p
}

// Bytes returns the current contents of the buffer.
func (b *Buffer) Bytes() []byte { return b.buf }

// Size returns the number of bytes in the buffer.
func (b *Buffer) Size() int { return len(b.buf) }

// Reset resets a buffer to its initial state.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.segs = b.segs[:0]
}

// Ok returns false if there are any open calls
// to BeginStruct or BeginList that have not been
// paired with EndStruct or EndList, respectively.
func (b *Buffer) Ok() bool { return len(b.segs) == 0 }

// WriteTo implements io.WriterTo
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	i, err := w.Write(b.buf)
	return int64(i), err
}

// uvsize returns the encoded size of value as a uvarint
func uvsize(value uint) int {
	// oring in 1 does not change the result except
	// for the number 0, where we need bits.Len
	// to yield 1
	return (bits.Len(value|1) + 6) / 7
}

// get the next 'n' bytes at the end of the buffer
func (b *Buffer) grow(n int) []byte {
	off := len(b.buf)
	if cap(b.buf)-off >= n {
		b.buf = b.buf[:off+n]
	} else {
		nb := make([]byte, off+n, n+(2*off))
		copy(nb, b.buf)
		b.buf = nb
	}
	return b.buf[off:]
}

// write an integer as a uvarint
func (b *Buffer) putuv(s uint) {
	dst := b.grow(uvsize(s))
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(s & 0x7f)
		s >>= 7
	}
	dst[len(dst)-1] |= 0x80
}

// term patches the descriptor of a completed segment
// once its final size is known, shifting the contents
// if the guessed descriptor width was wrong.
func (b *Buffer) term(seg *segment) {
	size := len(b.buf) - (seg.off + seg.width)
	if size < 14 {
		if seg.width > 1 {
			copy(b.buf[seg.off+1:], b.buf[seg.off+seg.width:])
			b.buf = b.buf[:seg.off+1+size]
		}
		b.buf[seg.off] = byte(b.buf[seg.off]&0xf0) | byte(size)
		return
	}
	needwidth := uvsize(uint(size)) + 1
	if seg.width != needwidth {
		for s := seg.width; s < needwidth; s++ {
			b.buf = append(b.buf, 0)
		}
		n := copy(b.buf[seg.off+needwidth:], b.buf[seg.off+seg.width:])
		seg.width = needwidth
		b.buf = b.buf[:seg.off+seg.width+n]
	}
	b.buf[seg.off] = byte(b.buf[seg.off]&0xf0) | 0xe
	for i := seg.width - 1; i > 0; i-- {
		b.buf[seg.off+i] = byte(size & 0x7f)
		size >>= 7
	}
	b.buf[seg.off+seg.width-1] |= 0x80
}

// BeginStruct begins a structure. Fields of the
// structure should be written with paired calls to
// BeginField and one of the Write* methods, followed
// by Buffer.EndStruct.
func (b *Buffer) BeginStruct() {
	b.segs = append(b.segs, segment{
		off:   len(b.buf),
		width: 2,
		kind:  segstruct,
	})
	b.buf = append(b.buf, byte(StructType<<4)|0xe, 0)
}

// EndStruct ends a structure.
//
// EndStruct panics if it is not paired with a
// corresponding BeginStruct call.
func (b *Buffer) EndStruct() {
	s := &b.segs[len(b.segs)-1]
	if s.kind != segstruct {
		panic("EndStruct() called when current segment is not a struct")
	}
	b.segs = b.segs[:len(b.segs)-1]
	b.term(s)
}

// BeginList begins a list object. Subsequent calls
// to the Buffer.Write* methods write list elements
// until Buffer.EndList is called.
func (b *Buffer) BeginList() {
	b.segs = append(b.segs, segment{
		off:   len(b.buf),
		width: 1, // assume the list is short
		kind:  seglist,
	})
	b.buf = append(b.buf, byte(ListType<<4))
}

// EndList ends a list object.
//
// EndList panics if it is not paired with a
// corresponding BeginList call.
func (b *Buffer) EndList() {
	s := &b.segs[len(b.segs)-1]
	if s.kind != seglist {
		panic("EndList() called when current segment is not a list")
	}
	b.segs = b.segs[:len(b.segs)-1]
	b.term(s)
}

// BeginField begins a field of a structure.
func (b *Buffer) BeginField(sym Symbol) {
	b.putuv(uint(sym))
}

// WriteNull writes a NULL value into the buffer.
func (b *Buffer) WriteNull() {
	b.buf = append(b.buf, byte(NullType<<4)|0x0f)
}

// WriteBool writes a bool into the buffer.
func (b *Buffer) WriteBool(n bool) {
	bt := byte(BoolType << 4)
	if n {
		bt++
	}
	b.buf = append(b.buf, bt)
}

func (b *Buffer) writeint(mag uint64, pre byte) {
	size := (bits.Len64(mag) + 7) >> 3
	b.buf = append(b.buf, pre|byte(size))
	mag = bits.ReverseBytes64(mag)
	mag >>= (8 - size) * 8
	for size != 0 {
		b.buf = append(b.buf, byte(mag))
		mag >>= 8
		size--
	}
}

// WriteInt writes a signed integer to the buffer.
func (b *Buffer) WriteInt(i int64) {
	mag := uint64(i)
	pre := byte(UintType << 4)
	if i < 0 {
		mag = -mag
		pre = byte(IntType << 4)
	}
	b.writeint(mag, pre)
}

// WriteUint writes an unsigned integer to the buffer.
func (b *Buffer) WriteUint(u uint64) {
	b.writeint(u, byte(UintType<<4))
}

// WriteSymbol writes an interned symbol to the buffer.
func (b *Buffer) WriteSymbol(s Symbol) {
	b.writeint(uint64(s), byte(SymbolType<<4))
}

// WriteFloat64 writes a float64 to the buffer.
func (b *Buffer) WriteFloat64(f float64) {
	if f == 0.0 && !math.Signbit(f) {
		b.buf = append(b.buf, byte(FloatType<<4))
		return
	}
	dst := b.grow(9)
	dst[0] = byte(FloatType<<4) | 8
	binary.BigEndian.PutUint64(dst[1:], math.Float64bits(f))
}

// WriteFloat32 writes a float32 to the buffer.
func (b *Buffer) WriteFloat32(f float32) {
	if f == 0.0 && !math.Signbit(float64(f)) {
		b.buf = append(b.buf, byte(FloatType<<4))
		return
	}
	dst := b.grow(5)
	dst[0] = byte(FloatType<<4) | 4
	binary.BigEndian.PutUint32(dst[1:], math.Float32bits(f))
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) {
	if len(s) < 14 {
		b.buf = append(b.buf, byte(StringType<<4)|byte(len(s)))
	} else {
		b.buf = append(b.buf, byte(StringType<<4)|0xe)
		b.putuv(uint(len(s)))
	}
	copy(b.grow(len(s)), s)
}

// WriteBlob writes a []byte as a 'blob' to the buffer.
func (b *Buffer) WriteBlob(p []byte) {
	if len(p) < 14 {
		b.buf = append(b.buf, byte(BlobType<<4)|byte(len(p)))
	} else {
		b.buf = append(b.buf, byte(BlobType<<4)|0xe)
		b.putuv(uint(len(p)))
	}
	copy(b.grow(len(p)), p)
}

// UnsafeAppend appends pre-encoded data to the buffer.
// The caller is responsible for ensuring that buf is a
// sequence of valid wire objects.
func (b *Buffer) UnsafeAppend(buf []byte) {
	copy(b.grow(len(buf)), buf)
}
