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
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestIntRoundtrip(t *testing.T) {
	ints := []int64{
		0, 1, -1, 13, -13, 255, -255, 256,
		1 << 16, -(1 << 16), 1 << 31, -(1 << 31),
		math.MaxInt64, math.MinInt64 + 1,
	}
	var b Buffer
	for _, want := range ints {
		b.Reset()
		b.WriteInt(want)
		got, rest, err := ReadInt(b.Bytes())
		if err != nil {
			t.Fatalf("ReadInt(%d): %s", want, err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
		if len(rest) != 0 {
			t.Errorf("%d: %d trailing bytes", want, len(rest))
		}
	}
}

func TestUintRoundtrip(t *testing.T) {
	uints := []uint64{0, 1, 127, 128, 1 << 20, math.MaxUint64}
	var b Buffer
	for _, want := range uints {
		b.Reset()
		b.WriteUint(want)
		got, _, err := ReadUint(b.Bytes())
		if err != nil {
			t.Fatalf("ReadUint(%d): %s", want, err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
}

func TestFloatRoundtrip(t *testing.T) {
	floats := []float64{0, 1.5, -1.5, math.Pi, math.MaxFloat64, math.SmallestNonzeroFloat64}
	var b Buffer
	for _, want := range floats {
		b.Reset()
		b.WriteFloat64(want)
		got, _, err := ReadFloat64(b.Bytes())
		if err != nil {
			t.Fatalf("ReadFloat64(%g): %s", want, err)
		}
		if got != want {
			t.Errorf("got %g, want %g", got, want)
		}
	}
	// float32 widens losslessly
	b.Reset()
	b.WriteFloat32(2.5)
	got, _, err := ReadFloat64(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got != 2.5 {
		t.Errorf("got %g, want 2.5", got)
	}
}

func TestStringRoundtrip(t *testing.T) {
	strs := []string{
		"",
		"x",
		"hello, world",
		"exactly 14 ch.",                  // descriptor spill boundary
		strings.Repeat("long-string-", 5), // length > 14
		strings.Repeat("a", 1<<10),        // multi-byte uvarint length
	}
	var b Buffer
	for _, want := range strs {
		b.Reset()
		b.WriteString(want)
		got, rest, err := ReadString(b.Bytes())
		if err != nil {
			t.Fatalf("ReadString(%q): %s", want, err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
		if len(rest) != 0 {
			t.Errorf("%q: %d trailing bytes", want, len(rest))
		}
	}
}

func TestBlobRoundtrip(t *testing.T) {
	blobs := [][]byte{
		{},
		{0xde, 0xad, 0xbe, 0xef},
		bytes.Repeat([]byte{0x55}, 300),
	}
	var b Buffer
	for _, want := range blobs {
		b.Reset()
		b.WriteBlob(want)
		got, _, err := ReadBlob(b.Bytes())
		if err != nil {
			t.Fatalf("ReadBlob: %s", err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	}
}

func TestBoolNull(t *testing.T) {
	var b Buffer
	b.WriteBool(true)
	b.WriteBool(false)
	b.WriteNull()
	buf := b.Bytes()
	v, buf, err := ReadBool(buf)
	if err != nil || !v {
		t.Fatalf("got %v, %s", v, err)
	}
	v, buf, err = ReadBool(buf)
	if err != nil || v {
		t.Fatalf("got %v, %s", v, err)
	}
	if !IsNull(buf) {
		t.Error("expected null")
	}
}

func TestBoolSizing(t *testing.T) {
	var b Buffer
	b.WriteBool(true)
	if s := SizeOf(b.Bytes()); s != 1 {
		t.Errorf("SizeOf(true) = %d, want 1", s)
	}
	body, rest := Contents(b.Bytes())
	if len(body) != 0 || len(rest) != 0 {
		t.Errorf("Contents(true) = %d body bytes, %d rest", len(body), len(rest))
	}

	// a true value mid-struct must not swallow
	// the next field's label
	var st Symtab
	b.Reset()
	b.BeginStruct()
	b.BeginField(st.Intern("flag"))
	b.WriteBool(true)
	b.BeginField(st.Intern("count"))
	b.WriteInt(7)
	b.EndStruct()

	var flag bool
	var count int64
	err := UnpackStruct(&st, b.Bytes(), func(name string, field []byte) error {
		var err error
		switch name {
		case "flag":
			flag, _, err = ReadBool(field)
		case "count":
			count, _, err = ReadInt(field)
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !flag || count != 7 {
		t.Errorf("got flag=%v count=%d", flag, count)
	}
}

func TestNestedStruct(t *testing.T) {
	var st Symtab
	var b Buffer
	b.BeginStruct()
	b.BeginField(st.Intern("name"))
	b.WriteString("alpha")
	b.BeginField(st.Intern("values"))
	b.BeginList()
	for i := 0; i < 20; i++ {
		b.WriteInt(int64(i * 3))
	}
	b.EndList()
	b.BeginField(st.Intern("inner"))
	b.BeginStruct()
	b.BeginField(st.Intern("flag"))
	b.WriteBool(true)
	b.EndStruct()
	b.EndStruct()
	if !b.Ok() {
		t.Fatal("unbalanced begin/end calls")
	}

	seen := make(map[string]bool)
	err := UnpackStruct(&st, b.Bytes(), func(name string, field []byte) error {
		seen[name] = true
		switch name {
		case "name":
			s, _, err := ReadString(field)
			if err != nil {
				return err
			}
			if s != "alpha" {
				t.Errorf("name: got %q", s)
			}
		case "values":
			i := int64(0)
			err := UnpackList(field, func(item []byte) error {
				v, _, err := ReadInt(item)
				if err != nil {
					return err
				}
				if v != i*3 {
					t.Errorf("item %d: got %d", i, v)
				}
				i++
				return nil
			})
			if err != nil {
				return err
			}
			if i != 20 {
				t.Errorf("got %d items", i)
			}
		case "inner":
			return UnpackStruct(&st, field, func(name string, field []byte) error {
				v, _, err := ReadBool(field)
				if err != nil {
					return err
				}
				if name != "flag" || !v {
					t.Errorf("inner: %s = %v", name, v)
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"name", "values", "inner"} {
		if !seen[name] {
			t.Errorf("field %q not visited", name)
		}
	}
}

func TestUnpackTyped(t *testing.T) {
	var st Symtab
	var b Buffer
	b.BeginStruct()
	b.BeginField(st.Intern("type"))
	b.WriteSymbol(st.Intern("thing"))
	b.BeginField(st.Intern("count"))
	b.WriteInt(7)
	b.EndStruct()

	var typ string
	var count int64
	err := UnpackTyped(&st, b.Bytes(), func(name string) error {
		typ = name
		return nil
	}, func(name string, field []byte) error {
		var err error
		if name == "count" {
			count, _, err = ReadInt(field)
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if typ != "thing" || count != 7 {
		t.Errorf("got type %q count %d", typ, count)
	}
}

func TestSymtabRoundtrip(t *testing.T) {
	var st Symtab
	words := []string{"alpha", "beta", "gamma", "beta"}
	for _, w := range words {
		st.Intern(w)
	}
	if st.MaxID() != 3 {
		t.Fatalf("MaxID = %d", st.MaxID())
	}
	var b Buffer
	st.Marshal(&b)
	b.WriteInt(42) // trailing data survives

	var got Symtab
	rest, err := got.Unmarshal(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []string{"alpha", "beta", "gamma"} {
		want := st.Intern(w)
		if got.Intern(w) != want {
			t.Errorf("symbol for %q changed", w)
		}
	}
	v, _, err := ReadInt(rest)
	if err != nil || v != 42 {
		t.Errorf("trailing: %d, %s", v, err)
	}
}

func TestSizeOfSkips(t *testing.T) {
	var b Buffer
	b.WriteString("first")
	b.WriteInt(-9)
	buf := b.Bytes()
	s, rest, err := ReadString(buf)
	if err != nil || s != "first" {
		t.Fatalf("got %q, %s", s, err)
	}
	if SizeOf(buf) != len(buf)-len(rest) {
		t.Errorf("SizeOf = %d, want %d", SizeOf(buf), len(buf)-len(rest))
	}
}
