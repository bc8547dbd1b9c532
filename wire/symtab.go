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

// Symbol is an interned string reference.
// Symbol zero is reserved.
type Symbol uint32

// Symtab is a symbol table mapping interned
// strings to symbols. The zero Symtab is
// ready to use.
type Symtab struct {
	interned []string
	toabs    map[string]Symbol
}

// Reset restores the symbol table
// to its initial (empty) state.
func (s *Symtab) Reset() {
	s.interned = s.interned[:0]
	for k := range s.toabs {
		delete(s.toabs, k)
	}
}

// MaxID returns the largest symbol
// value interned so far.
func (s *Symtab) MaxID() int { return len(s.interned) }

// Intern interns the given string if it is
// not already interned and returns its symbol.
func (s *Symtab) Intern(x string) Symbol {
	if sym, ok := s.toabs[x]; ok {
		return sym
	}
	if s.toabs == nil {
		s.toabs = make(map[string]Symbol)
	}
	s.interned = append(s.interned, x)
	sym := Symbol(len(s.interned))
	s.toabs[x] = sym
	return sym
}

// Lookup resolves a symbol to its interned string.
func (s *Symtab) Lookup(x Symbol) (string, bool) {
	if x == 0 || int(x) > len(s.interned) {
		return "", false
	}
	return s.interned[x-1], true
}

// Marshal writes the symbol table to dst as a
// list of strings. A table written with Marshal
// can be restored with Unmarshal.
func (s *Symtab) Marshal(dst *Buffer) {
	dst.BeginList()
	for i := range s.interned {
		dst.WriteString(s.interned[i])
	}
	dst.EndList()
}

// Unmarshal reads a symbol table produced by
// Marshal from the start of src and returns
// the remaining bytes.
func (s *Symtab) Unmarshal(src []byte) ([]byte, error) {
	s.Reset()
	err := UnpackList(src, func(item []byte) error {
		str, _, err := ReadString(item)
		if err != nil {
			return err
		}
		s.Intern(str)
		return nil
	})
	if err != nil {
		return nil, err
	}
	size := SizeOf(src)
	if size < 0 || size > len(src) {
		return nil, errTruncated
	}
	return src[size:], nil
}
