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
	"github.com/kitedata/kite/wire"

	"github.com/dchest/siphash"
)

const (
	k0, k1 = 0, 1
)

// Hash returns a structural hash of n: two nodes
// that are Equals hash identically. The hash is
// computed over the canonical wire encoding of n
// under a fresh symbol table, so it is stable
// across processes.
func Hash(n Node) uint64 {
	var buf wire.Buffer
	var st wire.Symtab
	n.Encode(&buf, &st)
	return siphash.Hash(k0, k1, buf.Bytes())
}

// NodeSet is an insertion-ordered set of IR nodes
// deduplicated by structural equality.
//
// The zero NodeSet is ready to use.
type NodeSet struct {
	ordered []Node
	index   map[uint64][]int
}

// Add inserts n if no structurally-equal node is
// already present and returns the position of n
// (or of its equal predecessor) in insertion order.
func (s *NodeSet) Add(n Node) int {
	h := Hash(n)
	for _, i := range s.index[h] {
		if s.ordered[i].Equals(n) {
			return i
		}
	}
	if s.index == nil {
		s.index = make(map[uint64][]int)
	}
	i := len(s.ordered)
	s.ordered = append(s.ordered, n)
	s.index[h] = append(s.index[h], i)
	return i
}

// Len returns the number of distinct nodes added.
func (s *NodeSet) Len() int { return len(s.ordered) }

// Ordered returns the distinct nodes in first-use order.
// The returned slice is owned by the set.
func (s *NodeSet) Ordered() []Node { return s.ordered }
