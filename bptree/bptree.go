// Copyright (C) 2024 coldb Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package bptree implements a fixed-order B+ tree keyed by int32 integers
// with size_t-equivalent (int) row-index values, grounded on
// original_source/src/bptree.c (order, node layout, append-only bulk build
// via an access stack, and right-aligned insert descent). Node children are
// held as slices rather than fixed C arrays, but the order, split-at-median,
// and copy-vs-move split semantics documented there are preserved.
package bptree

import "github.com/coldb-project/coldb/search"

// Order is the fixed B+ tree order: internal nodes hold up to Order-1 keys
// and Order children; leaves hold up to Order-1 (key, value) pairs.
const Order = 320

type nodeKind int

const (
	internalNode nodeKind = iota
	leafNode
)

type node struct {
	kind nodeKind
	keys []int32

	// internal-only
	children []*node

	// leaf-only
	values []int
	next   *node
}

func newLeaf() *node   { return &node{kind: leafNode} }
func newInternal() *node { return &node{kind: internalNode} }

// Tree is a B+ tree mapping int32 keys to int row-index values.
type Tree struct {
	root    *node
	nLevels int
	size    int
}

// Size returns the number of (key, value) entries in the tree.
func (t *Tree) Size() int { return t.size }

// Levels returns the number of internal levels, root included, leaf level
// excluded.
func (t *Tree) Levels() int { return t.nLevels }

// accessStack tracks the path of internal nodes from root (index 0) to the
// deepest visited internal node, since nodes carry no parent pointers.
type accessStack struct {
	nodes []*node
}

func (s *accessStack) push(n *node) { s.nodes = append(s.nodes, n) }
func (s *accessStack) pop() *node {
	n := s.nodes[len(s.nodes)-1]
	s.nodes = s.nodes[:len(s.nodes)-1]
	return n
}
func (s *accessStack) top() *node  { return s.nodes[len(s.nodes)-1] }
func (s *accessStack) empty() bool { return len(s.nodes) == 0 }

// pushKeyAppendOnly inserts key at the end of the top node of the stack
// (used by bulk build, where keys only ever arrive in ascending order),
// splitting and propagating up the stack on overflow, and creating a new
// root if the stack empties. It mirrors _push_key_append_only.
func pushKeyAppendOnly(stack *accessStack, key int32, newChild *node) {
	top := stack.top()
	if len(top.keys) < Order-1 {
		top.keys = append(top.keys, key)
		top.children = append(top.children, newChild)
		return
	}

	splitInd := Order / 2
	splitKey := top.keys[splitInd]

	newNode := newInternal()
	newNode.keys = append([]int32(nil), top.keys[splitInd+1:]...)
	newNode.children = append([]*node(nil), top.children[splitInd+1:]...)
	newNode.keys = append(newNode.keys, key)
	newNode.children = append(newNode.children, newChild)

	top.keys = top.keys[:splitInd]
	top.children = top.children[:splitInd+1]

	stack.pop()
	if stack.empty() {
		root := newInternal()
		root.keys = append(root.keys, splitKey)
		root.children = append(root.children, top, newNode)
		stack.push(root)
	} else {
		pushKeyAppendOnly(stack, splitKey, newNode)
	}
	stack.push(newNode)
}

// Build bulk-loads a B+ tree from data in ascending key order, i.e.
// data[sorter[i]] for i in [0, size) must already be ascending. If sorter is
// nil, data itself must already be ascending and values are plain row
// indices [0, size).
func Build(data []int32, sorter []int, size int) *Tree {
	keyAt := func(i int) int32 {
		if sorter == nil {
			return data[i]
		}
		return data[sorter[i]]
	}
	valueAt := func(i int) int {
		if sorter == nil {
			return i
		}
		return sorter[i]
	}

	leaf := newLeaf()
	firstLeaf := leaf
	i := 0
	for i < Order-1 && i < size {
		leaf.keys = append(leaf.keys, keyAt(i))
		leaf.values = append(leaf.values, valueAt(i))
		i++
	}

	root := newInternal()
	root.children = append(root.children, firstLeaf)

	if i == 0 {
		return &Tree{root: root, size: 0, nLevels: 1}
	}

	stack := &accessStack{}
	stack.push(root)

	for i < size {
		newLeafNode := newLeaf()
		leaf.next = newLeafNode
		leaf = newLeafNode
		for len(leaf.keys) < Order-1 && i < size {
			leaf.keys = append(leaf.keys, keyAt(i))
			leaf.values = append(leaf.values, valueAt(i))
			i++
		}
		pushKeyAppendOnly(stack, leaf.keys[0], leaf)
	}

	return &Tree{root: stack.nodes[0], size: size, nLevels: len(stack.nodes)}
}

// descend walks from root to the leaf that would contain key, using
// right-aligned search at each internal node (so duplicate keys land after
// existing ones), recording the path of internal nodes visited (deepest
// last) into stack if non-nil.
func (t *Tree) descend(key int32, stack *accessStack) *node {
	n := t.root
	for n.kind == internalNode {
		if stack != nil {
			stack.push(n)
		}
		ind := search.Right(n.keys, int64(key))
		n = n.children[ind]
	}
	return n
}

// SearchCont performs a point search assuming values are a contiguous index
// range: it returns the row-index value of the target key if it lands
// inside a leaf, left-aligned, or Size() if the key lands past the last key
// in the tree.
func (t *Tree) SearchCont(key int32) int {
	leaf := t.descendLeft(int64(key))
	ind := search.Left(leaf.keys, int64(key))
	if ind < len(leaf.values) {
		return leaf.values[ind]
	}
	if leaf.next != nil {
		return leaf.next.values[0]
	}
	return t.size
}

// descendLeft walks from root to the leftmost leaf that can hold key, using
// left-aligned search at each internal node, so that a forward scan of the
// leaf chain from there sees every entry whose key is >= key.
func (t *Tree) descendLeft(key int64) *node {
	n := t.root
	for n.kind == internalNode {
		n = n.children[search.Left(n.keys, key)]
	}
	return n
}

// SearchRangeCont performs a range search assuming values are a contiguous
// index range: loVal/hiVal are key (value) bounds, translated to row-index
// bounds via two SearchCont point searches, then materialized as [lo, hi)
// directly instead of a leaf-level scan.
func (t *Tree) SearchRangeCont(loVal, hiVal int) []int {
	lo := t.SearchCont(int32(loVal))
	hi := t.SearchCont(int32(hiVal))
	if hi <= lo {
		return []int{}
	}
	out := make([]int, hi-lo)
	for i := range out {
		out[i] = lo + i
	}
	return out
}

// SearchRange performs a general range search [lower, upper): one descent
// with left alignment on the lower bound, then a linear scan of linked
// leaves appending matched row-index values until key >= upper or the leaf
// chain ends. Returns the matched values in ascending key order.
func (t *Tree) SearchRange(lower, upper int64) []int {
	var out []int
	if upper <= lower {
		return out
	}
	leaf := t.descendLeft(int64(clampKey(lower)))
	ind := search.Left(leaf.keys, lower)
	for leaf != nil {
		for ind < len(leaf.keys) {
			if int64(leaf.keys[ind]) >= upper {
				return out
			}
			out = append(out, leaf.values[ind])
			ind++
		}
		leaf = leaf.next
		ind = 0
	}
	return out
}

func clampKey(v int64) int32 {
	const maxI32 = int64(1<<31 - 1)
	const minI32 = -int64(1 << 31)
	if v > maxI32 {
		return int32(maxI32)
	}
	if v < minI32 {
		return int32(minI32)
	}
	return int32(v)
}
