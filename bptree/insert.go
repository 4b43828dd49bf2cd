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

package bptree

import "github.com/coldb-project/coldb/search"

func insertI32At(s []int32, ind int, v int32) []int32 {
	s = append(s, 0)
	copy(s[ind+1:], s[ind:len(s)-1])
	s[ind] = v
	return s
}

func insertIntAt(s []int, ind int, v int) []int {
	s = append(s, 0)
	copy(s[ind+1:], s[ind:len(s)-1])
	s[ind] = v
	return s
}

func insertNodeAt(s []*node, ind int, v *node) []*node {
	s = append(s, nil)
	copy(s[ind+1:], s[ind:len(s)-1])
	s[ind] = v
	return s
}

// Insert inserts (key, value) into the tree. Right-aligned descent means
// new duplicates of an existing key are placed after all current entries
// with that key.
func (t *Tree) Insert(key int32, value int) {
	stack := &accessStack{}
	leaf := t.descend(key, stack)
	ind := search.Right(leaf.keys, int64(key))

	if len(leaf.keys) < Order-1 {
		leaf.keys = insertI32At(leaf.keys, ind, key)
		leaf.values = insertIntAt(leaf.values, ind, value)
		t.size++
		return
	}

	// Leaf is full: build the combined Order-length run, split at the
	// midpoint, and copy (not move) the separator key up, since the
	// physical leaf retains its own copy of every key it holds.
	combinedKeys := insertI32At(append([]int32(nil), leaf.keys...), ind, key)
	combinedValues := insertIntAt(append([]int(nil), leaf.values...), ind, value)

	mid := Order / 2
	newRight := newLeaf()
	newRight.keys = append([]int32(nil), combinedKeys[mid:]...)
	newRight.values = append([]int(nil), combinedValues[mid:]...)
	newRight.next = leaf.next

	leaf.keys = append([]int32(nil), combinedKeys[:mid]...)
	leaf.values = append([]int(nil), combinedValues[:mid]...)
	leaf.next = newRight

	t.size++
	t.propagateInsert(stack, newRight.keys[0], newRight)
}

// propagateInsert inserts (key, newChild) into the internal node at the
// top of stack, where newChild belongs immediately to the right of key.
// On overflow it splits the internal node, moving (not copying) the
// median key up, recursing until a node has room or the stack empties (in
// which case a new root is created, increasing the tree's level count).
func (t *Tree) propagateInsert(stack *accessStack, key int32, newChild *node) {
	top := stack.pop()
	ind := search.Right(top.keys, int64(key))

	if len(top.keys) < Order-1 {
		top.keys = insertI32At(top.keys, ind, key)
		top.children = insertNodeAt(top.children, ind+1, newChild)
		return
	}

	combinedKeys := insertI32At(append([]int32(nil), top.keys...), ind, key)
	combinedChildren := insertNodeAt(append([]*node(nil), top.children...), ind+1, newChild)

	mid := Order / 2
	promoted := combinedKeys[mid]

	newRight := newInternal()
	newRight.keys = append([]int32(nil), combinedKeys[mid+1:]...)
	newRight.children = append([]*node(nil), combinedChildren[mid+1:]...)

	top.keys = append([]int32(nil), combinedKeys[:mid]...)
	top.children = append([]*node(nil), combinedChildren[:mid+1]...)

	if stack.empty() {
		root := newInternal()
		root.keys = append(root.keys, promoted)
		root.children = append(root.children, top, newRight)
		t.root = root
		t.nLevels++
		return
	}
	t.propagateInsert(stack, promoted, newRight)
}
