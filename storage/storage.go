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

// Package storage implements the persistence layer: memory-mapped column
// files, the binary catalog, and Database/Table/Column lifecycle (launch,
// shutdown, expand, shrink), grounded on original_source/src/io.c
// (mmap_column_file, mremap_column_file, munmap_column_file) and on the
// teacher's cmd/sdb/mmap_linux.go mmap/munmap pairing, generalized to
// golang.org/x/sys/unix for the truncate/mmap/msync/munmap calls
// themselves (a remap is an unmap followed by a fresh mmap).
package storage

import "github.com/coldb-project/coldb/bptree"

// Size constants, per SPEC_FULL.md §6.
const (
	MaxNameLen             = 64
	InitialTableCapacity    = 1024
	GrowthFactor            = 2
	ShrinkFactor            = 2
	BPTreeOrder             = bptree.Order
)

// IndexType tags the five column index variants.
type IndexType int32

const (
	IndexNone IndexType = iota
	IndexUnclusteredSorted
	IndexUnclusteredBTree
	IndexClusteredSorted
	IndexClusteredBTree
)

func (t IndexType) IsClustered() bool {
	return t == IndexClusteredSorted || t == IndexClusteredBTree
}

func (t IndexType) IsBTree() bool {
	return t == IndexUnclusteredBTree || t == IndexClusteredBTree
}

func (t IndexType) String() string {
	switch t {
	case IndexNone:
		return "none"
	case IndexUnclusteredSorted:
		return "unclustered-sorted"
	case IndexUnclusteredBTree:
		return "unclustered-btree"
	case IndexClusteredSorted:
		return "clustered-sorted"
	case IndexClusteredBTree:
		return "clustered-btree"
	default:
		return "unknown"
	}
}
