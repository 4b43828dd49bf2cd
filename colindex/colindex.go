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

// Package colindex implements the column index manager: the state machine
// over storage.IndexType that maintains a sorter and/or B+ tree per column,
// grounded on spec.md §4.F and original_source/src/include/db_schema.h's
// index-type enum and column struct.
package colindex

import (
	"github.com/coldb-project/coldb/bptree"
	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/search"
	"github.com/coldb-project/coldb/sortutil"
	"github.com/coldb-project/coldb/storage"
)

// Init materializes whatever index structures the column's current
// IndexType requires, reading nRows live values from col.Data(). If
// skipSort is true (the system-launch path, per spec.md §4.L), clustered
// variants assume the physical data is already in sorted order and skip
// re-sorting; unclustered variants still need to (re)compute a sorter
// since it is not itself persisted.
//
// After initializing a clustered index on table t, spec.md §4.F requires
// every other (non-primary) unclustered index in the table to be rebuilt
// from scratch, UNLESS skipSort is set, in which case the caller is
// restoring every column's index independently (the launch path) and each
// column's own Init call handles its own rebuild.
func Init(t *storage.Table, col *storage.Column, skipSort bool) error {
	n := t.NRows
	switch col.IndexType() {
	case storage.IndexNone:
		col.Sorter = nil
		col.Tree = nil
		return nil

	case storage.IndexUnclusteredSorted:
		col.Sorter = make([]int, n, t.Capacity)
		sortutil.Argsort(col.Data()[:n], col.Sorter)
		col.Tree = nil
		return nil

	case storage.IndexUnclusteredBTree:
		col.Sorter = make([]int, n, t.Capacity)
		sortutil.Argsort(col.Data()[:n], col.Sorter)
		col.Tree = bptree.Build(col.Data()[:n], col.Sorter, n)
		return nil

	case storage.IndexClusteredSorted:
		col.Sorter = nil
		if skipSort {
			return nil
		}
		if err := clusterTable(t, col, n); err != nil {
			return err
		}
		return rebuildUnclusteredSiblings(t, col)

	case storage.IndexClusteredBTree:
		col.Sorter = nil
		if !skipSort {
			if err := clusterTable(t, col, n); err != nil {
				return err
			}
		}
		col.Tree = bptree.Build(col.Data()[:n], nil, n)
		if skipSort {
			return nil
		}
		return rebuildUnclusteredSiblings(t, col)

	default:
		return dberr.New(dberr.InternalError, "unknown index type %v", col.IndexType())
	}
}

// clusterTable argsorts the primary column's live prefix and applies the
// resulting permutation to every sibling column in t (PropagateSorter),
// leaving the primary column's own data physically sorted.
func clusterTable(t *storage.Table, primary *storage.Column, n int) error {
	perm := make([]int, n)
	sortutil.Argsort(primary.Data()[:n], perm)
	return PropagateSorter(t, perm)
}

// PropagateSorter reorders every column's live [0, n) prefix by perm (each
// column needs a temporary copy of its own data), per spec.md §4.F.
func PropagateSorter(t *storage.Table, perm []int) error {
	n := len(perm)
	for _, c := range t.Columns {
		data := c.Data()
		tmp := make([]int32, n)
		for i, p := range perm {
			tmp[i] = data[p]
		}
		copy(data[:n], tmp)
	}
	return nil
}

// rebuildUnclusteredSiblings reinitializes every non-primary column's index
// from scratch, used after a clustered index is (re)built, per spec.md
// §4.F: "After initializing a clustered index, rebuild every non-primary
// unclustered index in the table."
func rebuildUnclusteredSiblings(t *storage.Table, primary *storage.Column) error {
	for _, c := range t.Columns {
		if c == primary {
			continue
		}
		if c.IndexType() == storage.IndexNone || c.IndexType().IsClustered() {
			continue
		}
		if err := Init(t, c, false); err != nil {
			return err
		}
	}
	return nil
}

// RebuildUnclusteredIndexes reinitializes every non-primary, non-none
// column's index from scratch (used after any mutation that moves rows:
// insert with a clustered index, delete).
func RebuildUnclusteredIndexes(t *storage.Table) error {
	var primary *storage.Column
	if t.HasPrimary {
		primary = t.PrimaryColumn()
	}
	for _, c := range t.Columns {
		if c == primary || c.IndexType() == storage.IndexNone {
			continue
		}
		if err := Init(t, c, false); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSorter handles the append-only load case: the new tail
// [oldNRows, newNRows) is argsorted on its own, then 2-way arg-merged with
// the existing sorted head, per spec.md §4.F.
func UpdateSorter(col *storage.Column, oldNRows, newNRows int) {
	tailLen := newNRows - oldNRows
	if tailLen <= 0 {
		return
	}
	tail := make([]int, tailLen)
	sortutil.Argsort(col.Data()[oldNRows:newNRows], tail)
	for i := range tail {
		tail[i] += oldNRows
	}

	merged := make([]int, 0, newNRows)
	merged = append(merged, col.Sorter[:oldNRows]...)
	merged = append(merged, tail...)
	sortutil.AMerge(col.Data(), merged, oldNRows)
	col.Sorter = merged

	if col.IndexType() == storage.IndexUnclusteredBTree {
		col.Tree = bptree.Build(col.Data()[:newNRows], col.Sorter, newNRows)
	}
}

// InsertUnclustered incrementally maintains an unclustered column's index
// after a single new row lands at row index newRow (n_rows before the
// write): the sorter gains newRow inserted right-aligned among equal keys,
// and, for the B+-tree variant, the tree gains the matching (key, newRow)
// entry. Called by the insert operator's non-clustered path; the clustered
// path instead rebuilds every unclustered sibling via
// RebuildUnclusteredIndexes since row positions shift under it.
func InsertUnclustered(col *storage.Column, newRow int) {
	if col.IndexType() == storage.IndexNone {
		return
	}
	key := col.Data()[newRow]
	ind := search.ARight(col.Data(), col.Sorter, int64(key))
	col.Sorter = append(col.Sorter, 0)
	copy(col.Sorter[ind+1:], col.Sorter[ind:len(col.Sorter)-1])
	col.Sorter[ind] = newRow

	if col.IndexType() == storage.IndexUnclusteredBTree {
		col.Tree.Insert(key, newRow)
	}
}

// Resize grows or shrinks the column's sorter buffer to match the table's
// new row capacity. Unclustered variants only; clustered columns have no
// sorter. The sorter's logical length (n_rows) is unaffected; only its
// backing capacity changes so future appends need not reallocate.
func Resize(col *storage.Column, newCapacity int) {
	if col.Sorter == nil {
		return
	}
	if cap(col.Sorter) >= newCapacity {
		return
	}
	resized := make([]int, len(col.Sorter), newCapacity)
	copy(resized, col.Sorter)
	col.Sorter = resized
}

// Free releases the sorter and/or tree the column's index type owns.
func Free(col *storage.Column) {
	col.Sorter = nil
	col.Tree = nil
}

// SelectIndexed runs the index-accelerated single-select specialization for
// col's current index type over the half-open range [lo, hi), per spec.md
// §4.H. It takes no position-vector: every variant returns row indices of
// the column itself, and the engine calls it only for a select that no
// position-vector restricts (a restricted select runs through the shared
// scan instead).
func SelectIndexed(col *storage.Column, n int, lo, hi int64) []int {
	switch col.IndexType() {
	case storage.IndexUnclusteredSorted:
		return selectUnclusteredSorted(col, lo, hi)
	case storage.IndexUnclusteredBTree:
		return col.Tree.SearchRange(lo, hi)
	case storage.IndexClusteredSorted:
		return selectClusteredSorted(col, n, lo, hi)
	case storage.IndexClusteredBTree:
		return col.Tree.SearchRangeCont(int(lo), int(hi))
	default:
		return nil
	}
}

// selectUnclusteredSorted does abinsearch for the lower bound (left-aligned)
// then walks the sorter forward until the value no longer qualifies.
func selectUnclusteredSorted(col *storage.Column, lo, hi int64) []int {
	data := col.Data()
	start := search.ALeft(data, col.Sorter, lo)
	var out []int
	for i := start; i < len(col.Sorter); i++ {
		v := int64(data[col.Sorter[i]])
		if v >= hi {
			break
		}
		out = append(out, col.Sorter[i])
	}
	return out
}

// selectClusteredSorted binary-searches the lower and upper bounds
// (both left-aligned, making the upper bound exclusive) directly over the
// physically-sorted live prefix and materializes the half-open range.
func selectClusteredSorted(col *storage.Column, n int, lo, hi int64) []int {
	data := col.Data()[:n]
	loIdx := search.Left(data, lo)
	hiIdx := search.Left(data, hi)
	if hiIdx <= loIdx {
		return nil
	}
	out := make([]int, hiIdx-loIdx)
	for i := range out {
		out[i] = loIdx + i
	}
	return out
}
