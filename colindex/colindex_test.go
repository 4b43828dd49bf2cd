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

package colindex

import (
	"testing"

	"github.com/coldb-project/coldb/storage"
)

func newTestTable(t *testing.T, values ...int32) (*storage.Table, *storage.Column) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.CreateDatabase(dir, "d")
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	tbl, err := db.CreateTable("t", 1)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	col, err := tbl.AddColumn("a")
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	copy(col.Data(), values)
	tbl.NRows = len(values)
	return tbl, col
}

func TestInitUnclusteredSorted(t *testing.T) {
	tbl, col := newTestTable(t, 30, 10, 20, 10)
	col.SetIndexType(storage.IndexUnclusteredSorted)
	if err := Init(tbl, col, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if len(col.Sorter) != 4 {
		t.Fatalf("sorter len = %d, want 4", len(col.Sorter))
	}
	data := col.Data()
	for i := 1; i < len(col.Sorter); i++ {
		if data[col.Sorter[i-1]] > data[col.Sorter[i]] {
			t.Fatalf("sorter not ascending: %v over data %v", col.Sorter, data[:4])
		}
	}
}

func TestInitUnclusteredBTreeAndSelect(t *testing.T) {
	tbl, col := newTestTable(t, 10, 10, 20, 20, 20, 30)
	col.SetIndexType(storage.IndexUnclusteredBTree)
	if err := Init(tbl, col, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := SelectIndexed(col, tbl.NRows, 15, 30)
	want := map[int]bool{2: true, 3: true, 4: true}
	if len(got) != 3 {
		t.Fatalf("select(15,30) = %v, want permutation of indices {2,3,4}", got)
	}
	for _, v := range got {
		if !want[v] {
			t.Fatalf("unexpected index %d in %v", v, got)
		}
	}
}

func TestInitClusteredSortedReordersSiblings(t *testing.T) {
	dir := t.TempDir()
	db, _ := storage.CreateDatabase(dir, "d")
	tbl, _ := db.CreateTable("t", 2)
	primary, _ := tbl.AddColumn("id")
	sibling, _ := tbl.AddColumn("val")
	copy(primary.Data(), []int32{3, 1, 2})
	copy(sibling.Data(), []int32{300, 100, 200})
	tbl.NRows = 3
	primary.SetIndexType(storage.IndexClusteredSorted)
	tbl.HasPrimary = true
	tbl.Primary = tbl.ColumnIndex("id")

	if err := Init(tbl, primary, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	want := []int32{1, 2, 3}
	for i, v := range want {
		if primary.Data()[i] != v {
			t.Fatalf("primary data = %v, want %v", primary.Data()[:3], want)
		}
	}
	wantSibling := []int32{100, 200, 300}
	for i, v := range wantSibling {
		if sibling.Data()[i] != v {
			t.Fatalf("sibling data = %v, want %v", sibling.Data()[:3], wantSibling)
		}
	}
	got := selectClusteredSorted(primary, 3, 2, 4)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("selectClusteredSorted(2,4) = %v, want [1 2]", got)
	}
}

func TestInitClusteredBTree(t *testing.T) {
	tbl, col := newTestTable(t, 2, 0, 1, 3, 4)
	col.SetIndexType(storage.IndexClusteredBTree)
	tbl.HasPrimary = true
	tbl.Primary = 0
	if err := Init(tbl, col, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for i := 0; i < 5; i++ {
		if col.Data()[i] != int32(i) {
			t.Fatalf("data not clustered: %v", col.Data()[:5])
		}
	}
	got := SelectIndexed(col, tbl.NRows, 1, 4)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("clustered-btree select(1,4) = %v, want [1 2 3]", got)
	}
}

// TestInitClusteredBTreeNonIdentityValues uses values whose clustered order
// does not coincide with the identity permutation (unlike
// TestInitClusteredBTree's [2,0,1,3,4], which clusters to data[i]==i and so
// cannot distinguish a real value->row-index search from one that just
// echoes its bounds back), to catch SelectIndexed/SearchRangeCont silently
// treating value bounds as row-index bounds.
func TestInitClusteredBTreeNonIdentityValues(t *testing.T) {
	tbl, col := newTestTable(t, 30, 10, 20, 40)
	col.SetIndexType(storage.IndexClusteredBTree)
	tbl.HasPrimary = true
	tbl.Primary = 0
	if err := Init(tbl, col, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	wantClustered := []int32{10, 20, 30, 40}
	for i, v := range wantClustered {
		if col.Data()[i] != v {
			t.Fatalf("clustered data = %v, want %v", col.Data()[:4], wantClustered)
		}
	}
	got := SelectIndexed(col, tbl.NRows, 15, 35)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("clustered-btree select(15,35) = %v, want [1 2] (rows holding values 20, 30)", got)
	}
}

func TestUpdateSorterMergesAppendedTail(t *testing.T) {
	tbl, col := newTestTable(t, 10, 20, 30)
	col.SetIndexType(storage.IndexUnclusteredSorted)
	if err := Init(tbl, col, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	copy(col.Data()[3:6], []int32{5, 25, 35})
	tbl.NRows = 6
	UpdateSorter(col, 3, 6)

	data := col.Data()
	for i := 1; i < len(col.Sorter); i++ {
		if data[col.Sorter[i-1]] > data[col.Sorter[i]] {
			t.Fatalf("merged sorter not ascending: %v over %v", col.Sorter, data[:6])
		}
	}
	if len(col.Sorter) != 6 {
		t.Fatalf("sorter len = %d, want 6", len(col.Sorter))
	}
}

func TestFreeClearsIndexState(t *testing.T) {
	tbl, col := newTestTable(t, 1, 2, 3)
	col.SetIndexType(storage.IndexUnclusteredBTree)
	Init(tbl, col, false)
	Free(col)
	if col.Sorter != nil || col.Tree != nil {
		t.Fatal("Free must clear both sorter and tree")
	}
}
