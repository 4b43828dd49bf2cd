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

package storage

import (
	"testing"

	"github.com/coldb-project/coldb/dberr"
)

func TestCreateTableAndAddColumn(t *testing.T) {
	dir := t.TempDir()
	db, err := CreateDatabase(dir, "d1")
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	tbl, err := db.CreateTable("t1", 2)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if tbl.Ready() {
		t.Fatal("table should not be ready before all columns added")
	}
	a, err := tbl.AddColumn("a")
	if err != nil {
		t.Fatalf("AddColumn a: %v", err)
	}
	if len(a.Data()) != InitialTableCapacity {
		t.Fatalf("column a capacity = %d, want %d", len(a.Data()), InitialTableCapacity)
	}
	if _, err := tbl.AddColumn("b"); err != nil {
		t.Fatalf("AddColumn b: %v", err)
	}
	if !tbl.Ready() {
		t.Fatal("table should be ready after all declared columns added")
	}
	if _, err := tbl.AddColumn("c"); !dberr.Is(err, dberr.TableFull) {
		t.Fatalf("AddColumn past declared count: err = %v, want TableFull", err)
	}
}

func TestExpandGrowsCapacityAndPreservesData(t *testing.T) {
	dir := t.TempDir()
	db, _ := CreateDatabase(dir, "d1")
	tbl, _ := db.CreateTable("t1", 1)
	col, _ := tbl.AddColumn("a")
	col.Data()[0] = 42
	tbl.NRows = InitialTableCapacity

	if err := tbl.Expand(1); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if tbl.Capacity != InitialTableCapacity*GrowthFactor {
		t.Fatalf("Capacity = %d, want %d", tbl.Capacity, InitialTableCapacity*GrowthFactor)
	}
	if len(tbl.Columns[0].Data()) != tbl.Capacity {
		t.Fatalf("column data len = %d, want %d", len(tbl.Columns[0].Data()), tbl.Capacity)
	}
	if tbl.Columns[0].Data()[0] != 42 {
		t.Fatal("expand must preserve existing data")
	}
}

func TestShrinkHalvesCapacity(t *testing.T) {
	dir := t.TempDir()
	db, _ := CreateDatabase(dir, "d1")
	tbl, _ := db.CreateTable("t1", 1)
	tbl.AddColumn("a")
	if err := tbl.Expand(InitialTableCapacity * 8); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	bigCapacity := tbl.Capacity
	tbl.NRows = 1
	if err := tbl.Shrink(); err != nil {
		t.Fatalf("Shrink: %v", err)
	}
	if tbl.Capacity >= bigCapacity {
		t.Fatalf("Shrink did not reduce capacity: %d -> %d", bigCapacity, tbl.Capacity)
	}
	if tbl.Capacity < InitialTableCapacity {
		t.Fatalf("Shrink went below initial capacity: %d", tbl.Capacity)
	}
}

func TestShutdownThenLaunchRoundTrips(t *testing.T) {
	dir := t.TempDir()
	db, _ := CreateDatabase(dir, "d1")
	tbl, _ := db.CreateTable("t1", 2)
	a, _ := tbl.AddColumn("a")
	b, _ := tbl.AddColumn("b")
	tbl.NRows = 3
	a.Data()[0], a.Data()[1], a.Data()[2] = 1, 2, 3
	b.Data()[0], b.Data()[1], b.Data()[2] = 10, 20, 30
	a.SetIndexType(IndexUnclusteredSorted)

	if err := Shutdown(db); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	db2, err := Launch(dir)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if db2 == nil {
		t.Fatal("Launch returned nil database after Shutdown persisted one")
	}
	if db2.Name != "d1" {
		t.Fatalf("Name = %q, want d1", db2.Name)
	}
	tbl2 := db2.Table("t1")
	if tbl2 == nil {
		t.Fatal("table t1 missing after Launch")
	}
	if tbl2.NRows != 3 || tbl2.Capacity != tbl.Capacity {
		t.Fatalf("NRows/Capacity = %d/%d, want 3/%d", tbl2.NRows, tbl2.Capacity, tbl.Capacity)
	}
	a2 := tbl2.Column("a")
	if a2 == nil || a2.IndexType() != IndexUnclusteredSorted {
		t.Fatalf("column a index type not preserved: %v", a2)
	}
	if a2.Data()[0] != 1 || a2.Data()[1] != 2 || a2.Data()[2] != 3 {
		t.Fatalf("column a data not preserved: %v", a2.Data()[:3])
	}
	b2 := tbl2.Column("b")
	if b2.Data()[0] != 10 || b2.Data()[1] != 20 || b2.Data()[2] != 30 {
		t.Fatalf("column b data not preserved: %v", b2.Data()[:3])
	}

	if err := Shutdown(db2); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestLaunchWithNoCatalogReturnsNilDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Launch(dir)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if db != nil {
		t.Fatal("Launch over an empty directory should return a nil database")
	}
}

func TestCreateDatabaseClearsPriorContents(t *testing.T) {
	dir := t.TempDir()
	db, _ := CreateDatabase(dir, "d1")
	tbl, _ := db.CreateTable("t1", 1)
	tbl.AddColumn("a")
	if err := Shutdown(db); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	db2, err := CreateDatabase(dir, "d2")
	if err != nil {
		t.Fatalf("CreateDatabase (replace): %v", err)
	}
	if len(db2.Tables) != 0 {
		t.Fatal("replacing a database should start with zero tables")
	}
	if db3, _ := Launch(dir); db3 != nil {
		t.Fatal("replacing a database should have deleted the prior catalog")
	}
}
