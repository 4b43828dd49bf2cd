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
	"os"

	"github.com/coldb-project/coldb/dberr"
)

// Table is a dynamic-capacity row store: every Column's physical length
// equals Capacity; the logical prefix [0, NRows) holds live data.
type Table struct {
	Name string

	NCols      int // declared column count
	Columns    []*Column
	NRows      int
	Capacity   int
	HasPrimary bool
	Primary    int // index into Columns of the clustered column, if HasPrimary

	dir string
}

// Ready reports whether every declared column has been initialized.
func (t *Table) Ready() bool { return len(t.Columns) == t.NCols }

// Column looks up a column by name within this table, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.name == name {
			return c
		}
	}
	return nil
}

// ColumnIndex returns the slice index of a column by name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.name == name {
			return i
		}
	}
	return -1
}

// PrimaryColumn returns the table's clustered column, or nil if none.
func (t *Table) PrimaryColumn() *Column {
	if !t.HasPrimary {
		return nil
	}
	return t.Columns[t.Primary]
}

// Database is the process-singleton in-memory schema root.
type Database struct {
	Name   string
	Tables []*Table

	dir string
}

// Dir returns the persistence directory backing this database.
func (db *Database) Dir() string { return db.dir }

// Table looks up a table by name, or nil.
func (db *Database) Table(name string) *Table {
	for _, t := range db.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// CreateDatabase initializes a fresh, empty database rooted at dir,
// creating the directory (mode 0755 per SPEC_FULL.md §6) if absent. If dir
// already holds a persisted database, its contents (column files and
// catalog) are removed first, per spec.md §4.K: "Creating a database when
// one exists deletes the prior persistence directory contents."
func CreateDatabase(dir, name string) (*Database, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberr.New(dberr.AllocFailed, "create persistence dir %s: %v", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, dberr.New(dberr.AllocFailed, "read persistence dir %s: %v", dir, err)
	}
	for _, e := range entries {
		if err := os.Remove(dir + string(os.PathSeparator) + e.Name()); err != nil {
			return nil, dberr.New(dberr.AllocFailed, "clear persistence dir %s: %v", dir, err)
		}
	}
	return &Database{Name: name, dir: dir}, nil
}

// CreateTable declares a new table with nCols columns to be added
// incrementally via AddColumn; it is not Ready() until all are added.
func (db *Database) CreateTable(name string, nCols int) (*Table, error) {
	if db.Table(name) != nil {
		return nil, dberr.New(dberr.TableAlreadyExists, "table %s already exists", name)
	}
	t := &Table{
		Name:     name,
		NCols:    nCols,
		Capacity: InitialTableCapacity,
		dir:      db.dir,
	}
	db.Tables = append(db.Tables, t)
	return t, nil
}

// AddColumn materializes and maps a new column file for t, appending it to
// t.Columns. Returns dberr.TableFull if t is already Ready().
func (t *Table) AddColumn(name string) (*Column, error) {
	if t.Ready() {
		return nil, dberr.New(dberr.TableFull, "table %s already has all %d declared columns", t.Name, t.NCols)
	}
	if t.Column(name) != nil {
		return nil, dberr.New(dberr.ColumnAlreadyExists, "column %s already exists on table %s", name, t.Name)
	}
	c, err := mmapColumnFile(t.dir, t.Name, name, t.Capacity)
	if err != nil {
		return nil, err
	}
	t.Columns = append(t.Columns, c)
	return c, nil
}

// Expand grows the table's capacity so that NRows+delta fits, doubling
// Capacity as many times as required (GrowthFactor). Per the resolved
// Open Question on expand atomicity (SPEC_FULL.md §9.1), every column is
// remapped to the new capacity before any column's n_rows-bearing state is
// otherwise touched; a remap failure partway through is surfaced without
// having mutated n_rows, though earlier columns in t.Columns may already
// sit at the new capacity (a harmless widening, not data loss).
func (t *Table) Expand(delta int) error {
	need := t.NRows + delta
	newCapacity := t.Capacity
	for newCapacity < need {
		newCapacity *= GrowthFactor
	}
	if newCapacity == t.Capacity {
		return nil
	}
	for _, c := range t.Columns {
		if err := c.remap(newCapacity); err != nil {
			return err
		}
		if c.Sorter != nil {
			resized := make([]int, len(c.Sorter), newCapacity)
			copy(resized, c.Sorter)
			c.Sorter = resized
		}
	}
	t.Capacity = newCapacity
	return nil
}

// Shrink halves Capacity while NRows*ShrinkFactor*ShrinkFactor still fits,
// per spec.md §4.E's shrink policy (k=2: halve while n_rows*k*2 < capacity).
func (t *Table) Shrink() error {
	for t.NRows*ShrinkFactor*ShrinkFactor < t.Capacity && t.Capacity > InitialTableCapacity {
		newCapacity := t.Capacity / ShrinkFactor
		if newCapacity < InitialTableCapacity {
			newCapacity = InitialTableCapacity
		}
		for _, c := range t.Columns {
			if err := c.remap(newCapacity); err != nil {
				return err
			}
			if c.Sorter != nil && len(c.Sorter) > newCapacity {
				c.Sorter = c.Sorter[:newCapacity]
			}
		}
		t.Capacity = newCapacity
		if newCapacity == InitialTableCapacity {
			break
		}
	}
	return nil
}

// Launch reads the catalog from dir (if present) and remaps every
// initialized column's file. It does NOT rebuild indexes; the caller
// (engine, via colindex) must call Init(skip_sort=true) per column
// afterward, per spec.md §4.L.
func Launch(dir string) (*Database, error) {
	f, err := os.Open(catalogPath(dir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.New(dberr.InternalError, "open catalog: %v", err)
	}
	defer f.Close()

	db, err := readCatalog(f)
	if err != nil {
		return nil, err
	}
	db.dir = dir

	for _, t := range db.Tables {
		t.dir = dir
		for i, stub := range t.Columns {
			c, err := mmapColumnFile(dir, t.Name, stub.name, t.Capacity)
			if err != nil {
				return nil, err
			}
			c.indexType = stub.indexType
			t.Columns[i] = c
		}
	}
	return db, nil
}

// Shutdown persists the schema to the catalog file, then unmaps and closes
// every column, per spec.md §4.E/§4.L. Column data is already durable
// (mmap'd MAP_SHARED); Shutdown's close() step truncates+msyncs+munmaps.
func Shutdown(db *Database) error {
	f, err := os.Create(catalogPath(db.dir))
	if err != nil {
		return dberr.New(dberr.InternalError, "create catalog: %v", err)
	}
	writeErr := writeCatalog(f, db)
	closeErr := f.Close()
	if writeErr != nil {
		return writeErr
	}
	if closeErr != nil {
		return dberr.New(dberr.InternalError, "close catalog: %v", closeErr)
	}

	for _, t := range db.Tables {
		for _, c := range t.Columns {
			if err := c.close(); err != nil {
				return err
			}
		}
	}
	return nil
}
