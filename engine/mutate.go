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

package engine

import (
	"github.com/coldb-project/coldb/bitset"
	"github.com/coldb-project/coldb/colindex"
	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/search"
	"github.com/coldb-project/coldb/storage"
)

// Insert appends row (one value per declared column, in column order) to
// table. With a clustered index, the row lands at its right-aligned
// sorted slot (duplicates go after existing entries), every column's
// tail shifts right, and the primary's B+ tree (if any) and every
// unclustered index are rebuilt; without one, it is simply appended and
// each unclustered index gains the new entry, per spec.md §4.K.
func (s *Session) Insert(table string, row []int32) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	t, err := s.requireTable(table)
	if err != nil {
		return err
	}
	if !t.Ready() {
		return dberr.New(dberr.TableNotFull, "table %s is not fully initialized", table)
	}
	if len(row) != len(t.Columns) {
		return dberr.New(dberr.InternalError, "row has %d values, table %s has %d columns", len(row), table, len(t.Columns))
	}
	if err := t.Expand(1); err != nil {
		return err
	}

	if t.HasPrimary {
		primary := t.PrimaryColumn()
		primaryIdx := t.Primary
		slot := search.Right(primary.Data()[:t.NRows], int64(row[primaryIdx]))
		for i, c := range t.Columns {
			data := c.Data()
			copy(data[slot+1:t.NRows+1], data[slot:t.NRows])
			data[slot] = row[i]
		}
		t.NRows++
		if primary.IndexType() == storage.IndexClusteredBTree {
			if err := colindex.Init(t, primary, true); err != nil {
				return err
			}
		}
		return colindex.RebuildUnclusteredIndexes(t)
	}

	newRow := t.NRows
	for i, c := range t.Columns {
		c.Data()[newRow] = row[i]
	}
	t.NRows++
	for _, c := range t.Columns {
		colindex.InsertUnclustered(c, newRow)
	}
	return nil
}

// loadState tracks an in-progress Load operator across its three
// transport-delivered phases (header, row batches, conclude), per spec.md
// §4.K.
type loadState struct {
	table    string
	oldNRows int
}

// LoadHeader validates that columns is exactly table's declared columns in
// creation order (spec.md §4.K), opening a load for subsequent LoadRows/
// LoadConclude calls.
func (s *Session) LoadHeader(table string, columns []string) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	t, err := s.requireTable(table)
	if err != nil {
		return err
	}
	if len(columns) != len(t.Columns) {
		return dberr.New(dberr.CSVInvalidHeader, "expected %d columns for table %s, got %d", len(t.Columns), table, len(columns))
	}
	for i, name := range columns {
		if t.Columns[i].Name() != name {
			return dberr.New(dberr.CSVInvalidHeader, "column %d: expected %s, got %s", i, t.Columns[i].Name(), name)
		}
	}
	s.load = &loadState{table: table, oldNRows: t.NRows}
	return nil
}

// LoadRows appends a row-major batch of integers (one row per element of
// rows, one value per declared column) into the mmap'd prefix
// column-major, growing the table's capacity as needed, and advances
// n_rows. Must follow a LoadHeader call on the same table.
func (s *Session) LoadRows(rows [][]int32) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	if s.load == nil {
		return dberr.New(dberr.InternalError, "LoadRows called with no load in progress")
	}
	t, err := s.requireTable(s.load.table)
	if err != nil {
		return err
	}
	if err := t.Expand(len(rows)); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != len(t.Columns) {
			return dberr.New(dberr.InternalError, "load row %d has %d values, table %s has %d columns", i, len(row), s.load.table, len(t.Columns))
		}
		for ci, v := range row {
			t.Columns[ci].Data()[t.NRows+i] = v
		}
	}
	t.NRows += len(rows)
	return nil
}

// LoadConclude finishes an open load. Without a clustered index, unclustered
// columns merge their new tail into the existing sorter/tree in one pass
// (colindex.UpdateSorter). With one, the table is fully reclustered, since a
// bulk append invalidates the "physical order == sorted order" invariant;
// reclustering moves rows, so every unclustered index is then rebuilt from
// scratch rather than merged.
func (s *Session) LoadConclude() error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	if s.load == nil {
		return dberr.New(dberr.InternalError, "LoadConclude called with no load in progress")
	}
	t, err := s.requireTable(s.load.table)
	if err != nil {
		return err
	}
	old := s.load.oldNRows
	if t.HasPrimary {
		if err := colindex.Init(t, t.PrimaryColumn(), false); err != nil {
			return err
		}
	} else {
		for _, c := range t.Columns {
			switch c.IndexType() {
			case storage.IndexUnclusteredSorted, storage.IndexUnclusteredBTree:
				colindex.UpdateSorter(c, old, t.NRows)
			}
		}
	}
	s.load = nil
	return nil
}

// Delete removes the rows named by positions (an index-array, not
// required to be sorted or unique) from every column of table, compacting
// in place, then rebuilds affected indexes and applies the shrink policy,
// per spec.md §4.K/§4.E.
func (s *Session) Delete(table string, positions []int) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	t, err := s.requireTable(table)
	if err != nil {
		return err
	}
	n := t.NRows
	mask := bitset.New(n)
	for _, p := range positions {
		if p >= 0 && p < n {
			mask.Set(p)
		}
	}
	k := mask.Count()
	if k == 0 {
		return nil
	}

	for _, c := range t.Columns {
		data := c.Data()
		w := 0
		for r := 0; r < n; r++ {
			if mask.Test(r) {
				continue
			}
			data[w] = data[r]
			w++
		}
	}
	t.NRows = n - k

	if t.HasPrimary {
		primary := t.PrimaryColumn()
		if primary.IndexType() == storage.IndexClusteredBTree {
			if err := colindex.Init(t, primary, true); err != nil {
				return err
			}
		}
	}
	if err := colindex.RebuildUnclusteredIndexes(t); err != nil {
		return err
	}
	return t.Shrink()
}

// Update writes values[i] at row positions[i] in table.column, then drops
// and reinitializes that column's index from scratch, per spec.md §4.K
// ("a full reindex of the affected column").
func (s *Session) Update(table, column string, positions []int, values []int32) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	t, err := s.requireTable(table)
	if err != nil {
		return err
	}
	c := t.Column(column)
	if c == nil {
		return dberr.New(dberr.ColumnNotExist, "column %s does not exist on table %s", column, table)
	}
	if len(positions) != len(values) {
		return dberr.New(dberr.InternalError, "update: %d positions but %d values", len(positions), len(values))
	}
	data := c.Data()
	for i, p := range positions {
		if p < 0 || p >= t.NRows {
			return dberr.New(dberr.InternalError, "update: row %d out of range [0, %d)", p, t.NRows)
		}
		data[p] = values[i]
	}
	colindex.Free(c)
	return colindex.Init(t, c, false)
}
