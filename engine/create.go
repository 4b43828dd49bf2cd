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
	"github.com/coldb-project/coldb/colindex"
	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/storage"
)

// CreateTable declares a table with nCols columns, to be filled in by
// subsequent CreateColumn calls until Ready(), per spec.md §3.
func (s *Session) CreateTable(name string, nCols int) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	if err := s.requireDatabase(); err != nil {
		return err
	}
	_, err := s.eng.DB.CreateTable(name, nCols)
	return err
}

// CreateColumn adds a column to a declared table, with IndexNone until an
// index is explicitly created on it.
func (s *Session) CreateColumn(table, column string) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	t, err := s.requireTable(table)
	if err != nil {
		return err
	}
	c, err := t.AddColumn(column)
	if err != nil {
		return err
	}
	return colindex.Init(t, c, false)
}

// CreateIndex installs an index on an already-existing column. Creating
// the first clustered index on a table reorders every sibling column by
// the primary column's sort order and rebuilds every other unclustered
// index, per spec.md §4.F/§4.K.
func (s *Session) CreateIndex(table, column string, indexType storage.IndexType) error {
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
	c := t.Column(column)
	if c == nil {
		return dberr.New(dberr.ColumnNotExist, "column %s does not exist on table %s", column, table)
	}
	if c.IndexType() != storage.IndexNone {
		return dberr.New(dberr.IndexAlreadyExists, "column %s already has an index", column)
	}
	if indexType.IsClustered() {
		if t.HasPrimary {
			return dberr.New(dberr.ClusteredIndexAlreadyExists, "table %s already has a clustered index", table)
		}
		t.HasPrimary = true
		t.Primary = t.ColumnIndex(column)
	}
	c.SetIndexType(indexType)
	return colindex.Init(t, c, false)
}
