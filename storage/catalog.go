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
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/coldb-project/coldb/dberr"
)

// catalogNoPrimary is the on-disk sentinel for "no clustered index", kept
// for the wire layout even though the in-memory Table uses hasPrimary+
// primary (SPEC_FULL.md §3 resolution of the primary Open Question).
const catalogNoPrimary = ^uint64(0)

// CatalogFileName is the fixed name of the catalog file within the
// persistence directory.
const CatalogFileName = "__catalog__"

func putName(buf []byte, s string) {
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, s)
}

func getName(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

// writeCatalog serializes the database schema (no column data) to w,
// little-endian, per SPEC_FULL.md §6's packed layout.
func writeCatalog(w io.Writer, db *Database) error {
	bw := bufio.NewWriter(w)
	nameBuf := make([]byte, MaxNameLen)

	putName(nameBuf, db.Name)
	if _, err := bw.Write(nameBuf); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(db.Tables))); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(cap(db.Tables))); err != nil {
		return err
	}

	for _, t := range db.Tables {
		putName(nameBuf, t.Name)
		if _, err := bw.Write(nameBuf); err != nil {
			return err
		}
		fields := []uint64{
			uint64(t.NCols),
			uint64(len(t.Columns)),
			uint64(t.NRows),
			uint64(t.Capacity),
		}
		for _, f := range fields {
			if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
				return err
			}
		}
		primary := catalogNoPrimary
		if t.HasPrimary {
			primary = uint64(t.Primary)
		}
		if err := binary.Write(bw, binary.LittleEndian, primary); err != nil {
			return err
		}
		for _, c := range t.Columns {
			putName(nameBuf, c.name)
			if _, err := bw.Write(nameBuf); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.LittleEndian, int32(c.indexType)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// readCatalog deserializes a Database's schema from r. Column data and
// index structures are NOT reconstructed here; the caller (Launch) remaps
// every column file and rebuilds indexes afterward.
func readCatalog(r io.Reader) (*Database, error) {
	br := bufio.NewReader(r)
	nameBuf := make([]byte, MaxNameLen)

	if _, err := io.ReadFull(br, nameBuf); err != nil {
		return nil, dberr.New(dberr.InternalError, "read catalog database name: %v", err)
	}
	db := &Database{Name: getName(nameBuf)}

	var nTables, dbCapacity uint64
	if err := binary.Read(br, binary.LittleEndian, &nTables); err != nil {
		return nil, dberr.New(dberr.InternalError, "read catalog n_tables: %v", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &dbCapacity); err != nil {
		return nil, dberr.New(dberr.InternalError, "read catalog capacity: %v", err)
	}
	db.Tables = make([]*Table, 0, dbCapacity)

	for i := uint64(0); i < nTables; i++ {
		if _, err := io.ReadFull(br, nameBuf); err != nil {
			return nil, dberr.New(dberr.InternalError, "read catalog table name: %v", err)
		}
		t := &Table{Name: getName(nameBuf)}

		var nCols, nInited, nRows, capacity, primary uint64
		for _, f := range []*uint64{&nCols, &nInited, &nRows, &capacity} {
			if err := binary.Read(br, binary.LittleEndian, f); err != nil {
				return nil, dberr.New(dberr.InternalError, "read catalog table header: %v", err)
			}
		}
		if err := binary.Read(br, binary.LittleEndian, &primary); err != nil {
			return nil, dberr.New(dberr.InternalError, "read catalog table primary: %v", err)
		}
		t.NCols = int(nCols)
		t.NRows = int(nRows)
		t.Capacity = int(capacity)
		if primary != catalogNoPrimary {
			t.HasPrimary = true
			t.Primary = int(primary)
		}

		t.Columns = make([]*Column, 0, nInited)
		for j := uint64(0); j < nInited; j++ {
			if _, err := io.ReadFull(br, nameBuf); err != nil {
				return nil, dberr.New(dberr.InternalError, "read catalog column name: %v", err)
			}
			var indexType int32
			if err := binary.Read(br, binary.LittleEndian, &indexType); err != nil {
				return nil, dberr.New(dberr.InternalError, "read catalog column index_type: %v", err)
			}
			t.Columns = append(t.Columns, &Column{name: getName(nameBuf), indexType: IndexType(indexType)})
		}
		db.Tables = append(db.Tables, t)
	}
	return db, nil
}

func catalogPath(dir string) string {
	return dir + string(os.PathSeparator) + CatalogFileName
}
