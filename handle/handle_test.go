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

package handle

import (
	"testing"

	"github.com/coldb-project/coldb/storage"
	"github.com/coldb-project/coldb/vector"
)

func TestPutValueReplacesExisting(t *testing.T) {
	s := NewSession(nil)
	s.PutValue("x", vector.FromOwned([]int32{1, 2, 3}))
	s.PutValue("x", vector.FromOwned([]int32{9}))
	v, ok := s.LookupValue("x")
	if !ok || v.Len() != 1 {
		t.Fatalf("expected replaced handle of length 1, got ok=%v len=%d", ok, v.Len())
	}
}

func TestLookupValueMissFallsBackToResolver(t *testing.T) {
	dir := t.TempDir()
	db, _ := storage.CreateDatabase(dir, "d")
	tbl, _ := db.CreateTable("t", 1)
	col, _ := tbl.AddColumn("a")
	copy(col.Data(), []int32{7, 8, 9})
	tbl.NRows = 3

	s := NewSession(func(name string) (*storage.Column, int, bool) {
		if name == "t.a" {
			return col, tbl.NRows, true
		}
		return nil, 0, false
	})

	v, ok := s.LookupValue("t.a")
	if !ok {
		t.Fatal("expected resolver fallback to succeed")
	}
	if !v.IsTransient() {
		t.Fatal("resolver fallback must produce a transient view")
	}
	if v.Len() != 3 || v.Data()[1] != 8 {
		t.Fatalf("transient view data = %v, want [7 8 9]", v.Data())
	}

	if _, ok := s.LookupValue("nope"); ok {
		t.Fatal("unresolvable name should report a miss")
	}
}

func TestPositionsAndNumericRoundTrip(t *testing.T) {
	s := NewSession(nil)
	s.PutPositions("p", vector.FromIndices([]int{1, 2, 3}))
	p, ok := s.LookupPositions("p")
	if !ok || p.Len() != 3 {
		t.Fatalf("positions roundtrip failed: ok=%v len=%d", ok, p.Len())
	}

	s.PutNumeric("n", vector.NumericI64(42))
	n, ok := s.LookupNumeric("n")
	if !ok || n.Float() != 42 {
		t.Fatalf("numeric roundtrip failed: ok=%v val=%v", ok, n.Float())
	}
}
