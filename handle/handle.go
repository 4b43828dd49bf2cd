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

// Package handle implements the per-session handle pool: three name-keyed
// growable tables of value-vector, position-vector, and numeric handles,
// grounded on spec.md §4.G and
// original_source/src/include/client_context.h's client-context layout
// (three parallel name/value arrays with linear lookup).
package handle

import (
	"github.com/coldb-project/coldb/storage"
	"github.com/coldb-project/coldb/vector"
)

// ColumnResolver resolves a bare column name against the live catalog,
// returning the column and its table's current row count, or ok=false if
// no table/column matches. Used by Session.LookupValue on a name-lookup
// miss to construct a transient column-view handle.
type ColumnResolver func(name string) (col *storage.Column, nRows int, ok bool)

// Session is the per-connection "client context": three linearly-scanned,
// doubling-growth name->handle tables, plus the catalog resolver used to
// materialize transient column views on a value-handle lookup miss.
type Session struct {
	values    []namedValue
	positions []namedPositions
	numerics  []namedNumeric

	resolve ColumnResolver
}

type namedValue struct {
	name string
	v    vector.Value
}

type namedPositions struct {
	name string
	p    vector.Positions
}

type namedNumeric struct {
	name string
	n    vector.Numeric
}

// NewSession creates an empty session bound to resolve, the catalog
// column-name resolver.
func NewSession(resolve ColumnResolver) *Session {
	return &Session{resolve: resolve}
}

// PutValue inserts (or replaces, freeing the previous binding) a named
// value-vector handle.
func (s *Session) PutValue(name string, v vector.Value) {
	for i := range s.values {
		if s.values[i].name == name {
			s.values[i].v = v
			return
		}
	}
	s.values = append(s.values, namedValue{name: name, v: v})
}

// LookupValue performs a linear scan for name among owned value handles.
// On a miss, it falls back to resolving name as a catalog column name,
// returning a transient column-view Value (vector.IsTransient() == true)
// that the consuming operator must explicitly release via ReleaseTransient
// rather than store back into the session.
func (s *Session) LookupValue(name string) (vector.Value, bool) {
	for i := range s.values {
		if s.values[i].name == name {
			return s.values[i].v, true
		}
	}
	if s.resolve == nil {
		return vector.Value{}, false
	}
	col, nRows, ok := s.resolve(name)
	if !ok {
		return vector.Value{}, false
	}
	return vector.FromTransientColumn(boundedColumn{Column: col, n: nRows}), true
}

// boundedColumn narrows a *storage.Column's Data() to the table's current
// n_rows, since storage.Column.Data() otherwise exposes the full capacity.
type boundedColumn struct {
	*storage.Column
	n int
}

func (b boundedColumn) Data() []int32 { return b.Column.Data()[:b.n] }

// Underlying returns the wrapped storage column, letting the engine reach
// past the narrow vector.ColumnView interface to check for an index
// (colindex.SelectIndexed needs the concrete *storage.Column).
func (b boundedColumn) Underlying() *storage.Column { return b.Column }

// Underlyer is implemented by any vector.ColumnView this package produces
// that wraps a live *storage.Column, letting callers recover it.
type Underlyer interface {
	Underlying() *storage.Column
}

// ReleaseTransient is a no-op marker call documenting that the operator
// which consumed a transient column-view Value has finished with it; the
// view itself owns no resources beyond the pointer into live column data,
// so there is nothing to free, but the call site makes the release point
// explicit per spec.md §4.G/§4.K.
func ReleaseTransient(v vector.Value) {
	_ = v
}

// PutPositions inserts or replaces a named position-vector handle.
func (s *Session) PutPositions(name string, p vector.Positions) {
	for i := range s.positions {
		if s.positions[i].name == name {
			s.positions[i].p = p
			return
		}
	}
	s.positions = append(s.positions, namedPositions{name: name, p: p})
}

// LookupPositions performs a linear scan for name among position handles.
func (s *Session) LookupPositions(name string) (vector.Positions, bool) {
	for i := range s.positions {
		if s.positions[i].name == name {
			return s.positions[i].p, true
		}
	}
	return vector.Positions{}, false
}

// PutNumeric inserts or replaces a named numeric handle.
func (s *Session) PutNumeric(name string, n vector.Numeric) {
	for i := range s.numerics {
		if s.numerics[i].name == name {
			s.numerics[i].n = n
			return
		}
	}
	s.numerics = append(s.numerics, namedNumeric{name: name, n: n})
}

// LookupNumeric performs a linear scan for name among numeric handles.
func (s *Session) LookupNumeric(name string) (vector.Numeric, bool) {
	for i := range s.numerics {
		if s.numerics[i].name == name {
			return s.numerics[i].n, true
		}
	}
	return vector.Numeric{}, false
}

