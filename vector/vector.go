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

// Package vector defines the polymorphic value-vector, position-vector, and
// numeric types that flow between operators and session handles, per
// SPEC_FULL.md §3 and the design note in §9 ("a straightforward mapping is
// a tagged enum Value = Column(&Column) | Owned(Box<[i32]>)").
package vector

import "github.com/coldb-project/coldb/bitset"

// ColumnView is the narrow interface a live storage column must satisfy to
// be wrapped by a Value as a borrowed view. It is implemented by
// *storage.Column without storage needing to import this package.
type ColumnView interface {
	Data() []int32
	Name() string
}

// Value is a generalized value-vector: either a borrowed view of a live
// column, or an owned dense partial column produced by an operator (fetch,
// add/sub).
type Value struct {
	column  ColumnView // non-nil iff this wraps a live column
	owned   []int32    // non-nil iff this is an owned partial column
	length  int
	transient bool // true if this wraps a column via a name-resolution miss and must be released by the consuming operator
}

// FromColumn wraps a live column as a borrowed, non-owning Value.
func FromColumn(c ColumnView) Value {
	return Value{column: c, length: len(c.Data())}
}

// FromTransientColumn is FromColumn, additionally marked as a transient
// view that the consuming operator must release after use.
func FromTransientColumn(c ColumnView) Value {
	v := FromColumn(c)
	v.transient = true
	return v
}

// FromOwned wraps an owned dense buffer (e.g. the result of fetch or
// add/sub) as a Value.
func FromOwned(data []int32) Value {
	return Value{owned: data, length: len(data)}
}

// IsColumn reports whether this Value borrows a live column.
func (v Value) IsColumn() bool { return v.column != nil }

// IsTransient reports whether this Value is a transient column-view that
// must be released by whatever operator consumed it.
func (v Value) IsTransient() bool { return v.transient }

// Column returns the borrowed column view, or nil if this Value is owned.
func (v Value) Column() ColumnView { return v.column }

// Len returns the logical length of the value vector.
func (v Value) Len() int { return v.length }

// Data returns the underlying []int32 data regardless of whether it is
// borrowed or owned. Callers must not retain the slice past the lifetime of
// the column it wraps.
func (v Value) Data() []int32 {
	if v.column != nil {
		return v.column.Data()
	}
	return v.owned
}

// SameSource reports whether two Values are considered identical for batch
// compatibility purposes: either exact identity, or both wrapping the same
// underlying column.
func SameSource(a, b Value) bool {
	if a.column != nil && b.column != nil {
		return a.column == b.column
	}
	if a.column == nil && b.column == nil {
		return sameBacking(a.owned, b.owned)
	}
	return false
}

func sameBacking(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}

// Positions is a generalized position-vector: an owned index array (not
// required to be sorted or unique) or a bit-mask over row indices.
type Positions struct {
	indices []int
	mask    *bitset.Set
	nSet    int
}

// FromIndices wraps an owned index array as Positions.
func FromIndices(idx []int) Positions { return Positions{indices: idx} }

// FromMask wraps a bit vector as Positions, with nSet set bits.
func FromMask(mask *bitset.Set, nSet int) Positions { return Positions{mask: mask, nSet: nSet} }

// IsIndexArray reports whether these Positions are stored as an index array.
func (p Positions) IsIndexArray() bool { return p.mask == nil }

// Indices materializes the position-vector as an index array, converting a
// bit mask to ascending indices if needed.
func (p Positions) Indices() []int {
	if p.mask == nil {
		return p.indices
	}
	out := make([]int, 0, p.nSet)
	for i := 0; i < p.mask.Len(); i++ {
		if p.mask.Test(i) {
			out = append(out, i)
		}
	}
	return out
}

// Len returns the number of positions represented.
func (p Positions) Len() int {
	if p.mask == nil {
		return len(p.indices)
	}
	return p.nSet
}

// NumericKind tags the type of a Numeric scalar.
type NumericKind int

const (
	I32 NumericKind = iota
	I64
	F64
)

// Numeric is a tagged scalar produced by aggregates.
type Numeric struct {
	Kind NumericKind
	I    int64
	F    float64
}

func NumericI32(v int32) Numeric { return Numeric{Kind: I32, I: int64(v)} }
func NumericI64(v int64) Numeric { return Numeric{Kind: I64, I: v} }
func NumericF64(v float64) Numeric { return Numeric{Kind: F64, F: v} }

// Float returns the scalar as a float64 regardless of its tagged kind.
func (n Numeric) Float() float64 {
	if n.Kind == F64 {
		return n.F
	}
	return float64(n.I)
}
