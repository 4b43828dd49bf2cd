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
	"fmt"
	"strconv"
	"strings"

	"github.com/coldb-project/coldb/colindex"
	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/handle"
	"github.com/coldb-project/coldb/join"
	"github.com/coldb-project/coldb/scan"
	"github.com/coldb-project/coldb/storage"
	"github.com/coldb-project/coldb/vector"
)

func (s *Session) lookupValue(name string) (vector.Value, error) {
	v, ok := s.hs.LookupValue(name)
	if !ok {
		return vector.Value{}, dberr.New(dberr.VarNoColumn, "no value-vector handle or column named %s", name)
	}
	return v, nil
}

func (s *Session) releaseIfTransient(v vector.Value) {
	if v.IsTransient() {
		handle.ReleaseTransient(v)
	}
}

// underlyingColumn recovers the concrete *storage.Column behind a Value
// that wraps a live column, or returns ok=false for an owned/partial Value.
func underlyingColumn(v vector.Value) (*storage.Column, bool) {
	if !v.IsColumn() {
		return nil, false
	}
	u, ok := v.Column().(handle.Underlyer)
	if !ok {
		return nil, false
	}
	return u.Underlying(), true
}

// Select evaluates a single half-open range predicate [lo, hi) over the
// value-vector named src (optionally restricted by the position-vector
// named pos, "" for none), storing the matched index-array under out. If
// src is a live, indexed column and no position-vector restricts it, the
// index-accelerated path (§4.H) is used; otherwise a single-range shared
// scan runs.
func (s *Session) Select(src, pos, out string, lo, hi int64) error {
	if s.batch != nil && s.batch.open {
		return s.batchSelect(src, pos, out, lo, hi)
	}

	v, err := s.lookupValue(src)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(v)

	hasPos := pos != ""
	var positions []int
	if hasPos {
		p, ok := s.hs.LookupPositions(pos)
		if !ok {
			return dberr.New(dberr.HandleNotFound, "no position-vector handle named %s", pos)
		}
		positions = p.Indices()
		if positions == nil {
			positions = []int{}
		}
	}

	var matched []int
	indexed := false
	if !hasPos {
		if col, ok := underlyingColumn(v); ok && col.IndexType() != storage.IndexNone {
			matched = colindex.SelectIndexed(col, v.Len(), lo, hi)
			indexed = true
		}
	}
	if !indexed {
		res := scan.Run(scan.Request{Data: v.Data(), Positions: positions, Ranges: []scan.Range{{Lo: lo, Hi: hi}}}, s.eng.Pool)
		matched = res.Selects[0]
	}

	s.hs.PutPositions(out, vector.FromIndices(matched))
	return nil
}

// Fetch materializes column.data[pos[i]] for each position into a fresh
// partial column stored under out, per spec.md §4.K.
func (s *Session) Fetch(src, pos, out string) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	v, err := s.lookupValue(src)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(v)

	p, ok := s.hs.LookupPositions(pos)
	if !ok {
		return dberr.New(dberr.HandleNotFound, "no position-vector handle named %s", pos)
	}
	idx := p.Indices()
	data := v.Data()
	result := make([]int32, len(idx))
	for i, r := range idx {
		result[i] = data[r]
	}
	s.hs.PutValue(out, vector.FromOwned(result))
	return nil
}

// AggKind selects which aggregate Aggregate computes.
type AggKind int

const (
	AggMin AggKind = iota
	AggMax
	AggSum
	AggAvg
)

// Aggregate computes one of {min, max, sum, avg} over the value-vector
// named src, storing the (tagged) numeric result under out. avg is
// sum/length, 0.0 for an empty vector, per spec.md §4.K.
func (s *Session) Aggregate(src string, kind AggKind, out string) error {
	if s.batch != nil && s.batch.open {
		return s.batchAggregate(src, kind, out)
	}

	v, err := s.lookupValue(src)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(v)

	if kind == AggAvg {
		res := scan.Run(scan.Request{Data: v.Data(), Aggregates: scan.Sum}, s.eng.Pool)
		avg := 0.0
		if v.Len() > 0 {
			avg = float64(res.Sum) / float64(v.Len())
		}
		s.hs.PutNumeric(out, vector.NumericF64(avg))
		return nil
	}

	flag := map[AggKind]scan.AggFlag{AggMin: scan.Min, AggMax: scan.Max, AggSum: scan.Sum}[kind]
	res := scan.Run(scan.Request{Data: v.Data(), Aggregates: flag}, s.eng.Pool)
	switch kind {
	case AggMin:
		s.hs.PutNumeric(out, vector.NumericI32(res.Min))
	case AggMax:
		s.hs.PutNumeric(out, vector.NumericI32(res.Max))
	case AggSum:
		s.hs.PutNumeric(out, vector.NumericI64(res.Sum))
	}
	return nil
}

// AddSub computes an element-wise add (sub=false) or subtract (sub=true)
// over two equal-length value-vectors, storing a fresh partial column
// under out, per spec.md §4.K.
func (s *Session) AddSub(a, b string, sub bool, out string) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	va, err := s.lookupValue(a)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(va)
	vb, err := s.lookupValue(b)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(vb)

	if va.Len() != vb.Len() {
		return dberr.New(dberr.InternalError, "add/sub operands have different lengths: %d vs %d", va.Len(), vb.Len())
	}
	da, db := va.Data(), vb.Data()
	result := make([]int32, va.Len())
	for i := range result {
		if sub {
			result[i] = da[i] - db[i]
		} else {
			result[i] = da[i] + db[i]
		}
	}
	s.hs.PutValue(out, vector.FromOwned(result))
	return nil
}

// JoinKind selects which join algorithm Join dispatches to.
type JoinKind int

const (
	JoinAuto JoinKind = iota
	JoinNestedLoop
	JoinNaiveHash
	JoinRadixHash
)

// Join equi-joins the value-vectors named a and b (optionally restricted
// by the position-vectors named aPos/bPos, "" for none), storing the two
// paired output index-arrays under outA/outB, per spec.md §4.I.
func (s *Session) Join(a, aPos, b, bPos string, kind JoinKind, outA, outB string) error {
	if err := s.requireNotBatching(); err != nil {
		return err
	}
	va, err := s.lookupValue(a)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(va)
	vb, err := s.lookupValue(b)
	if err != nil {
		return err
	}
	defer s.releaseIfTransient(vb)

	req := join.Request{DataA: va.Data(), DataB: vb.Data()}
	if aPos != "" {
		p, ok := s.hs.LookupPositions(aPos)
		if !ok {
			return dberr.New(dberr.HandleNotFound, "no position-vector handle named %s", aPos)
		}
		req.PosA = p.Indices()
		if req.PosA == nil {
			req.PosA = []int{}
		}
	}
	if bPos != "" {
		p, ok := s.hs.LookupPositions(bPos)
		if !ok {
			return dberr.New(dberr.HandleNotFound, "no position-vector handle named %s", bPos)
		}
		req.PosB = p.Indices()
		if req.PosB == nil {
			req.PosB = []int{}
		}
	}

	var res join.Result
	switch kind {
	case JoinNestedLoop:
		res = join.NestedLoop(req)
	case JoinNaiveHash:
		res = join.NaiveHash(req)
	case JoinRadixHash:
		res = join.RadixHash(req, s.eng.Pool)
	default:
		res = join.Dispatch(req, s.eng.Pool)
	}

	s.hs.PutPositions(outA, vector.FromIndices(res.OutA))
	s.hs.PutPositions(outB, vector.FromIndices(res.OutB))
	return nil
}

// PrintValues renders the named value-vectors (which must all share the
// same length) as CSV-like rows, one row per logical position.
func (s *Session) PrintValues(names []string) (string, error) {
	if err := s.requireNotBatching(); err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	vecs := make([]vector.Value, len(names))
	for i, name := range names {
		v, err := s.lookupValue(name)
		if err != nil {
			return "", err
		}
		vecs[i] = v
	}
	defer func() {
		for _, v := range vecs {
			s.releaseIfTransient(v)
		}
	}()

	n := vecs[0].Len()
	for _, v := range vecs {
		if v.Len() != n {
			return "", dberr.New(dberr.InternalError, "print operands have different lengths")
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(names, ","))
	sb.WriteByte('\n')
	for row := 0; row < n; row++ {
		for i, v := range vecs {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(int64(v.Data()[row]), 10))
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// PrintNumerics renders the named numeric handles as a comma-separated
// list, floats formatted with two decimals, per spec.md §4.K.
func (s *Session) PrintNumerics(names []string) (string, error) {
	if err := s.requireNotBatching(); err != nil {
		return "", err
	}
	parts := make([]string, len(names))
	for i, name := range names {
		n, ok := s.hs.LookupNumeric(name)
		if !ok {
			return "", dberr.New(dberr.HandleNotFound, "no numeric handle named %s", name)
		}
		if n.Kind == vector.F64 {
			parts[i] = fmt.Sprintf("%.2f", n.F)
		} else {
			parts[i] = strconv.FormatInt(n.I, 10)
		}
	}
	return strings.Join(parts, ","), nil
}
