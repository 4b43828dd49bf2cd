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
	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/scan"
	"github.com/coldb-project/coldb/vector"
)

// batchEntryKind tags a queued batch entry as a select or an aggregate.
type batchEntryKind int

const (
	batchSelect batchEntryKind = iota
	batchAggregate
)

type batchEntry struct {
	kind    batchEntryKind
	lo, hi  int64   // batchSelect only
	aggKind AggKind // batchAggregate only
	out     string
}

// batchContext accumulates select and aggregate operators sharing a
// (valvec, posvec) pair, per spec.md §4.K, fusing them into one scan.Run
// call on BatchClose.
type batchContext struct {
	open    bool
	valvec  vector.Value
	havePos bool
	posName string
	posvec  vector.Positions
	entries []batchEntry
}

func (s *Session) requireNotBatching() error {
	if s.batch != nil && s.batch.open {
		return dberr.New(dberr.BatchingError, "operator is not valid inside an open batch")
	}
	return nil
}

// BatchOpen activates batch accumulation for subsequent Select/Aggregate
// calls on this session, per spec.md §4.K.
func (s *Session) BatchOpen() error {
	if s.batch != nil && s.batch.open {
		return dberr.New(dberr.BatchingError, "a batch is already open")
	}
	s.batch = &batchContext{open: true}
	return nil
}

// batchSelect enforces the batch compatibility rule for a select joining
// an open batch: the value-vector must match the shared one (installed by
// the first batched operator), and the position-vector must match unless
// the batch so far contains only aggregates, in which case this select's
// posvec becomes the shared one.
func (s *Session) batchSelect(src, pos, out string, lo, hi int64) error {
	b := s.batch
	v, err := s.lookupValue(src)
	if err != nil {
		return err
	}

	var posvec vector.Positions
	if pos != "" {
		p, ok := s.hs.LookupPositions(pos)
		if !ok {
			return dberr.New(dberr.HandleNotFound, "no position-vector handle named %s", pos)
		}
		posvec = p
	}

	if len(b.entries) == 0 {
		b.valvec = v
		if pos != "" {
			b.havePos = true
			b.posName = pos
			b.posvec = posvec
		}
	} else {
		if !vector.SameSource(b.valvec, v) {
			return dberr.New(dberr.BatchingError, "select's value-vector does not match the batch's shared value-vector")
		}
		switch {
		case pos == "" && b.havePos:
			return dberr.New(dberr.BatchingError, "select's position-vector does not match the batch's shared position-vector")
		case pos != "" && !b.havePos:
			if hasSelectEntry(b.entries) {
				return dberr.New(dberr.BatchingError, "select's position-vector does not match the batch's shared position-vector")
			}
			b.havePos = true
			b.posName = pos
			b.posvec = posvec
		case pos != "" && b.havePos && pos != b.posName:
			return dberr.New(dberr.BatchingError, "select's position-vector does not match the batch's shared position-vector")
		}
	}

	b.entries = append(b.entries, batchEntry{kind: batchSelect, lo: lo, hi: hi, out: out})
	return nil
}

func hasSelectEntry(entries []batchEntry) bool {
	for _, e := range entries {
		if e.kind == batchSelect {
			return true
		}
	}
	return false
}

// batchAggregate enforces the batch compatibility rule for an aggregate
// joining an open batch: only the shared value-vector must match; the
// position-vector is irrelevant to the check (it still applies to
// execution if the batch has one, per spec.md §8's shared-scan property).
func (s *Session) batchAggregate(src string, kind AggKind, out string) error {
	b := s.batch
	v, err := s.lookupValue(src)
	if err != nil {
		return err
	}
	if len(b.entries) == 0 {
		b.valvec = v
	} else if !vector.SameSource(b.valvec, v) {
		return dberr.New(dberr.BatchingError, "aggregate's value-vector does not match the batch's shared value-vector")
	}
	b.entries = append(b.entries, batchEntry{kind: batchAggregate, aggKind: kind, out: out})
	return nil
}

// BatchClose fuses every queued select/aggregate into a single scan.Run
// call over the batch's shared (valvec, posvec), writes each operator's
// result back into its named handle, and closes the batch.
func (s *Session) BatchClose() error {
	b := s.batch
	if b == nil || !b.open {
		return dberr.New(dberr.InternalError, "BatchClose called with no open batch")
	}
	s.batch = nil
	if len(b.entries) == 0 {
		return nil
	}
	defer s.releaseIfTransient(b.valvec)

	var ranges []scan.Range
	var selectOuts []string
	var aggEntries []batchEntry
	var flags scan.AggFlag
	for _, e := range b.entries {
		switch e.kind {
		case batchSelect:
			ranges = append(ranges, scan.Range{Lo: e.lo, Hi: e.hi})
			selectOuts = append(selectOuts, e.out)
		case batchAggregate:
			aggEntries = append(aggEntries, e)
			switch e.aggKind {
			case AggMin:
				flags |= scan.Min
			case AggMax:
				flags |= scan.Max
			case AggSum, AggAvg:
				flags |= scan.Sum
			}
		}
	}

	var positions []int
	if b.havePos {
		positions = b.posvec.Indices()
		if positions == nil {
			positions = []int{}
		}
	}
	res := scan.Run(scan.Request{Data: b.valvec.Data(), Positions: positions, Ranges: ranges, Aggregates: flags}, s.eng.Pool)

	for i, out := range selectOuts {
		s.hs.PutPositions(out, vector.FromIndices(res.Selects[i]))
	}

	n := b.valvec.Len()
	if b.havePos {
		n = len(positions)
	}
	for _, e := range aggEntries {
		switch e.aggKind {
		case AggMin:
			s.hs.PutNumeric(e.out, vector.NumericI32(res.Min))
		case AggMax:
			s.hs.PutNumeric(e.out, vector.NumericI32(res.Max))
		case AggSum:
			s.hs.PutNumeric(e.out, vector.NumericI64(res.Sum))
		case AggAvg:
			avg := 0.0
			if n > 0 {
				avg = float64(res.Sum) / float64(n)
			}
			s.hs.PutNumeric(e.out, vector.NumericF64(avg))
		}
	}
	return nil
}
