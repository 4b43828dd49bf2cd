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

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/engine"
	"github.com/coldb-project/coldb/storage"
	"github.com/coldb-project/coldb/wire"
)

// dispatch executes one decoded frame against sess, returning the response
// frame to write back. Field layouts (documented per Kind below) are this
// implementation's choice of wire.EncodeFields grammar: spec.md §6 leaves
// the payload grammar unconstrained, so cmd/coldb and cmd/coldbd only need
// to agree with each other.
func dispatch(sess *engine.Session, f wire.Frame) wire.Frame {
	resp, err := dispatchErr(sess, f.Kind, wire.DecodeFields(f.Payload))
	if err != nil {
		return wire.ErrorFrame(err)
	}
	return wire.OK(resp)
}

func dispatchErr(sess *engine.Session, kind wire.Kind, fields []string) (string, error) {
	ok := func(s string) (string, error) { return s, nil }
	switch kind {
	case wire.KindAttach:
		return ok("")

	case wire.KindCreateDatabase:
		if len(fields) != 1 {
			return "", dberr.New(dberr.InternalError, "create-database: expected 1 field, got %d", len(fields))
		}
		if err := sess.Engine().CreateDatabase(fields[0]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindCreateTable:
		if len(fields) != 2 {
			return "", dberr.New(dberr.InternalError, "create-table: expected 2 fields, got %d", len(fields))
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return "", dberr.New(dberr.InternalError, "create-table: bad column count %q", fields[1])
		}
		if err := sess.CreateTable(fields[0], n); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindCreateColumn:
		if len(fields) != 2 {
			return "", dberr.New(dberr.InternalError, "create-column: expected 2 fields, got %d", len(fields))
		}
		if err := sess.CreateColumn(fields[0], fields[1]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindCreateIndex:
		if len(fields) != 3 {
			return "", dberr.New(dberr.InternalError, "create-index: expected 3 fields, got %d", len(fields))
		}
		it, err := parseIndexType(fields[2])
		if err != nil {
			return "", err
		}
		if err := sess.CreateIndex(fields[0], fields[1], it); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindInsert:
		if len(fields) < 1 {
			return "", dberr.New(dberr.InternalError, "insert: missing table name")
		}
		row, err := parseInt32s(fields[1:])
		if err != nil {
			return "", err
		}
		if err := sess.Insert(fields[0], row); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindLoadHeader:
		if len(fields) < 1 {
			return "", dberr.New(dberr.InternalError, "load-header: missing table name")
		}
		if err := sess.LoadHeader(fields[0], fields[1:]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindLoadRows:
		rows, err := parseRowMatrix(fields)
		if err != nil {
			return "", err
		}
		if err := sess.LoadRows(rows); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindLoadConclude:
		if err := sess.LoadConclude(); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindDelete:
		if len(fields) < 1 {
			return "", dberr.New(dberr.InternalError, "delete: missing table name")
		}
		positions, err := parseInts(fields[1:])
		if err != nil {
			return "", err
		}
		if err := sess.Delete(fields[0], positions); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindUpdate:
		if len(fields) < 3 {
			return "", dberr.New(dberr.InternalError, "update: expected at least 3 fields")
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", dberr.New(dberr.InternalError, "update: bad row count %q", fields[2])
		}
		if len(fields) != 3+2*n {
			return "", dberr.New(dberr.InternalError, "update: field count does not match row count %d", n)
		}
		positions, err := parseInts(fields[3 : 3+n])
		if err != nil {
			return "", err
		}
		values, err := parseInt32s(fields[3+n : 3+2*n])
		if err != nil {
			return "", err
		}
		if err := sess.Update(fields[0], fields[1], positions, values); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindSelect:
		if len(fields) != 5 {
			return "", dberr.New(dberr.InternalError, "select: expected 5 fields, got %d", len(fields))
		}
		lo, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return "", dberr.New(dberr.InternalError, "select: bad lo %q", fields[3])
		}
		hi, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return "", dberr.New(dberr.InternalError, "select: bad hi %q", fields[4])
		}
		if err := sess.Select(fields[0], fields[1], fields[2], lo, hi); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindFetch:
		if len(fields) != 3 {
			return "", dberr.New(dberr.InternalError, "fetch: expected 3 fields, got %d", len(fields))
		}
		if err := sess.Fetch(fields[0], fields[1], fields[2]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindAggregate:
		if len(fields) != 3 {
			return "", dberr.New(dberr.InternalError, "aggregate: expected 3 fields, got %d", len(fields))
		}
		kind, err := parseAggKind(fields[1])
		if err != nil {
			return "", err
		}
		if err := sess.Aggregate(fields[0], kind, fields[2]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindAddSub:
		if len(fields) != 4 {
			return "", dberr.New(dberr.InternalError, "addsub: expected 4 fields, got %d", len(fields))
		}
		if err := sess.AddSub(fields[0], fields[1], fields[2] == "sub", fields[3]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindJoin:
		if len(fields) != 7 {
			return "", dberr.New(dberr.InternalError, "join: expected 7 fields, got %d", len(fields))
		}
		kind, err := parseJoinKind(fields[4])
		if err != nil {
			return "", err
		}
		if err := sess.Join(fields[0], fields[1], fields[2], fields[3], kind, fields[5], fields[6]); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindPrint:
		if len(fields) < 1 {
			return "", dberr.New(dberr.InternalError, "print: missing mode field")
		}
		switch fields[0] {
		case "values":
			s, err := sess.PrintValues(fields[1:])
			if err != nil {
				return "", err
			}
			return ok(s)
		case "numerics":
			s, err := sess.PrintNumerics(fields[1:])
			if err != nil {
				return "", err
			}
			return ok(s)
		default:
			return "", dberr.New(dberr.InternalError, "print: unknown mode %q", fields[0])
		}

	case wire.KindBatchOpen:
		if err := sess.BatchOpen(); err != nil {
			return "", err
		}
		return ok("")

	case wire.KindBatchClose:
		if err := sess.BatchClose(); err != nil {
			return "", err
		}
		return ok("")

	default:
		return "", dberr.New(dberr.InternalError, "unknown frame kind %d", kind)
	}
}

func parseIndexType(s string) (storage.IndexType, error) {
	switch s {
	case "none":
		return storage.IndexNone, nil
	case "unclustered-sorted":
		return storage.IndexUnclusteredSorted, nil
	case "unclustered-btree":
		return storage.IndexUnclusteredBTree, nil
	case "clustered-sorted":
		return storage.IndexClusteredSorted, nil
	case "clustered-btree":
		return storage.IndexClusteredBTree, nil
	default:
		return 0, dberr.New(dberr.InternalError, "unknown index type %q", s)
	}
}

func parseAggKind(s string) (engine.AggKind, error) {
	switch s {
	case "min":
		return engine.AggMin, nil
	case "max":
		return engine.AggMax, nil
	case "sum":
		return engine.AggSum, nil
	case "avg":
		return engine.AggAvg, nil
	default:
		return 0, dberr.New(dberr.InternalError, "unknown aggregate kind %q", s)
	}
}

func parseJoinKind(s string) (engine.JoinKind, error) {
	switch s {
	case "auto":
		return engine.JoinAuto, nil
	case "nested-loop":
		return engine.JoinNestedLoop, nil
	case "naive-hash":
		return engine.JoinNaiveHash, nil
	case "radix-hash":
		return engine.JoinRadixHash, nil
	default:
		return 0, dberr.New(dberr.InternalError, "unknown join kind %q", s)
	}
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, dberr.New(dberr.InternalError, "bad integer %q", f)
		}
		out[i] = n
	}
	return out, nil
}

func parseInt32s(fields []string) ([]int32, error) {
	out := make([]int32, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return nil, dberr.New(dberr.Overflow, "%q", f)
			}
			return nil, dberr.New(dberr.InternalError, "bad integer %q", f)
		}
		out[i] = int32(n)
	}
	return out, nil
}

// parseRowMatrix decodes a KindLoadRows payload: rowCount, colCount, then
// rowCount*colCount values in row-major order.
func parseRowMatrix(fields []string) ([][]int32, error) {
	if len(fields) < 2 {
		return nil, dberr.New(dberr.InternalError, "load-rows: expected at least 2 fields")
	}
	rowCount, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, dberr.New(dberr.InternalError, "load-rows: bad row count %q", fields[0])
	}
	colCount, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, dberr.New(dberr.InternalError, "load-rows: bad column count %q", fields[1])
	}
	want := 2 + rowCount*colCount
	if len(fields) != want {
		return nil, fmt.Errorf("load-rows: expected %d fields, got %d", want, len(fields))
	}
	values, err := parseInt32s(fields[2:])
	if err != nil {
		return nil, err
	}
	rows := make([][]int32, rowCount)
	for r := 0; r < rowCount; r++ {
		rows[r] = values[r*colCount : (r+1)*colCount]
	}
	return rows, nil
}
