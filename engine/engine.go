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

// Package engine implements the operator algebra (spec.md §4.K) executed
// against the storage/colindex/handle/scan/join/workerpool layers: the
// twelve operator kinds, the session-scoped batch context, and
// catalog/session lifecycle (spec.md §4.L).
package engine

import (
	"strings"

	"github.com/coldb-project/coldb/colindex"
	"github.com/coldb-project/coldb/dberr"
	"github.com/coldb-project/coldb/handle"
	"github.com/coldb-project/coldb/storage"
	"github.com/coldb-project/coldb/workerpool"
)

// Engine is the process-singleton database plus its worker pool; Launch
// reconstructs it from a persistence directory (spec.md §4.L).
type Engine struct {
	DB   *storage.Database
	Pool *workerpool.Pool
	Dir  string
}

// Launch reads the catalog from dir (if present) and remaps/reinitializes
// every column's index with skip_sort=true, per spec.md §4.L. If no
// catalog exists, DB is nil until CreateDatabase is called.
func Launch(dir string, numWorkers int) (*Engine, error) {
	db, err := storage.Launch(dir)
	if err != nil {
		return nil, err
	}
	pool := workerpool.New(numWorkers, workerpool.DefaultQueueDepth)

	e := &Engine{DB: db, Pool: pool, Dir: dir}
	if db == nil {
		return e, nil
	}
	for _, t := range db.Tables {
		for _, c := range t.Columns {
			if err := colindex.Init(t, c, true); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

// Shutdown persists the schema and releases the worker pool, per spec.md
// §4.L: "write catalog; unmap all columns; free schema."
func (e *Engine) Shutdown() error {
	e.Pool.Close()
	if e.DB == nil {
		return nil
	}
	return storage.Shutdown(e.DB)
}

// CreateDatabase replaces (or creates) the engine's database, per spec.md
// §4.K: "Creating a database when one exists deletes the prior persistence
// directory contents."
func (e *Engine) CreateDatabase(name string) error {
	db, err := storage.CreateDatabase(e.Dir, name)
	if err != nil {
		return err
	}
	e.DB = db
	return nil
}

// splitQualified splits a "table.column" variable name into its parts, per
// spec.md §7's "variable name lacks required table/column qualifier"
// schema error.
func splitQualified(name string) (table, column string, ok bool) {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// Session is a per-connection client context: a handle pool bound to this
// engine's catalog, plus the session's batch context. Per spec.md §5,
// operators within a session execute sequentially and cross-session
// mutation is not serialized (single-session assumption).
type Session struct {
	eng   *Engine
	hs    *handle.Session
	batch *batchContext
	load  *loadState
}

// NewSession opens a session whose handle-pool value lookups fall back to
// resolving "table.column" names against the engine's live catalog.
func (e *Engine) NewSession() *Session {
	s := &Session{eng: e}
	s.hs = handle.NewSession(s.resolveColumn)
	return s
}

// Engine returns the session's owning engine, letting a transport-layer
// dispatcher reach engine-scoped operators (e.g. CreateDatabase) that are
// not otherwise exposed as Session methods.
func (s *Session) Engine() *Engine { return s.eng }

func (s *Session) resolveColumn(name string) (*storage.Column, int, bool) {
	table, column, ok := splitQualified(name)
	if !ok || s.eng.DB == nil {
		return nil, 0, false
	}
	t := s.eng.DB.Table(table)
	if t == nil {
		return nil, 0, false
	}
	c := t.Column(column)
	if c == nil {
		return nil, 0, false
	}
	return c, t.NRows, true
}

// requireDatabase returns a DatabaseNotExist error if no database is open.
func (s *Session) requireDatabase() error {
	if s.eng.DB == nil {
		return dberr.New(dberr.DatabaseNotExist, "no database is open")
	}
	return nil
}

// requireTable looks up a table by name, requiring it to exist.
func (s *Session) requireTable(name string) (*storage.Table, error) {
	if err := s.requireDatabase(); err != nil {
		return nil, err
	}
	t := s.eng.DB.Table(name)
	if t == nil {
		return nil, dberr.New(dberr.TableNotExist, "table %s does not exist", name)
	}
	return t, nil
}
