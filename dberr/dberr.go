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

// Package dberr defines the single status taxonomy returned by every
// fallible operation in the engine: schema errors, resource errors,
// concurrency/config errors, and internal errors.
package dberr

import "fmt"

// Code is a status code from the taxonomy in SPEC_FULL.md §7.
type Code int

const (
	OK Code = iota

	// Schema errors.
	DatabaseAlreadyExists
	DatabaseNotExist
	TableAlreadyExists
	TableNotExist
	TableFull
	TableNotFull
	ColumnAlreadyExists
	ColumnNotExist
	IndexAlreadyExists
	ClusteredIndexAlreadyExists
	VarNoTable
	VarNoColumn
	CSVInvalidHeader
	Overflow
	BatchingError
	HandleNotFound

	// Resource errors.
	AllocFailed
	ExpandFailed
	ShrinkFailed
	ReallocFailed

	// Concurrency/config errors.
	ParallelNotInitialized

	// Internal errors.
	InternalError
)

var strs = map[Code]string{
	OK:                          "ok",
	DatabaseAlreadyExists:       "database already exists",
	DatabaseNotExist:            "database does not exist",
	TableAlreadyExists:          "table already exists",
	TableNotExist:               "table does not exist",
	TableFull:                   "table has no more capacity for new columns",
	TableNotFull:                "table does not have all columns initialized",
	ColumnAlreadyExists:         "column already exists",
	ColumnNotExist:              "column does not exist",
	IndexAlreadyExists:          "index already exists on column",
	ClusteredIndexAlreadyExists: "clustered index already exists on table",
	VarNoTable:                  "variable does not reference a table",
	VarNoColumn:                 "variable does not reference a column",
	CSVInvalidHeader:            "CSV header does not match table columns",
	Overflow:                    "value overflows a 32-bit integer column",
	BatchingError:               "operator is not valid inside an open batch",
	HandleNotFound:              "handle not found",
	AllocFailed:                 "memory allocation failed",
	ExpandFailed:                "failed to expand table capacity",
	ShrinkFailed:                "failed to shrink table capacity",
	ReallocFailed:               "failed to reallocate buffer",
	ParallelNotInitialized:      "parallel execution requested but no worker pool initialized",
	InternalError:               "internal error",
}

// String implements fmt.Stringer, matching the teacher's format_status
// equivalent of mapping every status to a short human-readable string.
func (c Code) String() string {
	if s, ok := strs[c]; ok {
		return s
	}
	return "unknown status"
}

// Error is a Code paired with optional operation-specific detail.
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// New constructs an *Error for the given code with a formatted detail.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Is reports whether err is itself a *Error carrying the given code, so
// callers can branch on the taxonomy. Wrapped errors are not unwrapped.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
