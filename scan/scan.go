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

// Package scan implements the shared scan kernel: one linear pass over a
// value-vector, optionally restricted by a position-vector, evaluating N
// range-selects plus up to one each of min/max/sum, fused into a single
// pass and chunked across the worker pool. Grounded on spec.md §4.H and
// original_source/src/include/scan.h's ScanContext/SharedScanTaskData
// (lower_bound_arr/upper_bound_arr, flattened selected-indices output,
// min_result/max_result/sum_result accumulators).
package scan

import (
	"math"

	"github.com/coldb-project/coldb/workerpool"
)

// AggFlag is the {MIN, MAX, SUM} bit-flag selecting which aggregates a
// shared scan computes, per scan.h's "flags" parameter.
type AggFlag int

const (
	Min AggFlag = 1 << iota
	Max
	Sum
)

// Has reports whether flag bit f is set.
func (a AggFlag) Has(f AggFlag) bool { return a&f != 0 }

// NumPagesPerScanTask is the target chunk granularity in memory pages,
// grounded on original_source/src/include/consts.h's
// NUM_PAGES_PER_SCAN_TASK.
const NumPagesPerScanTask = 32

// pageSize matches the common Linux default (getpagesize() in the C
// reference); rows-per-chunk is derived from it and the 4-byte element
// width.
const pageSize = 4096

const rowsPerChunk = NumPagesPerScanTask * pageSize / 4

// Range is a half-open [Lo, Hi) bound. Unbounded ends are represented by
// math.MinInt64 / math.MaxInt64, matching the external NULL-as-LONG_MIN/
// LONG_MAX contract of spec.md §4.H.
type Range struct {
	Lo, Hi int64
}

// NoLowerBound and NoUpperBound are the sentinel Range ends for an
// unbounded select.
const (
	NoLowerBound = math.MinInt64
	NoUpperBound = math.MaxInt64
)

// Request bundles a shared scan's inputs: the value-vector's live data, an
// optional position-vector restricting which elements are visited (nil
// means "all of data in order"), the set of range-selects to evaluate, and
// which aggregates to compute.
type Request struct {
	Data       []int32
	Positions  []int // optional
	Ranges     []Range
	Aggregates AggFlag
}

// Result holds a shared scan's outputs: one owned index-array per
// requested Range (in the same order), and the aggregate accumulators
// (valid only if the corresponding AggFlag bit was requested).
type Result struct {
	Selects [][]int

	Min, Max int32
	Sum      int64
	HasMin   bool
	HasMax   bool
}

// domainLen is the number of logical positions the scan iterates: either
// len(Positions) (posvec-restricted) or len(Data) (unrestricted).
func (r Request) domainLen() int {
	if r.Positions != nil {
		return len(r.Positions)
	}
	return len(r.Data)
}

// valueAt returns the i-th logical value in scan order, indirecting
// through Positions if present.
func (r Request) valueAt(i int) int32 {
	if r.Positions != nil {
		return r.Data[r.Positions[i]]
	}
	return r.Data[i]
}

// outputIndexAt returns the row index that a qualifying i-th logical
// position should contribute to a select's output: the position itself
// when posvec-restricted (preserving pos's input order per §4.H), or the
// plain index when unrestricted.
func (r Request) outputIndexAt(i int) int {
	if r.Positions != nil {
		return r.Positions[i]
	}
	return i
}

// Run executes a shared scan. If pool is non-nil and the domain is large
// enough to be worth chunking, the pass is parallelized via the worker
// pool's completion barrier; each chunk accumulates into a private partial
// result, and the driver concatenates/combines them in chunk order
// (preserving the ordering guarantees of spec.md §5).
func Run(req Request, pool *workerpool.Pool) Result {
	n := req.domainLen()
	if n == 0 {
		return emptyResult(len(req.Ranges))
	}
	if pool == nil || n <= rowsPerChunk {
		return scanRange(req, 0, n)
	}

	nChunks := (n + rowsPerChunk - 1) / rowsPerChunk
	partials := make([]Result, nChunks)
	tasks := make([]workerpool.Task, nChunks)
	for c := 0; c < nChunks; c++ {
		start := c * rowsPerChunk
		end := start + rowsPerChunk
		if end > n {
			end = n
		}
		idx := c
		tasks[idx] = workerpool.Task{Kind: workerpool.Scan, Run: func() {
			partials[idx] = scanRange(req, start, end)
		}}
	}
	pool.Barrier(tasks)

	return combine(partials, req.Aggregates)
}

// scanRange evaluates the full request over logical positions [start, end).
func scanRange(req Request, start, end int) Result {
	res := emptyResult(len(req.Ranges))
	for i := start; i < end; i++ {
		v := req.valueAt(i)
		for ri, rg := range req.Ranges {
			if int64(v) >= rg.Lo && int64(v) < rg.Hi {
				res.Selects[ri] = append(res.Selects[ri], req.outputIndexAt(i))
			}
		}
		if req.Aggregates.Has(Min) {
			if !res.HasMin || v < res.Min {
				res.Min = v
				res.HasMin = true
			}
		}
		if req.Aggregates.Has(Max) {
			if !res.HasMax || v > res.Max {
				res.Max = v
				res.HasMax = true
			}
		}
		if req.Aggregates.Has(Sum) {
			res.Sum += int64(v)
		}
	}
	return res
}

func emptyResult(nRanges int) Result {
	return Result{Selects: make([][]int, nRanges)}
}

// combine merges per-chunk partials in chunk order: selects concatenate
// (preserving ascending/posvec-input order across chunk boundaries), and
// min/max/sum fold pairwise.
func combine(partials []Result, aggregates AggFlag) Result {
	out := emptyResult(len(partials[0].Selects))
	for _, p := range partials {
		for ri := range out.Selects {
			out.Selects[ri] = append(out.Selects[ri], p.Selects[ri]...)
		}
		if aggregates.Has(Min) && p.HasMin {
			if !out.HasMin || p.Min < out.Min {
				out.Min = p.Min
				out.HasMin = true
			}
		}
		if aggregates.Has(Max) && p.HasMax {
			if !out.HasMax || p.Max > out.Max {
				out.Max = p.Max
				out.HasMax = true
			}
		}
		if aggregates.Has(Sum) {
			out.Sum += p.Sum
		}
	}
	return out
}
