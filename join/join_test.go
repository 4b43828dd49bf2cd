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

package join

import (
	"sort"
	"testing"

	"github.com/coldb-project/coldb/workerpool"
)

func pairsOf(res Result) [][2]int {
	pairs := make([][2]int, len(res.OutA))
	for i := range res.OutA {
		pairs[i] = [2]int{res.OutA[i], res.OutB[i]}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

func TestNestedLoopBasicEquiJoin(t *testing.T) {
	req := Request{
		DataA: []int32{1, 2, 3},
		DataB: []int32{3, 2, 2, 4},
	}
	got := pairsOf(NestedLoop(req))
	want := [][2]int{{1, 1}, {1, 2}, {2, 0}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNaiveHashMatchesNestedLoop(t *testing.T) {
	req := Request{
		DataA: []int32{5, 1, 1, 9, 3},
		DataB: []int32{1, 3, 3, 7},
	}
	wantPairs := pairsOf(NestedLoop(req))
	gotPairs := pairsOf(NaiveHash(req))
	if len(gotPairs) != len(wantPairs) {
		t.Fatalf("naive hash got %v, want %v", gotPairs, wantPairs)
	}
	for i := range wantPairs {
		if gotPairs[i] != wantPairs[i] {
			t.Fatalf("naive hash got %v, want %v", gotPairs, wantPairs)
		}
	}
}

func TestNaiveHashWithPositionVectors(t *testing.T) {
	dataA := []int32{100, 1, 100, 2}
	dataB := []int32{200, 1, 2, 300}
	posA := []int{1, 3} // logical values [1, 2]
	posB := []int{1, 2} // logical values [1, 2]
	req := Request{DataA: dataA, PosA: posA, DataB: dataB, PosB: posB}
	got := pairsOf(NaiveHash(req))
	want := [][2]int{{1, 1}, {3, 2}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRadixHashMatchesNaiveHash(t *testing.T) {
	n := 5000
	dataA := make([]int32, n)
	dataB := make([]int32, n)
	for i := range dataA {
		dataA[i] = int32(i % 37)
		dataB[i] = int32((i * 3) % 37)
	}
	req := Request{DataA: dataA, DataB: dataB}

	want := pairsOf(NaiveHash(req))

	pool := workerpool.New(4, 64)
	defer pool.Close()
	got := pairsOf(RadixHash(req, pool))

	if len(got) != len(want) {
		t.Fatalf("radix hash len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("radix hash mismatch at %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestDispatchPicksNaiveBelowThresholdRadixAbove(t *testing.T) {
	small := Request{DataA: []int32{1, 2}, DataB: []int32{2, 3}}
	got := pairsOf(Dispatch(small, nil))
	want := [][2]int{{1, 0}}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("small dispatch = %v, want %v", got, want)
	}

	n := NaiveHashThreshold + 1
	dataA := make([]int32, n)
	dataB := make([]int32, 1)
	dataB[0] = 0
	req := Request{DataA: dataA, DataB: dataB}
	res := Dispatch(req, nil)
	if len(res.OutA) != n {
		t.Fatalf("large dispatch matched %d rows, want %d", len(res.OutA), n)
	}
}
