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

// Package sortutil implements the sort primitives over column data: an
// in-place quicksort, argsort (sorting a permutation rather than the data),
// and 2-way/k-way (arg-)merge of adjacent sorted runs.
//
// The partitioning scheme is grounded on the teacher's
// internal/sort.scalarPartitionAscUint64 two-cursor swap loop, generalized
// here from a fixed uint64 key type to int32 column values and extended
// with median-of-three pivot selection, an explicit stack instead of
// recursion, and an insertion-sort cutoff for small partitions, per the
// spec's requirements.
package sortutil

import "golang.org/x/exp/constraints"

// insertionCutoff is the partition size below which insertion sort is used
// instead of recursing further.
const insertionCutoff = 15

type frame struct{ lo, hi int }

// Sort sorts a ascending in place. Not stable.
func Sort[T constraints.Ordered](a []T) {
	quicksort(len(a),
		func(i int) T { return a[i] },
		func(i, j int) { a[i], a[j] = a[j], a[i] })
}

// Argsort fills perm with a permutation of [0, len(a)) such that a[perm[i]]
// is ascending in i. perm must already have length len(a); its initial
// contents are overwritten.
func Argsort[T constraints.Ordered](a []T, perm []int) {
	for i := range perm {
		perm[i] = i
	}
	quicksort(len(perm),
		func(i int) T { return a[perm[i]] },
		func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
}

// quicksort is a median-of-three quicksort with an explicit stack (no
// recursion) over indices [0, n), falling back to insertion sort once a
// partition is small. keyAt reads the current key at a logical index (which
// may be indirected through a permutation); swap exchanges two logical
// indices in whatever the caller is permuting.
func quicksort[T constraints.Ordered](n int, keyAt func(i int) T, swap func(i, j int)) {
	if n < 2 {
		return
	}
	stack := []frame{{0, n - 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lo, hi := f.lo, f.hi
		for hi-lo+1 > insertionCutoff {
			pivot := medianOfThree(keyAt(lo), keyAt(lo+(hi-lo)/2), keyAt(hi))
			i, j := lo, hi
			for i <= j {
				for keyAt(i) < pivot {
					i++
				}
				for keyAt(j) > pivot {
					j--
				}
				if i <= j {
					swap(i, j)
					i++
					j--
				}
			}
			// Push the larger side onto the stack and loop into the
			// smaller side directly, to bound stack depth to O(log n).
			if j-lo < hi-i {
				if i < hi {
					stack = append(stack, frame{i, hi})
				}
				hi = j
			} else {
				if lo < j {
					stack = append(stack, frame{lo, j})
				}
				lo = i
			}
		}
		insertionSort(lo, hi, keyAt, swap)
	}
}

func medianOfThree[T constraints.Ordered](a, b, c T) T {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

func insertionSort[T constraints.Ordered](lo, hi int, keyAt func(i int) T, swap func(i, j int)) {
	for i := lo + 1; i <= hi; i++ {
		for j := i; j > lo && keyAt(j) < keyAt(j-1); j-- {
			swap(j, j-1)
		}
	}
}
