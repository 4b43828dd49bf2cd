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

package sortutil

import "golang.org/x/exp/constraints"

// Merge merges the two adjacent ascending runs a[:mid] and a[mid:] into a
// single ascending run in place. It copies only the smaller of the two runs
// into an auxiliary buffer to halve peak extra memory.
func Merge[T constraints.Ordered](a []T, mid int) {
	left, right := a[:mid], a[mid:]
	if len(left) <= len(right) {
		aux := append([]T(nil), left...)
		mergeInto(a, aux, right)
	} else {
		aux := append([]T(nil), right...)
		mergeFromRight(a, left, aux)
	}
}

// mergeInto merges aux (a copy of the original left run) with right (still
// living in place at the tail of a) back into a, writing from the front.
func mergeInto[T constraints.Ordered](a []T, aux []T, right []T) {
	i, j, k := 0, 0, 0
	for i < len(aux) && j < len(right) {
		if aux[i] <= right[j] {
			a[k] = aux[i]
			i++
		} else {
			a[k] = right[j]
			j++
		}
		k++
	}
	for i < len(aux) {
		a[k] = aux[i]
		i++
		k++
	}
	// any remaining right[j:] elements are already in place.
}

// mergeFromRight merges left (still living in place at the head of a) with
// aux (a copy of the original right run) back into a, writing from the back.
func mergeFromRight[T constraints.Ordered](a []T, left []T, aux []T) {
	i, j, k := len(left)-1, len(aux)-1, len(a)-1
	for i >= 0 && j >= 0 {
		if left[i] > aux[j] {
			a[k] = left[i]
			i--
		} else {
			a[k] = aux[j]
			j--
		}
		k--
	}
	for j >= 0 {
		a[k] = aux[j]
		j--
		k--
	}
	// any remaining left[:i+1] elements are already in place.
}

// AMerge merges the two adjacent ascending runs perm[:mid] and perm[mid:]
// (ascending with respect to a[perm[i]]) into a single ascending run, in
// place in perm.
func AMerge[T constraints.Ordered](a []T, perm []int, mid int) {
	left := append([]int(nil), perm[:mid]...)
	right := perm[mid:]
	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if a[left[i]] <= a[right[j]] {
			perm[k] = left[i]
			i++
		} else {
			perm[k] = right[j]
			j++
		}
		k++
	}
	for i < len(left) {
		perm[k] = left[i]
		i++
		k++
	}
}

// KMerge merges n >= 1 adjacent ascending runs of a, described by bounds
// (bounds[0]=0 < bounds[1] < ... < bounds[len(bounds)-1]=len(a)), into a
// single ascending run, via divide-and-conquer: the run list is split in
// half, each half is recursively merged down to one run, then the two
// resulting runs are 2-way merged.
func KMerge[T constraints.Ordered](a []T, bounds []int) {
	if len(bounds) <= 2 {
		return
	}
	kMergeRange(a, bounds, 0, len(bounds)-1)
}

// kMergeRange merges runs bounds[lo:hi+1] describing a[bounds[lo]:bounds[hi]].
func kMergeRange[T constraints.Ordered](a []T, bounds []int, lo, hi int) {
	if hi-lo <= 1 {
		return
	}
	mid := lo + (hi-lo)/2
	kMergeRange(a, bounds, lo, mid)
	kMergeRange(a, bounds, mid, hi)
	Merge(a[bounds[lo]:bounds[hi]], bounds[mid]-bounds[lo])
}

// AKMerge is the argsort analogue of KMerge: it merges n >= 1 adjacent
// ascending (with respect to a[perm[i]]) runs of perm described by bounds,
// via the same divide-and-conquer halving.
func AKMerge[T constraints.Ordered](a []T, perm []int, bounds []int) {
	if len(bounds) <= 2 {
		return
	}
	aKMergeRange(a, perm, bounds, 0, len(bounds)-1)
}

func aKMergeRange[T constraints.Ordered](a []T, perm []int, bounds []int, lo, hi int) {
	if hi-lo <= 1 {
		return
	}
	mid := lo + (hi-lo)/2
	aKMergeRange(a, perm, bounds, lo, mid)
	aKMergeRange(a, perm, bounds, mid, hi)
	AMerge(a, perm[bounds[lo]:bounds[hi]], bounds[mid]-bounds[lo])
}
