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

// Package search implements left/right-aligned binary search over a sorted
// []int32, directly or through an argsort permutation.
package search

import "math"

// Left returns the lowest index i such that arr[i-1] < key <= arr[i] over
// the ascending-sorted arr. A key smaller than every element returns 0; a
// key larger than every element returns len(arr).
func Left(arr []int32, key int64) int {
	if key <= math.MinInt32 {
		return 0
	}
	if key > math.MaxInt32 {
		return len(arr)
	}
	lo, hi := 0, len(arr)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if int64(arr[mid]) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Right returns the lowest index i such that arr[i-1] <= key < arr[i] over
// the ascending-sorted arr. A key smaller than every element returns 0; a
// key larger than every element returns len(arr).
func Right(arr []int32, key int64) int {
	if key < math.MinInt32 {
		return 0
	}
	if key >= math.MaxInt32 {
		return len(arr)
	}
	lo, hi := 0, len(arr)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if int64(arr[mid]) <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// ALeft is Left indirected through perm: the key is compared against
// arr[perm[i]] instead of arr[i] directly, so perm need not be materialized
// into a reordered copy of arr.
func ALeft(arr []int32, perm []int, key int64) int {
	if key <= math.MinInt32 {
		return 0
	}
	if key > math.MaxInt32 {
		return len(perm)
	}
	lo, hi := 0, len(perm)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if int64(arr[perm[mid]]) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// ARight is Right indirected through perm, analogous to ALeft.
func ARight(arr []int32, perm []int, key int64) int {
	if key < math.MinInt32 {
		return 0
	}
	if key >= math.MaxInt32 {
		return len(perm)
	}
	lo, hi := 0, len(perm)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if int64(arr[perm[mid]]) <= key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
