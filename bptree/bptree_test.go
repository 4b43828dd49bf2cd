package bptree

import (
	"math/rand"
	"sort"
	"testing"
)

func TestBuildAndRangeSearch(t *testing.T) {
	n := 2000
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(i)
	}
	tree := Build(data, nil, n)
	if tree.Size() != n {
		t.Fatalf("size = %d, want %d", tree.Size(), n)
	}
	got := tree.SearchRange(100, 250)
	if len(got) != 150 {
		t.Fatalf("range(100,250) len = %d, want 150", len(got))
	}
	for i, v := range got {
		if data[v] != int32(100+i) {
			t.Fatalf("range result out of order at %d: %d", i, data[v])
		}
	}
}

func TestBuildFromUnsortedWithSorter(t *testing.T) {
	n := 500
	rng := rand.New(rand.NewSource(7))
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(rng.Intn(1000))
	}
	sorter := make([]int, n)
	for i := range sorter {
		sorter[i] = i
	}
	sort.Slice(sorter, func(i, j int) bool { return data[sorter[i]] < data[sorter[j]] })

	tree := Build(data, sorter, n)
	lo, hi := int64(200), int64(400)
	got := tree.SearchRange(lo, hi)

	var want []int
	for i, v := range data {
		if int64(v) >= lo && int64(v) < hi {
			want = append(want, i)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("range len = %d, want %d", len(got), len(want))
	}
	gotSet := map[int]bool{}
	for _, v := range got {
		gotSet[v] = true
	}
	for _, v := range want {
		if !gotSet[v] {
			t.Fatalf("missing expected index %d in range result", v)
		}
	}
}

// Concrete scenario 2 from the spec: inserts (1,10),(2,20),(3,30),(3,31),
// (3,32),(4,40),(5,50); search_range(3,4) -> {30,31,32} in any order.
func TestInsertDuplicatesAndRangeScenario(t *testing.T) {
	tree := Build(nil, nil, 0)
	inserts := []struct {
		key   int32
		value int
	}{
		{1, 10}, {2, 20}, {3, 30}, {3, 31}, {3, 32}, {4, 40}, {5, 50},
	}
	for _, ins := range inserts {
		tree.Insert(ins.key, ins.value)
	}
	if tree.Size() != len(inserts) {
		t.Fatalf("size = %d, want %d", tree.Size(), len(inserts))
	}
	got := tree.SearchRange(3, 4)
	want := map[int]bool{30: true, 31: true, 32: true}
	if len(got) != 3 {
		t.Fatalf("search_range(3,4) = %v, want permutation of [30,31,32]", got)
	}
	for _, v := range got {
		if !want[v] {
			t.Fatalf("unexpected value %d in range result %v", v, got)
		}
		delete(want, v)
	}
	if len(want) != 0 {
		t.Fatalf("missing values from range result: %v", want)
	}
}

func TestInsertManySplitsAndStaysConsistent(t *testing.T) {
	n := 5000
	tree := Build(nil, nil, 0)
	rng := rand.New(rand.NewSource(11))
	values := make(map[int32][]int)
	for i := 0; i < n; i++ {
		key := int32(rng.Intn(300))
		tree.Insert(key, i)
		values[key] = append(values[key], i)
	}
	if tree.Size() != n {
		t.Fatalf("size = %d, want %d", tree.Size(), n)
	}
	for key, want := range values {
		got := tree.SearchRange(int64(key), int64(key)+1)
		if len(got) != len(want) {
			t.Fatalf("key %d: got %d entries, want %d", key, len(got), len(want))
		}
		gotSet := map[int]bool{}
		for _, v := range got {
			gotSet[v] = true
		}
		for _, v := range want {
			if !gotSet[v] {
				t.Fatalf("key %d: missing row index %d", key, v)
			}
		}
	}
}

func TestSearchContAndRangeContOverContiguousValues(t *testing.T) {
	n := 1200
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(i)
	}
	tree := Build(data, nil, n)
	if got := tree.SearchCont(500); got != 500 {
		t.Fatalf("SearchCont(500) = %d, want 500", got)
	}
	if got := tree.SearchCont(int32(n + 10)); got != tree.Size() {
		t.Fatalf("SearchCont(past end) = %d, want %d", got, tree.Size())
	}
	got := tree.SearchRangeCont(100, 300)
	if len(got) != 200 {
		t.Fatalf("SearchRangeCont len = %d, want 200", len(got))
	}
	for i, v := range got {
		if v != 100+i {
			t.Fatalf("SearchRangeCont[%d] = %d, want %d", i, v, 100+i)
		}
	}
}

// TestSearchContAndRangeContOverNonIdentityValues uses keys that are
// contiguous but not equal to their own row index (unlike the preceding
// test's data[i]==i, which cannot distinguish a real value->row-index
// search from one that simply echoes its bounds back), to catch
// SearchCont/SearchRangeCont silently treating value bounds as already
// being row-index bounds.
func TestSearchContAndRangeContOverNonIdentityValues(t *testing.T) {
	data := []int32{10, 20, 30, 40}
	tree := Build(data, nil, len(data))

	if got := tree.SearchCont(25); got != 2 {
		t.Fatalf("SearchCont(25) = %d, want 2 (row holding value 30)", got)
	}
	if got := tree.SearchCont(10); got != 0 {
		t.Fatalf("SearchCont(10) = %d, want 0", got)
	}

	got := tree.SearchRangeCont(15, 35)
	want := []int{1, 2}
	if len(got) != len(want) {
		t.Fatalf("SearchRangeCont(15,35) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SearchRangeCont(15,35) = %v, want %v", got, want)
		}
	}
}

func TestEmptyTree(t *testing.T) {
	tree := Build(nil, nil, 0)
	if tree.Size() != 0 {
		t.Fatalf("size = %d, want 0", tree.Size())
	}
	if got := tree.SearchRange(0, 100); len(got) != 0 {
		t.Fatalf("range over empty tree = %v, want empty", got)
	}
}
