package bitset

import "testing"

func TestSetBasic(t *testing.T) {
	s := New(130)
	if s.Len() != 130 {
		t.Fatalf("len = %d, want 130", s.Len())
	}
	for i := 0; i < s.Len(); i++ {
		if s.Test(i) {
			t.Fatalf("bit %d set on fresh Set", i)
		}
	}
	s.Set(0)
	s.Set(63)
	s.Set(64)
	s.Set(129)
	for _, i := range []int{0, 63, 64, 129} {
		if !s.Test(i) {
			t.Fatalf("bit %d not set after Set", i)
		}
	}
	if got := s.Count(); got != 4 {
		t.Fatalf("Count() = %d, want 4", got)
	}
	s.Unset(64)
	if s.Test(64) {
		t.Fatal("bit 64 still set after Unset")
	}
	if got := s.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}
}

func TestSetResize(t *testing.T) {
	s := New(10)
	s.Set(5)
	s.Resize(200)
	if s.Len() != 200 {
		t.Fatalf("len = %d, want 200", s.Len())
	}
	if !s.Test(5) {
		t.Fatal("bit 5 lost after growing")
	}
	for i := 10; i < 200; i++ {
		if s.Test(i) {
			t.Fatalf("bit %d unexpectedly set after grow", i)
		}
	}
	s.Resize(6)
	if s.Len() != 6 || !s.Test(5) {
		t.Fatal("shrink lost surviving bit")
	}
}
