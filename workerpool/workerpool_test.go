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

package workerpool

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestBarrierRunsAllTasksExactlyOnce(t *testing.T) {
	p := New(4, 8)
	defer p.Close()

	var counter int64
	n := 100
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Kind: Scan, Run: func() { atomic.AddInt64(&counter, 1) }}
	}
	p.Barrier(tasks)
	if got := atomic.LoadInt64(&counter); got != int64(n) {
		t.Fatalf("counter = %d, want %d", got, n)
	}
}

func TestBarrierQueueDeeperThanCapacity(t *testing.T) {
	p := New(2, 4)
	defer p.Close()

	var counter int64
	n := 50
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Task{Kind: Join, Run: func() { atomic.AddInt64(&counter, 1) }}
	}
	p.Barrier(tasks)
	if got := atomic.LoadInt64(&counter); got != int64(n) {
		t.Fatalf("counter = %d, want %d", got, n)
	}
}

func TestMultipleSequentialBarriers(t *testing.T) {
	p := New(3, 16)
	defer p.Close()

	for round := 0; round < 5; round++ {
		var counter int64
		tasks := make([]Task, 20)
		for i := range tasks {
			tasks[i] = Task{Kind: Scan, Run: func() { atomic.AddInt64(&counter, 1) }}
		}
		p.Barrier(tasks)
		if got := atomic.LoadInt64(&counter); got != 20 {
			t.Fatalf("round %d: counter = %d, want 20", round, got)
		}
	}
}

func TestCloseStopsWorkers(t *testing.T) {
	p := New(2, 4)
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return promptly")
	}
}

func TestNumWorkersFloor(t *testing.T) {
	if NumWorkers() < 1 {
		t.Fatal("NumWorkers must return at least 1")
	}
}
