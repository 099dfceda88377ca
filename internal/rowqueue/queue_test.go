package rowqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/5342/C5SIGMA/internal/pdml"
)

func TestQueue_EnqueueDequeue_FIFO(t *testing.T) {
	q := New(10, nil)
	defer q.Close()

	row1 := &pdml.DataRow{Table: "a"}
	row2 := &pdml.DataRow{Table: "b"}
	q.Enqueue(row1)
	q.Enqueue(row2)

	got1, ok := q.Dequeue()
	if !ok || got1 != row1 {
		t.Fatalf("first Dequeue = (%v, %v), want (row1, true)", got1, ok)
	}
	got2, ok := q.Dequeue()
	if !ok || got2 != row2 {
		t.Fatalf("second Dequeue = (%v, %v), want (row2, true)", got2, ok)
	}
}

func TestQueue_SentinelClosesQueue(t *testing.T) {
	q := New(10, nil)
	defer q.Close()

	q.Enqueue(nil)
	row, ok := q.Dequeue()
	if !ok || row != nil {
		t.Fatalf("Dequeue = (%v, %v), want (nil, true)", row, ok)
	}
	if !q.Closed() {
		t.Errorf("Closed() = false after sentinel drained, want true")
	}
}

func TestQueue_ProducerBlocksAtCapacityAndWakesAtHalf(t *testing.T) {
	q := New(4, nil)
	defer q.Close()

	for i := 0; i < 4; i++ {
		q.Enqueue(&pdml.DataRow{Table: "x"})
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Enqueue(&pdml.DataRow{Table: "blocked"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Enqueue returned while queue was at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	// Drain to capacity/2 (2 items); producer should unblock.
	q.Dequeue()
	q.Dequeue()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Enqueue did not unblock after queue drained to capacity/2")
	}
	wg.Wait()
}

func TestQueue_DepthReflectsBacklog(t *testing.T) {
	q := New(10, nil)
	defer q.Close()

	if q.Depth() != 0 {
		t.Fatalf("Depth() = %d, want 0", q.Depth())
	}
	q.Enqueue(&pdml.DataRow{Table: "x"})
	if q.Depth() != 1 {
		t.Fatalf("Depth() = %d, want 1", q.Depth())
	}
}
