package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestForEachIsolatesFailuresAndPanics(t *testing.T) {
	p := NewPool(nil, 3)
	items := []int{1, 2, 3, 4, 5, 6}
	res := ForEach(context.Background(), p, "test", items, func(_ context.Context, n int) error {
		switch n {
		case 2:
			return errors.New("boom")
		case 4:
			panic("kaboom")
		}
		return nil
	})
	if res.Processed != 4 {
		t.Fatalf("expected 4 processed, got %d", res.Processed)
	}
	if res.Errors != 2 || res.Panics != 1 {
		t.Fatalf("expected 2 errors incl. 1 panic, got errors=%d panics=%d", res.Errors, res.Panics)
	}
	if len(res.Samples) != 2 {
		t.Fatalf("expected 2 error samples, got %v", res.Samples)
	}
}

func TestForEachRespectsLimit(t *testing.T) {
	p := NewPool(nil, 2)
	var running, peak atomic.Int64
	items := make([]int, 10)
	ForEach(context.Background(), p, "limit", items, func(context.Context, int) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent items, saw %d", peak.Load())
	}
}

func TestForEachStopsSchedulingAfterCancel(t *testing.T) {
	p := NewPool(nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	items := []int{1, 2, 3, 4}
	res := ForEach(ctx, p, "cancel", items, func(_ context.Context, n int) error {
		if n == 1 {
			cancel()
		}
		return nil
	})
	if !res.Canceled {
		t.Fatalf("expected canceled result")
	}
	if res.Processed >= len(items) {
		t.Fatalf("expected a partial batch, processed %d", res.Processed)
	}
}

func TestResultAdd(t *testing.T) {
	var total Result
	total.Add(Result{Processed: 2, Errors: 1, Samples: []string{"a"}})
	total.Add(Result{Processed: 3, Canceled: true})
	if total.Processed != 5 || total.Errors != 1 || !total.Canceled || len(total.Samples) != 1 {
		t.Fatalf("unexpected total %+v", total)
	}
}
