package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coachflow-backend/internal/pkg/envutil"
	"github.com/yungbote/coachflow-backend/internal/pkg/logger"
)

const maxSampledErrors = 5

// Result aggregates one batch. Errors counts failed and panicked items.
type Result struct {
	Processed int      `json:"processed"`
	Errors    int      `json:"errors"`
	Panics    int      `json:"panics,omitempty"`
	Canceled  bool     `json:"canceled,omitempty"`
	Samples   []string `json:"error_samples,omitempty"`
}

func (r *Result) Add(o Result) {
	r.Processed += o.Processed
	r.Errors += o.Errors
	r.Panics += o.Panics
	r.Canceled = r.Canceled || o.Canceled
	for _, s := range o.Samples {
		if len(r.Samples) >= maxSampledErrors {
			break
		}
		r.Samples = append(r.Samples, s)
	}
}

// Pool runs per-item work with bounded concurrency. An item's error or panic
// is counted and never stops the rest of the batch.
type Pool struct {
	log         *logger.Logger
	concurrency int
}

func NewPool(baseLog *logger.Logger, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Pool{log: baseLog.With("component", "WorkerPool"), concurrency: concurrency}
}

// NewPoolFromEnv reads CRON_CONCURRENCY (default 8, capped at 64).
func NewPoolFromEnv(baseLog *logger.Logger) *Pool {
	n := envutil.Int("CRON_CONCURRENCY", 8)
	if n > 64 {
		n = 64
	}
	return NewPool(baseLog, n)
}

func (p *Pool) Concurrency() int { return p.concurrency }

// ForEach calls fn for every item. Once ctx is done no further items are
// started; items already running finish and the partial result is returned.
func ForEach[T any](ctx context.Context, p *Pool, name string, items []T, fn func(context.Context, T) error) Result {
	if p == nil {
		p = NewPool(nil, 1)
	}
	var (
		g         errgroup.Group
		processed atomic.Int64
		failed    atomic.Int64
		panics    atomic.Int64
		mu        sync.Mutex
		samples   []string
	)
	g.SetLimit(p.concurrency)

	record := func(err error) {
		failed.Add(1)
		mu.Lock()
		if len(samples) < maxSampledErrors {
			samples = append(samples, err.Error())
		}
		mu.Unlock()
	}

	canceled := false
	for i := range items {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		item := items[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panics.Add(1)
					p.log.Error("Batch item panic", "batch", name, "panic", r)
					record(fmt.Errorf("panic: %v", r))
				}
			}()
			if err := fn(ctx, item); err != nil {
				record(err)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Processed: int(processed.Load()),
		Errors:    int(failed.Load()),
		Panics:    int(panics.Load()),
		Canceled:  canceled,
		Samples:   samples,
	}
	if res.Errors > 0 {
		p.log.Warn("Batch finished with errors", "batch", name, "processed", res.Processed, "errors", res.Errors)
	}
	return res
}
