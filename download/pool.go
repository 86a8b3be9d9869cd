package download

import (
	"context"
	"sync"

	"github.com/biobricks-ai/openfda/manifest"
)

// Summary aggregates the outcomes of one run.
type Summary struct {
	Updated int
	Skipped int
	Failed  int
}

// FetchAll fetches every entry through a bounded worker pool. Partitions
// are independent, so a failure only terminates its own task unless
// failFast is set, in which case the shared context is cancelled and
// remaining work drains as failures. onResult, when non-nil, is invoked
// from worker goroutines and must be safe for concurrent use.
func (f *Fetcher) FetchAll(ctx context.Context, entries []manifest.Entry, concurrency int, failFast bool, onResult func(Result)) Summary {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan manifest.Entry)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				results <- f.FetchEntry(ctx, e)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, e := range entries {
			select {
			case jobs <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var sum Summary
	for res := range results {
		switch res.Status {
		case StatusUpdated:
			sum.Updated++
		case StatusSkipped:
			sum.Skipped++
		case StatusFailed:
			sum.Failed++
			if failFast {
				cancel()
			}
		}
		if onResult != nil {
			onResult(res)
		}
	}
	return sum
}
