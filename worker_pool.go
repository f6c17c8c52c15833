// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vinesnake

import (
	"context"
	"sync"
)

// DefaultBatchConcurrency is the worker count FetchAll uses when the caller
// passes zero
const DefaultBatchConcurrency = 4

// WorkerPool runs a fixed number of worker goroutines over a queue of work
// items, keeping concurrency bounded instead of spawning one goroutine per
// item.
type WorkerPool struct {
	maxWorkers int
	workQueue  chan func()
	wg         *sync.WaitGroup
	ctx        context.Context
}

// NewWorkerPool starts maxWorkers goroutines reading from a queue of the
// given buffer size. Submit blocks when the queue is full.
func NewWorkerPool(ctx context.Context, maxWorkers int, queueSize int) *WorkerPool {
	wp := &WorkerPool{
		maxWorkers: maxWorkers,
		workQueue:  make(chan func(), queueSize),
		wg:         &sync.WaitGroup{},
		ctx:        ctx,
	}
	for i := 0; i < maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case work, ok := <-wp.workQueue:
			if !ok {
				return
			}
			work()
		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit queues one work item, blocking for backpressure when the queue is
// full. Returns the context's error if it is cancelled first.
func (wp *WorkerPool) Submit(work func()) error {
	select {
	case wp.workQueue <- work:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close drains the pool: no further Submits, workers finish what is queued.
func (wp *WorkerPool) Close() {
	close(wp.workQueue)
	wp.wg.Wait()
}

// FetchAll fetches a batch of URLs concurrently through a bounded pool and
// returns the results in input order. Individual failures become failed
// PageData entries rather than aborting the batch; the only error returned
// is context cancellation.
func FetchAll(ctx context.Context, fetcher Fetcher, urls []string, concurrency int, opts FetchOptions) ([]*PageData, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	if concurrency > len(urls) && len(urls) > 0 {
		concurrency = len(urls)
	}

	results := make([]*PageData, len(urls))
	pool := NewWorkerPool(ctx, concurrency, len(urls))
	for i, pageURL := range urls {
		i, pageURL := i, pageURL
		err := pool.Submit(func() {
			page, err := fetcher.FetchPage(ctx, pageURL, opts)
			if err != nil {
				page = &PageData{URL: pageURL, Success: false, Error: err.Error()}
			} else if page == nil {
				page = &PageData{URL: pageURL, Success: false, Error: "empty fetch result"}
			}
			results[i] = page
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
	}
	pool.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Workers that exited on cancellation leave gaps; the ctx.Err check
	// above covers that path, so remaining nils mean a worker never ran.
	for i, page := range results {
		if page == nil {
			results[i] = &PageData{URL: urls[i], Success: false, Error: "fetch not executed"}
		}
	}
	return results, nil
}
