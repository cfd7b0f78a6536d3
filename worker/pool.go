// Package worker bounds a broker's delivery concurrency to a fixed number
// of worker-pool goroutines, each hosting a chunk of long-running delivery
// tasks.
package worker

import (
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// Task is a long-running unit of work hosted by a Pool. A Task is expected
// to run until its owner's stop condition is observed and then return; Pool
// does not cancel tasks itself.
type Task func()

// Pool runs a batch of Tasks, bounding the number of concurrently active
// chunk-runner goroutines to maxThreads while letting every task within a
// chunk run concurrently. A Pool instance is meant for a single start/stop
// cycle: construct a fresh one each time the broker starts.
type Pool struct {
	maxThreads int
	wg         sync.WaitGroup
}

// New constructs a Pool bounded to maxThreads chunk-runner goroutines. A
// non-positive maxThreads is treated as 1.
func New(maxThreads int) *Pool {
	if maxThreads <= 0 {
		maxThreads = 1
	}
	return &Pool{maxThreads: maxThreads}
}

// Start splits tasks round-robin across at most maxThreads chunk-runner
// goroutines and launches them. It returns immediately; call Wait to block
// until every task has returned.
func (p *Pool) Start(tasks []Task) {
	if len(tasks) == 0 {
		return
	}

	threadCount := p.maxThreads
	if threadCount > len(tasks) {
		threadCount = len(tasks)
	}
	chunks := splitToChunks(tasks, threadCount)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		chunkPool := pool.New().WithMaxGoroutines(threadCount)
		for _, chunk := range chunks {
			chunk := chunk
			chunkPool.Go(func() {
				runChunk(chunk)
			})
		}
		chunkPool.Wait()
	}()
}

// Wait blocks until every task started by the most recent Start call has
// returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// runChunk runs every task in a chunk concurrently and waits for all of them
// to return, mirroring one OS thread cooperatively hosting several
// long-lived delivery tasks.
func runChunk(tasks []Task) {
	var wg conc.WaitGroup
	for _, task := range tasks {
		task := task
		wg.Go(func() { task() })
	}
	wg.Wait()
}

// splitToChunks distributes items round-robin across count chunks, so that
// consecutive items land in different chunks rather than contiguous blocks.
func splitToChunks[T any](items []T, count int) [][]T {
	chunks := make([][]T, count)
	for i, item := range items {
		idx := i % count
		chunks[idx] = append(chunks[idx], item)
	}
	return chunks
}
