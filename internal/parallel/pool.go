package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is a unit of work. worker is the index of the goroutine running it,
// in [0, Workers()), so tasks can use per-worker scratch state without
// locking.
type Task func(worker int)

// WorkerPool is a pool of goroutines executing batches of tasks.
//
// Each worker has its own queue and steals from the others when its queue
// is empty, which keeps the pool busy when tasks have uneven cost (a
// workgroup on the grid edge does less work than an interior one).
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers    int
	workQueues []chan func(int)
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan func(int), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(int), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(id, myQueue)
			return

		case work := <-myQueue:
			work(id)

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen(id)
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(id, myQueue)
				return
			case work := <-myQueue:
				work(id)
			}
		}
	}
}

// drainQueue executes all remaining work in a queue.
func (p *WorkerPool) drainQueue(id int, queue chan func(int)) {
	for {
		select {
		case work := <-queue:
			work(id)
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *WorkerPool) steal(myID int) func(int) {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// ExecuteAll distributes tasks across workers and waits for all to complete.
// If the pool is closed, tasks run on the calling goroutine as worker 0.
func (p *WorkerPool) ExecuteAll(tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	if !p.running.Load() {
		for _, t := range tasks {
			t(0)
		}
		return
	}

	var completion sync.WaitGroup
	completion.Add(len(tasks))

	for i, t := range tasks {
		task := t
		wrapped := func(worker int) {
			defer completion.Done()
			task(worker)
		}

		select {
		case p.workQueues[i%p.workers] <- wrapped:
		case <-p.done:
			completion.Done()
		}
	}

	completion.Wait()
}

// Range runs fn for every i in [0, n), split into at most Workers()*4
// contiguous chunks, and waits for completion.
func (p *WorkerPool) Range(n int, fn func(worker, i int)) {
	if n <= 0 {
		return
	}
	chunks := min(n, p.workers*4)
	size := (n + chunks - 1) / chunks

	tasks := make([]Task, 0, chunks)
	for start := 0; start < n; start += size {
		lo, hi := start, min(start+size, n)
		tasks = append(tasks, func(worker int) {
			for i := lo; i < hi; i++ {
				fn(worker, i)
			}
		})
	}
	p.ExecuteAll(tasks)
}

// Close gracefully shuts down the pool.
// It stops accepting new work, waits for all queued work to complete,
// and then stops all workers.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
