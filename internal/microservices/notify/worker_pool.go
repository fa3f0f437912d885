package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Task represents a unit of work
type Task func(ctx context.Context) error

// WorkerPool runs dispatches off the connection read loops
type WorkerPool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	closeMux    sync.Mutex
	logger      *slog.Logger
}

// NewWorkerPool creates a pool with specified number of workers
func NewWorkerPool(workerCount, queueSize int, logger *slog.Logger) *WorkerPool {
	if queueSize < workerCount {
		queueSize = workerCount * 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Info("worker_pool_started", "workers", wp.workerCount)
}

// Submit adds a task to the queue, blocking while it is full.
// Returns false once the pool is shutting down.
func (wp *WorkerPool) Submit(task Task) (ok bool) {
	wp.closeMux.Lock()
	closed := wp.closed
	wp.closeMux.Unlock()
	if closed {
		wp.logger.Warn("worker_pool_task_rejected", "reason", "closed")
		return false
	}

	// the queue may be closed between the check and the send
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case wp.taskQueue <- task:
		return true
	case <-wp.ctx.Done():
		wp.logger.Warn("worker_pool_task_rejected", "reason", "shutting_down")
		return false
	}
}

// Wait drains the queue and blocks until all tasks complete
func (wp *WorkerPool) Wait() {
	wp.closeMux.Lock()
	if !wp.closed {
		close(wp.taskQueue)
		wp.closed = true
	}
	wp.closeMux.Unlock()

	wp.wg.Wait()
	wp.logger.Info("worker_pool_drained")
}

// Shutdown cancels in-flight work and waits for workers to exit
func (wp *WorkerPool) Shutdown() {
	wp.logger.Info("worker_pool_shutting_down")
	wp.cancel()
	wp.Wait()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if err := task(wp.ctx); err != nil {
				wp.logger.Error("worker_task_failed", "worker", id, "error", err)
			}

		case <-wp.ctx.Done():
			return
		}
	}
}
