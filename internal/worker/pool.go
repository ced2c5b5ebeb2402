package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Wissididom/twitch-sus-user-logger/internal/metrics"
)

// Pool manages a fixed number of worker goroutines that process delivery jobs.
type Pool struct {
	numWorkers int
	jobs       chan Job
	deliverer  *Deliverer
	logger     *slog.Logger
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a worker pool with the given number of workers and a
// queue holding up to queueSize pending jobs.
func NewPool(numWorkers, queueSize int, deliverer *Deliverer, logger *slog.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, queueSize),
		deliverer:  deliverer,
		logger:     logger,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed or the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers, "queue_size", cap(p.jobs))
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool is stopped; the job is then dropped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(job, "worker pool stopped")
		return false
	}

	select {
	case p.jobs <- job:
		metrics.QueueDepth.Inc()
		return true
	default:
		p.drop(job, "delivery queue full")
		return false
	}
}

// Stop stops accepting jobs, lets the workers drain the queue and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) drop(job Job, reason string) {
	metrics.QueueDropped.Inc()
	p.logger.Error("delivery dropped",
		"delivery_id", job.ID,
		"message_id", job.MessageID,
		"reason", reason,
	)
}

// worker is a single goroutine that processes jobs from the channel.
func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		metrics.QueueDepth.Dec()
		select {
		case <-ctx.Done():
			p.drop(job, "worker pool cancelled")
		default:
			p.deliverer.Deliver(ctx, job)
		}
	}
}
