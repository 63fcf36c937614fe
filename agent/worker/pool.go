// Package worker provides the asynchronous notification pool that fans test
// lifecycle events out to registered secondary agents.
//
// The pool decouples peer notification from the control endpoint's hot path:
// the caller observes success as soon as its local work finishes, independent
// of notification delivery. Delivery failure only ever produces a log entry.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	defaultNumWorkers   uint = 3
	defaultQueueSize    uint = 256
	defaultNotifyExpiry      = 5 * time.Second
)

// Kind distinguishes the two lifecycle notifications.
type Kind string

const (
	KindTestStart Kind = "test-start"
	KindTestEnd   Kind = "test-end"
)

// Notifier delivers a lifecycle signal to one peer agent.
type Notifier interface {
	SignalTestStart(ctx context.Context, testID string) error
	SignalTestEnd(ctx context.Context, testID string) error
}

// Job is one notification for the pool to deliver.
type Job struct {
	Kind   Kind
	TestID string
	Port   int
	Peer   Notifier
}

// Config is the configuration options for the notification pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Timeout bounds each individual notification attempt.
	Timeout time.Duration

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pool delivers notification jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	// mu guards closed so that Enqueue never races a Close of the queue.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) *Pool {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.Timeout == 0 {
		c.Timeout = defaultNotifyExpiry
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p
}

// Enqueue submits a notification for delivery. Returns true if enqueued,
// false if the queue is full or the pool has been closed, in which case the
// job is dropped and logged.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("notification dropped, pool closed",
			zap.String("kind", string(job.Kind)),
			zap.String("test_id", job.TestID),
			zap.Int("peer_port", job.Port),
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("notification queued",
			zap.String("kind", string(job.Kind)),
			zap.String("test_id", job.TestID),
			zap.Int("peer_port", job.Port),
		)
		return true
	default:
		p.logger.Error("notification dropped, queue full",
			zap.String("kind", string(job.Kind)),
			zap.String("test_id", job.TestID),
			zap.Int("peer_port", job.Port),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain. Call
// this during graceful shutdown after the HTTP server has stopped accepting
// requests; an Enqueue after Close drops the job rather than delivering it.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker continuously pulls jobs off the queue until it is closed.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("notification worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.deliver(job)
	}

	p.logger.Debug("notification worker stopped", zap.Uint("worker_id", id))
}

// deliver performs one notification attempt. Failure is logged and otherwise
// dropped; it must never surface to the request that triggered it.
func (p *Pool) deliver(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	var err error
	switch job.Kind {
	case KindTestStart:
		err = job.Peer.SignalTestStart(ctx, job.TestID)
	case KindTestEnd:
		err = job.Peer.SignalTestEnd(ctx, job.TestID)
	}

	if err != nil {
		p.logger.Warn("error signaling test event to secondary agent",
			zap.String("kind", string(job.Kind)),
			zap.String("test_id", job.TestID),
			zap.Int("peer_port", job.Port),
			zap.Error(err),
		)
	}
}
