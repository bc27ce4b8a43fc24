// Package local runs map and reduce tasks on a pool of goroutines inside the
// coordinator process.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	workercore "github.com/nemanja-m/wordfreq/internal/worker/core"
)

// ErrClusterClosed is returned for tasks submitted to, or still queued in, a
// closed cluster.
var ErrClusterClosed = errors.New("local cluster is closed")

// Cluster is a fixed pool of goroutines that pop tasks from a priority queue
// and hand them to a worker service.
type Cluster struct {
	worker     workercore.WorkerService
	numWorkers int
	logger     logging.Logger

	queue *taskQueue
	wake  chan struct{}
	quit  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts numWorkers goroutines running tasks through worker.
func New(numWorkers int, worker workercore.WorkerService, logger logging.Logger) *Cluster {
	if numWorkers < 1 {
		numWorkers = 1
	}
	c := &Cluster{
		worker:     worker,
		numWorkers: numWorkers,
		logger:     logger,
		queue:      newTaskQueue(),
		wake:       make(chan struct{}, 1),
		quit:       make(chan struct{}),
	}
	for i := range numWorkers {
		c.wg.Go(func() { c.loop(i) })
	}
	return c
}

// RunTask queues spec and waits until a worker finished it or ctx is done.
func (c *Cluster) RunTask(ctx context.Context, spec task.Spec) error {
	req := newRequest(ctx, spec)

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClusterClosed
	}
	err := c.queue.Push(req, priorityFor(spec.Type))
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	c.signal()

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("task %s: %w", spec.ID, ctx.Err())
	}
}

func (c *Cluster) Health(ctx context.Context) core.ClusterHealth {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()

	health := core.ClusterHealth{Healthy: !closed}
	for i := range c.numWorkers {
		wh := core.WorkerHealth{Name: fmt.Sprintf("local-%d", i), Healthy: !closed}
		if closed {
			wh.Error = ErrClusterClosed.Error()
		}
		health.Workers = append(health.Workers, wh)
	}
	return health
}

// Close stops the workers after their current task and fails every task
// still queued.
func (c *Cluster) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.quit)
	c.mu.Unlock()

	c.wg.Wait()

	for {
		req, err := c.queue.Pop()
		if err != nil {
			return
		}
		req.done <- ErrClusterClosed
	}
}

func (c *Cluster) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Cluster) loop(id int) {
	logger := c.logger.With("worker", fmt.Sprintf("local-%d", id))
	for {
		select {
		case <-c.quit:
			return
		default:
		}

		req, err := c.queue.Pop()
		if errors.Is(err, ErrQueueEmpty) {
			select {
			case <-c.wake:
				continue
			case <-c.quit:
				return
			}
		}
		if c.queue.Len() > 0 {
			c.signal()
		}
		c.run(req, logger)
	}
}

func (c *Cluster) run(req *request, logger logging.Logger) {
	if err := req.ctx.Err(); err != nil {
		logger.Debug("Skipping cancelled task", "task_id", req.spec.ID.String())
		req.done <- err
		return
	}
	req.done <- c.worker.RunTask(req.ctx, req.spec)
}
