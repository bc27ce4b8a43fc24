// Package remote runs map and reduce tasks on worker processes over gRPC.
// Workers read and write task data in a blob store shared with the
// coordinator.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nemanja-m/wordfreq/internal/coordinator/core"
	"github.com/nemanja-m/wordfreq/internal/shared/config"
	"github.com/nemanja-m/wordfreq/internal/shared/logging"
	"github.com/nemanja-m/wordfreq/internal/shared/task"
	mrcore "github.com/nemanja-m/wordfreq/pkg/core"
)

var ErrNoHealthyWorkers = errors.New("no healthy workers")

type member struct {
	client  *WorkerClient
	healthy bool
	lastErr string
}

// Cluster routes every task to one of the workers that passed their last
// health check. A task always lands on the same worker while the healthy set
// is unchanged.
type Cluster struct {
	members []*member
	logger  logging.Logger

	mu sync.RWMutex
}

// New connects to every address in cfg.Addrs. Workers count as healthy until
// a health check says otherwise.
func New(cfg config.ClusterConfig, logger logging.Logger, opts ...grpc.DialOption) (*Cluster, error) {
	c := &Cluster{logger: logger}
	for _, addr := range cfg.Addrs {
		client, err := NewWorkerClient(addr, cfg, opts...)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.members = append(c.members, &member{client: client, healthy: true})
	}
	return c, nil
}

func (c *Cluster) RunTask(ctx context.Context, spec task.Spec) error {
	m, err := c.pick(spec)
	if err != nil {
		return err
	}

	c.logger.Debug("Dispatching task",
		"task_id", spec.ID.String(),
		"type", string(spec.Type),
		"worker", m.client.Addr(),
	)

	err = m.client.RunTask(ctx, spec)
	if status.Code(errors.Unwrap(err)) == codes.Unavailable {
		c.markUnhealthy(m, err)
	}
	return err
}

func (c *Cluster) pick(spec task.Spec) (*member, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var healthy []*member
	for _, m := range c.members {
		if m.healthy {
			healthy = append(healthy, m)
		}
	}
	if len(healthy) == 0 {
		return nil, fmt.Errorf("task %s: %w", spec.ID, ErrNoHealthyWorkers)
	}
	return healthy[mrcore.Partition(spec.ID.String(), len(healthy))], nil
}

func (c *Cluster) markUnhealthy(m *member, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.healthy {
		c.logger.Warn("Worker became unhealthy", "worker", m.client.Addr(), "error", err)
	}
	m.healthy = false
	m.lastErr = err.Error()
}

// CheckHealth probes every worker and updates the healthy set.
func (c *Cluster) CheckHealth(ctx context.Context) {
	var wg sync.WaitGroup
	results := make([]error, len(c.members))
	for i, m := range c.members {
		wg.Go(func() {
			results[i] = m.client.Check(ctx)
		})
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.members {
		err := results[i]
		switch {
		case err != nil && m.healthy:
			c.logger.Warn("Worker became unhealthy", "worker", m.client.Addr(), "error", err)
		case err == nil && !m.healthy:
			c.logger.Info("Worker recovered", "worker", m.client.Addr())
		}
		m.healthy = err == nil
		m.lastErr = ""
		if err != nil {
			m.lastErr = err.Error()
		}
	}
}

func (c *Cluster) Health(ctx context.Context) core.ClusterHealth {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var health core.ClusterHealth
	for _, m := range c.members {
		health.Workers = append(health.Workers, core.WorkerHealth{
			Name:    m.client.Addr(),
			Healthy: m.healthy,
			Error:   m.lastErr,
		})
		if m.healthy {
			health.Healthy = true
		}
	}
	return health
}

func (c *Cluster) Close() error {
	var errs []error
	for _, m := range c.members {
		if err := m.client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
