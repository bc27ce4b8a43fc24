package remote

import (
	"context"
	"time"

	"github.com/nemanja-m/wordfreq/internal/shared/logging"
)

// HealthChecker probes the cluster's workers on a fixed interval.
type HealthChecker struct {
	checkInterval time.Duration
	cluster       *Cluster
	logger        logging.Logger
}

func NewHealthChecker(checkInterval time.Duration, cluster *Cluster, logger logging.Logger) *HealthChecker {
	return &HealthChecker{
		checkInterval: checkInterval,
		cluster:       cluster,
		logger:        logger,
	}
}

// Start checks once right away and then on every tick until ctx is done.
func (h *HealthChecker) Start(ctx context.Context) {
	h.check(ctx)

	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *HealthChecker) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, h.checkInterval)
	defer cancel()

	h.cluster.CheckHealth(checkCtx)

	health := h.cluster.Health(ctx)
	if !health.Healthy {
		h.logger.Error("No healthy workers", "workers", len(health.Workers))
	}
}
