package cleaner

import (
	"context"
	"time"

	"github.com/UltraSive/payload-store/pkg/logger"
)

// Reclaimer is the part of the store the cleaner needs.
type Reclaimer interface {
	Reclaim(ctx context.Context) (int, error)
}

// Cleaner runs reclamation sweeps on a fixed interval. The store already
// sweeps once at startup; this is only for deployments that stay up long
// enough for expired rows to pile up.
type Cleaner struct {
	r        Reclaimer
	interval time.Duration
	log      logger.Logger
}

func New(r Reclaimer, interval time.Duration, log logger.Logger) *Cleaner {
	return &Cleaner{r: r, interval: interval, log: log}
}

// Start blocks, sweeping every interval until ctx is cancelled.
func (c *Cleaner) Start(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.runOnce(ctx)
		case <-ctx.Done():
			c.log.Debug("cleaner stopped")
			return
		}
	}
}

func (c *Cleaner) runOnce(ctx context.Context) {
	removed, err := c.r.Reclaim(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Error("sweep failed", err)
		}
		return
	}
	if removed > 0 {
		c.log.Info("sweep removed expired entries", "removed", removed)
	}
}
