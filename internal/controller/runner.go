// internal/controller/runner.go
package controller

import (
	"context"
	"time"
)

// Run starts the ticker loop. One goroutine. No overlap.
// A cycle that overruns drops ticks instead of queueing them.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Cycle)
	defer ticker.Stop()

	c.Cycle(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Cycle(now)
		}
	}
}
