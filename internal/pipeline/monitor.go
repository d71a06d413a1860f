package pipeline

import (
	"context"
	"time"

	"github.com/dlogcover/dlogcover/internal/dlog"
)

const (
	monitorPollInterval = time.Second
	monitorLogEvery     = 5 * time.Second

	// highOccupancy/lowOccupancy are the thresholds monitorLoop's report-
	// only recommendation uses; actual resizing is left to an operator or
	// a future orchestrator rather than done automatically here.
	highOccupancy = 0.8
	lowOccupancy  = 0.2
)

// monitorLoop polls queue occupancy every second and logs a summary every
// five, including a report-only worker-count recommendation per stage
// (dynamic load balancing, resolved as report-only in DESIGN.md's Open
// Questions).
func (p *Pipeline) monitorLoop(ctx context.Context) {
	ticks := 0
	ticker := time.NewTicker(monitorPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.drained:
			return
		case <-ticker.C:
			ticks++
			if ticks*int(monitorPollInterval) >= int(monitorLogEvery) {
				ticks = 0
				p.logStats()
			}
		}
	}
}

func (p *Pipeline) logStats() {
	dlog.Printf(dlog.ComponentPipeline,
		"stage1 occupancy=%d/%d dropped=%d (recommend %s) | stage2 occupancy=%d/%d dropped=%d (recommend %s) | "+
			"stage3 occupancy=%d/%d dropped=%d (recommend %s) | parseErrors=%d cacheHits=%d cacheMisses=%d",
		p.stage1In.occupancy(), p.stage1In.capacity(), p.stage1In.droppedCount(), recommend(p.stage1In.occupancy(), p.stage1In.capacity()),
		p.stage2In.occupancy(), p.stage2In.capacity(), p.stage2In.droppedCount(), recommend(p.stage2In.occupancy(), p.stage2In.capacity()),
		p.stage3In.occupancy(), p.stage3In.capacity(), p.stage3In.droppedCount(), recommend(p.stage3In.occupancy(), p.stage3In.capacity()),
		p.parseErrors.Load(), p.cacheHits.Load(), p.cacheMisses.Load(),
	)
}

func recommend(occupancy, capacity int) string {
	if capacity == 0 {
		return "unchanged"
	}
	ratio := float64(occupancy) / float64(capacity)
	switch {
	case ratio >= highOccupancy:
		return "+1 worker"
	case ratio <= lowOccupancy:
		return "-1 worker"
	default:
		return "unchanged"
	}
}
