package rangedl

import (
	"context"
	"time"
)

// ProgressSink is the external display collaborator. The aggregator
// samples Parts every 100ms and reports through this interface;
// cmd/rangedl implements it with a progress bar.
type ProgressSink interface {
	UpdatePart(num int, completed, total, speed int64, state PartState)
	UpdateTotal(completed, total, speed int64, status string)
	Close()
}

type noopSink struct{}

func (noopSink) UpdatePart(int, int64, int64, int64, PartState) {}
func (noopSink) UpdateTotal(int64, int64, int64, string)        {}
func (noopSink) Close()                                         {}

const progressTick = 100 * time.Millisecond

// runAggregator samples all parts every 100ms, reporting a per-part row
// plus a "Total" row whose completed value sums Now() across parts and
// whose speed is the instantaneous sum of per-part speeds, rather than
// the global rolling window, which only advances on Part 0's chunks.
func (e *Engine) runAggregator(ctx context.Context) {
	ticker := time.NewTicker(progressTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sampleOnce()
		}
	}
}

func (e *Engine) sampleOnce() {
	var totalNow, totalSpeed int64

	for _, p := range e.snapshotParts() {
		start, to := p.Range()
		now := p.Now()
		speed := p.Speed()
		e.sink.UpdatePart(p.num, now, to-start, speed, p.State())
		totalNow += now
		totalSpeed += speed
	}

	e.sink.UpdateTotal(totalNow, e.FileSize(), totalSpeed, e.state())
}
