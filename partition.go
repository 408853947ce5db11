package rangedl

import (
	"context"
	"time"
)

// appendIndexed assigns p the next unused part index and appends it to
// the parts collection atomically, so two splits racing to add a part
// never collide on the same index.
func (e *Engine) appendIndexed(p *Part) int {
	e.partsMu.Lock()
	idx := len(e.parts)
	p.num = idx
	e.parts = append(e.parts, p)
	e.partsMu.Unlock()
	return idx
}

func (e *Engine) enroll(ctx context.Context, p *Part) {
	idx := e.appendIndexed(p)
	p.fileName = partFileName(e.tempDir, idx)
	e.addWait(idx)
	e.spawnWorker(ctx, p)
}

func (e *Engine) partZero() *Part {
	e.partsMu.Lock()
	defer e.partsMu.Unlock()
	if len(e.parts) == 0 {
		return nil
	}
	return e.parts[0]
}

// runPartitioner performs the initial split: it waits for Part 0 to
// report a non-zero speed plus a 1-second settling delay, then derives
// (or honors a fixed) worker count and spawns the rest of the initial
// workers. It runs once and exits.
func (e *Engine) runPartitioner(ctx context.Context) {
	part0 := e.partZero()
	if part0 == nil {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for part0.Speed() == 0 {
		if part0.State() == StateFinished {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Second):
	}

	e.initialSplit(ctx, part0)
}

func (e *Engine) initialSplit(ctx context.Context, part0 *Part) {
	threadNum := e.cfg.ThreadNum
	fileSize := e.FileSize()

	if threadNum < 1 {
		if e.cfg.MaxThreadNum <= 0 {
			e.logger.Warn("maxThreadNum is less than or equal to 0, downloading single-threaded")
			return
		}
		speed := part0.Speed()
		if speed <= 0 {
			return
		}
		threadNum = int(fileSize / (speed * int64(e.cfg.DesiredCompletionTime)))
		if threadNum > e.cfg.MaxThreadNum {
			threadNum = e.cfg.MaxThreadNum
		}
	}
	if threadNum <= 1 {
		return
	}

	start, to := part0.Range()
	now := part0.Now()
	pivot := start + now + (fileSize-now)/int64(threadNum)
	if pivot >= to {
		return
	}

	part1 := part0.Split(pivot)
	if s, t := part1.Range(); s == t {
		return
	}
	e.enroll(ctx, part1)

	elseStart, elseTo := part1.Range()
	elseSize := elseTo - elseStart
	tail := part1

	for i := 2; i < threadNum; i++ {
		tStart, tTo := tail.Range()
		if tTo-tStart <= 0 {
			break
		}
		splitAt := tStart + elseSize/int64(threadNum-1)
		next := tail.Split(splitAt)
		if s, t := next.Range(); s == t {
			break
		}
		e.enroll(ctx, next)
		tail = next
	}
}

// rebalance runs on the Controller's goroutine whenever a worker reports
// completion. It finds the non-finished part with the largest estimated
// remaining time and, if that estimate exceeds the desired completion
// time, splits it at the midpoint of its unfetched range and spawns a
// worker for the new tail part.
func (e *Engine) rebalance(ctx context.Context, finishedIdx int) {
	var (
		candidate *Part
		worst     float64
	)

	for _, p := range e.snapshotParts() {
		remaining, ok := p.remaining()
		if !ok {
			continue
		}
		if candidate == nil || remaining > worst {
			candidate = p
			worst = remaining
		}
	}

	if candidate == nil {
		e.logger.Debug("no part needs help, pass")
		return
	}
	if worst <= float64(e.cfg.DesiredCompletionTime) {
		return
	}

	start, to := candidate.Range()
	now := candidate.Now()
	splitAt := start + now + (to-start-now)/2

	next := candidate.Split(splitAt)
	if s, t := next.Range(); s == t {
		return
	}
	e.logger.Debugf("part %d is the slowest, splitting it", candidate.num)
	e.enroll(ctx, next)
}
