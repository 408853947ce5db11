package rangedl

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	retry "github.com/avast/retry-go"
)

// spawnWorker launches the goroutine that drives part from init to
// finished, reporting completion on e.finishedCh so the Controller can
// run the rebalance policy on its own goroutine rather than having the
// worker call back into it directly.
func (e *Engine) spawnWorker(ctx context.Context, p *Part) {
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		e.runWorker(ctx, p)
	}()
}

func (e *Engine) runWorker(ctx context.Context, p *Part) {
	attempts := workerAttempts(e.cfg.MaxThreadRetry)

	err := retry.Do(
		func() error { return e.attemptPart(ctx, p) },
		retry.Attempts(attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return !e.failed() }),
		retry.OnRetry(func(n uint, rerr error) {
			p.mu.Lock()
			p.retry++
			p.state = StateConnecting
			p.stream = nil
			retryNum := p.retry
			p.mu.Unlock()
			e.logger.Warnf("part %d retry %d: %v", p.num, retryNum, rerr)
		}),
	)

	if err != nil {
		e.fail(fmt.Errorf("part %d failed after retries: %w", p.num, err))
	}

	select {
	case e.finishedCh <- p.num:
	case <-ctx.Done():
	}
}

// attemptPart runs one connect-and-drain attempt for part: it opens (or
// reuses) the ranged GET, opens the part's temp file, and streams chunks
// into it until the part is finished or an error interrupts the attempt.
func (e *Engine) attemptPart(ctx context.Context, p *Part) error {
	p.setState(StateConnecting)

	p.mu.Lock()
	stream := p.stream
	start := p.start
	p.mu.Unlock()

	if stream == nil {
		resp, err := e.client.GetRange(ctx, e.cfg.URL, start)
		if err != nil {
			return err
		}
		stream = resp
		p.mu.Lock()
		p.stream = resp
		p.mu.Unlock()
	}
	defer func() {
		stream.Body.Close()
		p.mu.Lock()
		p.stream = nil
		p.mu.Unlock()
	}()

	f, err := os.OpenFile(p.fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("opening part %d temp file: %w", p.num, err)
	}
	defer f.Close()

	p.resetAttempt()
	p.setState(StateDownloading)

	reader := newChunkReader(stream, e.cfg.ChunkSize)
	return e.drainPart(ctx, p, reader, f)
}

// drainPart streams chunks into f; every iteration re-reads part.to
// because the rebalancer may shrink it mid-flight.
func (e *Engine) drainPart(ctx context.Context, p *Part, reader *chunkReader, f *os.File) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, rerr := reader.Next()
		if len(chunk) > 0 {
			start, to := p.Range()
			if start+p.Now() > to {
				p.finish()
				return nil
			}
			if _, werr := f.Write(chunk); werr != nil {
				return fmt.Errorf("writing part %d: %w", p.num, werr)
			}
			e.recordProgress(p, int64(len(chunk)))
		}
		if rerr != nil {
			if rerr == io.EOF {
				p.finish()
				return nil
			}
			return fmt.Errorf("reading part %d: %w", p.num, rerr)
		}
	}
}

// recordProgress folds a chunk into the part's rolling window and the
// global counters. The global rolling window only advances on Part 0's
// chunks; the aggregator computes displayed total throughput as the
// instantaneous sum of per-part speeds instead of relying on this field.
func (e *Engine) recordProgress(p *Part, l int64) {
	t := time.Now().Unix()
	p.recordChunk(l, t)
	e.globalNow.Add(l)

	if p.num == 0 {
		e.globalMu.Lock()
		if t != e.historyTime {
			e.historyTime = t
			e.historyNum = l
		} else {
			e.historyNum += l
		}
		e.globalMu.Unlock()
	}
}

// workerAttempts converts the configured per-worker retry budget into a
// concrete attempt count: maxThreadRetry+1 attempts when nonnegative,
// effectively unbounded (but still context-cancellable) when negative.
func workerAttempts(maxThreadRetry int) uint {
	if maxThreadRetry < 0 {
		return math.MaxUint32
	}
	return uint(maxThreadRetry) + 1
}
