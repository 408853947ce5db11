package rangedl

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// downloadState is the Controller's top-level state, distinct from a
// Part's PartState — it also covers phases (probing, splicing) that
// have no single owning Part.
type downloadState int32

const (
	dlProbing downloadState = iota
	dlRunning
	dlSplicing
	dlFinished
	dlFailed
)

func (s downloadState) String() string {
	switch s {
	case dlProbing:
		return "probing"
	case dlRunning:
		return "downloading"
	case dlSplicing:
		return "splicing"
	case dlFinished:
		return "finished"
	case dlFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Engine is the top-level orchestrator (§4.7 Controller): it probes the
// URL, derives a worker count, drives workers to completion, and splices
// their temp files into the final output.
type Engine struct {
	cfg    Config
	logger logrus.FieldLogger
	sink   ProgressSink
	client *rangeClient

	tempDir string

	fileSize atomic.Int64 // -1 until the probe resolves it

	partsMu sync.Mutex
	parts   []*Part

	waitMu sync.Mutex
	wait   map[int]struct{}

	finishedCh chan int
	workers    sync.WaitGroup

	globalNow   atomic.Int64
	globalMu    sync.Mutex
	historyNum  int64
	historyTime int64

	failFlag atomic.Bool
	errMu    sync.Mutex
	lastErr  error

	dlState atomic.Int32
}

// New constructs an Engine from cfg, filling in defaults, and wires the
// given progress sink and logger (noop equivalents are used when the
// corresponding option is disabled).
func New(cfg Config, sink ProgressSink, logger logrus.FieldLogger) *Engine {
	cfg.ensureDefaults()

	if sink == nil || !cfg.ShowProgressBar {
		sink = noopSink{}
	}
	if logger == nil || !cfg.Log {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		sink:       sink,
		client:     newRangeClient(cfg.Timeout, cfg.Header),
		wait:       make(map[int]struct{}),
		tempDir:    tempDirName(cfg.URL),
		finishedCh: make(chan int, 8),
	}
	e.fileSize.Store(-1)
	return e
}

// FileSize returns the probed size, or -1 if unknown/chunked.
func (e *Engine) FileSize() int64 { return e.fileSize.Load() }

func (e *Engine) setState(s downloadState) { e.dlState.Store(int32(s)) }
func (e *Engine) state() string            { return downloadState(e.dlState.Load()).String() }

func (e *Engine) appendPart(p *Part) {
	e.partsMu.Lock()
	e.parts = append(e.parts, p)
	e.partsMu.Unlock()
}

func (e *Engine) snapshotParts() []*Part {
	e.partsMu.Lock()
	defer e.partsMu.Unlock()
	out := make([]*Part, len(e.parts))
	copy(out, e.parts)
	return out
}

func (e *Engine) addWait(id int) {
	e.waitMu.Lock()
	e.wait[id] = struct{}{}
	e.waitMu.Unlock()
}

func (e *Engine) removeWait(id int) {
	e.waitMu.Lock()
	delete(e.wait, id)
	e.waitMu.Unlock()
}

func (e *Engine) waitEmpty() bool {
	e.waitMu.Lock()
	defer e.waitMu.Unlock()
	return len(e.wait) == 0
}

func (e *Engine) fail(err error) {
	e.errMu.Lock()
	if e.lastErr == nil {
		e.lastErr = err
	}
	e.errMu.Unlock()
	e.failFlag.Store(true)
	if e.cfg.RaiseErrors {
		e.logger.Errorf("%v", err)
	} else {
		e.logger.Warnf("%v", err)
	}
}

func (e *Engine) failed() bool { return e.failFlag.Load() }

func (e *Engine) error() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErr
}

// OutputPath is the destination file path: cfg.File joined onto
// cfg.WorkDir when one is configured, matching the teacher's
// WorkingDir+Filename join (mgomes/dl's Downloader.OutputPath).
func (e *Engine) OutputPath() string {
	if e.cfg.WorkDir == "" {
		return e.cfg.File
	}
	return filepath.Join(e.cfg.WorkDir, e.cfg.File)
}

// Run drives the download to completion on the calling goroutine,
// returning true on success. It is the blocking counterpart to Start.
func (e *Engine) Run(ctx context.Context) (bool, error) {
	if e.cfg.ContinueDownloadTest {
		if err := e.prepareResume(); err != nil {
			e.fail(err)
			return false, err
		}
	}

	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		err = fmt.Errorf("creating temp dir: %w", err)
		e.fail(err)
		return false, err
	}

	aggCtx, cancelAgg := context.WithCancel(ctx)
	defer cancelAgg()
	go e.runAggregator(aggCtx)
	defer e.sink.Close()

	e.setState(dlProbing)
	fellBack, err := e.probe(ctx)
	if err != nil {
		e.fail(err)
		e.setState(dlFailed)
		if e.cfg.RaiseErrors {
			return false, err
		}
		return false, nil
	}
	if fellBack {
		e.setState(dlFinished)
		return true, nil
	}

	runCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	go e.runPartitioner(runCtx)

	e.setState(dlRunning)
	ok := e.runUntilQuiescent(runCtx)
	cancelWorkers()
	e.workers.Wait()

	if !ok {
		e.setState(dlFailed)
		err := e.error()
		if e.cfg.RaiseErrors && err != nil {
			return false, err
		}
		return false, nil
	}

	e.setState(dlSplicing)
	if err := e.splice(); err != nil {
		e.fail(err)
		e.setState(dlFailed)
		if e.cfg.RaiseErrors {
			return false, err
		}
		return false, nil
	}

	e.setState(dlFinished)
	return true, nil
}

// Start runs the download on a background goroutine and returns a
// channel that receives the single outcome when the download settles.
// When cfg.CallbackFunction is set, it is invoked with the same value.
func (e *Engine) Start(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		ok, _ := e.Run(ctx)
		if e.cfg.CallbackFunction != nil {
			e.cfg.CallbackFunction(ok)
		}
		out <- ok
		close(out)
	}()
	return out
}

func (e *Engine) runUntilQuiescent(ctx context.Context) bool {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case idx := <-e.finishedCh:
			e.removeWait(idx)
			if !e.failed() {
				e.rebalance(ctx, idx)
			}
		case <-ticker.C:
		}

		if e.failed() {
			return false
		}
		if e.waitEmpty() {
			return true
		}
	}
}

// probe issues the initial ranged GET (§4.7 "probing"), making at most
// cfg.MaxRetry attempts in total (negative meaning infinite, 0 meaning one). It reports whether the
// streaming-fallback path already completed the whole download.
func (e *Engine) probe(ctx context.Context) (fellBack bool, err error) {
	headerStart := e.cfg.StartSize

	attempt := func() error {
		resp, rerr := e.client.GetRange(ctx, e.cfg.URL, headerStart)
		if rerr != nil {
			return rerr
		}

		contentLength := resp.Header.Get("Content-Length")
		if contentLength == "" {
			e.logger.Warn("server did not report Content-Length, falling back to single-stream download")
			if e.cfg.File == "" {
				e.cfg.File = deriveFilename(resp, e.cfg.URL)
			}
			if ferr := e.streamFallback(ctx, resp); ferr != nil {
				return ferr
			}
			fellBack = true
			return nil
		}

		size, perr := strconv.ParseInt(contentLength, 10, 64)
		if perr != nil {
			resp.Body.Close()
			return fmt.Errorf("invalid Content-Length %q: %w", contentLength, perr)
		}
		if size <= 0 {
			resp.Body.Close()
			return &ZeroSizeError{URL: e.cfg.URL}
		}

		if e.cfg.File == "" {
			e.cfg.File = deriveFilename(resp, e.cfg.URL)
		}

		e.fileSize.Store(size)
		part0 := NewPart(headerStart, headerStart+size, 0, partFileName(e.tempDir, 0), resp)
		e.appendPart(part0)
		e.addWait(0)
		e.spawnWorker(ctx, part0)
		return nil
	}

	maxAttempts := retryBudget(e.cfg.MaxRetry)
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if aerr := attempt(); aerr != nil {
			lastErr = aerr
			e.logger.Warnf("probe attempt %d/%d failed: %v", i+1, maxAttempts, aerr)
			continue
		}
		return fellBack, nil
	}
	if lastErr == nil {
		lastErr = &ConnectError{URL: e.cfg.URL}
	}
	return false, lastErr
}

// streamFallback consumes the whole response body in one pass when the
// server did not report a Content-Length (§4.7 "streaming-fallback"),
// writing directly to the output file and feeding the global rolling
// window. The resulting file is not range-partitioned and bypasses
// splicing entirely.
func (e *Engine) streamFallback(ctx context.Context, resp *http.Response) error {
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if e.cfg.OpenType == OpenAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(e.OutputPath(), flags, 0644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer f.Close()

	reader := newChunkReader(resp, e.cfg.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, rerr := reader.Next()
		if len(chunk) > 0 {
			if _, werr := f.Write(chunk); werr != nil {
				return fmt.Errorf("writing fallback stream: %w", werr)
			}
			now := time.Now().Unix()
			e.globalMu.Lock()
			if now != e.historyTime {
				e.historyTime = now
				e.historyNum = int64(len(chunk))
			} else {
				e.historyNum += int64(len(chunk))
			}
			e.globalMu.Unlock()
			e.globalNow.Add(int64(len(chunk)))
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return fmt.Errorf("reading fallback stream: %w", rerr)
		}
	}
}

// retryBudget turns a possibly-negative retry configuration value into a
// concrete attempt count; negative means "treat as infinite" (bounded by
// a very large, practically-unreachable count so it stays cancellable
// via context).
func retryBudget(maxRetry int) int {
	if maxRetry < 0 {
		return math.MaxInt32
	}
	if maxRetry == 0 {
		return 1
	}
	return maxRetry
}
