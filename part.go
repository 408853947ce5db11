package rangedl

import (
	"net/http"
	"sync"
	"time"
)

// PartState is one of the four stages a Part moves through on its way
// from creation to completion.
type PartState int

const (
	StateInit PartState = iota
	StateConnecting
	StateDownloading
	StateFinished
)

// Code returns the numeric state code (0..3) the display uses to pick a
// color.
func (s PartState) Code() int {
	return int(s)
}

func (s PartState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateDownloading:
		return "downloading"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Part is a contiguous byte range [start, to) of the remote resource,
// owned by exactly one worker at a time. Only the owning worker mutates
// now/speed/state during a run; the rebalancer holds exclusive access to
// a Part only for the duration of a split call on a part it does not
// own while running (see partition.go).
type Part struct {
	mu sync.Mutex

	num      int
	start    int64
	to       int64
	now      int64
	speed    int64
	state    PartState
	retry    int
	fileName string
	stream   *http.Response

	historyNum  int64
	historyTime int64
	startTime   time.Time
}

// NewPart constructs a Part covering [start, to). stream, when non-nil,
// is the response carried over from the probe — only Part 0 has one.
func NewPart(start, to int64, num int, fileName string, stream *http.Response) *Part {
	return &Part{
		num:      num,
		start:    start,
		to:       to,
		fileName: fileName,
		stream:   stream,
		state:    StateInit,
	}
}

// Split truncates the part at position and returns a new Part covering
// [position, originalTo). If position is not strictly inside (start,
// to), the part is unchanged and a degenerate empty Part at [to, to) is
// returned — callers must treat that as "no split happened".
func (p *Part) Split(position int64) *Part {
	p.mu.Lock()
	defer p.mu.Unlock()

	if position <= p.start || position >= p.to {
		return &Part{start: p.to, to: p.to, state: StateFinished}
	}

	originalTo := p.to
	p.to = position
	return NewPart(position, originalTo, 0, "", nil)
}

// Range returns the current [start, to) boundaries.
func (p *Part) Range() (start, to int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start, p.to
}

// Now returns bytes written to this part's temp file in the current
// attempt.
func (p *Part) Now() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now
}

// Speed returns the most recently published one-second throughput
// sample.
func (p *Part) Speed() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// State returns the part's current lifecycle state.
func (p *Part) State() PartState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Part) setState(s PartState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// resetAttempt clears per-attempt counters at the start of a download
// attempt (fresh or retried).
func (p *Part) resetAttempt() {
	p.mu.Lock()
	p.now = 0
	p.startTime = time.Now()
	p.mu.Unlock()
}

// recordChunk folds L bytes arriving at wall-clock time t into the
// rolling window: if t differs from the stored window second, the
// accumulated historyNum is published as speed and the window resets.
// now always advances by L. The global counters keep the same window
// bookkeeping (historyNum/historyTime) but have no speed field, so they
// never publish a speed.
func (p *Part) recordChunk(l int64, t int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t != p.historyTime {
		p.speed = p.historyNum
		p.historyTime = t
		p.historyNum = l
	} else {
		p.historyNum += l
	}
	p.now += l
}

// finish marks the part finished and snaps now to the full range size.
func (p *Part) finish() {
	p.mu.Lock()
	p.state = StateFinished
	p.now = p.to - p.start
	p.speed = 0
	p.mu.Unlock()
}

// remaining estimates seconds left for this part given its measured
// speed, or a speed derived from elapsed wall time if none has been
// published yet. ok is false when neither estimate is available (the
// part has transferred zero bytes and has no speed sample).
func (p *Part) remaining() (seconds float64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateFinished {
		return 0, false
	}

	speed := float64(p.speed)
	if speed <= 0 {
		if p.now == 0 {
			return 0, false
		}
		elapsed := time.Since(p.startTime).Seconds()
		if elapsed <= 0 {
			return 0, false
		}
		speed = float64(p.now) / elapsed
		if speed <= 0 {
			return 0, false
		}
	}

	remainingBytes := float64(p.to - p.start - p.now)
	return remainingBytes / speed, true
}

// partLess orders parts by (start, to) ascending, used only for deterministic
// reassembly during splicing.
func partLess(a, b *Part) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return a.to < b.to
}
