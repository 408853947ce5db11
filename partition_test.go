package rangedl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func rangeServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var start int
		fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-", &start)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)-start))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[start:])
	}))
}

func newTestEngine(t *testing.T, serverURL string, threadNum, maxThreadNum int) *Engine {
	t.Helper()
	cfg := Config{
		URL:                   serverURL,
		File:                  "out.bin",
		ThreadNum:             threadNum,
		MaxThreadNum:          maxThreadNum,
		MaxThreadRetry:        1, // bounded: avoid an unbounded retry loop against a server the test may have already closed
		DesiredCompletionTime: 30,
	}
	cfg.ensureDefaults()
	e := New(cfg, nil, nil)
	e.tempDir = t.TempDir()
	return e
}

// TestInitialSplitStaysSingleThreadedWhenFast exercises §4.6 "Initial
// split" directly (bypassing the speed-warmup gate) and checks that a
// measured speed high enough to finish within desiredCompletionTime
// derives a worker count of 1, so no further parts are created.
func TestInitialSplitStaysSingleThreadedWhenFast(t *testing.T) {
	content := make([]byte, 10000)
	server := rangeServer(t, content)
	defer server.Close()

	e := newTestEngine(t, server.URL, 0, 4)
	e.fileSize.Store(int64(len(content)))

	part0 := NewPart(0, int64(len(content)), 0, partFileName(e.tempDir, 0), nil)
	part0.now = 1000
	part0.speed = 250 // -> threadNum = min(4, 10000/(250*30)) = 1, stays single-threaded
	e.appendPart(part0)
	e.addWait(0)

	ctx := context.Background()
	e.initialSplit(ctx, part0)

	parts := e.snapshotParts()
	if len(parts) != 1 {
		t.Fatalf("expected the derived thread count to stay at 1, got %d parts", len(parts))
	}
}

func TestInitialSplitDerivesMultipleWorkers(t *testing.T) {
	content := make([]byte, 10_000_000)
	server := rangeServer(t, content)
	defer server.Close()

	e := newTestEngine(t, server.URL, 0, 10)
	e.fileSize.Store(int64(len(content)))

	part0 := NewPart(0, int64(len(content)), 0, partFileName(e.tempDir, 0), nil)
	part0.now = 0
	part0.speed = 65536 // -> threadNum = min(10, 10_000_000/(65536*30)) = 5
	e.appendPart(part0)
	e.addWait(0)

	ctx := context.Background()
	e.initialSplit(ctx, part0)

	parts := e.snapshotParts()
	if len(parts) != 5 {
		t.Fatalf("expected 5 parts, got %d", len(parts))
	}

	assertPartitionIntegrity(t, parts, 0, int64(len(content)))
}

// TestRebalanceSplitsSlowestPart exercises §4.6 "Mid-run split": among
// two in-flight parts, the one with the larger estimated remaining time
// gets split.
func TestRebalanceSplitsSlowestPart(t *testing.T) {
	content := make([]byte, 100000)
	server := rangeServer(t, content)
	defer server.Close()

	e := newTestEngine(t, server.URL, 1, 10)
	e.fileSize.Store(int64(len(content)))

	fast := NewPart(0, 10000, 0, partFileName(e.tempDir, 0), nil)
	fast.now = 9000
	fast.speed = 9000 // ~0.1s remaining
	e.appendPart(fast)

	slow := NewPart(10000, 100000, 1, partFileName(e.tempDir, 1), nil)
	slow.now = 1000
	slow.speed = 10 // (90000-1000)/10 = 8900s remaining, far above desiredCompletionTime
	e.appendPart(slow)

	ctx := context.Background()
	e.rebalance(ctx, 0)

	parts := e.snapshotParts()
	if len(parts) != 3 {
		t.Fatalf("expected the slow part to be split into a third part, got %d parts", len(parts))
	}
	assertPartitionIntegrity(t, parts, 0, int64(len(content)))
}

func TestRebalanceDoesNothingWhenAllPartsAreOnTrack(t *testing.T) {
	content := make([]byte, 1000)
	server := rangeServer(t, content)
	defer server.Close()

	e := newTestEngine(t, server.URL, 1, 10)
	e.fileSize.Store(int64(len(content)))

	p := NewPart(0, 1000, 0, partFileName(e.tempDir, 0), nil)
	p.now = 900
	p.speed = 900 // ~0.1s remaining, well under desiredCompletionTime
	e.appendPart(p)

	e.rebalance(context.Background(), 0)

	if len(e.snapshotParts()) != 1 {
		t.Fatalf("expected no split when the only part is on track")
	}
}

func assertPartitionIntegrity(t *testing.T, parts []*Part, wantStart, wantEnd int64) {
	t.Helper()

	type rng struct{ start, to int64 }
	ranges := make([]rng, len(parts))
	for i, p := range parts {
		s, to := p.Range()
		ranges[i] = rng{s, to}
	}

	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.start < b.to && b.start < a.to {
				t.Fatalf("parts %d and %d overlap: [%d,%d) vs [%d,%d)", i, j, a.start, a.to, b.start, b.to)
			}
		}
	}

	covered := int64(0)
	for _, r := range ranges {
		covered += r.to - r.start
	}
	if covered != wantEnd-wantStart {
		t.Fatalf("covered %d bytes, want %d", covered, wantEnd-wantStart)
	}
}
