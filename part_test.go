package rangedl

import "testing"

func TestPartSplit(t *testing.T) {
	p := NewPart(0, 1000, 0, "p0.tmp", nil)

	tail := p.Split(600)
	if s, to := p.Range(); s != 0 || to != 600 {
		t.Fatalf("source part range = [%d, %d), want [0, 600)", s, to)
	}
	if s, to := tail.Range(); s != 600 || to != 1000 {
		t.Fatalf("tail range = [%d, %d), want [600, 1000)", s, to)
	}
	if tail.State() != StateInit {
		t.Errorf("tail state = %v, want init", tail.State())
	}
}

// TestPartSplitDegenerate checks that split(p) with p <= start or p >= to
// leaves the source unchanged and returns a zero-length part.
func TestPartSplitDegenerate(t *testing.T) {
	cases := []int64{0, -5, 1000, 2000}

	for _, pos := range cases {
		p := NewPart(0, 1000, 0, "p0.tmp", nil)
		result := p.Split(pos)

		if s, to := p.Range(); s != 0 || to != 1000 {
			t.Errorf("split(%d): source range mutated to [%d, %d)", pos, s, to)
		}
		if s, to := result.Range(); s != to {
			t.Errorf("split(%d): degenerate result not zero-length: [%d, %d)", pos, s, to)
		}
	}
}

func TestPartRecordChunkRollingWindow(t *testing.T) {
	p := NewPart(0, 1000, 0, "p0.tmp", nil)

	p.recordChunk(100, 10)
	p.recordChunk(50, 10)
	if got := p.Speed(); got != 0 {
		t.Fatalf("speed before window rolls over = %d, want 0", got)
	}
	if got := p.Now(); got != 150 {
		t.Fatalf("now = %d, want 150", got)
	}

	p.recordChunk(20, 11)
	if got := p.Speed(); got != 150 {
		t.Fatalf("speed after window rolls over = %d, want 150", got)
	}
	if got := p.Now(); got != 170 {
		t.Fatalf("now = %d, want 170", got)
	}
}

func TestPartFinish(t *testing.T) {
	p := NewPart(100, 500, 2, "p2.tmp", nil)
	p.finish()

	if p.State() != StateFinished {
		t.Errorf("state = %v, want finished", p.State())
	}
	if got := p.Now(); got != 400 {
		t.Errorf("now = %d, want 400", got)
	}
}

func TestPartLessOrdering(t *testing.T) {
	a := NewPart(0, 100, 0, "", nil)
	b := NewPart(100, 200, 1, "", nil)

	if !partLess(a, b) {
		t.Error("expected part starting at 0 to sort before part starting at 100")
	}
	if partLess(b, a) {
		t.Error("expected part starting at 100 to not sort before part starting at 0")
	}
}

func TestPartRemainingUnknownWithNoProgress(t *testing.T) {
	p := NewPart(0, 1000, 0, "p0.tmp", nil)
	if _, ok := p.remaining(); ok {
		t.Error("expected remaining() to be unknown for a part with no progress and no speed")
	}
}

func TestPartRemainingFromSpeed(t *testing.T) {
	p := NewPart(0, 1000, 0, "p0.tmp", nil)
	p.recordChunk(100, 1)
	p.recordChunk(100, 2) // rolls the window, publishing speed=100

	seconds, ok := p.remaining()
	if !ok {
		t.Fatal("expected remaining() to report an estimate once a speed sample exists")
	}
	// 1000 - 0 - 200 bytes left at 100 B/s = 8s
	if seconds != 8 {
		t.Errorf("remaining = %v, want 8", seconds)
	}
}
