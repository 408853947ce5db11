package rangedl

import (
	"math"
	"testing"
)

// TestWorkerAttempts covers P6: a worker attempts a part at most
// maxThreadRetry+1 times when that bound is nonnegative.
func TestWorkerAttempts(t *testing.T) {
	tests := []struct {
		maxThreadRetry int
		want           uint
	}{
		{0, 1},
		{3, 4},
		{10, 11},
	}

	for _, tt := range tests {
		if got := workerAttempts(tt.maxThreadRetry); got != tt.want {
			t.Errorf("workerAttempts(%d) = %d, want %d", tt.maxThreadRetry, got, tt.want)
		}
	}
}

func TestWorkerAttemptsNegativeIsUnbounded(t *testing.T) {
	if got := workerAttempts(-1); got != math.MaxUint32 {
		t.Errorf("workerAttempts(-1) = %d, want an effectively unbounded count", got)
	}
}
