package rangedl

import (
	"fmt"
	"os"
	"runtime"
)

// supportsSparseFiles reports whether the host filesystem is expected to
// punch holes instead of allocating zeroed blocks for a seek-and-write
// preallocation, so large outputs don't eat disk before a single byte of
// real data lands.
func supportsSparseFiles() bool {
	switch runtime.GOOS {
	case "darwin", "linux":
		return true
	default:
		return false
	}
}

// preallocateOutput reserves size bytes for path ahead of splicing, so
// the final sequential writes never extend the file. On platforms
// without sparse-file support this still truncates to size, which is a
// no-op for correctness but skips the fragmentation benefit.
func preallocateOutput(path string, size int64) error {
	if size <= 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("preallocating output file: %w", err)
	}
	defer f.Close()

	if !supportsSparseFiles() {
		return f.Truncate(size)
	}

	if _, err := f.Seek(size-1, 0); err != nil {
		return fmt.Errorf("seeking to preallocate: %w", err)
	}
	if _, err := f.Write([]byte{0}); err != nil {
		return fmt.Errorf("writing sparse marker: %w", err)
	}
	return nil
}
