package rangedl

import "fmt"

var byteUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count using the largest unit in {B, KB, MB,
// GB, TB} whose mantissa stays below 1024. Negative input renders as
// "unknown" — used by the display when a size is not yet known (e.g. a
// chunked transfer with no Content-Length).
func FormatBytes(n int64) string {
	if n < 0 {
		return "unknown"
	}

	size := float64(n)
	for i, unit := range byteUnits {
		divisor := 1.0
		for j := 0; j < i; j++ {
			divisor *= 1024
		}
		if size/divisor < 1024 || i == len(byteUnits)-1 {
			return fmt.Sprintf("%.2f%s", size/divisor, unit)
		}
	}
	return ""
}
