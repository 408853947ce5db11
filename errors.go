package rangedl

import "fmt"

// ConnectError is returned whenever an HTTP response's status code falls
// outside classes 2xx and 3xx, or the transport fails before headers
// arrive.
type ConnectError struct {
	URL string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("can not connect to %s", e.URL)
}

// ZeroSizeError is returned when the probe resolves a Content-Length of
// zero or less.
type ZeroSizeError struct {
	URL string
}

func (e *ZeroSizeError) Error() string {
	return fmt.Sprintf("can not get the size of %s", e.URL)
}

// FileNotFoundError is returned when resume mode is requested but the
// output file is missing or not writable.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("can not open file '%s' for download", e.Path)
}

// ErrPartTooShort is returned during splicing when a part's temp file is
// shorter than its declared range.
var ErrPartTooShort = fmt.Errorf("the size of the part is not enough")
