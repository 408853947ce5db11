package rangedl

import (
	"net/http"
	"time"
)

// Default option values.
const (
	DefaultChunkSize             = 1024
	DefaultMaxRetry              = 5
	DefaultMaxThreadRetry        = -1 // negative means infinite
	DefaultMaxThreadNum          = 10
	DefaultDesiredCompletionTime = 30 // seconds
	DefaultOpenType              = OpenTruncate
)

// OpenType selects the final file's open mode.
type OpenType int

const (
	OpenTruncate OpenType = iota // "wb"
	OpenAppend                   // "ab"
)

// Config is the engine's configuration. Zero values are filled in by
// ensureDefaults.
type Config struct {
	URL       string
	File      string
	WorkDir   string // joined onto File by Engine.OutputPath when set
	Header    http.Header
	ChunkSize int

	MaxRetry       int
	MaxThreadRetry int
	Timeout        time.Duration // zero means no timeout

	ContinueDownloadTest bool
	StartSize            int64
	OpenType             OpenType

	RaiseErrors     bool
	Log             bool
	ShowProgressBar bool
	Transient       bool

	Threaded bool
	Deamon   bool

	ThreadNum             int
	MaxThreadNum          int
	DesiredCompletionTime int

	CallbackFunction func(bool)
}

func (c *Config) ensureDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxRetry == 0 {
		c.MaxRetry = DefaultMaxRetry
	}
	if c.MaxThreadRetry == 0 {
		c.MaxThreadRetry = DefaultMaxThreadRetry
	}
	if c.MaxThreadNum == 0 {
		c.MaxThreadNum = DefaultMaxThreadNum
	}
	if c.DesiredCompletionTime <= 0 {
		c.DesiredCompletionTime = DefaultDesiredCompletionTime
	}
	if c.Header == nil {
		c.Header = http.Header{}
	}
}
