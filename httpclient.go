package rangedl

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// rangeClient issues ranged GETs and classifies the response, wrapping a
// single shared *http.Client parameterized by the configured timeout.
type rangeClient struct {
	client  *http.Client
	headers http.Header
}

func newRangeClient(timeout time.Duration, headers http.Header) *rangeClient {
	return &rangeClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxIdleConnsPerHost: maxIdleConnsPerHost,
				IdleConnTimeout:     idleConnTimeout,
				TLSHandshakeTimeout: tlsHandshakeTimeout,
				DisableCompression:  true,
			},
		},
		headers: headers,
	}
}

const (
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
)

// GetRange issues GET url with header Range: bytes=<start>- plus any
// caller-supplied extra headers, and classifies the response: status
// classes 2xx and 3xx are acceptable, anything else fails with
// ConnectError.
func (c *rangeClient) GetRange(ctx context.Context, url string, start int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building ranged request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ConnectError{URL: url}
	}
	if resp.StatusCode/100 != 2 && resp.StatusCode/100 != 3 {
		resp.Body.Close()
		return nil, &ConnectError{URL: url}
	}
	return resp, nil
}

// chunkReader exposes a response body as a lazy sequence of byte chunks
// bounded by chunkSize.
type chunkReader struct {
	resp *http.Response
	buf  []byte
}

func newChunkReader(resp *http.Response, chunkSize int) *chunkReader {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &chunkReader{resp: resp, buf: make([]byte, chunkSize)}
}

// Next returns the next chunk, or io.EOF when the stream is exhausted.
// The returned slice is only valid until the next call to Next.
func (c *chunkReader) Next() ([]byte, error) {
	n, err := c.resp.Body.Read(c.buf)
	if n > 0 {
		return c.buf[:n], nil
	}
	return nil, err
}

func (c *chunkReader) Close() error {
	return c.resp.Body.Close()
}
