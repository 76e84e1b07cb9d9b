// http.go implements the default Deliverer over net/http.

package raven

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
)

// maxResponseBody caps how much of a collector response is read.
const maxResponseBody = 64 << 10

// HTTPOption configures an HTTPDeliverer.
type HTTPOption func(*HTTPDeliverer)

// WithHTTPClient sets the client used for requests (default: a new
// http.Client with no timeout).
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(d *HTTPDeliverer) {
		if client != nil {
			d.client = client
		}
	}
}

// WithGzip compresses request bodies and sets Content-Encoding: gzip.
func WithGzip() HTTPOption {
	return func(d *HTTPDeliverer) {
		d.gzip = true
	}
}

// WithTimeout bounds each delivery. Zero means no timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(d *HTTPDeliverer) {
		d.timeout = timeout
	}
}

// HTTPDeliverer posts requests to the collector.
type HTTPDeliverer struct {
	client  *http.Client
	gzip    bool
	timeout time.Duration
}

// NewHTTPDeliverer creates a Deliverer that POSTs event bodies.
func NewHTTPDeliverer(opts ...HTTPOption) *HTTPDeliverer {
	d := &HTTPDeliverer{client: &http.Client{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver posts req and returns the response. Non-2xx statuses are returned
// as *StatusError together with the response.
func (d *HTTPDeliverer) Deliver(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	body := req.Body
	if d.gzip {
		compressed, err := gzipBytes(body)
		if err != nil {
			return nil, fmt.Errorf("compress body: %w", err)
		}
		body = compressed
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", ContentType)
	httpReq.Header.Set("User-Agent", ClientName+"/"+Version)
	if d.gzip {
		httpReq.Header.Set("Content-Encoding", "gzip")
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post event %s: %w", req.EventID, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Body: respBody}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, &StatusError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}
	return resp, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
