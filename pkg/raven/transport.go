// transport.go defines the delivery boundary: requests, deliverers and
// non-blocking transports.

package raven

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrMissingAuth is reported when a request lacks the X-Sentry-Auth
	// header. It is a hard failure and is never retried.
	ErrMissingAuth = errors.New("request has no " + AuthHeaderName + " header")

	// ErrTransportClosed is reported for sends attempted after Close.
	ErrTransportClosed = errors.New("transport is closed")
)

// ContentType is the media type of event bodies.
const ContentType = "application/json; charset=utf-8"

// Request is a finished, serialized event ready to be posted.
type Request struct {
	URL     string
	Header  http.Header
	Body    []byte
	EventID string
}

// Validate reports whether the request can be sent at all.
func (r *Request) Validate() error {
	if r.Header.Get(AuthHeaderName) == "" {
		return ErrMissingAuth
	}
	if r.URL == "" {
		return errors.New("request has no URL")
	}
	return nil
}

// Response is the collector's answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// StatusError is returned by deliverers for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector responded %d: %s", e.StatusCode, e.Body)
}

// ResponseHandler receives the outcome of one send. Exactly one of OnSuccess
// and OnFailure is called; nil callbacks are skipped.
type ResponseHandler struct {
	OnSuccess func(resp Response)
	OnFailure func(resp Response, err error)
}

func (h ResponseHandler) succeed(resp Response) {
	if h.OnSuccess != nil {
		h.OnSuccess(resp)
	}
}

func (h ResponseHandler) fail(resp Response, err error) {
	if h.OnFailure != nil {
		h.OnFailure(resp, err)
	}
}

// Complete dispatches a Deliver result to the matching callback.
func (h ResponseHandler) Complete(resp *Response, err error) {
	var r Response
	if resp != nil {
		r = *resp
	}
	if err != nil {
		h.fail(r, err)
		return
	}
	h.succeed(r)
}

// Deliverer performs one blocking delivery. Implementations must be safe for
// concurrent use and return a *StatusError for non-2xx responses.
type Deliverer interface {
	Deliver(ctx context.Context, req *Request) (*Response, error)
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, req *Request) (*Response, error)

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Transport accepts requests without blocking the caller and reports each
// outcome through the handler. Implementations must be safe for concurrent
// use. Ordering between sends is not guaranteed.
type Transport interface {
	// Send dispatches the request and returns immediately.
	Send(ctx context.Context, req *Request, handler ResponseHandler)

	// Flush waits until sends dispatched so far have completed or ctx ends.
	Flush(ctx context.Context) error

	// Close stops accepting sends and releases resources.
	Close() error
}

// goTransport runs every send on its own goroutine.
type goTransport struct {
	deliverer Deliverer
	inflight  atomic.Int64
	closeMu   sync.RWMutex
	closed    bool
}

// NewGoTransport wraps a Deliverer so each send runs on its own goroutine.
// Sends are detached from the caller's cancellation: fire and forget.
func NewGoTransport(d Deliverer) Transport {
	return &goTransport{deliverer: d}
}

func (t *goTransport) Send(ctx context.Context, req *Request, handler ResponseHandler) {
	if err := req.Validate(); err != nil {
		handler.fail(Response{}, err)
		return
	}

	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		handler.fail(Response{}, ErrTransportClosed)
		return
	}

	ctx = context.WithoutCancel(ctx)
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Add(-1)
		handler.Complete(t.deliverer.Deliver(ctx, req))
	}()
}

func (t *goTransport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for t.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close rejects further sends. In-flight sends are not awaited; call Flush
// first to wait for them.
func (t *goTransport) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()
	return nil
}
