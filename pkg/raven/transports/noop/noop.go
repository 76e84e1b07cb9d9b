// Package noop provides a deliverer that discards every request.
// Useful for testing and for disabling delivery while keeping capture.
package noop

import (
	"context"
	"net/http"

	"github.com/strongdm/raven/pkg/raven"
)

type noopDeliverer struct{}

// New creates a deliverer that accepts every request with 200 OK and sends
// nothing.
func New() raven.Deliverer {
	return noopDeliverer{}
}

func (noopDeliverer) Deliver(ctx context.Context, req *raven.Request) (*raven.Response, error) {
	return &raven.Response{StatusCode: http.StatusOK}, nil
}
