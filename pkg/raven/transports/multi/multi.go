// Package multi provides a deliverer that fans out to multiple deliverers.
// Every deliverer receives every request; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/raven/pkg/raven"
)

// multiDeliverer fans out to multiple deliverers.
type multiDeliverer struct {
	deliverers []raven.Deliverer
}

// New creates a deliverer that posts each request to all deliverers in
// order. All deliverers are called even if some fail. The first successful
// response is returned; errors are aggregated via errors.Join and reported
// only when no deliverer succeeded.
func New(deliverers ...raven.Deliverer) raven.Deliverer {
	return &multiDeliverer{deliverers: deliverers}
}

func (m *multiDeliverer) Deliver(ctx context.Context, req *raven.Request) (*raven.Response, error) {
	var (
		first *raven.Response
		errs  []error
	)
	for _, d := range m.deliverers {
		resp, err := d.Deliver(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first == nil {
			first = resp
		}
	}
	if first != nil {
		return first, nil
	}
	if len(errs) == 0 {
		return &raven.Response{}, nil
	}
	return nil, errors.Join(errs...)
}
