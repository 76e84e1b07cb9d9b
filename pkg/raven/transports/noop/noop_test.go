package noop

import (
	"context"
	"net/http"
	"testing"

	"github.com/strongdm/raven/pkg/raven"
)

func TestNoop_ImplementsDelivererInterface(t *testing.T) {
	var _ raven.Deliverer = New()
}

func TestNoop_Deliver_ReturnsOK(t *testing.T) {
	resp, err := New().Deliver(context.Background(), &raven.Request{EventID: "evt-123"})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestNoop_ThroughTransport_CallsOnSuccess(t *testing.T) {
	tr := raven.NewGoTransport(New())
	defer tr.Close()

	h := http.Header{}
	h.Set(raven.AuthHeaderName, "Sentry sentry_key=pub")
	done := make(chan int, 1)
	tr.Send(context.Background(),
		&raven.Request{URL: "http://collector.test/", Header: h},
		raven.ResponseHandler{OnSuccess: func(r raven.Response) { done <- r.StatusCode }},
	)
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := <-done; got != http.StatusOK {
		t.Errorf("OnSuccess status = %d, want 200", got)
	}
}
