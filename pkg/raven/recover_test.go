package raven

import (
	"context"
	"testing"
)

func TestRecover_CapturesPanic(t *testing.T) {
	tr := &testTransport{}
	c := newTestClient(t, tr)

	func() {
		defer c.Recover(context.Background())
		panic("test panic")
	}()

	bodies := tr.bodies()
	if len(bodies) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(bodies))
	}
	if got := bodies[0].Get("level").String(); got != "fatal" {
		t.Errorf("level = %q, want fatal", got)
	}
	if got := bodies[0].Get("exception.0.type").String(); got != "panic" {
		t.Errorf("exception type = %q, want panic", got)
	}
	if got := bodies[0].Get("message").String(); got != "test panic" {
		t.Errorf("message = %q, want %q", got, "test panic")
	}
}

func TestRecover_IncludesStackTrace(t *testing.T) {
	tr := &testTransport{}
	c := newTestClient(t, tr)

	func() {
		defer c.Recover(context.Background())
		panic("stack trace test")
	}()

	frames := tr.bodies()[0].Get("exception.0.stacktrace.frames").Array()
	if len(frames) == 0 {
		t.Fatal("stacktrace should be populated")
	}
	found := false
	for _, f := range frames {
		if f.Get("function").String() == "TestRecover_IncludesStackTrace.func1" {
			found = true
		}
	}
	if !found {
		t.Error("stacktrace should include the panicking function")
	}
}

func TestRecover_NoPanic_NoEventSent(t *testing.T) {
	tr := &testTransport{}
	c := newTestClient(t, tr)

	func() {
		defer c.Recover(context.Background())
	}()

	if len(tr.requests) != 0 {
		t.Errorf("Expected 0 events, got %d", len(tr.requests))
	}
}

func TestRecover_HandlesErrorPanic(t *testing.T) {
	tr := &testTransport{}
	c := newTestClient(t, tr)

	func() {
		defer c.Recover(context.Background())
		panic(&testError{msg: "error panic"})
	}()

	body := tr.bodies()[0]
	if got := body.Get("message").String(); got != "error panic" {
		t.Errorf("message = %q, want %q", got, "error panic")
	}
	if got := body.Get("exception.0.type").String(); got != "*raven.testError" {
		t.Errorf("exception type = %q, want *raven.testError", got)
	}
}

func TestRecoverValue_ReturnsValue(t *testing.T) {
	tr := &testTransport{}
	c := newTestClient(t, tr)

	var got any
	func() {
		defer func() {
			got = c.RecoverValue(context.Background(), recover())
		}()
		panic("return value test")
	}()

	if got != "return value test" {
		t.Errorf("RecoverValue returned %v", got)
	}
	if len(tr.requests) != 1 {
		t.Errorf("Expected 1 event, got %d", len(tr.requests))
	}
	if c.RecoverValue(context.Background(), nil) != nil {
		t.Error("RecoverValue(nil) should return nil")
	}
}

func TestRecover_IncludesContextExtra(t *testing.T) {
	tr := &testTransport{}
	c := newTestClient(t, tr)
	ctx := WithExtra(context.Background(), "job", "reindex")

	func() {
		defer c.Recover(ctx)
		panic("context test")
	}()

	if got := tr.bodies()[0].Get("extra.job").String(); got != "reindex" {
		t.Errorf("extra.job = %q, want reindex", got)
	}
}

// testError is a custom error type for testing.
type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}
