// recover.go provides Client.Recover for panics that should be reported but
// not allowed to crash the process.

package raven

import "context"

// Recover captures a panic, sends it as a fatal event and returns the
// recovered value. Unlike HandlerChain.Recover it does NOT re-panic, and it
// delivers live instead of going through the crash store.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer client.Recover(ctx)
//	    // code that might panic
//	}
//
// Recover must be the deferred call itself; see RecoverValue for use inside
// a deferred closure.
func (c *Client) Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	c.CaptureFailure(ctx, FailureFromPanic(r, callers(3)), LevelFatal)
	return r
}

// RecoverValue reports a value the caller obtained from recover() and
// returns it. It does nothing for nil.
//
//	func handler(ctx context.Context) (err error) {
//	    defer func() {
//	        if r := client.RecoverValue(ctx, recover()); r != nil {
//	            err = fmt.Errorf("panic: %v", r)
//	        }
//	    }()
//	    // code that might panic
//	}
func (c *Client) RecoverValue(ctx context.Context, r any) any {
	if r == nil {
		return nil
	}
	c.CaptureFailure(ctx, FailureFromPanic(r, callers(3)), LevelFatal)
	return r
}
