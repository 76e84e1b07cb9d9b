// interceptor.go implements the crash path: an ordered chain of panic
// handlers that always ends by re-panicking with the original value.

package raven

import (
	"fmt"
	"log/slog"
	"sync"
)

// UncaughtHandler is notified of a panic nobody recovered. Handlers run
// synchronously on the panicking goroutine and must not start asynchronous
// work that the process is expected to outlive.
type UncaughtHandler interface {
	HandleUncaught(f *Failure)
}

// UncaughtHandlerFunc adapts a function to UncaughtHandler.
type UncaughtHandlerFunc func(f *Failure)

// HandleUncaught calls fn.
func (fn UncaughtHandlerFunc) HandleUncaught(f *Failure) { fn(f) }

// HandlerChain is an ordered list of uncaught-panic handlers. Install puts
// raven's interceptor first; handlers added with Append run after it.
type HandlerChain struct {
	mu       sync.RWMutex
	handlers []UncaughtHandler
	logger   *slog.Logger
}

// NewHandlerChain creates a chain with the given downstream handlers.
func NewHandlerChain(handlers ...UncaughtHandler) *HandlerChain {
	return &HandlerChain{
		handlers: handlers,
		logger:   discardLogger(),
	}
}

var defaultChain = NewHandlerChain()

// DefaultHandlerChain returns the process-wide chain used by clients that
// were not given one explicitly.
func DefaultHandlerChain() *HandlerChain {
	return defaultChain
}

// SetLogger sets the logger used to report misbehaving handlers.
func (c *HandlerChain) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	c.mu.Lock()
	c.logger = logger.With("component", "handler_chain")
	c.mu.Unlock()
}

// Install puts h at the front of the chain. If h is a *CrashInterceptor and
// the chain already holds one anywhere, Install does nothing and returns
// false: a chain never carries two crash interceptors.
func (c *HandlerChain) Install(h UncaughtHandler) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ours := h.(*CrashInterceptor); ours {
		for _, existing := range c.handlers {
			if _, active := existing.(*CrashInterceptor); active {
				return false
			}
		}
	}
	c.handlers = append([]UncaughtHandler{h}, c.handlers...)
	return true
}

// Append adds h to the end of the chain.
func (c *HandlerChain) Append(h UncaughtHandler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
}

// Handlers returns a copy of the chain in invocation order.
func (c *HandlerChain) Handlers() []UncaughtHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]UncaughtHandler, len(c.handlers))
	copy(out, c.handlers)
	return out
}

// Dispatch runs every handler in order. A handler that panics is logged and
// skipped; the handlers after it still run.
func (c *HandlerChain) Dispatch(f *Failure) {
	c.mu.RLock()
	handlers := make([]UncaughtHandler, len(c.handlers))
	copy(handlers, c.handlers)
	logger := c.logger
	c.mu.RUnlock()

	for _, h := range handlers {
		c.invoke(logger, h, f)
	}
}

func (c *HandlerChain) invoke(logger *slog.Logger, h UncaughtHandler, f *Failure) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Uncaught handler panicked", "handler", fmt.Sprintf("%T", h), "panic", r)
		}
	}()
	h.HandleUncaught(f)
}

// Recover must be deferred directly. If the goroutine is panicking it
// dispatches the panic to the chain and then panics again with the original
// value, so the process terminates exactly as it would have without raven.
//
//	func main() {
//	    defer raven.DefaultHandlerChain().Recover()
//	    run()
//	}
func (c *HandlerChain) Recover() {
	r := recover()
	if r == nil {
		return
	}
	// Skip runtime.Callers, callers and Recover; the panic site follows the
	// runtime's panic frames.
	c.Dispatch(FailureFromPanic(r, callers(3)))
	panic(r)
}

// Go runs fn on a new goroutine guarded by Recover.
func (c *HandlerChain) Go(fn func()) {
	go func() {
		defer c.Recover()
		fn()
	}()
}

// CrashInterceptor is raven's uncaught handler: it persists the failure to
// the crash store so the next Client can report it as a fatal event.
type CrashInterceptor struct {
	store  *CrashStore
	logger *slog.Logger
}

// NewCrashInterceptor creates an interceptor persisting to store.
func NewCrashInterceptor(store *CrashStore, logger *slog.Logger) *CrashInterceptor {
	if logger == nil {
		logger = discardLogger()
	}
	return &CrashInterceptor{store: store, logger: logger.With("component", "crash_interceptor")}
}

// HandleUncaught persists f synchronously. It never panics.
func (i *CrashInterceptor) HandleUncaught(f *Failure) {
	if f == nil {
		return
	}
	i.logger.Error("Uncaught panic, persisting for replay",
		"level", LevelFatal, "type", f.Type, "message", f.Message)
	i.store.Persist(f)
}
