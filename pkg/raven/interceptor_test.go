package raven

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler records every failure it is handed.
type recordingHandler struct {
	mu       sync.Mutex
	name     string
	order    *[]string
	failures []*Failure
}

func (h *recordingHandler) HandleUncaught(f *Failure) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, f)
	if h.order != nil {
		*h.order = append(*h.order, h.name)
	}
}

// panicInside runs fn with chain.Recover deferred and returns what escaped.
func panicInside(chain *HandlerChain, fn func()) (escaped any) {
	defer func() { escaped = recover() }()
	func() {
		defer chain.Recover()
		fn()
	}()
	return nil
}

func TestHandlerChain_Install_Prepends(t *testing.T) {
	downstream := &recordingHandler{name: "downstream"}
	chain := NewHandlerChain(downstream)
	interceptor := NewCrashInterceptor(NewCrashStore(t.TempDir()), nil)

	require.True(t, chain.Install(interceptor))

	handlers := chain.Handlers()
	require.Len(t, handlers, 2)
	assert.Same(t, interceptor, handlers[0])
	assert.Same(t, downstream, handlers[1])
}

func TestHandlerChain_Install_Idempotent(t *testing.T) {
	chain := NewHandlerChain()
	store := NewCrashStore(t.TempDir())

	assert.True(t, chain.Install(NewCrashInterceptor(store, nil)))
	assert.False(t, chain.Install(NewCrashInterceptor(store, nil)))
	assert.Len(t, chain.Handlers(), 1)
}

func TestHandlerChain_Install_IdempotentBehindOtherHandlers(t *testing.T) {
	chain := NewHandlerChain()
	store := NewCrashStore(t.TempDir())
	front := &recordingHandler{name: "front"}

	require.True(t, chain.Install(NewCrashInterceptor(store, nil)))
	require.True(t, chain.Install(front))
	assert.False(t, chain.Install(NewCrashInterceptor(store, nil)))

	interceptors := 0
	for _, h := range chain.Handlers() {
		if _, ok := h.(*CrashInterceptor); ok {
			interceptors++
		}
	}
	assert.Equal(t, 1, interceptors)
	assert.Len(t, chain.Handlers(), 2)
}

func TestHandlerChain_Recover_RepanicsOriginalValue(t *testing.T) {
	rec := &recordingHandler{}
	chain := NewHandlerChain(rec)
	sentinel := errors.New("fatal")

	escaped := panicInside(chain, func() { panic(sentinel) })

	assert.Same(t, sentinel, escaped, "the original value must be re-panicked")
	require.Len(t, rec.failures, 1)
	assert.Equal(t, "fatal", rec.failures[0].Message)
	assert.NotEmpty(t, rec.failures[0].Frames)
}

func TestHandlerChain_Recover_UnhashableErrorValue(t *testing.T) {
	rec := &recordingHandler{}
	chain := NewHandlerChain(rec)
	value := valueWrapError{inner: listError{items: []string{"a", "b"}}}

	escaped := panicInside(chain, func() { panic(value) })

	assert.Equal(t, value, escaped, "the original value must be re-panicked")
	require.Len(t, rec.failures, 1)
	assert.Len(t, rec.failures[0].Chain(), 2)
}

func TestHandlerChain_Recover_NoPanic(t *testing.T) {
	rec := &recordingHandler{}
	chain := NewHandlerChain(rec)

	assert.Nil(t, panicInside(chain, func() {}))
	assert.Empty(t, rec.failures)
}

func TestHandlerChain_DispatchOrder(t *testing.T) {
	var order []string
	first := &recordingHandler{name: "first", order: &order}
	second := &recordingHandler{name: "second", order: &order}
	chain := NewHandlerChain(second)
	chain.Install(first)
	chain.Append(&recordingHandler{name: "third", order: &order})

	chain.Dispatch(&Failure{Message: "x"})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestHandlerChain_PanickingHandlerDoesNotStopChain(t *testing.T) {
	downstream := &recordingHandler{}
	chain := NewHandlerChain(
		UncaughtHandlerFunc(func(*Failure) { panic("handler bug") }),
		downstream,
	)

	escaped := panicInside(chain, func() { panic("original") })

	assert.Equal(t, "original", escaped)
	assert.Len(t, downstream.failures, 1)
}

func TestCrashInterceptor_PersistsToStore(t *testing.T) {
	store := NewCrashStore(t.TempDir())
	chain := NewHandlerChain()
	chain.Install(NewCrashInterceptor(store, nil))

	escaped := panicInside(chain, func() { panic("nil map write") })
	assert.Equal(t, "nil map write", escaped)

	pending, err := store.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	f, err := store.Load(pending[0])
	require.NoError(t, err)
	assert.Equal(t, "panic", f.Type)
	assert.Equal(t, "nil map write", f.Message)
	assert.NotEmpty(t, f.Frames)
}

func TestCrashInterceptor_NilFailure(t *testing.T) {
	store := NewCrashStore(t.TempDir())
	NewCrashInterceptor(store, nil).HandleUncaught(nil)

	pending, err := store.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
