// failure.go defines Failure, the persistable form of an error chain.

package raven

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

// maxCauseDepth bounds cause-chain walks for error values that are not
// comparable and therefore cannot be tracked in a visited set.
const maxCauseDepth = 64

// RawFrame is a single call site as captured, before classification.
type RawFrame struct {
	Function string `msgpack:"function"`
	File     string `msgpack:"file"`
	Line     int    `msgpack:"line"`
}

// Failure is one link of an error chain together with its call frames.
// It is what the crash store persists: a type name, a message, the frames in
// natural (most recent call first) order, and the next cause.
type Failure struct {
	Type    string     `msgpack:"type"`
	Message string     `msgpack:"message"`
	Frames  []RawFrame `msgpack:"frames,omitempty"`
	Cause   *Failure   `msgpack:"cause,omitempty"`
}

// Chain returns the failure followed by its causes, outermost first. A cause
// graph that loops back on itself is cut at the first repeated link.
func (f *Failure) Chain() []*Failure {
	var chain []*Failure
	seen := make(map[*Failure]struct{})
	for cur := f; cur != nil; cur = cur.Cause {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)
	}
	return chain
}

// StackTracer is implemented by errors that carry the program counters of the
// place they were created. WithStack returns such an error.
type StackTracer interface {
	Callers() []uintptr
}

type stackError struct {
	err error
	pcs []uintptr
}

// WithStack annotates err with the caller's stack. It returns nil for a nil
// error and err unchanged if it already carries a stack.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var st StackTracer
	if errors.As(err, &st) {
		return err
	}
	return &stackError{err: err, pcs: callers(3)}
}

func (e *stackError) Error() string      { return e.err.Error() }
func (e *stackError) Unwrap() error      { return e.err }
func (e *stackError) Callers() []uintptr { return e.pcs }

// FailureFromError converts an error chain into a Failure chain by following
// Unwrap. For errors that unwrap to several errors only the first branch is
// followed.
func FailureFromError(err error) *Failure {
	var head, tail *Failure
	var pending []uintptr
	seen := make(map[any]struct{})

	for depth := 0; err != nil && depth < maxCauseDepth; depth++ {
		if reflect.ValueOf(err).Comparable() {
			if _, ok := seen[err]; ok {
				break
			}
			seen[err] = struct{}{}
		}

		// stackError is transparent: its stack belongs to the error it wraps.
		if se, ok := err.(*stackError); ok && se != nil {
			if pending == nil {
				pending = se.pcs
			}
			err = se.err
			continue
		}

		next := failureOf(err)
		if st, ok := err.(StackTracer); ok {
			next.Frames = framesFromPCs(safeCallers(st))
		} else if pending != nil {
			next.Frames = framesFromPCs(pending)
		}
		pending = nil

		if head == nil {
			head = next
		} else {
			tail.Cause = next
		}
		tail = next
		err = unwrapOne(err)
	}
	return head
}

// FailureFromPanic converts a recovered panic value. pcs are the program
// counters of the panicking goroutine; they become the frames of the
// outermost failure unless the value already carries its own stack.
func FailureFromPanic(v any, pcs []uintptr) *Failure {
	var f *Failure
	if err, ok := v.(error); ok {
		f = FailureFromError(err)
	} else {
		f = &Failure{Type: "panic", Message: fmt.Sprint(v)}
	}
	if len(f.Frames) == 0 {
		f.Frames = framesFromPCs(pcs)
	}
	return f
}

func failureOf(err error) *Failure {
	return &Failure{Type: fmt.Sprintf("%T", err), Message: errorMessage(err)}
}

// errorMessage calls err.Error the way fmt does: a panicking method yields a
// %!v(PANIC=...) marker and a nil pointer receiver yields "<nil>".
func errorMessage(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			if v := reflect.ValueOf(err); v.Kind() == reflect.Pointer && v.IsNil() {
				msg = "<nil>"
				return
			}
			msg = fmt.Sprintf("%%!v(PANIC=Error method: %v)", r)
		}
	}()
	return err.Error()
}

func safeCallers(st StackTracer) (pcs []uintptr) {
	defer func() {
		if recover() != nil {
			pcs = nil
		}
	}()
	return st.Callers()
}

// unwrapOne returns the next link, or nil when Unwrap panics.
func unwrapOne(err error) (next error) {
	defer func() {
		if recover() != nil {
			next = nil
		}
	}()
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if e != nil {
				return e
			}
		}
	}
	return nil
}

// callers returns the program counters of the current goroutine, skipping
// skip frames (0 is runtime.Callers itself).
func callers(skip int) []uintptr {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	return pcs[:n]
}

func framesFromPCs(pcs []uintptr) []RawFrame {
	if len(pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs)
	var out []RawFrame
	for {
		fr, more := frames.Next()
		if fr.Function != "" {
			out = append(out, RawFrame{Function: fr.Function, File: fr.File, Line: fr.Line})
		}
		if !more {
			break
		}
	}
	return out
}
