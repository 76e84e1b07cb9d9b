// stacktrace.go turns raw frames into classified Sentry frames.

package raven

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// libraryPrefix is this module's own package path. Frames from the client
// itself are never application frames.
const libraryPrefix = "github.com/strongdm/raven/"

// DefaultNotInAppPrefixes lists package path prefixes whose frames are marked
// in_app=false. A prefix matches when module+"/" starts with it.
var DefaultNotInAppPrefixes = []string{
	"runtime/",
	"testing/",
	"reflect/",
	"sync/",
	"syscall/",
	"internal/",
	"os/",
	"net/",
	"fmt/",
	"errors/",
	"io/",
	"log/",
	"context/",
	"encoding/",
	"golang.org/x/",
	"github.com/stretchr/testify/",
	libraryPrefix,
}

// Frame is one entry of a Sentry stacktrace.
type Frame struct {
	Filename string `json:"filename"`
	Module   string `json:"module"`
	Function string `json:"function"`
	Lineno   int    `json:"lineno"`
	InApp    bool   `json:"in_app"`
}

// Stacktrace holds frames oldest call first.
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// BuildStacktrace classifies the failure's own frames and orders them oldest
// call first. Causes are not included; each link of a chain gets its own
// stacktrace.
func BuildStacktrace(f *Failure, notInApp []string) Stacktrace {
	frames := make([]Frame, 0, len(f.Frames))
	for _, raw := range f.Frames {
		module, function := splitFunctionName(raw.Function)
		frames = append(frames, Frame{
			Filename: filepath.Base(raw.File),
			Module:   module,
			Function: function,
			Lineno:   raw.Line,
			InApp:    isInApp(module, notInApp),
		})
	}
	slices.Reverse(frames)
	return Stacktrace{Frames: frames}
}

// isInApp reports whether a frame from module belongs to the application.
func isInApp(module string, notInApp []string) bool {
	key := module + "/"
	for _, prefix := range notInApp {
		if strings.HasPrefix(key, prefix) {
			return false
		}
	}
	return true
}

// splitFunctionName splits a fully qualified Go function name such as
// "github.com/acme/app/pkg.(*Server).Serve.func1" into its package path and
// the remainder. The linker escapes dots in the last path element
// ("gopkg.in/yaml%2ev3"); the module is returned unescaped.
func splitFunctionName(name string) (module, function string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return "", name
	}
	dot += slash + 1
	return unescapeModule(name[:dot]), name[dot+1:]
}

func unescapeModule(module string) string {
	if !strings.Contains(module, "%") {
		return module
	}
	if unescaped, err := url.PathUnescape(module); err == nil {
		return unescaped
	}
	return module
}

// FindCulprit returns the first frame, most recent call first, whose module
// starts with appPrefix, rendered as module.function(file:line). When no
// frame matches it returns the failure message.
func FindCulprit(f *Failure, appPrefix string) string {
	if f == nil {
		return ""
	}
	if appPrefix != "" {
		for _, raw := range f.Frames {
			module, function := splitFunctionName(raw.Function)
			if strings.HasPrefix(module, appPrefix) {
				return fmt.Sprintf("%s.%s(%s:%d)", module, function, filepath.Base(raw.File), raw.Line)
			}
		}
	}
	return f.Message
}
