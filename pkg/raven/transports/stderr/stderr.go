// Package stderr provides a deliverer that prints events to stderr in a
// human-readable format instead of posting them. Useful for development.
package stderr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/strongdm/raven/pkg/raven"
)

// Option configures the stderr deliverer.
type Option func(*config)

type config struct {
	verbose bool
	out     io.Writer
}

// WithVerbose includes tags and the root cause's stack trace in the output.
func WithVerbose() Option {
	return func(c *config) {
		c.verbose = true
	}
}

// WithWriter redirects output (default: os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

type stderrDeliverer struct {
	verbose bool
	out     io.Writer
}

// New creates a deliverer that writes each event to stderr.
func New(opts ...Option) raven.Deliverer {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrDeliverer{verbose: cfg.verbose, out: cfg.out}
}

func (s *stderrDeliverer) writer() io.Writer {
	if s.out != nil {
		return s.out
	}
	return os.Stderr
}

// Deliver formats the JSON body and writes it out.
//
// Format: [RAVEN] <timestamp> <LEVEL> <event_id> <message>
func (s *stderrDeliverer) Deliver(ctx context.Context, req *raven.Request) (*raven.Response, error) {
	if !gjson.ValidBytes(req.Body) {
		return nil, fmt.Errorf("stderr: request body for %s is not JSON", req.EventID)
	}
	body := gjson.ParseBytes(req.Body)
	w := s.writer()

	level := strings.ToUpper(body.Get("level").String())
	fmt.Fprintf(w, "[RAVEN] %s %s %s %s\n",
		body.Get("timestamp").String(), level, body.Get("event_id").String(), body.Get("message").String())

	if culprit := body.Get("culprit").String(); culprit != "" {
		fmt.Fprintf(w, "        Culprit: %s\n", culprit)
	}
	if checksum := body.Get("checksum").String(); checksum != "" {
		fmt.Fprintf(w, "        Checksum: %s\n", checksum)
	}

	if s.verbose {
		body.Get("tags").ForEach(func(k, v gjson.Result) bool {
			fmt.Fprintf(w, "        Tag %s=%s\n", k.String(), v.String())
			return true
		})
		// Root cause comes first.
		if exc := body.Get("exception.0"); exc.Exists() {
			fmt.Fprintf(w, "        %s: %s\n", exc.Get("type").String(), exc.Get("value").String())
			for _, f := range exc.Get("stacktrace.frames").Array() {
				fmt.Fprintf(w, "          %s.%s(%s:%d)\n",
					f.Get("module").String(), f.Get("function").String(),
					f.Get("filename").String(), f.Get("lineno").Int())
			}
		}
	}

	return &raven.Response{StatusCode: http.StatusOK}, nil
}
