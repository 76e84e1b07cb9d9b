package stderr

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/strongdm/raven/pkg/raven"
)

const sampleBody = `{
  "event_id": "0123456789abcdef0123456789abcdef",
  "timestamp": "2025-01-26T15:04:05",
  "level": "error",
  "message": "nil pointer dereference",
  "culprit": "example.com/app.handle(server.go:42)",
  "checksum": "1A2B3C",
  "platform": "go",
  "tags": {"device": "amd64"},
  "exception": [
    {"type": "runtime.Error", "value": "inner", "stacktrace": {"frames": [
      {"filename": "server.go", "module": "example.com/app", "function": "handle", "lineno": 42, "in_app": true}
    ]}},
    {"type": "*errors.errorString", "value": "outer", "stacktrace": {"frames": []}}
  ]
}`

func TestStderr_ImplementsDelivererInterface(t *testing.T) {
	var _ raven.Deliverer = New()
}

func TestStderr_Deliver_FormatsOutput(t *testing.T) {
	var buf bytes.Buffer
	d := New(WithWriter(&buf))

	resp, err := d.Deliver(context.Background(), &raven.Request{Body: []byte(sampleBody)})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	output := buf.String()
	for _, want := range []string{
		"[RAVEN]",
		"2025-01-26T15:04:05",
		"ERROR",
		"0123456789abcdef0123456789abcdef",
		"nil pointer dereference",
		"Culprit: example.com/app.handle(server.go:42)",
		"Checksum: 1A2B3C",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Tag device") {
		t.Error("non-verbose output should not list tags")
	}
}

func TestStderr_Verbose_IncludesRootCauseStack(t *testing.T) {
	var buf bytes.Buffer
	d := New(WithWriter(&buf), WithVerbose())

	if _, err := d.Deliver(context.Background(), &raven.Request{Body: []byte(sampleBody)}); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Tag device=amd64",
		"runtime.Error: inner",
		"example.com/app.handle(server.go:42)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("verbose output missing %q:\n%s", want, output)
		}
	}
}

func TestStderr_Deliver_RejectsNonJSON(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(WithWriter(&buf)).Deliver(context.Background(), &raven.Request{Body: []byte("not json")})
	if err == nil {
		t.Error("expected error for non-JSON body")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written for a rejected body, got %q", buf.String())
	}
}
