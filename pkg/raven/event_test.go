package raven

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

func TestEvent_WireFormat(t *testing.T) {
	event := Event{
		EventID:    "0123456789abcdef0123456789abcdef",
		Timestamp:  "2025-01-26T15:04:05",
		Level:      LevelError,
		Message:    "connection timed out",
		Logger:     "http",
		Culprit:    "example.com/app.fetch(fetch.go:10)",
		ServerName: "api-1",
		Platform:   Platform,
		Checksum:   "1A2B",
		Tags:       map[string]string{"device": "arm64"},
		Extra:      map[string]string{"attempt": "3"},
		Modules:    map[string]string{ClientName: Version},
		Exception: []Exception{{
			Type:  "*net.OpError",
			Value: "dial tcp: i/o timeout",
			Stacktrace: Stacktrace{Frames: []Frame{
				{Filename: "fetch.go", Module: "example.com/app", Function: "fetch", Lineno: 10, InApp: true},
			}},
		}},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := gjson.ParseBytes(data)

	checks := map[string]string{
		"event_id":          "0123456789abcdef0123456789abcdef",
		"timestamp":         "2025-01-26T15:04:05",
		"level":             "error",
		"message":           "connection timed out",
		"logger":            "http",
		"culprit":           "example.com/app.fetch(fetch.go:10)",
		"server_name":       "api-1",
		"platform":          "go",
		"checksum":          "1A2B",
		"tags.device":       "arm64",
		"extra.attempt":     "3",
		"modules.raven-go":  "1.0",
		"exception.0.type":  "*net.OpError",
		"exception.0.value": "dial tcp: i/o timeout",

		"exception.0.stacktrace.frames.0.filename": "fetch.go",
		"exception.0.stacktrace.frames.0.module":   "example.com/app",
		"exception.0.stacktrace.frames.0.function": "fetch",
		"exception.0.stacktrace.frames.0.lineno":   "10",
		"exception.0.stacktrace.frames.0.in_app":   "true",
	}
	for path, want := range checks {
		if got := body.Get(path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}

func TestEvent_OmitsEmptyOptionalFields(t *testing.T) {
	data, err := json.Marshal(Event{EventID: "id", Timestamp: "ts", Level: LevelInfo, Platform: Platform})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := gjson.ParseBytes(data)

	for _, path := range []string{"message", "logger", "culprit", "server_name", "checksum", "tags", "extra", "modules", "exception"} {
		if body.Get(path).Exists() {
			t.Errorf("%s should be omitted when empty", path)
		}
	}
	for _, path := range []string{"event_id", "timestamp", "level", "platform"} {
		if !body.Get(path).Exists() {
			t.Errorf("%s should always be present", path)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"fatal", LevelFatal},
		{"ERROR", LevelError},
		{"warning", LevelWarning},
		{"warn", LevelWarning},
		{" info ", LevelInfo},
		{"debug", LevelDebug},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if _, err := ParseLevel("critical"); err == nil {
		t.Error("ParseLevel(critical) should fail")
	}
}
