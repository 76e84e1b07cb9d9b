// event.go defines the Sentry event record sent to the collector.

package raven

// TimestampLayout is the collector's timestamp format: UTC, second
// precision, no zone suffix.
const TimestampLayout = "2006-01-02T15:04:05"

// Platform is the constant platform value reported for every event.
const Platform = "go"

// Exception is one link of an exception chain.
type Exception struct {
	// Type is the Go type of the error, e.g. "*fs.PathError".
	Type string `json:"type"`

	// Value is the error message.
	Value string `json:"value"`

	// Stacktrace holds the frames captured for this link, oldest call first.
	Stacktrace Stacktrace `json:"stacktrace"`
}

// Event is the canonical record posted to the collector. It is produced by
// EventBuilder.Build and is not modified after that.
type Event struct {
	// Identity fields

	// EventID is 32 hex characters (a UUID without dashes).
	EventID string `json:"event_id"`

	// Timestamp is formatted with TimestampLayout.
	Timestamp string `json:"timestamp"`

	// Description

	Level      Level  `json:"level"`
	Message    string `json:"message,omitempty"`
	Logger     string `json:"logger,omitempty"`
	Culprit    string `json:"culprit,omitempty"`
	ServerName string `json:"server_name,omitempty"`
	Platform   string `json:"platform"`

	// Checksum groups visually identical events; see Checksum.
	Checksum string `json:"checksum,omitempty"`

	// Context maps

	Tags    map[string]string `json:"tags,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
	Modules map[string]string `json:"modules,omitempty"`

	// Exception is ordered root cause first, the error originally reported last.
	Exception []Exception `json:"exception,omitempty"`
}
