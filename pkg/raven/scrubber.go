// scrubber.go redacts secrets and personal data from events before they
// leave the process.

package raven

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

const redacted = "[REDACTED]"

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitiveKeys are extra case-insensitive substrings marking an extra or
	// tag key as sensitive.
	SensitiveKeys []string

	// MaxMessageSize caps message, culprit and exception values (default: 4096).
	MaxMessageSize int

	// MaxValueSize caps each extra value (default: 1024).
	MaxValueSize int

	// ScrubMessages enables pattern redaction of free text (default: true).
	ScrubMessages bool

	// ScrubTags applies key redaction to tags as well as extra (default: false).
	ScrubTags bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 4096,
		MaxValueSize:   1024,
		ScrubMessages:  true,
	}
}

// Compiled once at package init.
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// Credentials, including ones embedded in URLs and DSNs
	regexp.MustCompile(`(?i)(password|passwd|secret|credential)[=:\s]+['"]?[^\s'",]+['"]?`),
	regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"passwd",
	"credential",
	"auth",
	"cookie",
}

// Scrubber redacts sensitive data from events.
type Scrubber struct {
	cfg  ScrubberConfig
	keys []string
}

// NewScrubber creates a scrubber. Zero size limits fall back to the defaults.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	def := DefaultScrubberConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = def.MaxValueSize
	}
	keys := slices.Clone(sensitiveKeyPatterns)
	for _, k := range cfg.SensitiveKeys {
		keys = append(keys, strings.ToLower(k))
	}
	return &Scrubber{cfg: cfg, keys: keys}
}

// ScrubEvent returns a redacted copy of event. The input is not modified.
func (s *Scrubber) ScrubEvent(event Event) Event {
	event.Message = s.ScrubMessage(event.Message)
	event.Culprit = s.ScrubMessage(event.Culprit)
	event.Extra = s.ScrubMap(event.Extra)
	if s.cfg.ScrubTags {
		event.Tags = s.ScrubMap(event.Tags)
	}
	if len(event.Exception) > 0 {
		exceptions := slices.Clone(event.Exception)
		for i := range exceptions {
			exceptions[i].Value = s.ScrubMessage(exceptions[i].Value)
		}
		event.Exception = exceptions
	}
	return event
}

// ScrubMessage truncates msg and replaces sensitive patterns.
func (s *Scrubber) ScrubMessage(msg string) string {
	if msg == "" {
		return msg
	}
	msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	if !s.cfg.ScrubMessages {
		return msg
	}
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, redacted)
	}
	return msg
}

// ScrubMap redacts values under sensitive keys and truncates the rest.
func (s *Scrubber) ScrubMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for key, value := range out {
		if s.isSensitiveKey(key) {
			out[key] = redacted
			continue
		}
		out[key] = truncateWithMarker(value, s.cfg.MaxValueSize)
	}
	return out
}

func (s *Scrubber) isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, pattern := range s.keys {
		if strings.Contains(key, pattern) {
			return true
		}
	}
	return false
}

func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
