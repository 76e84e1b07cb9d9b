// level.go defines Sentry event severity levels.

package raven

import (
	"fmt"
	"strings"
)

// Level is the severity of an event as understood by the collector.
type Level string

const (
	LevelFatal   Level = "fatal"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelDebug   Level = "debug"
)

// ParseLevel converts a case-insensitive level name. "warn" is accepted as an
// alias for warning.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fatal":
		return LevelFatal, nil
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

func (l Level) String() string {
	return string(l)
}
