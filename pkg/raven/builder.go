// builder.go implements EventBuilder, the chained accumulator behind Event.

package raven

import (
	"maps"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventBuilder accumulates event fields. Setters return the builder so calls
// can be chained; Build takes an immutable snapshot.
//
// An EventBuilder is not safe for concurrent use.
type EventBuilder struct {
	eventID    string
	timestamp  time.Time
	level      Level
	message    string
	logger     string
	culprit    string
	serverName string
	platform   string
	checksum   string
	tags       map[string]string
	extra      map[string]string
	modules    map[string]string
	exception  []Exception
	failure    *Failure

	device   DeviceInfo
	notInApp []string
}

// NewEventBuilder returns a builder with a fresh event id, the current UTC
// time, the constant platform and this client's own module version.
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		eventID:   strings.ReplaceAll(uuid.NewString(), "-", ""),
		timestamp: time.Now().UTC(),
		level:     LevelInfo,
		platform:  Platform,
		modules:   map[string]string{ClientName: Version},
		device:    CurrentDevice(),
		notInApp:  DefaultNotInAppPrefixes,
	}
}

// EventID returns the identifier generated at construction. It never changes.
func (b *EventBuilder) EventID() string { return b.eventID }

// Level returns the current level.
func (b *EventBuilder) Level() Level { return b.level }

// Failure returns the failure passed to SetException, if any.
func (b *EventBuilder) Failure() *Failure { return b.failure }

func (b *EventBuilder) SetMessage(message string) *EventBuilder {
	b.message = message
	return b
}

// SetTimestamp overrides the construction time. The value is stored in UTC.
func (b *EventBuilder) SetTimestamp(t time.Time) *EventBuilder {
	b.timestamp = t.UTC()
	return b
}

func (b *EventBuilder) SetLevel(level Level) *EventBuilder {
	b.level = level
	return b
}

// SetLogger sets the name of the logger that produced the event.
func (b *EventBuilder) SetLogger(logger string) *EventBuilder {
	b.logger = logger
	return b
}

func (b *EventBuilder) SetPlatform(platform string) *EventBuilder {
	b.platform = platform
	return b
}

func (b *EventBuilder) SetCulprit(culprit string) *EventBuilder {
	b.culprit = culprit
	return b
}

// Culprit returns the current culprit.
func (b *EventBuilder) Culprit() string { return b.culprit }

// SetTags replaces the whole tag set with tags plus the device fields. The
// device fields win over caller keys of the same name.
func (b *EventBuilder) SetTags(tags map[string]string) *EventBuilder {
	merged := make(map[string]string, len(tags)+5)
	maps.Copy(merged, tags)
	maps.Copy(merged, b.device.Tags())
	b.tags = merged
	return b
}

// Tags returns the live tag map, initializing it with the device fields if
// no tags were set yet.
func (b *EventBuilder) Tags() map[string]string {
	if b.tags == nil {
		b.SetTags(nil)
	}
	return b.tags
}

func (b *EventBuilder) SetServerName(name string) *EventBuilder {
	b.serverName = name
	return b
}

// SetExtra replaces the extra map with a copy of extra.
func (b *EventBuilder) SetExtra(extra map[string]string) *EventBuilder {
	b.extra = maps.Clone(extra)
	if b.extra == nil {
		b.extra = make(map[string]string)
	}
	return b
}

// Extra returns the live extra map, creating it when unset.
func (b *EventBuilder) Extra() map[string]string {
	if b.extra == nil {
		b.extra = make(map[string]string)
	}
	return b.extra
}

// SetModule records the version of a module or library.
func (b *EventBuilder) SetModule(name, version string) *EventBuilder {
	b.modules[name] = version
	return b
}

// Modules returns the live module map.
func (b *EventBuilder) Modules() map[string]string { return b.modules }

// SetModulesFromBuildInfo records the main module and every dependency
// compiled into the binary. It is a no-op when build info is unavailable.
func (b *EventBuilder) SetModulesFromBuildInfo() *EventBuilder {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if info.Main.Path != "" {
		b.modules[info.Main.Path] = info.Main.Version
	}
	for _, dep := range info.Deps {
		mod := dep
		if dep.Replace != nil {
			mod = dep.Replace
		}
		b.modules[dep.Path] = mod.Version
	}
	return b
}

// SetChecksum stores Checksum(s); s is typically the message or a normalized
// culprit.
func (b *EventBuilder) SetChecksum(s string) *EventBuilder {
	b.checksum = Checksum(s)
	return b
}

// Checksum returns the stored checksum, empty if none was set.
func (b *EventBuilder) Checksum() string { return b.checksum }

// SetNotInAppPrefixes replaces the package prefixes used to classify frames.
// It must be called before SetException to take effect.
func (b *EventBuilder) SetNotInAppPrefixes(prefixes []string) *EventBuilder {
	b.notInApp = prefixes
	return b
}

// SetException replaces the exception chain with one entry per link of f,
// ordered root cause first. Each entry carries its own stacktrace.
func (b *EventBuilder) SetException(f *Failure) *EventBuilder {
	b.failure = f
	chain := f.Chain()
	exceptions := make([]Exception, 0, len(chain))
	for _, link := range chain {
		exceptions = append(exceptions, Exception{
			Type:       link.Type,
			Value:      link.Message,
			Stacktrace: BuildStacktrace(link, b.notInApp),
		})
	}
	slices.Reverse(exceptions)
	b.exception = exceptions
	return b
}

// SetError is SetException(FailureFromError(err)).
func (b *EventBuilder) SetError(err error) *EventBuilder {
	return b.SetException(FailureFromError(err))
}

// Build returns a snapshot of the accumulated fields. Later changes to the
// builder do not affect the returned Event.
func (b *EventBuilder) Build() Event {
	return Event{
		EventID:    b.eventID,
		Timestamp:  b.timestamp.Format(TimestampLayout),
		Level:      b.level,
		Message:    b.message,
		Logger:     b.logger,
		Culprit:    b.culprit,
		ServerName: b.serverName,
		Platform:   b.platform,
		Checksum:   b.checksum,
		Tags:       maps.Clone(b.tags),
		Extra:      maps.Clone(b.extra),
		Modules:    maps.Clone(b.modules),
		Exception:  slices.Clone(b.exception),
	}
}
