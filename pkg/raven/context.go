// context.go carries per-request diagnostic context through context.Context.

package raven

import (
	"context"
	"maps"
)

// Context key type (unexported to avoid collisions)
type extraKey struct{}

// WithExtra returns a context carrying key=value as extra event data. Events
// captured with the context include it unless the builder already set the
// same key.
func WithExtra(ctx context.Context, key, value string) context.Context {
	parent, _ := ctx.Value(extraKey{}).(map[string]string)
	extra := make(map[string]string, len(parent)+1)
	maps.Copy(extra, parent)
	extra[key] = value
	return context.WithValue(ctx, extraKey{}, extra)
}

// ExtraFromContext returns a copy of the extra data attached to ctx, or nil.
func ExtraFromContext(ctx context.Context) map[string]string {
	if ctx == nil {
		return nil
	}
	extra, _ := ctx.Value(extraKey{}).(map[string]string)
	return maps.Clone(extra)
}
