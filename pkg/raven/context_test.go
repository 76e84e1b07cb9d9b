package raven

import (
	"context"
	"testing"
)

func TestExtraRoundTrip(t *testing.T) {
	ctx := WithExtra(context.Background(), "request_id", "req-abc123")

	got := ExtraFromContext(ctx)
	if got["request_id"] != "req-abc123" {
		t.Errorf("ExtraFromContext = %v, want request_id=req-abc123", got)
	}
}

func TestExtraFromContext_NotSet(t *testing.T) {
	if got := ExtraFromContext(context.Background()); got != nil {
		t.Errorf("ExtraFromContext = %v, want nil", got)
	}
}

func TestWithExtra_Accumulates(t *testing.T) {
	parent := WithExtra(context.Background(), "a", "1")
	child := WithExtra(parent, "b", "2")
	child = WithExtra(child, "a", "override")

	got := ExtraFromContext(child)
	if got["a"] != "override" || got["b"] != "2" {
		t.Errorf("child extra = %v", got)
	}

	// The parent context is unaffected.
	if p := ExtraFromContext(parent); len(p) != 1 || p["a"] != "1" {
		t.Errorf("parent extra = %v, want only a=1", p)
	}
}

func TestExtraFromContext_ReturnsCopy(t *testing.T) {
	ctx := WithExtra(context.Background(), "a", "1")

	got := ExtraFromContext(ctx)
	got["a"] = "mutated"

	if ExtraFromContext(ctx)["a"] != "1" {
		t.Error("mutating the returned map changed the context")
	}
}
