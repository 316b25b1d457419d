package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithRunID_And_RunIDFromCtx(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := WithRunID(context.Background(), id)

	got, ok := RunIDFromCtx(ctx)
	if !ok {
		t.Fatal("expected ok=true for valid UUID")
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestRunIDFromCtx_EmptyContext(t *testing.T) {
	t.Parallel()

	got, ok := RunIDFromCtx(context.Background())
	if ok {
		t.Fatal("expected ok=false for empty context")
	}
	if got != uuid.Nil {
		t.Fatalf("expected uuid.Nil, got %s", got)
	}
}

func TestRunIDFromCtx_NilUUID(t *testing.T) {
	t.Parallel()

	ctx := WithRunID(context.Background(), uuid.Nil)

	if _, ok := RunIDFromCtx(ctx); ok {
		t.Fatal("expected ok=false for uuid.Nil")
	}
}

func TestWithUnit_And_UnitFromCtx(t *testing.T) {
	t.Parallel()

	ctx := WithUnit(context.Background(), "cs->de")

	if got := UnitFromCtx(ctx); got != "cs->de" {
		t.Fatalf("expected cs->de, got %q", got)
	}
	if got := UnitFromCtx(context.Background()); got != "" {
		t.Fatalf("expected empty unit, got %q", got)
	}
}
