package logging

import (
	"context"
	"testing"
)

func TestGenerateCorrelationID(t *testing.T) {
	id1 := generateCorrelationID()
	id2 := generateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	if got := correlationIDFromContext(ctx); len(got) != 8 {
		t.Errorf("expected 8-character correlation ID, got %q", got)
	}
	if got := correlationIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty correlation ID on bare context, got %s", got)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), GenerateRequestID())
	id := requestIDFromContext(ctx)
	if len(id) != 36 {
		t.Errorf("expected 36-character UUID request ID, got %d", len(id))
	}
}

func TestCtxAddsContextFields(t *testing.T) {
	ctx := ContextWithNewCorrelationID(context.Background())
	ctx = ContextWithRequestID(ctx, "req-1")

	logger := Ctx(ctx)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}
