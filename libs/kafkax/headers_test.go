package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), sc)

	meta := EventMeta{EventID: "evt-1", EventType: "clinic.appointment.scheduled.v1", TenantID: "t1"}
	msg := kafka.Message{Topic: "clinic.appointment.scheduled.v1", Headers: meta.Headers(ctx)}

	if got := ExtractEventMeta(msg); got != meta {
		t.Fatalf("expected %+v, got %+v", meta, got)
	}
	out := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	if out.TraceID() != sc.TraceID() {
		t.Fatalf("trace id not propagated")
	}
}

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	got := ExtractEventMeta(kafka.Message{Topic: "topic-a", Key: []byte("key-1")})
	if got.EventID != "key-1" || got.EventType != "topic-a" {
		t.Fatalf("unexpected meta %+v", got)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka2:9092")
	if len(got) != 2 || got[0] != "kafka:9092" || got[1] != "kafka2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
