package kafkax

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
	HeaderTenantID  = "tenant_id"
)

// EventMeta is the metadata every clinic event carries in Kafka headers.
type EventMeta struct {
	EventID   string
	EventType string
	TenantID  string
}

// Headers builds message headers for meta and appends the W3C trace context
// found in ctx.
func (m EventMeta) Headers(ctx context.Context) []kafka.Header {
	c := &headerCarrier{}
	c.Set(HeaderEventID, m.EventID)
	c.Set(HeaderEventType, m.EventType)
	if m.TenantID != "" {
		c.Set(HeaderTenantID, m.TenantID)
	}
	otel.GetTextMapPropagator().Inject(ctx, c)
	return c.headers
}

// ExtractEventMeta reads meta from msg, falling back to the key and topic.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	c := &headerCarrier{headers: msg.Headers}
	meta := EventMeta{
		EventID:   c.Get(HeaderEventID),
		EventType: c.Get(HeaderEventType),
		TenantID:  c.Get(HeaderTenantID),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

// ExtractTraceContext returns ctx carrying the remote span found in msg headers.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, &headerCarrier{headers: msg.Headers})
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type headerCarrier struct {
	headers []kafka.Header
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}
