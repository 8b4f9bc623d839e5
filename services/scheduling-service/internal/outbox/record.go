package outbox

import "time"

// Record is an outbox row waiting to be published. The Kafka topic equals
// EventType.
type Record struct {
	ID            int64
	EventID       string
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}
