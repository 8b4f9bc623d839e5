package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/clinicagenda/libs/kafkax"
)

type fakeSource struct {
	records   []Record
	published []int64
}

func (s *fakeSource) Claim(ctx context.Context, limit int, fn func([]Record) ([]int64, error)) error {
	batch := s.records
	if len(batch) > limit {
		batch = batch[:limit]
	}
	ids, err := fn(batch)
	s.published = append(s.published, ids...)
	return err
}

type fakeWriter struct {
	msgs   []kafka.Message
	failAt int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.failAt > 0 && len(w.msgs)+1 == w.failAt {
		return errors.New("broker down")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			ID:          int64(i + 1),
			EventID:     "evt-" + string(rune('a'+i)),
			TenantID:    "t1",
			AggregateID: "appt-1",
			EventType:   "clinic.appointment.scheduled.v1",
			Payload:     []byte(`{}`),
		}
	}
	return out
}

func TestPublishBatchWritesTopicKeyAndHeaders(t *testing.T) {
	src := &fakeSource{records: records(2)}
	w := &fakeWriter{}
	p := NewPublisher(src, w, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{})

	n, err := p.PublishBatch(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("got %d, %v", n, err)
	}
	if len(src.published) != 2 {
		t.Fatalf("expected both records marked, got %v", src.published)
	}
	msg := w.msgs[0]
	if msg.Topic != "clinic.appointment.scheduled.v1" || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-a" || meta.TenantID != "t1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestPublishBatchMarksOnlyDelivered(t *testing.T) {
	src := &fakeSource{records: records(3)}
	w := &fakeWriter{failAt: 2}
	p := NewPublisher(src, w, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: 10})

	n, err := p.PublishBatch(context.Background())
	if err == nil {
		t.Fatalf("expected write error")
	}
	if n != 1 || len(src.published) != 1 || src.published[0] != 1 {
		t.Fatalf("expected only the first record marked, got %d %v", n, src.published)
	}
}

func TestPublishBatchRespectsBatchSize(t *testing.T) {
	src := &fakeSource{records: records(5)}
	w := &fakeWriter{}
	p := NewPublisher(src, w, slog.New(slog.NewTextHandler(io.Discard, nil)), PublisherConfig{BatchSize: 3})

	n, err := p.PublishBatch(context.Background())
	if err != nil || n != 3 || len(w.msgs) != 3 {
		t.Fatalf("got %d msgs=%d err=%v", n, len(w.msgs), err)
	}
}
