// Package notify e-mails patients when their appointment is booked or moved.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/clinicagenda/libs/kafkax"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"
)

// Topics are the appointment events that produce a notice.
var Topics = []string{model.EventAppointmentScheduled, model.EventAppointmentRescheduled}

type Notifier struct {
	sender Sender
	logger *slog.Logger
}

func NewNotifier(sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

// Handle sends the notice for one appointment event. Events without a patient
// address are skipped.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	eventType := meta.EventType
	if eventType == "" {
		eventType = msg.Topic
	}

	var p model.AppointmentEventPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	to := strings.TrimSpace(p.PatientEmail)
	if to == "" {
		n.logger.Debug("notice skipped, no patient address", "event_id", meta.EventID, "appointment_id", p.AppointmentID)
		return nil
	}

	subject, body, err := render(eventType, p)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	n.logger.Info("notice sent",
		"event_id", meta.EventID,
		"event_type", eventType,
		"appointment_id", p.AppointmentID,
		"tenant_id", p.TenantID,
	)
	return nil
}

func render(eventType string, p model.AppointmentEventPayload) (string, string, error) {
	start, err := time.Parse("2006-01-02T15:04:05", p.StartTime)
	if err != nil {
		return "", "", fmt.Errorf("decode start time: %w", err)
	}
	end, err := time.Parse("2006-01-02T15:04:05", p.EndTime)
	if err != nil {
		return "", "", fmt.Errorf("decode end time: %w", err)
	}

	var subject, lead string
	switch eventType {
	case model.EventAppointmentScheduled:
		subject, lead = "Appointment scheduled", "Your appointment has been scheduled."
	case model.EventAppointmentRescheduled:
		subject, lead = "Appointment rescheduled", "Your appointment has been moved."
	default:
		return "", "", fmt.Errorf("no notice for event type %q", eventType)
	}

	body := fmt.Sprintf("%s\n\nDate: %s\nTime: %s - %s\nReference: %s\n",
		lead,
		start.Format("02/01/2006"),
		start.Format("15:04"),
		end.Format("15:04"),
		p.AppointmentID,
	)
	return subject, body, nil
}
