package model

import "encoding/json"

const AggregateAppointment = "appointment"

const (
	EventAppointmentScheduled     = "clinic.appointment.scheduled.v1"
	EventAppointmentRescheduled   = "clinic.appointment.rescheduled.v1"
	EventAppointmentUpdated       = "clinic.appointment.updated.v1"
	EventAppointmentStatusChanged = "clinic.appointment.status_changed.v1"
	EventAppointmentDeleted       = "clinic.appointment.deleted.v1"
)

// Event is an outbox row written in the same transaction as the change it
// describes.
type Event struct {
	ID            string
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       json.RawMessage
}

// AppointmentEventPayload is the JSON body of every appointment event.
type AppointmentEventPayload struct {
	AppointmentID  string `json:"appointment_id"`
	TenantID       string `json:"tenant_id"`
	PatientID      string `json:"patient_id"`
	ProfessionalID string `json:"professional_id"`
	ServiceID      string `json:"service_id,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Status         Status `json:"status"`
	PreviousStatus Status `json:"previous_status,omitempty"`
	PatientEmail   string `json:"patient_email,omitempty"`
}
