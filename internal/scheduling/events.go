// Package scheduling holds the consultation and appointment state machines.
// Transitions are pure: they take the current rows and the acting party and
// return the updated rows together with the events the change emits. Storage
// and delivery live elsewhere.
package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
)

type EventType string

const (
	EventConsultationRequested         EventType = "consultation_requested"
	EventConsultationCancelled         EventType = "consultation_cancelled"
	EventConsultationCancelledByDoctor EventType = "consultation_cancelled_by_doctor"
	EventConsultationScheduled         EventType = "consultation_scheduled"
	EventConsultationRescheduled       EventType = "consultation_rescheduled"
	EventConsultationConfirmed         EventType = "consultation_confirmed"
	EventAppointmentCreated            EventType = "appointment_created"
	EventAppointmentCancelledByDoctor  EventType = "appointment_cancelled_by_doctor"
	EventAppointmentCancelledByPatient EventType = "appointment_cancelled_by_patient"
	EventAppointmentConfirmed          EventType = "appointment_confirmed"
)

// Recipient addresses either one patient or every account holding a role.
type Recipient struct {
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Role      model.Role `json:"role,omitempty"`
}

func ToPatient(id uuid.UUID) Recipient {
	return Recipient{PatientID: &id}
}

func ToDoctors() Recipient {
	return Recipient{Role: model.RoleDoctor}
}

// Event is an immutable record of a transition, addressed to the counterpart.
type Event struct {
	Type       EventType              `json:"type"`
	Recipient  Recipient              `json:"recipient"`
	ActorID    uuid.UUID              `json:"actor_id"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func requestEvent(t EventType, to Recipient, actor model.Actor, req *model.ConsultationRequest, now time.Time) Event {
	data := map[string]interface{}{
		"consultation_request_id": req.ID.String(),
		"patient_id":              req.PatientID.String(),
		"status":                  string(req.Status),
	}
	if req.AppointmentDate != nil {
		data["appointment_date"] = req.AppointmentDate.Format(time.RFC3339)
	}
	return Event{Type: t, Recipient: to, ActorID: actor.ID, Data: data, OccurredAt: now}
}

func appointmentEvent(t EventType, to Recipient, actor model.Actor, apt *model.Appointment, now time.Time) Event {
	data := map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"patient_id":     apt.PatientID.String(),
		"doctor_id":      apt.DoctorID.String(),
		"scheduled_at":   apt.ScheduledAt.Format(time.RFC3339),
		"duration":       apt.Duration,
		"status":         string(apt.Status),
	}
	if apt.ConsultationRequestID != nil {
		data["consultation_request_id"] = apt.ConsultationRequestID.String()
	}
	return Event{Type: t, Recipient: to, ActorID: actor.ID, Data: data, OccurredAt: now}
}
