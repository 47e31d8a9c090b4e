package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

// BookDirect creates an appointment that is not tied to any request.
func BookDirect(actor model.Actor, patientID uuid.UUID, at time.Time, duration int, now time.Time) (Outcome, error) {
	if err := RequireDoctor(actor); err != nil {
		return Outcome{}, err
	}
	if err := requireDuration(duration); err != nil {
		return Outcome{}, err
	}

	apt := newAppointment(actor, patientID, nil, at, duration, now)
	return Outcome{
		Appointment: apt,
		Events:      []Event{appointmentEvent(EventAppointmentCreated, ToPatient(patientID), actor, apt, now)},
	}, nil
}

// BookFromRequest creates an appointment for a pending request and schedules
// the request for the same instant.
func BookFromRequest(req *model.ConsultationRequest, actor model.Actor, at time.Time, duration int, now time.Time) (Outcome, error) {
	if err := RequireDoctor(actor); err != nil {
		return Outcome{}, err
	}
	if err := requireDuration(duration); err != nil {
		return Outcome{}, err
	}

	out, err := Schedule(req, actor, at, now)
	if err != nil {
		return Outcome{}, err
	}

	reqID := req.ID
	apt := newAppointment(actor, req.PatientID, &reqID, at, duration, now)
	out.Appointment = apt
	out.Events = []Event{appointmentEvent(EventAppointmentCreated, ToPatient(req.PatientID), actor, apt, now)}
	return out, nil
}

// CancelAppointmentByDoctor frees the slot and reopens the linked request so
// it can be scheduled again.
func CancelAppointmentByDoctor(apt *model.Appointment, req *model.ConsultationRequest, actor model.Actor, now time.Time) (Outcome, error) {
	if err := RequireDoctor(actor); err != nil {
		return Outcome{}, err
	}
	if err := requireActive(apt, "cancel"); err != nil {
		return Outcome{}, err
	}

	a := *apt
	a.Status = model.AppointmentStatusCancelled
	a.UpdatedAt = now
	out := Outcome{Appointment: &a}
	if req != nil && req.Status == model.ConsultationStatusScheduled {
		r := *req
		r.Status = model.ConsultationStatusPending
		r.AppointmentDate = nil
		r.UpdatedAt = now
		out.Request = &r
	}
	out.Events = []Event{appointmentEvent(EventAppointmentCancelledByDoctor, ToPatient(a.PatientID), actor, &a, now)}
	return out, nil
}

// CancelAppointmentByPatient cancels the appointment and terminally cancels the
// linked request.
func CancelAppointmentByPatient(apt *model.Appointment, req *model.ConsultationRequest, actor model.Actor, now time.Time) (Outcome, error) {
	if !ownsAppointment(actor, apt, req) {
		return Outcome{}, errors.Forbidden("only the owning patient can cancel this appointment")
	}
	if err := requireActive(apt, "cancel"); err != nil {
		return Outcome{}, err
	}

	a := *apt
	a.Status = model.AppointmentStatusCancelled
	a.UpdatedAt = now
	out := Outcome{Appointment: &a}
	if req != nil && !req.Status.Terminal() {
		r := *req
		r.Status = model.ConsultationStatusCancelled
		r.AppointmentDate = nil
		r.UpdatedAt = now
		out.Request = &r
	}
	out.Events = []Event{appointmentEvent(EventAppointmentCancelledByPatient, ToDoctors(), actor, &a, now)}
	return out, nil
}

// ConfirmAppointment is the patient accepting the appointment: it completes
// and the linked request becomes confirmed.
func ConfirmAppointment(apt *model.Appointment, req *model.ConsultationRequest, actor model.Actor, now time.Time) (Outcome, error) {
	if !ownsAppointment(actor, apt, req) {
		return Outcome{}, errors.Forbidden("only the owning patient can confirm this appointment")
	}
	if err := requireActive(apt, "confirm"); err != nil {
		return Outcome{}, err
	}

	a := *apt
	a.Status = model.AppointmentStatusCompleted
	a.UpdatedAt = now
	out := Outcome{Appointment: &a}
	if req != nil && req.Status == model.ConsultationStatusScheduled {
		r := *req
		r.Status = model.ConsultationStatusConfirmed
		r.UpdatedAt = now
		out.Request = &r
	}
	out.Events = []Event{appointmentEvent(EventAppointmentConfirmed, ToDoctors(), actor, &a, now)}
	return out, nil
}

// ownsAppointment derives ownership through the linked request when there is
// one, and through the appointment itself otherwise.
func ownsAppointment(actor model.Actor, apt *model.Appointment, req *model.ConsultationRequest) bool {
	if req != nil {
		return actor.Owns(req.PatientID)
	}
	return actor.Owns(apt.PatientID)
}

func requireActive(apt *model.Appointment, op string) error {
	if !apt.Active() {
		return errors.InvalidState(fmt.Sprintf("cannot %s a %s appointment", op, apt.Status))
	}
	return nil
}

func newAppointment(actor model.Actor, patientID uuid.UUID, reqID *uuid.UUID, at time.Time, duration int, now time.Time) *model.Appointment {
	return &model.Appointment{
		Base:                  model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ConsultationRequestID: reqID,
		PatientID:             patientID,
		DoctorID:              actor.ID,
		ScheduledAt:           at,
		Duration:              duration,
		Status:                model.AppointmentStatusScheduled,
	}
}
