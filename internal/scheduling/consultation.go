package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

// Outcome is the result of a transition: the rows to persist and the events to
// dispatch once they are stored. A nil row was left untouched.
type Outcome struct {
	Request     *model.ConsultationRequest
	Appointment *model.Appointment
	Events      []Event
}

// Submit opens a new pending request on behalf of the acting patient.
func Submit(actor model.Actor, message string, now time.Time) (Outcome, error) {
	if err := RequirePatient(actor); err != nil {
		return Outcome{}, err
	}
	if err := requireMessage(message); err != nil {
		return Outcome{}, err
	}

	req := &model.ConsultationRequest{
		Base:      model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientID: *actor.PatientID,
		Message:   message,
		Status:    model.ConsultationStatusPending,
	}
	return Outcome{
		Request: req,
		Events:  []Event{requestEvent(EventConsultationRequested, ToDoctors(), actor, req, now)},
	}, nil
}

// CancelRequest is the owning patient withdrawing a pending or scheduled
// request. An active linked appointment is cancelled with it.
func CancelRequest(req *model.ConsultationRequest, apt *model.Appointment, actor model.Actor, now time.Time) (Outcome, error) {
	if !actor.Owns(req.PatientID) {
		return Outcome{}, errors.Forbidden("only the owning patient can cancel this request")
	}
	if err := requireCancellable(req); err != nil {
		return Outcome{}, err
	}

	out := cancelRequest(req, apt, now)
	out.Events = []Event{requestEvent(EventConsultationCancelled, ToDoctors(), actor, out.Request, now)}
	return out, nil
}

// CancelRequestByDoctor rejects a pending or scheduled request. Confirmed
// requests are terminal and cannot be cancelled.
func CancelRequestByDoctor(req *model.ConsultationRequest, apt *model.Appointment, actor model.Actor, now time.Time) (Outcome, error) {
	if err := RequireDoctor(actor); err != nil {
		return Outcome{}, err
	}
	if err := requireCancellable(req); err != nil {
		return Outcome{}, err
	}

	out := cancelRequest(req, apt, now)
	out.Events = []Event{requestEvent(EventConsultationCancelledByDoctor, ToPatient(req.PatientID), actor, out.Request, now)}
	return out, nil
}

// Schedule fixes a date for a pending request.
func Schedule(req *model.ConsultationRequest, actor model.Actor, at, now time.Time) (Outcome, error) {
	if err := RequireDoctor(actor); err != nil {
		return Outcome{}, err
	}
	if req.Status != model.ConsultationStatusPending {
		return Outcome{}, errors.InvalidState(fmt.Sprintf("cannot schedule a %s consultation request", req.Status))
	}
	if err := requireFuture(at, now); err != nil {
		return Outcome{}, err
	}

	r := *req
	r.Status = model.ConsultationStatusScheduled
	r.AppointmentDate = &at
	r.UpdatedAt = now
	return Outcome{
		Request: &r,
		Events:  []Event{requestEvent(EventConsultationScheduled, ToPatient(r.PatientID), actor, &r, now)},
	}, nil
}

// Reschedule moves the date of a scheduled request and its linked appointment.
func Reschedule(req *model.ConsultationRequest, apt *model.Appointment, actor model.Actor, at, now time.Time) (Outcome, error) {
	if err := RequireDoctor(actor); err != nil {
		return Outcome{}, err
	}
	if req.Status != model.ConsultationStatusScheduled {
		return Outcome{}, errors.InvalidState(fmt.Sprintf("cannot reschedule a %s consultation request", req.Status))
	}
	if err := requireFuture(at, now); err != nil {
		return Outcome{}, err
	}

	r := *req
	r.AppointmentDate = &at
	r.UpdatedAt = now
	out := Outcome{Request: &r}
	if apt != nil && apt.Active() {
		a := *apt
		a.ScheduledAt = at
		a.UpdatedAt = now
		out.Appointment = &a
	}
	out.Events = []Event{requestEvent(EventConsultationRescheduled, ToPatient(r.PatientID), actor, &r, now)}
	return out, nil
}

// ConfirmRequest is the owning patient accepting the scheduled date. The
// linked appointment, if still active, is marked completed.
func ConfirmRequest(req *model.ConsultationRequest, apt *model.Appointment, actor model.Actor, now time.Time) (Outcome, error) {
	if !actor.Owns(req.PatientID) {
		return Outcome{}, errors.Forbidden("only the owning patient can confirm this request")
	}
	if req.Status != model.ConsultationStatusScheduled || req.AppointmentDate == nil {
		return Outcome{}, errors.InvalidState(fmt.Sprintf("cannot confirm a %s consultation request without an appointment date", req.Status))
	}

	r := *req
	r.Status = model.ConsultationStatusConfirmed
	r.UpdatedAt = now
	out := Outcome{Request: &r}
	if apt != nil && apt.Active() {
		a := *apt
		a.Status = model.AppointmentStatusCompleted
		a.UpdatedAt = now
		out.Appointment = &a
	}
	out.Events = []Event{requestEvent(EventConsultationConfirmed, ToDoctors(), actor, &r, now)}
	return out, nil
}

func requireCancellable(req *model.ConsultationRequest) error {
	switch req.Status {
	case model.ConsultationStatusPending, model.ConsultationStatusScheduled:
		return nil
	}
	return errors.InvalidState(fmt.Sprintf("cannot cancel a %s consultation request", req.Status))
}

func cancelRequest(req *model.ConsultationRequest, apt *model.Appointment, now time.Time) Outcome {
	r := *req
	r.Status = model.ConsultationStatusCancelled
	r.AppointmentDate = nil
	r.UpdatedAt = now
	out := Outcome{Request: &r}
	if apt != nil && apt.Active() {
		a := *apt
		a.Status = model.AppointmentStatusCancelled
		a.UpdatedAt = now
		out.Appointment = &a
	}
	return out
}
