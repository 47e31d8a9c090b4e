package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/internal/scheduling"
	"github.com/jwalitptl/consult-api/internal/service/notification"
	"github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

type Service struct {
	tx           repository.Transactor
	appointments repository.AppointmentRepository
	requests     repository.ConsultationRepository
	patients     repository.PatientRepository
	dispatcher   notification.Dispatcher
	log          *logger.Logger
	metrics      *metrics.Metrics
	loc          *time.Location
	now          func() time.Time
}

func NewService(
	tx repository.Transactor,
	appointments repository.AppointmentRepository,
	requests repository.ConsultationRepository,
	patients repository.PatientRepository,
	dispatcher notification.Dispatcher,
	log *logger.Logger,
	m *metrics.Metrics,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tx:           tx,
		appointments: appointments,
		requests:     requests,
		patients:     patients,
		dispatcher:   dispatcher,
		log:          log,
		metrics:      m,
		loc:          loc,
		now:          time.Now,
	}
}

// CreateDirect books an appointment for an existing patient without a
// consultation request. The slot is not required to be in the future.
func (s *Service) CreateDirect(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	at, err := scheduling.ParseSlot(req.Date, req.Time, s.loc)
	if err != nil {
		return nil, err
	}

	var out scheduling.Outcome
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.Get(ctx, req.PatientID); err != nil {
			return err
		}
		var err error
		out, err = scheduling.BookDirect(actor, req.PatientID, at, req.Duration, s.now())
		if err != nil {
			return err
		}
		return s.appointments.Create(ctx, out.Appointment)
	})
	return s.finish(ctx, "create_direct", out, err)
}

// CreateFromRequest books an appointment for a pending consultation request
// and schedules the request for the same slot.
func (s *Service) CreateFromRequest(ctx context.Context, actor model.Actor, requestID uuid.UUID, slot *model.Slot) (*model.Appointment, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	at, err := scheduling.ParseSlot(slot.Date, slot.Time, s.loc)
	if err != nil {
		return nil, err
	}

	var out scheduling.Outcome
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		out, err = scheduling.BookFromRequest(req, actor, at, slot.Duration, s.now())
		if err != nil {
			return err
		}
		if err := s.appointments.Create(ctx, out.Appointment); err != nil {
			return err
		}
		return s.requests.Update(ctx, out.Request)
	})
	return s.finish(ctx, "create_from_request", out, err)
}

func (s *Service) CancelByDoctor(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, "cancel_by_doctor", id, func(apt *model.Appointment, req *model.ConsultationRequest, now time.Time) (scheduling.Outcome, error) {
		return scheduling.CancelAppointmentByDoctor(apt, req, actor, now)
	})
}

func (s *Service) CancelByPatient(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, "cancel_by_patient", id, func(apt *model.Appointment, req *model.ConsultationRequest, now time.Time) (scheduling.Outcome, error) {
		return scheduling.CancelAppointmentByPatient(apt, req, actor, now)
	})
}

func (s *Service) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, "confirm", id, func(apt *model.Appointment, req *model.ConsultationRequest, now time.Time) (scheduling.Outcome, error) {
		return scheduling.ConfirmAppointment(apt, req, actor, now)
	})
}

// List returns the doctor's own appointments or the patient's, by role.
func (s *Service) List(ctx context.Context, actor model.Actor, status string) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{}
	if status != "" {
		st, err := model.ParseAppointmentStatus(status)
		if err != nil {
			return nil, errors.Validation(err.Error(), nil)
		}
		filters.Status = st
	}

	switch {
	case actor.IsDoctor():
		filters.DoctorID = &actor.ID
	case actor.Role == model.RolePatient && actor.PatientID != nil:
		filters.PatientID = actor.PatientID
	default:
		return nil, errors.Forbidden("only doctors and patients have appointments")
	}

	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

type transitionFunc func(apt *model.Appointment, req *model.ConsultationRequest, now time.Time) (scheduling.Outcome, error)

// transition locks the linked request before the appointment, the same order
// the consultation service uses, so the two never deadlock.
func (s *Service) transition(ctx context.Context, name string, id uuid.UUID, fn transitionFunc) (*model.Appointment, error) {
	var out scheduling.Outcome
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		peek, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}

		var req *model.ConsultationRequest
		if peek.ConsultationRequestID != nil {
			req, err = s.requests.GetForUpdate(ctx, *peek.ConsultationRequestID)
			if err != nil {
				return err
			}
		}
		apt, err := s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		out, err = fn(apt, req, s.now())
		if err != nil {
			return err
		}

		if err := s.appointments.Update(ctx, out.Appointment); err != nil {
			return err
		}
		if out.Request != nil {
			return s.requests.Update(ctx, out.Request)
		}
		return nil
	})
	return s.finish(ctx, name, out, err)
}

func (s *Service) finish(ctx context.Context, name string, out scheduling.Outcome, err error) (*model.Appointment, error) {
	s.metrics.Transitions.WithLabelValues("appointment", name, metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment transitioned",
		"transition", name,
		"appointment_id", out.Appointment.ID.String(),
		"status", string(out.Appointment.Status),
	)
	s.dispatcher.Dispatch(ctx, out.Events)
	return out.Appointment, nil
}
