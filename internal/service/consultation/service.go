package consultation

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
	requests     repository.ConsultationRepository
	appointments repository.AppointmentRepository
	dispatcher   notification.Dispatcher
	log          *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(
	tx repository.Transactor,
	requests repository.ConsultationRepository,
	appointments repository.AppointmentRepository,
	dispatcher notification.Dispatcher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		tx:           tx,
		requests:     requests,
		appointments: appointments,
		dispatcher:   dispatcher,
		log:          log,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *Service) Submit(ctx context.Context, actor model.Actor, message string) (*model.ConsultationRequest, error) {
	out, err := scheduling.Submit(actor, message, s.now())
	if err == nil {
		err = s.tx.WithTx(ctx, func(ctx context.Context) error {
			return s.requests.Create(ctx, out.Request)
		})
	}
	return s.finish(ctx, "submit", out, err)
}

func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error) {
	return s.transition(ctx, "cancel", id, func(req *model.ConsultationRequest, apt *model.Appointment, now time.Time) (scheduling.Outcome, error) {
		return scheduling.CancelRequest(req, apt, actor, now)
	})
}

func (s *Service) CancelByDoctor(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, "cancel_by_doctor", id, func(req *model.ConsultationRequest, apt *model.Appointment, now time.Time) (scheduling.Outcome, error) {
		return scheduling.CancelRequestByDoctor(req, apt, actor, now)
	})
}

func (s *Service) Schedule(ctx context.Context, actor model.Actor, id uuid.UUID, at time.Time) (*model.ConsultationRequest, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, "schedule", id, func(req *model.ConsultationRequest, _ *model.Appointment, now time.Time) (scheduling.Outcome, error) {
		return scheduling.Schedule(req, actor, at, now)
	})
}

func (s *Service) Reschedule(ctx context.Context, actor model.Actor, id uuid.UUID, at time.Time) (*model.ConsultationRequest, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, "reschedule", id, func(req *model.ConsultationRequest, apt *model.Appointment, now time.Time) (scheduling.Outcome, error) {
		return scheduling.Reschedule(req, apt, actor, at, now)
	})
}

func (s *Service) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error) {
	return s.transition(ctx, "confirm", id, func(req *model.ConsultationRequest, apt *model.Appointment, now time.Time) (scheduling.Outcome, error) {
		return scheduling.ConfirmRequest(req, apt, actor, now)
	})
}

// ListByStatus is the doctor's queue. An empty status lists everything.
func (s *Service) ListByStatus(ctx context.Context, actor model.Actor, status string) ([]*model.ConsultationRequest, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}

	var filter *model.ConsultationStatus
	if status != "" {
		st, err := model.ParseConsultationStatus(status)
		if err != nil {
			return nil, errors.Validation(err.Error(), nil)
		}
		filter = &st
	}

	requests, err := s.requests.ListByStatus(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultation requests: %w", err)
	}
	return requests, nil
}

func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.ConsultationRequest, error) {
	if err := scheduling.RequirePatient(actor); err != nil {
		return nil, err
	}

	requests, err := s.requests.ListByPatient(ctx, *actor.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultation requests: %w", err)
	}
	return requests, nil
}

// Get is visible to doctors and to the owning patient.
func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ConsultationRequest, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() && !actor.Owns(req.PatientID) {
		return nil, errors.Forbidden("not allowed to view this consultation request")
	}
	return req, nil
}

type transitionFunc func(req *model.ConsultationRequest, apt *model.Appointment, now time.Time) (scheduling.Outcome, error)

// transition locks the request and its active appointment, applies fn and
// writes back whatever fn changed, all in one transaction. Events are
// dispatched only after commit.
func (s *Service) transition(ctx context.Context, name string, id uuid.UUID, fn transitionFunc) (*model.ConsultationRequest, error) {
	var out scheduling.Outcome
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		apt, err := s.appointments.GetActiveByRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}

		out, err = fn(req, apt, s.now())
		if err != nil {
			return err
		}

		if out.Request != nil {
			if err := s.requests.Update(ctx, out.Request); err != nil {
				return err
			}
		}
		if out.Appointment != nil {
			if err := s.appointments.Update(ctx, out.Appointment); err != nil {
				return err
			}
		}
		return nil
	})
	return s.finish(ctx, name, out, err)
}

func (s *Service) finish(ctx context.Context, name string, out scheduling.Outcome, err error) (*model.ConsultationRequest, error) {
	s.metrics.Transitions.WithLabelValues("consultation", name, metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info("consultation request transitioned",
		"transition", name,
		"request_id", out.Request.ID.String(),
		"status", string(out.Request.Status),
	)
	s.dispatcher.Dispatch(ctx, out.Events)
	return out.Request, nil
}
