package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/email"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/internal/scheduling"
	"github.com/jwalitptl/consult-api/internal/service/event"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

const (
	// EventNotificationCreated is the outbox event type the worker fans out
	// to the notifications channel.
	EventNotificationCreated = "notification.created"

	defaultListLimit = 50
	maxListLimit     = 200
)

// Dispatcher delivers the events of a committed transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []scheduling.Event)
}

type Service interface {
	Dispatcher
	List(ctx context.Context, actor model.Actor, limit int) ([]*model.NotificationView, error)
}

type service struct {
	tx       repository.Transactor
	repo     repository.NotificationRepository
	users    repository.UserRepository
	patients repository.PatientRepository
	events   event.Emitter
	emailSvc email.Service
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	tx repository.Transactor,
	repo repository.NotificationRepository,
	users repository.UserRepository,
	patients repository.PatientRepository,
	events event.Emitter,
	emailSvc email.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) Service {
	return &service{
		tx:       tx,
		repo:     repo,
		users:    users,
		patients: patients,
		events:   events,
		emailSvc: emailSvc,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Dispatch runs after the transition has committed and never fails the
// caller. Delivery problems are logged and counted per recipient.
func (s *service) Dispatch(ctx context.Context, events []scheduling.Event) {
	for _, evt := range events {
		recipients, err := s.resolve(ctx, evt.Recipient)
		if err != nil {
			s.failed(evt, uuid.Nil, err, "failed to resolve notification recipients")
			continue
		}
		for _, user := range recipients {
			if err := s.deliver(ctx, evt, user); err != nil {
				s.failed(evt, user.ID, err, "failed to deliver notification")
				continue
			}
			s.metrics.Notifications.WithLabelValues(string(evt.Type), metrics.Result(nil)).Inc()
		}
	}
}

func (s *service) resolve(ctx context.Context, to scheduling.Recipient) ([]*model.User, error) {
	if to.PatientID != nil {
		patient, err := s.patients.Get(ctx, *to.PatientID)
		if err != nil {
			return nil, err
		}
		user, err := s.users.Get(ctx, patient.UserID)
		if err != nil {
			return nil, err
		}
		return []*model.User{user}, nil
	}
	if to.Role.Valid() {
		return s.users.ListByRole(ctx, to.Role)
	}
	return nil, fmt.Errorf("recipient has neither patient nor role")
}

func (s *service) deliver(ctx context.Context, evt scheduling.Event, user *model.User) error {
	data := make(model.JSONMap, len(evt.Data)+1)
	for k, v := range evt.Data {
		data[k] = v
	}
	data["actor_id"] = evt.ActorID.String()

	n := &model.Notification{
		ID:           uuid.New(),
		Type:         string(evt.Type),
		NotifiableID: user.ID,
		Data:         data,
		CreatedAt:    evt.OccurredAt,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, n); err != nil {
			return err
		}
		return s.events.Emit(ctx, EventNotificationCreated, n)
	})
	if err != nil {
		return err
	}

	if user.Email != "" {
		if err := s.emailSvc.Send(ctx, user.Email, subject(evt.Type), body(evt)); err != nil {
			// the inbox row is already stored
			s.log.Warn("failed to email notification",
				"type", string(evt.Type),
				"user_id", user.ID.String(),
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (s *service) failed(evt scheduling.Event, userID uuid.UUID, err error, msg string) {
	s.metrics.Notifications.WithLabelValues(string(evt.Type), metrics.Result(err)).Inc()
	s.log.Error(err, msg,
		"type", string(evt.Type),
		"user_id", userID.String(),
	)
}

func (s *service) List(ctx context.Context, actor model.Actor, limit int) ([]*model.NotificationView, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	notifications, err := s.repo.ListByRecipient(ctx, actor.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	now := s.now()
	views := make([]*model.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, &model.NotificationView{
			Notification: *n,
			TimeAgo:      humanize.RelTime(n.CreatedAt, now, "ago", "from now"),
		})
	}
	return views, nil
}

func subject(t scheduling.EventType) string {
	words := strings.Split(string(t), "_")
	if len(words) > 0 {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}

func body(evt scheduling.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", subject(evt.Type))
	for _, key := range []string{"status", "appointment_date", "scheduled_at", "duration"} {
		if v, ok := evt.Data[key]; ok {
			fmt.Fprintf(&b, "%s: %v\n", strings.ReplaceAll(key, "_", " "), v)
		}
	}
	return b.String()
}
