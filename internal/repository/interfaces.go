package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
)

// All repository interfaces in one file
type (
	// Transactor runs fn inside a database transaction. Repository calls made
	// with the ctx passed to fn join that transaction.
	Transactor interface {
		WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	ConsultationRepository interface {
		Create(ctx context.Context, req *model.ConsultationRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.ConsultationRequest, error)
		// GetForUpdate locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ConsultationRequest, error)
		Update(ctx context.Context, req *model.ConsultationRequest) error
		ListByStatus(ctx context.Context, status *model.ConsultationStatus) ([]*model.ConsultationRequest, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ConsultationRequest, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// GetActiveByRequestForUpdate returns the scheduled appointment linked
		// to a request, or nil when there is none.
		GetActiveByRequestForUpdate(ctx context.Context, requestID uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// CountCompletedByDay counts completed appointments per calendar day
		// in [from, to), keyed by YYYY-MM-DD in loc.
		CountCompletedByDay(ctx context.Context, from, to time.Time, loc *time.Location) (map[string]int, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		ListByRecipient(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error)
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
		CountByRoleGender(ctx context.Context) ([]*model.RoleGenderCount, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
	}
)
