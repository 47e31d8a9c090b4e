package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
)

const consultationColumns = `id, patient_id, message, status, appointment_date, created_at, updated_at`

type consultationRepository struct {
	BaseRepository
}

func NewConsultationRepository(base BaseRepository) repository.ConsultationRepository {
	return &consultationRepository{base}
}

func (r *consultationRepository) Create(ctx context.Context, req *model.ConsultationRequest) error {
	query := `
		INSERT INTO consultation_requests (
			id, patient_id, message, status, appointment_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
		req.UpdatedAt = req.CreatedAt
	}

	_, err := r.conn(ctx).ExecContext(ctx, query,
		req.ID,
		req.PatientID,
		req.Message,
		req.Status,
		req.AppointmentDate,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation request: %w", err)
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.ConsultationRequest, error) {
	return r.get(ctx, `SELECT `+consultationColumns+` FROM consultation_requests WHERE id = $1`, id)
}

func (r *consultationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ConsultationRequest, error) {
	return r.get(ctx, `SELECT `+consultationColumns+` FROM consultation_requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *consultationRepository) get(ctx context.Context, query string, id uuid.UUID) (*model.ConsultationRequest, error) {
	var req model.ConsultationRequest
	if err := r.conn(ctx).GetContext(ctx, &req, query, id); err != nil {
		return nil, fmt.Errorf("failed to get consultation request: %w", notFound("consultation request", err))
	}
	return &req, nil
}

func (r *consultationRepository) Update(ctx context.Context, req *model.ConsultationRequest) error {
	query := `
		UPDATE consultation_requests
		SET status = $1, appointment_date = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := r.conn(ctx).ExecContext(ctx, query,
		req.Status,
		req.AppointmentDate,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation request: %w", err)
	}
	return requireAffected(res, "consultation request")
}

func (r *consultationRepository) ListByStatus(ctx context.Context, status *model.ConsultationStatus) ([]*model.ConsultationRequest, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultation_requests`
	var args []interface{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	requests := []*model.ConsultationRequest{}
	if err := r.conn(ctx).SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list consultation requests: %w", err)
	}
	return requests, nil
}

func (r *consultationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ConsultationRequest, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultation_requests WHERE patient_id = $1 ORDER BY created_at DESC`

	requests := []*model.ConsultationRequest{}
	if err := r.conn(ctx).SelectContext(ctx, &requests, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient consultation requests: %w", err)
	}
	return requests, nil
}
