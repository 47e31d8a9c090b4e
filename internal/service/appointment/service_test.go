package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository/memory"
	"github.com/jwalitptl/consult-api/internal/scheduling"
	"github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

var now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []scheduling.Event
}

func (r *recorder) Dispatch(_ context.Context, events []scheduling.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	events  *recorder
	doctor  model.Actor
	patient model.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	rec := &recorder{}

	svc := NewService(store, store.Appointments(), store.Consultations(), store.Patients(), rec, logger.Nop(), metrics.Noop(), time.UTC)
	svc.now = func() time.Time { return now }

	userID, patientID := uuid.New(), uuid.New()
	store.AddUser(model.User{Base: model.Base{ID: userID}, Email: "pat@example.test", Role: model.RolePatient})
	store.AddPatient(model.Patient{Base: model.Base{ID: patientID}, UserID: userID, Name: "Pat"})

	return &fixture{
		svc:     svc,
		store:   store,
		events:  rec,
		doctor:  model.Actor{ID: uuid.New(), Role: model.RoleDoctor},
		patient: model.Actor{ID: userID, Role: model.RolePatient, PatientID: &patientID},
	}
}

func (f *fixture) pendingRequest(t *testing.T) *model.ConsultationRequest {
	t.Helper()
	out, err := scheduling.Submit(f.patient, "Need checkup", now)
	require.NoError(t, err)
	require.NoError(t, f.store.Consultations().Create(context.Background(), out.Request))
	return out.Request
}

func slot(date, clock string, duration int) *model.Slot {
	return &model.Slot{Date: date, Time: clock, Duration: duration}
}

func TestCreateFromRequestThenDoctorCancels(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := f.pendingRequest(t)

	apt, err := f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-10", "09:00", 30))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, f.doctor.ID, apt.DoctorID)

	stored, err := f.store.Consultations().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusScheduled, stored.Status)
	assert.Equal(t, time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC), *stored.AppointmentDate)

	apt, err = f.svc.CancelByDoctor(ctx, f.doctor, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, apt.Status)

	stored, err = f.store.Consultations().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusPending, stored.Status)
	assert.Nil(t, stored.AppointmentDate)

	// the reopened request can be booked again
	_, err = f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-11", "10:30", 15))
	require.NoError(t, err)
}

func TestCreateFromRequestRejects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := f.pendingRequest(t)

	_, err := f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-03-13", "09:00", 30))
	assert.True(t, errors.Is(err, errors.ErrValidation), "past slot")

	_, err = f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("10/06/2026", "09:00", 30))
	assert.True(t, errors.Is(err, errors.ErrValidation), "bad date format")

	_, err = f.svc.CreateFromRequest(ctx, f.doctor, uuid.New(), slot("2026-06-10", "09:00", 30))
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-10", "09:00", 30))
	require.NoError(t, err)
	_, err = f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-12", "09:00", 30))
	assert.True(t, errors.Is(err, errors.ErrInvalidState), "already scheduled")
}

func TestCreateDirect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	apt, err := f.svc.CreateDirect(ctx, f.doctor, &model.CreateAppointmentRequest{
		PatientID: *f.patient.PatientID,
		Slot:      *slot("2026-01-05", "08:15", 20),
	})
	require.NoError(t, err, "direct bookings may be back-dated")
	assert.Nil(t, apt.ConsultationRequestID)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, scheduling.EventAppointmentCreated, f.events.events[0].Type)

	_, err = f.svc.CreateDirect(ctx, f.doctor, &model.CreateAppointmentRequest{
		PatientID: uuid.New(),
		Slot:      *slot("2026-06-10", "09:00", 30),
	})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = f.svc.CreateDirect(ctx, f.patient, &model.CreateAppointmentRequest{
		PatientID: *f.patient.PatientID,
		Slot:      *slot("2026-06-10", "09:00", 30),
	})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestPatientCancelIsTerminalForRequest(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := f.pendingRequest(t)

	apt, err := f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-10", "09:00", 30))
	require.NoError(t, err)

	_, err = f.svc.CancelByPatient(ctx, f.patient, apt.ID)
	require.NoError(t, err)

	stored, err := f.store.Consultations().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCancelled, stored.Status)

	_, err = f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-11", "09:00", 30))
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestConfirmCompletesAndConfirms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := f.pendingRequest(t)

	apt, err := f.svc.CreateFromRequest(ctx, f.doctor, req.ID, slot("2026-06-10", "09:00", 30))
	require.NoError(t, err)

	otherID := uuid.New()
	stranger := model.Actor{ID: uuid.New(), Role: model.RolePatient, PatientID: &otherID}
	_, err = f.svc.Confirm(ctx, stranger, apt.ID)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	apt, err = f.svc.Confirm(ctx, f.patient, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, apt.Status)

	stored, err := f.store.Consultations().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusConfirmed, stored.Status)

	_, err = f.svc.Confirm(ctx, f.patient, apt.ID)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestListByRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateDirect(ctx, f.doctor, &model.CreateAppointmentRequest{
		PatientID: *f.patient.PatientID,
		Slot:      *slot("2026-06-10", "09:00", 30),
	})
	require.NoError(t, err)

	otherDoctor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}
	mine, err := f.svc.List(ctx, f.doctor, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.List(ctx, otherDoctor, "")
	require.NoError(t, err)
	assert.Empty(t, theirs)

	forPatient, err := f.svc.List(ctx, f.patient, "scheduled")
	require.NoError(t, err)
	assert.Len(t, forPatient, 1)

	_, err = f.svc.List(ctx, f.doctor, "rescheduled")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = f.svc.List(ctx, model.Actor{ID: uuid.New(), Role: model.RoleAdmin}, "")
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
