package consultation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
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

func (r *recorder) types() []scheduling.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scheduling.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	events  *recorder
	metrics *metrics.Metrics
	doctor  model.Actor
	patient model.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	rec := &recorder{}
	m := metrics.Noop()

	svc := NewService(store, store.Consultations(), store.Appointments(), rec, logger.Nop(), m)
	svc.now = func() time.Time { return now }

	patientID := uuid.New()
	return &fixture{
		svc:     svc,
		store:   store,
		events:  rec,
		metrics: m,
		doctor:  model.Actor{ID: uuid.New(), Role: model.RoleDoctor},
		patient: model.Actor{ID: uuid.New(), Role: model.RolePatient, PatientID: &patientID},
	}
}

func TestSubmitScheduleConfirm(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.patient, "Need checkup")
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusPending, req.Status)

	tomorrow := now.Add(24 * time.Hour)
	req, err = f.svc.Schedule(ctx, f.doctor, req.ID, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusScheduled, req.Status)

	req, err = f.svc.Confirm(ctx, f.patient, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusConfirmed, req.Status)
	assert.True(t, req.AppointmentDate.Equal(tomorrow))

	stored, err := f.svc.Get(ctx, f.doctor, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusConfirmed, stored.Status)

	assert.Equal(t, []scheduling.EventType{
		scheduling.EventConsultationRequested,
		scheduling.EventConsultationScheduled,
		scheduling.EventConsultationConfirmed,
	}, f.events.types())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("consultation", "confirm", "success")))
}

func TestConcurrentScheduleOnlyOneWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.patient, "Need checkup")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Schedule(ctx, f.doctor, req.ID, now.Add(time.Duration(i+1)*time.Hour))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, invalid int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errors.ErrInvalidState):
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, invalid)
}

func TestFailedTransitionDispatchesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.patient, "Need checkup")
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, f.patient, req.ID)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
	assert.Len(t, f.events.types(), 1, "only the submit event")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("consultation", "confirm", "error")))
}

func TestMissingRequest(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Schedule(context.Background(), f.doctor, uuid.New(), now.Add(time.Hour))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRoleChecksHappenBeforeLookup(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Schedule(context.Background(), f.patient, uuid.New(), now.Add(time.Hour))
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	_, err = f.svc.CancelByDoctor(context.Background(), f.patient, uuid.New())
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestCancelAlsoCancelsLinkedAppointment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.patient, "Need checkup")
	require.NoError(t, err)

	booked, err := scheduling.BookFromRequest(req, f.doctor, now.Add(time.Hour), 30, now)
	require.NoError(t, err)
	require.NoError(t, f.store.Appointments().Create(ctx, booked.Appointment))
	require.NoError(t, f.store.Consultations().Update(ctx, booked.Request))

	req, err = f.svc.CancelByDoctor(ctx, f.doctor, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCancelled, req.Status)
	assert.Nil(t, req.AppointmentDate)

	apt, err := f.store.Appointments().Get(ctx, booked.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, apt.Status)
}

func TestRescheduleMovesLinkedAppointment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.patient, "Need checkup")
	require.NoError(t, err)
	booked, err := scheduling.BookFromRequest(req, f.doctor, now.Add(time.Hour), 30, now)
	require.NoError(t, err)
	require.NoError(t, f.store.Appointments().Create(ctx, booked.Appointment))
	require.NoError(t, f.store.Consultations().Update(ctx, booked.Request))

	later := now.Add(96 * time.Hour)
	_, err = f.svc.Reschedule(ctx, f.doctor, req.ID, later)
	require.NoError(t, err)

	apt, err := f.store.Appointments().Get(ctx, booked.Appointment.ID)
	require.NoError(t, err)
	assert.True(t, apt.ScheduledAt.Equal(later))
}

func TestListByStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.patient, "one")
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.patient, "two")
	require.NoError(t, err)
	_, err = f.svc.Schedule(ctx, f.doctor, first.ID, now.Add(time.Hour))
	require.NoError(t, err)

	pending, err := f.svc.ListByStatus(ctx, f.doctor, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.svc.ListByStatus(ctx, f.doctor, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.ListByStatus(ctx, f.doctor, "archived")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = f.svc.ListByStatus(ctx, f.patient, "pending")
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	mine, err := f.svc.ListMine(ctx, f.patient)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGetHidesOtherPatientsRequests(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.Submit(ctx, f.patient, "private")
	require.NoError(t, err)

	otherID := uuid.New()
	other := model.Actor{ID: uuid.New(), Role: model.RolePatient, PatientID: &otherID}
	_, err = f.svc.Get(ctx, other, req.ID)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
