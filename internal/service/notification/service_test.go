package notification

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository/memory"
	"github.com/jwalitptl/consult-api/internal/scheduling"
	"github.com/jwalitptl/consult-api/internal/service/event"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

type mockEmail struct {
	mock.Mock
}

func (m *mockEmail) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type fixture struct {
	svc       *service
	store     *memory.Store
	email     *mockEmail
	metrics   *metrics.Metrics
	doctors   []model.User
	patient   model.Patient
	patientUs model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	em := new(mockEmail)
	m := metrics.Noop()

	doctors := []model.User{
		{Base: model.Base{ID: uuid.New()}, Email: "a.doc@clinic.test", Role: model.RoleDoctor},
		{Base: model.Base{ID: uuid.New()}, Email: "b.doc@clinic.test", Role: model.RoleDoctor},
	}
	for _, d := range doctors {
		store.AddUser(d)
	}
	patientUser := model.User{Base: model.Base{ID: uuid.New()}, Email: "pat@clinic.test", Role: model.RolePatient}
	patient := model.Patient{Base: model.Base{ID: uuid.New()}, UserID: patientUser.ID, Name: "Pat"}
	store.AddUser(patientUser)
	store.AddPatient(patient)
	store.AddUser(model.User{Base: model.Base{ID: uuid.New()}, Role: model.RoleAdmin})

	svc := NewService(store, store.NotificationRepo(), store.Users(), store.Patients(),
		event.NewEventService(store.Outbox()), em, logger.Nop(), m).(*service)

	return &fixture{svc: svc, store: store, email: em, metrics: m, doctors: doctors, patient: patient, patientUs: patientUser}
}

func evt(t scheduling.EventType, to scheduling.Recipient) scheduling.Event {
	return scheduling.Event{
		Type:       t,
		Recipient:  to,
		ActorID:    uuid.New(),
		Data:       map[string]interface{}{"status": "scheduled"},
		OccurredAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatchToDoctorsFansOut(t *testing.T) {
	f := setup(t)
	f.email.On("Send", mock.Anything, mock.Anything, "Consultation requested", mock.Anything).Return(nil)

	f.svc.Dispatch(context.Background(), []scheduling.Event{evt(scheduling.EventConsultationRequested, scheduling.ToDoctors())})

	stored := f.store.Notifications()
	require.Len(t, stored, 2)
	got := map[uuid.UUID]bool{}
	for _, n := range stored {
		got[n.NotifiableID] = true
		assert.Equal(t, "consultation_requested", n.Type)
		assert.Equal(t, "scheduled", n.Data["status"])
		assert.Contains(t, n.Data, "actor_id")
	}
	assert.True(t, got[f.doctors[0].ID])
	assert.True(t, got[f.doctors[1].ID])

	outbox := f.store.OutboxEvents()
	require.Len(t, outbox, 2)
	assert.Equal(t, EventNotificationCreated, outbox[0].EventType)

	f.email.AssertNumberOfCalls(t, "Send", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("consultation_requested", "success")))
}

func TestDispatchToPatientResolvesUser(t *testing.T) {
	f := setup(t)
	f.email.On("Send", mock.Anything, "pat@clinic.test", mock.Anything, mock.Anything).Return(nil)

	f.svc.Dispatch(context.Background(), []scheduling.Event{evt(scheduling.EventConsultationScheduled, scheduling.ToPatient(f.patient.ID))})

	stored := f.store.Notifications()
	require.Len(t, stored, 1)
	assert.Equal(t, f.patientUs.ID, stored[0].NotifiableID)
	f.email.AssertExpectations(t)
}

func TestDispatchSwallowsFailures(t *testing.T) {
	f := setup(t)
	f.email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("smtp down"))

	assert.NotPanics(t, func() {
		f.svc.Dispatch(context.Background(), []scheduling.Event{
			evt(scheduling.EventAppointmentCreated, scheduling.ToPatient(uuid.New())),
			evt(scheduling.EventAppointmentCreated, scheduling.ToPatient(f.patient.ID)),
		})
	})

	// the unknown patient is skipped, the email failure still leaves an inbox row
	assert.Len(t, f.store.Notifications(), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("appointment_created", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("appointment_created", "success")))
}

func TestListAddsTimeAgo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	repo := f.store.NotificationRepo()
	require.NoError(t, repo.Create(ctx, &model.Notification{Type: "old", NotifiableID: f.patientUs.ID, CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &model.Notification{Type: "new", NotifiableID: f.patientUs.ID, CreatedAt: now.Add(-3 * time.Minute)}))
	require.NoError(t, repo.Create(ctx, &model.Notification{Type: "other", NotifiableID: f.doctors[0].ID, CreatedAt: now}))

	actor := model.Actor{ID: f.patientUs.ID, Role: model.RolePatient}
	views, err := f.svc.List(ctx, actor, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "new", views[0].Type)
	assert.Equal(t, "3 minutes ago", views[0].TimeAgo)
	assert.Equal(t, "2 hours ago", views[1].TimeAgo)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Appointment cancelled by doctor", subject(scheduling.EventAppointmentCancelledByDoctor))
}
