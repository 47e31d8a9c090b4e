// Package memory is an in-process implementation of the repository
// interfaces. Rows are copied on the way in and out so callers cannot alias
// stored state. Transactions serialize on a single lock and do not roll back.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

type txKey struct{}

type Store struct {
	txMu sync.Mutex

	mu            sync.RWMutex
	users         map[uuid.UUID]model.User
	patients      map[uuid.UUID]model.Patient
	requests      map[uuid.UUID]model.ConsultationRequest
	appointments  map[uuid.UUID]model.Appointment
	notifications []model.Notification
	outbox        []model.OutboxEvent
}

func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]model.User),
		patients:     make(map[uuid.UUID]model.Patient),
		requests:     make(map[uuid.UUID]model.ConsultationRequest),
		appointments: make(map[uuid.UUID]model.Appointment),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) AddPatient(p model.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = p
}

// Notifications returns every stored notification in insertion order.
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Notification(nil), s.notifications...)
}

// OutboxEvents returns every stored outbox event in insertion order.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.OutboxEvent(nil), s.outbox...)
}

func (s *Store) Consultations() repository.ConsultationRepository { return consultations{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return appointments{s} }
func (s *Store) NotificationRepo() repository.NotificationRepository {
	return notifications{s}
}
func (s *Store) Users() repository.UserRepository       { return users{s} }
func (s *Store) Patients() repository.PatientRepository { return patients{s} }
func (s *Store) Outbox() repository.OutboxRepository    { return outbox{s} }

type consultations struct{ s *Store }

func (r consultations) Create(_ context.Context, req *model.ConsultationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r consultations) Get(_ context.Context, id uuid.UUID) (*model.ConsultationRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, errors.NotFound("consultation request", nil)
	}
	return &req, nil
}

func (r consultations) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.ConsultationRequest, error) {
	return r.Get(ctx, id)
}

func (r consultations) Update(_ context.Context, req *model.ConsultationRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.requests[req.ID]; !ok {
		return errors.NotFound("consultation request", nil)
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r consultations) ListByStatus(_ context.Context, status *model.ConsultationStatus) ([]*model.ConsultationRequest, error) {
	return r.list(func(req model.ConsultationRequest) bool {
		return status == nil || req.Status == *status
	}), nil
}

func (r consultations) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.ConsultationRequest, error) {
	return r.list(func(req model.ConsultationRequest) bool {
		return req.PatientID == patientID
	}), nil
}

func (r consultations) list(keep func(model.ConsultationRequest) bool) []*model.ConsultationRequest {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.ConsultationRequest{}
	for _, req := range r.s.requests {
		if keep(req) {
			req := req
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type appointments struct{ s *Store }

func (r appointments) Create(_ context.Context, apt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	r.s.appointments[apt.ID] = *apt
	return nil
}

func (r appointments) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	apt, ok := r.s.appointments[id]
	if !ok {
		return nil, errors.NotFound("appointment", nil)
	}
	return &apt, nil
}

func (r appointments) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r appointments) GetActiveByRequestForUpdate(_ context.Context, requestID uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *model.Appointment
	for _, apt := range r.s.appointments {
		if apt.ConsultationRequestID == nil || *apt.ConsultationRequestID != requestID || !apt.Active() {
			continue
		}
		if found == nil || apt.CreatedAt.After(found.CreatedAt) {
			apt := apt
			found = &apt
		}
	}
	return found, nil
}

func (r appointments) Update(_ context.Context, apt *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[apt.ID]; !ok {
		return errors.NotFound("appointment", nil)
	}
	r.s.appointments[apt.ID] = *apt
	return nil
}

func (r appointments) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Appointment{}
	for _, apt := range r.s.appointments {
		if f != nil {
			if f.DoctorID != nil && apt.DoctorID != *f.DoctorID {
				continue
			}
			if f.PatientID != nil && apt.PatientID != *f.PatientID {
				continue
			}
			if f.Status != "" && apt.Status != f.Status {
				continue
			}
		}
		apt := apt
		out = append(out, &apt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r appointments) CountCompletedByDay(_ context.Context, from, to time.Time, loc *time.Location) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[string]int)
	for _, apt := range r.s.appointments {
		if apt.Status != model.AppointmentStatusCompleted {
			continue
		}
		if apt.ScheduledAt.Before(from) || !apt.ScheduledAt.Before(to) {
			continue
		}
		counts[apt.ScheduledAt.In(loc).Format("2006-01-02")]++
	}
	return counts, nil
}

type notifications struct{ s *Store }

func (r notifications) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r notifications) ListByRecipient(_ context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Notification{}
	for i := len(r.s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := r.s.notifications[i]; n.NotifiableID == userID {
			out = append(out, &n)
		}
	}
	return out, nil
}

type users struct{ s *Store }

func (r users) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	return &u, nil
}

func (r users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, errors.NotFound("user", nil)
}

func (r users) ListByRole(_ context.Context, role model.Role) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.User{}
	for _, u := range r.s.users {
		if u.Role == role {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r users) CountByRoleGender(_ context.Context) ([]*model.RoleGenderCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	type key struct {
		role   model.Role
		gender string
	}
	counts := make(map[key]int)
	for _, u := range r.s.users {
		g := u.Gender
		if g == "" {
			g = "unspecified"
		}
		counts[key{u.Role, g}]++
	}
	out := make([]*model.RoleGenderCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, &model.RoleGenderCount{Role: k.role, Gender: k.gender, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].Gender < out[j].Gender
	})
	return out, nil
}

type patients struct{ s *Store }

func (r patients) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.patients[id]
	if !ok {
		return nil, errors.NotFound("patient", nil)
	}
	return &p, nil
}

func (r patients) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.patients {
		if p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, errors.NotFound("patient", nil)
}

type outbox struct{ s *Store }

func (r outbox) Create(_ context.Context, evt *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	evt.ID = uuid.New()
	evt.Status = string(model.OutboxStatusPending)
	r.s.outbox = append(r.s.outbox, *evt)
	return nil
}
