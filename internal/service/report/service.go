package report

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/internal/scheduling"
	"github.com/jwalitptl/consult-api/pkg/errors"
)

const userStatsKey = "users:role_gender"

type Service struct {
	appointments repository.AppointmentRepository
	users        repository.UserRepository
	cache        *cache.Cache
	loc          *time.Location
}

func NewService(appointments repository.AppointmentRepository, users repository.UserRepository, ttl time.Duration, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appointments: appointments,
		users:        users,
		cache:        cache.New(ttl, 2*ttl),
		loc:          loc,
	}
}

// MonthlyStatus classifies every day of month ("YYYY-MM") by how many
// appointments were completed on it.
func (s *Service) MonthlyStatus(ctx context.Context, actor model.Actor, month string) ([]model.DayStatus, error) {
	if err := scheduling.RequireDoctor(actor); err != nil {
		return nil, err
	}
	m, err := scheduling.ParseMonth(month, s.loc)
	if err != nil {
		return nil, err
	}

	from, to := scheduling.MonthRange(m)
	counts, err := s.appointments.CountCompletedByDay(ctx, from, to, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	return scheduling.ClassifyMonth(m, counts), nil
}

// UserStats counts users by role and gender. Results are cached for the
// configured TTL.
func (s *Service) UserStats(ctx context.Context, actor model.Actor) ([]*model.RoleGenderCount, error) {
	if actor.Role != model.RoleAdmin {
		return nil, errors.Forbidden("admin role required")
	}

	if cached, ok := s.cache.Get(userStatsKey); ok {
		return cached.([]*model.RoleGenderCount), nil
	}

	counts, err := s.users.CountByRoleGender(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	s.cache.SetDefault(userStatsKey, counts)
	return counts, nil
}
