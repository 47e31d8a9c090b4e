package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
)

const userColumns = `id, email, name, password_hash, role, gender, created_at, updated_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := r.conn(ctx).GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound("user", err))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	var user model.User
	if err := r.conn(ctx).GetContext(ctx, &user, query, email); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", notFound("user", err))
	}
	return &user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at`

	users := []*model.User{}
	if err := r.conn(ctx).SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("failed to list users by role: %w", err)
	}
	return users, nil
}

// CountByRoleGender aggregates the whole user table in one query. Users with no
// recorded gender are grouped as "unspecified".
func (r *userRepository) CountByRoleGender(ctx context.Context) ([]*model.RoleGenderCount, error) {
	query := `
		SELECT role, COALESCE(NULLIF(gender, ''), 'unspecified') AS gender, COUNT(*) AS count
		FROM users
		GROUP BY 1, 2
		ORDER BY 1, 2
	`
	counts := []*model.RoleGenderCount{}
	if err := r.conn(ctx).SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	return counts, nil
}
