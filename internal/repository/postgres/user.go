package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, name, phone, roles, created_at) VALUES ($1, $2, $3, $4, $5)`

	roles := make([]string, len(user.Roles))
	for i, role := range user.Roles {
		roles[i] = string(role)
	}

	_, err := r.q.ExecContext(ctx, query, user.ID, user.Name, user.Phone, pq.Array(roles), user.CreatedAt)
	return mapWriteError(err)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, name, phone, roles, created_at FROM users WHERE id = $1`

	var user domain.User
	var roles []string
	err := r.q.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Phone, pq.Array(&roles), &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Stored roles were validated on the way in; drop anything unrecognised.
	for _, raw := range roles {
		if role, err := domain.ParseRole(raw); err == nil {
			user.Roles = append(user.Roles, role)
		}
	}

	return &user, nil
}

// Ensure UserRepository implements repository.UserRepository.
var _ repository.UserRepository = (*UserRepository)(nil)
