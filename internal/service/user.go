package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cabdispatch/internal/domain"
	"cabdispatch/internal/repository"
)

// UserService handles user registration.
type UserService struct {
	store *BookingStore
}

// NewUserService creates a UserService.
func NewUserService(store *BookingStore) *UserService {
	return &UserService{store: store}
}

// RegisterUserRequest contains the parameters for registering a user.
type RegisterUserRequest struct {
	Name  string
	Phone string
	Roles []string
}

// Register creates a user. Granting ADMIN requires allowAdmin.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest, allowAdmin bool) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", ErrValidation)
	}

	roles, err := domain.ParseRoles(req.Roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.RolePassenger}
	}
	if !allowAdmin && containsAdmin(roles) {
		return nil, fmt.Errorf("%w: only administrators may grant the ADMIN role", ErrForbidden)
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		Roles:     roles,
		CreatedAt: time.Now(),
	}

	err = s.store.Run(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: phone %s already registered", ErrConflict, phone)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	var user *domain.User
	err := s.store.Read(ctx, func(ctx context.Context, store repository.Store) error {
		u, err := store.Users().GetByID(ctx, userID)
		if err != nil {
			return classify(ctx, err, "user "+userID)
		}
		user = u
		return nil
	})
	return user, err
}

func containsAdmin(roles []domain.Role) bool {
	for _, r := range roles {
		if r == domain.RoleAdmin {
			return true
		}
	}
	return false
}
