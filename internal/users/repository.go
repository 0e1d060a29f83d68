package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for user storage
type Repository interface {
	Create(ctx context.Context, req *CreateUserRequest) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
}

// InMemoryRepository is an in-memory implementation of Repository,
// used in tests and when no database is configured.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

// Create registers a new user in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user := &User{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Role:           req.Role,
		Specialization: req.Specialization,
		CreatedAt:      time.Now().UTC(),
	}

	r.mu.Lock()
	r.users[user.ID] = user
	r.mu.Unlock()

	return user, nil
}

// FindByID retrieves a user by ID
func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Seed inserts a pre-built user, keeping its ID. Test helper.
func (r *InMemoryRepository) Seed(u *User) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

var _ Repository = (*InMemoryRepository)(nil)
