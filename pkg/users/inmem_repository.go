package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryUserRepository implements UserRepository using in-memory storage.
// It is used by tests and by deployments without a database.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

// NewInMemoryUserRepository creates a new in-memory user repository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[uuid.UUID]User),
	}
}

// FindByObjectGUID finds a user by directory identifier.
func (r *InMemoryUserRepository) FindByObjectGUID(ctx context.Context, guid uuid.UUID) (User, error) {
	if guid == uuid.Nil {
		return User{}, ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ObjectGUID == guid {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindByUsername finds a user by username, case-insensitively.
func (r *InMemoryUserRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

// FindAll returns every user, including soft-deleted ones, ordered by
// creation time for stable iteration.
func (r *InMemoryUserRepository) FindAll(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]User, 0, len(r.users))
	for _, user := range r.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Create stores a new user. A non-nil ObjectGUID must be unique.
func (r *InMemoryUserRepository) Create(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ObjectGUID != uuid.Nil {
		for _, existing := range r.users {
			if existing.ObjectGUID == user.ObjectGUID {
				return User{}, ErrDuplicateGUID
			}
		}
	}

	now := time.Now().UTC()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = now
	user.LastModifiedAt = now

	r.users[user.ID] = user
	return user, nil
}

// Update overwrites an existing user's fields.
func (r *InMemoryUserRepository) Update(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return User{}, ErrUserNotFound
	}

	user.CreatedAt = existing.CreatedAt
	user.LastModifiedAt = time.Now().UTC()

	r.users[user.ID] = user
	return user, nil
}

// SoftDelete marks a user deleted without removing the record.
func (r *InMemoryUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}

	now := time.Now().UTC()
	user.DeletedAt = &now
	user.LastModifiedAt = now

	r.users[id] = user
	return user, nil
}

// Restore clears a user's soft-delete marker.
func (r *InMemoryUserRepository) Restore(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}

	user.DeletedAt = nil
	user.LastModifiedAt = time.Now().UTC()

	r.users[id] = user
	return user, nil
}
