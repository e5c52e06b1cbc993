package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrDuplicateGUID = errors.New("user with this directory identifier already exists")
)

// User is the persisted application-side record a directory entry
// synchronizes into.
type User struct {
	ID uuid.UUID `json:"id"`

	// ObjectGUID is the directory-assigned unique identifier this record is
	// bound to. uuid.Nil for records created locally and not yet linked.
	ObjectGUID uuid.UUID `json:"object_guid"`

	Username    string `json:"username"`
	Domain      string `json:"domain"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Title       string `json:"title"`
	Phone       string `json:"phone"`

	// PasswordHash backs local fallback authentication; never synchronized
	// from the directory.
	PasswordHash string `json:"-"`

	CreatedAt      time.Time  `json:"created_at"`
	LastModifiedAt time.Time  `json:"last_modified_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the record is soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// UserRepository defines the persistence operations the sync engine and the
// authentication layer need. Records are only ever soft-deleted.
type UserRepository interface {
	FindByObjectGUID(ctx context.Context, guid uuid.UUID) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)

	// FindAll returns every record, including soft-deleted ones.
	FindAll(ctx context.Context) ([]User, error)

	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)

	SoftDelete(ctx context.Context, id uuid.UUID) (User, error)
	Restore(ctx context.Context, id uuid.UUID) (User, error)
}
