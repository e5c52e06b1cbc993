package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, object_guid, username, domain, email, display_name,
	first_name, last_name, title, phone, password_hash,
	created_at, last_modified_at, deleted_at`

// PostgresUserRepository implements UserRepository using PostgreSQL.
// The schema lives in migrations/ldap_sync_db.sql.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(db *pgxpool.Pool) (*PostgresUserRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &PostgresUserRepository{db: db}, nil
}

// FindByObjectGUID finds a user by directory identifier.
func (r *PostgresUserRepository) FindByObjectGUID(ctx context.Context, guid uuid.UUID) (User, error) {
	if guid == uuid.Nil {
		return User{}, ErrUserNotFound
	}

	query := `SELECT ` + userColumns + ` FROM ldap_users WHERE object_guid = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, guid))
}

// FindByUsername finds a user by username, case-insensitively.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM ldap_users WHERE lower(username) = lower($1)`
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

// FindAll returns every user, including soft-deleted ones.
func (r *PostgresUserRepository) FindAll(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM ldap_users ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return result, nil
}

// Create stores a new user.
func (r *PostgresUserRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO ldap_users (
			id, object_guid, username, domain, email, display_name,
			first_name, last_name, title, phone, password_hash,
			created_at, last_modified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRow(ctx, query,
		user.ID,
		nullableGUID(user.ObjectGUID),
		user.Username,
		user.Domain,
		user.Email,
		user.DisplayName,
		user.FirstName,
		user.LastName,
		user.Title,
		user.Phone,
		user.PasswordHash,
		now,
	))
}

// Update overwrites an existing user's fields.
func (r *PostgresUserRepository) Update(ctx context.Context, user User) (User, error) {
	query := `
		UPDATE ldap_users SET
			object_guid = $2,
			username = $3,
			domain = $4,
			email = $5,
			display_name = $6,
			first_name = $7,
			last_name = $8,
			title = $9,
			phone = $10,
			password_hash = $11,
			last_modified_at = $12
		WHERE id = $1
		RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRow(ctx, query,
		user.ID,
		nullableGUID(user.ObjectGUID),
		user.Username,
		user.Domain,
		user.Email,
		user.DisplayName,
		user.FirstName,
		user.LastName,
		user.Title,
		user.Phone,
		user.PasswordHash,
		time.Now().UTC(),
	))
}

// SoftDelete marks a user deleted without removing the row.
func (r *PostgresUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) (User, error) {
	query := `
		UPDATE ldap_users SET deleted_at = $2, last_modified_at = $2
		WHERE id = $1
		RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRow(ctx, query, id, time.Now().UTC()))
}

// Restore clears a user's soft-delete marker.
func (r *PostgresUserRepository) Restore(ctx context.Context, id uuid.UUID) (User, error) {
	query := `
		UPDATE ldap_users SET deleted_at = NULL, last_modified_at = $2
		WHERE id = $1
		RETURNING ` + userColumns

	return r.scanUser(r.db.QueryRow(ctx, query, id, time.Now().UTC()))
}

func (r *PostgresUserRepository) scanUser(row pgx.Row) (User, error) {
	var user User
	var objectGUID uuid.NullUUID
	var deletedAt *time.Time

	err := row.Scan(
		&user.ID,
		&objectGUID,
		&user.Username,
		&user.Domain,
		&user.Email,
		&user.DisplayName,
		&user.FirstName,
		&user.LastName,
		&user.Title,
		&user.Phone,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.LastModifiedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("failed to scan user: %w", err)
	}

	if objectGUID.Valid {
		user.ObjectGUID = objectGUID.UUID
	}
	user.DeletedAt = deletedAt

	return user, nil
}

func nullableGUID(guid uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: guid, Valid: guid != uuid.Nil}
}
