// Package user provides read-only access to the externally owned user
// entity. Account creation and auth live in a separate service.
package user

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Subscription tiers.
const (
	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
)

// User is the subset of the user entity this service consumes.
type User struct {
	ID           string `json:"id" db:"id"`
	Subscription string `json:"subscription" db:"subscription"`
}

// Store defines the interface for user lookups.
type Store interface {
	GetUser(ctx context.Context, id string) (*User, error)
}

// PostgresStore implements Store for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a PostgresStore over db. The users table is
// owned and migrated by the auth service; no schema is created here.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetUser retrieves a user by id. Returns nil when the user does not exist.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, subscription FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Subscription)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
