package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists explicit role assignments. Principals without an
// assignment are not stored.
type Repository interface {
	Role(ctx context.Context, p Principal) (Role, bool, error)
	SetRole(ctx context.Context, p Principal, role Role) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed role repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Role fetches the assigned role of a principal.
func (r *PostgresRepository) Role(ctx context.Context, p Principal) (Role, bool, error) {
	var role string
	err := r.db.QueryRow(ctx, `SELECT role FROM roles WHERE principal = $1`, p.String()).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return Role(role), true, nil
}

// SetRole upserts the role of a principal.
func (r *PostgresRepository) SetRole(ctx context.Context, p Principal, role Role) error {
	_, err := r.db.Exec(ctx, `INSERT INTO roles (principal, role) VALUES ($1, $2)
        ON CONFLICT (principal) DO UPDATE SET role = EXCLUDED.role`, p.String(), string(role))
	return err
}
