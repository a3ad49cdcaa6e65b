package profile

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rig-store/rig_ledger/internal/identity"
)

// Repository persists profiles keyed by principal.
type Repository interface {
	// Get reports ok=false when the principal never saved a profile.
	Get(ctx context.Context, owner identity.Principal) (Profile, bool, error)
	Save(ctx context.Context, owner identity.Principal, p Profile) error
}

// PostgresRepository stores profiles in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches the profile of owner.
func (r *PostgresRepository) Get(ctx context.Context, owner identity.Principal) (Profile, bool, error) {
	var p Profile
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, `SELECT name, updated_at FROM profiles WHERE principal = $1`, owner.String()).
		Scan(&p.Name, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, err
	}
	p.UpdatedAt = updatedAt.UTC()
	return p, true, nil
}

// Save upserts the profile of owner.
func (r *PostgresRepository) Save(ctx context.Context, owner identity.Principal, p Profile) error {
	_, err := r.db.Exec(ctx, `INSERT INTO profiles (principal, name, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (principal) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at`,
		owner.String(), p.Name, p.UpdatedAt.UTC())
	return err
}
