package postgres

import (
	"context"
	"errors"
	"time"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

const userColumns = `id, auth_id, email, first_name, last_name, role, created_at, updated_at`

type userRepo struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &userRepo{db: db}
}

var _ domain.UserRepository = (*userRepo)(nil)

// UpsertByAuthID relies on the unique index on auth_id, so concurrent writers
// converge on one row. updated_at only moves when a provider field changed.
// xmax is zero only for a tuple this statement inserted.
func (r *userRepo) UpsertByAuthID(ctx context.Context, p domain.UserProfile) (*domain.User, bool, error) {
	query := `INSERT INTO users (id, auth_id, email, first_name, last_name, role, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
              ON CONFLICT (auth_id) DO UPDATE SET
                  email      = EXCLUDED.email,
                  first_name = EXCLUDED.first_name,
                  last_name  = EXCLUDED.last_name,
                  updated_at = CASE
                      WHEN users.email IS DISTINCT FROM EXCLUDED.email
                        OR users.first_name IS DISTINCT FROM EXCLUDED.first_name
                        OR users.last_name IS DISTINCT FROM EXCLUDED.last_name
                      THEN EXCLUDED.updated_at
                      ELSE users.updated_at
                  END
              RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	now := time.Now().UTC()
	var (
		user     domain.User
		role     string
		inserted bool
	)
	err := r.db.QueryRow(ctx, query,
		uuid.NewString(), p.AuthID, p.Email, p.FirstName, p.LastName, string(domain.RoleUser), now,
	).Scan(
		&user.ID, &user.AuthID, &user.Email, &user.FirstName, &user.LastName,
		&role, &user.CreatedAt, &user.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, mapWriteError(err)
	}
	user.Role = domain.Role(role)
	return &user, inserted, nil
}

func (r *userRepo) EnsureByAuthID(ctx context.Context, p domain.UserProfile) (*domain.User, bool, error) {
	query := `INSERT INTO users (id, auth_id, email, first_name, last_name, role, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
              ON CONFLICT (auth_id) DO NOTHING`

	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, query,
		uuid.NewString(), p.AuthID, p.Email, p.FirstName, p.LastName, string(domain.RoleUser), now,
	)
	if err != nil {
		return nil, false, mapWriteError(err)
	}

	// Separate statement so a row committed by a concurrent writer is visible.
	user, err := r.GetByAuthID(ctx, p.AuthID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, apperror.Internal(domain.ErrUserNotFound)
	}
	return user, tag.RowsAffected() == 1, nil
}

func (r *userRepo) GetByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE auth_id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, authID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return user, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role string
	err := row.Scan(
		&user.ID, &user.AuthID, &user.Email, &user.FirstName, &user.LastName,
		&role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return &user, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperror.Conflict("User with this identity already exists")
	}
	return apperror.Internal(err)
}
