package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"identity-sync-backend/internal/domain"
	"identity-sync-backend/pkg/apperror"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const userColumns = `id, auth_id, email, first_name, last_name, role, created_at, updated_at`

// UserRepo stores users in SQLite. Timestamps are unix milliseconds.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// UpsertByAuthID keeps the stored id on conflict, so the row carries the id
// generated here only when this call inserted it.
func (r *UserRepo) UpsertByAuthID(ctx context.Context, p domain.UserProfile) (*domain.User, bool, error) {
	query := `INSERT INTO users (id, auth_id, email, first_name, last_name, role, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (auth_id) DO UPDATE SET
                  email      = excluded.email,
                  first_name = excluded.first_name,
                  last_name  = excluded.last_name,
                  updated_at = CASE
                      WHEN users.email IS NOT excluded.email
                        OR users.first_name IS NOT excluded.first_name
                        OR users.last_name IS NOT excluded.last_name
                      THEN excluded.updated_at
                      ELSE users.updated_at
                  END
              RETURNING ` + userColumns

	id := uuid.NewString()
	now := time.Now().UTC().UnixMilli()
	user, err := scanUser(r.db.QueryRowContext(ctx, query,
		id, p.AuthID, p.Email, nullable(p.FirstName), nullable(p.LastName), string(domain.RoleUser), now, now,
	))
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	return user, user.ID == id, nil
}

func (r *UserRepo) EnsureByAuthID(ctx context.Context, p domain.UserProfile) (*domain.User, bool, error) {
	query := `INSERT INTO users (id, auth_id, email, first_name, last_name, role, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT (auth_id) DO NOTHING`

	now := time.Now().UTC().UnixMilli()
	res, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), p.AuthID, p.Email, nullable(p.FirstName), nullable(p.LastName), string(domain.RoleUser), now, now,
	)
	if err != nil {
		return nil, false, apperror.Internal(err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, apperror.Internal(err)
	}

	user, err := r.GetByAuthID(ctx, p.AuthID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, apperror.Internal(domain.ErrUserNotFound)
	}
	return user, inserted == 1, nil
}

func (r *UserRepo) GetByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE auth_id = ?`, authID)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
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

// SetRole is an operator helper; no request path changes roles.
func (r *UserRepo) SetRole(ctx context.Context, authID string, role domain.Role) error {
	if !role.Valid() {
		return apperror.BadRequest("invalid role")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE auth_id = ?`,
		string(role), time.Now().UTC().UnixMilli(), authID,
	)
	if err != nil {
		return apperror.Internal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user                 domain.User
		role                 string
		firstName, lastName  sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&user.ID, &user.AuthID, &user.Email, &firstName, &lastName,
		&role, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if firstName.Valid {
		user.FirstName = &firstName.String
	}
	if lastName.Valid {
		user.LastName = &lastName.String
	}
	user.Role = domain.Role(role)
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	user.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &user, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
