package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/database"
)

// Repository handles user and group persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.is_superuser, u.created_at,
	COALESCE(array_agg(g.group_name ORDER BY g.group_name) FILTER (WHERE g.group_name IS NOT NULL), '{}')`

const userFrom = ` FROM users u LEFT JOIN user_groups g ON g.user_id = u.id`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt, &u.Groups); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user with its groups.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + userFrom + ` WHERE u.id = $1 GROUP BY u.id`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, database.Classify(err, "user", "get user")
	}
	return u, nil
}

// GetByUsername returns a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	q := `SELECT ` + userColumns + userFrom + ` WHERE u.username = $1 GROUP BY u.id`
	u, err := scanUser(r.pool.QueryRow(ctx, q, username))
	if err != nil {
		return nil, database.Classify(err, "user", "get user")
	}
	return u, nil
}

// List returns all users ordered by username.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	q := `SELECT ` + userColumns + userFrom + ` GROUP BY u.id ORDER BY u.username`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, apperr.Dependency("list users", err)
	}
	defer rows.Close()
	var list []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Dependency("scan user", err)
		}
		list = append(list, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list users", err)
	}
	return list, nil
}

// Create inserts a new user without groups.
func (r *Repository) Create(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	const q = `INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)
		RETURNING id, username, email, password_hash, is_superuser, created_at`
	u := models.User{Groups: []string{}}
	err := r.pool.QueryRow(ctx, q, username, email, passwordHash).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt)
	if database.IsUniqueViolation(err) {
		return nil, apperr.Validation("username or email already registered")
	}
	if err != nil {
		return nil, apperr.Dependency("create user", err)
	}
	return &u, nil
}

// AddGroup puts the user in group. Adding an existing membership is a no-op.
func (r *Repository) AddGroup(ctx context.Context, userID uuid.UUID, group string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_groups (user_id, group_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, group)
	if database.IsForeignKeyViolation(err) {
		return apperr.NotFound("user")
	}
	if err != nil {
		return apperr.Dependency("add group", err)
	}
	return nil
}

// RemoveGroup takes the user out of group.
func (r *Repository) RemoveGroup(ctx context.Context, userID uuid.UUID, group string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_groups WHERE user_id = $1 AND group_name = $2`, userID, group)
	if err != nil {
		return apperr.Dependency("remove group", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("group membership")
	}
	return nil
}

// PromoteSuperuser marks the user with email as superuser. It reports
// whether such a user exists.
func (r *Repository) PromoteSuperuser(ctx context.Context, email string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_superuser = TRUE WHERE email = $1`, email)
	if err != nil {
		return false, fmt.Errorf("promote superuser: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
