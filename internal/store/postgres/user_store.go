package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

const selectUser = `
	SELECT
		u.user_id, u.email, COALESCE(u.username, ''), u.password_hash, u.active,
		u.created_at, u.updated_at,
		COALESCE(
			array_agg(ru.role_name ORDER BY ru.role_name) FILTER (WHERE ru.role_name IS NOT NULL),
			'{}'
		)
	FROM users u
	LEFT JOIN roles_users ru ON ru.user_id = u.user_id
`

// Create inserts the user and its role memberships in one transaction.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	// Empty username stored as NULL so the partial unique index ignores it
	var username any
	if user.Username != "" {
		username = user.Username
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (
			user_id, email, username, password_hash, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.UserID,
		user.Email,
		username,
		user.PasswordHash,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	for _, role := range user.Roles {
		_, err = tx.Exec(ctx,
			`INSERT INTO roles_users (user_id, role_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			user.UserID, role)
		if err != nil {
			return mapPostgresError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}

	log.Debug().
		Str("user_id", user.UserID.String()).
		Strs("roles", user.Roles).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+` WHERE u.user_id = $1 GROUP BY u.user_id`, userID)
	return scanUser(row)
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, selectUser+` WHERE lower(u.email) = lower($1) GROUP BY u.user_id`, email)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.UserID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	return &user, nil
}

// SetActive enables or disables login for a user.
func (s *UserStore) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE users SET active = $2, updated_at = $3 WHERE user_id = $1`,
		userID, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// EnsureRole creates the role if it does not exist yet.
func (s *UserStore) EnsureRole(ctx context.Context, role models.Role) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		role.Name, role.Description)
	if err != nil {
		return fmt.Errorf("failed to ensure role %s: %w", role.Name, mapPostgresError(err))
	}

	return nil
}

// ListRoles returns all roles ordered by name.
func (s *UserStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, description FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", mapPostgresError(err))
	}

	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Role, error) {
		var role models.Role
		err := row.Scan(&role.Name, &role.Description)
		return role, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan roles: %w", err)
	}

	return roles, nil
}
