package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/parking/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "duplicate email",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			expected: store.ErrUserAlreadyExists,
		},
		{
			name:     "duplicate username",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"},
			expected: store.ErrUserAlreadyExists,
		},
		{
			name:     "unknown role",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "roles_users_role_name_fkey"},
			expected: store.ErrRoleNotFound,
		},
		{
			name:     "duplicate lot name",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "parking_lots_name_key"},
			expected: store.ErrLotAlreadyExists,
		},
		{
			name:     "booking for unknown user",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "bookings_user_id_fkey"},
			expected: store.ErrUserNotFound,
		},
		{
			name:     "booking for unknown spot",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "bookings_spot_id_fkey"},
			expected: store.ErrSpotNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, mapPostgresError(tt.err), tt.expected)
		})
	}

	t.Run("nil", func(t *testing.T) {
		require.NoError(t, mapPostgresError(nil))
	})

	t.Run("non postgres error passes through", func(t *testing.T) {
		err := errors.New("boom")
		require.Equal(t, err, mapPostgresError(err))
	})

	t.Run("other unique constraint keeps cause", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "roles_pkey"}
		err := mapPostgresError(pgErr)
		require.NotErrorIs(t, err, store.ErrUserAlreadyExists)
		require.ErrorIs(t, err, pgErr)
	})
}

func TestIsRetryableConnectError(t *testing.T) {
	require.True(t, isRetryableConnectError(errors.New("dial tcp: connection refused")))
	require.True(t, isRetryableConnectError(&pgconn.PgError{Code: pgerrcode.CannotConnectNow}))
	require.False(t, isRetryableConnectError(&pgconn.PgError{Code: pgerrcode.InvalidPassword}))
}

func TestPoolConfigDefaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://localhost/parking"}
	cfg.ApplyDefaults()

	require.NoError(t, cfg.Validate())
	require.EqualValues(t, 20, cfg.MaxConns)
	require.EqualValues(t, 5, cfg.MinConns)
	require.EqualValues(t, 30, cfg.StartupRetryTimeout)

	require.Error(t, (&PoolConfig{}).Validate())
}
