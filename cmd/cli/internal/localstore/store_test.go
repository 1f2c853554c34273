package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/parking/internal/guard"
)

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "storage")
	s, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())

	// nothing is written until the first Set
	require.NoFileExists(t, s.Path())
}

func TestStore_GetSetRemove(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Get(guard.TokenKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(guard.TokenKey, "tok"))

	value, ok, err := s.Get(guard.TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok", value)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	require.NoFileExists(t, s.Path()+".tmp")

	require.NoError(t, s.Remove(guard.TokenKey, "missing"))
	_, ok, err = s.Get(guard.TokenKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_persistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.SetAll(map[string]string{
		guard.TokenKey: "tok",
		guard.UserKey:  `{"roles":["user"]}`,
	}))

	second, err := NewStore(dir)
	require.NoError(t, err)
	session, err := second.Session()
	require.NoError(t, err)
	require.Equal(t, guard.Session{Token: "tok", Roles: []string{"user"}}, session)

	require.NoError(t, second.Clear())
	session, err = first.Session()
	require.NoError(t, err)
	require.False(t, session.Authenticated())
}

func TestStore_Session(t *testing.T) {
	tests := []struct {
		name     string
		items    map[string]string
		expected guard.Session
	}{
		{name: "empty", items: map[string]string{}, expected: guard.Session{}},
		{name: "token only", items: map[string]string{guard.TokenKey: "tok"}, expected: guard.Session{Token: "tok"}},
		{name: "malformed user", items: map[string]string{guard.TokenKey: "tok", guard.UserKey: "{"}, expected: guard.Session{Token: "tok"}},
		{
			name:     "admin",
			items:    map[string]string{guard.TokenKey: "tok", guard.UserKey: `{"email":"admin@parking.com","roles":["admin"]}`},
			expected: guard.Session{Token: "tok", Roles: []string{"admin"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(t.TempDir())
			require.NoError(t, err)
			require.NoError(t, s.SetAll(tt.items))

			session, err := s.Session()
			require.NoError(t, err)
			require.Equal(t, tt.expected, session)
		})
	}
}

func TestStore_corruptFile(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0600))

	_, _, err = s.Get(guard.TokenKey)
	require.Error(t, err)

	_, err = s.Session()
	require.Error(t, err)
}
