package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/parking/internal/models"
	"github.com/wolfeidau/parking/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using in-memory storage.
// Data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users           map[uuid.UUID]*models.User // user_id -> User
	usersByEmail    map[string]uuid.UUID       // lower(email) -> user_id
	usersByUsername map[string]uuid.UUID       // username -> user_id
	roles           map[string]models.Role     // name -> Role
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:           make(map[uuid.UUID]*models.User),
		usersByEmail:    make(map[string]uuid.UUID),
		usersByUsername: make(map[string]uuid.UUID),
		roles:           make(map[string]models.Role),
	}
}

// Create stores a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}

	email := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return store.ErrUserAlreadyExists
	}

	if user.Username != "" {
		if _, exists := s.usersByUsername[user.Username]; exists {
			return store.ErrUserAlreadyExists
		}
	}

	for _, role := range user.Roles {
		if _, exists := s.roles[role]; !exists {
			return store.ErrRoleNotFound
		}
	}

	// Clone to avoid external modifications
	clone := user.Clone()
	s.users[user.UserID] = clone
	s.usersByEmail[email] = user.UserID
	if user.Username != "" {
		s.usersByUsername[user.Username] = user.UserID
	}

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return user.Clone(), nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.usersByEmail[strings.ToLower(email)]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return s.users[userID].Clone(), nil
}

// SetActive enables or disables login for a user.
func (s *UserStore) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	user.Active = active
	user.UpdatedAt = time.Now()

	return nil
}

// EnsureRole creates the role if it does not exist yet.
func (s *UserStore) EnsureRole(ctx context.Context, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.roles[role.Name]; !exists {
		s.roles[role.Name] = role
	}

	return nil
}

// ListRoles returns all roles ordered by name.
func (s *UserStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]models.Role, 0, len(s.roles))
	for _, role := range s.roles {
		roles = append(roles, role)
	}
	slices.SortFunc(roles, func(a, b models.Role) int {
		return strings.Compare(a.Name, b.Name)
	})

	return roles, nil
}
