package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/Fadhlan-athha/manajemen-warga/internal/domain"

	"github.com/google/uuid"
)

// MemoryAdminRolesRepo holds admin accounts when DB is disabled.
type MemoryAdminRolesRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.AdminUser // lower(email) -> user
	roles map[string]*domain.AdminRole // user_id -> role
}

func NewMemoryAdminRolesRepo() *MemoryAdminRolesRepo {
	return &MemoryAdminRolesRepo{
		users: map[string]*domain.AdminUser{},
		roles: map[string]*domain.AdminRole{},
	}
}

var _ AdminRolesRepository = (*MemoryAdminRolesRepo)(nil)

func (r *MemoryAdminRolesRepo) GetAdminRole(_ context.Context, userID string) (*domain.AdminRole, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *role
	return &c, nil
}

func (r *MemoryAdminRolesRepo) GetAdminUserByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *MemoryAdminRolesRepo) UpsertAdmin(_ context.Context, user *domain.AdminUser, role *domain.AdminRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(user.Email))
	if existing, ok := r.users[key]; ok {
		user.UserID = existing.UserID
	} else if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	u := *user
	u.Email = key
	r.users[key] = &u

	role.UserID = user.UserID
	rc := *role
	r.roles[user.UserID] = &rc
	return nil
}
