// Package memory holds an in-process UserRepository used for local runs
// without MongoDB and by HTTP-level tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natours/auth-api/internal/core/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok || !u.Active {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByResetToken(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	if hash == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.find(func(u *domain.User) bool {
		return u.PasswordResetToken == hash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, hash string, change domain.PasswordChange) (*domain.User, error) {
	if hash == "" {
		return nil, domain.ErrUserNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if !u.Active || u.PasswordResetToken != hash {
			continue
		}
		if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(change.At) {
			return nil, domain.ErrUserNotFound
		}
		u.CompleteReset(change)
		return clone(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	created := clone(user)
	created.ID = uuid.NewString()
	r.users[created.ID] = clone(created)
	return created, nil
}

func (r *UserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range r.users {
		if id != user.ID && u.Email == user.Email {
			return domain.ErrUserExists
		}
	}
	r.users[user.ID] = clone(user)
	return nil
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Active {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Active && match(u) {
			return clone(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}
