package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/natours/auth-api/internal/core/domain"
)

func init() {
	domain.PasswordCost = bcrypt.MinCost
}

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	nextID    int
	saves     int
	findErr   error
	saveErr   error
	missOnce  bool   // next FindByEmail reports not found
	afterFind func() // runs after FindByResetToken returns a match
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok || !u.Active {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.missOnce {
		r.missOnce = false
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.users {
		if u.Email == email && u.Active {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByResetToken(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	u := r.liveReset(hash, now)
	r.mu.Unlock()
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if r.afterFind != nil {
		r.afterFind()
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ConsumeResetToken(_ context.Context, hash string, change domain.PasswordChange) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.liveReset(hash, change.At)
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	u.CompleteReset(change)
	return cloneUser(u), nil
}

func (r *stubUserRepo) liveReset(hash string, now time.Time) *domain.User {
	for _, u := range r.users {
		if hash != "" && u.PasswordResetToken == hash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return u
		}
	}
	return nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u%d", r.nextID)
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) stored(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.users[id])
}

// seed stores a user with the given password and returns its stored copy.
func (r *stubUserRepo) seed(name, email, password, role string) *domain.User {
	u := &domain.User{Name: name, Email: email, Role: role, Active: true, CreatedAt: time.Now().UTC()}
	if err := u.SetPassword(password, time.Now()); err != nil {
		panic(err)
	}
	created, err := r.Create(context.Background(), u)
	if err != nil {
		panic(err)
	}
	return created
}

type stubMailer struct {
	err       error
	resetURLs []string
	welcomeTo []string
}

func (m *stubMailer) SendWelcome(_ context.Context, user *domain.User, _ string) error {
	m.welcomeTo = append(m.welcomeTo, user.Email)
	return m.err
}

func (m *stubMailer) SendPasswordReset(_ context.Context, _ *domain.User, resetURL string) error {
	m.resetURLs = append(m.resetURLs, resetURL)
	return m.err
}

type stubWelcomeQueue struct {
	users []*domain.User
	urls  []string
}

func (q *stubWelcomeQueue) EnqueueWelcome(user *domain.User, url string) {
	q.users = append(q.users, user)
	q.urls = append(q.urls, url)
}
