package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openrport/userd/share/logger"
)

type MemoryOption func(*MemoryRepository)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) {
		r.now = now
	}
}

func WithLogger(l *logger.Logger) MemoryOption {
	return func(r *MemoryRepository) {
		r.logger = l
	}
}

// WithPoisonRecovery lets the next operation after a poisoning event clear the
// poisoned state and continue instead of failing with a lock error.
func WithPoisonRecovery(enabled bool) MemoryOption {
	return func(r *MemoryRepository) {
		r.recoverPoison = enabled
	}
}

// WithUsers preloads the repository. Users are stored as given, timestamps included.
func WithUsers(initUsers ...User) MemoryOption {
	return func(r *MemoryRepository) {
		for _, u := range initUsers {
			r.users = append(r.users, u.Clone())
		}
	}
}

// MemoryRepository keeps users in an ordered slice guarded by a single RWMutex.
// Every operation runs in exactly one critical section.
type MemoryRepository struct {
	mu            sync.RWMutex
	users         []User
	poisoned      string
	recoverPoison bool
	now           func() time.Time
	logger        *logger.Logger
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		now: time.Now,
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (User, error) {
	var found User
	err := r.withReadLock("get", func() error {
		i := r.indexOf(id)
		if i < 0 {
			return NewInvalidIDError(id)
		}
		found = r.users[i].Clone()
		return nil
	})
	return found, err
}

func (r *MemoryRepository) Create(_ context.Context, user User) (User, error) {
	var stored User
	err := r.withWriteLock("create", func() error {
		if r.indexOf(user.ID) >= 0 {
			return NewAlreadyExistsError(user.ID)
		}
		stored = user.Clone()
		stored.CreatedAt = Time(r.now())
		stored.UpdatedAt = nil
		r.users = append(r.users, stored)
		stored = stored.Clone()
		return nil
	})
	if err == nil {
		r.logger.Debugf("user %s created", user.ID)
	}
	return stored, err
}

func (r *MemoryRepository) Update(_ context.Context, user User) (User, error) {
	var stored User
	err := r.withWriteLock("update", func() error {
		i := r.indexOf(user.ID)
		if i < 0 {
			return NewDoesNotExistError(user.ID)
		}
		prev := r.users[i]
		stored = user.Clone()
		stored.CreatedAt = copyTime(prev.CreatedAt)
		now := r.now()
		if stored.CreatedAt != nil && now.Before(*stored.CreatedAt) {
			now = *stored.CreatedAt
		}
		stored.UpdatedAt = Time(now)
		r.users[i] = stored
		stored = stored.Clone()
		return nil
	})
	if err == nil {
		r.logger.Debugf("user %s updated", user.ID)
	}
	return stored, err
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	err := r.withWriteLock("delete", func() error {
		kept := r.users[:0]
		for _, u := range r.users {
			if u.ID != id {
				kept = append(kept, u)
			}
		}
		// drop references left behind in the tail
		for i := len(kept); i < len(r.users); i++ {
			r.users[i] = User{}
		}
		r.users = kept
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	r.logger.Debugf("user %s deleted", id)
	return id, nil
}

// Len returns the number of stored users.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Poisoned reports whether a panic left the store in a poisoned state, with its diagnostic.
func (r *MemoryRepository) Poisoned() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.poisoned, r.poisoned != ""
}

// ClearPoison makes a poisoned store usable again.
func (r *MemoryRepository) ClearPoison() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned != "" {
		r.logger.Infof("poisoned state cleared: %s", r.poisoned)
	}
	r.poisoned = ""
}

func (r *MemoryRepository) indexOf(id uuid.UUID) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *MemoryRepository) withReadLock(op string, fn func() error) (err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.poisoned != "" && !r.recoverPoison {
		return NewLockError(r.poisoned)
	}

	defer func() {
		if p := recover(); p != nil {
			err = NewLockError(fmt.Sprintf("panic during %s: %v", op, p))
			r.logger.Errorf("%s", err)
		}
	}()
	return fn()
}

func (r *MemoryRepository) withWriteLock(op string, fn func() error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned != "" {
		if !r.recoverPoison {
			return NewLockError(r.poisoned)
		}
		r.logger.Infof("recovering from poisoned state: %s", r.poisoned)
		r.poisoned = ""
	}

	defer func() {
		if p := recover(); p != nil {
			r.poisoned = fmt.Sprintf("panic during %s: %v", op, p)
			err = NewLockError(r.poisoned)
			r.logger.Errorf("store poisoned: %s", r.poisoned)
		}
	}()
	return fn()
}
