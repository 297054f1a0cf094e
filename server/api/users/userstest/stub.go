// Package userstest provides a hand-written users.Repository stub for tests.
package userstest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/openrport/userd/server/api/users"
)

// Call records a single invocation of the stub.
type Call struct {
	Method string
	ID     uuid.UUID
	User   users.User
}

// RepositoryStub returns whatever its function fields return. Unset functions
// fail with a lock error so that unexpected calls are visible in tests.
type RepositoryStub struct {
	GetFunc    func(ctx context.Context, id uuid.UUID) (users.User, error)
	CreateFunc func(ctx context.Context, user users.User) (users.User, error)
	UpdateFunc func(ctx context.Context, user users.User) (users.User, error)
	DeleteFunc func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

	mu    sync.Mutex
	calls []Call
}

var _ users.Repository = (*RepositoryStub)(nil)

func (s *RepositoryStub) Get(ctx context.Context, id uuid.UUID) (users.User, error) {
	s.record(Call{Method: "Get", ID: id})
	if s.GetFunc == nil {
		return users.User{}, users.NewLockError("unexpected call to Get")
	}
	return s.GetFunc(ctx, id)
}

func (s *RepositoryStub) Create(ctx context.Context, user users.User) (users.User, error) {
	s.record(Call{Method: "Create", ID: user.ID, User: user})
	if s.CreateFunc == nil {
		return users.User{}, users.NewLockError("unexpected call to Create")
	}
	return s.CreateFunc(ctx, user)
}

func (s *RepositoryStub) Update(ctx context.Context, user users.User) (users.User, error) {
	s.record(Call{Method: "Update", ID: user.ID, User: user})
	if s.UpdateFunc == nil {
		return users.User{}, users.NewLockError("unexpected call to Update")
	}
	return s.UpdateFunc(ctx, user)
}

func (s *RepositoryStub) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	s.record(Call{Method: "Delete", ID: id})
	if s.DeleteFunc == nil {
		return uuid.Nil, users.NewLockError("unexpected call to Delete")
	}
	return s.DeleteFunc(ctx, id)
}

// Calls returns the recorded invocations in order.
func (s *RepositoryStub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *RepositoryStub) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}
