package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/userd/server/api/users"
)

var userA = uuid.MustParse("b916577c-2c51-4025-891f-13b0e27b8049")

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	r, err := NewMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.Close()
	})
	return r
}

func newTestUser(id uuid.UUID, name string) users.User {
	return users.User{
		ID:         id,
		Name:       name,
		BirthDate:  civil.Date{Year: 1984, Month: time.February, Day: 14},
		CustomData: users.CustomData{Random: 7},
	}
}

func TestRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	now := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	created, err := r.Create(ctx, newTestUser(userA, "Ana"))
	require.NoError(t, err)
	require.NotNil(t, created.CreatedAt)
	assert.True(t, now.Equal(*created.CreatedAt))
	assert.Nil(t, created.UpdatedAt)

	got, err := r.Get(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, civil.Date{Year: 1984, Month: time.February, Day: 14}, got.BirthDate)
	assert.Equal(t, users.CustomData{Random: 7}, got.CustomData)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, now.Equal(*got.CreatedAt))
	assert.Nil(t, got.UpdatedAt)

	later := now.Add(time.Minute)
	r.now = func() time.Time { return later }
	_, err = r.Update(ctx, newTestUser(userA, "Ana M."))
	require.NoError(t, err)

	got, err = r.Get(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, "Ana M.", got.Name)
	assert.True(t, now.Equal(*got.CreatedAt))
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, later.Equal(*got.UpdatedAt))

	id, err := r.Delete(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, userA, id)

	_, err = r.Get(ctx, userA)
	assert.ErrorIs(t, err, users.ErrInvalidID)

	id, err = r.Delete(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, userA, id)
}

func TestRepositoryCreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	_, err := r.Create(ctx, newTestUser(userA, "Ana"))
	require.NoError(t, err)

	_, err = r.Create(ctx, newTestUser(userA, "Other"))
	assert.ErrorIs(t, err, users.ErrAlreadyExists)

	got, err := r.Get(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
}

func TestRepositoryUpdateRequiresPresence(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	_, err := r.Update(ctx, newTestUser(userA, "Ana"))
	assert.ErrorIs(t, err, users.ErrDoesNotExist)

	_, err = r.Get(ctx, userA)
	assert.ErrorIs(t, err, users.ErrInvalidID)
}

func TestRepositoryZeroBirthDate(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	_, err := r.Create(ctx, users.User{ID: userA, Name: "Ana"})
	require.NoError(t, err)

	got, err := r.Get(ctx, userA)
	require.NoError(t, err)
	assert.True(t, got.BirthDate.IsZero())
}

func TestRepositoryBackendFailureIsLockError(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)
	require.NoError(t, r.Close())

	_, err := r.Get(ctx, userA)
	assert.ErrorIs(t, err, users.ErrLock)
	assert.Equal(t, users.KindLock, users.KindOf(err))

	_, err = r.Delete(ctx, userA)
	assert.ErrorIs(t, err, users.ErrLock)
}

func TestRepositoryCanceledContext(t *testing.T) {
	r := newTestRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Get(ctx, userA)
	assert.ErrorIs(t, err, users.ErrLock)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = r.Create(ctx, newTestUser(userA, "Ana"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = r.Get(context.Background(), userA)
	assert.ErrorIs(t, err, users.ErrInvalidID)
}

func TestRepositoryConcurrentCreateSameID(t *testing.T) {
	ctx := context.Background()
	r := newTestRepository(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(ctx, newTestUser(userA, "Ana"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, users.ErrAlreadyExists)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}
