package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/password"
)

func TestListUsers_MissFillsCache(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.Create(context.Background(), &user.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	cache := &fakeCache{}
	uc := NewListUsersUseCase(repo, cache, logger.NewNopLogger())

	out, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, out.Users, 1)
	assert.Equal(t, 1, cache.sets)
	assert.True(t, cache.warm)
}

func TestListUsers_HitSkipsStore(t *testing.T) {
	repo := newMemoryRepo()
	cached := []*user.User{{ID: uuid.New(), Email: "cached@x.com"}}
	cache := &fakeCache{users: cached, warm: true}
	uc := NewListUsersUseCase(repo, cache, logger.NewNopLogger())

	out, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cached, out.Users)
	assert.Equal(t, 0, cache.sets)
}

func TestListUsers_CacheErrorFallsBack(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.Create(context.Background(), &user.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)

	uc := NewListUsersUseCase(repo, &fakeCache{getErr: errBoom}, logger.NewNopLogger())

	out, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, out.Users, 1)
}

func TestListUsers_NilCache(t *testing.T) {
	uc := NewListUsersUseCase(newMemoryRepo(), nil, logger.NewNopLogger())

	out, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Users)
}

func TestListUsers_RegistrationDuringFillIsNotHidden(t *testing.T) {
	ctx := context.Background()
	repo := &listHookRepo{memoryRepo: newMemoryRepo()}
	cache := &fakeCache{}
	register := NewRegisterUserUseCase(repo, &fakeUploader{}, password.NewBcryptHasher(bcrypt.MinCost), cache, nil, logger.NewNopLogger())
	list := NewListUsersUseCase(repo, cache, logger.NewNopLogger())

	repo.afterList = func() {
		_, err := register.Execute(ctx, RegisterUserInput{Email: "late@x.com", Password: "secret"})
		require.NoError(t, err)
	}

	out, err := list.Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, out.Users)
	assert.Equal(t, 1, cache.sets)

	out, err = list.Execute(ctx)
	require.NoError(t, err)
	require.Len(t, out.Users, 1)
	assert.Equal(t, "late@x.com", out.Users[0].Email)
	assert.Equal(t, 2, cache.sets)

	out, err = list.Execute(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Users, 1)
	assert.Equal(t, 2, cache.sets, "third call is served from the refilled cache")
}

func TestListUsers_CacheErrorSkipsFill(t *testing.T) {
	cache := &fakeCache{getErr: errBoom}
	uc := NewListUsersUseCase(newMemoryRepo(), cache, logger.NewNopLogger())

	_, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cache.sets)
}
