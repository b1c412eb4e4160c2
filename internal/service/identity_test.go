package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
	"github.com/rocketscienceinc/tictactoe-online/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

type mockIdentityRepo struct {
	mock.Mock
}

func (m *mockIdentityRepo) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockIdentityRepo) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func newSQLiteIdentityService(t *testing.T) IdentityService {
	return NewIdentityService(suite.NewLogger(), repository.NewIdentityRepository(suite.NewSQLite(t).Connection))
}

func TestIdentityService_GetOrCreateIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("Allocates once and returns the same id afterwards", func(t *testing.T) {
		identityService := newSQLiteIdentityService(t)

		// When: asking twice
		first, err := identityService.GetOrCreateIdentity(ctx)
		require.NoError(t, err)
		second, err := identityService.GetOrCreateIdentity(ctx)
		require.NoError(t, err)

		// Then: the id is stable
		assert.NotEmpty(t, first)
		assert.Equal(t, first, second)
	})

	t.Run("Storage failure is fatal", func(t *testing.T) {
		// Given: a storage that cannot be read
		identityRepo := &mockIdentityRepo{}
		identityRepo.On("Get", mock.Anything, keyPlayerID).Return("", errDiskFull).Once()
		identityService := NewIdentityService(suite.NewLogger(), identityRepo)

		// When: asking for the identity
		playerID, err := identityService.GetOrCreateIdentity(ctx)

		// Then: the error is reported as identity unavailable
		require.ErrorIs(t, err, apperror.ErrIdentityUnavailable)
		require.ErrorIs(t, err, errDiskFull)
		assert.Empty(t, playerID)
		identityRepo.AssertExpectations(t)
	})

	t.Run("Failure to persist a new id is fatal", func(t *testing.T) {
		identityRepo := &mockIdentityRepo{}
		identityRepo.On("Get", mock.Anything, keyPlayerID).Return("", repository.ErrKeyNotFound).Once()
		identityRepo.On("Set", mock.Anything, keyPlayerID, mock.AnythingOfType("string")).Return(errDiskFull).Once()
		identityService := NewIdentityService(suite.NewLogger(), identityRepo)

		_, err := identityService.GetOrCreateIdentity(ctx)

		require.ErrorIs(t, err, apperror.ErrIdentityUnavailable)
		identityRepo.AssertExpectations(t)
	})
}

func TestIdentityService_SetName(t *testing.T) {
	ctx := context.Background()

	t.Run("Trims and persists", func(t *testing.T) {
		identityService := newSQLiteIdentityService(t)

		// When: a padded name is submitted
		name, err := identityService.SetName(ctx, "  Alice \n")
		require.NoError(t, err)

		// Then: the trimmed name is stored
		assert.Equal(t, "Alice", name)
		stored, err := identityService.GetStoredName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Alice", stored)
	})

	t.Run("Blank input keeps the previous name", func(t *testing.T) {
		identityService := newSQLiteIdentityService(t)
		_, err := identityService.SetName(ctx, "Alice")
		require.NoError(t, err)

		// When: only whitespace is submitted
		name, err := identityService.SetName(ctx, "   ")
		require.NoError(t, err)

		// Then: nothing changes
		assert.Equal(t, "Alice", name)
	})

	t.Run("No stored name yet", func(t *testing.T) {
		identityService := newSQLiteIdentityService(t)

		name, err := identityService.GetStoredName(ctx)

		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("Storage failure is reported", func(t *testing.T) {
		identityRepo := &mockIdentityRepo{}
		identityRepo.On("Set", mock.Anything, keyPlayerName, "Bob").Return(errDiskFull).Once()
		identityService := NewIdentityService(suite.NewLogger(), identityRepo)

		_, err := identityService.SetName(ctx, "Bob")

		require.ErrorIs(t, err, apperror.ErrIdentityUnavailable)
		identityRepo.AssertExpectations(t)
	})
}
