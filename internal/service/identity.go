package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
)

const (
	keyPlayerID   = "playerId"
	keyPlayerName = "playerName"
)

type IdentityService interface {
	GetOrCreateIdentity(ctx context.Context) (string, error)
	GetStoredName(ctx context.Context) (string, error)
	SetName(ctx context.Context, name string) (string, error)
}

type identityRepo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type identityService struct {
	logger       *slog.Logger
	identityRepo identityRepo
}

func NewIdentityService(logger *slog.Logger, identityRepo identityRepo) IdentityService {
	return &identityService{
		logger:       logger.With("component", "identityService"),
		identityRepo: identityRepo,
	}
}

// GetOrCreateIdentity returns the stored participant id, allocating and persisting one on first use.
func (that *identityService) GetOrCreateIdentity(ctx context.Context) (string, error) {
	log := that.logger.With("method", "GetOrCreateIdentity")

	playerID, err := that.identityRepo.Get(ctx, keyPlayerID)
	if err == nil && playerID != "" {
		return playerID, nil
	}
	if err != nil && !errors.Is(err, repository.ErrKeyNotFound) {
		log.Error("can't read player id", "error", err)
		return "", fmt.Errorf("%w: %w", apperror.ErrIdentityUnavailable, err)
	}

	playerID = uuid.NewString()
	if err = that.identityRepo.Set(ctx, keyPlayerID, playerID); err != nil {
		log.Error("can't store player id", "error", err)
		return "", fmt.Errorf("%w: %w", apperror.ErrIdentityUnavailable, err)
	}

	log.Info("new player identity", "playerID", playerID)

	return playerID, nil
}

func (that *identityService) GetStoredName(ctx context.Context) (string, error) {
	name, err := that.identityRepo.Get(ctx, keyPlayerName)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrIdentityUnavailable, err)
	}

	return name, nil
}

// SetName trims and persists the display name. Blank input is ignored and
// the previously stored name is returned.
func (that *identityService) SetName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return that.GetStoredName(ctx)
	}

	if err := that.identityRepo.Set(ctx, keyPlayerName, name); err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrIdentityUnavailable, err)
	}

	return name, nil
}
