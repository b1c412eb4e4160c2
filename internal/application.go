package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-online/internal/config"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository/memory"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-online/internal/service"
	"github.com/rocketscienceinc/tictactoe-online/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-online/transport/console"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs one console client against the configured session store.
func RunApp(logger *slog.Logger, conf *config.Config, sessionID string, in io.Reader, out io.Writer) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	identityStorage, err := storage.NewSQLiteStorage(conf.Identity.Path)
	if err != nil {
		return fmt.Errorf("could not open identity storage: %w", err)
	}

	defer func() {
		if err = identityStorage.Close(); err != nil {
			log.Error("could not close identity storage", "error", err)
		}
	}()

	if err = identityStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init identity storage: %w", err)
	}

	sessionRepo, closeStore, err := newSessionRepository(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeStore()

	identityService := service.NewIdentityService(logger, repository.NewIdentityRepository(identityStorage.Connection))
	roleService := service.NewRoleService(logger, sessionRepo)

	session := usecase.NewSession(logger, identityService, roleService, sessionRepo, usecase.Options{
		InviteURL: conf.InviteURL,
	})

	defer func() {
		if err = session.Close(); err != nil {
			log.Error("could not close session", "error", err)
		}
	}()

	log.Info("Starting console client", "storage", conf.Storage, "sessionID", sessionID)

	if err = console.New(logger, session, in, out).Run(ctx, sessionID); err != nil {
		return fmt.Errorf("console error: %w", err)
	}

	return nil
}

func newSessionRepository(ctx context.Context, logger *slog.Logger, conf *config.Config) (repository.SessionRepository, func(), error) {
	if conf.Storage == config.StorageMemory {
		return memory.NewSessionStore(), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString, conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	sessionRepo := repository.NewSessionRepository(logger, redisStorage.Connection, repository.SessionOptions{
		KeyPrefix: conf.Session.KeyPrefix,
		TTL:       conf.Session.TTL,
	})

	closeStore := func() {
		if closeErr := redisStorage.Close(); closeErr != nil {
			logger.Error("could not close redis storage", "error", closeErr)
		}
	}

	return sessionRepo, closeStore, nil
}
