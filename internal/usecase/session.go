package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
	"github.com/rocketscienceinc/tictactoe-online/internal/repository"
	"github.com/rocketscienceinc/tictactoe-online/internal/service"
	"github.com/rocketscienceinc/tictactoe-online/internal/tictactoe"
)

type sessionRepo interface {
	Create(ctx context.Context, session *entity.Session) (*entity.Session, error)
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Update(ctx context.Context, id string, update entity.SessionUpdate) error
	Subscribe(ctx context.Context, id string, onUpdate func(*entity.Session)) (repository.Subscription, error)
}

type Options struct {
	// InviteURL builds the link shown to the first player. Optional.
	InviteURL func(sessionID string) string
}

// Session keeps one client's view of one shared record in sync with the store.
//
// Local actions are serialized by opMu, so a move always completes before the next one
// starts. mu only guards the cached view and is never held during store calls, since
// stores may deliver pushes on the writer's goroutine.
type Session struct {
	logger *slog.Logger

	identity    service.IdentityService
	roles       service.RoleService
	sessionRepo sessionRepo
	inviteURL   func(string) string

	opMu sync.Mutex

	mu           sync.Mutex
	playerID     string
	name         string
	sessionID    string
	record       *entity.Session
	role         entity.Role
	loaded       bool
	pushed       bool
	subscription repository.Subscription
	onChange     func(Snapshot)
}

func NewSession(
	logger *slog.Logger,
	identity service.IdentityService,
	roles service.RoleService,
	sessionRepo sessionRepo,
	options Options,
) *Session {
	return &Session{
		logger:      logger.With("component", "session"),
		identity:    identity,
		roles:       roles,
		sessionRepo: sessionRepo,
		inviteURL:   options.InviteURL,
	}
}

// OnChange registers a callback run after every change of the local view.
// It is called without any lock held and may call Snapshot.
func (that *Session) OnChange(fn func(Snapshot)) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.onChange = fn
}

// Enter joins the session with the given id, or creates a new one when id is empty.
func (that *Session) Enter(ctx context.Context, sessionID string) error {
	that.opMu.Lock()
	defer that.opMu.Unlock()

	log := that.logger.With("method", "Enter", "sessionID", sessionID)

	playerID, err := that.identity.GetOrCreateIdentity(ctx)
	if err != nil {
		log.Error("can't get player identity", "error", err)
		return fmt.Errorf("failed to get player identity: %w", err)
	}

	name, err := that.identity.GetStoredName(ctx)
	if err != nil {
		log.Error("can't get player name", "error", err)
		return fmt.Errorf("failed to get player name: %w", err)
	}

	that.mu.Lock()
	that.playerID = playerID
	that.name = name
	that.mu.Unlock()

	if sessionID == "" {
		that.switchTo("")
		return that.startNew(ctx)
	}

	return that.load(ctx, sessionID)
}

// StartNewSession creates a fresh record with the local player as X and moves to it.
func (that *Session) StartNewSession(ctx context.Context) error {
	that.opMu.Lock()
	defer that.opMu.Unlock()

	that.mu.Lock()
	playerID := that.playerID
	that.mu.Unlock()

	if playerID == "" {
		return apperror.ErrSessionNotStarted
	}

	return that.startNew(ctx)
}

// MakeMove re-reads the record, applies the move for the local role and writes the result.
// Rejected moves are a silent no-op.
func (that *Session) MakeMove(ctx context.Context, cell int) error {
	that.opMu.Lock()
	defer that.opMu.Unlock()

	sessionID, role, err := that.current()
	if err != nil {
		return err
	}

	log := that.logger.With("method", "MakeMove", "sessionID", sessionID, "cell", cell)

	fresh, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		log.Error("can't re-read session", "error", err)
		return fmt.Errorf("failed to re-read session: %w", err)
	}

	outcome, err := tictactoe.ApplyMove(fresh, cell, role.Mark())
	if err != nil {
		log.Debug("move rejected", "error", err)
		return nil
	}

	if err = that.sessionRepo.Update(ctx, sessionID, outcome.Update()); err != nil {
		log.Error("can't write move", "error", err)
		return fmt.Errorf("failed to write move: %w", err)
	}

	log.Debug("move written", "mark", role.Mark(), "winner", outcome.Winner)

	return nil
}

// ResetSession clears a finished game in place. Anything else is a silent no-op.
func (that *Session) ResetSession(ctx context.Context) error {
	that.opMu.Lock()
	defer that.opMu.Unlock()

	sessionID, _, err := that.current()
	if err != nil {
		return err
	}

	log := that.logger.With("method", "ResetSession", "sessionID", sessionID)

	fresh, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		log.Error("can't re-read session", "error", err)
		return fmt.Errorf("failed to re-read session: %w", err)
	}

	if err = checkReset(fresh); err != nil {
		log.Debug("reset rejected", "error", err)
		return nil
	}

	if err = that.sessionRepo.Update(ctx, sessionID, entity.ResetUpdate()); err != nil {
		log.Error("can't reset session", "error", err)
		return fmt.Errorf("failed to reset session: %w", err)
	}

	return nil
}

// SubmitName stores the display name and writes it into the local slot if that slot has none.
func (that *Session) SubmitName(ctx context.Context, name string) error {
	that.opMu.Lock()
	defer that.opMu.Unlock()

	log := that.logger.With("method", "SubmitName")

	stored, err := that.identity.SetName(ctx, name)
	if err != nil {
		log.Error("can't store player name", "error", err)
		return fmt.Errorf("failed to store player name: %w", err)
	}

	that.mu.Lock()
	that.name = stored
	sessionID, role, loaded := that.sessionID, that.role, that.loaded
	that.mu.Unlock()

	// The cached view may still lack our own earlier writes, so the slot is checked on a fresh read.
	if loaded && role.IsPlayer() {
		fresh, err := that.sessionRepo.GetByID(ctx, sessionID)
		if err != nil {
			log.Error("can't re-read session", "sessionID", sessionID, "error", err)
			return fmt.Errorf("failed to re-read session: %w", err)
		}

		if err = that.roles.PropagateName(ctx, fresh, role, stored); err != nil {
			log.Error("can't propagate player name", "sessionID", sessionID, "error", err)
			return fmt.Errorf("failed to propagate player name: %w", err)
		}
	}

	that.changed()

	return nil
}

func (that *Session) Snapshot() Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshotLocked()
}

// Close releases the subscription of the current session.
func (that *Session) Close() error {
	that.mu.Lock()
	subscription := that.subscription
	that.subscription = nil
	that.sessionID = ""
	that.record = nil
	that.role = entity.RoleNone
	that.loaded = false
	that.mu.Unlock()

	if subscription == nil {
		return nil
	}

	if err := subscription.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}

	return nil
}

func (that *Session) startNew(ctx context.Context) error {
	log := that.logger.With("method", "startNew")

	that.mu.Lock()
	initial := entity.NewSession(that.playerID)
	initial.PlayerXName = that.name
	that.mu.Unlock()

	created, err := that.sessionRepo.Create(ctx, initial)
	if err != nil {
		log.Error("can't create session", "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	that.switchTo(created.ID)

	if err = that.subscribe(ctx, created.ID); err != nil {
		log.Error("can't subscribe to session", "sessionID", created.ID, "error", err)
		return err
	}

	that.mu.Lock()
	if that.sessionID == created.ID {
		if !that.pushed {
			that.record = created
		}
		that.role = entity.RolePlayerX
		that.loaded = true
	}
	that.mu.Unlock()

	log.Info("session created", "sessionID", created.ID)
	that.changed()

	return nil
}

func (that *Session) load(ctx context.Context, sessionID string) error {
	log := that.logger.With("method", "load", "sessionID", sessionID)

	that.switchTo(sessionID)

	if err := that.subscribe(ctx, sessionID); err != nil {
		log.Error("can't subscribe to session", "error", err)
		return err
	}

	record, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		log.Error("can't load session", "error", err)
		return fmt.Errorf("failed to load session: %w", err)
	}

	that.mu.Lock()
	playerID, name := that.playerID, that.name
	that.mu.Unlock()

	role, err := that.roles.AssignRole(ctx, record, playerID)
	if err != nil {
		log.Error("can't assign role", "error", err)
		return fmt.Errorf("failed to assign role: %w", err)
	}

	if err = that.roles.PropagateName(ctx, record, role, name); err != nil {
		log.Error("can't propagate player name", "error", err)
		return fmt.Errorf("failed to propagate player name: %w", err)
	}

	that.mu.Lock()
	if that.sessionID == sessionID {
		if !that.pushed {
			that.record = record
		}
		that.role = role
		that.loaded = true
	}
	that.mu.Unlock()

	log.Info("session loaded", "role", role)
	that.changed()

	return nil
}

// switchTo drops the current session view and its subscription.
func (that *Session) switchTo(sessionID string) {
	that.mu.Lock()
	previous := that.subscription
	that.subscription = nil
	that.sessionID = sessionID
	that.record = nil
	that.role = entity.RoleNone
	that.loaded = false
	that.pushed = false
	that.mu.Unlock()

	if previous != nil {
		if err := previous.Unsubscribe(); err != nil {
			that.logger.Warn("can't unsubscribe from previous session", "error", err)
		}
	}
}

func (that *Session) subscribe(ctx context.Context, sessionID string) error {
	subscription, err := that.sessionRepo.Subscribe(ctx, sessionID, that.pushHandler(sessionID))
	if err != nil {
		return fmt.Errorf("failed to subscribe to session: %w", err)
	}

	that.mu.Lock()
	if that.sessionID != sessionID {
		that.mu.Unlock()
		return errors.Join(apperror.ErrSessionNotStarted, subscription.Unsubscribe())
	}
	that.subscription = subscription
	that.mu.Unlock()

	return nil
}

// pushHandler replaces the cached record wholesale with whatever the store pushes
// for sessionID. Pushes for any other record are dropped.
func (that *Session) pushHandler(sessionID string) func(*entity.Session) {
	return func(pushed *entity.Session) {
		that.mu.Lock()
		if that.sessionID != sessionID || pushed.ID != sessionID {
			that.mu.Unlock()
			that.logger.Debug("dropping update for another session", "sessionID", pushed.ID)
			return
		}

		that.record = pushed.Clone()
		that.pushed = true
		loaded := that.loaded
		that.mu.Unlock()

		if loaded {
			that.changed()
		}
	}
}

func (that *Session) current() (string, entity.Role, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.sessionID == "" || !that.loaded {
		return "", entity.RoleNone, apperror.ErrSessionNotStarted
	}

	return that.sessionID, that.role, nil
}

func (that *Session) changed() {
	that.mu.Lock()
	fn := that.onChange
	snapshot := that.snapshotLocked()
	that.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// checkReset allows anyone watching the record, observers included, to clear a finished game.
func checkReset(record *entity.Session) error {
	if !record.IsFinished() {
		return fmt.Errorf("%w: game is still running", apperror.ErrResetNotAllowed)
	}

	return nil
}
