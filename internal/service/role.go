package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

type RoleService interface {
	AssignRole(ctx context.Context, session *entity.Session, playerID string) (entity.Role, error)
	PropagateName(ctx context.Context, session *entity.Session, role entity.Role, name string) error
}

type sessionWriter interface {
	Update(ctx context.Context, id string, update entity.SessionUpdate) error
}

type roleService struct {
	logger      *slog.Logger
	sessionRepo sessionWriter
}

func NewRoleService(logger *slog.Logger, sessionRepo sessionWriter) RoleService {
	return &roleService{
		logger:      logger.With("component", "roleService"),
		sessionRepo: sessionRepo,
	}
}

// AssignRole decides what the player is to a freshly loaded record. An empty O slot
// is claimed by read-then-write; two simultaneous joiners both succeed and the later
// write wins. A successful claim is also applied to the given record.
func (that *roleService) AssignRole(ctx context.Context, session *entity.Session, playerID string) (entity.Role, error) {
	log := that.logger.With("method", "AssignRole", "sessionID", session.ID, "playerID", playerID)

	switch {
	case playerID == session.PlayerX:
		return entity.RolePlayerX, nil
	case session.PlayerO == "":
		update := entity.ClaimUpdate(playerID)
		if err := that.sessionRepo.Update(ctx, session.ID, update); err != nil {
			log.Error("failed to claim O slot", "error", err)
			return entity.RoleNone, fmt.Errorf("failed to claim second player slot: %w", err)
		}

		update.ApplyTo(session)
		log.Info("claimed O slot")

		return entity.RolePlayerO, nil
	case playerID == session.PlayerO:
		return entity.RolePlayerO, nil
	default:
		return entity.RoleObserver, nil
	}
}

// PropagateName writes the name into the role's slot once. A slot that already has a
// name is never overwritten.
func (that *roleService) PropagateName(ctx context.Context, session *entity.Session, role entity.Role, name string) error {
	if name == "" || !role.IsPlayer() {
		return nil
	}

	current := session.PlayerXName
	if role == entity.RolePlayerO {
		current = session.PlayerOName
	}
	if current != "" {
		return nil
	}

	update := entity.NameUpdate(role.Mark(), name)
	if err := that.sessionRepo.Update(ctx, session.ID, update); err != nil {
		return fmt.Errorf("failed to store player name: %w", err)
	}

	update.ApplyTo(session)

	return nil
}
