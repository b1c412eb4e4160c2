package usecase

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateActive        State = "active"
	StateObserving     State = "observing"
	StateTerminal      State = "terminal"
)

const defaultHeadline = "Online Tic Tac Toe"

// Snapshot is a copy of everything the presentation layer shows.
type Snapshot struct {
	State     State
	SessionID string
	Record    *entity.Session
	Role      entity.Role

	PlayerID     string
	Name         string
	NameRequired bool

	InviteURL string
	Headline  string
	Status    string
}

// IsWinningCell reports whether cell belongs to the recorded winning line.
func (that Snapshot) IsWinningCell(cell int) bool {
	if that.Record == nil {
		return false
	}

	for _, winning := range that.Record.WinningCells {
		if winning == cell {
			return true
		}
	}

	return false
}

func (that *Session) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		State:     that.stateLocked(),
		SessionID: that.sessionID,
		Record:    that.record.Clone(),
		Role:      that.role,
		PlayerID:  that.playerID,
		Name:      that.name,
		Headline:  defaultHeadline,
	}

	if !that.loaded || snapshot.Record == nil {
		if that.sessionID != "" {
			snapshot.Status = "Loading..."
		}
		return snapshot
	}

	snapshot.NameRequired = that.role.IsPlayer() && that.name == ""

	if that.role == entity.RolePlayerX && that.inviteURL != nil {
		snapshot.InviteURL = that.inviteURL(that.sessionID)
	}

	snapshot.Headline, snapshot.Status = describe(snapshot.Record, that.role)

	return snapshot
}

func (that *Session) stateLocked() State {
	switch {
	case that.sessionID == "":
		return StateUninitialized
	case !that.loaded || that.record == nil:
		return StateLoading
	case that.role == entity.RoleObserver:
		return StateObserving
	case that.record.IsFinished():
		return StateTerminal
	default:
		return StateActive
	}
}

func describe(record *entity.Session, role entity.Role) (string, string) {
	headline := defaultHeadline
	switch {
	case record.IsDraw():
		headline = "It's a draw!"
	case record.IsFinished():
		headline = fmt.Sprintf("%s wins!", record.Winner)
	}

	switch {
	case role == entity.RoleObserver:
		return headline, "Spectating..."
	case record.IsFinished():
		return headline, ""
	case record.Turn == role.Mark():
		return headline, "Your turn"
	default:
		return headline, fmt.Sprintf("%s's turn", record.NameFor(record.Turn))
	}
}
