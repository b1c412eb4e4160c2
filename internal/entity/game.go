package entity

import (
	"fmt"
	"slices"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
)

const (
	PlayerX = "X"
	PlayerO = "O"
	Draw    = "Draw"

	EmptyCell = ""
	NoWinner  = ""
	NoTurn    = ""

	BoardSize = 9
)

// WinCombos lists every line in the order it is checked: rows, then columns, then diagonals.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Board [BoardSize]string

// Session is the shared record both players and any observers read and write.
type Session struct {
	ID           string `json:"id"`
	Board        Board  `json:"board"`
	Turn         string `json:"turn"`
	Winner       string `json:"winner"`
	WinningCells []int  `json:"winningCells"`
	PlayerX      string `json:"player_x"`
	PlayerO      string `json:"player_o"`
	PlayerXName  string `json:"player_x_name"`
	PlayerOName  string `json:"player_o_name"`
}

// NewSession returns the record a first player creates; the id is assigned by the store.
func NewSession(playerID string) *Session {
	return &Session{
		Turn:         PlayerX,
		WinningCells: []int{},
		PlayerX:      playerID,
	}
}

func (that *Session) IsFinished() bool {
	return that.Winner != NoWinner
}

func (that *Session) IsDraw() bool {
	return that.Winner == Draw
}

// Clone returns a deep copy so cached records never share the winning cells slice.
func (that *Session) Clone() *Session {
	if that == nil {
		return nil
	}

	clone := *that
	clone.WinningCells = slices.Clone(that.WinningCells)
	if clone.WinningCells == nil {
		clone.WinningCells = []int{}
	}

	return &clone
}

// NameFor returns the display name stored for the mark, with a generic fallback.
func (that *Session) NameFor(mark string) string {
	switch mark {
	case PlayerX:
		if that.PlayerXName != "" {
			return that.PlayerXName
		}
		return "Player X"
	case PlayerO:
		if that.PlayerOName != "" {
			return that.PlayerOName
		}
		return "Player O"
	default:
		return ""
	}
}

// Validate checks the record shape. It does not re-check move ordering.
func (that *Session) Validate() error {
	if that.ID == "" {
		return fmt.Errorf("%w: empty id", apperror.ErrMalformedSession)
	}

	for i, cell := range that.Board {
		if !isMarkOrEmpty(cell) {
			return fmt.Errorf("%w: cell %d has value %q", apperror.ErrMalformedSession, i, cell)
		}
	}

	if !isMarkOrEmpty(that.Turn) {
		return fmt.Errorf("%w: turn %q", apperror.ErrMalformedSession, that.Turn)
	}

	if !isMarkOrEmpty(that.Winner) && that.Winner != Draw {
		return fmt.Errorf("%w: winner %q", apperror.ErrMalformedSession, that.Winner)
	}

	return that.validateWinningCells()
}

func (that *Session) validateWinningCells() error {
	hasMarkWinner := that.Winner == PlayerX || that.Winner == PlayerO

	switch len(that.WinningCells) {
	case 0:
		if hasMarkWinner {
			return fmt.Errorf("%w: winner %s without winning cells", apperror.ErrMalformedSession, that.Winner)
		}
		return nil
	case 3:
		if !hasMarkWinner {
			return fmt.Errorf("%w: winning cells without a winning mark", apperror.ErrMalformedSession)
		}
	default:
		return fmt.Errorf("%w: %d winning cells", apperror.ErrMalformedSession, len(that.WinningCells))
	}

	seen := make(map[int]bool, 3)
	for _, cell := range that.WinningCells {
		if cell < 0 || cell >= BoardSize || seen[cell] {
			return fmt.Errorf("%w: winning cell %d", apperror.ErrMalformedSession, cell)
		}
		seen[cell] = true
	}

	return nil
}

func isMarkOrEmpty(value string) bool {
	return value == EmptyCell || value == PlayerX || value == PlayerO
}

// ToggleMark returns the opponent's mark.
func ToggleMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
