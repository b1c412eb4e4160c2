package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

// Outcome is the state a session moves to once a move is accepted.
type Outcome struct {
	Board        entity.Board
	Winner       string
	WinningCells []int
	IsDraw       bool
	NextTurn     string
}

// ApplyMove computes the result of mark playing cell. The session is never modified.
func ApplyMove(game *entity.Session, cell int, mark string) (*Outcome, error) {
	if err := validateMove(game, mark, cell); err != nil {
		return nil, fmt.Errorf("invalid turn: %w", err)
	}

	board := game.Board
	board[cell] = mark

	outcome := &Outcome{
		Board:        board,
		WinningCells: []int{},
	}

	winner, cells := CheckWinner(board)
	switch {
	case winner != entity.NoWinner:
		outcome.Winner = winner
		outcome.WinningCells = cells
		outcome.NextTurn = entity.NoTurn
	case IsFull(board):
		outcome.Winner = entity.Draw
		outcome.IsDraw = true
		outcome.NextTurn = entity.NoTurn
	default:
		outcome.NextTurn = entity.ToggleMark(mark)
	}

	return outcome, nil
}

// Update returns the partial write that stores the outcome.
func (that *Outcome) Update() entity.SessionUpdate {
	board := that.Board
	turn := that.NextTurn
	winner := that.Winner
	cells := append([]int{}, that.WinningCells...)

	return entity.SessionUpdate{
		Board:        &board,
		Turn:         &turn,
		Winner:       &winner,
		WinningCells: &cells,
	}
}

// validateMove - checks if the move is valid.
func validateMove(game *entity.Session, mark string, cell int) error {
	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if game.IsFinished() {
		return apperror.ErrGameFinished
	}

	if mark != entity.PlayerX && mark != entity.PlayerO {
		return apperror.ErrNotYourTurn
	}

	if game.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	if game.Board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// CheckWinner returns the mark and cells of the first completed line, in WinCombos order.
func CheckWinner(board entity.Board) (string, []int) {
	for _, combo := range entity.WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return a, []int{combo[0], combo[1], combo[2]}
		}
	}

	return entity.NoWinner, nil
}

func IsFull(board entity.Board) bool {
	for _, cell := range board {
		if cell == entity.EmptyCell {
			return false
		}
	}

	return true
}
