package repository

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-online/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-online/internal/entity"
)

// hash fields of a stored session
const (
	fieldID           = "id"
	fieldBoard        = "board"
	fieldTurn         = "turn"
	fieldWinner       = "winner"
	fieldWinningCells = "winningCells"
	fieldPlayerX      = "player_x"
	fieldPlayerO      = "player_o"
	fieldPlayerXName  = "player_x_name"
	fieldPlayerOName  = "player_o_name"
)

func encodeSession(session *entity.Session) ([]any, error) {
	board, err := json.Marshal(session.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}

	cells, err := marshalCells(session.WinningCells)
	if err != nil {
		return nil, err
	}

	return []any{
		fieldID, session.ID,
		fieldBoard, string(board),
		fieldTurn, session.Turn,
		fieldWinner, session.Winner,
		fieldWinningCells, cells,
		fieldPlayerX, session.PlayerX,
		fieldPlayerO, session.PlayerO,
		fieldPlayerXName, session.PlayerXName,
		fieldPlayerOName, session.PlayerOName,
	}, nil
}

func encodeUpdate(update entity.SessionUpdate) ([]any, error) {
	var fields []any

	if update.Board != nil {
		board, err := json.Marshal(update.Board)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal board: %w", err)
		}
		fields = append(fields, fieldBoard, string(board))
	}

	if update.Turn != nil {
		fields = append(fields, fieldTurn, *update.Turn)
	}

	if update.Winner != nil {
		fields = append(fields, fieldWinner, *update.Winner)
	}

	if update.WinningCells != nil {
		cells, err := marshalCells(*update.WinningCells)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fieldWinningCells, cells)
	}

	if update.PlayerO != nil {
		fields = append(fields, fieldPlayerO, *update.PlayerO)
	}

	if update.PlayerXName != nil {
		fields = append(fields, fieldPlayerXName, *update.PlayerXName)
	}

	if update.PlayerOName != nil {
		fields = append(fields, fieldPlayerOName, *update.PlayerOName)
	}

	return fields, nil
}

func marshalCells(cells []int) (string, error) {
	if cells == nil {
		cells = []int{}
	}

	data, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("failed to marshal winning cells: %w", err)
	}

	return string(data), nil
}

// decodeSession rebuilds a record from its hash and validates it.
func decodeSession(fields map[string]string) (*entity.Session, error) {
	session := &entity.Session{
		ID:           fields[fieldID],
		Turn:         fields[fieldTurn],
		Winner:       fields[fieldWinner],
		WinningCells: []int{},
		PlayerX:      fields[fieldPlayerX],
		PlayerO:      fields[fieldPlayerO],
		PlayerXName:  fields[fieldPlayerXName],
		PlayerOName:  fields[fieldPlayerOName],
	}

	board, err := decodeBoard([]byte(fields[fieldBoard]))
	if err != nil {
		return nil, err
	}
	session.Board = board

	if raw := fields[fieldWinningCells]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &session.WinningCells); err != nil {
			return nil, fmt.Errorf("%w: winning cells: %w", apperror.ErrMalformedSession, err)
		}
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// decodeNotification parses a pushed record: the merged hash encoded as a JSON object.
func decodeNotification(payload string) (*entity.Session, error) {
	var fields map[string]string
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedSession, err)
	}

	return decodeSession(fields)
}

// decodeBoard accepts exactly nine cells; null cells are empty.
func decodeBoard(raw []byte) (entity.Board, error) {
	var cells []*string
	if err := json.Unmarshal(raw, &cells); err != nil {
		return entity.Board{}, fmt.Errorf("%w: board: %w", apperror.ErrMalformedSession, err)
	}

	if len(cells) != entity.BoardSize {
		return entity.Board{}, fmt.Errorf("%w: board has %d cells", apperror.ErrMalformedSession, len(cells))
	}

	var board entity.Board
	for i, cell := range cells {
		if cell != nil {
			board[i] = *cell
		}
	}

	return board, nil
}
