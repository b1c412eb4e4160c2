package apperror

import "errors"

var (
	ErrGameFinished      = errors.New("game is already finished")
	ErrNotYourTurn       = errors.New("it's not your turn")
	ErrCellOccupied      = errors.New("cell is already occupied")
	ErrInvalidCell       = errors.New("invalid cell index")
	ErrSessionNotFound   = errors.New("session not found")
	ErrMalformedSession  = errors.New("malformed session record")
	ErrSessionNotStarted = errors.New("session is not started")
	ErrResetNotAllowed   = errors.New("reset is not allowed")

	ErrIdentityUnavailable = errors.New("identity storage unavailable")
)
