package entity

// SessionUpdate carries the fields of a partial write; nil fields are left untouched.
type SessionUpdate struct {
	Board        *Board
	Turn         *string
	Winner       *string
	WinningCells *[]int
	PlayerO      *string
	PlayerXName  *string
	PlayerOName  *string
}

func (that SessionUpdate) IsEmpty() bool {
	return that.Board == nil && that.Turn == nil && that.Winner == nil && that.WinningCells == nil &&
		that.PlayerO == nil && that.PlayerXName == nil && that.PlayerOName == nil
}

// ApplyTo merges the set fields into the record, the way the store does on write.
func (that SessionUpdate) ApplyTo(session *Session) {
	if that.Board != nil {
		session.Board = *that.Board
	}
	if that.Turn != nil {
		session.Turn = *that.Turn
	}
	if that.Winner != nil {
		session.Winner = *that.Winner
	}
	if that.WinningCells != nil {
		session.WinningCells = append([]int{}, (*that.WinningCells)...)
	}
	if that.PlayerO != nil {
		session.PlayerO = *that.PlayerO
	}
	if that.PlayerXName != nil {
		session.PlayerXName = *that.PlayerXName
	}
	if that.PlayerOName != nil {
		session.PlayerOName = *that.PlayerOName
	}
}

// ResetUpdate clears the game while keeping the id, the players and their names.
func ResetUpdate() SessionUpdate {
	board := Board{}
	turn := PlayerX
	winner := NoWinner
	cells := []int{}

	return SessionUpdate{
		Board:        &board,
		Turn:         &turn,
		Winner:       &winner,
		WinningCells: &cells,
	}
}

// ClaimUpdate writes the second player's id into the O slot.
func ClaimUpdate(playerID string) SessionUpdate {
	return SessionUpdate{PlayerO: &playerID}
}

// NameUpdate writes the display name into the slot of the given mark.
func NameUpdate(mark, name string) SessionUpdate {
	switch mark {
	case PlayerX:
		return SessionUpdate{PlayerXName: &name}
	case PlayerO:
		return SessionUpdate{PlayerOName: &name}
	default:
		return SessionUpdate{}
	}
}
