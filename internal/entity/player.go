package entity

// Role is the local participant's relationship to a session.
type Role string

const (
	RoleNone     Role = ""
	RolePlayerX  Role = "X"
	RolePlayerO  Role = "O"
	RoleObserver Role = "observer"
)

// Mark returns the board symbol the role plays, or empty for observers.
func (that Role) Mark() string {
	switch that {
	case RolePlayerX:
		return PlayerX
	case RolePlayerO:
		return PlayerO
	default:
		return EmptyCell
	}
}

func (that Role) IsPlayer() bool {
	return that == RolePlayerX || that == RolePlayerO
}
