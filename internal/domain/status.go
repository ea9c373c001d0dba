package domain

// State is a node of the game state machine. XWins, OWins and Draw are terminal.
type State uint8

const (
	XTurn State = iota
	OTurn
	XWins
	OWins
	Draw
)

func (s State) String() string {
	switch s {
	case XTurn:
		return "x_turn"
	case OTurn:
		return "o_turn"
	case XWins:
		return "x_wins"
	case OWins:
		return "o_wins"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// Status is the derived outcome of a board. Line is only meaningful when
// Winner is not Empty.
type Status struct {
	State  State
	Winner Cell
	Line   Line
}

// Terminal reports whether the game has ended.
func (s Status) Terminal() bool {
	return s.State == XWins || s.State == OWins || s.State == Draw
}

// Text is the status line shown to the player.
func (s Status) Text() string {
	switch s.State {
	case OTurn:
		return "O's turn"
	case XWins:
		return "X's Wins!"
	case OWins:
		return "O's Wins!"
	case Draw:
		return "Draw!"
	default:
		return "X's turn"
	}
}
