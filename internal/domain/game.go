package domain

import (
	"errors"
	"fmt"
	"iter"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Line is a set of three cell indices.
type Line [3]int

// Lines holds the 8 winning lines in scan order: rows, columns, diagonals.
var Lines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Contains reports whether idx is one of the line's cells.
func (l Line) Contains(idx int) bool {
	return l[0] == idx || l[1] == idx || l[2] == idx
}

// Errors returned by domain operations. Every rejected placement wraps ErrInvalidMove.
var (
	ErrInvalidMove   = errors.New("invalid move")
	ErrOutOfBounds   = fmt.Errorf("%w: out of bounds", ErrInvalidMove)
	ErrOccupied      = fmt.Errorf("%w: cell occupied", ErrInvalidMove)
	ErrGameOver      = fmt.Errorf("%w: game over", ErrInvalidMove)
	ErrNotYourTurn   = fmt.Errorf("%w: not your turn", ErrInvalidMove)
	ErrInvalidPlayer = fmt.Errorf("%w: invalid player", ErrInvalidMove)
)

// Game holds the current state of a Tic-Tac-Toe match. Turn and Moves are
// caches of the board contents; the outcome is always derived via Status.
type Game struct {
	Board Board
	Turn  Cell
	Moves int
}

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X}
}

// Reset clears the board and gives the move back to X.
func (g *Game) Reset() {
	*g = New()
}

// Status derives the game status from the board.
func (g *Game) Status() Status {
	return g.Board.Status()
}

// Place puts player's mark on cell idx (0..8).
func (g *Game) Place(idx int, player Cell) (Status, error) {
	if idx < 0 || idx >= len(g.Board) {
		return g.Status(), ErrOutOfBounds
	}
	if player != X && player != O {
		return g.Status(), ErrInvalidPlayer
	}
	st := g.Status()
	if st.Terminal() {
		return st, ErrGameOver
	}
	if player != g.Turn {
		return st, ErrNotYourTurn
	}
	if g.Board[idx] != Empty {
		return st, ErrOccupied
	}

	g.Board[idx] = player
	g.Moves++
	g.Turn = player.Opponent()
	return g.Status(), nil
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) (Status, error) {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		return g.Status(), ErrOutOfBounds
	}
	return g.Place(r*3+c, g.Turn)
}

// AvailableCells yields the indices of empty cells in ascending order. The
// sequence reads a snapshot of the game's board taken at call time.
func (g *Game) AvailableCells() iter.Seq[int] {
	return g.Board.AvailableCells()
}
