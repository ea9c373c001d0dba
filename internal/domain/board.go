package domain

import (
	"errors"
	"iter"
	"strings"
)

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

var ErrNotation = errors.New("board notation must be 9 cells of X, O, '.' or '-'")

// ParseBoard reads a 9-character board such as "XX.OO....". Cells are X, O
// (either case) or one of ". -" for empty.
func ParseBoard(s string) (Board, error) {
	var b Board
	if len(s) != len(b) {
		return b, ErrNotation
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'X', 'x':
			b[i] = X
		case 'O', 'o':
			b[i] = O
		case '.', '-', ' ':
			b[i] = Empty
		default:
			return Board{}, ErrNotation
		}
	}
	return b, nil
}

// String renders the board in the notation accepted by ParseBoard.
func (b Board) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c == Empty {
			sb.WriteByte('.')
			continue
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// With returns a copy of the board with cell idx set to c. idx must be 0..8;
// With panics otherwise.
func (b Board) With(idx int, c Cell) Board {
	b[idx] = c
	return b
}

// CheckWin reports whether any winning line is fully owned by player.
func (b Board) CheckWin(player Cell) bool {
	_, ok := b.FindWinningLine(player)
	return ok
}

// FindWinningLine returns the first line in Lines order owned by player.
func (b Board) FindWinningLine(player Cell) (Line, bool) {
	if player == Empty {
		return Line{}, false
	}
	for _, ln := range Lines {
		if b[ln[0]] == player && b[ln[1]] == player && b[ln[2]] == player {
			return ln, true
		}
	}
	return Line{}, false
}

// IsDraw reports whether every cell is taken. It does not look for a win, so
// callers must rule one out first; Status does that ordering.
func (b Board) IsDraw() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Marks counts the non-empty cells.
func (b Board) Marks() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

// AvailableCells yields empty cell indices in ascending order. The board is
// captured by value, so the sequence can be ranged over more than once.
func (b Board) AvailableCells() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, c := range b {
			if c == Empty && !yield(i) {
				return
			}
		}
	}
}

// Status derives the game status: X win, then O win, then draw, otherwise
// whose turn it is from the parity of placed marks.
func (b Board) Status() Status {
	if ln, ok := b.FindWinningLine(X); ok {
		return Status{State: XWins, Winner: X, Line: ln}
	}
	if ln, ok := b.FindWinningLine(O); ok {
		return Status{State: OWins, Winner: O, Line: ln}
	}
	if b.IsDraw() {
		return Status{State: Draw}
	}
	if b.Marks()%2 == 0 {
		return Status{State: XTurn}
	}
	return Status{State: OTurn}
}
