package term

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/jaminalder/solo-tic-tac-toe/internal/domain"
)

// LineReader is the part of *readline.Instance the REPL needs.
type LineReader interface {
	Readline() (string, error)
}

const helpText = `Enter a cell number 1-9 to place your X:
 1 | 2 | 3
 4 | 5 | 6
 7 | 8 | 9
Commands: new (start over), help, quit`

var errBadInput = errors.New("enter a cell number 1-9, 'new', 'help' or 'quit'")

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over, type 'new' to play again"
	case errors.Is(err, domain.ErrNotYourTurn):
		return "Not your turn"
	default:
		return err.Error()
	}
}

// Run reads commands from in until quit, EOF, an interrupt on an empty line,
// or ctx is done.
func Run(ctx context.Context, in LineReader, s *Session, r *Renderer) error {
	r.Info("You are X. The computer plays O. Type 'help' for commands.")
	r.Board(s.View())
	for ctx.Err() == nil {
		line, err := in.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
		case "":
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			r.Info(helpText)
		case "new", "n":
			s.Reset()
			r.Board(s.View())
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil {
				r.Error(errBadInput.Error())
				continue
			}
			turn(ctx, s, r, n-1)
		}
	}
	return nil
}

// turn plays the human move on cell and, if the game goes on, the reply.
func turn(ctx context.Context, s *Session, r *Renderer, cell int) {
	st, err := s.Place(cell)
	if err != nil {
		r.Error(errorMessage(err))
		return
	}
	if st.Terminal() {
		r.Board(s.View())
		return
	}
	r.Info("O is thinking...")
	choice, _, err := s.Reply(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.Error(errorMessage(err))
		}
		return
	}
	r.Info("O plays %d (%s)", choice.Cell+1, choice.Tier)
	r.Board(s.View())
}
