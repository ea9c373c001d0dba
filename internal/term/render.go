package term

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jaminalder/solo-tic-tac-toe/internal/app"
)

// Renderer draws boards and messages to a terminal.
type Renderer struct {
	w   io.Writer
	out *termenv.Output
}

// NewRenderer writes to w using the given colour profile. Pass
// termenv.EnvColorProfile() for a real terminal and termenv.Ascii for plain text.
func NewRenderer(w io.Writer, profile termenv.Profile) *Renderer {
	return &Renderer{w: w, out: termenv.NewOutput(w, termenv.WithProfile(profile))}
}

func (r *Renderer) cell(c app.CellView) string {
	if c.Mark == "" {
		return r.out.String(strconv.Itoa(c.Index + 1)).Faint().String()
	}
	s := r.out.String(c.Mark).Bold()
	switch c.Mark {
	case "X":
		s = s.Foreground(r.out.Color("4"))
	case "O":
		s = s.Foreground(r.out.Color("1"))
	}
	if c.Winning {
		s = s.Reverse()
	}
	return s.String()
}

// Board prints the grid, empty cells numbered 1-9, followed by the status line.
func (r *Renderer) Board(v app.View) {
	var b strings.Builder
	for row := range 3 {
		if row > 0 {
			b.WriteString("---+---+---\n")
		}
		parts := make([]string, 3)
		for col := range 3 {
			parts[col] = " " + r.cell(v.Cells[row*3+col]) + " "
		}
		b.WriteString(strings.Join(parts, "|"))
		b.WriteByte('\n')
	}
	b.WriteString(r.out.String(v.Status).Bold().String())
	b.WriteByte('\n')
	if v.ShowPlayAgain {
		b.WriteString("Type 'new' to play again.\n")
	}
	_, _ = io.WriteString(r.w, b.String())
}

// Info prints a plain message line.
func (r *Renderer) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

// Error prints msg highlighted as an error.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.w, r.out.String(msg).Foreground(r.out.Color("1")).String())
}
