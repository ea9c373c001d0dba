package app

import "github.com/jaminalder/solo-tic-tac-toe/internal/domain"

// CellView is one rendered cell.
type CellView struct {
	Index    int
	Mark     string
	Winning  bool
	Playable bool
}

// View is everything a UI needs after a mutation: marks, status line,
// highlighted winning cells and whether to offer "play again".
type View struct {
	ID            string
	Cells         [9]CellView
	Status        string
	State         domain.State
	ShowPlayAgain bool
	Thinking      bool
	// Turn is "x" or "o" while the game runs and empty once it is over.
	Turn string
}

// NewView projects a game onto a View. pending marks a scheduled computer move.
func NewView(id string, g domain.Game, pending bool) View {
	st := g.Status()
	v := View{
		ID:            id,
		Status:        st.Text(),
		State:         st.State,
		ShowPlayAgain: st.Terminal(),
		Thinking:      pending,
	}
	switch st.State {
	case domain.XTurn:
		v.Turn = "x"
	case domain.OTurn:
		v.Turn = "o"
	}
	humanToMove := st.State == domain.XTurn && !pending
	for i, c := range g.Board {
		v.Cells[i] = CellView{
			Index:    i,
			Mark:     c.String(),
			Winning:  st.Winner != domain.Empty && st.Line.Contains(i),
			Playable: humanToMove && c == domain.Empty,
		}
	}
	return v
}

// View projects the game state for rendering.
func (gs GameState) View() View {
	return NewView(gs.ID, gs.Game, gs.Pending)
}
