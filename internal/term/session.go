// Package term is a terminal front-end for the solo game: a line-oriented
// REPL over the same domain and opponent packages the web UI uses.
package term

import (
	"context"
	"time"

	"github.com/jaminalder/solo-tic-tac-toe/internal/app"
	"github.com/jaminalder/solo-tic-tac-toe/internal/domain"
	"github.com/jaminalder/solo-tic-tac-toe/internal/opponent"
)

// Session owns one game played in the terminal.
type Session struct {
	game  domain.Game
	sel   *opponent.Selector
	delay time.Duration
}

// NewSession starts a fresh game. A nil selector gets a randomly seeded one.
func NewSession(sel *opponent.Selector, delay time.Duration) *Session {
	if sel == nil {
		sel = opponent.New(nil)
	}
	return &Session{game: domain.New(), sel: sel, delay: delay}
}

// Place puts the human's mark on cell (0..8).
func (s *Session) Place(cell int) (domain.Status, error) {
	return s.game.Place(cell, app.Human)
}

// Reply waits out the configured delay and then plays the computer's move.
func (s *Session) Reply(ctx context.Context) (opponent.Choice, domain.Status, error) {
	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return opponent.Choice{}, s.game.Status(), ctx.Err()
		case <-t.C:
		}
	}
	return s.sel.Move(&s.game)
}

// Reset starts the game over.
func (s *Session) Reset() { s.game.Reset() }

// Status is the derived status of the current game.
func (s *Session) Status() domain.Status { return s.game.Status() }

// View projects the game the same way the browser does.
func (s *Session) View() app.View { return app.NewView("", s.game, false) }
