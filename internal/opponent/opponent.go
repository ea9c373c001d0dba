// Package opponent picks moves for the computer player.
//
// The selector is a greedy three-tier heuristic, not a search: take a cell
// that wins now, otherwise take a cell that stops the other side winning now,
// otherwise pick uniformly at random. Within a tier the lowest cell index wins,
// so only the random tier is nondeterministic.
package opponent

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/jaminalder/solo-tic-tac-toe/internal/domain"
)

// Tier identifies which rule produced a choice.
type Tier uint8

const (
	TierWin Tier = iota + 1
	TierBlock
	TierRandom
)

func (t Tier) String() string {
	switch t {
	case TierWin:
		return "win"
	case TierBlock:
		return "block"
	case TierRandom:
		return "random"
	default:
		return "unknown"
	}
}

// Choice is the cell picked by the selector.
type Choice struct {
	Cell int
	Tier Tier
}

// Selector chooses cells for the computer player. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a selector backed by src. A nil src seeds a PCG from the global generator.
func New(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

// Choose picks a cell for me on board b without modifying it.
func (s *Selector) Choose(b domain.Board, me domain.Cell) (Choice, error) {
	if me != domain.X && me != domain.O {
		return Choice{}, domain.ErrInvalidPlayer
	}
	if b.Status().Terminal() {
		return Choice{}, domain.ErrGameOver
	}

	if idx, ok := completingCell(b, me); ok {
		return Choice{Cell: idx, Tier: TierWin}, nil
	}
	if idx, ok := completingCell(b, me.Opponent()); ok {
		return Choice{Cell: idx, Tier: TierBlock}, nil
	}

	// non-terminal boards always have at least one empty cell
	free := slices.Collect(b.AvailableCells())
	s.mu.Lock()
	idx := free[s.rng.IntN(len(free))]
	s.mu.Unlock()
	return Choice{Cell: idx, Tier: TierRandom}, nil
}

// Move picks a cell for the side to move in g, places it, and returns the
// status after the placement.
func (s *Selector) Move(g *domain.Game) (Choice, domain.Status, error) {
	c, err := s.Choose(g.Board, g.Turn)
	if err != nil {
		return Choice{}, g.Status(), err
	}
	st, err := g.Place(c.Cell, g.Turn)
	if err != nil {
		return Choice{}, st, err
	}
	return c, st, nil
}

// completingCell returns the lowest empty cell that would give side a line.
func completingCell(b domain.Board, side domain.Cell) (int, bool) {
	for idx := range b.AvailableCells() {
		if b.With(idx, side).CheckWin(side) {
			return idx, true
		}
	}
	return 0, false
}
