package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jaminalder/solo-tic-tac-toe/internal/domain"
	"github.com/jaminalder/solo-tic-tac-toe/internal/opponent"
	"github.com/jaminalder/solo-tic-tac-toe/internal/telemetry"
)

// Errors exposed by the service layer.
var (
	ErrNotFound   = errors.New("game not found")
	ErrNotAPlayer = errors.New("not a player")
)

// Seats of a solo game: the human always plays X, the computer O.
const (
	Human    = domain.X
	Computer = domain.O
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID    string
	Owner string
	Game  domain.Game
	// Epoch increments on every reset; a deferred computer move only applies
	// to the epoch it was scheduled in.
	Epoch   uint64
	Pending bool
	Created time.Time
	Updated time.Time
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send delivers b without blocking; it reports false when the buffer is full.
func (s *subscriber) send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- b:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Scheduler runs f once after d and returns a function that cancels it.
// Implementations must not call f synchronously.
type Scheduler func(d time.Duration, f func()) (cancel func() bool)

// AfterFunc is the default Scheduler, backed by time.AfterFunc.
func AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options configures a Service. Zero values get defaults.
type Options struct {
	Delay    time.Duration
	Selector *opponent.Selector
	Schedule Scheduler
	Renderer func(GameState) []byte
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
}

// Service owns every game, applies moves, schedules computer replies and
// fans rendered updates out to subscribers.
type Service struct {
	mu      sync.Mutex
	games   map[string]*GameState
	cancels map[string]func() bool
	subs    map[string]map[*subscriber]struct{}
	render  func(GameState) []byte

	delay    time.Duration
	selector *opponent.Selector
	schedule Scheduler
	log      *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewService creates a service with default options.
func NewService() *Service { return NewServiceWithOptions(Options{}) }

// NewServiceWithOptions creates a service from opts.
func NewServiceWithOptions(opts Options) *Service {
	if opts.Selector == nil {
		opts.Selector = opponent.New(nil)
	}
	if opts.Schedule == nil {
		opts.Schedule = AfterFunc
	}
	if opts.Renderer == nil {
		opts.Renderer = func(GameState) []byte { return nil }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		games:    make(map[string]*GameState),
		cancels:  make(map[string]func() bool),
		subs:     make(map[string]map[*subscriber]struct{}),
		render:   opts.Renderer,
		delay:    opts.Delay,
		selector: opts.Selector,
		schedule: opts.Schedule,
		log:      opts.Logger.With("component", "app"),
		metrics:  opts.Metrics,
		now:      time.Now,
	}
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new game. owner may be empty, in which
// case the first player to Join takes the seat.
func (s *Service) CreateGame(owner string) (*GameState, error) {
	s.mu.Lock()
	id := newGameID()
	now := s.now()
	gs := &GameState{ID: id, Owner: owner, Game: domain.New(), Created: now, Updated: now}
	s.games[id] = gs
	cp := *gs
	s.mu.Unlock()

	s.metrics.GameStarted(context.Background())
	s.log.Info("game created", "game_id", id)
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Join gives the human seat to playerID if it is free or already theirs;
// anyone else gets Empty and may only watch.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if playerID != "" && (gs.Owner == "" || gs.Owner == playerID) {
		gs.Owner = playerID
		side = Human
		gs.Updated = s.now()
	}
	cp := *gs
	return side, &cp, nil
}

// Play places the human's mark on cell and, if the game goes on, schedules
// the computer's reply after the configured delay.
func (s *Service) Play(id, playerID string, cell int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if playerID == "" || gs.Owner != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	// While the computer is thinking Turn is O, so this also rejects early clicks.
	st, err := gs.Game.Place(cell, Human)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = s.now()
	if !st.Terminal() {
		s.scheduleLocked(gs)
	}
	cp, payload, subs := s.snapshotLocked(gs)
	s.mu.Unlock()

	if st.Terminal() {
		s.finished(id, st)
	}
	s.fanOut(id, payload, subs)
	return &cp, nil
}

// Reset starts the game over ("play again"). Any pending computer move is
// cancelled and, should its timer already have fired, discarded by epoch.
func (s *Service) Reset(id, playerID string) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if playerID == "" || gs.Owner != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	s.cancelLocked(id)
	gs.Game.Reset()
	gs.Epoch++
	gs.Pending = false
	gs.Updated = s.now()
	cp, payload, subs := s.snapshotLocked(gs)
	s.mu.Unlock()

	s.metrics.GameStarted(context.Background())
	s.log.Debug("game reset", "game_id", id, "epoch", cp.Epoch)
	s.fanOut(id, payload, subs)
	return &cp, nil
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// Sweep drops games untouched for longer than maxIdle and returns how many it removed.
func (s *Service) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, gs := range s.games {
		if !gs.Updated.Before(cutoff) {
			continue
		}
		s.cancelLocked(id)
		for sub := range s.subs[id] {
			sub.close()
		}
		delete(s.subs, id)
		delete(s.games, id)
		removed++
	}
	s.mu.Unlock()

	if removed > 0 {
		s.log.Info("swept idle games", "count", removed)
	}
	return removed
}

func (s *Service) scheduleLocked(gs *GameState) {
	gs.Pending = true
	id, epoch := gs.ID, gs.Epoch
	s.cancels[id] = s.schedule(s.delay, func() { s.opponentMove(id, epoch) })
}

func (s *Service) cancelLocked(id string) {
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
}

// opponentMove is the deferred computer turn scheduled by Play.
func (s *Service) opponentMove(id string, epoch uint64) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok || gs.Epoch != epoch || !gs.Pending {
		s.mu.Unlock()
		s.log.Debug("discarding stale opponent move", "game_id", id, "epoch", epoch)
		return
	}
	delete(s.cancels, id)
	gs.Pending = false
	choice, st, err := s.selector.Move(&gs.Game)
	gs.Updated = s.now()
	_, payload, subs := s.snapshotLocked(gs)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("opponent move failed", "game_id", id, "error", err)
	} else {
		s.metrics.OpponentMoved(context.Background(), choice.Tier.String())
		s.log.Debug("opponent moved", "game_id", id, "cell", choice.Cell, "tier", choice.Tier.String())
		if st.Terminal() {
			s.finished(id, st)
		}
	}
	s.fanOut(id, payload, subs)
}

func (s *Service) finished(id string, st domain.Status) {
	s.metrics.GameFinished(context.Background(), st.State.String())
	s.log.Info("game finished", "game_id", id, "outcome", st.State.String())
}

func (s *Service) snapshotLocked(gs *GameState) (GameState, []byte, map[*subscriber]struct{}) {
	cp := *gs
	return cp, s.render(cp), s.copySubsLocked(gs.ID)
}

// fanOut delivers payload to subs, dropping subscribers too slow to keep up.
func (s *Service) fanOut(id string, payload []byte, subs map[*subscriber]struct{}) {
	var toDrop []*subscriber
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
