package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"chess-opponent/engine"
	"chess-opponent/rules"
)

var (
	ErrGameNotFound   = errors.New("server: game not found")
	ErrGameOver       = errors.New("server: game is over")
	ErrNotYourTurn    = errors.New("server: it is the engine's turn")
	ErrEngineThinking = errors.New("server: the engine is still thinking")
)

// MoveRecord is one played move.
type MoveRecord struct {
	Ply       int     `json:"ply"`
	Move      string  `json:"move"`
	Color     string  `json:"color"`
	ByEngine  bool    `json:"by_engine"`
	FEN       string  `json:"fen"`
	Score     *int32  `json:"score,omitempty"`
	Depth     int     `json:"depth,omitempty"`
	Nodes     uint64  `json:"nodes,omitempty"`
	ElapsedMs float64 `json:"elapsed_ms,omitempty"`
}

// Game is one game between a human and the engine. All fields behind mu
// change together.
type Game struct {
	ID        string
	Backend   string
	CreatedAt time.Time

	mu          sync.Mutex
	pos         rules.Position
	tier        engine.Tier
	engineColor rules.Color
	history     []MoveRecord
	thinking    bool
	updatedAt   time.Time
}

// GameView is the JSON shape of a game.
type GameView struct {
	ID          string       `json:"id"`
	Backend     string       `json:"backend"`
	FEN         string       `json:"fen"`
	SideToMove  string       `json:"side_to_move"`
	EngineColor string       `json:"engine_color"`
	Tier        engine.Tier  `json:"tier"`
	TierLabel   string       `json:"tier_label"`
	Status      string       `json:"status"`
	GameOver    bool         `json:"game_over"`
	Winner      string       `json:"winner,omitempty"`
	Thinking    bool         `json:"thinking"`
	LegalMoves  []string     `json:"legal_moves"`
	History     []MoveRecord `json:"history"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// View snapshots the game.
func (g *Game) View() GameView {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.pos.Status()
	v := GameView{
		ID:          g.ID,
		Backend:     g.Backend,
		FEN:         g.pos.FEN(),
		SideToMove:  g.pos.SideToMove().String(),
		EngineColor: g.engineColor.String(),
		Tier:        g.tier,
		TierLabel:   g.tier.Label(),
		Status:      st.String(),
		GameOver:    st.IsTerminal(),
		Thinking:    g.thinking,
		LegalMoves:  moveStrings(g.pos.LegalMoves()),
		History:     slices.Clone(g.history),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.updatedAt,
	}
	if st == rules.Checkmate {
		v.Winner = g.pos.SideToMove().Opponent().String()
	}
	if v.History == nil {
		v.History = []MoveRecord{}
	}
	return v
}

func moveStrings(moves []rules.Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.String()
	}
	return out
}

// EngineToMove reports whether the engine owes a reply.
func (g *Game) EngineToMove() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.thinking && g.pos.SideToMove() == g.engineColor && !g.pos.Status().IsTerminal()
}

// SetTier changes the difficulty for the engine's next move.
func (g *Game) SetTier(t engine.Tier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tier = t
	g.updatedAt = time.Now()
}

// PlayHuman applies a move given in UCI notation for the human side.
func (g *Game) PlayHuman(s string) (rules.Move, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.thinking:
		return rules.NullMove, ErrEngineThinking
	case g.pos.Status().IsTerminal():
		return rules.NullMove, ErrGameOver
	case g.pos.SideToMove() == g.engineColor:
		return rules.NullMove, ErrNotYourTurn
	}
	next, m, err := rules.Play(g.pos, s)
	if err != nil {
		return rules.NullMove, err
	}
	g.record(m, next, false, nil)
	return m, nil
}

// beginSearch marks the game as thinking and hands out the position to
// search.
func (g *Game) beginSearch() (rules.Position, engine.Tier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.thinking {
		return nil, 0, ErrEngineThinking
	}
	if g.pos.Status().IsTerminal() {
		return nil, 0, ErrGameOver
	}
	g.thinking = true
	return g.pos, g.tier, nil
}

// abortSearch undoes beginSearch when no search was started.
func (g *Game) abortSearch() {
	g.mu.Lock()
	g.thinking = false
	g.mu.Unlock()
}

// finishSearch plays the engine's move. The position cannot have changed
// since beginSearch because every other mutation waits for thinking to
// clear.
func (g *Game) finishSearch(res engine.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.thinking = false
	if !res.Found {
		return
	}
	g.record(res.Move, g.pos.Apply(res.Move), true, &res)
}

func (g *Game) record(m rules.Move, next rules.Position, byEngine bool, res *engine.Result) {
	rec := MoveRecord{
		Ply:      len(g.history) + 1,
		Move:     m.String(),
		Color:    g.pos.SideToMove().String(),
		ByEngine: byEngine,
		FEN:      next.FEN(),
	}
	if res != nil {
		score := res.Score
		rec.Score = &score
		rec.Depth = res.Depth
		rec.Nodes = res.Stats.Nodes
		rec.ElapsedMs = float64(res.Elapsed.Microseconds()) / 1000
	}
	g.history = append(g.history, rec)
	g.pos = next
	g.updatedAt = time.Now()
}

// GameStore keeps games in memory.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*Game
}

func NewGameStore() *GameStore {
	return &GameStore{games: make(map[string]*Game)}
}

// Create registers a new game starting at pos.
func (s *GameStore) Create(backend string, pos rules.Position, tier engine.Tier, engineColor rules.Color) *Game {
	now := time.Now()
	g := &Game{
		ID:          uuid.NewString(),
		Backend:     backend,
		CreatedAt:   now,
		pos:         pos,
		tier:        tier,
		engineColor: engineColor,
		updatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
	return g
}

// Get looks a game up by id.
func (s *GameStore) Get(id string) (*Game, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrGameNotFound, id)
	}
	return g, nil
}

// List returns every game, oldest first.
func (s *GameStore) List() []*Game {
	s.mu.RLock()
	out := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Game) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

// Len is the number of games.
func (s *GameStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}
