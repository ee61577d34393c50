package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chess-opponent/engine"
	"chess-opponent/rules"
	"chess-opponent/rules/backends"
)

const maxBodyBytes = 1 << 16

var errBadRequest = errors.New("server: bad request")

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and writes it as JSON.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGameOver), errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrEngineThinking):
		return http.StatusConflict
	case errors.Is(err, ErrPoolSaturated):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrSearchTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, errBadRequest),
		errors.Is(err, rules.ErrBadFEN),
		errors.Is(err, rules.ErrBadMove),
		errors.Is(err, rules.ErrIllegalMove),
		errors.Is(err, engine.ErrUnknownTier):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) game(r *http.Request) (*Game, error) {
	return s.games.Get(chi.URLParam(r, "id"))
}

// position builds a position from fen on the named backend. An empty fen
// or "startpos" is the initial position.
func (s *Server) position(fen, backend string) (rules.Position, string, error) {
	if backend == "" {
		backend = s.config.Backend
	}
	b, err := backends.Lookup(backend)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if fen == "" || fen == "startpos" {
		return b.StartPosition(), b.Name(), nil
	}
	pos, err := b.FromFEN(fen)
	return pos, b.Name(), err
}

// depthFor resolves the search depth of a stateless request.
func (s *Server) depthFor(req SearchRequest) (int, error) {
	switch {
	case req.Depth < 0 || req.Depth > s.config.MaxDepth:
		return 0, fmt.Errorf("%w: depth must be between 1 and %d", errBadRequest, s.config.MaxDepth)
	case req.Depth > 0:
		return req.Depth, nil
	case req.Tier != "":
		t, err := engine.ParseTier(req.Tier)
		if err != nil {
			return 0, err
		}
		if d := engine.DepthFor(t); d <= s.config.MaxDepth {
			return d, nil
		}
		return 0, fmt.Errorf("%w: tier %s exceeds the depth limit", errBadRequest, t)
	}
	return engine.DepthFor(s.config.DefaultTier), nil
}

func (s *Server) selectorFor(perspective string) (engine.Selector, error) {
	sel := s.selector
	if perspective == "" {
		return sel, nil
	}
	p, err := engine.ParsePerspective(perspective)
	if err != nil {
		return sel, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	sel.Perspective = p
	return sel, nil
}

// runEngine makes the engine move in g. pending is true when the search
// outlived the request; its move is applied and pushed to watchers when
// it finishes.
func (s *Server) runEngine(ctx context.Context, g *Game) (pending bool, err error) {
	pos, tier, err := g.beginSearch()
	if err != nil {
		return false, err
	}
	finish := func(res engine.Result) {
		g.finishSearch(res)
		s.hub.Publish(g.ID, "state", g.View())
		s.log.Debug().Str("game", g.ID).Str("move", res.Move.String()).Int32("score", res.Score).Msg("engine moved")
	}

	res, err := s.search(ctx, func() engine.Result { return s.selector.RunTier(pos, tier) }, finish)
	switch {
	case errors.Is(err, ErrSearchTimeout):
		return true, nil
	case err != nil:
		g.abortSearch()
		return false, err
	}
	finish(res)
	return false, nil
}

// handleHealth handles GET /api/healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Backends: backends.Names()})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{Pool: s.pool.Stats(), Games: s.games.Len()})
}

// handleDifficulties handles GET /api/difficulties
func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	resp := DifficultiesResponse{Default: s.config.DefaultTier}
	for _, t := range engine.Tiers() {
		resp.Tiers = append(resp.Tiers, DifficultyDTO{Tier: t, Label: t.Label(), Depth: t.Depth()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateGame handles POST /api/games
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	tier := s.config.DefaultTier
	if req.Tier != "" {
		t, err := engine.ParseTier(req.Tier)
		if err != nil {
			writeError(w, err)
			return
		}
		tier = t
	}
	engineColor := rules.Black
	if req.EngineColor != "" {
		c, err := rules.ParseColor(req.EngineColor)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		engineColor = c
	}
	pos, backend, err := s.position(req.FEN, req.Backend)
	if err != nil {
		writeError(w, err)
		return
	}

	g := s.games.Create(backend, pos, tier, engineColor)
	s.log.Info().Str("game", g.ID).Str("tier", tier.String()).Str("engine", engineColor.String()).Msg("game created")

	resp := GameResponse{}
	if g.EngineToMove() {
		resp.Pending, err = s.runEngine(r.Context(), g)
		if err != nil {
			resp.EngineError = err.Error()
		}
	}
	resp.Game = g.View()
	writeJSON(w, http.StatusCreated, resp)
}

// handleListGames handles GET /api/games
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := s.games.List()
	views := make([]GameView, len(games))
	for i, g := range games {
		views[i] = g.View()
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetGame handles GET /api/games/{id}
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.game(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g.View())
}

// handleMove handles POST /api/games/{id}/moves
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	g, err := s.game(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req MoveRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := g.PlayHuman(req.Move); err != nil {
		writeError(w, err)
		return
	}
	s.hub.Publish(g.ID, "state", g.View())

	resp := GameResponse{}
	if g.EngineToMove() {
		resp.Pending, err = s.runEngine(r.Context(), g)
		if err != nil {
			resp.EngineError = err.Error()
		}
	}
	resp.Game = g.View()
	writeJSON(w, http.StatusOK, resp)
}

// handleEngineMove handles POST /api/games/{id}/engine-move. The engine
// plays whichever side is to move.
func (s *Server) handleEngineMove(w http.ResponseWriter, r *http.Request) {
	g, err := s.game(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pending, err := s.runEngine(r.Context(), g)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if pending {
		status = http.StatusAccepted
	}
	writeJSON(w, status, GameResponse{Game: g.View(), Pending: pending})
}

// handleDifficulty handles PUT /api/games/{id}/difficulty
func (s *Server) handleDifficulty(w http.ResponseWriter, r *http.Request) {
	g, err := s.game(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req DifficultyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := engine.ParseTier(req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	g.SetTier(t)
	view := g.View()
	s.hub.Publish(g.ID, "state", view)
	writeJSON(w, http.StatusOK, view)
}

// handleSelect handles POST /api/select
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	pos, _, err := s.position(req.FEN, req.Backend)
	if err != nil {
		writeError(w, err)
		return
	}
	depth, err := s.depthFor(req)
	if err != nil {
		writeError(w, err)
		return
	}
	sel, err := s.selectorFor(req.Perspective)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.search(r.Context(), func() engine.Result { return sel.Run(pos, depth) }, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectResponse(res, pos.Status().String()))
}

// handleEvaluate handles POST /api/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	pos, _, err := s.position(req.FEN, req.Backend)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{
		Score:      engine.Evaluate(pos),
		Status:     pos.Status().String(),
		SideToMove: pos.SideToMove().String(),
	})
}

// handleAnalyze handles POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	pos, _, err := s.position(req.FEN, req.Backend)
	if err != nil {
		writeError(w, err)
		return
	}
	depth, err := s.depthFor(req)
	if err != nil {
		writeError(w, err)
		return
	}
	sel, err := s.selectorFor(req.Perspective)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.search(r.Context(), func() engine.Result { return sel.Run(pos, depth) }, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := AnalyzeResponse{Depth: depth, Moves: []ScoredMoveDTO{}}
	if res.Found {
		resp.Best = res.Move.String()
	}
	for _, sm := range res.Ranked() {
		resp.Moves = append(resp.Moves, ScoredMoveDTO{Move: sm.Move.String(), Score: sm.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWatch handles GET /ws/games/{id}
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	g, err := s.game(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.hub.Serve(w, r, g)
}
