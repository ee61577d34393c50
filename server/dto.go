package server

import (
	"chess-opponent/engine"
)

// CreateGameRequest starts a game. EngineColor defaults to black, so the
// human opens with White.
type CreateGameRequest struct {
	Tier        string `json:"tier,omitempty"`
	EngineColor string `json:"engine_color,omitempty"`
	FEN         string `json:"fen,omitempty"`
	Backend     string `json:"backend,omitempty"`
}

// MoveRequest is a human move in UCI notation ("e2e4", "e7e8q"). A
// promotion without a piece promotes to a queen.
type MoveRequest struct {
	Move string `json:"move"`
}

type DifficultyRequest struct {
	Tier string `json:"tier"`
}

// SearchRequest drives the stateless endpoints. Depth wins over Tier; with
// neither the server's default tier is used.
type SearchRequest struct {
	FEN         string `json:"fen"`
	Tier        string `json:"tier,omitempty"`
	Depth       int    `json:"depth,omitempty"`
	Perspective string `json:"perspective,omitempty"`
	Backend     string `json:"backend,omitempty"`
}

// GameResponse wraps a game view. Pending is set when the engine's reply
// is still being searched; it arrives on the websocket. EngineError says
// why the engine did not reply to an accepted human move.
type GameResponse struct {
	Game        GameView `json:"game"`
	Pending     bool     `json:"pending,omitempty"`
	EngineError string   `json:"engine_error,omitempty"`
}

type SelectResponse struct {
	Move      string   `json:"move,omitempty"`
	Found     bool     `json:"found"`
	Score     int32    `json:"score"`
	ScoreUCI  string   `json:"score_uci"`
	Depth     int      `json:"depth"`
	PV        []string `json:"pv"`
	Nodes     uint64   `json:"nodes"`
	Leaves    uint64   `json:"leaves"`
	Cutoffs   uint64   `json:"cutoffs"`
	ElapsedMs float64  `json:"elapsed_ms"`
	Status    string   `json:"status"`
}

type EvaluateResponse struct {
	Score      int32  `json:"score"`
	Status     string `json:"status"`
	SideToMove string `json:"side_to_move"`
}

type ScoredMoveDTO struct {
	Move  string `json:"move"`
	Score int32  `json:"score"`
}

// AnalyzeResponse lists every root move best-first for the side to move.
// Scores are White-relative.
type AnalyzeResponse struct {
	Depth int             `json:"depth"`
	Best  string          `json:"best,omitempty"`
	Moves []ScoredMoveDTO `json:"moves"`
}

type DifficultyDTO struct {
	Tier  engine.Tier `json:"tier"`
	Label string      `json:"label"`
	Depth int         `json:"depth"`
}

type DifficultiesResponse struct {
	Default engine.Tier     `json:"default"`
	Tiers   []DifficultyDTO `json:"tiers"`
}

type HealthResponse struct {
	Status   string   `json:"status"`
	Backends []string `json:"backends"`
}

type StatsResponse struct {
	Pool  PoolStats `json:"pool"`
	Games int       `json:"games"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func selectResponse(res engine.Result, status string) SelectResponse {
	resp := SelectResponse{
		Found:     res.Found,
		Score:     res.Score,
		ScoreUCI:  engine.MateOrCPScore(res.MoverScore(), len(res.PV.Moves)),
		Depth:     res.Depth,
		PV:        moveStrings(res.PV.Moves),
		Nodes:     res.Stats.Nodes,
		Leaves:    res.Stats.Leaves,
		Cutoffs:   res.Stats.Cutoffs,
		ElapsedMs: float64(res.Elapsed.Microseconds()) / 1000,
		Status:    status,
	}
	if res.Found {
		resp.Move = res.Move.String()
	}
	return resp
}
