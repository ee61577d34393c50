package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	freeQueenFEN = "4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1"
	backRankFEN  = "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1"
	stalemateFEN = "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"
	foolsMateFEN = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
)

func newTestServer(t *testing.T, configure func(*Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SearchWorkers = 2
	if configure != nil {
		configure(&cfg)
	}
	s, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

// call sends body as JSON and decodes the response into out when out is
// not nil. It returns the status code.
func call(t *testing.T, method, url string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createGame(t *testing.T, ts *httptest.Server, req CreateGameRequest) GameResponse {
	t.Helper()
	var resp GameResponse
	if code := call(t, "POST", ts.URL+"/api/games", req, &resp); code != http.StatusCreated {
		t.Fatalf("create game: status %d", code)
	}
	return resp
}

func TestHealthAndDifficulties(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var health HealthResponse
	if code := call(t, "GET", ts.URL+"/api/healthz", nil, &health); code != http.StatusOK {
		t.Fatalf("healthz status %d", code)
	}
	if health.Status != "ok" || len(health.Backends) != 3 {
		t.Errorf("health = %+v", health)
	}

	var diff DifficultiesResponse
	call(t, "GET", ts.URL+"/api/difficulties", nil, &diff)
	if diff.Default.String() != "intermediate" || len(diff.Tiers) != 5 {
		t.Fatalf("difficulties = %+v", diff)
	}
	if last := diff.Tiers[4]; last.Label != "Grandmaster" || last.Depth != 5 {
		t.Errorf("master tier = %+v", last)
	}
}

func TestCreateGameDefaults(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := createGame(t, ts, CreateGameRequest{})
	g := resp.Game
	if g.EngineColor != "black" || g.SideToMove != "white" || g.Tier.String() != "intermediate" {
		t.Errorf("game = %+v", g)
	}
	if g.Status != "ongoing" || g.GameOver || len(g.LegalMoves) != 20 || len(g.History) != 0 {
		t.Errorf("game = %+v", g)
	}
}

func TestEngineOpensWhenItPlaysWhite(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := createGame(t, ts, CreateGameRequest{EngineColor: "white", Tier: "beginner"})
	g := resp.Game
	if len(g.History) != 1 || !g.History[0].ByEngine || g.History[0].Move != "b1a3" {
		t.Fatalf("history = %+v", g.History)
	}
	if g.SideToMove != "black" || g.Thinking {
		t.Errorf("game = %+v", g)
	}
}

func TestHumanMoveGetsAReply(t *testing.T) {
	_, ts := newTestServer(t, nil)
	id := createGame(t, ts, CreateGameRequest{Tier: "novice"}).Game.ID

	var resp GameResponse
	if code := call(t, "POST", ts.URL+"/api/games/"+id+"/moves", MoveRequest{Move: "e2e4"}, &resp); code != http.StatusOK {
		t.Fatalf("move status %d", code)
	}
	h := resp.Game.History
	if len(h) != 2 || h[0].Move != "e2e4" || h[0].ByEngine || !h[1].ByEngine || h[1].Color != "black" {
		t.Fatalf("history = %+v", h)
	}
	if h[1].Score == nil || h[1].Depth != 1 || h[1].Nodes == 0 {
		t.Errorf("engine record = %+v", h[1])
	}
	if resp.Game.SideToMove != "white" || resp.EngineError != "" {
		t.Errorf("response = %+v", resp)
	}

	var got GameView
	call(t, "GET", ts.URL+"/api/games/"+id, nil, &got)
	if len(got.History) != 2 {
		t.Errorf("stored history = %+v", got.History)
	}
}

func TestMoveErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)
	id := createGame(t, ts, CreateGameRequest{}).Game.ID
	over := createGame(t, ts, CreateGameRequest{FEN: stalemateFEN, EngineColor: "white"}).Game.ID

	tests := []struct {
		name string
		url  string
		body any
		want int
	}{
		{"illegal", "/api/games/" + id + "/moves", MoveRequest{Move: "e2e5"}, http.StatusBadRequest},
		{"garbage", "/api/games/" + id + "/moves", MoveRequest{Move: "hello"}, http.StatusBadRequest},
		{"bad json", "/api/games/" + id + "/moves", "not an object", http.StatusBadRequest},
		{"unknown game", "/api/games/00000000-0000-0000-0000-000000000000/moves", MoveRequest{Move: "e2e4"}, http.StatusNotFound},
		{"not a uuid", "/api/games/abc/moves", MoveRequest{Move: "e2e4"}, http.StatusNotFound},
		{"game over", "/api/games/" + over + "/moves", MoveRequest{Move: "h8g8"}, http.StatusConflict},
		{"engine move on finished game", "/api/games/" + over + "/engine-move", nil, http.StatusConflict},
	}
	for _, tt := range tests {
		var e ErrorResponse
		if code := call(t, "POST", ts.URL+tt.url, tt.body, &e); code != tt.want {
			t.Errorf("%s: status %d, want %d (%s)", tt.name, code, tt.want, e.Error)
		}
		if e.Error == "" {
			t.Errorf("%s: empty error body", tt.name)
		}
	}
}

func TestCreateGameRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t, nil)
	for _, req := range []CreateGameRequest{
		{Tier: "godlike"},
		{EngineColor: "green"},
		{FEN: "8/8/8 w - - 0 1"},
		{Backend: "stockfish"},
	} {
		if code := call(t, "POST", ts.URL+"/api/games", req, nil); code != http.StatusBadRequest {
			t.Errorf("%+v: status %d, want 400", req, code)
		}
	}
}

func TestEngineDeliversMate(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := createGame(t, ts, CreateGameRequest{FEN: backRankFEN, EngineColor: "white", Tier: "beginner", Backend: "dragon"})
	g := resp.Game
	if g.Backend != "dragon" || len(g.History) != 1 || g.History[0].Move != "a1a8" {
		t.Fatalf("game = %+v", g)
	}
	if g.Status != "checkmate" || !g.GameOver || g.Winner != "white" || len(g.LegalMoves) != 0 {
		t.Errorf("game = %+v", g)
	}
}

func TestForcedEngineMoveAndDifficulty(t *testing.T) {
	_, ts := newTestServer(t, nil)
	id := createGame(t, ts, CreateGameRequest{FEN: freeQueenFEN}).Game.ID

	var view GameView
	if code := call(t, "PUT", ts.URL+"/api/games/"+id+"/difficulty", DifficultyRequest{Tier: "scholar"}, &view); code != http.StatusOK {
		t.Fatalf("difficulty status %d", code)
	}
	if view.Tier.String() != "advanced" || view.TierLabel != "Scholar" {
		t.Errorf("view = %+v", view)
	}
	if code := call(t, "PUT", ts.URL+"/api/games/"+id+"/difficulty", DifficultyRequest{Tier: "godlike"}, nil); code != http.StatusBadRequest {
		t.Errorf("bad tier status %d", code)
	}

	// The engine plays the human's side when asked to.
	var resp GameResponse
	if code := call(t, "POST", ts.URL+"/api/games/"+id+"/engine-move", nil, &resp); code != http.StatusOK {
		t.Fatalf("engine-move status %d", code)
	}
	if h := resp.Game.History; len(h) != 1 || h[0].Move != "e4d5" || h[0].Depth != 3 {
		t.Errorf("history = %+v", h)
	}
}

func TestListGamesAndStats(t *testing.T) {
	_, ts := newTestServer(t, nil)
	first := createGame(t, ts, CreateGameRequest{}).Game.ID
	second := createGame(t, ts, CreateGameRequest{}).Game.ID

	var list []GameView
	call(t, "GET", ts.URL+"/api/games", nil, &list)
	if len(list) != 2 || list[0].ID != first || list[1].ID != second {
		t.Errorf("list = %+v", list)
	}

	var stats StatsResponse
	call(t, "GET", ts.URL+"/api/stats", nil, &stats)
	if stats.Games != 2 || stats.Pool.Workers != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSelectEndpoint(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var resp SelectResponse
	if code := call(t, "POST", ts.URL+"/api/select", SearchRequest{FEN: freeQueenFEN, Tier: "beginner"}, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Move != "e4d5" || !resp.Found || resp.Score != 100 || resp.ScoreUCI != "cp 100" || resp.Depth != 1 {
		t.Errorf("select = %+v", resp)
	}

	resp = SelectResponse{}
	call(t, "POST", ts.URL+"/api/select", SearchRequest{FEN: stalemateFEN}, &resp)
	if resp.Found || resp.Move != "" || resp.Status != "stalemate" {
		t.Errorf("stalemate select = %+v", resp)
	}

	for _, req := range []SearchRequest{
		{FEN: freeQueenFEN, Depth: 9},
		{FEN: freeQueenFEN, Depth: -1},
		{FEN: "garbage"},
		{FEN: freeQueenFEN, Perspective: "black"},
		{FEN: freeQueenFEN, Tier: "godlike"},
	} {
		if code := call(t, "POST", ts.URL+"/api/select", req, nil); code != http.StatusBadRequest {
			t.Errorf("%+v: status %d, want 400", req, code)
		}
	}
}

func TestSelectPerspective(t *testing.T) {
	_, ts := newTestServer(t, nil)
	const fen = "4k3/8/8/4p3/3Q4/8/8/4K3 b - - 0 1"

	var negamax, fixed SelectResponse
	call(t, "POST", ts.URL+"/api/select", SearchRequest{FEN: fen, Depth: 1}, &negamax)
	call(t, "POST", ts.URL+"/api/select", SearchRequest{FEN: fen, Depth: 1, Perspective: "white"}, &fixed)
	if negamax.Move != "e5d4" || negamax.Score != -100 {
		t.Errorf("side to move = %+v", negamax)
	}
	if fixed.Move == "e5d4" || fixed.Score != 800 {
		t.Errorf("white perspective = %+v", fixed)
	}
}

func TestEvaluateAndAnalyze(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var ev EvaluateResponse
	call(t, "POST", ts.URL+"/api/evaluate", SearchRequest{FEN: foolsMateFEN, Backend: "notnil"}, &ev)
	if ev.Score != -2147483647 || ev.Status != "checkmate" || ev.SideToMove != "white" {
		t.Errorf("evaluate = %+v", ev)
	}

	var an AnalyzeResponse
	if code := call(t, "POST", ts.URL+"/api/analyze", SearchRequest{FEN: freeQueenFEN, Depth: 1}, &an); code != http.StatusOK {
		t.Fatalf("analyze status %d", code)
	}
	if an.Best != "e4d5" || len(an.Moves) == 0 || an.Moves[0].Move != "e4d5" || an.Moves[0].Score != 100 {
		t.Errorf("analyze = %+v", an)
	}
	for i := 1; i < len(an.Moves); i++ {
		if an.Moves[i].Score > an.Moves[i-1].Score {
			t.Fatalf("moves not ranked: %+v", an.Moves)
		}
	}
}

func TestSelectWhenPoolIsSaturated(t *testing.T) {
	s, ts := newTestServer(t, func(c *Config) {
		c.SearchWorkers = 1
		c.QueueTimeout = 20 * time.Millisecond
	})
	if !s.Pool().TryAcquire() {
		t.Fatal("could not take the only slot")
	}
	defer s.Pool().Release()

	var e ErrorResponse
	if code := call(t, "POST", ts.URL+"/api/select", SearchRequest{FEN: freeQueenFEN}, &e); code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503 (%s)", code, e.Error)
	}
}

func TestWebSocketPushesMoves(t *testing.T) {
	_, ts := newTestServer(t, nil)
	id := createGame(t, ts, CreateGameRequest{Tier: "beginner"}).Game.ID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	read := func() GameView {
		t.Helper()
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != "state" {
			t.Fatalf("message type %q", msg.Type)
		}
		var v GameView
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			t.Fatal(err)
		}
		return v
	}

	if v := read(); v.ID != id || len(v.History) != 0 {
		t.Fatalf("first frame = %+v", v)
	}

	call(t, "POST", ts.URL+"/api/games/"+id+"/moves", MoveRequest{Move: "d2d4"}, nil)
	if v := read(); len(v.History) != 1 || v.History[0].Move != "d2d4" {
		t.Errorf("after human move = %+v", v.History)
	}
	if v := read(); len(v.History) != 2 || !v.History[1].ByEngine {
		t.Errorf("after engine move = %+v", v.History)
	}
}

func TestWebSocketUnknownGame(t *testing.T) {
	_, ts := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/00000000-0000-0000-0000-000000000000"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded for an unknown game")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v", resp)
	}
}

const kiwipeteFEN = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

// waitForEngine polls the game until the engine is no longer thinking.
func waitForEngine(t *testing.T, ts *httptest.Server, id string) GameView {
	t.Helper()
	deadline := time.Now().Add(3 * time.Minute)
	for {
		var v GameView
		call(t, "GET", ts.URL+"/api/games/"+id, nil, &v)
		if !v.Thinking {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("engine still thinking: %+v", v)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLateEngineMoveIsAppliedAndPushed(t *testing.T) {
	_, ts := newTestServer(t, func(c *Config) { c.SearchTimeout = time.Millisecond })
	id := createGame(t, ts, CreateGameRequest{FEN: kiwipeteFEN, Tier: "expert"}).Game.ID

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Minute))
	frame := func() GameView {
		t.Helper()
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		var v GameView
		if err := json.Unmarshal(msg.Payload, &v); err != nil {
			t.Fatal(err)
		}
		return v
	}
	frame()

	var resp GameResponse
	if code := call(t, "POST", ts.URL+"/api/games/"+id+"/moves", MoveRequest{Move: "e1g1"}, &resp); code != http.StatusOK {
		t.Fatalf("move status %d", code)
	}
	if !resp.Pending || !resp.Game.Thinking || len(resp.Game.History) != 1 || resp.EngineError != "" {
		t.Fatalf("move response = %+v", resp)
	}

	var e ErrorResponse
	if code := call(t, "POST", ts.URL+"/api/games/"+id+"/engine-move", nil, &e); code != http.StatusConflict {
		t.Errorf("engine-move while thinking: status %d (%s)", code, e.Error)
	}
	if !strings.Contains(e.Error, "thinking") {
		t.Errorf("error = %q", e.Error)
	}
	if code := call(t, "POST", ts.URL+"/api/games/"+id+"/moves", MoveRequest{Move: "a2a3"}, nil); code != http.StatusConflict {
		t.Errorf("move while thinking: status %d", code)
	}

	v := waitForEngine(t, ts, id)
	if len(v.History) != 2 || v.SideToMove != "white" {
		t.Fatalf("after late move = %+v", v)
	}
	if rec := v.History[1]; !rec.ByEngine || rec.Color != "black" || rec.Depth != 4 || rec.Score == nil {
		t.Errorf("engine record = %+v", rec)
	}

	if f := frame(); len(f.History) != 1 {
		t.Errorf("human move frame = %+v", f.History)
	}
	if f := frame(); len(f.History) != 2 || f.Thinking {
		t.Errorf("late move frame = %+v", f)
	}

	// A forced engine move that outlives the request is accepted, not done.
	call(t, "PUT", ts.URL+"/api/games/"+id+"/difficulty", DifficultyRequest{Tier: "advanced"}, nil)
	resp = GameResponse{}
	if code := call(t, "POST", ts.URL+"/api/games/"+id+"/engine-move", nil, &resp); code != http.StatusAccepted {
		t.Fatalf("engine-move status %d, want 202", code)
	}
	if !resp.Pending || !resp.Game.Thinking {
		t.Errorf("engine-move response = %+v", resp)
	}
	if v := waitForEngine(t, ts, id); len(v.History) != 3 || v.SideToMove != "black" || v.History[2].Depth != 3 {
		t.Errorf("after forced move = %+v", v.History)
	}
}
