package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"chess-opponent/engine"
	"chess-opponent/rules"
	"chess-opponent/rules/backends"
)

func main() {
	uciLoop(os.Stdin, os.Stdout)
}

// uciState is everything a UCI session remembers between commands.
type uciState struct {
	out        io.Writer
	backend    rules.Backend
	pos        rules.Position
	tier       engine.Tier
	selector   engine.Selector
	printStats bool
}

func newUCIState(out io.Writer) *uciState {
	b := backends.MustLookup(backends.Default)
	return &uciState{
		out:      out,
		backend:  b,
		pos:      b.StartPosition(),
		tier:     engine.DefaultTier,
		selector: engine.Selector{Perspective: engine.PerspectiveSideToMove},
	}
}

func (u *uciState) println(a ...any) { fmt.Fprintln(u.out, a...) }

func uciLoop(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	u := newUCIState(out)

	for scanner.Scan() {
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 { // ignore blank lines
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			u.println("id name Chess Opponent")
			u.println("id author chess-opponent")
			u.println("option name Difficulty type combo default", engine.DefaultTier, tierVars())
			u.println("option name Backend type combo default", backends.Default, "var", strings.Join(backends.Names(), " var "))
			u.println("option name Perspective type combo default side-to-move var side-to-move var white")
			u.println("uciok")
		case "isready":
			u.println("readyok")
		case "ucinewgame":
			u.pos = u.backend.StartPosition()
		case "quit":
			return
		case "stop":
			// Searches run to completion; there is nothing to interrupt.
		case "cutstats":
			u.printStats = true
		case "go":
			u.goCommand(tokens[1:])
		case "position":
			u.positionCommand(tokens[1:])
		case "setoption":
			u.setOption(tokens[1:])
		case "eval":
			u.println("info string eval", engine.Evaluate(u.pos), "status", u.pos.Status())
		case "d":
			u.println("info string fen", u.pos.FEN())
			u.println("info string side", u.pos.SideToMove(), "status", u.pos.Status(), "moves", len(u.pos.LegalMoves()))
			u.println("info string backend", u.backend.Name(), "difficulty", u.tier, "perspective", u.selector.Perspective)
		default:
			u.println("info string Unknown command", tokens[0])
		}
	}
}

func tierVars() string {
	var sb strings.Builder
	for i, t := range engine.Tiers() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("var ")
		sb.WriteString(t.String())
	}
	return sb.String()
}

func (u *uciState) goCommand(args []string) {
	depth := u.tier.Depth()
	for i := 0; i < len(args); i++ {
		switch strings.ToLower(args[i]) {
		case "depth":
			if i+1 >= len(args) {
				u.println("info string Malformed go command option depth")
				continue
			}
			i++
			d, err := strconv.Atoi(args[i])
			if err != nil || d < 1 {
				u.println("info string Malformed go command option; could not convert depth")
				continue
			}
			depth = d
		case "wtime", "btime", "winc", "binc", "movestogo", "movetime", "nodes":
			// No time management: depth is the only control.
			i++
		case "infinite":
		default:
			u.println("info string Unknown go subcommand", args[i])
		}
	}

	res := u.selector.Run(u.pos, depth)
	if !res.Found {
		u.println("info string no legal moves, status", u.pos.Status())
		u.println("bestmove 0000")
		return
	}
	u.println(engine.InfoLine(res))
	if u.printStats {
		for _, l := range res.Stats.InfoLines() {
			u.println(l)
		}
		u.printStats = false
	}
	u.println("bestmove", res.Move)
}

func (u *uciState) positionCommand(args []string) {
	if len(args) == 0 {
		u.println("info string Malformed position command")
		return
	}

	var pos rules.Position
	rest := args[1:]
	switch strings.ToLower(args[0]) {
	case "startpos":
		pos = u.backend.StartPosition()
	case "fen":
		end := len(rest)
		for i, tok := range rest {
			if strings.ToLower(tok) == "moves" {
				end = i
				break
			}
		}
		if end == 0 {
			u.println("info string Invalid fen position")
			return
		}
		p, err := u.backend.FromFEN(strings.Join(rest[:end], " "))
		if err != nil {
			u.println("info string Invalid fen position:", err)
			return
		}
		pos, rest = p, rest[end:]
	default:
		u.println("info string Invalid position subcommand")
		return
	}

	if len(rest) > 0 && strings.ToLower(rest[0]) == "moves" {
		for _, s := range rest[1:] {
			next, _, err := rules.Play(pos, s)
			if err != nil {
				u.println("info string Move", s, "not found for position", pos.FEN())
				break
			}
			pos = next
		}
	}
	u.pos = pos
}

// setOption handles "setoption name <name> [value <value>]".
func (u *uciState) setOption(args []string) {
	var name, value []string
	target := &name
	for _, tok := range args {
		switch strings.ToLower(tok) {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, tok)
		}
	}
	v := strings.Join(value, " ")

	switch strings.ToLower(strings.Join(name, " ")) {
	case "difficulty":
		t, err := engine.ParseTier(v)
		if err != nil {
			u.println("info string", err)
			return
		}
		u.tier = t
	case "backend":
		b, err := backends.Lookup(v)
		if err != nil {
			u.println("info string", err)
			return
		}
		// Carry the current position over; its history is lost.
		pos, err := b.FromFEN(u.pos.FEN())
		if err != nil {
			u.println("info string", err)
			return
		}
		u.backend, u.pos = b, pos
	case "perspective":
		p, err := engine.ParsePerspective(v)
		if err != nil {
			u.println("info string", err)
			return
		}
		u.selector.Perspective = p
	default:
		u.println("info string Unknown option", strings.Join(name, " "))
	}
}
