package rules

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// EPDRecord is one line of an Extended Position Description file.
type EPDRecord struct {
	Line int
	FEN  string
	ID   string
	// BestMoves and AvoidMoves hold the bm/am operands in UCI notation.
	BestMoves  []string
	AvoidMoves []string
	Ops        map[string]string
}

// ParseEPD reads EPD lines of the form
//
//	<placement> <side> <castling> <ep> opcode operand...; opcode operand...;
//
// Blank lines and lines starting with '#' are skipped. hmvc and fmvn ops
// become the FEN move counters.
func ParseEPD(r io.Reader) ([]EPDRecord, error) {
	var out []EPDRecord
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parseEPDLine(line)
		if err != nil {
			return nil, fmt.Errorf("epd line %d: %w", lineNo, err)
		}
		rec.Line = lineNo
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseEPDLine(line string) (EPDRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return EPDRecord{}, fmt.Errorf("%w: too few fields", ErrBadFEN)
	}
	rec := EPDRecord{Ops: make(map[string]string)}

	rest := strings.TrimSpace(strings.Join(fields[4:], " "))
	for _, op := range strings.Split(rest, ";") {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		code, operand, _ := strings.Cut(op, " ")
		operand = strings.Trim(strings.TrimSpace(operand), `"`)
		rec.Ops[code] = operand
		switch code {
		case "id":
			rec.ID = operand
		case "bm":
			rec.BestMoves = strings.Fields(operand)
		case "am":
			rec.AvoidMoves = strings.Fields(operand)
		}
	}

	halfmove, fullmove := "0", "1"
	if v, ok := rec.Ops["hmvc"]; ok {
		halfmove = v
	}
	if v, ok := rec.Ops["fmvn"]; ok {
		fullmove = v
	}
	fen, err := NormalizeFEN(strings.Join(append(fields[:4:4], halfmove, fullmove), " "))
	if err != nil {
		return EPDRecord{}, err
	}
	rec.FEN = fen
	return rec, nil
}
