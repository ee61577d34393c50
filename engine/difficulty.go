package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tier is a named skill level. Each tier fixes the search depth.
type Tier uint8

const (
	Beginner Tier = iota + 1
	Intermediate
	Advanced
	Expert
	Master
)

// DefaultTier is used when a game does not choose one.
const DefaultTier = Intermediate

var ErrUnknownTier = errors.New("engine: unknown difficulty tier")

type tierInfo struct {
	name  string
	label string
	depth int
}

var tierTable = map[Tier]tierInfo{
	Beginner:     {"beginner", "Novice", 1},
	Intermediate: {"intermediate", "Student", 2},
	Advanced:     {"advanced", "Scholar", 3},
	Expert:       {"expert", "Master", 4},
	Master:       {"master", "Grandmaster", 5},
}

// Tiers lists every tier from weakest to strongest.
func Tiers() []Tier {
	return []Tier{Beginner, Intermediate, Advanced, Expert, Master}
}

// DepthFor returns the search depth of t. An unknown tier is a programming
// error and panics.
func DepthFor(t Tier) int {
	info, ok := tierTable[t]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnknownTier, uint8(t)))
	}
	return info.depth
}

// Depth is DepthFor(t).
func (t Tier) Depth() int { return DepthFor(t) }

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	_, ok := tierTable[t]
	return ok
}

func (t Tier) String() string {
	if info, ok := tierTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Label is the display name shown to players.
func (t Tier) Label() string {
	if info, ok := tierTable[t]; ok {
		return info.label
	}
	return t.String()
}

// ParseTier accepts a tier name, its display label or its depth, in any
// case. Names win over labels, so "master" is Master and not the tier
// labelled "Master". Input from outside the process goes through here, so
// unknown values are an error rather than a panic.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	matchers := []func(tierInfo) bool{
		func(info tierInfo) bool { return s == info.name },
		func(info tierInfo) bool { return s == strings.ToLower(info.label) },
		func(info tierInfo) bool { return s == strconv.Itoa(info.depth) },
	}
	for _, match := range matchers {
		for _, t := range Tiers() {
			if match(tierTable[t]) {
				return t, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTier, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
