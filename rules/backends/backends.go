// Package backends maps backend names to rules implementations.
package backends

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"chess-opponent/rules"
	"chess-opponent/rules/dragon"
	"chess-opponent/rules/goose"
	"chess-opponent/rules/notnil"
)

// Default is the backend used when none is configured.
const Default = "goose"

var registry = map[string]rules.Backend{
	"goose":  goose.Backend{},
	"dragon": dragon.Backend{},
	"notnil": notnil.Backend{},
}

// Lookup returns the named backend; the empty name selects Default.
func Lookup(name string) (rules.Backend, error) {
	if name == "" {
		name = Default
	}
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("backends: unknown backend %q (have %v)", name, Names())
	}
	return b, nil
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) rules.Backend {
	b, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return b
}

// Names lists the registered backends in sorted order.
func Names() []string {
	names := maps.Keys(registry)
	slices.Sort(names)
	return names
}

// All returns every registered backend, sorted by name.
func All() []rules.Backend {
	out := make([]rules.Backend, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}
