package content

import (
	"errors"
	"strings"
)

var ErrMalformedContent = errors.New("malformed content")

// Game is the traversal contract every content variant implements. Count
// and At agree on one fixed order: At(i) is defined exactly for
// 0 <= i < Count().
type Game interface {
	Format() Format
	Count() int
	At(i int) (Unit, bool)
}

// Unit is one addressable question, clue, case, puzzle or chain.
type Unit interface {
	Prompt() Prompt
	Solution() any
}

// Judge is implemented by units that can be scored as soon as an answer
// arrives. Units without it (closest-number guesses) are adjudicated once
// per question by the engine.
type Judge interface {
	Judge(answer string) Verdict
}

type Verdict struct {
	Correct bool
	Points  int
}

// Prompt is the player-safe view of a unit: no solutions.
type Prompt struct {
	Text     string            `json:"text"`
	Category string            `json:"category,omitempty"`
	Choices  map[string]string `json:"choices,omitempty"`
	Value    int               `json:"value,omitempty"`
}

// TimeLimited units carry their own answer window in seconds.
type TimeLimited interface {
	TimeLimit() int
}

// Total returns g.Count(), treating a nil game as empty.
func Total(g Game) int {
	if g == nil {
		return 0
	}
	return g.Count()
}

// Extract resolves a global index. Out-of-range indexes and nil games
// yield (nil, false), which callers read as "no current question".
func Extract(g Game, i int) (Unit, bool) {
	if g == nil || i < 0 || i >= g.Count() {
		return nil, false
	}
	return g.At(i)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sameText(a, b string) bool {
	return normalize(a) != "" && normalize(a) == normalize(b)
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func unitAt[T any, P interface {
	*T
	Unit
}](items []T, i int) (Unit, bool) {
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return P(&items[i]), true
}
