package content

import (
	"encoding/json"
	"fmt"
)

// Round is one segment of a GAME NIGHT MIX. A round with no recognizable
// content has a nil Game and counts zero questions.
type Round struct {
	Number int
	Name   string
	Game   Game
}

func (r Round) Format() Format {
	if r.Game == nil {
		return ""
	}
	return r.Game.Format()
}

// RoundCount is the number of questions a round contributes.
func RoundCount(r Round) int { return Total(r.Game) }

type Mix struct {
	GameName string  `json:"game_name"`
	Rounds   []Round `json:"rounds"`
}

func (m *Mix) Format() Format { return FormatGameNightMix }

func (m *Mix) Count() int {
	n := 0
	for _, r := range m.Rounds {
		n += RoundCount(r)
	}
	return n
}

func (m *Mix) At(i int) (Unit, bool) {
	pos, ok := m.Locate(i)
	if !ok {
		return nil, false
	}
	return Extract(m.Rounds[pos.Round].Game, pos.Index)
}

// Position addresses a question as (round, index within that round).
// Atomic games always report round 0.
type Position struct {
	Round int `json:"round_index"`
	Index int `json:"index_in_round"`
}

// Locate walks the rounds in order, accumulating their counts until the
// global index falls inside one. Rounds that contribute zero questions are
// skipped over.
func (m *Mix) Locate(i int) (Position, bool) {
	if i < 0 {
		return Position{}, false
	}
	accumulated := 0
	for ri, r := range m.Rounds {
		c := RoundCount(r)
		if i < accumulated+c {
			return Position{Round: ri, Index: i - accumulated}, true
		}
		accumulated += c
	}
	return Position{}, false
}

// RoundStart is the global index of the first question of round r.
func (m *Mix) RoundStart(r int) int {
	start := 0
	for i := 0; i < r && i < len(m.Rounds); i++ {
		start += RoundCount(m.Rounds[i])
	}
	return start
}

// Locate resolves a global index for any game.
func Locate(g Game, i int) (Position, bool) {
	if m, ok := g.(*Mix); ok {
		return m.Locate(i)
	}
	if i < 0 || i >= Total(g) {
		return Position{}, false
	}
	return Position{Index: i}, true
}

type roundHeader struct {
	Format      string `json:"format"`
	RoundNumber int    `json:"round_number"`
	RoundName   string `json:"round_name"`
}

// UnmarshalJSON reads the round header and decodes the variant fields that
// sit inline next to it.
func (r *Round) UnmarshalJSON(data []byte) error {
	var head roundHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("%w: round: %v", ErrMalformedContent, err)
	}
	r.Number, r.Name, r.Game = head.RoundNumber, head.RoundName, nil

	var (
		f   Format
		err error
	)
	if head.Format != "" {
		f, err = ParseFormat(head.Format)
		if err != nil {
			return err
		}
	} else if f, err = Detect(data); err != nil {
		return nil
	}
	if f.Composite() {
		return fmt.Errorf("%w: round %d nests a %s", ErrMalformedContent, head.RoundNumber, FormatGameNightMix)
	}

	g, err := Decode(f, data)
	if err != nil {
		return fmt.Errorf("round %d: %w", head.RoundNumber, err)
	}
	r.Game = g
	return nil
}

func (r Round) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if r.Game != nil {
		body, err := json.Marshal(r.Game)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		delete(fields, "game_name")
		fields["format"], _ = json.Marshal(r.Game.Format())
	}
	fields["round_number"], _ = json.Marshal(r.Number)
	fields["round_name"], _ = json.Marshal(r.Name)
	return json.Marshal(fields)
}
