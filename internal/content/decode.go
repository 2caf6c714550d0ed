package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var variants = map[Format]func() Game{
	FormatPeril:            func() Game { return &Peril{GameName: string(FormatPeril)} },
	FormatSurveySays:       func() Game { return &SurveySays{GameName: string(FormatSurveySays)} },
	FormatUrFinalAnswer:    func() Game { return &UrFinalAnswer{GameName: string(FormatUrFinalAnswer)} },
	FormatLastCallStanding: func() Game { return &LastCallStanding{GameName: string(FormatLastCallStanding)} },
	FormatPickOrPass:       func() Game { return &PickOrPass{GameName: string(FormatPickOrPass)} },
	FormatLinkReaction:     func() Game { return &LinkReaction{GameName: string(FormatLinkReaction)} },
	FormatSpinToWin:        func() Game { return &SpinToWin{GameName: string(FormatSpinToWin)} },
	FormatClosestWins:      func() Game { return &ClosestWins{GameName: string(FormatClosestWins)} },
	FormatChainedUp:        func() Game { return &ChainedUp{GameName: string(FormatChainedUp)} },
	FormatNoWhammy:         func() Game { return &NoWhammy{GameName: string(FormatNoWhammy)} },
	FormatBackToSchool:     func() Game { return &BackToSchool{GameName: string(FormatBackToSchool)} },
	FormatQuizChase:        func() Game { return &QuizChase{GameName: string(FormatQuizChase)} },
	FormatPKWYLive:         func() Game { return &PKWYLive{GameName: string(FormatPKWYLive)} },
	FormatGameNightMix:     func() Game { return &Mix{GameName: string(FormatGameNightMix)} },
}

// New returns an empty game of the given format.
func New(f Format) (Game, error) {
	mk, ok := variants[f]
	if !ok {
		return nil, fmt.Errorf("%w: unknown format %q", ErrMalformedContent, f)
	}
	return mk(), nil
}

// Decode parses raw JSON as the given format.
func Decode(f Format, raw []byte) (Game, error) {
	g, err := New(f)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return g, nil
	}
	if err := json.Unmarshal(raw, g); err != nil {
		if errorsIsMalformed(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedContent, f, err)
	}
	return g, nil
}

// DecodeAny detects the format of raw and decodes it.
func DecodeAny(raw []byte) (Game, error) {
	f, err := Detect(raw)
	if err != nil {
		return nil, err
	}
	return Decode(f, raw)
}

// Detect identifies a format from its game_name, or failing that from the
// shape of the payload.
func Detect(raw []byte) (Format, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedContent, err)
	}

	var name string
	if v, ok := probe["game_name"]; ok && json.Unmarshal(v, &name) == nil && name != "" {
		if f, err := ParseFormat(name); err == nil {
			return f, nil
		}
	}

	has := func(k string) bool { _, ok := probe[k]; return ok }
	switch {
	case has("rounds"):
		return FormatGameNightMix, nil
	case has("categories") && bytes.Contains(probe["categories"], []byte(`"clues"`)):
		return FormatPeril, nil
	case has("categories"):
		return FormatQuizChase, nil
	case has("survey_questions"):
		return FormatSurveySays, nil
	case has("puzzles"):
		return FormatSpinToWin, nil
	case has("chains"):
		return FormatChainedUp, nil
	case has("spin_questions"):
		return FormatNoWhammy, nil
	case has("cases"):
		return FormatPickOrPass, nil
	case has("numbers"):
		return FormatClosestWins, nil
	case has("questions"):
		return detectQuestions(probe["questions"])
	}
	return "", fmt.Errorf("%w: could not detect game format, set game_name", ErrMalformedContent)
}

func detectQuestions(raw json.RawMessage) (Format, error) {
	var qs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return "", fmt.Errorf("%w: questions must be a non-empty list", ErrMalformedContent)
	}
	sample := qs[0]
	has := func(k string) bool { _, ok := sample[k]; return ok }
	switch {
	case has("subject"):
		return FormatBackToSchool, nil
	case has("chain_value"):
		return FormatLinkReaction, nil
	case has("point_value"):
		return FormatUrFinalAnswer, nil
	case has("difficulty") && len(qs) >= 12:
		return FormatLastCallStanding, nil
	case has("difficulty"):
		return FormatPKWYLive, nil
	}
	return "", fmt.Errorf("%w: could not detect game format, set game_name", ErrMalformedContent)
}
