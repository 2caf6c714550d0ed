package pack

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
)

type jsonRow struct {
	Row
	CorrectAnswerAlt Answer `json:"correctAnswer"`
}

// ParseJSON accepts either full game content in any format or a flat
// {"questions": [...]} list of import rows.
func ParseJSON(name string, raw []byte) (content.Game, error) {
	var probe struct {
		Questions []map[string]json.RawMessage `json:"questions"`
	}
	if json.Unmarshal(raw, &probe) == nil && len(probe.Questions) > 0 {
		if _, ok := probe.Questions[0]["options"]; ok {
			var body struct {
				Questions []jsonRow `json:"questions"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPack, err)
			}
			rows := make([]Row, len(body.Questions))
			for i, q := range body.Questions {
				rows[i] = q.Row
				rows[i].Line = i + 1
				if rows[i].CorrectAnswer == "" {
					rows[i].CorrectAnswer = q.CorrectAnswerAlt
				}
			}
			return Build(name, rows)
		}
	}

	g, err := content.DecodeAny(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPack, err)
	}
	if err := content.Validate(g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPack, err)
	}
	return g, nil
}
