package content

import (
	"errors"
	"fmt"
)

type validator interface {
	validate() error
}

func (c categorized) validate() error {
	if v, ok := c.Unit.(validator); ok {
		return v.validate()
	}
	return nil
}

func errorsIsMalformed(err error) bool { return errors.Is(err, ErrMalformedContent) }

// Validate checks that g is playable: at least one question, and every
// question well-formed for its format.
func Validate(g Game) error {
	if Total(g) == 0 {
		return fmt.Errorf("%w: no questions", ErrMalformedContent)
	}
	if m, ok := g.(*Mix); ok {
		for _, r := range m.Rounds {
			if RoundCount(r) == 0 {
				continue
			}
			if err := Validate(r.Game); err != nil {
				return fmt.Errorf("round %d (%s): %w", r.Number, r.Format(), err)
			}
		}
		return nil
	}
	for i := 0; i < g.Count(); i++ {
		u, _ := g.At(i)
		if v, ok := u.(validator); ok {
			if err := v.validate(); err != nil {
				return fmt.Errorf("%w: question %d: %v", ErrMalformedContent, i+1, err)
			}
		}
	}
	return nil
}
