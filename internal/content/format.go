package content

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatPeril            Format = "PERIL!"
	FormatSurveySays       Format = "SURVEY SAYS!"
	FormatUrFinalAnswer    Format = "UR FINAL ANSWER!"
	FormatLastCallStanding Format = "LAST CALL STANDING"
	FormatPickOrPass       Format = "PICK OR PASS!"
	FormatLinkReaction     Format = "LINK REACTION"
	FormatSpinToWin        Format = "SPIN TO WIN!"
	FormatClosestWins      Format = "CLOSEST WINS!"
	FormatChainedUp        Format = "CHAINED UP"
	FormatNoWhammy         Format = "NO WHAMMY!"
	FormatBackToSchool     Format = "BACK TO SCHOOL!"
	FormatQuizChase        Format = "QUIZ CHASE"
	FormatPKWYLive         Format = "PKWY LIVE!"
	FormatGameNightMix     Format = "GAME NIGHT MIX"
)

// AtomicFormats lists the single-round formats in display order.
var AtomicFormats = []Format{
	FormatPeril,
	FormatSurveySays,
	FormatUrFinalAnswer,
	FormatLastCallStanding,
	FormatPickOrPass,
	FormatLinkReaction,
	FormatSpinToWin,
	FormatClosestWins,
	FormatChainedUp,
	FormatNoWhammy,
	FormatBackToSchool,
	FormatQuizChase,
	FormatPKWYLive,
}

func (f Format) Composite() bool { return f == FormatGameNightMix }

func (f Format) Valid() bool {
	_, ok := variants[f]
	return ok
}

// Board formats are addressed category-major: every clue of category 0,
// then category 1, and so on.
func (f Format) Board() bool { return f == FormatPeril || f == FormatQuizChase }

// ParseFormat accepts a format name in any case and with surrounding space.
func ParseFormat(s string) (Format, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for f := range variants {
		if string(f) == want {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrMalformedContent, s)
}
