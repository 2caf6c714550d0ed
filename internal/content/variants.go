package content

// categorized attaches the board category title to a flattened clue.
type categorized struct {
	Unit
	category string
}

func (c categorized) Prompt() Prompt {
	p := c.Unit.Prompt()
	p.Category = c.category
	return p
}

func (c categorized) Judge(a string) Verdict {
	if j, ok := c.Unit.(Judge); ok {
		return j.Judge(a)
	}
	return Verdict{}
}

// boardIndex maps (category, row) to the category-major linear index.
func boardIndex(sizes []int, category, row int) (int, bool) {
	if category < 0 || category >= len(sizes) || row < 0 || row >= sizes[category] {
		return 0, false
	}
	idx := row
	for _, n := range sizes[:category] {
		idx += n
	}
	return idx, true
}

type PerilCategory struct {
	CategoryTitle string      `json:"category_title"`
	Clues         []PerilClue `json:"clues"`
}

type Peril struct {
	GameName   string          `json:"game_name"`
	Categories []PerilCategory `json:"categories"`
}

func (g *Peril) Format() Format { return FormatPeril }

func (g *Peril) Count() int {
	n := 0
	for _, c := range g.Categories {
		n += len(c.Clues)
	}
	return n
}

func (g *Peril) At(i int) (Unit, bool) {
	if i < 0 {
		return nil, false
	}
	for ci := range g.Categories {
		cat := &g.Categories[ci]
		if i < len(cat.Clues) {
			return categorized{Unit: &cat.Clues[i], category: cat.CategoryTitle}, true
		}
		i -= len(cat.Clues)
	}
	return nil, false
}

// ClueIndex returns the linear index of the clue at (category, row).
func (g *Peril) ClueIndex(category, row int) (int, bool) {
	sizes := make([]int, len(g.Categories))
	for i, c := range g.Categories {
		sizes[i] = len(c.Clues)
	}
	return boardIndex(sizes, category, row)
}

type SurveySays struct {
	GameName        string           `json:"game_name"`
	SurveyQuestions []SurveyQuestion `json:"survey_questions"`
}

func (g *SurveySays) Format() Format { return FormatSurveySays }
func (g *SurveySays) Count() int     { return len(g.SurveyQuestions) }
func (g *SurveySays) At(i int) (Unit, bool) {
	return unitAt(g.SurveyQuestions, i)
}

type UrFinalAnswer struct {
	GameName           string                `json:"game_name"`
	Questions          []MillionaireQuestion `json:"questions"`
	AvailableLifelines []string              `json:"available_lifelines,omitempty"`
}

func (g *UrFinalAnswer) Format() Format { return FormatUrFinalAnswer }
func (g *UrFinalAnswer) Count() int     { return len(g.Questions) }
func (g *UrFinalAnswer) At(i int) (Unit, bool) {
	return unitAt(g.Questions, i)
}

type LastCallStanding struct {
	GameName  string             `json:"game_name"`
	Questions []LastCallQuestion `json:"questions"`
}

func (g *LastCallStanding) Format() Format { return FormatLastCallStanding }
func (g *LastCallStanding) Count() int     { return len(g.Questions) }
func (g *LastCallStanding) At(i int) (Unit, bool) {
	return unitAt(g.Questions, i)
}

type PickOrPass struct {
	GameName string           `json:"game_name"`
	Cases    []PickOrPassCase `json:"cases"`
}

func (g *PickOrPass) Format() Format { return FormatPickOrPass }
func (g *PickOrPass) Count() int     { return len(g.Cases) }
func (g *PickOrPass) At(i int) (Unit, bool) {
	return unitAt(g.Cases, i)
}

type LinkReaction struct {
	GameName  string         `json:"game_name"`
	Questions []LinkQuestion `json:"questions"`
}

func (g *LinkReaction) Format() Format { return FormatLinkReaction }
func (g *LinkReaction) Count() int     { return len(g.Questions) }
func (g *LinkReaction) At(i int) (Unit, bool) {
	return unitAt(g.Questions, i)
}

type SpinToWin struct {
	GameName string       `json:"game_name"`
	Puzzles  []SpinPuzzle `json:"puzzles"`
}

func (g *SpinToWin) Format() Format { return FormatSpinToWin }
func (g *SpinToWin) Count() int     { return len(g.Puzzles) }
func (g *SpinToWin) At(i int) (Unit, bool) {
	return unitAt(g.Puzzles, i)
}

type ClosestWins struct {
	GameName string            `json:"game_name"`
	Numbers  []ClosestQuestion `json:"numbers"`
}

func (g *ClosestWins) Format() Format { return FormatClosestWins }
func (g *ClosestWins) Count() int     { return len(g.Numbers) }
func (g *ClosestWins) At(i int) (Unit, bool) {
	return unitAt(g.Numbers, i)
}

type ChainedUp struct {
	GameName string      `json:"game_name"`
	Chains   []WordChain `json:"chains"`
}

func (g *ChainedUp) Format() Format { return FormatChainedUp }
func (g *ChainedUp) Count() int     { return len(g.Chains) }
func (g *ChainedUp) At(i int) (Unit, bool) {
	return unitAt(g.Chains, i)
}

// NoWhammy is addressed by its spin questions; the board is display-only.
type NoWhammy struct {
	GameName      string         `json:"game_name"`
	Board         []BoardPanel   `json:"board"`
	SpinQuestions []SpinQuestion `json:"spin_questions"`
}

func (g *NoWhammy) Format() Format { return FormatNoWhammy }
func (g *NoWhammy) Count() int     { return len(g.SpinQuestions) }
func (g *NoWhammy) At(i int) (Unit, bool) {
	return unitAt(g.SpinQuestions, i)
}

type BackToSchool struct {
	GameName  string           `json:"game_name"`
	Questions []SchoolQuestion `json:"questions"`
}

func (g *BackToSchool) Format() Format { return FormatBackToSchool }
func (g *BackToSchool) Count() int     { return len(g.Questions) }
func (g *BackToSchool) At(i int) (Unit, bool) {
	return unitAt(g.Questions, i)
}

type QuizChaseCategory struct {
	CategoryTitle string              `json:"category_title"`
	Questions     []QuizChaseQuestion `json:"questions"`
}

type QuizChase struct {
	GameName   string              `json:"game_name"`
	Categories []QuizChaseCategory `json:"categories"`
}

func (g *QuizChase) Format() Format { return FormatQuizChase }

func (g *QuizChase) Count() int {
	n := 0
	for _, c := range g.Categories {
		n += len(c.Questions)
	}
	return n
}

func (g *QuizChase) At(i int) (Unit, bool) {
	if i < 0 {
		return nil, false
	}
	for ci := range g.Categories {
		cat := &g.Categories[ci]
		if i < len(cat.Questions) {
			return categorized{Unit: &cat.Questions[i], category: cat.CategoryTitle}, true
		}
		i -= len(cat.Questions)
	}
	return nil, false
}

func (g *QuizChase) ClueIndex(category, row int) (int, bool) {
	sizes := make([]int, len(g.Categories))
	for i, c := range g.Categories {
		sizes[i] = len(c.Questions)
	}
	return boardIndex(sizes, category, row)
}

type PKWYLive struct {
	GameName  string         `json:"game_name"`
	Questions []LiveQuestion `json:"questions"`
}

func (g *PKWYLive) Format() Format { return FormatPKWYLive }
func (g *PKWYLive) Count() int     { return len(g.Questions) }
func (g *PKWYLive) At(i int) (Unit, bool) {
	return unitAt(g.Questions, i)
}
