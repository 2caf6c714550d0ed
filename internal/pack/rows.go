package pack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
)

// Row is one question in the flat import shape shared by CSV files and
// {"questions": [...]} JSON bodies.
type Row struct {
	Line          int      `json:"-"`
	Format        string   `json:"format"`
	Category      string   `json:"category"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer Answer   `json:"correct_answer"`
	Points        int      `json:"points"`
	TimeLimit     int      `json:"time_limit"`
}

// Answer accepts a 0-based option index or an option letter.
type Answer string

func (a *Answer) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	*a = Answer(strings.Trim(s, `"`))
	return nil
}

var letters = []string{"A", "B", "C", "D", "E", "F"}

// index resolves the answer against n options, or -1.
func (a Answer) index(n int) int {
	s := strings.ToUpper(strings.TrimSpace(string(a)))
	if i, err := strconv.Atoi(s); err == nil {
		if i >= 0 && i < n {
			return i
		}
		return -1
	}
	for i, l := range letters[:min(n, len(letters))] {
		if s == l {
			return i
		}
	}
	return -1
}

var aliases = map[string]content.Format{
	"jeopardy":        content.FormatPeril,
	"peril":           content.FormatPeril,
	"millionaire":     content.FormatUrFinalAnswer,
	"family_feud":     content.FormatSurveySays,
	"weakest_link":    content.FormatLastCallStanding,
	"deal_or_no_deal": content.FormatPickOrPass,
	"fifth_grader":    content.FormatBackToSchool,
	"trivial_pursuit": content.FormatQuizChase,
	"press_your_luck": content.FormatNoWhammy,
	"live":            content.FormatPKWYLive,
	"":                content.FormatPKWYLive,
}

func rowFormat(s string) (content.Format, error) {
	if f, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	f, err := content.ParseFormat(s)
	if err != nil {
		return "", err
	}
	switch f {
	case content.FormatPeril, content.FormatUrFinalAnswer, content.FormatSurveySays,
		content.FormatLastCallStanding, content.FormatPickOrPass, content.FormatBackToSchool,
		content.FormatQuizChase, content.FormatNoWhammy, content.FormatPKWYLive:
		return f, nil
	}
	return "", fmt.Errorf("%s questions cannot be imported from rows", f)
}

func (r Row) validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return errors.New("question text is required")
	}
	if n := len(r.options()); n < 2 {
		return errors.New("at least 2 options required")
	} else if n > len(letters) {
		return fmt.Errorf("at most %d options allowed", len(letters))
	}
	if r.CorrectAnswer.index(len(r.options())) < 0 {
		return fmt.Errorf("invalid correct answer %q", r.CorrectAnswer)
	}
	return nil
}

// options drops trailing blank cells; CSV rows always carry four columns.
func (r Row) options() []string {
	opts := make([]string, len(r.Options))
	copy(opts, r.Options)
	for len(opts) > 0 && strings.TrimSpace(opts[len(opts)-1]) == "" {
		opts = opts[:len(opts)-1]
	}
	return opts
}

func (r Row) choice() content.Choice {
	opts := r.options()
	c := content.Choice{
		QuestionText: strings.TrimSpace(r.Question),
		Choices:      make(map[string]string, len(opts)),
		Seconds:      r.TimeLimit,
	}
	for i, o := range opts {
		c.Choices[letters[i]] = strings.TrimSpace(o)
	}
	c.CorrectAnswer = letters[r.CorrectAnswer.index(len(opts))]
	return c
}

func (r Row) points(def int) int {
	if r.Points <= 0 {
		return def
	}
	return r.Points
}

// Build assembles rows into a game. Rows of one format give that format;
// mixed formats give a GAME NIGHT MIX with one round per format in order
// of first appearance.
func Build(name string, rows []Row) (content.Game, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrMalformedPack)
	}

	var errs []error
	var order []content.Format
	groups := map[content.Format][]Row{}
	for i, r := range rows {
		line := r.Line
		if line == 0 {
			line = i + 1
		}
		f, err := rowFormat(r.Format)
		if err == nil {
			err = r.validate()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if _, ok := groups[f]; !ok {
			order = append(order, f)
		}
		groups[f] = append(groups[f], r)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPack, errors.Join(errs...))
	}

	if len(order) == 1 {
		return build(order[0], name, groups[order[0]]), nil
	}
	mix := &content.Mix{GameName: name}
	for i, f := range order {
		mix.Rounds = append(mix.Rounds, content.Round{
			Number: i + 1,
			Name:   string(f),
			Game:   build(f, string(f), groups[f]),
		})
	}
	return mix, nil
}

func build(f content.Format, name string, rows []Row) content.Game {
	switch f {
	case content.FormatPeril:
		g := &content.Peril{GameName: name}
		idx := map[string]int{}
		for _, r := range rows {
			cat := strings.TrimSpace(r.Category)
			i, ok := idx[cat]
			if !ok {
				i = len(g.Categories)
				idx[cat] = i
				g.Categories = append(g.Categories, content.PerilCategory{CategoryTitle: cat})
			}
			c := r.choice()
			g.Categories[i].Clues = append(g.Categories[i].Clues, content.PerilClue{
				Value:         r.points(100),
				ClueText:      c.QuestionText,
				CorrectAnswer: c.Choices[c.CorrectAnswer],
				WrongAnswers:  wrong(c),
			})
		}
		return g

	case content.FormatQuizChase:
		g := &content.QuizChase{GameName: name}
		idx := map[string]int{}
		for _, r := range rows {
			cat := strings.TrimSpace(r.Category)
			i, ok := idx[cat]
			if !ok {
				i = len(g.Categories)
				idx[cat] = i
				g.Categories = append(g.Categories, content.QuizChaseCategory{CategoryTitle: cat})
			}
			g.Categories[i].Questions = append(g.Categories[i].Questions, content.QuizChaseQuestion{
				Choice:     r.choice(),
				Difficulty: max(1, r.points(100)/100),
			})
		}
		return g

	case content.FormatSurveySays:
		g := &content.SurveySays{GameName: name}
		for _, r := range rows {
			opts := r.options()
			top := r.CorrectAnswer.index(len(opts))
			q := content.SurveyQuestion{Question: strings.TrimSpace(r.Question)}
			for i, o := range opts {
				a := content.SurveyAnswer{Answer: strings.TrimSpace(o)}
				if i == top {
					a.Percent = r.points(100)
				}
				q.Answers = append(q.Answers, a)
			}
			g.SurveyQuestions = append(g.SurveyQuestions, q)
		}
		return g

	case content.FormatUrFinalAnswer:
		g := &content.UrFinalAnswer{GameName: name}
		for _, r := range rows {
			g.Questions = append(g.Questions, content.MillionaireQuestion{Choice: r.choice(), PointValue: r.points(100)})
		}
		return g

	case content.FormatLastCallStanding:
		g := &content.LastCallStanding{GameName: name}
		for _, r := range rows {
			g.Questions = append(g.Questions, content.LastCallQuestion{Choice: r.choice(), Difficulty: max(1, r.points(100)/100)})
		}
		return g

	case content.FormatPickOrPass:
		g := &content.PickOrPass{GameName: name}
		for i, r := range rows {
			g.Cases = append(g.Cases, content.PickOrPassCase{Choice: r.choice(), CaseNumber: i + 1, CaseValue: r.points(100)})
		}
		return g

	case content.FormatBackToSchool:
		g := &content.BackToSchool{GameName: name}
		for _, r := range rows {
			g.Questions = append(g.Questions, content.SchoolQuestion{
				Choice:     r.choice(),
				Subject:    strings.TrimSpace(r.Category),
				GradeLevel: max(1, r.points(50)/50),
			})
		}
		return g

	case content.FormatNoWhammy:
		g := &content.NoWhammy{GameName: name}
		for _, r := range rows {
			g.SpinQuestions = append(g.SpinQuestions, content.SpinQuestion{Choice: r.choice()})
		}
		return g

	default:
		g := &content.PKWYLive{GameName: name}
		for _, r := range rows {
			g.Questions = append(g.Questions, content.LiveQuestion{Choice: r.choice(), Difficulty: max(1, r.points(100)/100)})
		}
		return g
	}
}

func wrong(c content.Choice) []string {
	var out []string
	for _, l := range letters {
		if v, ok := c.Choices[l]; ok && l != c.CorrectAnswer {
			out = append(out, v)
		}
	}
	return out
}
