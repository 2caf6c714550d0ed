package content

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Choice is the lettered multiple-choice core shared by most formats.
type Choice struct {
	QuestionText  string            `json:"question_text"`
	Choices       map[string]string `json:"choices"`
	CorrectAnswer string            `json:"correct_answer"`
	Seconds       int               `json:"time_limit,omitempty"`
}

// TimeLimit is the per-question answer window, 0 when the pack sets none.
func (c Choice) TimeLimit() int { return c.Seconds }

func (c Choice) prompt() Prompt {
	return Prompt{Text: c.QuestionText, Choices: c.Choices}
}

// correct accepts the correct letter or the text of the correct option.
func (c Choice) correct(answer string) bool {
	if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(c.CorrectAnswer)) {
		return true
	}
	if text, ok := c.Choices[strings.ToUpper(strings.TrimSpace(c.CorrectAnswer))]; ok {
		return sameText(answer, text)
	}
	return false
}

func (c Choice) validate() error {
	if strings.TrimSpace(c.QuestionText) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(c.Choices) < 2 {
		return fmt.Errorf("question %q needs at least 2 choices", c.QuestionText)
	}
	if _, ok := c.Choices[strings.ToUpper(strings.TrimSpace(c.CorrectAnswer))]; !ok {
		return fmt.Errorf("question %q: correct answer %q is not one of the choices", c.QuestionText, c.CorrectAnswer)
	}
	return nil
}

func judge(ok bool, points int) Verdict {
	if !ok {
		return Verdict{}
	}
	return Verdict{Correct: true, Points: points}
}

type PerilClue struct {
	Value         int      `json:"value"`
	Difficulty    int      `json:"difficulty"`
	ClueText      string   `json:"clue_text"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers,omitempty"`
}

func (c *PerilClue) Prompt() Prompt { return Prompt{Text: c.ClueText, Value: c.Value} }
func (c *PerilClue) Solution() any  { return c.CorrectAnswer }
func (c *PerilClue) Judge(a string) Verdict {
	return judge(sameText(a, c.CorrectAnswer), orDefault(c.Value, 100))
}
func (c *PerilClue) validate() error {
	if strings.TrimSpace(c.ClueText) == "" || strings.TrimSpace(c.CorrectAnswer) == "" {
		return fmt.Errorf("clue needs text and a correct answer")
	}
	return nil
}

type SurveyAnswer struct {
	Answer  string `json:"answer"`
	Percent int    `json:"percent"`
}

type SurveyQuestion struct {
	Question   string         `json:"question"`
	Answers    []SurveyAnswer `json:"answers"`
	MaxStrikes int            `json:"max_strikes,omitempty"`
}

func (q *SurveyQuestion) Prompt() Prompt { return Prompt{Text: q.Question} }
func (q *SurveyQuestion) Solution() any  { return q.Answers }

// Judge awards the percent of the matched survey answer.
func (q *SurveyQuestion) Judge(a string) Verdict {
	if i := q.Match(a); i >= 0 {
		return Verdict{Correct: true, Points: q.Answers[i].Percent}
	}
	return Verdict{}
}

// Match returns the index of the survey answer equal to a, or -1.
func (q *SurveyQuestion) Match(a string) int {
	for i, ans := range q.Answers {
		if sameText(a, ans.Answer) {
			return i
		}
	}
	return -1
}

func (q *SurveyQuestion) Strikes() int { return orDefault(q.MaxStrikes, 3) }

func (q *SurveyQuestion) validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("survey question is empty")
	}
	if len(q.Answers) == 0 {
		return fmt.Errorf("survey %q has no answers", q.Question)
	}
	return nil
}

type MillionaireQuestion struct {
	Choice
	PointValue int `json:"point_value"`
	Difficulty int `json:"difficulty"`
}

func (q *MillionaireQuestion) Prompt() Prompt {
	p := q.prompt()
	p.Value = q.PointValue
	return p
}
func (q *MillionaireQuestion) Solution() any { return q.CorrectAnswer }
func (q *MillionaireQuestion) Judge(a string) Verdict {
	return judge(q.correct(a), orDefault(q.PointValue, 100))
}

type LastCallQuestion struct {
	Choice
	Difficulty int `json:"difficulty"`
}

func (q *LastCallQuestion) Prompt() Prompt { return q.prompt() }
func (q *LastCallQuestion) Solution() any  { return q.CorrectAnswer }
func (q *LastCallQuestion) Judge(a string) Verdict {
	return judge(q.correct(a), 100*orDefault(q.Difficulty, 1))
}

type PickOrPassCase struct {
	Choice
	CaseNumber   int      `json:"case_number"`
	CaseValue    int      `json:"case_value"`
	WrongAnswers []string `json:"wrong_answers,omitempty"`
	TensionMeter int      `json:"tension_meter"`
}

func (c *PickOrPassCase) Prompt() Prompt {
	p := c.prompt()
	p.Category = fmt.Sprintf("Case %d", c.CaseNumber)
	return p
}
func (c *PickOrPassCase) Solution() any { return c.CorrectAnswer }
func (c *PickOrPassCase) Judge(a string) Verdict {
	return judge(c.correct(a), orDefault(c.CaseValue, 100))
}

type LinkQuestion struct {
	ChainValue    int      `json:"chain_value"`
	PenaltyValue  int      `json:"penalty_value"`
	QuestionText  string   `json:"question_text"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers,omitempty"`
}

func (q *LinkQuestion) Prompt() Prompt { return Prompt{Text: q.QuestionText, Value: q.ChainValue} }
func (q *LinkQuestion) Solution() any  { return q.CorrectAnswer }
func (q *LinkQuestion) Judge(a string) Verdict {
	return judge(sameText(a, q.CorrectAnswer), 100*orDefault(q.ChainValue, 1))
}
func (q *LinkQuestion) validate() error {
	if strings.TrimSpace(q.QuestionText) == "" || strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("link question needs text and a correct answer")
	}
	return nil
}

type SpinPuzzle struct {
	Category         string `json:"category"`
	PuzzleWithBlanks string `json:"puzzle_with_blanks"`
	FullAnswer       string `json:"full_answer"`
	BonusLetter      string `json:"bonus_letter,omitempty"`
}

func (p *SpinPuzzle) Prompt() Prompt {
	return Prompt{Text: p.PuzzleWithBlanks, Category: p.Category}
}
func (p *SpinPuzzle) Solution() any { return p.FullAnswer }

// Judge accepts the full solution, or a single letter that appears in it.
func (p *SpinPuzzle) Judge(a string) Verdict {
	guess := normalize(a)
	if utf8.RuneCountInString(guess) == 1 {
		return judge(strings.Contains(normalize(p.FullAnswer), guess), 100)
	}
	return judge(sameText(guess, p.FullAnswer), 100)
}
func (p *SpinPuzzle) validate() error {
	if strings.TrimSpace(p.FullAnswer) == "" {
		return fmt.Errorf("puzzle has no answer")
	}
	return nil
}

type ClosestQuestion struct {
	QuestionText    string  `json:"question_text"`
	CorrectNumber   float64 `json:"correct_number"`
	AcceptableRange float64 `json:"acceptable_range"`
	OverRule        bool    `json:"over_rule"`
}

func (q *ClosestQuestion) Prompt() Prompt { return Prompt{Text: q.QuestionText} }
func (q *ClosestQuestion) Solution() any  { return q.CorrectNumber }

// Eligible reports whether a guess may win. The over rule disqualifies
// guesses above the target, and a positive AcceptableRange bounds the
// distance from it.
func (q *ClosestQuestion) Eligible(guess float64) bool {
	if q.OverRule && guess > q.CorrectNumber {
		return false
	}
	return q.AcceptableRange <= 0 || math.Abs(guess-q.CorrectNumber) <= q.AcceptableRange
}

func (q *ClosestQuestion) Points() int { return 500 }

func (q *ClosestQuestion) validate() error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return fmt.Errorf("question text is empty")
	}
	return nil
}

type WordChain struct {
	ChainTitle  string   `json:"chain_title"`
	Words       []string `json:"words"`
	Explanation string   `json:"explanation,omitempty"`
}

// Prompt carries only the title; every word stays hidden until revealed.
func (c *WordChain) Prompt() Prompt { return Prompt{Text: c.ChainTitle} }
func (c *WordChain) Solution() any  { return c.Words }
func (c *WordChain) Judge(a string) Verdict {
	for _, w := range c.Words {
		if sameText(a, w) {
			return judge(true, 100)
		}
	}
	return Verdict{}
}
func (c *WordChain) validate() error {
	if len(c.Words) < 2 {
		return fmt.Errorf("chain %q needs at least 2 words", c.ChainTitle)
	}
	return nil
}

type BoardPanel struct {
	Panel   int `json:"panel"`
	Content any `json:"content"`
}

// Whammy reports whether the panel is a whammy rather than a point value.
func (p BoardPanel) Whammy() bool {
	s, ok := p.Content.(string)
	return ok && strings.Contains(strings.ToUpper(s), "WHAMMY")
}

type SpinQuestion struct {
	Choice
}

func (q *SpinQuestion) Prompt() Prompt         { return q.prompt() }
func (q *SpinQuestion) Solution() any          { return q.CorrectAnswer }
func (q *SpinQuestion) Judge(a string) Verdict { return judge(q.correct(a), 200) }

type SchoolQuestion struct {
	Choice
	Subject    string `json:"subject"`
	GradeLevel int    `json:"grade_level"`
}

func (q *SchoolQuestion) Prompt() Prompt {
	p := q.prompt()
	p.Category = fmt.Sprintf("%s, grade %d", q.Subject, q.GradeLevel)
	return p
}
func (q *SchoolQuestion) Solution() any { return q.CorrectAnswer }
func (q *SchoolQuestion) Judge(a string) Verdict {
	return judge(q.correct(a), 50*orDefault(q.GradeLevel, 1))
}

type QuizChaseQuestion struct {
	Choice
	Difficulty int `json:"difficulty"`
}

func (q *QuizChaseQuestion) Prompt() Prompt { return q.prompt() }
func (q *QuizChaseQuestion) Solution() any  { return q.CorrectAnswer }
func (q *QuizChaseQuestion) Judge(a string) Verdict {
	return judge(q.correct(a), 100*orDefault(q.Difficulty, 1))
}

type LiveQuestion struct {
	Choice
	Difficulty int `json:"difficulty"`
}

func (q *LiveQuestion) Prompt() Prompt         { return q.prompt() }
func (q *LiveQuestion) Solution() any          { return q.CorrectAnswer }
func (q *LiveQuestion) Judge(a string) Verdict { return judge(q.correct(a), 100) }
