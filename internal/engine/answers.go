package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

// submitAnswer ingests one player answer. Rejections leave the session
// untouched; stale and duplicate submissions are reported to the caller
// only.
func submitAnswer(s State, cmd Command) ([]Event, State, error) {
	p, err := s.player(cmd.PlayerID)
	if err != nil {
		return nil, s, err
	}
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil, s, invalid(s, "answer")
	}
	idx := cmd.Index
	if idx == CurrentQuestion {
		idx = s.QuestionIndex
	}
	if idx != s.QuestionIndex {
		return nil, s, fmt.Errorf("%w: question %d, current is %d", ErrStaleSubmission, idx, s.QuestionIndex)
	}
	if p.Eliminated {
		return nil, s, ErrPlayerEliminated
	}
	key := AnswerKey{PlayerID: p.ID, Index: idx}
	if s.Scored[key] {
		return nil, s, fmt.Errorf("%w: question %d", ErrDuplicateSubmission, idx)
	}
	unit, ok := content.Extract(s.Content, idx)
	if !ok {
		return nil, s, fmt.Errorf("%w: index %d", ErrQuestionNotFound, idx)
	}

	if q, ok := unit.(*content.ClosestQuestion); ok {
		return submitGuess(s, cmd, p, q)
	}

	s.Scored[key] = true
	s.Question.Answers[p.ID] = cmd.Answer
	events := s.answered(p, cmd)

	result := types.AnswerResult{Accepted: true, QuestionIndex: idx}
	if j, ok := unit.(content.Judge); ok {
		v := j.Judge(cmd.Answer)
		if v.Correct {
			result.Correct = true
			result.PointsEarned = v.Points + s.speedBonus(unit, v.Points, cmd.TimeTaken)
			p.Score += result.PointsEarned
			p.CorrectAnswers++
		}
	}
	result.NewScore = p.Score
	events = append(events, Event{Type: EvtAnswerResult, To: ToPlayers, PlayerID: p.ID, Data: result})

	if !result.Correct && s.unitFormat() == content.FormatLastCallStanding {
		p.Eliminated = true
		events = append(events, Event{Type: EvtPlayerEliminated, To: ToAll, Data: types.PlayerEliminated{PlayerID: p.ID}})
	}
	return append(events, leaderboardEvent(s)), s, nil
}

// submitGuess records a numeric guess. Nobody is scored until every
// remaining player has guessed or the question is closed some other way.
func submitGuess(s State, cmd Command, p *types.Player, q *content.ClosestQuestion) ([]Event, State, error) {
	guess, err := parseGuess(cmd.Answer)
	if err != nil {
		return nil, s, err
	}
	if s.Question.Resolved {
		return nil, s, fmt.Errorf("%w: guesses for question %d are closed", ErrStaleSubmission, s.QuestionIndex)
	}

	s.Scored[AnswerKey{PlayerID: p.ID, Index: s.QuestionIndex}] = true
	s.Question.Answers[p.ID] = cmd.Answer
	s.Question.Guesses[p.ID] = guess
	s.Question.GuessOrder = append(s.Question.GuessOrder, p.ID)

	events := s.answered(p, cmd)
	events = append(events, Event{Type: EvtAnswerResult, To: ToPlayers, PlayerID: p.ID, Data: types.AnswerResult{
		Accepted:      true,
		Pending:       true,
		QuestionIndex: s.QuestionIndex,
		NewScore:      p.Score,
	}})
	if len(s.Question.Guesses) >= s.remaining() {
		events = append(events, s.resolveClosest()...)
	}
	return events, s, nil
}

func parseGuess(answer string) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(answer), ",", "")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, answer)
	}
	return f, nil
}

// resolveClosest adjudicates pending numeric guesses for the current
// question. Every eligible guess at the minimum distance wins; it is a
// no-op once resolved or when the current question takes no guesses.
func (s *State) resolveClosest() []Event {
	if s.Question.Resolved || len(s.Question.Guesses) == 0 {
		return nil
	}
	unit, ok := content.Extract(s.Content, s.QuestionIndex)
	if !ok {
		return nil
	}
	q, ok := unit.(*content.ClosestQuestion)
	if !ok {
		return nil
	}
	s.Question.Resolved = true

	best := math.Inf(1)
	for _, id := range s.Question.GuessOrder {
		g := s.Question.Guesses[id]
		if q.Eligible(g) {
			best = math.Min(best, math.Abs(g-q.CorrectNumber))
		}
	}

	var events []Event
	for _, id := range s.Question.GuessOrder {
		p, err := s.player(id)
		if err != nil {
			continue
		}
		g := s.Question.Guesses[id]
		result := types.AnswerResult{
			Accepted:      true,
			QuestionIndex: s.QuestionIndex,
			CorrectAnswer: q.CorrectNumber,
		}
		if q.Eligible(g) && math.Abs(g-q.CorrectNumber) == best {
			result.Correct = true
			result.PointsEarned = q.Points()
			p.Score += result.PointsEarned
			p.CorrectAnswers++
		}
		result.NewScore = p.Score
		events = append(events, Event{Type: EvtAnswerResult, To: ToPlayers, PlayerID: id, Data: result})
	}
	return append(events, leaderboardEvent(*s))
}

// answered builds the live-feed and distribution events every accepted
// submission produces.
func (s *State) answered(p *types.Player, cmd Command) []Event {
	return []Event{
		{Type: EvtPlayerAnswered, To: ToDirector, Data: types.PlayerAnswered{
			PlayerID:      p.ID,
			PlayerName:    p.Name,
			Answer:        cmd.Answer,
			TimeTaken:     cmd.TimeTaken,
			QuestionIndex: s.QuestionIndex,
		}},
		{Type: EvtDistribution, To: ToDirector | ToTV, Data: Distribution(*s)},
	}
}

// Distribution tallies the answers ingested so far for the current
// question, keyed by normalized answer.
func Distribution(s State) types.AnswerDistribution {
	d := types.AnswerDistribution{QuestionIndex: s.QuestionIndex, Counts: map[string]int{}}
	for _, a := range s.Question.Answers {
		d.Counts[strings.ToUpper(strings.TrimSpace(a))]++
		d.Total++
	}
	return d
}

// speedBonus adds up to half the base points, scaled by how much of the
// answer window was left.
func (s *State) speedBonus(unit content.Unit, base int, taken float64) int {
	if !s.Rules.SpeedBonus || base <= 0 || taken < 0 {
		return 0
	}
	limit := s.Rules.DefaultTimeLimit
	if tl, ok := unit.(content.TimeLimited); ok && tl.TimeLimit() > 0 {
		limit = tl.TimeLimit()
	}
	if limit <= 0 || taken >= float64(limit) {
		return 0
	}
	return int(float64(base) * 0.5 * (1 - taken/float64(limit)))
}

// unitFormat is the format governing the current question: the round's
// format inside a mix, the session's otherwise.
func (s *State) unitFormat() content.Format {
	if m, ok := s.Content.(*content.Mix); ok {
		if pos, ok := m.Locate(s.QuestionIndex); ok {
			return m.Rounds[pos.Round].Format()
		}
	}
	return s.Format
}

// buzz records a buzzer press; the first press on a question wins it.
func buzz(s State, cmd Command) ([]Event, State, error) {
	p, err := s.player(cmd.PlayerID)
	if err != nil {
		return nil, s, err
	}
	if s.Status != StatusActive {
		return nil, s, invalid(s, "buzz")
	}
	if p.Eliminated {
		return nil, s, ErrPlayerEliminated
	}
	press := types.Buzzer{PlayerID: p.ID, PlayerName: p.Name, Timestamp: cmd.At}
	events := []Event{{Type: EvtBuzzerPressed, To: ToDirector, Data: press}}
	if s.Question.Buzzer == "" {
		s.Question.Buzzer = p.ID
		events = append(events, Event{Type: EvtBuzzerWinner, To: ToAll, Data: press})
	}
	return events, s, nil
}

func surveyReveal(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil, s, invalid(s, "reveal a survey answer")
	}
	q, err := s.currentSurvey()
	if err != nil {
		return nil, s, err
	}
	if cmd.Index < 0 || cmd.Index >= len(q.Answers) {
		return nil, s, fmt.Errorf("%w: survey answer %d", ErrInvalidArgument, cmd.Index)
	}
	for _, i := range s.Question.SurveyRevealed {
		if i == cmd.Index {
			return nil, s, nil
		}
	}
	s.Question.SurveyRevealed = append(s.Question.SurveyRevealed, cmd.Index)
	ans := q.Answers[cmd.Index]
	return []Event{{Type: EvtSurveyAnswerRevealed, To: ToAll, Data: types.SurveyAnswerRevealed{
		AnswerIndex: cmd.Index,
		Answer:      ans.Answer,
		Percent:     ans.Percent,
	}}}, s, nil
}

func surveyStrike(s State) ([]Event, State, error) {
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil, s, invalid(s, "strike")
	}
	q, err := s.currentSurvey()
	if err != nil {
		return nil, s, err
	}
	if s.Question.Strikes >= q.Strikes() {
		return nil, s, fmt.Errorf("%w: strikes exhausted", ErrInvalidTransition)
	}
	s.Question.Strikes++
	return []Event{{Type: EvtSurveyStrike, To: ToAll, Data: types.SurveyStrike{
		Strikes:    s.Question.Strikes,
		MaxStrikes: q.Strikes(),
	}}}, s, nil
}

func (s *State) currentSurvey() (*content.SurveyQuestion, error) {
	unit, ok := content.Extract(s.Content, s.QuestionIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrQuestionNotFound, s.QuestionIndex)
	}
	q, ok := unit.(*content.SurveyQuestion)
	if !ok {
		return nil, fmt.Errorf("%w: current question is not a survey", ErrInvalidArgument)
	}
	return q, nil
}
