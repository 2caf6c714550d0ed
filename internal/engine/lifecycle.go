package engine

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

func start(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusWaiting {
		return nil, s, invalid(s, "start")
	}
	if content.Total(s.Content) == 0 {
		return nil, s, fmt.Errorf("%w: cannot start without content", ErrInvalidTransition)
	}

	ns := s
	ns.Status = StatusActive
	ns.StartedAt = cmd.At
	ns.Display = DisplayQuestion
	ns.setCursor(0)

	events := []Event{
		{Type: EvtStarted, To: ToAll, Data: types.GameStarted{GameCode: s.Code}},
		questionChangedEvent(ns),
	}
	return events, ns, nil
}

func pause(s State) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, invalid(s, "pause")
	}
	ns := s
	ns.Status = StatusPaused
	events := ns.stopTimer()
	events = append(events, Event{Type: EvtPaused, To: ToAll})
	return events, ns, nil
}

func resume(s State) ([]Event, State, error) {
	if s.Status != StatusPaused {
		return nil, s, invalid(s, "resume")
	}
	ns := s
	ns.Status = StatusActive
	return []Event{{Type: EvtResumed, To: ToAll}}, ns, nil
}

// finish is legal from every non-terminal state. Pending guesses are
// adjudicated first so nobody loses points to the shutdown.
func finish(s State, cmd Command) ([]Event, State, error) {
	ns := s
	var events []Event
	if ns.Status != StatusWaiting {
		events = append(events, ns.resolveClosest()...)
	}
	events = append(events, ns.stopTimer()...)

	ns.Status = StatusFinished
	ns.FinishedAt = cmd.At
	ns.Display = DisplayFinal

	board := Leaderboard(ns)
	final := types.GameFinished{FinalLeaderboard: board}
	if len(board) > 0 {
		final.Winner = &board[0]
	}
	events = append(events,
		Event{Type: EvtFinished, To: ToAll, Data: final},
		leaderboardEvent(ns),
	)
	return events, ns, nil
}

// next advances the cursor; on the last question it finishes the game
// instead of moving out of range.
func next(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, invalid(s, "advance")
	}
	if s.QuestionIndex >= content.Total(s.Content)-1 {
		return finish(s, cmd)
	}
	ns := s
	return ns.move(s.QuestionIndex + 1), ns, nil
}

func previous(s State) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, invalid(s, "go back")
	}
	if s.QuestionIndex <= 0 {
		return nil, s, nil
	}
	ns := s
	return ns.move(s.QuestionIndex - 1), ns, nil
}

// gotoQuestion jumps to an arbitrary index; board formats use it to play a
// clue picked off the board.
func gotoQuestion(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, invalid(s, "change question")
	}
	if cmd.Index < 0 || cmd.Index >= content.Total(s.Content) {
		return nil, s, fmt.Errorf("%w: index %d", ErrQuestionNotFound, cmd.Index)
	}
	if cmd.Index == s.QuestionIndex {
		return nil, s, nil
	}
	ns := s
	return ns.move(cmd.Index), ns, nil
}

func reveal(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive && s.Status != StatusPaused {
		return nil, s, invalid(s, "reveal")
	}
	ns := s
	ns.Revealed = !s.Revealed
	if cmd.Reveal != nil {
		ns.Revealed = *cmd.Reveal
	}

	var events []Event
	payload := types.AnswerRevealed{Revealed: ns.Revealed, QuestionIndex: ns.QuestionIndex}
	if ns.Revealed {
		events = append(events, ns.resolveClosest()...)
		if u, ok := content.Extract(ns.Content, ns.QuestionIndex); ok {
			payload.CorrectAnswer = u.Solution()
		}
	}
	events = append(events, Event{Type: EvtAnswerRevealed, To: ToAll, Data: payload})
	return events, ns, nil
}

// loadContent replaces the pack. Allowed while waiting, or while paused
// provided the new pack is playable; the cursor restarts at 0 and previous
// answers no longer count against the new questions.
func loadContent(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusWaiting && s.Status != StatusPaused {
		return nil, s, invalid(s, "load content")
	}
	if cmd.Content == nil {
		return nil, s, fmt.Errorf("%w: no content", content.ErrMalformedContent)
	}
	if cmd.Content.Format() != s.Format {
		return nil, s, fmt.Errorf("%w: %s pack cannot be loaded into a %s game",
			content.ErrMalformedContent, cmd.Content.Format(), s.Format)
	}
	total := content.Total(cmd.Content)
	if s.Status == StatusPaused && total == 0 {
		return nil, s, fmt.Errorf("%w: paused game needs a non-empty pack", content.ErrMalformedContent)
	}

	ns := s
	ns.Content = cmd.Content
	ns.Scored = map[AnswerKey]bool{}
	ns.Visited = map[int]bool{}
	events := ns.stopTimer()
	ns.setCursor(0)

	events = append(events, Event{Type: EvtContentLoaded, To: ToAll, Data: types.ContentLoaded{
		GameFormat:     string(s.Format),
		TotalQuestions: total,
	}})
	if ns.Status == StatusPaused {
		events = append(events, questionChangedEvent(ns))
	}
	return events, ns, nil
}

func display(s State, cmd Command) ([]Event, State, error) {
	if !cmd.Display.Valid() {
		return nil, s, fmt.Errorf("%w: display state %q", ErrInvalidArgument, cmd.Display)
	}
	ns := s
	ns.Display = cmd.Display
	return []Event{{Type: EvtDisplayState, To: ToTV, Data: types.DisplayState{State: string(cmd.Display)}}}, ns, nil
}

func timerStart(s State, cmd Command) ([]Event, State, error) {
	if s.Status != StatusActive {
		return nil, s, invalid(s, "start the timer")
	}
	secs := cmd.Seconds
	if secs <= 0 {
		secs = s.Rules.DefaultTimeLimit
	}
	if secs <= 0 {
		return nil, s, fmt.Errorf("%w: timer needs a positive duration", ErrInvalidArgument)
	}

	ns := s
	ns.Question.TimerRunning = true
	ns.Question.TimerSeconds = secs
	ns.Question.TimerDeadline = cmd.At.Add(time.Duration(secs) * time.Second)
	return []Event{{Type: EvtTimerStarted, To: ToAll, Data: types.Timer{
		QuestionIndex: ns.QuestionIndex,
		Seconds:       secs,
		Deadline:      ns.Question.TimerDeadline,
	}}}, ns, nil
}

func timerStop(s State) ([]Event, State, error) {
	ns := s
	return ns.stopTimer(), ns, nil
}

// timerExpire is fed back by the session actor. A fire for a question the
// cursor has already left is dropped.
func timerExpire(s State, cmd Command) ([]Event, State, error) {
	if !s.Question.TimerRunning || cmd.Index != s.QuestionIndex {
		return nil, s, nil
	}
	ns := s
	ns.Question.TimerRunning = false
	events := []Event{{Type: EvtTimerExpired, To: ToAll, Data: types.Timer{QuestionIndex: ns.QuestionIndex}}}
	events = append(events, ns.resolveClosest()...)
	return events, ns, nil
}

// move points the cursor at idx. Pending guesses on the question being left
// are settled before the in-flight state is dropped.
func (s *State) move(idx int) []Event {
	events := s.resolveClosest()
	events = append(events, s.stopTimer()...)
	s.setCursor(idx)
	return append(events, questionChangedEvent(*s))
}

// setCursor re-derives the round from the index on every change rather
// than tracking it separately.
func (s *State) setCursor(idx int) {
	s.QuestionIndex = idx
	s.RoundIndex = 0
	if pos, ok := content.Locate(s.Content, idx); ok {
		s.RoundIndex = pos.Round
	}
	s.Revealed = false
	s.Question = newInFlight()
	if s.Status != StatusWaiting {
		s.Visited[idx] = true
	}
}

func (s *State) stopTimer() []Event {
	if !s.Question.TimerRunning {
		return nil
	}
	s.Question.TimerRunning = false
	return []Event{{Type: EvtTimerStopped, To: ToAll, Data: types.Timer{QuestionIndex: s.QuestionIndex}}}
}

func newInFlight() InFlight {
	return InFlight{
		Answers: map[string]string{},
		Guesses: map[string]float64{},
	}
}
