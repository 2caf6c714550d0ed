package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

var ErrInvalidTransition = errors.New("invalid transition")
var ErrNotFound = errors.New("not found")
var ErrPlayerNotFound = fmt.Errorf("player %w", ErrNotFound)
var ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
var ErrStaleSubmission = errors.New("stale submission")
var ErrDuplicateSubmission = errors.New("duplicate submission")
var ErrPlayerEliminated = errors.New("player eliminated")
var ErrInvalidName = errors.New("player name must be 1-20 characters")
var ErrNameTaken = errors.New("player name already taken")
var ErrInvalidArgument = errors.New("invalid argument")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

type Display string

const (
	DisplayLobby       Display = "lobby"
	DisplayQuestion    Display = "question"
	DisplayLeaderboard Display = "leaderboard"
	DisplayFinal       Display = "final"
)

func (d Display) Valid() bool {
	switch d {
	case DisplayLobby, DisplayQuestion, DisplayLeaderboard, DisplayFinal:
		return true
	}
	return false
}

type Rules struct {
	SpeedBonus       bool
	DefaultTimeLimit int // seconds
}

type AnswerKey struct {
	PlayerID string `json:"player_id"`
	Index    int    `json:"index"`
}

// InFlight is per-question state. It is discarded whenever the cursor
// moves; the scored set is not.
type InFlight struct {
	Answers        map[string]string
	Guesses        map[string]float64
	GuessOrder     []string
	Resolved       bool
	Buzzer         string
	Strikes        int
	SurveyRevealed []int
	TimerRunning   bool
	TimerSeconds   int
	TimerDeadline  time.Time
}

type State struct {
	ID     string
	Code   string
	Name   string
	Host   string
	Venue  string
	Format content.Format
	Status Status

	Content       content.Game
	QuestionIndex int
	RoundIndex    int
	Revealed      bool
	Display       Display

	Players  []types.Player
	Scored   map[AnswerKey]bool
	Visited  map[int]bool
	Question InFlight
	Rules    Rules

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

type CommandType string

const (
	CmdStart           CommandType = "game:start"
	CmdPause           CommandType = "game:pause"
	CmdResume          CommandType = "game:resume"
	CmdFinish          CommandType = "game:finish"
	CmdNext            CommandType = "question:next"
	CmdPrevious        CommandType = "question:previous"
	CmdGoto            CommandType = "question:goto"
	CmdReveal          CommandType = "answer:reveal"
	CmdLoadContent     CommandType = "content:load"
	CmdJoin            CommandType = "player:join"
	CmdEliminate       CommandType = "player:eliminate"
	CmdAdjustScore     CommandType = "player:score"
	CmdPresence        CommandType = "player:presence"
	CmdSubmitAnswer    CommandType = "answer:submit"
	CmdBuzz            CommandType = "buzzer:press"
	CmdShowLeaderboard CommandType = "leaderboard:show"
	CmdDisplay         CommandType = "display:state"
	CmdTimerStart      CommandType = "timer:start"
	CmdTimerStop       CommandType = "timer:stop"
	CmdTimerExpire     CommandType = "timer:expire"
	CmdSurveyReveal    CommandType = "survey:reveal"
	CmdSurveyStrike    CommandType = "survey:strike"
)

/*
	CmdStart        -> EvtStarted -> EvtQuestionChanged
	CmdNext         -> [EvtAnswerResult...] -> EvtQuestionChanged, or the CmdFinish chain on the last question
	CmdFinish       -> [EvtAnswerResult...] -> EvtFinished -> EvtLeaderboard
	CmdSubmitAnswer -> EvtPlayerAnswered -> EvtDistribution -> EvtAnswerResult -> EvtLeaderboard
	CmdTimerStart   -> EvtTimerStarted; the session actor arms the timer and feeds back CmdTimerExpire
*/

// CurrentQuestion as a submission index means "whatever is on screen".
const CurrentQuestion = -1

type Command struct {
	Type      CommandType
	PlayerID  string
	Name      string
	Index     int
	Answer    string
	TimeTaken float64
	Content   content.Game
	Points    int
	Correct   bool
	Seconds   int
	Display   Display
	Reveal    *bool
	Connected bool
	At        time.Time
}

type EventType string

const (
	EvtStarted              EventType = "game:started"
	EvtPaused               EventType = "game:paused"
	EvtResumed              EventType = "game:resumed"
	EvtFinished             EventType = "game:finished"
	EvtQuestionChanged      EventType = "question:changed"
	EvtAnswerRevealed       EventType = "answer:revealed"
	EvtContentLoaded        EventType = "content:loaded"
	EvtPlayerJoined         EventType = "player:joined"
	EvtPlayerAnswered       EventType = "player:answered"
	EvtPlayerEliminated     EventType = "player:eliminated"
	EvtAnswerResult         EventType = "answer:result"
	EvtDistribution         EventType = "answer:distribution"
	EvtLeaderboard          EventType = "leaderboard:update"
	EvtDisplayState         EventType = "display:state"
	EvtTimerStarted         EventType = "timer:started"
	EvtTimerStopped         EventType = "timer:stopped"
	EvtTimerExpired         EventType = "timer:expired"
	EvtSurveyAnswerRevealed EventType = "survey:answer_revealed"
	EvtSurveyStrike         EventType = "survey:strike"
	EvtBuzzerPressed        EventType = "buzzer:pressed"
	EvtBuzzerWinner         EventType = "buzzer:winner"
)

type Audience uint8

const (
	ToDirector Audience = 1 << iota
	ToTV
	ToPlayers
	ToAll = ToDirector | ToTV | ToPlayers
)

func (a Audience) Has(b Audience) bool { return a&b != 0 }

// Event is one outbound message. When PlayerID is set only that player
// (among ToPlayers) receives it.
type Event struct {
	Type     EventType
	To       Audience
	PlayerID string
	Data     any
}

// Apply is pure: on error the returned state is s, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	events, ns, err := apply(s.clone(), cmd)
	if err != nil {
		return nil, s, err
	}
	return events, ns, nil
}

func apply(s State, cmd Command) ([]Event, State, error) {
	if s.Status == StatusFinished {
		switch cmd.Type {
		case CmdShowLeaderboard, CmdPresence:
		default:
			return nil, s, fmt.Errorf("%w: game already finished", ErrInvalidTransition)
		}
	}

	switch cmd.Type {
	case CmdStart:
		return start(s, cmd)
	case CmdPause:
		return pause(s)
	case CmdResume:
		return resume(s)
	case CmdFinish:
		return finish(s, cmd)
	case CmdNext:
		return next(s, cmd)
	case CmdPrevious:
		return previous(s)
	case CmdGoto:
		return gotoQuestion(s, cmd)
	case CmdReveal:
		return reveal(s, cmd)
	case CmdLoadContent:
		return loadContent(s, cmd)
	case CmdJoin:
		return join(s, cmd)
	case CmdEliminate:
		return eliminate(s, cmd)
	case CmdAdjustScore:
		return adjustScore(s, cmd)
	case CmdPresence:
		return presence(s, cmd)
	case CmdSubmitAnswer:
		return submitAnswer(s, cmd)
	case CmdBuzz:
		return buzz(s, cmd)
	case CmdShowLeaderboard:
		return []Event{leaderboardEvent(s)}, s, nil
	case CmdDisplay:
		return display(s, cmd)
	case CmdTimerStart:
		return timerStart(s, cmd)
	case CmdTimerStop:
		return timerStop(s)
	case CmdTimerExpire:
		return timerExpire(s, cmd)
	case CmdSurveyReveal:
		return surveyReveal(s, cmd)
	case CmdSurveyStrike:
		return surveyStrike(s)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func invalid(s State, action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, s.Status)
}

// clone copies everything a handler may mutate in place.
func (s State) clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Scored = maps.Clone(s.Scored)
	if c.Scored == nil {
		c.Scored = map[AnswerKey]bool{}
	}
	c.Visited = maps.Clone(s.Visited)
	if c.Visited == nil {
		c.Visited = map[int]bool{}
	}
	c.Question = s.Question.clone()
	return c
}

func (q InFlight) clone() InFlight {
	c := q
	c.Answers = maps.Clone(q.Answers)
	if c.Answers == nil {
		c.Answers = map[string]string{}
	}
	c.Guesses = maps.Clone(q.Guesses)
	if c.Guesses == nil {
		c.Guesses = map[string]float64{}
	}
	c.GuessOrder = slices.Clone(q.GuessOrder)
	c.SurveyRevealed = slices.Clone(q.SurveyRevealed)
	return c
}
