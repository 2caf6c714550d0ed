package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Envelope is the single WebSocket frame shape in both directions:
//
//	{"event": "question:changed", "data": {"question_index": 3}}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, data any) (Envelope, error) {
	if data == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Decode unmarshals Data into v. An absent payload leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Client -> Server

type SubmitAnswer struct {
	Answer        any     `json:"answer"`
	TimeTaken     float64 `json:"time_taken"`
	QuestionIndex *int    `json:"question_index,omitempty"`
}

// Text renders the answer as the engine judges it: strings as given,
// numbers without exponent or trailing zeros.
func (a SubmitAnswer) Text() string {
	switch v := a.Answer.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

type GotoQuestion struct {
	Index int `json:"index"`
}

type RevealRequest struct {
	Revealed *bool `json:"revealed,omitempty"`
}

type EliminateRequest struct {
	PlayerID string `json:"player_id"`
}

type TimerRequest struct {
	Seconds int `json:"seconds"`
}

type ScoreAdjustment struct {
	PlayerID string `json:"player_id"`
	Points   int    `json:"points"`
	Correct  *bool  `json:"correct,omitempty"`
}

// CountsCorrect reports whether the award counts as a correct answer;
// an omitted flag does.
func (a ScoreAdjustment) CountsCorrect() bool { return a.Correct == nil || *a.Correct }

type SurveyRevealRequest struct {
	AnswerIndex int `json:"answer_index"`
}

// Server -> Client

type Player struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	Eliminated     bool      `json:"eliminated"`
	Connected      bool      `json:"connected"`
	JoinedAt       time.Time `json:"joined_at"`
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	PlayerID       string `json:"player_id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correct_answers"`
	Eliminated     bool   `json:"eliminated,omitempty"`
}

// Question is the player-safe rendering of the current unit.
type Question struct {
	Text     string            `json:"text"`
	Category string            `json:"category,omitempty"`
	Choices  map[string]string `json:"choices,omitempty"`
	Value    int               `json:"value,omitempty"`
}

type Session struct {
	ID                   string          `json:"id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	Host                 string          `json:"host"`
	Venue                string          `json:"venue"`
	GameFormat           string          `json:"game_format"`
	Status               string          `json:"status"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	CurrentRoundIndex    int             `json:"current_round_index"`
	CurrentRound         int             `json:"current_round"`
	AnswerRevealed       bool            `json:"answer_revealed"`
	TotalQuestions       int             `json:"total_questions"`
	Display              string          `json:"display_state"`
	Question             *Question       `json:"question,omitempty"`
	VisitedQuestions     []int           `json:"visited_questions,omitempty"`
	Content              json.RawMessage `json:"content,omitempty"`
	Players              []Player        `json:"players"`
	PlayersCount         int             `json:"players_count"`
	CreatedAt            time.Time       `json:"created_at"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	FinishedAt           *time.Time      `json:"finished_at,omitempty"`
}

type GameStarted struct {
	GameCode string `json:"game_code"`
}

type QuestionChanged struct {
	QuestionIndex  int       `json:"question_index"`
	RoundIndex     int       `json:"round_index"`
	RoundNumber    int       `json:"round_number,omitempty"`
	RoundName      string    `json:"round_name,omitempty"`
	RoundFormat    string    `json:"round_format,omitempty"`
	IndexInRound   int       `json:"index_in_round"`
	TotalQuestions int       `json:"total_questions"`
	Question       *Question `json:"question,omitempty"`
}

type AnswerRevealed struct {
	Revealed      bool `json:"revealed"`
	QuestionIndex int  `json:"question_index"`
	CorrectAnswer any  `json:"correct_answer,omitempty"`
}

type GameFinished struct {
	Winner           *LeaderboardEntry  `json:"winner"`
	FinalLeaderboard []LeaderboardEntry `json:"final_leaderboard"`
}

type ContentLoaded struct {
	GameFormat     string `json:"game_format"`
	TotalQuestions int    `json:"total_questions"`
}

type PlayerJoined struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	PlayersCount int    `json:"players_count"`
}

type PlayerAnswered struct {
	PlayerID      string  `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	Answer        string  `json:"answer"`
	TimeTaken     float64 `json:"time_taken"`
	QuestionIndex int     `json:"question_index"`
}

type PlayerEliminated struct {
	PlayerID string `json:"player_id"`
}

// AnswerResult is returned to the submitting player only. Pending is set
// for guesses adjudicated after every player has answered.
type AnswerResult struct {
	Accepted      bool   `json:"accepted"`
	Reason        string `json:"reason,omitempty"`
	Pending       bool   `json:"pending,omitempty"`
	Correct       bool   `json:"correct"`
	PointsEarned  int    `json:"points_earned"`
	NewScore      int    `json:"new_score"`
	QuestionIndex int    `json:"question_index"`
	CorrectAnswer any    `json:"correct_answer,omitempty"`
}

type DisplayState struct {
	State string `json:"state"`
}

type Timer struct {
	QuestionIndex int       `json:"question_index"`
	Seconds       int       `json:"seconds,omitempty"`
	Deadline      time.Time `json:"deadline,omitempty"`
}

type SurveyAnswerRevealed struct {
	AnswerIndex int    `json:"answer_index"`
	Answer      string `json:"answer"`
	Percent     int    `json:"percent"`
}

type SurveyStrike struct {
	Strikes    int `json:"strikes"`
	MaxStrikes int `json:"max_strikes"`
}

type Buzzer struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Timestamp  time.Time `json:"timestamp"`
}

type AnswerDistribution struct {
	QuestionIndex int            `json:"question_index"`
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// REST

// GamePack is a saved, reusable bundle of game content.
type GamePack struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Format         string          `json:"format"`
	Tags           []string        `json:"tags"`
	TotalQuestions int             `json:"total_questions"`
	Content        json.RawMessage `json:"content,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
