package engine

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

// Leaderboard ranks by score, then correct answers, then join order.
func Leaderboard(s State) []types.LeaderboardEntry {
	players := make([]types.Player, len(s.Players))
	copy(players, s.Players)
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].CorrectAnswers > players[j].CorrectAnswers
	})

	board := make([]types.LeaderboardEntry, len(players))
	for i, p := range players {
		board[i] = types.LeaderboardEntry{
			Rank:           i + 1,
			PlayerID:       p.ID,
			Name:           p.Name,
			Score:          p.Score,
			CorrectAnswers: p.CorrectAnswers,
			Eliminated:     p.Eliminated,
		}
	}
	return board
}

func leaderboardEvent(s State) Event {
	return Event{Type: EvtLeaderboard, To: ToDirector | ToTV, Data: Leaderboard(s)}
}

func questionChangedEvent(s State) Event {
	qc := types.QuestionChanged{
		QuestionIndex:  s.QuestionIndex,
		RoundIndex:     s.RoundIndex,
		TotalQuestions: content.Total(s.Content),
		Question:       currentQuestion(s),
	}
	if pos, ok := content.Locate(s.Content, s.QuestionIndex); ok {
		qc.IndexInRound = pos.Index
	}
	if m, ok := s.Content.(*content.Mix); ok && s.RoundIndex < len(m.Rounds) {
		r := m.Rounds[s.RoundIndex]
		qc.RoundNumber = r.Number
		qc.RoundName = r.Name
		qc.RoundFormat = string(r.Format())
	}
	return Event{Type: EvtQuestionChanged, To: ToAll, Data: qc}
}

func currentQuestion(s State) *types.Question {
	if s.Status == StatusWaiting {
		return nil
	}
	u, ok := content.Extract(s.Content, s.QuestionIndex)
	if !ok {
		return nil
	}
	p := u.Prompt()
	return &types.Question{Text: p.Text, Category: p.Category, Choices: p.Choices, Value: p.Value}
}

// View renders the snapshot a client of the given audience may see.
// Players never receive the pack, which carries the answers.
func View(s State, to Audience) types.Session {
	v := types.Session{
		ID:                   s.ID,
		Code:                 s.Code,
		Name:                 s.Name,
		Host:                 s.Host,
		Venue:                s.Venue,
		GameFormat:           string(s.Format),
		Status:               string(s.Status),
		CurrentQuestionIndex: s.QuestionIndex,
		CurrentRoundIndex:    s.RoundIndex,
		CurrentRound:         s.RoundIndex + 1,
		AnswerRevealed:       s.Revealed,
		TotalQuestions:       content.Total(s.Content),
		Display:              string(s.Display),
		Question:             currentQuestion(s),
		Players:              append([]types.Player{}, s.Players...),
		PlayersCount:         len(s.Players),
		CreatedAt:            s.CreatedAt,
		StartedAt:            timePtr(s.StartedAt),
		FinishedAt:           timePtr(s.FinishedAt),
	}
	for i := range s.Visited {
		v.VisitedQuestions = append(v.VisitedQuestions, i)
	}
	sort.Ints(v.VisitedQuestions)

	if s.Content != nil && to != ToPlayers {
		if raw, err := json.Marshal(s.Content); err == nil {
			v.Content = raw
		}
	}
	return v
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
