package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

var t0 = time.Date(2025, 6, 6, 20, 0, 0, 0, time.UTC)

func choice(text, correct string) content.Choice {
	return content.Choice{
		QuestionText:  text,
		Choices:       map[string]string{"A": "alpha", "B": "bravo", "C": "charlie"},
		CorrectAnswer: correct,
	}
}

func live(n int) *content.PKWYLive {
	g := &content.PKWYLive{}
	for i := 0; i < n; i++ {
		g.Questions = append(g.Questions, content.LiveQuestion{Choice: choice("q", "A")})
	}
	return g
}

func millionaire(points ...int) *content.UrFinalAnswer {
	g := &content.UrFinalAnswer{}
	for _, p := range points {
		g.Questions = append(g.Questions, content.MillionaireQuestion{Choice: choice("q", "A"), PointValue: p})
	}
	return g
}

// mix builds a composite pack whose rounds contribute the given counts.
func mix(counts ...int) *content.Mix {
	m := &content.Mix{}
	for i, n := range counts {
		r := content.Round{Number: i + 1, Name: "round"}
		if n > 0 {
			r.Game = live(n)
		}
		m.Rounds = append(m.Rounds, r)
	}
	return m
}

func newGame(t *testing.T, g content.Game, players ...string) State {
	t.Helper()
	s := NewState(Meta{ID: "id", Code: "ABC123", Format: g.Format()}, Rules{DefaultTimeLimit: 30}, t0)
	s = mustApply(t, s, Command{Type: CmdLoadContent, Content: g})
	for _, p := range players {
		s = mustApply(t, s, Command{Type: CmdJoin, PlayerID: p, Name: p, At: t0})
	}
	return s
}

func started(t *testing.T, g content.Game, players ...string) State {
	t.Helper()
	return mustApply(t, newGame(t, g, players...), Command{Type: CmdStart, At: t0})
}

func mustApply(t *testing.T, s State, cmd Command) State {
	t.Helper()
	_, ns, err := Apply(s, cmd)
	require.NoError(t, err, "apply %s", cmd.Type)
	return ns
}

func answer(id string, idx int, a string) Command {
	return Command{Type: CmdSubmitAnswer, PlayerID: id, Index: idx, Answer: a}
}

func score(t *testing.T, s State, id string) int {
	t.Helper()
	p, err := s.player(id)
	require.NoError(t, err)
	return p.Score
}

func TestIllegalTransitionsDoNotMutate(t *testing.T) {
	waiting := newGame(t, live(3))
	active := started(t, live(3))
	finished := mustApply(t, active, Command{Type: CmdFinish})

	cases := []struct {
		name  string
		setup State
		cmd   Command
	}{
		{"next while waiting", waiting, Command{Type: CmdNext}},
		{"previous while waiting", waiting, Command{Type: CmdPrevious}},
		{"start while active", active, Command{Type: CmdStart}},
		{"resume while active", active, Command{Type: CmdResume}},
		{"pause while waiting", waiting, Command{Type: CmdPause}},
		{"reveal while waiting", waiting, Command{Type: CmdReveal}},
		{"load content while active", active, Command{Type: CmdLoadContent, Content: live(1)}},
		{"anything after finish", finished, Command{Type: CmdStart}},
		{"finish twice", finished, Command{Type: CmdFinish}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, ns, err := Apply(tc.setup, tc.cmd)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Empty(t, events)
			assert.Equal(t, tc.setup, ns)
		})
	}
}

func TestStartRequiresContent(t *testing.T) {
	s := NewState(Meta{Format: content.FormatPKWYLive}, Rules{}, t0)
	_, _, err := Apply(s, Command{Type: CmdStart})
	require.ErrorIs(t, err, ErrInvalidTransition)

	s = mustApply(t, s, Command{Type: CmdLoadContent, Content: &content.PKWYLive{}})
	_, _, err = Apply(s, Command{Type: CmdStart})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStart(t *testing.T) {
	events, s, err := Apply(newGame(t, live(2)), Command{Type: CmdStart, At: t0})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, 0, s.QuestionIndex)
	assert.Equal(t, 0, s.RoundIndex)
	assert.False(t, s.Revealed)
	assert.Equal(t, t0, s.StartedAt)
	require.Len(t, events, 2)
	assert.Equal(t, EvtStarted, events[0].Type)
	assert.Equal(t, EvtQuestionChanged, events[1].Type)
	assert.Equal(t, ToAll, events[1].To)
}

func TestCompositeTraversal(t *testing.T) {
	s := started(t, mix(2, 0, 3))
	total := content.Total(s.Content)
	require.Equal(t, 5, total)

	type pos struct{ index, round int }
	want := []pos{{0, 0}, {1, 0}, {2, 2}, {3, 2}, {4, 2}}

	assert.Equal(t, want[0], pos{s.QuestionIndex, s.RoundIndex})
	for i := 1; i < len(want); i++ {
		events, ns, err := Apply(s, Command{Type: CmdNext})
		require.NoError(t, err)
		s = ns
		assert.Equal(t, want[i], pos{s.QuestionIndex, s.RoundIndex}, "after next #%d", i)
		assert.Equal(t, total, content.Total(s.Content))

		qc := EventsOf(events, EvtQuestionChanged)
		require.Len(t, qc, 1)
		assert.Equal(t, s.QuestionIndex, qc[0].Data.(types.QuestionChanged).QuestionIndex)
	}

	events, s, err := Apply(s, Command{Type: CmdNext})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, s.Status)
	assert.Equal(t, 4, s.QuestionIndex)
	assert.True(t, ContainsEvent(events, EvtFinished))
	assert.False(t, ContainsEvent(events, EvtQuestionChanged))
}

func TestRoundBoundaryRoundTrips(t *testing.T) {
	m := mix(3, 0, 1, 0, 4)
	s := started(t, m)
	for {
		pos, ok := content.Locate(s.Content, s.QuestionIndex)
		require.True(t, ok)
		assert.Equal(t, s.RoundIndex, pos.Round)
		assert.Equal(t, s.QuestionIndex, m.RoundStart(pos.Round)+pos.Index)

		if s.QuestionIndex == content.Total(m)-1 {
			break
		}
		s = mustApply(t, s, Command{Type: CmdNext})
	}
}

func TestPreviousClampsAtZero(t *testing.T) {
	s := started(t, live(3))
	events, ns, err := Apply(s, Command{Type: CmdPrevious})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, ns.QuestionIndex)

	ns = mustApply(t, ns, Command{Type: CmdNext})
	ns = mustApply(t, ns, Command{Type: CmdReveal})
	require.True(t, ns.Revealed)
	ns = mustApply(t, ns, Command{Type: CmdPrevious})
	assert.Equal(t, 0, ns.QuestionIndex)
	assert.False(t, ns.Revealed)
}

func TestGoto(t *testing.T) {
	s := started(t, live(4))

	s = mustApply(t, s, Command{Type: CmdGoto, Index: 3})
	assert.Equal(t, 3, s.QuestionIndex)
	assert.True(t, s.Visited[0])
	assert.True(t, s.Visited[3])
	assert.False(t, s.Visited[1])

	_, _, err := Apply(s, Command{Type: CmdGoto, Index: 4})
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = Apply(s, Command{Type: CmdGoto, Index: -1})
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestRevealTogglesWithoutMovingCursor(t *testing.T) {
	s := started(t, live(2))
	for _, st := range []Status{StatusActive, StatusPaused} {
		if st == StatusPaused {
			s = mustApply(t, s, Command{Type: CmdPause})
		}
		events, ns, err := Apply(s, Command{Type: CmdReveal})
		require.NoError(t, err)
		assert.True(t, ns.Revealed)
		assert.Equal(t, s.QuestionIndex, ns.QuestionIndex)
		data := EventsOf(events, EvtAnswerRevealed)[0].Data.(types.AnswerRevealed)
		assert.Equal(t, "A", data.CorrectAnswer)

		ns = mustApply(t, ns, Command{Type: CmdReveal})
		assert.False(t, ns.Revealed)
	}

	off := false
	ns := mustApply(t, s, Command{Type: CmdReveal, Reveal: &off})
	assert.False(t, ns.Revealed)
}

func TestDuplicateSubmissionScoresOnce(t *testing.T) {
	s := started(t, millionaire(200, 300), "p1", "p2")

	for _, id := range []string{"p1", "p2"} {
		s = mustApply(t, s, answer(id, 0, "A"))
		events, ns, err := Apply(s, answer(id, 0, "A"))
		require.ErrorIs(t, err, ErrDuplicateSubmission)
		assert.Empty(t, events)
		s = ns
	}

	assert.Equal(t, 200, score(t, s, "p1"))
	assert.Equal(t, 200, score(t, s, "p2"))
}

func TestStaleSubmissionNeverScores(t *testing.T) {
	s := started(t, millionaire(200, 300), "p1")
	s = mustApply(t, s, Command{Type: CmdNext})

	_, ns, err := Apply(s, answer("p1", 0, "A"))
	require.ErrorIs(t, err, ErrStaleSubmission)
	assert.Equal(t, 0, score(t, ns, "p1"))

	ns = mustApply(t, ns, answer("p1", CurrentQuestion, "A"))
	assert.Equal(t, 300, score(t, ns, "p1"))
}

func TestScoredSetSurvivesNavigation(t *testing.T) {
	s := started(t, millionaire(200, 300), "p1")
	s = mustApply(t, s, answer("p1", 0, "A"))
	s = mustApply(t, s, Command{Type: CmdNext})
	s = mustApply(t, s, Command{Type: CmdPrevious})

	_, _, err := Apply(s, answer("p1", 0, "A"))
	require.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestAnswerWhilePausedIsScored(t *testing.T) {
	s := started(t, millionaire(200), "p1")
	s = mustApply(t, s, Command{Type: CmdPause})

	_, _, err := Apply(s, Command{Type: CmdNext})
	require.ErrorIs(t, err, ErrInvalidTransition)

	events, s, err := Apply(s, answer("p1", 0, "a"))
	require.NoError(t, err)
	assert.Equal(t, 200, score(t, s, "p1"))

	results := EventsOf(events, EvtAnswerResult)
	require.Len(t, results, 1)
	assert.Equal(t, ToPlayers, results[0].To)
	assert.Equal(t, "p1", results[0].PlayerID)
	assert.True(t, results[0].Data.(types.AnswerResult).Correct)
	assert.True(t, ContainsEvent(events, EvtLeaderboard))
}

func TestSubmitAnswerRejections(t *testing.T) {
	waiting := newGame(t, live(2), "p1")
	active := started(t, live(2), "p1")

	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{"unknown player", active, answer("ghost", 0, "A"), ErrPlayerNotFound},
		{"not started", waiting, answer("p1", 0, "A"), ErrInvalidTransition},
		{"stale index", active, answer("p1", 1, "A"), ErrStaleSubmission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ns, err := Apply(tc.setup, tc.cmd)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.setup, ns)
		})
	}
}

func TestWrongAnswer(t *testing.T) {
	s := started(t, live(1), "p1")
	events, s, err := Apply(s, answer("p1", 0, "B"))
	require.NoError(t, err)

	assert.Equal(t, 0, score(t, s, "p1"))
	res := EventsOf(events, EvtAnswerResult)[0].Data.(types.AnswerResult)
	assert.True(t, res.Accepted)
	assert.False(t, res.Correct)
	assert.False(t, ContainsEvent(events, EvtPlayerEliminated))
}

func TestLastCallEliminatesOnWrongAnswer(t *testing.T) {
	g := &content.LastCallStanding{Questions: []content.LastCallQuestion{
		{Choice: choice("q0", "A"), Difficulty: 2},
		{Choice: choice("q1", "A"), Difficulty: 3},
	}}
	s := started(t, g, "p1", "p2")

	events, s, err := Apply(s, answer("p1", 0, "C"))
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtPlayerEliminated))
	s = mustApply(t, s, answer("p2", 0, "A"))
	assert.Equal(t, 200, score(t, s, "p2"))

	s = mustApply(t, s, Command{Type: CmdNext})
	_, _, err = Apply(s, answer("p1", 1, "A"))
	require.ErrorIs(t, err, ErrPlayerEliminated)
}

func TestLeaderboardTieBreak(t *testing.T) {
	s := State{Players: []types.Player{
		{ID: "a", Score: 50, CorrectAnswers: 1},
		{ID: "b", Score: 100, CorrectAnswers: 1},
		{ID: "c", Score: 100, CorrectAnswers: 2},
	}}
	board := Leaderboard(s)

	require.Len(t, board, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{board[0].PlayerID, board[1].PlayerID, board[2].PlayerID})
	assert.Equal(t, []int{1, 2, 3}, []int{board[0].Rank, board[1].Rank, board[2].Rank})
}

func TestLeaderboardFullTieKeepsJoinOrder(t *testing.T) {
	s := State{Players: []types.Player{{ID: "x", Score: 10}, {ID: "y", Score: 10}}}
	board := Leaderboard(s)
	assert.Equal(t, "x", board[0].PlayerID)
	assert.Equal(t, "y", board[1].PlayerID)
}

func TestFinishCarriesLeaderboard(t *testing.T) {
	s := started(t, millionaire(200), "p1", "p2")
	s = mustApply(t, s, answer("p2", 0, "A"))

	events, s, err := Apply(s, Command{Type: CmdFinish, At: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, s.Status)
	assert.Equal(t, DisplayFinal, s.Display)

	fin := EventsOf(events, EvtFinished)[0]
	assert.Equal(t, ToAll, fin.To)
	data := fin.Data.(types.GameFinished)
	require.NotNil(t, data.Winner)
	assert.Equal(t, "p2", data.Winner.PlayerID)
	assert.Len(t, data.FinalLeaderboard, 2)
}

func TestFinishFromWaiting(t *testing.T) {
	s := mustApply(t, newGame(t, live(1)), Command{Type: CmdFinish})
	assert.Equal(t, StatusFinished, s.Status)
}

func TestJoin(t *testing.T) {
	s := newGame(t, live(1), "Ann")

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"empty name", Command{Type: CmdJoin, PlayerID: "2", Name: "   "}, ErrInvalidName},
		{"too long", Command{Type: CmdJoin, PlayerID: "2", Name: "abcdefghijklmnopqrstu"}, ErrInvalidName},
		{"name taken ignoring case", Command{Type: CmdJoin, PlayerID: "2", Name: "ann"}, ErrNameTaken},
		{"missing id", Command{Type: CmdJoin, Name: "Bob"}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(s, tc.cmd)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	events, ns, err := Apply(s, Command{Type: CmdJoin, PlayerID: "2", Name: " Bob "})
	require.NoError(t, err)
	assert.Len(t, ns.Players, 2)
	assert.Equal(t, "Bob", ns.Players[1].Name)
	assert.Equal(t, 2, events[0].Data.(types.PlayerJoined).PlayersCount)
	assert.Len(t, s.Players, 1, "input state must not change")

	paused := mustApply(t, mustApply(t, s, Command{Type: CmdStart}), Command{Type: CmdPause})
	_, _, err = Apply(paused, Command{Type: CmdJoin, PlayerID: "3", Name: "Cy"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestLoadContent(t *testing.T) {
	t.Run("format must match", func(t *testing.T) {
		s := NewState(Meta{Format: content.FormatPeril}, Rules{}, t0)
		_, _, err := Apply(s, Command{Type: CmdLoadContent, Content: live(2)})
		require.ErrorIs(t, err, content.ErrMalformedContent)
	})

	t.Run("paused reload resets cursor keeps scores", func(t *testing.T) {
		s := started(t, millionaire(200, 100), "p1")
		s = mustApply(t, s, answer("p1", 0, "A"))
		s = mustApply(t, s, Command{Type: CmdNext})
		s = mustApply(t, s, Command{Type: CmdPause})

		s = mustApply(t, s, Command{Type: CmdLoadContent, Content: millionaire(500)})
		assert.Equal(t, 0, s.QuestionIndex)
		assert.Equal(t, 200, score(t, s, "p1"))

		s = mustApply(t, s, answer("p1", 0, "A"))
		assert.Equal(t, 700, score(t, s, "p1"))
	})

	t.Run("paused reload rejects empty pack", func(t *testing.T) {
		s := mustApply(t, started(t, live(1)), Command{Type: CmdPause})
		_, _, err := Apply(s, Command{Type: CmdLoadContent, Content: &content.PKWYLive{}})
		require.ErrorIs(t, err, content.ErrMalformedContent)
	})
}

func closest(over bool) *content.ClosestWins {
	return &content.ClosestWins{Numbers: []content.ClosestQuestion{
		{QuestionText: "how many", CorrectNumber: 100, OverRule: over},
		{QuestionText: "again", CorrectNumber: 10},
	}}
}

func TestClosestResolvesWhenEveryoneAnswered(t *testing.T) {
	s := started(t, closest(false), "p1", "p2", "p3")

	events, s, err := Apply(s, answer("p1", 0, "90"))
	require.NoError(t, err)
	res := EventsOf(events, EvtAnswerResult)[0].Data.(types.AnswerResult)
	assert.True(t, res.Pending)

	s = mustApply(t, s, answer("p2", 0, "110"))
	events, s, err = Apply(s, answer("p3", 0, "1,000"))
	require.NoError(t, err)

	assert.Len(t, EventsOf(events, EvtAnswerResult), 4, "p3's pending result plus one verdict per guesser")
	assert.Equal(t, 500, score(t, s, "p1"))
	assert.Equal(t, 500, score(t, s, "p2"))
	assert.Equal(t, 0, score(t, s, "p3"))
	assert.True(t, s.Question.Resolved)
}

func TestClosestOverRule(t *testing.T) {
	s := started(t, closest(true), "p1", "p2")
	s = mustApply(t, s, answer("p1", 0, "101"))
	s = mustApply(t, s, answer("p2", 0, "50"))

	assert.Equal(t, 0, score(t, s, "p1"))
	assert.Equal(t, 500, score(t, s, "p2"))
}

func TestClosestResolvesOnNavigation(t *testing.T) {
	s := started(t, closest(false), "p1", "p2")
	s = mustApply(t, s, answer("p1", 0, "99"))
	require.Equal(t, 0, score(t, s, "p1"))

	events, s, err := Apply(s, Command{Type: CmdNext})
	require.NoError(t, err)
	assert.Equal(t, 500, score(t, s, "p1"))
	assert.True(t, ContainsEvent(events, EvtAnswerResult))
	assert.Equal(t, EvtQuestionChanged, events[len(events)-1].Type)
}

func TestClosestAcceptableRange(t *testing.T) {
	g := &content.ClosestWins{Numbers: []content.ClosestQuestion{
		{QuestionText: "how many", CorrectNumber: 100, AcceptableRange: 5},
	}}
	s := started(t, g, "p1", "p2")
	s = mustApply(t, s, answer("p1", 0, "110"))
	s = mustApply(t, s, answer("p2", 0, "120"))

	assert.True(t, s.Question.Resolved)
	assert.Equal(t, 0, score(t, s, "p1"), "closest guess is still outside the range")
	assert.Equal(t, 0, score(t, s, "p2"))
}

func TestChainWordsHiddenFromPlayers(t *testing.T) {
	g := &content.ChainedUp{Chains: []content.WordChain{
		{ChainTitle: "Red things", Words: []string{"Fire", "Truck", "Stop"}},
	}}
	s := started(t, g, "p1")

	q := View(s, ToPlayers).Question
	require.NotNil(t, q)
	assert.Equal(t, "Red things", q.Text)
	assert.Empty(t, q.Category)
	assert.Empty(t, q.Choices)
}

func TestClosestRejectsNonNumbers(t *testing.T) {
	s := started(t, closest(false), "p1")
	_, _, err := Apply(s, answer("p1", 0, "lots"))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSpeedBonus(t *testing.T) {
	g := millionaire(200)
	s := NewState(Meta{Format: g.Format()}, Rules{SpeedBonus: true, DefaultTimeLimit: 20}, t0)
	s = mustApply(t, s, Command{Type: CmdLoadContent, Content: g})
	s = mustApply(t, s, Command{Type: CmdJoin, PlayerID: "p1", Name: "p1"})
	s = mustApply(t, s, Command{Type: CmdStart})

	cmd := answer("p1", 0, "A")
	cmd.TimeTaken = 10
	s = mustApply(t, s, cmd)
	assert.Equal(t, 250, score(t, s, "p1"))
}

func TestDistributionCountsRealAnswers(t *testing.T) {
	s := started(t, live(1), "p1", "p2", "p3")
	s = mustApply(t, s, answer("p1", 0, "A"))
	s = mustApply(t, s, answer("p2", 0, "b"))
	events, s, err := Apply(s, answer("p3", 0, "a"))
	require.NoError(t, err)

	d := EventsOf(events, EvtDistribution)[0]
	assert.Equal(t, ToDirector|ToTV, d.To)
	assert.Equal(t, types.AnswerDistribution{QuestionIndex: 0, Counts: map[string]int{"A": 2, "B": 1}, Total: 3}, d.Data)
	assert.Equal(t, d.Data, Distribution(s))
}

func TestBuzzerFirstPressWins(t *testing.T) {
	s := started(t, live(2), "p1", "p2")
	events, s, err := Apply(s, Command{Type: CmdBuzz, PlayerID: "p2", At: t0})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtBuzzerWinner))

	events, s, err = Apply(s, Command{Type: CmdBuzz, PlayerID: "p1", At: t0})
	require.NoError(t, err)
	assert.False(t, ContainsEvent(events, EvtBuzzerWinner))
	assert.Equal(t, "p2", s.Question.Buzzer)

	s = mustApply(t, s, Command{Type: CmdNext})
	assert.Empty(t, s.Question.Buzzer)
}

func TestSurveyRevealAndStrikes(t *testing.T) {
	g := &content.SurveySays{SurveyQuestions: []content.SurveyQuestion{{
		Question:   "name a bar snack",
		Answers:    []content.SurveyAnswer{{Answer: "Wings", Percent: 40}, {Answer: "Pretzels", Percent: 25}},
		MaxStrikes: 2,
	}}}
	s := started(t, g, "p1")

	events, s, err := Apply(s, Command{Type: CmdSurveyReveal, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, "Pretzels", events[0].Data.(types.SurveyAnswerRevealed).Answer)
	_, _, err = Apply(s, Command{Type: CmdSurveyReveal, Index: 5})
	require.ErrorIs(t, err, ErrInvalidArgument)

	s = mustApply(t, s, Command{Type: CmdSurveyStrike})
	s = mustApply(t, s, Command{Type: CmdSurveyStrike})
	_, _, err = Apply(s, Command{Type: CmdSurveyStrike})
	require.ErrorIs(t, err, ErrInvalidTransition)

	s = mustApply(t, s, answer("p1", 0, "wings"))
	assert.Equal(t, 40, score(t, s, "p1"))
}

func TestTimer(t *testing.T) {
	s := started(t, closest(false), "p1", "p2")
	s = mustApply(t, s, answer("p1", 0, "100"))

	events, s, err := Apply(s, Command{Type: CmdTimerStart, At: t0})
	require.NoError(t, err)
	assert.Equal(t, 30, events[0].Data.(types.Timer).Seconds)
	assert.Equal(t, t0.Add(30*time.Second), s.Question.TimerDeadline)

	events, ns, err := Apply(s, Command{Type: CmdTimerExpire, Index: 1})
	require.NoError(t, err)
	assert.Empty(t, events, "expiry for another question is ignored")
	assert.True(t, ns.Question.TimerRunning)

	events, s, err = Apply(s, Command{Type: CmdTimerExpire, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, EvtTimerExpired, events[0].Type)
	assert.False(t, s.Question.TimerRunning)
	assert.Equal(t, 500, score(t, s, "p1"))
}

func TestPauseStopsTimer(t *testing.T) {
	s := started(t, live(2))
	s = mustApply(t, s, Command{Type: CmdTimerStart, Seconds: 10, At: t0})
	events, s, err := Apply(s, Command{Type: CmdPause})
	require.NoError(t, err)
	assert.Equal(t, EvtTimerStopped, events[0].Type)
	assert.False(t, s.Question.TimerRunning)
}

func TestAdjustScoreAndEliminate(t *testing.T) {
	s := started(t, live(1), "p1")
	s = mustApply(t, s, Command{Type: CmdAdjustScore, PlayerID: "p1", Points: 75, Correct: true})
	assert.Equal(t, 75, score(t, s, "p1"))
	assert.Equal(t, 1, s.Players[0].CorrectAnswers)

	events, s, err := Apply(s, Command{Type: CmdEliminate, PlayerID: "p1"})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtPlayerEliminated))
	assert.True(t, s.Players[0].Eliminated)

	_, _, err = Apply(s, Command{Type: CmdAdjustScore, PlayerID: "nobody"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustScoreFloorsAtZero(t *testing.T) {
	s := started(t, live(1), "p1", "p2")
	s = mustApply(t, s, Command{Type: CmdAdjustScore, PlayerID: "p1", Points: -500})
	assert.Equal(t, 0, score(t, s, "p1"))

	s = mustApply(t, s, Command{Type: CmdAdjustScore, PlayerID: "p2", Points: 300})
	s = mustApply(t, s, Command{Type: CmdAdjustScore, PlayerID: "p2", Points: -100})
	assert.Equal(t, 200, score(t, s, "p2"))
}

func TestViewHidesContentFromPlayers(t *testing.T) {
	s := started(t, live(2), "p1")

	director := View(s, ToDirector)
	player := View(s, ToPlayers)

	assert.NotEmpty(t, director.Content)
	assert.Empty(t, player.Content)
	require.NotNil(t, player.Question)
	assert.Equal(t, "q", player.Question.Text)
	assert.Equal(t, 2, player.TotalQuestions)
	assert.Equal(t, 1, player.CurrentRound)
	assert.Equal(t, []int{0}, player.VisitedQuestions)
}

func TestDisplayState(t *testing.T) {
	s := newGame(t, live(1))
	_, _, err := Apply(s, Command{Type: CmdDisplay, Display: "bogus"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	events, s, err := Apply(s, Command{Type: CmdDisplay, Display: DisplayLeaderboard})
	require.NoError(t, err)
	assert.Equal(t, DisplayLeaderboard, s.Display)
	assert.Equal(t, ToTV, events[0].To)
}
