package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

const within = 200 * time.Millisecond

// recvEnvelope receives one envelope with a timeout so tests never hang.
func recvEnvelope(t *testing.T, ch <-chan types.Envelope) types.Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return env
	case <-time.After(within):
		t.Fatalf("timed out waiting for envelope")
		return types.Envelope{}
	}
}

func recvEvent(t *testing.T, ch <-chan types.Envelope, event string) types.Envelope {
	t.Helper()
	env := recvEnvelope(t, ch)
	require.Equal(t, event, env.Event)
	return env
}

func recvNothing(t *testing.T, ch <-chan types.Envelope, wait time.Duration) {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected nothing within %v, got %s", wait, env.Event)
	case <-time.After(wait):
	}
}

type memRecorder struct {
	mu     sync.Mutex
	states []engine.State
}

func (r *memRecorder) Record(s engine.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *memRecorder) last() engine.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

func quiz() *content.UrFinalAnswer {
	g := &content.UrFinalAnswer{}
	for _, p := range []int{200, 300} {
		g.Questions = append(g.Questions, content.MillionaireQuestion{
			Choice: content.Choice{
				QuestionText:  "pick A",
				Choices:       map[string]string{"A": "yes", "B": "no"},
				CorrectAnswer: "A",
			},
			PointValue: p,
		})
	}
	return g
}

func newSession(t *testing.T, opts Options, players ...string) *Session {
	t.Helper()
	g := quiz()
	st := engine.NewState(engine.Meta{ID: "sid", Code: "PKWY01", Format: g.Format()}, engine.Rules{DefaultTimeLimit: 30}, time.Now())
	s := New(context.Background(), st, opts)
	t.Cleanup(s.Close)

	ctx := context.Background()
	_, err := s.Do(ctx, engine.Command{Type: engine.CmdLoadContent, Content: g})
	require.NoError(t, err)
	for _, p := range players {
		_, err := s.Do(ctx, engine.Command{Type: engine.CmdJoin, PlayerID: p, Name: p})
		require.NoError(t, err)
	}
	return s
}

func attach(t *testing.T, s *Session, id string, role Role, playerID string) chan types.Envelope {
	t.Helper()
	out := make(chan types.Envelope, 32)
	require.NoError(t, s.Attach(context.Background(), id, role, playerID, out))
	recvEvent(t, out, EvtSessionState)
	return out
}

func TestSession_AttachSendsSnapshotFirst(t *testing.T) {
	s := newSession(t, Options{}, "p1")
	out := make(chan types.Envelope, 4)
	require.NoError(t, s.Attach(context.Background(), "d", RoleDirector, "", out))

	env := recvEvent(t, out, EvtSessionState)
	var view types.Session
	require.NoError(t, env.Decode(&view))
	assert.Equal(t, "PKWY01", view.Code)
	assert.Equal(t, 2, view.TotalQuestions)
	assert.NotEmpty(t, view.Content)

	pout := make(chan types.Envelope, 4)
	require.NoError(t, s.Attach(context.Background(), "p", RolePlayer, "p1", pout))
	var playerView types.Session
	require.NoError(t, recvEvent(t, pout, EvtSessionState).Decode(&playerView))
	assert.Equal(t, "PKWY01", playerView.Code)
	assert.Empty(t, playerView.Content, "players never see the pack")
}

func TestSession_UnknownPlayerCannotAttach(t *testing.T) {
	s := newSession(t, Options{})
	err := s.Attach(context.Background(), "x", RolePlayer, "ghost", make(chan types.Envelope, 1))
	require.ErrorIs(t, err, engine.ErrPlayerNotFound)
}

func TestSession_StartBroadcastsInOrder(t *testing.T) {
	s := newSession(t, Options{}, "p1")
	director := attach(t, s, "d", RoleDirector, "")
	tv := attach(t, s, "tv", RoleTV, "")
	player := attach(t, s, "p", RolePlayer, "p1")

	_, err := s.Do(context.Background(), engine.Command{Type: engine.CmdStart})
	require.NoError(t, err)
	_, err = s.Do(context.Background(), engine.Command{Type: engine.CmdNext})
	require.NoError(t, err)

	for _, ch := range []chan types.Envelope{director, tv, player} {
		recvEvent(t, ch, string(engine.EvtStarted))
		first := recvEvent(t, ch, string(engine.EvtQuestionChanged))
		second := recvEvent(t, ch, string(engine.EvtQuestionChanged))

		var a, b types.QuestionChanged
		require.NoError(t, first.Decode(&a))
		require.NoError(t, second.Decode(&b))
		assert.Equal(t, 0, a.QuestionIndex)
		assert.Equal(t, 1, b.QuestionIndex)
	}
}

func TestSession_AnswerResultGoesToSubmitterOnly(t *testing.T) {
	s := newSession(t, Options{}, "p1", "p2")
	ctx := context.Background()
	_, err := s.Do(ctx, engine.Command{Type: engine.CmdStart})
	require.NoError(t, err)

	director := attach(t, s, "d", RoleDirector, "")
	p1 := attach(t, s, "c1", RolePlayer, "p1")
	p2 := attach(t, s, "c2", RolePlayer, "p2")

	_, err = s.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswer, PlayerID: "p1", Index: 0, Answer: "A"})
	require.NoError(t, err)

	var res types.AnswerResult
	require.NoError(t, recvEvent(t, p1, string(engine.EvtAnswerResult)).Decode(&res))
	assert.True(t, res.Correct)
	assert.Equal(t, 200, res.NewScore)
	recvNothing(t, p2, 50*time.Millisecond)

	recvEvent(t, director, string(engine.EvtPlayerAnswered))
	recvEvent(t, director, string(engine.EvtDistribution))
	recvEvent(t, director, string(engine.EvtLeaderboard))

	_, err = s.Do(ctx, engine.Command{Type: engine.CmdSubmitAnswer, PlayerID: "p1", Index: 0, Answer: "A"})
	require.ErrorIs(t, err, engine.ErrDuplicateSubmission)
	recvNothing(t, director, 50*time.Millisecond)
}

func TestSession_DropSlowClient(t *testing.T) {
	s := newSession(t, Options{})
	out := make(chan types.Envelope, 1)
	require.NoError(t, s.Attach(context.Background(), "slow", RoleTV, "", out))

	_, err := s.Do(context.Background(), engine.Command{Type: engine.CmdStart})
	require.NoError(t, err)

	recvEvent(t, out, EvtSessionState)
	select {
	case _, ok := <-out:
		assert.False(t, ok, "slow client's outbox should be closed")
	case <-time.After(within):
		t.Fatal("slow client was not dropped")
	}
}

func TestSession_PresenceFollowsConnections(t *testing.T) {
	s := newSession(t, Options{}, "p1")
	ctx := context.Background()

	attach(t, s, "a", RolePlayer, "p1")
	attach(t, s, "b", RolePlayer, "p1")
	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.Players[0].Connected)

	s.Detach("a")
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.True(t, st.Players[0].Connected, "second tab still open")

	s.Detach("b")
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Players[0].Connected)
}

func TestSession_TimerExpires(t *testing.T) {
	s := newSession(t, Options{})
	ctx := context.Background()
	_, err := s.Do(ctx, engine.Command{Type: engine.CmdStart})
	require.NoError(t, err)
	director := attach(t, s, "d", RoleDirector, "")

	// A 1s timer that started 950ms ago has 50ms left.
	_, err = s.Do(ctx, engine.Command{Type: engine.CmdTimerStart, Seconds: 1, At: time.Now().Add(-950 * time.Millisecond)})
	require.NoError(t, err)
	recvEvent(t, director, string(engine.EvtTimerStarted))
	recvEvent(t, director, string(engine.EvtTimerExpired))

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.False(t, st.Question.TimerRunning)
}

func TestSession_TimerCancelledByNext(t *testing.T) {
	s := newSession(t, Options{})
	ctx := context.Background()
	_, err := s.Do(ctx, engine.Command{Type: engine.CmdStart})
	require.NoError(t, err)
	director := attach(t, s, "d", RoleDirector, "")

	_, err = s.Do(ctx, engine.Command{Type: engine.CmdTimerStart, Seconds: 1, At: time.Now().Add(-950 * time.Millisecond)})
	require.NoError(t, err)
	_, err = s.Do(ctx, engine.Command{Type: engine.CmdNext})
	require.NoError(t, err)

	recvEvent(t, director, string(engine.EvtTimerStarted))
	recvEvent(t, director, string(engine.EvtTimerStopped))
	recvEvent(t, director, string(engine.EvtQuestionChanged))
	recvNothing(t, director, 150*time.Millisecond)
}

func TestSession_RecorderSeesCommittedStates(t *testing.T) {
	rec := &memRecorder{}
	s := newSession(t, Options{Recorder: rec}, "p1")
	ctx := context.Background()

	_, err := s.Do(ctx, engine.Command{Type: engine.CmdStart})
	require.NoError(t, err)
	_, err = s.Do(ctx, engine.Command{Type: engine.CmdNext, PlayerID: "x"})
	require.NoError(t, err)
	_, err = s.Do(ctx, engine.Command{Type: engine.CmdResume})
	require.ErrorIs(t, err, engine.ErrInvalidTransition)

	last := rec.last()
	assert.Equal(t, engine.StatusActive, last.Status)
	assert.Equal(t, 1, last.QuestionIndex)
}

func TestSession_CloseClosesOutboxes(t *testing.T) {
	s := newSession(t, Options{})
	out := attach(t, s, "d", RoleDirector, "")
	s.Close()

	_, ok := <-out
	assert.False(t, ok)
	_, err := s.Do(context.Background(), engine.Command{Type: engine.CmdStart})
	require.ErrorIs(t, err, ErrClosed)
}
