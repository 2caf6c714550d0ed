package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

var ErrClosed = errors.New("session closed")

const EvtSessionState = "session:state"

type Role string

const (
	RoleDirector Role = "director"
	RoleTV       Role = "tv"
	RolePlayer   Role = "player"
)

func (r Role) Audience() engine.Audience {
	switch r {
	case RoleDirector:
		return engine.ToDirector
	case RoleTV:
		return engine.ToTV
	default:
		return engine.ToPlayers
	}
}

func (r Role) Valid() bool {
	return r == RoleDirector || r == RoleTV || r == RolePlayer
}

// Recorder receives every committed state. Implementations must not block.
type Recorder interface {
	Record(s engine.State)
}

type Msg interface{ isSessionMsg() }

type Join struct {
	ClientID string
	Role     Role
	PlayerID string
	Outbox   chan types.Envelope // closed by the session when the client is dropped
	Reply    chan error
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Command struct {
	Cmd   engine.Command
	Reply chan Result // optional
}

func (Command) isSessionMsg() {}

type Result struct {
	Events []engine.Event
	State  engine.State
	Err    error
}

type GetState struct {
	Reply chan engine.State
}

func (GetState) isSessionMsg() {}

type timerFired struct {
	gen   int
	index int
}

func (timerFired) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type client struct {
	role     Role
	playerID string
	outbox   chan types.Envelope
}

type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Recorder Recorder
	Now      func() time.Time
}

// Session is the single writer for one game. Everything that reads or
// changes the game goes through its inbox.
type Session struct {
	id   string
	code string

	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]*client

	timer    *time.Timer
	timerGen int

	log     *zap.Logger
	metrics *metrics.Recorder
	rec     Recorder
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, initial engine.State, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		id:      initial.ID,
		code:    initial.Code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]*client),
		log:     opts.Logger.With(zap.String("code", initial.Code), zap.String("session_id", initial.ID)),
		metrics: opts.Metrics,
		rec:     opts.Recorder,
		now:     opts.Now,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.metrics.SessionOpened()
	go s.loop()
	return s
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Code() string          { return s.code }
func (s *Session) Inbox() chan<- Msg     { return s.inbox }
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.join(msg)

			case Leave:
				s.leave(msg.ClientID)

			case Command:
				res := s.handle(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case GetState:
				msg.Reply <- s.state

			case timerFired:
				if msg.gen != s.timerGen {
					break
				}
				s.timer = nil
				s.handle(engine.Command{Type: engine.CmdTimerExpire, Index: msg.index})

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) join(msg Join) {
	if msg.Role == RolePlayer {
		if _, err := s.findPlayer(msg.PlayerID); err != nil {
			msg.Reply <- err
			return
		}
	}
	s.clients[msg.ClientID] = &client{role: msg.Role, playerID: msg.PlayerID, outbox: msg.Outbox}
	s.metrics.ClientConnected(string(msg.Role))
	msg.Reply <- nil

	// Reconnecting clients have missed events; hand them the full picture
	// before anything incremental.
	if env, err := types.NewEnvelope(EvtSessionState, engine.View(s.state, msg.Role.Audience())); err == nil {
		s.send(msg.ClientID, s.clients[msg.ClientID], env)
	}
	if msg.Role == RolePlayer {
		s.handle(engine.Command{Type: engine.CmdPresence, PlayerID: msg.PlayerID, Connected: true})
	}
}

func (s *Session) leave(clientID string) {
	c, ok := s.clients[clientID]
	if !ok {
		return
	}
	delete(s.clients, clientID)
	s.metrics.ClientDisconnected(string(c.role))
	s.markAbsent(c)
}

// markAbsent flags a player offline once their last connection is gone.
func (s *Session) markAbsent(c *client) {
	if c.role != RolePlayer {
		return
	}
	for _, other := range s.clients {
		if other.role == RolePlayer && other.playerID == c.playerID {
			return
		}
	}
	s.handle(engine.Command{Type: engine.CmdPresence, PlayerID: c.playerID, Connected: false})
}

func (s *Session) handle(cmd engine.Command) Result {
	if cmd.At.IsZero() {
		cmd.At = s.now()
	}
	events, next, err := engine.Apply(s.state, cmd)
	s.observe(cmd, events, err)
	if err != nil {
		return Result{State: s.state, Err: err}
	}

	s.state = next
	s.version++
	s.syncTimer(events)
	if s.rec != nil {
		s.rec.Record(s.state)
	}
	s.broadcast(events)
	return Result{Events: events, State: s.state}
}

func (s *Session) observe(cmd engine.Command, events []engine.Event, err error) {
	if cmd.Type != engine.CmdPresence {
		s.metrics.Command(string(cmd.Type), err)
	}
	switch {
	case errors.Is(err, engine.ErrStaleSubmission):
		s.metrics.Answer("stale")
		s.log.Debug("stale answer ignored", zap.String("player_id", cmd.PlayerID), zap.Int("index", cmd.Index))
	case errors.Is(err, engine.ErrDuplicateSubmission):
		s.metrics.Answer("duplicate")
		s.log.Debug("duplicate answer ignored", zap.String("player_id", cmd.PlayerID), zap.Int("index", cmd.Index))
	case err != nil:
		if cmd.Type == engine.CmdSubmitAnswer {
			s.metrics.Answer("rejected")
		}
		s.log.Info("command rejected", zap.String("command", string(cmd.Type)), zap.Error(err))
	case cmd.Type == engine.CmdSubmitAnswer:
		s.metrics.Answer(answerOutcome(events, cmd.PlayerID))
	}
}

func answerOutcome(events []engine.Event, playerID string) string {
	for _, e := range engine.EventsOf(events, engine.EvtAnswerResult) {
		if e.PlayerID != playerID {
			continue
		}
		r, _ := e.Data.(types.AnswerResult)
		switch {
		case r.Pending:
			return "pending"
		case r.Correct:
			return "correct"
		}
		return "wrong"
	}
	return "wrong"
}

// syncTimer keeps the single server-side timer in step with the state.
// Bumping the generation invalidates a fire that is already queued.
func (s *Session) syncTimer(events []engine.Event) {
	if engine.ContainsEvent(events, engine.EvtTimerStarted) || !s.state.Question.TimerRunning {
		s.stopTimer()
	}
	if !s.state.Question.TimerRunning || s.timer != nil {
		return
	}

	s.timerGen++
	gen, idx := s.timerGen, s.state.QuestionIndex
	wait := s.state.Question.TimerDeadline.Sub(s.now())
	s.timer = time.AfterFunc(wait, func() {
		select {
		case s.inbox <- timerFired{gen: gen, index: idx}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopTimer() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.timerGen++
}

func (s *Session) broadcast(events []engine.Event) {
	for _, e := range events {
		env, err := types.NewEnvelope(string(e.Type), e.Data)
		if err != nil {
			s.log.Error("encode event", zap.String("event", string(e.Type)), zap.Error(err))
			continue
		}
		for id, c := range s.clients {
			if !e.To.Has(c.role.Audience()) {
				continue
			}
			if c.role == RolePlayer && e.PlayerID != "" && e.PlayerID != c.playerID {
				continue
			}
			s.send(id, c, env)
		}
	}
}

// send never blocks the actor: a client whose outbox is full is dropped
// and must reconnect and resync.
func (s *Session) send(id string, c *client, env types.Envelope) {
	select {
	case c.outbox <- env:
	default:
		s.log.Warn("dropping slow client", zap.String("client_id", id), zap.String("role", string(c.role)))
		close(c.outbox)
		delete(s.clients, id)
		s.metrics.ClientDropped(string(c.role))
		s.metrics.ClientDisconnected(string(c.role))
		if c.role == RolePlayer {
			defer s.markAbsent(c)
		}
	}
}

func (s *Session) findPlayer(id string) (types.Player, error) {
	for _, p := range s.state.Players {
		if p.ID == id {
			return p, nil
		}
	}
	return types.Player{}, fmt.Errorf("%w: %s", engine.ErrPlayerNotFound, id)
}

func (s *Session) shutdown() {
	s.stopTimer()
	for id, c := range s.clients {
		close(c.outbox)
		delete(s.clients, id)
		s.metrics.ClientDisconnected(string(c.role))
	}
	s.metrics.SessionClosed()
	s.cancel()
}
