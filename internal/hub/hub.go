package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
)

var ErrSessionNotFound = fmt.Errorf("session %w", engine.ErrNotFound)
var ErrHubClosed = errors.New("hub closed")

// Persister is the storage side the hub needs: session actors record into
// it and removed sessions are forgotten.
type Persister interface {
	session.Recorder
	Forget(id string)
}

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Meta  engine.Meta
	Reply chan *session.Session
}

type GetSession struct {
	Key   string // join code or session id
	Reply chan *session.Session
}

type ListSessions struct {
	Reply chan []*session.Session
}

type RemoveSession struct {
	Key   string
	Reply chan bool
}

type RestoreSession struct {
	State engine.State
	Reply chan *session.Session
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg()  {}
func (GetSession) isHubMsg()     {}
func (ListSessions) isHubMsg()   {}
func (RemoveSession) isHubMsg()  {}
func (RestoreSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()    {}

type Options struct {
	Rules     engine.Rules
	Logger    *zap.Logger
	Metrics   *metrics.Recorder
	Persister Persister
	Now       func() time.Time
}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session // by code
	codes    map[string]string           // id -> code
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		codes:    make(map[string]string),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.create(msg.Meta)

			case GetSession:
				msg.Reply <- h.lookup(msg.Key) // May be nil

			case ListSessions:
				out := make([]*session.Session, 0, len(h.sessions))
				for _, s := range h.sessions {
					out = append(out, s)
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
				msg.Reply <- out

			case RemoveSession:
				s := h.lookup(msg.Key)
				if s != nil {
					delete(h.sessions, s.Code())
					delete(h.codes, s.ID())
					s.Close()
					if h.opts.Persister != nil {
						h.opts.Persister.Forget(s.ID())
					}
					h.opts.Logger.Info("session removed", zap.String("code", s.Code()))
				}
				msg.Reply <- s != nil

			case RestoreSession:
				st := msg.State
				if h.sessions[st.Code] != nil {
					msg.Reply <- nil
					break
				}
				msg.Reply <- h.spawn(st)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(m engine.Meta) *session.Session {
	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			h.opts.Logger.Error("generate code", zap.Error(err))
			return nil
		}
		if h.sessions[c] == nil {
			code = c
			break
		}
		h.opts.Logger.Debug("collision on code, regenerating", zap.String("code", c))
	}
	m.ID = uuid.NewString()
	m.Code = code
	st := engine.NewState(m, h.opts.Rules, h.opts.Now())
	s := h.spawn(st)
	if h.opts.Persister != nil {
		h.opts.Persister.Record(st)
	}
	h.opts.Logger.Info("session created", zap.String("code", code), zap.String("format", string(m.Format)))
	return s
}

func (h *Hub) spawn(st engine.State) *session.Session {
	opts := session.Options{
		Logger:  h.opts.Logger,
		Metrics: h.opts.Metrics,
		Now:     h.opts.Now,
	}
	if h.opts.Persister != nil {
		opts.Recorder = h.opts.Persister
	}
	s := session.New(h.ctx, st, opts)
	h.sessions[st.Code] = s
	h.codes[st.ID] = st.Code
	return s
}

func (h *Hub) lookup(key string) *session.Session {
	if s := h.sessions[strings.ToUpper(key)]; s != nil {
		return s
	}
	if code, ok := h.codes[key]; ok {
		return h.sessions[code]
	}
	return nil
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.Close()
	}
	clear(h.sessions)
	clear(h.codes)
	h.cancel()
}

const codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a 6 character join code without look-alike
// characters.
func GenerateCode() (string, error) {
	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
