// Package ws serves the director, TV and player WebSocket endpoints.
// Every frame in both directions is a types.Envelope.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/internal/config"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/hub"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

type Handler struct {
	hub *hub.Hub
	cfg config.WSConfig
	log *zap.Logger
}

func NewHandler(h *hub.Hub, cfg config.WSConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 32
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	return &Handler{hub: h, cfg: cfg, log: log}
}

// Serve returns the endpoint for one role. It expects chi URL params
// {code}, and {playerID} for players.
func (h *Handler) Serve(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		sess, err := h.hub.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		playerID := chi.URLParam(r, "playerID")
		if role == session.RolePlayer {
			st, err := sess.State(r.Context())
			if err != nil {
				http.Error(w, "game not found", http.StatusNotFound)
				return
			}
			if !hasPlayer(st, playerID) {
				http.Error(w, "player not found", http.StatusNotFound)
				return
			}
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// TV and player pages are served from other origins on the venue network.
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			conn:     conn,
			sess:     sess,
			role:     role,
			playerID: playerID,
			id:       uuid.NewString(),
			outbox:   make(chan types.Envelope, h.cfg.ClientBuffer),
			cfg:      h.cfg,
			log: h.log.With(
				zap.String("code", sess.Code()),
				zap.String("role", string(role)),
				zap.String("player_id", playerID),
			),
		}
		c.run(r.Context())
	}
}

func hasPlayer(st engine.State, id string) bool {
	for _, p := range st.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

type client struct {
	conn     *websocket.Conn
	sess     *session.Session
	role     session.Role
	playerID string
	id       string
	outbox   chan types.Envelope
	cfg      config.WSConfig
	log      *zap.Logger
}

func (c *client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := c.sess.Attach(ctx, c.id, c.role, c.playerID, c.outbox); err != nil {
		c.log.Info("attach refused", zap.Error(err))
		c.conn.Close(websocket.StatusPolicyViolation, engine.ErrorCode(err))
		return
	}
	defer c.sess.Detach(c.id)
	c.log.Debug("client connected")

	go c.writeLoop(ctx, cancel)
	c.readLoop(ctx)
	c.log.Debug("client disconnected")
}

// writeLoop drains the outbox. A closed outbox means the session dropped
// this client or shut down.
func (c *client) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	var ping <-chan time.Time
	if c.cfg.PingInterval > 0 {
		t := time.NewTicker(c.cfg.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case env, ok := <-c.outbox:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "session closed the connection")
				return
			}
			if err := c.write(ctx, env); err != nil {
				return
			}
		case <-ping:
			pctx, pcancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
			err := c.conn.Ping(pctx)
			pcancel()
			if err != nil {
				c.log.Debug("ping failed", zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					c.log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.reply(ctx, EvtError, types.Error{Code: "bad_request", Message: "expected {event, data}"})
			continue
		}
		if env.Event == EvtPing {
			c.reply(ctx, EvtHeartbeat, map[string]time.Time{"timestamp": time.Now().UTC()})
			continue
		}
		c.dispatch(ctx, env)
	}
}

func (c *client) dispatch(ctx context.Context, env types.Envelope) {
	cmd, err := toEngineCommand(c.role, c.playerID, env)
	if err == nil {
		_, err = c.sess.Do(ctx, cmd)
	}
	switch {
	case err == nil:
	case errors.Is(err, session.ErrClosed), errors.Is(err, context.Canceled):
	case engine.Rejected(err):
		// Stale and duplicate answers are reported to the submitter only.
		c.log.Debug("answer rejected", zap.Error(err))
		c.reply(ctx, string(engine.EvtAnswerResult), types.AnswerResult{
			Accepted:      false,
			Reason:        engine.ErrorCode(err),
			QuestionIndex: c.questionIndex(ctx, cmd.Index),
		})
	default:
		c.log.Debug("command rejected", zap.String("event", env.Event), zap.Error(err))
		c.reply(ctx, EvtError, types.Error{Code: engine.ErrorCode(err), Message: err.Error()})
	}
}

// questionIndex resolves CurrentQuestion to the session's cursor.
func (c *client) questionIndex(ctx context.Context, idx int) int {
	if idx != engine.CurrentQuestion {
		return idx
	}
	if st, err := c.sess.State(ctx); err == nil {
		return st.QuestionIndex
	}
	return idx
}

func (c *client) reply(ctx context.Context, event string, data any) {
	env, err := types.NewEnvelope(event, data)
	if err != nil {
		return
	}
	_ = c.write(ctx, env)
}

func (c *client) write(ctx context.Context, env types.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return c.conn.Write(wctx, websocket.MessageText, payload)
}
