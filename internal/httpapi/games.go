package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/hub"
	"github.com/DoyleJ11/pkwy-game-suite/internal/pack"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

type createGameRequest struct {
	Name       string `json:"name"`
	Host       string `json:"host"`
	Venue      string `json:"venue"`
	GameFormat string `json:"game_format"`
}

func CreateGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		f, err := content.ParseFormat(req.GameFormat)
		if err != nil {
			writeError(w, err)
			return
		}
		sess, err := h.Create(r.Context(), engine.Meta{
			Name:   strings.TrimSpace(req.Name),
			Host:   strings.TrimSpace(req.Host),
			Venue:  strings.TrimSpace(req.Venue),
			Format: f,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		view, err := sess.View(r.Context(), session.RoleDirector)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

// ListGames returns director views without content, filtered by ?status=.
func ListGames(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		want := strings.ToLower(r.URL.Query().Get("status"))
		sessions, err := h.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := []types.Session{}
		for _, s := range sessions {
			view, err := s.View(r.Context(), session.RoleDirector)
			if err != nil {
				continue
			}
			if want != "" && view.Status != want {
				continue
			}
			view.Content = nil
			out = append(out, view)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		view, err := sess.View(r.Context(), session.RoleDirector)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func DeleteGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.Remove(r.Context(), chi.URLParam(r, "key")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Game deleted"})
	}
}

// controlFunc builds the engine command for a director control endpoint.
type controlFunc func(r *http.Request) (engine.Command, error)

func controlStart(*http.Request) (engine.Command, error) {
	return engine.Command{Type: engine.CmdStart}, nil
}
func controlPause(*http.Request) (engine.Command, error) {
	return engine.Command{Type: engine.CmdPause}, nil
}
func controlResume(*http.Request) (engine.Command, error) {
	return engine.Command{Type: engine.CmdResume}, nil
}
func controlFinish(*http.Request) (engine.Command, error) {
	return engine.Command{Type: engine.CmdFinish}, nil
}
func controlNext(*http.Request) (engine.Command, error) {
	return engine.Command{Type: engine.CmdNext}, nil
}
func controlPrevious(*http.Request) (engine.Command, error) {
	return engine.Command{Type: engine.CmdPrevious}, nil
}

func controlGoto(r *http.Request) (engine.Command, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return engine.Command{}, fmt.Errorf("%w: question index %q", engine.ErrInvalidArgument, chi.URLParam(r, "index"))
	}
	return engine.Command{Type: engine.CmdGoto, Index: idx}, nil
}

// controlReveal toggles, or sets ?revealed=true|false explicitly.
func controlReveal(r *http.Request) (engine.Command, error) {
	cmd := engine.Command{Type: engine.CmdReveal}
	if v := r.URL.Query().Get("revealed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return engine.Command{}, fmt.Errorf("%w: revealed=%q", engine.ErrInvalidArgument, v)
		}
		cmd.Reveal = &b
	}
	return cmd, nil
}

// Control runs a director command against a session and returns the
// resulting director view.
func Control(h *hub.Hub, build controlFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := build(r)
		if err != nil {
			writeError(w, err)
			return
		}
		run(w, r, h, cmd)
	}
}

func run(w http.ResponseWriter, r *http.Request, h *hub.Hub, cmd engine.Command) {
	sess, err := h.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := sess.Do(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.View(res.State, engine.ToDirector))
}

// LoadContent accepts game content as JSON (full content or import rows)
// or CSV, chosen by Content-Type.
func LoadContent(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		kind := pack.KindJSON
		if strings.Contains(r.Header.Get("Content-Type"), "csv") {
			kind = pack.KindCSV
		}
		g, err := pack.Parse(kind, "", body)
		if err != nil {
			writeError(w, err)
			return
		}
		run(w, r, h, engine.Command{Type: engine.CmdLoadContent, Content: g})
	}
}

func LoadPack(h *hub.Hub, packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := packs.Game(r.Context(), chi.URLParam(r, "packID"))
		if err != nil {
			writeError(w, packError(err))
			return
		}
		run(w, r, h, engine.Command{Type: engine.CmdLoadContent, Content: g})
	}
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	GameCode string `json:"game_code"`
	Score    int    `json:"score"`
}

func JoinGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		sess, err := h.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		id := uuid.NewString()
		res, err := sess.Do(r.Context(), engine.Command{Type: engine.CmdJoin, PlayerID: id, Name: req.Name})
		if err != nil {
			writeError(w, err)
			return
		}
		for _, p := range res.State.Players {
			if p.ID == id {
				writeJSON(w, http.StatusOK, joinResponse{ID: p.ID, Name: p.Name, GameCode: res.State.Code, Score: p.Score})
				return
			}
		}
		writeError(w, engine.ErrPlayerNotFound)
	}
}

func ListPlayers(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		st, err := sess.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		players := st.Players
		if players == nil {
			players = []types.Player{}
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func GetLeaderboard(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		st, err := sess.State(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, engine.Leaderboard(st))
	}
}

// AdjustScore applies ?points=&correct= to one player. An award counts as
// a correct answer unless correct=false.
func AdjustScore(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		points, err := strconv.Atoi(q.Get("points"))
		if err != nil {
			writeError(w, fmt.Errorf("%w: points=%q", engine.ErrInvalidArgument, q.Get("points")))
			return
		}
		correct := true
		if v := q.Get("correct"); v != "" {
			if correct, err = strconv.ParseBool(v); err != nil {
				writeError(w, fmt.Errorf("%w: correct=%q", engine.ErrInvalidArgument, v))
				return
			}
		}
		run(w, r, h, engine.Command{
			Type:     engine.CmdAdjustScore,
			PlayerID: chi.URLParam(r, "playerID"),
			Points:   points,
			Correct:  correct,
		})
	}
}

func EliminatePlayer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run(w, r, h, engine.Command{Type: engine.CmdEliminate, PlayerID: chi.URLParam(r, "playerID")})
	}
}

type answerRequest struct {
	types.SubmitAnswer
	PlayerID string `json:"player_id"`
	GameID   string `json:"game_id"`
}

// SubmitAnswer ingests an answer over REST. Stale and duplicate answers
// are not errors: they come back as accepted=false with a reason.
func SubmitAnswer(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		sess, err := h.Get(r.Context(), req.GameID)
		if err != nil {
			writeError(w, err)
			return
		}
		idx := engine.CurrentQuestion
		if req.QuestionIndex != nil {
			idx = *req.QuestionIndex
		}
		res, err := sess.Do(r.Context(), engine.Command{
			Type:      engine.CmdSubmitAnswer,
			PlayerID:  req.PlayerID,
			Answer:    req.Text(),
			TimeTaken: req.TimeTaken,
			Index:     idx,
		})
		if engine.Rejected(err) {
			if idx == engine.CurrentQuestion {
				if st, serr := sess.State(r.Context()); serr == nil {
					idx = st.QuestionIndex
				}
			}
			writeJSON(w, http.StatusOK, types.AnswerResult{Accepted: false, Reason: engine.ErrorCode(err), QuestionIndex: idx})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		for _, e := range engine.EventsOf(res.Events, engine.EvtAnswerResult) {
			if e.PlayerID == req.PlayerID {
				writeJSON(w, http.StatusOK, e.Data)
				return
			}
		}
		writeJSON(w, http.StatusOK, types.AnswerResult{Accepted: true, QuestionIndex: res.State.QuestionIndex})
	}
}

const qrSize = 320

// JoinQR renders the player join link for a session as a PNG.
func JoinQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		png, err := qrcode.Encode(joinURL(r, publicURL, sess.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func joinURL(r *http.Request, publicURL, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?code=" + code
}
