// Package httpapi is the REST surface: game sessions, players, answers
// and game packs, plus health and metrics.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/pkwy-game-suite/internal/hub"
	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
	"github.com/DoyleJ11/pkwy-game-suite/internal/pack"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
	"github.com/DoyleJ11/pkwy-game-suite/internal/ws"
)

type Deps struct {
	Hub       *hub.Hub
	Packs     *pack.Service
	WS        *ws.Handler
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
	PublicURL string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger, d.Metrics))

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", CreateGame(d.Hub))
		r.Get("/", ListGames(d.Hub))
		r.Get("/code/{key}", GetGame(d.Hub))

		// {key} is a session id or a join code throughout.
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", GetGame(d.Hub))
			r.Delete("/", DeleteGame(d.Hub))

			r.Patch("/start", Control(d.Hub, controlStart))
			r.Patch("/pause", Control(d.Hub, controlPause))
			r.Patch("/resume", Control(d.Hub, controlResume))
			r.Patch("/finish", Control(d.Hub, controlFinish))
			r.Patch("/next-question", Control(d.Hub, controlNext))
			r.Patch("/previous-question", Control(d.Hub, controlPrevious))
			r.Patch("/set-question/{index}", Control(d.Hub, controlGoto))
			r.Patch("/reveal", Control(d.Hub, controlReveal))
			r.Patch("/content", LoadContent(d.Hub))
			r.Patch("/pack/{packID}", LoadPack(d.Hub, d.Packs))

			r.Post("/join", JoinGame(d.Hub))
			r.Get("/players", ListPlayers(d.Hub))
			r.Get("/leaderboard", GetLeaderboard(d.Hub))
			r.Get("/qr", JoinQR(d.Hub, d.PublicURL))
			r.Patch("/players/{playerID}/score", AdjustScore(d.Hub))
			r.Patch("/players/{playerID}/eliminate", EliminatePlayer(d.Hub))
		})
	})
	r.Post("/api/answers", SubmitAnswer(d.Hub))

	r.Route("/api/game-packs", func(r chi.Router) {
		r.Post("/", CreatePack(d.Packs))
		r.Post("/import", ImportPack(d.Packs))
		r.Post("/upload", ImportPack(d.Packs))
		r.Get("/", ListPacks(d.Packs))
		r.Get("/formats", ListFormats)
		r.Get("/{packID}", GetPack(d.Packs))
		r.Put("/{packID}", UpdatePack(d.Packs))
		r.Delete("/{packID}", DeletePack(d.Packs))
		r.Post("/{packID}/duplicate", DuplicatePack(d.Packs))
	})

	if d.WS != nil {
		r.Get("/ws/director/{code}", d.WS.Serve(session.RoleDirector))
		r.Get("/ws/tv/{code}", d.WS.Serve(session.RoleTV))
		r.Get("/ws/player/{code}/{playerID}", d.WS.Serve(session.RolePlayer))
	}
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
