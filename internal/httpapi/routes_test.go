package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/pkwy-game-suite/internal/config"
	"github.com/DoyleJ11/pkwy-game-suite/internal/hub"
	"github.com/DoyleJ11/pkwy-game-suite/internal/metrics"
	"github.com/DoyleJ11/pkwy-game-suite/internal/pack"
	"github.com/DoyleJ11/pkwy-game-suite/internal/store"
	"github.com/DoyleJ11/pkwy-game-suite/internal/ws"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

const millionaire = `{"game_name":"UR FINAL ANSWER!","questions":[
	{"question_text":"2+2?","choices":{"A":"3","B":"4"},"correct_answer":"B","point_value":200},
	{"question_text":"3+3?","choices":{"A":"6","B":"7"},"correct_answer":"A","point_value":300}
]}`

type api struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T) api {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := metrics.New()
	h := hub.NewHub(ctx, hub.Options{Metrics: m})
	t.Cleanup(h.Close)
	srv := httptest.NewServer(SetupRoutes(Deps{
		Hub:       h,
		Packs:     pack.NewService(store.NewMemory(), nil),
		WS:        ws.NewHandler(h, config.WSConfig{}, nil),
		Metrics:   m,
		PublicURL: "http://pkwy.test",
	}))
	t.Cleanup(srv.Close)
	return api{t: t, srv: srv}
}

func (a api) do(method, path, contentType string, body io.Reader, out any) int {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(a.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a api) json(method, path string, in, out any) int {
	a.t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(a.t, err)
		body = bytes.NewReader(b)
	}
	return a.do(method, path, "application/json", body, out)
}

func (a api) createGame(format string) types.Session {
	a.t.Helper()
	var s types.Session
	status := a.json(http.MethodPost, "/api/games", map[string]string{
		"name": "Tuesday Trivia", "host": "Sam", "game_format": format,
	}, &s)
	require.Equal(a.t, http.StatusCreated, status)
	return s
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil, nil))

	resp, err := http.Get(a.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "pkwy_http_request_duration_seconds")
	assert.Contains(t, string(b), `route="/healthz"`)
}

func TestCreateGame(t *testing.T) {
	a := newAPI(t)
	s := a.createGame("ur final answer!")
	assert.Equal(t, "UR FINAL ANSWER!", s.GameFormat)
	assert.Equal(t, "waiting", s.Status)
	assert.Equal(t, "PKWY Tavern", s.Venue)
	assert.Len(t, s.Code, 6)

	var got types.Session
	assert.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games/code/"+strings.ToLower(s.Code), nil, &got))
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games/"+s.ID, nil, &got))

	var e types.Error
	assert.Equal(t, http.StatusBadRequest, a.json(http.MethodPost, "/api/games", map[string]string{"game_format": "BINGO"}, &e))
	assert.Equal(t, http.StatusNotFound, a.json(http.MethodGet, "/api/games/ZZZZZZ", nil, &e))
	assert.Equal(t, "not_found", e.Code)
}

func TestGameFlow(t *testing.T) {
	a := newAPI(t)
	s := a.createGame("UR FINAL ANSWER!")
	base := "/api/games/" + s.ID

	var e types.Error
	assert.Equal(t, http.StatusConflict, a.json(http.MethodPatch, base+"/start", nil, &e))
	assert.Equal(t, "invalid_transition", e.Code)

	var view types.Session
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, base+"/content", "application/json", strings.NewReader(millionaire), &view))
	assert.Equal(t, 2, view.TotalQuestions)

	var p struct {
		ID       string `json:"id"`
		GameCode string `json:"game_code"`
	}
	require.Equal(t, http.StatusOK, a.json(http.MethodPost, "/api/games/"+s.Code+"/join", map[string]string{"name": "Ann"}, &p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, s.Code, p.GameCode)
	assert.Equal(t, http.StatusBadRequest, a.json(http.MethodPost, "/api/games/"+s.Code+"/join", map[string]string{"name": "ANN"}, &e))

	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, base+"/start", nil, &view))
	assert.Equal(t, "active", view.Status)

	var res types.AnswerResult
	answer := map[string]any{"player_id": p.ID, "game_id": s.ID, "question_index": 0, "answer": "B", "time_taken": 3}
	require.Equal(t, http.StatusOK, a.json(http.MethodPost, "/api/answers", answer, &res))
	assert.True(t, res.Accepted)
	assert.True(t, res.Correct)
	assert.Equal(t, 200, res.PointsEarned)

	res = types.AnswerResult{}
	require.Equal(t, http.StatusOK, a.json(http.MethodPost, "/api/answers", answer, &res))
	assert.False(t, res.Accepted)
	assert.Equal(t, "duplicate", res.Reason)

	res = types.AnswerResult{}
	noIndex := map[string]any{"player_id": p.ID, "game_id": s.ID, "answer": "B"}
	require.Equal(t, http.StatusOK, a.json(http.MethodPost, "/api/answers", noIndex, &res))
	assert.Equal(t, "duplicate", res.Reason)
	assert.Equal(t, 0, res.QuestionIndex)

	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, base+"/next-question", nil, &view))
	assert.Equal(t, 1, view.CurrentQuestionIndex)

	res = types.AnswerResult{}
	require.Equal(t, http.StatusOK, a.json(http.MethodPost, "/api/answers", answer, &res))
	assert.False(t, res.Accepted)
	assert.Equal(t, "stale", res.Reason)

	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, base+"/reveal?revealed=true", nil, &view))
	assert.True(t, view.AnswerRevealed)
	assert.Equal(t, http.StatusBadRequest, a.json(http.MethodPatch, base+"/set-question/x", nil, &e))
	assert.Equal(t, http.StatusNotFound, a.json(http.MethodPatch, base+"/set-question/9", nil, &e))
	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, base+"/previous-question", nil, &view))
	assert.Equal(t, 0, view.CurrentQuestionIndex)

	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, "/api/games/"+s.Code+"/players/"+p.ID+"/score?points=50", nil, &view))
	var board []types.LeaderboardEntry
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games/"+s.Code+"/leaderboard", nil, &board))
	require.Len(t, board, 1)
	assert.Equal(t, 250, board[0].Score)
	assert.Equal(t, 2, board[0].CorrectAnswers, "a manual award counts as correct by default")

	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, "/api/games/"+s.Code+"/players/"+p.ID+"/score?points=10&correct=false", nil, &view))
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games/"+s.Code+"/leaderboard", nil, &board))
	assert.Equal(t, 260, board[0].Score)
	assert.Equal(t, 2, board[0].CorrectAnswers)

	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, base+"/finish", nil, &view))
	assert.Equal(t, "finished", view.Status)
	assert.Equal(t, http.StatusConflict, a.json(http.MethodPatch, base+"/resume", nil, &e))

	var list []types.Session
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games?status=finished", nil, &list))
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Content)
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games?status=active", nil, &list))
	assert.Empty(t, list)

	assert.Equal(t, http.StatusOK, a.json(http.MethodDelete, base, nil, nil))
	assert.Equal(t, http.StatusNotFound, a.json(http.MethodGet, base, nil, &e))
}

func TestPlayersAndElimination(t *testing.T) {
	a := newAPI(t)
	s := a.createGame("LAST CALL STANDING")
	var p struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusOK, a.json(http.MethodPost, "/api/games/"+s.Code+"/join", map[string]string{"name": "Bo"}, &p))

	var view types.Session
	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, "/api/games/"+s.Code+"/players/"+p.ID+"/eliminate", nil, &view))

	var players []types.Player
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/games/"+s.Code+"/players", nil, &players))
	require.Len(t, players, 1)
	assert.True(t, players[0].Eliminated)

	var e types.Error
	assert.Equal(t, http.StatusNotFound, a.json(http.MethodPatch, "/api/games/"+s.Code+"/players/ghost/eliminate", nil, &e))
	assert.Equal(t, "player_not_found", e.Code)
	assert.Equal(t, http.StatusBadRequest, a.json(http.MethodPatch, "/api/games/"+s.Code+"/players/"+p.ID+"/score?points=lots", nil, &e))
}

func TestJoinQR(t *testing.T) {
	a := newAPI(t)
	s := a.createGame("PKWY LIVE!")
	resp, err := http.Get(a.srv.URL + "/api/games/" + s.Code + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	b, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestJoinURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/games/ABC/qr", nil)
	r.Host = "bar.local:8080"
	assert.Equal(t, "http://bar.local:8080/?code=ABC", joinURL(r, "", "ABC"))
	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://bar.local:8080/?code=ABC", joinURL(r, "", "ABC"))
	assert.Equal(t, "https://pkwy.example/?code=ABC", joinURL(r, "https://pkwy.example/", "ABC"))
}

func TestGamePacks(t *testing.T) {
	a := newAPI(t)

	var created types.GamePack
	require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/game-packs", map[string]any{
		"name": "Math night", "tags": []string{"math"}, "content": json.RawMessage(millionaire),
	}, &created))
	assert.Equal(t, "UR FINAL ANSWER!", created.Format)
	assert.Equal(t, 2, created.TotalQuestions)

	csv := "format,category,question,option_a,option_b,option_c,option_d,correct_answer,points,time_limit\n" +
		"millionaire,,Sky color?,Blue,Green,,,A,100,\n"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "colors.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(csv))
	require.NoError(t, mw.Close())

	var imported types.GamePack
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/game-packs/import?tags=kids,colors", mw.FormDataContentType(), &buf, &imported))
	assert.Equal(t, "colors", imported.Name)
	assert.Equal(t, []string{"kids", "colors"}, imported.Tags)

	var e types.Error
	bad := "format,category,question,option_a,option_b,option_c,option_d,correct_answer,points,time_limit\nlive,,,a,b,,,0,,\n"
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/game-packs/import", "text/csv", strings.NewReader(bad), &e))
	assert.Equal(t, "malformed_content", e.Code)
	assert.Contains(t, e.Message, "line 2")

	var list []types.GamePack
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/game-packs?tag=MATH", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	var dup types.GamePack
	require.Equal(t, http.StatusCreated, a.json(http.MethodPost, "/api/game-packs/"+created.ID+"/duplicate", nil, &dup))
	assert.Equal(t, "Math night (Copy)", dup.Name)

	var updated types.GamePack
	require.Equal(t, http.StatusOK, a.json(http.MethodPut, "/api/game-packs/"+dup.ID, map[string]any{"name": "Math 2"}, &updated))
	assert.Equal(t, "Math 2", updated.Name)
	assert.Equal(t, 2, updated.TotalQuestions)

	s := a.createGame("UR FINAL ANSWER!")
	var view types.Session
	require.Equal(t, http.StatusOK, a.json(http.MethodPatch, "/api/games/"+s.ID+"/pack/"+created.ID, nil, &view))
	assert.Equal(t, 2, view.TotalQuestions)
	assert.Equal(t, http.StatusBadRequest, a.json(http.MethodPatch, "/api/games/"+a.createGame("PERIL!").ID+"/pack/"+created.ID, nil, &e))
	assert.Equal(t, http.StatusNotFound, a.json(http.MethodPatch, "/api/games/"+s.ID+"/pack/missing", nil, &e))

	assert.Equal(t, http.StatusOK, a.json(http.MethodDelete, "/api/game-packs/"+created.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, a.json(http.MethodGet, "/api/game-packs/"+created.ID, nil, &e))

	var formats struct {
		Formats []struct {
			Value string `json:"value"`
		} `json:"formats"`
	}
	require.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/game-packs/formats", nil, &formats))
	assert.Len(t, formats.Formats, 14)
}
