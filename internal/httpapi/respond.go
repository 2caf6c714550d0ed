package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/session"
	"github.com/DoyleJ11/pkwy-game-suite/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, content.ErrMalformedContent),
		errors.Is(err, engine.ErrInvalidArgument),
		errors.Is(err, engine.ErrInvalidName),
		errors.Is(err, engine.ErrNameTaken),
		errors.Is(err, engine.ErrPlayerEliminated),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		status = http.StatusGone
	}
	code := engine.ErrorCode(err)
	if errors.Is(err, errBadRequest) {
		code = "bad_request"
	}
	writeJSON(w, status, types.Error{Code: code, Message: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
