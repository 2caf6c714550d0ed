package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
	"github.com/DoyleJ11/pkwy-game-suite/internal/engine"
	"github.com/DoyleJ11/pkwy-game-suite/internal/pack"
	"github.com/DoyleJ11/pkwy-game-suite/internal/store"
)

const maxUpload = 8 << 20

// packError lets store misses share the engine's NotFound mapping.
func packError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("pack %w", engine.ErrNotFound)
	}
	return err
}

type packRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Content     json.RawMessage `json:"content"`
}

func (p packRequest) meta() pack.Meta {
	return pack.Meta{Name: p.Name, Description: p.Description, Tags: p.Tags}
}

func CreatePack(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req packRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		g, err := pack.Parse(pack.KindJSON, req.Name, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		p, err := packs.Create(r.Context(), req.meta(), g)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// ImportPack takes a CSV or JSON file, either as multipart field "file"
// or as the raw body. Metadata comes from ?name=&description=&tags=a,b.
func ImportPack(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		filename, body, err := readUpload(r)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		q := r.URL.Query()
		m := pack.Meta{Name: q.Get("name"), Description: q.Get("description")}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(filename, filenameExt(filename))
		}
		if tags := q.Get("tags"); tags != "" {
			m.Tags = strings.Split(tags, ",")
		}
		kind := pack.KindOf(filename, body)
		if strings.Contains(r.Header.Get("Content-Type"), "csv") {
			kind = pack.KindCSV
		}
		p, err := packs.Import(r.Context(), m, kind, body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func readUpload(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		body, err := io.ReadAll(f)
		return hdr.Filename, body, err
	}
	body, err := io.ReadAll(r.Body)
	return r.URL.Query().Get("filename"), body, err
}

func filenameExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

func ListPacks(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := packs.List(r.Context(), store.PackFilter{Format: q.Get("format"), Tag: q.Get("tag")})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type formatInfo struct {
	Value     string `json:"value"`
	Composite bool   `json:"composite,omitempty"`
}

func ListFormats(w http.ResponseWriter, r *http.Request) {
	out := make([]formatInfo, 0, len(content.AtomicFormats)+1)
	for _, f := range content.AtomicFormats {
		out = append(out, formatInfo{Value: string(f)})
	}
	out = append(out, formatInfo{Value: string(content.FormatGameNightMix), Composite: true})
	writeJSON(w, http.StatusOK, map[string]any{"formats": out})
}

func GetPack(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := packs.Get(r.Context(), chi.URLParam(r, "packID"))
		if err != nil {
			writeError(w, packError(err))
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// UpdatePack replaces metadata, and content when the body carries any.
func UpdatePack(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req packRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		var g content.Game
		if len(req.Content) > 0 && string(req.Content) != "null" {
			var err error
			if g, err = pack.Parse(pack.KindJSON, req.Name, req.Content); err != nil {
				writeError(w, err)
				return
			}
		}
		p, err := packs.Update(r.Context(), chi.URLParam(r, "packID"), req.meta(), g)
		if err != nil {
			writeError(w, packError(err))
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func DeletePack(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := packs.Delete(r.Context(), chi.URLParam(r, "packID")); err != nil {
			writeError(w, packError(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Game pack deleted"})
	}
}

func DuplicatePack(packs *pack.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := packs.Duplicate(r.Context(), chi.URLParam(r, "packID"))
		if err != nil {
			writeError(w, packError(err))
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}
